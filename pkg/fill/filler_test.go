package fill

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/go-scripts/jobfill/internal/answer"
	"github.com/go-scripts/jobfill/pkg/common"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var noPauses = Timing{}

// fakePage is an in-memory page. fieldsFn, when set, replaces the static
// field list so tests can simulate re-renders.
type fakePage struct {
	mu        sync.Mutex
	fields    []common.Field
	fieldsFn  func(call int) []common.Field
	job       common.JobInfo
	navErr    error
	fillErr   map[int]error
	calls     []string
	values    map[int]string
	fieldCall int
}

func newFakePage(fields ...common.Field) *fakePage {
	for i := range fields {
		fields[i].Index = i
	}
	return &fakePage{
		fields:  fields,
		job:     common.JobInfo{CompanyName: "Acme", JobTitle: "Engineer"},
		fillErr: map[int]error{},
		values:  map[int]string{},
	}
}

func (p *fakePage) record(format string, args ...interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, fmt.Sprintf(format, args...))
}

func (p *fakePage) Navigate(_ context.Context, url string) error {
	p.record("navigate %s", url)
	return p.navErr
}

func (p *fakePage) WaitForControls(context.Context, time.Duration) (bool, error) {
	return len(p.fields) > 0, nil
}

func (p *fakePage) JobInfo(context.Context) (common.JobInfo, error) {
	return p.job, nil
}

func (p *fakePage) Fields(context.Context) ([]common.Field, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	call := p.fieldCall
	p.fieldCall++
	if p.fieldsFn != nil {
		return p.fieldsFn(call), nil
	}
	return p.fields, nil
}

func (p *fakePage) Diagnostics(context.Context) (common.PageDiagnostics, error) {
	return common.PageDiagnostics{Title: "Apply", Interactive: len(p.fields)}, nil
}

func (p *fakePage) ScrollIntoView(_ context.Context, index int) error {
	p.record("scroll %d", index)
	return nil
}

func (p *fakePage) Highlight(_ context.Context, index int, on bool) error {
	p.record("highlight %d %v", index, on)
	return nil
}

func (p *fakePage) Fill(_ context.Context, index int, value string) error {
	p.record("fill %d", index)
	if err := p.fillErr[index]; err != nil {
		return err
	}
	p.mu.Lock()
	p.values[index] = value
	p.mu.Unlock()
	return nil
}

func (p *fakePage) Select(_ context.Context, index int, optionValue string) error {
	p.record("select %d", index)
	p.mu.Lock()
	p.values[index] = optionValue
	p.mu.Unlock()
	return nil
}

type countingReporter struct {
	total  int
	labels []string
}

func (r *countingReporter) SetTotal(total int)     { r.total = total }
func (r *countingReporter) Increment(label string) { r.labels = append(r.labels, label) }

type stubPlanner struct {
	plan  map[int]string
	err   error
	saw   []common.Field
	calls int
}

func (s *stubPlanner) Plan(_ context.Context, fields []common.Field, _ common.UserProfile, _ common.JobInfo) (map[int]string, error) {
	s.calls++
	s.saw = fields
	return s.plan, s.err
}

var testProfile = common.UserProfile{
	FirstName:      "Ada",
	LastName:       "Lovelace",
	Email:          "ada@example.com",
	Phone:          "555-0100",
	BackgroundInfo: "Mathematician and first programmer.",
	Country:        "United States",
}

func outcomes(s common.Summary) []common.Outcome {
	out := make([]common.Outcome, len(s.Fields))
	for i, r := range s.Fields {
		out[i] = r.Outcome
	}
	return out
}

func TestRunFillsForm(t *testing.T) {
	page := newFakePage(
		common.Field{Tag: "input", Type: "text", Name: "first_name", Visible: true},
		common.Field{Tag: "input", Type: "hidden", Name: "csrf", Visible: false},
		common.Field{Tag: "input", Type: "email", Name: "email", Visible: true},
		common.Field{Tag: "select", Name: "country", Visible: true, Options: []common.Option{
			{Value: "", Text: "Select..."},
			{Value: "ca", Text: "Canada"},
			{Value: "us", Text: "United States"},
		}},
		common.Field{Tag: "textarea", Label: "Why do you want this job?", Visible: true},
		common.Field{Tag: "input", Type: "text", Name: "nickname", Visible: false},
	)
	reporter := &countingReporter{}

	summary, err := New(page, testProfile, nil).
		WithTiming(noPauses).
		WithReporter(reporter).
		Run(context.Background(), "https://jobs.example.com/1")
	require.NoError(t, err)

	assert.Equal(t, common.JobInfo{CompanyName: "Acme", JobTitle: "Engineer"}, summary.Job)
	assert.Equal(t, 6, summary.FieldsFound)
	assert.Equal(t, 4, summary.FieldsFilled)

	want := []common.Outcome{
		common.OutcomeFilled,
		common.OutcomeSkipped,
		common.OutcomeFilled,
		common.OutcomeSelected,
		common.OutcomeFilled,
		common.OutcomeSkipped,
	}
	if diff := cmp.Diff(want, outcomes(summary)); diff != "" {
		t.Errorf("outcomes mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, "Ada", page.values[0])
	assert.Equal(t, "ada@example.com", page.values[2])
	assert.Equal(t, "us", page.values[3])
	assert.Equal(t, answer.Fallback(testProfile.BackgroundInfo), page.values[4])

	assert.Equal(t, common.PurposeCountry, summary.Fields[3].Purpose)
	assert.Equal(t, "United States", summary.Fields[3].Value)
	assert.Equal(t, "hidden input", summary.Fields[1].Reason)
	assert.Equal(t, "not visible", summary.Fields[5].Reason)

	assert.Equal(t, 6, reporter.total)
	assert.Len(t, reporter.labels, 6)
}

func TestRunCallOrder(t *testing.T) {
	page := newFakePage(common.Field{Tag: "input", Type: "text", Name: "first_name", Visible: true})

	_, err := New(page, testProfile, nil).WithTiming(noPauses).Run(context.Background(), "u")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"navigate u",
		"scroll 0",
		"highlight 0 true",
		"fill 0",
		"highlight 0 false",
	}, page.calls)
}

func TestRunFieldDisappears(t *testing.T) {
	first := common.Field{Index: 0, Tag: "input", Name: "first_name", Visible: true}
	second := common.Field{Index: 1, Tag: "input", Name: "email", Visible: true}
	page := newFakePage(first, second)
	// after the first control is handled the page re-renders with one control
	page.fieldsFn = func(call int) []common.Field {
		if call < 2 {
			return []common.Field{first, second}
		}
		return []common.Field{first}
	}

	summary, err := New(page, testProfile, nil).WithTiming(noPauses).Run(context.Background(), "u")
	require.NoError(t, err)

	require.Len(t, summary.Fields, 2)
	assert.Equal(t, common.OutcomeFilled, summary.Fields[0].Outcome)
	assert.Equal(t, common.OutcomeSkipped, summary.Fields[1].Outcome)
	assert.Equal(t, "no longer exists", summary.Fields[1].Reason)
	assert.Equal(t, 1, summary.FieldsFilled)
}

func TestRunSkipsShiftedDuplicate(t *testing.T) {
	email := common.Field{Tag: "input", Type: "email", Name: "email", Visible: true}
	phone := common.Field{Tag: "input", Type: "tel", Name: "phone", Visible: true}
	banner := common.Field{Tag: "input", Type: "text", Name: "promo", Visible: true}
	page := newFakePage(email, phone)
	// a control is inserted at the top after the first fill, shifting email to index 1
	page.fieldsFn = func(call int) []common.Field {
		if call < 2 {
			return []common.Field{email, phone}
		}
		return []common.Field{banner, email, phone}
	}

	summary, err := New(page, testProfile, nil).WithTiming(noPauses).Run(context.Background(), "u")
	require.NoError(t, err)

	require.Len(t, summary.Fields, 2)
	assert.Equal(t, common.OutcomeFilled, summary.Fields[0].Outcome)
	assert.Equal(t, common.OutcomeSkipped, summary.Fields[1].Outcome)
	assert.Equal(t, "already processed", summary.Fields[1].Reason)
	assert.Equal(t, 1, summary.FieldsFilled)
}

func TestRunFillsPlaceholderOnlyControls(t *testing.T) {
	page := newFakePage(
		common.Field{Tag: "input", Type: "text", Placeholder: "First name", Visible: true},
		common.Field{Tag: "input", Type: "text", Placeholder: "Last name", Visible: true},
		common.Field{Tag: "input", Type: "text", Placeholder: "Email", Visible: true},
	)

	summary, err := New(page, testProfile, nil).WithTiming(noPauses).Run(context.Background(), "u")
	require.NoError(t, err)

	assert.Equal(t, []common.Outcome{common.OutcomeFilled, common.OutcomeFilled, common.OutcomeFilled}, outcomes(summary))
	assert.Equal(t, 3, summary.FieldsFilled)
	assert.Equal(t, map[int]string{0: "Ada", 1: "Lovelace", 2: "ada@example.com"}, page.values)
}

func TestRunFillsIdenticalUnlabelledControls(t *testing.T) {
	blank := common.Field{Tag: "input", Type: "text", Visible: true}
	page := newFakePage(blank, blank)

	summary, err := New(page, testProfile, nil).WithTiming(noPauses).Run(context.Background(), "u")
	require.NoError(t, err)

	assert.Equal(t, []common.Outcome{common.OutcomeFilled, common.OutcomeFilled}, outcomes(summary))
	assert.Len(t, page.values, 2)
}

func TestControlKey(t *testing.T) {
	a := common.Field{Tag: "input", Type: "text", Placeholder: "City"}
	b := common.Field{Tag: "INPUT", Type: "text", Placeholder: "City"}
	c := common.Field{Tag: "input", Type: "text", AriaLabel: "City"}
	fields := []common.Field{a, c, b}

	assert.Equal(t, a.Signature()+"#0", controlKey(fields, 0))
	assert.Equal(t, c.Signature()+"#0", controlKey(fields, 1))
	assert.Equal(t, a.Signature()+"#1", controlKey(fields, 2), "same signature counts as a sibling")
	assert.NotEqual(t, a.Signature(), c.Signature())
}

func TestRunSelectWithoutMatch(t *testing.T) {
	page := newFakePage(common.Field{Tag: "select", Name: "country", Visible: true, Options: []common.Option{
		{Value: "", Text: "Choose one"},
		{Value: "fr", Text: "France"},
	}})
	profile := testProfile
	profile.Country = "Zzyzx"

	summary, err := New(page, profile, nil).WithTiming(noPauses).Run(context.Background(), "u")
	require.NoError(t, err)

	assert.Equal(t, []common.Outcome{common.OutcomeNoOption}, outcomes(summary))
	assert.Equal(t, 0, summary.FieldsFilled)
	assert.NotContains(t, page.calls, "select 0")
}

func TestRunEmptyValue(t *testing.T) {
	page := newFakePage(common.Field{Tag: "input", Name: "linkedin_url", Visible: true})

	summary, err := New(page, testProfile, nil).WithTiming(noPauses).Run(context.Background(), "u")
	require.NoError(t, err)

	assert.Equal(t, []common.Outcome{common.OutcomeEmpty}, outcomes(summary))
	assert.Equal(t, common.PurposeLinkedIn, summary.Fields[0].Purpose)
	assert.Empty(t, page.values)
}

func TestRunErrorContinues(t *testing.T) {
	page := newFakePage(
		common.Field{Tag: "input", Name: "first_name", Visible: true},
		common.Field{Tag: "input", Name: "last_name", Visible: true},
	)
	page.fillErr[0] = errors.New("element not interactable")

	summary, err := New(page, testProfile, nil).WithTiming(noPauses).Run(context.Background(), "u")
	require.NoError(t, err)

	assert.Equal(t, []common.Outcome{common.OutcomeFailed, common.OutcomeFilled}, outcomes(summary))
	assert.Equal(t, "element not interactable", summary.Fields[0].Reason)
	assert.Equal(t, "Lovelace", page.values[1])
	assert.Contains(t, page.calls, "highlight 0 false", "highlight is cleared after a failure")
}

func TestRunNavigationError(t *testing.T) {
	page := newFakePage()
	page.navErr = errors.New("net::ERR_NAME_NOT_RESOLVED")

	_, err := New(page, testProfile, nil).WithTiming(noPauses).Run(context.Background(), "u")
	assert.ErrorContains(t, err, "ERR_NAME_NOT_RESOLVED")
}

func TestRunNoFields(t *testing.T) {
	summary, err := New(newFakePage(), testProfile, nil).WithTiming(noPauses).Run(context.Background(), "u")
	require.NoError(t, err)
	assert.Equal(t, 0, summary.FieldsFound)
	assert.NotNil(t, summary.Fields)
	assert.Empty(t, summary.Fields)
}

func TestRunCancelled(t *testing.T) {
	page := newFakePage(common.Field{Tag: "input", Name: "first_name", Visible: true})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job := common.JobInfo{}
	_, err := New(page, testProfile, nil).WithTiming(noPauses).FillPage(ctx, job)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, page.values)
}

func TestRunWithPlan(t *testing.T) {
	page := newFakePage(
		common.Field{Tag: "input", Name: "first_name", Visible: true},
		common.Field{Tag: "input", Type: "hidden", Name: "token"},
		common.Field{Tag: "select", Label: "Gender", Visible: true, Options: []common.Option{
			{Value: "", Text: "Select"},
			{Value: "f", Text: "Female"},
			{Value: "m", Text: "Male"},
		}},
	)
	planner := &stubPlanner{plan: map[int]string{0: "Augusta", 2: "Female"}}

	summary, err := New(page, testProfile, nil).WithTiming(noPauses).WithPlanner(planner).Run(context.Background(), "u")
	require.NoError(t, err)

	assert.Equal(t, 1, planner.calls)
	assert.Len(t, planner.saw, 2, "hidden controls are not sent to the planner")
	assert.Equal(t, "Augusta", page.values[0])
	assert.Equal(t, "f", page.values[2])
	assert.Equal(t, 2, summary.FieldsFilled)
}

func TestRunPlanFollowsControlAfterRerender(t *testing.T) {
	first := common.Field{Index: 0, Tag: "input", Type: "text", Name: "first_name", Visible: true}
	referral := common.Field{Index: 1, Tag: "input", Type: "text", Name: "referral_code", Visible: true}
	email := common.Field{Index: 2, Tag: "input", Type: "email", Name: "email", Visible: true}
	page := newFakePage(first, referral, email)
	// the referral control disappears once the first control is filled
	page.fieldsFn = func(call int) []common.Field {
		if call < 2 {
			return []common.Field{first, referral, email}
		}
		shifted := email
		shifted.Index = 1
		return []common.Field{first, shifted}
	}
	planner := &stubPlanner{plan: map[int]string{0: "Ada", 1: "REF-123", 2: "ada@example.com"}}

	summary, err := New(page, testProfile, nil).WithTiming(noPauses).WithPlanner(planner).Run(context.Background(), "u")
	require.NoError(t, err)

	require.Len(t, summary.Fields, 3)
	assert.Equal(t, common.PurposeEmail, summary.Fields[1].Purpose)
	assert.Equal(t, "ada@example.com", page.values[1])
	assert.Equal(t, "no longer exists", summary.Fields[2].Reason)
	for _, v := range page.values {
		assert.NotEqual(t, "REF-123", v)
	}
}

func TestRunPlanFailureFallsBack(t *testing.T) {
	page := newFakePage(common.Field{Tag: "input", Name: "first_name", Visible: true})
	planner := &stubPlanner{err: answer.ErrNoPlan}

	summary, err := New(page, testProfile, nil).WithTiming(noPauses).WithPlanner(planner).Run(context.Background(), "u")
	require.NoError(t, err)

	assert.Equal(t, "Ada", page.values[0])
	assert.Equal(t, 1, summary.FieldsFilled)
}

func TestInspect(t *testing.T) {
	page := newFakePage(
		common.Field{Tag: "input", Name: "email"},
		common.Field{Tag: "textarea", Label: "Cover letter"},
	)

	fields, purposes, err := New(page, testProfile, nil).Inspect(context.Background())
	require.NoError(t, err)
	assert.Len(t, fields, 2)
	assert.Equal(t, []common.FieldPurpose{common.PurposeEmail, common.PurposeCoverLetter}, purposes)
	assert.Empty(t, page.calls)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", preview("short"))
	long := "Dear hiring manager, I am writing to express my interest in the role."
	assert.Equal(t, long[:50]+"...", preview(long))
	assert.Equal(t, "a b", preview("a\n\nb"))
}
