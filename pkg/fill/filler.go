// Package fill runs the form-filling loop over one loaded page.
package fill

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/go-scripts/jobfill/internal/answer"
	"github.com/go-scripts/jobfill/internal/classify"
	"github.com/go-scripts/jobfill/internal/queue"
	"github.com/go-scripts/jobfill/pkg/common"
)

// Page is the browser surface the loop needs. Every index refers to the
// control's position among input, textarea and select elements at call time.
type Page interface {
	Navigate(ctx context.Context, url string) error
	WaitForControls(ctx context.Context, timeout time.Duration) (bool, error)
	JobInfo(ctx context.Context) (common.JobInfo, error)
	Fields(ctx context.Context) ([]common.Field, error)
	Diagnostics(ctx context.Context) (common.PageDiagnostics, error)
	ScrollIntoView(ctx context.Context, index int) error
	Highlight(ctx context.Context, index int, on bool) error
	Fill(ctx context.Context, index int, value string) error
	Select(ctx context.Context, index int, optionValue string) error
}

// Reporter receives progress after each control
type Reporter interface {
	SetTotal(total int)
	Increment(label string)
}

// Planner decides all values up front; *answer.Planner implements it
type Planner interface {
	Plan(ctx context.Context, fields []common.Field, profile common.UserProfile, job common.JobInfo) (map[int]string, error)
}

// Timing holds the pauses around each control
type Timing struct {
	ControlsTimeout time.Duration
	ScrollPause     time.Duration
	HighlightHold   time.Duration
	FieldPause      time.Duration
}

// DefaultTiming is the pacing of an interactive run
var DefaultTiming = Timing{
	ControlsTimeout: 10 * time.Second,
	ScrollPause:     500 * time.Millisecond,
	HighlightHold:   time.Second,
	FieldPause:      time.Second,
}

// emptyPageCauses is logged when a page has no controls at all
var emptyPageCauses = []string{
	"the content is loaded dynamically and has not appeared yet",
	"the form needs a click (e.g. an Apply button) before it shows",
	"the form uses non-standard elements instead of inputs",
	"the page is behind authentication",
}

const previewChars = 50

// Filler fills every fillable control on a page for one applicant
type Filler struct {
	page     Page
	profile  common.UserProfile
	resolver *answer.Resolver
	planner  Planner
	plan     map[string]string
	reporter Reporter
	timing   Timing
}

// New creates a Filler. gen may be nil, in which case AI questions get the
// fallback answer.
func New(page Page, profile common.UserProfile, gen answer.Generator) *Filler {
	return &Filler{
		page:     page,
		profile:  profile,
		resolver: answer.NewResolver(profile, gen),
		timing:   DefaultTiming,
	}
}

// WithPlanner enables the llm strategy
func (f *Filler) WithPlanner(p Planner) *Filler {
	f.planner = p
	return f
}

// WithReporter sets where progress goes
func (f *Filler) WithReporter(r Reporter) *Filler {
	f.reporter = r
	return f
}

// WithTiming overrides the pauses
func (f *Filler) WithTiming(t Timing) *Filler {
	f.timing = t
	return f
}

// Load navigates to url, waits for controls and scrapes the posting
func (f *Filler) Load(ctx context.Context, url string) (common.JobInfo, error) {
	if err := f.page.Navigate(ctx, url); err != nil {
		return common.JobInfo{}, err
	}
	log.Info("Navigated to job application page", "url", url)

	found, err := f.page.WaitForControls(ctx, f.timing.ControlsTimeout)
	if err != nil {
		return common.JobInfo{}, err
	}
	if found {
		log.Info("Form elements detected")
	} else {
		log.Warn("No form elements found after waiting; the page might load them differently")
	}

	job, err := f.page.JobInfo(ctx)
	if err != nil {
		log.Warn("Could not read job info", "err", err)
		job = common.JobInfo{}
	}
	log.Info("Job posting", "company", orUnknown(job.CompanyName), "position", orUnknown(job.JobTitle))
	return job, nil
}

// Run loads url and fills the form on it. Only navigation and context
// errors abort a run; per-control failures are recorded in the summary.
func (f *Filler) Run(ctx context.Context, url string) (common.Summary, error) {
	job, err := f.Load(ctx, url)
	if err != nil {
		return common.Summary{}, err
	}
	return f.FillPage(ctx, job)
}

// FillPage fills the form on the already loaded page
func (f *Filler) FillPage(ctx context.Context, job common.JobInfo) (common.Summary, error) {
	summary := common.Summary{Job: job, Fields: []common.FieldResult{}}

	fields, err := f.page.Fields(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to list form fields: %w", err)
	}
	total := len(fields)
	summary.FieldsFound = total
	log.Info("Found form fields", "count", total)

	f.logDiagnostics(ctx, total)

	if f.planner != nil && total > 0 {
		f.applyPlan(ctx, fields, job)
	}

	if f.reporter != nil {
		f.reporter.SetTotal(total)
	}

	q := queue.New(total)
	for {
		i, ok := q.Next()
		if !ok {
			break
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		result := f.processField(ctx, q, i, job)
		summary.Fields = append(summary.Fields, result)
		if result.Outcome == common.OutcomeFilled || result.Outcome == common.OutcomeSelected {
			summary.FieldsFilled++
		}

		if f.reporter != nil {
			f.reporter.Increment(string(result.Outcome))
		}
	}

	log.Info("Form filling finished", "found", summary.FieldsFound, "filled", summary.FieldsFilled, "distinct", q.SeenCount())
	return summary, nil
}

// Inspect classifies every control on the loaded page without touching it
func (f *Filler) Inspect(ctx context.Context) ([]common.Field, []common.FieldPurpose, error) {
	fields, err := f.page.Fields(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list form fields: %w", err)
	}
	purposes := make([]common.FieldPurpose, len(fields))
	for i, field := range fields {
		purposes[i] = classify.Purpose(field)
	}
	return fields, purposes, nil
}

// processField handles the control at index i of a fresh DOM walk
func (f *Filler) processField(ctx context.Context, q *queue.Queue, i int, job common.JobInfo) common.FieldResult {
	result := common.FieldResult{Index: i}

	current, err := f.page.Fields(ctx)
	if err != nil {
		return failed(result, fmt.Errorf("failed to re-read fields: %w", err))
	}
	if i >= len(current) {
		log.Warn("Field no longer exists, skipping", "field", i+1)
		return skipped(result, "no longer exists")
	}

	field := current[i]
	result.Tag = strings.ToLower(field.Tag)

	if classify.Skippable(field) {
		log.Debug("Skipping field", "field", i+1, "type", field.Type)
		return skipped(result, field.Type+" input")
	}
	if !field.Visible {
		log.Warn("Field is not visible, skipping", "field", i+1)
		return skipped(result, "not visible")
	}
	key := controlKey(current, i)
	if field.Identified() && !q.MarkSeen(key) {
		log.Debug("Field already processed under another index, skipping", "field", i+1, "key", key)
		return skipped(result, "already processed")
	}

	purpose := classify.Purpose(field)
	result.Purpose = purpose
	log.Info("Field", "field", i+1, "purpose", purpose, "tag", result.Tag)

	value, planned := f.plan[key]
	if !planned {
		value = f.resolver.Value(ctx, purpose, field, job)
	}
	if strings.TrimSpace(value) == "" {
		log.Warn("No value for field", "field", i+1, "purpose", purpose)
		result.Outcome = common.OutcomeEmpty
		return result
	}

	var option common.Option
	if field.IsSelect() {
		var ok bool
		option, ok = classify.MatchOption(field.Options, value)
		if !ok {
			log.Warn("No matching option found", "field", i+1, "value", value)
			result.Outcome = common.OutcomeNoOption
			result.Value = preview(value)
			return result
		}
	}

	if err := f.page.ScrollIntoView(ctx, i); err != nil {
		return failed(result, err)
	}
	if err := sleep(ctx, f.timing.ScrollPause); err != nil {
		return failed(result, err)
	}
	if err := f.page.Highlight(ctx, i, true); err != nil {
		log.Debug("Could not highlight field", "field", i+1, "err", err)
	}

	if field.IsSelect() {
		err = f.page.Select(ctx, i, option.Value)
		if err == nil {
			result.Outcome = common.OutcomeSelected
			result.Value = option.Text
			log.Info("Selected", "field", i+1, "option", option.Text)
		}
	} else {
		err = f.page.Fill(ctx, i, value)
		if err == nil {
			result.Outcome = common.OutcomeFilled
			result.Value = preview(value)
			log.Info("Filled", "field", i+1, "purpose", purpose, "value", result.Value)
		}
	}

	holdErr := sleep(ctx, f.timing.HighlightHold)
	if hErr := f.page.Highlight(ctx, i, false); hErr != nil {
		log.Debug("Could not clear highlight", "field", i+1, "err", hErr)
	}
	if err != nil {
		return failed(result, err)
	}
	if holdErr != nil {
		return result
	}
	_ = sleep(ctx, f.timing.FieldPause)
	return result
}

// applyPlan asks the planner for every value; failure falls back to heuristics
func (f *Filler) applyPlan(ctx context.Context, fields []common.Field, job common.JobInfo) {
	fillable := make([]common.Field, 0, len(fields))
	for _, field := range fields {
		if !classify.Skippable(field) && field.Visible {
			fillable = append(fillable, field)
		}
	}

	plan, err := f.planner.Plan(ctx, fillable, f.profile, job)
	if err != nil {
		log.Warn("Form plan failed, using heuristics", "err", err)
		return
	}

	// Planned values follow their control, not its index, so a re-render
	// cannot move a value into a different control.
	positions := make(map[int]int, len(fields))
	for pos, field := range fields {
		positions[field.Index] = pos
	}
	f.plan = make(map[string]string, len(plan))
	for index, v := range plan {
		pos, ok := positions[index]
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		f.plan[controlKey(fields, pos)] = v
	}
	log.Info("Using form plan", "planned", len(f.plan), "fields", len(fillable))
}

// controlKey is the signature of fields[i] plus how many earlier controls
// share it, so identical siblings stay distinct
func controlKey(fields []common.Field, i int) string {
	sig := fields[i].Signature()
	n := 0
	for _, other := range fields[:i] {
		if other.Signature() == sig {
			n++
		}
	}
	return sig + "#" + strconv.Itoa(n)
}

func (f *Filler) logDiagnostics(ctx context.Context, total int) {
	d, err := f.page.Diagnostics(ctx)
	if err != nil {
		log.Debug("Could not read page diagnostics", "err", err)
	} else {
		log.Info("Page", "title", d.Title, "url", d.URL, "forms", d.Forms, "interactive", d.Interactive)
		for i, c := range d.FirstControls {
			log.Debug("Interactive element", "n", i+1, "element", c)
		}
	}

	if total == 0 {
		log.Warn("No form fields found. The page might:")
		for _, cause := range emptyPageCauses {
			log.Warn("  - " + cause)
		}
	}
}

func failed(result common.FieldResult, err error) common.FieldResult {
	log.Error("Error processing field", "field", result.Index+1, "err", err)
	result.Outcome = common.OutcomeFailed
	result.Reason = err.Error()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		result.Reason = "cancelled"
	}
	return result
}

func skipped(result common.FieldResult, reason string) common.FieldResult {
	result.Outcome = common.OutcomeSkipped
	result.Reason = reason
	return result
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func preview(v string) string {
	v = strings.Join(strings.Fields(v), " ")
	r := []rune(v)
	if len(r) <= previewChars {
		return v
	}
	return string(r[:previewChars]) + "..."
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
