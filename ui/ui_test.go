package ui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/go-scripts/jobfill/pkg/common"
)

func testSummary() common.Summary {
	return common.Summary{
		Job:          common.JobInfo{CompanyName: "Acme"},
		FieldsFound:  4,
		FieldsFilled: 1,
		Fields: []common.FieldResult{
			{Index: 0, Tag: "input", Purpose: common.PurposeFirstName, Outcome: common.OutcomeFilled, Value: "Ada"},
			{Index: 1, Tag: "input", Outcome: common.OutcomeSkipped, Reason: "hidden input"},
			{Index: 2, Tag: "select", Purpose: common.PurposeCountry, Outcome: common.OutcomeNoOption, Value: "Atlantis"},
			{Index: 3, Tag: "input", Purpose: common.PurposeEmail, Outcome: common.OutcomeFailed, Reason: "control no longer exists"},
		},
	}
}

func TestStatsFromSummary(t *testing.T) {
	stats := StatsFromSummary(testSummary(), 90*time.Second)
	assert.Equal(t, RunStats{
		Company: "Acme",
		Found:   4,
		Filled:  1,
		Skipped: 1,
		Empty:   1,
		Failed:  1,
		Elapsed: 90 * time.Second,
	}, stats)
}

func TestSummaryView(t *testing.T) {
	out := Summary(testSummary(), 90*time.Second, 100)
	assert.Contains(t, out, "Fill Summary")
	assert.Contains(t, out, "Unknown")
	assert.Contains(t, out, "00:01:30")
	assert.Contains(t, out, "firstName")
	assert.Contains(t, out, "hidden input")
	assert.Contains(t, out, "no-option")
}

func TestResultsTableEmpty(t *testing.T) {
	assert.Contains(t, NewResultsTable(nil, 80).View(), "No fields processed")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "résu...", truncate("résumé upload", 7))
	assert.Equal(t, "a b c", oneLine(" a\n b\tc "))
}
