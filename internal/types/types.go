package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/go-scripts/jobfill/pkg/common"
)

// Result is the JSON document printed at the end of every run
type Result struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    *ResultData `json:"data,omitempty"`
}

// ResultData carries the fill summary of a successful run
type ResultData struct {
	RunID        string               `json:"runId"`
	URL          string               `json:"url"`
	Strategy     string               `json:"strategy"`
	CompanyName  string               `json:"companyName"`
	JobTitle     string               `json:"jobTitle"`
	FieldsFound  int                  `json:"fieldsFound"`
	FieldsFilled int                  `json:"fieldsFilled"`
	Fields       []common.FieldResult `json:"fields"`
	StartedAt    time.Time            `json:"startedAt"`
	DurationMs   int64                `json:"durationMs"`
}

// InspectedField is one row of the inspect command's output
type InspectedField struct {
	common.Field
	Purpose common.FieldPurpose `json:"purpose"`
	Skip    string              `json:"skip,omitempty"`
}

// Inspection is what the inspect command prints
type Inspection struct {
	RunID       string                 `json:"runId"`
	URL         string                 `json:"url"`
	Job         common.JobInfo         `json:"job"`
	Diagnostics common.PageDiagnostics `json:"diagnostics"`
	Fields      []InspectedField       `json:"fields"`
}

// NewRunID returns a fresh identifier for log correlation
func NewRunID() string {
	return uuid.NewString()
}

// Success wraps a finished fill
func Success(runID, url, strategy string, started time.Time, s common.Summary) *Result {
	fields := s.Fields
	if fields == nil {
		fields = []common.FieldResult{}
	}
	return &Result{
		Success: true,
		Message: fmt.Sprintf("Job application form filled successfully! Filled %d fields. Please review and submit.", s.FieldsFilled),
		Data: &ResultData{
			RunID:        runID,
			URL:          url,
			Strategy:     strategy,
			CompanyName:  s.Job.CompanyName,
			JobTitle:     s.Job.JobTitle,
			FieldsFound:  s.FieldsFound,
			FieldsFilled: s.FieldsFilled,
			Fields:       fields,
			StartedAt:    started.UTC(),
			DurationMs:   time.Since(started).Milliseconds(),
		},
	}
}

// InvalidProfile reports a profile argument that is not valid JSON
func InvalidProfile(err error) *Result {
	return &Result{Success: false, Message: "Invalid JSON data: " + err.Error()}
}

// Failure reports a run that could not complete
func Failure(err error) *Result {
	return &Result{Success: false, Message: "Automation failed: " + err.Error()}
}
