package answer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	json "github.com/json-iterator/go"

	"github.com/go-scripts/jobfill/pkg/common"
)

// ErrNoPlan is returned when the completion did not contain a usable plan
var ErrNoPlan = errors.New("no field plan in completion")

const planFieldPrefix = "field_"

// planField is what the model sees for each control
type planField struct {
	Key         string   `json:"key"`
	Tag         string   `json:"tag"`
	Type        string   `json:"type,omitempty"`
	Label       string   `json:"label,omitempty"`
	Name        string   `json:"name,omitempty"`
	Placeholder string   `json:"placeholder,omitempty"`
	Required    bool     `json:"required,omitempty"`
	Options     []string `json:"options,omitempty"`
}

// Planner asks the completion API to decide every value in one round trip
type Planner struct {
	completer Completer
}

// NewPlanner creates a planner backed by c
func NewPlanner(c Completer) *Planner {
	return &Planner{completer: c}
}

// Plan returns a value per control index. Controls the model left out or
// answered with an empty string are absent from the map.
func (p *Planner) Plan(ctx context.Context, fields []common.Field, profile common.UserProfile, job common.JobInfo) (map[int]string, error) {
	if p.completer == nil {
		return nil, ErrNoCredential
	}
	if len(fields) == 0 {
		return map[int]string{}, nil
	}

	prompt, err := PlanPrompt(fields, profile, job)
	if err != nil {
		return nil, err
	}

	content, err := p.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to plan form: %w", err)
	}

	plan, err := ParsePlan(content)
	if err != nil {
		return nil, err
	}
	log.Debug("Form plan received", "fields", len(fields), "planned", len(plan))
	return plan, nil
}

// PlanPrompt describes the applicant, the job and every control
func PlanPrompt(fields []common.Field, profile common.UserProfile, job common.JobInfo) (string, error) {
	described := make([]planField, 0, len(fields))
	for _, f := range fields {
		pf := planField{
			Key:         planFieldPrefix + strconv.Itoa(f.Index),
			Tag:         strings.ToLower(f.Tag),
			Type:        f.Type,
			Label:       f.Question(),
			Name:        f.Name,
			Placeholder: f.Placeholder,
			Required:    f.Required,
		}
		for _, o := range f.Options {
			if t := strings.TrimSpace(o.Text); t != "" {
				pf.Options = append(pf.Options, t)
			}
		}
		described = append(described, pf)
	}

	fieldsJSON, err := json.MarshalIndent(described, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode fields: %w", err)
	}
	profileJSON, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode profile: %w", err)
	}

	var b strings.Builder
	b.WriteString("You are filling in a job application form for the applicant below.\n\n")
	fmt.Fprintf(&b, "Applicant:\n%s\n\n", profileJSON)
	fmt.Fprintf(&b, "Company: %s\nJob Title: %s\n", job.CompanyName, job.JobTitle)
	if desc := truncate(job.JobDescription, maxDescriptionChars); desc != "" {
		fmt.Fprintf(&b, "Job Description: %s\n", desc)
	}
	fmt.Fprintf(&b, "\nForm fields:\n%s\n\n", fieldsJSON)
	b.WriteString("Reply with a single JSON object mapping each field key to the value to enter. ")
	b.WriteString("For fields with options, use the exact text of one option. ")
	b.WriteString("Use an empty string for fields that should stay empty. Do not add any other text.")
	return b.String(), nil
}

// ParsePlan extracts the field_<index> object from a completion, ignoring
// code fences and any prose around it.
func ParsePlan(content string) (map[int]string, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, ErrNoPlan
	}

	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoPlan, err)
	}

	plan := make(map[int]string, len(raw))
	for key, v := range raw {
		if !strings.HasPrefix(key, planFieldPrefix) {
			continue
		}
		index, err := strconv.Atoi(strings.TrimPrefix(key, planFieldPrefix))
		if err != nil || index < 0 {
			continue
		}

		var value string
		switch tv := v.(type) {
		case string:
			value = tv
		case float64:
			value = strconv.FormatFloat(tv, 'f', -1, 64)
		case bool:
			value = strconv.FormatBool(tv)
		default:
			continue
		}
		if value = strings.TrimSpace(value); value != "" {
			plan[index] = value
		}
	}
	return plan, nil
}
