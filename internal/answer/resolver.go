package answer

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-scripts/jobfill/pkg/common"
)

// Questions asked of the completion API for the free-text purposes
const (
	QuestionCoverLetter   = "Write a cover letter for this position"
	QuestionWhyInterested = "Why are you interested in this position?"
	QuestionExperience    = "Describe your relevant experience"
	QuestionGeneric       = "Please provide a brief professional response"

	DefaultAvailability = "Immediately"
	DefaultSalary       = "Negotiable"
)

// Generator produces a free-text answer; *Responder implements it
type Generator interface {
	Generate(ctx context.Context, question, background string, job common.JobInfo) string
}

// Resolver maps a classified control to the value it should receive
type Resolver struct {
	profile   common.UserProfile
	generator Generator
}

// NewResolver creates a resolver for one applicant
func NewResolver(profile common.UserProfile, g Generator) *Resolver {
	return &Resolver{profile: profile, generator: g}
}

// Value returns the text for the control, or "" to leave it untouched
func (r *Resolver) Value(ctx context.Context, purpose common.FieldPurpose, f common.Field, job common.JobInfo) string {
	p := r.profile
	switch purpose {
	case common.PurposeFirstName:
		return p.FirstName
	case common.PurposeLastName:
		return p.LastName
	case common.PurposeFullName:
		return p.FullName()
	case common.PurposeEmail:
		return p.Email
	case common.PurposePhone:
		return p.PhoneValue()
	case common.PurposeCoverLetter:
		return r.generate(ctx, QuestionCoverLetter, job)
	case common.PurposeWhyInterested:
		return r.generate(ctx, QuestionWhyInterested, job)
	case common.PurposeExperience:
		return r.generate(ctx, QuestionExperience, job)
	case common.PurposeAvailability:
		return orDefault(p.Availability, DefaultAvailability)
	case common.PurposeSalary:
		return orDefault(p.Salary, DefaultSalary)
	case common.PurposeLinkedIn:
		return p.LinkedIn
	case common.PurposePortfolio:
		return p.Portfolio
	case common.PurposeAddress:
		return p.Address
	case common.PurposeCity:
		return p.City
	case common.PurposeState:
		return p.State
	case common.PurposeZipCode:
		return p.ZipCode
	case common.PurposeCountry:
		return p.Country
	case common.PurposeResume:
		return p.ResumeURL
	default:
		if strings.TrimSpace(p.BackgroundInfo) == "" {
			return ""
		}
		return r.generate(ctx, GenericQuestion(f), job)
	}
}

func (r *Resolver) generate(ctx context.Context, question string, job common.JobInfo) string {
	if r.generator == nil {
		return Fallback(r.profile.BackgroundInfo)
	}
	return r.generator.Generate(ctx, question, r.profile.BackgroundInfo, job)
}

// GenericQuestion phrases an unrecognised control as a question, listing the
// choices when the control is a dropdown.
func GenericQuestion(f common.Field) string {
	q := QuestionGeneric
	if label := f.Question(); label != "" {
		q = fmt.Sprintf("%s to: %q", QuestionGeneric, label)
	}
	if f.IsSelect() && len(f.Options) > 0 {
		texts := make([]string, 0, len(f.Options))
		for _, o := range f.Options {
			if t := strings.TrimSpace(o.Text); t != "" {
				texts = append(texts, t)
			}
		}
		if len(texts) > 0 {
			q += ". Reply with exactly one of these options and nothing else: " + strings.Join(texts, "; ")
		}
	}
	return q
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
