package answer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/go-scripts/jobfill/pkg/common"
)

// maxDescriptionChars bounds how much of the posting goes into a prompt
const maxDescriptionChars = 1500

// Activity shows that something slow is happening, e.g. a spinner
type Activity interface {
	Start(message string)
	Stop()
}

// Responder generates short free-text answers. It never fails: with no
// backend, or when the backend errors, it answers with a fallback built from
// the applicant's background.
type Responder struct {
	completer Completer
	limiter   *rate.Limiter
	timeout   time.Duration
	activity  Activity

	mu    sync.Mutex
	cache map[string]string
}

// NewResponder wraps c, which may be nil when no API key is configured
func NewResponder(c Completer, cfg Config) *Responder {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	limit := rate.Inf
	if cfg.RatePerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RatePerMinute))
	}

	return &Responder{
		completer: c,
		limiter:   rate.NewLimiter(limit, 1),
		timeout:   timeout,
		cache:     make(map[string]string),
	}
}

// WithActivity shows a on screen while a completion is pending
func (r *Responder) WithActivity(a Activity) *Responder {
	r.activity = a
	return r
}

// Fallback is the canned answer used whenever generation is impossible
func Fallback(background string) string {
	return "Based on my background: " + background
}

// Prompt builds the completion prompt for a single question
func Prompt(question, background string, job common.JobInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Based on this background information: %s\n\n", background)
	fmt.Fprintf(&b, "Company: %s\n", job.CompanyName)
	fmt.Fprintf(&b, "Job Title: %s\n", job.JobTitle)
	if desc := truncate(job.JobDescription, maxDescriptionChars); desc != "" {
		fmt.Fprintf(&b, "Job Description: %s\n", desc)
	}
	fmt.Fprintf(&b, "\nQuestion: %s\n\n", question)
	b.WriteString("Please provide a professional, personalized response (2-3 sentences max):")
	return b.String()
}

// Generate answers question for the applicant described by background
func (r *Responder) Generate(ctx context.Context, question, background string, job common.JobInfo) string {
	fallback := Fallback(background)
	if r.completer == nil {
		log.Debug("No completion backend configured, using fallback", "question", question)
		return fallback
	}

	prompt := Prompt(question, background, job)

	r.mu.Lock()
	cached, ok := r.cache[prompt]
	r.mu.Unlock()
	if ok {
		log.Debug("Reusing generated answer", "question", question)
		return cached
	}

	if err := r.limiter.Wait(ctx); err != nil {
		log.Warn("AI generation cancelled, using fallback", "question", question, "err", err)
		return fallback
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if r.activity != nil {
		r.activity.Start("Generating answer: " + truncate(question, 40))
		defer r.activity.Stop()
	}

	start := time.Now()
	content, err := r.completer.Complete(callCtx, prompt)
	if err != nil {
		log.Warn("AI generation error, using fallback", "question", question, "err", err)
		return fallback
	}
	log.Debug("Generated answer", "question", question, "chars", len(content), "took", time.Since(start).Round(time.Millisecond))

	r.mu.Lock()
	r.cache[prompt] = content
	r.mu.Unlock()
	return content
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "..."
}
