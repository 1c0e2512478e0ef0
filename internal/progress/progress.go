package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/charmbracelet/bubbles/progress"
)

// Tracker shows a spinner during slow steps and a bar of fields processed.
// Everything goes to out, never stdout, which carries the JSON result.
type Tracker struct {
	bar       progress.Model
	spin      *spinner.Spinner
	out       io.Writer
	enabled   bool
	total     int
	processed int
	mu        sync.Mutex
}

// New creates a Tracker writing to out. A disabled tracker only counts.
func New(out io.Writer, enabled bool) *Tracker {
	opt := spinner.WithWriter(out)
	if f, ok := out.(*os.File); ok {
		opt = spinner.WithWriterFile(f)
	}
	s := spinner.New(spinner.CharSets[9], 100*time.Millisecond, opt)
	return &Tracker{
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(30)),
		spin:    s,
		out:     out,
		enabled: enabled,
	}
}

// SetTotal sets the number of fields to process
func (p *Tracker) SetTotal(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total = total
}

// Increment marks one more field as processed and redraws the bar
func (p *Tracker) Increment(label string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processed++

	if p.enabled && p.total > 0 {
		fmt.Fprintf(p.out, "\rProgress: %s %d/%d fields %s",
			p.bar.ViewAs(p.fraction()),
			p.processed,
			p.total,
			label)
	}
}

// Fraction returns the share of fields processed
func (p *Tracker) Fraction() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fraction()
}

func (p *Tracker) fraction() float64 {
	if p.total == 0 {
		return 0
	}
	return float64(p.processed) / float64(p.total)
}

// Processed returns how many fields were reported
func (p *Tracker) Processed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.processed
}

// Start shows the spinner with message
func (p *Tracker) Start(message string) {
	if !p.enabled {
		return
	}
	p.spin.Suffix = " " + message
	p.spin.Start()
}

// Stop hides the spinner
func (p *Tracker) Stop() {
	if !p.enabled {
		return
	}
	p.spin.Stop()
}

// Finish ends the progress line
func (p *Tracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.enabled && p.processed > 0 {
		fmt.Fprintln(p.out)
	}
}
