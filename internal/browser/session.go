// Package browser drives a single Chrome tab through chromedp. Every control
// operation addresses the control by its index among
// document.querySelectorAll("input, textarea, select") and resolves it again
// at call time, so pages that re-render between steps do not break a run.
package browser

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	json "github.com/json-iterator/go"

	"github.com/go-scripts/jobfill/pkg/common"
)

const (
	highlightBorder     = "3px solid #4CAF50"
	highlightBackground = "#f0f8ff"

	maxParentLabelChars = 200
	maxDescriptionChars = 2000
	maxDiagnosticItems  = 10

	pollInterval = 250 * time.Millisecond
)

// ErrNoControl means the index no longer points at a control
var ErrNoControl = errors.New("control no longer exists")

// ErrOptionRejected means a select refused the value it was given
var ErrOptionRejected = errors.New("select rejected option value")

// Config holds the browser launch and pacing settings
type Config struct {
	Headless     bool
	ExecPath     string
	UserDataDir  string
	WindowWidth  int
	WindowHeight int
	HumanTyping  bool
	Settle       time.Duration
}

// Session is one browser with one tab
type Session struct {
	cfg         Config
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc
}

// Open launches Chrome and the tab used for the rest of the run
func Open(ctx context.Context, cfg Config) (*Session, error) {
	if cfg.WindowWidth <= 0 || cfg.WindowHeight <= 0 {
		cfg.WindowWidth, cfg.WindowHeight = 1280, 720
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-web-security", true),
		chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight),
		chromedp.Flag("headless", cfg.Headless),
	)
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	if cfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(cfg.UserDataDir))
	}

	// Only Close ends the browser.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx, chromedp.WithErrorf(log.Errorf))

	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	log.Debug("Browser started", "headless", cfg.Headless, "window", fmt.Sprintf("%dx%d", cfg.WindowWidth, cfg.WindowHeight))
	return &Session{
		cfg:         cfg,
		allocCancel: allocCancel,
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
	}, nil
}

// Done is closed when the tab goes away, e.g. the user closed the window
func (s *Session) Done() <-chan struct{} {
	return s.tabCtx.Done()
}

// Close shuts the tab and the browser down
func (s *Session) Close() {
	if err := chromedp.Cancel(s.tabCtx); err != nil && !errors.Is(err, context.Canceled) {
		log.Debug("Browser close", "err", err)
	}
	s.tabCancel()
	s.allocCancel()
}

// run executes actions on the tab, bounded by ctx
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.tabCtx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

// evaluateJSON runs a script that returns JSON.stringify(...) and decodes it
func (s *Session) evaluateJSON(ctx context.Context, script string, v interface{}) error {
	var raw string
	if err := s.run(ctx, chromedp.Evaluate(script, &raw)); err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("failed to decode page data: %w", err)
	}
	return nil
}

// Navigate loads url and waits for the page to settle
func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := s.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}

	if s.cfg.Settle > 0 {
		log.Debug("Waiting for dynamic content", "delay", s.cfg.Settle)
		select {
		case <-time.After(s.cfg.Settle):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// WaitForControls polls until a control exists. Running out of time is not
// an error; found reports the outcome.
func (s *Session) WaitForControls(ctx context.Context, timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		var count int
		if err := s.run(ctx, chromedp.Evaluate(countControlsJS(), &count)); err != nil {
			return false, fmt.Errorf("failed to count controls: %w", err)
		}
		if count > 0 {
			return true, nil
		}
		if !time.Now().Before(deadline) {
			return false, nil
		}

		select {
		case <-time.After(pollInterval):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
}

// JobInfo scrapes the posting's title, company and description
func (s *Session) JobInfo(ctx context.Context) (common.JobInfo, error) {
	var info common.JobInfo
	if err := s.evaluateJSON(ctx, jobInfoJS(maxDescriptionChars), &info); err != nil {
		return common.JobInfo{}, fmt.Errorf("failed to read job info: %w", err)
	}
	return info, nil
}

// Fields walks the DOM and snapshots every control
func (s *Session) Fields(ctx context.Context) ([]common.Field, error) {
	var fields []common.Field
	if err := s.evaluateJSON(ctx, fieldsJS(maxParentLabelChars), &fields); err != nil {
		return nil, fmt.Errorf("failed to list controls: %w", err)
	}
	return fields, nil
}

// Diagnostics describes the page for runs that found nothing to fill
func (s *Session) Diagnostics(ctx context.Context) (common.PageDiagnostics, error) {
	var d common.PageDiagnostics
	if err := s.evaluateJSON(ctx, diagnosticsJS(maxDiagnosticItems), &d); err != nil {
		return common.PageDiagnostics{}, fmt.Errorf("failed to read diagnostics: %w", err)
	}
	return d, nil
}

// ScrollIntoView brings the control at index on screen
func (s *Session) ScrollIntoView(ctx context.Context, index int) error {
	return s.withNode(ctx, index, func(ids []cdp.NodeID) error {
		return s.run(ctx, chromedp.ScrollIntoView(ids, chromedp.ByNodeID))
	})
}

// Highlight outlines the control while it is being filled; on=false clears it
func (s *Session) Highlight(ctx context.Context, index int, on bool) error {
	var ok bool
	if err := s.run(ctx, chromedp.Evaluate(highlightJS(index, on), &ok)); err != nil {
		return fmt.Errorf("failed to highlight control %d: %w", index, err)
	}
	if !ok {
		return fmt.Errorf("%w: index %d", ErrNoControl, index)
	}
	return nil
}

// Fill clears the control and types value into it
func (s *Session) Fill(ctx context.Context, index int, value string) error {
	return s.withNode(ctx, index, func(ids []cdp.NodeID) error {
		if !s.cfg.HumanTyping {
			return s.run(ctx,
				chromedp.Clear(ids, chromedp.ByNodeID),
				chromedp.SendKeys(ids, value, chromedp.ByNodeID),
			)
		}

		actions := []chromedp.Action{
			chromedp.Clear(ids, chromedp.ByNodeID),
			chromedp.Focus(ids, chromedp.ByNodeID),
		}
		actions = append(actions, humanType(value)...)
		return s.run(ctx, actions...)
	})
}

// Select picks the option whose value is optionValue
func (s *Session) Select(ctx context.Context, index int, optionValue string) error {
	var result string
	if err := s.run(ctx, chromedp.Evaluate(selectJS(index, optionValue), &result)); err != nil {
		return fmt.Errorf("failed to select option on control %d: %w", index, err)
	}
	switch result {
	case "ok":
		return nil
	case "missing":
		return fmt.Errorf("%w: index %d", ErrNoControl, index)
	default:
		return fmt.Errorf("%w: %q", ErrOptionRejected, optionValue)
	}
}

// Value reads back the control's current value
func (s *Session) Value(ctx context.Context, index int) (string, error) {
	var v string
	if err := s.run(ctx, chromedp.Evaluate(valueJS(index), &v)); err != nil {
		return "", err
	}
	return v, nil
}

// node resolves the control at index to a DOM node
func (s *Session) node(ctx context.Context, index int) (cdp.NodeID, error) {
	var nodes []*cdp.Node
	if err := s.run(ctx, chromedp.Nodes(controlSelector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		return 0, fmt.Errorf("failed to resolve controls: %w", err)
	}
	if index < 0 || index >= len(nodes) {
		return 0, fmt.Errorf("%w: index %d of %d", ErrNoControl, index, len(nodes))
	}
	return nodes[index].NodeID, nil
}

// withNode resolves the control and runs op on it
func (s *Session) withNode(ctx context.Context, index int, op func(ids []cdp.NodeID) error) error {
	return retryStale(ctx, index, s.node, op)
}

// retryStale resolves the node at index and runs op. A stale node is
// resolved again and op retried once; any other error is returned as is.
func retryStale(ctx context.Context, index int, resolve func(context.Context, int) (cdp.NodeID, error), op func(ids []cdp.NodeID) error) error {
	for attempt := 0; ; attempt++ {
		id, err := resolve(ctx, index)
		if err != nil {
			return err
		}

		err = op([]cdp.NodeID{id})
		if err == nil {
			return nil
		}
		if attempt > 0 || !isStale(err) {
			return err
		}
		log.Debug("Control went stale, resolving again", "index", index, "err", err)
	}
}

var staleMarkers = []string{
	"no node with given id",
	"could not find node",
	"node is detached",
	"node with given id does not belong to the document",
	"cannot find context with specified id",
}

func isStale(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, m := range staleMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// humanType types text with uneven key timing
func humanType(text string) []chromedp.Action {
	const baseDelay = 40

	chars := []rune(text)
	actions := make([]chromedp.Action, 0, len(chars)*2)
	for i, char := range chars {
		actions = append(actions, chromedp.KeyEvent(string(char)))

		delay := baseDelay + rand.Intn(baseDelay/2)
		if rand.Float64() < 0.05 {
			delay += rand.Intn(300)
		}
		if i > 0 && chars[i-1] == char {
			delay /= 2
		}
		actions = append(actions, chromedp.Sleep(time.Duration(delay)*time.Millisecond))
	}
	return actions
}
