package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	json "github.com/json-iterator/go"
	"github.com/mattn/go-isatty"

	"github.com/go-scripts/jobfill/internal/answer"
	"github.com/go-scripts/jobfill/internal/browser"
	"github.com/go-scripts/jobfill/internal/classify"
	"github.com/go-scripts/jobfill/internal/config"
	"github.com/go-scripts/jobfill/internal/progress"
	"github.com/go-scripts/jobfill/internal/types"
	"github.com/go-scripts/jobfill/internal/writer"
	"github.com/go-scripts/jobfill/pkg/common"
	"github.com/go-scripts/jobfill/pkg/fill"
	"github.com/go-scripts/jobfill/ui"
)

const summaryWidth = 100

// Globals are shared by every command
type Globals struct {
	Config  string `short:"c" help:"Path to config.yaml (default ./config.yaml when present)" type:"path"`
	EnvFile string `help:"Optional .env file with API keys" default:".env"`
	Debug   bool   `help:"Enable debug logging"`
	LogFile string `help:"Also write logs to this file, rotated"`
}

// CLI is the command-line surface
type CLI struct {
	Globals

	Fill    FillCmd    `cmd:"" default:"withargs" help:"Fill the application form at a job URL"`
	Inspect InspectCmd `cmd:"" help:"List the form fields at a job URL and how they would be classified"`
}

// FillCmd is the default command
type FillCmd struct {
	JobURL   string `arg:"" name:"job_url" help:"Job application page"`
	UserData string `arg:"" name:"user_data_json" help:"Applicant profile: inline JSON, @file or a path to a JSON file"`

	Output      string `short:"o" help:"Also write the result JSON to this file or directory"`
	Strategy    string `help:"How field values are chosen (heuristic or llm)"`
	Headless    *bool  `help:"Run Chrome without a window"`
	KeepOpen    *bool  `help:"Leave the browser open after filling until Ctrl-C"`
	HumanTyping *bool  `help:"Type values key by key with small random delays"`
}

// InspectCmd only reads the form
type InspectCmd struct {
	JobURL   string `arg:"" name:"job_url" help:"Job application page"`
	Headless *bool  `help:"Run Chrome without a window"`
}

func main() {
	var cli CLI

	ctx := kong.Parse(&cli,
		kong.Name("jobfill"),
		kong.Description("Fill job application forms from an applicant profile."),
		kong.UsageOnError(),
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}

// Run fills the form and prints the result. Run failures are reported in the
// JSON result, not through the exit status.
func (c *FillCmd) Run(g *Globals) error {
	started := time.Now()
	runID := types.NewRunID()

	profile, err := loadProfile(c.UserData)
	if err != nil {
		return emit(types.InvalidProfile(err), "", c.JobURL)
	}

	cfg, closeLog, err := g.setup()
	if err != nil {
		return emit(types.Failure(err), c.Output, c.JobURL)
	}
	defer closeLog()
	c.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return emit(types.Failure(err), cfg.Output, c.JobURL)
	}

	log.Info("Starting job application automation", "runId", runID, "url", c.JobURL, "strategy", cfg.AI.Strategy)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracker := progress.New(os.Stderr, !g.Debug && isatty.IsTerminal(os.Stderr.Fd()))

	completer, err := answer.NewCompleter(ctx, aiConfig(cfg.AI))
	switch {
	case errors.Is(err, answer.ErrNoCredential):
		log.Warn("No API key configured, AI questions get a canned answer", "provider", cfg.AI.Provider)
	case err != nil:
		return emit(types.Failure(err), cfg.Output, c.JobURL)
	}
	responder := answer.NewResponder(completer, aiConfig(cfg.AI)).WithActivity(tracker)

	tracker.Start("Launching browser")
	session, err := browser.Open(ctx, browserConfig(cfg))
	tracker.Stop()
	if err != nil {
		return emit(types.Failure(err), cfg.Output, c.JobURL)
	}
	defer session.Close()

	filler := fill.New(session, profile, responder).
		WithReporter(tracker).
		WithTiming(fill.Timing{
			ControlsTimeout: cfg.Timing.ControlsTimeout,
			ScrollPause:     cfg.Timing.ScrollPause,
			HighlightHold:   cfg.Timing.HighlightHold,
			FieldPause:      cfg.Timing.FieldPause,
		})
	if cfg.AI.Strategy == config.StrategyLLM {
		if completer != nil {
			filler.WithPlanner(answer.NewPlanner(completer))
		} else {
			log.Warn("The llm strategy needs an API key, using heuristics")
		}
	}

	runCtx, cancel := withTimeout(ctx, cfg.Browser.Timeout)
	summary, err := filler.Run(runCtx, c.JobURL)
	cancel()
	tracker.Finish()

	var result *types.Result
	if err != nil {
		log.Error("Automation failed", "err", err)
		result = types.Failure(err)
	} else {
		result = types.Success(runID, c.JobURL, cfg.AI.Strategy, started, summary)
		fmt.Fprintln(os.Stderr, ui.Summary(summary, time.Since(started), summaryWidth))
	}
	if err := emit(result, cfg.Output, c.JobURL); err != nil {
		return err
	}

	if cfg.Browser.KeepOpen && !cfg.Browser.Headless && ctx.Err() == nil {
		log.Info("Browser left open for review. Press Ctrl-C to exit.")
		select {
		case <-ctx.Done():
		case <-session.Done():
			log.Info("Browser window closed")
		}
	}
	return nil
}

// apply lays the flags that were given over the loaded config
func (c *FillCmd) apply(cfg *config.Config) {
	if c.Output != "" {
		cfg.Output = config.Expand(c.Output)
	}
	if c.Strategy != "" {
		cfg.AI.Strategy = c.Strategy
	}
	if c.Headless != nil {
		cfg.Browser.Headless = *c.Headless
	}
	if c.KeepOpen != nil {
		cfg.Browser.KeepOpen = *c.KeepOpen
	}
	if c.HumanTyping != nil {
		cfg.Browser.HumanTyping = *c.HumanTyping
	}
}

// Run prints every field on the page with its classification
func (c *InspectCmd) Run(g *Globals) error {
	cfg, closeLog, err := g.setup()
	if err != nil {
		return emit(types.Failure(err), "", c.JobURL)
	}
	defer closeLog()
	if c.Headless != nil {
		cfg.Browser.Headless = *c.Headless
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := browser.Open(ctx, browserConfig(cfg))
	if err != nil {
		return emit(types.Failure(err), "", c.JobURL)
	}
	defer session.Close()

	runCtx, cancel := withTimeout(ctx, cfg.Browser.Timeout)
	defer cancel()

	inspection, err := inspect(runCtx, session, c.JobURL, cfg.Timing.ControlsTimeout)
	if err != nil {
		return emit(types.Failure(err), "", c.JobURL)
	}
	return writer.Encode(os.Stdout, inspection)
}

func inspect(ctx context.Context, session *browser.Session, url string, controlsTimeout time.Duration) (*types.Inspection, error) {
	timing := fill.DefaultTiming
	timing.ControlsTimeout = controlsTimeout
	filler := fill.New(session, common.UserProfile{}, nil).WithTiming(timing)

	job, err := filler.Load(ctx, url)
	if err != nil {
		return nil, err
	}
	fields, purposes, err := filler.Inspect(ctx)
	if err != nil {
		return nil, err
	}
	diag, err := session.Diagnostics(ctx)
	if err != nil {
		log.Warn("Could not read page diagnostics", "err", err)
	}

	out := &types.Inspection{
		RunID:       types.NewRunID(),
		URL:         url,
		Job:         job,
		Diagnostics: diag,
		Fields:      make([]types.InspectedField, len(fields)),
	}
	for i, f := range fields {
		out.Fields[i] = types.InspectedField{Field: f, Purpose: purposes[i], Skip: skipReason(f)}
	}
	return out, nil
}

func skipReason(f common.Field) string {
	switch {
	case classify.Skippable(f):
		return f.Type + " input"
	case !f.Visible:
		return "not visible"
	}
	return ""
}

// setup loads the config and installs the logger
func (g *Globals) setup() (*config.Config, func(), error) {
	cfg, err := config.Load(g.Config, g.EnvFile)
	if err != nil {
		return nil, nil, err
	}
	if g.LogFile != "" {
		cfg.Logger.File = config.Expand(g.LogFile)
	}
	closeLog, err := setupLogging(cfg.Logger, g.Debug, os.Stderr)
	if err != nil {
		return nil, nil, err
	}
	return cfg, closeLog, nil
}

// loadProfile accepts inline JSON, @path, or a path to a JSON file
func loadProfile(arg string) (common.UserProfile, error) {
	var profile common.UserProfile

	data := []byte(arg)
	trimmed := strings.TrimSpace(arg)
	switch {
	case strings.HasPrefix(trimmed, "@"):
		b, err := os.ReadFile(config.Expand(trimmed[1:]))
		if err != nil {
			return profile, fmt.Errorf("failed to read profile: %w", err)
		}
		data = b
	case !strings.HasPrefix(trimmed, "{"):
		if b, err := os.ReadFile(config.Expand(trimmed)); err == nil {
			data = b
		}
	}

	if err := json.Unmarshal(data, &profile); err != nil {
		return profile, err
	}
	return profile, nil
}

// emit prints result to stdout and, when output is set, to a file
func emit(result *types.Result, output, jobURL string) error {
	if err := writer.Encode(os.Stdout, result); err != nil {
		return fmt.Errorf("failed to print result: %w", err)
	}
	if output == "" {
		return nil
	}

	w, name, err := writer.ForPath(output, jobURL)
	if err != nil {
		log.Error("Could not write result file", "err", err)
		return nil
	}
	path, err := w.WriteJSON(name, result)
	if err != nil {
		log.Error("Could not write result file", "err", err)
		return nil
	}
	log.Info("Result written", "path", path)
	return nil
}

func aiConfig(c config.AIConfig) answer.Config {
	return answer.Config{
		Provider:      c.Provider,
		APIKey:        c.APIKey(),
		BaseURL:       c.BaseURL,
		Model:         c.Model,
		MaxTokens:     c.MaxTokens,
		Temperature:   c.Temperature,
		Timeout:       c.Timeout,
		RatePerMinute: c.RatePerMinute,
	}
}

func browserConfig(cfg *config.Config) browser.Config {
	return browser.Config{
		Headless:     cfg.Browser.Headless,
		ExecPath:     cfg.Browser.ExecPath,
		UserDataDir:  cfg.Browser.UserDataDir,
		WindowWidth:  cfg.Browser.WindowWidth,
		WindowHeight: cfg.Browser.WindowHeight,
		HumanTyping:  cfg.Browser.HumanTyping,
		Settle:       cfg.Timing.Settle,
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
