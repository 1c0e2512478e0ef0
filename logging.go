package main

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/go-scripts/jobfill/internal/config"
)

// setupLogging installs the default logger. Logs always go to out (stderr in
// practice) and, if cfg.File is set, to a rotated file as well.
func setupLogging(cfg config.LoggerConfig, debug bool, out io.Writer) (func(), error) {
	level := log.InfoLevel
	if cfg.Level != "" {
		parsed, err := log.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}
	if debug {
		level = log.DebugLevel
	}

	closer := func() {}
	if cfg.File != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		out = io.MultiWriter(out, lj)
		closer = func() { _ = lj.Close() }
	}

	logger := log.NewWithOptions(out, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Level:           level,
	})
	log.SetDefault(logger)
	return closer, nil
}
