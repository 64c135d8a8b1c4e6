package probe

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/okian/thehub/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging initializes the logger and, when logFile is set, tees it
// into that file. The returned closer releases the file.
func SetupLogging(logFile string, verbose bool) (io.Closer, error) {
	if err := logger.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		_ = logger.SetLevelString("debug")
	}
	if logFile == "" {
		return io.NopCloser(nil), nil
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}
	logger.SetOutput(io.MultiWriter(os.Stdout, file))
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return file, nil
}

// ShowHelp prints usage information for the probe.
func ShowHelp() {
	os.Stdout.WriteString(`thehub probe
============

Submits questionnaire answers to a running recommendation server and checks
that repeated submissions produce the same recommendations.

Usage:
  go run ./cmd/probe [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -scenarios-file string
        JSON array of {name, sportId, answers}; generated from /form-data when empty
  -sport string
        Sport to generate scenarios for (default: every sport with questions)
  -scenarios int
        Number of scenarios to generate (default 20)
  -repeat int
        Submissions per scenario (default 2)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Write every response to this JSON file
  -log string
        Also write logs to this file
  -verbose
        Log every response
  -help
        Show this help message

Examples:
  # Generate answers for running and submit each twice
  go run ./cmd/probe -sport running

  # Replay saved scenarios against another server
  go run ./cmd/probe -url http://localhost:8080 -scenarios-file scenarios.json -repeat 5
`)
}
