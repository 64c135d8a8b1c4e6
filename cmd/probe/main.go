package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/joho/godotenv"

	"github.com/okian/thehub/internal/probe"
)

// Default configuration constants.
const (
	defaultURL          = "http://localhost:9080"
	defaultRepeat       = 2
	defaultWorkers      = 2 // multiplier for runtime.NumCPU()
	defaultTimeout      = 30 * time.Second
	defaultProbeTimeout = 10 * time.Minute
)

func main() {
	// THEHUB_PROBE_URL may come from a .env file.
	_ = godotenv.Load()
	baseDefault := defaultURL
	if v := os.Getenv("THEHUB_PROBE_URL"); v != "" {
		baseDefault = v
	}

	var (
		baseURL      = flag.String("url", baseDefault, "Base URL of the service")
		scenarioFile = flag.String("scenarios-file", "", "JSON file of scenarios (default: generated from /form-data)")
		sportID      = flag.String("sport", "", "Sport to generate scenarios for")
		scenarios    = flag.Int("scenarios", probe.DefaultScenarios, "Number of scenarios to generate")
		repeat       = flag.Int("repeat", defaultRepeat, "Submissions per scenario")
		workers      = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout      = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile   = flag.String("output", "", "Output file for responses")
		logFile      = flag.String("log", "", "Log file for probe output")
		verbose      = flag.Bool("verbose", false, "Enable verbose logging")
		help         = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		probe.ShowHelp()
		return
	}

	closer, err := probe.SetupLogging(*logFile, *verbose)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultProbeTimeout)

	_, err = probe.Run(ctx, &probe.Config{
		BaseURL:      *baseURL,
		ScenarioFile: *scenarioFile,
		SportID:      *sportID,
		Scenarios:    *scenarios,
		Repeat:       *repeat,
		Workers:      *workers,
		Timeout:      *timeout,
		OutputFile:   *outputFile,
		Verbose:      *verbose,
	})
	cancel()
	_ = closer.Close()
	if err != nil {
		os.Stderr.WriteString("Probe failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
