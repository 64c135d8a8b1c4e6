// Package probe drives a running recommendation server: it checks health,
// reads the questionnaire, submits answer scenarios concurrently and
// verifies that repeated submissions agree.
package probe

import (
	"time"

	"github.com/okian/thehub/internal/domain/model"
)

// Config holds configuration for a probe run
type Config struct {
	BaseURL      string        // Base URL of the service
	ScenarioFile string        // JSON file of scenarios; generated from form data when empty
	SportID      string        // Sport to generate scenarios for; all sports when empty
	Scenarios    int           // Number of scenarios to generate
	Repeat       int           // Submissions per scenario
	Workers      int           // Number of concurrent workers
	Timeout      time.Duration // HTTP request timeout
	OutputFile   string        // Output file for results
	Verbose      bool          // Log every response
}

// Scenario is one questionnaire submission.
type Scenario struct {
	Name    string        `json:"name"`
	SportID string        `json:"sportId"`
	Answers model.Answers `json:"answers"`
}

// Result is what the server answered for one submission.
type Result struct {
	Scenario        string                 `json:"scenario"`
	Attempt         int                    `json:"attempt"`
	RequestID       string                 `json:"requestId"`
	Status          int                    `json:"status"`
	Error           string                 `json:"error,omitempty"`
	Recommendations []model.Recommendation `json:"recommendations,omitempty"`
}

// Stats holds run statistics
type Stats struct {
	ScenariosLoaded  int
	RequestsSent     int
	RequestsOK       int
	RequestsFailed   int
	EmptyResults     int
	InconsistentRuns int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
