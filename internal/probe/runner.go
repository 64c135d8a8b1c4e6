package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/thehub/internal/domain/model"
	"github.com/okian/thehub/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	resultPermission    = 0600
)

// Run executes the complete probe.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting thehub probe",
		logger.String("baseURL", config.BaseURL),
		logger.String("scenarioFile", config.ScenarioFile),
		logger.String("sportId", config.SportID),
		logger.Int("repeat", config.Repeat),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()))

	client := newHTTPClient(config.Timeout)

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, client, config); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Read the questionnaire
	form, err := fetchFormData(ctx, client, config)
	if err != nil {
		return stats, fmt.Errorf("form data retrieval failed: %w", err)
	}

	// Step 3: Load or generate scenarios
	var scenarios []Scenario
	if config.ScenarioFile != "" {
		scenarios, err = loadScenarios(config.ScenarioFile)
	} else {
		scenarios, err = generateScenarios(ctx, config, form)
	}
	if err != nil {
		return stats, fmt.Errorf("scenario setup failed: %w", err)
	}
	stats.ScenariosLoaded = len(scenarios)

	// Step 4: Submit concurrently
	results := submitScenarios(ctx, client, config, scenarios, stats)

	// Step 5: Verify that repeated submissions agree
	verifyErr := verifyResults(ctx, results, stats)

	// Step 6: Save results
	if config.OutputFile != "" {
		if err := saveResults(ctx, config.OutputFile, results); err != nil {
			logger.Get().Warn(ctx, "failed to save results", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(stats)

	if verifyErr != nil {
		return stats, fmt.Errorf("result verification failed: %w", verifyErr)
	}
	logger.Get().Info(ctx, "probe completed successfully")
	return stats, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient, config *Config) error {
	resp, err := client.Get(ctx, config.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	_, _ = readResponseBody(resp)

	// The service returns Prometheus metrics; any 200 is healthy.
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}
	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// fetchFormData reads the sports and questions the server offers.
func fetchFormData(ctx context.Context, client *HTTPClient, config *Config) (model.FormData, error) {
	target := config.BaseURL + "/form-data"
	if config.SportID != "" {
		target += "?sportId=" + url.QueryEscape(config.SportID)
	}
	resp, err := client.Get(ctx, target)
	if err != nil {
		return model.FormData{}, err
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return model.FormData{}, err
	}
	if resp.StatusCode != StatusOK {
		return model.FormData{}, fmt.Errorf("form data returned status %d: %s", resp.StatusCode, body)
	}

	var form model.FormData
	if err := json.Unmarshal(body, &form); err != nil {
		return model.FormData{}, fmt.Errorf("decode form data: %w", err)
	}
	logger.Get().Info(ctx, "form data loaded",
		logger.Int("sports", len(form.Sports)),
		logger.Int("questions", len(form.Questions)))
	return form, nil
}

type job struct {
	index    int
	attempt  int
	scenario Scenario
}

// submitScenarios posts every scenario Repeat times using a worker pool.
// Results are indexed in submission order.
func submitScenarios(ctx context.Context, client *HTTPClient, config *Config, scenarios []Scenario, stats *Stats) []Result {
	repeat := config.Repeat
	if repeat < 1 {
		repeat = 1
	}
	workers := config.Workers
	if workers < 1 {
		workers = 1
	}
	results := make([]Result, len(scenarios)*repeat)
	target := config.BaseURL + "/recommendations"

	var sent, ok, failed, empty int64

	jobs := make(chan job, workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				res := submitSingle(ctx, client, target, j)
				results[j.index] = res

				atomic.AddInt64(&sent, 1)
				switch {
				case res.Status != StatusOK:
					atomic.AddInt64(&failed, 1)
				case len(res.Recommendations) == 0:
					atomic.AddInt64(&ok, 1)
					atomic.AddInt64(&empty, 1)
				default:
					atomic.AddInt64(&ok, 1)
				}
				if config.Verbose {
					logger.Get().Info(ctx, "scenario answered",
						logger.String("scenario", res.Scenario),
						logger.Int("attempt", res.Attempt),
						logger.String("requestId", res.RequestID),
						logger.Int("status", res.Status),
						logger.Int("blocks", len(res.Recommendations)))
				}
			}
		}()
	}

	index := 0
feed:
	for attempt := 0; attempt < repeat; attempt++ {
		for _, sc := range scenarios {
			select {
			case <-ctx.Done():
				break feed
			case jobs <- job{index: index, attempt: attempt, scenario: sc}:
			}
			index++
		}
	}
	close(jobs)
	wg.Wait()

	stats.RequestsSent = int(atomic.LoadInt64(&sent))
	stats.RequestsOK = int(atomic.LoadInt64(&ok))
	stats.RequestsFailed = int(atomic.LoadInt64(&failed))
	stats.EmptyResults = int(atomic.LoadInt64(&empty))
	return results[:index]
}

// submitSingle posts one scenario and decodes the answer.
func submitSingle(ctx context.Context, client *HTTPClient, target string, j job) Result {
	res := Result{Scenario: j.scenario.Name, Attempt: j.attempt}

	body := map[string]interface{}{"answers": j.scenario.Answers, "sportId": j.scenario.SportID}
	resp, id, err := client.Post(ctx, target, body)
	res.RequestID = id
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Status = resp.StatusCode

	data, err := readResponseBody(resp)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	if resp.StatusCode != StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(data, &e)
		res.Error = e.Error
		return res
	}

	var out struct {
		Recommendations []model.Recommendation `json:"recommendations"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		res.Error = fmt.Sprintf("decode response: %v", err)
		return res
	}
	res.Recommendations = out.Recommendations
	return res
}

// saveResults writes results as an indented JSON array.
func saveResults(ctx context.Context, filename string, results []Result) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	if err := os.WriteFile(filename, data, resultPermission); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	logger.Get().Info(ctx, "results saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(stats *Stats) {
	var successRate, requestsPerSecond float64
	if stats.RequestsSent > 0 {
		successRate = float64(stats.RequestsOK) / float64(stats.RequestsSent) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		requestsPerSecond = float64(stats.RequestsSent) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("scenarios", stats.ScenariosLoaded),
		logger.Int("requestsSent", stats.RequestsSent),
		logger.Int("requestsOK", stats.RequestsOK),
		logger.Int("requestsFailed", stats.RequestsFailed),
		logger.Int("emptyResults", stats.EmptyResults),
		logger.Int("inconsistentRuns", stats.InconsistentRuns),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("successRate", successRate),
		logger.Float64("requestsPerSecond", requestsPerSecond))
}
