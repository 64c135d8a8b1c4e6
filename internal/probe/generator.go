package probe

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"

	"github.com/okian/thehub/internal/domain/model"
	"github.com/okian/thehub/pkg/logger"
)

// Ranges for generated answers.
const (
	numberMin     = 1
	numberRange   = 100
	minutesMin    = 10
	minutesRange  = 230
	componentMin  = 5
	componentSpan = 115
	textAnswer    = "probe"
)

// ErrNoScenarios is returned when there is nothing to submit.
var ErrNoScenarios = errors.New("no scenarios")

// randomInt returns a uniform int in [0, n) using crypto/rand.
func randomInt(n int) int {
	if n <= 1 {
		return 0
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(v.Int64())
}

// loadScenarios reads a JSON array of scenarios.
func loadScenarios(path string) ([]Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenarios: %w", err)
	}
	var out []Scenario
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode scenarios %s: %w", path, err)
	}
	if len(out) == 0 {
		return nil, ErrNoScenarios
	}
	for i := range out {
		if out[i].Name == "" {
			out[i].Name = fmt.Sprintf("scenario-%03d", i)
		}
	}
	return out, nil
}

// generateScenarios builds random answers for the questions the form offers.
func generateScenarios(ctx context.Context, config *Config, form model.FormData) ([]Scenario, error) {
	sports := make([]string, 0, len(form.Sports))
	if config.SportID != "" {
		sports = append(sports, config.SportID)
	} else {
		for _, s := range form.Sports {
			sports = append(sports, s.ID)
		}
	}
	if len(sports) == 0 || config.Scenarios < 1 {
		return nil, ErrNoScenarios
	}

	out := make([]Scenario, config.Scenarios)
	for i := range out {
		sport := sports[randomInt(len(sports))]
		out[i] = Scenario{
			Name:    fmt.Sprintf("%s-%03d", sport, i),
			SportID: sport,
			Answers: generateAnswers(form.Questions, sport),
		}
	}

	logger.Get().Info(ctx, "generated scenarios", logger.Int("count", len(out)), logger.Int("sports", len(sports)))
	return out, nil
}

// generateAnswers answers every question that applies to sportID.
func generateAnswers(questions []model.Question, sportID string) model.Answers {
	answers := model.Answers{}
	for _, q := range questions {
		if !q.AppliesTo(sportID) {
			continue
		}
		switch q.Type {
		case model.QuestionNumber, model.QuestionDistance:
			answers[q.Key] = model.Number(float64(numberMin + randomInt(numberRange)))
		case model.QuestionTime:
			answers[q.Key] = model.Number(float64(minutesMin + randomInt(minutesRange)))
		case model.QuestionSelect:
			if len(q.Options) > 0 {
				answers[q.Key] = model.Text(q.Options[randomInt(len(q.Options))])
			}
		case model.QuestionMultiTime:
			if len(q.TimeComponents) == 0 {
				continue
			}
			parts := make(map[string]int64, len(q.TimeComponents))
			for _, c := range q.TimeComponents {
				parts[c.Key] = int64(componentMin + randomInt(componentSpan))
			}
			answers[q.Key] = model.MultiTime(parts)
		default:
			answers[q.Key] = model.Text(textAnswer)
		}
	}
	return answers
}
