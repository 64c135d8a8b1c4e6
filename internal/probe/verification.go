package probe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/okian/thehub/pkg/logger"
)

// Verification errors.
var (
	ErrAllFailed    = errors.New("every request failed")
	ErrInconsistent = errors.New("repeated submissions disagree")
)

// verifyResults checks that every successful attempt of a scenario computed
// the same totals and quantities. Catalog fields are ignored since the shop
// may change between calls.
func verifyResults(ctx context.Context, results []Result, stats *Stats) error {
	if len(results) == 0 {
		return ErrNoScenarios
	}

	first := map[string]string{}
	inconsistent := map[string]bool{}
	okCount := 0
	for _, r := range results {
		if r.Status != StatusOK {
			continue
		}
		okCount++
		fp := fingerprint(r)
		prev, seen := first[r.Scenario]
		if !seen {
			first[r.Scenario] = fp
			continue
		}
		if prev != fp && !inconsistent[r.Scenario] {
			inconsistent[r.Scenario] = true
			logger.Get().Warn(ctx, "inconsistent recommendations",
				logger.String("scenario", r.Scenario),
				logger.String("first", prev),
				logger.String("attempt", fp))
		}
	}
	stats.InconsistentRuns = len(inconsistent)

	if okCount == 0 {
		return ErrAllFailed
	}
	if len(inconsistent) > 0 {
		return fmt.Errorf("%w: %d scenarios", ErrInconsistent, len(inconsistent))
	}
	logger.Get().Info(ctx, "recommendations are consistent", logger.Int("scenarios", len(first)))
	return nil
}

// fingerprint renders the computed part of a response.
func fingerprint(r Result) string {
	var b strings.Builder
	for _, rec := range r.Recommendations {
		fmt.Fprintf(&b, "%s=%g[", rec.CategoryID, rec.TotalAmount)
		for _, p := range rec.Products {
			fmt.Fprintf(&b, "%s:%d,", p.ProductID, p.QuantityRecommended)
		}
		b.WriteString("];")
	}
	return b.String()
}
