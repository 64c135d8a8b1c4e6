// Package recommend assembles recommendation blocks from a configuration
// snapshot and one answer set.
package recommend

import (
	"context"

	"github.com/okian/thehub/internal/domain/model"
	"github.com/okian/thehub/internal/domain/planner"
	"github.com/okian/thehub/internal/domain/rules"
	"github.com/okian/thehub/pkg/logger"
	"github.com/okian/thehub/pkg/metrics"
)

// DefaultUnknownCategoryName labels blocks whose category is not configured.
const DefaultUnknownCategoryName = "Categoría desconocida"

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithUnknownCategoryName sets the label for rules whose category is missing.
func WithUnknownCategoryName(name string) Option {
	return func(e *Engine) {
		if name != "" {
			e.unknownName = name
		}
	}
}

// WithQuestionValidation toggles checking rules against configured questions.
func WithQuestionValidation(enabled bool) Option {
	return func(e *Engine) {
		e.validate = enabled
	}
}

// Engine evaluates every scoped rule and plans its products.
type Engine struct {
	planner     *planner.Planner
	log         logger.Logger
	unknownName string
	validate    bool
}

// New creates an Engine.
func New(p *planner.Planner, opts ...Option) *Engine {
	e := &Engine{
		planner:     p,
		log:         logger.Get().Named("recommend"),
		unknownName: DefaultUnknownCategoryName,
		validate:    true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Aggregate returns one block per applied rule, in rule order. An empty
// sportID does not filter rules. A cancelled ctx fails the whole call; no
// partial list is returned.
func (e *Engine) Aggregate(ctx context.Context, snap model.Snapshot, answers model.Answers, sportID string) ([]model.Recommendation, error) {
	categories := make(map[string]model.Category, len(snap.Categories))
	for _, c := range snap.Categories {
		categories[c.ID] = c
	}

	var evalOpts []rules.Option
	if e.validate {
		evalOpts = append(evalOpts, rules.WithQuestions(snap.Questions))
	}
	evaluator := rules.New(evalOpts...)

	out := []model.Recommendation{}
	for _, rule := range snap.Rules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		category, known := categories[rule.CategoryID]
		if sportID != "" && (!known || !category.HasSport(sportID)) {
			continue
		}

		metrics.RecordRuleEvaluated()
		outcome, err := evaluator.Evaluate(rule, answers)
		if err != nil {
			reason := rules.Reason(err)
			metrics.RecordRuleSkipped(reason)
			e.log.Debug(ctx, "rule skipped",
				logger.String("rule_id", rule.ID),
				logger.String("reason", reason),
				logger.Error(err))
			continue
		}
		metrics.RecordRuleApplied()

		name := category.Name
		if !known || name == "" {
			name = e.unknownName
		}

		products := e.planner.Plan(ctx, snap.Products, outcome.CategoryID, outcome.TotalAmount)
		metrics.RecordProductsRecommended(len(products))

		out = append(out, model.Recommendation{
			CategoryID:   outcome.CategoryID,
			CategoryName: name,
			TotalAmount:  outcome.TotalAmount,
			Products:     products,
		})
	}

	// Enrichment degrades silently on cancellation, so check once more.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	metrics.RecordRecommendations(len(out))
	return out, nil
}
