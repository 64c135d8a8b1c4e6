// Package rules decides whether a configured rule applies to an answer set
// and computes the total amount it asks a category to cover.
package rules

import (
	"errors"
	"fmt"
	"math"

	"github.com/okian/thehub/internal/domain/model"
	"github.com/okian/thehub/internal/domain/normalize"
)

// Skip reasons. Every error returned by Evaluate wraps ErrSkip.
var (
	ErrSkip               = errors.New("rule skipped")
	ErrBaseNotApplicable  = fmt.Errorf("%w: base answer not applicable", ErrSkip)
	ErrModifiersUnmatched = fmt.Errorf("%w: modifiers not matched", ErrSkip)
	ErrQuestionMissing    = fmt.Errorf("%w: base question not configured", ErrSkip)
	ErrTypeMismatch       = fmt.Errorf("%w: base question type mismatch", ErrSkip)
	ErrInvalidRule        = fmt.Errorf("%w: invalid rule", ErrSkip)
)

// Outcome is the result of an applied rule.
type Outcome struct {
	RuleID      string
	CategoryID  string
	BaseValue   float64
	Multiplier  float64
	TotalAmount float64
	Matched     []model.Modifier
}

// Option applies a configuration option to the Evaluator.
type Option func(*Evaluator)

// WithQuestions enables the configuration check: a rule whose base question
// is unknown, or declared with a different type, is skipped.
func WithQuestions(questions []model.Question) Option {
	return func(e *Evaluator) {
		e.questions = make(map[string]model.QuestionType, len(questions))
		for _, q := range questions {
			e.questions[q.Key] = q.Type
		}
	}
}

// Evaluator evaluates rules. It holds no per-request state and is safe for
// concurrent use once built.
type Evaluator struct {
	questions map[string]model.QuestionType // nil disables the configuration check
}

// New creates an Evaluator.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate applies rule to answers.
func (e *Evaluator) Evaluate(rule model.Rule, answers model.Answers) (Outcome, error) {
	if err := e.check(rule); err != nil {
		return Outcome{}, err
	}

	raw, ok := answers.Get(rule.BaseQuestionKey)
	base, err := normalize.Base(rule.BaseQuestionType, raw, ok)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %q: %w", ErrBaseNotApplicable, rule.BaseQuestionKey, err)
	}

	multiplier := rule.BaseMultiplier
	var matched []model.Modifier
	if len(rule.Modifiers) > 0 {
		for _, m := range rule.Modifiers {
			if a, ok := answers.Get(m.Key); ok && a.Kind() != model.AnswerMultiTime && a.Raw() == m.Value {
				matched = append(matched, m)
			}
		}

		applies := len(matched) > 0
		if logicOf(rule) == model.LogicAnd {
			applies = len(matched) == len(rule.Modifiers)
		}
		if !applies {
			return Outcome{}, fmt.Errorf("%w: %d of %d matched under %s", ErrModifiersUnmatched, len(matched), len(rule.Modifiers), logicOf(rule))
		}

		for _, m := range matched {
			multiplier *= m.Multiplier
		}
	}

	return Outcome{
		RuleID:      rule.ID,
		CategoryID:  rule.CategoryID,
		BaseValue:   base,
		Multiplier:  multiplier,
		TotalAmount: base * multiplier,
		Matched:     matched,
	}, nil
}

func (e *Evaluator) check(rule model.Rule) error {
	switch logicOf(rule) {
	case model.LogicAnd, model.LogicOr:
	default:
		return fmt.Errorf("%w: unknown logic %q", ErrInvalidRule, rule.Logic)
	}
	if !rule.BaseQuestionType.Numeric() {
		return fmt.Errorf("%w: base question type %q cannot drive an amount", ErrInvalidRule, rule.BaseQuestionType)
	}
	if !finite(rule.BaseMultiplier) {
		return fmt.Errorf("%w: base multiplier is not finite", ErrInvalidRule)
	}
	for _, m := range rule.Modifiers {
		if !finite(m.Multiplier) {
			return fmt.Errorf("%w: modifier %q multiplier is not finite", ErrInvalidRule, m.Key)
		}
	}

	if e.questions == nil {
		return nil
	}
	qt, ok := e.questions[rule.BaseQuestionKey]
	if !ok {
		return fmt.Errorf("%w: %q", ErrQuestionMissing, rule.BaseQuestionKey)
	}
	if qt != rule.BaseQuestionType {
		return fmt.Errorf("%w: rule declares %q, question %q is %q", ErrTypeMismatch, rule.BaseQuestionType, rule.BaseQuestionKey, qt)
	}
	return nil
}

// logicOf treats an unset logic as AND.
func logicOf(rule model.Rule) model.Logic {
	if rule.Logic == "" {
		return model.LogicAnd
	}
	return rule.Logic
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Reason maps a skip error to a short metrics label.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrBaseNotApplicable):
		return "base_not_applicable"
	case errors.Is(err, ErrModifiersUnmatched):
		return "modifiers_unmatched"
	case errors.Is(err, ErrQuestionMissing):
		return "question_missing"
	case errors.Is(err, ErrTypeMismatch):
		return "type_mismatch"
	case errors.Is(err, ErrInvalidRule):
		return "invalid_rule"
	default:
		return "unknown"
	}
}
