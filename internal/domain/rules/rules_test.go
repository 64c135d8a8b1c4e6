package rules_test

import (
	"errors"
	"math"
	"testing"

	"github.com/okian/thehub/internal/domain/model"
	"github.com/okian/thehub/internal/domain/rules"
	. "github.com/smartystreets/goconvey/convey"
)

func distanceRule(logic model.Logic, mods ...model.Modifier) model.Rule {
	return model.Rule{
		ID:               "r1",
		CategoryID:       "hydration",
		BaseQuestionKey:  "km",
		BaseQuestionType: model.QuestionDistance,
		BaseMultiplier:   2,
		Logic:            logic,
		Modifiers:        mods,
	}
}

func TestEvaluate(t *testing.T) {
	e := rules.New()

	Convey("Given a rule without modifiers", t, func() {
		rule := distanceRule(model.LogicAnd)

		Convey("When the base answer is numeric", func() {
			out, err := e.Evaluate(rule, model.Answers{"km": model.Text("10")})

			Convey("Then the total is base times base multiplier", func() {
				So(err, ShouldBeNil)
				So(out.CategoryID, ShouldEqual, "hydration")
				So(out.BaseValue, ShouldEqual, 10)
				So(out.Multiplier, ShouldEqual, 2)
				So(out.TotalAmount, ShouldEqual, 20)
				So(out.Matched, ShouldBeEmpty)
			})
		})

		Convey("When the base answer is missing", func() {
			_, err := e.Evaluate(rule, model.Answers{"other": model.Text("10")})

			Convey("Then the rule is skipped", func() {
				So(errors.Is(err, rules.ErrSkip), ShouldBeTrue)
				So(errors.Is(err, rules.ErrBaseNotApplicable), ShouldBeTrue)
				So(rules.Reason(err), ShouldEqual, "base_not_applicable")
			})
		})

		Convey("When the base answer is not numeric", func() {
			_, err := e.Evaluate(rule, model.Answers{"km": model.Text("far")})
			So(errors.Is(err, rules.ErrBaseNotApplicable), ShouldBeTrue)
		})
	})

	Convey("Given an AND rule with two modifiers", t, func() {
		rule := distanceRule(model.LogicAnd,
			model.Modifier{Key: "intensity", Value: "high", Multiplier: 1.5},
			model.Modifier{Key: "heat", Value: "yes", Multiplier: 2},
		)

		Convey("When both modifiers match", func() {
			out, err := e.Evaluate(rule, model.Answers{
				"km":        model.Number(10),
				"intensity": model.Text("high"),
				"heat":      model.Text("yes"),
			})

			Convey("Then every multiplier applies", func() {
				So(err, ShouldBeNil)
				So(out.Multiplier, ShouldEqual, 6)
				So(out.TotalAmount, ShouldEqual, 60)
				So(out.Matched, ShouldHaveLength, 2)
			})
		})

		Convey("When only one modifier matches", func() {
			_, err := e.Evaluate(rule, model.Answers{
				"km":        model.Number(10),
				"intensity": model.Text("high"),
				"heat":      model.Text("no"),
			})

			Convey("Then the rule is skipped", func() {
				So(errors.Is(err, rules.ErrModifiersUnmatched), ShouldBeTrue)
				So(rules.Reason(err), ShouldEqual, "modifiers_unmatched")
			})
		})
	})

	Convey("Given an OR rule with two modifiers", t, func() {
		rule := distanceRule(model.LogicOr,
			model.Modifier{Key: "intensity", Value: "high", Multiplier: 1.5},
			model.Modifier{Key: "heat", Value: "yes", Multiplier: 2},
		)

		Convey("When one modifier matches", func() {
			out, err := e.Evaluate(rule, model.Answers{
				"km":        model.Text("10"),
				"intensity": model.Text("low"),
				"heat":      model.Text("yes"),
			})

			Convey("Then only the matched multiplier applies", func() {
				So(err, ShouldBeNil)
				So(out.Multiplier, ShouldEqual, 4)
				So(out.TotalAmount, ShouldEqual, 40)
				So(out.Matched, ShouldResemble, []model.Modifier{{Key: "heat", Value: "yes", Multiplier: 2}})
			})
		})

		Convey("When no modifier matches", func() {
			_, err := e.Evaluate(rule, model.Answers{"km": model.Text("10")})
			So(errors.Is(err, rules.ErrModifiersUnmatched), ShouldBeTrue)
		})
	})

	Convey("Given modifiers compared against raw answer text", t, func() {
		rule := distanceRule(model.LogicOr, model.Modifier{Key: "laps", Value: "3", Multiplier: 3})

		Convey("Then numeric answers match by their literal", func() {
			out, err := e.Evaluate(rule, model.Answers{"km": model.Text("1"), "laps": model.Number(3)})
			So(err, ShouldBeNil)
			So(out.TotalAmount, ShouldEqual, 6)
		})

		Convey("And matching is exact", func() {
			_, err := e.Evaluate(rule, model.Answers{"km": model.Text("1"), "laps": model.Text(" 3")})
			So(errors.Is(err, rules.ErrModifiersUnmatched), ShouldBeTrue)
		})

		Convey("And multitime answers never match", func() {
			_, err := e.Evaluate(rule, model.Answers{"km": model.Text("1"), "laps": model.MultiTime(map[string]int64{"a": 3})})
			So(errors.Is(err, rules.ErrModifiersUnmatched), ShouldBeTrue)
		})
	})

	Convey("Given a time rule", t, func() {
		rule := model.Rule{ID: "t", CategoryID: "fuel", BaseQuestionKey: "session", BaseQuestionType: model.QuestionTime, BaseMultiplier: 1}
		out, err := e.Evaluate(rule, model.Answers{"session": model.Number(90)})
		So(err, ShouldBeNil)
		So(out.TotalAmount, ShouldEqual, 1.5)
	})

	Convey("Given invalid rule definitions", t, func() {
		Convey("When logic is unknown", func() {
			_, err := e.Evaluate(distanceRule("XOR"), model.Answers{"km": model.Text("1")})
			So(errors.Is(err, rules.ErrInvalidRule), ShouldBeTrue)
			So(rules.Reason(err), ShouldEqual, "invalid_rule")
		})

		Convey("When the base question type is not numeric", func() {
			rule := distanceRule(model.LogicAnd)
			rule.BaseQuestionType = model.QuestionSelect
			_, err := e.Evaluate(rule, model.Answers{"km": model.Text("10")})
			So(errors.Is(err, rules.ErrInvalidRule), ShouldBeTrue)
			So(rules.Reason(err), ShouldEqual, "invalid_rule")

			rule.BaseQuestionType = ""
			_, err = e.Evaluate(rule, model.Answers{"km": model.Text("10")})
			So(errors.Is(err, rules.ErrInvalidRule), ShouldBeTrue)
		})

		Convey("When a multiplier is not finite", func() {
			rule := distanceRule(model.LogicOr, model.Modifier{Key: "x", Value: "y", Multiplier: math.Inf(1)})
			_, err := e.Evaluate(rule, model.Answers{"km": model.Text("1"), "x": model.Text("y")})
			So(errors.Is(err, rules.ErrInvalidRule), ShouldBeTrue)
		})

		Convey("When logic is unset it defaults to AND", func() {
			rule := distanceRule("", model.Modifier{Key: "a", Value: "1", Multiplier: 2}, model.Modifier{Key: "b", Value: "1", Multiplier: 2})
			_, err := e.Evaluate(rule, model.Answers{"km": model.Text("1"), "a": model.Text("1")})
			So(errors.Is(err, rules.ErrModifiersUnmatched), ShouldBeTrue)
		})
	})
}

func TestEvaluate_WithQuestions(t *testing.T) {
	Convey("Given an evaluator that checks configured questions", t, func() {
		e := rules.New(rules.WithQuestions([]model.Question{
			{Key: "km", Type: model.QuestionDistance},
			{Key: "session", Type: model.QuestionNumber},
		}))

		Convey("When the rule matches its question", func() {
			_, err := e.Evaluate(distanceRule(model.LogicAnd), model.Answers{"km": model.Text("5")})
			So(err, ShouldBeNil)
		})

		Convey("When the base question does not exist", func() {
			rule := distanceRule(model.LogicAnd)
			rule.BaseQuestionKey = "ghost"
			_, err := e.Evaluate(rule, model.Answers{"ghost": model.Text("5")})
			So(errors.Is(err, rules.ErrQuestionMissing), ShouldBeTrue)
			So(rules.Reason(err), ShouldEqual, "question_missing")
		})

		Convey("When the declared type differs", func() {
			rule := distanceRule(model.LogicAnd)
			rule.BaseQuestionKey = "session"
			_, err := e.Evaluate(rule, model.Answers{"session": model.Text("5")})
			So(errors.Is(err, rules.ErrTypeMismatch), ShouldBeTrue)
			So(rules.Reason(err), ShouldEqual, "type_mismatch")
		})
	})

	Convey("Given evaluation is repeated", t, func() {
		e := rules.New()
		rule := distanceRule(model.LogicOr, model.Modifier{Key: "i", Value: "high", Multiplier: 1.5})
		answers := model.Answers{"km": model.Text("10"), "i": model.Text("high")}
		a, errA := e.Evaluate(rule, answers)
		b, errB := e.Evaluate(rule, answers)

		Convey("Then the outcome is identical", func() {
			So(errA, ShouldBeNil)
			So(errB, ShouldBeNil)
			So(a, ShouldResemble, b)
		})
	})
}
