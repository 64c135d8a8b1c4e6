package normalize_test

import (
	"errors"
	"testing"

	"github.com/okian/thehub/internal/domain/model"
	"github.com/okian/thehub/internal/domain/normalize"
	. "github.com/smartystreets/goconvey/convey"
)

func TestBase(t *testing.T) {
	Convey("Given number and distance questions", t, func() {
		Convey("When the answer is a numeric string", func() {
			v, err := normalize.Base(model.QuestionNumber, model.Text(" 10 "), true)
			So(err, ShouldBeNil)
			So(v, ShouldEqual, 10)
		})

		Convey("When the answer is a JSON number", func() {
			v, err := normalize.Base(model.QuestionDistance, model.Number(21.1), true)
			So(err, ShouldBeNil)
			So(v, ShouldEqual, 21.1)
		})

		Convey("When the answer is not numeric", func() {
			_, err := normalize.Base(model.QuestionNumber, model.Text("ten"), true)
			So(errors.Is(err, normalize.ErrNotApplicable), ShouldBeTrue)
			So(errors.Is(err, normalize.ErrNotNumeric), ShouldBeTrue)
		})

		Convey("When the number is followed by a unit", func() {
			v, err := normalize.Base(model.QuestionDistance, model.Text("10 km"), true)
			So(err, ShouldBeNil)
			So(v, ShouldEqual, 10)

			v, err = normalize.Base(model.QuestionNumber, model.Text("10km"), true)
			So(err, ShouldBeNil)
			So(v, ShouldEqual, 10)

			v, err = normalize.Base(model.QuestionTime, model.Text("12.5 min"), true)
			So(err, ShouldBeNil)
			So(v, ShouldAlmostEqual, 12.5/60)
		})

		Convey("When only a leading decimal part is numeric", func() {
			v, err := normalize.Base(model.QuestionNumber, model.Text("-.5e1x"), true)
			So(err, ShouldBeNil)
			So(v, ShouldEqual, -5)

			v, err = normalize.Base(model.QuestionNumber, model.Text("3.e"), true)
			So(err, ShouldBeNil)
			So(v, ShouldEqual, 3)

			_, err = normalize.Base(model.QuestionNumber, model.Text("km 10"), true)
			So(errors.Is(err, normalize.ErrNotNumeric), ShouldBeTrue)

			_, err = normalize.Base(model.QuestionNumber, model.Text("."), true)
			So(errors.Is(err, normalize.ErrNotNumeric), ShouldBeTrue)
		})

		Convey("When the answer overflows", func() {
			_, err := normalize.Base(model.QuestionNumber, model.Text("1e400"), true)
			So(errors.Is(err, normalize.ErrNotNumeric), ShouldBeTrue)
		})

		Convey("When the answer is NaN or infinite", func() {
			_, err := normalize.Base(model.QuestionNumber, model.Text("NaN"), true)
			So(errors.Is(err, normalize.ErrNotNumeric), ShouldBeTrue)
			_, err = normalize.Base(model.QuestionNumber, model.Text("+Inf"), true)
			So(errors.Is(err, normalize.ErrNotNumeric), ShouldBeTrue)
		})

		Convey("When there is no answer", func() {
			_, err := normalize.Base(model.QuestionNumber, model.AnswerValue{}, false)
			So(errors.Is(err, normalize.ErrMissing), ShouldBeTrue)
			_, err = normalize.Base(model.QuestionNumber, model.Text("   "), true)
			So(errors.Is(err, normalize.ErrMissing), ShouldBeTrue)
		})
	})

	Convey("Given a time question", t, func() {
		Convey("When 90 minutes are answered", func() {
			v, err := normalize.Base(model.QuestionTime, model.Number(90), true)

			Convey("Then the base value is 1.5 hours", func() {
				So(err, ShouldBeNil)
				So(v, ShouldEqual, 1.5)
			})
		})

		Convey("When minutes arrive as a string", func() {
			v, err := normalize.Base(model.QuestionTime, model.Text("45"), true)
			So(err, ShouldBeNil)
			So(v, ShouldEqual, 0.75)
		})

		Convey("When the answer is a map", func() {
			_, err := normalize.Base(model.QuestionTime, model.MultiTime(map[string]int64{"a": 10}), true)
			So(errors.Is(err, normalize.ErrNotNumeric), ShouldBeTrue)
		})
	})

	Convey("Given a multitime question", t, func() {
		Convey("When components {a:30, b:45} are answered", func() {
			v, err := normalize.Base(model.QuestionMultiTime, model.MultiTime(map[string]int64{"a": 30, "b": 45}), true)

			Convey("Then the base value is 1.25 hours", func() {
				So(err, ShouldBeNil)
				So(v, ShouldEqual, 1.25)
			})
		})

		Convey("When a component cannot be parsed", func() {
			var answers model.Answers
			So(jsonInto(`{"m": {"a": 60, "b": "x", "c": null}}`, &answers), ShouldBeNil)
			a, ok := answers.Get("m")
			v, err := normalize.Base(model.QuestionMultiTime, a, ok)

			Convey("Then it counts as zero", func() {
				So(err, ShouldBeNil)
				So(v, ShouldEqual, 1)
			})
		})

		Convey("When the map is empty", func() {
			v, err := normalize.Base(model.QuestionMultiTime, model.MultiTime(nil), true)
			So(err, ShouldBeNil)
			So(v, ShouldEqual, 0)
		})

		Convey("When the answer is not a map", func() {
			_, err := normalize.Base(model.QuestionMultiTime, model.Text("30"), true)
			So(errors.Is(err, normalize.ErrNotMultiTime), ShouldBeTrue)
		})

		Convey("When the answer is absent", func() {
			_, err := normalize.Base(model.QuestionMultiTime, model.AnswerValue{}, false)
			So(errors.Is(err, normalize.ErrMissing), ShouldBeTrue)
		})
	})

	Convey("Given a non-numeric question type", t, func() {
		_, err := normalize.Base(model.QuestionSelect, model.Text("high"), true)
		So(errors.Is(err, normalize.ErrUnsupportedType), ShouldBeTrue)
		So(errors.Is(err, normalize.ErrNotApplicable), ShouldBeTrue)
	})
}
