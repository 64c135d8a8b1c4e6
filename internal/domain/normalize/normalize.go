// Package normalize converts raw answers into numeric base values.
//
// Hours are the canonical unit for everything time based. Number and distance
// answers pass through in whatever unit the question declares.
package normalize

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/okian/thehub/internal/domain/model"
)

const minutesPerHour = 60

// Sentinel errors. Every error returned by Base wraps ErrNotApplicable.
var (
	ErrNotApplicable   = errors.New("answer not applicable")
	ErrMissing         = fmt.Errorf("%w: missing", ErrNotApplicable)
	ErrNotNumeric      = fmt.Errorf("%w: not numeric", ErrNotApplicable)
	ErrNotMultiTime    = fmt.Errorf("%w: not a multitime map", ErrNotApplicable)
	ErrUnsupportedType = fmt.Errorf("%w: question type cannot drive a base value", ErrNotApplicable)
)

// Base normalizes answer for a question of type qt.
// ok=false on the answer means the client gave none.
func Base(qt model.QuestionType, answer model.AnswerValue, ok bool) (float64, error) {
	if !ok || answer.Kind() == model.AnswerAbsent {
		return 0, ErrMissing
	}

	switch qt {
	case model.QuestionNumber, model.QuestionDistance:
		return scalar(answer)
	case model.QuestionTime:
		minutes, err := scalar(answer)
		if err != nil {
			return 0, err
		}
		return minutes / minutesPerHour, nil
	case model.QuestionMultiTime:
		if answer.Kind() != model.AnswerMultiTime {
			return 0, ErrNotMultiTime
		}
		var total float64
		for _, raw := range answer.Parts() {
			if v, err := parse(raw); err == nil {
				total += v
			}
		}
		return total / minutesPerHour, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedType, qt)
	}
}

func scalar(answer model.AnswerValue) (float64, error) {
	if answer.Kind() == model.AnswerMultiTime {
		return 0, ErrNotNumeric
	}
	return parse(answer.Raw())
}

// parse reads the longest leading decimal number in raw, so "10 km" is 10.
// Text with no leading number, NaN and infinities are not numeric.
func parse(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, ErrMissing
	}
	prefix := numericPrefix(s)
	if prefix == "" {
		return 0, fmt.Errorf("%w: %q", ErrNotNumeric, raw)
	}
	v, err := strconv.ParseFloat(prefix, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", ErrNotNumeric, raw)
	}
	return v, nil
}

// numericPrefix returns the leading [sign]digits[.digits][e[sign]digits] of s,
// or "" when s does not start with a number.
func numericPrefix(s string) string {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		j := i + 1
		frac := 0
		for j < len(s) && isDigit(s[j]) {
			j++
			frac++
		}
		if digits+frac > 0 {
			i = j
			digits += frac
		}
	}
	if digits == 0 {
		return ""
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		if j < len(s) && isDigit(s[j]) {
			for j < len(s) && isDigit(s[j]) {
				j++
			}
			i = j
		}
	}
	return s[:i]
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
