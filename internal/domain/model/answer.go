package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// AnswerKind tags the shape an answer arrived in.
type AnswerKind int

// Answer kinds.
const (
	AnswerAbsent AnswerKind = iota
	AnswerText
	AnswerNumber
	AnswerMultiTime
)

func (k AnswerKind) String() string {
	switch k {
	case AnswerText:
		return "text"
	case AnswerNumber:
		return "number"
	case AnswerMultiTime:
		return "multitime"
	default:
		return "absent"
	}
}

// AnswerValue is a tagged variant holding one raw answer: a string, a number,
// or a map of component key to minutes. The raw text is kept so modifiers can
// compare exactly what the client sent.
type AnswerValue struct {
	kind  AnswerKind
	raw   string
	parts map[string]string
}

// Text builds a string answer.
func Text(s string) AnswerValue { return AnswerValue{kind: AnswerText, raw: s} }

// Number builds a numeric answer.
func Number(f float64) AnswerValue {
	return AnswerValue{kind: AnswerNumber, raw: strconv.FormatFloat(f, 'f', -1, 64)}
}

// MultiTime builds a multitime answer from component minutes.
func MultiTime(parts map[string]int64) AnswerValue {
	m := make(map[string]string, len(parts))
	for k, v := range parts {
		m[k] = strconv.FormatInt(v, 10)
	}
	return AnswerValue{kind: AnswerMultiTime, parts: m}
}

// Kind reports the variant held.
func (a AnswerValue) Kind() AnswerKind { return a.kind }

// Raw returns the answer as the client sent it. Multitime answers have no
// scalar form and return "".
func (a AnswerValue) Raw() string { return a.raw }

// Parts returns the multitime components as raw strings, nil for other kinds.
func (a AnswerValue) Parts() map[string]string {
	if a.kind != AnswerMultiTime {
		return nil
	}
	out := make(map[string]string, len(a.parts))
	for k, v := range a.parts {
		out[k] = v
	}
	return out
}

// UnmarshalJSON decodes a JSON string, number, or object of numbers.
// Other JSON values are kept as text so they never match numerically.
func (a *AnswerValue) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*a = AnswerValue{}
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("decode answer: %w", err)
	}

	switch t := v.(type) {
	case string:
		*a = Text(t)
	case json.Number:
		*a = AnswerValue{kind: AnswerNumber, raw: t.String()}
	case map[string]any:
		parts := make(map[string]string, len(t))
		for k, pv := range t {
			parts[k] = scalarText(pv)
		}
		*a = AnswerValue{kind: AnswerMultiTime, parts: parts}
	default:
		*a = Text(string(trimmed))
	}
	return nil
}

// MarshalJSON writes the answer back in the shape it arrived in.
func (a AnswerValue) MarshalJSON() ([]byte, error) {
	switch a.kind {
	case AnswerText:
		return json.Marshal(a.raw)
	case AnswerNumber:
		return json.Marshal(jsonScalar(a.raw))
	case AnswerMultiTime:
		m := make(map[string]any, len(a.parts))
		for k, v := range a.parts {
			m[k] = jsonScalar(v)
		}
		return json.Marshal(m)
	default:
		return []byte("null"), nil
	}
}

// jsonScalar returns s as a canonical JSON number when it is a finite
// number, and as a string otherwise.
func jsonScalar(s string) any {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return s
	}
	return json.Number(strconv.FormatFloat(f, 'f', -1, 64))
}

func scalarText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return ""
	}
}

// Answers maps a question key to the raw answer given for it.
type Answers map[string]AnswerValue

// Get returns the answer for key and whether one was given.
func (a Answers) Get(key string) (AnswerValue, bool) {
	v, ok := a[key]
	if !ok || v.kind == AnswerAbsent {
		return AnswerValue{}, false
	}
	return v, true
}
