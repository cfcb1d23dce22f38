package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// AnswerType is the stored shape of an answer.
type AnswerType string

const (
	AnswerString   AnswerType = "STRING"
	AnswerNumber   AnswerType = "NUMBER"
	AnswerBoolean  AnswerType = "BOOLEAN"
	AnswerSingle   AnswerType = "SINGLE"
	AnswerMultiple AnswerType = "MULTIPLE"
	AnswerImageURL AnswerType = "IMAGE_URL"
)

// ParseAnswerType accepts only the known answer types.
func ParseAnswerType(raw string) (AnswerType, error) {
	switch t := AnswerType(strings.ToUpper(strings.TrimSpace(raw))); t {
	case AnswerString, AnswerNumber, AnswerBoolean, AnswerSingle, AnswerMultiple, AnswerImageURL:
		return t, nil
	}
	return "", fmt.Errorf("%w: %w %q", ErrValidation, ErrInvalidAnswerType, raw)
}

// AnswerTypeFor maps a question type to the one answer shape it stores.
func AnswerTypeFor(t QuestionType) (AnswerType, error) {
	switch t {
	case QuestionText:
		return AnswerString, nil
	case QuestionNumber:
		return AnswerNumber, nil
	case QuestionSingle, QuestionGender, QuestionImage:
		return AnswerSingle, nil
	case QuestionMultiple:
		return AnswerMultiple, nil
	case QuestionUpload:
		return AnswerImageURL, nil
	case QuestionBoolean:
		return AnswerBoolean, nil
	}
	return "", fmt.Errorf("%w: unknown question type %q", ErrValidation, t)
}

// AnswerValue is a tagged union: Type selects which payload is meaningful.
// The zero value is an absent answer.
type AnswerValue struct {
	Type AnswerType
	text string
	list []string
	num  float64
	flag bool
}

func TextAnswer(s string) AnswerValue { return AnswerValue{Type: AnswerString, text: s} }
func ChoiceAnswer(s string) AnswerValue { return AnswerValue{Type: AnswerSingle, text: s} }
func ImageURLAnswer(s string) AnswerValue { return AnswerValue{Type: AnswerImageURL, text: s} }
func NumberAnswer(f float64) AnswerValue { return AnswerValue{Type: AnswerNumber, num: f} }
func BoolAnswer(b bool) AnswerValue { return AnswerValue{Type: AnswerBoolean, flag: b} }

// MultiAnswer copies values so callers cannot mutate the stored list.
func MultiAnswer(values []string) AnswerValue {
	cp := make([]string, len(values))
	copy(cp, values)
	return AnswerValue{Type: AnswerMultiple, list: cp}
}

// IsZero reports whether the value carries no answer.
func (v AnswerValue) IsZero() bool { return v.Type == "" }

// Text returns the string payload of STRING, SINGLE and IMAGE_URL answers.
func (v AnswerValue) Text() string { return v.text }

// List returns a copy of the selections of a MULTIPLE answer.
func (v AnswerValue) List() []string {
	if v.list == nil {
		return nil
	}
	cp := make([]string, len(v.list))
	copy(cp, v.list)
	return cp
}

func (v AnswerValue) Number() float64 { return v.num }
func (v AnswerValue) Bool() bool { return v.flag }

// Raw returns the untagged payload: string, []string, float64 or bool.
func (v AnswerValue) Raw() any {
	switch v.Type {
	case AnswerString, AnswerSingle, AnswerImageURL:
		return v.text
	case AnswerMultiple:
		return v.List()
	case AnswerNumber:
		return v.num
	case AnswerBoolean:
		return v.flag
	}
	return nil
}

// String renders the value the way it is stored in a string column.
func (v AnswerValue) String() string {
	switch v.Type {
	case AnswerMultiple:
		s, _ := EncodeList(v.list)
		return s
	case AnswerNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case AnswerBoolean:
		return strconv.FormatBool(v.flag)
	}
	return v.text
}

// Equal compares type and payload.
func (v AnswerValue) Equal(o AnswerValue) bool {
	if v.Type != o.Type || v.text != o.text || v.num != o.num || v.flag != o.flag {
		return false
	}
	if len(v.list) != len(o.list) {
		return false
	}
	for i := range v.list {
		if v.list[i] != o.list[i] {
			return false
		}
	}
	return true
}

// MarshalJSON emits the untagged payload so the wire form stays a plain
// {questionId: value} mapping.
func (v AnswerValue) MarshalJSON() ([]byte, error) {
	if v.IsZero() {
		return []byte("null"), nil
	}
	if v.Type == AnswerMultiple && v.list == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(v.Raw())
}

// UnmarshalJSON infers the tag from the JSON shape. Strings decode as STRING;
// use Coerce to retag against the originating question.
func (v *AnswerValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = AnswerValue{}
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = TextAnswer(s)
	case '[':
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return fmt.Errorf("%w: multiple-choice answer must be a list of strings", ErrValidation)
		}
		*v = MultiAnswer(list)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = BoolAnswer(b)
	default:
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("%w: unsupported answer payload", ErrValidation)
		}
		*v = NumberAnswer(f)
	}
	return nil
}

// EncodeList renders multiple-choice selections as a JSON array.
func EncodeList(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	b, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeList parses a JSON array written by EncodeList.
func DecodeList(raw string) ([]string, error) {
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, fmt.Errorf("%w: malformed multiple-choice value: %v", ErrValidation, err)
	}
	return values, nil
}

// EncodeAnswer converts raw input for q into the stored answer shape.
// raw may be a string, []string, float64, int or bool.
func EncodeAnswer(q Question, raw any) (AnswerValue, error) {
	want, err := AnswerTypeFor(q.Type)
	if err != nil {
		return AnswerValue{}, err
	}

	switch want {
	case AnswerString:
		s, ok := raw.(string)
		if !ok {
			return AnswerValue{}, invalid(q, "expected text")
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return AnswerValue{}, invalid(q, "answer is empty")
		}
		return TextAnswer(s), nil

	case AnswerNumber:
		f, err := toNumber(raw)
		if err != nil {
			return AnswerValue{}, invalid(q, err.Error())
		}
		return NumberAnswer(f), nil

	case AnswerSingle:
		s, ok := raw.(string)
		if !ok {
			return AnswerValue{}, invalid(q, "expected a single selection")
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return AnswerValue{}, invalid(q, "nothing selected")
		}
		if len(q.Options) > 0 && !q.HasOption(s) {
			return AnswerValue{}, invalid(q, fmt.Sprintf("unknown option %q", s))
		}
		return ChoiceAnswer(s), nil

	case AnswerMultiple:
		var values []string
		switch x := raw.(type) {
		case string:
			values = []string{x}
		case []string:
			values = x
		case []any:
			for _, item := range x {
				s, ok := item.(string)
				if !ok {
					return AnswerValue{}, invalid(q, "selections must be strings")
				}
				values = append(values, s)
			}
		default:
			return AnswerValue{}, invalid(q, "expected selections")
		}
		if len(values) == 0 {
			return AnswerValue{}, invalid(q, "nothing selected")
		}
		for _, s := range values {
			if len(q.Options) > 0 && !q.HasOption(s) {
				return AnswerValue{}, invalid(q, fmt.Sprintf("unknown option %q", s))
			}
		}
		return MultiAnswer(values), nil

	case AnswerImageURL:
		s, ok := raw.(string)
		if !ok || strings.TrimSpace(s) == "" {
			return AnswerValue{}, invalid(q, "expected an uploaded file URL")
		}
		return ImageURLAnswer(strings.TrimSpace(s)), nil

	case AnswerBoolean:
		switch x := raw.(type) {
		case bool:
			return BoolAnswer(x), nil
		case string:
			switch strings.ToLower(strings.TrimSpace(x)) {
			case "true", "yes", "y":
				return BoolAnswer(true), nil
			case "false", "no", "n":
				return BoolAnswer(false), nil
			}
		}
		return AnswerValue{}, invalid(q, "expected true or false")
	}
	return AnswerValue{}, invalid(q, "unsupported answer")
}

// Coerce retags a decoded value against the question it answers.
func Coerce(q Question, v AnswerValue) (AnswerValue, error) {
	if v.IsZero() {
		return AnswerValue{}, invalid(q, "answer is empty")
	}
	return EncodeAnswer(q, v.Raw())
}

// EncodeExplicit builds a value for an explicitly named answer type without a
// question at hand.
func EncodeExplicit(t AnswerType, raw any) (AnswerValue, error) {
	switch t {
	case AnswerString, AnswerSingle, AnswerImageURL:
		return AnswerValue{Type: t, text: fmt.Sprint(raw)}, nil
	case AnswerMultiple:
		switch x := raw.(type) {
		case []string:
			return MultiAnswer(x), nil
		case []any:
			values := make([]string, 0, len(x))
			for _, item := range x {
				values = append(values, fmt.Sprint(item))
			}
			return MultiAnswer(values), nil
		default:
			return MultiAnswer([]string{fmt.Sprint(raw)}), nil
		}
	case AnswerNumber:
		f, err := toNumber(raw)
		if err != nil {
			return AnswerValue{}, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return NumberAnswer(f), nil
	case AnswerBoolean:
		switch x := raw.(type) {
		case bool:
			return BoolAnswer(x), nil
		case string:
			b, err := strconv.ParseBool(x)
			if err != nil {
				return AnswerValue{}, fmt.Errorf("%w: expected true or false", ErrValidation)
			}
			return BoolAnswer(b), nil
		}
		return AnswerValue{}, fmt.Errorf("%w: expected true or false", ErrValidation)
	}
	return AnswerValue{}, fmt.Errorf("%w: %w %q", ErrValidation, ErrInvalidAnswerType, t)
}

// AnswerFromStored rebuilds a value from its storage columns.
func AnswerFromStored(t AnswerType, str string, num float64, flag bool) (AnswerValue, error) {
	switch t {
	case AnswerString, AnswerSingle, AnswerImageURL:
		return AnswerValue{Type: t, text: str}, nil
	case AnswerMultiple:
		values, err := DecodeList(str)
		if err != nil {
			return AnswerValue{}, err
		}
		return MultiAnswer(values), nil
	case AnswerNumber:
		return NumberAnswer(num), nil
	case AnswerBoolean:
		return BoolAnswer(flag), nil
	}
	return AnswerValue{}, fmt.Errorf("%w: %w %q", ErrValidation, ErrInvalidAnswerType, t)
}

func toNumber(raw any) (float64, error) {
	var f float64
	switch x := raw.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", x)
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", x)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("not a number: %v", raw)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a finite number")
	}
	return f, nil
}

func invalid(q Question, reason string) error {
	return fmt.Errorf("%w: question %s: %s", ErrValidation, q.ID, reason)
}
