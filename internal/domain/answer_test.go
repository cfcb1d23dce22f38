package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestAnswerTypeForEveryQuestionType(t *testing.T) {
	cases := map[QuestionType]AnswerType{
		QuestionText:     AnswerString,
		QuestionNumber:   AnswerNumber,
		QuestionSingle:   AnswerSingle,
		QuestionGender:   AnswerSingle,
		QuestionImage:    AnswerSingle,
		QuestionMultiple: AnswerMultiple,
		QuestionUpload:   AnswerImageURL,
		QuestionBoolean:  AnswerBoolean,
	}
	for qt, want := range cases {
		got, err := AnswerTypeFor(qt)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", qt, err)
		}
		if got != want {
			t.Fatalf("%s: expected %s, got %s", qt, want, got)
		}
	}
	if _, err := AnswerTypeFor("slider"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for unknown question type, got %v", err)
	}
}

func TestParseAnswerTypeRejectsUnknown(t *testing.T) {
	if _, err := ParseAnswerType("multiple"); err != nil {
		t.Fatalf("expected case-insensitive match, got %v", err)
	}
	_, err := ParseAnswerType("DATE")
	if !errors.Is(err, ErrInvalidAnswerType) || !errors.Is(err, ErrValidation) {
		t.Fatalf("expected invalid answer type, got %v", err)
	}
}

func TestMultipleChoiceRoundTrip(t *testing.T) {
	q := Question{ID: "concerns", Type: QuestionMultiple, Options: []Option{{Value: "a"}, {Value: "b"}, {Value: "c"}}}

	v, err := EncodeAnswer(q, []string{"a", "b"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `["a","b"]` {
		t.Fatalf("expected JSON array, got %s", data)
	}
	var decoded AnswerValue
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !decoded.Equal(v) {
		t.Fatalf("expected %v after round trip, got %v", v.List(), decoded.List())
	}

	single, err := EncodeAnswer(q, "a")
	if err != nil {
		t.Fatalf("encode single: %v", err)
	}
	if single.String() != `["a"]` {
		t.Fatalf("expected single selection stored as array, got %s", single.String())
	}
	stored, err := AnswerFromStored(AnswerMultiple, single.String(), 0, false)
	if err != nil {
		t.Fatalf("from stored: %v", err)
	}
	if got := stored.List(); len(got) != 1 || got[0] != "a" {
		t.Fatalf("expected [a], got %v", got)
	}
}

func TestEncodeAnswerValidation(t *testing.T) {
	number := Question{ID: "age", Type: QuestionNumber}
	if _, err := EncodeAnswer(number, "twenty"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for non-numeric input, got %v", err)
	}
	v, err := EncodeAnswer(number, " 27 ")
	if err != nil || v.Number() != 27 {
		t.Fatalf("expected 27, got %v (%v)", v.Number(), err)
	}

	text := Question{ID: "name", Type: QuestionText}
	v, err = EncodeAnswer(text, "  Asha ")
	if err != nil || v.Text() != "Asha" {
		t.Fatalf("expected trimmed text, got %q (%v)", v.Text(), err)
	}
	if _, err := EncodeAnswer(text, "   "); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected empty text to fail, got %v", err)
	}

	gender := Question{ID: "gender", Type: QuestionGender, Options: []Option{{Value: "male"}, {Value: "female"}}}
	if _, err := EncodeAnswer(gender, "other"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected unknown option to fail, got %v", err)
	}

	flag := Question{ID: "supplements", Type: QuestionBoolean}
	v, err = EncodeAnswer(flag, "yes")
	if err != nil || v.Type != AnswerBoolean || !v.Bool() {
		t.Fatalf("expected boolean true, got %+v (%v)", v, err)
	}
}

func TestCoerceRetagsDecodedStrings(t *testing.T) {
	var v AnswerValue
	if err := json.Unmarshal([]byte(`"stage-2"`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v.Type != AnswerString {
		t.Fatalf("expected inferred STRING, got %s", v.Type)
	}
	q := Question{ID: "hair-loss-stage", Type: QuestionImage, Options: []Option{{Value: "stage-2"}}}
	coerced, err := Coerce(q, v)
	if err != nil {
		t.Fatalf("coerce: %v", err)
	}
	if coerced.Type != AnswerSingle || coerced.Text() != "stage-2" {
		t.Fatalf("expected SINGLE stage-2, got %s %q", coerced.Type, coerced.Text())
	}

	upload := Question{ID: "scalp-photo", Type: QuestionUpload}
	coerced, err = Coerce(upload, TextAnswer("/uploads/a.jpg"))
	if err != nil || coerced.Type != AnswerImageURL {
		t.Fatalf("expected IMAGE_URL, got %s (%v)", coerced.Type, err)
	}
}

func TestNormalizePhone(t *testing.T) {
	if got := NormalizePhone("+91 (987) 654-3210"); got != "919876543210" {
		t.Fatalf("unexpected digits %q", got)
	}
	if !IsCompletePhone("987-654-3210") {
		t.Fatalf("expected 10 digits to be complete")
	}
	if IsCompletePhone("98765 4321") {
		t.Fatalf("expected 9 digits to be incomplete")
	}
}
