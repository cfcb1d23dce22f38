package postgres

import (
	"errors"
	"testing"

	"diagnostic-quiz-service/internal/domain"
)

func TestAnswerColumnsRoundTrip(t *testing.T) {
	values := []domain.AnswerValue{
		domain.TextAnswer("Asha"),
		domain.ChoiceAnswer("female"),
		domain.ImageURLAnswer("/uploads/a.png"),
		domain.MultiAnswer([]string{"a", "b"}),
		domain.NumberAnswer(42.5),
		domain.BoolAnswer(false),
	}
	for _, v := range values {
		cols, err := answerColumnsFor(v)
		if err != nil {
			t.Fatalf("%s: columns: %v", v.Type, err)
		}
		got, err := cols.value(v.Type)
		if err != nil {
			t.Fatalf("%s: value: %v", v.Type, err)
		}
		if !got.Equal(v) {
			t.Fatalf("%s: expected %v, got %v", v.Type, v, got)
		}
	}
}

func TestAnswerColumnsOnlySetOneColumn(t *testing.T) {
	cols, _ := answerColumnsFor(domain.MultiAnswer([]string{"a"}))
	if cols.str == nil || *cols.str != `["a"]` || cols.num != nil || cols.flag != nil {
		t.Fatalf("expected list stored as a JSON string only, got %+v", cols)
	}
	cols, _ = answerColumnsFor(domain.BoolAnswer(true))
	if cols.flag == nil || !*cols.flag || cols.str != nil {
		t.Fatalf("expected boolean column only, got %+v", cols)
	}
}

func TestAnswerColumnsRejectUntypedValue(t *testing.T) {
	if _, err := answerColumnsFor(domain.AnswerValue{}); !errors.Is(err, domain.ErrInvalidAnswerType) {
		t.Fatalf("expected invalid answer type, got %v", err)
	}
}
