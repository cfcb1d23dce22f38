package catalog

import (
	"context"
	"errors"
	"math"
	"testing"

	"diagnostic-quiz-service/internal/domain"
	"go.uber.org/zap"
	"pgregory.net/rapid"
)

func TestOrderedIsStableBySectionThenOrder(t *testing.T) {
	c := New([]domain.Question{
		{ID: "c", Section: 2, Order: 1},
		{ID: "a", Section: 1, Order: 2},
		{ID: "tie-first", Section: 1, Order: 1},
		{ID: "tie-second", Section: 1, Order: 1},
	}, nil)

	want := []string{"tie-first", "tie-second", "a", "c"}
	got := c.Ordered()
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, got[i].ID)
		}
	}
	if c.IndexOf("c") != 3 || c.IndexOf("missing") != -1 {
		t.Fatalf("unexpected index lookups")
	}
}

func TestSectionOfPastEndReadsAsLastSection(t *testing.T) {
	c := Fallback()
	if got := c.SectionOf(0); got != 1 {
		t.Fatalf("expected section 1, got %d", got)
	}
	if got := c.SectionOf(c.Len()); got != 4 {
		t.Fatalf("expected last section 4 past the end, got %d", got)
	}
	if got := c.Sections(); len(got) != 4 {
		t.Fatalf("expected 4 sections, got %v", got)
	}
	cat, ok := c.CategoryFor(2)
	if !ok || cat.Title != "Hair" {
		t.Fatalf("expected Hair category, got %+v", cat)
	}
}

func TestProgressPercentProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		total := rapid.IntRange(1, 200).Draw(rt, "total")
		index := rapid.IntRange(0, total-1).Draw(rt, "index")

		got := ProgressPercent(index, total)
		want := int(math.Round(100 * float64(index) / float64(total)))
		if got != want {
			rt.Fatalf("ProgressPercent(%d, %d) = %d, want %d", index, total, got, want)
		}
		if got < 0 || got > 100 {
			rt.Fatalf("progress out of range: %d", got)
		}
	})
	if ProgressPercent(3, 0) != 0 {
		t.Fatalf("expected zero total to yield 0")
	}
	if ProgressPercent(10, 10) != 100 {
		t.Fatalf("expected full progress at index == total")
	}
}

func TestFirstUnanswered(t *testing.T) {
	c := Fallback()
	answered := map[string]bool{"name": true, "phone": true}
	if got := c.FirstUnanswered(func(id string) bool { return answered[id] }); got != 2 {
		t.Fatalf("expected index 2, got %d", got)
	}
	if got := c.FirstUnanswered(func(string) bool { return true }); got != c.Len() {
		t.Fatalf("expected Len when everything answered, got %d", got)
	}
}

type failingSource struct{}

func (failingSource) Questions(context.Context) ([]domain.Question, error) {
	return nil, domain.ErrDataUnavailable
}

func (failingSource) Categories(context.Context) ([]domain.Category, error) {
	return nil, errors.New("unreachable")
}

func TestLoadOrFallbackUsesBundledSet(t *testing.T) {
	c, fellBack := LoadOrFallback(context.Background(), failingSource{}, zap.NewNop())
	if !fellBack {
		t.Fatalf("expected fallback to be used")
	}
	if c.Len() != len(FallbackQuestions()) {
		t.Fatalf("expected %d bundled questions, got %d", len(FallbackQuestions()), c.Len())
	}
}
