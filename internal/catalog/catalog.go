package catalog

import (
	"context"
	"errors"
	"math"
	"sort"

	"diagnostic-quiz-service/internal/domain"
	"go.uber.org/zap"
)

// Catalog is a read-only, ordered view over questions and their categories.
type Catalog struct {
	questions  []domain.Question
	categories []domain.Category
	index      map[string]int
}

// New orders questions by (section, order); ties keep fetch order.
func New(questions []domain.Question, categories []domain.Category) *Catalog {
	ordered := make([]domain.Question, len(questions))
	copy(ordered, questions)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Section != ordered[j].Section {
			return ordered[i].Section < ordered[j].Section
		}
		return ordered[i].Order < ordered[j].Order
	})

	cats := make([]domain.Category, len(categories))
	copy(cats, categories)
	sort.SliceStable(cats, func(i, j int) bool { return cats[i].Order < cats[j].Order })

	index := make(map[string]int, len(ordered))
	for i, q := range ordered {
		if _, dup := index[q.ID]; !dup {
			index[q.ID] = i
		}
	}
	return &Catalog{questions: ordered, categories: cats, index: index}
}

// Ordered returns a copy of the questions in display order.
func (c *Catalog) Ordered() []domain.Question {
	out := make([]domain.Question, len(c.questions))
	copy(out, c.questions)
	return out
}

// Categories returns a copy of the categories in display order.
func (c *Catalog) Categories() []domain.Category {
	out := make([]domain.Category, len(c.categories))
	copy(out, c.categories)
	return out
}

func (c *Catalog) Len() int { return len(c.questions) }

// At returns the question at index i.
func (c *Catalog) At(i int) (domain.Question, bool) {
	if i < 0 || i >= len(c.questions) {
		return domain.Question{}, false
	}
	return c.questions[i], true
}

// Question looks a question up by ID.
func (c *Catalog) Question(id string) (domain.Question, bool) {
	i, ok := c.index[id]
	if !ok {
		return domain.Question{}, false
	}
	return c.questions[i], true
}

// IndexOf returns the position of question id, or -1.
func (c *Catalog) IndexOf(id string) int {
	if i, ok := c.index[id]; ok {
		return i
	}
	return -1
}

// SectionOf returns the section of the question at index. Past the end it
// reads as the last known section.
func (c *Catalog) SectionOf(index int) int {
	if len(c.questions) == 0 {
		return 0
	}
	if index < 0 {
		index = 0
	}
	if index >= len(c.questions) {
		return c.questions[len(c.questions)-1].Section
	}
	return c.questions[index].Section
}

// Sections lists distinct section numbers in order.
func (c *Catalog) Sections() []int {
	var out []int
	for _, q := range c.questions {
		if len(out) == 0 || out[len(out)-1] != q.Section {
			out = append(out, q.Section)
		}
	}
	return out
}

// CategoryFor returns the category whose order equals section.
func (c *Catalog) CategoryFor(section int) (domain.Category, bool) {
	for _, cat := range c.categories {
		if cat.Order == section {
			return cat, true
		}
	}
	return domain.Category{}, false
}

// FirstUnanswered returns the index of the first question without an answer,
// or Len() when every question is answered.
func (c *Catalog) FirstUnanswered(answered func(questionID string) bool) int {
	for i, q := range c.questions {
		if !answered(q.ID) {
			return i
		}
	}
	return len(c.questions)
}

// ProgressPercent is round(100 * index / total).
func ProgressPercent(index, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(index) / float64(total)))
}

// Source provides reference data.
type Source interface {
	Questions(ctx context.Context) ([]domain.Question, error)
	Categories(ctx context.Context) ([]domain.Category, error)
}

// LoadOrFallback builds a catalog from source and falls back to the bundled
// set when the fetch fails or yields no questions. The returned bool reports
// whether the fallback was used.
func LoadOrFallback(ctx context.Context, source Source, log *zap.Logger) (*Catalog, bool) {
	questions, err := source.Questions(ctx)
	if err == nil && len(questions) == 0 {
		err = errors.New("no questions returned")
	}
	if err != nil {
		log.Warn("reference data unavailable, using bundled questions", zap.Error(err))
		return Fallback(), true
	}

	categories, err := source.Categories(ctx)
	if err != nil {
		log.Warn("categories unavailable, using bundled categories", zap.Error(err))
		categories = FallbackCategories()
	}
	return New(questions, categories), false
}
