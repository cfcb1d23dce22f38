package postgres

import (
	"context"
	"fmt"

	"diagnostic-quiz-service/internal/domain"
	"github.com/uptrace/bun"
)

type categoryRow struct {
	bun.BaseModel `bun:"table:categories"`

	ID        string `bun:"id,pk"`
	Title     string `bun:"title"`
	Subtitle  string `bun:"subtitle"`
	SortOrder int    `bun:"sort_order"`
}

type questionRow struct {
	bun.BaseModel `bun:"table:questions"`

	ID          string `bun:"id,pk"`
	Prompt      string `bun:"prompt"`
	Type        string `bun:"type"`
	Section     int    `bun:"section"`
	SortOrder   int    `bun:"sort_order"`
	Placeholder string `bun:"placeholder"`
	Disclaimer  string `bun:"disclaimer"`
	IsRequired  bool   `bun:"is_required"`
}

type optionRow struct {
	bun.BaseModel `bun:"table:options"`

	QuestionID string   `bun:"question_id,pk"`
	ID         string   `bun:"id,pk"`
	Label      string   `bun:"label"`
	SubLabel   string   `bun:"sub_label"`
	Value      string   `bun:"value"`
	Images     []string `bun:"images,type:jsonb"`
	SortOrder  int      `bun:"sort_order"`
}

// Seed upserts the reference data. Options of seeded questions are replaced.
func Seed(ctx context.Context, db *bun.DB, questions []domain.Question, categories []domain.Category) error {
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if len(categories) > 0 {
			cats := make([]categoryRow, 0, len(categories))
			for _, c := range categories {
				cats = append(cats, categoryRow{ID: c.ID, Title: c.Title, Subtitle: c.Subtitle, SortOrder: c.Order})
			}
			_, err := tx.NewInsert().Model(&cats).
				On("CONFLICT (id) DO UPDATE").
				Set("title = EXCLUDED.title").
				Set("subtitle = EXCLUDED.subtitle").
				Set("sort_order = EXCLUDED.sort_order").
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("seed categories: %w", err)
			}
		}
		if len(questions) == 0 {
			return nil
		}

		qs := make([]questionRow, 0, len(questions))
		ids := make([]string, 0, len(questions))
		var opts []optionRow
		for _, q := range questions {
			qs = append(qs, questionRow{
				ID:          q.ID,
				Prompt:      q.Prompt,
				Type:        string(q.Type),
				Section:     q.Section,
				SortOrder:   q.Order,
				Placeholder: q.Placeholder,
				Disclaimer:  q.Disclaimer,
				IsRequired:  q.Required,
			})
			ids = append(ids, q.ID)
			for _, o := range q.Options {
				images := o.Images
				if images == nil {
					images = []string{}
				}
				opts = append(opts, optionRow{
					QuestionID: q.ID,
					ID:         o.ID,
					Label:      o.Label,
					SubLabel:   o.SubLabel,
					Value:      o.Value,
					Images:     images,
					SortOrder:  o.Order,
				})
			}
		}

		_, err := tx.NewInsert().Model(&qs).
			On("CONFLICT (id) DO UPDATE").
			Set("prompt = EXCLUDED.prompt").
			Set("type = EXCLUDED.type").
			Set("section = EXCLUDED.section").
			Set("sort_order = EXCLUDED.sort_order").
			Set("placeholder = EXCLUDED.placeholder").
			Set("disclaimer = EXCLUDED.disclaimer").
			Set("is_required = EXCLUDED.is_required").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("seed questions: %w", err)
		}

		if _, err := tx.NewDelete().Model((*optionRow)(nil)).Where("question_id IN (?)", bun.In(ids)).Exec(ctx); err != nil {
			return fmt.Errorf("clear options: %w", err)
		}
		if len(opts) > 0 {
			if _, err := tx.NewInsert().Model(&opts).Exec(ctx); err != nil {
				return fmt.Errorf("seed options: %w", err)
			}
		}
		return nil
	})
}
