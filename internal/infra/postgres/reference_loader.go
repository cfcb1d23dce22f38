package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"diagnostic-quiz-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ReferenceLoader loads questions, options and categories from Postgres.
type ReferenceLoader struct {
	pool *pgxpool.Pool
}

func NewReferenceLoader(pool *pgxpool.Pool) *ReferenceLoader {
	return &ReferenceLoader{pool: pool}
}

func (l *ReferenceLoader) LoadQuestions(ctx context.Context) ([]domain.Question, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id, prompt, type, section, sort_order, placeholder, disclaimer, is_required
		FROM questions
		ORDER BY section, sort_order, id`)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	index := make(map[string]int)
	for rows.Next() {
		var q domain.Question
		var qtype string
		if err := rows.Scan(&q.ID, &q.Prompt, &qtype, &q.Section, &q.Order, &q.Placeholder, &q.Disclaimer, &q.Required); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		q.Type = domain.QuestionType(qtype)
		index[q.ID] = len(questions)
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}

	optRows, err := l.pool.Query(ctx, `
		SELECT question_id, id, label, sub_label, value, images, sort_order
		FROM options
		ORDER BY question_id, sort_order, id`)
	if err != nil {
		return nil, fmt.Errorf("load options: %w", err)
	}
	defer optRows.Close()

	for optRows.Next() {
		var questionID string
		var opt domain.Option
		var images []byte
		if err := optRows.Scan(&questionID, &opt.ID, &opt.Label, &opt.SubLabel, &opt.Value, &images, &opt.Order); err != nil {
			return nil, fmt.Errorf("scan option: %w", err)
		}
		if len(images) > 0 {
			if err := json.Unmarshal(images, &opt.Images); err != nil {
				return nil, fmt.Errorf("unmarshal option images: %w", err)
			}
		}
		i, ok := index[questionID]
		if !ok {
			continue
		}
		questions[i].Options = append(questions[i].Options, opt)
	}
	if err := optRows.Err(); err != nil {
		return nil, fmt.Errorf("load options: %w", err)
	}
	return questions, nil
}

func (l *ReferenceLoader) LoadCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := l.pool.Query(ctx, `SELECT id, title, subtitle, sort_order FROM categories ORDER BY sort_order, id`)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	defer rows.Close()

	var categories []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Title, &c.Subtitle, &c.Order); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	return categories, nil
}
