package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"diagnostic-quiz-service/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// UserRepository stores users and their answers in Postgres.
type UserRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool, now: time.Now}
}

const userColumns = `id, phone, name, email, created_at, updated_at`

// UpsertUser inserts the user for phone or updates the non-empty fields given.
func (r *UserRepository) UpsertUser(ctx context.Context, phone, name, email string) (domain.User, error) {
	now := r.now()
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (id, phone, name, email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (phone) DO UPDATE SET
			name = COALESCE(NULLIF(EXCLUDED.name, ''), users.name),
			email = COALESCE(NULLIF(EXCLUDED.email, ''), users.email),
			updated_at = EXCLUDED.updated_at
		RETURNING `+userColumns,
		uuid.NewString(), phone, name, email, now)
	user, err := scanUser(row)
	if err != nil {
		return domain.User{}, fmt.Errorf("upsert user: %w", err)
	}
	return user, nil
}

func (r *UserRepository) FindUserByPhone(ctx context.Context, phone string) (domain.User, error) {
	return r.findUser(ctx, `SELECT `+userColumns+` FROM users WHERE phone = $1`, phone)
}

func (r *UserRepository) FindUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.findUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1 AND email <> '' ORDER BY created_at LIMIT 1`, email)
}

func (r *UserRepository) FindUserByID(ctx context.Context, id string) (domain.User, error) {
	return r.findUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepository) findUser(ctx context.Context, query, arg string) (domain.User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

// UpsertAnswers writes one row per (user, question) in a single transaction.
func (r *UserRepository) UpsertAnswers(ctx context.Context, userID string, records []domain.AnswerRecord) error {
	now := r.now()
	return r.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
			return fmt.Errorf("check user: %w", err)
		}
		if !exists {
			return domain.ErrUserNotFound
		}
		for _, rec := range records {
			cols, err := answerColumnsFor(rec.Value)
			if err != nil {
				return err
			}
			_, err = tx.Exec(ctx, `
				INSERT INTO answers (user_id, question_id, answer_type, string_value, number_value, boolean_value, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				ON CONFLICT (user_id, question_id) DO UPDATE SET
					answer_type = EXCLUDED.answer_type,
					string_value = EXCLUDED.string_value,
					number_value = EXCLUDED.number_value,
					boolean_value = EXCLUDED.boolean_value,
					updated_at = EXCLUDED.updated_at`,
				userID, rec.QuestionID, string(rec.Value.Type), cols.str, cols.num, cols.flag, now)
			if err != nil {
				return fmt.Errorf("upsert answer %s: %w", rec.QuestionID, err)
			}
		}
		return nil
	})
}

func (r *UserRepository) CountAnswers(ctx context.Context, userID string) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM answers WHERE user_id = $1`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count answers: %w", err)
	}
	return n, nil
}

func (r *UserRepository) ListAnswers(ctx context.Context, userID string) ([]domain.AnswerRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT question_id, answer_type, string_value, number_value, boolean_value, updated_at
		FROM answers
		WHERE user_id = $1
		ORDER BY question_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	defer rows.Close()

	var out []domain.AnswerRecord
	for rows.Next() {
		var (
			rec     domain.AnswerRecord
			rawType string
			cols    answerColumns
		)
		if err := rows.Scan(&rec.QuestionID, &rawType, &cols.str, &cols.num, &cols.flag, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		value, err := cols.value(domain.AnswerType(rawType))
		if err != nil {
			return nil, fmt.Errorf("decode answer %s: %w", rec.QuestionID, err)
		}
		rec.UserID = userID
		rec.Value = value
		out = append(out, rec)
	}
	return out, rows.Err()
}

// answerColumns is the nullable column triple an answer is stored in.
type answerColumns struct {
	str  *string
	num  *float64
	flag *bool
}

func answerColumnsFor(v domain.AnswerValue) (answerColumns, error) {
	switch v.Type {
	case domain.AnswerString, domain.AnswerSingle, domain.AnswerImageURL:
		s := v.Text()
		return answerColumns{str: &s}, nil
	case domain.AnswerMultiple:
		s, err := domain.EncodeList(v.List())
		if err != nil {
			return answerColumns{}, err
		}
		return answerColumns{str: &s}, nil
	case domain.AnswerNumber:
		n := v.Number()
		return answerColumns{num: &n}, nil
	case domain.AnswerBoolean:
		b := v.Bool()
		return answerColumns{flag: &b}, nil
	}
	return answerColumns{}, fmt.Errorf("%w: %w %q", domain.ErrValidation, domain.ErrInvalidAnswerType, v.Type)
}

func (c answerColumns) value(t domain.AnswerType) (domain.AnswerValue, error) {
	var (
		str  string
		num  float64
		flag bool
	)
	if c.str != nil {
		str = *c.str
	}
	if c.num != nil {
		num = *c.num
	}
	if c.flag != nil {
		flag = *c.flag
	}
	return domain.AnswerFromStored(t, str, num, flag)
}

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Phone, &u.Name, &u.Email, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}
