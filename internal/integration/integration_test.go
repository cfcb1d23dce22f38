package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"diagnostic-quiz-service/internal/app"
	"diagnostic-quiz-service/internal/catalog"
	"diagnostic-quiz-service/internal/domain"
	"diagnostic-quiz-service/internal/infra/memory"
	pgstore "diagnostic-quiz-service/internal/infra/postgres"
	pgmigrations "diagnostic-quiz-service/internal/infra/postgres/migrations"
	infraredis "diagnostic-quiz-service/internal/infra/redis"
	"diagnostic-quiz-service/internal/infra/storage"
	"diagnostic-quiz-service/internal/quiz"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestSubmissionEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrateAndSeed(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	loader := infraredis.NewReferenceCache(redisClient, pgstore.NewReferenceLoader(pool), 5*time.Minute)
	reference := memory.NewReferenceCache(loader, time.Minute)
	users := pgstore.NewUserRepository(pool)
	service := app.NewQuizService(reference, users, storage.NewLocalStore(t.TempDir()), nil)

	questions, err := service.Questions(ctx)
	if err != nil {
		t.Fatalf("questions: %v", err)
	}
	if len(questions) != len(catalog.FallbackQuestions()) {
		t.Fatalf("expected seeded questions, got %d", len(questions))
	}
	if n, err := redisClient.HLen(ctx, "quiz:ref:questions").Result(); err != nil || n != int64(len(questions)) {
		t.Fatalf("expected questions cached in redis, got %d (%v)", n, err)
	}

	snapshots := infraredis.NewSnapshotStore(redisClient, time.Hour)
	controller := quiz.NewController(quiz.Deps{
		Source:    service,
		Checker:   service,
		Submitter: service,
		Storage:   snapshots.ForClient("client-1"),
	})
	if err := controller.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if controller.View().UsedFallback {
		t.Fatalf("expected seeded questions, not the bundled fallback")
	}
	inputs := map[string]any{
		"name":            "Asha",
		"phone":           "98765 43210",
		"gender":          "female",
		"hair-loss-stage": "stage-2",
		"supplements":     "no",
	}
	for i := 0; controller.View().State == quiz.StateInProgress && i < len(questions); i++ {
		q := controller.View().Question
		raw, ok := inputs[q.ID]
		if !ok && len(q.Options) > 0 {
			raw = q.Options[0].Value
		}
		if raw != nil {
			if err := controller.Answer(ctx, raw); err != nil {
				t.Fatalf("answer %s: %v", q.ID, err)
			}
		}
		if err := controller.Next(ctx); err != nil {
			t.Fatalf("next on %s: %v", q.ID, err)
		}
	}
	view := controller.View()
	if view.State != quiz.StateComplete || view.SubmitErr != nil || view.Result == nil {
		t.Fatalf("expected successful submission, got %+v", view)
	}

	// resubmitting keeps one answer per question
	if _, err := service.Submit(ctx, domain.Submission{
		Phone:   "9876543210",
		Answers: map[string]domain.AnswerValue{"gender": domain.TextAnswer("male")},
	}); err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	records, err := users.ListAnswers(ctx, view.Result.UserID)
	if err != nil {
		t.Fatalf("list answers: %v", err)
	}
	seen := make(map[string]int)
	for _, rec := range records {
		seen[rec.QuestionID]++
		if rec.QuestionID == "gender" && rec.Value.Text() != "male" {
			t.Fatalf("expected gender updated, got %s", rec.Value)
		}
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("expected one answer for %s, got %d", id, n)
		}
	}

	status, err := service.CheckCompletion(ctx, "(987) 654-3210")
	if err != nil || !status.HasCompleted {
		t.Fatalf("expected completed status, got %+v %v", status, err)
	}

	// a new client with the same phone is stopped by the completion gate
	second := quiz.NewController(quiz.Deps{
		Source:    service,
		Checker:   service,
		Submitter: service,
		Storage:   snapshots.ForClient("client-2"),
	})
	if err := second.Start(ctx); err != nil {
		t.Fatalf("second start: %v", err)
	}
	for _, raw := range []string{"Asha", "9876543210"} {
		if err := second.Answer(ctx, raw); err != nil {
			t.Fatalf("second answer: %v", err)
		}
		if err := second.Next(ctx); err != nil {
			t.Fatalf("second next: %v", err)
		}
	}
	if second.View().State != quiz.StateAlreadyCompleted {
		t.Fatalf("expected already completed, got %s", second.View().State)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func migrateAndSeed(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := pgstore.Seed(ctx, db, catalog.FallbackQuestions(), catalog.FallbackCategories()); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
