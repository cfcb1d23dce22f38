package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"diagnostic-quiz-service/internal/app"
	"diagnostic-quiz-service/internal/config"
	"diagnostic-quiz-service/internal/infra/memory"
	pgstore "diagnostic-quiz-service/internal/infra/postgres"
	redisstore "diagnostic-quiz-service/internal/infra/redis"
	"diagnostic-quiz-service/internal/infra/storage"
	"diagnostic-quiz-service/internal/quiz"
	transport "diagnostic-quiz-service/internal/transport/http"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.LoadOptional(configPath)
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	defer log.Sync()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	// reference data: in-process cache over Redis over Postgres (or the bundled set)
	var loader memory.ReferenceLoader = memory.NewBundledReferenceLoader()
	if pool != nil {
		loader = pgstore.NewReferenceLoader(pool)
	}
	if redisClient != nil {
		loader = redisstore.NewReferenceCache(redisClient, loader, config.TTLDuration(cfg.Redis.TTL, time.Hour))
	}
	reference := memory.NewReferenceCache(loader, referenceCacheTTL(cfg))

	var users app.UserRepository = memory.NewUserRepository()
	if pool != nil {
		users = pgstore.NewUserRepository(pool)
	}

	files, uploadDir, err := newFileStore(ctx, cfg)
	if err != nil {
		return err
	}

	service := app.NewQuizService(reference, users, files, log)

	snapshotMaxAge := config.TTLDuration(cfg.Quiz.SnapshotMaxAge, quiz.DefaultSnapshotMaxAge)
	var storageFactory transport.StorageFactory
	if redisClient != nil {
		snapshots := redisstore.NewSnapshotStore(redisClient, snapshotMaxAge)
		storageFactory = func(clientID string) quiz.Storage { return snapshots.ForClient(clientID) }
	}

	metrics := transport.NewMetrics()
	wsHandler := transport.NewWSHandler(service, transport.WSOptions{
		Storage:        storageFactory,
		Fallback:       cfg.FallbackEnabled(),
		SnapshotMaxAge: snapshotMaxAge,
		Metrics:        metrics,
		Log:            log,
	})

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	router := transport.NewRouter(transport.RouterOptions{
		Service:   service,
		WS:        wsHandler,
		Metrics:   metrics,
		Log:       log,
		UploadDir: uploadDir,
	})

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting quiz service", zap.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// referenceCacheTTL is the in-process reference cache expiry. Without an
// explicit reference_ttl the data is kept for the life of the process.
func referenceCacheTTL(cfg config.Config) time.Duration {
	return config.TTLDuration(cfg.Quiz.ReferenceTTL, 0)
}

// newFileStore returns the upload store and, for the local store, the
// directory to serve at /uploads.
func newFileStore(ctx context.Context, cfg config.Config) (app.FileStore, string, error) {
	switch cfg.Storage.Type {
	case "minio":
		store, err := storage.NewMinioStore(storage.MinioConfig{
			Endpoint:  cfg.Storage.Minio.Endpoint,
			AccessKey: cfg.Storage.Minio.AccessKey,
			SecretKey: cfg.Storage.Minio.SecretKey,
			Bucket:    cfg.Storage.Minio.Bucket,
			UseSSL:    cfg.Storage.Minio.UseSSL,
			PublicURL: cfg.Storage.Minio.PublicURL,
		})
		if err != nil {
			return nil, "", err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, "", err
		}
		return store, "", nil
	default:
		dir := cfg.Storage.LocalPath
		if dir == "" {
			dir = "uploads"
		}
		return storage.NewLocalStore(dir), dir, nil
	}
}
