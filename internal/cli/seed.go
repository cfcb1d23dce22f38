package cli

import (
	"diagnostic-quiz-service/internal/catalog"
	"diagnostic-quiz-service/internal/config"
	"diagnostic-quiz-service/internal/infra/postgres"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewSeedCmd loads the bundled question set into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed questions and categories into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log := newLogger(cfg)
			defer log.Sync()

			ctx := cmd.Context()
			if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
				return err
			}
			db, err := openBun(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			questions := catalog.FallbackQuestions()
			categories := catalog.FallbackCategories()
			if err := postgres.Seed(ctx, db, questions, categories); err != nil {
				return err
			}
			log.Info("reference data seeded", zap.Int("questions", len(questions)), zap.Int("categories", len(categories)))
			return nil
		},
	}
}
