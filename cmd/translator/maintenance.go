package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/tbourn/go-translate-backend/internal/app"
	"github.com/tbourn/go-translate-backend/internal/config"
	"github.com/tbourn/go-translate-backend/internal/repo"
	"github.com/tbourn/go-translate-backend/internal/services"
)

func newMigrateCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the schema, seed languages and purge expired cache entries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			return withDB(cfg, func(db *gorm.DB) error {
				return migrate(cmd.Context(), cfg, db)
			})
		},
	}
}

func migrate(ctx context.Context, cfg config.Config, db *gorm.DB) error {
	n, err := app.Migrate(ctx, db, cfg.Translation.LanguagesFile)
	if err != nil {
		return err
	}
	purged, err := (&services.CacheService{DB: db, TTL: cfg.Translation.CacheTTL}).PurgeExpired(ctx)
	if err != nil {
		return err
	}
	log.Info().Int("languages", n).Int64("cache_purged", purged).Msg("migration complete")
	return nil
}

type grantOptions struct {
	user    string
	credits int
	days    int
}

func newGrantCreditsCmd(root *rootOptions) *cobra.Command {
	opts := &grantOptions{}
	cmd := &cobra.Command{
		Use:     "grant-credits",
		Short:   "Start a new credit period for a user",
		Example: "  translator grant-credits --user alice --credits 500 --days 30",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.validate(); err != nil {
				return err
			}
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			return withDB(cfg, func(db *gorm.DB) error {
				if err := repo.AutoMigrate(db.WithContext(cmd.Context())); err != nil {
					return err
				}
				l, err := (&services.CreditService{DB: db}).Grant(cmd.Context(), opts.user, opts.credits, time.Duration(opts.days)*24*time.Hour)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d credits until %s\n",
					l.UserID, l.CreditsAvailable, l.PeriodEnd.Format(time.RFC3339))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&opts.user, "user", "", "user ID (required)")
	cmd.Flags().IntVar(&opts.credits, "credits", 0, "credits available in the period")
	cmd.Flags().IntVar(&opts.days, "days", 30, "period length in days")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func (o *grantOptions) validate() error {
	o.user = strings.TrimSpace(o.user)
	switch {
	case o.user == "":
		return errors.New("--user must not be empty")
	case o.credits < 0:
		return errors.New("--credits must be >= 0")
	case o.days < 1:
		return errors.New("--days must be >= 1")
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "translator %s\n", version)
		},
	}
}

func withDB(cfg config.Config, fn func(db *gorm.DB) error) error {
	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	return fn(db)
}
