// Command translator runs the translation API and its maintenance tasks.
//
//	@title			Translation API
//	@version		1.0
//	@description	Content translation with AI providers, caching, credit quotas and quality review.
//	@BasePath		/api/v1
package main

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	_ "github.com/tbourn/go-translate-backend/docs"
	"github.com/tbourn/go-translate-backend/internal/config"
	"github.com/tbourn/go-translate-backend/internal/sysutil"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("translator failed")
		os.Exit(1)
	}
}

type rootOptions struct {
	envFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	serve := newServeCmd(opts)

	root := &cobra.Command{
		Use:           "translator",
		Short:         "AI-backed content translation service",
		Long:          "translator serves the translation HTTP API. Without a subcommand it behaves like `translator serve`.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	root.Flags().AddFlagSet(serve.Flags())

	root.AddCommand(serve, newMigrateCmd(opts), newGrantCreditsCmd(opts), newVersionCmd())
	return root
}

// loadConfig reads the dotenv file (a missing file is fine), loads the
// configuration and sets up the global logger from it.
func loadConfig(opts *rootOptions) (config.Config, error) {
	if opts.envFile != "" {
		if err := godotenv.Load(opts.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return config.Config{}, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	sysutil.SetupLogger(os.Stdout, cfg.LogLevel, cfg.LogPretty, cfg.OTEL.ServiceName)
	return cfg, nil
}
