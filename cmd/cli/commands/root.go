package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kushtati/kushtati-immo-api/internal/app"
	"github.com/kushtati/kushtati-immo-api/internal/infrastructure/logger"
	"github.com/kushtati/kushtati-immo-api/pkg/config"
)

var (
	// Global flags
	storageDriver string
	jsonOutput    bool
	verbose       bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "kushtati",
	Short: "Kushtati Immo operator tool",
	Long: `kushtati manages the Kushtati Immo rental database from the command line.

It reads the same environment (and optional .env file) as the API server.

Commands:
  migrate           - Apply the database schema
  seed              - Load the demonstration data set
  check             - Verify database and Redis connectivity
  expire-contracts  - Close active contracts whose end date has passed
  purge-user        - Delete an account with everything that depends on it
  token             - Issue a bearer token for an account`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&storageDriver, "storage", "", "Override STORAGE_DRIVER (postgres or memory)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log to stderr at debug level")

	rootCmd.AddCommand(migrateCmd, seedCmd, checkCmd, expireCmd, purgeUserCmd, tokenCmd)
}

// env is what a command needs from configuration.
type env struct {
	cfg     *config.Config
	log     *slog.Logger
	storage *app.Storage
}

func (e *env) Close() {
	if e.storage != nil {
		if err := e.storage.Close(); err != nil {
			e.log.Warn("close storage", slog.String("error", err.Error()))
		}
	}
}

// loadEnv reads configuration and builds the command logger. Logs go to
// stderr so stdout stays parseable.
func loadEnv() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if storageDriver != "" {
		cfg.StorageDriver = storageDriver
	}
	level := "warn"
	if verbose {
		level = "debug"
	}
	return cfg, logger.New(os.Stderr, level), nil
}

// openEnv loads configuration and connects storage.
func openEnv(ctx context.Context) (*env, error) {
	cfg, log, err := loadEnv()
	if err != nil {
		return nil, err
	}
	st, err := app.OpenStorage(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: log, storage: st}, nil
}

// printResult writes v as JSON with --json, and calls text otherwise.
func printResult(w io.Writer, v any, text func(io.Writer)) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}
