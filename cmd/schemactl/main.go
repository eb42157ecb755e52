package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/ksred/schemactl/internal/config"
	"github.com/ksred/schemactl/internal/database"
	"github.com/ksred/schemactl/internal/migrate"
	"github.com/ksred/schemactl/internal/migrations"
	"github.com/ksred/schemactl/internal/utils"
)

const version = "v0.1.0"

const usage = `Usage: schemactl [-config path] <command> [arguments]

Commands:
  run-pending            apply all pending migrations
  rollback [-count n]    roll back the last n applied migrations (default 1)
  rollback-to <name>     roll back everything applied after <name>
  status                 list applied and pending migrations
`

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.LoadConfigOrDefault(configPath)

	logger := setupLogging(cfg)
	logger.Info().Str("version", version).Str("command", args[0]).Msg("Starting schemactl")

	// Interruption cancels the run between steps; a step in flight either
	// rolls back with its transaction or commits together with its ledger
	// update.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Warn().Str("signal", sig.String()).Msg("Received shutdown signal, cancelling run")
		cancel()
	}()

	db, err := connectToDatabase(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close database connection")
		}
	}()

	lock := database.NewAdvisoryLock(db.DB(), cfg.Migrate.LockKey)
	migrator := migrate.NewMigrator(db.DB(), migrations.NewSource(), lock, logger)

	os.Exit(runCommand(ctx, migrator, logger, args))
}

// runCommand dispatches a subcommand and returns the process exit code
func runCommand(ctx context.Context, migrator *migrate.Migrator, logger zerolog.Logger, args []string) int {
	command, rest := args[0], args[1:]

	switch command {
	case "run-pending":
		result, err := migrator.Up(ctx)
		return emitResult(logger, result, err)

	case "rollback":
		fs := flag.NewFlagSet("rollback", flag.ExitOnError)
		count := fs.Int("count", 1, "Number of migrations to roll back")
		fs.Parse(rest)

		result, err := migrator.Down(ctx, *count)
		return emitResult(logger, result, err)

	case "rollback-to":
		if len(rest) != 1 {
			fmt.Fprintln(os.Stderr, "rollback-to requires exactly one migration name")
			return 2
		}

		result, err := migrator.DownTo(ctx, rest[0])
		return emitResult(logger, result, err)

	case "status":
		status, err := migrator.Status(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to read migration status")
			return 1
		}
		printJSON(status)
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n%s", command, usage)
		return 2
	}
}

// emitResult prints the machine-readable result and maps it to an exit code.
// Planning errors produce no Result; they are reported in the same shape so
// callers can always parse stdout.
func emitResult(logger zerolog.Logger, result *migrate.Result, err error) int {
	if result == nil {
		result = &migrate.Result{
			Success:   false,
			Completed: []string{},
		}
		if err != nil {
			result.Cause = err.Error()
		}
	}
	printJSON(result)

	if err != nil {
		logger.Error().Err(err).Msg("Migration run failed")
		return 1
	}
	return 0
}

func printJSON(v interface{}) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode result: %v\n", err)
	}
}

// setupLogging configures the logger based on configuration
func setupLogging(cfg *config.Config) zerolog.Logger {
	logConfig := utils.LoggerConfig{
		Level:  cfg.Server.LogLevel,
		Pretty: cfg.Server.Debug,
	}
	if cfg.Server.Debug {
		logConfig.Level = "debug"
		logConfig.CallerInfo = true
	}
	return utils.NewLogger(logConfig)
}

// connectToDatabase establishes the database connection
func connectToDatabase(cfg *config.Config, logger zerolog.Logger) (*database.Database, error) {
	logger.Debug().
		Str("host", cfg.Database.Host).
		Int("port", cfg.Database.Port).
		Str("dbname", cfg.Database.DBName).
		Msg("Connecting to database")

	db := database.NewDatabase(cfg.Database)
	if err := db.Connect(); err != nil {
		return nil, err
	}
	return db, nil
}
