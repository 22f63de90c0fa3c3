package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/doorman-id/doorman/internal/bootstrap"
	"github.com/doorman-id/doorman/internal/data"
	"github.com/doorman-id/doorman/internal/domain/directory"
)

// connectDB opens the PostgreSQL connection used by admin commands. Redis is
// never needed here; the commands operate on durable state only.
func connectDB(logger *slog.Logger, cmdCtx *commandContext) (*sql.DB, error) {
	db, err := bootstrap.ConnectDB(bootstrap.DatabaseConfig{
		DBConfig: cmdCtx.Config.Postgres,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	return db, nil
}

func closeDB(db *sql.DB, logger *slog.Logger) {
	if err := db.Close(); err != nil {
		logger.Warn("db close failed", "error", err)
	}
}

// resolveProfile finds a directory profile by name. The env-configured
// default profile shadows database profiles with the same name.
func resolveProfile(ctx context.Context, cmdCtx *commandContext, db *sql.DB, name string) (*directory.Profile, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, cmdCtx.Config.Directory.Name) {
		p := cmdCtx.Config.Directory.Profile()
		return &p, nil
	}
	return data.NewProfileRepo(db).FindByName(ctx, name)
}

type migrateOptions struct {
	Timeout time.Duration
}

func parseMigrateFlags(args []string) (migrateOptions, error) {
	opts := migrateOptions{}
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.DurationVar(&opts.Timeout, "timeout", defaultMigrationTimeout, "maximum time to wait for migrations")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	return opts, nil
}

func runMigrateCommand(cmdCtx *commandContext, args []string) error {
	opts, err := parseMigrateFlags(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, opts.Timeout)
	defer cancel()

	db, err := connectDB(cmdCtx.Logger, cmdCtx)
	if err != nil {
		return err
	}
	defer closeDB(db, cmdCtx.Logger)

	return bootstrap.RunMigrations(ctx, db, cmdCtx.Logger)
}
