package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/doorman-id/doorman/internal/adapters/adldap"
	"github.com/doorman-id/doorman/internal/data"
	"github.com/doorman-id/doorman/internal/domain/directory"
	"github.com/doorman-id/doorman/internal/service"
)

type syncRolesOptions struct {
	Profile string
	Timeout time.Duration
}

func parseSyncRolesFlags(args []string) (syncRolesOptions, error) {
	opts := syncRolesOptions{}
	fs := flag.NewFlagSet("sync-roles", flag.ContinueOnError)
	fs.StringVar(&opts.Profile, "profile", "", "directory profile name (defaults to the env-configured profile)")
	fs.DurationVar(&opts.Timeout, "timeout", 10*time.Minute, "maximum time for the full sync run")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	return opts, nil
}

func runSyncRoles(cmdCtx *commandContext, args []string) error {
	opts, err := parseSyncRolesFlags(args)
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

	profile, err := resolveProfile(ctx, cmdCtx, db, opts.Profile)
	if err != nil {
		return fmt.Errorf("resolve profile: %w", err)
	}

	users := data.NewUserRepo(db)
	roleSync := service.NewRoleSyncService(service.RoleSyncServiceOptions{
		Config:      cmdCtx.Config.Sync,
		Users:       users,
		SuperAdmins: users,
		Logger:      cmdCtx.Logger,
	})

	res, err := roleSync.SyncAll(ctx, adldap.NewDialer(cmdCtx.Logger), *profile)
	if err != nil {
		return fmt.Errorf("sync roles: %w", err)
	}

	return printSyncResult(os.Stdout, profile.Name, res)
}

func printSyncResult(w io.Writer, profileName string, res service.SyncAllResult) error {
	if err := writef(w, "Role sync against profile %q complete\n", profileName); err != nil {
		return err
	}
	if err := writef(w, "  synced:  %d\n  skipped: %d\n  failed:  %d\n", res.Synced, res.Skipped, res.Failed); err != nil {
		return err
	}
	if res.Failed > 0 {
		return writef(w, "Status: completed with errors; see log output for per-user details\n")
	}
	return writef(w, "Status: ok\n")
}

type testConnectionOptions struct {
	Profile string
	Timeout time.Duration
}

func parseTestConnectionFlags(args []string) (testConnectionOptions, error) {
	opts := testConnectionOptions{}
	fs := flag.NewFlagSet("test-connection", flag.ContinueOnError)
	fs.StringVar(&opts.Profile, "profile", "", "directory profile name (defaults to the env-configured profile)")
	fs.DurationVar(&opts.Timeout, "timeout", 30*time.Second, "connection attempt timeout")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	return opts, nil
}

func runTestConnection(cmdCtx *commandContext, args []string) error {
	opts, err := parseTestConnectionFlags(args)
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

	profile, err := resolveProfile(ctx, cmdCtx, db, opts.Profile)
	if err != nil {
		return fmt.Errorf("resolve profile: %w", err)
	}

	conn, err := adldap.NewDialer(cmdCtx.Logger).Open(ctx, *profile)
	if err != nil {
		return fmt.Errorf("connect to %q: %w", profile.Name, err)
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("directory connection close failed", "error", closeErr)
		}
	}()

	return writef(os.Stdout, "Connection to profile %q OK (hosts: %s)\n",
		profile.Name, strings.Join(profile.Hosts, ", "))
}

func runListProfiles(cmdCtx *commandContext, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("list-profiles takes no arguments")
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, 30*time.Second)
	defer cancel()

	db, err := connectDB(cmdCtx.Logger, cmdCtx)
	if err != nil {
		return err
	}
	defer closeDB(db, cmdCtx.Logger)

	stored, err := data.NewProfileRepo(db).FindAll(ctx)
	if err != nil {
		return fmt.Errorf("load profiles: %w", err)
	}

	// The env-configured default is always consulted first.
	profiles := append([]directory.Profile{cmdCtx.Config.Directory.Profile()}, stored...)

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err := writef(tw, "NAME\tHOSTS\tPORT\tENCRYPTION\tSUFFIXES\tSSO\n"); err != nil {
		return err
	}
	for i, p := range profiles {
		name := p.Name
		if i == 0 {
			name += " (env)"
		}
		suffixes := p.AccountSuffixes
		if p.IsWildcard() {
			suffixes = "*"
		}
		if err := writef(tw, "%s\t%s\t%d\t%s\t%s\t%t\n",
			name, strings.Join(p.Hosts, ","), p.Port, p.Encryption, suffixes, p.SSOIsEnabled()); err != nil {
			return err
		}
	}
	return tw.Flush()
}
