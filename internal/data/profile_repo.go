package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/doorman-id/doorman/internal/data/pgxutil"
	"github.com/doorman-id/doorman/internal/domain/directory"
	apperrors "github.com/doorman-id/doorman/internal/errors"
	"github.com/doorman-id/doorman/internal/ports"
)

// ProfileRepo provides database operations for directory connection profiles.
// FindAll returns profiles in insertion order, which defines the matching
// precedence of the profile locator.
type ProfileRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

var _ ports.ProfileSource = (*ProfileRepo)(nil)

// NewProfileRepo creates a new ProfileRepo with real time provider.
func NewProfileRepo(db *sql.DB) *ProfileRepo {
	return &ProfileRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// profileRow is the row shape of directory_profiles. Hosts and suffixes are
// stored as semicolon-separated text to keep the table trivially editable.
type profileRow struct {
	ID                    int64     `db:"id"`
	Name                  string    `db:"name"`
	Hosts                 string    `db:"hosts"`
	Port                  int       `db:"port"`
	Encryption            string    `db:"encryption"`
	NetworkTimeoutSeconds int       `db:"network_timeout_seconds"`
	BaseDN                string    `db:"base_dn"`
	BindDN                string    `db:"bind_dn"`
	BindPassword          string    `db:"bind_password"`
	AccountSuffixes       string    `db:"account_suffixes"`
	SSOEnabled            *bool     `db:"sso_enabled"`
	CreatedAt             time.Time `db:"created_at"`
	UpdatedAt             time.Time `db:"updated_at"`
}

func (row profileRow) toProfile() (directory.Profile, error) {
	var enc directory.Encryption
	if err := enc.UnmarshalText([]byte(row.Encryption)); err != nil {
		return directory.Profile{}, fmt.Errorf("profile %q: %w", row.Name, err)
	}
	return directory.Profile{
		ID:              fmt.Sprintf("%d", row.ID),
		Name:            row.Name,
		Hosts:           directory.SplitList(row.Hosts),
		Port:            row.Port,
		Encryption:      enc,
		NetworkTimeout:  time.Duration(row.NetworkTimeoutSeconds) * time.Second,
		BaseDN:          row.BaseDN,
		BindDN:          row.BindDN,
		BindPassword:    row.BindPassword,
		AccountSuffixes: row.AccountSuffixes,
		SSOEnabled:      row.SSOEnabled,
	}, nil
}

const profileColumns = `id, name, hosts, port, encryption, network_timeout_seconds,
	base_dn, bind_dn, bind_password, account_suffixes, sso_enabled, created_at, updated_at`

// FindAll returns all stored profiles in insertion order.
func (r *ProfileRepo) FindAll(ctx context.Context) ([]directory.Profile, error) {
	var rowsOut []profileRow
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+profileColumns+`
			FROM directory_profiles
			ORDER BY id ASC`)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[profileRow])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list directory profiles: %w", err)
	}

	profiles := make([]directory.Profile, 0, len(rowsOut))
	for _, row := range rowsOut {
		p, err := row.toProfile()
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// FindByName retrieves a profile by name, case-insensitively.
func (r *ProfileRepo) FindByName(ctx context.Context, name string) (*directory.Profile, error) {
	var row profileRow
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+profileColumns+`
			FROM directory_profiles
			WHERE LOWER(name) = LOWER($1)`, name)
		if err != nil {
			return err
		}
		defer rows.Close()
		row, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[profileRow])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFoundf("no directory profile named %q", name)
		}
		return nil, fmt.Errorf("failed to get directory profile: %w", err)
	}

	p, err := row.toProfile()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Save inserts a new profile.
func (r *ProfileRepo) Save(ctx context.Context, p directory.Profile) (*directory.Profile, error) {
	if strings.TrimSpace(p.Name) == "" {
		return nil, apperrors.Validation("profile name is required")
	}
	if len(p.Hosts) == 0 {
		return nil, apperrors.Validation("profile needs at least one host")
	}
	if strings.TrimSpace(p.BaseDN) == "" {
		return nil, apperrors.Validation("profile base DN is required")
	}

	now := r.timeProvider.Now().UTC()
	var row profileRow
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO directory_profiles (
				name, hosts, port, encryption, network_timeout_seconds,
				base_dn, bind_dn, bind_password, account_suffixes, sso_enabled,
				created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
			RETURNING `+profileColumns,
			strings.TrimSpace(p.Name),
			strings.Join(p.Hosts, ";"),
			p.Port,
			string(p.Encryption),
			int(p.NetworkTimeout/time.Second),
			p.BaseDN,
			p.BindDN,
			p.BindPassword,
			p.AccountSuffixes,
			p.SSOEnabled,
			now,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		row, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[profileRow])
		return err
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, apperrors.Conflict(fmt.Sprintf("directory profile %q already exists", p.Name))
		}
		return nil, fmt.Errorf("failed to create directory profile: %w", err)
	}

	out, err := row.toProfile()
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes a profile by name. Returns whether a row was deleted.
func (r *ProfileRepo) Delete(ctx context.Context, name string) (bool, error) {
	var rows int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx,
			`DELETE FROM directory_profiles WHERE LOWER(name) = LOWER($1)`, name)
		if err != nil {
			return err
		}
		rows = ct.RowsAffected()
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete directory profile: %w", err)
	}
	return rows > 0, nil
}
