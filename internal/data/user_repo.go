package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/doorman-id/doorman/internal/data/pgxutil"
	domainauth "github.com/doorman-id/doorman/internal/domain/auth"
	apperrors "github.com/doorman-id/doorman/internal/errors"
	"github.com/doorman-id/doorman/internal/ports"
)

// UserRepo provides database operations for users and their role grants.
type UserRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

var (
	_ ports.UserStore         = (*UserRepo)(nil)
	_ ports.SuperAdminGranter = (*UserRepo)(nil)
)

// NewUserRepo creates a new UserRepo with real time provider.
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewUserRepoWithTimeProvider creates a new UserRepo with a custom time provider (useful for tests).
func NewUserRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *UserRepo {
	return &UserRepo{DB: db, timeProvider: tp}
}

const userColumns = `id, username, user_principal_name, email, display_name, super_admin, created_at, updated_at`

// FindByUPN retrieves a user by userPrincipalName, case-insensitively.
func (r *UserRepo) FindByUPN(ctx context.Context, upn string) (*domainauth.User, error) {
	if strings.TrimSpace(upn) == "" {
		return nil, apperrors.Validation("userPrincipalName is required")
	}

	var user domainauth.User
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+userColumns+`
			FROM users
			WHERE LOWER(user_principal_name) = LOWER($1)`, upn)
		if err != nil {
			return err
		}
		defer rows.Close()
		user, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[domainauth.User])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFoundf("no user for principal %q", upn)
		}
		return nil, fmt.Errorf("failed to get user by UPN: %w", err)
	}
	return &user, nil
}

// Create inserts a new user from a directory identity.
func (r *UserRepo) Create(ctx context.Context, nu ports.NewUser) (*domainauth.User, error) {
	if strings.TrimSpace(nu.Username) == "" {
		return nil, apperrors.Validation("username is required")
	}
	if strings.TrimSpace(nu.UserPrincipalName) == "" {
		return nil, apperrors.Validation("userPrincipalName is required")
	}

	now := r.timeProvider.Now().UTC()
	var user domainauth.User
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO users (username, user_principal_name, email, display_name, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $5)
			RETURNING `+userColumns,
			strings.TrimSpace(nu.Username),
			strings.TrimSpace(nu.UserPrincipalName),
			strings.TrimSpace(nu.Email),
			strings.TrimSpace(nu.DisplayName),
			now,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		user, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[domainauth.User])
		return err
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, apperrors.Conflict(fmt.Sprintf("user %q already exists", nu.Username))
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &user, nil
}

// UpdateAttributes refreshes the directory-sourced attributes of an existing
// user. Empty identity fields leave the stored value untouched.
func (r *UserRepo) UpdateAttributes(ctx context.Context, userID string, identity *domainauth.Identity) error {
	if userID == "" {
		return apperrors.Validation("user ID is required")
	}
	if !identity.Valid() {
		return apperrors.Validation("identity is incomplete")
	}

	displayName := strings.TrimSpace(strings.TrimSpace(identity.GivenName + " " + identity.Surname))

	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx, `
			UPDATE users SET
				email        = CASE WHEN $2 <> '' THEN $2 ELSE email END,
				display_name = CASE WHEN $3 <> '' THEN $3 ELSE display_name END,
				updated_at   = $4
			WHERE id = $1`,
			userID,
			strings.TrimSpace(identity.Mail),
			displayName,
			r.timeProvider.Now().UTC(),
		)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NotFoundf("no user with ID %q", userID)
		}
		return fmt.Errorf("failed to update user attributes: %w", err)
	}
	return nil
}

// List retrieves users with pagination, ordered by creation time.
func (r *UserRepo) List(ctx context.Context, limit, offset int) ([]*domainauth.User, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var rowsOut []domainauth.User
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+userColumns+`
			FROM users
			ORDER BY created_at ASC
			LIMIT $1 OFFSET $2`, limit, offset)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[domainauth.User])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	res := make([]*domainauth.User, len(rowsOut))
	for i := range rowsOut {
		res[i] = &rowsOut[i]
	}
	return res, nil
}

// Roles returns the role names granted to the user, in grant order.
func (r *UserRepo) Roles(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		return nil, apperrors.Validation("user ID is required")
	}

	var roles []string
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT role_name
			FROM user_roles
			WHERE user_id = $1
			ORDER BY granted_at ASC, role_name ASC`, userID)
		if err != nil {
			return err
		}
		defer rows.Close()
		roles, err = pgx.CollectRows(rows, pgx.RowTo[string])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to get user roles: %w", err)
	}
	return roles, nil
}

// AddRole grants a role to the user. Granting an already-held role is a no-op.
func (r *UserRepo) AddRole(ctx context.Context, userID, role string) error {
	if userID == "" {
		return apperrors.Validation("user ID is required")
	}
	if strings.TrimSpace(role) == "" {
		return apperrors.Validation("role is required")
	}

	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, `
			INSERT INTO user_roles (user_id, role_name, granted_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (user_id, role_name) DO NOTHING`,
			userID, role, r.timeProvider.Now().UTC())
		return err
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return apperrors.NotFoundf("role %q or user %q does not exist", role, userID)
		}
		return fmt.Errorf("failed to add role: %w", err)
	}
	return nil
}

// ClearRoles removes all role grants from the user.
func (r *UserRepo) ClearRoles(ctx context.Context, userID string) error {
	if userID == "" {
		return apperrors.Validation("user ID is required")
	}

	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to clear roles: %w", err)
	}
	return nil
}

// RoleExists reports whether the role name is present in the role registry.
func (r *UserRepo) RoleExists(ctx context.Context, role string) (bool, error) {
	if strings.TrimSpace(role) == "" {
		return false, nil
	}

	var exists bool
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		return conn.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM roles WHERE name = $1)`, role).Scan(&exists)
	})
	if err != nil {
		return false, fmt.Errorf("failed to check role: %w", err)
	}
	return exists, nil
}

// GrantSuperAdmin marks the user as a super admin.
func (r *UserRepo) GrantSuperAdmin(ctx context.Context, userID string) error {
	if userID == "" {
		return apperrors.Validation("user ID is required")
	}

	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx, `
			UPDATE users SET super_admin = TRUE, updated_at = $2 WHERE id = $1`,
			userID, r.timeProvider.Now().UTC())
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NotFoundf("no user with ID %q", userID)
		}
		return fmt.Errorf("failed to grant super admin: %w", err)
	}
	return nil
}
