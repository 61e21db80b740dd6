// app_user_repository.go implements AppUserRepository, providing database queries for
// end-user account lookup, login counter updates, and the conditional HWID bind used
// by the authorization pipeline.
package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/keyforge/keyforge/internal/db/models"
)

// AppUserRepository handles app user database operations
type AppUserRepository struct {
	db *sql.DB
}

// NewAppUserRepository creates a new AppUserRepository
func NewAppUserRepository(db *sql.DB) *AppUserRepository {
	return &AppUserRepository{db: db}
}

const appUserColumns = `
	id, application_id, username, email, password_hash, hwid, expires_at,
	is_active, is_paused, login_attempts, last_login, last_attempt,
	created_at, updated_at
`

func scanAppUser(row interface{ Scan(...interface{}) error }) (*models.AppUser, error) {
	u := &models.AppUser{}
	err := row.Scan(
		&u.ID,
		&u.ApplicationID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.HWID,
		&u.ExpiresAt,
		&u.IsActive,
		&u.IsPaused,
		&u.LoginAttempts,
		&u.LastLogin,
		&u.LastAttempt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// CreateAppUser creates a new end-user account. Uniqueness of
// (application_id, username) and (application_id, email) is enforced by the
// schema; violations surface as *pq.Error with code 23505.
func (r *AppUserRepository) CreateAppUser(ctx context.Context, u *models.AppUser) error {
	u.ID = uuid.New().String()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt

	query := `
		INSERT INTO app_users (
			id, application_id, username, email, password_hash, hwid, expires_at,
			is_active, is_paused, login_attempts, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.ExecContext(ctx, query,
		u.ID,
		u.ApplicationID,
		u.Username,
		u.Email,
		u.PasswordHash,
		u.HWID,
		u.ExpiresAt,
		u.IsActive,
		u.IsPaused,
		u.LoginAttempts,
		u.CreatedAt,
		u.UpdatedAt,
	)
	return err
}

// GetAppUserByID retrieves an app user by ID
func (r *AppUserRepository) GetAppUserByID(ctx context.Context, id string) (*models.AppUser, error) {
	query := `SELECT ` + appUserColumns + ` FROM app_users WHERE id = $1`
	return scanAppUser(r.db.QueryRowContext(ctx, query, id))
}

// GetAppUserByUsername retrieves an app user by username within one application
func (r *AppUserRepository) GetAppUserByUsername(ctx context.Context, applicationID, username string) (*models.AppUser, error) {
	query := `SELECT ` + appUserColumns + ` FROM app_users WHERE application_id = $1 AND username = $2`
	return scanAppUser(r.db.QueryRowContext(ctx, query, applicationID, username))
}

// ListAppUsers lists all accounts in an application
func (r *AppUserRepository) ListAppUsers(ctx context.Context, applicationID string) ([]*models.AppUser, error) {
	query := `SELECT ` + appUserColumns + ` FROM app_users WHERE application_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.AppUser
	for rows.Next() {
		u, err := scanAppUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateAppUser updates owner-editable account fields (email, expiry, flags).
// Changing expires_at clears the expiry-notified marker so the sweep warns
// again for the new date.
func (r *AppUserRepository) UpdateAppUser(ctx context.Context, u *models.AppUser) error {
	query := `
		UPDATE app_users SET
			email = $2,
			expiry_notified_at = CASE WHEN expires_at IS DISTINCT FROM $3 THEN NULL ELSE expiry_notified_at END,
			expires_at = $3, is_active = $4, is_paused = $5, updated_at = $6
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, u.ID, u.Email, u.ExpiresAt, u.IsActive, u.IsPaused, time.Now())
	return err
}

// UpdatePassword replaces the stored password hash
func (r *AppUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query := `UPDATE app_users SET password_hash = $2, updated_at = $3 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, passwordHash, time.Now())
	return err
}

// IncrementLoginAttempts bumps the failed-login counter and records the
// attempt timestamp. This runs on every wrong-password rejection, before any
// HWID check, so failed passwords count even when the HWID would have matched.
func (r *AppUserRepository) IncrementLoginAttempts(ctx context.Context, id string) error {
	query := `
		UPDATE app_users SET
			login_attempts = login_attempts + 1, last_attempt = $2, updated_at = $2
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, time.Now())
	return err
}

// RecordSuccessfulLogin resets the failed-login counter and stamps last_login
func (r *AppUserRepository) RecordSuccessfulLogin(ctx context.Context, id string) error {
	query := `
		UPDATE app_users SET
			login_attempts = 0, last_login = $2, last_attempt = $2, updated_at = $2
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, time.Now())
	return err
}

// BindHWID binds a hardware ID to an account only if none is currently bound.
// The WHERE hwid IS NULL clause makes the bind a compare-and-swap: when two
// first logins race, exactly one writer wins and the loser observes zero rows
// affected. Returns true when this call performed the bind.
func (r *AppUserRepository) BindHWID(ctx context.Context, id, hwid string) (bool, error) {
	query := `UPDATE app_users SET hwid = $2, updated_at = $3 WHERE id = $1 AND hwid IS NULL`

	res, err := r.db.ExecContext(ctx, query, id, hwid, time.Now())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ResetHWID clears the bound hardware ID so the next HWID-locked login rebinds.
// Owner-triggered only; the pipeline never clears a binding.
func (r *AppUserRepository) ResetHWID(ctx context.Context, id string) error {
	query := `UPDATE app_users SET hwid = NULL, updated_at = $2 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, time.Now())
	return err
}

// DeleteAppUser deletes an account
func (r *AppUserRepository) DeleteAppUser(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM app_users WHERE id = $1`, id)
	return err
}

// ListExpiringAppUsers returns active accounts whose expires_at falls inside
// (now, now+within] and which have not yet been notified for their current
// expiry date. Already-expired accounts are excluded; the login pipeline
// reports those at the moment of use.
func (r *AppUserRepository) ListExpiringAppUsers(ctx context.Context, within time.Duration) ([]*models.AppUser, error) {
	now := time.Now()
	query := `SELECT ` + appUserColumns + ` FROM app_users
		WHERE expires_at IS NOT NULL
		  AND expiry_notified_at IS NULL
		  AND is_active
		  AND expires_at > $1
		  AND expires_at <= $2
		ORDER BY expires_at`

	rows, err := r.db.QueryContext(ctx, query, now, now.Add(within))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.AppUser
	for rows.Next() {
		u, err := scanAppUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// MarkExpiryNotified stamps the account as having received its expiry warning
func (r *AppUserRepository) MarkExpiryNotified(ctx context.Context, id string) error {
	query := `UPDATE app_users SET expiry_notified_at = $2 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, time.Now())
	return err
}
