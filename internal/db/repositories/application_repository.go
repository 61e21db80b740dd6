// application_repository.go implements ApplicationRepository, providing database queries
// for application lookup by ID and API key, creation, message template updates, and
// API key rotation.
package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/keyforge/keyforge/internal/db/models"
)

// ApplicationRepository handles application database operations
type ApplicationRepository struct {
	db *sql.DB
}

// NewApplicationRepository creates a new ApplicationRepository
func NewApplicationRepository(db *sql.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

const applicationColumns = `
	id, owner_id, name, api_key, is_active, required_version, hwid_lock_enabled,
	login_success_message, login_failed_message, disabled_message, expired_message,
	paused_message, version_mismatch_message, hwid_mismatch_message,
	created_at, updated_at
`

func scanApplication(row interface{ Scan(...interface{}) error }) (*models.Application, error) {
	app := &models.Application{}
	err := row.Scan(
		&app.ID,
		&app.OwnerID,
		&app.Name,
		&app.APIKey,
		&app.IsActive,
		&app.RequiredVersion,
		&app.HWIDLockEnabled,
		&app.Messages.LoginSuccess,
		&app.Messages.LoginFailed,
		&app.Messages.Disabled,
		&app.Messages.Expired,
		&app.Messages.Paused,
		&app.Messages.VersionMismatch,
		&app.Messages.HWIDMismatch,
		&app.CreatedAt,
		&app.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return app, nil
}

// CreateApplication creates a new application. Callers populate the message
// templates up front (see models.DefaultMessages); the columns are NOT NULL.
func (r *ApplicationRepository) CreateApplication(ctx context.Context, app *models.Application) error {
	app.ID = uuid.New().String()
	app.CreatedAt = time.Now()
	app.UpdatedAt = app.CreatedAt

	query := `
		INSERT INTO applications (
			id, owner_id, name, api_key, is_active, required_version, hwid_lock_enabled,
			login_success_message, login_failed_message, disabled_message, expired_message,
			paused_message, version_mismatch_message, hwid_mismatch_message,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.db.ExecContext(ctx, query,
		app.ID,
		app.OwnerID,
		app.Name,
		app.APIKey,
		app.IsActive,
		app.RequiredVersion,
		app.HWIDLockEnabled,
		app.Messages.LoginSuccess,
		app.Messages.LoginFailed,
		app.Messages.Disabled,
		app.Messages.Expired,
		app.Messages.Paused,
		app.Messages.VersionMismatch,
		app.Messages.HWIDMismatch,
		app.CreatedAt,
		app.UpdatedAt,
	)

	return err
}

// GetApplicationByID retrieves an application by ID
func (r *ApplicationRepository) GetApplicationByID(ctx context.Context, id string) (*models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`
	return scanApplication(r.db.QueryRowContext(ctx, query, id))
}

// GetApplicationByAPIKey retrieves an application by its API key. This is the
// first pipeline step for every client API request, so the api_key column
// carries a unique index.
func (r *ApplicationRepository) GetApplicationByAPIKey(ctx context.Context, apiKey string) (*models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE api_key = $1`
	return scanApplication(r.db.QueryRowContext(ctx, query, apiKey))
}

// ListApplicationsByOwner lists all applications belonging to an owner
func (r *ApplicationRepository) ListApplicationsByOwner(ctx context.Context, ownerID string) ([]*models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE owner_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var apps []*models.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

// UpdateApplication updates an application's mutable settings (name, active
// flag, required version, HWID lock, message templates). The API key is not
// touched here; see RotateAPIKey.
func (r *ApplicationRepository) UpdateApplication(ctx context.Context, app *models.Application) error {
	query := `
		UPDATE applications SET
			name = $2, is_active = $3, required_version = $4, hwid_lock_enabled = $5,
			login_success_message = $6, login_failed_message = $7, disabled_message = $8,
			expired_message = $9, paused_message = $10, version_mismatch_message = $11,
			hwid_mismatch_message = $12, updated_at = $13
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query,
		app.ID,
		app.Name,
		app.IsActive,
		app.RequiredVersion,
		app.HWIDLockEnabled,
		app.Messages.LoginSuccess,
		app.Messages.LoginFailed,
		app.Messages.Disabled,
		app.Messages.Expired,
		app.Messages.Paused,
		app.Messages.VersionMismatch,
		app.Messages.HWIDMismatch,
		time.Now(),
	)
	return err
}

// RotateAPIKey replaces the application's API key. The old key stops working
// immediately; in-flight requests that already resolved the application are
// unaffected.
func (r *ApplicationRepository) RotateAPIKey(ctx context.Context, id, newKey string) error {
	query := `UPDATE applications SET api_key = $2, updated_at = $3 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, newKey, time.Now())
	return err
}

// DeleteApplication hard-deletes an application. App users, app-scoped
// blacklist entries, and activity logs cascade at the schema level.
func (r *ApplicationRepository) DeleteApplication(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM applications WHERE id = $1`, id)
	return err
}

// ApplicationStats holds dashboard counters for one application
type ApplicationStats struct {
	TotalUsers    int `json:"total_users"`
	ActiveUsers   int `json:"active_users"`
	LoginsToday   int `json:"logins_today"`
	FailuresToday int `json:"failures_today"`
}

// GetApplicationStats computes dashboard counters with SQL aggregates. "Today"
// is the server's calendar day, consistent with how the activity log timestamps
// are written.
func (r *ApplicationRepository) GetApplicationStats(ctx context.Context, id string) (*ApplicationStats, error) {
	stats := &ApplicationStats{}

	query := `
		SELECT
			(SELECT COUNT(*) FROM app_users WHERE application_id = $1),
			(SELECT COUNT(*) FROM app_users WHERE application_id = $1 AND is_active),
			(SELECT COUNT(*) FROM activity_logs WHERE application_id = $1 AND event = 'user_login' AND success AND created_at >= date_trunc('day', now())),
			(SELECT COUNT(*) FROM activity_logs WHERE application_id = $1 AND NOT success AND created_at >= date_trunc('day', now()))
	`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&stats.TotalUsers,
		&stats.ActiveUsers,
		&stats.LoginsToday,
		&stats.FailuresToday,
	)
	if err != nil {
		return nil, err
	}
	return stats, nil
}
