// blacklist_repository.go implements BlacklistRepository over sqlx, providing the
// active-entry lookup used by the authorization pipeline and CRUD for owner management.
package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/keyforge/keyforge/internal/db/models"
)

// BlacklistRepository handles blacklist entry database operations
type BlacklistRepository struct {
	db *sqlx.DB
}

// NewBlacklistRepository creates a new BlacklistRepository
func NewBlacklistRepository(db *sqlx.DB) *BlacklistRepository {
	return &BlacklistRepository{db: db}
}

// CreateEntry creates a new blacklist entry
func (r *BlacklistRepository) CreateEntry(ctx context.Context, e *models.BlacklistEntry) error {
	e.ID = uuid.New().String()
	e.CreatedAt = time.Now()

	query := `
		INSERT INTO blacklist_entries (id, application_id, type, value, reason, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.ApplicationID, e.Type, e.Value, e.Reason, e.IsActive, e.CreatedAt,
	)
	return err
}

// FindActiveEntry returns an active entry matching (type, value) scoped either
// to the given application or globally, or nil when no entry matches. Global
// and app-scoped entries are equally sufficient to reject a login; the scoped
// entry is preferred in the result only so the logged reason names the tighter
// rule.
func (r *BlacklistRepository) FindActiveEntry(ctx context.Context, applicationID, entryType, value string) (*models.BlacklistEntry, error) {
	var entry models.BlacklistEntry
	query := `
		SELECT * FROM blacklist_entries
		WHERE type = $2 AND value = $3 AND is_active
		  AND (application_id = $1 OR application_id IS NULL)
		ORDER BY application_id NULLS LAST
		LIMIT 1
	`
	err := r.db.GetContext(ctx, &entry, query, applicationID, entryType, value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// GetEntryByID retrieves a blacklist entry by ID
func (r *BlacklistRepository) GetEntryByID(ctx context.Context, id string) (*models.BlacklistEntry, error) {
	var entry models.BlacklistEntry
	err := r.db.GetContext(ctx, &entry, `SELECT * FROM blacklist_entries WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListEntries lists blacklist entries visible to an owner's application:
// entries scoped to the application plus all global entries.
func (r *BlacklistRepository) ListEntries(ctx context.Context, applicationID string) ([]*models.BlacklistEntry, error) {
	var entries []*models.BlacklistEntry
	query := `
		SELECT * FROM blacklist_entries
		WHERE application_id = $1 OR application_id IS NULL
		ORDER BY created_at DESC
	`
	err := r.db.SelectContext(ctx, &entries, query, applicationID)
	return entries, err
}

// SetEntryActive toggles an entry without deleting it
func (r *BlacklistRepository) SetEntryActive(ctx context.Context, id string, active bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE blacklist_entries SET is_active = $2 WHERE id = $1`, id, active)
	return err
}

// DeleteEntry deletes a blacklist entry
func (r *BlacklistRepository) DeleteEntry(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM blacklist_entries WHERE id = $1`, id)
	return err
}
