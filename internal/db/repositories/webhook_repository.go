// webhook_repository.go implements WebhookRepository, providing database queries for
// webhook endpoint configuration, including the active-subscriber lookup used by the
// notifier on every dispatched event.
package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/keyforge/keyforge/internal/crypto"
	"github.com/keyforge/keyforge/internal/db/models"
)

// WebhookRepository handles webhook database operations. When constructed
// with a cipher, signing secrets are encrypted before they hit the secret
// column and decrypted transparently on every read, so callers above the
// repository always see plaintext.
type WebhookRepository struct {
	db     *sql.DB
	cipher *crypto.SecretCipher
}

// NewWebhookRepository creates a WebhookRepository that stores secrets as-is.
func NewWebhookRepository(db *sql.DB) *WebhookRepository {
	return &WebhookRepository{db: db}
}

// NewEncryptedWebhookRepository creates a WebhookRepository that seals signing
// secrets with cipher before storing them.
func NewEncryptedWebhookRepository(db *sql.DB, cipher *crypto.SecretCipher) *WebhookRepository {
	return &WebhookRepository{db: db, cipher: cipher}
}

const webhookColumns = `id, owner_id, name, url, secret, events, is_active, created_at, updated_at`

func (r *WebhookRepository) sealSecret(secret *string) (*string, error) {
	if r.cipher == nil || secret == nil {
		return secret, nil
	}
	sealed, err := r.cipher.Seal(*secret)
	if err != nil {
		return nil, err
	}
	return &sealed, nil
}

func (r *WebhookRepository) openSecret(secret *string) (*string, error) {
	if r.cipher == nil || secret == nil {
		return secret, nil
	}
	opened, err := r.cipher.Open(*secret)
	if err != nil {
		return nil, err
	}
	return &opened, nil
}

func (r *WebhookRepository) scanWebhook(row interface{ Scan(...interface{}) error }) (*models.Webhook, error) {
	w := &models.Webhook{}
	var eventsJSON []byte

	err := row.Scan(
		&w.ID,
		&w.OwnerID,
		&w.Name,
		&w.URL,
		&w.Secret,
		&eventsJSON,
		&w.IsActive,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(eventsJSON, &w.Events); err != nil {
		return nil, err
	}

	secret, err := r.openSecret(w.Secret)
	if err != nil {
		return nil, err
	}
	w.Secret = secret
	return w, nil
}

// CreateWebhook creates a new webhook
func (r *WebhookRepository) CreateWebhook(ctx context.Context, w *models.Webhook) error {
	w.ID = uuid.New().String()
	w.CreatedAt = time.Now()
	w.UpdatedAt = w.CreatedAt

	eventsJSON, err := json.Marshal(w.Events)
	if err != nil {
		return err
	}

	storedSecret, err := r.sealSecret(w.Secret)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO webhooks (id, owner_id, name, url, secret, events, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = r.db.ExecContext(ctx, query,
		w.ID, w.OwnerID, w.Name, w.URL, storedSecret, eventsJSON, w.IsActive, w.CreatedAt, w.UpdatedAt,
	)
	return err
}

// GetWebhookByID retrieves a webhook by ID
func (r *WebhookRepository) GetWebhookByID(ctx context.Context, id string) (*models.Webhook, error) {
	query := `SELECT ` + webhookColumns + ` FROM webhooks WHERE id = $1`
	return r.scanWebhook(r.db.QueryRowContext(ctx, query, id))
}

// ListWebhooksByOwner lists all webhooks configured by an owner
func (r *WebhookRepository) ListWebhooksByOwner(ctx context.Context, ownerID string) ([]*models.Webhook, error) {
	query := `SELECT ` + webhookColumns + ` FROM webhooks WHERE owner_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hooks []*models.Webhook
	for rows.Next() {
		w, err := r.scanWebhook(rows)
		if err != nil {
			return nil, err
		}
		hooks = append(hooks, w)
	}
	return hooks, rows.Err()
}

// ListActiveWebhooksByOwner lists an owner's active webhooks. Event-set
// filtering happens in the notifier: the subscribed set is small JSONB and the
// per-event subset rarely differs from the active set, so one query serves all
// events of a request.
func (r *WebhookRepository) ListActiveWebhooksByOwner(ctx context.Context, ownerID string) ([]*models.Webhook, error) {
	query := `SELECT ` + webhookColumns + ` FROM webhooks WHERE owner_id = $1 AND is_active ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hooks []*models.Webhook
	for rows.Next() {
		w, err := r.scanWebhook(rows)
		if err != nil {
			return nil, err
		}
		hooks = append(hooks, w)
	}
	return hooks, rows.Err()
}

// UpdateWebhook updates a webhook's configuration
func (r *WebhookRepository) UpdateWebhook(ctx context.Context, w *models.Webhook) error {
	eventsJSON, err := json.Marshal(w.Events)
	if err != nil {
		return err
	}

	storedSecret, err := r.sealSecret(w.Secret)
	if err != nil {
		return err
	}

	query := `
		UPDATE webhooks SET
			name = $2, url = $3, secret = $4, events = $5, is_active = $6, updated_at = $7
		WHERE id = $1
	`
	_, err = r.db.ExecContext(ctx, query,
		w.ID, w.Name, w.URL, storedSecret, eventsJSON, w.IsActive, time.Now(),
	)
	return err
}

// DeleteWebhook deletes a webhook
func (r *WebhookRepository) DeleteWebhook(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM webhooks WHERE id = $1`, id)
	return err
}
