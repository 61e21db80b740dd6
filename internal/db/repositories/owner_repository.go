// owner_repository.go implements OwnerRepository over sqlx, providing database queries
// for dashboard account lookup by email (login) and ID (session resolution).
package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/keyforge/keyforge/internal/db/models"
)

// OwnerRepository handles owner account database operations
type OwnerRepository struct {
	db *sqlx.DB
}

// NewOwnerRepository creates a new OwnerRepository
func NewOwnerRepository(db *sqlx.DB) *OwnerRepository {
	return &OwnerRepository{db: db}
}

// CreateOwner creates a new owner account. Email uniqueness is enforced by the
// schema; violations surface as *pq.Error with code 23505.
func (r *OwnerRepository) CreateOwner(ctx context.Context, o *models.Owner) error {
	o.ID = uuid.New().String()
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt

	query := `
		INSERT INTO owners (id, email, name, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query, o.ID, o.Email, o.Name, o.PasswordHash, o.CreatedAt, o.UpdatedAt)
	return err
}

// GetOwnerByID retrieves an owner by ID
func (r *OwnerRepository) GetOwnerByID(ctx context.Context, id string) (*models.Owner, error) {
	var owner models.Owner
	err := r.db.GetContext(ctx, &owner, `SELECT * FROM owners WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &owner, nil
}

// GetOwnerByEmail retrieves an owner by email
func (r *OwnerRepository) GetOwnerByEmail(ctx context.Context, email string) (*models.Owner, error) {
	var owner models.Owner
	err := r.db.GetContext(ctx, &owner, `SELECT * FROM owners WHERE email = $1`, email)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &owner, nil
}
