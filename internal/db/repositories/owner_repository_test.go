package repositories

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/keyforge/keyforge/internal/db/models"
)

var ownerCols = []string{"id", "email", "name", "password_hash", "created_at", "updated_at"}

func newOwnerRepo(t *testing.T) (*OwnerRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewOwnerRepository(sqlx.NewDb(db, "postgres")), mock
}

func TestCreateOwner(t *testing.T) {
	repo, mock := newOwnerRepo(t)
	mock.ExpectExec("INSERT INTO owners").
		WillReturnResult(sqlmock.NewResult(1, 1))

	o := &models.Owner{Email: "alice@example.com", PasswordHash: "$2a$10$hash"}
	if err := repo.CreateOwner(context.Background(), o); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.ID == "" {
		t.Error("CreateOwner did not assign an ID")
	}
}

func TestGetOwnerByEmail_Found(t *testing.T) {
	repo, mock := newOwnerRepo(t)
	mock.ExpectQuery("SELECT \\* FROM owners WHERE email").
		WithArgs("alice@example.com").
		WillReturnRows(sqlmock.NewRows(ownerCols).
			AddRow("owner-1", "alice@example.com", "Alice", "$2a$10$hash", time.Now(), time.Now()))

	o, err := repo.GetOwnerByEmail(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o == nil || o.Email != "alice@example.com" {
		t.Errorf("unexpected owner: %+v", o)
	}
}

func TestGetOwnerByEmail_NotFound(t *testing.T) {
	repo, mock := newOwnerRepo(t)
	mock.ExpectQuery("SELECT \\* FROM owners WHERE email").
		WithArgs("nobody@example.com").
		WillReturnRows(sqlmock.NewRows(ownerCols))

	o, err := repo.GetOwnerByEmail(context.Background(), "nobody@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o != nil {
		t.Errorf("expected nil, got %+v", o)
	}
}
