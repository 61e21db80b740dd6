package repositories

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/keyforge/keyforge/internal/db/models"
)

var activityCols = []string{
	"id", "application_id", "app_user_id", "event", "success", "error_message",
	"ip_address", "hwid", "user_agent", "metadata", "created_at",
}

func newActivityRepo(t *testing.T) (*ActivityRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewActivityRepository(db), mock
}

// ---------------------------------------------------------------------------
// CreateActivityLog
// ---------------------------------------------------------------------------

func TestCreateActivityLog_Success(t *testing.T) {
	repo, mock := newActivityRepo(t)
	mock.ExpectExec("INSERT INTO activity_logs").
		WillReturnResult(sqlmock.NewResult(1, 1))

	log := &models.ActivityLog{
		ApplicationID: "app-1",
		Event:         "user_login",
		Success:       true,
		Metadata:      map[string]interface{}{"version": "2.0.0"},
	}
	if err := repo.CreateActivityLog(context.Background(), log); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if log.ID == "" {
		t.Error("CreateActivityLog did not assign an ID")
	}
}

func TestCreateActivityLog_DBError(t *testing.T) {
	repo, mock := newActivityRepo(t)
	mock.ExpectExec("INSERT INTO activity_logs").
		WillReturnError(errDB)

	log := &models.ActivityLog{ApplicationID: "app-1", Event: "user_login"}
	if err := repo.CreateActivityLog(context.Background(), log); err == nil {
		t.Error("expected error, got nil")
	}
}

// ---------------------------------------------------------------------------
// ListActivityLogs
// ---------------------------------------------------------------------------

func TestListActivityLogs_NoFilters(t *testing.T) {
	repo, mock := newActivityRepo(t)
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM activity_logs").
		WithArgs("app-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery("SELECT.*FROM activity_logs").
		WithArgs("app-1", 50, 0).
		WillReturnRows(sqlmock.NewRows(activityCols).
			AddRow("log-1", "app-1", nil, "user_login", true, nil, "1.2.3.4", nil, "agent/1.0", []byte(`{"version":"2.0.0"}`), time.Now()).
			AddRow("log-2", "app-1", nil, "login_blocked_ip", false, "IP is blacklisted", "10.0.0.1", nil, nil, nil, time.Now()))

	logs, total, err := repo.ListActivityLogs(context.Background(), "app-1", ActivityFilters{}, 50, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 {
		t.Errorf("total = %d, want 2", total)
	}
	if len(logs) != 2 {
		t.Fatalf("len(logs) = %d, want 2", len(logs))
	}
	if logs[0].Metadata["version"] != "2.0.0" {
		t.Error("metadata was not unmarshaled")
	}
	if logs[1].Metadata != nil {
		t.Error("nil metadata column should stay nil")
	}
}

func TestListActivityLogs_EventFilter(t *testing.T) {
	repo, mock := newActivityRepo(t)
	event := "user_login"
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM activity_logs.*AND event").
		WithArgs("app-1", event).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT.*FROM activity_logs.*AND event").
		WithArgs("app-1", event, 10, 0).
		WillReturnRows(sqlmock.NewRows(activityCols).
			AddRow("log-1", "app-1", nil, "user_login", true, nil, nil, nil, nil, nil, time.Now()))

	logs, total, err := repo.ListActivityLogs(context.Background(), "app-1", ActivityFilters{Event: &event}, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || len(logs) != 1 {
		t.Errorf("total = %d len = %d, want 1/1", total, len(logs))
	}
}
