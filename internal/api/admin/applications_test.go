package admin

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"

	"github.com/keyforge/keyforge/internal/config"
)

func newAppRouter(t *testing.T) (sqlmock.Sqlmock, *gin.Engine) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	h := NewApplicationHandlers(&config.Config{}, db)

	r := gin.New()
	r.Use(withOwner(testOwner()))
	r.GET("/applications", h.ListApplicationsHandler())
	r.POST("/applications", h.CreateApplicationHandler())
	r.GET("/applications/:id", h.GetApplicationHandler())
	r.PUT("/applications/:id", h.UpdateApplicationHandler())
	r.DELETE("/applications/:id", h.DeleteApplicationHandler())
	r.POST("/applications/:id/rotate-key", h.RotateAPIKeyHandler())
	r.GET("/applications/:id/stats", h.GetApplicationStatsHandler())
	return mock, r
}

func TestListApplications(t *testing.T) {
	mock, r := newAppRouter(t)

	mock.ExpectQuery(`(?s)SELECT.*FROM applications WHERE owner_id`).
		WillReturnRows(appRow("app-1", "owner-1"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/applications", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: body=%s", w.Code, w.Body.String())
	}
	resp := getJSON(w)
	apps, _ := resp["applications"].([]interface{})
	if len(apps) != 1 {
		t.Fatalf("applications = %v, want one entry", resp["applications"])
	}
}

func TestCreateApplication(t *testing.T) {
	mock, r := newAppRouter(t)

	mock.ExpectExec("INSERT INTO applications").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := postJSON(t, r, "/applications", gin.H{"name": "My App"})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: body=%s", w.Code, w.Body.String())
	}
	resp := getJSON(w)
	app, _ := resp["application"].(map[string]interface{})
	if app == nil {
		t.Fatal("response missing application")
	}
	key, _ := app["api_key"].(string)
	if !strings.HasPrefix(key, "kf_") {
		t.Errorf("api_key = %q, want kf_ prefix", key)
	}
	messages, _ := app["messages"].(map[string]interface{})
	if messages == nil || messages["login_failed"] != "Invalid username or password" {
		t.Errorf("messages = %v, want defaults applied", app["messages"])
	}
}

func TestCreateApplication_BadVersion(t *testing.T) {
	_, r := newAppRouter(t)

	w := postJSON(t, r, "/applications", gin.H{"name": "My App", "required_version": "not-a-version"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestGetApplication_Owned(t *testing.T) {
	mock, r := newAppRouter(t)

	mock.ExpectQuery(`(?s)SELECT.*FROM applications WHERE id`).
		WillReturnRows(appRow("app-1", "owner-1"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/applications/app-1", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: body=%s", w.Code, w.Body.String())
	}
}

func TestGetApplication_OtherOwner(t *testing.T) {
	mock, r := newAppRouter(t)

	mock.ExpectQuery(`(?s)SELECT.*FROM applications WHERE id`).
		WillReturnRows(appRow("app-1", "someone-else"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/applications/app-1", nil))

	// Must be indistinguishable from a nonexistent application
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestGetApplication_NotFound(t *testing.T) {
	mock, r := newAppRouter(t)

	mock.ExpectQuery(`(?s)SELECT.*FROM applications WHERE id`).
		WillReturnRows(sqlmock.NewRows(appCols))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/applications/app-1", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestUpdateApplication(t *testing.T) {
	mock, r := newAppRouter(t)

	mock.ExpectQuery(`(?s)SELECT.*FROM applications WHERE id`).
		WillReturnRows(appRow("app-1", "owner-1"))
	mock.ExpectExec("UPDATE applications SET").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := putJSON(t, r, "/applications/app-1", gin.H{
		"hwid_lock_enabled": true,
		"messages":          gin.H{"login_failed": "Nope"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: body=%s", w.Code, w.Body.String())
	}
	resp := getJSON(w)
	app, _ := resp["application"].(map[string]interface{})
	if app["hwid_lock_enabled"] != true {
		t.Error("expected hwid_lock_enabled = true after update")
	}
	messages, _ := app["messages"].(map[string]interface{})
	if messages["login_failed"] != "Nope" {
		t.Errorf("login_failed = %v, want Nope", messages["login_failed"])
	}
	if messages["disabled"] != "Your account has been disabled" {
		t.Error("untouched templates must keep their values")
	}
}

func TestDeleteApplication(t *testing.T) {
	mock, r := newAppRouter(t)

	mock.ExpectQuery(`(?s)SELECT.*FROM applications WHERE id`).
		WillReturnRows(appRow("app-1", "owner-1"))
	mock.ExpectExec("DELETE FROM applications").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("DELETE", "/applications/app-1", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: body=%s", w.Code, w.Body.String())
	}
}

func TestRotateAPIKey(t *testing.T) {
	mock, r := newAppRouter(t)

	mock.ExpectQuery(`(?s)SELECT.*FROM applications WHERE id`).
		WillReturnRows(appRow("app-1", "owner-1"))
	mock.ExpectExec("UPDATE applications SET api_key").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := postJSON(t, r, "/applications/app-1/rotate-key", gin.H{})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: body=%s", w.Code, w.Body.String())
	}
	resp := getJSON(w)
	key, _ := resp["api_key"].(string)
	if !strings.HasPrefix(key, "kf_") {
		t.Errorf("api_key = %q, want kf_ prefix", key)
	}
	if key == "kf_testkey" {
		t.Error("rotated key must differ from the old key")
	}
}

func TestGetApplicationStats(t *testing.T) {
	mock, r := newAppRouter(t)

	mock.ExpectQuery(`(?s)SELECT.*FROM applications WHERE id`).
		WillReturnRows(appRow("app-1", "owner-1"))
	mock.ExpectQuery(`(?s)SELECT.*app_users.*activity_logs`).
		WillReturnRows(sqlmock.NewRows([]string{"total", "active", "logins", "failures"}).
			AddRow(10, 8, 3, 1))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/applications/app-1/stats", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: body=%s", w.Code, w.Body.String())
	}
	resp := getJSON(w)
	stats, _ := resp["stats"].(map[string]interface{})
	if stats == nil || stats["total_users"] != float64(10) {
		t.Errorf("stats = %v, want total_users 10", resp["stats"])
	}
}
