package admin

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"

	"github.com/keyforge/keyforge/internal/config"
	"github.com/keyforge/keyforge/internal/db/repositories"
)

func newWebhookRouter(t *testing.T) (sqlmock.Sqlmock, *gin.Engine) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	h := NewWebhookHandlers(&config.Config{}, db, repositories.NewWebhookRepository(db))

	r := gin.New()
	r.Use(withOwner(testOwner()))
	r.GET("/webhooks", h.ListWebhooksHandler())
	r.POST("/webhooks", h.CreateWebhookHandler())
	r.GET("/webhooks/:id", h.GetWebhookHandler())
	r.PUT("/webhooks/:id", h.UpdateWebhookHandler())
	r.POST("/webhooks/:id/test", h.TestWebhookHandler())
	r.DELETE("/webhooks/:id", h.DeleteWebhookHandler())
	return mock, r
}

func webhookRowAt(id, ownerID, url string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(webhookCols).AddRow(
		id, ownerID, "Alerts", url, nil, []byte(`["user_login"]`), true, now, now,
	)
}

func TestListWebhooks(t *testing.T) {
	mock, r := newWebhookRouter(t)

	mock.ExpectQuery(`(?s)SELECT.*FROM webhooks WHERE owner_id`).
		WillReturnRows(webhookRow("hook-1", "owner-1"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/webhooks", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: body=%s", w.Code, w.Body.String())
	}
	resp := getJSON(w)
	hooks, _ := resp["webhooks"].([]interface{})
	if len(hooks) != 1 {
		t.Fatalf("webhooks = %v, want one entry", resp["webhooks"])
	}
	hook, _ := hooks[0].(map[string]interface{})
	if _, leaked := hook["secret"]; leaked {
		t.Error("secret must never be serialized")
	}
	if hook["has_secret"] != false {
		t.Error("expected has_secret = false for a webhook without a secret")
	}
}

func TestCreateWebhook(t *testing.T) {
	mock, r := newWebhookRouter(t)

	mock.ExpectExec("INSERT INTO webhooks").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := postJSON(t, r, "/webhooks", gin.H{
		"name":   "Security alerts",
		"url":    "https://example.com/hooks/keyforge",
		"secret": "whsec_abc",
		"events": []string{"user_login", "login_hwid_mismatch"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: body=%s", w.Code, w.Body.String())
	}
	resp := getJSON(w)
	hook, _ := resp["webhook"].(map[string]interface{})
	if hook == nil || hook["has_secret"] != true {
		t.Errorf("webhook = %v, want has_secret true", resp["webhook"])
	}
	if hook["is_discord"] != false {
		t.Error("plain endpoint must not be flagged as discord")
	}
}

func TestCreateWebhook_UnknownEvent(t *testing.T) {
	_, r := newWebhookRouter(t)

	w := postJSON(t, r, "/webhooks", gin.H{
		"name":   "Bad",
		"url":    "https://example.com/hook",
		"events": []string{"user_login", "no_such_event"},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: body=%s", w.Code, w.Body.String())
	}
}

func TestCreateWebhook_BadURL(t *testing.T) {
	_, r := newWebhookRouter(t)

	w := postJSON(t, r, "/webhooks", gin.H{
		"name":   "Bad",
		"url":    "ftp://example.com/hook",
		"events": []string{"user_login"},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestGetWebhook_OtherOwner(t *testing.T) {
	mock, r := newWebhookRouter(t)

	mock.ExpectQuery(`(?s)SELECT.*FROM webhooks WHERE id`).
		WillReturnRows(webhookRow("hook-1", "someone-else"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/webhooks/hook-1", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestUpdateWebhook(t *testing.T) {
	mock, r := newWebhookRouter(t)

	mock.ExpectQuery(`(?s)SELECT.*FROM webhooks WHERE id`).
		WillReturnRows(webhookRow("hook-1", "owner-1"))
	mock.ExpectExec("UPDATE webhooks SET").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := putJSON(t, r, "/webhooks/hook-1", gin.H{
		"events":    []string{"user_login", "user_register"},
		"is_active": false,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: body=%s", w.Code, w.Body.String())
	}
	resp := getJSON(w)
	hook, _ := resp["webhook"].(map[string]interface{})
	if hook["is_active"] != false {
		t.Error("expected is_active = false after update")
	}
	events, _ := hook["events"].([]interface{})
	if len(events) != 2 {
		t.Errorf("events = %v, want two subscriptions", hook["events"])
	}
}

func TestUpdateWebhook_UnknownEvent(t *testing.T) {
	mock, r := newWebhookRouter(t)

	mock.ExpectQuery(`(?s)SELECT.*FROM webhooks WHERE id`).
		WillReturnRows(webhookRow("hook-1", "owner-1"))

	w := putJSON(t, r, "/webhooks/hook-1", gin.H{"events": []string{"bogus"}})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestTestWebhook_DeliversSyntheticEvent(t *testing.T) {
	var gotEvent string
	endpoint := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		gotEvent = req.Header.Get("X-Webhook-Event")
		w.WriteHeader(http.StatusOK)
	}))
	defer endpoint.Close()

	mock, r := newWebhookRouter(t)
	mock.ExpectQuery(`(?s)SELECT.*FROM webhooks WHERE id`).
		WillReturnRows(webhookRowAt("hook-1", "owner-1", endpoint.URL))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/webhooks/hook-1/test", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: body=%s", w.Code, w.Body.String())
	}
	if gotEvent != "user_login" {
		t.Errorf("delivered event = %q, want the webhook's first subscription", gotEvent)
	}
}

func TestTestWebhook_EndpointRejects(t *testing.T) {
	endpoint := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer endpoint.Close()

	mock, r := newWebhookRouter(t)
	mock.ExpectQuery(`(?s)SELECT.*FROM webhooks WHERE id`).
		WillReturnRows(webhookRowAt("hook-1", "owner-1", endpoint.URL))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/webhooks/hook-1/test", nil))

	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502: body=%s", w.Code, w.Body.String())
	}
}

func TestDeleteWebhook(t *testing.T) {
	mock, r := newWebhookRouter(t)

	mock.ExpectQuery(`(?s)SELECT.*FROM webhooks WHERE id`).
		WillReturnRows(webhookRow("hook-1", "owner-1"))
	mock.ExpectExec("DELETE FROM webhooks").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("DELETE", "/webhooks/hook-1", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: body=%s", w.Code, w.Body.String())
	}
}
