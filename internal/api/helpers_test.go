package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"resumeforge/internal/database"
	"resumeforge/internal/entitlement"
	"resumeforge/internal/notify"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type recordedEvent struct {
	userID uint
	event  notify.Event
}

type fakePublisher struct {
	events []recordedEvent
}

func (f *fakePublisher) Publish(_ context.Context, userID uint, event notify.Event) error {
	f.events = append(f.events, recordedEvent{userID: userID, event: event})
	return nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, email string) uint {
	t.Helper()
	u := database.User{Email: email, PasswordHash: "x"}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u.ID
}

func seedPlan(t *testing.T, db *gorm.DB, name string, price float64, features entitlement.Features) database.SubscriptionPlan {
	t.Helper()
	encoded, err := entitlement.EncodeFeatures(features)
	if err != nil {
		t.Fatalf("encode features: %v", err)
	}
	plan := database.SubscriptionPlan{Name: name, Price: price, Features: encoded}
	if err := db.Create(&plan).Error; err != nil {
		t.Fatalf("seed plan: %v", err)
	}
	return plan
}

func seedTemplate(t *testing.T, db *gorm.DB, name string, premium bool) database.Template {
	t.Helper()
	tpl := database.Template{Name: name, Premium: premium}
	if err := db.Create(&tpl).Error; err != nil {
		t.Fatalf("seed template: %v", err)
	}
	return tpl
}

// authInject stands in for the jwt middleware in handler tests.
func authInject(userID uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", userID)
		c.Next()
	}
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func requireStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}
