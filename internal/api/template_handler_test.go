package api

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"resumeforge/internal/database"
	"resumeforge/internal/entitlement"
)

func newTemplateRouter(t *testing.T, db *gorm.DB, userID uint) *gin.Engine {
	t.Helper()
	handler := NewTemplateHandler(db, entitlement.NewResolver(db), nil)

	router := gin.New()
	authed := router.Group("/api", authInject(userID))
	authed.GET("/templates", handler.ListTemplates)
	authed.GET("/templates/:id", handler.GetTemplate)
	return router
}

func seedCatalog(t *testing.T, db *gorm.DB) {
	t.Helper()
	seedTemplate(t, db, "Clean Slate", false)
	seedTemplate(t, db, "Spectrum", true)
	seedTemplate(t, db, "Timeless", false)
	seedTemplate(t, db, "Boardroom", true)
}

func subscribe(t *testing.T, db *gorm.DB, userID uint, planName string) {
	t.Helper()
	plan := seedPlan(t, db, planName, 9.99, entitlement.Features{
		MaxResumes: entitlement.UnlimitedResumes,
		Templates:  []string{entitlement.TemplatesAll},
	})
	sub := database.UserSubscription{
		UserID:             userID,
		PlanID:             plan.ID,
		Status:             database.SubscriptionActive,
		CurrentPeriodStart: time.Now(),
		CurrentPeriodEnd:   time.Now().Add(time.Hour),
	}
	if err := db.Create(&sub).Error; err != nil {
		t.Fatalf("seed subscription: %v", err)
	}
}

type templateItem struct {
	ID         uint   `json:"id"`
	Name       string `json:"name"`
	Premium    bool   `json:"premium"`
	Accessible bool   `json:"accessible"`
}

func TestListTemplatesFreeUser(t *testing.T) {
	db := newTestDB(t)
	userID := seedUser(t, db, "free@example.com")
	seedCatalog(t, db)
	router := newTemplateRouter(t, db, userID)

	rec := doJSON(t, router, http.MethodGet, "/api/templates", nil)
	requireStatus(t, rec, http.StatusOK)

	var items []templateItem
	decodeBody(t, rec, &items)
	if len(items) != 2 {
		t.Fatalf("expected 2 free templates, got %d", len(items))
	}
	if items[0].Name != "Clean Slate" || items[1].Name != "Timeless" {
		t.Fatalf("unexpected order: %q, %q", items[0].Name, items[1].Name)
	}
	for _, item := range items {
		if item.Premium || !item.Accessible {
			t.Fatalf("free listing leaked premium entry %+v", item)
		}
	}
}

func TestListTemplatesProUser(t *testing.T) {
	db := newTestDB(t)
	userID := seedUser(t, db, "pro@example.com")
	seedCatalog(t, db)
	subscribe(t, db, userID, "Pro")
	router := newTemplateRouter(t, db, userID)

	rec := doJSON(t, router, http.MethodGet, "/api/templates", nil)
	requireStatus(t, rec, http.StatusOK)

	var items []templateItem
	decodeBody(t, rec, &items)
	if len(items) != 4 {
		t.Fatalf("expected full catalog, got %d", len(items))
	}
	for _, item := range items {
		if !item.Accessible {
			t.Fatalf("pro user should access %q", item.Name)
		}
	}
}

func TestListTemplatesAllFlag(t *testing.T) {
	db := newTestDB(t)
	userID := seedUser(t, db, "free@example.com")
	seedCatalog(t, db)
	router := newTemplateRouter(t, db, userID)

	rec := doJSON(t, router, http.MethodGet, "/api/templates?all=1", nil)
	requireStatus(t, rec, http.StatusOK)

	var items []templateItem
	decodeBody(t, rec, &items)
	if len(items) != 4 {
		t.Fatalf("expected full catalog with all=1, got %d", len(items))
	}
	for _, item := range items {
		if item.Premium == item.Accessible {
			t.Fatalf("accessible flag wrong for %q: premium=%v accessible=%v",
				item.Name, item.Premium, item.Accessible)
		}
	}
}

func TestGetTemplateDetailVisibleToFreeUser(t *testing.T) {
	db := newTestDB(t)
	userID := seedUser(t, db, "free@example.com")
	premium := seedTemplate(t, db, "Spectrum", true)
	router := newTemplateRouter(t, db, userID)

	rec := doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/templates/%d", premium.ID), nil)
	requireStatus(t, rec, http.StatusOK)

	var item templateItem
	decodeBody(t, rec, &item)
	if item.Name != "Spectrum" {
		t.Fatalf("unexpected template %q", item.Name)
	}
	if item.Accessible {
		t.Fatal("free user must not be marked as having access to premium detail")
	}
}

func TestGetTemplateNotFound(t *testing.T) {
	db := newTestDB(t)
	userID := seedUser(t, db, "free@example.com")
	router := newTemplateRouter(t, db, userID)

	rec := doJSON(t, router, http.MethodGet, "/api/templates/999", nil)
	requireStatus(t, rec, http.StatusNotFound)
}
