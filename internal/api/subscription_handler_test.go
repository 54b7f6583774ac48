package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"resumeforge/internal/database"
	"resumeforge/internal/entitlement"
	"resumeforge/internal/notify"
)

func newSubscriptionRouter(t *testing.T, db *gorm.DB, userID uint, pub notify.Publisher) *gin.Engine {
	t.Helper()
	handler := NewSubscriptionHandler(db, pub)

	router := gin.New()
	router.GET("/api/plans", handler.ListPlans)
	authed := router.Group("/api", authInject(userID))
	authed.GET("/subscription", handler.GetSubscription)
	authed.POST("/subscription/upgrade", handler.Upgrade)
	return router
}

func seedPlanCatalog(t *testing.T, db *gorm.DB) (free, pro, enterprise database.SubscriptionPlan) {
	t.Helper()
	// Insert out of price order to prove the listing sorts.
	enterprise = seedPlan(t, db, "Enterprise", 29.99, entitlement.Features{
		MaxResumes: entitlement.UnlimitedResumes,
		Templates:  []string{entitlement.TemplatesAll},
	})
	free = seedPlan(t, db, "Free", 0, entitlement.DefaultFreeFeatures())
	pro = seedPlan(t, db, "Pro", 9.99, entitlement.Features{
		MaxResumes: entitlement.UnlimitedResumes,
		Templates:  []string{entitlement.TemplatesAll},
	})
	return free, pro, enterprise
}

func TestListPlansSortedByPrice(t *testing.T) {
	db := newTestDB(t)
	seedPlanCatalog(t, db)
	router := newSubscriptionRouter(t, db, 1, nil)

	rec := doJSON(t, router, http.MethodGet, "/api/plans", nil)
	requireStatus(t, rec, http.StatusOK)

	var items []struct {
		Name     string  `json:"name"`
		Price    float64 `json:"price"`
		Features struct {
			MaxResumes int `json:"max_resumes"`
		} `json:"features"`
	}
	decodeBody(t, rec, &items)
	if len(items) != 3 {
		t.Fatalf("expected 3 plans, got %d", len(items))
	}
	if items[0].Name != "Free" || items[1].Name != "Pro" || items[2].Name != "Enterprise" {
		t.Fatalf("unexpected order: %q %q %q", items[0].Name, items[1].Name, items[2].Name)
	}
	if items[1].Features.MaxResumes != entitlement.UnlimitedResumes {
		t.Fatalf("expected unlimited quota on Pro, got %d", items[1].Features.MaxResumes)
	}
}

func TestGetSubscriptionWithoutOne(t *testing.T) {
	db := newTestDB(t)
	userID := seedUser(t, db, "sam@example.com")
	router := newSubscriptionRouter(t, db, userID, nil)

	rec := doJSON(t, router, http.MethodGet, "/api/subscription", nil)
	requireStatus(t, rec, http.StatusOK)

	var body struct {
		Subscription any    `json:"subscription"`
		PlanName     string `json:"plan_name"`
	}
	decodeBody(t, rec, &body)
	if body.Subscription != nil {
		t.Fatalf("expected null subscription, got %v", body.Subscription)
	}
	if body.PlanName != "Free" {
		t.Fatalf("expected implicit Free, got %q", body.PlanName)
	}
}

func TestUpgradeCreatesThenUpdates(t *testing.T) {
	db := newTestDB(t)
	userID := seedUser(t, db, "sam@example.com")
	_, pro, enterprise := seedPlanCatalog(t, db)
	pub := &fakePublisher{}
	router := newSubscriptionRouter(t, db, userID, pub)

	before := time.Now()
	rec := doJSON(t, router, http.MethodPost, "/api/subscription/upgrade", gin.H{"plan_id": pro.ID})
	requireStatus(t, rec, http.StatusOK)

	var sub database.UserSubscription
	if err := db.Where("user_id = ?", userID).First(&sub).Error; err != nil {
		t.Fatalf("load subscription: %v", err)
	}
	if sub.PlanID != pro.ID || sub.Status != database.SubscriptionActive {
		t.Fatalf("unexpected subscription %+v", sub)
	}
	wantEnd := before.Add(subscriptionPeriod)
	if sub.CurrentPeriodEnd.Before(wantEnd.Add(-time.Minute)) || sub.CurrentPeriodEnd.After(wantEnd.Add(time.Minute)) {
		t.Fatalf("period end %v not about one year out", sub.CurrentPeriodEnd)
	}

	// Second upgrade rewrites the same row instead of stacking a new one.
	rec = doJSON(t, router, http.MethodPost, "/api/subscription/upgrade", gin.H{"plan_id": enterprise.ID})
	requireStatus(t, rec, http.StatusOK)

	var count int64
	if err := db.Model(&database.UserSubscription{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		t.Fatalf("count subscriptions: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected a single subscription row, got %d", count)
	}
	if err := db.Where("user_id = ?", userID).First(&sub).Error; err != nil {
		t.Fatalf("reload subscription: %v", err)
	}
	if sub.PlanID != enterprise.ID {
		t.Fatalf("expected plan %d, got %d", enterprise.ID, sub.PlanID)
	}

	if len(pub.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(pub.events))
	}
	if pub.events[0].event.Action != notify.ActionCreate || pub.events[1].event.Action != notify.ActionUpdate {
		t.Fatalf("unexpected event actions %q, %q",
			pub.events[0].event.Action, pub.events[1].event.Action)
	}
	for _, e := range pub.events {
		if e.userID != userID || e.event.Resource != notify.ResourceSubscriptions {
			t.Fatalf("unexpected event %+v", e)
		}
	}
}

func TestUpgradeReactivatesExpiredSubscription(t *testing.T) {
	db := newTestDB(t)
	userID := seedUser(t, db, "sam@example.com")
	_, pro, _ := seedPlanCatalog(t, db)

	expired := database.UserSubscription{
		UserID:             userID,
		PlanID:             pro.ID,
		Status:             database.SubscriptionExpired,
		CurrentPeriodStart: time.Now().Add(-2 * 365 * 24 * time.Hour),
		CurrentPeriodEnd:   time.Now().Add(-365 * 24 * time.Hour),
	}
	if err := db.Create(&expired).Error; err != nil {
		t.Fatalf("seed expired subscription: %v", err)
	}

	router := newSubscriptionRouter(t, db, userID, nil)
	rec := doJSON(t, router, http.MethodPost, "/api/subscription/upgrade", gin.H{"plan_id": pro.ID})
	requireStatus(t, rec, http.StatusOK)

	var sub database.UserSubscription
	if err := db.Where("user_id = ?", userID).First(&sub).Error; err != nil {
		t.Fatalf("reload subscription: %v", err)
	}
	if sub.ID != expired.ID {
		t.Fatalf("expected row %d reused, got %d", expired.ID, sub.ID)
	}
	if sub.Status != database.SubscriptionActive {
		t.Fatalf("expected active status, got %q", sub.Status)
	}
	if !sub.CurrentPeriodEnd.After(time.Now()) {
		t.Fatalf("period end %v still in the past", sub.CurrentPeriodEnd)
	}
}

func TestUpgradeUnknownPlan(t *testing.T) {
	db := newTestDB(t)
	userID := seedUser(t, db, "sam@example.com")
	router := newSubscriptionRouter(t, db, userID, nil)

	rec := doJSON(t, router, http.MethodPost, "/api/subscription/upgrade", gin.H{"plan_id": 12345})
	requireStatus(t, rec, http.StatusNotFound)
}

func TestGetSubscriptionWithActivePlan(t *testing.T) {
	db := newTestDB(t)
	userID := seedUser(t, db, "sam@example.com")
	_, pro, _ := seedPlanCatalog(t, db)
	router := newSubscriptionRouter(t, db, userID, nil)

	rec := doJSON(t, router, http.MethodPost, "/api/subscription/upgrade", gin.H{"plan_id": pro.ID})
	requireStatus(t, rec, http.StatusOK)

	rec = doJSON(t, router, http.MethodGet, "/api/subscription", nil)
	requireStatus(t, rec, http.StatusOK)

	var body struct {
		Subscription *struct {
			PlanID   uint   `json:"plan_id"`
			PlanName string `json:"plan_name"`
			Status   string `json:"status"`
		} `json:"subscription"`
		PlanName string `json:"plan_name"`
	}
	decodeBody(t, rec, &body)
	if body.Subscription == nil {
		t.Fatal("expected a subscription")
	}
	if body.Subscription.PlanID != pro.ID || body.Subscription.Status != database.SubscriptionActive {
		t.Fatalf("unexpected subscription %+v", body.Subscription)
	}
	if body.PlanName != "Pro" {
		t.Fatalf("expected Pro, got %q", body.PlanName)
	}
}
