package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"resumeforge/internal/api/middleware"
	"resumeforge/internal/database"
	"resumeforge/internal/entitlement"
	"resumeforge/internal/notify"
)

// Upgrades extend the paid period by a fixed year; there is no proration.
const subscriptionPeriod = 365 * 24 * time.Hour

// SubscriptionHandler serves the plan catalog and the upgrade flow. Payment
// processing is out of scope: an upgrade is a direct subscription write.
type SubscriptionHandler struct {
	db        *gorm.DB
	publisher notify.Publisher
}

// NewSubscriptionHandler constructs a SubscriptionHandler.
func NewSubscriptionHandler(db *gorm.DB, publisher notify.Publisher) *SubscriptionHandler {
	return &SubscriptionHandler{db: db, publisher: publisher}
}

type planResponse struct {
	ID          uint                 `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Price       float64              `json:"price"`
	Features    entitlement.Features `json:"features"`
}

type subscriptionResponse struct {
	ID                 uint          `json:"id"`
	PlanID             uint          `json:"plan_id"`
	PlanName           string        `json:"plan_name"`
	Status             string        `json:"status"`
	CurrentPeriodStart time.Time     `json:"current_period_start"`
	CurrentPeriodEnd   time.Time     `json:"current_period_end"`
	Plan               *planResponse `json:"plan,omitempty"`
}

// ListPlans returns the full plan catalog, cheapest first. Public endpoint.
func (h *SubscriptionHandler) ListPlans(c *gin.Context) {
	var plans []database.SubscriptionPlan
	if err := h.db.WithContext(c.Request.Context()).
		Order("price ASC").
		Find(&plans).Error; err != nil {
		Internal(c, "failed to list plans")
		return
	}

	items := make([]planResponse, 0, len(plans))
	for _, p := range plans {
		resp, err := newPlanResponse(p)
		if err != nil {
			Internal(c, "failed to decode plan features")
			return
		}
		items = append(items, resp)
	}
	c.JSON(http.StatusOK, items)
}

// GetSubscription returns the caller's active subscription joined with its
// plan. Accounts without one get the implicit Free default.
func (h *SubscriptionHandler) GetSubscription(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var sub database.UserSubscription
	err := h.db.WithContext(c.Request.Context()).
		Preload("Plan").
		Where("user_id = ? AND status = ?", userID, database.SubscriptionActive).
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusOK, gin.H{
				"subscription": nil,
				"plan_name":    entitlement.Free.String(),
			})
			return
		}
		Internal(c, "failed to query subscription")
		return
	}

	resp, err := newSubscriptionResponse(sub)
	if err != nil {
		Internal(c, "failed to decode plan features")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"subscription": resp,
		"plan_name":    entitlement.ParsePlanName(sub.Plan.Name).String(),
	})
}

type upgradeRequest struct {
	PlanID uint `json:"plan_id" binding:"required"`
}

// Upgrade moves the caller onto the given plan. The first upgrade inserts a
// subscription row; later upgrades update it in place. Each upgrade restarts
// the one-year period.
func (h *SubscriptionHandler) Upgrade(c *gin.Context) {
	var req upgradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()

	var plan database.SubscriptionPlan
	if err := h.db.WithContext(ctx).First(&plan, req.PlanID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "plan not found")
			return
		}
		Internal(c, "failed to query plan")
		return
	}

	now := time.Now()
	var sub database.UserSubscription
	action := notify.ActionUpdate

	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ?", userID).
			Order("created_at DESC").
			First(&sub).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			action = notify.ActionCreate
			sub = database.UserSubscription{
				UserID:             userID,
				PlanID:             plan.ID,
				Status:             database.SubscriptionActive,
				CurrentPeriodStart: now,
				CurrentPeriodEnd:   now.Add(subscriptionPeriod),
			}
			return tx.Create(&sub).Error
		case err != nil:
			return err
		default:
			return tx.Model(&sub).Updates(map[string]any{
				"plan_id":              plan.ID,
				"status":               database.SubscriptionActive,
				"current_period_start": now,
				"current_period_end":   now.Add(subscriptionPeriod),
			}).Error
		}
	})
	if err != nil {
		Internal(c, "failed to upgrade subscription")
		return
	}

	if h.publisher != nil {
		event := notify.Event{Resource: notify.ResourceSubscriptions, Action: action, ID: sub.ID}
		if pubErr := h.publisher.Publish(ctx, userID, event); pubErr != nil {
			middleware.LoggerFromContext(c).Error("publish subscription change failed", slog.Any("error", pubErr))
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"plan_id":            plan.ID,
		"plan_name":          plan.Name,
		"status":             database.SubscriptionActive,
		"current_period_end": now.Add(subscriptionPeriod),
	})
}

func newPlanResponse(p database.SubscriptionPlan) (planResponse, error) {
	features, err := entitlement.DecodeFeatures(p.Features)
	if err != nil {
		return planResponse{}, err
	}
	return planResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Features:    features,
	}, nil
}

func newSubscriptionResponse(sub database.UserSubscription) (subscriptionResponse, error) {
	resp := subscriptionResponse{
		ID:                 sub.ID,
		PlanID:             sub.PlanID,
		PlanName:           sub.Plan.Name,
		Status:             sub.Status,
		CurrentPeriodStart: sub.CurrentPeriodStart,
		CurrentPeriodEnd:   sub.CurrentPeriodEnd,
	}
	if sub.Plan.ID != 0 {
		plan, err := newPlanResponse(sub.Plan)
		if err != nil {
			return subscriptionResponse{}, err
		}
		resp.Plan = &plan
	}
	return resp, nil
}
