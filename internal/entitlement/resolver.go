package entitlement

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"resumeforge/internal/database"
)

// AccessibleTemplates filters the catalog down to what the given plan may
// use. Pro and Enterprise see the catalog unchanged; everyone else only
// non-premium entries. The input is never mutated and relative order is
// preserved.
func AccessibleTemplates(catalog []database.Template, plan PlanName) []database.Template {
	switch plan {
	case Pro, Enterprise:
		out := make([]database.Template, len(catalog))
		copy(out, catalog)
		return out
	default:
		out := make([]database.Template, 0, len(catalog))
		for _, t := range catalog {
			if !t.Premium {
				out = append(out, t)
			}
		}
		return out
	}
}

// CanAccessTemplate reports whether a single catalog entry is usable under
// the given plan.
func CanAccessTemplate(t database.Template, plan PlanName) bool {
	switch plan {
	case Pro, Enterprise:
		return true
	default:
		return !t.Premium
	}
}

// CanCreateResume is the document-creation precondition: unlimited plans
// always pass, otherwise the current count must stay below the quota.
func CanCreateResume(f Features, currentCount int) bool {
	if f.MaxResumes == UnlimitedResumes {
		return true
	}
	return currentCount < f.MaxResumes
}

// Resolver looks up the active subscription of an account and derives its
// plan name and feature set.
type Resolver struct {
	db *gorm.DB
}

// NewResolver constructs a Resolver.
func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

// Resolve returns the plan name and features of the user's active
// subscription. Users without one get Free with the default feature set.
func (r *Resolver) Resolve(ctx context.Context, userID uint) (PlanName, Features, error) {
	var sub database.UserSubscription
	err := r.db.WithContext(ctx).
		Preload("Plan").
		Where("user_id = ? AND status = ?", userID, database.SubscriptionActive).
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Free, DefaultFreeFeatures(), nil
		}
		return Free, Features{}, fmt.Errorf("resolve subscription: %w", err)
	}

	features, err := DecodeFeatures(sub.Plan.Features)
	if err != nil {
		return Free, Features{}, err
	}
	return ParsePlanName(sub.Plan.Name), features, nil
}
