package entitlement

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
)

// PlanName is the closed set of subscription tiers. Anything that does not
// parse cleanly is treated as Free, including accounts without a
// subscription row.
type PlanName int

const (
	Free PlanName = iota
	Pro
	Enterprise
)

// ParsePlanName maps a stored plan name to the enumeration. Unknown or empty
// names fall back to Free.
func ParsePlanName(s string) PlanName {
	switch s {
	case "Pro":
		return Pro
	case "Enterprise":
		return Enterprise
	default:
		return Free
	}
}

func (p PlanName) String() string {
	switch p {
	case Pro:
		return "Pro"
	case Enterprise:
		return "Enterprise"
	default:
		return "Free"
	}
}

// UnlimitedResumes is the sentinel value of MaxResumes meaning no quota.
const UnlimitedResumes = -1

// TemplatesAll is the sentinel entry of Features.Templates granting the full
// catalog.
const TemplatesAll = "all"

// Features is the entitlement payload stored on a subscription plan row.
type Features struct {
	MaxResumes      int      `json:"max_resumes"`
	Templates       []string `json:"templates"`
	ExportFormats   []string `json:"export_formats"`
	AISuggestions   bool     `json:"ai_suggestions,omitempty"`
	TeamManagement  bool     `json:"team_management,omitempty"`
	PrioritySupport bool     `json:"priority_support,omitempty"`
}

// DecodeFeatures reads a plan's JSONB feature column.
func DecodeFeatures(raw datatypes.JSON) (Features, error) {
	var f Features
	if len(raw) == 0 {
		return DefaultFreeFeatures(), nil
	}
	if err := json.Unmarshal(raw, &f); err != nil {
		return Features{}, fmt.Errorf("decode plan features: %w", err)
	}
	return f, nil
}

// EncodeFeatures serializes a feature set for the JSONB column.
func EncodeFeatures(f Features) (datatypes.JSON, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encode plan features: %w", err)
	}
	return datatypes.JSON(data), nil
}

// DefaultFreeFeatures is the entitlement granted to accounts without a
// subscription row, and the fallback when a plan row carries no features.
func DefaultFreeFeatures() Features {
	return Features{
		MaxResumes:    3,
		Templates:     []string{"minimal", "classic"},
		ExportFormats: []string{"pdf"},
	}
}
