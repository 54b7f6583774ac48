package catalog

import (
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"resumeforge/internal/database"
	"resumeforge/internal/entitlement"
)

// Template style tags.
const (
	StyleMinimal      = "minimal"
	StyleClassic      = "classic"
	StyleCreative     = "creative"
	StyleProfessional = "professional"
)

// Template color scheme tags.
const (
	ColorMonochrome = "monochrome"
	ColorBlue       = "blue"
	ColorColorful   = "colorful"
	ColorDark       = "dark"
)

type templateSeed struct {
	Name        string
	Description string
	Style       string
	ColorScheme string
	Industries  []string
	Popular     bool
	Premium     bool
}

var templateSeeds = []templateSeed{
	{
		Name:        "Clean Slate",
		Description: "A whitespace-heavy layout that lets the content speak.",
		Style:       StyleMinimal,
		ColorScheme: ColorMonochrome,
		Industries:  []string{"technology", "design"},
		Popular:     true,
	},
	{
		Name:        "Timeless",
		Description: "The classic single-column resume hiring managers expect.",
		Style:       StyleClassic,
		ColorScheme: ColorBlue,
		Industries:  []string{"finance", "legal", "education"},
		Popular:     true,
	},
	{
		Name:        "Monospace",
		Description: "A minimal layout with a typewriter feel for engineers.",
		Style:       StyleMinimal,
		ColorScheme: ColorDark,
		Industries:  []string{"technology"},
	},
	{
		Name:        "Ivy",
		Description: "A restrained classic layout for academia and research.",
		Style:       StyleClassic,
		ColorScheme: ColorMonochrome,
		Industries:  []string{"education", "research"},
	},
	{
		Name:        "Spectrum",
		Description: "Bold accent colors and an asymmetric grid for creatives.",
		Style:       StyleCreative,
		ColorScheme: ColorColorful,
		Industries:  []string{"design", "marketing", "media"},
		Popular:     true,
		Premium:     true,
	},
	{
		Name:        "Gallery",
		Description: "A portfolio-first layout with room for project imagery.",
		Style:       StyleCreative,
		ColorScheme: ColorDark,
		Industries:  []string{"design", "photography"},
		Premium:     true,
	},
	{
		Name:        "Boardroom",
		Description: "A structured two-column layout for senior roles.",
		Style:       StyleProfessional,
		ColorScheme: ColorBlue,
		Industries:  []string{"finance", "consulting", "management"},
		Premium:     true,
	},
	{
		Name:        "Ledger",
		Description: "Dense and data-forward, built for long track records.",
		Style:       StyleProfessional,
		ColorScheme: ColorMonochrome,
		Industries:  []string{"finance", "operations"},
		Premium:     true,
	},
}

type planSeed struct {
	Name        string
	Description string
	Price       float64
	Features    entitlement.Features
}

var planSeeds = []planSeed{
	{
		Name:        "Free",
		Description: "Get started with the essentials.",
		Price:       0,
		Features:    entitlement.DefaultFreeFeatures(),
	},
	{
		Name:        "Pro",
		Description: "Unlimited resumes and the full template catalog.",
		Price:       9.99,
		Features: entitlement.Features{
			MaxResumes:    entitlement.UnlimitedResumes,
			Templates:     []string{entitlement.TemplatesAll},
			ExportFormats: []string{"pdf", "docx"},
			AISuggestions: true,
		},
	},
	{
		Name:        "Enterprise",
		Description: "Everything in Pro plus team features and support.",
		Price:       29.99,
		Features: entitlement.Features{
			MaxResumes:      entitlement.UnlimitedResumes,
			Templates:       []string{entitlement.TemplatesAll},
			ExportFormats:   []string{"pdf", "docx", "txt"},
			AISuggestions:   true,
			TeamManagement:  true,
			PrioritySupport: true,
		},
	},
}

// SeedPlans inserts the plan catalog. Existing rows (matched by name) are
// left untouched so operator edits survive a re-seed.
func SeedPlans(db *gorm.DB) error {
	for _, seed := range planSeeds {
		var existing database.SubscriptionPlan
		err := db.Where("name = ?", seed.Name).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("query plan %q: %w", seed.Name, err)
		}

		features, err := entitlement.EncodeFeatures(seed.Features)
		if err != nil {
			return err
		}
		plan := database.SubscriptionPlan{
			Name:        seed.Name,
			Description: seed.Description,
			Price:       seed.Price,
			Features:    features,
		}
		if err := db.Create(&plan).Error; err != nil {
			return fmt.Errorf("create plan %q: %w", seed.Name, err)
		}
	}
	return nil
}

// SeedTemplates inserts the template catalog. Thumbnail keys follow the
// template name; uploading the actual images is a separate operator step.
func SeedTemplates(db *gorm.DB) error {
	for _, seed := range templateSeeds {
		var existing database.Template
		err := db.Where("name = ?", seed.Name).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("query template %q: %w", seed.Name, err)
		}

		industries, err := json.Marshal(seed.Industries)
		if err != nil {
			return fmt.Errorf("marshal industries for %q: %w", seed.Name, err)
		}
		t := database.Template{
			Name:         seed.Name,
			Description:  seed.Description,
			ThumbnailKey: ThumbnailKey(seed.Name),
			Style:        seed.Style,
			ColorScheme:  seed.ColorScheme,
			Industries:   datatypes.JSON(industries),
			Popular:      seed.Popular,
			Premium:      seed.Premium,
		}
		if err := db.Create(&t).Error; err != nil {
			return fmt.Errorf("create template %q: %w", seed.Name, err)
		}
	}
	return nil
}

// ThumbnailKey derives the object storage key for a template's thumbnail.
func ThumbnailKey(name string) string {
	return fmt.Sprintf("thumbnails/%s.png", slugify(name))
}

func slugify(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out = append(out, r)
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		case r == ' ', r == '-', r == '_':
			out = append(out, '-')
		}
	}
	return string(out)
}
