package entitlement

import (
	"context"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"resumeforge/internal/database"
)

func catalogFixture() []database.Template {
	return []database.Template{
		{Model: gorm.Model{ID: 1}, Name: "Clean Slate", Premium: false},
		{Model: gorm.Model{ID: 2}, Name: "Spectrum", Premium: true},
		{Model: gorm.Model{ID: 3}, Name: "Timeless", Premium: false},
		{Model: gorm.Model{ID: 4}, Name: "Boardroom", Premium: true},
	}
}

func TestAccessibleTemplates_FreeFiltersPremium(t *testing.T) {
	catalog := catalogFixture()

	got := AccessibleTemplates(catalog, Free)

	if len(got) != 2 {
		t.Fatalf("expected 2 templates, got %d", len(got))
	}
	if got[0].ID != 1 || got[1].ID != 3 {
		t.Fatalf("expected order [1 3], got [%d %d]", got[0].ID, got[1].ID)
	}
}

func TestAccessibleTemplates_UnknownPlanTreatedAsFree(t *testing.T) {
	catalog := catalogFixture()

	got := AccessibleTemplates(catalog, ParsePlanName("Platinum"))

	for _, tpl := range got {
		if tpl.Premium {
			t.Fatalf("unknown plan must not see premium template %d", tpl.ID)
		}
	}
}

func TestAccessibleTemplates_ProAndEnterpriseSeeEverything(t *testing.T) {
	catalog := catalogFixture()

	for _, plan := range []PlanName{Pro, Enterprise} {
		got := AccessibleTemplates(catalog, plan)
		if len(got) != len(catalog) {
			t.Fatalf("%s: expected %d templates, got %d", plan, len(catalog), len(got))
		}
		for i := range got {
			if got[i].ID != catalog[i].ID {
				t.Fatalf("%s: order changed at index %d", plan, i)
			}
		}
	}
}

func TestAccessibleTemplates_DoesNotMutateInput(t *testing.T) {
	catalog := catalogFixture()

	got := AccessibleTemplates(catalog, Pro)
	got[0].Name = "mutated"

	if catalog[0].Name != "Clean Slate" {
		t.Fatal("input catalog was mutated")
	}
}

func TestCanCreateResume(t *testing.T) {
	cases := []struct {
		name    string
		max     int
		current int
		want    bool
	}{
		{"unlimited zero", UnlimitedResumes, 0, true},
		{"unlimited many", UnlimitedResumes, 10000, true},
		{"under quota", 3, 2, true},
		{"at quota", 3, 3, false},
		{"over quota", 3, 4, false},
		{"zero quota", 0, 0, false},
	}
	for _, tc := range cases {
		got := CanCreateResume(Features{MaxResumes: tc.max}, tc.current)
		if got != tc.want {
			t.Errorf("%s: CanCreateResume(max=%d, current=%d) = %v, want %v",
				tc.name, tc.max, tc.current, got, tc.want)
		}
	}
}

func TestParsePlanName(t *testing.T) {
	cases := map[string]PlanName{
		"Free":       Free,
		"Pro":        Pro,
		"Enterprise": Enterprise,
		"":           Free,
		"pro":        Free,
		"garbage":    Free,
	}
	for in, want := range cases {
		if got := ParsePlanName(in); got != want {
			t.Errorf("ParsePlanName(%q) = %v, want %v", in, got, want)
		}
	}
}

func newResolverDB(t *testing.T) *gorm.DB {
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

func TestResolver_NoSubscriptionDefaultsToFree(t *testing.T) {
	db := newResolverDB(t)
	resolver := NewResolver(db)

	plan, features, err := resolver.Resolve(context.Background(), 42)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if plan != Free {
		t.Fatalf("expected Free, got %v", plan)
	}
	if features.MaxResumes != DefaultFreeFeatures().MaxResumes {
		t.Fatalf("expected default free quota, got %d", features.MaxResumes)
	}
}

func TestResolver_ActiveSubscriptionWins(t *testing.T) {
	db := newResolverDB(t)

	features, err := EncodeFeatures(Features{
		MaxResumes: UnlimitedResumes,
		Templates:  []string{TemplatesAll},
	})
	if err != nil {
		t.Fatalf("encode features: %v", err)
	}
	plan := database.SubscriptionPlan{Name: "Pro", Price: 9.99, Features: features}
	if err := db.Create(&plan).Error; err != nil {
		t.Fatalf("create plan: %v", err)
	}

	sub := database.UserSubscription{
		UserID:             7,
		PlanID:             plan.ID,
		Status:             database.SubscriptionActive,
		CurrentPeriodStart: time.Now(),
		CurrentPeriodEnd:   time.Now().Add(24 * time.Hour),
	}
	if err := db.Create(&sub).Error; err != nil {
		t.Fatalf("create subscription: %v", err)
	}

	got, gotFeatures, err := NewResolver(db).Resolve(context.Background(), 7)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != Pro {
		t.Fatalf("expected Pro, got %v", got)
	}
	if gotFeatures.MaxResumes != UnlimitedResumes {
		t.Fatalf("expected unlimited quota, got %d", gotFeatures.MaxResumes)
	}
}

func TestResolver_ExpiredSubscriptionIgnored(t *testing.T) {
	db := newResolverDB(t)

	plan := database.SubscriptionPlan{Name: "Pro", Price: 9.99}
	if err := db.Create(&plan).Error; err != nil {
		t.Fatalf("create plan: %v", err)
	}
	sub := database.UserSubscription{
		UserID: 7,
		PlanID: plan.ID,
		Status: database.SubscriptionExpired,
	}
	if err := db.Create(&sub).Error; err != nil {
		t.Fatalf("create subscription: %v", err)
	}

	got, _, err := NewResolver(db).Resolve(context.Background(), 7)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != Free {
		t.Fatalf("expected Free for expired subscription, got %v", got)
	}
}
