package worker

import (
	"context"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"resumeforge/internal/database"
	"resumeforge/internal/notify"
	"resumeforge/internal/tasks"
)

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

func newWorkerDB(t *testing.T) *gorm.DB {
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

func seedSubscription(t *testing.T, db *gorm.DB, userID uint, status string, periodEnd time.Time) database.UserSubscription {
	t.Helper()
	sub := database.UserSubscription{
		UserID:             userID,
		PlanID:             1,
		Status:             status,
		CurrentPeriodStart: periodEnd.Add(-365 * 24 * time.Hour),
		CurrentPeriodEnd:   periodEnd,
	}
	if err := db.Create(&sub).Error; err != nil {
		t.Fatalf("seed subscription: %v", err)
	}
	return sub
}

func TestExpireSweepFlipsOnlyDueSubscriptions(t *testing.T) {
	db := newWorkerDB(t)
	pub := &fakePublisher{}
	handler := NewSubscriptionTaskHandler(db, pub, nil)

	due := seedSubscription(t, db, 1, database.SubscriptionActive, time.Now().Add(-time.Hour))
	current := seedSubscription(t, db, 2, database.SubscriptionActive, time.Now().Add(time.Hour))
	already := seedSubscription(t, db, 3, database.SubscriptionExpired, time.Now().Add(-time.Hour))

	task, err := tasks.NewSubscriptionExpireTask(0)
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	if err := handler.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("process task: %v", err)
	}

	statuses := map[uint]string{}
	var all []database.UserSubscription
	if err := db.Find(&all).Error; err != nil {
		t.Fatalf("list subscriptions: %v", err)
	}
	for _, sub := range all {
		statuses[sub.ID] = sub.Status
	}

	if statuses[due.ID] != database.SubscriptionExpired {
		t.Fatalf("due subscription not expired, status %q", statuses[due.ID])
	}
	if statuses[current.ID] != database.SubscriptionActive {
		t.Fatalf("current subscription touched, status %q", statuses[current.ID])
	}
	if statuses[already.ID] != database.SubscriptionExpired {
		t.Fatalf("expired subscription changed, status %q", statuses[already.ID])
	}

	if len(pub.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(pub.events))
	}
	e := pub.events[0]
	if e.userID != 1 || e.event.Resource != notify.ResourceSubscriptions ||
		e.event.Action != notify.ActionUpdate || e.event.ID != due.ID {
		t.Fatalf("unexpected event %+v", e)
	}
}

func TestExpireSweepRespectsBatchSize(t *testing.T) {
	db := newWorkerDB(t)
	pub := &fakePublisher{}
	handler := NewSubscriptionTaskHandler(db, pub, nil)

	for i := uint(1); i <= 5; i++ {
		seedSubscription(t, db, i, database.SubscriptionActive, time.Now().Add(-time.Hour))
	}

	task, err := tasks.NewSubscriptionExpireTask(2)
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	if err := handler.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("process task: %v", err)
	}

	var expired int64
	if err := db.Model(&database.UserSubscription{}).
		Where("status = ?", database.SubscriptionExpired).
		Count(&expired).Error; err != nil {
		t.Fatalf("count expired: %v", err)
	}
	if expired != 2 {
		t.Fatalf("expected 2 expired this sweep, got %d", expired)
	}
}

func TestExpireSweepNoWorkIsANoop(t *testing.T) {
	db := newWorkerDB(t)
	pub := &fakePublisher{}
	handler := NewSubscriptionTaskHandler(db, pub, nil)

	task, err := tasks.NewSubscriptionExpireTask(0)
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	if err := handler.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("process task: %v", err)
	}
	if len(pub.events) != 0 {
		t.Fatalf("expected no events, got %d", len(pub.events))
	}
}
