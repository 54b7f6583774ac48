package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"resumeforge/internal/database"
	"resumeforge/internal/notify"
	"resumeforge/internal/resume"
)

// ResumeUpdate carries the partial fields of an update; nil pointers are
// left untouched.
type ResumeUpdate struct {
	Title      *string
	Status     *resume.Status
	Content    *datatypes.JSON
	TemplateID *uint
}

// ResumeStore is the document store contract. Every operation takes the
// acting account id and refuses to touch rows owned by anyone else.
type ResumeStore interface {
	List(ctx context.Context, userID uint) ([]database.Resume, error)
	Get(ctx context.Context, userID, id uint) (*database.Resume, error)
	Create(ctx context.Context, userID uint, title string, templateID uint) (*database.Resume, error)
	Update(ctx context.Context, userID, id uint, upd ResumeUpdate) (*database.Resume, error)
	Delete(ctx context.Context, userID, id uint) error
	CountByUser(ctx context.Context, userID uint) (int64, error)
}

type gormResumeStore struct {
	db       *gorm.DB
	notifier notify.Publisher
	logger   *slog.Logger
}

// NewResumeStore builds the gorm-backed store. Successful writes publish a
// change event on the owner's channel; publish failures are logged and do
// not fail the write.
func NewResumeStore(db *gorm.DB, notifier notify.Publisher, logger *slog.Logger) ResumeStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &gormResumeStore{db: db, notifier: notifier, logger: logger}
}

// List returns the user's documents, most recently updated first.
func (s *gormResumeStore) List(ctx context.Context, userID uint) ([]database.Resume, error) {
	var resumes []database.Resume
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&resumes).Error; err != nil {
		return nil, fmt.Errorf("list resumes: %w", err)
	}
	return resumes, nil
}

func (s *gormResumeStore) Get(ctx context.Context, userID, id uint) (*database.Resume, error) {
	var r database.Resume
	if err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&r).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query resume: %w", err)
	}
	return &r, nil
}

// Create persists a new draft with the default content payload. The owner's
// email is prefilled into the personal section.
func (s *gormResumeStore) Create(ctx context.Context, userID uint, title string, templateID uint) (*database.Resume, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%w: title must not be empty", ErrValidation)
	}

	var owner database.User
	if err := s.db.WithContext(ctx).Select("id", "email").First(&owner, userID).Error; err != nil {
		return nil, fmt.Errorf("load owner: %w", err)
	}

	content, err := resume.DefaultContent(owner.Email).MarshalJSONB()
	if err != nil {
		return nil, err
	}

	r := database.Resume{
		Title:      title,
		Status:     string(resume.StatusDraft),
		Content:    content,
		TemplateID: templateID,
		UserID:     userID,
	}
	if err := s.db.WithContext(ctx).Create(&r).Error; err != nil {
		return nil, fmt.Errorf("create resume: %w", err)
	}

	s.publish(ctx, userID, notify.ActionCreate, r.ID)
	return &r, nil
}

// Update merges the given fields into the stored document and refreshes the
// updated timestamp.
func (s *gormResumeStore) Update(ctx context.Context, userID, id uint, upd ResumeUpdate) (*database.Resume, error) {
	r, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if upd.Title != nil {
		if strings.TrimSpace(*upd.Title) == "" {
			return nil, fmt.Errorf("%w: title must not be empty", ErrValidation)
		}
		updates["title"] = *upd.Title
	}
	if upd.Status != nil {
		updates["status"] = string(*upd.Status)
	}
	if upd.Content != nil {
		updates["content"] = *upd.Content
	}
	if upd.TemplateID != nil {
		updates["template_id"] = *upd.TemplateID
	}
	if len(updates) == 0 {
		return r, nil
	}

	if err := s.db.WithContext(ctx).Model(r).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update resume: %w", err)
	}
	if err := s.db.WithContext(ctx).First(r, r.ID).Error; err != nil {
		return nil, fmt.Errorf("reload resume: %w", err)
	}

	s.publish(ctx, userID, notify.ActionUpdate, r.ID)
	return r, nil
}

// Delete removes the document. Repeating the call after success fails with
// ErrNotFound; deletion is deliberately not idempotent.
func (s *gormResumeStore) Delete(ctx context.Context, userID, id uint) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&database.Resume{})
	if res.Error != nil {
		return fmt.Errorf("delete resume: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	s.publish(ctx, userID, notify.ActionDelete, id)
	return nil
}

func (s *gormResumeStore) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&database.Resume{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count resumes: %w", err)
	}
	return count, nil
}

func (s *gormResumeStore) publish(ctx context.Context, userID uint, action string, id uint) {
	if s.notifier == nil {
		return
	}
	event := notify.Event{Resource: notify.ResourceResumes, Action: action, ID: id}
	if err := s.notifier.Publish(ctx, userID, event); err != nil {
		s.logger.Error("publish resume change failed",
			slog.Uint64("user_id", uint64(userID)),
			slog.String("action", action),
			slog.Any("error", err),
		)
	}
}
