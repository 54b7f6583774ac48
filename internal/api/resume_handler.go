package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"resumeforge/internal/database"
	"resumeforge/internal/entitlement"
	"resumeforge/internal/resume"
	"resumeforge/internal/store"
)

// ResumeHandler serves the resume document endpoints.
type ResumeHandler struct {
	db       *gorm.DB
	store    store.ResumeStore
	resolver *entitlement.Resolver
}

// NewResumeHandler constructs a ResumeHandler.
func NewResumeHandler(db *gorm.DB, resumeStore store.ResumeStore, resolver *entitlement.Resolver) *ResumeHandler {
	return &ResumeHandler{db: db, store: resumeStore, resolver: resolver}
}

var errInvalidResumeID = errors.New("invalid resume id")

type createResumeRequest struct {
	Title      string `json:"title" binding:"required"`
	TemplateID uint   `json:"template_id" binding:"required"`
}

type updateResumeRequest struct {
	Title      *string         `json:"title"`
	Status     *string         `json:"status"`
	Content    *resume.Content `json:"content"`
	TemplateID *uint           `json:"template_id"`
}

type templateEcho struct {
	Name         string `json:"name"`
	ThumbnailKey string `json:"thumbnail_key,omitempty"`
}

type resumeListItem struct {
	ID         uint          `json:"id"`
	Title      string        `json:"title"`
	Status     string        `json:"status"`
	TemplateID uint          `json:"template_id"`
	Template   *templateEcho `json:"template,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

type resumeResponse struct {
	ID         uint           `json:"id"`
	Title      string         `json:"title"`
	Status     string         `json:"status"`
	TemplateID uint           `json:"template_id"`
	Content    datatypes.JSON `json:"content"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// CreateResume persists a new draft. The plan's resume quota is a hard
// precondition; exceeding it yields 403.
func (h *ResumeHandler) CreateResume(c *gin.Context) {
	var req createResumeRequest
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

	_, features, err := h.resolver.Resolve(ctx, userID)
	if err != nil {
		Internal(c, "failed to resolve subscription")
		return
	}

	count, err := h.store.CountByUser(ctx, userID)
	if err != nil {
		Internal(c, "failed to count resumes")
		return
	}
	if !entitlement.CanCreateResume(features, int(count)) {
		Forbidden(c, "resume limit reached, upgrade your plan")
		return
	}

	created, err := h.store.Create(ctx, userID, req.Title, req.TemplateID)
	if err != nil {
		if errors.Is(err, store.ErrValidation) {
			BadRequest(c, err.Error())
			return
		}
		Internal(c, "failed to create resume")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": created.ID})
}

// ListResumes returns the user's documents, most recently updated first,
// with a template echo where the reference still resolves.
func (h *ResumeHandler) ListResumes(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	resumes, err := h.store.List(ctx, userID)
	if err != nil {
		Internal(c, "failed to list resumes")
		return
	}

	echoes := h.loadTemplateEchoes(c, resumes)

	items := make([]resumeListItem, 0, len(resumes))
	for _, r := range resumes {
		items = append(items, resumeListItem{
			ID:         r.ID,
			Title:      r.Title,
			Status:     r.Status,
			TemplateID: r.TemplateID,
			Template:   echoes[r.TemplateID],
			CreatedAt:  r.CreatedAt,
			UpdatedAt:  r.UpdatedAt,
		})
	}

	c.JSON(http.StatusOK, items)
}

// GetResume returns one document with its full content payload.
func (h *ResumeHandler) GetResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	id, err := parseResumeID(c.Param("id"))
	if err != nil {
		BadRequest(c, "invalid resume id")
		return
	}

	r, err := h.store.Get(c.Request.Context(), userID, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			NotFound(c, "resume not found")
			return
		}
		Internal(c, "failed to query resume")
		return
	}

	c.JSON(http.StatusOK, newResumeResponse(*r))
}

// UpdateResume merges the submitted fields into the stored document.
func (h *ResumeHandler) UpdateResume(c *gin.Context) {
	var req updateResumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	id, err := parseResumeID(c.Param("id"))
	if err != nil {
		BadRequest(c, "invalid resume id")
		return
	}

	upd := store.ResumeUpdate{Title: req.Title, TemplateID: req.TemplateID}
	if req.Status != nil {
		status, err := resume.ParseStatus(*req.Status)
		if err != nil {
			BadRequest(c, err.Error())
			return
		}
		upd.Status = &status
	}
	if req.Content != nil {
		if err := req.Content.Validate(); err != nil {
			BadRequest(c, err.Error())
			return
		}
		req.Content.Normalize()
		raw, err := req.Content.MarshalJSONB()
		if err != nil {
			Internal(c, "failed to encode content")
			return
		}
		upd.Content = &raw
	}

	updated, err := h.store.Update(c.Request.Context(), userID, id, upd)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrValidation):
			BadRequest(c, err.Error())
		case errors.Is(err, store.ErrNotFound):
			NotFound(c, "resume not found")
		default:
			Internal(c, "failed to update resume")
		}
		return
	}

	c.JSON(http.StatusOK, newResumeResponse(*updated))
}

// DeleteResume removes one document. Repeating the call yields 404.
func (h *ResumeHandler) DeleteResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	id, err := parseResumeID(c.Param("id"))
	if err != nil {
		BadRequest(c, "invalid resume id")
		return
	}

	if err := h.store.Delete(c.Request.Context(), userID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			NotFound(c, "resume not found")
			return
		}
		Internal(c, "failed to delete resume")
		return
	}

	c.Status(http.StatusNoContent)
}

// loadTemplateEchoes resolves the referenced templates in one query.
// Dangling references simply get no echo; the row itself is still served.
func (h *ResumeHandler) loadTemplateEchoes(c *gin.Context, resumes []database.Resume) map[uint]*templateEcho {
	ids := make([]uint, 0, len(resumes))
	seen := map[uint]bool{}
	for _, r := range resumes {
		if r.TemplateID != 0 && !seen[r.TemplateID] {
			seen[r.TemplateID] = true
			ids = append(ids, r.TemplateID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	var templates []database.Template
	if err := h.db.WithContext(c.Request.Context()).
		Where("id IN ?", ids).
		Find(&templates).Error; err != nil {
		return nil
	}

	echoes := make(map[uint]*templateEcho, len(templates))
	for _, t := range templates {
		echoes[t.ID] = &templateEcho{Name: t.Name, ThumbnailKey: t.ThumbnailKey}
	}
	return echoes
}

func parseResumeID(idParam string) (uint, error) {
	id, err := strconv.ParseUint(idParam, 10, 64)
	if err != nil || id == 0 {
		return 0, errInvalidResumeID
	}
	return uint(id), nil
}

func userIDFromContext(c *gin.Context) (uint, bool) {
	value, exists := c.Get("userID")
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint(v), true
	case uint64:
		return uint(v), true
	case int64:
		if v < 0 {
			return 0, false
		}
		return uint(v), true
	default:
		return 0, false
	}
}

func newResumeResponse(r database.Resume) resumeResponse {
	return resumeResponse{
		ID:         r.ID,
		Title:      r.Title,
		Status:     r.Status,
		TemplateID: r.TemplateID,
		Content:    r.Content,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}
