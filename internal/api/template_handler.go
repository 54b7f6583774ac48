package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"resumeforge/internal/database"
	"resumeforge/internal/entitlement"
	"resumeforge/internal/storage"
)

const thumbnailLinkTTL = 5 * time.Minute

// TemplateHandler serves the read-only template catalog, filtered through
// the caller's entitlement.
type TemplateHandler struct {
	db       *gorm.DB
	resolver *entitlement.Resolver
	storage  *storage.Client
}

// NewTemplateHandler constructs a TemplateHandler.
func NewTemplateHandler(db *gorm.DB, resolver *entitlement.Resolver, storageClient *storage.Client) *TemplateHandler {
	return &TemplateHandler{db: db, resolver: resolver, storage: storageClient}
}

type templateListItem struct {
	ID          uint     `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Style       string   `json:"style"`
	ColorScheme string   `json:"color_scheme"`
	Industries  []string `json:"industry"`
	Popular     bool     `json:"popular"`
	Premium     bool     `json:"premium"`
	Accessible  bool     `json:"accessible"`
}

type templateDetailResponse struct {
	templateListItem
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

// ListTemplates returns the catalog the caller's plan grants. With ?all=1
// the full catalog is returned and each entry carries its accessible flag,
// so galleries can render locked premium cards.
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()

	var catalog []database.Template
	if err := h.db.WithContext(ctx).Order("id").Find(&catalog).Error; err != nil {
		Internal(c, "failed to load template catalog")
		return
	}

	// A failed plan lookup degrades to Free rather than hiding the whole
	// catalog behind an error.
	plan, _, err := h.resolver.Resolve(ctx, userID)
	if err != nil {
		plan = entitlement.Free
	}

	visible := catalog
	if c.Query("all") == "" {
		visible = entitlement.AccessibleTemplates(catalog, plan)
	}

	items := make([]templateListItem, 0, len(visible))
	for _, t := range visible {
		items = append(items, newTemplateListItem(t, plan))
	}
	c.JSON(http.StatusOK, items)
}

// GetTemplate returns catalog detail with a presigned thumbnail link.
// Premium detail stays visible to Free users; only usage is gated.
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		BadRequest(c, "invalid template id")
		return
	}

	ctx := c.Request.Context()

	var t database.Template
	if err := h.db.WithContext(ctx).First(&t, uint(id)).Error; err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			NotFound(c, "template not found")
		default:
			Internal(c, "failed to query template")
		}
		return
	}

	plan, _, err := h.resolver.Resolve(ctx, userID)
	if err != nil {
		plan = entitlement.Free
	}

	resp := templateDetailResponse{templateListItem: newTemplateListItem(t, plan)}
	if t.ThumbnailKey != "" && h.storage != nil {
		url, err := h.storage.GeneratePresignedURL(ctx, t.ThumbnailKey, thumbnailLinkTTL)
		if err == nil {
			resp.ThumbnailURL = url
		} else if !storage.IsNoSuchKey(err) {
			Internal(c, "failed to presign thumbnail")
			return
		}
	}

	c.JSON(http.StatusOK, resp)
}

func newTemplateListItem(t database.Template, plan entitlement.PlanName) templateListItem {
	var industries []string
	if len(t.Industries) > 0 {
		_ = json.Unmarshal(t.Industries, &industries)
	}
	return templateListItem{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Style:       t.Style,
		ColorScheme: t.ColorScheme,
		Industries:  industries,
		Popular:     t.Popular,
		Premium:     t.Premium,
		Accessible:  entitlement.CanAccessTemplate(t, plan),
	}
}
