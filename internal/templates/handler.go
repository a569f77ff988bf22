package templates

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"

	"cvbuilder/internal/resumes"
	"cvbuilder/internal/shared/server/middleware"
	"cvbuilder/internal/shared/server/respond"
	"cvbuilder/internal/subscriptions"
)

// ResumeSource loads the résumé to render.
type ResumeSource interface {
	Get(ctx context.Context, userID, id string) (resumes.Resume, error)
}

// Gate checks subscription entitlements.
type Gate interface {
	Require(ctx context.Context, userID string, feature subscriptions.Feature) error
	RequireExport(ctx context.Context, userID, format string) error
}

// Handler serves the gallery, previews and exports.
type Handler struct {
	Catalog *Catalog
	Resumes ResumeSource
	Gate    Gate
}

// NewHandler constructs a Handler. A nil gate allows everything.
func NewHandler(catalog *Catalog, resumes ResumeSource, gate Gate) *Handler {
	return &Handler{Catalog: catalog, Resumes: resumes, Gate: gate}
}

// RegisterRoutes attaches template routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/templates", h.list)
	rg.GET("/templates/:id", h.get)
	rg.GET("/resumes/:id/preview", h.preview)
	rg.GET("/resumes/:id/export", h.export)
}

func (h *Handler) list(c *gin.Context) {
	respond.OK(c, gin.H{
		"items":      h.Catalog.List(c.Query("category")),
		"categories": h.Catalog.Categories(),
	})
}

func (h *Handler) get(c *gin.Context) {
	t, err := h.Catalog.Get(c.Param("id"))
	if err != nil {
		respond.Error(c, http.StatusNotFound, "not_found", "template not found", nil)
		return
	}
	respond.OK(c, t)
}

func (h *Handler) preview(c *gin.Context) {
	r, t, ok := h.load(c)
	if !ok {
		return
	}
	body, err := RenderHTML(r, t)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to render preview", nil)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "text/html; charset=utf-8", body)
}

func (h *Handler) export(c *gin.Context) {
	format := strings.ToLower(c.DefaultQuery("format", FormatHTML))
	switch format {
	case FormatHTML, FormatMarkdown, FormatText:
	default:
		respond.Error(c, http.StatusBadRequest, "validation_error", "format must be html, md or txt", nil)
		return
	}
	// html and txt are open to every plan, including guests.
	if format != FormatHTML && format != FormatText && h.Gate != nil {
		if err := h.Gate.RequireExport(c.Request.Context(), middleware.UserIDFromContext(c), format); err != nil {
			h.writeError(c, err)
			return
		}
	}
	r, t, ok := h.load(c)
	if !ok {
		return
	}
	body, contentType, err := Export(r, t, format)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to export resume", nil)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, exportName(r), format))
	c.Data(http.StatusOK, contentType, body)
}

// load resolves the résumé and template for a preview or export and applies
// premium gating. It writes the error response itself.
func (h *Handler) load(c *gin.Context) (resumes.Resume, Template, bool) {
	c.Set(middleware.LogResumeIDKey, c.Param("id"))
	userID := middleware.UserIDFromContext(c)
	r, err := h.Resumes.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		resumes.WriteError(c, err)
		return resumes.Resume{}, Template{}, false
	}
	id := c.Query("template")
	if id == "" {
		id = r.TemplateID
	}
	if id == "" {
		id = resumes.DefaultTemplate
	}
	t, err := h.Catalog.Get(id)
	if err != nil {
		respond.Error(c, http.StatusNotFound, "not_found", "template not found", nil)
		return resumes.Resume{}, Template{}, false
	}
	if t.Premium && h.Gate != nil {
		if err := h.Gate.Require(c.Request.Context(), userID, subscriptions.FeaturePremiumTemplates); err != nil {
			h.writeError(c, err)
			return resumes.Resume{}, Template{}, false
		}
	}
	return r, t, true
}

func (h *Handler) writeError(c *gin.Context, err error) {
	if subscriptions.MapError(c, err) {
		return
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		respond.Error(c, http.StatusRequestTimeout, "timeout", "request canceled", nil)
		return
	}
	respond.Error(c, http.StatusInternalServerError, "internal_error", "entitlement check failed", nil)
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func exportName(r resumes.Resume) string {
	name := r.Data.Personal.FullName
	if strings.TrimSpace(name) == "" {
		name = r.Title
	}
	name = strings.Trim(unsafeFileChars.ReplaceAllString(name, "-"), "-.")
	if name == "" {
		return "resume"
	}
	return name
}
