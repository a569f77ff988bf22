package resumes

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"cvbuilder/internal/shared/server/middleware"
	"cvbuilder/internal/shared/server/respond"
)

const maxAutosaveBytes = 256 << 10

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches résumé and wizard routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/wizard/steps", h.wizardSteps)

	rg.POST("/resumes", h.create)
	rg.GET("/resumes", h.list)
	rg.GET("/resumes/:id", h.get)
	rg.PUT("/resumes/:id", h.update)
	rg.DELETE("/resumes/:id", h.delete)
	rg.PATCH("/resumes/:id/sections/:section", h.patchSection)
	rg.POST("/resumes/:id/autosave", h.autosave)
	rg.GET("/resumes/:id/steps", h.steps)
	rg.POST("/resumes/:id/steps/:step/complete", h.completeStep)
	rg.POST("/resumes/:id/duplicate", h.duplicate)
	rg.GET("/resumes/:id/text", h.text)
}

func (h *Handler) wizardSteps(c *gin.Context) {
	respond.OK(c, gin.H{"steps": Steps})
}

func (h *Handler) create(c *gin.Context) {
	var in CreateInput
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&in); err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
			return
		}
	}
	r, err := h.Svc.Create(c.Request.Context(), middleware.UserIDFromContext(c), in)
	if err != nil {
		WriteError(c, err)
		return
	}
	respond.Created(c, ToResponse(r))
}

func (h *Handler) list(c *gin.Context) {
	limit, offset := respond.Paging(c, 20, 50)
	items, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c), limit, offset)
	if err != nil {
		WriteError(c, err)
		return
	}
	out := make([]ResumeSummary, 0, len(items))
	for _, r := range items {
		out = append(out, toSummary(r))
	}
	respond.List(c, out, limit, offset)
}

func (h *Handler) get(c *gin.Context) {
	c.Set(middleware.LogResumeIDKey, c.Param("id"))
	r, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		WriteError(c, err)
		return
	}
	respond.OK(c, ToResponse(r))
}

func (h *Handler) update(c *gin.Context) {
	c.Set(middleware.LogResumeIDKey, c.Param("id"))
	var in UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	r, err := h.Svc.Update(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"), in)
	if err != nil {
		WriteError(c, err)
		return
	}
	respond.OK(c, ToResponse(r))
}

func (h *Handler) patchSection(c *gin.Context) {
	c.Set(middleware.LogResumeIDKey, c.Param("id"))
	var raw json.RawMessage
	if err := c.ShouldBindJSON(&raw); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	r, err := h.Svc.PatchSection(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"), c.Param("section"), raw)
	if err != nil {
		WriteError(c, err)
		return
	}
	respond.OK(c, ToResponse(r))
}

func (h *Handler) autosave(c *gin.Context) {
	c.Set(middleware.LogResumeIDKey, c.Param("id"))
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxAutosaveBytes)
	var sections map[string]json.RawMessage
	if err := c.ShouldBindJSON(&sections); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "payload_too_large", "draft is too large", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if err := h.Svc.Autosave(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"), sections); err != nil {
		WriteError(c, err)
		return
	}
	respond.JSON(c, http.StatusAccepted, gin.H{"status": "pending"})
}

func (h *Handler) steps(c *gin.Context) {
	states, err := h.Svc.Steps(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		WriteError(c, err)
		return
	}
	respond.OK(c, gin.H{"resumeId": c.Param("id"), "steps": states})
}

func (h *Handler) completeStep(c *gin.Context) {
	c.Set(middleware.LogResumeIDKey, c.Param("id"))
	step, err := strconv.Atoi(c.Param("step"))
	if err != nil {
		respond.Error(c, http.StatusNotFound, "unknown_step", "unknown wizard step", nil)
		return
	}
	r, err := h.Svc.CompleteStep(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"), step)
	if err != nil {
		WriteError(c, err)
		return
	}
	respond.OK(c, ToResponse(r))
}

func (h *Handler) duplicate(c *gin.Context) {
	r, err := h.Svc.Duplicate(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		WriteError(c, err)
		return
	}
	respond.Created(c, ToResponse(r))
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.Svc.Delete(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id")); err != nil {
		WriteError(c, err)
		return
	}
	respond.NoContent(c)
}

func (h *Handler) text(c *gin.Context) {
	text, err := h.Svc.Text(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		WriteError(c, err)
		return
	}
	respond.OK(c, gin.H{"resumeId": c.Param("id"), "text": text})
}

// WriteError maps résumé errors onto HTTP responses.
func WriteError(c *gin.Context, err error) {
	var stepErr *StepInvalidError
	switch {
	case errors.As(err, &stepErr):
		respond.Error(c, http.StatusUnprocessableEntity, "step_invalid", "wizard step "+strconv.Itoa(stepErr.Step)+" has errors", stepErr.Errors)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "resume not found", nil)
	case errors.Is(err, ErrUnknownStep):
		respond.Error(c, http.StatusNotFound, "unknown_step", "unknown wizard step", nil)
	case errors.Is(err, ErrVersionConflict):
		respond.Error(c, http.StatusConflict, "version_conflict", "resume was changed elsewhere; reload and retry", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrAutosaveClosed):
		respond.Error(c, http.StatusServiceUnavailable, "unavailable", "server is shutting down", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "resume operation failed", nil)
	}
}
