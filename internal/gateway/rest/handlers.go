// Package rest serves the JSON API: terminal listing and teardown,
// application settings, and project discovery.
package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/swiftprosyssfdev3-star/Finetune-LLM-Using-CLI/internal/common/errors"
	"github.com/swiftprosyssfdev3-star/Finetune-LLM-Using-CLI/internal/common/logger"
	"github.com/swiftprosyssfdev3-star/Finetune-LLM-Using-CLI/internal/project"
	"github.com/swiftprosyssfdev3-star/Finetune-LLM-Using-CLI/internal/settings"
	settingsstore "github.com/swiftprosyssfdev3-star/Finetune-LLM-Using-CLI/internal/settings/store"
	"github.com/swiftprosyssfdev3-star/Finetune-LLM-Using-CLI/internal/terminal"
)

// Handler serves the REST endpoints.
type Handler struct {
	registry *terminal.Registry
	projects *project.Manager
	settings settingsstore.Repository
	log      *logger.Logger
}

// NewHandler creates the REST handler.
func NewHandler(registry *terminal.Registry, projects *project.Manager, store settingsstore.Repository, log *logger.Logger) *Handler {
	return &Handler{
		registry: registry,
		projects: projects,
		settings: store,
		log:      log.WithFields(zap.String("component", "rest-api")),
	}
}

// RegisterRoutes mounts the REST endpoints on the router.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.handleHealth)

	api := r.Group("/api")
	{
		api.GET("/terminals", h.handleListTerminals)
		api.DELETE("/terminals/:id", h.handleKillTerminal)
		api.GET("/projects", h.handleListProjects)
		api.GET("/settings", h.handleGetSettings)
		api.POST("/settings", h.handleUpdateSettings)
	}
}

func (h *Handler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"active_sessions": len(h.registry.List()),
	})
}

func (h *Handler) handleListTerminals(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sessions": h.registry.List()})
}

func (h *Handler) handleKillTerminal(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.registry.Get(id); !ok {
		h.renderError(c, apperrors.NotFound("terminal session", id))
		return
	}
	h.registry.Destroy(c.Request.Context(), id)
	c.JSON(http.StatusOK, gin.H{"status": "terminated", "session_id": id})
}

func (h *Handler) handleListProjects(c *gin.Context) {
	ids, err := h.projects.List()
	if err != nil {
		h.renderError(c, apperrors.Internal("listing projects", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": ids})
}

func (h *Handler) handleGetSettings(c *gin.Context) {
	current, err := h.settings.Get(c.Request.Context())
	if err != nil {
		h.renderError(c, apperrors.Internal("loading settings", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": current.Masked()})
}

func (h *Handler) handleUpdateSettings(c *gin.Context) {
	var update settings.Settings
	if err := c.ShouldBindJSON(&update); err != nil {
		h.renderError(c, apperrors.BadRequest("invalid settings payload"))
		return
	}

	current, err := h.settings.Get(c.Request.Context())
	if err != nil {
		h.renderError(c, apperrors.Internal("loading settings", err))
		return
	}

	merged := settings.Merge(current, update)
	if err := h.settings.Put(c.Request.Context(), merged); err != nil {
		h.renderError(c, apperrors.Internal("saving settings", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "saved", "settings": merged.Masked()})
}

func (h *Handler) renderError(c *gin.Context, err error) {
	appErr := apperrors.AsAppError(err)
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		h.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(appErr.HTTPStatus, gin.H{"error": appErr.Message, "code": appErr.Code})
}
