package runs

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"knowledge-backend/internal/shared/server/middleware"
	"knowledge-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the runs service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches run routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/analysis/runs", h.startRun)
	rg.GET("/analysis/runs", h.listRuns)
	rg.GET("/analysis/runs/:id", h.getRun)
	rg.DELETE("/analysis/runs/:id", h.cancelRun)
}

type startRunRequest struct {
	ProjectID string `json:"projectId"`
}

func (h *Handler) startRun(c *gin.Context) {
	tenantID := middleware.TenantIDFromContext(c)
	var req startRunRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
			return
		}
	}

	run, err := h.Svc.Start(tenantID, req.ProjectID)
	if err != nil {
		if errors.Is(err, ErrAlreadyRunning) {
			respond.Error(c, http.StatusConflict, "conflict", "a run is already in progress for this tenant", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to start run", nil)
		return
	}
	respond.JSON(c, http.StatusAccepted, run)
}

func (h *Handler) getRun(c *gin.Context) {
	tenantID := middleware.TenantIDFromContext(c)
	run, err := h.Svc.Get(tenantID, c.Param("id"))
	if err != nil {
		respond.Error(c, http.StatusNotFound, "not_found", "run not found", nil)
		return
	}
	respond.OK(c, run)
}

func (h *Handler) listRuns(c *gin.Context) {
	tenantID := middleware.TenantIDFromContext(c)
	list := h.Svc.List(tenantID)
	if list == nil {
		list = []Run{}
	}
	respond.OK(c, gin.H{"runs": list})
}

func (h *Handler) cancelRun(c *gin.Context) {
	tenantID := middleware.TenantIDFromContext(c)
	err := h.Svc.Cancel(tenantID, c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "run not found", nil)
		case errors.Is(err, ErrNotRunning):
			respond.Error(c, http.StatusConflict, "conflict", "run is not in progress", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to cancel run", nil)
		}
		return
	}
	respond.JSON(c, http.StatusAccepted, gin.H{"cancelling": true})
}
