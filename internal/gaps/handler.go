package gaps

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"knowledge-backend/internal/shared/server/middleware"
	"knowledge-backend/internal/shared/server/respond"
	"knowledge-backend/internal/transcribe"
)

// Handler wires HTTP handlers to the gaps service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches gap routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/gaps", h.listGaps)
	rg.GET("/gaps/:id", h.getGap)
	rg.POST("/gaps/:id/answers", h.submitAnswer)
	rg.POST("/gaps/:id/feedback", h.recordFeedback)
	rg.POST("/gaps/:id/verify", h.verifyGap)
	rg.POST("/gaps/:id/close", h.closeGap)
}

func (h *Handler) listGaps(c *gin.Context) {
	tenantID := middleware.TenantIDFromContext(c)
	filter := ListFilter{
		Status:   c.Query("status"),
		Category: c.Query("category"),
	}
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respond.Error(c, http.StatusBadRequest, "validation_error", "limit must be a positive integer", nil)
			return
		}
		filter.Limit = parsed
	}
	if raw := c.Query("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			respond.Error(c, http.StatusBadRequest, "validation_error", "offset must be a non-negative integer", nil)
			return
		}
		filter.Offset = parsed
	}

	gaps, err := h.Svc.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list gaps", nil)
		return
	}
	if gaps == nil {
		gaps = []KnowledgeGap{}
	}
	respond.OK(c, gin.H{"gaps": gaps})
}

func (h *Handler) getGap(c *gin.Context) {
	tenantID := middleware.TenantIDFromContext(c)
	detail, err := h.Svc.Get(c.Request.Context(), tenantID, c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "gap not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load gap", nil)
		return
	}
	if detail.Answers == nil {
		detail.Answers = []GapAnswer{}
	}
	respond.OK(c, detail)
}

type submitAnswerRequest struct {
	QuestionIndex int    `json:"questionIndex"`
	Text          string `json:"text"`
	IsVoice       bool   `json:"isVoice"`
	AudioB64      string `json:"audioB64"`
	AudioMime     string `json:"audioMime"`
	AudioRef      string `json:"audioRef"`
}

func (h *Handler) submitAnswer(c *gin.Context) {
	tenantID := middleware.TenantIDFromContext(c)
	var req submitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	out, err := h.Svc.SubmitAnswer(c.Request.Context(), tenantID, SubmitAnswerInput{
		GapID:         c.Param("id"),
		QuestionIndex: req.QuestionIndex,
		Text:          req.Text,
		IsVoice:       req.IsVoice,
		AudioB64:      req.AudioB64,
		AudioMime:     req.AudioMime,
		AudioRef:      req.AudioRef,
		UserID:        middleware.UserIDFromContext(c),
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "gap not found", nil)
		case errors.Is(err, ErrQuestionOutOfRange):
			respond.Error(c, http.StatusBadRequest, "validation_error", "question index out of range", nil)
		case errors.Is(err, ErrInvalidAnswer):
			respond.Error(c, http.StatusBadRequest, "validation_error", "answer text must not be empty", nil)
		case errors.Is(err, ErrGapClosed):
			respond.Error(c, http.StatusConflict, "conflict", "gap is closed", nil)
		case errors.Is(err, transcribe.ErrNotConfigured):
			respond.Error(c, http.StatusServiceUnavailable, "not_configured", "transcription service not configured", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to submit answer", nil)
		}
		return
	}

	respond.JSON(c, http.StatusCreated, gin.H{
		"gap":    out.Gap,
		"answer": out.Answer,
		"embedding": gin.H{
			"success":   out.Embed.Success,
			"retryable": out.Embed.Retryable,
		},
	})
}

type feedbackRequest struct {
	Useful  *bool  `json:"useful"`
	Comment string `json:"comment"`
}

func (h *Handler) recordFeedback(c *gin.Context) {
	tenantID := middleware.TenantIDFromContext(c)
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Useful == nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "useful is required", nil)
		return
	}

	err := h.Svc.RecordFeedback(c.Request.Context(), tenantID, c.Param("id"), *req.Useful, req.Comment)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "gap not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to record feedback", nil)
		return
	}
	respond.OK(c, gin.H{"recorded": true})
}

func (h *Handler) verifyGap(c *gin.Context) {
	tenantID := middleware.TenantIDFromContext(c)
	gap, err := h.Svc.Verify(c.Request.Context(), tenantID, c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "gap not found", nil)
		case errors.Is(err, ErrInvalidTransition):
			respond.Error(c, http.StatusConflict, "conflict", "only answered gaps can be verified", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to verify gap", nil)
		}
		return
	}
	respond.OK(c, gap)
}

func (h *Handler) closeGap(c *gin.Context) {
	tenantID := middleware.TenantIDFromContext(c)
	gap, err := h.Svc.Close(c.Request.Context(), tenantID, c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "gap not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to close gap", nil)
		return
	}
	respond.OK(c, gap)
}
