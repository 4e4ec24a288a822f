package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rmi/internal/service"
)

// InsightHandler expone la foto de métricas y el buzón de feedback.
type InsightHandler struct {
	logger   *zap.Logger
	insights *service.InsightService
	feedback *service.FeedbackService
}

func NewInsightHandler(logger *zap.Logger, insights *service.InsightService, feedback *service.FeedbackService) *InsightHandler {
	return &InsightHandler{logger: logger, insights: insights, feedback: feedback}
}

// Snapshot maneja GET /api/insights.
func (h *InsightHandler) Snapshot(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	snap, err := h.insights.Snapshot(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("insight snapshot failed", zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not compute insights"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

// SubmitFeedback maneja POST /api/feedback.
func (h *InsightHandler) SubmitFeedback(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid feedback request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	fb, err := h.feedback.Submit(c.Request.Context(), userID, req.Text)
	if err != nil {
		if errors.Is(err, service.ErrEmptyFeedback) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("submit feedback failed", zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save feedback"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"feedback": fb})
}
