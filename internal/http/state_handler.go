package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rmi/internal/domain"
	"rmi/internal/service"
)

const (
	resetScopeCounters = "counters"
	resetScopeAll      = "all"
)

// StateHandler expone E_user, preferencias, eventos reales y resets.
type StateHandler struct {
	logger  *zap.Logger
	state   *service.StateService
	network *service.NetworkService
	chat    *service.ChatService
}

func NewStateHandler(logger *zap.Logger, state *service.StateService, network *service.NetworkService, chat *service.ChatService) *StateHandler {
	return &StateHandler{logger: logger, state: state, network: network, chat: chat}
}

// Get maneja GET /api/state.
func (h *StateHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	st, err := h.state.Get(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("get state failed", zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load state"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": st})
}

// SetEmotion maneja PUT /api/state/emotion.
func (h *StateHandler) SetEmotion(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req struct {
		EUser *int `json:"e_user" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid emotion request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	st, err := h.state.SetEmotion(c.Request.Context(), userID, *req.EUser)
	if err != nil {
		if errors.Is(err, service.ErrInvalidEmotion) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("set emotion failed", zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update emotion"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": st})
}

// SetSettings maneja PUT /api/state/settings.
func (h *StateHandler) SetSettings(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var patch domain.SettingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		h.logger.Warn("invalid settings request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	st, err := h.state.SetSettings(c.Request.Context(), userID, patch)
	if err != nil {
		h.logger.Error("set settings failed", zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update settings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": st})
}

// RecordEvent maneja POST /api/state/events.
func (h *StateHandler) RecordEvent(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req struct {
		Source string `json:"source" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid event request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if err := h.state.RecordRealEvent(c.Request.Context(), userID, req.Source); err != nil {
		if errors.Is(err, service.ErrInvalidEventSource) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("record event failed", zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not record event"})
		return
	}
	h.respondState(c, userID, http.StatusCreated)
}

// Reset maneja POST /api/state/reset con scope "counters" o "all".
func (h *StateHandler) Reset(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req struct {
		Scope string `json:"scope"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid reset request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ctx := c.Request.Context()
	var err error
	switch req.Scope {
	case resetScopeCounters:
		err = h.state.ResetCounters(ctx, userID)
	case resetScopeAll:
		err = errors.Join(
			h.network.ClearContacts(ctx, userID),
			h.chat.ClearHistory(ctx, userID),
			h.state.ResetState(ctx, userID),
		)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "scope must be counters or all"})
		return
	}
	if err != nil {
		h.logger.Error("reset failed", zap.String("user_id", userID), zap.String("scope", req.Scope), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not reset"})
		return
	}
	h.respondState(c, userID, http.StatusOK)
}

func (h *StateHandler) respondState(c *gin.Context, userID string, status int) {
	st, err := h.state.Get(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("get state failed", zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load state"})
		return
	}
	c.JSON(status, gin.H{"state": st})
}
