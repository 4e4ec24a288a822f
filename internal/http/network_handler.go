package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rmi/internal/domain"
	"rmi/internal/service"
)

// NetworkHandler expone la red relacional del usuario autenticado.
type NetworkHandler struct {
	logger  *zap.Logger
	network *service.NetworkService
}

func NewNetworkHandler(logger *zap.Logger, network *service.NetworkService) *NetworkHandler {
	return &NetworkHandler{logger: logger, network: network}
}

// List maneja GET /api/contacts.
func (h *NetworkHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	contacts, err := h.network.ListContacts(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("list contacts failed", zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list contacts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"contacts": contacts})
}

// Create maneja POST /api/contacts.
func (h *NetworkHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req service.ContactInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid contact request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	contact, err := h.network.AddContact(c.Request.Context(), userID, req)
	if err != nil {
		h.respondError(c, "add contact", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"contact": contact})
}

// Onboard maneja POST /api/contacts/onboard.
func (h *NetworkHandler) Onboard(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req struct {
		Contacts []service.ContactInput `json:"contacts"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid onboard request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	contacts, err := h.network.Onboard(c.Request.Context(), userID, req.Contacts)
	if err != nil {
		h.respondError(c, "onboard", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"contacts": contacts})
}

// Update maneja PUT /api/contacts/:id.
func (h *NetworkHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req service.ContactPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid contact update request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	contact, err := h.network.UpdateContact(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		h.respondError(c, "update contact", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contact": contact})
}

// Delete maneja DELETE /api/contacts/:id.
func (h *NetworkHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	if err := h.network.DeleteContact(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.respondError(c, "delete contact", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Clear maneja DELETE /api/contacts.
func (h *NetworkHandler) Clear(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	if err := h.network.ClearContacts(c.Request.Context(), userID); err != nil {
		h.respondError(c, "clear contacts", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Move maneja POST /api/contacts/:id/move.
func (h *NetworkHandler) Move(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req struct {
		Ring domain.Ring `json:"ring" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid move request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	contact, err := h.network.MoveContact(c.Request.Context(), userID, c.Param("id"), req.Ring)
	if err != nil {
		h.respondError(c, "move contact", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contact": contact})
}

// Advance maneja POST /api/contacts/:id/advance.
func (h *NetworkHandler) Advance(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	contact, err := h.network.AdvanceRing(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.respondError(c, "advance ring", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contact": contact})
}

// Complete maneja POST /api/contacts/:id/complete.
func (h *NetworkHandler) Complete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	contact, err := h.network.CompleteContactFlow(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.respondError(c, "complete contact flow", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contact": contact})
}

func (h *NetworkHandler) respondError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidContact):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrContactNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "contact not found"})
	default:
		h.logger.Error(op+" failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not " + op})
	}
}
