package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"gatechat/internal/apperr"
	"gatechat/internal/middleware"
	"gatechat/internal/services"
)

// MessageHandler serves direct-message endpoints.
type MessageHandler struct {
	messages *services.MessageService
	logger   *slog.Logger
}

func NewMessageHandler(messages *services.MessageService, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{messages: messages, logger: logger}
}

type sendMessageRequest struct {
	Text  string `json:"text"`
	Image string `json:"image"`
}

type deleteMessageRequest struct {
	MessageID int `json:"message_id" binding:"required"`
}

// ListUsers handles GET /messages/users.
func (h *MessageHandler) ListUsers(c *gin.Context) {
	users, err := h.messages.ListContacts(c.Request.Context(), c.GetInt(middleware.UserIDKey))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// GetConversation handles GET /messages/:id.
func (h *MessageHandler) GetConversation(c *gin.Context) {
	peerID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	msgs, err := h.messages.Conversation(c.Request.Context(), c.GetInt(middleware.UserIDKey), peerID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// SendMessage handles POST /messages/send/:id.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	receiverID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid receiver id"})
		return
	}
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.messages.SendDirect(c.Request.Context(), c.GetInt(middleware.UserIDKey), receiverID, services.SendInput{
		Text:  req.Text,
		Image: req.Image,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// DeleteForMe handles POST /messages/delete-for-me.
func (h *MessageHandler) DeleteForMe(c *gin.Context) {
	var req deleteMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, apperr.InvalidArg("message_id is required"))
		return
	}
	if err := h.messages.DeleteForMe(c.Request.Context(), c.GetInt(middleware.UserIDKey), req.MessageID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteForEveryone handles POST /messages/delete-for-everyone.
func (h *MessageHandler) DeleteForEveryone(c *gin.Context) {
	var req deleteMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, apperr.InvalidArg("message_id is required"))
		return
	}
	msg, err := h.messages.DeleteForEveryone(c.Request.Context(), c.GetInt(middleware.UserIDKey), req.MessageID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}
