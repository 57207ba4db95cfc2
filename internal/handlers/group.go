package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"gatechat/internal/middleware"
	"gatechat/internal/services"
	"gatechat/internal/telemetry"
)

// GroupHandler manages group-related endpoints.
type GroupHandler struct {
	groups *services.GroupService
	audit  *telemetry.AuditEmitter
	logger *slog.Logger
}

// NewGroupHandler constructs a GroupHandler.
func NewGroupHandler(groups *services.GroupService, audit *telemetry.AuditEmitter, logger *slog.Logger) *GroupHandler {
	return &GroupHandler{groups: groups, audit: audit, logger: logger}
}

// CreateGroup handles POST /messages/create-group.
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	var req struct {
		Name    string `json:"name" binding:"required"`
		Members []int  `json:"members"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		emitAudit(c, h.audit, telemetry.ActionInvalidPayload, "create-group")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	group, err := h.groups.Create(c.Request.Context(), c.GetInt(middleware.UserIDKey), req.Name, req.Members)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	emitAudit(c, h.audit, telemetry.ActionGroupCreated, strconv.Itoa(group.ID))
	c.JSON(http.StatusCreated, group)
}

// SendGroupMessage handles POST /messages/send-group/:groupId.
func (h *GroupHandler) SendGroupMessage(c *gin.Context) {
	groupID, ok := groupIDParam(c)
	if !ok {
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.groups.Send(c.Request.Context(), c.GetInt(middleware.UserIDKey), groupID, req.Text)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// GetGroupMessages handles GET /messages/group-messages/:groupId.
func (h *GroupHandler) GetGroupMessages(c *gin.Context) {
	groupID, ok := groupIDParam(c)
	if !ok {
		return
	}
	msgs, err := h.groups.Messages(c.Request.Context(), c.GetInt(middleware.UserIDKey), groupID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// ListUserGroups handles GET /messages/groups/:userId.
func (h *GroupHandler) ListUserGroups(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	groups, err := h.groups.ListForUser(c.Request.Context(), c.GetInt(middleware.UserIDKey), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

func groupIDParam(c *gin.Context) (int, bool) {
	groupID, err := strconv.Atoi(c.Param("groupId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group id"})
		return 0, false
	}
	return groupID, true
}
