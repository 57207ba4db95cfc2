package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gatechat/internal/telemetry"
)

// PresenceSource exposes the live presence state.
type PresenceSource interface {
	OnlineUsers() []int
	RoomSizes() map[int]int
}

// RegisterDebugRoutes wires debug-only endpoints.
func RegisterDebugRoutes(router *gin.Engine, emitter *telemetry.AuditEmitter, presence PresenceSource, enabled bool) {
	if !enabled {
		return
	}

	router.GET("/debug/audit-test", func(c *gin.Context) {
		if emitter == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured"})
			return
		}
		emitAudit(c, emitter, telemetry.ActionAuditCheck, "audit-test")
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/debug/presence", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"online": presence.OnlineUsers(),
			"rooms":  presence.RoomSizes(),
		})
	})
}
