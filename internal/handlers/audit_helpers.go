package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"gatechat/internal/middleware"
	"gatechat/internal/observability"
	"gatechat/internal/telemetry"
)

func requestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(observability.RequestIDContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}

	requestID := c.GetHeader(observability.RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(observability.RequestIDContextKey, requestID)
	return requestID
}

// emitAudit records action for the caller of c. Subject names what was acted on.
func emitAudit(c *gin.Context, emitter *telemetry.AuditEmitter, action telemetry.Action, subject string) {
	emitter.Emit(c.Request.Context(), telemetry.Record{
		Action:    action,
		ActorID:   c.GetInt(middleware.UserIDKey),
		Subject:   subject,
		RequestID: requestIDFromContext(c),
	})
}
