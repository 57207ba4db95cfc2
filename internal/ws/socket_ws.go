package ws

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"gatechat/internal/auth"
	"gatechat/internal/observability"
)

// SocketConfig configures the socket endpoint.
type SocketConfig struct {
	AllowedOrigins []string
	CookieName     string
	SendBuffer     int
	Pump           PumpConfig
}

// SocketHandler authenticates the handshake and hands the socket to the hub.
type SocketHandler struct {
	hub        *Hub
	tokens     *auth.TokenManager
	events     *observability.Events
	upgrader   websocket.Upgrader
	cookieName string
	sendBuffer int
	pump       PumpConfig
	logger     *slog.Logger
}

// NewSocketHandler constructs a SocketHandler.
func NewSocketHandler(hub *Hub, tokens *auth.TokenManager, events *observability.Events, cfg SocketConfig, logger *slog.Logger) *SocketHandler {
	if cfg.Pump.WriteTimeout <= 0 {
		cfg.Pump.WriteTimeout = 10 * time.Second
	}
	if cfg.Pump.PongTimeout <= 0 {
		cfg.Pump.PongTimeout = 60 * time.Second
	}
	if cfg.Pump.MaxMessage <= 0 {
		cfg.Pump.MaxMessage = 64 * 1024
	}
	return &SocketHandler{
		hub:    hub,
		tokens: tokens,
		events: events,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(cfg.AllowedOrigins),
		},
		cookieName: cfg.CookieName,
		sendBuffer: cfg.SendBuffer,
		pump:       cfg.Pump,
		logger:     logger.With(slog.String("component", "socket")),
	}
}

// Handle upgrades the connection and registers the client.
func (h *SocketHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("gatechat/ws").Start(c.Request.Context(), "ws.handshake",
		trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID, status := h.authenticate(c)
	if status != http.StatusOK {
		span.SetStatus(codes.Error, http.StatusText(status))
		c.JSON(status, gin.H{"error": http.StatusText(status)})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Debug("upgrade failed", slog.Any("error", err))
		return
	}

	span.SetAttributes(attribute.Int("chat.user_id", userID))
	traceID := span.SpanContext().TraceID().String()
	requestID := observability.RequestIDFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      uuid.NewString(),
		UserID:      userID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   requestID,
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}
	client := NewClient(conn, info, h.sendBuffer)
	if err := h.hub.Connect(client); err != nil {
		h.logger.Warn("hub rejected socket", slog.Int("user_id", userID), slog.Any("error", err))
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, err.Error()))
		_ = conn.Close()
		return
	}

	// The request context ends with this handler; events keep its values.
	eventCtx := context.WithoutCancel(ctx)
	h.publish(eventCtx, info, observability.SessionConnect, "")

	go client.writePump(h.pump)
	go h.serve(eventCtx, client)
}

// authenticate resolves the user id from the token in the query, the
// Authorization header or the session cookie.
func (h *SocketHandler) authenticate(c *gin.Context) (int, int) {
	token := c.Query("token")
	if token == "" {
		token = auth.TokenFromRequest(c.Request, h.cookieName)
	}
	claims, err := h.tokens.Parse(token)
	if err != nil || claims.Role != auth.RoleUser {
		return 0, http.StatusUnauthorized
	}
	userID, err := claims.UserID()
	if err != nil {
		return 0, http.StatusUnauthorized
	}
	if requested := c.Query("userId"); requested != "" && requested != strconv.Itoa(userID) {
		return 0, http.StatusForbidden
	}
	return userID, http.StatusOK
}

func (h *SocketHandler) serve(ctx context.Context, client *Client) {
	var reason string
	if err := client.readPump(h.hub, h.pump); err != nil {
		reason = err.Error()
		if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			h.publish(ctx, client.Info(), observability.SessionError, reason)
		}
	}
	h.hub.Disconnect(client)
	h.publish(ctx, client.Info(), observability.SessionDisconnect, reason)
}

func (h *SocketHandler) publish(ctx context.Context, info ConnInfo, event, reason string) {
	ev := info.sessionEvent(event, reason, len(h.hub.OnlineUsers()), time.Now())
	if err := h.events.Session(ctx, ev, observability.BuildHeaders(info.RequestID, info.TraceID)); err != nil {
		h.logger.Debug("session event dropped", slog.String("event", event), slog.Any("error", err))
	}
}
