package telemetry

import (
	"context"
	"log/slog"
	"time"

	"gatechat/internal/observability"
)

// Action names an auditable state change.
type Action string

const (
	ActionAccessRequested  Action = "access_requested"
	ActionAccessGranted    Action = "access_granted"
	ActionUserSignedUp     Action = "user_signed_up"
	ActionAdminLogin       Action = "admin_login"
	ActionAdminLoginFailed Action = "admin_login_failed"
	ActionGroupCreated     Action = "group_created"
	ActionInvalidPayload   Action = "invalid_payload"
	ActionAuditCheck       Action = "audit_check"
)

// Severity is derived from the action unless a record overrides it.
var severities = map[Action]string{
	ActionAdminLoginFailed: "WARN",
	ActionInvalidPayload:   "WARN",
}

// Record is one audit entry. Subject is the entity acted on (an email, a group id).
type Record struct {
	Action    Action
	ActorID   int
	Subject   string
	RequestID string
	Level     string
}

func (r Record) level() string {
	if r.Level != "" {
		return r.Level
	}
	if lvl, ok := severities[r.Action]; ok {
		return lvl
	}
	return "INFO"
}

// Envelope is the wire shape published to the audit exchange.
type Envelope struct {
	SchemaVersion int    `json:"schema_version"`
	Action        Action `json:"action"`
	Level         string `json:"level"`
	OccurredAt    string `json:"occurred_at"`
	Service       string `json:"service"`
	Environment   string `json:"environment"`
	RequestID     string `json:"request_id,omitempty"`
	ActorID       int    `json:"actor_id,omitempty"`
	Subject       string `json:"subject,omitempty"`
}

// Publisher is the AMQP boundary the emitter writes to.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any, headers map[string]string) error
}

type AuditEmitter struct {
	publisher   Publisher
	routingKey  string
	service     string
	environment string
	logger      *slog.Logger
	now         func() time.Time
}

func NewAuditEmitter(publisher Publisher, routingKey, service, environment string, logger *slog.Logger) *AuditEmitter {
	return &AuditEmitter{
		publisher:   publisher,
		routingKey:  routingKey,
		service:     service,
		environment: environment,
		logger:      logger.With(slog.String("component", "audit")),
		now:         time.Now,
	}
}

// Emit publishes rec. Failures are logged, never returned.
// A missing request id is taken from ctx.
func (e *AuditEmitter) Emit(ctx context.Context, rec Record) {
	if e == nil || e.publisher == nil {
		return
	}
	if rec.RequestID == "" {
		rec.RequestID = observability.RequestIDFromContext(ctx)
	}

	env := Envelope{
		SchemaVersion: 2,
		Action:        rec.Action,
		Level:         rec.level(),
		OccurredAt:    e.now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		Environment:   e.environment,
		RequestID:     rec.RequestID,
		ActorID:       rec.ActorID,
		Subject:       rec.Subject,
	}
	e.logger.Debug("audit",
		slog.String("action", string(env.Action)),
		slog.Int("actor_id", env.ActorID),
		slog.String("request_id", env.RequestID),
	)

	if err := e.publisher.Publish(ctx, e.routingKey, env, observability.BuildHeaders(env.RequestID, "")); err != nil {
		observability.CountPublishFailure()
		e.logger.Error("audit publish failed", slog.String("action", string(env.Action)), slog.Any("error", err))
	}
}
