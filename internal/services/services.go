// Package services holds the use cases behind the REST surface.
package services

import (
	"context"

	"gatechat/internal/models"
	"gatechat/internal/telemetry"
)

// Deliverer pushes persisted records to live sockets.
type Deliverer interface {
	DeliverDirect(msg models.Message) bool
	DeliverGroup(group models.Group, msg models.GroupMessage) int
	AnnounceGroup(group models.Group) int
}

// Auditor records security-relevant actions.
type Auditor interface {
	Emit(ctx context.Context, rec telemetry.Record)
}

type noopAuditor struct{}

func (noopAuditor) Emit(context.Context, telemetry.Record) {}
