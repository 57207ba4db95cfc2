package ws

import (
	"time"

	"gatechat/internal/observability"
)

// ConnInfo is the handshake metadata kept for the life of a socket.
type ConnInfo struct {
	ConnID      string
	UserID      int
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}

func (i ConnInfo) sessionEvent(name, reason string, online int, now time.Time) observability.SessionEvent {
	return observability.SessionEvent{
		Name:       name,
		ConnID:     i.ConnID,
		UserID:     i.UserID,
		DeviceID:   i.DeviceID,
		IP:         i.IP,
		Online:     online,
		Reason:     reason,
		DurationMS: now.Sub(i.ConnectedAt).Milliseconds(),
		At:         now.UTC(),
	}
}
