package observability

import "time"

// Socket session event names.
const (
	SessionConnect    = "ws_connect"
	SessionDisconnect = "ws_disconnect"
	SessionError      = "ws_error"
)

// SessionEvent describes one socket session transition.
type SessionEvent struct {
	Name       string    `json:"name"`
	ConnID     string    `json:"conn_id"`
	UserID     int       `json:"user_id"`
	DeviceID   string    `json:"device_id,omitempty"`
	IP         string    `json:"ip,omitempty"`
	Online     int       `json:"online"`
	Reason     string    `json:"reason,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	At         time.Time `json:"at"`
}

func BuildHeaders(requestID, traceID string) map[string]string {
	headers := map[string]string{}
	if requestID != "" {
		headers["x-request-id"] = requestID
	}
	if traceID != "" {
		headers["trace_id"] = traceID
	}
	return headers
}
