package fanout

import (
	"log/slog"

	"gatechat/internal/models"
	"gatechat/internal/observability"
)

// Pusher delivers one event to a user's live socket, reporting whether it was queued.
type Pusher interface {
	SendToUser(userID int, event string, data any) bool
}

// Router turns persisted messages into best-effort pushes. Offline
// recipients are skipped; nothing is retried or queued.
type Router struct {
	pusher Pusher
	logger *slog.Logger
}

func NewRouter(pusher Pusher, logger *slog.Logger) *Router {
	return &Router{pusher: pusher, logger: logger.With(slog.String("component", "fanout"))}
}

// DeliverDirect pushes msg to its receiver and reports whether it was delivered.
func (r *Router) DeliverDirect(msg models.Message) bool {
	return r.push(msg.ReceiverID, models.EventNewMessage, msg)
}

// DeliverGroup pushes msg to every member of group and returns the delivered count.
// Delivery follows the stored member list, not joined rooms.
func (r *Router) DeliverGroup(group models.Group, msg models.GroupMessage) int {
	return r.pushAll(group.MemberIDs(), models.EventGroupMessage, msg)
}

// AnnounceGroup tells every member, creator included, about a new group.
func (r *Router) AnnounceGroup(group models.Group) int {
	return r.pushAll(group.MemberIDs(), models.EventNewGroup, group)
}

func (r *Router) pushAll(userIDs []int, event string, data any) int {
	delivered := 0
	for _, id := range userIDs {
		if r.push(id, event, data) {
			delivered++
		}
	}
	return delivered
}

func (r *Router) push(userID int, event string, data any) bool {
	if r.pusher.SendToUser(userID, event, data) {
		observability.CountPush(event, observability.PushDelivered)
		return true
	}
	observability.CountPush(event, observability.PushSkipped)
	r.logger.Debug("push skipped", slog.String("event", event), slog.Int("user_id", userID))
	return false
}
