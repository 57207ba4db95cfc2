package client

import "fmt"

// ConversationKind tells a direct conversation from a group one.
type ConversationKind int

const (
	KindDirect ConversationKind = iota + 1
	KindGroup
)

// ConversationRef identifies an open conversation. The zero value means none.
type ConversationRef struct {
	Kind ConversationKind
	ID   int
}

func Direct(peerID int) ConversationRef {
	return ConversationRef{Kind: KindDirect, ID: peerID}
}

func Group(groupID int) ConversationRef {
	return ConversationRef{Kind: KindGroup, ID: groupID}
}

func (r ConversationRef) IsZero() bool {
	return r.Kind == 0
}

// PushEvent is the socket event that carries new messages for this conversation.
func (r ConversationRef) PushEvent() string {
	if r.Kind == KindGroup {
		return "group-message"
	}
	return "newMessage"
}

func (r ConversationRef) String() string {
	switch r.Kind {
	case KindDirect:
		return fmt.Sprintf("direct:%d", r.ID)
	case KindGroup:
		return fmt.Sprintf("group:%d", r.ID)
	default:
		return "none"
	}
}
