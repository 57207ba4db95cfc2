package client

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"gatechat/internal/models"
)

var ErrNoConversation = errors.New("no conversation open")

// Notifier surfaces the outcome of store actions to the user.
type Notifier interface {
	Error(text string)
	Success(text string)
}

type nopNotifier struct{}

func (nopNotifier) Error(string)   {}
func (nopNotifier) Success(string) {}

// Store is the client-side view of users, groups and the open conversation.
// It merges REST history with push events for the open conversation only.
type Store struct {
	api      API
	socket   Socket
	notifier Notifier
	selfID   int
	logger   *slog.Logger

	mu            sync.Mutex
	users         []models.User
	groups        []models.Group
	online        map[int]struct{}
	selected      ConversationRef
	generation    uint64
	sub           Subscription
	subscribed    bool
	messages      []models.Message
	groupMessages []models.GroupMessage

	ambient []Subscription
}

func NewStore(api API, socket Socket, notifier Notifier, selfID int, logger *slog.Logger) *Store {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	s := &Store{
		api:      api,
		socket:   socket,
		notifier: notifier,
		selfID:   selfID,
		logger:   logger.With(slog.String("component", "store")),
		online:   make(map[int]struct{}),
	}
	s.ambient = []Subscription{
		socket.Subscribe(models.EventOnlineUsers, s.onOnlineUsers),
		socket.Subscribe(models.EventNewGroup, s.onNewGroup),
	}
	return s
}

// Detach closes the open conversation and drops every listener the store holds.
func (s *Store) Detach() {
	s.mu.Lock()
	s.closeLocked()
	ambient := s.ambient
	s.ambient = nil
	s.mu.Unlock()

	for _, sub := range ambient {
		s.socket.Unsubscribe(sub)
	}
}

// Open selects ref, replacing any open conversation, and loads its history.
// Selecting a user clears the group selection and vice versa.
func (s *Store) Open(ctx context.Context, ref ConversationRef) error {
	if ref.IsZero() {
		return errors.New("open: empty conversation")
	}

	s.mu.Lock()
	s.closeLocked()
	s.generation++
	gen := s.generation
	s.selected = ref
	s.messages = nil
	s.groupMessages = nil
	s.sub = s.socket.Subscribe(ref.PushEvent(), func(data json.RawMessage) {
		s.onPush(gen, ref, data)
	})
	s.subscribed = true
	s.mu.Unlock()

	return s.load(ctx, gen, ref)
}

// Close unsubscribes ref if it is the open conversation.
func (s *Store) Close(ref ConversationRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected != ref {
		return
	}
	s.closeLocked()
}

func (s *Store) closeLocked() {
	if s.subscribed {
		s.socket.Unsubscribe(s.sub)
		s.subscribed = false
	}
	s.generation++
	s.selected = ConversationRef{}
	s.messages = nil
	s.groupMessages = nil
}

// Refresh re-fetches the open conversation.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	ref, gen := s.selected, s.generation
	s.mu.Unlock()
	if ref.IsZero() {
		return ErrNoConversation
	}
	return s.load(ctx, gen, ref)
}

// load fetches ref's history and merges it with the local list. History wins
// for shared ids, so tombstones show; messages pushed while the request was in
// flight are kept after it.
func (s *Store) load(ctx context.Context, gen uint64, ref ConversationRef) error {
	switch ref.Kind {
	case KindDirect:
		history, err := s.api.Conversation(ctx, ref.ID)
		if err != nil {
			return s.fail("failed to load messages", err)
		}
		s.mu.Lock()
		if gen == s.generation {
			s.messages = mergeMessages(history, s.messages)
		}
		s.mu.Unlock()
	case KindGroup:
		history, err := s.api.GroupMessages(ctx, ref.ID)
		if err != nil {
			return s.fail("failed to load messages", err)
		}
		s.mu.Lock()
		if gen == s.generation {
			s.groupMessages = mergeGroupMessages(history, s.groupMessages)
		}
		s.mu.Unlock()
	}
	return nil
}

func (s *Store) onPush(gen uint64, ref ConversationRef, data json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return
	}

	switch ref.Kind {
	case KindDirect:
		var msg models.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Debug("invalid push", slog.String("conversation", ref.String()), slog.Any("error", err))
			return
		}
		if !msg.Involves(s.selfID, ref.ID) {
			return
		}
		s.messages = upsertMessage(s.messages, msg)
	case KindGroup:
		var msg models.GroupMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Debug("invalid push", slog.String("conversation", ref.String()), slog.Any("error", err))
			return
		}
		if msg.GroupID != ref.ID {
			return
		}
		s.groupMessages = upsertGroupMessage(s.groupMessages, msg)
	}
}

func (s *Store) onOnlineUsers(data json.RawMessage) {
	var ids []int
	if err := json.Unmarshal(data, &ids); err != nil {
		s.logger.Debug("invalid presence payload", slog.Any("error", err))
		return
	}
	online := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		online[id] = struct{}{}
	}
	s.mu.Lock()
	s.online = online
	s.mu.Unlock()
}

func (s *Store) onNewGroup(data json.RawMessage) {
	var group models.Group
	if err := json.Unmarshal(data, &group); err != nil {
		s.logger.Debug("invalid group payload", slog.Any("error", err))
		return
	}
	if !group.HasMember(s.selfID) {
		return
	}
	s.mu.Lock()
	s.groups = upsertGroup(s.groups, group)
	s.mu.Unlock()
}

// LoadUsers fetches the sidebar candidates.
func (s *Store) LoadUsers(ctx context.Context) error {
	users, err := s.api.Users(ctx)
	if err != nil {
		return s.fail("failed to load users", err)
	}
	s.mu.Lock()
	s.users = users
	s.mu.Unlock()
	return nil
}

// LoadGroups fetches the caller's groups and joins their rooms.
func (s *Store) LoadGroups(ctx context.Context) error {
	groups, err := s.api.Groups(ctx, s.selfID)
	if err != nil {
		return s.fail("failed to load groups", err)
	}
	s.mu.Lock()
	s.groups = groups
	s.mu.Unlock()

	ids := make([]int, 0, len(groups))
	for _, g := range groups {
		ids = append(ids, g.ID)
	}
	if len(ids) == 0 {
		return nil
	}
	if err := s.socket.JoinGroups(ctx, ids); err != nil {
		s.logger.Warn("join groups failed", slog.Any("error", err))
	}
	return nil
}

// Send posts a direct message to the open user conversation.
func (s *Store) Send(ctx context.Context, text, image string) error {
	ref, gen := s.current()
	if ref.Kind != KindDirect {
		return s.fail("no user selected", ErrNoConversation)
	}
	msg, err := s.api.SendDirect(ctx, ref.ID, text, image)
	if err != nil {
		return s.fail("failed to send message", err)
	}
	s.mu.Lock()
	if gen == s.generation {
		s.messages = upsertMessage(s.messages, msg)
	}
	s.mu.Unlock()
	return nil
}

// SendGroup posts a message to the open group.
func (s *Store) SendGroup(ctx context.Context, text string) error {
	ref, gen := s.current()
	if ref.Kind != KindGroup {
		return s.fail("no group selected", ErrNoConversation)
	}
	msg, err := s.api.SendGroup(ctx, ref.ID, text)
	if err != nil {
		return s.fail("failed to send message", err)
	}
	s.mu.Lock()
	if gen == s.generation {
		s.groupMessages = upsertGroupMessage(s.groupMessages, msg)
	}
	s.mu.Unlock()
	return nil
}

// DeleteForMe hides a message for this client only.
func (s *Store) DeleteForMe(ctx context.Context, messageID int) error {
	if err := s.api.DeleteForMe(ctx, messageID); err != nil {
		return s.fail("delete for me failed", err)
	}
	s.mu.Lock()
	kept := s.messages[:0]
	for _, m := range s.messages {
		if m.ID != messageID {
			kept = append(kept, m)
		}
	}
	s.messages = kept
	s.mu.Unlock()
	s.notifier.Success("Deleted for you")
	return nil
}

// DeleteForEveryone tombstones a message the caller sent.
func (s *Store) DeleteForEveryone(ctx context.Context, messageID int) error {
	msg, err := s.api.DeleteForEveryone(ctx, messageID)
	if err != nil {
		return s.fail("delete for everyone failed", err)
	}
	s.mu.Lock()
	for i := range s.messages {
		if s.messages[i].ID == msg.ID {
			s.messages[i] = msg
		}
	}
	s.mu.Unlock()
	s.notifier.Success("Deleted for everyone")
	return nil
}

// CreateGroup creates a group and adds it to the local list.
func (s *Store) CreateGroup(ctx context.Context, name string, members []int) (models.Group, error) {
	group, err := s.api.CreateGroup(ctx, name, members)
	if err != nil {
		return models.Group{}, s.fail("failed to create group", err)
	}
	s.mu.Lock()
	s.groups = upsertGroup(s.groups, group)
	s.mu.Unlock()
	if err := s.socket.JoinGroups(ctx, []int{group.ID}); err != nil {
		s.logger.Warn("join group failed", slog.Int("group_id", group.ID), slog.Any("error", err))
	}
	s.notifier.Success("Group created")
	return group, nil
}

func (s *Store) current() (ConversationRef, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected, s.generation
}

func (s *Store) fail(text string, err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		text = apiErr.Message
	}
	if status := StatusOf(err); status == 0 || status >= http.StatusInternalServerError {
		s.logger.Warn("request failed", slog.String("action", text), slog.Int("status", status), slog.Any("error", err))
	}
	s.notifier.Error(text)
	return err
}

// Selected returns the open conversation, zero when none.
func (s *Store) Selected() ConversationRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

func (s *Store) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Message(nil), s.messages...)
}

func (s *Store) GroupMessages() []models.GroupMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.GroupMessage(nil), s.groupMessages...)
}

func (s *Store) Users() []models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.User(nil), s.users...)
}

func (s *Store) Groups() []models.Group {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Group(nil), s.groups...)
}

// OnlineUsers returns the last presence snapshot, sorted.
func (s *Store) OnlineUsers() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int, 0, len(s.online))
	for id := range s.online {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (s *Store) IsOnline(userID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.online[userID]
	return ok
}
