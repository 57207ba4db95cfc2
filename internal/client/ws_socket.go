package client

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/pkg/errors"

	"gatechat/internal/models"
)

// WSSocket is a Socket over a websocket connection to /ws.
type WSSocket struct {
	*Bus
	conn   *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	logger *slog.Logger
}

// DialSocket connects to the socket endpoint at wsURL as userID and starts
// reading push events.
func DialSocket(ctx context.Context, wsURL, token string, userID int, logger *slog.Logger) (*WSSocket, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse socket url")
	}
	q := u.Query()
	q.Set("userId", strconv.Itoa(userID))
	u.RawQuery = q.Encode()

	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	conn, _, err := websocket.Dial(ctx, u.String(), &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		return nil, errors.Wrap(err, "dial socket")
	}

	readCtx, cancel := context.WithCancel(context.Background())
	s := &WSSocket{
		Bus:    NewBus(),
		conn:   conn,
		ctx:    readCtx,
		cancel: cancel,
		done:   make(chan struct{}),
		logger: logger.With(slog.String("component", "client_socket")),
	}
	go s.readLoop()
	return s, nil
}

func (s *WSSocket) readLoop() {
	defer close(s.done)
	for {
		var env models.Envelope
		if err := wsjson.Read(s.ctx, s.conn, &env); err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && s.ctx.Err() == nil {
				s.logger.Warn("socket read failed", slog.Any("error", err))
			}
			return
		}
		s.Dispatch(env.Event, env.Data)
	}
}

// Emit sends one envelope to the server.
func (s *WSSocket) Emit(ctx context.Context, event string, data any) error {
	raw, err := models.EncodeEnvelope(event, data)
	if err != nil {
		return errors.Wrap(err, "encode envelope")
	}
	return errors.Wrap(s.conn.Write(ctx, websocket.MessageText, raw), "write frame")
}

func (s *WSSocket) JoinGroups(ctx context.Context, groupIDs []int) error {
	return s.Emit(ctx, models.EventJoinGroups, groupIDs)
}

// Done is closed once the read loop exits.
func (s *WSSocket) Done() <-chan struct{} {
	return s.done
}

func (s *WSSocket) Close() error {
	err := s.conn.Close(websocket.StatusNormalClosure, "")
	s.cancel()
	<-s.done
	return err
}
