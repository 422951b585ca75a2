package realtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

const DefaultHeartbeat = 30 * time.Second

// Listener keeps a websocket to the events server and feeds every packet
// to a Handler.
type Listener struct {
	url       string
	token     string
	handler   *Handler
	heartbeat time.Duration
	dialer    *websocket.Dialer
	logger    *slog.Logger
}

func NewListener(url, token string, handler *Handler, heartbeat time.Duration, logger *slog.Logger) *Listener {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{
		url:       url,
		token:     token,
		handler:   handler,
		heartbeat: heartbeat,
		dialer:    websocket.DefaultDialer,
		logger:    logger,
	}
}

// Run connects, authenticates and processes packets until ctx is done or
// the connection closes. A normal close returns nil.
func (l *Listener) Run(ctx context.Context) error {
	ws, _, err := l.dialer.DialContext(ctx, l.url, nil)
	if err != nil {
		return errors.Wrap(err, "failed to dial events server")
	}
	defer ws.Close()

	err = ws.WriteJSON(authenticatePacket{Type: TypeAuthenticate, Token: l.token})
	if err != nil {
		return errors.Wrap(err, "failed to send authenticate")
	}

	errc := make(chan error, 1)
	go func() {
		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				errc <- err
				return
			}
			if err := l.handler.Handle(ctx, data); err != nil {
				if errors.Is(err, ErrAuthentication) {
					errc <- err
					return
				}
				l.logger.ErrorContext(
					ctx, "Error handling packet",
					slog.String("error", err.Error()),
					slog.String("module", "realtime"),
				)
			}
		}
	}()

	ticker := time.NewTicker(l.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			ws.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second),
			)
			return ctx.Err()

		case err := <-errc:
			if errors.Is(err, ErrAuthentication) {
				return err
			}
			wsErr, ok := err.(*websocket.CloseError)
			if ok && (wsErr.Code == websocket.CloseNormalClosure || wsErr.Code == websocket.CloseGoingAway) {
				l.logger.DebugContext(
					ctx, "WebSocket closed",
					slog.String("error", wsErr.Error()),
					slog.String("module", "realtime"),
				)
				return nil
			}
			return errors.Wrap(err, "failed to read from events server")

		case t := <-ticker.C:
			err := ws.WriteJSON(pingPacket{Type: TypePing, Data: t.Unix()})
			if err != nil {
				return errors.Wrap(err, "failed to send heartbeat")
			}
		}
	}
}
