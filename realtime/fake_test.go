package realtime

import (
	"context"

	"github.com/totegamma/chatkit"
	"github.com/totegamma/chatkit/directory"
	"github.com/totegamma/chatkit/events"
	"github.com/totegamma/chatkit/member"
)

// session wires the pieces the handler needs without a transport.
type session struct {
	users   *directory.Users
	servers *directory.Servers
	bus     *events.Bus
	members *member.Store
	events  []chatkit.Event
}

func newSession() *session {
	s := &session{
		users:   directory.NewUsers(),
		servers: directory.NewServers(),
		bus:     events.NewBus(nil),
	}
	s.members = member.NewStore(s, nil)
	s.bus.Subscribe(events.All, func(ctx context.Context, e chatkit.Event) {
		s.events = append(s.events, e)
	})
	return s
}

func (s *session) Req(ctx context.Context, method, path string, body, response any) error {
	return nil
}
func (s *session) User(id string) (*chatkit.User, bool)     { return s.users.Get(id) }
func (s *session) Server(id string) (*chatkit.Server, bool) { return s.servers.Get(id) }
func (s *session) FileURL(a *chatkit.Attachment, size int) (string, bool) {
	return "", false
}
func (s *session) Emit(ctx context.Context, e chatkit.Event) { s.bus.Emit(ctx, e) }

func (s *session) handler() *Handler {
	return NewHandler(s.members, s.users, s.servers, s, nil)
}
