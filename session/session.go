// Package session ties the transport, the directories, the event bus and
// the member cache into one client context.
package session

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/totegamma/chatkit"
	"github.com/totegamma/chatkit/client"
	"github.com/totegamma/chatkit/directory"
	"github.com/totegamma/chatkit/events"
	"github.com/totegamma/chatkit/member"
	"github.com/totegamma/chatkit/realtime"
)

type Config struct {
	APIURL        string
	Token         string
	ResponseCache client.ResponseCache
	Heartbeat     time.Duration
	Logger        *slog.Logger
}

type Session struct {
	API     *client.Client
	Users   *directory.Users
	Servers *directory.Servers
	Events  *events.Bus
	Members *member.Store

	handler   *realtime.Handler
	token     string
	heartbeat time.Duration
	logger    *slog.Logger
}

func New(conf Config) *Session {
	logger := conf.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := []client.Option{
		client.WithToken(conf.Token),
		client.WithLogger(logger),
	}
	if conf.ResponseCache != nil {
		opts = append(opts, client.WithResponseCache(conf.ResponseCache))
	}

	s := &Session{
		API:       client.New(conf.APIURL, opts...),
		Users:     directory.NewUsers(),
		Servers:   directory.NewServers(),
		Events:    events.NewBus(logger),
		token:     conf.Token,
		heartbeat: conf.Heartbeat,
		logger:    logger,
	}
	s.Members = member.NewStore(s, logger)
	s.handler = realtime.NewHandler(s.Members, s.Users, s.Servers, s, logger)
	return s
}

func (s *Session) Req(ctx context.Context, method, path string, body, response any) error {
	return s.API.Req(ctx, method, path, body, response)
}

func (s *Session) User(id string) (*chatkit.User, bool) {
	return s.Users.Get(id)
}

func (s *Session) Server(id string) (*chatkit.Server, bool) {
	return s.Servers.Get(id)
}

func (s *Session) FileURL(attachment *chatkit.Attachment, size int) (string, bool) {
	return s.API.FileURL(attachment, size)
}

func (s *Session) Emit(ctx context.Context, event chatkit.Event) {
	s.Events.Emit(ctx, event)
}

// Open fetches the node info and the session's own user.
func (s *Session) Open(ctx context.Context) (*chatkit.User, error) {
	if _, err := s.API.Node(ctx); err != nil {
		return nil, err
	}

	var self chatkit.User
	if err := s.API.Req(ctx, http.MethodGet, "/users/@me", nil, &self); err != nil {
		return nil, errors.Wrap(err, "failed to fetch own user")
	}
	s.Users.Set(&self)
	s.handler.SetSelf(self.ID)

	s.logger.InfoContext(
		ctx, "Session opened",
		slog.String("user", self.ID),
		slog.String("module", "session"),
	)
	return &self, nil
}

// Listen follows the events server until ctx is done.
func (s *Session) Listen(ctx context.Context) error {
	node, err := s.API.Node(ctx)
	if err != nil {
		return err
	}
	if node.WS == "" {
		return errors.New("node does not advertise an events server")
	}
	return realtime.NewListener(node.WS, s.token, s.handler, s.heartbeat, s.logger).Run(ctx)
}

// Handle applies a single push packet.
func (s *Session) Handle(ctx context.Context, raw []byte) error {
	return s.handler.Handle(ctx, raw)
}

// FetchMember loads a member from the API into the cache.
func (s *Session) FetchMember(ctx context.Context, server, user string) (*member.Member, error) {
	data, err := s.API.FetchMember(ctx, server, user)
	if err != nil {
		return nil, err
	}
	return s.Members.Upsert(ctx, data, false), nil
}

// SyncMembers loads every member of a server, and their users, into the
// cache.
func (s *Session) SyncMembers(ctx context.Context, server string) ([]*member.Member, error) {
	list, err := s.API.FetchMembers(ctx, server)
	if err != nil {
		return nil, err
	}

	for i := range list.Users {
		user := list.Users[i]
		s.Users.Set(&user)
	}

	members := make([]*member.Member, 0, len(list.Members))
	for _, data := range list.Members {
		members = append(members, s.Members.Upsert(ctx, data, false))
	}
	return members, nil
}
