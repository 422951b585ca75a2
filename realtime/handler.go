package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/pkg/errors"

	"github.com/totegamma/chatkit"
	"github.com/totegamma/chatkit/directory"
	"github.com/totegamma/chatkit/member"
)

// ErrAuthentication is returned when the server rejects the session.
var ErrAuthentication = errors.New("realtime authentication failed")

// authErrors are the error packet types that reject the session itself.
var authErrors = map[string]bool{
	"InvalidSession":        true,
	"OnboardingNotFinished": true,
}

type Emitter interface {
	Emit(ctx context.Context, event chatkit.Event)
}

// Handler applies push events to the member store and the directories.
type Handler struct {
	members *member.Store
	users   *directory.Users
	servers *directory.Servers
	events  Emitter
	logger  *slog.Logger

	mu   sync.RWMutex
	self string
}

func NewHandler(
	members *member.Store,
	users *directory.Users,
	servers *directory.Servers,
	events Emitter,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		members: members,
		users:   users,
		servers: servers,
		events:  events,
		logger:  logger,
	}
}

// SetSelf tells the handler which user the session belongs to.
func (h *Handler) SetSelf(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.self = userID
}

func (h *Handler) isSelf(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.self != "" && h.self == userID
}

func (h *Handler) Handle(ctx context.Context, raw []byte) error {
	var p packet
	if err := json.Unmarshal(raw, &p); err != nil {
		return errors.Wrap(err, "failed to decode packet")
	}

	switch p.Type {
	case TypeAuthenticated:
		h.logger.InfoContext(ctx, "Authenticated", slog.String("module", "realtime"))
		return nil

	case TypeError:
		var e errorPacket
		if err := json.Unmarshal(raw, &e); err != nil {
			return errors.Wrap(err, "failed to decode error packet")
		}
		if authErrors[e.Error] {
			return errors.Wrap(ErrAuthentication, e.Error)
		}
		h.logger.WarnContext(
			ctx, "Events server error",
			slog.String("error", e.Error),
			slog.String("module", "realtime"),
		)
		return nil

	case TypePong:
		return nil

	case TypeReady:
		var r readyPacket
		if err := json.Unmarshal(raw, &r); err != nil {
			return errors.Wrap(err, "failed to decode ready packet")
		}
		h.ready(ctx, r)
		return nil

	case TypeServerMemberJoin:
		var j memberJoinPacket
		if err := json.Unmarshal(raw, &j); err != nil {
			return errors.Wrap(err, "failed to decode member join")
		}
		h.members.Upsert(ctx, chatkit.Member{
			ID: chatkit.MemberCompositeKey{Server: j.ID, User: j.User},
		}, true)
		return nil

	case TypeServerMemberUpdate:
		var u memberUpdatePacket
		if err := json.Unmarshal(raw, &u); err != nil {
			return errors.Wrap(err, "failed to decode member update")
		}
		m, changed, ok := h.members.Update(member.KeyOf(u.ID), u.Data, u.Clear...)
		if !ok {
			return nil
		}
		if len(changed) > 0 {
			h.events.Emit(ctx, chatkit.Event{Type: chatkit.EventMemberUpdate, Key: u.ID, Payload: m})
		}
		return nil

	case TypeServerMemberLeave:
		var l memberLeavePacket
		if err := json.Unmarshal(raw, &l); err != nil {
			return errors.Wrap(err, "failed to decode member leave")
		}
		h.leave(ctx, l)
		return nil

	case TypeServerUpdate:
		var u serverUpdatePacket
		if err := json.Unmarshal(raw, &u); err != nil {
			return errors.Wrap(err, "failed to decode server update")
		}
		h.servers.Patch(u.ID, u.Data, u.Clear...)
		return nil

	case TypeServerDelete:
		var d serverDeletePacket
		if err := json.Unmarshal(raw, &d); err != nil {
			return errors.Wrap(err, "failed to decode server delete")
		}
		h.dropServer(ctx, d.ID)
		return nil

	case TypeServerRoleUpdate:
		var u roleUpdatePacket
		if err := json.Unmarshal(raw, &u); err != nil {
			return errors.Wrap(err, "failed to decode role update")
		}
		h.servers.PatchRole(u.ID, u.RoleID, u.Data, u.Clear...)
		return nil

	case TypeServerRoleDelete:
		var d roleDeletePacket
		if err := json.Unmarshal(raw, &d); err != nil {
			return errors.Wrap(err, "failed to decode role delete")
		}
		h.servers.DeleteRole(d.ID, d.RoleID)
		return nil

	case TypeUserUpdate:
		var u userUpdatePacket
		if err := json.Unmarshal(raw, &u); err != nil {
			return errors.Wrap(err, "failed to decode user update")
		}
		h.users.Patch(u.ID, u.Data, u.Clear...)
		return nil

	default:
		h.logger.DebugContext(
			ctx, "Unknown packet type",
			slog.String("type", p.Type),
			slog.String("module", "realtime"),
		)
		return nil
	}
}

func (h *Handler) ready(ctx context.Context, r readyPacket) {
	for i := range r.Users {
		user := r.Users[i]
		h.users.Set(&user)
	}
	for i := range r.Servers {
		server := r.Servers[i]
		h.servers.Set(&server)
	}
	for _, m := range r.Members {
		h.members.Upsert(ctx, m, false)
	}

	h.logger.InfoContext(
		ctx, "Ready",
		slog.Int("users", len(r.Users)),
		slog.Int("servers", len(r.Servers)),
		slog.Int("members", len(r.Members)),
		slog.String("module", "realtime"),
	)
}

func (h *Handler) leave(ctx context.Context, l memberLeavePacket) {
	if h.isSelf(l.User) {
		h.dropServer(ctx, l.ID)
		return
	}

	key := member.Key{Server: l.ID, User: l.User}
	m, ok := h.members.Get(key)
	if !ok {
		return
	}
	h.members.Delete(key)
	h.events.Emit(ctx, chatkit.Event{Type: chatkit.EventMemberLeave, Key: key.Composite(), Payload: m})
}

func (h *Handler) dropServer(ctx context.Context, serverID string) {
	removed := h.members.DeleteServer(serverID)
	h.servers.Delete(serverID)
	h.logger.DebugContext(
		ctx, "Server dropped",
		slog.String("server", serverID),
		slog.Int("members", removed),
		slog.String("module", "realtime"),
	)
}
