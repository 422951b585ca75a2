package rest

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/totegamma/chatkit"
	"github.com/totegamma/chatkit/directory"
	"github.com/totegamma/chatkit/internal/present/rest/presenter"
	"github.com/totegamma/chatkit/member"
)

const avatarSize = 256

type Handler struct {
	members *member.Store
	users   *directory.Users
	servers *directory.Servers
}

func NewHandler(
	members *member.Store,
	users *directory.Users,
	servers *directory.Servers,
) *Handler {
	return &Handler{
		members: members,
		users:   users,
		servers: servers,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/stats", h.handleStats)
	e.GET("/servers/:server/members", h.handleMembers)
	e.GET("/servers/:server/members/:user", h.handleMember)
}

type memberView struct {
	chatkit.Member
	OrderedRoles []member.RoleEntry `json:"ordered_roles"`
	HoistedRole  *member.RoleEntry  `json:"hoisted_role"`
	AvatarURL    string             `json:"avatar_url,omitempty"`
}

func view(m *member.Member) (memberView, error) {
	ordered, err := m.OrderedRoles()
	if err != nil {
		return memberView{}, err
	}
	v := memberView{
		Member:       m.Snapshot(),
		OrderedRoles: ordered,
	}
	if len(ordered) > 0 {
		v.HoistedRole = &ordered[len(ordered)-1]
	}
	if url, ok := m.AvatarURL(avatarSize); ok {
		v.AvatarURL = url
	}
	return v, nil
}

func (h *Handler) handleStats(c echo.Context) error {
	return presenter.OK(c, echo.Map{
		"members": h.members.Len(),
		"users":   h.users.Len(),
		"servers": h.servers.Len(),
	})
}

func (h *Handler) handleMembers(c echo.Context) error {
	server := c.Param("server")
	if !chatkit.IsID(server) {
		return presenter.BadRequestMessage(c, "invalid server id")
	}

	views := []memberView{}
	for _, m := range h.members.Members(server) {
		v, err := view(m)
		if err != nil {
			if errors.Is(err, chatkit.ErrDanglingReference) {
				return presenter.Conflict(c, err)
			}
			return presenter.InternalError(c, err)
		}
		views = append(views, v)
	}
	return presenter.OK(c, views)
}

func (h *Handler) handleMember(c echo.Context) error {
	server, user := c.Param("server"), c.Param("user")
	if !chatkit.IsID(server) || !chatkit.IsID(user) {
		return presenter.BadRequestMessage(c, "invalid id")
	}

	m, ok := h.members.Get(member.Key{Server: server, User: user})
	if !ok {
		return presenter.NotFound(c, "member not found")
	}

	v, err := view(m)
	if err != nil {
		if errors.Is(err, chatkit.ErrDanglingReference) {
			return presenter.Conflict(c, err)
		}
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, v)
}
