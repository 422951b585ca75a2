package member

import (
	"context"
	"encoding/json"
	"net/http"
	"reflect"
	"sort"

	"github.com/pkg/errors"

	"github.com/totegamma/chatkit"
)

// Field names a mergeable member field.
type Field string

const (
	FieldNickname Field = "nickname"
	FieldAvatar   Field = "avatar"
	FieldRoles    Field = "roles"
)

// RoleEntry is one role of the owning server held by a member.
type RoleEntry struct {
	ID   string       `json:"id"`
	Role chatkit.Role `json:"role"`
}

// Member is the live, cached view of one server membership. Instances are
// only created by Store.Upsert and there is at most one per Key.
// Fields are guarded by the owning store's lock.
type Member struct {
	store *Store
	id    Key

	nickname *string
	avatar   *chatkit.Attachment
	roles    *[]string
}

func newMember(store *Store, data chatkit.Member) *Member {
	return &Member{
		store:    store,
		id:       KeyOf(data.ID),
		nickname: cloneString(data.Nickname),
		avatar:   cloneAttachment(data.Avatar),
		roles:    cloneRoles(data.Roles),
	}
}

func (m *Member) ID() Key {
	return m.id
}

func (m *Member) Nickname() (string, bool) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	if m.nickname == nil {
		return "", false
	}
	return *m.nickname, true
}

// Avatar returns a copy of the member's avatar, nil when unset.
func (m *Member) Avatar() *chatkit.Attachment {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	return cloneAttachment(m.avatar)
}

func (m *Member) Roles() ([]string, bool) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	if m.roles == nil {
		return nil, false
	}
	return *cloneRoles(m.roles), true
}

// Snapshot returns the member's current state in wire form.
func (m *Member) Snapshot() chatkit.Member {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	return chatkit.Member{
		ID:       m.id.Composite(),
		Nickname: cloneString(m.nickname),
		Avatar:   cloneAttachment(m.avatar),
		Roles:    cloneRoles(m.roles),
	}
}

func (m *Member) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Snapshot())
}

// User looks the member's user up in the session directory.
func (m *Member) User() (*chatkit.User, bool) {
	return m.store.client.User(m.id.User)
}

// Server looks the member's server up in the session directory.
func (m *Member) Server() (*chatkit.Server, bool) {
	return m.store.client.Server(m.id.Server)
}

// Merge applies a partial update in place and returns the fields that
// actually changed. Fields named in clear are unset and take precedence over
// values carried by data.
func (m *Member) Merge(data chatkit.Member, clear ...chatkit.RemoveMemberField) []Field {
	m.store.mu.Lock()
	changed := m.merge(data, clear)
	m.store.mu.Unlock()

	m.store.notify(m, changed)
	return changed
}

// merge must be called with the store lock held.
func (m *Member) merge(data chatkit.Member, clear []chatkit.RemoveMemberField) []Field {
	var changed []Field
	cleared := map[Field]bool{}

	for _, field := range clear {
		switch field {
		case chatkit.RemoveMemberNickname:
			cleared[FieldNickname] = true
			if m.nickname != nil {
				m.nickname = nil
				changed = append(changed, FieldNickname)
			}
		case chatkit.RemoveMemberAvatar:
			cleared[FieldAvatar] = true
			if m.avatar != nil {
				m.avatar = nil
				changed = append(changed, FieldAvatar)
			}
		}
	}

	if data.Nickname != nil && !cleared[FieldNickname] && !reflect.DeepEqual(m.nickname, data.Nickname) {
		m.nickname = cloneString(data.Nickname)
		changed = append(changed, FieldNickname)
	}
	if data.Avatar != nil && !cleared[FieldAvatar] && !reflect.DeepEqual(m.avatar, data.Avatar) {
		m.avatar = cloneAttachment(data.Avatar)
		changed = append(changed, FieldAvatar)
	}
	if data.Roles != nil && !reflect.DeepEqual(m.roles, data.Roles) {
		m.roles = cloneRoles(data.Roles)
		changed = append(changed, FieldRoles)
	}

	return changed
}

// Edit sends a member edit to the API. Local state is left alone; the
// confirmed change arrives later as an update.
func (m *Member) Edit(ctx context.Context, edit chatkit.MemberEdit) (chatkit.Member, error) {
	var updated chatkit.Member
	err := m.store.client.Req(ctx, http.MethodPatch, chatkit.MemberPath(m.id.Server, m.id.User), edit, &updated)
	return updated, err
}

// Kick removes the member from its server.
func (m *Member) Kick(ctx context.Context) error {
	return m.store.client.Req(ctx, http.MethodDelete, chatkit.MemberPath(m.id.Server, m.id.User), nil, nil)
}

// OrderedRoles returns the server roles held by the member, highest rank
// first. Roles of equal rank keep the server's role order.
func (m *Member) OrderedRoles() ([]RoleEntry, error) {
	server, ok := m.Server()
	if !ok {
		return nil, errors.WithStack(chatkit.DanglingReferenceError{Kind: "server", ID: m.id.Server})
	}

	held := map[string]bool{}
	if roles, ok := m.Roles(); ok {
		for _, id := range roles {
			held[id] = true
		}
	}

	entries := []RoleEntry{}
	for _, pair := range server.Roles.Pairs() {
		if held[pair.Key] {
			entries = append(entries, RoleEntry{ID: pair.Key, Role: pair.Value})
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Role.Rank > entries[j].Role.Rank
	})

	return entries, nil
}

// HoistedRole is the last entry of OrderedRoles, which is the lowest ranked
// role the member holds. Nil when the member holds no roles.
func (m *Member) HoistedRole() (*RoleEntry, error) {
	roles, err := m.OrderedRoles()
	if err != nil {
		return nil, err
	}
	if len(roles) == 0 {
		return nil, nil
	}
	return &roles[len(roles)-1], nil
}

// AvatarURL resolves the member's avatar to a file URL.
func (m *Member) AvatarURL(size int) (string, bool) {
	avatar := m.Avatar()
	if avatar == nil {
		return "", false
	}
	return m.store.client.FileURL(avatar, size)
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneAttachment(a *chatkit.Attachment) *chatkit.Attachment {
	if a == nil {
		return nil
	}
	v := *a
	if a.Deleted != nil {
		deleted := *a.Deleted
		v.Deleted = &deleted
	}
	return &v
}

func cloneRoles(roles *[]string) *[]string {
	if roles == nil {
		return nil
	}
	var v []string
	if *roles != nil {
		v = make([]string, len(*roles))
		copy(v, *roles)
	}
	return &v
}
