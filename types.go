package chatkit

// MemberCompositeKey identifies a single membership of a user in a server.
type MemberCompositeKey struct {
	Server string `json:"server"`
	User   string `json:"user"`
}

// RemoveMemberField names a member field the server asks us to clear.
type RemoveMemberField string

const (
	RemoveMemberNickname RemoveMemberField = "Nickname"
	RemoveMemberAvatar   RemoveMemberField = "Avatar"
)

// Member is the wire representation of a server member. Every field except
// the identity is optional; nil means the payload did not carry it.
type Member struct {
	ID       MemberCompositeKey `json:"_id"`
	Nickname *string            `json:"nickname,omitempty"`
	Avatar   *Attachment        `json:"avatar,omitempty"`
	Roles    *[]string          `json:"roles,omitempty"`
}

// MemberEdit is the body of PATCH /servers/{server}/members/{user}.
type MemberEdit struct {
	Nickname *string             `json:"nickname,omitempty"`
	Avatar   *string             `json:"avatar,omitempty"` // autumn file id
	Roles    *[]string           `json:"roles,omitempty"`
	Remove   []RemoveMemberField `json:"remove,omitempty"`
}

type AttachmentMetadata struct {
	Type   string `json:"type"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Attachment is an opaque file descriptor served by the file server.
type Attachment struct {
	ID          string             `json:"_id"`
	Tag         string             `json:"tag"`
	Filename    string             `json:"filename"`
	Metadata    AttachmentMetadata `json:"metadata"`
	ContentType string             `json:"content_type"`
	Size        int64              `json:"size"`
	Deleted     *bool              `json:"deleted,omitempty"`
}

type PermissionPair struct {
	Allow int64 `json:"a"`
	Deny  int64 `json:"d"`
}

type Role struct {
	Name        string         `json:"name"`
	Permissions PermissionPair `json:"permissions"`
	Colour      *string        `json:"colour,omitempty"`
	Hoist       bool           `json:"hoist,omitempty"`
	Rank        int64          `json:"rank,omitempty"`
}

// RolePatch is the partial role carried by ServerRoleUpdate events.
type RolePatch struct {
	Name        *string         `json:"name,omitempty"`
	Permissions *PermissionPair `json:"permissions,omitempty"`
	Colour      *string         `json:"colour,omitempty"`
	Hoist       *bool           `json:"hoist,omitempty"`
	Rank        *int64          `json:"rank,omitempty"`
}

const RemoveRoleColour = "Colour"

// Server is the wire representation of a server. Roles keep the order in
// which the server listed them.
type Server struct {
	ID          string             `json:"_id"`
	Owner       string             `json:"owner"`
	Name        string             `json:"name"`
	Description *string            `json:"description,omitempty"`
	Channels    []string           `json:"channels"`
	Roles       OrderedKVMap[Role] `json:"roles,omitempty"`
	Icon        *Attachment        `json:"icon,omitempty"`
}

type ServerPatch struct {
	Owner       *string     `json:"owner,omitempty"`
	Name        *string     `json:"name,omitempty"`
	Description *string     `json:"description,omitempty"`
	Channels    *[]string   `json:"channels,omitempty"`
	Icon        *Attachment `json:"icon,omitempty"`
}

const (
	RemoveServerDescription = "Description"
	RemoveServerIcon        = "Icon"
)

type User struct {
	ID          string      `json:"_id"`
	Username    string      `json:"username"`
	DisplayName *string     `json:"display_name,omitempty"`
	Avatar      *Attachment `json:"avatar,omitempty"`
	Online      bool        `json:"online,omitempty"`
	Bot         bool        `json:"bot,omitempty"`
}

type UserPatch struct {
	Username    *string     `json:"username,omitempty"`
	DisplayName *string     `json:"display_name,omitempty"`
	Avatar      *Attachment `json:"avatar,omitempty"`
	Online      *bool       `json:"online,omitempty"`
}

const (
	RemoveUserDisplayName = "DisplayName"
	RemoveUserAvatar      = "Avatar"
)

type AutumnFeature struct {
	Enabled bool   `json:"enabled"`
	URL     string `json:"url"`
}

type NodeFeatures struct {
	Autumn AutumnFeature `json:"autumn"`
}

// NodeInfo is the discovery document served at the API root.
type NodeInfo struct {
	Version  string       `json:"revolt"`
	Features NodeFeatures `json:"features"`
	WS       string       `json:"ws"`
	App      string       `json:"app"`
}
