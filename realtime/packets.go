package realtime

import (
	"bytes"
	"encoding/json"

	"github.com/totegamma/chatkit"
)

const (
	TypeAuthenticate       = "Authenticate"
	TypeAuthenticated      = "Authenticated"
	TypeError              = "Error"
	TypeReady              = "Ready"
	TypePing               = "Ping"
	TypePong               = "Pong"
	TypeServerMemberJoin   = "ServerMemberJoin"
	TypeServerMemberUpdate = "ServerMemberUpdate"
	TypeServerMemberLeave  = "ServerMemberLeave"
	TypeServerUpdate       = "ServerUpdate"
	TypeServerDelete       = "ServerDelete"
	TypeServerRoleUpdate   = "ServerRoleUpdate"
	TypeServerRoleDelete   = "ServerRoleDelete"
	TypeUserUpdate         = "UserUpdate"
)

type packet struct {
	Type string `json:"type"`
}

type authenticatePacket struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

type pingPacket struct {
	Type string `json:"type"`
	Data int64  `json:"data"`
}

type errorPacket struct {
	Error string `json:"error"`
}

type readyPacket struct {
	Users   []chatkit.User   `json:"users"`
	Servers []chatkit.Server `json:"servers"`
	Members []chatkit.Member `json:"members"`
}

// id is the server, user the joining user
type memberJoinPacket struct {
	ID   string `json:"id"`
	User string `json:"user"`
}

type memberUpdatePacket struct {
	ID    chatkit.MemberCompositeKey `json:"id"`
	Data  chatkit.Member             `json:"data"`
	Clear clearFields                `json:"clear"`
}

type memberLeavePacket struct {
	ID   string `json:"id"`
	User string `json:"user"`
}

type serverUpdatePacket struct {
	ID    string              `json:"id"`
	Data  chatkit.ServerPatch `json:"data"`
	Clear []string            `json:"clear"`
}

type serverDeletePacket struct {
	ID string `json:"id"`
}

type roleUpdatePacket struct {
	ID     string            `json:"id"`
	RoleID string            `json:"role_id"`
	Data   chatkit.RolePatch `json:"data"`
	Clear  []string          `json:"clear"`
}

type roleDeletePacket struct {
	ID     string `json:"id"`
	RoleID string `json:"role_id"`
}

type userUpdatePacket struct {
	ID    string            `json:"id"`
	Data  chatkit.UserPatch `json:"data"`
	Clear []string          `json:"clear"`
}

// clearFields is the clear indicator of a member update. The server sends
// either a single field name or a list of them.
type clearFields []chatkit.RemoveMemberField

func (c *clearFields) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var field chatkit.RemoveMemberField
		if err := json.Unmarshal(data, &field); err != nil {
			return err
		}
		*c = clearFields{field}
		return nil
	}
	var fields []chatkit.RemoveMemberField
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*c = fields
	return nil
}
