package chatkit

import (
	"net/url"
)

// MemberPath is the API path of a single server member.
func MemberPath(server, user string) string {
	return "/servers/" + url.PathEscape(server) + "/members/" + url.PathEscape(user)
}

func ServerMembersPath(server string) string {
	return "/servers/" + url.PathEscape(server) + "/members"
}

const crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

func hasChar(s string, c byte) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			return true
		}
	}
	return false
}

// IsID reports whether id looks like an object ID (a 26 character ULID).
func IsID(id string) bool {
	if len(id) != 26 {
		return false
	}
	for i := 0; i < len(id); i++ {
		if !hasChar(crockford, id[i]) {
			return false
		}
	}
	return true
}
