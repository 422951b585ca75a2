package member

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/totegamma/chatkit"
)

// Key is the composite identity of a member. It is comparable and is used
// directly as the store index.
type Key struct {
	Server string
	User   string
}

func KeyOf(id chatkit.MemberCompositeKey) Key {
	return Key{Server: id.Server, User: id.User}
}

func (k Key) Composite() chatkit.MemberCompositeKey {
	return chatkit.MemberCompositeKey{Server: k.Server, User: k.User}
}

// Encode renders the key as a JSON object with its fields in sorted order,
// so equal identities always produce the same string.
func (k Key) Encode() string {
	// encoding/json sorts map keys
	b, err := json.Marshal(map[string]string{
		"user":   k.User,
		"server": k.Server,
	})
	if err != nil {
		panic(err)
	}
	return string(b)
}

func (k Key) String() string {
	return k.Encode()
}

// ParseKey reverses Encode. Field order in the input does not matter.
func ParseKey(encoded string) (Key, error) {
	var fields map[string]string
	if err := json.Unmarshal([]byte(encoded), &fields); err != nil {
		return Key{}, errors.Wrap(err, "invalid member key")
	}
	server, ok := fields["server"]
	if !ok {
		return Key{}, errors.Errorf("invalid member key %s: missing server", encoded)
	}
	user, ok := fields["user"]
	if !ok {
		return Key{}, errors.Errorf("invalid member key %s: missing user", encoded)
	}
	return Key{Server: server, User: user}, nil
}
