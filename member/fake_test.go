package member

import (
	"context"
	"errors"

	"github.com/totegamma/chatkit"
)

type request struct {
	method string
	path   string
	body   any
}

type fakeClient struct {
	users    map[string]*chatkit.User
	servers  map[string]*chatkit.Server
	requests []request
	events   []chatkit.Event
	reqErr   error
	reply    chatkit.Member
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		users:   map[string]*chatkit.User{},
		servers: map[string]*chatkit.Server{},
	}
}

func (f *fakeClient) Req(ctx context.Context, method, path string, body, response any) error {
	f.requests = append(f.requests, request{method: method, path: path, body: body})
	if f.reqErr != nil {
		return f.reqErr
	}
	if out, ok := response.(*chatkit.Member); ok {
		*out = f.reply
	}
	return nil
}

func (f *fakeClient) User(id string) (*chatkit.User, bool) {
	u, ok := f.users[id]
	return u, ok
}

func (f *fakeClient) Server(id string) (*chatkit.Server, bool) {
	s, ok := f.servers[id]
	return s, ok
}

func (f *fakeClient) FileURL(attachment *chatkit.Attachment, size int) (string, bool) {
	if attachment == nil {
		return "", false
	}
	return "https://files.example/" + attachment.Tag + "/" + attachment.ID, true
}

func (f *fakeClient) Emit(ctx context.Context, event chatkit.Event) {
	f.events = append(f.events, event)
}

var errTransport = errors.New("transport failed")

func ptr[T any](v T) *T { return &v }

func memberData(server, user string) chatkit.Member {
	return chatkit.Member{ID: chatkit.MemberCompositeKey{Server: server, User: user}}
}
