package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/totegamma/chatkit"
)

func TestReqSendsTokenAndBody(t *testing.T) {
	var gotToken, gotMethod, gotPath string
	var gotBody chatkit.MemberEdit

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get(tokenHeader)
		gotMethod = r.Method
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotBody)
		json.NewEncoder(w).Encode(chatkit.Member{
			ID:       chatkit.MemberCompositeKey{Server: "S1", User: "U1"},
			Nickname: gotBody.Nickname,
		})
	}))
	defer srv.Close()

	c := New(srv.URL, WithToken("secret"))

	nickname := "B"
	var reply chatkit.Member
	err := c.Req(context.Background(), http.MethodPatch, chatkit.MemberPath("S1", "U1"), chatkit.MemberEdit{Nickname: &nickname}, &reply)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	if gotToken != "secret" {
		t.Fatalf("expected token header got %q", gotToken)
	}
	if gotMethod != http.MethodPatch || gotPath != "/servers/S1/members/U1" {
		t.Fatalf("unexpected request %s %s", gotMethod, gotPath)
	}
	if reply.Nickname == nil || *reply.Nickname != "B" {
		t.Fatalf("unexpected reply %+v", reply)
	}
}

func TestReqNoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(srv.URL)
	var reply chatkit.Member
	if err := c.Req(context.Background(), http.MethodDelete, chatkit.MemberPath("S1", "U1"), nil, &reply); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if err := c.Req(context.Background(), http.MethodDelete, chatkit.MemberPath("S1", "U1"), nil, nil); err != nil {
		t.Fatalf("request failed: %v", err)
	}
}

func TestReqStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"type":"NotFound"}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.FetchMember(context.Background(), "S1", "U1")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !IsNotFound(err) {
		t.Fatalf("expected not found got %v", err)
	}

	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Type != "NotFound" {
		t.Fatalf("expected status error with type got %v", err)
	}
	if !errors.Is(err, chatkit.ErrNotFound) {
		t.Fatalf("expected a 404 to match chatkit.ErrNotFound, got %v", err)
	}

	other := &StatusError{Method: http.MethodGet, Path: "/", Code: http.StatusForbidden}
	if errors.Is(other, chatkit.ErrNotFound) {
		t.Fatalf("a 403 must not match chatkit.ErrNotFound")
	}
}

func TestResponseCache(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			hits++
		}
		json.NewEncoder(w).Encode(chatkit.User{ID: "U1", Username: "me"})
	}))
	defer srv.Close()

	c := New(srv.URL, WithResponseCache(NewMemoryCache(time.Minute)))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		var u chatkit.User
		if err := c.Req(ctx, http.MethodGet, "/users/@me", nil, &u); err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if u.ID != "U1" {
			t.Fatalf("unexpected user %+v", u)
		}
	}
	if hits != 1 {
		t.Fatalf("expected 1 upstream GET got %d", hits)
	}

	if err := c.Req(ctx, http.MethodPatch, "/users/@me", chatkit.UserPatch{}, nil); err != nil {
		t.Fatalf("patch failed: %v", err)
	}
	var u chatkit.User
	if err := c.Req(ctx, http.MethodGet, "/users/@me", nil, &u); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if hits != 2 {
		t.Fatalf("expected the write to invalidate the cached GET, got %d hits", hits)
	}
}

func TestFetchMemberBypassesResponseCache(t *testing.T) {
	hits := 0
	nickname := "v1"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if r.URL.Path == chatkit.ServerMembersPath("S1") {
			json.NewEncoder(w).Encode(MemberList{})
			return
		}
		current := nickname
		json.NewEncoder(w).Encode(chatkit.Member{
			ID:       chatkit.MemberCompositeKey{Server: "S1", User: "U1"},
			Nickname: &current,
		})
	}))
	defer srv.Close()

	c := New(srv.URL, WithResponseCache(NewMemoryCache(time.Minute)))
	ctx := context.Background()

	if _, err := c.FetchMember(ctx, "S1", "U1"); err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	nickname = "v2"
	m, err := c.FetchMember(ctx, "S1", "U1")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if m.Nickname == nil || *m.Nickname != "v2" {
		t.Fatalf("expected the current member, got %+v", m)
	}

	for i := 0; i < 2; i++ {
		if _, err := c.FetchMembers(ctx, "S1"); err != nil {
			t.Fatalf("fetch members failed: %v", err)
		}
	}
	if hits != 4 {
		t.Fatalf("expected every member read to reach the API, got %d hits", hits)
	}
}

func TestNodeAndFileURL(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		json.NewEncoder(w).Encode(chatkit.NodeInfo{
			Version: "0.8.0",
			WS:      "wss://ws.example",
			Features: chatkit.NodeFeatures{
				Autumn: chatkit.AutumnFeature{Enabled: true, URL: "https://files.example/"},
			},
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	avatar := &chatkit.Attachment{ID: "F1", Tag: "avatars"}

	if _, ok := c.FileURL(avatar, 0); ok {
		t.Fatalf("expected no url before node info is known")
	}

	for i := 0; i < 2; i++ {
		node, err := c.Node(context.Background())
		if err != nil {
			t.Fatalf("node failed: %v", err)
		}
		if node.WS != "wss://ws.example" {
			t.Fatalf("unexpected node %+v", node)
		}
	}
	if hits != 1 {
		t.Fatalf("expected node info to be cached, got %d hits", hits)
	}

	url, ok := c.FileURL(avatar, 256)
	if !ok || url != "https://files.example/avatars/F1?max_side=256" {
		t.Fatalf("unexpected url %q", url)
	}
	if _, ok := c.FileURL(nil, 0); ok {
		t.Fatalf("expected no url for nil attachment")
	}
}

func TestResponseKeyStable(t *testing.T) {
	if responseKey(http.MethodGet, "/a") != responseKey(http.MethodGet, "/a") {
		t.Fatalf("response key is not stable")
	}
	if responseKey(http.MethodGet, "/a") == responseKey(http.MethodGet, "/b") {
		t.Fatalf("expected distinct keys for distinct paths")
	}
	if responseKey(http.MethodGet, "/a") == responseKey(http.MethodHead, "/a") {
		t.Fatalf("expected distinct keys for distinct methods")
	}
}

