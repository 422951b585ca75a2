package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/totegamma/chatkit"
)

const (
	defaultTimeout = 10 * time.Second
	nodeCacheKey   = "node"
	tokenHeader    = "X-Session-Token"
)

var tracer = otel.Tracer("client")

// Client talks to the chat API over HTTP.
type Client struct {
	client    *http.Client
	base      http.RoundTripper
	meta      *cache.Cache
	responses ResponseCache
	logger    *slog.Logger
	baseURL   string
	token     string
	userAgent string
}

type Option func(*Client)

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithUserAgent(userAgent string) Option {
	return func(c *Client) { c.userAgent = userAgent }
}

// WithTransport replaces the round tripper requests are sent with.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.base = rt }
}

// WithResponseCache caches successful GET responses.
func WithResponseCache(rc ResponseCache) Option {
	return func(c *Client) { c.responses = rc }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base:      http.DefaultTransport,
		meta:      cache.New(cache.NoExpiration, 15*time.Minute),
		logger:    slog.Default(),
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		userAgent: "chatkit",
	}
	for _, opt := range opts {
		opt(c)
	}
	c.client = &http.Client{
		Timeout:   defaultTimeout,
		Transport: c,
	}
	return c
}

func (c *Client) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set(tokenHeader, c.token)
	}
	return c.base.RoundTrip(req)
}

// StatusError is returned when the API answers with a non 2xx status.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Type   string
}

func (e *StatusError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("%s %s: unexpected status code %d (%s)", e.Method, e.Path, e.Code, e.Type)
	}
	return fmt.Sprintf("%s %s: unexpected status code %d", e.Method, e.Path, e.Code)
}

// Is lets a 404 match chatkit.ErrNotFound.
func (e *StatusError) Is(target error) bool {
	if e.Code != http.StatusNotFound {
		return false
	}
	switch target.(type) {
	case chatkit.NotFoundError, *chatkit.NotFoundError:
		return true
	}
	return false
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	return errors.Is(err, chatkit.ErrNotFound)
}

// Req sends body as JSON and decodes the reply into response. Either may be
// nil. GET replies may be served from the response cache.
func (c *Client) Req(ctx context.Context, method, path string, body, response any) error {
	return c.do(ctx, method, path, body, response, true)
}

// ReqFresh is Req without the response cache. Resources that push events
// keep up to date must be read with it, or a cached reply could overwrite a
// newer pushed value.
func (c *Client) ReqFresh(ctx context.Context, method, path string, body, response any) error {
	return c.do(ctx, method, path, body, response, false)
}

func (c *Client) do(ctx context.Context, method, path string, body, response any, cacheable bool) error {
	ctx, span := tracer.Start(ctx, "Client.Req", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("method", method),
		attribute.String("path", path),
	)

	key := responseKey(http.MethodGet, path)
	cacheable = cacheable && method == http.MethodGet && c.responses != nil
	if cacheable {
		if cached, found := c.responses.Get(key); found {
			if response == nil {
				return nil
			}
			err := json.Unmarshal(cached, response)
			if err == nil {
				span.SetAttributes(attribute.Bool("cached", true))
				return nil
			}
			c.responses.Delete(key)
		}
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to encode request body")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	c.logger.DebugContext(
		ctx, "request",
		slog.String("method", method),
		slog.String("path", path),
		slog.String("module", "client"),
	)

	resp, err := c.client.Do(req)
	if err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "failed to perform request")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{Method: method, Path: path, Code: resp.StatusCode}
		var apiErr struct {
			Type string `json:"type"`
		}
		if json.Unmarshal(raw, &apiErr) == nil {
			statusErr.Type = apiErr.Type
		}
		span.RecordError(statusErr)
		return statusErr
	}

	if method != http.MethodGet && c.responses != nil {
		c.responses.Delete(key)
	}

	if response == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	if err := json.Unmarshal(raw, response); err != nil {
		return errors.Wrap(err, "failed to decode response")
	}

	if cacheable {
		c.responses.Set(key, raw)
	}
	return nil
}

// Node fetches the API discovery document. It is cached for the lifetime of
// the client.
func (c *Client) Node(ctx context.Context) (chatkit.NodeInfo, error) {
	x, found := c.meta.Get(nodeCacheKey)
	if found {
		return x.(chatkit.NodeInfo), nil
	}

	var node chatkit.NodeInfo
	if err := c.Req(ctx, http.MethodGet, "/", nil, &node); err != nil {
		return chatkit.NodeInfo{}, errors.Wrap(err, "failed to get node info")
	}

	c.meta.Set(nodeCacheKey, node, cache.NoExpiration)
	return node, nil
}

// FileURL builds the file server URL of an attachment. It needs the node
// info to have been fetched.
func (c *Client) FileURL(attachment *chatkit.Attachment, size int) (string, bool) {
	if attachment == nil {
		return "", false
	}
	x, found := c.meta.Get(nodeCacheKey)
	if !found {
		return "", false
	}
	autumn := x.(chatkit.NodeInfo).Features.Autumn
	if !autumn.Enabled || autumn.URL == "" {
		return "", false
	}

	u := strings.TrimSuffix(autumn.URL, "/") + "/" + url.PathEscape(attachment.Tag) + "/" + url.PathEscape(attachment.ID)
	if size > 0 {
		u += "?max_side=" + strconv.Itoa(size)
	}
	return u, true
}

func (c *Client) FetchMember(ctx context.Context, server, user string) (chatkit.Member, error) {
	var m chatkit.Member
	err := c.ReqFresh(ctx, http.MethodGet, chatkit.MemberPath(server, user), nil, &m)
	if err != nil {
		return chatkit.Member{}, errors.Wrapf(err, "failed to fetch member %s of %s", user, server)
	}
	return m, nil
}

// MemberList is the reply of GET /servers/{server}/members.
type MemberList struct {
	Members []chatkit.Member `json:"members"`
	Users   []chatkit.User   `json:"users"`
}

func (c *Client) FetchMembers(ctx context.Context, server string) (MemberList, error) {
	var list MemberList
	err := c.ReqFresh(ctx, http.MethodGet, chatkit.ServerMembersPath(server), nil, &list)
	if err != nil {
		return MemberList{}, errors.Wrapf(err, "failed to fetch members of %s", server)
	}
	return list, nil
}
