package member

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/totegamma/chatkit"
)

// Client is what the member cache needs from the surrounding session.
type Client interface {
	Req(ctx context.Context, method, path string, body, response any) error
	User(id string) (*chatkit.User, bool)
	Server(id string) (*chatkit.Server, bool)
	FileURL(attachment *chatkit.Attachment, size int) (string, bool)
	Emit(ctx context.Context, event chatkit.Event)
}

// Change reports one field of a member changed by a merge.
type Change struct {
	Member *Member
	Field  Field
}

type Observer func(Change)

type subscription struct {
	id int
	fn Observer
}

// Store owns every live Member of a session, one per Key.
type Store struct {
	client Client
	logger *slog.Logger

	mu      sync.RWMutex
	members map[Key]*Member

	obsMu     sync.Mutex
	observers []subscription
	nextObs   int
}

func NewStore(client Client, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		client:  client,
		logger:  logger,
		members: make(map[Key]*Member),
	}
}

func (s *Store) Has(key Key) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.members[key]
	return ok
}

func (s *Store) Get(key Key) (*Member, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[key]
	return m, ok
}

// Upsert merges data into the cached member with the same identity, or
// creates and caches a new one. The join event is emitted only when a member
// is created and emit is true.
func (s *Store) Upsert(ctx context.Context, data chatkit.Member, emit bool) *Member {
	key := KeyOf(data.ID)

	s.mu.Lock()
	if existing, ok := s.members[key]; ok {
		changed := existing.merge(data, nil)
		s.mu.Unlock()
		s.notify(existing, changed)
		return existing
	}

	created := newMember(s, data)
	s.members[key] = created
	s.mu.Unlock()

	s.logger.DebugContext(
		ctx, "member cached",
		slog.String("key", key.Encode()),
		slog.String("module", "member"),
	)

	if emit {
		s.client.Emit(ctx, chatkit.Event{
			Type:    chatkit.EventMemberJoin,
			Key:     data.ID,
			Payload: created,
		})
	}
	return created
}

// Update merges data into an already cached member and never creates one.
// It reports false when the member is unknown.
func (s *Store) Update(key Key, data chatkit.Member, clear ...chatkit.RemoveMemberField) (*Member, []Field, bool) {
	s.mu.Lock()
	existing, ok := s.members[key]
	if !ok {
		s.mu.Unlock()
		return nil, nil, false
	}
	changed := existing.merge(data, clear)
	s.mu.Unlock()

	s.notify(existing, changed)
	return existing, changed, true
}

// Delete drops the member from the index. Observers are not notified.
func (s *Store) Delete(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[key]; !ok {
		return false
	}
	delete(s.members, key)
	return true
}

// DeleteServer drops every cached member of a server and returns how many
// were removed.
func (s *Store) DeleteServer(server string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key := range s.members {
		if key.Server == server {
			delete(s.members, key)
			removed++
		}
	}
	return removed
}

// Members lists the cached members of a server ordered by user ID.
func (s *Store) Members(server string) []*Member {
	s.mu.RLock()
	result := []*Member{}
	for key, m := range s.members {
		if key.Server == server {
			result = append(result, m)
		}
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].id.User < result[j].id.User
	})
	return result
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.members)
}

// Subscribe registers an observer for member field changes. Observers run
// after the merge that caused them has completed.
func (s *Store) Subscribe(fn Observer) (unsubscribe func()) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	id := s.nextObs
	s.nextObs++
	s.observers = append(s.observers, subscription{id: id, fn: fn})

	return func() {
		s.obsMu.Lock()
		defer s.obsMu.Unlock()
		for i, sub := range s.observers {
			if sub.id == id {
				s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) notify(m *Member, changed []Field) {
	if len(changed) == 0 {
		return
	}

	s.obsMu.Lock()
	observers := make([]subscription, len(s.observers))
	copy(observers, s.observers)
	s.obsMu.Unlock()

	for _, field := range changed {
		for _, sub := range observers {
			sub.fn(Change{Member: m, Field: field})
		}
	}
}
