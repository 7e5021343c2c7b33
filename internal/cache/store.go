package cache

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// DefaultMaxEntries bounds the number of cached query results
const DefaultMaxEntries = 256

// entry is one cached query result
type entry struct {
	value     interface{}
	fetchedAt time.Time
	stale     bool
}

// Store is the process-wide query cache keyed by (endpoint, parameters).
// Any caller may invalidate any key: invalidation marks the entry stale and
// notifies the key's subscribers, which refetch on their own schedule.
type Store struct {
	entries *lru.Cache[Key, *entry]

	// genMu orders stores against invalidations: a fetch that started
	// before an Invalidate or Purge never lands as fresh.
	genMu sync.Mutex
	gens  map[Key]uint64
	epoch uint64
	group singleflight.Group

	mu     sync.RWMutex
	subs   map[Key]map[int]func(Key)
	nextID int

	logger *log.Logger
}

// NewStore creates a store holding at most maxEntries results
func NewStore(maxEntries int) (*Store, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	entries, err := lru.New[Key, *entry](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("create query cache: %w", err)
	}
	return &Store{
		entries: entries,
		gens:    make(map[Key]uint64),
		subs:    make(map[Key]map[int]func(Key)),
	}, nil
}

// SetLogger sets the logger for invalidation tracing
func (s *Store) SetLogger(logger *log.Logger) {
	s.logger = logger
}

// generation identifies the invalidation state of a key
type generation struct {
	epoch, gen uint64
}

func (s *Store) generation(key Key) generation {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return generation{epoch: s.epoch, gen: s.gens[key]}
}

// Get returns the cached value for key when fresh, otherwise runs fetch and caches its result.
// Concurrent callers of the same key and generation share one fetch. A result whose key was
// invalidated while the fetch ran is returned but cached as stale, so the next Get refetches.
// Failed fetches leave whatever was cached before in place.
func Get[T any](ctx context.Context, s *Store, key Key, fetch func(context.Context) (T, error)) (T, error) {
	var zero T
	if e, ok := s.entries.Get(key); ok && !e.stale {
		if v, ok := e.value.(T); ok {
			return v, nil
		}
	}

	started := s.generation(key)
	flight := fmt.Sprintf("%s#%d.%d", key, started.epoch, started.gen)
	res, err, _ := s.group.Do(flight, func() (interface{}, error) {
		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		s.genMu.Lock()
		stale := s.epoch != started.epoch || s.gens[key] != started.gen
		s.entries.Add(key, &entry{value: v, fetchedAt: time.Now(), stale: stale})
		s.genMu.Unlock()
		return v, nil
	})
	if err != nil {
		return zero, err
	}
	v, ok := res.(T)
	if !ok {
		return zero, fmt.Errorf("cache: %s holds %T", key, res)
	}
	return v, nil
}

// Peek returns the cached value without fetching, even if stale
func Peek[T any](s *Store, key Key) (T, bool) {
	var zero T
	e, ok := s.entries.Peek(key)
	if !ok {
		return zero, false
	}
	v, ok := e.value.(T)
	return v, ok
}

// Invalidate marks key stale and notifies its subscribers. Unknown keys still notify.
func (s *Store) Invalidate(key Key) {
	s.genMu.Lock()
	s.gens[key]++
	if e, ok := s.entries.Peek(key); ok {
		s.entries.Add(key, &entry{value: e.value, fetchedAt: e.fetchedAt, stale: true})
	}
	s.genMu.Unlock()
	if s.logger != nil {
		s.logger.Printf("cache: invalidate %s", key)
	}

	s.mu.RLock()
	fns := make([]func(Key), 0, len(s.subs[key]))
	for _, fn := range s.subs[key] {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(key)
	}
}

// IsStale reports whether key is absent or invalidated
func (s *Store) IsStale(key Key) bool {
	e, ok := s.entries.Peek(key)
	return !ok || e.stale
}

// Subscribe registers fn to be called whenever key is invalidated.
// The returned func removes the subscription and is safe to call more than once.
func (s *Store) Subscribe(key Key, fn func(Key)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	if s.subs[key] == nil {
		s.subs[key] = make(map[int]func(Key))
	}
	s.subs[key][id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs[key], id)
		if len(s.subs[key]) == 0 {
			delete(s.subs, key)
		}
	}
}

// Purge drops every cached result, used when switching accounts
func (s *Store) Purge() {
	s.genMu.Lock()
	s.epoch++
	s.gens = make(map[Key]uint64)
	s.entries.Purge()
	s.genMu.Unlock()
}

// Len returns the number of cached results
func (s *Store) Len() int {
	return s.entries.Len()
}
