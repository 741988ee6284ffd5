package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/seatclub/seat-reservation/internal/booking"
	"github.com/seatclub/seat-reservation/internal/service"
)

// RedisSelectionStore keeps selection sessions as JSON values with a TTL
// that is refreshed on every save.
type RedisSelectionStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisSelectionStore stores sessions under "<prefix>:<session id>".
func NewRedisSelectionStore(rdb *redis.Client, prefix string) *RedisSelectionStore {
	if prefix == "" {
		prefix = "selection"
	}
	return &RedisSelectionStore{rdb: rdb, prefix: prefix}
}

var _ service.SelectionStore = (*RedisSelectionStore)(nil)

func (s *RedisSelectionStore) key(id string) string { return s.prefix + ":" + id }

// Save implements service.SelectionStore.
func (s *RedisSelectionStore) Save(ctx context.Context, st booking.SelectionState, ttl time.Duration) error {
	b, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.key(st.SessionID), b, ttl).Err()
}

// Load implements service.SelectionStore.
func (s *RedisSelectionStore) Load(ctx context.Context, id string) (booking.SelectionState, error) {
	b, err := s.rdb.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return booking.SelectionState{}, booking.ErrNotFound
	}
	if err != nil {
		return booking.SelectionState{}, err
	}
	var st booking.SelectionState
	if err := json.Unmarshal(b, &st); err != nil {
		return booking.SelectionState{}, fmt.Errorf("decode selection %s: %w", id, err)
	}
	if st.Seats == nil {
		st.Seats = map[uint64]booking.SeatSelection{}
	}
	return st, nil
}

// Delete implements service.SelectionStore.
func (s *RedisSelectionStore) Delete(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, s.key(id)).Err()
}

// MemorySelectionStore is the in-process SelectionStore used when Redis
// is not configured.  Expired sessions are dropped lazily on Load.
type MemorySelectionStore struct {
	mu   sync.Mutex
	now  func() time.Time
	rows map[string]memorySelection
}

type memorySelection struct {
	state   booking.SelectionState
	expires time.Time
}

// NewMemorySelectionStore returns an empty store.  now may be nil.
func NewMemorySelectionStore(now func() time.Time) *MemorySelectionStore {
	if now == nil {
		now = time.Now
	}
	return &MemorySelectionStore{now: now, rows: map[string]memorySelection{}}
}

var _ service.SelectionStore = (*MemorySelectionStore)(nil)

// Save implements service.SelectionStore.
func (s *MemorySelectionStore) Save(_ context.Context, st booking.SelectionState, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[st.SessionID] = memorySelection{state: st, expires: s.now().Add(ttl)}
	return nil
}

// Load implements service.SelectionStore.
func (s *MemorySelectionStore) Load(_ context.Context, id string) (booking.SelectionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return booking.SelectionState{}, booking.ErrNotFound
	}
	if !s.now().Before(row.expires) {
		delete(s.rows, id)
		return booking.SelectionState{}, booking.ErrNotFound
	}
	return row.state, nil
}

// Delete implements service.SelectionStore.
func (s *MemorySelectionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, id)
	return nil
}
