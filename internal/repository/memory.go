package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/seatclub/seat-reservation/internal/booking"
	"github.com/seatclub/seat-reservation/internal/model"
	"github.com/seatclub/seat-reservation/internal/service"
	"github.com/seatclub/seat-reservation/internal/utils"
)

// MemoryReservations is an in-process service.ReservationStore.  Seat
// locks are one mutex per seat and day, always taken in ascending seat
// order.
type MemoryReservations struct {
	mu   sync.RWMutex
	rows map[string]model.Reservation

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewMemoryReservations returns an empty store.
func NewMemoryReservations() *MemoryReservations {
	return &MemoryReservations{
		rows:  make(map[string]model.Reservation),
		locks: make(map[string]*sync.Mutex),
	}
}

var _ service.ReservationStore = (*MemoryReservations)(nil)

func (m *MemoryReservations) seatLock(seatID uint64, date string) *sync.Mutex {
	key := fmt.Sprintf("%d/%s", seatID, date)
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	l, ok := m.locks[key]
	if !ok {
		l = &sync.Mutex{}
		m.locks[key] = l
	}
	return l
}

// WithSeatLock implements service.ReservationStore.  Writes made through
// the transaction are buffered and applied only when fn returns nil.
func (m *MemoryReservations) WithSeatLock(ctx context.Context, date string, seatIDs []uint64, fn func(service.ReservationTx) error) error {
	for _, id := range sortedUnique(seatIDs) {
		l := m.seatLock(id, date)
		l.Lock()
		defer l.Unlock()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memoryTx{store: m, cancels: map[string]time.Time{}, notes: map[string]noteEdit{}}
	if err := fn(tx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	// The completion sweep does not take seat locks, so a row cancelled
	// inside fn may have been completed since.  Abort the whole write.
	for id := range tx.cancels {
		if !m.rows[id].IsConfirmed() {
			return booking.ErrContention
		}
	}
	for _, r := range tx.inserts {
		m.rows[r.ID] = r
	}
	for id, at := range tx.cancels {
		r := m.rows[id]
		r.Status = model.StatusCancelled
		r.UpdatedAt = at
		m.rows[id] = r
	}
	for id, n := range tx.notes {
		r, ok := m.rows[id]
		if !ok {
			continue
		}
		r.Notes = n.notes
		r.UpdatedAt = n.at
		m.rows[id] = r
	}
	return nil
}

type noteEdit struct {
	notes string
	at    time.Time
}

type memoryTx struct {
	store   *MemoryReservations
	inserts []model.Reservation
	cancels map[string]time.Time
	notes   map[string]noteEdit
}

func (t *memoryTx) Confirmed(_ context.Context, date string, seatIDs []uint64) ([]model.Reservation, error) {
	want := make(map[uint64]bool, len(seatIDs))
	for _, id := range seatIDs {
		want[id] = true
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	out := []model.Reservation{}
	for _, r := range t.store.rows {
		if r.Date == date && want[r.SeatID] && r.IsConfirmed() {
			if _, cancelled := t.cancels[r.ID]; !cancelled {
				out = append(out, r)
			}
		}
	}
	for _, r := range t.inserts {
		if r.Date == date && want[r.SeatID] {
			out = append(out, r)
		}
	}
	return out, nil
}

func (t *memoryTx) Insert(_ context.Context, rs []model.Reservation) error {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	for _, r := range rs {
		if _, dup := t.store.rows[r.ID]; dup {
			return fmt.Errorf("duplicate reservation id %s", r.ID)
		}
	}
	t.inserts = append(t.inserts, rs...)
	return nil
}

func (t *memoryTx) Cancel(_ context.Context, id string, at time.Time) (bool, error) {
	t.store.mu.RLock()
	r, ok := t.store.rows[id]
	t.store.mu.RUnlock()
	if !ok || !r.IsConfirmed() {
		return false, nil
	}
	if _, done := t.cancels[id]; done {
		return false, nil
	}
	t.cancels[id] = at
	return true, nil
}

func (t *memoryTx) SetNotes(_ context.Context, id, notes string, at time.Time) error {
	t.store.mu.RLock()
	_, ok := t.store.rows[id]
	t.store.mu.RUnlock()
	if !ok {
		return booking.ErrNotFound
	}
	t.notes[id] = noteEdit{notes: notes, at: at}
	return nil
}

// Get implements service.ReservationStore.
func (m *MemoryReservations) Get(_ context.Context, id string) (model.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rows[id]
	if !ok {
		return model.Reservation{}, booking.ErrNotFound
	}
	return r, nil
}

// ListByUser implements service.ReservationStore.
func (m *MemoryReservations) ListByUser(_ context.Context, userID uint64, f service.ReservationFilter) ([]model.Reservation, error) {
	m.mu.RLock()
	out := []model.Reservation{}
	for _, r := range m.rows {
		if r.UserID != userID {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.DateFrom != "" && r.Date < f.DateFrom {
			continue
		}
		if f.DateTo != "" && r.Date > f.DateTo {
			continue
		}
		out = append(out, r)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Date != b.Date {
			return a.Date > b.Date
		}
		if a.StartMinute != b.StartMinute {
			return a.StartMinute < b.StartMinute
		}
		return a.SeatID < b.SeatID
	})
	return out, nil
}

// ConfirmedBetween implements service.ReservationStore.
func (m *MemoryReservations) ConfirmedBetween(_ context.Context, from, to string, seatIDs []uint64) ([]model.Reservation, error) {
	want := make(map[uint64]bool, len(seatIDs))
	for _, id := range seatIDs {
		want[id] = true
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []model.Reservation{}
	for _, r := range m.rows {
		if !r.IsConfirmed() || r.Date < from || r.Date > to {
			continue
		}
		if len(want) > 0 && !want[r.SeatID] {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// UpdateNotes implements service.ReservationStore.
func (m *MemoryReservations) UpdateNotes(_ context.Context, id, notes string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return booking.ErrNotFound
	}
	r.Notes = notes
	r.UpdatedAt = at
	m.rows[id] = r
	return nil
}

// CompletePast implements service.ReservationStore.
func (m *MemoryReservations) CompletePast(_ context.Context, today string, minute int, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, r := range m.rows {
		if !r.IsConfirmed() {
			continue
		}
		if r.Date < today || (r.Date == today && r.EndMinute <= minute) {
			r.Status = model.StatusCompleted
			r.UpdatedAt = at
			m.rows[id] = r
			n++
		}
	}
	return n, nil
}

// MemoryCatalog is an in-process seat and branch catalog.
type MemoryCatalog struct {
	mu         sync.RWMutex
	seats      map[uint64]model.Seat
	branches   map[uint64]model.Branch
	nextSeat   uint64
	nextBranch uint64
}

// NewMemoryCatalog returns an empty catalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{seats: map[uint64]model.Seat{}, branches: map[uint64]model.Branch{}}
}

var _ service.SeatCatalog = (*MemoryCatalog)(nil)

// ListSeats implements service.SeatCatalog.
func (c *MemoryCatalog) ListSeats(_ context.Context, f service.SeatFilter) ([]model.Seat, error) {
	c.mu.RLock()
	out := []model.Seat{}
	for _, s := range c.seats {
		if f.BranchID != 0 && s.BranchID != f.BranchID {
			continue
		}
		if f.Status != "" && s.Status != f.Status {
			continue
		}
		out = append(out, s)
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].BranchID != out[j].BranchID {
			return out[i].BranchID < out[j].BranchID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// GetSeats implements service.SeatCatalog.
func (c *MemoryCatalog) GetSeats(_ context.Context, ids []uint64) (map[uint64]model.Seat, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[uint64]model.Seat, len(ids))
	for _, id := range ids {
		if s, ok := c.seats[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

// Get returns one seat.
func (c *MemoryCatalog) Get(_ context.Context, id uint64) (model.Seat, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.seats[id]
	if !ok {
		return model.Seat{}, booking.ErrNotFound
	}
	return s, nil
}

// Create adds a seat, assigning its id.
func (c *MemoryCatalog) Create(_ context.Context, s *model.Seat) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, other := range c.seats {
		if other.BranchID == s.BranchID && other.Name == s.Name {
			return ErrSeatNameTaken
		}
	}
	c.nextSeat++
	now := time.Now().UTC()
	s.ID = c.nextSeat
	s.CreatedAt, s.UpdatedAt = now, now
	c.seats[s.ID] = *s
	return nil
}

// Update applies p to seat id.
func (c *MemoryCatalog) Update(_ context.Context, id uint64, p model.SeatPatch) (model.Seat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.seats[id]
	if !ok {
		return model.Seat{}, booking.ErrNotFound
	}
	p.Apply(&s)
	for _, other := range c.seats {
		if other.ID != id && other.BranchID == s.BranchID && other.Name == s.Name {
			return model.Seat{}, ErrSeatNameTaken
		}
	}
	s.UpdatedAt = time.Now().UTC()
	c.seats[id] = s
	return s, nil
}

// Branches returns a view of the catalog's branches.
func (c *MemoryCatalog) Branches() *MemoryBranches { return &MemoryBranches{c: c} }

// MemoryBranches exposes the branch half of a MemoryCatalog with the same
// method set as BranchRepo.
type MemoryBranches struct{ c *MemoryCatalog }

// List returns every branch ordered by name.
func (b *MemoryBranches) List(_ context.Context) ([]model.Branch, error) {
	b.c.mu.RLock()
	out := make([]model.Branch, 0, len(b.c.branches))
	for _, br := range b.c.branches {
		out = append(out, br)
	}
	b.c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Get returns one branch.
func (b *MemoryBranches) Get(_ context.Context, id uint64) (model.Branch, error) {
	b.c.mu.RLock()
	defer b.c.mu.RUnlock()
	br, ok := b.c.branches[id]
	if !ok {
		return model.Branch{}, booking.ErrNotFound
	}
	return br, nil
}

// Create adds a branch, assigning its id.
func (b *MemoryBranches) Create(_ context.Context, br *model.Branch) error {
	b.c.mu.Lock()
	defer b.c.mu.Unlock()
	b.c.nextBranch++
	br.ID = b.c.nextBranch
	br.CreatedAt = time.Now().UTC()
	b.c.branches[br.ID] = *br
	return nil
}

// MemoryMembers is an in-process member store.
type MemoryMembers struct {
	mu     sync.RWMutex
	byID   map[uint64]model.Member
	nextID uint64
}

// NewMemoryMembers returns an empty member store.
func NewMemoryMembers() *MemoryMembers {
	return &MemoryMembers{byID: map[uint64]model.Member{}}
}

// Create hashes password and stores the member.
func (m *MemoryMembers) Create(_ context.Context, email, password, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			return 0, ErrEmailExists
		}
	}
	m.nextID++
	now := time.Now().UTC()
	m.byID[m.nextID] = model.Member{
		ID: m.nextID, Email: email, PasswordHash: hash, Role: role,
		IsActive: true, CreatedAt: now, UpdatedAt: now,
	}
	return m.nextID, nil
}

// GetByEmail fetches a member by normalized email.
func (m *MemoryMembers) GetByEmail(_ context.Context, email string) (model.Member, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return model.Member{}, booking.ErrNotFound
}

// GetByID fetches a member by id.
func (m *MemoryMembers) GetByID(_ context.Context, id uint64) (model.Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.byID[id]
	if !ok {
		return model.Member{}, booking.ErrNotFound
	}
	return u, nil
}
