package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seatclub/seat-reservation/internal/booking"
	"github.com/seatclub/seat-reservation/internal/model"
)

// DefaultSelectionTTL is how long an idle selection session survives.
const DefaultSelectionTTL = 30 * time.Minute

// SelectionView is a selection session as returned to clients: the
// state, the price of its complete seats and the complete seats that
// cross an already reserved slot.
type SelectionView struct {
	State   booking.SelectionState `json:"selection"`
	Quote   booking.Quote          `json:"quote"`
	Blocked []uint64               `json:"blocked_seat_ids"`
}

// SelectionService drives the per-member selection state machine and
// hands the composed request to the coordinator.
type SelectionService struct {
	store        SelectionStore
	reservations *ReservationService
	ttl          time.Duration
	log          *zap.Logger
}

// NewSelectionService returns a SelectionService keeping sessions in store
// for ttl after their last change.
func NewSelectionService(store SelectionStore, reservations *ReservationService, ttl time.Duration, log *zap.Logger) *SelectionService {
	if ttl <= 0 {
		ttl = DefaultSelectionTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SelectionService{store: store, reservations: reservations, ttl: ttl, log: log}
}

// Create starts an empty selection for userID on date.
func (s *SelectionService) Create(ctx context.Context, userID uint64, date string) (SelectionView, error) {
	st, err := booking.NewSelection(uuid.NewString(), userID, date)
	if err != nil {
		return SelectionView{}, err
	}
	return s.save(ctx, st)
}

// Get returns one of the caller's sessions.
func (s *SelectionService) Get(ctx context.Context, userID uint64, id string) (SelectionView, error) {
	st, err := s.load(ctx, userID, id)
	if err != nil {
		return SelectionView{}, err
	}
	return s.view(ctx, st)
}

// Click applies one slot click.  The seat must exist in the catalog; the
// seat's reserved slots are read fresh so a taken slot is ignored.
func (s *SelectionService) Click(ctx context.Context, userID uint64, id string, seatID uint64, at booking.Clock) (SelectionView, booking.Transition, error) {
	st, err := s.load(ctx, userID, id)
	if err != nil {
		return SelectionView{}, "", err
	}
	if seatID == 0 {
		return SelectionView{}, "", booking.Invalid("seat_id", "is required")
	}
	seats, err := s.reservations.catalog.GetSeats(ctx, []uint64{seatID})
	if err != nil {
		return SelectionView{}, "", fmt.Errorf("load seat: %w", err)
	}
	if _, ok := seats[seatID]; !ok {
		return SelectionView{}, "", fmt.Errorf("seat %d: %w", seatID, booking.ErrNotFound)
	}
	reserved, err := s.reservations.ReservedSlots(ctx, st.Date, []uint64{seatID})
	if err != nil {
		return SelectionView{}, "", err
	}
	next, tr, err := booking.Click(s.reservations.grid, st, seatID, at, reserved)
	if err != nil {
		return SelectionView{}, "", err
	}
	if tr == booking.TransitionIgnored {
		v, err := s.view(ctx, st)
		return v, tr, err
	}
	v, err := s.save(ctx, next)
	return v, tr, err
}

// ChangeDate moves the session to another date and clears every seat.
func (s *SelectionService) ChangeDate(ctx context.Context, userID uint64, id, date string) (SelectionView, error) {
	st, err := s.load(ctx, userID, id)
	if err != nil {
		return SelectionView{}, err
	}
	next, err := booking.ChangeDate(st, date)
	if err != nil {
		return SelectionView{}, err
	}
	return s.save(ctx, next)
}

// Submit hands the session's complete seats to the coordinator.  The
// session is discarded whatever the outcome.
func (s *SelectionService) Submit(ctx context.Context, userID uint64, id string, headcount int, notes string) ([]model.Reservation, error) {
	st, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := s.store.Delete(context.WithoutCancel(ctx), id); err != nil {
			s.log.Warn("discard selection failed", zap.String("session_id", id), zap.Error(err))
		}
	}()
	return s.reservations.Submit(ctx, userID, st.Request(s.reservations.grid, headcount, notes))
}

// Discard deletes one of the caller's sessions.
func (s *SelectionService) Discard(ctx context.Context, userID uint64, id string) error {
	if _, err := s.load(ctx, userID, id); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}

func (s *SelectionService) load(ctx context.Context, userID uint64, id string) (booking.SelectionState, error) {
	st, err := s.store.Load(ctx, id)
	if err != nil {
		return booking.SelectionState{}, err
	}
	if st.UserID != userID {
		return booking.SelectionState{}, booking.ErrForbidden
	}
	return st, nil
}

func (s *SelectionService) save(ctx context.Context, st booking.SelectionState) (SelectionView, error) {
	st.UpdatedAt = s.reservations.now().UTC()
	if err := s.store.Save(ctx, st, s.ttl); err != nil {
		return SelectionView{}, fmt.Errorf("save selection: %w", err)
	}
	return s.view(ctx, st)
}

// view prices the complete seats and flags those crossing reserved slots.
func (s *SelectionService) view(ctx context.Context, st booking.SelectionState) (SelectionView, error) {
	g := s.reservations.grid
	v := SelectionView{State: st, Quote: booking.Quote{Lines: []booking.LineQuote{}}, Blocked: []uint64{}}
	ids := st.CompleteSeats()
	if len(ids) == 0 {
		return v, nil
	}
	seats, err := s.reservations.catalog.GetSeats(ctx, ids)
	if err != nil {
		return SelectionView{}, fmt.Errorf("load seats: %w", err)
	}
	q, err := booking.QuoteRequest(seats, st.Request(g, 0, ""))
	if err != nil {
		return SelectionView{}, err
	}
	v.Quote = q
	reserved, err := s.reservations.ReservedSlots(ctx, st.Date, ids)
	if err != nil {
		return SelectionView{}, err
	}
	if b := st.Blocked(g, reserved); len(b) > 0 {
		v.Blocked = b
	}
	return v, nil
}
