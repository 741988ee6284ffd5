package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seatclub/seat-reservation/internal/booking"
	"github.com/seatclub/seat-reservation/internal/model"
	"github.com/seatclub/seat-reservation/internal/queue"
)

// Options configures a ReservationService.  Zero values fall back to the
// club defaults.
type Options struct {
	Grid             booking.Grid
	LimitedThreshold float64
	Location         *time.Location
	Now              func() time.Time
	Publisher        EventPublisher
	Log              *zap.Logger
}

// ReservationService is the reservation transaction coordinator.  It is
// safe for concurrent use; all shared state lives in the store.
type ReservationService struct {
	store     ReservationStore
	catalog   SeatCatalog
	publisher EventPublisher
	grid      booking.Grid
	threshold float64
	loc       *time.Location
	now       func() time.Time
	log       *zap.Logger
}

// NewReservationService wires a coordinator over store and catalog.
func NewReservationService(store ReservationStore, catalog SeatCatalog, opts Options) *ReservationService {
	if store == nil || catalog == nil {
		panic("nil store passed to NewReservationService")
	}
	s := &ReservationService{
		store:     store,
		catalog:   catalog,
		publisher: opts.Publisher,
		grid:      opts.Grid,
		threshold: opts.LimitedThreshold,
		loc:       opts.Location,
		now:       opts.Now,
		log:       opts.Log,
	}
	if s.publisher == nil {
		s.publisher = nopPublisher{}
	}
	if s.grid.Slot == 0 {
		s.grid = booking.DefaultGrid
	}
	if s.threshold <= 0 {
		s.threshold = booking.DefaultLimitedThreshold
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// Grid returns the slot grid the service validates against.
func (s *ReservationService) Grid() booking.Grid { return s.grid }

// Submit books every item of req for userID or nothing at all.
//
// The request is validated, every seat is checked against the catalog,
// then the confirmed set of the requested seats is re-read under the
// seat/date lock and checked for overlaps before anything is written.
// A store reporting contention is retried once; a second contention is
// reported as a ConflictError.
func (s *ReservationService) Submit(ctx context.Context, userID uint64, req booking.BookingRequest) ([]model.Reservation, error) {
	if err := req.Validate(s.grid); err != nil {
		return nil, err
	}
	if err := s.checkNotPast(req); err != nil {
		return nil, err
	}
	seatIDs := req.SeatIDs()
	seats, err := s.catalog.GetSeats(ctx, seatIDs)
	if err != nil {
		return nil, fmt.Errorf("load seats: %w", err)
	}
	verr := &booking.ValidationError{}
	for _, id := range seatIDs {
		seat, ok := seats[id]
		if !ok {
			return nil, fmt.Errorf("seat %d: %w", id, booking.ErrNotFound)
		}
		if seat.Status == model.SeatMaintenance {
			verr.Add("seat_id", fmt.Sprintf("seat %d is under maintenance", id))
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	now := s.now()
	records := make([]model.Reservation, 0, len(req.Items))
	for _, it := range req.Items {
		iv := it.Interval()
		records = append(records, model.Reservation{
			ID:              uuid.NewString(),
			SeatID:          it.SeatID,
			UserID:          userID,
			Date:            req.Date,
			StartMinute:     int(iv.Start),
			EndMinute:       int(iv.End),
			DurationMinutes: iv.Minutes(),
			Status:          model.StatusConfirmed,
			Notes:           req.Notes,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	}

	err = s.withSeatLock(ctx, req.Date, seatIDs, func(tx ReservationTx) error {
		existing, err := tx.Confirmed(ctx, req.Date, seatIDs)
		if err != nil {
			return err
		}
		var taken []uint64
		for _, it := range req.Items {
			hit, err := booking.HasConflict(it.SeatID, req.Date, it.Interval(), existing)
			if err != nil {
				return err
			}
			if hit {
				taken = append(taken, it.SeatID)
			}
		}
		if len(taken) > 0 {
			return booking.NewConflictError(req.Date, taken...)
		}
		return tx.Insert(ctx, records)
	})
	switch {
	case errors.Is(err, booking.ErrContention):
		s.log.Warn("booking aborted after contention retry",
			zap.Uint64("user_id", userID), zap.String("date", req.Date), zap.Uint64s("seat_ids", seatIDs))
		return nil, booking.NewConflictError(req.Date, seatIDs...)
	case booking.IsConflict(err):
		s.log.Info("booking rejected", zap.Uint64("user_id", userID), zap.Error(err))
		return nil, err
	case err != nil:
		return nil, err
	}

	s.log.Info("booking confirmed",
		zap.Uint64("user_id", userID), zap.String("date", req.Date), zap.Int("seats", len(records)))
	ev := queue.NewReservationEvent(queue.EventReservationConfirmed, records, s.now())
	ev.Headcount = req.Headcount
	s.publish(ctx, ev)
	return records, nil
}

// withSeatLock runs fn under the store's seat lock, retrying exactly once
// on contention.
func (s *ReservationService) withSeatLock(ctx context.Context, date string, seatIDs []uint64, fn func(ReservationTx) error) error {
	err := s.store.WithSeatLock(ctx, date, seatIDs, fn)
	if errors.Is(err, booking.ErrContention) {
		s.log.Info("write contention, retrying", zap.String("date", date), zap.Uint64s("seat_ids", seatIDs))
		err = s.store.WithSeatLock(ctx, date, seatIDs, fn)
	}
	return err
}

// checkNotPast rejects dates before today and, for today, intervals that
// have already started in the club's time zone.
func (s *ReservationService) checkNotPast(req booking.BookingRequest) error {
	now := s.now().In(s.loc)
	today := now.Format(booking.DateLayout)
	if req.Date < today {
		return booking.Invalid("date", "must not be in the past")
	}
	if req.Date > today {
		return nil
	}
	cur := booking.Clock(now.Hour()*60 + now.Minute())
	verr := &booking.ValidationError{}
	for i, it := range req.Items {
		if it.Start < cur {
			verr.Add(fmt.Sprintf("items[%d]", i), fmt.Sprintf("start %s has already passed", it.Start))
		}
	}
	return verr.OrNil()
}

func (s *ReservationService) publish(ctx context.Context, ev queue.ReservationEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.log.Warn("publish reservation event failed", zap.String("type", ev.Type), zap.Error(err))
	}
}

// owned loads reservation id and checks that it belongs to userID.
func (s *ReservationService) owned(ctx context.Context, userID uint64, id string) (model.Reservation, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return model.Reservation{}, err
	}
	if r.UserID != userID {
		return model.Reservation{}, booking.ErrForbidden
	}
	return r, nil
}

// Get returns one of the caller's reservations.
func (s *ReservationService) Get(ctx context.Context, userID uint64, id string) (model.Reservation, error) {
	return s.owned(ctx, userID, id)
}

// List returns the caller's reservations, newest day first.
func (s *ReservationService) List(ctx context.Context, userID uint64, f ReservationFilter) ([]model.Reservation, error) {
	verr := &booking.ValidationError{}
	if f.Status != "" && !model.ValidReservationStatus(f.Status) {
		verr.Add("status", fmt.Sprintf("unknown status %q", f.Status))
	}
	if f.DateFrom != "" {
		if _, err := booking.ParseDate(f.DateFrom); err != nil {
			verr.Add("dateFrom", err.Error())
		}
	}
	if f.DateTo != "" {
		if _, err := booking.ParseDate(f.DateTo); err != nil {
			verr.Add("dateTo", err.Error())
		}
	}
	if f.DateFrom != "" && f.DateTo != "" && f.DateFrom > f.DateTo {
		verr.Add("dateTo", "must not be before dateFrom")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return s.store.ListByUser(ctx, userID, f)
}

// Cancel moves one of the caller's reservations to cancelled.  The record
// is kept.  Cancelling an already cancelled reservation returns it
// unchanged; a completed reservation cannot be cancelled.
func (s *ReservationService) Cancel(ctx context.Context, userID uint64, id string) (model.Reservation, error) {
	r, err := s.owned(ctx, userID, id)
	if err != nil {
		return model.Reservation{}, err
	}
	switch r.Status {
	case model.StatusCancelled:
		return r, nil
	case model.StatusCompleted:
		return model.Reservation{}, completedCancel()
	}
	return s.cancel(ctx, userID, r, nil)
}

func completedCancel() error {
	return booking.Invalid("status", "a completed reservation cannot be cancelled")
}

// errNoLongerConfirmed rolls back a cancel whose reservation left the
// confirmed state after it was read.
var errNoLongerConfirmed = errors.New("reservation is no longer confirmed")

// cancel moves the confirmed reservation r to cancelled and, when notes
// is set, replaces its notes in the same write.  Either both changes are
// stored or neither is.
func (s *ReservationService) cancel(ctx context.Context, userID uint64, r model.Reservation, notes *string) (model.Reservation, error) {
	at := s.now()
	err := s.withSeatLock(ctx, r.Date, []uint64{r.SeatID}, func(tx ReservationTx) error {
		changed, err := tx.Cancel(ctx, r.ID, at)
		if err != nil {
			return err
		}
		if !changed {
			return errNoLongerConfirmed
		}
		if notes != nil {
			return tx.SetNotes(ctx, r.ID, *notes, at)
		}
		return nil
	})
	if errors.Is(err, errNoLongerConfirmed) {
		// Lost a race with another cancel or the completion sweep.
		cur, err := s.store.Get(ctx, r.ID)
		if err != nil {
			return model.Reservation{}, err
		}
		if cur.Status == model.StatusCompleted {
			return model.Reservation{}, completedCancel()
		}
		if notes != nil && *notes != cur.Notes {
			// Someone else cancelled it first; only the notes are left to write.
			if err := s.store.UpdateNotes(ctx, r.ID, *notes, at); err != nil {
				return model.Reservation{}, fmt.Errorf("update notes: %w", err)
			}
			cur.Notes = *notes
			cur.UpdatedAt = at
		}
		return cur, nil
	}
	if err != nil {
		return model.Reservation{}, fmt.Errorf("cancel reservation %s: %w", r.ID, err)
	}
	r.Status = model.StatusCancelled
	r.UpdatedAt = at
	if notes != nil {
		r.Notes = *notes
	}
	s.log.Info("reservation cancelled", zap.Uint64("user_id", userID), zap.String("reservation_id", r.ID))
	s.publish(ctx, queue.NewReservationEvent(queue.EventReservationCancelled, []model.Reservation{r}, s.now()))
	return r, nil
}

// Patch is a partial reservation update.  Nil fields are left alone.
type Patch struct {
	Notes  *string
	Status *string
}

// Update edits the notes of one of the caller's reservations and/or
// cancels it.  Status may only move to cancelled.
func (s *ReservationService) Update(ctx context.Context, userID uint64, id string, p Patch) (model.Reservation, error) {
	r, err := s.owned(ctx, userID, id)
	if err != nil {
		return model.Reservation{}, err
	}
	verr := &booking.ValidationError{}
	if p.Notes == nil && p.Status == nil {
		verr.Add("body", "nothing to update")
	}
	if p.Status != nil && *p.Status != r.Status && *p.Status != model.StatusCancelled {
		verr.Add("status", "may only be changed to cancelled")
	}
	cancelling := p.Status != nil && *p.Status == model.StatusCancelled && r.Status != model.StatusCancelled
	if cancelling && r.Status == model.StatusCompleted {
		verr.Add("status", "a completed reservation cannot be cancelled")
	}
	if p.Notes != nil && len(*p.Notes) > booking.MaxNotesLength {
		verr.Add("notes", fmt.Sprintf("must be at most %d characters", booking.MaxNotesLength))
	}
	if err := verr.OrNil(); err != nil {
		return model.Reservation{}, err
	}

	if cancelling {
		return s.cancel(ctx, userID, r, p.Notes)
	}
	if p.Notes != nil && *p.Notes != r.Notes {
		at := s.now()
		if err := s.store.UpdateNotes(ctx, id, *p.Notes, at); err != nil {
			return model.Reservation{}, fmt.Errorf("update notes: %w", err)
		}
		r.Notes = *p.Notes
		r.UpdatedAt = at
	}
	return r, nil
}

// CompleteFinished marks every confirmed reservation whose interval has
// ended as completed.
func (s *ReservationService) CompleteFinished(ctx context.Context) (int64, error) {
	now := s.now().In(s.loc)
	return s.store.CompletePast(ctx, now.Format(booking.DateLayout), now.Hour()*60+now.Minute(), s.now())
}
