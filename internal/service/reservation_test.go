package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/seatclub/seat-reservation/internal/booking"
	"github.com/seatclub/seat-reservation/internal/model"
	"github.com/seatclub/seat-reservation/internal/queue"
	"github.com/seatclub/seat-reservation/internal/repository"
	"github.com/seatclub/seat-reservation/internal/service"
)

const day = "2026-10-20"

var fixedNow = time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.ReservationEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.ReservationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

// contendingStore fails the first n WithSeatLock calls with ErrContention.
type contendingStore struct {
	service.ReservationStore
	mu    sync.Mutex
	n     int
	calls int
}

func (s *contendingStore) WithSeatLock(ctx context.Context, date string, seatIDs []uint64, fn func(service.ReservationTx) error) error {
	s.mu.Lock()
	s.calls++
	fail := s.calls <= s.n
	s.mu.Unlock()
	if fail {
		return booking.ErrContention
	}
	return s.ReservationStore.WithSeatLock(ctx, date, seatIDs, fn)
}

type fixture struct {
	store   *repository.MemoryReservations
	catalog *repository.MemoryCatalog
	pub     *recordingPublisher
	svc     *service.ReservationService
	seats   []model.Seat
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{
		store:   repository.NewMemoryReservations(),
		catalog: repository.NewMemoryCatalog(),
		pub:     &recordingPublisher{},
	}
	br := &model.Branch{Name: "Shibuya"}
	if err := f.catalog.Branches().Create(ctx, br); err != nil {
		t.Fatal(err)
	}
	for _, s := range []model.Seat{
		{BranchID: br.ID, Name: "A-1", RatePerMinute: 10, Status: model.SeatAvailable},
		{BranchID: br.ID, Name: "A-2", RatePerMinute: 10, Status: model.SeatAvailable},
		{BranchID: br.ID, Name: "A-3", RatePerMinute: 10, Status: model.SeatMaintenance},
	} {
		s := s
		if err := f.catalog.Create(ctx, &s); err != nil {
			t.Fatal(err)
		}
		f.seats = append(f.seats, s)
	}
	f.svc = f.newService(f.store)
	return f
}

func (f *fixture) newService(store service.ReservationStore) *service.ReservationService {
	return service.NewReservationService(store, f.catalog, service.Options{
		Location:  time.UTC,
		Now:       func() time.Time { return fixedNow },
		Publisher: f.pub,
	})
}

func item(seat uint64, start, end string) booking.RequestItem {
	return booking.RequestItem{SeatID: seat, Start: booking.MustClock(start), End: booking.MustClock(end)}
}

func request(items ...booking.RequestItem) booking.BookingRequest {
	return booking.BookingRequest{Date: day, Headcount: len(items), Items: items}
}

func (f *fixture) confirmedOn(t *testing.T, seatID uint64) []model.Reservation {
	t.Helper()
	rs, err := f.store.ConfirmedBetween(context.Background(), day, day, []uint64{seatID})
	if err != nil {
		t.Fatal(err)
	}
	return rs
}

func TestSubmitBooksEverySeat(t *testing.T) {
	f := newFixture(t)
	got, err := f.svc.Submit(context.Background(), 7, request(item(1, "10:00", "11:00"), item(2, "10:00", "11:30")))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(Submit()) = %d, want 2", len(got))
	}
	for _, r := range got {
		if r.Status != model.StatusConfirmed || r.UserID != 7 || r.ID == "" {
			t.Errorf("record = %+v", r)
		}
	}
	if got[1].DurationMinutes != 90 {
		t.Errorf("DurationMinutes = %d, want 90", got[1].DurationMinutes)
	}
	if types := f.pub.types(); len(types) != 1 || types[0] != queue.EventReservationConfirmed {
		t.Fatalf("published = %v, want one confirmed event", types)
	}
	if hc := f.pub.events[0].Headcount; hc != 2 {
		t.Errorf("event headcount = %d, want 2", hc)
	}
}

func TestSubmitAllOrNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.Submit(ctx, 8, request(item(2, "10:30", "11:30"))); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, err := f.svc.Submit(ctx, 7, request(item(1, "10:00", "11:00"), item(2, "10:00", "11:00")))
	var cerr *booking.ConflictError
	if !errors.As(err, &cerr) {
		t.Fatalf("Submit() error = %v, want ConflictError", err)
	}
	if len(cerr.SeatIDs) != 1 || cerr.SeatIDs[0] != 2 {
		t.Errorf("SeatIDs = %v, want [2]", cerr.SeatIDs)
	}
	if rs := f.confirmedOn(t, 1); len(rs) != 0 {
		t.Errorf("seat 1 has %d reservations, want 0", len(rs))
	}
}

func TestSubmitAdjacentIntervals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.Submit(ctx, 7, request(item(1, "10:00", "11:00"))); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Submit(ctx, 8, request(item(1, "11:00", "12:00"))); err != nil {
		t.Errorf("Submit(adjacent) error = %v, want nil", err)
	}
	if _, err := f.svc.Submit(ctx, 8, request(item(1, "10:30", "11:30"))); !booking.IsConflict(err) {
		t.Errorf("Submit(overlap) error = %v, want conflict", err)
	}
}

func TestSubmitConcurrentRace(t *testing.T) {
	f := newFixture(t)
	const n = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(user uint64) {
			defer wg.Done()
			<-start
			_, err := f.svc.Submit(context.Background(), user, request(item(1, "14:00", "15:00")))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case booking.IsConflict(err):
				conflicts++
			default:
				t.Errorf("Submit() error = %v", err)
			}
		}(uint64(i + 1))
	}
	close(start)
	wg.Wait()

	if succeeded != 1 || conflicts != n-1 {
		t.Errorf("succeeded=%d conflicts=%d, want 1 and %d", succeeded, conflicts, n-1)
	}
	if rs := f.confirmedOn(t, 1); len(rs) != 1 {
		t.Errorf("confirmed = %d, want 1", len(rs))
	}
}

func TestSubmitRetriesContentionOnce(t *testing.T) {
	f := newFixture(t)

	once := &contendingStore{ReservationStore: f.store, n: 1}
	if _, err := f.newService(once).Submit(context.Background(), 7, request(item(1, "10:00", "11:00"))); err != nil {
		t.Errorf("Submit() after one contention error = %v, want nil", err)
	}
	if once.calls != 2 {
		t.Errorf("calls = %d, want 2", once.calls)
	}

	twice := &contendingStore{ReservationStore: f.store, n: 2}
	_, err := f.newService(twice).Submit(context.Background(), 7, request(item(2, "10:00", "11:00")))
	if !booking.IsConflict(err) {
		t.Errorf("Submit() after two contentions error = %v, want conflict", err)
	}
	if twice.calls != 2 {
		t.Errorf("calls = %d, want 2", twice.calls)
	}
}

func TestSubmitRejects(t *testing.T) {
	tests := []struct {
		name  string
		req   booking.BookingRequest
		check func(error) bool
	}{
		{"unknown seat", request(item(99, "10:00", "11:00")), func(err error) bool { return errors.Is(err, booking.ErrNotFound) }},
		{"maintenance seat", request(item(3, "10:00", "11:00")), booking.IsValidation},
		{"past date", booking.BookingRequest{Date: "2026-10-15", Items: []booking.RequestItem{item(1, "10:00", "11:00")}}, booking.IsValidation},
		{"started today", booking.BookingRequest{Date: "2026-10-16", Items: []booking.RequestItem{item(1, "06:00", "07:00")}}, booking.IsValidation},
		{"empty", booking.BookingRequest{Date: day}, booking.IsValidation},
		{"misaligned", request(item(1, "10:15", "11:00")), booking.IsValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.Submit(context.Background(), 7, tt.req)
			if !tt.check(err) {
				t.Errorf("Submit() error = %v", err)
			}
		})
	}
}

func TestCancelFreesSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rs, err := f.svc.Submit(ctx, 7, request(item(1, "10:00", "11:00")))
	if err != nil {
		t.Fatal(err)
	}
	id := rs[0].ID

	if _, err := f.svc.Cancel(ctx, 8, id); !errors.Is(err, booking.ErrForbidden) {
		t.Errorf("Cancel(other user) error = %v, want ErrForbidden", err)
	}
	got, err := f.svc.Cancel(ctx, 7, id)
	if err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if got.Status != model.StatusCancelled {
		t.Errorf("Status = %q, want cancelled", got.Status)
	}
	again, err := f.svc.Cancel(ctx, 7, id)
	if err != nil || again.Status != model.StatusCancelled {
		t.Errorf("Cancel(again) = %+v, %v, want unchanged cancelled", again, err)
	}
	if _, err := f.svc.Cancel(ctx, 7, "nope"); !errors.Is(err, booking.ErrNotFound) {
		t.Errorf("Cancel(missing) error = %v, want ErrNotFound", err)
	}

	if _, err := f.svc.Submit(ctx, 8, request(item(1, "10:00", "11:00"))); err != nil {
		t.Errorf("Submit() after cancel error = %v, want nil", err)
	}
	stored, _ := f.store.Get(ctx, id)
	if stored.Status != model.StatusCancelled {
		t.Errorf("cancelled record status = %q, want kept as cancelled", stored.Status)
	}
	want := []string{queue.EventReservationConfirmed, queue.EventReservationCancelled, queue.EventReservationConfirmed}
	if got := f.pub.types(); len(got) != len(want) {
		t.Errorf("published = %v, want %v", got, want)
	}
}

func TestCancelCompleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rs, err := f.svc.Submit(ctx, 7, request(item(1, "10:00", "11:00")))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.store.CompletePast(ctx, "2026-10-21", 0, fixedNow); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Cancel(ctx, 7, rs[0].ID); !booking.IsValidation(err) {
		t.Errorf("Cancel(completed) error = %v, want validation error", err)
	}
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rs, err := f.svc.Submit(ctx, 7, request(item(1, "10:00", "11:00")))
	if err != nil {
		t.Fatal(err)
	}
	id := rs[0].ID
	notes := "window seat please"
	got, err := f.svc.Update(ctx, 7, id, service.Patch{Notes: &notes})
	if err != nil || got.Notes != notes {
		t.Fatalf("Update(notes) = %+v, %v", got, err)
	}

	completed := model.StatusCompleted
	if _, err := f.svc.Update(ctx, 7, id, service.Patch{Status: &completed}); !booking.IsValidation(err) {
		t.Errorf("Update(status=completed) error = %v, want validation error", err)
	}
	if _, err := f.svc.Update(ctx, 8, id, service.Patch{Notes: &notes}); !errors.Is(err, booking.ErrForbidden) {
		t.Errorf("Update(other user) error = %v, want ErrForbidden", err)
	}

	cancelled := model.StatusCancelled
	got, err = f.svc.Update(ctx, 7, id, service.Patch{Status: &cancelled})
	if err != nil || got.Status != model.StatusCancelled || got.Notes != notes {
		t.Errorf("Update(status=cancelled) = %+v, %v", got, err)
	}
}

func TestUpdateRejectedLeavesRecordUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rs, err := f.svc.Submit(ctx, 7, request(item(1, "10:00", "11:00")))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.store.CompletePast(ctx, "2026-10-21", 0, fixedNow); err != nil {
		t.Fatal(err)
	}

	notes := "changed"
	cancelled := model.StatusCancelled
	_, err = f.svc.Update(ctx, 7, rs[0].ID, service.Patch{Notes: &notes, Status: &cancelled})
	if !booking.IsValidation(err) {
		t.Fatalf("Update(notes, cancelled) on completed error = %v, want validation error", err)
	}
	got, err := f.store.Get(ctx, rs[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Notes != "" || got.Status != model.StatusCompleted {
		t.Errorf("stored = notes %q status %q, want unchanged completed record", got.Notes, got.Status)
	}
}

func TestUpdateNotesAndCancelTogether(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rs, err := f.svc.Submit(ctx, 7, request(item(1, "10:00", "11:00")))
	if err != nil {
		t.Fatal(err)
	}
	notes := "plans changed"
	cancelled := model.StatusCancelled
	got, err := f.svc.Update(ctx, 7, rs[0].ID, service.Patch{Notes: &notes, Status: &cancelled})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	stored, err := f.store.Get(ctx, rs[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range []model.Reservation{got, stored} {
		if r.Notes != notes || r.Status != model.StatusCancelled {
			t.Errorf("reservation = notes %q status %q, want %q cancelled", r.Notes, r.Status, notes)
		}
	}
	types := f.pub.types()
	if len(types) != 2 || types[1] != queue.EventReservationCancelled {
		t.Errorf("events = %v, want confirmed then cancelled", types)
	}
}

func TestList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.Submit(ctx, 7, request(item(1, "10:00", "11:00"), item(2, "12:00", "13:00"))); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Submit(ctx, 8, request(item(1, "12:00", "13:00"))); err != nil {
		t.Fatal(err)
	}
	mine, err := f.svc.List(ctx, 7, service.ReservationFilter{Status: model.StatusConfirmed})
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 2 {
		t.Errorf("List() = %d rows, want 2", len(mine))
	}
	for _, r := range mine {
		if r.UserID != 7 {
			t.Errorf("List() returned reservation of user %d", r.UserID)
		}
	}
	if _, err := f.svc.List(ctx, 7, service.ReservationFilter{Status: "pending"}); !booking.IsValidation(err) {
		t.Errorf("List(status=pending) error = %v, want validation error", err)
	}
}

func TestCompleteFinished(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.Submit(ctx, 7, request(item(1, "10:00", "11:00"))); err != nil {
		t.Fatal(err)
	}
	later := service.NewReservationService(f.store, f.catalog, service.Options{
		Location: time.UTC,
		Now:      func() time.Time { return time.Date(2026, 10, 20, 11, 0, 0, 0, time.UTC) },
	})
	n, err := later.CompleteFinished(ctx)
	if err != nil || n != 1 {
		t.Errorf("CompleteFinished() = %d, %v, want 1, nil", n, err)
	}
}
