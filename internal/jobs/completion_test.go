package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

type countingCompleter struct {
	calls int32
	err   error
}

func (c *countingCompleter) CompleteFinished(context.Context) (int64, error) {
	atomic.AddInt32(&c.calls, 1)
	return 3, c.err
}

func TestCompletionSweepRun(t *testing.T) {
	svc := &countingCompleter{}
	j := &CompletionSweep{Svc: svc, Log: zap.NewNop(), Timeout: time.Second}
	j.Run()
	svc.err = errors.New("db down")
	j.Run()
	if got := atomic.LoadInt32(&svc.calls); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
}

func TestSchedule(t *testing.T) {
	svc := &countingCompleter{}
	c, err := Schedule("@every 5m", time.UTC, svc, nil)
	if err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}
	entries := c.Entries()
	if len(entries) != 1 {
		t.Fatalf("len(Entries()) = %d, want 1", len(entries))
	}
	entries[0].WrappedJob.Run()
	if got := atomic.LoadInt32(&svc.calls); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}

	if _, err := Schedule("every now and then", time.UTC, svc, nil); err == nil {
		t.Error("Schedule(bad spec) error = nil")
	}
}
