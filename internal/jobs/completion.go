// Package jobs runs the server's scheduled background work.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Completer marks reservations whose interval has ended as completed.
// Implemented by service.ReservationService.
type Completer interface {
	CompleteFinished(ctx context.Context) (int64, error)
}

// CompletionSweep is a cron.Job that runs one completion pass.
type CompletionSweep struct {
	Svc     Completer
	Log     *zap.Logger
	Timeout time.Duration
}

// Run implements cron.Job.
func (j *CompletionSweep) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.Timeout)
	defer cancel()
	n, err := j.Svc.CompleteFinished(ctx)
	if err != nil {
		j.Log.Error("completion sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		j.Log.Info("reservations completed", zap.Int64("count", n))
	}
}

// Schedule returns a stopped scheduler running the completion sweep on
// spec (standard five-field cron or a descriptor such as "@every 5m") in
// loc.  Overlapping runs are skipped and panics are recovered.
func Schedule(spec string, loc *time.Location, svc Completer, log *zap.Logger) (*cron.Cron, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	cl := cronLogger{log.Sugar()}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	job := &CompletionSweep{Svc: svc, Log: log.Named("completion"), Timeout: time.Minute}
	if _, err := c.AddJob(spec, job); err != nil {
		return nil, err
	}
	return c, nil
}

// cronLogger routes cron's logging into zap.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
