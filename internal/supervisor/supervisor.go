// Package supervisor runs the bot's periodic background jobs —
// scouting, value-history snapshots, history pruning, progress
// logging — each independently tagged and fault-isolated (spec §4.4).
// Grounded on crypto_trading.py's SafeScheduler + schedule.every(...)
// wiring; the concrete scheduler is gocron/v2, the closest Go library
// to that every().do().tag() calling convention.
package supervisor

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// Job is one periodic unit of work, identified by Tag for logging.
type Job struct {
	Tag      string
	Interval time.Duration
	Fn       func() error
}

// Supervisor owns a gocron scheduler and recovers/logs every job's
// panics and errors without ever stopping the other jobs — one job's
// fault never brings down the process (spec §4.4). Job lifetime is
// intentionally decoupled from any particular loop iteration: Stop
// only tears the scheduler down on shutdown, not between cycles.
type Supervisor struct {
	scheduler gocron.Scheduler
	logger    *zap.Logger

	mu           sync.Mutex
	failureCount map[string]int
	lastLogged   map[string]time.Time
}

// New builds a Supervisor. Call Schedule for each job, then Start.
func New(logger *zap.Logger) (*Supervisor, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	return &Supervisor{
		scheduler:    scheduler,
		logger:       logger,
		failureCount: make(map[string]int),
		lastLogged:   make(map[string]time.Time),
	}, nil
}

// Schedule registers job to run every job.Interval, tagged with
// job.Tag, wrapped so a panic or error is recovered, logged, and rate
// limited, instead of propagating.
func (s *Supervisor) Schedule(job Job) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(job.Interval),
		gocron.NewTask(func() { s.runSafely(job) }),
		gocron.WithTags(job.Tag),
	)
	return err
}

func (s *Supervisor) runSafely(job Job) {
	defer func() {
		if r := recover(); r != nil {
			s.reportFailure(job.Tag, nil, r)
		}
	}()
	if err := job.Fn(); err != nil {
		s.reportFailure(job.Tag, err, nil)
	}
}

// reportFailure logs at most once per minute per tag for a run of
// repeated failures, so a persistently broken job doesn't flood logs.
func (s *Supervisor) reportFailure(tag string, err error, panicValue interface{}) {
	s.mu.Lock()
	s.failureCount[tag]++
	count := s.failureCount[tag]
	last := s.lastLogged[tag]
	shouldLog := time.Since(last) > time.Minute
	if shouldLog {
		s.lastLogged[tag] = time.Now()
	}
	s.mu.Unlock()

	if !shouldLog {
		return
	}

	fields := []zap.Field{zap.String("job", tag), zap.Int("failure_count", count)}
	if panicValue != nil {
		s.logger.Error("Job panicked", append(fields, zap.Any("panic", panicValue))...)
		return
	}
	s.logger.Error("Job failed", append(fields, zap.Error(err))...)
}

// Start begins running every scheduled job.
func (s *Supervisor) Start() {
	s.scheduler.Start()
}

// Stop shuts the scheduler down, waiting for in-flight jobs to finish.
func (s *Supervisor) Stop(ctx context.Context) error {
	done := make(chan error, 1)
	go func() { done <- s.scheduler.Shutdown() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
