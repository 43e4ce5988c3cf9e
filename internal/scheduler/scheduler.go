package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/user/news-push-bot/internal/config"
	"github.com/user/news-push-bot/internal/metrics"
	"github.com/user/news-push-bot/internal/store"
)

const (
	minuteLayout = "15:04"
	// maxCatchUp bounds how many missed minutes one trigger replays
	maxCatchUp = 60
	// stopTimeout bounds how long Stop waits for a running scan
	stopTimeout = 20 * time.Second
)

// Deliverer sends the scheduled news of one user
type Deliverer interface {
	DeliverToUser(ctx context.Context, userID string) (int, error)
}

// Scheduler scans push schedules on a fixed interval and delivers news
// to every user whose push time is the current minute
type Scheduler struct {
	store     store.Store
	deliverer Deliverer
	config    *config.PushConfig
	location  *time.Location
	clock     clockwork.Clock
	cron      gocron.Scheduler
	running   atomic.Bool
	mu        sync.Mutex // prevents overlapping scans
	lastRun   time.Time  // last processed minute, guarded by mu
}

// NewScheduler creates a new scheduler instance
func NewScheduler(
	store store.Store,
	deliverer Deliverer,
	cfg *config.PushConfig,
	clock clockwork.Clock,
) (*Scheduler, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	cron, err := gocron.NewScheduler(
		gocron.WithClock(clock),
		gocron.WithLocation(loc),
		gocron.WithStopTimeout(stopTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cron scheduler: %w", err)
	}

	return &Scheduler{
		store:     store,
		deliverer: deliverer,
		config:    cfg,
		location:  loc,
		clock:     clock,
		cron:      cron,
	}, nil
}

// Start registers the recurring scan and starts the scheduler
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.config.Enabled {
		log.Info().Msg("Scheduler is disabled")
		return nil
	}

	_, err := s.cron.NewJob(
		gocron.DurationJob(s.config.Interval),
		gocron.NewTask(s.tick, ctx),
		gocron.WithName("push-scan"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule push scan: %w", err)
	}

	s.cron.Start()
	log.Info().
		Dur("interval", s.config.Interval).
		Str("location", s.location.String()).
		Msg("Scheduler started periodic execution")
	return nil
}

// tick scans every minute since the last processed one, up to now.
// A trigger that finds a scan still running is skipped; the next trigger
// replays the minutes it missed.
func (s *Scheduler) tick(ctx context.Context) {
	if !s.mu.TryLock() {
		log.Warn().Msg("Push scan already running, skipping this trigger")
		return
	}
	defer s.mu.Unlock()

	for _, minute := range s.pendingMinutes(s.clock.Now().In(s.location)) {
		if ctx.Err() != nil {
			return
		}
		s.lastRun = minute
		s.execute(ctx, minute, "Scheduled")
	}
}

// pendingMinutes lists the minutes after lastRun up to and including now
func (s *Scheduler) pendingMinutes(now time.Time) []time.Time {
	current := now.Truncate(time.Minute)
	if s.lastRun.IsZero() {
		return []time.Time{current}
	}
	if !current.After(s.lastRun) {
		return nil
	}

	first := s.lastRun.Add(time.Minute)
	if missed := int(current.Sub(first) / time.Minute); missed >= maxCatchUp {
		log.Warn().
			Int("missed", missed).
			Time("from", first).
			Msg("Too many missed minutes, replaying only the most recent")
		first = current.Add(-(maxCatchUp - 1) * time.Minute)
	}

	var minutes []time.Time
	for m := first; !m.After(current); m = m.Add(time.Minute) {
		minutes = append(minutes, m)
	}
	if len(minutes) > 1 {
		log.Info().Int("minutes", len(minutes)).Msg("Catching up missed push minutes")
	}
	return minutes
}

func (s *Scheduler) execute(ctx context.Context, now time.Time, kind string) {
	s.running.Store(true)
	defer s.running.Store(false)

	startTime := s.clock.Now()
	if err := s.RunOnce(ctx, now); err != nil {
		metrics.RecordError("schedule_scan")
		log.Error().Err(err).Msgf("%s push scan failed", kind)
	}

	duration := s.clock.Since(startTime)
	metrics.RecordScanDuration(duration)
	log.Debug().Dur("duration", duration).Msgf("%s push scan completed", kind)
}

// RunOnce delivers news to every user scheduled at the minute of now.
// A failure for one user is logged and does not stop the others.
func (s *Scheduler) RunOnce(ctx context.Context, now time.Time) error {
	minute := now.In(s.location).Format(minuteLayout)

	schedules, err := s.store.ListAllPushSchedules(ctx)
	if err != nil {
		return fmt.Errorf("failed to load push schedules: %w", err)
	}

	var due []string
	for userID, pushTime := range schedules {
		if pushTime == minute {
			due = append(due, userID)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Strings(due)

	log.Info().Str("minute", minute).Int("users", len(due)).Msg("Delivering scheduled news")

	delivered := 0
	for _, userID := range due {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		sent, err := s.deliverer.DeliverToUser(ctx, userID)
		if err != nil {
			metrics.RecordError("push")
			log.Error().Err(err).Str("userID", userID).Msg("Failed to deliver scheduled news")
			continue
		}
		if sent > 0 {
			delivered++
		}
	}

	log.Info().
		Str("minute", minute).
		Int("due", len(due)).
		Int("delivered", delivered).
		Msg("Scheduled delivery completed")
	return nil
}

// Stop gracefully stops the scheduler. It waits for a running scan for at
// most stopTimeout; cancel the context given to Start to end the scan sooner.
func (s *Scheduler) Stop() error {
	log.Info().Msg("Stopping scheduler...")
	if err := s.cron.Shutdown(); err != nil {
		return fmt.Errorf("failed to stop scheduler: %w", err)
	}
	log.Info().Msg("Scheduler stopped")
	return nil
}

// IsRunning returns true if a scan is currently running
func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}

// TryRun scans the current minute immediately, even if it was already processed.
// Returns false if a scan is already running.
func (s *Scheduler) TryRun(ctx context.Context) bool {
	if !s.mu.TryLock() {
		return false
	}
	defer s.mu.Unlock()

	s.execute(ctx, s.clock.Now(), "Manual")
	return true
}
