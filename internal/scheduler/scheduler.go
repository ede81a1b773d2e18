package scheduler

import (
	"context"
	"fmt"
	"time"

	"ecotrack-backend/internal/realtime"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Sweeper is the listing maintenance surface the cron jobs drive.
type Sweeper interface {
	SweepExpired(ctx context.Context) (int, error)
	ReleaseStale(ctx context.Context) (int, error)
}

type StatsSource interface {
	Stats() realtime.Stats
}

// Config names the cron specs. An empty spec disables that job.
type Config struct {
	SweepSchedule string
	StatsSchedule string
	Timeout       time.Duration
}

// Scheduler runs the periodic listing sweeps and the admin stats push.
type Scheduler struct {
	cron        *cron.Cron
	Listings    Sweeper
	Hub         StatsSource
	Broadcaster *realtime.Broadcaster
	timeout     time.Duration
}

func New(cfg Config, listings Sweeper, hub StatsSource, b *realtime.Broadcaster) (*Scheduler, error) {
	s := &Scheduler{
		cron:        cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger))),
		Listings:    listings,
		Hub:         hub,
		Broadcaster: b,
		timeout:     cfg.Timeout,
	}
	if s.timeout <= 0 {
		s.timeout = time.Minute
	}
	if cfg.SweepSchedule != "" && listings != nil {
		if _, err := s.cron.AddFunc(cfg.SweepSchedule, s.job("sweep", s.Sweep)); err != nil {
			return nil, fmt.Errorf("sweep schedule %q: %w", cfg.SweepSchedule, err)
		}
	}
	if cfg.StatsSchedule != "" && hub != nil && b != nil {
		if _, err := s.cron.AddFunc(cfg.StatsSchedule, s.job("stats", s.PushStats)); err != nil {
			return nil, fmt.Errorf("stats schedule %q: %w", cfg.StatsSchedule, err)
		}
	}
	return s, nil
}

func (s *Scheduler) job(name string, fn func(context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			log.Error().Err(err).Str("job", name).Msg("scheduled job failed")
		}
	}
}

// Jobs reports how many cron entries are registered.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Sweep expires overdue listings and releases lapsed reservations.
func (s *Scheduler) Sweep(ctx context.Context) error {
	expired, err := s.Listings.SweepExpired(ctx)
	if err != nil {
		return fmt.Errorf("expire listings: %w", err)
	}
	released, err := s.Listings.ReleaseStale(ctx)
	if err != nil {
		return fmt.Errorf("release reservations: %w", err)
	}
	if expired > 0 || released > 0 {
		log.Info().Int("expired", expired).Int("released", released).Msg("listing sweep")
	}
	return nil
}

// PushStats sends the hub connection counts to the admins room.
func (s *Scheduler) PushStats(ctx context.Context) error {
	s.Broadcaster.SystemStats(ctx, s.Hub.Stats())
	return nil
}
