package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"quarters/portal/internal/config"
)

const TaskReport = "report"

// Refresher reloads the complaint collection for the active session.
type Refresher interface {
	Refresh(ctx context.Context) error
}

type Scheduler struct {
	cron      *cron.Cron
	queue     *redis.Client
	refresher Refresher
	cfg       *config.AppConfig
	log       zerolog.Logger
}

func NewScheduler(cfg *config.AppConfig, refresher Refresher, queue *redis.Client, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:      c,
		queue:     queue,
		refresher: refresher,
		cfg:       cfg,
		log:       log,
	}
}

func (s *Scheduler) Start() error {
	if spec := pollSpec(s.cfg.Portal.PollInterval); spec != "" && s.refresher != nil {
		if _, err := s.cron.AddFunc(spec, s.poll); err != nil {
			return fmt.Errorf("schedule poll: %w", err)
		}
	}
	if s.queue != nil && s.cfg.Reports.Schedule != "" {
		if _, err := s.cron.AddFunc(s.cfg.Reports.Schedule, s.enqueueReport); err != nil {
			return fmt.Errorf("schedule report: %w", err)
		}
	}

	s.cron.Start()
	return nil
}

// Stop halts scheduling and waits for running jobs until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn().Msg("scheduler stop timed out")
	}
}

// pollSpec turns the poll interval into a cron descriptor; zero disables polling.
func pollSpec(interval time.Duration) string {
	if interval <= 0 {
		return ""
	}
	return "@every " + interval.String()
}

func (s *Scheduler) poll() {
	ctx, cancel := context.WithTimeout(context.Background(), s.pollTimeout())
	defer cancel()

	if err := s.refresher.Refresh(ctx); err != nil {
		s.log.Warn().Err(err).Msg("scheduled complaint refresh failed")
	}
}

func (s *Scheduler) pollTimeout() time.Duration {
	if s.cfg.Portal.PollInterval > 0 {
		return s.cfg.Portal.PollInterval
	}
	return 30 * time.Second
}

func (s *Scheduler) enqueueReport() {
	if err := s.EnqueueReport(context.Background(), ""); err != nil {
		s.log.Error().Err(err).Msg("enqueue report failed")
	}
}

// EnqueueReport asks the worker for an analytics snapshot. An empty
// department covers every complaint.
func (s *Scheduler) EnqueueReport(ctx context.Context, department string) error {
	if s.queue == nil {
		return nil
	}
	_, err := s.queue.XAdd(ctx, &redis.XAddArgs{
		Stream: s.cfg.Queue.Stream,
		Values: map[string]any{
			"type":        TaskReport,
			"department":  department,
			"requestedAt": time.Now().UTC().Format(time.RFC3339),
		},
	}).Result()
	return err
}
