package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quarters/portal/internal/config"
)

type countingRefresher struct {
	calls int
	err   error
}

func (r *countingRefresher) Refresh(context.Context) error {
	r.calls++
	return r.err
}

func TestPollSpec(t *testing.T) {
	assert.Equal(t, "@every 30s", pollSpec(30*time.Second))
	assert.Equal(t, "@every 1m30s", pollSpec(90*time.Second))
	assert.Empty(t, pollSpec(0))
}

func TestPollSwallowsRefreshErrors(t *testing.T) {
	refresher := &countingRefresher{err: errors.New("boom")}
	cfg := &config.AppConfig{Portal: config.PortalConfig{PollInterval: time.Second}}
	s := NewScheduler(cfg, refresher, nil, zerolog.Nop())

	s.poll()
	s.poll()

	assert.Equal(t, 2, refresher.calls)
}

func TestStartWithoutQueueSchedulesOnlyPolling(t *testing.T) {
	cfg := &config.AppConfig{
		Portal:  config.PortalConfig{PollInterval: time.Minute},
		Reports: config.ReportsConfig{Schedule: "0 0 1 * * *"},
	}
	s := NewScheduler(cfg, &countingRefresher{}, nil, zerolog.Nop())

	require.NoError(t, s.Start())
	defer s.Stop(context.Background())

	assert.Len(t, s.cron.Entries(), 1)
	assert.NoError(t, s.EnqueueReport(context.Background(), ""))
}

func TestStartIgnoresReportScheduleWithoutQueue(t *testing.T) {
	cfg := &config.AppConfig{
		Reports: config.ReportsConfig{Schedule: "not a schedule"},
	}
	s := NewScheduler(cfg, nil, nil, zerolog.Nop())

	require.NoError(t, s.Start())
	s.Stop(context.Background())
	assert.Empty(t, s.cron.Entries())
}
