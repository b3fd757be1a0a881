// Package notify emits the transient user-facing messages raised by
// mutations and connectivity changes.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelLoading Level = "loading"
)

type Notification struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	UserID  string    `json:"userId,omitempty"`
	At      time.Time `json:"at"`
}

type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

type LogNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(_ context.Context, n Notification) {
	var event *zerolog.Event
	switch n.Level {
	case LevelError:
		event = l.logger.Error()
	case LevelWarning:
		event = l.logger.Warn()
	case LevelLoading:
		event = l.logger.Debug()
	default:
		event = l.logger.Info()
	}
	event.Str("kind", string(n.Level)).Str("user_id", n.UserID).Msg(n.Message)
}

// StreamNotifier publishes notifications on the worker stream.
type StreamNotifier struct {
	client *redis.Client
	stream string
	logger zerolog.Logger
}

func NewStreamNotifier(client *redis.Client, stream string, logger zerolog.Logger) *StreamNotifier {
	return &StreamNotifier{client: client, stream: stream, logger: logger}
}

func (s *StreamNotifier) Notify(ctx context.Context, n Notification) {
	if s.client == nil {
		return
	}
	err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"type":    "notification",
			"level":   string(n.Level),
			"message": n.Message,
			"userId":  n.UserID,
			"at":      n.At.UTC().Format(time.RFC3339),
		},
	}).Err()
	if err != nil {
		s.logger.Warn().Err(err).Msg("publish notification failed")
	}
}

type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) {
	for _, notifier := range m {
		notifier.Notify(ctx, n)
	}
}

// Recorder keeps the most recent notifications in memory.
type Recorder struct {
	mu    sync.Mutex
	limit int
	items []Notification
}

func NewRecorder(limit int) *Recorder {
	if limit <= 0 {
		limit = 50
	}
	return &Recorder{limit: limit}
}

func (r *Recorder) Notify(_ context.Context, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
	if len(r.items) > r.limit {
		r.items = r.items[len(r.items)-r.limit:]
	}
}

// Recent returns the recorded notifications, oldest first. An empty
// userID matches everything; otherwise broadcast entries (no user) are
// included along with the user's own.
func (r *Recorder) Recent(userID string) []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, 0, len(r.items))
	for _, n := range r.items {
		if userID == "" || n.UserID == "" || n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}
