package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"quarters/portal/internal/config"
	"quarters/portal/internal/localstore"
	"quarters/portal/internal/models"
	"quarters/portal/internal/service"
	"quarters/portal/internal/storage"
)

const (
	TaskNotification = "notification"
	TaskReport       = "report"
)

// ComplaintSource yields the complaints a report is computed from.
type ComplaintSource interface {
	Complaints(ctx context.Context) ([]models.Complaint, error)
}

type ReportSink interface {
	PutJSON(ctx context.Context, key string, v any) (string, error)
}

// LocalComplaints reads the snapshot the api keeps in the local store.
type LocalComplaints struct {
	Store localstore.Store
}

// NewLocalComplaints opens the same backend the api persists to. With the
// file backend the worker must share the api's data directory.
func NewLocalComplaints(cfg config.PortalConfig, client *redis.Client) (LocalComplaints, error) {
	if cfg.LocalBackend == "file" {
		store, err := localstore.NewFileStore(cfg.LocalDir)
		if err != nil {
			return LocalComplaints{}, fmt.Errorf("open file store: %w", err)
		}
		return LocalComplaints{Store: store}, nil
	}
	return LocalComplaints{Store: localstore.NewRedisStore(client, cfg.KeyPrefix)}, nil
}

func (l LocalComplaints) Complaints(ctx context.Context) ([]models.Complaint, error) {
	var list []models.Complaint
	err := localstore.GetJSON(ctx, l.Store, localstore.KeyComplaints, &list)
	if errors.Is(err, localstore.ErrNotFound) {
		return []models.Complaint{}, nil
	}
	return list, err
}

type Processor struct {
	logger  zerolog.Logger
	source  ComplaintSource
	reports ReportSink
	prefix  string
	now     func() time.Time
}

type TaskPayload struct {
	Type        string `json:"type"`
	Department  string `json:"department"`
	RequestedAt string `json:"requestedAt"`
	Level       string `json:"level"`
	Message     string `json:"message"`
	UserID      string `json:"userId"`
	At          string `json:"at"`
}

func NewProcessor(logger zerolog.Logger, source ComplaintSource, reports ReportSink, prefix string) *Processor {
	return &Processor{
		logger:  logger,
		source:  source,
		reports: reports,
		prefix:  prefix,
		now:     time.Now,
	}
}

func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	var payload TaskPayload
	if err := decodePayload(msg.Values, &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	switch payload.Type {
	case TaskNotification:
		return p.handleNotification(payload)
	case TaskReport:
		return p.handleReport(ctx, payload)
	default:
		p.logger.Warn().Str("type", payload.Type).Str("message_id", msg.ID).Msg("unknown task type")
		return nil
	}
}

func decodePayload(values map[string]interface{}, out *TaskPayload) error {
	bytes, err := json.Marshal(values)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, out)
}

func (p *Processor) handleNotification(payload TaskPayload) error {
	event := p.logger.Info()
	switch payload.Level {
	case "error":
		event = p.logger.Error()
	case "warning":
		event = p.logger.Warn()
	}
	event.
		Str("kind", payload.Level).
		Str("user_id", payload.UserID).
		Str("at", payload.At).
		Msg(payload.Message)
	return nil
}

func (p *Processor) handleReport(ctx context.Context, payload TaskPayload) error {
	list, err := p.source.Complaints(ctx)
	if err != nil {
		return fmt.Errorf("load complaints: %w", err)
	}

	now := p.now()
	summary := service.Summarize(list, payload.Department, now)

	key, err := p.reports.PutJSON(ctx, storage.ReportKey(p.prefix, payload.Department, now), summary)
	if err != nil {
		return err
	}

	p.logger.Info().
		Str("key", key).
		Str("department", payload.Department).
		Int("total", summary.Total).
		Msg("analytics report stored")
	return nil
}
