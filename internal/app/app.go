package app

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"quarters/portal/internal/config"
	"quarters/portal/internal/gateway"
	"quarters/portal/internal/localstore"
	"quarters/portal/internal/models"
	"quarters/portal/internal/notify"
	"quarters/portal/internal/service"
	"quarters/portal/internal/session"
)

// App is the explicit application context: one session, one complaint
// collection and the services built around them.
type App struct {
	cfg     *config.AppConfig
	log     zerolog.Logger
	gateway gateway.Gateway
	closers []func()

	Sessions      *session.Store
	Notifications *notify.Recorder
	Auth          *service.AuthService
	Complaints    *service.ComplaintService
	Users         *service.UserService
	Directory     *service.DirectoryService
}

// New wires the services. extra receives every notification alongside the
// in-process recorder; it may be nil.
func New(cfg *config.AppConfig, gw gateway.Gateway, local localstore.Store, extra notify.Notifier, log zerolog.Logger) *App {
	sessions := session.New(local, models.Connectivity(cfg.Portal.Mode), log)
	recorder := notify.NewRecorder(0)

	notifiers := notify.Multi{recorder, notify.NewLogNotifier(log)}
	if extra != nil {
		notifiers = append(notifiers, extra)
	}

	return &App{
		cfg:           cfg,
		log:           log,
		gateway:       gw,
		Sessions:      sessions,
		Notifications: recorder,
		Auth:          service.NewAuthService(gw, sessions, notifiers, cfg, log),
		Complaints:    service.NewComplaintService(gw, local, sessions, notifiers, log),
		Users:         service.NewUserService(gw, local, sessions, notifiers, cfg.Portal.EmailDomain, log),
		Directory:     service.NewDirectoryService(gw, sessions, cfg.Portal.EmailDomain, log),
	}
}

// Start decides the connectivity mode, restores a persisted session and
// loads the complaints for it.
func (a *App) Start(ctx context.Context) error {
	preferred := models.Connectivity(a.cfg.Portal.Mode)
	if err := a.gateway.Probe(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		a.log.Warn().Err(err).Msg("gateway unreachable, starting offline")
		a.Sessions.SetMode(models.ConnectivityOffline)
	} else {
		a.Sessions.SetMode(preferred)
	}

	restored, err := a.Sessions.Restore(ctx)
	if err != nil {
		return err
	}
	if !restored {
		return nil
	}

	user, _, _ := a.Sessions.Current()
	a.log.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("session restored")

	if err := a.Complaints.Fetch(ctx); err != nil {
		// The session stays valid even when the first load is rejected.
		a.log.Error().Err(err).Msg("initial complaint load failed")
	}
	return nil
}

// SignedIn reports whether a session is active.
func (a *App) SignedIn() bool {
	_, _, ok := a.Sessions.Current()
	return ok
}

func (a *App) Config() *config.AppConfig {
	return a.cfg
}

// Refresh reloads complaints for the signed-in user. It is a no-op while
// signed out.
func (a *App) Refresh(ctx context.Context) error {
	if !a.SignedIn() {
		return nil
	}
	return a.Complaints.Fetch(ctx)
}

// Probe checks the gateway without touching the connectivity mode.
func (a *App) Probe(ctx context.Context) error {
	return a.gateway.Probe(ctx)
}

// OnClose registers fn to run during Close. Closers run in reverse order.
func (a *App) OnClose(fn func()) {
	a.closers = append(a.closers, fn)
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
