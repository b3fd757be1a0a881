package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"quarters/portal/internal/config"
	"quarters/portal/internal/gateway"
	"quarters/portal/internal/models"
	"quarters/portal/internal/notify"
	"quarters/portal/internal/security"
	"quarters/portal/internal/session"
)

type AuthService struct {
	gw       gateway.AuthGateway
	sessions *session.Store
	notifier notify.Notifier
	cfg      *config.AppConfig
	log      zerolog.Logger

	mu      sync.Mutex
	pending string
}

func NewAuthService(
	gw gateway.AuthGateway,
	sessions *session.Store,
	notifier notify.Notifier,
	cfg *config.AppConfig,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		gw:       gw,
		sessions: sessions,
		notifier: notifier,
		cfg:      cfg,
		log:      log,
	}
}

type LoginResult struct {
	User        models.User         `json:"user"`
	Destination string              `json:"destination"`
	AccessToken string              `json:"accessToken"`
	ExpiresAt   time.Time           `json:"expiresAt"`
	Mode        models.Connectivity `json:"mode"`
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

// RequestCode starts a login for email. Nothing leaves the process when the
// domain is wrong. A failing backend switches the portal to offline and the
// demo directory is consulted instead, once.
func (s *AuthService) RequestCode(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	domain := s.cfg.Portal.EmailDomain
	if !strings.HasSuffix(email, domain) || len(email) == len(domain) {
		s.notify(ctx, notify.LevelError, "Email must end with "+domain)
		return ErrInvalidDomain
	}

	if s.sessions.Remote() {
		res, err := s.gw.CheckUserExists(ctx, email)
		switch {
		case err == nil && !res.Success:
			msg := res.Error
			if msg == "" {
				msg = "User not found. Please contact administrator."
			}
			s.notify(ctx, notify.LevelError, msg)
			return ErrUnknownUser
		case err == nil:
			s.setPending(email)
			s.notify(ctx, notify.LevelSuccess, "OTP sent to your email (Demo: use "+s.cfg.Portal.OTPCode+")")
			return nil
		case errors.Is(err, context.Canceled):
			return err
		}

		s.log.Warn().Err(err).Str("email", email).Msg("user lookup failed, switching to offline")
		s.notify(ctx, notify.LevelWarning, "Database error. Switching to offline mode...")
		s.sessions.SetMode(models.ConnectivityOffline)
	}

	if _, ok := lookupDemoUser(email, domain); !ok {
		s.notify(ctx, notify.LevelError, "User not found. Please use a demo account.")
		return ErrUnknownUser
	}
	s.setPending(email)
	s.notify(ctx, notify.LevelSuccess, "OTP sent (Demo mode: use "+s.cfg.Portal.OTPCode+")")
	return nil
}

func (s *AuthService) VerifyCode(ctx context.Context, code string) (LoginResult, error) {
	email := s.pendingEmail()
	if strings.TrimSpace(code) != s.cfg.Portal.OTPCode || email == "" {
		s.notify(ctx, notify.LevelError, "Invalid OTP")
		return LoginResult{}, ErrInvalidCode
	}

	user, err := s.resolveProfile(ctx, email, code)
	if err != nil {
		s.log.Warn().Err(err).Str("email", email).Msg("profile resolution failed")
		s.notify(ctx, notify.LevelError, "Failed to load user profile")
		return LoginResult{}, err
	}

	sessionID, err := s.sessions.Set(ctx, user)
	if err != nil {
		s.notify(ctx, notify.LevelError, "Verification failed. Please try again.")
		return LoginResult{}, err
	}

	token, expires, err := security.GenerateAccessToken(
		s.cfg.Security.JWTAccessSecret,
		user.ID,
		sessionID,
		string(user.Role),
		s.cfg.Security.JWTAccessTTL,
	)
	if err != nil {
		return LoginResult{}, err
	}

	s.clearPending()

	mode := s.sessions.Mode()
	welcome := "Welcome, " + user.Name
	if !mode.Remote() {
		welcome += " (Offline Mode)"
	}
	s.notify(ctx, notify.LevelSuccess, welcome)
	s.log.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Str("mode", string(mode)).Msg("user signed in")

	return LoginResult{
		User:        user,
		Destination: user.Role.HomeRoute(),
		AccessToken: token,
		ExpiresAt:   expires,
		Mode:        mode,
	}, nil
}

func (s *AuthService) resolveProfile(ctx context.Context, email, code string) (models.User, error) {
	if !s.sessions.Remote() {
		user, ok := lookupDemoUser(email, s.cfg.Portal.EmailDomain)
		if !ok {
			return models.User{}, ErrProfileUnavailable
		}
		return user, nil
	}

	res, err := s.gw.Authenticate(ctx, email, code)
	if err != nil {
		return models.User{}, fmt.Errorf("%w: %w", ErrProfileUnavailable, err)
	}
	if !res.Success || res.User == nil || res.User.ID == "" || !res.User.Role.Valid() {
		return models.User{}, fmt.Errorf("%w: %s", ErrProfileUnavailable, res.Error)
	}
	return *res.User, nil
}

// Logout never fails from the caller's point of view; storage and backend
// errors are logged.
func (s *AuthService) Logout(ctx context.Context) {
	user, _, signedIn := s.sessions.Current()
	s.clearPending()

	if err := s.sessions.Clear(ctx); err != nil {
		s.log.Warn().Err(err).Msg("clear stored session failed")
	}

	if signedIn && s.sessions.Remote() {
		if err := s.gw.EndSession(ctx, user.Email); err != nil {
			s.log.Warn().Err(err).Str("user_id", user.ID).Msg("remote sign-out failed")
		}
	}

	s.notify(ctx, notify.LevelSuccess, "Logged out successfully")
}

func (s *AuthService) PendingEmail() string {
	return s.pendingEmail()
}

func (s *AuthService) pendingEmail() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

func (s *AuthService) setPending(email string) {
	s.mu.Lock()
	s.pending = email
	s.mu.Unlock()
}

func (s *AuthService) clearPending() {
	s.setPending("")
}

func (s *AuthService) notify(ctx context.Context, level notify.Level, msg string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, notify.Notification{Level: level, Message: msg, At: time.Now()})
}
