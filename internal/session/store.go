// Package session holds the authenticated identity and the connectivity
// mode shared by every service of one portal instance.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"

	"quarters/portal/internal/localstore"
	"quarters/portal/internal/models"
)

// record is the persisted shape under bccl_user: the user object itself
// with the session id alongside.
type record struct {
	models.User
	SessionID string `json:"sessionId,omitempty"`
}

type Store struct {
	local  localstore.Store
	logger zerolog.Logger

	mu        sync.RWMutex
	user      *models.User
	sessionID string
	mode      models.Connectivity
}

func New(local localstore.Store, mode models.Connectivity, logger zerolog.Logger) *Store {
	return &Store{local: local, mode: mode, logger: logger}
}

// Current returns the signed-in user and its session id.
func (s *Store) Current() (models.User, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return models.User{}, "", false
	}
	return *s.user, s.sessionID, true
}

// Set replaces the session with a fresh one for user and persists it.
func (s *Store) Set(ctx context.Context, user models.User) (string, error) {
	sessionID := ksuid.New().String()
	raw, err := json.Marshal(record{User: user, SessionID: sessionID})
	if err != nil {
		return "", fmt.Errorf("encode session: %w", err)
	}
	if err := s.local.Set(ctx, localstore.KeyUser, raw); err != nil {
		return "", fmt.Errorf("persist session: %w", err)
	}

	s.mu.Lock()
	s.user = &user
	s.sessionID = sessionID
	s.mu.Unlock()
	return sessionID, nil
}

func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.user = nil
	s.sessionID = ""
	s.mu.Unlock()

	if err := s.local.Delete(ctx, localstore.KeyUser); err != nil {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

// Restore loads a previously persisted session. A value that cannot be
// decoded is removed so the next start begins signed out.
func (s *Store) Restore(ctx context.Context) (bool, error) {
	raw, err := s.local.Get(ctx, localstore.KeyUser)
	if errors.Is(err, localstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load session: %w", err)
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil || rec.ID == "" || !rec.Role.Valid() {
		s.logger.Warn().Err(err).Msg("discarding unreadable stored session")
		if delErr := s.local.Delete(ctx, localstore.KeyUser); delErr != nil {
			return false, fmt.Errorf("remove session: %w", delErr)
		}
		return false, nil
	}
	if rec.SessionID == "" {
		rec.SessionID = ksuid.New().String()
	}

	s.mu.Lock()
	user := rec.User
	s.user = &user
	s.sessionID = rec.SessionID
	s.mu.Unlock()
	return true, nil
}

func (s *Store) Mode() models.Connectivity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// SetMode changes the connectivity mode and returns the previous one.
func (s *Store) SetMode(mode models.Connectivity) models.Connectivity {
	s.mu.Lock()
	prev := s.mode
	s.mode = mode
	s.mu.Unlock()

	if prev != mode {
		s.logger.Info().Str("from", string(prev)).Str("to", string(mode)).Msg("connectivity changed")
	}
	return prev
}

func (s *Store) Remote() bool {
	return s.Mode().Remote()
}
