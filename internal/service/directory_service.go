package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"quarters/portal/internal/gateway"
	"quarters/portal/internal/models"
	"quarters/portal/internal/session"
)

// DirectoryService lists assignment targets. Without a backend the
// built-in directory is served.
type DirectoryService struct {
	gw       gateway.DirectoryGateway
	sessions *session.Store
	domain   string
	log      zerolog.Logger
}

func NewDirectoryService(gw gateway.DirectoryGateway, sessions *session.Store, domain string, log zerolog.Logger) *DirectoryService {
	return &DirectoryService{gw: gw, sessions: sessions, domain: domain, log: log}
}

func (s *DirectoryService) Departments(ctx context.Context) ([]models.Department, error) {
	if !s.sessions.Remote() {
		return builtinDepartments(s.domain), nil
	}
	out, err := s.gw.ListDepartments(ctx)
	if errors.Is(err, gateway.ErrUnreachable) {
		s.log.Warn().Err(err).Msg("list departments unreachable, using built-in directory")
		return builtinDepartments(s.domain), nil
	}
	return out, err
}

func (s *DirectoryService) Authorities(ctx context.Context) ([]models.HigherAuthority, error) {
	if !s.sessions.Remote() {
		return builtinAuthorities(s.domain), nil
	}
	out, err := s.gw.ListAuthorities(ctx)
	if errors.Is(err, gateway.ErrUnreachable) {
		s.log.Warn().Err(err).Msg("list authorities unreachable, using built-in directory")
		return builtinAuthorities(s.domain), nil
	}
	return out, err
}
