package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"quarters/portal/internal/config"
	"quarters/portal/internal/gateway"
	"quarters/portal/internal/gateway/gatewaytest"
	"quarters/portal/internal/localstore"
	"quarters/portal/internal/models"
	"quarters/portal/internal/notify"
	"quarters/portal/internal/session"
)

const testDomain = "@coalindia.in"

var testNow = time.Date(2024, 6, 10, 9, 30, 0, 0, time.UTC)

func unreachable(op string) error {
	return gatewaytest.Unreachable(op)
}

func rejected(op, code string) error {
	return &gateway.Error{Op: op, Kind: gateway.ErrRejected, Code: code, Err: errors.New("rejected by backend")}
}

type fixture struct {
	gw       *gatewaytest.Fake
	local    localstore.Store
	sessions *session.Store
	notes    *notify.Recorder
}

func newFixture(t *testing.T, mode models.Connectivity) *fixture {
	t.Helper()
	local, err := localstore.NewFileStore(t.TempDir())
	require.NoError(t, err)
	return &fixture{
		gw:       &gatewaytest.Fake{},
		local:    local,
		sessions: session.New(local, mode, zerolog.Nop()),
		notes:    notify.NewRecorder(100),
	}
}

func (f *fixture) signIn(t *testing.T, user models.User) {
	t.Helper()
	_, err := f.sessions.Set(context.Background(), user)
	require.NoError(t, err)
}

func (f *fixture) complaints() *ComplaintService {
	svc := NewComplaintService(f.gw, f.local, f.sessions, f.notes, zerolog.Nop())
	svc.now = func() time.Time { return testNow }
	return svc
}

func (f *fixture) auth() *AuthService {
	cfg := &config.AppConfig{
		Portal: config.PortalConfig{EmailDomain: testDomain, OTPCode: "123456"},
		Security: config.SecurityConfig{
			JWTAccessSecret: "test-secret",
			JWTAccessTTL:    time.Hour,
		},
	}
	return NewAuthService(f.gw, f.sessions, f.notes, cfg, zerolog.Nop())
}

func (f *fixture) users() *UserService {
	svc := NewUserService(f.gw, f.local, f.sessions, f.notes, testDomain, zerolog.Nop())
	svc.now = func() time.Time { return testNow }
	return svc
}

func (f *fixture) levels() []notify.Level {
	var out []notify.Level
	for _, n := range f.notes.Recent("") {
		out = append(out, n.Level)
	}
	return out
}

var adminUser = models.User{ID: "admin-1", Name: "Admin User", Email: "admin" + testDomain, Role: models.UserRoleAdmin}

var employeeUser = models.User{
	ID:    "employee-1",
	Name:  "John Employee",
	Email: "employee" + testDomain,
	Role:  models.UserRoleEmployee,
	EmployeeInfo: &models.EmployeeInfo{
		Quarter: "A-123", Area: "Sector 5", ContactNumber: "9876543210",
	},
}
