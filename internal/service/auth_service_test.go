package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quarters/portal/internal/gateway"
	"quarters/portal/internal/localstore"
	"quarters/portal/internal/models"
	"quarters/portal/internal/notify"
	"quarters/portal/internal/security"
)

func TestRequestCode_RejectsForeignDomainWithoutGateway(t *testing.T) {
	emails := []string{
		"admin@gmail.com",
		"admin@coalindia.in.evil.com",
		"@coalindia.in",
		"",
		"coalindia.in",
	}
	for _, mode := range []models.Connectivity{models.ConnectivityLocal, models.ConnectivityOnline, models.ConnectivityOffline} {
		for _, email := range emails {
			f := newFixture(t, mode)
			err := f.auth().RequestCode(context.Background(), email)
			assert.ErrorIs(t, err, ErrInvalidDomain, "%s/%q", mode, email)
			assert.Empty(t, f.gw.Calls(), "%s/%q", mode, email)
		}
	}
}

func TestRequestCode_Offline(t *testing.T) {
	f := newFixture(t, models.ConnectivityOffline)
	auth := f.auth()

	require.NoError(t, auth.RequestCode(context.Background(), "  Employee@CoalIndia.in "))
	assert.Equal(t, "employee@coalindia.in", auth.PendingEmail())

	err := auth.RequestCode(context.Background(), "stranger@coalindia.in")
	assert.ErrorIs(t, err, ErrUnknownUser)
	assert.Empty(t, f.gw.Calls())
}

func TestRequestCode_Remote(t *testing.T) {
	t.Run("known user", func(t *testing.T) {
		f := newFixture(t, models.ConnectivityOnline)
		auth := f.auth()
		require.NoError(t, auth.RequestCode(context.Background(), "someone@coalindia.in"))
		assert.Equal(t, "someone@coalindia.in", auth.PendingEmail())
		assert.Equal(t, []string{"CheckUserExists"}, f.gw.Calls())
	})

	t.Run("unknown user", func(t *testing.T) {
		f := newFixture(t, models.ConnectivityOnline)
		f.gw.CheckUserExistsFn = func(context.Context, string) (gateway.RPCResult, error) {
			return gateway.RPCResult{Success: false, Error: "User not found"}, nil
		}
		auth := f.auth()
		err := auth.RequestCode(context.Background(), "someone@coalindia.in")
		assert.ErrorIs(t, err, ErrUnknownUser)
		assert.Empty(t, auth.PendingEmail())
		assert.Equal(t, models.ConnectivityOnline, f.sessions.Mode())
	})

	t.Run("gateway failure downgrades and retries offline once", func(t *testing.T) {
		f := newFixture(t, models.ConnectivityLocal)
		f.gw.CheckUserExistsFn = func(context.Context, string) (gateway.RPCResult, error) {
			return gateway.RPCResult{}, unreachable("check_demo_user_exists")
		}
		auth := f.auth()

		require.NoError(t, auth.RequestCode(context.Background(), "admin@coalindia.in"))
		assert.Equal(t, models.ConnectivityOffline, f.sessions.Mode())
		assert.Equal(t, 1, f.gw.Count("CheckUserExists"))
		assert.Contains(t, f.levels(), notify.LevelWarning)
	})

	t.Run("gateway failure with unknown demo user", func(t *testing.T) {
		f := newFixture(t, models.ConnectivityOnline)
		f.gw.CheckUserExistsFn = func(context.Context, string) (gateway.RPCResult, error) {
			return gateway.RPCResult{}, rejected("check_demo_user_exists", "42883")
		}
		err := f.auth().RequestCode(context.Background(), "someone@coalindia.in")
		assert.ErrorIs(t, err, ErrUnknownUser)
		assert.Equal(t, models.ConnectivityOffline, f.sessions.Mode())
		assert.Equal(t, 1, f.gw.Count("CheckUserExists"))
	})
}

func TestVerifyCode_RejectsWrongCodeInEveryMode(t *testing.T) {
	codes := []string{"", "000000", "12345", "1234567", "654321", "abcdef"}
	for _, mode := range []models.Connectivity{models.ConnectivityLocal, models.ConnectivityOnline, models.ConnectivityOffline} {
		f := newFixture(t, mode)
		auth := f.auth()
		require.NoError(t, auth.RequestCode(context.Background(), "admin@coalindia.in"))

		for _, code := range codes {
			_, err := auth.VerifyCode(context.Background(), code)
			assert.ErrorIs(t, err, ErrInvalidCode, "%s/%q", mode, code)
		}
		_, _, signedIn := f.sessions.Current()
		assert.False(t, signedIn)
		assert.Zero(t, f.gw.Count("Authenticate"))
	}
}

func TestVerifyCode_RequiresPendingEmail(t *testing.T) {
	f := newFixture(t, models.ConnectivityOffline)
	_, err := f.auth().VerifyCode(context.Background(), "123456")
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestVerifyCode_OfflineSuccess(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, models.ConnectivityOffline)
	auth := f.auth()
	require.NoError(t, auth.RequestCode(ctx, "water@coalindia.in"))

	res, err := auth.VerifyCode(ctx, "123456")
	require.NoError(t, err)

	assert.Equal(t, "/department", res.Destination)
	assert.Equal(t, "dept-water", res.User.ID)
	assert.Equal(t, "Water Department", res.User.Department)
	assert.Equal(t, models.ConnectivityOffline, res.Mode)
	assert.Empty(t, auth.PendingEmail())

	user, sessionID, ok := f.sessions.Current()
	require.True(t, ok)
	assert.Equal(t, res.User, user)

	claims, err := security.ParseAccessToken(res.AccessToken, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, sessionID, claims.SessionID)
	assert.Equal(t, "dept-water", claims.UserID)

	_, err = f.local.Get(ctx, localstore.KeyUser)
	assert.NoError(t, err)

	// The code is single use.
	_, err = auth.VerifyCode(ctx, "123456")
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestVerifyCode_Remote(t *testing.T) {
	t.Run("profile from gateway", func(t *testing.T) {
		f := newFixture(t, models.ConnectivityOnline)
		f.gw.AuthenticateFn = func(_ context.Context, email, code string) (gateway.AuthResult, error) {
			assert.Equal(t, "123456", code)
			u := employeeUser
			u.Email = email
			return gateway.AuthResult{Success: true, User: &u}, nil
		}
		auth := f.auth()
		require.NoError(t, auth.RequestCode(context.Background(), "employee@coalindia.in"))

		res, err := auth.VerifyCode(context.Background(), "123456")
		require.NoError(t, err)
		assert.Equal(t, "/employee", res.Destination)
		assert.Equal(t, "A-123", res.User.EmployeeInfo.Quarter)
	})

	t.Run("gateway error", func(t *testing.T) {
		f := newFixture(t, models.ConnectivityOnline)
		f.gw.AuthenticateFn = func(context.Context, string, string) (gateway.AuthResult, error) {
			return gateway.AuthResult{}, unreachable("authenticate_demo_user")
		}
		auth := f.auth()
		require.NoError(t, auth.RequestCode(context.Background(), "employee@coalindia.in"))

		_, err := auth.VerifyCode(context.Background(), "123456")
		assert.ErrorIs(t, err, ErrProfileUnavailable)
		assert.ErrorIs(t, err, gateway.ErrUnreachable)
		_, _, ok := f.sessions.Current()
		assert.False(t, ok)
	})

	t.Run("missing profile", func(t *testing.T) {
		f := newFixture(t, models.ConnectivityOnline)
		f.gw.AuthenticateFn = func(context.Context, string, string) (gateway.AuthResult, error) {
			return gateway.AuthResult{Success: true}, nil
		}
		auth := f.auth()
		require.NoError(t, auth.RequestCode(context.Background(), "employee@coalindia.in"))

		_, err := auth.VerifyCode(context.Background(), "123456")
		assert.ErrorIs(t, err, ErrProfileUnavailable)
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()

	t.Run("remote sign-out failure is swallowed", func(t *testing.T) {
		f := newFixture(t, models.ConnectivityOnline)
		f.gw.EndSessionFn = func(context.Context, string) error { return unreachable("end_demo_session") }
		f.signIn(t, adminUser)

		f.auth().Logout(ctx)

		_, _, ok := f.sessions.Current()
		assert.False(t, ok)
		assert.Equal(t, 1, f.gw.Count("EndSession"))
		_, err := f.local.Get(ctx, localstore.KeyUser)
		assert.ErrorIs(t, err, localstore.ErrNotFound)
	})

	t.Run("offline does not touch the gateway", func(t *testing.T) {
		f := newFixture(t, models.ConnectivityOffline)
		f.signIn(t, adminUser)

		f.auth().Logout(ctx)

		_, _, ok := f.sessions.Current()
		assert.False(t, ok)
		assert.Empty(t, f.gw.Calls())
	})
}
