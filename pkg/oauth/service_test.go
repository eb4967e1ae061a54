package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/driveview/driveview/pkg/config"
	"github.com/driveview/driveview/pkg/testutils"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const testSecret = "test-session-secret"

// fakeTokenServer answers authorization code exchanges and refreshes.
type fakeTokenServer struct {
	srv       *httptest.Server
	refreshes atomic.Int32
	exchange  atomic.Int32
	fail      atomic.Bool
}

func newFakeTokenServer(t *testing.T) *fakeTokenServer {
	t.Helper()
	f := &fakeTokenServer{}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		w.Header().Set("Content-Type", "application/json")
		if f.fail.Load() {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Token has been expired or revoked."}`))
			return
		}
		var body map[string]interface{}
		switch r.Form.Get("grant_type") {
		case "authorization_code":
			n := f.exchange.Add(1)
			body = map[string]interface{}{
				"access_token": "access-" + r.Form.Get("code"),
				"token_type":   "Bearer",
				"expires_in":   3600,
			}
			if n == 1 {
				body["refresh_token"] = "refresh-1"
			}
		case "refresh_token":
			n := f.refreshes.Add(1)
			body = map[string]interface{}{
				"access_token": "refreshed-" + string(rune('0'+n)),
				"token_type":   "Bearer",
				"expires_in":   3600,
			}
		default:
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeTokenServer) config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Endpoint: oauth2.Endpoint{
			AuthURL:   "https://accounts.example.com/o/oauth2/auth",
			TokenURL:  f.srv.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		RedirectURL: "http://127.0.0.1:5006/oauth2callback",
		Scopes:      Scopes,
	}
}

func newTestService(t *testing.T) (*Service, *fakeTokenServer) {
	t.Helper()
	f := newFakeTokenServer(t)
	return NewService(testutils.NewTestDB(t), f.config(), testSecret), f
}

// authorize runs the flow up to the callback and returns the session id.
func authorize(t *testing.T, svc *Service, code string) string {
	t.Helper()
	ctx := context.Background()

	session, err := svc.CreateSession(ctx)
	require.NoError(t, err)
	authURL, err := svc.BeginAuthorization(ctx, session.ID)
	require.NoError(t, err)
	u, err := url.Parse(authURL)
	require.NoError(t, err)

	require.NoError(t, svc.CompleteAuthorization(ctx, session.ID, u.Query().Get("state"), code))
	return session.ID
}

func TestNewConfig(t *testing.T) {
	t.Parallel()

	t.Run("client id", func(t *testing.T) {
		t.Parallel()
		cfg := config.NewForTest()
		cfg.GoogleClientID = "id"
		cfg.GoogleClientSecret = "secret"

		conf, err := NewConfig(cfg)
		require.NoError(t, err)
		assert.Equal(t, "id", conf.ClientID)
		assert.Equal(t, cfg.OAuthRedirectURL, conf.RedirectURL)
		assert.Equal(t, Scopes, conf.Scopes)
	})

	t.Run("missing credentials", func(t *testing.T) {
		t.Parallel()
		_, err := NewConfig(config.NewForTest())
		require.Error(t, err)
	})
}

func TestSessionToken(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)

	token, err := svc.GenerateToken("session-1")
	require.NoError(t, err)

	id, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "session-1", id)

	other := NewService(nil, nil, "another-secret")
	_, err = other.ValidateToken(token)
	require.Error(t, err)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "session-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})
	signed, err := expired.SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = svc.ValidateToken(signed)
	require.Error(t, err)
}

func TestBeginAuthorization(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	authURL, err := svc.BeginAuthorization(ctx, session.ID)
	require.NoError(t, err)

	u, err := url.Parse(authURL)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "true", q.Get("include_granted_scopes"))
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.NotEmpty(t, q.Get("state"))

	stored, err := svc.GetSession(ctx, session.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.OAuthState)
	assert.Equal(t, q.Get("state"), *stored.OAuthState)
}

func TestCompleteAuthorization(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("stores the token and clears the state", func(t *testing.T) {
		t.Parallel()
		svc, _ := newTestService(t)
		id := authorize(t, svc, "code1")

		session, err := svc.GetSession(ctx, id)
		require.NoError(t, err)
		assert.True(t, session.HasToken())
		assert.Equal(t, "access-code1", *session.AccessToken)
		assert.Equal(t, "refresh-1", *session.RefreshToken)
		assert.Nil(t, session.OAuthState)
	})

	t.Run("keeps the refresh token on reconsent", func(t *testing.T) {
		t.Parallel()
		svc, f := newTestService(t)
		id := authorize(t, svc, "code1")

		authURL, err := svc.BeginAuthorization(ctx, id)
		require.NoError(t, err)
		u, _ := url.Parse(authURL)
		require.NoError(t, svc.CompleteAuthorization(ctx, id, u.Query().Get("state"), "code2"))
		assert.Equal(t, int32(2), f.exchange.Load())

		session, err := svc.GetSession(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "access-code2", *session.AccessToken)
		assert.Equal(t, "refresh-1", *session.RefreshToken)
	})

	t.Run("no state", func(t *testing.T) {
		t.Parallel()
		svc, _ := newTestService(t)
		session, err := svc.CreateSession(ctx)
		require.NoError(t, err)

		err = svc.CompleteAuthorization(ctx, session.ID, "anything", "code")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "No state found in session")
	})

	t.Run("state mismatch", func(t *testing.T) {
		t.Parallel()
		svc, f := newTestService(t)
		session, err := svc.CreateSession(ctx)
		require.NoError(t, err)
		_, err = svc.BeginAuthorization(ctx, session.ID)
		require.NoError(t, err)

		err = svc.CompleteAuthorization(ctx, session.ID, "forged", "code")
		require.Error(t, err)
		assert.Equal(t, int32(0), f.exchange.Load())
	})

	t.Run("unknown session", func(t *testing.T) {
		t.Parallel()
		svc, _ := newTestService(t)
		err := svc.CompleteAuthorization(ctx, "missing", "state", "code")
		require.Error(t, err)
	})
}

func TestTokenSource(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("authorization required", func(t *testing.T) {
		t.Parallel()
		svc, _ := newTestService(t)

		_, err := svc.TokenSource(ctx, "")
		require.ErrorIs(t, err, ErrAuthorizationRequired)

		_, err = svc.TokenSource(ctx, "missing")
		require.ErrorIs(t, err, ErrAuthorizationRequired)

		session, err := svc.CreateSession(ctx)
		require.NoError(t, err)
		_, err = svc.TokenSource(ctx, session.ID)
		require.ErrorIs(t, err, ErrAuthorizationRequired)
	})

	t.Run("valid token is reused", func(t *testing.T) {
		t.Parallel()
		svc, f := newTestService(t)
		id := authorize(t, svc, "code1")

		ts, err := svc.TokenSource(ctx, id)
		require.NoError(t, err)
		token, err := ts.Token()
		require.NoError(t, err)
		assert.Equal(t, "access-code1", token.AccessToken)
		assert.Equal(t, int32(0), f.refreshes.Load())
	})

	t.Run("expired token is refreshed and persisted", func(t *testing.T) {
		t.Parallel()
		svc, f := newTestService(t)
		id := authorize(t, svc, "code1")

		_, err := svc.db.NewRaw("UPDATE sessions SET token_expiry = ? WHERE id = ?", time.Now().Add(-time.Hour), id).Exec(ctx)
		require.NoError(t, err)

		ts, err := svc.TokenSource(ctx, id)
		require.NoError(t, err)
		token, err := ts.Token()
		require.NoError(t, err)
		assert.Equal(t, "refreshed-1", token.AccessToken)
		assert.Equal(t, int32(1), f.refreshes.Load())

		session, err := svc.GetSession(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "refreshed-1", *session.AccessToken)
		assert.Equal(t, "refresh-1", *session.RefreshToken)
		assert.True(t, session.TokenExpiry.After(time.Now()))
	})

	t.Run("revoked refresh token requires authorization", func(t *testing.T) {
		t.Parallel()
		svc, f := newTestService(t)
		id := authorize(t, svc, "code1")

		_, err := svc.db.NewRaw("UPDATE sessions SET token_expiry = ? WHERE id = ?", time.Now().Add(-time.Hour), id).Exec(ctx)
		require.NoError(t, err)
		f.fail.Store(true)

		ts, err := svc.TokenSource(ctx, id)
		require.NoError(t, err)
		_, err = ts.Token()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrAuthorizationRequired))
	})
}

func TestDeleteSession(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	ctx := context.Background()

	id := authorize(t, svc, "code1")
	require.NoError(t, svc.DeleteSession(ctx, id))

	_, err := svc.GetSession(ctx, id)
	require.Error(t, err)
	_, err = svc.TokenSource(ctx, id)
	require.ErrorIs(t, err, ErrAuthorizationRequired)
}
