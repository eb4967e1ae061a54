// Package oauth runs the Google OAuth2 authorization code flow and keeps the
// resulting tokens in per-browser sessions.
package oauth

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"time"

	"github.com/driveview/driveview/pkg/config"
	"github.com/driveview/driveview/pkg/errcodes"
	"github.com/driveview/driveview/pkg/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
)

// TokenExpiry is how long session cookies are valid.
const TokenExpiry = 30 * 24 * time.Hour

var ErrAuthorizationRequired = errors.New("authorization required")

var Scopes = []string{
	drive.DriveReadonlyScope,
	drive.DriveMetadataReadonlyScope,
}

// NewConfig builds the OAuth client config from the client secrets file when
// one is configured, otherwise from the client id and secret.
func NewConfig(cfg *config.Config) (*oauth2.Config, error) {
	if cfg.GoogleCredentialsFile != "" {
		data, err := os.ReadFile(cfg.GoogleCredentialsFile)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", cfg.GoogleCredentialsFile)
		}
		conf, err := google.ConfigFromJSON(data, Scopes...)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		conf.RedirectURL = cfg.OAuthRedirectURL
		return conf, nil
	}
	if cfg.GoogleClientID == "" {
		return nil, errors.New("google_credentials_file or google_client_id is required")
	}
	return &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  cfg.OAuthRedirectURL,
		Scopes:       Scopes,
	}, nil
}

type Service struct {
	db        *bun.DB
	conf      *oauth2.Config
	jwtSecret []byte
}

func NewService(db *bun.DB, conf *oauth2.Config, jwtSecret string) *Service {
	return &Service{
		db:        db,
		conf:      conf,
		jwtSecret: []byte(jwtSecret),
	}
}

// CreateSession inserts an empty session.
func (s *Service) CreateSession(ctx context.Context) (*models.Session, error) {
	session := &models.Session{ID: uuid.NewString()}
	_, err := s.db.NewInsert().Model(session).Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return session, nil
}

// GetSession returns the session or errcodes.NotFound.
func (s *Service) GetSession(ctx context.Context, id string) (*models.Session, error) {
	session := &models.Session{}
	err := s.db.NewSelect().
		Model(session).
		Where("ses.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Session")
		}
		return nil, errors.WithStack(err)
	}
	return session, nil
}

func (s *Service) DeleteSession(ctx context.Context, id string) error {
	_, err := s.db.NewDelete().
		Model((*models.Session)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return errors.WithStack(err)
}

// GenerateToken signs a cookie value for the session.
func (s *Service) GenerateToken(sessionID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   sessionID,
		ExpiresAt: jwt.NewNumericDate(now.Add(TokenExpiry)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", errors.WithStack(err)
	}
	return signedToken, nil
}

// ValidateToken returns the session id of a valid cookie value.
func (s *Service) ValidateToken(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return "", errors.WithStack(err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", errors.New("invalid token")
	}
	return claims.Subject, nil
}

// BeginAuthorization stores a fresh state on the session and returns the
// consent page URL.
func (s *Service) BeginAuthorization(ctx context.Context, sessionID string) (string, error) {
	state := uuid.NewString()
	_, err := s.db.NewUpdate().
		Model((*models.Session)(nil)).
		Set("oauth_state = ?", state).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", sessionID).
		Exec(ctx)
	if err != nil {
		return "", errors.WithStack(err)
	}

	return s.conf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	), nil
}

// CompleteAuthorization checks state against the session, exchanges the
// code and stores the token.
func (s *Service) CompleteAuthorization(ctx context.Context, sessionID, state, code string) error {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.OAuthState == nil || *session.OAuthState == "" {
		return errcodes.BadRequest("No state found in session. Please try again.")
	}
	if *session.OAuthState != state {
		return errcodes.BadRequest("OAuth state mismatch. Please try again.")
	}
	if code == "" {
		return errcodes.BadRequest("No authorization code provided.")
	}

	token, err := s.conf.Exchange(ctx, code)
	if err != nil {
		return errors.Wrap(err, "failed to exchange authorization code")
	}
	// Google only returns a refresh token on first consent.
	if token.RefreshToken == "" && session.RefreshToken != nil {
		token.RefreshToken = *session.RefreshToken
	}
	return s.saveToken(ctx, sessionID, token, true)
}

// TokenSource returns a source for the session's token that refreshes it
// when expired and persists the refreshed token.
func (s *Service) TokenSource(ctx context.Context, sessionID string) (oauth2.TokenSource, error) {
	if sessionID == "" {
		return nil, ErrAuthorizationRequired
	}
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, errcodes.NotFound("Session")) {
			return nil, ErrAuthorizationRequired
		}
		return nil, err
	}
	if !session.HasToken() {
		return nil, ErrAuthorizationRequired
	}

	token := sessionToken(session)
	// The refresh client must outlive a cancelled request; storages are
	// request scoped anyway.
	base := s.conf.TokenSource(context.WithoutCancel(ctx), token)
	return &persistingTokenSource{
		ctx:       context.WithoutCancel(ctx),
		svc:       s,
		sessionID: sessionID,
		base:      base,
		last:      token.AccessToken,
	}, nil
}

func (s *Service) saveToken(ctx context.Context, sessionID string, token *oauth2.Token, clearState bool) error {
	q := s.db.NewUpdate().
		Model((*models.Session)(nil)).
		Set("access_token = ?", token.AccessToken).
		Set("token_type = ?", token.TokenType).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", sessionID)
	if token.RefreshToken != "" {
		q = q.Set("refresh_token = ?", token.RefreshToken)
	}
	if !token.Expiry.IsZero() {
		q = q.Set("token_expiry = ?", token.Expiry)
	}
	if clearState {
		q = q.Set("oauth_state = NULL")
	}
	_, err := q.Exec(ctx)
	return errors.WithStack(err)
}

func sessionToken(session *models.Session) *oauth2.Token {
	token := &oauth2.Token{AccessToken: *session.AccessToken}
	if session.RefreshToken != nil {
		token.RefreshToken = *session.RefreshToken
	}
	if session.TokenType != nil {
		token.TokenType = *session.TokenType
	}
	if session.TokenExpiry != nil {
		token.Expiry = *session.TokenExpiry
	}
	return token
}

type persistingTokenSource struct {
	ctx       context.Context
	svc       *Service
	sessionID string
	base      oauth2.TokenSource

	mu   sync.Mutex
	last string
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	token, err := p.base.Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return nil, errors.Wrap(ErrAuthorizationRequired, retrieveErr.Error())
		}
		return nil, errors.WithStack(err)
	}

	p.mu.Lock()
	changed := token.AccessToken != p.last
	p.last = token.AccessToken
	p.mu.Unlock()

	if changed {
		if err := p.svc.saveToken(p.ctx, p.sessionID, token, false); err != nil {
			logger.FromContext(p.ctx).Err(err).Warn("failed to persist refreshed token", logger.Data{"session_id": p.sessionID})
		}
	}
	return token, nil
}
