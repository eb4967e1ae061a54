package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Session holds the OAuth state and tokens for one browser session.
type Session struct {
	bun.BaseModel `bun:"table:sessions,alias:ses"`

	ID           string     `bun:",pk" json:"id"`
	CreatedAt    time.Time  `bun:",nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt    time.Time  `bun:",nullzero,notnull,default:current_timestamp" json:"updated_at"`
	OAuthState   *string    `bun:"oauth_state" json:"-"`
	AccessToken  *string    `json:"-"`
	RefreshToken *string    `json:"-"`
	TokenType    *string    `json:"-"`
	TokenExpiry  *time.Time `json:"-"`
}

// HasToken reports whether the session has completed authorization.
func (s *Session) HasToken() bool {
	return s.AccessToken != nil && *s.AccessToken != ""
}
