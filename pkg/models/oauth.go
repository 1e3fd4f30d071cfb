package models

import (
	"time"

	"golang.org/x/oauth2"
)

type OAuthToken struct {
	UserID       int        `db:"user_id"`
	TokenType    *string    `db:"token_type"`
	AccessToken  *string    `db:"access_token"`
	RefreshToken *string    `db:"refresh_token"`
	Expiration   *time.Time `db:"expiration"`
}

// Token converts the stored row back into an oauth2 token.
func (t OAuthToken) Token() *oauth2.Token {
	tok := &oauth2.Token{}
	if t.TokenType != nil {
		tok.TokenType = *t.TokenType
	}
	if t.AccessToken != nil {
		tok.AccessToken = *t.AccessToken
	}
	if t.RefreshToken != nil {
		tok.RefreshToken = *t.RefreshToken
	}
	if t.Expiration != nil {
		tok.Expiry = *t.Expiration
	}
	return tok
}

// Update copies a token into the row. An empty refresh token keeps the
// stored one, since Discord does not always send a new one.
func (t *OAuthToken) Update(token *oauth2.Token) {
	tokenType, access, expiry := token.TokenType, token.AccessToken, token.Expiry
	t.TokenType = &tokenType
	t.AccessToken = &access
	if token.RefreshToken != "" {
		refresh := token.RefreshToken
		t.RefreshToken = &refresh
	}
	t.Expiration = &expiry
}
