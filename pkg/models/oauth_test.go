package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/oauth2"
)

func TestOAuthTokenRoundTrip(t *testing.T) {
	expiry := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	var row OAuthToken
	row.Update(&oauth2.Token{AccessToken: "a", TokenType: "Bearer", RefreshToken: "r", Expiry: expiry})

	tok := row.Token()
	assert.Equal(t, "a", tok.AccessToken)
	assert.Equal(t, "Bearer", tok.TokenType)
	assert.Equal(t, "r", tok.RefreshToken)
	assert.Equal(t, expiry, tok.Expiry)
}

func TestOAuthTokenKeepsRefreshToken(t *testing.T) {
	var row OAuthToken
	row.Update(&oauth2.Token{AccessToken: "a", RefreshToken: "first"})
	row.Update(&oauth2.Token{AccessToken: "b"})

	tok := row.Token()
	assert.Equal(t, "b", tok.AccessToken)
	assert.Equal(t, "first", tok.RefreshToken)
}

func TestOAuthTokenEmptyRow(t *testing.T) {
	tok := OAuthToken{}.Token()
	assert.Empty(t, tok.AccessToken)
	assert.True(t, tok.Expiry.IsZero())
}
