package routes

import (
	"database/sql"
	"errors"

	"github.com/gorilla/sessions"
	"github.com/kabili207/discordweb/pkg/discord"
	"github.com/kabili207/discordweb/pkg/store"
	"golang.org/x/oauth2"
)

const (
	sessionUserKey  = "discord_id"
	sessionStateKey = "oauth_state"
)

// webSession exposes a cookie session and the token table to the discord
// package. The session values still have to be saved by the handler.
type webSession struct {
	session *sessions.Session
	tokens  store.OAuthTokenStore
	// token is set during login, before the user row exists.
	token *oauth2.Token
}

var _ discord.SessionState = (*webSession)(nil)

func (ws *webSession) UserID() (discord.Snowflake, bool) {
	val, ok := ws.session.Values[sessionUserKey].(string)
	if !ok {
		return 0, false
	}
	id, err := discord.ParseSnowflake(val)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

func (ws *webSession) SetUserID(id discord.Snowflake) {
	ws.session.Values[sessionUserKey] = id.String()
}

func (ws *webSession) clearUserID() {
	delete(ws.session.Values, sessionUserKey)
}

func (ws *webSession) Token() (*oauth2.Token, error) {
	if ws.token != nil {
		return ws.token, nil
	}
	id, ok := ws.UserID()
	if !ok {
		return nil, discord.ErrUnauthorized
	}
	dbToken, err := ws.tokens.GetTokenForDiscordID(int64(id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, discord.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	tok := dbToken.Token()
	if tok.AccessToken == "" {
		return nil, discord.ErrUnauthorized
	}
	ws.token = tok
	return tok, nil
}

// SaveToken stores a refreshed token. Before login completes there is no
// row to update, so the token is only kept in memory.
func (ws *webSession) SaveToken(tok *oauth2.Token) error {
	ws.token = tok
	id, ok := ws.UserID()
	if !ok {
		return nil
	}
	dbToken, err := ws.tokens.GetTokenForDiscordID(int64(id))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil
	case err != nil:
		return err
	}
	dbToken.Update(tok)
	return ws.tokens.SaveToken(dbToken)
}
