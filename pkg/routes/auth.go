package routes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"

	"github.com/google/uuid"
	"github.com/kabili207/discordweb/pkg/discord"
	"github.com/kabili207/discordweb/pkg/models"
	"golang.org/x/oauth2"
)

var (
	errBadState  = errors.New("oauth state mismatch")
	errNotMember = errors.New("discord user is not a member of the required guild")
)

func (wr *WebRouter) getDiscordRedirectURI(r *http.Request) string {
	redir, err := url.Parse(wr.oauth.RedirectURL)
	if err == nil {
		redir.Host = r.Host
	}
	return redir.String()
}

func (wr *WebRouter) discordLoginHandler(w http.ResponseWriter, r *http.Request) {
	session, err := wr.getSession(r)
	if err != nil {
		slog.Warn("discarding unreadable session", "error", err)
	}
	state := uuid.NewString()
	session.Values[sessionStateKey] = state
	if err := session.Save(r, w); err != nil {
		slog.Error("saving session", "error", err)
		http.Error(w, "unable to save session", http.StatusInternalServerError)
		return
	}

	redirURI := oauth2.SetAuthURLParam("redirect_uri", wr.getDiscordRedirectURI(r))
	url := wr.oauth.AuthCodeURL(state, redirURI)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

func (wr *WebRouter) userLogoutHandler(w http.ResponseWriter, r *http.Request) {
	session, err := wr.getSession(r)
	if err == nil {
		state := wr.sessionState(session)
		if id, ok := state.UserID(); ok {
			user, err := wr.storage.Users.GetByDiscordID(int64(id))
			if err != nil {
				slog.Error("error loading user for logout", "error", err)
			} else if user != nil {
				if err := wr.storage.OAuthTokens.DeleteForUser(user.ID); err != nil {
					slog.Error("error deleting oauth token", "error", err)
				}
			}
			wr.client.Session(state).Forget()
		}
	}
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		slog.Error("saving session", "error", err)
	}
	http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
}

func (wr *WebRouter) discordCallbackHandler(w http.ResponseWriter, r *http.Request) {
	session, err := wr.getSession(r)
	if err != nil {
		slog.Error("error loading user session", "error", err)
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
		return
	}

	expected, _ := session.Values[sessionStateKey].(string)
	delete(session.Values, sessionStateKey)
	if expected == "" || r.FormValue("state") != expected {
		slog.Warn("rejecting oauth callback", "error", errBadState)
		http.Error(w, errBadState.Error(), http.StatusBadRequest)
		return
	}
	if e := r.FormValue("error"); e != "" {
		slog.Info("discord authorization declined", "error", e)
		session.Save(r, w)
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
		return
	}

	state := wr.sessionState(session)
	user, err := wr.loginDiscordUser(r.Context(), r, state, r.FormValue("code"))
	if err != nil {
		state.clearUserID()
		session.Save(r, w)
		slog.Error("error logging in discord user", "error", err)
		if errors.Is(err, errNotMember) {
			http.Error(w, err.Error(), http.StatusForbidden)
			return
		}
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
		return
	}

	if err := session.Save(r, w); err != nil {
		slog.Error("saving session", "error", err)
	}

	slog.Info("user authenticated", "user", user.String(), "id", user.ID)
	http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
}

// loginDiscordUser exchanges the code, loads the user and records the login.
// On success the session carries the user's Discord ID.
func (wr *WebRouter) loginDiscordUser(ctx context.Context, r *http.Request, state *webSession, code string) (*discord.User, error) {
	redirURI := oauth2.SetAuthURLParam("redirect_uri", wr.getDiscordRedirectURI(r))
	token, err := wr.oauth.Exchange(ctx, code, redirURI)
	if err != nil {
		return nil, fmt.Errorf("code exchange failed: %w", err)
	}
	if !token.Valid() {
		return nil, fmt.Errorf("retrieved invalid token")
	}
	state.token = token

	ds := wr.client.Session(state)
	user, err := ds.FetchUser(ctx, discord.FetchOptions{
		Guilds: slices.Contains(wr.oauth.Scopes, "guilds"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed getting user info: %w", err)
	}

	if gid := wr.config.Discord.RequiredGuild; gid != 0 {
		if err := wr.checkGuildMembership(ctx, ds, gid); err != nil {
			ds.Forget()
			return nil, err
		}
	}

	if err := wr.saveLogin(user, token); err != nil {
		return nil, err
	}

	if gid := wr.config.Discord.AutoJoinGuild; gid != 0 {
		if _, err := user.AddToGuild(ctx, ds, gid); err != nil {
			slog.Warn("unable to add user to guild", "user", user.ID, "guild", gid, "error", err)
		}
	}
	return user, nil
}

func (wr *WebRouter) checkGuildMembership(ctx context.Context, ds *discord.Session, guildID discord.Snowflake) error {
	member, err := ds.FetchGuildMember(ctx, guildID, true)
	var he *discord.HTTPError
	if errors.As(err, &he) && he.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w %s", errNotMember, guildID)
	}
	if err != nil {
		return fmt.Errorf("failed validating discord membership: %w", err)
	}
	if member.Pending {
		return fmt.Errorf("%w %s: membership screening pending", errNotMember, guildID)
	}
	return nil
}

// saveLogin upserts the local user row, its token and its guild list.
func (wr *WebRouter) saveLogin(user *discord.User, token *oauth2.Token) error {
	discordID := int64(user.ID)
	row := &models.User{
		DiscordID: discordID,
		UserName:  user.Username,
	}
	if user.GlobalName != "" {
		name := user.GlobalName
		row.DisplayName = &name
	}
	if user.AvatarHash != "" {
		avatar := user.AvatarHash
		row.Avatar = &avatar
	}
	saved, err := wr.storage.Users.SaveLogin(row)
	if err != nil {
		return err
	}
	if saved == nil {
		return fmt.Errorf("user %d missing after save", discordID)
	}

	dbToken, err := wr.storage.OAuthTokens.GetTokenForDiscordID(discordID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		dbToken = models.OAuthToken{UserID: saved.ID}
	case err != nil:
		return err
	}
	dbToken.Update(token)
	if err := wr.storage.OAuthTokens.SaveToken(dbToken); err != nil {
		return err
	}

	if guilds := user.Guilds(); guilds != nil {
		if err := wr.storage.Guilds.ReplaceForUser(discordID, guildRows(guilds)); err != nil {
			return err
		}
	}
	return nil
}

func guildRows(guilds []*discord.Guild) []*models.GuildInfo {
	rows := make([]*models.GuildInfo, 0, len(guilds))
	for _, g := range guilds {
		row := &models.GuildInfo{
			GuildID:     int64(g.ID),
			Name:        g.Name,
			Owner:       g.Owner,
			Permissions: int64(g.Permissions),
		}
		if g.IconHash != "" {
			icon := g.IconHash
			row.Icon = &icon
		}
		rows = append(rows, row)
	}
	return rows
}
