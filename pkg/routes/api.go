package routes

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/bwmarrin/discordgo"
	"github.com/gorilla/mux"
	"github.com/kabili207/discordweb/pkg/discord"
)

type ctxKey int

const discordSessionKey ctxKey = iota

var errNotLoggedIn = errors.New("not logged in")

// RequireAuth rejects requests whose session has no logged in user and
// hands a discord.Session to the next handler.
func (wr *WebRouter) RequireAuth(h http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		session, err := wr.getSession(r)
		if err != nil {
			writeError(w, errNotLoggedIn)
			return
		}
		state := wr.sessionState(session)
		if _, ok := state.UserID(); !ok {
			writeError(w, errNotLoggedIn)
			return
		}
		ctx := context.WithValue(r.Context(), discordSessionKey, wr.client.Session(state))
		h.ServeHTTP(w, r.WithContext(ctx))
	}
	return http.HandlerFunc(fn)
}

func discordSession(r *http.Request) *discord.Session {
	ds, _ := r.Context().Value(discordSessionKey).(*discord.Session)
	return ds
}

// currentUser returns the cached user, fetching it when the cache is empty.
func currentUser(r *http.Request, ds *discord.Session) (*discord.User, error) {
	if u, ok := ds.CurrentUser(); ok {
		return u, nil
	}
	return ds.FetchUser(r.Context(), discord.FetchOptions{})
}

func queryFlag(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}

func guildIDParam(r *http.Request) (discord.Snowflake, error) {
	id, err := discord.ParseSnowflake(mux.Vars(r)["guild_id"])
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, errors.New("guild id required")
	}
	return id, nil
}

func (wr *WebRouter) meHandler(w http.ResponseWriter, r *http.Request) {
	ds := discordSession(r)
	opts := discord.FetchOptions{
		Guilds:      queryFlag(r, "guilds"),
		Connections: queryFlag(r, "connections"),
		Members:     queryFlag(r, "members"),
	}
	user, err := ds.FetchUser(r.Context(), opts)
	if err != nil {
		writeError(w, err)
		return
	}
	if opts.Guilds {
		wr.storeGuilds(user)
	}
	writeJSON(w, http.StatusOK, newUserView(user))
}

func (wr *WebRouter) guildsHandler(w http.ResponseWriter, r *http.Request) {
	ds := discordSession(r)
	user, err := currentUser(r, ds)
	if err != nil {
		writeError(w, err)
		return
	}
	guilds, err := user.FetchGuilds(r.Context(), ds)
	if err != nil {
		writeError(w, err)
		return
	}
	wr.storeGuilds(user)
	writeJSON(w, http.StatusOK, guildViews(guilds))
}

func (wr *WebRouter) connectionsHandler(w http.ResponseWriter, r *http.Request) {
	ds := discordSession(r)
	user, err := currentUser(r, ds)
	if err != nil {
		writeError(w, err)
		return
	}
	conns, err := user.FetchConnections(r.Context(), ds)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, connectionViews(conns))
}

func (wr *WebRouter) membersHandler(w http.ResponseWriter, r *http.Request) {
	ds := discordSession(r)
	user, err := currentUser(r, ds)
	if err != nil {
		writeError(w, err)
		return
	}
	members, err := user.FetchGuildMembers(r.Context(), ds)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, memberViews(members))
}

func (wr *WebRouter) memberHandler(w http.ResponseWriter, r *http.Request) {
	guildID, err := guildIDParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ds := discordSession(r)
	member, err := ds.FetchGuildMember(r.Context(), guildID, true)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newMemberView(member))
}

type joinView struct {
	GuildID string         `json:"guild_id"`
	Joined  bool           `json:"joined"`
	Member  map[string]any `json:"member,omitempty"`
}

func (wr *WebRouter) joinGuildHandler(w http.ResponseWriter, r *http.Request) {
	guildID, err := guildIDParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ds := discordSession(r)
	user, err := currentUser(r, ds)
	if err != nil {
		writeError(w, err)
		return
	}
	member, err := user.AddToGuild(r.Context(), ds, guildID)
	if err != nil {
		writeError(w, err)
		return
	}
	slog.Info("added user to guild", "user", user.ID, "guild", guildID, "new", len(member) > 0)
	writeJSON(w, http.StatusOK, joinView{
		GuildID: guildID.String(),
		Joined:  len(member) > 0,
		Member:  member,
	})
}

func (wr *WebRouter) botHandler(w http.ResponseWriter, r *http.Request) {
	session, _ := wr.getSession(r)
	bot, err := wr.client.Session(wr.sessionState(session)).FetchBot(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserView(bot.User))
}

// storeGuilds records the user's cached guild list. Failures are logged
// only; the response does not depend on them.
func (wr *WebRouter) storeGuilds(user *discord.User) {
	guilds := user.Guilds()
	if guilds == nil {
		return
	}
	if err := wr.storage.Guilds.ReplaceForUser(int64(user.ID), guildRows(guilds)); err != nil {
		slog.Error("error saving user guilds", "user", user.ID, "error", err)
	}
}

type errorView struct {
	Error          string `json:"error"`
	UpstreamStatus int    `json:"upstream_status,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	var (
		he   *discord.HTTPError
		rest *discordgo.RESTError
	)
	switch {
	case errors.Is(err, errNotLoggedIn), errors.Is(err, discord.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, errorView{Error: err.Error()})
	case errors.Is(err, discord.ErrNoBotToken):
		writeJSON(w, http.StatusServiceUnavailable, errorView{Error: err.Error()})
	case errors.As(err, &he):
		writeJSON(w, http.StatusBadGateway, errorView{Error: err.Error(), UpstreamStatus: he.StatusCode})
	case errors.As(err, &rest):
		status := 0
		if rest.Response != nil {
			status = rest.Response.StatusCode
		}
		writeJSON(w, http.StatusBadGateway, errorView{Error: err.Error(), UpstreamStatus: status})
	default:
		slog.Error("unhandled api error", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorView{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("error writing response", "error", err)
	}
}
