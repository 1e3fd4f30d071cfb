package discord

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/kabili207/discordweb/pkg/testutil"
)

type fakeState struct {
	id    Snowflake
	hasID bool
	tok   *oauth2.Token
	saved []*oauth2.Token
}

func (f *fakeState) UserID() (Snowflake, bool) { return f.id, f.hasID }
func (f *fakeState) SetUserID(id Snowflake)    { f.id, f.hasID = id, true }

func (f *fakeState) Token() (*oauth2.Token, error) {
	if f.tok == nil {
		return nil, ErrUnauthorized
	}
	return f.tok, nil
}

func (f *fakeState) SaveToken(t *oauth2.Token) error {
	f.saved = append(f.saved, t)
	f.tok = t
	return nil
}

func newTestClient(t *testing.T, botToken string) (*Client, *testutil.MockDiscord) {
	t.Helper()
	md := testutil.NewMockDiscord(t)
	c, err := NewClient(Options{
		OAuth: &oauth2.Config{
			ClientID:     "client",
			ClientSecret: "secret",
			Endpoint:     oauth2.Endpoint{AuthURL: md.AuthURL(), TokenURL: md.TokenURL()},
		},
		BotToken: botToken,
		APIBase:  md.APIBase(),
	})
	require.NoError(t, err)
	return c, md
}

func authorized() *fakeState {
	return &fakeState{tok: &oauth2.Token{AccessToken: testutil.AccessToken, TokenType: "Bearer"}}
}

func TestFetchUser(t *testing.T) {
	c, md := newTestClient(t, testutil.BotToken)
	state := authorized()
	s := c.Session(state)

	u, err := s.FetchUser(context.Background(), FetchOptions{})
	require.NoError(t, err)

	assert.Equal(t, "Alice (@alice)", u.String())
	assert.Equal(t, "alice@example.com", u.Email)
	assert.True(t, u.Verified)
	assert.Equal(t, 2, u.PremiumType)
	assert.True(t, u.IsAvatarAnimated())

	id, ok := state.UserID()
	require.True(t, ok)
	assert.Equal(t, u.ID, id)

	cached, ok := s.CurrentUser()
	require.True(t, ok)
	assert.Same(t, u, cached)

	assert.Equal(t, 1, md.Hits("GET /users/@me"))
	assert.Zero(t, md.Hits("GET /users/@me/guilds"))
	assert.Nil(t, u.Guilds())
}

func TestFetchUserReplacesCacheEntry(t *testing.T) {
	c, _ := newTestClient(t, "")
	s := c.Session(authorized())

	first, err := s.FetchUser(context.Background(), FetchOptions{})
	require.NoError(t, err)
	second, err := s.FetchUser(context.Background(), FetchOptions{})
	require.NoError(t, err)

	cached, ok := c.Cache().Get(first.ID)
	require.True(t, ok)
	assert.Same(t, second, cached)
	assert.True(t, first.Equal(second))
}

func TestFetchUserEager(t *testing.T) {
	c, md := newTestClient(t, "")
	s := c.Session(authorized())

	u, err := s.FetchUser(context.Background(), FetchOptions{Guilds: true, Connections: true, Members: true})
	require.NoError(t, err)

	guilds := u.Guilds()
	require.Len(t, guilds, 2)
	assert.Equal(t, "Mesh", guilds[0].Name)
	assert.Equal(t, "Radio", guilds[1].Name)

	members := u.GuildMembers()
	require.Len(t, members, 2)
	for _, g := range guilds {
		m, ok := members[g.ID]
		require.True(t, ok, "missing member for guild %s", g.ID)
		assert.Equal(t, g.ID, m.GuildID)
		assert.Equal(t, u.ID, m.ID)
	}

	assert.Len(t, u.Connections(), 2)
	assert.Equal(t, 1, md.Hits("GET /users/@me/guilds/"+testutil.GuildA+"/member"))
	assert.Equal(t, 1, md.Hits("GET /users/@me/guilds/"+testutil.GuildB+"/member"))
}

func TestFetchUserMembersNeedGuilds(t *testing.T) {
	c, md := newTestClient(t, "")
	s := c.Session(authorized())

	u, err := s.FetchUser(context.Background(), FetchOptions{Members: true})
	require.NoError(t, err)

	assert.Empty(t, u.GuildMembers())
	assert.Equal(t, 1, md.TotalHits())
}

func TestFetchGuildsReplacesCache(t *testing.T) {
	c, md := newTestClient(t, "")
	s := c.Session(authorized())
	ctx := context.Background()

	u, err := s.FetchUser(ctx, FetchOptions{Guilds: true})
	require.NoError(t, err)
	require.Len(t, u.Guilds(), 2)

	md.Set(func(m *testutil.MockDiscord) {
		m.Guilds = `[{"id":"` + testutil.GuildB + `","name":"Radio Renamed","permissions":"0"}]`
	})
	guilds, err := u.FetchGuilds(ctx, s)
	require.NoError(t, err)

	require.Len(t, guilds, 1)
	assert.Equal(t, "Radio Renamed", guilds[0].Name)
	_, ok := u.Guild(mustParse(t, testutil.GuildA))
	assert.False(t, ok)
}

func TestFetchGuildMembersAfterGuilds(t *testing.T) {
	c, _ := newTestClient(t, "")
	s := c.Session(authorized())
	ctx := context.Background()

	u, err := s.FetchUser(ctx, FetchOptions{})
	require.NoError(t, err)

	members, err := u.FetchGuildMembers(ctx, s)
	require.NoError(t, err)
	assert.Empty(t, members)

	guilds, err := u.FetchGuilds(ctx, s)
	require.NoError(t, err)
	members, err = u.FetchGuildMembers(ctx, s)
	require.NoError(t, err)

	require.Len(t, members, len(guilds))
	for _, g := range guilds {
		assert.Equal(t, g.ID, members[g.ID].GuildID)
	}
	assert.Equal(t, "Ali", members[mustParse(t, testutil.GuildA)].String())
	assert.Equal(t, "Alice", members[mustParse(t, testutil.GuildB)].String())
}

func TestFetchGuildMemberMerges(t *testing.T) {
	c, _ := newTestClient(t, "")
	s := c.Session(authorized())
	ctx := context.Background()

	u, err := s.FetchUser(ctx, FetchOptions{})
	require.NoError(t, err)

	_, err = u.FetchGuildMember(ctx, s, mustParse(t, testutil.GuildA))
	require.NoError(t, err)
	_, err = u.FetchGuildMember(ctx, s, mustParse(t, testutil.GuildB))
	require.NoError(t, err)

	assert.Len(t, u.GuildMembers(), 2)
}

func TestSessionFetchGuildMemberCache(t *testing.T) {
	c, _ := newTestClient(t, "")
	ctx := context.Background()
	guildA := mustParse(t, testutil.GuildA)

	anon := c.Session(authorized())
	m, err := anon.FetchGuildMember(ctx, guildA, true)
	require.NoError(t, err, "no cached user is not an error")
	assert.Equal(t, guildA, m.GuildID)

	s := c.Session(authorized())
	u, err := s.FetchUser(ctx, FetchOptions{})
	require.NoError(t, err)

	_, err = s.FetchGuildMember(ctx, guildA, false)
	require.NoError(t, err)
	assert.Empty(t, u.GuildMembers())

	_, err = s.FetchGuildMember(ctx, guildA, true)
	require.NoError(t, err)
	assert.Contains(t, u.GuildMembers(), guildA)
}

func TestFetchGuildMemberRemoteError(t *testing.T) {
	c, _ := newTestClient(t, "")
	s := c.Session(authorized())

	_, err := s.FetchGuildMember(context.Background(), 999, true)
	require.Error(t, err)

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
	assert.Equal(t, "/users/@me/guilds/999/member", httpErr.Route)
}

func TestFetchWithoutToken(t *testing.T) {
	c, md := newTestClient(t, "")
	s := c.Session(&fakeState{})

	_, err := s.FetchUser(context.Background(), FetchOptions{})
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Zero(t, md.TotalHits())
}

func TestFetchConnections(t *testing.T) {
	c, _ := newTestClient(t, "")
	s := c.Session(authorized())

	conns, err := s.FetchConnections(context.Background())
	require.NoError(t, err)
	require.Len(t, conns, 2)

	assert.Equal(t, "twitch", conns[0].Type)
	assert.True(t, conns[0].IsVisible())
	require.Len(t, conns[0].Integrations, 1)
	require.NotNil(t, conns[0].Integrations[0].SubscriberCount)
	assert.Equal(t, 12, *conns[0].Integrations[0].SubscriberCount)
	assert.False(t, conns[0].Integrations[0].Revoked)

	assert.False(t, conns[1].IsVisible())
	assert.Empty(t, conns[1].Integrations)
}

func TestFetchBot(t *testing.T) {
	c, md := newTestClient(t, testutil.BotToken)
	state := authorized()
	s := c.Session(state)

	bot, err := s.FetchBot(context.Background())
	require.NoError(t, err)
	assert.True(t, bot.Bot)
	assert.Equal(t, "helper#1234", bot.String())
	assert.Equal(t, 1, md.Hits("GET /users/@me"))

	_, ok := state.UserID()
	assert.False(t, ok, "bot fetch does not log anyone in")
}

func TestBotRequestWithoutToken(t *testing.T) {
	c, _ := newTestClient(t, "")
	s := c.Session(authorized())

	_, err := s.FetchBot(context.Background())
	assert.ErrorIs(t, err, ErrNoBotToken)
}

func TestAddToGuild(t *testing.T) {
	c, md := newTestClient(t, testutil.BotToken)
	s := c.Session(authorized())
	ctx := context.Background()

	u, err := s.FetchUser(ctx, FetchOptions{})
	require.NoError(t, err)

	member, err := u.AddToGuild(ctx, s, mustParse(t, testutil.GuildA))
	require.NoError(t, err)
	assert.Contains(t, member, "user")

	key := "PUT /guilds/" + testutil.GuildA + "/members/" + testutil.UserID
	assert.Equal(t, 1, md.Hits(key))
	var body map[string]string
	require.NoError(t, json.Unmarshal(md.LastBody(key), &body))
	assert.Equal(t, testutil.AccessToken, body["access_token"])
}

func TestAddToGuildAlreadyMember(t *testing.T) {
	c, md := newTestClient(t, testutil.BotToken)
	s := c.Session(authorized())
	ctx := context.Background()
	md.Set(func(m *testutil.MockDiscord) { m.AlreadyIn[testutil.GuildB] = true })

	u, err := s.FetchUser(ctx, FetchOptions{})
	require.NoError(t, err)

	member, err := u.AddToGuild(ctx, s, mustParse(t, testutil.GuildB))
	require.NoError(t, err)
	assert.NotNil(t, member)
	assert.Empty(t, member)
}

func TestAddToGuildUnauthorized(t *testing.T) {
	c, md := newTestClient(t, testutil.BotToken)
	u, err := NewUser([]byte(testutil.UserJSON))
	require.NoError(t, err)

	for name, state := range map[string]*fakeState{
		"no token":     {},
		"empty access": {tok: &oauth2.Token{RefreshToken: "r"}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := u.AddToGuild(context.Background(), c.Session(state), 1)
			assert.ErrorIs(t, err, ErrUnauthorized)
		})
	}
	assert.Zero(t, md.TotalHits())
}

func TestRefreshedTokenIsSaved(t *testing.T) {
	c, md := newTestClient(t, "")
	state := &fakeState{tok: &oauth2.Token{
		AccessToken:  "stale",
		TokenType:    "Bearer",
		RefreshToken: "old-refresh",
		Expiry:       time.Now().Add(-time.Hour),
	}}
	s := c.Session(state)

	_, err := s.FetchUser(context.Background(), FetchOptions{})
	require.NoError(t, err)

	require.Len(t, state.saved, 1)
	assert.Equal(t, testutil.AccessToken, state.saved[0].AccessToken)
	assert.Equal(t, testutil.RefreshToken, state.saved[0].RefreshToken)
	assert.Equal(t, 1, md.Hits("POST /api/oauth2/token"))
}

func TestExpiredTokenWithoutRefreshIsUnauthorized(t *testing.T) {
	c, md := newTestClient(t, "")
	state := &fakeState{tok: &oauth2.Token{
		AccessToken: "stale",
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(-time.Hour),
	}}
	s := c.Session(state)

	_, err := s.FetchUser(context.Background(), FetchOptions{})
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Zero(t, md.TotalHits())
	assert.Empty(t, state.saved)
}

func TestRejectedRefreshIsUnauthorized(t *testing.T) {
	c, md := newTestClient(t, "")
	md.Set(func(m *testutil.MockDiscord) { m.RejectRefresh = true })
	state := &fakeState{tok: &oauth2.Token{
		AccessToken:  "stale",
		TokenType:    "Bearer",
		RefreshToken: "revoked",
		Expiry:       time.Now().Add(-time.Hour),
	}}
	s := c.Session(state)

	_, err := s.FetchUser(context.Background(), FetchOptions{})
	assert.ErrorIs(t, err, ErrUnauthorized)
	var re *oauth2.RetrieveError
	assert.ErrorAs(t, err, &re)
	assert.Equal(t, 1, md.Hits("POST /api/oauth2/token"))
	assert.Zero(t, md.Hits("GET /users/@me"))
	assert.Empty(t, state.saved)
}

func TestBotRequestIsNotRetried(t *testing.T) {
	c, md := newTestClient(t, testutil.BotToken)
	var calls atomic.Int32
	md.Mux.HandleFunc("GET /api/v10/guilds/{guild_id}/members/{user_id}", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})
	s := c.Session(authorized())

	_, err := s.request(context.Background(), true, http.MethodGet, addGuildMemberRoute(1, 2), nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func mustParse(t *testing.T, id string) Snowflake {
	t.Helper()
	s, err := ParseSnowflake(id)
	require.NoError(t, err)
	return s
}
