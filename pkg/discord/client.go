// Package discord models Discord users, guilds and members fetched over the
// REST API on behalf of a logged in web session.
//
// A Client is created once per process. Each HTTP request gets a Session,
// which binds the Client to that request's SessionState (the browser
// session's user ID and OAuth2 token).
package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/oauth2"
)

const DefaultAPIBase = "https://discord.com/api/v10"

// Endpoint is Discord's OAuth2 endpoint.
var Endpoint = oauth2.Endpoint{
	AuthURL:  "https://discord.com/oauth2/authorize",
	TokenURL: "https://discord.com/api/oauth2/token",
}

var ErrNoBotToken = errors.New("discord: no bot token configured")

// SessionState is the part of a browser session the models need.
type SessionState interface {
	// UserID returns the ID of the user logged in on this session.
	UserID() (Snowflake, bool)
	SetUserID(id Snowflake)
	// Token returns the session's OAuth2 token, or ErrUnauthorized.
	Token() (*oauth2.Token, error)
	// SaveToken persists a refreshed token.
	SaveToken(tok *oauth2.Token) error
}

type Options struct {
	OAuth    *oauth2.Config
	BotToken string
	// APIBase defaults to DefaultAPIBase.
	APIBase string
	CDN     CDN
	// Cache defaults to a new MemoryCache.
	Cache UserCache
	// HTTPClient is used for user requests and token refreshes.
	HTTPClient *http.Client
}

type Client struct {
	oauth      *oauth2.Config
	bot        Requester
	apiBase    string
	cdn        CDN
	cache      UserCache
	httpClient *http.Client
}

func NewClient(opts Options) (*Client, error) {
	c := &Client{
		oauth:      opts.OAuth,
		apiBase:    opts.APIBase,
		cdn:        opts.CDN,
		cache:      opts.Cache,
		httpClient: opts.HTTPClient,
	}
	if c.oauth == nil {
		c.oauth = &oauth2.Config{}
	}
	if c.apiBase == "" {
		c.apiBase = DefaultAPIBase
	}
	if c.cache == nil {
		c.cache = NewMemoryCache()
	}
	if c.httpClient == nil {
		c.httpClient = http.DefaultClient
	}
	if opts.BotToken != "" {
		dg, err := discordgo.New("Bot " + opts.BotToken)
		if err != nil {
			return nil, err
		}
		dg.Client = c.httpClient
		dg.ShouldRetryOnRateLimit = false
		dg.MaxRestRetries = 0
		c.bot = &botRequester{dg: dg, apiBase: c.apiBase}
	}
	return c, nil
}

func (c *Client) Cache() UserCache { return c.cache }
func (c *Client) CDN() CDN         { return c.cdn }

// Session binds the client to one browser session.
func (c *Client) Session(state SessionState) *Session {
	return &Session{client: c, state: state}
}

type Session struct {
	client *Client
	state  SessionState
	user   Requester
}

func (s *Session) State() SessionState { return s.state }

func (s *Session) userRequester(ctx context.Context) (Requester, error) {
	if s.user != nil {
		return s.user, nil
	}
	tok, err := s.state.Token()
	if err != nil {
		return nil, err
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.client.httpClient)
	ts := &savingTokenSource{
		base:        s.client.oauth.TokenSource(ctx, tok),
		last:        tok.AccessToken,
		refreshable: tok.RefreshToken != "",
		save:        s.state.SaveToken,
	}
	s.user = newRESTRequester(oauth2.NewClient(ctx, ts), s.client.apiBase)
	return s.user, nil
}

func (s *Session) requester(ctx context.Context, bot bool) (Requester, error) {
	if bot {
		if s.client.bot == nil {
			return nil, ErrNoBotToken
		}
		return s.client.bot, nil
	}
	return s.userRequester(ctx)
}

func (s *Session) request(ctx context.Context, bot bool, method, route string, body any) ([]byte, error) {
	r, err := s.requester(ctx, bot)
	if err != nil {
		return nil, err
	}
	slog.Debug("discord request", "method", method, "route", route, "bot", bot)
	return r.Request(ctx, method, route, body)
}

func fetchOne[T any](ctx context.Context, s *Session, r Route, guildID Snowflake, build func([]byte, Snowflake) (T, error)) (T, error) {
	var zero T
	body, err := s.request(ctx, r.Bot, http.MethodGet, r.Resolve(guildID), nil)
	if err != nil {
		return zero, err
	}
	return build(body, guildID)
}

func fetchMany[T any](ctx context.Context, s *Session, r Route, build func([]byte) (T, error)) ([]T, error) {
	body, err := s.request(ctx, r.Bot, http.MethodGet, r.Resolve(0), nil)
	if err != nil {
		return nil, err
	}
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, err
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		v, err := build(item)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// FetchOptions selects the nested data FetchUser loads eagerly.
type FetchOptions struct {
	Guilds      bool
	Connections bool
	// Members is only honoured together with Guilds.
	Members bool
}

// FetchUser retrieves the authenticated user, caches it and records its ID
// on the session.
func (s *Session) FetchUser(ctx context.Context, opts FetchOptions) (*User, error) {
	u, err := fetchOne(ctx, s, userRoute, 0, func(b []byte, _ Snowflake) (*User, error) {
		return newUser(b, s.client.cdn)
	})
	if err != nil {
		return nil, err
	}
	s.client.cache.Put(u)
	s.state.SetUserID(u.ID)

	if opts.Guilds {
		if _, err := u.FetchGuilds(ctx, s); err != nil {
			return u, err
		}
	}
	if opts.Connections {
		if _, err := u.FetchConnections(ctx, s); err != nil {
			return u, err
		}
	}
	if opts.Guilds && opts.Members {
		if _, err := u.FetchGuildMembers(ctx, s); err != nil {
			return u, err
		}
	}
	return u, nil
}

// CurrentUser returns the cached user for this session, if any.
func (s *Session) CurrentUser() (*User, bool) {
	id, ok := s.state.UserID()
	if !ok {
		return nil, false
	}
	return s.client.cache.Get(id)
}

// Forget drops the session's user from the cache.
func (s *Session) Forget() {
	if id, ok := s.state.UserID(); ok {
		s.client.cache.Evict(id)
	}
}

// FetchBot retrieves the bot user with bot credentials. It is not cached.
func (s *Session) FetchBot(ctx context.Context) (*Bot, error) {
	return fetchOne(ctx, s, botRoute, 0, func(b []byte, _ Snowflake) (*Bot, error) {
		u, err := newUser(b, s.client.cdn)
		if err != nil {
			return nil, err
		}
		return &Bot{User: u}, nil
	})
}

// FetchGuilds lists the guilds of the session's user without caching them.
func (s *Session) FetchGuilds(ctx context.Context) ([]*Guild, error) {
	return fetchMany(ctx, s, guildRoute, func(b []byte) (*Guild, error) {
		return newGuild(b, s.client.cdn)
	})
}

// FetchConnections lists the session user's connections without caching them.
func (s *Session) FetchConnections(ctx context.Context) ([]*UserConnection, error) {
	return fetchMany(ctx, s, connectionRoute, newUserConnection)
}

// FetchGuildMember retrieves the session user's member object in a guild.
// With cache set, the member is stored on the cached current user; if
// there is none the update is skipped.
func (s *Session) FetchGuildMember(ctx context.Context, guildID Snowflake, cache bool) (*GuildMember, error) {
	m, err := fetchOne(ctx, s, guildMemberRoute, guildID, func(b []byte, gid Snowflake) (*GuildMember, error) {
		return newGuildMember(b, gid, s.client.cdn)
	})
	if err != nil {
		return nil, err
	}
	if cache {
		if u, ok := s.CurrentUser(); ok {
			u.setGuildMember(m)
		}
	}
	return m, nil
}

// savingTokenSource hands refreshed tokens back to the session. A token
// that can no longer be used or refreshed is reported as ErrUnauthorized.
type savingTokenSource struct {
	base        oauth2.TokenSource
	last        string
	refreshable bool
	save        func(*oauth2.Token) error
}

func (ts *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := ts.base.Token()
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) || !ts.refreshable {
			return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
		}
		return nil, err
	}
	if tok.RefreshToken != "" {
		ts.refreshable = true
	}
	if tok.AccessToken != ts.last {
		ts.last = tok.AccessToken
		if err := ts.save(tok); err != nil {
			slog.Warn("unable to save refreshed token", "error", err)
		}
	}
	return tok, nil
}
