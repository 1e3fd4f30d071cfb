package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
)

const migratedDiscriminator = "0"

type userPayload struct {
	ID            Snowflake `json:"id"`
	Username      string    `json:"username"`
	Discriminator string    `json:"discriminator"`
	GlobalName    *string   `json:"global_name"`
	Avatar        *string   `json:"avatar"`
	Bot           bool      `json:"bot"`
	MFAEnabled    bool      `json:"mfa_enabled"`
	Locale        string    `json:"locale"`
	Verified      bool      `json:"verified"`
	Email         string    `json:"email"`
	Flags         int       `json:"flags"`
	PremiumType   int       `json:"premium_type"`
}

// User is a Discord user. Profile fields are fixed at construction; the
// guild, member and connection caches change only through the Fetch
// methods.
type User struct {
	ID            Snowflake
	Username      string
	Discriminator string
	// GlobalName is set only for migrated users and falls back to the
	// username.
	GlobalName  string
	AvatarHash  string
	Bot         bool
	MFAEnabled  bool
	Locale      string
	Verified    bool
	Email       string
	Flags       int
	PremiumType int
	// IsMigrated is true for users on the unique username system
	// (discriminator "0").
	IsMigrated bool

	raw json.RawMessage
	cdn CDN

	mu           sync.RWMutex
	guilds       map[Snowflake]*Guild
	guildOrder   []Snowflake
	guildMembers map[Snowflake]*GuildMember
	connections  []*UserConnection
}

// Bot is the application's own bot user.
type Bot struct {
	*User
}

// NewUser builds a User from a raw /users/@me style payload.
func NewUser(payload []byte) (*User, error) {
	return newUser(payload, CDN{})
}

func newUser(payload []byte, cdn CDN) (*User, error) {
	var p userPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, errors.New("discord: user payload has no id")
	}
	u := &User{
		ID:            p.ID,
		Username:      p.Username,
		Discriminator: p.Discriminator,
		Bot:           p.Bot,
		MFAEnabled:    p.MFAEnabled,
		Locale:        p.Locale,
		Verified:      p.Verified,
		Email:         p.Email,
		Flags:         p.Flags,
		PremiumType:   p.PremiumType,
		IsMigrated:    p.Discriminator == migratedDiscriminator,
		raw:           append(json.RawMessage(nil), payload...),
		cdn:           cdn,
		guildMembers:  make(map[Snowflake]*GuildMember),
	}
	if p.Avatar != nil {
		u.AvatarHash = *p.Avatar
	}
	if u.IsMigrated {
		u.GlobalName = p.Username
		if p.GlobalName != nil && *p.GlobalName != "" {
			u.GlobalName = *p.GlobalName
		}
	}
	return u, nil
}

// JSON returns the payload exactly as Discord sent it.
func (u *User) JSON() json.RawMessage { return u.raw }

// Name is an alias for Username.
func (u *User) Name() string { return u.Username }

func (u *User) String() string {
	switch {
	case u.IsMigrated && u.GlobalName != "":
		return fmt.Sprintf("%s (@%s)", u.GlobalName, u.Username)
	case u.IsMigrated:
		return "@" + u.Username
	default:
		return u.Username + "#" + u.Discriminator
	}
}

// Equal reports whether both values refer to the same Discord user.
func (u *User) Equal(other *User) bool {
	return u != nil && other != nil && u.ID == other.ID
}

func (u *User) IsAvatarAnimated() bool { return IsAnimated(u.AvatarHash) }

// AvatarURL returns the user's avatar, or the default avatar when none is
// set.
func (u *User) AvatarURL() string {
	if u.AvatarHash == "" {
		return u.DefaultAvatarURL()
	}
	return u.cdn.UserAvatar(u.ID, u.AvatarHash)
}

func (u *User) DefaultAvatarURL() string {
	return u.cdn.DefaultUserAvatar(u.ID)
}

// Guilds returns the cached guilds in the order Discord listed them, or nil
// if they were never fetched.
func (u *User) Guilds() []*Guild {
	u.mu.RLock()
	defer u.mu.RUnlock()
	if u.guilds == nil {
		return nil
	}
	out := make([]*Guild, 0, len(u.guildOrder))
	for _, id := range u.guildOrder {
		out = append(out, u.guilds[id])
	}
	return out
}

// Guild returns a cached guild by ID.
func (u *User) Guild(id Snowflake) (*Guild, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	g, ok := u.guilds[id]
	return g, ok
}

// GuildMembers returns a copy of the cached members keyed by guild ID.
func (u *User) GuildMembers() map[Snowflake]*GuildMember {
	u.mu.RLock()
	defer u.mu.RUnlock()
	out := make(map[Snowflake]*GuildMember, len(u.guildMembers))
	for k, v := range u.guildMembers {
		out[k] = v
	}
	return out
}

// Connections returns the cached connections, or nil if never fetched.
func (u *User) Connections() []*UserConnection {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.connections
}

func (u *User) setGuildMember(m *GuildMember) {
	u.mu.Lock()
	u.guildMembers[m.GuildID] = m
	u.mu.Unlock()
}

// FetchGuilds replaces the guild cache with the guilds Discord returns.
func (u *User) FetchGuilds(ctx context.Context, s *Session) ([]*Guild, error) {
	guilds, err := s.FetchGuilds(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[Snowflake]*Guild, len(guilds))
	order := make([]Snowflake, 0, len(guilds))
	for _, g := range guilds {
		if _, dup := byID[g.ID]; !dup {
			order = append(order, g.ID)
		}
		byID[g.ID] = g
	}
	u.mu.Lock()
	u.guilds = byID
	u.guildOrder = order
	u.mu.Unlock()
	return u.Guilds(), nil
}

// FetchConnections replaces the connection cache.
func (u *User) FetchConnections(ctx context.Context, s *Session) ([]*UserConnection, error) {
	conns, err := s.FetchConnections(ctx)
	if err != nil {
		return nil, err
	}
	u.mu.Lock()
	u.connections = conns
	u.mu.Unlock()
	return conns, nil
}

// FetchGuildMember fetches the member object for one guild and stores it,
// leaving entries for other guilds untouched.
func (u *User) FetchGuildMember(ctx context.Context, s *Session, guildID Snowflake) (*GuildMember, error) {
	m, err := s.FetchGuildMember(ctx, guildID, false)
	if err != nil {
		return nil, err
	}
	u.setGuildMember(m)
	return m, nil
}

// FetchGuildMembers fetches a member object for every cached guild. It
// does not fetch guilds itself; with none cached it makes no requests.
func (u *User) FetchGuildMembers(ctx context.Context, s *Session) (map[Snowflake]*GuildMember, error) {
	for _, g := range u.Guilds() {
		if _, err := u.FetchGuildMember(ctx, s, g.ID); err != nil {
			return nil, err
		}
	}
	return u.GuildMembers(), nil
}

// AddToGuild adds the user to a guild with the bot's credentials. The
// session must have been authorized with the guilds.join scope. The
// returned payload is empty when the user was already a member.
func (u *User) AddToGuild(ctx context.Context, s *Session, guildID Snowflake) (map[string]any, error) {
	tok, err := s.state.Token()
	if err != nil {
		return nil, err
	}
	if tok == nil || tok.AccessToken == "" {
		return nil, ErrUnauthorized
	}
	body := map[string]string{"access_token": tok.AccessToken}
	resp, err := s.request(ctx, true, http.MethodPut, addGuildMemberRoute(guildID, u.ID), body)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if len(resp) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(resp, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}
