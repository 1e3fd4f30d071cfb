package discord

import "encoding/json"

type guildPayload struct {
	ID          Snowflake   `json:"id"`
	Name        string      `json:"name"`
	Icon        *string     `json:"icon"`
	Owner       bool        `json:"owner"`
	Permissions Permissions `json:"permissions"`
	Features    []string    `json:"features"`
}

// Guild is a partial guild as listed by /users/@me/guilds.
type Guild struct {
	ID       Snowflake
	Name     string
	IconHash string
	// Owner is true when the current user owns the guild.
	Owner bool
	// Permissions are the current user's permissions in the guild.
	Permissions Permissions
	Features    []string

	raw json.RawMessage
	cdn CDN
}

func NewGuild(payload []byte) (*Guild, error) {
	return newGuild(payload, CDN{})
}

func newGuild(payload []byte, cdn CDN) (*Guild, error) {
	var p guildPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, err
	}
	g := &Guild{
		ID:          p.ID,
		Name:        p.Name,
		Owner:       p.Owner,
		Permissions: p.Permissions,
		Features:    p.Features,
		raw:         append(json.RawMessage(nil), payload...),
		cdn:         cdn,
	}
	if p.Icon != nil {
		g.IconHash = *p.Icon
	}
	return g, nil
}

func (g *Guild) JSON() json.RawMessage { return g.raw }

func (g *Guild) String() string { return g.Name }

func (g *Guild) Equal(other *Guild) bool {
	return g != nil && other != nil && g.ID == other.ID
}

func (g *Guild) IsIconAnimated() bool { return IsAnimated(g.IconHash) }

// IconURL returns "" for guilds without an icon.
func (g *Guild) IconURL() string {
	if g.IconHash == "" {
		return ""
	}
	return g.cdn.GuildIcon(g.ID, g.IconHash)
}
