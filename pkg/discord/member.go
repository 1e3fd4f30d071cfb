package discord

import (
	"encoding/json"
	"time"
)

type guildMemberPayload struct {
	User                       json.RawMessage `json:"user"`
	Nick                       *string         `json:"nick"`
	Avatar                     *string         `json:"avatar"`
	Roles                      []Snowflake     `json:"roles"`
	JoinedAt                   *time.Time      `json:"joined_at"`
	PremiumSince               *time.Time      `json:"premium_since"`
	Deaf                       bool            `json:"deaf"`
	Mute                       bool            `json:"mute"`
	Flags                      int             `json:"flags"`
	Pending                    bool            `json:"pending"`
	Permissions                Permissions     `json:"permissions"`
	CommunicationDisabledUntil *time.Time      `json:"communication_disabled_until"`
}

// GuildMember is the current user's membership in one guild.
type GuildMember struct {
	// ID is the member's user ID.
	ID           Snowflake
	GuildID      Snowflake
	User         *User
	Nick         string
	AvatarHash   string
	Roles        []Snowflake
	JoinedAt     *time.Time
	PremiumSince *time.Time
	Deaf         bool
	Mute         bool
	Flags        int
	// Pending is true until the member passes membership screening.
	Pending                    bool
	Permissions                Permissions
	CommunicationDisabledUntil *time.Time

	globalName string
	raw        json.RawMessage
	cdn        CDN
}

// NewGuildMember builds a member of guildID from a raw payload.
func NewGuildMember(payload []byte, guildID Snowflake) (*GuildMember, error) {
	return newGuildMember(payload, guildID, CDN{})
}

func newGuildMember(payload []byte, guildID Snowflake, cdn CDN) (*GuildMember, error) {
	var p guildMemberPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, err
	}
	if len(p.User) == 0 || string(p.User) == "null" {
		return nil, ErrNoUser
	}
	user, err := newUser(p.User, cdn)
	if err != nil {
		return nil, err
	}
	var nested struct {
		GlobalName *string `json:"global_name"`
	}
	if err := json.Unmarshal(p.User, &nested); err != nil {
		return nil, err
	}
	m := &GuildMember{
		ID:                         user.ID,
		GuildID:                    guildID,
		User:                       user,
		Roles:                      p.Roles,
		JoinedAt:                   p.JoinedAt,
		PremiumSince:               p.PremiumSince,
		Deaf:                       p.Deaf,
		Mute:                       p.Mute,
		Flags:                      p.Flags,
		Pending:                    p.Pending,
		Permissions:                p.Permissions,
		CommunicationDisabledUntil: p.CommunicationDisabledUntil,
		raw:                        append(json.RawMessage(nil), payload...),
		cdn:                        cdn,
	}
	if p.Nick != nil {
		m.Nick = *p.Nick
	}
	if p.Avatar != nil {
		m.AvatarHash = *p.Avatar
	}
	if nested.GlobalName != nil {
		m.globalName = *nested.GlobalName
	}
	return m, nil
}

func (m *GuildMember) JSON() json.RawMessage { return m.raw }

// String returns the name shown in the guild: the nick, else the user's
// global_name as sent, else the username.
func (m *GuildMember) String() string {
	if m.Nick != "" {
		return m.Nick
	}
	if m.globalName != "" {
		return m.globalName
	}
	return m.User.Username
}

// Equal compares user IDs only. Members of different guilds with the same
// user are equal.
func (m *GuildMember) Equal(other *GuildMember) bool {
	return m != nil && other != nil && m.ID == other.ID
}

func (m *GuildMember) IsAvatarAnimated() bool { return IsAnimated(m.AvatarHash) }

// AvatarURL returns the guild specific avatar, or "" if the member has none.
func (m *GuildMember) AvatarURL() string {
	if m.AvatarHash == "" {
		return ""
	}
	return m.cdn.GuildMemberAvatar(m.GuildID, m.ID, m.AvatarHash)
}

// HasRole reports whether the member has the given role.
func (m *GuildMember) HasRole(roleID Snowflake) bool {
	for _, r := range m.Roles {
		if r == roleID {
			return true
		}
	}
	return false
}

// TimedOut reports whether the member cannot communicate at time t.
func (m *GuildMember) TimedOut(t time.Time) bool {
	return m.CommunicationDisabledUntil != nil && t.Before(*m.CommunicationDisabledUntil)
}
