package routes

import (
	"strconv"
	"time"

	"github.com/kabili207/discordweb/pkg/discord"
)

type userView struct {
	ID          string                `json:"id"`
	Username    string                `json:"username"`
	GlobalName  string                `json:"global_name,omitempty"`
	Display     string                `json:"display"`
	Migrated    bool                  `json:"migrated"`
	Bot         bool                  `json:"bot,omitempty"`
	AvatarURL   string                `json:"avatar_url"`
	Guilds      []guildView           `json:"guilds,omitempty"`
	Members     map[string]memberView `json:"members,omitempty"`
	Connections []connectionView      `json:"connections,omitempty"`
}

func newUserView(u *discord.User) userView {
	v := userView{
		ID:         u.ID.String(),
		Username:   u.Username,
		GlobalName: u.GlobalName,
		Display:    u.String(),
		Migrated:   u.IsMigrated,
		Bot:        u.Bot,
		AvatarURL:  u.AvatarURL(),
	}
	if guilds := u.Guilds(); guilds != nil {
		v.Guilds = guildViews(guilds)
	}
	if members := u.GuildMembers(); len(members) > 0 {
		v.Members = memberViews(members)
	}
	if conns := u.Connections(); conns != nil {
		v.Connections = connectionViews(conns)
	}
	return v
}

type guildView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	IconURL     string `json:"icon_url,omitempty"`
	Owner       bool   `json:"owner"`
	Permissions string `json:"permissions"`
	// Manageable is true when the user may manage the guild.
	Manageable bool `json:"manageable"`
}

func guildViews(guilds []*discord.Guild) []guildView {
	out := make([]guildView, 0, len(guilds))
	for _, g := range guilds {
		out = append(out, guildView{
			ID:          g.ID.String(),
			Name:        g.Name,
			IconURL:     g.IconURL(),
			Owner:       g.Owner,
			Permissions: strconv.FormatInt(int64(g.Permissions), 10),
			Manageable:  g.Owner || g.Permissions.ManageGuild(),
		})
	}
	return out
}

type memberView struct {
	UserID    string     `json:"user_id"`
	GuildID   string     `json:"guild_id"`
	Display   string     `json:"display"`
	Nick      string     `json:"nick,omitempty"`
	AvatarURL string     `json:"avatar_url,omitempty"`
	Roles     []string   `json:"roles"`
	JoinedAt  *time.Time `json:"joined_at,omitempty"`
	Pending   bool       `json:"pending"`
	TimedOut  bool       `json:"timed_out"`
}

func newMemberView(m *discord.GuildMember) memberView {
	roles := make([]string, 0, len(m.Roles))
	for _, r := range m.Roles {
		roles = append(roles, r.String())
	}
	return memberView{
		UserID:    m.ID.String(),
		GuildID:   m.GuildID.String(),
		Display:   m.String(),
		Nick:      m.Nick,
		AvatarURL: m.AvatarURL(),
		Roles:     roles,
		JoinedAt:  m.JoinedAt,
		Pending:   m.Pending,
		TimedOut:  m.TimedOut(time.Now()),
	}
}

func memberViews(members map[discord.Snowflake]*discord.GuildMember) map[string]memberView {
	out := make(map[string]memberView, len(members))
	for gid, m := range members {
		out[gid.String()] = newMemberView(m)
	}
	return out
}

type connectionView struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	Verified     bool   `json:"verified"`
	Visible      bool   `json:"visible"`
	Integrations int    `json:"integrations"`
}

func connectionViews(conns []*discord.UserConnection) []connectionView {
	out := make([]connectionView, 0, len(conns))
	for _, c := range conns {
		out = append(out, connectionView{
			ID:           c.ID,
			Name:         c.Name,
			Type:         c.Type,
			Verified:     c.Verified,
			Visible:      c.IsVisible(),
			Integrations: len(c.Integrations),
		})
	}
	return out
}
