package models

import "time"

// GuildInfo is the last known state of a guild a user belongs to.
type GuildInfo struct {
	DiscordID   int64     `db:"discord_id"`
	GuildID     int64     `db:"guild_id"`
	Name        string    `db:"name"`
	Icon        *string   `db:"icon"`
	Owner       bool      `db:"owner"`
	Permissions int64     `db:"permissions"`
	Updated     time.Time `db:"updated"`
}
