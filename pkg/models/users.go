package models

import "time"

// User is a Discord account that has logged in at least once.
type User struct {
	ID          int        `db:"id"`
	DiscordID   int64      `db:"discord_id"`
	UserName    string     `db:"username"`
	DisplayName *string    `db:"display_name"`
	Avatar      *string    `db:"avatar"`
	Created     time.Time  `db:"created"`
	LastLogin   *time.Time `db:"last_login"`
}
