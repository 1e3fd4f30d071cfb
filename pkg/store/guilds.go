package store

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/kabili207/discordweb/pkg/models"
)

var selectGuilds = `SELECT g.* FROM user_guilds g`

type GuildStore interface {
	GetByDiscordID(id int64) ([]*models.GuildInfo, error)
	// ReplaceForUser makes guilds the complete set stored for the user.
	ReplaceForUser(discordID int64, guilds []*models.GuildInfo) error
}

type postgresGuildStore struct {
	db *sqlx.DB
}

func NewGuilds(dbconn *sqlx.DB) GuildStore {
	return &postgresGuildStore{db: dbconn}
}

func (b *postgresGuildStore) GetByDiscordID(id int64) ([]*models.GuildInfo, error) {
	stmt := selectGuilds + " WHERE g.discord_id = $1 ORDER BY g.name;"
	obj := []*models.GuildInfo{}
	err := b.db.Select(&obj, stmt, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return obj, err
}

func (b *postgresGuildStore) ReplaceForUser(discordID int64, guilds []*models.GuildInfo) error {
	tx, err := b.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := deleteGuildsExcept(tx, discordID, guilds); err != nil {
		return err
	}

	stmt := `
	INSERT INTO user_guilds (discord_id, guild_id, name, icon, owner, permissions, updated)
	VALUES (:discord_id, :guild_id, :name, :icon, :owner, :permissions, now())
	ON CONFLICT(discord_id, guild_id)
	DO UPDATE
	  SET name = :name,
		  icon = :icon,
		  owner = :owner,
		  permissions = :permissions,
		  updated = now()
	;
	`
	for _, g := range guilds {
		g.DiscordID = discordID
		if _, err := tx.NamedExec(stmt, g); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func deleteGuildsExcept(tx *sqlx.Tx, discordID int64, keep []*models.GuildInfo) error {
	if len(keep) == 0 {
		_, err := tx.Exec(`DELETE FROM user_guilds WHERE discord_id = $1;`, discordID)
		return err
	}
	ids := make([]int64, 0, len(keep))
	for _, g := range keep {
		ids = append(ids, g.GuildID)
	}
	query, args, err := sqlx.In(`DELETE FROM user_guilds WHERE discord_id = ? AND guild_id NOT IN (?);`, discordID, ids)
	if err != nil {
		return err
	}
	_, err = tx.Exec(tx.Rebind(query), args...)
	return err
}
