package store

import (
	"embed"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

//go:embed migrations/*.sql
var dbMigrations embed.FS

// Stores one stop for stores
type Stores struct {
	Users       UserStore
	OAuthTokens OAuthTokenStore
	Guilds      GuildStore
	db          *sqlx.DB
}

// New create all the stores
func New(dbconn *sqlx.DB) (*Stores, error) {
	return &Stores{
		db:          dbconn,
		Users:       NewUsers(dbconn),
		OAuthTokens: NewOAuthTokens(dbconn),
		Guilds:      NewGuilds(dbconn),
	}, nil
}

func (b *Stores) RunMigrations() error {
	driver, err := postgres.WithInstance(b.db.DB, &postgres.Config{})
	if err != nil {
		return err
	}

	d, err := iofs.New(dbMigrations, "migrations")
	if err != nil {
		return err
	}

	m, err := migrate.NewWithInstance("iofs", d, "postgres", driver)
	if err != nil {
		return err
	}

	err = m.Up()

	switch err {
	case migrate.ErrNoChange:
		return nil
	}

	return err
}

func (b *Stores) Close() error {
	return b.db.Close()
}
