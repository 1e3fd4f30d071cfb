package store

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/kabili207/discordweb/pkg/models"
)

var selectUsers = `SELECT u.* FROM users u`

type UserStore interface {
	GetByID(id int) (*models.User, error)
	GetByDiscordID(id int64) (*models.User, error)
	// SaveLogin inserts or refreshes a user and stamps the login time.
	SaveLogin(user *models.User) (*models.User, error)
}

type postgresUserStore struct {
	db *sqlx.DB
}

func NewUsers(dbconn *sqlx.DB) UserStore {
	return &postgresUserStore{db: dbconn}
}

func (b *postgresUserStore) GetByID(id int) (*models.User, error) {
	getUserStatement := selectUsers + " WHERE u.id=$1;"
	var user models.User
	err := b.db.Get(&user, getUserStatement, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &user, err
}

func (b *postgresUserStore) GetByDiscordID(id int64) (*models.User, error) {
	getUserStatement := selectUsers + " WHERE u.discord_id = $1;"
	var user models.User
	err := b.db.Get(&user, getUserStatement, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &user, err
}

func (b *postgresUserStore) SaveLogin(user *models.User) (*models.User, error) {
	stmt := `
	INSERT INTO users (discord_id, username, display_name, avatar, last_login)
	VALUES (:discord_id, :username, :display_name, :avatar, now())
	ON CONFLICT(discord_id)
	DO UPDATE
	  SET username = :username,
		  display_name = :display_name,
		  avatar = :avatar,
		  last_login = now()
	;
	`

	_, err := b.db.NamedExec(stmt, user)
	if err != nil {
		return nil, err
	}
	// LastInsertId is not supported by the postgres driver
	return b.GetByDiscordID(user.DiscordID)
}
