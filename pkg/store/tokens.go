package store

import (
	"github.com/jmoiron/sqlx"
	"github.com/kabili207/discordweb/pkg/models"
)

type OAuthTokenStore interface {
	// GetTokenForDiscordID returns sql.ErrNoRows when the user has no token.
	GetTokenForDiscordID(id int64) (models.OAuthToken, error)
	SaveToken(token models.OAuthToken) error
	DeleteForUser(userID int) error
}

type postgresOAuthTokenStore struct {
	db *sqlx.DB
}

func NewOAuthTokens(dbconn *sqlx.DB) OAuthTokenStore {
	return &postgresOAuthTokenStore{db: dbconn}
}

func (b *postgresOAuthTokenStore) GetTokenForDiscordID(id int64) (models.OAuthToken, error) {
	stmt := `SELECT t.* FROM oauth_tokens t INNER JOIN users u ON u.id = t.user_id WHERE u.discord_id = $1;`
	var token models.OAuthToken
	err := b.db.Get(&token, stmt, id)
	return token, err
}

func (b *postgresOAuthTokenStore) SaveToken(token models.OAuthToken) error {
	stmt := `
	INSERT INTO oauth_tokens (user_id, token_type, access_token, refresh_token, expiration)
	VALUES (:user_id, :token_type, :access_token, :refresh_token, :expiration)
	ON CONFLICT(user_id)
	DO UPDATE
	  SET token_type = :token_type,
		  access_token = :access_token,
		  refresh_token = :refresh_token,
		  expiration = :expiration
	;
	`

	_, err := b.db.NamedExec(stmt, token)
	return err
}

func (b *postgresOAuthTokenStore) DeleteForUser(userID int) error {
	_, err := b.db.Exec(`DELETE FROM oauth_tokens WHERE user_id = $1;`, userID)
	return err
}
