package database

import (
	"errors"
	"time"

	"github.com/lib/pq"
)

// ErrDuplicateUsername is returned when an account insert hits the
// unique constraint on username.
var ErrDuplicateUsername = errors.New("username already taken")

const uniqueViolation = pq.ErrorCode("23505")

func (db *PgCharlaRepository) CreateAccount(params CreateAccountParams) (User, error) {
	res := db.conn.QueryRow(
		"INSERT INTO accounts (username, password_hash, created_at) "+
			"VALUES ($1, $2, $3) RETURNING id, username",
		params.Username,
		params.PasswordHash,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Username,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return User{}, ErrDuplicateUsername
		}
		return User{}, err
	}

	return u, nil
}

func (db *PgCharlaRepository) GetAccountByUsername(username string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, password_hash FROM accounts "+
			"WHERE username = $1 LIMIT 1",
		username,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.PasswordHash,
	)

	return user, err
}
