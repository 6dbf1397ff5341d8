package database

import "time"

type User struct {
	Id           int
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

type CreateAccountParams struct {
	Username     string
	PasswordHash string
}
