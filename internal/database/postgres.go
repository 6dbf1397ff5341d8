package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

type PgCharlaRepository struct {
	conn *sql.DB
}

func NewPgCharlaRepository(dsn string) (*PgCharlaRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &PgCharlaRepository{conn: db}, nil
}

// Migrate applies pending schema migrations from the given source, e.g.
// "file://migrations".
func (db *PgCharlaRepository) Migrate(sourceURL string) error {
	driver, err := postgres.WithInstance(db.conn, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("migrate driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(sourceURL, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migrate init: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}

	return nil
}

func (db *PgCharlaRepository) Ping() error {
	return db.conn.Ping()
}

func (db *PgCharlaRepository) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}
