package database

import (
	"database/sql"
)

type PgMatchLinkRepository struct {
	conn *sql.DB
}

func NewPgMatchLinkRepository(dsn string) (*PgMatchLinkRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &PgMatchLinkRepository{conn: db}, nil
}

func (db *PgMatchLinkRepository) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

func (db *PgMatchLinkRepository) Ping() error {
	return db.conn.Ping()
}
