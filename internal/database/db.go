package database

import (
	"context"
	"database/sql"

	"github.com/go-faster/errors"
	_ "github.com/glebarez/go-sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS whitelist (
	user_id  INTEGER PRIMARY KEY,
	username TEXT UNIQUE
);
CREATE TABLE IF NOT EXISTS sessions (
	chat_id    INTEGER PRIMARY KEY,
	url        TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

func InitDB(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	// SQLite serialises writers anyway; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "create tables")
	}
	return db, nil
}
