package database

import (
	"context"
	"database/sql"

	"github.com/go-faster/errors"
)

func InsertIntoWhitelist(ctx context.Context, db *sql.DB, username string, id int64) error {
	_, err := db.ExecContext(ctx, `INSERT OR IGNORE INTO whitelist (user_id, username) VALUES (?, ?)`, id, username)
	if err != nil {
		return errors.Wrap(err, "insert into whitelist")
	}
	return nil
}
