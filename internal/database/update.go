package database

import (
	"context"
	"database/sql"

	"github.com/go-faster/errors"
)

// UpsertSession records url as the latest link of chatID, replacing any
// previous one.
func UpsertSession(ctx context.Context, db *sql.DB, chatID int64, url string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO sessions (chat_id, url, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(chat_id) DO UPDATE SET url = excluded.url, updated_at = excluded.updated_at`,
		chatID, url)
	if err != nil {
		return errors.Wrap(err, "upsert session")
	}
	return nil
}

func GetSession(ctx context.Context, db *sql.DB, chatID int64) (string, bool, error) {
	var url string
	err := db.QueryRowContext(ctx, "SELECT url FROM sessions WHERE chat_id = ?", chatID).Scan(&url)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "get session")
	}
	return url, true, nil
}
