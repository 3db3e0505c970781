package database

import (
	"context"
	"database/sql"

	"github.com/go-faster/errors"
)

type WhitelistEntry struct {
	UserID   int64
	Username string
}

func IsUserInWhitelist(ctx context.Context, db *sql.DB, userID int64) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM whitelist WHERE user_id = ?)", userID).Scan(&exists)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, errors.Wrap(err, "check whitelist")
	}
	return exists, nil
}

func GetAllWhitelist(ctx context.Context, db *sql.DB) ([]WhitelistEntry, error) {
	rows, err := db.QueryContext(ctx, "SELECT user_id, username FROM whitelist ORDER BY user_id")
	if err != nil {
		return nil, errors.Wrap(err, "query whitelist")
	}
	defer rows.Close()

	var entries []WhitelistEntry
	for rows.Next() {
		var e WhitelistEntry
		if err := rows.Scan(&e.UserID, &e.Username); err != nil {
			return nil, errors.Wrap(err, "scan whitelist")
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
