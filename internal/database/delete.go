package database

import (
	"context"
	"database/sql"

	"github.com/go-faster/errors"
)

// DeleteUser removes a whitelisted user and reports whether a row was removed.
func DeleteUser(ctx context.Context, db *sql.DB, username string) (bool, error) {
	res, err := db.ExecContext(ctx, "DELETE FROM whitelist WHERE username = ?", username)
	if err != nil {
		return false, errors.Wrap(err, "delete from whitelist")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "rows affected")
	}
	return n > 0, nil
}
