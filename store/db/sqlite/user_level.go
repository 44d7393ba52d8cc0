package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hrygo/sprachsense/store"
)

func (d *DB) GetUserLevel(ctx context.Context, find *store.FindUserLevel) (*store.UserLevel, error) {
	query := `SELECT user_id, level, updated_ts FROM user_level WHERE user_id = ` + placeholder(1)

	var level store.UserLevel
	if err := d.db.QueryRowContext(ctx, query, find.UserID).Scan(
		&level.UserID,
		&level.Level,
		&level.UpdatedTs,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user level: %w", err)
	}

	return &level, nil
}

func (d *DB) UpsertUserLevel(ctx context.Context, upsert *store.UserLevel) (*store.UserLevel, error) {
	stmt := `INSERT INTO user_level (user_id, level, updated_ts)
		VALUES (` + placeholders(3) + `)
		ON CONFLICT (user_id) DO UPDATE SET
			level = EXCLUDED.level,
			updated_ts = EXCLUDED.updated_ts`

	if _, err := d.db.ExecContext(ctx, stmt, upsert.UserID, upsert.Level, upsert.UpdatedTs); err != nil {
		return nil, fmt.Errorf("failed to upsert user level: %w", err)
	}

	return upsert, nil
}
