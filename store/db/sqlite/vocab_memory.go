package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/hrygo/sprachsense/store"
)

func (d *DB) UpsertVocabMemory(ctx context.Context, upsert *store.VocabMemory) (*store.VocabMemory, error) {
	fields := []string{
		"user_id", "word", "display", "translation", "context",
		"ease", "repetitions", "interval_days", "next_review_ts", "last_review_ts",
	}
	args := []any{
		upsert.UserID, upsert.Word, upsert.Display, upsert.Translation, upsert.Context,
		upsert.Ease, upsert.Repetitions, upsert.IntervalDays, upsert.NextReviewTs, upsert.LastReviewTs,
	}

	stmt := `INSERT INTO vocab_memory (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		ON CONFLICT (user_id, word) DO UPDATE SET
			display = EXCLUDED.display,
			translation = EXCLUDED.translation,
			context = EXCLUDED.context,
			ease = EXCLUDED.ease,
			repetitions = EXCLUDED.repetitions,
			interval_days = EXCLUDED.interval_days,
			next_review_ts = EXCLUDED.next_review_ts,
			last_review_ts = EXCLUDED.last_review_ts
		RETURNING id, created_ts`

	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(
		&upsert.ID,
		&upsert.CreatedTs,
	); err != nil {
		return nil, fmt.Errorf("failed to upsert vocab memory: %w", err)
	}

	return upsert, nil
}

func (d *DB) ListVocabMemories(ctx context.Context, find *store.FindVocabMemory) ([]*store.VocabMemory, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "vocab_memory.id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UserID; v != nil {
		where, args = append(where, "vocab_memory.user_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Word; v != nil {
		where, args = append(where, "vocab_memory.word = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.DueBeforeTs; v != nil {
		where, args = append(where, "vocab_memory.next_review_ts <= "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `
		SELECT
			id, user_id, word, display, translation, context,
			ease, repetitions, interval_days,
			next_review_ts, last_review_ts, created_ts
		FROM vocab_memory
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY vocab_memory.next_review_ts ASC, vocab_memory.word ASC`

	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query vocab memories: %w", err)
	}
	defer rows.Close()

	list := make([]*store.VocabMemory, 0)
	for rows.Next() {
		var memory store.VocabMemory
		if err := rows.Scan(
			&memory.ID,
			&memory.UserID,
			&memory.Word,
			&memory.Display,
			&memory.Translation,
			&memory.Context,
			&memory.Ease,
			&memory.Repetitions,
			&memory.IntervalDays,
			&memory.NextReviewTs,
			&memory.LastReviewTs,
			&memory.CreatedTs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan vocab memory: %w", err)
		}
		list = append(list, &memory)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate vocab memories: %w", err)
	}

	return list, nil
}

func (d *DB) DeleteVocabMemory(ctx context.Context, delete *store.DeleteVocabMemory) error {
	stmt := `DELETE FROM vocab_memory WHERE id = ` + placeholder(1) + ` AND user_id = ` + placeholder(2)
	result, err := d.db.ExecContext(ctx, stmt, delete.ID, delete.UserID)
	if err != nil {
		return fmt.Errorf("failed to delete vocab memory: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("vocab memory not found")
	}

	return nil
}
