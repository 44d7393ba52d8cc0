package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/hrygo/sprachsense/store"
)

func (d *DB) UpsertTopicMemory(ctx context.Context, upsert *store.TopicMemory) (*store.TopicMemory, error) {
	fields := []string{
		"user_id", "topic", "skill_type", "category", "context",
		"quality", "correct_count",
		"ease", "repetitions", "interval_days", "next_review_ts", "last_review_ts",
	}
	args := []any{
		upsert.UserID, upsert.Topic, upsert.SkillType, upsert.Category, upsert.Context,
		upsert.Quality, upsert.CorrectCount,
		upsert.Ease, upsert.Repetitions, upsert.IntervalDays, upsert.NextReviewTs, upsert.LastReviewTs,
	}

	stmt := `INSERT INTO topic_memory (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		ON CONFLICT (user_id, topic, skill_type) DO UPDATE SET
			category = EXCLUDED.category,
			context = EXCLUDED.context,
			quality = EXCLUDED.quality,
			correct_count = EXCLUDED.correct_count,
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
		return nil, fmt.Errorf("failed to upsert topic memory: %w", err)
	}

	return upsert, nil
}

func (d *DB) ListTopicMemories(ctx context.Context, find *store.FindTopicMemory) ([]*store.TopicMemory, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "topic_memory.id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UserID; v != nil {
		where, args = append(where, "topic_memory.user_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Topic; v != nil {
		where, args = append(where, "topic_memory.topic = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.SkillType; v != nil {
		where, args = append(where, "topic_memory.skill_type = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Category; v != nil {
		where, args = append(where, "topic_memory.category = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.DueBeforeTs; v != nil {
		where, args = append(where, "topic_memory.next_review_ts <= "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `
		SELECT
			id, user_id, topic, skill_type, category, context,
			quality, correct_count,
			ease, repetitions, interval_days,
			next_review_ts, last_review_ts, created_ts
		FROM topic_memory
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY topic_memory.next_review_ts ASC, topic_memory.topic ASC`

	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query topic memories: %w", err)
	}
	defer rows.Close()

	list := make([]*store.TopicMemory, 0)
	for rows.Next() {
		var memory store.TopicMemory
		if err := rows.Scan(
			&memory.ID,
			&memory.UserID,
			&memory.Topic,
			&memory.SkillType,
			&memory.Category,
			&memory.Context,
			&memory.Quality,
			&memory.CorrectCount,
			&memory.Ease,
			&memory.Repetitions,
			&memory.IntervalDays,
			&memory.NextReviewTs,
			&memory.LastReviewTs,
			&memory.CreatedTs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan topic memory: %w", err)
		}
		list = append(list, &memory)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate topic memories: %w", err)
	}

	return list, nil
}

func (d *DB) DeleteTopicMemory(ctx context.Context, delete *store.DeleteTopicMemory) error {
	stmt := `DELETE FROM topic_memory WHERE id = ` + placeholder(1) + ` AND user_id = ` + placeholder(2)
	result, err := d.db.ExecContext(ctx, stmt, delete.ID, delete.UserID)
	if err != nil {
		return fmt.Errorf("failed to delete topic memory: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("topic memory not found")
	}

	return nil
}
