package repository

import (
	"context"
	"time"

	"github.com/DAN1X27/messenger-service-sub000/internal/model"
)

func (q *Queries) CreateModerationLog(ctx context.Context, entry model.ModerationLog) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO moderation_logs (id, entity_kind, entity_id, actor_id, target_id, action, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, entry.ID, entry.EntityKind, entry.EntityID, entry.ActorID, entry.TargetID, entry.Action, entry.CreatedAt, entry.ExpiresAt)
	return err
}

func (q *Queries) ListModerationLogs(ctx context.Context, kind model.EntityKind, entityID string, limit int) ([]model.ModerationLog, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, entity_kind, entity_id, actor_id, target_id, action, created_at, expires_at
		FROM moderation_logs
		WHERE entity_kind = $1 AND entity_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`, kind, entityID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.ModerationLog
	for rows.Next() {
		var entry model.ModerationLog
		if err := rows.Scan(&entry.ID, &entry.EntityKind, &entry.EntityID, &entry.ActorID, &entry.TargetID, &entry.Action, &entry.CreatedAt, &entry.ExpiresAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (q *Queries) DeleteModerationLogs(ctx context.Context, kind model.EntityKind, entityID string) error {
	_, err := q.db.Exec(ctx, `DELETE FROM moderation_logs WHERE entity_kind = $1 AND entity_id = $2`, kind, entityID)
	return err
}

func (q *Queries) PurgeExpiredModerationLogs(ctx context.Context, before time.Time) (int64, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM moderation_logs WHERE expires_at < $1`, before)
	return tag.RowsAffected(), err
}
