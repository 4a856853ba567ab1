package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/DAN1X27/messenger-service-sub000/internal/model"
)

func inviteTable(kind model.EntityKind) (table, column string) {
	switch kind {
	case model.KindChannel:
		return "channel_invites", "channel_id"
	case model.KindGroup:
		return "group_invites", "group_id"
	default:
		panic(fmt.Sprintf("no invite table for kind %q", kind))
	}
}

func (q *Queries) GetInvite(ctx context.Context, kind model.EntityKind, entityID, userID string) (model.Invite, error) {
	table, column := inviteTable(kind)
	var invite model.Invite
	row := q.db.QueryRow(ctx, `
		SELECT `+column+`, user_id, sent_at, expires_at
		FROM `+table+`
		WHERE `+column+` = $1 AND user_id = $2
	`, entityID, userID)
	err := row.Scan(&invite.EntityID, &invite.UserID, &invite.SentAt, &invite.ExpiresAt)
	return invite, err
}

func (q *Queries) CreateInvite(ctx context.Context, kind model.EntityKind, invite model.Invite) error {
	table, column := inviteTable(kind)
	_, err := q.db.Exec(ctx, `
		INSERT INTO `+table+` (`+column+`, user_id, sent_at, expires_at)
		VALUES ($1, $2, $3, $4)
	`, invite.EntityID, invite.UserID, invite.SentAt, invite.ExpiresAt)
	return err
}

func (q *Queries) DeleteInvite(ctx context.Context, kind model.EntityKind, entityID, userID string) (bool, error) {
	table, column := inviteTable(kind)
	tag, err := q.db.Exec(ctx, `DELETE FROM `+table+` WHERE `+column+` = $1 AND user_id = $2`, entityID, userID)
	return tag.RowsAffected() > 0, err
}

func (q *Queries) ListInvites(ctx context.Context, kind model.EntityKind, entityID string) ([]model.Invite, error) {
	table, column := inviteTable(kind)
	rows, err := q.db.Query(ctx, `
		SELECT `+column+`, user_id, sent_at, expires_at
		FROM `+table+`
		WHERE `+column+` = $1
		ORDER BY sent_at
	`, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invites []model.Invite
	for rows.Next() {
		var invite model.Invite
		if err := rows.Scan(&invite.EntityID, &invite.UserID, &invite.SentAt, &invite.ExpiresAt); err != nil {
			return nil, err
		}
		invites = append(invites, invite)
	}
	return invites, rows.Err()
}

func (q *Queries) PurgeExpiredInvites(ctx context.Context, kind model.EntityKind, before time.Time) (int64, error) {
	table, _ := inviteTable(kind)
	tag, err := q.db.Exec(ctx, `DELETE FROM `+table+` WHERE expires_at < $1`, before)
	return tag.RowsAffected(), err
}
