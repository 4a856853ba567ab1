package repository

import (
	"context"
	"fmt"

	"github.com/DAN1X27/messenger-service-sub000/internal/model"
)

func banTable(kind model.EntityKind) (table, column string) {
	switch kind {
	case model.KindChannel:
		return "channel_bans", "channel_id"
	case model.KindGroup:
		return "group_bans", "group_id"
	default:
		panic(fmt.Sprintf("no ban table for kind %q", kind))
	}
}

func (q *Queries) GetBan(ctx context.Context, kind model.EntityKind, entityID, userID string) (model.Ban, error) {
	table, column := banTable(kind)
	var ban model.Ban
	row := q.db.QueryRow(ctx, `
		SELECT `+column+`, user_id, banned_at
		FROM `+table+`
		WHERE `+column+` = $1 AND user_id = $2
	`, entityID, userID)
	err := row.Scan(&ban.EntityID, &ban.UserID, &ban.BannedAt)
	return ban, err
}

func (q *Queries) CreateBan(ctx context.Context, kind model.EntityKind, ban model.Ban) error {
	table, column := banTable(kind)
	_, err := q.db.Exec(ctx, `
		INSERT INTO `+table+` (`+column+`, user_id, banned_at)
		VALUES ($1, $2, $3)
	`, ban.EntityID, ban.UserID, ban.BannedAt)
	return err
}

func (q *Queries) DeleteBan(ctx context.Context, kind model.EntityKind, entityID, userID string) (bool, error) {
	table, column := banTable(kind)
	tag, err := q.db.Exec(ctx, `DELETE FROM `+table+` WHERE `+column+` = $1 AND user_id = $2`, entityID, userID)
	return tag.RowsAffected() > 0, err
}

func (q *Queries) ListBans(ctx context.Context, kind model.EntityKind, entityID string) ([]model.Ban, error) {
	table, column := banTable(kind)
	rows, err := q.db.Query(ctx, `
		SELECT `+column+`, user_id, banned_at
		FROM `+table+`
		WHERE `+column+` = $1
		ORDER BY banned_at
	`, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bans []model.Ban
	for rows.Next() {
		var ban model.Ban
		if err := rows.Scan(&ban.EntityID, &ban.UserID, &ban.BannedAt); err != nil {
			return nil, err
		}
		bans = append(bans, ban)
	}
	return bans, rows.Err()
}
