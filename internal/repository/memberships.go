package repository

import (
	"context"
	"fmt"

	"github.com/DAN1X27/messenger-service-sub000/internal/model"
)

// membershipTable maps an entity kind to its membership table and entity column.
// Only channel and group carry memberships; chats are fixed pairs.
func membershipTable(kind model.EntityKind) (table, column string) {
	switch kind {
	case model.KindChannel:
		return "channel_members", "channel_id"
	case model.KindGroup:
		return "group_members", "group_id"
	default:
		panic(fmt.Sprintf("no membership table for kind %q", kind))
	}
}

func (q *Queries) GetMembership(ctx context.Context, kind model.EntityKind, entityID, userID string) (model.Membership, error) {
	table, column := membershipTable(kind)
	var m model.Membership
	row := q.db.QueryRow(ctx, `
		SELECT `+column+`, user_id, is_admin, joined_at
		FROM `+table+`
		WHERE `+column+` = $1 AND user_id = $2
	`, entityID, userID)
	err := row.Scan(&m.EntityID, &m.UserID, &m.IsAdmin, &m.JoinedAt)
	return m, err
}

func (q *Queries) CreateMembership(ctx context.Context, kind model.EntityKind, m model.Membership) error {
	table, column := membershipTable(kind)
	_, err := q.db.Exec(ctx, `
		INSERT INTO `+table+` (`+column+`, user_id, is_admin, joined_at)
		VALUES ($1, $2, $3, $4)
	`, m.EntityID, m.UserID, m.IsAdmin, m.JoinedAt)
	return err
}

func (q *Queries) DeleteMembership(ctx context.Context, kind model.EntityKind, entityID, userID string) (bool, error) {
	table, column := membershipTable(kind)
	tag, err := q.db.Exec(ctx, `DELETE FROM `+table+` WHERE `+column+` = $1 AND user_id = $2`, entityID, userID)
	return tag.RowsAffected() > 0, err
}

func (q *Queries) SetMembershipAdmin(ctx context.Context, kind model.EntityKind, entityID, userID string, isAdmin bool) (bool, error) {
	table, column := membershipTable(kind)
	tag, err := q.db.Exec(ctx, `
		UPDATE `+table+` SET is_admin = $1 WHERE `+column+` = $2 AND user_id = $3
	`, isAdmin, entityID, userID)
	return tag.RowsAffected() > 0, err
}

func (q *Queries) ListMembers(ctx context.Context, kind model.EntityKind, entityID string) ([]model.Membership, error) {
	table, column := membershipTable(kind)
	rows, err := q.db.Query(ctx, `
		SELECT `+column+`, user_id, is_admin, joined_at
		FROM `+table+`
		WHERE `+column+` = $1
		ORDER BY joined_at
	`, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []model.Membership
	for rows.Next() {
		var m model.Membership
		if err := rows.Scan(&m.EntityID, &m.UserID, &m.IsAdmin, &m.JoinedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (q *Queries) ListMemberIDs(ctx context.Context, kind model.EntityKind, entityID string) ([]string, error) {
	table, column := membershipTable(kind)
	rows, err := q.db.Query(ctx, `SELECT user_id FROM `+table+` WHERE `+column+` = $1`, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListEntityIDsForUser returns every channel or group id the user belongs to; the
// fan-out layer uses it to resolve subscriptions and presence audiences.
func (q *Queries) ListEntityIDsForUser(ctx context.Context, kind model.EntityKind, userID string) ([]string, error) {
	table, column := membershipTable(kind)
	rows, err := q.db.Query(ctx, `SELECT `+column+` FROM `+table+` WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
