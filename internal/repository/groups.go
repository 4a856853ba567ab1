package repository

import (
	"context"

	"github.com/DAN1X27/messenger-service-sub000/internal/model"
)

const groupColumns = `id, owner_id, name, description, private, invites_allowed, files_allowed, created_at`

func scanGroup(row interface{ Scan(dest ...any) error }) (model.Group, error) {
	var g model.Group
	err := row.Scan(
		&g.ID,
		&g.OwnerID,
		&g.Name,
		&g.Description,
		&g.Private,
		&g.InvitesAllowed,
		&g.FilesAllowed,
		&g.CreatedAt,
	)
	return g, err
}

func (q *Queries) CreateGroup(ctx context.Context, g model.Group) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO groups (id, owner_id, name, description, private, invites_allowed, files_allowed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, g.ID, g.OwnerID, g.Name, g.Description, g.Private, g.InvitesAllowed, g.FilesAllowed, g.CreatedAt)
	return err
}

func (q *Queries) GetGroup(ctx context.Context, groupID string) (model.Group, error) {
	row := q.db.QueryRow(ctx, `SELECT `+groupColumns+` FROM groups WHERE id = $1`, groupID)
	return scanGroup(row)
}

func (q *Queries) UpdateGroup(ctx context.Context, g model.Group) error {
	_, err := q.db.Exec(ctx, `
		UPDATE groups
		SET name = $1, description = $2, private = $3, invites_allowed = $4, files_allowed = $5
		WHERE id = $6
	`, g.Name, g.Description, g.Private, g.InvitesAllowed, g.FilesAllowed, g.ID)
	return err
}

// DeleteGroup removes the group row; memberships, invites and bans cascade. Group
// messages live in the shared messages table and are removed explicitly.
func (q *Queries) DeleteGroup(ctx context.Context, groupID string) error {
	if _, err := q.db.Exec(ctx, `DELETE FROM messages WHERE kind = 'group' AND scope_id = $1`, groupID); err != nil {
		return err
	}
	_, err := q.db.Exec(ctx, `DELETE FROM groups WHERE id = $1`, groupID)
	return err
}

func (q *Queries) ListGroupsForUser(ctx context.Context, userID string) ([]model.Group, error) {
	rows, err := q.db.Query(ctx, `
		SELECT g.id, g.owner_id, g.name, g.description, g.private, g.invites_allowed, g.files_allowed, g.created_at
		FROM groups g
		JOIN group_members m ON m.group_id = g.id
		WHERE m.user_id = $1
		ORDER BY g.created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []model.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (q *Queries) SearchGroups(ctx context.Context, query string, limit int) ([]model.Group, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+groupColumns+` FROM groups
		WHERE NOT private AND name ILIKE '%' || $1 || '%'
		ORDER BY name
		LIMIT $2
	`, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []model.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}
