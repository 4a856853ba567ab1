package repository

import (
	"context"

	"github.com/DAN1X27/messenger-service-sub000/internal/model"
)

const channelColumns = `id, owner_id, name, description, private, banned, comments_allowed, invites_allowed, files_allowed, created_at`

func scanChannel(row interface{ Scan(dest ...any) error }) (model.Channel, error) {
	var ch model.Channel
	err := row.Scan(
		&ch.ID,
		&ch.OwnerID,
		&ch.Name,
		&ch.Description,
		&ch.Private,
		&ch.Banned,
		&ch.CommentsAllowed,
		&ch.InvitesAllowed,
		&ch.FilesAllowed,
		&ch.CreatedAt,
	)
	return ch, err
}

func (q *Queries) CreateChannel(ctx context.Context, ch model.Channel) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO channels (id, owner_id, name, description, private, banned, comments_allowed, invites_allowed, files_allowed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, ch.ID, ch.OwnerID, ch.Name, ch.Description, ch.Private, ch.Banned, ch.CommentsAllowed, ch.InvitesAllowed, ch.FilesAllowed, ch.CreatedAt)
	return err
}

func (q *Queries) GetChannel(ctx context.Context, channelID string) (model.Channel, error) {
	row := q.db.QueryRow(ctx, `SELECT `+channelColumns+` FROM channels WHERE id = $1`, channelID)
	return scanChannel(row)
}

func (q *Queries) UpdateChannel(ctx context.Context, ch model.Channel) error {
	_, err := q.db.Exec(ctx, `
		UPDATE channels
		SET name = $1, description = $2, private = $3, comments_allowed = $4, invites_allowed = $5, files_allowed = $6
		WHERE id = $7
	`, ch.Name, ch.Description, ch.Private, ch.CommentsAllowed, ch.InvitesAllowed, ch.FilesAllowed, ch.ID)
	return err
}

func (q *Queries) SetChannelBanned(ctx context.Context, channelID string, banned bool) error {
	_, err := q.db.Exec(ctx, `UPDATE channels SET banned = $1 WHERE id = $2`, banned, channelID)
	return err
}

// DeleteChannel removes the channel row; memberships, invites, bans, posts and
// comments go with it via ON DELETE CASCADE.
func (q *Queries) DeleteChannel(ctx context.Context, channelID string) error {
	_, err := q.db.Exec(ctx, `DELETE FROM channels WHERE id = $1`, channelID)
	return err
}

func (q *Queries) ListChannelsForUser(ctx context.Context, userID string) ([]model.Channel, error) {
	rows, err := q.db.Query(ctx, `
		SELECT c.id, c.owner_id, c.name, c.description, c.private, c.banned, c.comments_allowed, c.invites_allowed, c.files_allowed, c.created_at
		FROM channels c
		JOIN channel_members m ON m.channel_id = c.id
		WHERE m.user_id = $1
		ORDER BY c.created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []model.Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

func (q *Queries) SearchChannels(ctx context.Context, query string, limit int) ([]model.Channel, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+channelColumns+` FROM channels
		WHERE NOT private AND NOT banned AND name ILIKE '%' || $1 || '%'
		ORDER BY name
		LIMIT $2
	`, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []model.Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}
