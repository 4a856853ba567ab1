package repository

import (
	"context"

	"github.com/DAN1X27/messenger-service-sub000/internal/model"
)

const friendshipColumns = `id, owner_id, friend_id, status, created_at`

func scanFriendship(row interface{ Scan(dest ...any) error }) (model.Friendship, error) {
	var f model.Friendship
	err := row.Scan(&f.ID, &f.OwnerID, &f.FriendID, &f.Status, &f.CreatedAt)
	return f, err
}

// GetFriendship looks the pair up in both orderings; exactly one row may exist per
// unordered pair.
func (q *Queries) GetFriendship(ctx context.Context, userA, userB string) (model.Friendship, error) {
	row := q.db.QueryRow(ctx, `
		SELECT `+friendshipColumns+` FROM friendships
		WHERE (owner_id = $1 AND friend_id = $2) OR (owner_id = $2 AND friend_id = $1)
	`, userA, userB)
	return scanFriendship(row)
}

func (q *Queries) CreateFriendship(ctx context.Context, f model.Friendship) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO friendships (id, owner_id, friend_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, f.ID, f.OwnerID, f.FriendID, f.Status, f.CreatedAt)
	return err
}

func (q *Queries) UpdateFriendshipStatus(ctx context.Context, friendshipID string, status model.FriendshipStatus) error {
	_, err := q.db.Exec(ctx, `UPDATE friendships SET status = $1 WHERE id = $2`, status, friendshipID)
	return err
}

func (q *Queries) DeleteFriendship(ctx context.Context, userA, userB string) (bool, error) {
	tag, err := q.db.Exec(ctx, `
		DELETE FROM friendships
		WHERE (owner_id = $1 AND friend_id = $2) OR (owner_id = $2 AND friend_id = $1)
	`, userA, userB)
	return tag.RowsAffected() > 0, err
}

func (q *Queries) ListFriendships(ctx context.Context, userID string, status model.FriendshipStatus) ([]model.Friendship, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+friendshipColumns+` FROM friendships
		WHERE (owner_id = $1 OR friend_id = $1) AND status = $2
		ORDER BY created_at
	`, userID, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var friendships []model.Friendship
	for rows.Next() {
		f, err := scanFriendship(rows)
		if err != nil {
			return nil, err
		}
		friendships = append(friendships, f)
	}
	return friendships, rows.Err()
}

// ListIncomingRequests returns pending requests where userID is the recipient.
func (q *Queries) ListIncomingRequests(ctx context.Context, userID string) ([]model.Friendship, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+friendshipColumns+` FROM friendships
		WHERE friend_id = $1 AND status = 'waiting'
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var friendships []model.Friendship
	for rows.Next() {
		f, err := scanFriendship(rows)
		if err != nil {
			return nil, err
		}
		friendships = append(friendships, f)
	}
	return friendships, rows.Err()
}
