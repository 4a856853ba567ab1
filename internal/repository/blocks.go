package repository

import (
	"context"

	"github.com/DAN1X27/messenger-service-sub000/internal/model"
)

func (q *Queries) GetBlock(ctx context.Context, ownerID, blockedID string) (model.Block, error) {
	var b model.Block
	row := q.db.QueryRow(ctx, `
		SELECT owner_id, blocked_id, created_at FROM blocks
		WHERE owner_id = $1 AND blocked_id = $2
	`, ownerID, blockedID)
	err := row.Scan(&b.OwnerID, &b.BlockedID, &b.CreatedAt)
	return b, err
}

// BlockedEitherDirection reports whether a block exists between the pair in either
// direction. Invites, direct messages and friend requests are all gated on this.
func (q *Queries) BlockedEitherDirection(ctx context.Context, userA, userB string) (bool, error) {
	var blocked bool
	err := q.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM blocks
			WHERE (owner_id = $1 AND blocked_id = $2) OR (owner_id = $2 AND blocked_id = $1)
		)
	`, userA, userB).Scan(&blocked)
	return blocked, err
}

func (q *Queries) CreateBlock(ctx context.Context, b model.Block) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO blocks (owner_id, blocked_id, created_at)
		VALUES ($1, $2, $3)
	`, b.OwnerID, b.BlockedID, b.CreatedAt)
	return err
}

func (q *Queries) DeleteBlock(ctx context.Context, ownerID, blockedID string) (bool, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM blocks WHERE owner_id = $1 AND blocked_id = $2`, ownerID, blockedID)
	return tag.RowsAffected() > 0, err
}

func (q *Queries) ListBlocks(ctx context.Context, ownerID string) ([]model.Block, error) {
	rows, err := q.db.Query(ctx, `
		SELECT owner_id, blocked_id, created_at FROM blocks
		WHERE owner_id = $1
		ORDER BY created_at
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var blocks []model.Block
	for rows.Next() {
		var b model.Block
		if err := rows.Scan(&b.OwnerID, &b.BlockedID, &b.CreatedAt); err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return blocks, rows.Err()
}
