package repository

import (
	"context"
	"time"

	"github.com/DAN1X27/messenger-service-sub000/internal/model"
)

func (q *Queries) CreateSession(ctx context.Context, s model.Session) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO sessions (id, user_id, status, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`, s.ID, s.UserID, s.Status, s.CreatedAt, s.ExpiresAt)
	return err
}

func (q *Queries) GetSession(ctx context.Context, sessionID string) (model.Session, error) {
	var s model.Session
	row := q.db.QueryRow(ctx, `
		SELECT id, user_id, status, created_at, expires_at
		FROM sessions WHERE id = $1
	`, sessionID)
	err := row.Scan(&s.ID, &s.UserID, &s.Status, &s.CreatedAt, &s.ExpiresAt)
	return s, err
}

// RevokeSessionsByUser flips every issued session for the user and returns the ids it
// touched so callers can mirror them into the revocation fast path.
func (q *Queries) RevokeSessionsByUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := q.db.Query(ctx, `
		UPDATE sessions SET status = 'revoked'
		WHERE user_id = $1 AND status = 'issued'
		RETURNING id
	`, userID)
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

func (q *Queries) PurgeExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, before)
	return tag.RowsAffected(), err
}
