package repository

import (
	"context"
	"time"

	"github.com/DAN1X27/messenger-service-sub000/internal/model"
)

const userColumns = `id, email, password_hash, display_name, role, status, private, online, avatar_key, created_at`

func scanUser(row interface{ Scan(dest ...any) error }) (model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.DisplayName,
		&user.Role,
		&user.Status,
		&user.Private,
		&user.Online,
		&user.AvatarKey,
		&user.CreatedAt,
	)
	return user, err
}

func (q *Queries) CreateUser(ctx context.Context, user model.User) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, display_name, role, status, private, online, avatar_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, user.ID, user.Email, user.PasswordHash, user.DisplayName, user.Role, user.Status, user.Private, user.Online, user.AvatarKey, user.CreatedAt)
	return err
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	row := q.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

func (q *Queries) GetUserByID(ctx context.Context, userID string) (model.User, error) {
	row := q.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	return scanUser(row)
}

// UpdateUserCredentials refreshes a pending registration in place.
func (q *Queries) UpdateUserCredentials(ctx context.Context, user model.User) error {
	_, err := q.db.Exec(ctx, `
		UPDATE users SET password_hash = $1, display_name = $2, created_at = $3 WHERE id = $4
	`, user.PasswordHash, user.DisplayName, user.CreatedAt, user.ID)
	return err
}

func (q *Queries) UpdateUserStatus(ctx context.Context, userID string, status model.UserStatus) error {
	_, err := q.db.Exec(ctx, `UPDATE users SET status = $1 WHERE id = $2`, status, userID)
	return err
}

func (q *Queries) UpdateUserPrivacy(ctx context.Context, userID string, private bool) error {
	_, err := q.db.Exec(ctx, `UPDATE users SET private = $1 WHERE id = $2`, private, userID)
	return err
}

func (q *Queries) UpdateUserOnline(ctx context.Context, userID string, online bool) error {
	_, err := q.db.Exec(ctx, `UPDATE users SET online = $1 WHERE id = $2`, online, userID)
	return err
}

func (q *Queries) UpdateUserAvatar(ctx context.Context, userID string, avatarKey *string) error {
	_, err := q.db.Exec(ctx, `UPDATE users SET avatar_key = $1 WHERE id = $2`, avatarKey, userID)
	return err
}

func (q *Queries) SearchUsers(ctx context.Context, query string, limit int) ([]model.User, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE status <> 'banned' AND (display_name ILIKE '%' || $1 || '%' OR email ILIKE '%' || $1 || '%')
		ORDER BY display_name
		LIMIT $2
	`, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// DeleteTemporaryUsersBefore removes temporary registrations that were never
// completed. Idempotent; invoked by the purge job.
func (q *Queries) DeleteTemporaryUsersBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM users WHERE status = 'temporary' AND created_at < $1`, before)
	return tag.RowsAffected(), err
}
