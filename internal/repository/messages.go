package repository

import (
	"context"

	"github.com/DAN1X27/messenger-service-sub000/internal/model"
)

func (q *Queries) CreateMessage(ctx context.Context, m model.Message) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO messages (id, kind, scope_id, author_id, body, file_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, m.ID, m.Kind, m.ScopeID, m.AuthorID, m.Body, m.FileKey, m.CreatedAt)
	return err
}

func (q *Queries) GetMessage(ctx context.Context, messageID string) (model.Message, error) {
	var m model.Message
	row := q.db.QueryRow(ctx, `
		SELECT id, kind, scope_id, author_id, body, file_key, created_at
		FROM messages WHERE id = $1
	`, messageID)
	err := row.Scan(&m.ID, &m.Kind, &m.ScopeID, &m.AuthorID, &m.Body, &m.FileKey, &m.CreatedAt)
	return m, err
}

func (q *Queries) DeleteMessage(ctx context.Context, messageID string) (bool, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM messages WHERE id = $1`, messageID)
	return tag.RowsAffected() > 0, err
}

func (q *Queries) ListMessages(ctx context.Context, kind model.MessageKind, scopeID string, limit int) ([]model.Message, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, kind, scope_id, author_id, body, file_key, created_at
		FROM messages
		WHERE kind = $1 AND scope_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`, kind, scopeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.Kind, &m.ScopeID, &m.AuthorID, &m.Body, &m.FileKey, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (q *Queries) CreatePost(ctx context.Context, p model.Post) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO posts (id, channel_id, author_id, body, file_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, p.ID, p.ChannelID, p.AuthorID, p.Body, p.FileKey, p.CreatedAt)
	return err
}

func (q *Queries) GetPost(ctx context.Context, postID string) (model.Post, error) {
	var p model.Post
	row := q.db.QueryRow(ctx, `
		SELECT id, channel_id, author_id, body, file_key, created_at
		FROM posts WHERE id = $1
	`, postID)
	err := row.Scan(&p.ID, &p.ChannelID, &p.AuthorID, &p.Body, &p.FileKey, &p.CreatedAt)
	return p, err
}

func (q *Queries) DeletePost(ctx context.Context, postID string) (bool, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM posts WHERE id = $1`, postID)
	return tag.RowsAffected() > 0, err
}

func (q *Queries) ListPosts(ctx context.Context, channelID string, limit int) ([]model.Post, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, channel_id, author_id, body, file_key, created_at
		FROM posts
		WHERE channel_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, channelID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []model.Post
	for rows.Next() {
		var p model.Post
		if err := rows.Scan(&p.ID, &p.ChannelID, &p.AuthorID, &p.Body, &p.FileKey, &p.CreatedAt); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (q *Queries) CreateComment(ctx context.Context, c model.Comment) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO comments (id, post_id, author_id, body, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, c.ID, c.PostID, c.AuthorID, c.Body, c.CreatedAt)
	return err
}

func (q *Queries) GetComment(ctx context.Context, commentID string) (model.Comment, error) {
	var c model.Comment
	row := q.db.QueryRow(ctx, `
		SELECT id, post_id, author_id, body, created_at
		FROM comments WHERE id = $1
	`, commentID)
	err := row.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Body, &c.CreatedAt)
	return c, err
}

func (q *Queries) DeleteComment(ctx context.Context, commentID string) (bool, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM comments WHERE id = $1`, commentID)
	return tag.RowsAffected() > 0, err
}

func (q *Queries) ListComments(ctx context.Context, postID string) ([]model.Comment, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, post_id, author_id, body, created_at
		FROM comments
		WHERE post_id = $1
		ORDER BY created_at
	`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []model.Comment
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Body, &c.CreatedAt); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}
