package repository

import (
	"context"

	"github.com/DAN1X27/messenger-service-sub000/internal/model"
)

// CanonicalPair orders two user ids so that a chat is stored exactly once per
// unordered pair (user_a < user_b, enforced by a check constraint).
func CanonicalPair(userA, userB string) (string, string) {
	if userA < userB {
		return userA, userB
	}
	return userB, userA
}

func (q *Queries) GetChatByPair(ctx context.Context, userA, userB string) (model.Chat, error) {
	a, b := CanonicalPair(userA, userB)
	var chat model.Chat
	row := q.db.QueryRow(ctx, `
		SELECT id, user_a, user_b, created_at FROM chats
		WHERE user_a = $1 AND user_b = $2
	`, a, b)
	err := row.Scan(&chat.ID, &chat.UserA, &chat.UserB, &chat.CreatedAt)
	return chat, err
}

func (q *Queries) GetChatByID(ctx context.Context, chatID string) (model.Chat, error) {
	var chat model.Chat
	row := q.db.QueryRow(ctx, `SELECT id, user_a, user_b, created_at FROM chats WHERE id = $1`, chatID)
	err := row.Scan(&chat.ID, &chat.UserA, &chat.UserB, &chat.CreatedAt)
	return chat, err
}

func (q *Queries) CreateChat(ctx context.Context, chat model.Chat) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO chats (id, user_a, user_b, created_at)
		VALUES ($1, $2, $3, $4)
	`, chat.ID, chat.UserA, chat.UserB, chat.CreatedAt)
	return err
}

func (q *Queries) DeleteChat(ctx context.Context, chatID string) error {
	if _, err := q.db.Exec(ctx, `DELETE FROM messages WHERE kind = 'chat' AND scope_id = $1`, chatID); err != nil {
		return err
	}
	_, err := q.db.Exec(ctx, `DELETE FROM chats WHERE id = $1`, chatID)
	return err
}

func (q *Queries) ListChatsForUser(ctx context.Context, userID string) ([]model.Chat, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, user_a, user_b, created_at FROM chats
		WHERE user_a = $1 OR user_b = $1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chats []model.Chat
	for rows.Next() {
		var chat model.Chat
		if err := rows.Scan(&chat.ID, &chat.UserA, &chat.UserB, &chat.CreatedAt); err != nil {
			return nil, err
		}
		chats = append(chats, chat)
	}
	return chats, rows.Err()
}
