package moderation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/DAN1X27/messenger-service-sub000/internal/authz"
	"github.com/DAN1X27/messenger-service-sub000/internal/blob"
	"github.com/DAN1X27/messenger-service-sub000/internal/model"
	"github.com/DAN1X27/messenger-service-sub000/internal/repository"
)

type ChatService struct {
	store *repository.Store
	pub   Publisher
	blobs blob.Store
}

func NewChatService(store *repository.Store, pub Publisher, blobs blob.Store) *ChatService {
	return &ChatService{store: store, pub: pub, blobs: blobs}
}

// Open returns the chat between the two users, creating it if needed. Reopening an
// existing chat is not an error.
func (s *ChatService) Open(ctx context.Context, actorID, otherID string) (model.Chat, error) {
	var chat model.Chat
	var events []outbound
	err := s.store.WithTx(ctx, func(q *repository.Queries) error {
		other, err := q.GetUserByID(ctx, otherID)
		if err != nil {
			return notFound(err)
		}
		if err := checkContact(ctx, q, actorID, other); err != nil {
			return err
		}
		a, b := repository.CanonicalPair(actorID, otherID)
		chat, err = q.GetChatByPair(ctx, a, b)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		chat = model.Chat{ID: uuid.NewString(), UserA: a, UserB: b, CreatedAt: time.Now().UTC()}
		err = q.CreateChat(ctx, chat)
		if repository.IsUniqueViolation(err) {
			chat, err = q.GetChatByPair(ctx, a, b)
			return err
		}
		if err != nil {
			return err
		}
		opened := Event{Type: "chat_opened", Entity: model.KindChat, EntityID: chat.ID, ActorID: actorID}
		events = append(events,
			outbound{topic: model.Topic(model.KindUser, actorID), payload: opened},
			outbound{topic: model.Topic(model.KindUser, otherID), payload: opened},
		)
		return nil
	})
	if err != nil {
		return model.Chat{}, err
	}
	publishAll(s.pub, events)
	return chat, nil
}

// Delete removes the chat and its messages for both participants.
func (s *ChatService) Delete(ctx context.Context, actorID, chatID string) error {
	var events []outbound
	var fileKeys []string
	err := s.store.WithTx(ctx, func(q *repository.Queries) error {
		chat, err := s.participantChat(ctx, q, actorID, chatID)
		if err != nil {
			return err
		}
		messages, err := q.ListMessages(ctx, model.MessageChat, chatID, 10000)
		if err != nil {
			return err
		}
		for _, m := range messages {
			if m.FileKey != nil {
				fileKeys = append(fileKeys, *m.FileKey)
			}
		}
		if err := q.DeleteChat(ctx, chatID); err != nil {
			return err
		}
		deleted := Event{Type: "chat_deleted", Entity: model.KindChat, EntityID: chatID, ActorID: actorID}
		events = append(events,
			outbound{topic: model.Topic(model.KindChat, chatID), payload: deleted},
			outbound{topic: model.Topic(model.KindUser, chat.UserA), payload: deleted},
			outbound{topic: model.Topic(model.KindUser, chat.UserB), payload: deleted},
		)
		return nil
	})
	if err != nil {
		return err
	}
	if s.blobs != nil {
		for _, key := range fileKeys {
			_ = s.blobs.Delete(key)
		}
	}
	publishAll(s.pub, events)
	return nil
}

// SendMessage re-checks the block relation on every send; a block placed after the
// chat was opened silences it immediately.
func (s *ChatService) SendMessage(ctx context.Context, actorID, chatID, body string, fileKey *string) (model.Message, error) {
	var msg model.Message
	var events []outbound
	err := s.store.WithTx(ctx, func(q *repository.Queries) error {
		chat, err := s.participantChat(ctx, q, actorID, chatID)
		if err != nil {
			return err
		}
		otherID := chat.Counterpart(actorID)
		blocked, err := q.BlockedEitherDirection(ctx, actorID, otherID)
		if err != nil {
			return err
		}
		if err := authz.CanContact(blocked); err != nil {
			return err
		}
		msg = model.Message{
			ID:        uuid.NewString(),
			Kind:      model.MessageChat,
			ScopeID:   chatID,
			AuthorID:  actorID,
			Body:      body,
			FileKey:   fileKey,
			CreatedAt: time.Now().UTC(),
		}
		if err := q.CreateMessage(ctx, msg); err != nil {
			return err
		}
		ev := Event{Type: "message", Entity: model.KindChat, EntityID: chatID, ActorID: actorID, Data: map[string]string{"message_id": msg.ID, "body": body}}
		events = append(events,
			outbound{topic: model.Topic(model.KindChat, chatID), payload: ev},
			outbound{topic: model.Topic(model.KindUser, otherID), payload: ev},
		)
		return nil
	})
	if err != nil {
		return model.Message{}, err
	}
	publishAll(s.pub, events)
	return msg, nil
}

func (s *ChatService) DeleteMessage(ctx context.Context, actorID, messageID string) error {
	var events []outbound
	err := s.store.WithTx(ctx, func(q *repository.Queries) error {
		msg, err := q.GetMessage(ctx, messageID)
		if err != nil {
			return notFound(err)
		}
		if msg.Kind != model.MessageChat {
			return authz.ErrNotFound
		}
		if _, err := s.participantChat(ctx, q, actorID, msg.ScopeID); err != nil {
			return err
		}
		if msg.AuthorID != actorID {
			return authz.ErrNotOwner
		}
		if _, err := q.DeleteMessage(ctx, messageID); err != nil {
			return err
		}
		events = append(events, outbound{
			topic:   model.Topic(model.KindChat, msg.ScopeID),
			payload: Event{Type: "message_deleted", Entity: model.KindChat, EntityID: msg.ScopeID, ActorID: actorID, Data: map[string]string{"message_id": messageID}},
		})
		return nil
	})
	if err != nil {
		return err
	}
	publishAll(s.pub, events)
	return nil
}

func (s *ChatService) Messages(ctx context.Context, actorID, chatID string, limit int) ([]model.Message, error) {
	if _, err := s.participantChat(ctx, s.store.Queries, actorID, chatID); err != nil {
		return nil, err
	}
	return s.store.Queries.ListMessages(ctx, model.MessageChat, chatID, limit)
}

func (s *ChatService) List(ctx context.Context, actorID string) ([]model.Chat, error) {
	return s.store.Queries.ListChatsForUser(ctx, actorID)
}

// participantChat loads the chat and hides it from non-participants.
func (s *ChatService) participantChat(ctx context.Context, q *repository.Queries, actorID, chatID string) (model.Chat, error) {
	chat, err := q.GetChatByID(ctx, chatID)
	if err != nil {
		return model.Chat{}, notFound(err)
	}
	if chat.UserA != actorID && chat.UserB != actorID {
		return model.Chat{}, authz.ErrNotFound
	}
	return chat, nil
}
