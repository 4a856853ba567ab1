// Package presence tracks which users are online and fans the transitions out to
// everyone who can see them.
package presence

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/DAN1X27/messenger-service-sub000/internal/model"
	"github.com/DAN1X27/messenger-service-sub000/internal/repository"
)

// Publisher is the fan-out sink, satisfied by the websocket hub.
type Publisher interface {
	Publish(topic string, payload any)
}

type Tracker struct {
	queries *repository.Queries
	pub     Publisher
	redis   *redis.Client
	log     zerolog.Logger
}

// NewTracker builds the tracker. redisClient may be nil; the online flag then lives
// only in Postgres.
func NewTracker(queries *repository.Queries, pub Publisher, redisClient *redis.Client, log zerolog.Logger) *Tracker {
	return &Tracker{queries: queries, pub: pub, redis: redisClient, log: log}
}

type event struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
	Online bool   `json:"online"`
}

const onlineKeyPrefix = "presence:online:"

// SetOnline flips the flag and notifies the user's chats, groups, channels and the
// chat counterparts' personal topics. Fan-out failures are logged, never fatal.
func (t *Tracker) SetOnline(ctx context.Context, userID string, online bool) error {
	if err := t.queries.UpdateUserOnline(ctx, userID, online); err != nil {
		return err
	}
	if t.redis != nil {
		key := onlineKeyPrefix + userID
		var err error
		if online {
			err = t.redis.Set(ctx, key, "1", 24*time.Hour).Err()
		} else {
			err = t.redis.Del(ctx, key).Err()
		}
		if err != nil {
			t.log.Warn().Err(err).Str("user_id", userID).Msg("presence redis mirror failed")
		}
	}

	ev := event{Type: "presence", UserID: userID, Online: online}
	for _, kind := range []model.EntityKind{model.KindChannel, model.KindGroup} {
		ids, err := t.queries.ListEntityIDsForUser(ctx, kind, userID)
		if err != nil {
			t.log.Warn().Err(err).Str("user_id", userID).Msg("presence fan-out lookup failed")
			continue
		}
		for _, id := range ids {
			t.pub.Publish(model.Topic(kind, id), ev)
		}
	}
	chats, err := t.queries.ListChatsForUser(ctx, userID)
	if err != nil {
		t.log.Warn().Err(err).Str("user_id", userID).Msg("presence fan-out lookup failed")
		return nil
	}
	for _, chat := range chats {
		t.pub.Publish(model.Topic(model.KindChat, chat.ID), ev)
		t.pub.Publish(model.Topic(model.KindUser, chat.Counterpart(userID)), ev)
	}
	return nil
}

// Online reports the cached flag when redis is available, else the stored row.
func (t *Tracker) Online(ctx context.Context, userID string) (bool, error) {
	if t.redis != nil {
		n, err := t.redis.Exists(ctx, onlineKeyPrefix+userID).Result()
		if err == nil {
			return n > 0, nil
		}
		t.log.Warn().Err(err).Str("user_id", userID).Msg("presence redis lookup failed")
	}
	user, err := t.queries.GetUserByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.Online, nil
}
