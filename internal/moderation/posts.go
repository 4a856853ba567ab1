package moderation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/DAN1X27/messenger-service-sub000/internal/authz"
	"github.com/DAN1X27/messenger-service-sub000/internal/model"
	"github.com/DAN1X27/messenger-service-sub000/internal/repository"
)

// CreatePost publishes to the channel; posting is an admin action in a broadcast
// channel.
func (s *ChannelService) CreatePost(ctx context.Context, actorID, channelID, body string, fileKey *string) (model.Post, error) {
	var post model.Post
	var events []outbound
	err := s.store.WithTx(ctx, func(q *repository.Queries) error {
		ch, err := q.GetChannel(ctx, channelID)
		if err != nil {
			return notFound(err)
		}
		actor, err := actorFor(ctx, q, model.KindChannel, channelID, ch.OwnerID, actorID)
		if err != nil {
			return err
		}
		if err := authz.RequireAdmin(actor); err != nil {
			return err
		}
		if fileKey != nil && !ch.FilesAllowed {
			return authz.ErrFilesDisabled
		}
		post = model.Post{
			ID:        uuid.NewString(),
			ChannelID: channelID,
			AuthorID:  actorID,
			Body:      body,
			FileKey:   fileKey,
			CreatedAt: time.Now().UTC(),
		}
		if err := q.CreatePost(ctx, post); err != nil {
			return err
		}
		events = append(events, outbound{
			topic:   model.Topic(model.KindChannel, channelID),
			payload: Event{Type: "post_created", Entity: model.KindChannel, EntityID: channelID, ActorID: actorID, Data: map[string]string{"post_id": post.ID}},
		})
		return nil
	})
	if err != nil {
		return model.Post{}, err
	}
	publishAll(s.pub, events)
	return post, nil
}

// DeletePost is allowed to the author, admins and the owner.
func (s *ChannelService) DeletePost(ctx context.Context, actorID, postID string) error {
	var events []outbound
	var fileKey *string
	err := s.store.WithTx(ctx, func(q *repository.Queries) error {
		post, err := q.GetPost(ctx, postID)
		if err != nil {
			return notFound(err)
		}
		ch, err := q.GetChannel(ctx, post.ChannelID)
		if err != nil {
			return notFound(err)
		}
		actor, err := actorFor(ctx, q, model.KindChannel, ch.ID, ch.OwnerID, actorID)
		if err != nil {
			return err
		}
		if err := authz.CanModerateContent(actor, post.AuthorID); err != nil {
			return err
		}
		if _, err := q.DeletePost(ctx, postID); err != nil {
			return err
		}
		fileKey = post.FileKey
		events = append(events, outbound{
			topic:   model.Topic(model.KindChannel, ch.ID),
			payload: Event{Type: "post_deleted", Entity: model.KindChannel, EntityID: ch.ID, ActorID: actorID, Data: map[string]string{"post_id": postID}},
		})
		return nil
	})
	if err != nil {
		return err
	}
	if s.blobs != nil && fileKey != nil {
		_ = s.blobs.Delete(*fileKey)
	}
	publishAll(s.pub, events)
	return nil
}

// ListPosts is member-gated.
func (s *ChannelService) ListPosts(ctx context.Context, actorID, channelID string, limit int) ([]model.Post, error) {
	ch, err := s.store.Queries.GetChannel(ctx, channelID)
	if err != nil {
		return nil, notFound(err)
	}
	actor, err := actorFor(ctx, s.store.Queries, model.KindChannel, channelID, ch.OwnerID, actorID)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireMember(actor); err != nil {
		return nil, err
	}
	return s.store.Queries.ListPosts(ctx, channelID, limit)
}

// CreateComment is open to members while the channel allows comments.
func (s *ChannelService) CreateComment(ctx context.Context, actorID, postID, body string) (model.Comment, error) {
	var comment model.Comment
	var events []outbound
	err := s.store.WithTx(ctx, func(q *repository.Queries) error {
		post, err := q.GetPost(ctx, postID)
		if err != nil {
			return notFound(err)
		}
		ch, err := q.GetChannel(ctx, post.ChannelID)
		if err != nil {
			return notFound(err)
		}
		if !ch.CommentsAllowed {
			return authz.ErrCommentsDisabled
		}
		actor, err := actorFor(ctx, q, model.KindChannel, ch.ID, ch.OwnerID, actorID)
		if err != nil {
			return err
		}
		if err := authz.RequireMember(actor); err != nil {
			return err
		}
		comment = model.Comment{
			ID:        uuid.NewString(),
			PostID:    postID,
			AuthorID:  actorID,
			Body:      body,
			CreatedAt: time.Now().UTC(),
		}
		if err := q.CreateComment(ctx, comment); err != nil {
			return err
		}
		events = append(events, outbound{
			topic:   model.Topic(model.KindChannel, ch.ID),
			payload: Event{Type: "comment_created", Entity: model.KindChannel, EntityID: ch.ID, ActorID: actorID, Data: map[string]string{"post_id": postID, "comment_id": comment.ID}},
		})
		return nil
	})
	if err != nil {
		return model.Comment{}, err
	}
	publishAll(s.pub, events)
	return comment, nil
}

// DeleteComment is allowed to the comment author, admins and the owner.
func (s *ChannelService) DeleteComment(ctx context.Context, actorID, commentID string) error {
	return s.store.WithTx(ctx, func(q *repository.Queries) error {
		comment, err := q.GetComment(ctx, commentID)
		if err != nil {
			return notFound(err)
		}
		post, err := q.GetPost(ctx, comment.PostID)
		if err != nil {
			return notFound(err)
		}
		ch, err := q.GetChannel(ctx, post.ChannelID)
		if err != nil {
			return notFound(err)
		}
		actor, err := actorFor(ctx, q, model.KindChannel, ch.ID, ch.OwnerID, actorID)
		if err != nil {
			return err
		}
		if err := authz.CanModerateContent(actor, comment.AuthorID); err != nil {
			return err
		}
		_, err = q.DeleteComment(ctx, commentID)
		return err
	})
}

// Logs returns the moderation log; owner-only.
func (s *ChannelService) Logs(ctx context.Context, actorID, channelID string, limit int) ([]model.ModerationLog, error) {
	ch, err := s.store.Queries.GetChannel(ctx, channelID)
	if err != nil {
		return nil, notFound(err)
	}
	actor, err := actorFor(ctx, s.store.Queries, model.KindChannel, channelID, ch.OwnerID, actorID)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireOwner(actor); err != nil {
		return nil, err
	}
	return s.store.Queries.ListModerationLogs(ctx, model.KindChannel, channelID, limit)
}

// Members lists memberships; member-gated.
func (s *ChannelService) Members(ctx context.Context, actorID, channelID string) ([]model.Membership, error) {
	ch, err := s.store.Queries.GetChannel(ctx, channelID)
	if err != nil {
		return nil, notFound(err)
	}
	actor, err := actorFor(ctx, s.store.Queries, model.KindChannel, channelID, ch.OwnerID, actorID)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireMember(actor); err != nil {
		return nil, err
	}
	return s.store.Queries.ListMembers(ctx, model.KindChannel, channelID)
}

// Bans lists ban records; admin-gated.
func (s *ChannelService) Bans(ctx context.Context, actorID, channelID string) ([]model.Ban, error) {
	ch, err := s.store.Queries.GetChannel(ctx, channelID)
	if err != nil {
		return nil, notFound(err)
	}
	actor, err := actorFor(ctx, s.store.Queries, model.KindChannel, channelID, ch.OwnerID, actorID)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireAdmin(actor); err != nil {
		return nil, err
	}
	return s.store.Queries.ListBans(ctx, model.KindChannel, channelID)
}

// Invites lists pending invites; admin-gated.
func (s *ChannelService) Invites(ctx context.Context, actorID, channelID string) ([]model.Invite, error) {
	ch, err := s.store.Queries.GetChannel(ctx, channelID)
	if err != nil {
		return nil, notFound(err)
	}
	actor, err := actorFor(ctx, s.store.Queries, model.KindChannel, channelID, ch.OwnerID, actorID)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireAdmin(actor); err != nil {
		return nil, err
	}
	return s.store.Queries.ListInvites(ctx, model.KindChannel, channelID)
}
