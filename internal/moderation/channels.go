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

type ChannelService struct {
	store *repository.Store
	pub   Publisher
	blobs blob.Store
	cfg   Config
}

func NewChannelService(store *repository.Store, pub Publisher, blobs blob.Store, cfg Config) *ChannelService {
	return &ChannelService{store: store, pub: pub, blobs: blobs, cfg: cfg}
}

type ChannelParams struct {
	Name            string
	Description     string
	Private         bool
	CommentsAllowed bool
	InvitesAllowed  bool
	FilesAllowed    bool
}

// Get hides banned channels from everyone and private channels from non-members.
func (s *ChannelService) Get(ctx context.Context, actorID, channelID string) (model.Channel, error) {
	ch, err := s.store.Queries.GetChannel(ctx, channelID)
	if err != nil {
		return model.Channel{}, notFound(err)
	}
	if ch.Banned {
		return model.Channel{}, authz.ErrNotFound
	}
	if ch.Private && ch.OwnerID != actorID {
		if m, err := membershipOrNil(ctx, s.store.Queries, model.KindChannel, channelID, actorID); err != nil {
			return model.Channel{}, err
		} else if m == nil {
			return model.Channel{}, authz.ErrNotFound
		}
	}
	return ch, nil
}

func (s *ChannelService) ListForUser(ctx context.Context, userID string) ([]model.Channel, error) {
	return s.store.Queries.ListChannelsForUser(ctx, userID)
}

func (s *ChannelService) Search(ctx context.Context, query string, limit int) ([]model.Channel, error) {
	return s.store.Queries.SearchChannels(ctx, query, limit)
}

// Create makes the channel and its owner's admin membership in one transaction.
func (s *ChannelService) Create(ctx context.Context, ownerID string, params ChannelParams) (model.Channel, error) {
	now := time.Now().UTC()
	ch := model.Channel{
		ID:              uuid.NewString(),
		OwnerID:         ownerID,
		Name:            params.Name,
		Description:     params.Description,
		Private:         params.Private,
		CommentsAllowed: params.CommentsAllowed,
		InvitesAllowed:  params.InvitesAllowed,
		FilesAllowed:    params.FilesAllowed,
		CreatedAt:       now,
	}
	err := s.store.WithTx(ctx, func(q *repository.Queries) error {
		if err := q.CreateChannel(ctx, ch); err != nil {
			return err
		}
		return q.CreateMembership(ctx, model.KindChannel, model.Membership{
			EntityID: ch.ID, UserID: ownerID, IsAdmin: true, JoinedAt: now,
		})
	})
	if err != nil {
		return model.Channel{}, err
	}
	return ch, nil
}

// Update is owner-only: rename, describe, privacy and option flags.
func (s *ChannelService) Update(ctx context.Context, actorID, channelID string, params ChannelParams) error {
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
		if err := authz.RequireOwner(actor); err != nil {
			return err
		}
		ch.Name = params.Name
		ch.Description = params.Description
		ch.Private = params.Private
		ch.CommentsAllowed = params.CommentsAllowed
		ch.InvitesAllowed = params.InvitesAllowed
		ch.FilesAllowed = params.FilesAllowed
		if err := q.UpdateChannel(ctx, ch); err != nil {
			return err
		}
		events = append(events, outbound{
			topic:   model.Topic(model.KindChannel, channelID),
			payload: Event{Type: "channel_updated", Entity: model.KindChannel, EntityID: channelID, ActorID: actorID},
		})
		return nil
	})
	if err != nil {
		return err
	}
	publishAll(s.pub, events)
	return nil
}

// Delete cascades the whole channel: memberships, invites, bans, posts, comments and
// logs all go, and every former member's personal topic hears about it.
func (s *ChannelService) Delete(ctx context.Context, actorID, channelID string) error {
	return s.deleteCascade(ctx, actorID, channelID, true)
}

// Join enters a public channel directly; private channels are invite-only.
func (s *ChannelService) Join(ctx context.Context, userID, channelID string) error {
	var events []outbound
	err := s.store.WithTx(ctx, func(q *repository.Queries) error {
		ch, err := q.GetChannel(ctx, channelID)
		if err != nil {
			return notFound(err)
		}
		if ch.Banned {
			return authz.ErrNotFound
		}
		if ch.Private {
			return authz.ErrTargetIsPrivate
		}
		if m, err := membershipOrNil(ctx, q, model.KindChannel, channelID, userID); err != nil {
			return err
		} else if m != nil {
			return authz.ErrAlreadyMember
		}
		if _, err := q.GetBan(ctx, model.KindChannel, channelID, userID); err == nil {
			return authz.ErrAlreadyBanned
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		// A pending invite is consumed by joining.
		if _, err := q.DeleteInvite(ctx, model.KindChannel, channelID, userID); err != nil {
			return err
		}
		err = q.CreateMembership(ctx, model.KindChannel, model.Membership{
			EntityID: channelID, UserID: userID, JoinedAt: time.Now().UTC(),
		})
		if repository.IsUniqueViolation(err) {
			// Loser of a concurrent join race.
			return authz.ErrAlreadyMember
		}
		if err != nil {
			return err
		}
		events = append(events, outbound{
			topic:   model.Topic(model.KindChannel, channelID),
			payload: Event{Type: "member_joined", Entity: model.KindChannel, EntityID: channelID, UserID: userID},
		})
		return nil
	})
	if err != nil {
		return err
	}
	publishAll(s.pub, events)
	return nil
}

// Leave removes the actor's membership. When the owner leaves, the whole channel is
// cascade-deleted instead of transferring ownership.
func (s *ChannelService) Leave(ctx context.Context, userID, channelID string) error {
	owner := false
	err := s.store.WithTx(ctx, func(q *repository.Queries) error {
		ch, err := q.GetChannel(ctx, channelID)
		if err != nil {
			return notFound(err)
		}
		owner = ch.OwnerID == userID
		return nil
	})
	if err != nil {
		return err
	}
	if owner {
		return s.deleteCascade(ctx, userID, channelID, false)
	}

	var events []outbound
	err = s.store.WithTx(ctx, func(q *repository.Queries) error {
		removed, err := q.DeleteMembership(ctx, model.KindChannel, channelID, userID)
		if err != nil {
			return err
		}
		if !removed {
			return authz.ErrNotMember
		}
		events = append(events, outbound{
			topic:   model.Topic(model.KindChannel, channelID),
			payload: Event{Type: "member_left", Entity: model.KindChannel, EntityID: channelID, UserID: userID},
		})
		return nil
	})
	if err != nil {
		return err
	}
	publishAll(s.pub, events)
	return nil
}

// Invite creates a pending invite for the target. Expired leftovers for the same pair
// are treated as dead and replaced.
func (s *ChannelService) Invite(ctx context.Context, actorID, channelID, targetID string) error {
	var events []outbound
	err := s.store.WithTx(ctx, func(q *repository.Queries) error {
		ch, err := q.GetChannel(ctx, channelID)
		if err != nil {
			return notFound(err)
		}
		if ch.Banned {
			return authz.ErrNotFound
		}
		actor, err := actorFor(ctx, q, model.KindChannel, channelID, ch.OwnerID, actorID)
		if err != nil {
			return err
		}
		if !ch.InvitesAllowed {
			if err := authz.RequireAdmin(actor); err != nil {
				return authz.ErrInvitesDisabled
			}
		} else if err := authz.RequireMember(actor); err != nil {
			return err
		}

		target, err := q.GetUserByID(ctx, targetID)
		if err != nil {
			return notFound(err)
		}
		if err := checkContact(ctx, q, actorID, target); err != nil {
			return err
		}
		return createInvitePending(ctx, q, s.cfg, model.KindChannel, channelID, targetID, &events)
	})
	if err != nil {
		return err
	}
	publishAll(s.pub, events)
	return nil
}

// createInvitePending holds the invite guards shared by channels and groups: no
// membership, no ban, no live invite for the pair.
func createInvitePending(ctx context.Context, q *repository.Queries, cfg Config, kind model.EntityKind, entityID, targetID string, events *[]outbound) error {
	if m, err := membershipOrNil(ctx, q, kind, entityID, targetID); err != nil {
		return err
	} else if m != nil {
		return authz.ErrAlreadyMember
	}
	if _, err := q.GetBan(ctx, kind, entityID, targetID); err == nil {
		return authz.ErrAlreadyBanned
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	now := time.Now().UTC()
	if existing, err := q.GetInvite(ctx, kind, entityID, targetID); err == nil {
		if !existing.Expired(now) {
			return authz.ErrAlreadyInvited
		}
		if _, err := q.DeleteInvite(ctx, kind, entityID, targetID); err != nil {
			return err
		}
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	err := q.CreateInvite(ctx, kind, model.Invite{
		EntityID: entityID, UserID: targetID, SentAt: now, ExpiresAt: now.Add(cfg.InviteTTL),
	})
	if repository.IsUniqueViolation(err) {
		return authz.ErrAlreadyInvited
	}
	if err != nil {
		return err
	}
	*events = append(*events, outbound{
		topic:   model.Topic(model.KindUser, targetID),
		payload: Event{Type: "invited", Entity: kind, EntityID: entityID, UserID: targetID},
	})
	return nil
}

// AcceptInvite swaps the pending invite for a membership row atomically.
func (s *ChannelService) AcceptInvite(ctx context.Context, userID, channelID string) error {
	var events []outbound
	err := s.store.WithTx(ctx, func(q *repository.Queries) error {
		return acceptInvitePending(ctx, q, model.KindChannel, channelID, userID, &events)
	})
	if err != nil {
		return err
	}
	publishAll(s.pub, events)
	return nil
}

// acceptInvitePending swaps a live invite for a membership row; shared by channels
// and groups. Expired invites are purged and reported as missing.
func acceptInvitePending(ctx context.Context, q *repository.Queries, kind model.EntityKind, entityID, userID string, events *[]outbound) error {
	invite, err := q.GetInvite(ctx, kind, entityID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return authz.ErrInviteNotFound
		}
		return err
	}
	now := time.Now().UTC()
	if invite.Expired(now) {
		_, _ = q.DeleteInvite(ctx, kind, entityID, userID)
		return authz.ErrInviteNotFound
	}
	if _, err := q.GetBan(ctx, kind, entityID, userID); err == nil {
		return authz.ErrAlreadyBanned
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	if _, err := q.DeleteInvite(ctx, kind, entityID, userID); err != nil {
		return err
	}
	err = q.CreateMembership(ctx, kind, model.Membership{
		EntityID: entityID, UserID: userID, JoinedAt: now,
	})
	if repository.IsUniqueViolation(err) {
		return authz.ErrAlreadyMember
	}
	if err != nil {
		return err
	}
	*events = append(*events, outbound{
		topic:   model.Topic(kind, entityID),
		payload: Event{Type: "member_joined", Entity: kind, EntityID: entityID, UserID: userID},
	})
	return nil
}

// DeclineInvite drops a pending invite.
func (s *ChannelService) DeclineInvite(ctx context.Context, userID, channelID string) error {
	return s.store.WithTx(ctx, func(q *repository.Queries) error {
		removed, err := q.DeleteInvite(ctx, model.KindChannel, channelID, userID)
		if err != nil {
			return err
		}
		if !removed {
			return authz.ErrInviteNotFound
		}
		return nil
	})
}

// Ban removes any membership or invite for the target and records the ban, in one
// transaction: there is no window where a membership and a ban coexist.
func (s *ChannelService) Ban(ctx context.Context, actorID, channelID, targetID string) error {
	var events []outbound
	err := s.store.WithTx(ctx, func(q *repository.Queries) error {
		ch, err := q.GetChannel(ctx, channelID)
		if err != nil {
			return notFound(err)
		}
		return banMember(ctx, q, s.cfg, model.KindChannel, channelID, ch.OwnerID, actorID, targetID, &events)
	})
	if err != nil {
		return err
	}
	publishAll(s.pub, events)
	return nil
}

// Unban deletes the ban record, returning the pair to the NONE state.
func (s *ChannelService) Unban(ctx context.Context, actorID, channelID, targetID string) error {
	var events []outbound
	err := s.store.WithTx(ctx, func(q *repository.Queries) error {
		ch, err := q.GetChannel(ctx, channelID)
		if err != nil {
			return notFound(err)
		}
		return unbanMember(ctx, q, s.cfg, model.KindChannel, channelID, ch.OwnerID, actorID, targetID, &events)
	})
	if err != nil {
		return err
	}
	publishAll(s.pub, events)
	return nil
}

// SetAdmin grants or revokes admin rights; owner-only.
func (s *ChannelService) SetAdmin(ctx context.Context, actorID, channelID, targetID string, isAdmin bool) error {
	var events []outbound
	err := s.store.WithTx(ctx, func(q *repository.Queries) error {
		ch, err := q.GetChannel(ctx, channelID)
		if err != nil {
			return notFound(err)
		}
		return setAdminFlag(ctx, q, s.cfg, model.KindChannel, channelID, ch.OwnerID, actorID, targetID, isAdmin, &events)
	})
	if err != nil {
		return err
	}
	publishAll(s.pub, events)
	return nil
}

// deleteCascade tears the channel down. Moderation logs are removed explicitly (no
// FK ties them to the channel row) and attached blobs are deleted after commit.
func (s *ChannelService) deleteCascade(ctx context.Context, actorID, channelID string, requireOwnerCheck bool) error {
	var events []outbound
	var fileKeys []string
	err := s.store.WithTx(ctx, func(q *repository.Queries) error {
		ch, err := q.GetChannel(ctx, channelID)
		if err != nil {
			return notFound(err)
		}
		if requireOwnerCheck {
			actor, err := actorFor(ctx, q, model.KindChannel, channelID, ch.OwnerID, actorID)
			if err != nil {
				return err
			}
			if err := authz.RequireOwner(actor); err != nil {
				return err
			}
		} else if ch.OwnerID != actorID {
			return authz.ErrNotOwner
		}

		memberIDs, err := q.ListMemberIDs(ctx, model.KindChannel, channelID)
		if err != nil {
			return err
		}
		posts, err := q.ListPosts(ctx, channelID, 10000)
		if err != nil {
			return err
		}
		for _, p := range posts {
			if p.FileKey != nil {
				fileKeys = append(fileKeys, *p.FileKey)
			}
		}
		if err := q.DeleteModerationLogs(ctx, model.KindChannel, channelID); err != nil {
			return err
		}
		if err := q.DeleteChannel(ctx, channelID); err != nil {
			return err
		}

		deleted := Event{Type: "channel_deleted", Entity: model.KindChannel, EntityID: channelID, ActorID: actorID}
		events = append(events, outbound{topic: model.Topic(model.KindChannel, channelID), payload: deleted})
		for _, memberID := range memberIDs {
			events = append(events, outbound{topic: model.Topic(model.KindUser, memberID), payload: deleted})
		}
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
