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

type GroupService struct {
	store *repository.Store
	pub   Publisher
	blobs blob.Store
	cfg   Config
}

func NewGroupService(store *repository.Store, pub Publisher, blobs blob.Store, cfg Config) *GroupService {
	return &GroupService{store: store, pub: pub, blobs: blobs, cfg: cfg}
}

// Get hides private groups from non-members.
func (s *GroupService) Get(ctx context.Context, actorID, groupID string) (model.Group, error) {
	g, err := s.store.Queries.GetGroup(ctx, groupID)
	if err != nil {
		return model.Group{}, notFound(err)
	}
	if g.Private && g.OwnerID != actorID {
		if m, err := membershipOrNil(ctx, s.store.Queries, model.KindGroup, groupID, actorID); err != nil {
			return model.Group{}, err
		} else if m == nil {
			return model.Group{}, authz.ErrNotFound
		}
	}
	return g, nil
}

func (s *GroupService) ListForUser(ctx context.Context, userID string) ([]model.Group, error) {
	return s.store.Queries.ListGroupsForUser(ctx, userID)
}

func (s *GroupService) Search(ctx context.Context, query string, limit int) ([]model.Group, error) {
	return s.store.Queries.SearchGroups(ctx, query, limit)
}

type GroupParams struct {
	Name           string
	Description    string
	Private        bool
	InvitesAllowed bool
	FilesAllowed   bool
}

func (s *GroupService) Create(ctx context.Context, ownerID string, params GroupParams) (model.Group, error) {
	now := time.Now().UTC()
	g := model.Group{
		ID:             uuid.NewString(),
		OwnerID:        ownerID,
		Name:           params.Name,
		Description:    params.Description,
		Private:        params.Private,
		InvitesAllowed: params.InvitesAllowed,
		FilesAllowed:   params.FilesAllowed,
		CreatedAt:      now,
	}
	err := s.store.WithTx(ctx, func(q *repository.Queries) error {
		if err := q.CreateGroup(ctx, g); err != nil {
			return err
		}
		return q.CreateMembership(ctx, model.KindGroup, model.Membership{
			EntityID: g.ID, UserID: ownerID, IsAdmin: true, JoinedAt: now,
		})
	})
	if err != nil {
		return model.Group{}, err
	}
	return g, nil
}

func (s *GroupService) Update(ctx context.Context, actorID, groupID string, params GroupParams) error {
	var events []outbound
	err := s.store.WithTx(ctx, func(q *repository.Queries) error {
		g, err := q.GetGroup(ctx, groupID)
		if err != nil {
			return notFound(err)
		}
		actor, err := actorFor(ctx, q, model.KindGroup, groupID, g.OwnerID, actorID)
		if err != nil {
			return err
		}
		if err := authz.RequireOwner(actor); err != nil {
			return err
		}
		g.Name = params.Name
		g.Description = params.Description
		g.Private = params.Private
		g.InvitesAllowed = params.InvitesAllowed
		g.FilesAllowed = params.FilesAllowed
		if err := q.UpdateGroup(ctx, g); err != nil {
			return err
		}
		events = append(events, outbound{
			topic:   model.Topic(model.KindGroup, groupID),
			payload: Event{Type: "group_updated", Entity: model.KindGroup, EntityID: groupID, ActorID: actorID},
		})
		return nil
	})
	if err != nil {
		return err
	}
	publishAll(s.pub, events)
	return nil
}

func (s *GroupService) Delete(ctx context.Context, actorID, groupID string) error {
	return s.deleteCascade(ctx, actorID, groupID)
}

func (s *GroupService) Join(ctx context.Context, userID, groupID string) error {
	var events []outbound
	err := s.store.WithTx(ctx, func(q *repository.Queries) error {
		g, err := q.GetGroup(ctx, groupID)
		if err != nil {
			return notFound(err)
		}
		if g.Private {
			return authz.ErrTargetIsPrivate
		}
		if m, err := membershipOrNil(ctx, q, model.KindGroup, groupID, userID); err != nil {
			return err
		} else if m != nil {
			return authz.ErrAlreadyMember
		}
		if _, err := q.GetBan(ctx, model.KindGroup, groupID, userID); err == nil {
			return authz.ErrAlreadyBanned
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		// A pending invite is consumed by joining.
		if _, err := q.DeleteInvite(ctx, model.KindGroup, groupID, userID); err != nil {
			return err
		}
		err = q.CreateMembership(ctx, model.KindGroup, model.Membership{
			EntityID: groupID, UserID: userID, JoinedAt: time.Now().UTC(),
		})
		if repository.IsUniqueViolation(err) {
			return authz.ErrAlreadyMember
		}
		if err != nil {
			return err
		}
		events = append(events, outbound{
			topic:   model.Topic(model.KindGroup, groupID),
			payload: Event{Type: "member_joined", Entity: model.KindGroup, EntityID: groupID, UserID: userID},
		})
		return nil
	})
	if err != nil {
		return err
	}
	publishAll(s.pub, events)
	return nil
}

// Leave removes the membership; the owner leaving cascades the whole group away.
func (s *GroupService) Leave(ctx context.Context, userID, groupID string) error {
	owner := false
	err := s.store.WithTx(ctx, func(q *repository.Queries) error {
		g, err := q.GetGroup(ctx, groupID)
		if err != nil {
			return notFound(err)
		}
		owner = g.OwnerID == userID
		return nil
	})
	if err != nil {
		return err
	}
	if owner {
		return s.deleteCascade(ctx, userID, groupID)
	}

	var events []outbound
	err = s.store.WithTx(ctx, func(q *repository.Queries) error {
		removed, err := q.DeleteMembership(ctx, model.KindGroup, groupID, userID)
		if err != nil {
			return err
		}
		if !removed {
			return authz.ErrNotMember
		}
		events = append(events, outbound{
			topic:   model.Topic(model.KindGroup, groupID),
			payload: Event{Type: "member_left", Entity: model.KindGroup, EntityID: groupID, UserID: userID},
		})
		return nil
	})
	if err != nil {
		return err
	}
	publishAll(s.pub, events)
	return nil
}

func (s *GroupService) Invite(ctx context.Context, actorID, groupID, targetID string) error {
	var events []outbound
	err := s.store.WithTx(ctx, func(q *repository.Queries) error {
		g, err := q.GetGroup(ctx, groupID)
		if err != nil {
			return notFound(err)
		}
		actor, err := actorFor(ctx, q, model.KindGroup, groupID, g.OwnerID, actorID)
		if err != nil {
			return err
		}
		if !g.InvitesAllowed {
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
		return createInvitePending(ctx, q, s.cfg, model.KindGroup, groupID, targetID, &events)
	})
	if err != nil {
		return err
	}
	publishAll(s.pub, events)
	return nil
}

func (s *GroupService) AcceptInvite(ctx context.Context, userID, groupID string) error {
	var events []outbound
	err := s.store.WithTx(ctx, func(q *repository.Queries) error {
		return acceptInvitePending(ctx, q, model.KindGroup, groupID, userID, &events)
	})
	if err != nil {
		return err
	}
	publishAll(s.pub, events)
	return nil
}

func (s *GroupService) DeclineInvite(ctx context.Context, userID, groupID string) error {
	return s.store.WithTx(ctx, func(q *repository.Queries) error {
		removed, err := q.DeleteInvite(ctx, model.KindGroup, groupID, userID)
		if err != nil {
			return err
		}
		if !removed {
			return authz.ErrInviteNotFound
		}
		return nil
	})
}

func (s *GroupService) Ban(ctx context.Context, actorID, groupID, targetID string) error {
	var events []outbound
	err := s.store.WithTx(ctx, func(q *repository.Queries) error {
		g, err := q.GetGroup(ctx, groupID)
		if err != nil {
			return notFound(err)
		}
		return banMember(ctx, q, s.cfg, model.KindGroup, groupID, g.OwnerID, actorID, targetID, &events)
	})
	if err != nil {
		return err
	}
	publishAll(s.pub, events)
	return nil
}

func (s *GroupService) Unban(ctx context.Context, actorID, groupID, targetID string) error {
	var events []outbound
	err := s.store.WithTx(ctx, func(q *repository.Queries) error {
		g, err := q.GetGroup(ctx, groupID)
		if err != nil {
			return notFound(err)
		}
		return unbanMember(ctx, q, s.cfg, model.KindGroup, groupID, g.OwnerID, actorID, targetID, &events)
	})
	if err != nil {
		return err
	}
	publishAll(s.pub, events)
	return nil
}

func (s *GroupService) SetAdmin(ctx context.Context, actorID, groupID, targetID string, isAdmin bool) error {
	var events []outbound
	err := s.store.WithTx(ctx, func(q *repository.Queries) error {
		g, err := q.GetGroup(ctx, groupID)
		if err != nil {
			return notFound(err)
		}
		return setAdminFlag(ctx, q, s.cfg, model.KindGroup, groupID, g.OwnerID, actorID, targetID, isAdmin, &events)
	})
	if err != nil {
		return err
	}
	publishAll(s.pub, events)
	return nil
}

// SendMessage posts into the group; members only.
func (s *GroupService) SendMessage(ctx context.Context, actorID, groupID, body string, fileKey *string) (model.Message, error) {
	var msg model.Message
	var events []outbound
	err := s.store.WithTx(ctx, func(q *repository.Queries) error {
		g, err := q.GetGroup(ctx, groupID)
		if err != nil {
			return notFound(err)
		}
		actor, err := actorFor(ctx, q, model.KindGroup, groupID, g.OwnerID, actorID)
		if err != nil {
			return err
		}
		if err := authz.RequireMember(actor); err != nil {
			return err
		}
		if fileKey != nil && !g.FilesAllowed {
			return authz.ErrFilesDisabled
		}
		msg = model.Message{
			ID:        uuid.NewString(),
			Kind:      model.MessageGroup,
			ScopeID:   groupID,
			AuthorID:  actorID,
			Body:      body,
			FileKey:   fileKey,
			CreatedAt: time.Now().UTC(),
		}
		if err := q.CreateMessage(ctx, msg); err != nil {
			return err
		}
		events = append(events, outbound{
			topic:   model.Topic(model.KindGroup, groupID),
			payload: Event{Type: "message", Entity: model.KindGroup, EntityID: groupID, ActorID: actorID, Data: map[string]string{"message_id": msg.ID, "body": body}},
		})
		return nil
	})
	if err != nil {
		return model.Message{}, err
	}
	publishAll(s.pub, events)
	return msg, nil
}

// DeleteMessage is allowed to the author, admins and the owner.
func (s *GroupService) DeleteMessage(ctx context.Context, actorID, messageID string) error {
	var events []outbound
	err := s.store.WithTx(ctx, func(q *repository.Queries) error {
		msg, err := q.GetMessage(ctx, messageID)
		if err != nil {
			return notFound(err)
		}
		if msg.Kind != model.MessageGroup {
			return authz.ErrNotFound
		}
		g, err := q.GetGroup(ctx, msg.ScopeID)
		if err != nil {
			return notFound(err)
		}
		actor, err := actorFor(ctx, q, model.KindGroup, g.ID, g.OwnerID, actorID)
		if err != nil {
			return err
		}
		if err := authz.CanModerateContent(actor, msg.AuthorID); err != nil {
			return err
		}
		if _, err := q.DeleteMessage(ctx, messageID); err != nil {
			return err
		}
		events = append(events, outbound{
			topic:   model.Topic(model.KindGroup, g.ID),
			payload: Event{Type: "message_deleted", Entity: model.KindGroup, EntityID: g.ID, ActorID: actorID, Data: map[string]string{"message_id": messageID}},
		})
		return nil
	})
	if err != nil {
		return err
	}
	publishAll(s.pub, events)
	return nil
}

// Messages lists recent group messages; members only.
func (s *GroupService) Messages(ctx context.Context, actorID, groupID string, limit int) ([]model.Message, error) {
	g, err := s.store.Queries.GetGroup(ctx, groupID)
	if err != nil {
		return nil, notFound(err)
	}
	actor, err := actorFor(ctx, s.store.Queries, model.KindGroup, groupID, g.OwnerID, actorID)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireMember(actor); err != nil {
		return nil, err
	}
	return s.store.Queries.ListMessages(ctx, model.MessageGroup, groupID, limit)
}

func (s *GroupService) Members(ctx context.Context, actorID, groupID string) ([]model.Membership, error) {
	g, err := s.store.Queries.GetGroup(ctx, groupID)
	if err != nil {
		return nil, notFound(err)
	}
	actor, err := actorFor(ctx, s.store.Queries, model.KindGroup, groupID, g.OwnerID, actorID)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireMember(actor); err != nil {
		return nil, err
	}
	return s.store.Queries.ListMembers(ctx, model.KindGroup, groupID)
}

func (s *GroupService) Bans(ctx context.Context, actorID, groupID string) ([]model.Ban, error) {
	g, err := s.store.Queries.GetGroup(ctx, groupID)
	if err != nil {
		return nil, notFound(err)
	}
	actor, err := actorFor(ctx, s.store.Queries, model.KindGroup, groupID, g.OwnerID, actorID)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireAdmin(actor); err != nil {
		return nil, err
	}
	return s.store.Queries.ListBans(ctx, model.KindGroup, groupID)
}

func (s *GroupService) Invites(ctx context.Context, actorID, groupID string) ([]model.Invite, error) {
	g, err := s.store.Queries.GetGroup(ctx, groupID)
	if err != nil {
		return nil, notFound(err)
	}
	actor, err := actorFor(ctx, s.store.Queries, model.KindGroup, groupID, g.OwnerID, actorID)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireAdmin(actor); err != nil {
		return nil, err
	}
	return s.store.Queries.ListInvites(ctx, model.KindGroup, groupID)
}

func (s *GroupService) Logs(ctx context.Context, actorID, groupID string, limit int) ([]model.ModerationLog, error) {
	g, err := s.store.Queries.GetGroup(ctx, groupID)
	if err != nil {
		return nil, notFound(err)
	}
	actor, err := actorFor(ctx, s.store.Queries, model.KindGroup, groupID, g.OwnerID, actorID)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireOwner(actor); err != nil {
		return nil, err
	}
	return s.store.Queries.ListModerationLogs(ctx, model.KindGroup, groupID, limit)
}

// deleteCascade removes the group, its relationship rows and messages; every former
// member's personal topic hears about it so clients can drop the group from lists.
func (s *GroupService) deleteCascade(ctx context.Context, actorID, groupID string) error {
	var events []outbound
	var fileKeys []string
	err := s.store.WithTx(ctx, func(q *repository.Queries) error {
		g, err := q.GetGroup(ctx, groupID)
		if err != nil {
			return notFound(err)
		}
		if g.OwnerID != actorID {
			return authz.ErrNotOwner
		}
		memberIDs, err := q.ListMemberIDs(ctx, model.KindGroup, groupID)
		if err != nil {
			return err
		}
		messages, err := q.ListMessages(ctx, model.MessageGroup, groupID, 10000)
		if err != nil {
			return err
		}
		for _, m := range messages {
			if m.FileKey != nil {
				fileKeys = append(fileKeys, *m.FileKey)
			}
		}
		if err := q.DeleteModerationLogs(ctx, model.KindGroup, groupID); err != nil {
			return err
		}
		if err := q.DeleteGroup(ctx, groupID); err != nil {
			return err
		}

		deleted := Event{Type: "group_deleted", Entity: model.KindGroup, EntityID: groupID, ActorID: actorID}
		events = append(events, outbound{topic: model.Topic(model.KindGroup, groupID), payload: deleted})
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
