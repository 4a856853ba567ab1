package moderation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/DAN1X27/messenger-service-sub000/internal/authz"
	"github.com/DAN1X27/messenger-service-sub000/internal/model"
	"github.com/DAN1X27/messenger-service-sub000/internal/repository"
)

type FriendService struct {
	store *repository.Store
	pub   Publisher
}

func NewFriendService(store *repository.Store, pub Publisher) *FriendService {
	return &FriendService{store: store, pub: pub}
}

// Request sends a friend request. A waiting request from the other side is accepted
// instead of creating a mirrored row.
func (s *FriendService) Request(ctx context.Context, actorID, targetID string) error {
	var events []outbound
	err := s.store.WithTx(ctx, func(q *repository.Queries) error {
		target, err := q.GetUserByID(ctx, targetID)
		if err != nil {
			return notFound(err)
		}
		blocked, err := q.BlockedEitherDirection(ctx, actorID, targetID)
		if err != nil {
			return err
		}
		if err := authz.CanContact(blocked); err != nil {
			return err
		}

		existing, err := q.GetFriendship(ctx, actorID, targetID)
		switch {
		case err == nil && existing.Status == model.FriendshipAccepted:
			return authz.ErrAlreadyFriends
		case err == nil && existing.OwnerID == actorID:
			return authz.ErrAlreadyRequested
		case err == nil:
			// The target already asked us; treat the request as an acceptance.
			if err := q.UpdateFriendshipStatus(ctx, existing.ID, model.FriendshipAccepted); err != nil {
				return err
			}
			accepted := Event{Type: "friend_accepted", Entity: model.KindUser, EntityID: actorID, ActorID: actorID, UserID: targetID}
			events = append(events,
				outbound{topic: model.Topic(model.KindUser, targetID), payload: accepted},
				outbound{topic: model.Topic(model.KindUser, actorID), payload: accepted},
			)
			return nil
		case !errors.Is(err, repository.ErrNotFound):
			return err
		}

		// A private profile only accepts requests, it does not receive them blindly;
		// without a prior relationship the target must be discoverable.
		if target.Private {
			return authz.ErrTargetIsPrivate
		}

		f := model.Friendship{
			ID:        uuid.NewString(),
			OwnerID:   actorID,
			FriendID:  targetID,
			Status:    model.FriendshipWaiting,
			CreatedAt: time.Now().UTC(),
		}
		err = q.CreateFriendship(ctx, f)
		if repository.IsUniqueViolation(err) {
			return authz.ErrAlreadyRequested
		}
		if err != nil {
			return err
		}
		events = append(events, outbound{
			topic:   model.Topic(model.KindUser, targetID),
			payload: Event{Type: "friend_request", Entity: model.KindUser, EntityID: targetID, ActorID: actorID},
		})
		return nil
	})
	if err != nil {
		return err
	}
	publishAll(s.pub, events)
	return nil
}

// Accept confirms a waiting request; only the recipient may accept.
func (s *FriendService) Accept(ctx context.Context, actorID, requesterID string) error {
	var events []outbound
	err := s.store.WithTx(ctx, func(q *repository.Queries) error {
		f, err := q.GetFriendship(ctx, actorID, requesterID)
		if err != nil {
			return notFound(err)
		}
		if f.Status == model.FriendshipAccepted {
			return authz.ErrAlreadyFriends
		}
		if f.FriendID != actorID {
			return authz.ErrNotFound
		}
		if err := q.UpdateFriendshipStatus(ctx, f.ID, model.FriendshipAccepted); err != nil {
			return err
		}
		accepted := Event{Type: "friend_accepted", Entity: model.KindUser, EntityID: actorID, ActorID: actorID, UserID: requesterID}
		events = append(events,
			outbound{topic: model.Topic(model.KindUser, requesterID), payload: accepted},
			outbound{topic: model.Topic(model.KindUser, actorID), payload: accepted},
		)
		return nil
	})
	if err != nil {
		return err
	}
	publishAll(s.pub, events)
	return nil
}

// Remove deletes the friendship or withdraws a pending request.
func (s *FriendService) Remove(ctx context.Context, actorID, otherID string) error {
	var events []outbound
	err := s.store.WithTx(ctx, func(q *repository.Queries) error {
		removed, err := q.DeleteFriendship(ctx, actorID, otherID)
		if err != nil {
			return err
		}
		if !removed {
			return authz.ErrNotFound
		}
		events = append(events, outbound{
			topic:   model.Topic(model.KindUser, otherID),
			payload: Event{Type: "friend_removed", Entity: model.KindUser, EntityID: otherID, ActorID: actorID},
		})
		return nil
	})
	if err != nil {
		return err
	}
	publishAll(s.pub, events)
	return nil
}

// Block records the block and tears down any friendship in the same transaction.
func (s *FriendService) Block(ctx context.Context, actorID, targetID string) error {
	return s.store.WithTx(ctx, func(q *repository.Queries) error {
		if _, err := q.GetUserByID(ctx, targetID); err != nil {
			return notFound(err)
		}
		err := q.CreateBlock(ctx, model.Block{OwnerID: actorID, BlockedID: targetID, CreatedAt: time.Now().UTC()})
		if repository.IsUniqueViolation(err) {
			return authz.ErrAlreadyBlocked
		}
		if err != nil {
			return err
		}
		_, err = q.DeleteFriendship(ctx, actorID, targetID)
		return err
	})
}

func (s *FriendService) Unblock(ctx context.Context, actorID, targetID string) error {
	return s.store.WithTx(ctx, func(q *repository.Queries) error {
		removed, err := q.DeleteBlock(ctx, actorID, targetID)
		if err != nil {
			return err
		}
		if !removed {
			return authz.ErrNotBlocked
		}
		return nil
	})
}

func (s *FriendService) Friends(ctx context.Context, actorID string) ([]model.Friendship, error) {
	return s.store.Queries.ListFriendships(ctx, actorID, model.FriendshipAccepted)
}

func (s *FriendService) IncomingRequests(ctx context.Context, actorID string) ([]model.Friendship, error) {
	return s.store.Queries.ListIncomingRequests(ctx, actorID)
}

func (s *FriendService) Blocks(ctx context.Context, actorID string) ([]model.Block, error) {
	return s.store.Queries.ListBlocks(ctx, actorID)
}
