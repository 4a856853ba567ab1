// Package moderation orchestrates the multi-step membership transitions: every
// operation reads state, applies the authorization rules and writes the mutation
// inside one transaction, then hands events to the fan-out layer. A failed guard
// aborts with no partial effect.
package moderation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/DAN1X27/messenger-service-sub000/internal/authz"
	"github.com/DAN1X27/messenger-service-sub000/internal/model"
	"github.com/DAN1X27/messenger-service-sub000/internal/repository"
)

// Config carries the transition-level knobs.
type Config struct {
	InviteTTL        time.Duration
	ModerationLogTTL time.Duration
}

// actorFor assembles the acting user's relation to an entity from rows read inside
// the open transaction.
func actorFor(ctx context.Context, q *repository.Queries, kind model.EntityKind, entityID, ownerID, userID string) (authz.Actor, error) {
	actor := authz.Actor{UserID: userID, Owner: ownerID == userID}
	m, err := q.GetMembership(ctx, kind, entityID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return actor, nil
		}
		return actor, err
	}
	actor.Membership = &m
	return actor, nil
}

// membershipOrNil reads the target's membership row, mapping absence to nil.
func membershipOrNil(ctx context.Context, q *repository.Queries, kind model.EntityKind, entityID, userID string) (*model.Membership, error) {
	m, err := q.GetMembership(ctx, kind, entityID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// friendshipOrNil reads a friendship row in either ordering, mapping absence to nil.
func friendshipOrNil(ctx context.Context, q *repository.Queries, userA, userB string) (*model.Friendship, error) {
	f, err := q.GetFriendship(ctx, userA, userB)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &f, nil
}

// checkContact applies the block rule and the private-target rule for any
// user-to-user reach (invite, chat, friend request).
func checkContact(ctx context.Context, q *repository.Queries, actorID string, target model.User) error {
	blocked, err := q.BlockedEitherDirection(ctx, actorID, target.ID)
	if err != nil {
		return err
	}
	if err := authz.CanContact(blocked); err != nil {
		return err
	}
	friendship, err := friendshipOrNil(ctx, q, actorID, target.ID)
	if err != nil {
		return err
	}
	return authz.CanReachPrivate(target, friendship)
}

func logEntry(kind model.EntityKind, entityID, actorID string, targetID *string, action string, ttl time.Duration) model.ModerationLog {
	now := time.Now().UTC()
	return model.ModerationLog{
		ID:         uuid.NewString(),
		EntityKind: string(kind),
		EntityID:   entityID,
		ActorID:    actorID,
		TargetID:   targetID,
		Action:     action,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return authz.ErrNotFound
	}
	return err
}

// banMember runs the ban transition for either entity kind: precedence check, then
// membership and invite rows deleted and the ban recorded, all in the caller's
// transaction so no window exists where membership and ban coexist.
func banMember(ctx context.Context, q *repository.Queries, cfg Config, kind model.EntityKind, entityID, ownerID, actorID, targetID string, events *[]outbound) error {
	actor, err := actorFor(ctx, q, kind, entityID, ownerID, actorID)
	if err != nil {
		return err
	}
	target, err := membershipOrNil(ctx, q, kind, entityID, targetID)
	if err != nil {
		return err
	}
	if err := authz.CanBan(actor, ownerID == targetID, target); err != nil {
		return err
	}
	if _, err := q.GetBan(ctx, kind, entityID, targetID); err == nil {
		return authz.ErrAlreadyBanned
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	if _, err := q.DeleteMembership(ctx, kind, entityID, targetID); err != nil {
		return err
	}
	if _, err := q.DeleteInvite(ctx, kind, entityID, targetID); err != nil {
		return err
	}
	err = q.CreateBan(ctx, kind, model.Ban{EntityID: entityID, UserID: targetID, BannedAt: time.Now().UTC()})
	if repository.IsUniqueViolation(err) {
		return authz.ErrAlreadyBanned
	}
	if err != nil {
		return err
	}
	if err := q.CreateModerationLog(ctx, logEntry(kind, entityID, actorID, &targetID, "ban", cfg.ModerationLogTTL)); err != nil {
		return err
	}
	*events = append(*events, outbound{
		topic:   model.Topic(kind, entityID),
		payload: Event{Type: "banned", Entity: kind, EntityID: entityID, ActorID: actorID, UserID: targetID},
	})
	return nil
}

func unbanMember(ctx context.Context, q *repository.Queries, cfg Config, kind model.EntityKind, entityID, ownerID, actorID, targetID string, events *[]outbound) error {
	actor, err := actorFor(ctx, q, kind, entityID, ownerID, actorID)
	if err != nil {
		return err
	}
	if err := authz.RequireAdmin(actor); err != nil {
		return err
	}
	removed, err := q.DeleteBan(ctx, kind, entityID, targetID)
	if err != nil {
		return err
	}
	if !removed {
		return authz.ErrNotBanned
	}
	if err := q.CreateModerationLog(ctx, logEntry(kind, entityID, actorID, &targetID, "unban", cfg.ModerationLogTTL)); err != nil {
		return err
	}
	*events = append(*events, outbound{
		topic:   model.Topic(kind, entityID),
		payload: Event{Type: "unbanned", Entity: kind, EntityID: entityID, ActorID: actorID, UserID: targetID},
	})
	return nil
}

// setAdminFlag flips the target's admin flag; owner-only per the precedence rules.
func setAdminFlag(ctx context.Context, q *repository.Queries, cfg Config, kind model.EntityKind, entityID, ownerID, actorID, targetID string, isAdmin bool, events *[]outbound) error {
	actor, err := actorFor(ctx, q, kind, entityID, ownerID, actorID)
	if err != nil {
		return err
	}
	if err := authz.RequireOwner(actor); err != nil {
		return err
	}
	changed, err := q.SetMembershipAdmin(ctx, kind, entityID, targetID, isAdmin)
	if err != nil {
		return err
	}
	if !changed {
		return authz.ErrNotMember
	}
	action := "demote"
	if isAdmin {
		action = "promote"
	}
	if err := q.CreateModerationLog(ctx, logEntry(kind, entityID, actorID, &targetID, action, cfg.ModerationLogTTL)); err != nil {
		return err
	}
	*events = append(*events, outbound{
		topic:   model.Topic(kind, entityID),
		payload: Event{Type: "admin_changed", Entity: kind, EntityID: entityID, ActorID: actorID, UserID: targetID, Data: map[string]bool{"is_admin": isAdmin}},
	})
	return nil
}
