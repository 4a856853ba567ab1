// Package authz holds the pure authorization rules. Every function takes the state it
// judges explicitly and performs no I/O; the moderation layer reads that state inside
// the same transaction that applies the mutation.
package authz

import "github.com/DAN1X27/messenger-service-sub000/internal/model"

// Actor is a user's relation to one target entity at decision time. Membership is nil
// when no row exists.
type Actor struct {
	UserID     string
	Owner      bool
	Membership *model.Membership
}

func (a Actor) member() bool {
	return a.Membership != nil
}

func (a Actor) admin() bool {
	return a.Membership != nil && a.Membership.IsAdmin
}

// RequireMember gates every entity-scoped action.
func RequireMember(a Actor) error {
	if !a.member() {
		return ErrNotMember
	}
	return nil
}

// RequireAdmin allows admins and the owner.
func RequireAdmin(a Actor) error {
	if err := RequireMember(a); err != nil {
		return err
	}
	if !a.admin() && !a.Owner {
		return ErrNotAdmin
	}
	return nil
}

// RequireOwner gates delete, rename, option changes and admin-rights transfer.
func RequireOwner(a Actor) error {
	if !a.Owner {
		return ErrNotOwner
	}
	return nil
}

// CanBan applies the precedence rule: an admin may ban a plain member but never
// another admin; only the owner outranks admins. The owner can never be banned.
func CanBan(actor Actor, targetOwner bool, target *model.Membership) error {
	if err := RequireAdmin(actor); err != nil {
		return err
	}
	if targetOwner {
		return ErrCannotBanPrivileged
	}
	if target != nil && target.IsAdmin && !actor.Owner {
		return ErrCannotBanPrivileged
	}
	return nil
}

// CanContact enforces the block rule: a block in either direction suppresses invites,
// direct messages and friend requests.
func CanContact(blockedEitherDirection bool) error {
	if blockedEitherDirection {
		return ErrBlocked
	}
	return nil
}

// CanReachPrivate enforces the private-target rule: contacting a private user requires
// an already-accepted friendship.
func CanReachPrivate(target model.User, friendship *model.Friendship) error {
	if !target.Private {
		return nil
	}
	if friendship != nil && friendship.Status == model.FriendshipAccepted {
		return nil
	}
	return ErrTargetIsPrivate
}

// CanModerateContent allows admins, the owner, and the content's author.
func CanModerateContent(actor Actor, authorID string) error {
	if actor.UserID == authorID {
		return nil
	}
	return RequireAdmin(actor)
}
