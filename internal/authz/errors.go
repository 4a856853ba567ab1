package authz

import "errors"

// Policy outcomes. Every one of these is a normal, expected result of contention or
// policy and maps to a 4xx at the HTTP boundary; none is retried automatically.
// Already-in-desired-state cases surface as errors so clients can tell a no-op from
// state drift.
var (
	ErrNotMember            = errors.New("not a member")
	ErrNotAdmin             = errors.New("not an admin")
	ErrNotOwner             = errors.New("not the owner")
	ErrCannotBanPrivileged  = errors.New("cannot ban privileged user")
	ErrBlocked              = errors.New("blocked")
	ErrTargetIsPrivate      = errors.New("target is private")
	ErrAlreadyMember        = errors.New("already a member")
	ErrAlreadyBanned        = errors.New("already banned")
	ErrNotBanned            = errors.New("not banned")
	ErrAlreadyInvited       = errors.New("already invited")
	ErrInviteNotFound       = errors.New("invite not found")
	ErrInvitesDisabled      = errors.New("invites disabled")
	ErrFilesDisabled        = errors.New("file attachments disabled")
	ErrCommentsDisabled     = errors.New("comments disabled")
	ErrAlreadyFriends       = errors.New("already friends")
	ErrAlreadyRequested     = errors.New("friend request already sent")
	ErrAlreadyBlocked       = errors.New("already blocked")
	ErrNotBlocked           = errors.New("not blocked")
	ErrEmailTaken           = errors.New("email already registered")
	ErrNotFound             = errors.New("not found")
	ErrInvalidToken         = errors.New("invalid token")
	ErrAuthenticationFailed = errors.New("authentication failed")
)

// Code returns the wire identifier for a policy error, or "" for unknown errors.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrNotMember):
		return "not_member"
	case errors.Is(err, ErrNotAdmin):
		return "not_admin"
	case errors.Is(err, ErrNotOwner):
		return "not_owner"
	case errors.Is(err, ErrCannotBanPrivileged):
		return "cannot_ban_privileged_user"
	case errors.Is(err, ErrBlocked):
		return "blocked"
	case errors.Is(err, ErrTargetIsPrivate):
		return "target_is_private"
	case errors.Is(err, ErrAlreadyMember):
		return "already_member"
	case errors.Is(err, ErrAlreadyBanned):
		return "already_banned"
	case errors.Is(err, ErrNotBanned):
		return "not_banned"
	case errors.Is(err, ErrAlreadyInvited):
		return "already_invited"
	case errors.Is(err, ErrInviteNotFound):
		return "invite_not_found"
	case errors.Is(err, ErrInvitesDisabled):
		return "invites_disabled"
	case errors.Is(err, ErrFilesDisabled):
		return "files_disabled"
	case errors.Is(err, ErrCommentsDisabled):
		return "comments_disabled"
	case errors.Is(err, ErrAlreadyFriends):
		return "already_friends"
	case errors.Is(err, ErrAlreadyRequested):
		return "already_requested"
	case errors.Is(err, ErrAlreadyBlocked):
		return "already_blocked"
	case errors.Is(err, ErrNotBlocked):
		return "not_blocked"
	case errors.Is(err, ErrEmailTaken):
		return "email_taken"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, ErrAuthenticationFailed):
		return "authentication_failed"
	default:
		return ""
	}
}
