package authz

import (
	"errors"
	"testing"

	"github.com/DAN1X27/messenger-service-sub000/internal/model"
)

func member(isAdmin bool) *model.Membership {
	return &model.Membership{EntityID: "entity-1", UserID: "actor-1", IsAdmin: isAdmin}
}

func TestRequireMember(t *testing.T) {
	if err := RequireMember(Actor{UserID: "actor-1"}); !errors.Is(err, ErrNotMember) {
		t.Fatalf("expected ErrNotMember, got %v", err)
	}
	if err := RequireMember(Actor{UserID: "actor-1", Membership: member(false)}); err != nil {
		t.Fatalf("expected member to pass, got %v", err)
	}
}

func TestRequireAdmin(t *testing.T) {
	cases := []struct {
		name  string
		actor Actor
		want  error
	}{
		{"non-member", Actor{UserID: "u"}, ErrNotMember},
		{"plain member", Actor{UserID: "u", Membership: member(false)}, ErrNotAdmin},
		{"admin member", Actor{UserID: "u", Membership: member(true)}, nil},
		{"owner member", Actor{UserID: "u", Owner: true, Membership: member(false)}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := RequireAdmin(tc.actor)
			if tc.want == nil && err != nil {
				t.Fatalf("expected pass, got %v", err)
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestRequireOwner(t *testing.T) {
	if err := RequireOwner(Actor{UserID: "u", Membership: member(true)}); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if err := RequireOwner(Actor{UserID: "u", Owner: true}); err != nil {
		t.Fatalf("expected owner to pass, got %v", err)
	}
}

func TestCanBanPrecedence(t *testing.T) {
	admin := Actor{UserID: "admin", Membership: member(true)}
	owner := Actor{UserID: "owner", Owner: true, Membership: member(true)}
	plain := Actor{UserID: "plain", Membership: member(false)}

	target := &model.Membership{EntityID: "entity-1", UserID: "target"}
	targetAdmin := &model.Membership{EntityID: "entity-1", UserID: "target", IsAdmin: true}

	// A plain member cannot ban at all.
	if err := CanBan(plain, false, target); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("expected ErrNotAdmin, got %v", err)
	}
	// An admin can ban a plain member.
	if err := CanBan(admin, false, target); err != nil {
		t.Fatalf("expected admin to ban member, got %v", err)
	}
	// An admin can never ban another admin.
	if err := CanBan(admin, false, targetAdmin); !errors.Is(err, ErrCannotBanPrivileged) {
		t.Fatalf("expected ErrCannotBanPrivileged, got %v", err)
	}
	// The owner outranks admins.
	if err := CanBan(owner, false, targetAdmin); err != nil {
		t.Fatalf("expected owner to ban admin, got %v", err)
	}
	// Nobody bans the owner.
	if err := CanBan(owner, true, targetAdmin); !errors.Is(err, ErrCannotBanPrivileged) {
		t.Fatalf("expected ErrCannotBanPrivileged for owner target, got %v", err)
	}
}

func TestCanContact(t *testing.T) {
	if err := CanContact(true); !errors.Is(err, ErrBlocked) {
		t.Fatalf("expected ErrBlocked, got %v", err)
	}
	if err := CanContact(false); err != nil {
		t.Fatalf("expected pass, got %v", err)
	}
}

func TestCanReachPrivate(t *testing.T) {
	public := model.User{ID: "target", Private: false}
	private := model.User{ID: "target", Private: true}
	accepted := &model.Friendship{Status: model.FriendshipAccepted}
	waiting := &model.Friendship{Status: model.FriendshipWaiting}

	if err := CanReachPrivate(public, nil); err != nil {
		t.Fatalf("public target should pass, got %v", err)
	}
	if err := CanReachPrivate(private, nil); !errors.Is(err, ErrTargetIsPrivate) {
		t.Fatalf("expected ErrTargetIsPrivate, got %v", err)
	}
	if err := CanReachPrivate(private, waiting); !errors.Is(err, ErrTargetIsPrivate) {
		t.Fatalf("waiting friendship should not pass, got %v", err)
	}
	if err := CanReachPrivate(private, accepted); err != nil {
		t.Fatalf("accepted friendship should pass, got %v", err)
	}
}

func TestCanModerateContent(t *testing.T) {
	author := Actor{UserID: "author"}
	other := Actor{UserID: "other", Membership: &model.Membership{UserID: "other"}}
	admin := Actor{UserID: "admin", Membership: &model.Membership{UserID: "admin", IsAdmin: true}}

	if err := CanModerateContent(author, "author"); err != nil {
		t.Fatalf("author should moderate own content, got %v", err)
	}
	if err := CanModerateContent(other, "author"); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("expected ErrNotAdmin, got %v", err)
	}
	if err := CanModerateContent(admin, "author"); err != nil {
		t.Fatalf("admin should moderate, got %v", err)
	}
}

func TestCodeCoversPolicyErrors(t *testing.T) {
	for _, err := range []error{
		ErrNotMember, ErrNotAdmin, ErrNotOwner, ErrCannotBanPrivileged, ErrBlocked,
		ErrTargetIsPrivate, ErrAlreadyMember, ErrAlreadyBanned, ErrNotBanned,
		ErrAlreadyInvited, ErrInviteNotFound, ErrInvitesDisabled, ErrAlreadyFriends,
		ErrAlreadyRequested, ErrAlreadyBlocked, ErrNotBlocked, ErrNotFound,
		ErrInvalidToken, ErrAuthenticationFailed,
	} {
		if Code(err) == "" {
			t.Fatalf("missing code for %v", err)
		}
	}
	if Code(errors.New("other")) != "" {
		t.Fatalf("unknown errors must map to empty code")
	}
}
