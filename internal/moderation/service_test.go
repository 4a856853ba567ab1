package moderation

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/DAN1X27/messenger-service-sub000/internal/authz"
	"github.com/DAN1X27/messenger-service-sub000/internal/db"
	"github.com/DAN1X27/messenger-service-sub000/internal/model"
	"github.com/DAN1X27/messenger-service-sub000/internal/repository"
	"github.com/DAN1X27/messenger-service-sub000/internal/session"
)

type capturePublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *capturePublisher) Publish(topic string, _ any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
}

func (p *capturePublisher) saw(topic string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range p.topics {
		if t == topic {
			return true
		}
	}
	return false
}

func openTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("MESSENGER_TEST_DB")
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}
	if url == "" {
		t.Skip("no test database configured")
		return nil
	}
	pool, err := db.NewPool(context.Background(), url)
	if err != nil {
		t.Skipf("test database unreachable: %v", err)
		return nil
	}
	return pool
}

func seedUser(t *testing.T, store *repository.Store, name string) model.User {
	t.Helper()
	user := model.User{
		ID:          uuid.NewString(),
		Email:       name + "." + uuid.NewString()[:8] + "@example.local",
		DisplayName: name,
		Role:        model.RoleUser,
		Status:      model.StatusRegistered,
		CreatedAt:   time.Now().UTC(),
	}
	if err := store.Queries.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func TestChannelBanRemovesMembership(t *testing.T) {
	pool := openTestDB(t)
	if pool == nil {
		return
	}
	defer pool.Close()

	ctx := context.Background()
	store := repository.NewStore(pool)
	pub := &capturePublisher{}
	svc := NewChannelService(store, pub, nil, Config{InviteTTL: time.Hour, ModerationLogTTL: time.Hour})

	owner := seedUser(t, store, "owner")
	member := seedUser(t, store, "member")

	ch, err := svc.Create(ctx, owner.ID, ChannelParams{Name: "general"})
	if err != nil {
		t.Fatalf("create channel: %v", err)
	}
	if err := svc.Join(ctx, member.ID, ch.ID); err != nil {
		t.Fatalf("join: %v", err)
	}

	if err := svc.Ban(ctx, owner.ID, ch.ID, member.ID); err != nil {
		t.Fatalf("ban: %v", err)
	}

	if _, err := store.Queries.GetMembership(ctx, model.KindChannel, ch.ID, member.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("membership should be gone after ban, got err=%v", err)
	}
	if _, err := store.Queries.GetBan(ctx, model.KindChannel, ch.ID, member.ID); err != nil {
		t.Fatalf("ban row missing: %v", err)
	}
	if !pub.saw(model.Topic(model.KindChannel, ch.ID)) {
		t.Fatalf("expected ban event on channel topic")
	}

	// A banned user cannot rejoin; the ban reads as if the channel does not exist.
	if err := svc.Join(ctx, member.ID, ch.ID); !errors.Is(err, authz.ErrAlreadyBanned) {
		t.Fatalf("expected ErrAlreadyBanned on rejoin, got %v", err)
	}

	// Unban lets the user back in.
	if err := svc.Unban(ctx, owner.ID, ch.ID, member.ID); err != nil {
		t.Fatalf("unban: %v", err)
	}
	if err := svc.Join(ctx, member.ID, ch.ID); err != nil {
		t.Fatalf("rejoin after unban: %v", err)
	}
}

func TestChannelAdminCannotBanAdmin(t *testing.T) {
	pool := openTestDB(t)
	if pool == nil {
		return
	}
	defer pool.Close()

	ctx := context.Background()
	store := repository.NewStore(pool)
	svc := NewChannelService(store, &capturePublisher{}, nil, Config{InviteTTL: time.Hour, ModerationLogTTL: time.Hour})

	owner := seedUser(t, store, "owner")
	adminA := seedUser(t, store, "adminA")
	adminB := seedUser(t, store, "adminB")

	ch, err := svc.Create(ctx, owner.ID, ChannelParams{Name: "mods"})
	if err != nil {
		t.Fatalf("create channel: %v", err)
	}
	for _, u := range []model.User{adminA, adminB} {
		if err := svc.Join(ctx, u.ID, ch.ID); err != nil {
			t.Fatalf("join: %v", err)
		}
		if err := svc.SetAdmin(ctx, owner.ID, ch.ID, u.ID, true); err != nil {
			t.Fatalf("promote: %v", err)
		}
	}

	if err := svc.Ban(ctx, adminA.ID, ch.ID, adminB.ID); !errors.Is(err, authz.ErrCannotBanPrivileged) {
		t.Fatalf("admin banning admin should fail, got %v", err)
	}
	if err := svc.Ban(ctx, adminA.ID, ch.ID, owner.ID); !errors.Is(err, authz.ErrCannotBanPrivileged) {
		t.Fatalf("banning the owner should fail, got %v", err)
	}

	// The owner outranks admins.
	if err := svc.Ban(ctx, owner.ID, ch.ID, adminB.ID); err != nil {
		t.Fatalf("owner banning admin: %v", err)
	}
}

func TestChannelInviteLifecycle(t *testing.T) {
	pool := openTestDB(t)
	if pool == nil {
		return
	}
	defer pool.Close()

	ctx := context.Background()
	store := repository.NewStore(pool)
	pub := &capturePublisher{}
	svc := NewChannelService(store, pub, nil, Config{InviteTTL: time.Hour, ModerationLogTTL: time.Hour})

	owner := seedUser(t, store, "owner")
	invitee := seedUser(t, store, "invitee")

	ch, err := svc.Create(ctx, owner.ID, ChannelParams{Name: "private", Private: true, InvitesAllowed: true})
	if err != nil {
		t.Fatalf("create channel: %v", err)
	}

	// Private channels cannot be joined directly.
	if err := svc.Join(ctx, invitee.ID, ch.ID); !errors.Is(err, authz.ErrTargetIsPrivate) {
		t.Fatalf("expected ErrTargetIsPrivate, got %v", err)
	}

	if err := svc.Invite(ctx, owner.ID, ch.ID, invitee.ID); err != nil {
		t.Fatalf("invite: %v", err)
	}
	if err := svc.Invite(ctx, owner.ID, ch.ID, invitee.ID); !errors.Is(err, authz.ErrAlreadyInvited) {
		t.Fatalf("second invite should conflict, got %v", err)
	}
	if !pub.saw(model.Topic(model.KindUser, invitee.ID)) {
		t.Fatalf("invitee personal topic should hear about the invite")
	}

	if err := svc.AcceptInvite(ctx, invitee.ID, ch.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := store.Queries.GetMembership(ctx, model.KindChannel, ch.ID, invitee.ID); err != nil {
		t.Fatalf("membership missing after accept: %v", err)
	}
	// The invite is consumed.
	if err := svc.AcceptInvite(ctx, invitee.ID, ch.ID); !errors.Is(err, authz.ErrInviteNotFound) {
		t.Fatalf("expected ErrInviteNotFound on second accept, got %v", err)
	}
}

func TestChannelOwnerDeleteFansOutToMembers(t *testing.T) {
	pool := openTestDB(t)
	if pool == nil {
		return
	}
	defer pool.Close()

	ctx := context.Background()
	store := repository.NewStore(pool)
	pub := &capturePublisher{}
	svc := NewChannelService(store, pub, nil, Config{InviteTTL: time.Hour, ModerationLogTTL: time.Hour})

	owner := seedUser(t, store, "owner")
	member := seedUser(t, store, "member")

	ch, err := svc.Create(ctx, owner.ID, ChannelParams{Name: "doomed"})
	if err != nil {
		t.Fatalf("create channel: %v", err)
	}
	if err := svc.Join(ctx, member.ID, ch.ID); err != nil {
		t.Fatalf("join: %v", err)
	}

	// The owner leaving tears the channel down for everyone.
	if err := svc.Leave(ctx, owner.ID, ch.ID); err != nil {
		t.Fatalf("owner leave: %v", err)
	}
	if _, err := store.Queries.GetChannel(ctx, ch.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("channel should be gone, got err=%v", err)
	}
	if !pub.saw(model.Topic(model.KindUser, member.ID)) {
		t.Fatalf("member personal topic should hear about the deletion")
	}
}

func TestFriendBlockTearsDownFriendship(t *testing.T) {
	pool := openTestDB(t)
	if pool == nil {
		return
	}
	defer pool.Close()

	ctx := context.Background()
	store := repository.NewStore(pool)
	svc := NewFriendService(store, &capturePublisher{})

	alice := seedUser(t, store, "alice")
	bob := seedUser(t, store, "bob")

	if err := svc.Request(ctx, alice.ID, bob.ID); err != nil {
		t.Fatalf("request: %v", err)
	}
	if err := svc.Request(ctx, alice.ID, bob.ID); !errors.Is(err, authz.ErrAlreadyRequested) {
		t.Fatalf("duplicate request should conflict, got %v", err)
	}
	if err := svc.Accept(ctx, bob.ID, alice.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	if err := svc.Block(ctx, bob.ID, alice.ID); err != nil {
		t.Fatalf("block: %v", err)
	}
	if _, err := store.Queries.GetFriendship(ctx, alice.ID, bob.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("friendship should be gone after block, got err=%v", err)
	}

	// The block silences new requests from either side.
	if err := svc.Request(ctx, alice.ID, bob.ID); !errors.Is(err, authz.ErrBlocked) {
		t.Fatalf("expected ErrBlocked, got %v", err)
	}
	if err := svc.Request(ctx, bob.ID, alice.ID); !errors.Is(err, authz.ErrBlocked) {
		t.Fatalf("expected ErrBlocked, got %v", err)
	}

	if err := svc.Unblock(ctx, bob.ID, alice.ID); err != nil {
		t.Fatalf("unblock: %v", err)
	}
	if err := svc.Unblock(ctx, bob.ID, alice.ID); !errors.Is(err, authz.ErrNotBlocked) {
		t.Fatalf("second unblock should fail, got %v", err)
	}
}

func TestChatOpenIsIdempotentAndBlockSilences(t *testing.T) {
	pool := openTestDB(t)
	if pool == nil {
		return
	}
	defer pool.Close()

	ctx := context.Background()
	store := repository.NewStore(pool)
	chats := NewChatService(store, &capturePublisher{}, nil)
	friends := NewFriendService(store, &capturePublisher{})

	alice := seedUser(t, store, "alice")
	bob := seedUser(t, store, "bob")

	chat, err := chats.Open(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	again, err := chats.Open(ctx, bob.ID, alice.ID)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if chat.ID != again.ID {
		t.Fatalf("reopening should return the same chat: %s vs %s", chat.ID, again.ID)
	}

	if _, err := chats.SendMessage(ctx, alice.ID, chat.ID, "hi", nil); err != nil {
		t.Fatalf("send: %v", err)
	}

	// A block placed after the chat opened silences it immediately.
	if err := friends.Block(ctx, bob.ID, alice.ID); err != nil {
		t.Fatalf("block: %v", err)
	}
	if _, err := chats.SendMessage(ctx, alice.ID, chat.ID, "hello?", nil); !errors.Is(err, authz.ErrBlocked) {
		t.Fatalf("expected ErrBlocked, got %v", err)
	}
}

func TestGroupMessaging(t *testing.T) {
	pool := openTestDB(t)
	if pool == nil {
		return
	}
	defer pool.Close()

	ctx := context.Background()
	store := repository.NewStore(pool)
	pub := &capturePublisher{}
	svc := NewGroupService(store, pub, nil, Config{InviteTTL: time.Hour, ModerationLogTTL: time.Hour})

	owner := seedUser(t, store, "owner")
	member := seedUser(t, store, "member")
	outsider := seedUser(t, store, "outsider")

	g, err := svc.Create(ctx, owner.ID, GroupParams{Name: "team"})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	if err := svc.Join(ctx, member.ID, g.ID); err != nil {
		t.Fatalf("join: %v", err)
	}

	msg, err := svc.SendMessage(ctx, member.ID, g.ID, "hello", nil)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := svc.SendMessage(ctx, outsider.ID, g.ID, "let me in", nil); !errors.Is(err, authz.ErrNotMember) {
		t.Fatalf("outsider send should fail, got %v", err)
	}

	// Admins can remove other people's messages, members cannot.
	if err := svc.DeleteMessage(ctx, outsider.ID, msg.ID); err == nil {
		t.Fatalf("outsider delete should fail")
	}
	if err := svc.DeleteMessage(ctx, owner.ID, msg.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}

	messages, err := svc.Messages(ctx, member.ID, g.ID, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, m := range messages {
		if m.ID == msg.ID {
			t.Fatalf("deleted message still listed")
		}
	}
}

func TestRegistrationConfirmFlow(t *testing.T) {
	pool := openTestDB(t)
	if pool == nil {
		return
	}
	defer pool.Close()

	ctx := context.Background()
	store := repository.NewStore(pool)
	svc := NewUserService(store, nil, nil, "test-secret", "test-issuer", time.Hour)

	params := RegisterParams{
		Email:       "newcomer." + uuid.NewString()[:8] + "@example.local",
		Password:    "dev-password",
		DisplayName: "Newcomer",
	}
	user, token, err := svc.Register(ctx, params)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Status != model.StatusTemporary {
		t.Fatalf("expected temporary status, got %s", user.Status)
	}

	// Re-registering the same address before confirmation replaces the pending row.
	if _, _, err := svc.Register(ctx, params); err != nil {
		t.Fatalf("re-register pending: %v", err)
	}

	confirmed, err := svc.Confirm(ctx, token)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.Status != model.StatusRegistered {
		t.Fatalf("expected registered status, got %s", confirmed.Status)
	}

	// The address is now taken for good.
	if _, _, err := svc.Register(ctx, params); !errors.Is(err, authz.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	if _, err := svc.Confirm(ctx, "not-a-token"); !errors.Is(err, authz.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestAccountBanRequiresPlatformAdmin(t *testing.T) {
	svc := NewUserService(nil, nil, nil, "test-secret", "test-issuer", time.Hour)
	actor := &session.Identity{UserID: uuid.NewString(), Role: model.RoleUser}

	if err := svc.BanAccount(context.Background(), actor, uuid.NewString()); !errors.Is(err, authz.ErrNotAdmin) {
		t.Fatalf("expected ErrNotAdmin, got %v", err)
	}
	if err := svc.UnbanAccount(context.Background(), actor, uuid.NewString()); !errors.Is(err, authz.ErrNotAdmin) {
		t.Fatalf("expected ErrNotAdmin, got %v", err)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	pool := openTestDB(t)
	if pool == nil {
		return
	}
	defer pool.Close()

	ctx := context.Background()
	store := repository.NewStore(pool)
	sessions := session.NewManager(store.Queries, nil, "test-secret", "test-issuer", time.Hour)
	svc := NewUserService(store, sessions, nil, "test-secret", "test-issuer", time.Hour)

	params := RegisterParams{
		Email:       "login." + uuid.NewString()[:8] + "@example.local",
		Password:    "right-password",
		DisplayName: "Login",
	}
	_, token, err := svc.Register(ctx, params)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Confirm(ctx, token); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	if _, _, err := svc.Login(ctx, params.Email, "wrong-password"); !errors.Is(err, authz.ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed, got %v", err)
	}
	if _, _, err := svc.Login(ctx, "nobody@example.local", "right-password"); !errors.Is(err, authz.ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed for unknown email, got %v", err)
	}
	if _, _, err := svc.Login(ctx, params.Email, "right-password"); err != nil {
		t.Fatalf("login: %v", err)
	}
}

func TestConcurrentJoinCreatesSingleMembership(t *testing.T) {
	pool := openTestDB(t)
	if pool == nil {
		return
	}
	defer pool.Close()

	ctx := context.Background()
	store := repository.NewStore(pool)
	svc := NewChannelService(store, &capturePublisher{}, nil, Config{InviteTTL: time.Hour, ModerationLogTTL: time.Hour})

	owner := seedUser(t, store, "owner")
	joiner := seedUser(t, store, "joiner")

	ch, err := svc.Create(ctx, owner.ID, ChannelParams{Name: "busy"})
	if err != nil {
		t.Fatalf("create channel: %v", err)
	}

	start := make(chan struct{})
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			<-start
			results <- svc.Join(ctx, joiner.ID, ch.ID)
		}()
	}
	close(start)

	var joined, already int
	for i := 0; i < 2; i++ {
		switch err := <-results; {
		case err == nil:
			joined++
		case errors.Is(err, authz.ErrAlreadyMember):
			already++
		default:
			t.Fatalf("unexpected join error: %v", err)
		}
	}
	if joined != 1 || already != 1 {
		t.Fatalf("want one success and one ErrAlreadyMember, got %d and %d", joined, already)
	}

	members, err := store.Queries.ListMembers(ctx, model.KindChannel, ch.ID)
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	rows := 0
	for _, m := range members {
		if m.UserID == joiner.ID {
			rows++
		}
	}
	if rows != 1 {
		t.Fatalf("want exactly one membership row, got %d", rows)
	}
}
