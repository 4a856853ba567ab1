package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/DAN1X27/messenger-service-sub000/internal/authz"
	"github.com/DAN1X27/messenger-service-sub000/internal/model"
)

type memoryStore struct {
	mu       sync.Mutex
	sessions map[string]model.Session
}

func newMemoryStore() *memoryStore {
	return &memoryStore{sessions: make(map[string]model.Session)}
}

func (s *memoryStore) CreateSession(_ context.Context, sess model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return nil
}

func (s *memoryStore) GetSession(_ context.Context, id string) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return model.Session{}, pgx.ErrNoRows
	}
	return sess, nil
}

func (s *memoryStore) RevokeSessionsByUser(_ context.Context, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, sess := range s.sessions {
		if sess.UserID == userID && sess.Status == model.SessionIssued {
			sess.Status = model.SessionRevoked
			s.sessions[id] = sess
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *memoryStore) PurgeExpiredSessions(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for id, sess := range s.sessions {
		if sess.ExpiresAt.Before(before) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed, nil
}

func testUser() model.User {
	return model.User{ID: "user-1", Role: model.RoleUser}
}

func TestIssueAndValidate(t *testing.T) {
	m := NewManager(newMemoryStore(), nil, "secret", "issuer", time.Hour)

	token, sessionID, err := m.Issue(context.Background(), testUser())
	if err != nil {
		t.Fatalf("issue error: %v", err)
	}
	if sessionID == "" {
		t.Fatalf("expected a session id")
	}

	identity, err := m.Validate(context.Background(), token)
	if err != nil {
		t.Fatalf("validate error: %v", err)
	}
	if identity.UserID != "user-1" || identity.SessionID != sessionID {
		t.Fatalf("unexpected identity: %+v", identity)
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	m := NewManager(newMemoryStore(), nil, "secret", "issuer", time.Hour)
	if _, err := m.Validate(context.Background(), "not-a-token"); !errors.Is(err, authz.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestValidateRejectsMissingSessionRow(t *testing.T) {
	store := newMemoryStore()
	m := NewManager(store, nil, "secret", "issuer", time.Hour)
	token, sessionID, err := m.Issue(context.Background(), testUser())
	if err != nil {
		t.Fatalf("issue error: %v", err)
	}

	// A purged row means the token can no longer be vouched for.
	store.mu.Lock()
	delete(store.sessions, sessionID)
	store.mu.Unlock()

	if _, err := m.Validate(context.Background(), token); !errors.Is(err, authz.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestRevokeAllForUser(t *testing.T) {
	m := NewManager(newMemoryStore(), nil, "secret", "issuer", time.Hour)

	tokenA, _, err := m.Issue(context.Background(), testUser())
	if err != nil {
		t.Fatalf("issue error: %v", err)
	}
	tokenB, _, err := m.Issue(context.Background(), testUser())
	if err != nil {
		t.Fatalf("issue error: %v", err)
	}

	if err := m.RevokeAllForUser(context.Background(), "user-1"); err != nil {
		t.Fatalf("revoke error: %v", err)
	}

	// Both previously-issued tokens fail even though their signatures still verify.
	for _, token := range []string{tokenA, tokenB} {
		if _, err := m.Validate(context.Background(), token); !errors.Is(err, authz.ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken after revocation, got %v", err)
		}
	}
}

func TestRevokeDoesNotTouchOtherUsers(t *testing.T) {
	m := NewManager(newMemoryStore(), nil, "secret", "issuer", time.Hour)

	otherToken, _, err := m.Issue(context.Background(), model.User{ID: "user-2", Role: model.RoleUser})
	if err != nil {
		t.Fatalf("issue error: %v", err)
	}
	if err := m.RevokeAllForUser(context.Background(), "user-1"); err != nil {
		t.Fatalf("revoke error: %v", err)
	}
	if _, err := m.Validate(context.Background(), otherToken); err != nil {
		t.Fatalf("other user's token should survive, got %v", err)
	}
}

func TestPurgeExpired(t *testing.T) {
	store := newMemoryStore()
	m := NewManager(store, nil, "secret", "issuer", -time.Minute)

	if _, _, err := m.Issue(context.Background(), testUser()); err != nil {
		t.Fatalf("issue error: %v", err)
	}
	removed, err := m.PurgeExpired(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("purge error: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 purged session, got %d", removed)
	}
	// A second sweep is a no-op.
	removed, err = m.PurgeExpired(context.Background(), time.Now().UTC())
	if err != nil || removed != 0 {
		t.Fatalf("expected idempotent purge, got %d, %v", removed, err)
	}
}
