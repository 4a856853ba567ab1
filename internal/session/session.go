// Package session issues and validates bearer tokens. A token is only good while two
// independent facts hold: its JWT signature/expiry verifies, and its server-side
// session row is still in the issued state. Logout and account bans revoke the rows,
// which kills tokens long before their cryptographic expiry.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"github.com/DAN1X27/messenger-service-sub000/internal/auth"
	"github.com/DAN1X27/messenger-service-sub000/internal/authz"
	"github.com/DAN1X27/messenger-service-sub000/internal/model"
)

// Store is the slice of the relationship store the manager needs.
type Store interface {
	CreateSession(ctx context.Context, s model.Session) error
	GetSession(ctx context.Context, sessionID string) (model.Session, error)
	RevokeSessionsByUser(ctx context.Context, userID string) ([]string, error)
	PurgeExpiredSessions(ctx context.Context, before time.Time) (int64, error)
}

// Identity is the authenticated caller attached to a request or live connection.
type Identity struct {
	UserID    string
	Role      model.UserRole
	SessionID string
}

type Manager struct {
	store  Store
	redis  *redis.Client
	secret string
	issuer string
	ttl    time.Duration
}

// NewManager builds a manager. redisClient may be nil; revocation then relies on the
// session rows alone.
func NewManager(store Store, redisClient *redis.Client, secret, issuer string, ttl time.Duration) *Manager {
	return &Manager{store: store, redis: redisClient, secret: secret, issuer: issuer, ttl: ttl}
}

// Issue mints a signed token bound to a fresh session row.
func (m *Manager) Issue(ctx context.Context, user model.User) (token, sessionID string, err error) {
	now := time.Now().UTC()
	sess := model.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Status:    model.SessionIssued,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.store.CreateSession(ctx, sess); err != nil {
		return "", "", err
	}
	token, err = auth.NewAccessToken(m.secret, m.issuer, m.ttl, auth.Claims{
		UserID:    user.ID,
		UserRole:  string(user.Role),
		SessionID: sess.ID,
	})
	if err != nil {
		return "", "", err
	}
	return token, sess.ID, nil
}

// Validate checks the token's signature and expiry, then its revocation status. The
// two checks are independent; either failing yields ErrInvalidToken.
func (m *Manager) Validate(ctx context.Context, token string) (*Identity, error) {
	claims, err := auth.ParseToken(m.secret, m.issuer, token)
	if err != nil {
		return nil, authz.ErrInvalidToken
	}

	if m.redis != nil {
		revoked, err := m.redis.Exists(ctx, revokedKey(claims.SessionID)).Result()
		if err == nil && revoked > 0 {
			return nil, authz.ErrInvalidToken
		}
		// Redis errors fall through to the authoritative row check.
	}

	sess, err := m.store.GetSession(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, authz.ErrInvalidToken
		}
		return nil, err
	}
	if sess.Status != model.SessionIssued || time.Now().UTC().After(sess.ExpiresAt) {
		return nil, authz.ErrInvalidToken
	}

	return &Identity{
		UserID:    claims.UserID,
		Role:      model.UserRole(claims.UserRole),
		SessionID: claims.SessionID,
	}, nil
}

// RevokeAllForUser marks every issued session for the user revoked. Revocation is
// observed by the next Validate call on any connection; open sockets are not closed.
func (m *Manager) RevokeAllForUser(ctx context.Context, userID string) error {
	ids, err := m.store.RevokeSessionsByUser(ctx, userID)
	if err != nil {
		return err
	}
	if m.redis != nil {
		for _, id := range ids {
			_ = m.redis.Set(ctx, revokedKey(id), "1", m.ttl).Err()
		}
	}
	return nil
}

// PurgeExpired deletes session rows past their expiry. Idempotent; run by the purge job.
func (m *Manager) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	return m.store.PurgeExpiredSessions(ctx, before)
}

func revokedKey(sessionID string) string {
	return "session:revoked:" + sessionID
}
