package moderation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/DAN1X27/messenger-service-sub000/internal/auth"
	"github.com/DAN1X27/messenger-service-sub000/internal/authz"
	"github.com/DAN1X27/messenger-service-sub000/internal/blob"
	"github.com/DAN1X27/messenger-service-sub000/internal/crypto"
	"github.com/DAN1X27/messenger-service-sub000/internal/model"
	"github.com/DAN1X27/messenger-service-sub000/internal/repository"
	"github.com/DAN1X27/messenger-service-sub000/internal/session"
)

// UserService owns accounts: registration, login, platform-level moderation and
// profile settings.
type UserService struct {
	store    *repository.Store
	sessions *session.Manager
	blobs    blob.Store
	secret   string
	issuer   string
	tempTTL  time.Duration
}

func NewUserService(store *repository.Store, sessions *session.Manager, blobs blob.Store, secret, issuer string, tempTTL time.Duration) *UserService {
	return &UserService{store: store, sessions: sessions, blobs: blobs, secret: secret, issuer: issuer, tempTTL: tempTTL}
}

type RegisterParams struct {
	Email       string
	Password    string
	DisplayName string
}

// Register creates a temporary account and returns a confirmation token. The account
// stays unusable until confirmed; unconfirmed rows are swept by the purge job.
func (s *UserService) Register(ctx context.Context, params RegisterParams) (model.User, string, error) {
	hash, err := crypto.HashPassword(params.Password)
	if err != nil {
		return model.User{}, "", err
	}
	user := model.User{
		ID:           uuid.NewString(),
		Email:        params.Email,
		PasswordHash: hash,
		DisplayName:  params.DisplayName,
		Role:         model.RoleUser,
		Status:       model.StatusTemporary,
		CreatedAt:    time.Now().UTC(),
	}
	err = s.store.WithTx(ctx, func(q *repository.Queries) error {
		existing, err := q.GetUserByEmail(ctx, params.Email)
		switch {
		case err == nil && existing.Status != model.StatusTemporary:
			return authz.ErrEmailTaken
		case err == nil:
			// A stale unconfirmed signup for the same address is replaced.
			user.ID = existing.ID
			return q.UpdateUserCredentials(ctx, user)
		case !errors.Is(err, repository.ErrNotFound):
			return err
		}
		err = q.CreateUser(ctx, user)
		if repository.IsUniqueViolation(err) {
			return authz.ErrEmailTaken
		}
		return err
	})
	if err != nil {
		return model.User{}, "", err
	}

	token, err := auth.NewAccessToken(s.secret, s.issuer, s.tempTTL, auth.Claims{
		UserID:   user.ID,
		UserRole: "confirmation",
	})
	if err != nil {
		return model.User{}, "", err
	}
	return user, token, nil
}

// Confirm flips a temporary account to registered using the confirmation token.
func (s *UserService) Confirm(ctx context.Context, token string) (model.User, error) {
	claims, err := auth.ParseToken(s.secret, s.issuer, token)
	if err != nil || claims.UserRole != "confirmation" {
		return model.User{}, authz.ErrInvalidToken
	}
	var user model.User
	err = s.store.WithTx(ctx, func(q *repository.Queries) error {
		user, err = q.GetUserByID(ctx, claims.UserID)
		if err != nil {
			return notFound(err)
		}
		if user.Status != model.StatusTemporary {
			return nil
		}
		user.Status = model.StatusRegistered
		return q.UpdateUserStatus(ctx, user.ID, model.StatusRegistered)
	})
	if err != nil {
		return model.User{}, err
	}
	return user, nil
}

// Login checks credentials and opens a session. Banned and unconfirmed accounts
// cannot log in; the caller cannot tell a wrong password from an unknown email.
func (s *UserService) Login(ctx context.Context, email, password string) (model.User, string, error) {
	user, err := s.store.Queries.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, "", authz.ErrAuthenticationFailed
		}
		return model.User{}, "", err
	}
	if crypto.CheckPassword(user.PasswordHash, password) != nil {
		return model.User{}, "", authz.ErrAuthenticationFailed
	}
	if user.Status != model.StatusRegistered {
		return model.User{}, "", authz.ErrAuthenticationFailed
	}
	token, _, err := s.sessions.Issue(ctx, user)
	if err != nil {
		return model.User{}, "", err
	}
	return user, token, nil
}

// Logout revokes every session of the user; all tokens die at their next use.
func (s *UserService) Logout(ctx context.Context, userID string) error {
	return s.sessions.RevokeAllForUser(ctx, userID)
}

// BanAccount is platform moderation: the account is frozen and every live session
// revoked in the same call.
func (s *UserService) BanAccount(ctx context.Context, actor *session.Identity, targetID string) error {
	if actor.Role != model.RoleAdmin {
		return authz.ErrNotAdmin
	}
	err := s.store.WithTx(ctx, func(q *repository.Queries) error {
		target, err := q.GetUserByID(ctx, targetID)
		if err != nil {
			return notFound(err)
		}
		if target.Role == model.RoleAdmin {
			return authz.ErrCannotBanPrivileged
		}
		if target.Status == model.StatusBanned {
			return authz.ErrAlreadyBanned
		}
		return q.UpdateUserStatus(ctx, targetID, model.StatusBanned)
	})
	if err != nil {
		return err
	}
	return s.sessions.RevokeAllForUser(ctx, targetID)
}

func (s *UserService) UnbanAccount(ctx context.Context, actor *session.Identity, targetID string) error {
	if actor.Role != model.RoleAdmin {
		return authz.ErrNotAdmin
	}
	return s.store.WithTx(ctx, func(q *repository.Queries) error {
		target, err := q.GetUserByID(ctx, targetID)
		if err != nil {
			return notFound(err)
		}
		if target.Status != model.StatusBanned {
			return authz.ErrNotBanned
		}
		return q.UpdateUserStatus(ctx, targetID, model.StatusRegistered)
	})
}

func (s *UserService) SetPrivacy(ctx context.Context, userID string, private bool) error {
	return s.store.Queries.UpdateUserPrivacy(ctx, userID, private)
}

// SetAvatar stores the image and records its key, dropping the previous blob.
func (s *UserService) SetAvatar(ctx context.Context, userID string, data []byte) (string, error) {
	user, err := s.store.Queries.GetUserByID(ctx, userID)
	if err != nil {
		return "", notFound(err)
	}
	key := "avatar-" + uuid.NewString()
	if err := s.blobs.Upload(key, data); err != nil {
		return "", err
	}
	if err := s.store.Queries.UpdateUserAvatar(ctx, userID, &key); err != nil {
		_ = s.blobs.Delete(key)
		return "", err
	}
	if user.AvatarKey != nil {
		_ = s.blobs.Delete(*user.AvatarKey)
	}
	return key, nil
}

// Get hides private profiles from strangers; friends and the owner see everything.
func (s *UserService) Get(ctx context.Context, actorID, userID string) (model.User, error) {
	user, err := s.store.Queries.GetUserByID(ctx, userID)
	if err != nil {
		return model.User{}, notFound(err)
	}
	if user.Private && actorID != userID {
		f, err := s.store.Queries.GetFriendship(ctx, actorID, userID)
		if err != nil || f.Status != model.FriendshipAccepted {
			return model.User{}, authz.ErrTargetIsPrivate
		}
	}
	return user, nil
}

func (s *UserService) Search(ctx context.Context, query string, limit int) ([]model.User, error) {
	return s.store.Queries.SearchUsers(ctx, query, limit)
}
