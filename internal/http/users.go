package http

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/DAN1X27/messenger-service-sub000/internal/blob"
	"github.com/DAN1X27/messenger-service-sub000/internal/moderation"
)

const maxAvatarBytes = 5 << 20

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if req.Email == "" || req.Password == "" || req.DisplayName == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}

	user, confirmToken, err := s.users.Register(r.Context(), moderation.RegisterParams{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"user":              mapUser(user),
		"confirmationToken": confirmToken,
	})
}

type confirmRequest struct {
	Token string `json:"token"`
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := decodeJSON(r, &req); err != nil || req.Token == "" {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	user, err := s.users.Confirm(r.Context(), req.Token)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapUser(user))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing_credentials")
		return
	}

	user, token, err := s.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"accessToken": token,
		"user":        mapUser(user),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	if err := s.users.Logout(r.Context(), identity.UserID); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	user, err := s.users.Get(r.Context(), identity.UserID, identity.UserID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapUser(user))
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	userID := chi.URLParam(r, "userID")

	user, err := s.users.Get(r.Context(), identity.UserID, userID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if user.ID == identity.UserID {
		writeJSON(w, http.StatusOK, mapUser(user))
		return
	}
	writeJSON(w, http.StatusOK, mapUserPublic(user))
}

func (s *Server) handleSearchUsers(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing_query")
		return
	}

	users, err := s.users.Search(r.Context(), query, queryLimit(r, 50))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, mapUserPublic(u))
	}
	writeJSON(w, http.StatusOK, views)
}

type privacyRequest struct {
	Private bool `json:"private"`
}

func (s *Server) handleSetPrivacy(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	var req privacyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if err := s.users.SetPrivacy(r.Context(), identity.UserID, req.Private); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"private": req.Private})
}

func (s *Server) handlePutAvatar(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	data, err := io.ReadAll(io.LimitReader(r.Body, maxAvatarBytes+1))
	if err != nil || len(data) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if len(data) > maxAvatarBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "avatar_too_large")
		return
	}

	key, err := s.users.SetAvatar(r.Context(), identity.UserID, data)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"avatarKey": key})
}

func (s *Server) handleGetAvatar(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	userID := chi.URLParam(r, "userID")

	user, err := s.users.Get(r.Context(), identity.UserID, userID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if user.AvatarKey == nil {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}

	data, err := s.blobs.Download(*user.AvatarKey)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		s.writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleBanAccount(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	if err := s.users.BanAccount(r.Context(), identity, chi.URLParam(r, "userID")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "banned"})
}

func (s *Server) handleUnbanAccount(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	if err := s.users.UnbanAccount(r.Context(), identity, chi.URLParam(r, "userID")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
