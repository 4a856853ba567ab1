package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListFriends(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	friendships, err := s.friends.Friends(r.Context(), identity.UserID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapFriendships(friendships, identity.UserID))
}

func (s *Server) handleListFriendRequests(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	requests, err := s.friends.IncomingRequests(r.Context(), identity.UserID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapFriendships(requests, identity.UserID))
}

func (s *Server) handleFriendRequest(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	targetID := chi.URLParam(r, "userID")
	if targetID == identity.UserID {
		writeError(w, http.StatusBadRequest, "invalid_target")
		return
	}
	if err := s.friends.Request(r.Context(), identity.UserID, targetID); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleFriendAccept(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	if err := s.friends.Accept(r.Context(), identity.UserID, chi.URLParam(r, "userID")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

func (s *Server) handleFriendRemove(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	if err := s.friends.Remove(r.Context(), identity.UserID, chi.URLParam(r, "userID")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (s *Server) handleListBlocks(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	blocks, err := s.friends.Blocks(r.Context(), identity.UserID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	ids := make([]string, 0, len(blocks))
	for _, b := range blocks {
		ids = append(ids, b.BlockedID)
	}
	writeJSON(w, http.StatusOK, map[string][]string{"blocked": ids})
}

func (s *Server) handleBlock(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	targetID := chi.URLParam(r, "userID")
	if targetID == identity.UserID {
		writeError(w, http.StatusBadRequest, "invalid_target")
		return
	}
	if err := s.friends.Block(r.Context(), identity.UserID, targetID); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "blocked"})
}

func (s *Server) handleUnblock(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	if err := s.friends.Unblock(r.Context(), identity.UserID, chi.URLParam(r, "userID")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListChats(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	chats, err := s.chats.List(r.Context(), identity.UserID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	views := make([]chatView, 0, len(chats))
	for _, chat := range chats {
		views = append(views, mapChat(chat, identity.UserID))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleOpenChat(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	otherID := chi.URLParam(r, "userID")
	if otherID == identity.UserID {
		writeError(w, http.StatusBadRequest, "invalid_target")
		return
	}
	chat, err := s.chats.Open(r.Context(), identity.UserID, otherID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapChat(chat, identity.UserID))
}

func (s *Server) handleDeleteChat(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	if err := s.chats.Delete(r.Context(), identity.UserID, chi.URLParam(r, "chatID")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleListChatMessages(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	messages, err := s.chats.Messages(r.Context(), identity.UserID, chi.URLParam(r, "chatID"), queryLimit(r, 100))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapMessages(messages))
}

type sendMessageRequest struct {
	Body    string  `json:"body"`
	FileKey *string `json:"fileKey,omitempty"`
}

func (s *Server) handleSendChatMessage(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	var req sendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if strings.TrimSpace(req.Body) == "" && req.FileKey == nil {
		writeError(w, http.StatusBadRequest, "empty_message")
		return
	}

	msg, err := s.chats.SendMessage(r.Context(), identity.UserID, chi.URLParam(r, "chatID"), req.Body, req.FileKey)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapMessage(msg))
}

func (s *Server) handleDeleteChatMessage(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	if err := s.chats.DeleteMessage(r.Context(), identity.UserID, chi.URLParam(r, "messageID")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
