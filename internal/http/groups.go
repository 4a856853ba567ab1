package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/DAN1X27/messenger-service-sub000/internal/moderation"
)

type groupRequest struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	Private        bool   `json:"private"`
	InvitesAllowed bool   `json:"invitesAllowed"`
	FilesAllowed   bool   `json:"filesAllowed"`
}

func (req groupRequest) params() moderation.GroupParams {
	return moderation.GroupParams{
		Name:           strings.TrimSpace(req.Name),
		Description:    strings.TrimSpace(req.Description),
		Private:        req.Private,
		InvitesAllowed: req.InvitesAllowed,
		FilesAllowed:   req.FilesAllowed,
	}
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	var req groupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	params := req.params()
	if params.Name == "" {
		writeError(w, http.StatusBadRequest, "missing_name")
		return
	}

	g, err := s.groups.Create(r.Context(), identity.UserID, params)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapGroup(g))
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	g, err := s.groups.Get(r.Context(), identity.UserID, chi.URLParam(r, "groupID"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapGroup(g))
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	groups, err := s.groups.ListForUser(r.Context(), identity.UserID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	views := make([]groupView, 0, len(groups))
	for _, g := range groups {
		views = append(views, mapGroup(g))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleSearchGroups(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing_query")
		return
	}
	groups, err := s.groups.Search(r.Context(), query, queryLimit(r, 50))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	views := make([]groupView, 0, len(groups))
	for _, g := range groups {
		views = append(views, mapGroup(g))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleUpdateGroup(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	var req groupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	params := req.params()
	if params.Name == "" {
		writeError(w, http.StatusBadRequest, "missing_name")
		return
	}

	if err := s.groups.Update(r.Context(), identity.UserID, chi.URLParam(r, "groupID"), params); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	if err := s.groups.Delete(r.Context(), identity.UserID, chi.URLParam(r, "groupID")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleJoinGroup(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	if err := s.groups.Join(r.Context(), identity.UserID, chi.URLParam(r, "groupID")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "joined"})
}

func (s *Server) handleLeaveGroup(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	if err := s.groups.Leave(r.Context(), identity.UserID, chi.URLParam(r, "groupID")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "left"})
}

func (s *Server) handleGroupInvite(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	if err := s.groups.Invite(r.Context(), identity.UserID, chi.URLParam(r, "groupID"), chi.URLParam(r, "userID")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "invited"})
}

func (s *Server) handleGroupInviteAccept(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	if err := s.groups.AcceptInvite(r.Context(), identity.UserID, chi.URLParam(r, "groupID")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "joined"})
}

func (s *Server) handleGroupInviteDecline(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	if err := s.groups.DeclineInvite(r.Context(), identity.UserID, chi.URLParam(r, "groupID")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "declined"})
}

func (s *Server) handleGroupInvites(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	invites, err := s.groups.Invites(r.Context(), identity.UserID, chi.URLParam(r, "groupID"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapInvites(invites))
}

func (s *Server) handleGroupBan(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	if err := s.groups.Ban(r.Context(), identity.UserID, chi.URLParam(r, "groupID"), chi.URLParam(r, "userID")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "banned"})
}

func (s *Server) handleGroupUnban(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	if err := s.groups.Unban(r.Context(), identity.UserID, chi.URLParam(r, "groupID"), chi.URLParam(r, "userID")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGroupBans(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	bans, err := s.groups.Bans(r.Context(), identity.UserID, chi.URLParam(r, "groupID"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapBans(bans))
}

func (s *Server) handleGroupPromote(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	if err := s.groups.SetAdmin(r.Context(), identity.UserID, chi.URLParam(r, "groupID"), chi.URLParam(r, "userID"), true); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "promoted"})
}

func (s *Server) handleGroupDemote(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	if err := s.groups.SetAdmin(r.Context(), identity.UserID, chi.URLParam(r, "groupID"), chi.URLParam(r, "userID"), false); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "demoted"})
}

func (s *Server) handleGroupMembers(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	members, err := s.groups.Members(r.Context(), identity.UserID, chi.URLParam(r, "groupID"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapMembers(members))
}

func (s *Server) handleGroupLogs(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	logs, err := s.groups.Logs(r.Context(), identity.UserID, chi.URLParam(r, "groupID"), queryLimit(r, 100))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapLogs(logs))
}

func (s *Server) handleListGroupMessages(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	messages, err := s.groups.Messages(r.Context(), identity.UserID, chi.URLParam(r, "groupID"), queryLimit(r, 100))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapMessages(messages))
}

func (s *Server) handleSendGroupMessage(w http.ResponseWriter, r *http.Request) {
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

	msg, err := s.groups.SendMessage(r.Context(), identity.UserID, chi.URLParam(r, "groupID"), req.Body, req.FileKey)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapMessage(msg))
}

func (s *Server) handleDeleteGroupMessage(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	if err := s.groups.DeleteMessage(r.Context(), identity.UserID, chi.URLParam(r, "messageID")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
