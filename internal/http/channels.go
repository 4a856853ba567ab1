package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/DAN1X27/messenger-service-sub000/internal/moderation"
)

type channelRequest struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	Private         bool   `json:"private"`
	CommentsAllowed bool   `json:"commentsAllowed"`
	InvitesAllowed  bool   `json:"invitesAllowed"`
	FilesAllowed    bool   `json:"filesAllowed"`
}

func (req channelRequest) params() moderation.ChannelParams {
	return moderation.ChannelParams{
		Name:            strings.TrimSpace(req.Name),
		Description:     strings.TrimSpace(req.Description),
		Private:         req.Private,
		CommentsAllowed: req.CommentsAllowed,
		InvitesAllowed:  req.InvitesAllowed,
		FilesAllowed:    req.FilesAllowed,
	}
}

func (s *Server) handleCreateChannel(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	var req channelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	params := req.params()
	if params.Name == "" {
		writeError(w, http.StatusBadRequest, "missing_name")
		return
	}

	ch, err := s.channels.Create(r.Context(), identity.UserID, params)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapChannel(ch))
}

func (s *Server) handleGetChannel(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	ch, err := s.channels.Get(r.Context(), identity.UserID, chi.URLParam(r, "channelID"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapChannel(ch))
}

func (s *Server) handleListChannels(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	channels, err := s.channels.ListForUser(r.Context(), identity.UserID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	views := make([]channelView, 0, len(channels))
	for _, ch := range channels {
		views = append(views, mapChannel(ch))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleSearchChannels(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing_query")
		return
	}
	channels, err := s.channels.Search(r.Context(), query, queryLimit(r, 50))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	views := make([]channelView, 0, len(channels))
	for _, ch := range channels {
		views = append(views, mapChannel(ch))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleUpdateChannel(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	var req channelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	params := req.params()
	if params.Name == "" {
		writeError(w, http.StatusBadRequest, "missing_name")
		return
	}

	if err := s.channels.Update(r.Context(), identity.UserID, chi.URLParam(r, "channelID"), params); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDeleteChannel(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	if err := s.channels.Delete(r.Context(), identity.UserID, chi.URLParam(r, "channelID")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleJoinChannel(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	if err := s.channels.Join(r.Context(), identity.UserID, chi.URLParam(r, "channelID")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "joined"})
}

func (s *Server) handleLeaveChannel(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	if err := s.channels.Leave(r.Context(), identity.UserID, chi.URLParam(r, "channelID")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "left"})
}

func (s *Server) handleChannelInvite(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	if err := s.channels.Invite(r.Context(), identity.UserID, chi.URLParam(r, "channelID"), chi.URLParam(r, "userID")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "invited"})
}

func (s *Server) handleChannelInviteAccept(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	if err := s.channels.AcceptInvite(r.Context(), identity.UserID, chi.URLParam(r, "channelID")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "joined"})
}

func (s *Server) handleChannelInviteDecline(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	if err := s.channels.DeclineInvite(r.Context(), identity.UserID, chi.URLParam(r, "channelID")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "declined"})
}

func (s *Server) handleChannelInvites(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	invites, err := s.channels.Invites(r.Context(), identity.UserID, chi.URLParam(r, "channelID"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapInvites(invites))
}

func (s *Server) handleChannelBan(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	if err := s.channels.Ban(r.Context(), identity.UserID, chi.URLParam(r, "channelID"), chi.URLParam(r, "userID")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "banned"})
}

func (s *Server) handleChannelUnban(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	if err := s.channels.Unban(r.Context(), identity.UserID, chi.URLParam(r, "channelID"), chi.URLParam(r, "userID")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleChannelBans(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	bans, err := s.channels.Bans(r.Context(), identity.UserID, chi.URLParam(r, "channelID"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapBans(bans))
}

func (s *Server) handleChannelPromote(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	if err := s.channels.SetAdmin(r.Context(), identity.UserID, chi.URLParam(r, "channelID"), chi.URLParam(r, "userID"), true); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "promoted"})
}

func (s *Server) handleChannelDemote(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	if err := s.channels.SetAdmin(r.Context(), identity.UserID, chi.URLParam(r, "channelID"), chi.URLParam(r, "userID"), false); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "demoted"})
}

func (s *Server) handleChannelMembers(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	members, err := s.channels.Members(r.Context(), identity.UserID, chi.URLParam(r, "channelID"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapMembers(members))
}

func (s *Server) handleChannelLogs(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	logs, err := s.channels.Logs(r.Context(), identity.UserID, chi.URLParam(r, "channelID"), queryLimit(r, 100))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapLogs(logs))
}

type postRequest struct {
	Body    string  `json:"body"`
	FileKey *string `json:"fileKey,omitempty"`
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	var req postRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if strings.TrimSpace(req.Body) == "" && req.FileKey == nil {
		writeError(w, http.StatusBadRequest, "empty_post")
		return
	}

	post, err := s.channels.CreatePost(r.Context(), identity.UserID, chi.URLParam(r, "channelID"), req.Body, req.FileKey)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapPost(post))
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	posts, err := s.channels.ListPosts(r.Context(), identity.UserID, chi.URLParam(r, "channelID"), queryLimit(r, 100))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	views := make([]postView, 0, len(posts))
	for _, p := range posts {
		views = append(views, mapPost(p))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	if err := s.channels.DeletePost(r.Context(), identity.UserID, chi.URLParam(r, "postID")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type commentRequest struct {
	Body string `json:"body"`
}

func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	var req commentRequest
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.Body) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	comment, err := s.channels.CreateComment(r.Context(), identity.UserID, chi.URLParam(r, "postID"), req.Body)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapComment(comment))
}

func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	if err := s.channels.DeleteComment(r.Context(), identity.UserID, chi.URLParam(r, "commentID")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
