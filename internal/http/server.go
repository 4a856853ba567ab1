package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/DAN1X27/messenger-service-sub000/internal/authz"
	"github.com/DAN1X27/messenger-service-sub000/internal/blob"
	"github.com/DAN1X27/messenger-service-sub000/internal/config"
	"github.com/DAN1X27/messenger-service-sub000/internal/metrics"
	"github.com/DAN1X27/messenger-service-sub000/internal/moderation"
	"github.com/DAN1X27/messenger-service-sub000/internal/session"
)

type Server struct {
	cfg      config.Config
	users    *moderation.UserService
	channels *moderation.ChannelService
	groups   *moderation.GroupService
	chats    *moderation.ChatService
	friends  *moderation.FriendService
	sessions *session.Manager
	blobs    blob.Store
	ws       http.Handler
	log      zerolog.Logger
}

func NewServer(
	cfg config.Config,
	users *moderation.UserService,
	channels *moderation.ChannelService,
	groups *moderation.GroupService,
	chats *moderation.ChatService,
	friends *moderation.FriendService,
	sessions *session.Manager,
	blobs blob.Store,
	ws http.Handler,
	log zerolog.Logger,
) *Server {
	return &Server{
		cfg:      cfg,
		users:    users,
		channels: channels,
		groups:   groups,
		chats:    chats,
		friends:  friends,
		sessions: sessions,
		blobs:    blobs,
		ws:       ws,
		log:      log,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(metrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/auth/register", s.handleRegister)
	r.Post("/auth/confirm", s.handleConfirm)
	r.Post("/auth/login", s.handleLogin)
	r.With(s.authMiddleware).Post("/auth/logout", s.handleLogout)
	r.With(s.authMiddleware).Get("/auth/me", s.handleGetMe)

	r.Route("/users", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/search", s.handleSearchUsers)
		r.Patch("/me/privacy", s.handleSetPrivacy)
		r.Put("/me/avatar", s.handlePutAvatar)
		r.Get("/{userID}", s.handleGetUser)
		r.Get("/{userID}/avatar", s.handleGetAvatar)
		r.With(s.requirePlatformAdmin).Post("/{userID}/ban", s.handleBanAccount)
		r.With(s.requirePlatformAdmin).Delete("/{userID}/ban", s.handleUnbanAccount)
	})

	r.Route("/friends", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/", s.handleListFriends)
		r.Get("/requests", s.handleListFriendRequests)
		r.Post("/{userID}", s.handleFriendRequest)
		r.Post("/{userID}/accept", s.handleFriendAccept)
		r.Delete("/{userID}", s.handleFriendRemove)
	})

	r.Route("/blocks", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/", s.handleListBlocks)
		r.Post("/{userID}", s.handleBlock)
		r.Delete("/{userID}", s.handleUnblock)
	})

	r.Route("/chats", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/", s.handleListChats)
		r.Post("/{userID}", s.handleOpenChat)
		r.Delete("/{chatID}", s.handleDeleteChat)
		r.Get("/{chatID}/messages", s.handleListChatMessages)
		r.Post("/{chatID}/messages", s.handleSendChatMessage)
		r.Delete("/{chatID}/messages/{messageID}", s.handleDeleteChatMessage)
	})

	r.Route("/channels", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/", s.handleListChannels)
		r.Get("/search", s.handleSearchChannels)
		r.Post("/", s.handleCreateChannel)
		r.Get("/{channelID}", s.handleGetChannel)
		r.Patch("/{channelID}", s.handleUpdateChannel)
		r.Delete("/{channelID}", s.handleDeleteChannel)
		r.Post("/{channelID}/join", s.handleJoinChannel)
		r.Post("/{channelID}/leave", s.handleLeaveChannel)
		r.Post("/{channelID}/invites/{userID}", s.handleChannelInvite)
		r.Post("/{channelID}/invites/accept", s.handleChannelInviteAccept)
		r.Post("/{channelID}/invites/decline", s.handleChannelInviteDecline)
		r.Get("/{channelID}/invites", s.handleChannelInvites)
		r.Post("/{channelID}/bans/{userID}", s.handleChannelBan)
		r.Delete("/{channelID}/bans/{userID}", s.handleChannelUnban)
		r.Get("/{channelID}/bans", s.handleChannelBans)
		r.Post("/{channelID}/admins/{userID}", s.handleChannelPromote)
		r.Delete("/{channelID}/admins/{userID}", s.handleChannelDemote)
		r.Get("/{channelID}/members", s.handleChannelMembers)
		r.Get("/{channelID}/logs", s.handleChannelLogs)
		r.Post("/{channelID}/posts", s.handleCreatePost)
		r.Get("/{channelID}/posts", s.handleListPosts)
		r.Delete("/{channelID}/posts/{postID}", s.handleDeletePost)
		r.Post("/{channelID}/posts/{postID}/comments", s.handleCreateComment)
		r.Delete("/{channelID}/posts/{postID}/comments/{commentID}", s.handleDeleteComment)
	})

	r.Route("/groups", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/", s.handleListGroups)
		r.Get("/search", s.handleSearchGroups)
		r.Post("/", s.handleCreateGroup)
		r.Get("/{groupID}", s.handleGetGroup)
		r.Patch("/{groupID}", s.handleUpdateGroup)
		r.Delete("/{groupID}", s.handleDeleteGroup)
		r.Post("/{groupID}/join", s.handleJoinGroup)
		r.Post("/{groupID}/leave", s.handleLeaveGroup)
		r.Post("/{groupID}/invites/{userID}", s.handleGroupInvite)
		r.Post("/{groupID}/invites/accept", s.handleGroupInviteAccept)
		r.Post("/{groupID}/invites/decline", s.handleGroupInviteDecline)
		r.Get("/{groupID}/invites", s.handleGroupInvites)
		r.Post("/{groupID}/bans/{userID}", s.handleGroupBan)
		r.Delete("/{groupID}/bans/{userID}", s.handleGroupUnban)
		r.Get("/{groupID}/bans", s.handleGroupBans)
		r.Post("/{groupID}/admins/{userID}", s.handleGroupPromote)
		r.Delete("/{groupID}/admins/{userID}", s.handleGroupDemote)
		r.Get("/{groupID}/members", s.handleGroupMembers)
		r.Get("/{groupID}/logs", s.handleGroupLogs)
		r.Get("/{groupID}/messages", s.handleListGroupMessages)
		r.Post("/{groupID}/messages", s.handleSendGroupMessage)
		r.Delete("/{groupID}/messages/{messageID}", s.handleDeleteGroupMessage)
	})

	r.Handle("/ws", s.ws)

	return r
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing_token")
			return
		}

		identity, err := s.sessions.Validate(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		}

		ctx := context.WithValue(r.Context(), identityKey{}, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requirePlatformAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := identityFromContext(r.Context())
		if identity == nil || identity.Role != "admin" {
			writeError(w, http.StatusForbidden, "admin_only")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type identityKey struct{}

func identityFromContext(ctx context.Context) *session.Identity {
	value := ctx.Value(identityKey{})
	identity, _ := value.(*session.Identity)
	return identity
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{
		"error":     code,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// writeServiceError maps policy errors onto the wire contract; anything without a
// policy code is a server fault and is logged.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	code := authz.Code(err)
	if code == "" {
		s.log.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeError(w, statusForCode(code), code)
}

func statusForCode(code string) int {
	switch code {
	case "invalid_token", "authentication_failed":
		return http.StatusUnauthorized
	case "not_member", "not_admin", "not_owner", "cannot_ban_privileged_user",
		"blocked", "target_is_private", "invites_disabled", "files_disabled",
		"comments_disabled":
		return http.StatusForbidden
	case "not_found", "invite_not_found", "not_banned", "not_blocked":
		return http.StatusNotFound
	case "already_member", "already_banned", "already_invited", "already_friends",
		"already_requested", "already_blocked", "email_taken":
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func queryLimit(r *http.Request, fallback int) int {
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}
