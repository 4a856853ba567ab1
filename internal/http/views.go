package http

import (
	"time"

	"github.com/DAN1X27/messenger-service-sub000/internal/model"
)

type userView struct {
	ID          string `json:"id"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role,omitempty"`
	Status      string `json:"status,omitempty"`
	Private     bool   `json:"private"`
	Online      bool   `json:"online"`
	CreatedAt   string `json:"createdAt"`
}

// mapUser renders the full profile; mapUserPublic strips fields strangers have no
// business seeing.
func mapUser(u model.User) userView {
	return userView{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        string(u.Role),
		Status:      string(u.Status),
		Private:     u.Private,
		Online:      u.Online,
		CreatedAt:   u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func mapUserPublic(u model.User) userView {
	return userView{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		Private:     u.Private,
		Online:      u.Online,
		CreatedAt:   u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type channelView struct {
	ID              string `json:"id"`
	OwnerID         string `json:"ownerId"`
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	Private         bool   `json:"private"`
	CommentsAllowed bool   `json:"commentsAllowed"`
	InvitesAllowed  bool   `json:"invitesAllowed"`
	FilesAllowed    bool   `json:"filesAllowed"`
	CreatedAt       string `json:"createdAt"`
}

func mapChannel(ch model.Channel) channelView {
	return channelView{
		ID:              ch.ID,
		OwnerID:         ch.OwnerID,
		Name:            ch.Name,
		Description:     ch.Description,
		Private:         ch.Private,
		CommentsAllowed: ch.CommentsAllowed,
		InvitesAllowed:  ch.InvitesAllowed,
		FilesAllowed:    ch.FilesAllowed,
		CreatedAt:       ch.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type groupView struct {
	ID             string `json:"id"`
	OwnerID        string `json:"ownerId"`
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	Private        bool   `json:"private"`
	InvitesAllowed bool   `json:"invitesAllowed"`
	FilesAllowed   bool   `json:"filesAllowed"`
	CreatedAt      string `json:"createdAt"`
}

func mapGroup(g model.Group) groupView {
	return groupView{
		ID:             g.ID,
		OwnerID:        g.OwnerID,
		Name:           g.Name,
		Description:    g.Description,
		Private:        g.Private,
		InvitesAllowed: g.InvitesAllowed,
		FilesAllowed:   g.FilesAllowed,
		CreatedAt:      g.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type membershipView struct {
	UserID   string `json:"userId"`
	IsAdmin  bool   `json:"isAdmin"`
	JoinedAt string `json:"joinedAt"`
}

func mapMembers(members []model.Membership) []membershipView {
	views := make([]membershipView, 0, len(members))
	for _, m := range members {
		views = append(views, membershipView{
			UserID:   m.UserID,
			IsAdmin:  m.IsAdmin,
			JoinedAt: m.JoinedAt.UTC().Format(time.RFC3339),
		})
	}
	return views
}

type inviteView struct {
	UserID    string `json:"userId"`
	SentAt    string `json:"sentAt"`
	ExpiresAt string `json:"expiresAt"`
}

func mapInvites(invites []model.Invite) []inviteView {
	views := make([]inviteView, 0, len(invites))
	for _, inv := range invites {
		views = append(views, inviteView{
			UserID:    inv.UserID,
			SentAt:    inv.SentAt.UTC().Format(time.RFC3339),
			ExpiresAt: inv.ExpiresAt.UTC().Format(time.RFC3339),
		})
	}
	return views
}

type banView struct {
	UserID   string `json:"userId"`
	BannedAt string `json:"bannedAt"`
}

func mapBans(bans []model.Ban) []banView {
	views := make([]banView, 0, len(bans))
	for _, b := range bans {
		views = append(views, banView{
			UserID:   b.UserID,
			BannedAt: b.BannedAt.UTC().Format(time.RFC3339),
		})
	}
	return views
}

type logView struct {
	ID        string  `json:"id"`
	ActorID   string  `json:"actorId"`
	TargetID  *string `json:"targetId,omitempty"`
	Action    string  `json:"action"`
	CreatedAt string  `json:"createdAt"`
}

func mapLogs(entries []model.ModerationLog) []logView {
	views := make([]logView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, logView{
			ID:        entry.ID,
			ActorID:   entry.ActorID,
			TargetID:  entry.TargetID,
			Action:    entry.Action,
			CreatedAt: entry.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return views
}

type chatView struct {
	ID            string `json:"id"`
	CounterpartID string `json:"counterpartId"`
	CreatedAt     string `json:"createdAt"`
}

func mapChat(chat model.Chat, viewerID string) chatView {
	return chatView{
		ID:            chat.ID,
		CounterpartID: chat.Counterpart(viewerID),
		CreatedAt:     chat.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type messageView struct {
	ID        string  `json:"id"`
	AuthorID  string  `json:"authorId"`
	Body      string  `json:"body"`
	FileKey   *string `json:"fileKey,omitempty"`
	CreatedAt string  `json:"createdAt"`
}

func mapMessages(messages []model.Message) []messageView {
	views := make([]messageView, 0, len(messages))
	for _, m := range messages {
		views = append(views, mapMessage(m))
	}
	return views
}

func mapMessage(m model.Message) messageView {
	return messageView{
		ID:        m.ID,
		AuthorID:  m.AuthorID,
		Body:      m.Body,
		FileKey:   m.FileKey,
		CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type postView struct {
	ID        string  `json:"id"`
	AuthorID  string  `json:"authorId"`
	Body      string  `json:"body"`
	FileKey   *string `json:"fileKey,omitempty"`
	CreatedAt string  `json:"createdAt"`
}

func mapPost(p model.Post) postView {
	return postView{
		ID:        p.ID,
		AuthorID:  p.AuthorID,
		Body:      p.Body,
		FileKey:   p.FileKey,
		CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type commentView struct {
	ID        string `json:"id"`
	AuthorID  string `json:"authorId"`
	Body      string `json:"body"`
	CreatedAt string `json:"createdAt"`
}

func mapComment(c model.Comment) commentView {
	return commentView{
		ID:        c.ID,
		AuthorID:  c.AuthorID,
		Body:      c.Body,
		CreatedAt: c.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type friendshipView struct {
	UserID    string `json:"userId"`
	Status    string `json:"status"`
	CreatedAt string `json:"createdAt"`
}

func mapFriendships(friendships []model.Friendship, viewerID string) []friendshipView {
	views := make([]friendshipView, 0, len(friendships))
	for _, f := range friendships {
		other := f.FriendID
		if other == viewerID {
			other = f.OwnerID
		}
		views = append(views, friendshipView{
			UserID:    other,
			Status:    string(f.Status),
			CreatedAt: f.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return views
}
