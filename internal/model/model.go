package model

import "time"

// EntityKind names the container types live topics and relationship rows are scoped
// to. KindUser is only used for personal topics.
type EntityKind string

const (
	KindChannel EntityKind = "channel"
	KindGroup   EntityKind = "group"
	KindChat    EntityKind = "chat"
	KindUser    EntityKind = "user"
)

// Topic is the broadcast address for an entity, e.g. "channel/<id>". Every user also
// has a personal topic "user/<id>".
func Topic(kind EntityKind, id string) string {
	return string(kind) + "/" + id
}

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

type UserStatus string

const (
	StatusRegistered UserStatus = "registered"
	StatusTemporary  UserStatus = "temporary"
	StatusBanned     UserStatus = "banned"
)

type User struct {
	ID           string
	Email        string
	PasswordHash string
	DisplayName  string
	Role         UserRole
	Status       UserStatus
	Private      bool
	Online       bool
	AvatarKey    *string
	CreatedAt    time.Time
}

type Channel struct {
	ID              string
	OwnerID         string
	Name            string
	Description     string
	Private         bool
	Banned          bool
	CommentsAllowed bool
	InvitesAllowed  bool
	FilesAllowed    bool
	CreatedAt       time.Time
}

type Group struct {
	ID             string
	OwnerID        string
	Name           string
	Description    string
	Private        bool
	InvitesAllowed bool
	FilesAllowed   bool
	CreatedAt      time.Time
}

// Membership is the per-(user, entity) participation row. EntityID is the channel or
// group id depending on which table it was read from.
type Membership struct {
	EntityID string
	UserID   string
	IsAdmin  bool
	JoinedAt time.Time
}

type Invite struct {
	EntityID  string
	UserID    string
	SentAt    time.Time
	ExpiresAt time.Time
}

func (i Invite) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

type Ban struct {
	EntityID string
	UserID   string
	BannedAt time.Time
}

type FriendshipStatus string

const (
	FriendshipWaiting  FriendshipStatus = "waiting"
	FriendshipAccepted FriendshipStatus = "accepted"
)

// Friendship is stored as a single directed row per unordered pair; OwnerID is the
// requester. Lookups must check both orderings.
type Friendship struct {
	ID        string
	OwnerID   string
	FriendID  string
	Status    FriendshipStatus
	CreatedAt time.Time
}

type Block struct {
	OwnerID   string
	BlockedID string
	CreatedAt time.Time
}

// Chat is the canonical unordered user pair: UserA < UserB.
type Chat struct {
	ID        string
	UserA     string
	UserB     string
	CreatedAt time.Time
}

// Counterpart returns the other participant of the chat.
func (c Chat) Counterpart(userID string) string {
	if c.UserA == userID {
		return c.UserB
	}
	return c.UserA
}

type MessageKind string

const (
	MessageChat  MessageKind = "chat"
	MessageGroup MessageKind = "group"
)

type Message struct {
	ID        string
	Kind      MessageKind
	ScopeID   string
	AuthorID  string
	Body      string
	FileKey   *string
	CreatedAt time.Time
}

type Post struct {
	ID        string
	ChannelID string
	AuthorID  string
	Body      string
	FileKey   *string
	CreatedAt time.Time
}

type Comment struct {
	ID        string
	PostID    string
	AuthorID  string
	Body      string
	CreatedAt time.Time
}

type ModerationLog struct {
	ID         string
	EntityKind string
	EntityID   string
	ActorID    string
	TargetID   *string
	Action     string
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

type SessionStatus string

const (
	SessionIssued  SessionStatus = "issued"
	SessionRevoked SessionStatus = "revoked"
)

type Session struct {
	ID        string
	UserID    string
	Status    SessionStatus
	CreatedAt time.Time
	ExpiresAt time.Time
}
