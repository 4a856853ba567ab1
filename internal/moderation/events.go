package moderation

import "github.com/DAN1X27/messenger-service-sub000/internal/model"

// Publisher is the fan-out boundary. The in-process websocket hub implements it; a
// multi-instance deployment can swap in an external bus without touching the
// transition logic.
type Publisher interface {
	Publish(topic string, payload any)
}

// Event is the payload delivered to live connections after a transition commits.
type Event struct {
	Type     string           `json:"type"`
	Entity   model.EntityKind `json:"entity,omitempty"`
	EntityID string           `json:"entity_id,omitempty"`
	ActorID  string           `json:"actor_id,omitempty"`
	UserID   string           `json:"user_id,omitempty"`
	Data     any              `json:"data,omitempty"`
}

// outbound pairs an event with its topic while the transaction is still open; events
// are published only after commit, in commit order.
type outbound struct {
	topic   string
	payload Event
}

func publishAll(pub Publisher, events []outbound) {
	if pub == nil {
		return
	}
	for _, e := range events {
		pub.Publish(e.topic, e.payload)
	}
}
