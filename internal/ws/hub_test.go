package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func fakeClient() *Client {
	return &Client{
		send:   make(chan []byte, 16),
		topics: make(map[string]struct{}),
		userID: "user-1",
	}
}

func TestSubscribeAndPublish(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := fakeClient()

	hub.Subscribe(client, "channel/c1")
	if hub.Subscribers("channel/c1") != 1 {
		t.Fatalf("expected one subscriber")
	}

	hub.Publish("channel/c1", map[string]string{"type": "ban", "user_id": "victim"})

	select {
	case data := <-client.send:
		var payload map[string]string
		if err := json.Unmarshal(data, &payload); err != nil {
			t.Fatalf("unmarshal error: %v", err)
		}
		if payload["type"] != "ban" || payload["user_id"] != "victim" {
			t.Fatalf("unexpected payload: %v", payload)
		}
	default:
		t.Fatalf("expected a delivered event")
	}
}

func TestPublishSkipsOtherTopics(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := fakeClient()
	hub.Subscribe(client, "channel/c1")

	hub.Publish("channel/c2", map[string]string{"type": "ban"})

	select {
	case <-client.send:
		t.Fatalf("client must not receive events for other topics")
	default:
	}
}

func TestPublishPreservesOrderPerTopic(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := fakeClient()
	hub.Subscribe(client, "group/g1")

	for i := 0; i < 5; i++ {
		hub.Publish("group/g1", map[string]int{"seq": i})
	}
	for i := 0; i < 5; i++ {
		data := <-client.send
		var payload map[string]int
		if err := json.Unmarshal(data, &payload); err != nil {
			t.Fatalf("unmarshal error: %v", err)
		}
		if payload["seq"] != i {
			t.Fatalf("expected seq %d, got %d", i, payload["seq"])
		}
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := fakeClient()
	hub.Subscribe(client, "chat/c1")
	hub.Unsubscribe(client, "chat/c1")

	hub.Publish("chat/c1", map[string]string{"type": "message"})

	select {
	case <-client.send:
		t.Fatalf("unsubscribed client must not receive events")
	default:
	}
	if hub.Subscribers("chat/c1") != 0 {
		t.Fatalf("expected empty topic")
	}
}

func TestRemoveDetachesFromAllTopics(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := fakeClient()
	hub.Subscribe(client, "channel/c1")
	hub.Subscribe(client, "user/user-1")

	hub.Remove(client)

	if hub.Subscribers("channel/c1") != 0 || hub.Subscribers("user/user-1") != 0 {
		t.Fatalf("expected client removed from all topics")
	}
	if _, open := <-client.send; open {
		t.Fatalf("expected send channel closed")
	}
}

func TestSlowClientIsDropped(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	slow := &Client{
		send:   make(chan []byte), // unbuffered, nobody reading
		topics: make(map[string]struct{}),
		userID: "slow",
	}
	hub.Subscribe(slow, "channel/c1")

	hub.Publish("channel/c1", map[string]string{"type": "join"})

	if hub.Subscribers("channel/c1") != 0 {
		t.Fatalf("expected slow client dropped")
	}
}

func TestDropSlowClientLeavesSendOpen(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	slow := &Client{
		send:   make(chan []byte, 1),
		topics: make(map[string]struct{}),
		userID: "slow",
	}
	hub.Subscribe(slow, "channel/c1")

	hub.Publish("channel/c1", map[string]string{"seq": "1"}) // fills the buffer
	hub.Publish("channel/c1", map[string]string{"seq": "2"}) // drops the client

	if hub.Subscribers("channel/c1") != 0 {
		t.Fatalf("expected slow client dropped")
	}

	// The read loop may still try to queue a pong between the drop and Remove;
	// that must never hit a closed channel.
	select {
	case slow.send <- []byte(`{"type":"pong"}`):
	default:
	}

	hub.Remove(slow)
	deadline := time.After(time.Second)
	for {
		select {
		case _, open := <-slow.send:
			if !open {
				return
			}
		case <-deadline:
			t.Fatalf("expected send channel closed after Remove")
		}
	}
}

func TestSplitTopic(t *testing.T) {
	cases := []struct {
		topic string
		ok    bool
	}{
		{"channel/abc", true},
		{"user/u1", true},
		{"chat/", false},
		{"nodelim", false},
		{"/id", false},
	}
	for _, tc := range cases {
		if _, _, ok := splitTopic(tc.topic); ok != tc.ok {
			t.Fatalf("splitTopic(%q) ok = %v, want %v", tc.topic, ok, tc.ok)
		}
	}
}
