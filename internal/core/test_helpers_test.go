package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T, ringTimeout time.Duration) *Hub {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(Options{RingTimeout: ringTimeout})
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-hub.Done()
	})
	return hub
}

// join registers a client, announces it and waits for its own presence event.
func join(t *testing.T, hub *Hub, id, room, user, name string) *Client {
	t.Helper()

	c := NewClient(id, 0)
	require.NoError(t, hub.RegisterClient(c))
	c.Commands <- &Command{Kind: CommandJoinRoom, Room: room, UserID: user, DisplayName: name}
	mustEvent(t, c.Events, EventPresence)
	return c
}

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// waitPresence reads presence events until one lists exactly want.
func waitPresence(t *testing.T, ch <-chan *Event, want ...string) []PresenceEntry {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	var last []PresenceEntry
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil || ev.Kind != EventPresence {
				continue
			}
			last = ev.Presence
			if sameUsers(last, want) {
				return last
			}
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
	t.Fatalf("presence never became %v, last seen %+v", want, last)
	return nil
}

func sameUsers(entries []PresenceEntry, want []string) bool {
	if len(entries) != len(want) {
		return false
	}
	for i, e := range entries {
		if e.UserID != want[i] {
			return false
		}
	}
	return true
}

// settle sends a marker command through c and returns every event queued before the
// marker's reply, so all earlier commands from c have been handled.
func settle(t *testing.T, c *Client) []*Event {
	t.Helper()

	c.Commands <- &Command{Kind: CommandLeaveRoom, Room: "\x00marker"}
	var seen []*Event
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-c.Events:
			if ev.Kind == EventError && ev.Error.Code == ErrCodeNotInRoom {
				return seen
			}
			seen = append(seen, ev)
		case <-deadline:
			t.Fatalf("marker reply not received")
			return nil
		}
	}
}

// drain returns whatever is queued for c right now.
func drain(c *Client) []*Event {
	var out []*Event
	for {
		select {
		case ev, ok := <-c.Events:
			if !ok {
				return out
			}
			out = append(out, ev)
		default:
			return out
		}
	}
}

// collect gathers events for the given duration.
func collect(c *Client, d time.Duration) []*Event {
	var out []*Event
	timeout := time.After(d)
	for {
		select {
		case ev, ok := <-c.Events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			return out
		}
	}
}

func countKinds(events []*Event, kinds ...EventKind) int {
	n := 0
	for _, ev := range events {
		for _, k := range kinds {
			if ev.Kind == k {
				n++
			}
		}
	}
	return n
}
