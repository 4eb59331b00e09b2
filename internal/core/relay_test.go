package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRelayChatReachesWholeRoomVerbatim(t *testing.T) {
	hub := startHub(t, 0)

	alice := join(t, hub, "a", "p1", "u1", "Alice")
	bob := join(t, hub, "b", "p1", "u2", "Bob")
	outsider := join(t, hub, "c", "p2", "u3", "Carol")

	msg := json.RawMessage(`{"id":12,"content":"standup in 5","author_id":1}`)
	alice.Commands <- &Command{Kind: CommandChatBroadcast, Payload: msg}

	for _, c := range []*Client{alice, bob} {
		ev := mustEvent(t, c.Events, EventChatBroadcast)
		require.Equal(t, "p1", ev.Room)
		require.Equal(t, string(msg), string(ev.Payload))
	}
	require.Zero(t, countKinds(settle(t, outsider), EventChatBroadcast))
}

func TestRelayTypingSkipsSender(t *testing.T) {
	hub := startHub(t, 0)

	alice := join(t, hub, "a", "p1", "u1", "Alice")
	bob := join(t, hub, "b", "p1", "u2", "Bob")
	carol := join(t, hub, "c", "p1", "u3", "Carol")

	// Payload identity is ignored in favour of the announced one.
	alice.Commands <- &Command{Kind: CommandTyping, UserID: "spoofed", IsTyping: true}

	for _, c := range []*Client{bob, carol} {
		ev := mustEvent(t, c.Events, EventTyping)
		require.Equal(t, &TypingState{UserID: "u1", DisplayName: "Alice", IsTyping: true}, ev.Typing)
	}
	require.Zero(t, countKinds(settle(t, alice), EventTyping), "typing must not echo to its sender")
}

func TestRelayEntityMutation(t *testing.T) {
	hub := startHub(t, 0)

	alice := join(t, hub, "a", "p1", "u1", "Alice")
	bob := join(t, hub, "b", "p1", "u2", "Bob")

	alice.Commands <- &Command{Kind: CommandEntityMutation, Mutation: MutationDeleted, Payload: json.RawMessage(`42`)}
	ev := mustEvent(t, bob.Events, EventEntityMutation)
	require.Equal(t, MutationDeleted, ev.Mutation)
	require.Equal(t, "42", string(ev.Payload))

	alice.Commands <- &Command{Kind: CommandEntityMutation, Mutation: "archived", Payload: json.RawMessage(`{}`)}
	errEv := mustEvent(t, alice.Events, EventError)
	require.Equal(t, ErrCodeBadRequest, errEv.Error.Code)
}

func TestRelayRequiresMembership(t *testing.T) {
	hub := startHub(t, 0)

	alice := join(t, hub, "a", "p1", "u1", "Alice")
	join(t, hub, "b", "p2", "u2", "Bob")

	alice.Commands <- &Command{Kind: CommandChatBroadcast, Room: "p2", Payload: json.RawMessage(`{"id":1}`)}
	ev := mustEvent(t, alice.Events, EventError)
	require.Equal(t, ErrCodeNotInRoom, ev.Error.Code)

	lonely := NewClient("z", 0)
	require.NoError(t, hub.RegisterClient(lonely))
	lonely.Commands <- &Command{Kind: CommandChatBroadcast, Payload: json.RawMessage(`{"id":1}`)}
	ev = mustEvent(t, lonely.Events, EventError)
	require.Equal(t, ErrCodeNotInRoom, ev.Error.Code)
}

func TestRelayRejectsEmptyChat(t *testing.T) {
	hub := startHub(t, 0)

	alice := join(t, hub, "a", "p1", "u1", "Alice")
	alice.Commands <- &Command{Kind: CommandChatBroadcast, Payload: json.RawMessage(`null`)}

	ev := mustEvent(t, alice.Events, EventError)
	require.Equal(t, ErrCodeBadRequest, ev.Error.Code)
}
