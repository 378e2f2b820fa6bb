package protocol

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClientCommands(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Message
	}{
		{"direct", "/msg bob hi there", Message{Kind: Direct, From: "alice", To: "bob", Body: "hi there"}},
		{"direct empty body", "/msg bob", Message{Kind: Direct, From: "alice", To: "bob"}},
		{"broadcast", "/all hello everyone", Message{Kind: Broadcast, From: "alice", Body: "hello everyone"}},
		{"legacy broadcast", "hello everyone", Message{Kind: Broadcast, From: "alice", Body: "hello everyone"}},
		{"userlist request", "/userlist", Message{Kind: UserList, From: "alice"}},
		{"filestream", "/filestream bob 2024-01-01 payload", Message{Kind: FileStream, From: "alice", To: "bob", Body: "2024-01-01 payload"}},
		{"extra spaces before user", "/msg   bob hi", Message{Kind: Direct, From: "alice", To: "bob", Body: "hi"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.raw, "alice", FromClient))
		})
	}
}

func TestParseServerCommandsFlipDirection(t *testing.T) {
	m := Parse("/msg alice hi bob", "", FromServer)
	assert.Equal(t, Message{Kind: Direct, From: "alice", Body: "hi bob"}, m)

	m = Parse("/all alice hello", "", FromServer)
	assert.Equal(t, Message{Kind: Broadcast, From: "alice", Body: "hello"}, m)

	m = Parse("/userlist | alice\n| 1 Users\n", "", FromServer)
	assert.Equal(t, Message{Kind: UserList, Body: "| alice\n| 1 Users\n"}, m)
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"unknown command", "/dance bob"},
		{"bare slash", "/"},
		{"direct without user", "/msg"},
		{"direct with only spaces", "/msg   "},
		{"filestream without user", "/filestream"},
		{"body too long", "/msg bob " + strings.Repeat("x", MaxBodyBytes+1)},
		{"user too long", "/msg " + strings.Repeat("u", MaxIdentityBytes+1) + " hi"},
		{"user with pipe", "/msg bo|b hi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Parse(tt.raw, "alice", FromClient)
			assert.Equal(t, Invalid, m.Kind)
			assert.False(t, m.IsValid())
		})
	}
}

func TestRelayedBroadcastNeedsAuthor(t *testing.T) {
	assert.Equal(t, Invalid, Parse("/all", "", FromServer).Kind)
}

func TestRoundTrip(t *testing.T) {
	client := []Message{
		{Kind: Direct, From: "alice", To: "bob", Body: "hi"},
		{Kind: Direct, From: "alice", To: "bob"},
		{Kind: Direct, From: "alice", To: "bob", Body: "  leading spaces kept"},
		{Kind: Broadcast, From: "alice", Body: "hello all"},
		{Kind: Broadcast, From: "alice"},
		{Kind: UserList, From: "alice"},
		{Kind: FileStream, From: "alice", To: "bob", Body: strings.Repeat("z", MaxBodyBytes)},
	}
	for _, m := range client {
		raw, err := Encode(m, FromClient)
		require.NoError(t, err)
		assert.Equal(t, m, Parse(raw, m.From, FromClient), "raw %q", raw)
	}

	server := []Message{
		{Kind: Direct, From: "alice", Body: "hi"},
		{Kind: Broadcast, From: "alice", Body: "hello all"},
		{Kind: Broadcast, From: "alice"},
		{Kind: UserList, Body: "| alice\n| bob\n| -----\n| 2 Users\n"},
		{Kind: FileStream, From: "bot", Body: "data"},
	}
	for _, m := range server {
		raw, err := Encode(m, FromServer)
		require.NoError(t, err)
		assert.Equal(t, m, Parse(raw, "", FromServer), "raw %q", raw)
	}
}

func TestEncodeRejectsOversizedBody(t *testing.T) {
	_, err := Encode(Message{Kind: Broadcast, From: "alice", Body: strings.Repeat("x", MaxBodyBytes+1)}, FromClient)
	require.Error(t, err)
}

func TestEncodeRejectsMissingTarget(t *testing.T) {
	_, err := Encode(Message{Kind: Direct, From: "alice"}, FromClient)
	require.Error(t, err)

	_, err = Encode(Message{Kind: FileStream, To: "bob"}, FromServer)
	require.Error(t, err)
}

func TestIsQuit(t *testing.T) {
	assert.True(t, IsQuit("/quit"))
	assert.True(t, IsQuit("/exit"))
	assert.True(t, IsQuit(" /close "))
	assert.False(t, IsQuit("/quitter"))
	assert.False(t, IsQuit("quit"))
}

func TestParseHello(t *testing.T) {
	h, err := ParseHello("CLIENT")
	require.NoError(t, err)
	assert.Equal(t, Hello{Role: HelloClient}, h)

	h, err = ParseHello("SERVER chat-1.local:4000")
	require.NoError(t, err)
	assert.Equal(t, Hello{Role: HelloServer, Addr: "chat-1.local:4000"}, h)
	assert.Equal(t, "SERVER chat-1.local:4000", FormatHello(h))

	h, err = ParseHello("SERVER")
	require.NoError(t, err)
	assert.Empty(t, h.Addr)

	_, err = ParseHello("HELLO")
	require.Error(t, err)
}
