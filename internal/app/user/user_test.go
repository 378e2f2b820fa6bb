package user

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resc/internal/app/protocol"
	"resc/internal/pkg/errs"
)

func TestDirectoryRefusesSecondLiveSession(t *testing.T) {
	d := NewDirectory()

	require.NoError(t, d.Add(User{Name: "alice", SessionID: "s1", Since: time.Now()}))

	err := d.Add(User{Name: "alice", SessionID: "s2"})
	assert.True(t, errors.Is(err, errs.AuthRejected))
	assert.Equal(t, 1, d.Count())
}

func TestDirectoryRemoveChecksSession(t *testing.T) {
	d := NewDirectory()
	require.NoError(t, d.Add(User{Name: "alice", SessionID: "s1"}))

	assert.False(t, d.Remove("alice", "stale"))
	assert.True(t, d.Online("alice"))

	assert.True(t, d.Remove("alice", "s1"))
	assert.False(t, d.Online("alice"))
	assert.False(t, d.Remove("alice", "s1"))
}

func TestDirectoryListIsSorted(t *testing.T) {
	d := NewDirectory()
	for i, name := range []string{"carol", "alice", "bob"} {
		require.NoError(t, d.Add(User{Name: name, SessionID: string(rune('a' + i))}))
	}

	assert.Equal(t, []string{"alice", "bob", "carol"}, d.Names())
	assert.Len(t, d.List(), 3)
}

func TestFormatList(t *testing.T) {
	assert.Equal(t, "| alice\n| bob\n| -----\n| 2 Users", FormatList([]string{"alice", "bob"}))
	assert.Equal(t, "| -----\n| 0 Users", FormatList(nil))
}

func TestFormatListFitsOneMessage(t *testing.T) {
	names := make([]string, 40)
	for i := range names {
		names[i] = fmt.Sprintf("user-%02d", i)
	}

	body := FormatList(names)
	assert.LessOrEqual(t, len(body), protocol.MaxBodyBytes)
	assert.Contains(t, body, "| ...\n")
	assert.True(t, strings.HasSuffix(body, "| 40 Users"))
	assert.True(t, strings.HasPrefix(body, "| user-00\n"))
}
