/*
Package user contains core data structures and logic related to user presence.

It defines the representation of a connected chat participant (the User struct) and the
Directory that tracks who is currently logged in to a chat server. The directory backs the
/userlist reply and the admin API's user listing.
*/
package user

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"resc/internal/app/protocol"
	"resc/internal/pkg/errs"
)

// User represents one authenticated session on this chat server.
// Fields use JSON tags for serialization in the admin API.
type User struct {
	// Name is the username the session authenticated as.
	Name string `json:"name"`

	// SessionID is the server-generated identifier of the session.
	SessionID string `json:"sessionId"`

	// RemoteAddr is the peer address of the underlying transport.
	RemoteAddr string `json:"remoteAddr"`

	// Transport is "tcp" or "ws".
	Transport string `json:"transport"`

	// Since is when the session authenticated.
	Since time.Time `json:"since"`
}

// elided replaces the names that do not fit in a user list body.
const elided = "| ...\n"

// Directory tracks the users currently logged in.
type Directory struct {
	mu    sync.RWMutex
	users map[string]User
}

// NewDirectory returns an empty directory.
func NewDirectory() *Directory {
	return &Directory{users: make(map[string]User)}
}

// Add records u as online. A name can only be held by one live session at a time.
func (d *Directory) Add(u User) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if existing, ok := d.users[u.Name]; ok {
		return errs.Wrap(errs.ErrAuthRejected, fmt.Errorf("user %s already connected as session %s", u.Name, existing.SessionID))
	}

	d.users[u.Name] = u
	return nil
}

// Remove drops name if it is still held by sessionID.
func (d *Directory) Remove(name, sessionID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.users[name]
	if !ok || u.SessionID != sessionID {
		return false
	}

	delete(d.users, name)
	return true
}

// Online reports whether name has a live session.
func (d *Directory) Online(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	_, ok := d.users[name]
	return ok
}

// List returns a snapshot of online users sorted by name.
func (d *Directory) List() []User {
	d.mu.RLock()
	defer d.mu.RUnlock()

	list := make([]User, 0, len(d.users))
	for _, u := range d.users {
		list = append(list, u)
	}

	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// Names returns the sorted names of online users.
func (d *Directory) Names() []string {
	list := d.List()

	names := make([]string, len(list))
	for i, u := range list {
		names[i] = u.Name
	}
	return names
}

// Count returns the number of online users.
func (d *Directory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return len(d.users)
}

// FormatList renders names as the body of a user list message. When the full list does not
// fit in one message body the tail is elided, but the footer still reports the real count.
func FormatList(names []string) string {
	footer := fmt.Sprintf("| -----\n| %d Users", len(names))

	var b strings.Builder
	for i, name := range names {
		line := "| " + name + "\n"
		reserve := len(footer)
		if i < len(names)-1 {
			reserve += len(elided)
		}
		if b.Len()+len(line)+reserve > protocol.MaxBodyBytes {
			b.WriteString(elided)
			break
		}
		b.WriteString(line)
	}

	b.WriteString(footer)
	return b.String()
}
