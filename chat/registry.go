// File: chat/registry.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// UserTable and ChannelTable are the process-wide tables spec §5 (c)
// describes: shared within one worker process, with cross-worker state
// delegated to an external collaborator outside this core. Grounded on
// control/metrics.go's RWMutex-guarded map registry idiom.

package chat

import "sync"

// UserTable is the worker-wide registry of connected users, keyed by ID.
type UserTable struct {
	mu    sync.RWMutex
	users map[string]*User
}

// NewUserTable returns an empty table.
func NewUserTable() *UserTable {
	return &UserTable{users: make(map[string]*User)}
}

// Add registers u, replacing any existing entry with the same ID.
func (t *UserTable) Add(u *User) {
	t.mu.Lock()
	t.users[u.ID] = u
	t.mu.Unlock()
}

// Remove drops the user with the given ID.
func (t *UserTable) Remove(id string) {
	t.mu.Lock()
	delete(t.users, id)
	t.mu.Unlock()
}

// Get looks up a user by ID.
func (t *UserTable) Get(id string) (*User, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	u, ok := t.users[id]
	return u, ok
}

// Len returns the current registered-user count.
func (t *UserTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.users)
}

// Range calls fn once for every currently registered user, over a
// snapshot taken under the read lock so fn may safely call back into
// Add/Remove (e.g. to close an idle connection) without deadlocking.
func (t *UserTable) Range(fn func(u *User)) {
	t.mu.RLock()
	snapshot := make([]*User, 0, len(t.users))
	for _, u := range t.users {
		snapshot = append(snapshot, u)
	}
	t.mu.RUnlock()

	for _, u := range snapshot {
		fn(u)
	}
}

// ChannelTable is the worker-wide registry of named channels.
type ChannelTable struct {
	mu       sync.RWMutex
	channels map[string]*Channel
}

// NewChannelTable returns an empty table.
func NewChannelTable() *ChannelTable {
	return &ChannelTable{channels: make(map[string]*Channel)}
}

// GetOrCreate returns the channel named name, creating it on first use.
func (t *ChannelTable) GetOrCreate(name string) *Channel {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.channels[name]
	if !ok {
		c = NewChannel(name)
		t.channels[name] = c
	}
	return c
}

// Len returns the current channel count.
func (t *ChannelTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.channels)
}
