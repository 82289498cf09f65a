// File: chat/channel.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Channel membership and per-sender broadcast ordering, per spec §5: a
// channel delivers one sender's messages to every recipient in that
// sender's send order; across senders, order is unspecified. A mutex per
// channel is enough to get that — broadcasting under the lock serializes
// sends from any single goroutine relative to themselves without forcing
// a global order across senders.

package chat

import "sync"

// Channel is a named chat room; a user belongs to at most one.
type Channel struct {
	Name string

	mu      sync.Mutex
	members map[*User]bool
}

// NewChannel creates an empty channel.
func NewChannel(name string) *Channel {
	return &Channel{Name: name, members: make(map[*User]bool)}
}

// Join adds u to the channel, moving it out of any previous channel.
func (c *Channel) Join(u *User) {
	if u.Channel != nil && u.Channel != c {
		u.Channel.Leave(u)
	}
	c.mu.Lock()
	c.members[u] = true
	c.mu.Unlock()
	u.Channel = c
}

// Leave removes u from the channel.
func (c *Channel) Leave(u *User) {
	c.mu.Lock()
	delete(c.members, u)
	c.mu.Unlock()
	if u.Channel == c {
		u.Channel = nil
	}
}

// Len returns the current member count.
func (c *Channel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.members)
}

// Broadcast delivers payload, built once by the caller, to every member
// except sender via send. Holding the channel's mutex for the whole
// broadcast keeps one sender's successive Broadcast calls from
// interleaving at any single recipient.
func (c *Channel) Broadcast(sender *User, payload []byte, send func(u *User, payload []byte)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for u := range c.members {
		if u == sender {
			continue
		}
		send(u, payload)
	}
}
