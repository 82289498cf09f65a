// File: chat/dispatch.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Routes one parsed JSON text-frame payload to a channel broadcast, per
// spec §4.7 ("text frames are parsed as JSON messages and handed to chat
// dispatch"). Full command/role gating is out of scope (spec §1); this
// implements the one message shape the core needs to exercise the JSON
// codec and channel broadcast end to end.

package chat

import (
	"fmt"

	"github.com/studease/chatease-ws/json"
)

// Dispatcher routes incoming chat messages against a worker's shared
// tables.
type Dispatcher struct {
	Channels *ChannelTable
}

// NewDispatcher builds a Dispatcher over the given channel table.
func NewDispatcher(channels *ChannelTable) *Dispatcher {
	return &Dispatcher{Channels: channels}
}

// Handle parses payload as a JSON object of the form
// {"channel":"name","text":"..."} and broadcasts it to every other member
// of that channel, framed as {"from":id,"text":"..."}.
func (d *Dispatcher) Handle(sender *User, payload []byte) error {
	node, err := json.Parse(payload)
	if err != nil {
		return fmt.Errorf("chat: malformed message: %w", err)
	}
	if node.Type != json.Object {
		return fmt.Errorf("chat: message must be a JSON object")
	}

	channelNode := node.Get("channel")
	textNode := node.Get("text")
	if channelNode == nil || channelNode.Type != json.String ||
		textNode == nil || textNode.Type != json.String {
		return fmt.Errorf("chat: message missing channel or text")
	}

	ch := d.Channels.GetOrCreate(channelNode.Str())
	if sender.Channel != ch {
		ch.Join(sender)
	}

	out := json.NewObject()
	out.AddKV("from", json.NewString(sender.ID))
	out.AddKV("text", json.NewString(textNode.Str()))
	encoded := json.Stringify(out)

	ch.Broadcast(sender, encoded, func(u *User, p []byte) {
		if u.Send != nil {
			u.Send(p)
		}
	})
	return nil
}
