package testutil

import (
	"sync"

	"github.com/curzel-it/battld/internal/protocol"
)

// FakeConn records what would have been written to a client
type FakeConn struct {
	id string

	mu       sync.Mutex
	messages []protocol.ServerMessage
	closed   bool
	// Refuse makes Send behave like a full outbound buffer
	Refuse bool
}

// NewFakeConn creates a FakeConn with the given connection id
func NewFakeConn(id string) *FakeConn {
	return &FakeConn{id: id}
}

func (c *FakeConn) ID() string {
	return c.id
}

func (c *FakeConn) Send(msg protocol.ServerMessage) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.Refuse {
		return false
	}
	c.messages = append(c.messages, msg)
	return true
}

func (c *FakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// Closed reports whether Close was called
func (c *FakeConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Messages returns a copy of everything sent so far
func (c *FakeConn) Messages() []protocol.ServerMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]protocol.ServerMessage(nil), c.messages...)
}

// Types returns the type of every message sent so far
func (c *FakeConn) Types() []protocol.MessageType {
	c.mu.Lock()
	defer c.mu.Unlock()
	types := make([]protocol.MessageType, len(c.messages))
	for i, m := range c.messages {
		types[i] = m.Type
	}
	return types
}

// Last returns the most recent message, or the zero message
func (c *FakeConn) Last() protocol.ServerMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.messages) == 0 {
		return protocol.ServerMessage{}
	}
	return c.messages[len(c.messages)-1]
}

// Reset forgets recorded messages
func (c *FakeConn) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = nil
}
