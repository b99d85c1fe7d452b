package broker

import (
	"context"
	"encoding/json"
	"sync/atomic"
)

// Message is one serialized event waiting in a connection's outbound queue.
// Topic is empty for protocol replies addressed to the connection itself.
type Message struct {
	Topic   string
	Payload []byte
}

// Conn is the broker-side record of one live client connection.
//
// The identity is bound at most once and never changes afterwards. The topic
// set is owned by the Broker and only mutated under its lock.
type Conn struct {
	id       string
	userID   atomic.Uint64 // 0 until bound
	degraded atomic.Bool
	queue    *queue
	topics   map[string]struct{}
}

func newConn(id string, capacity int) *Conn {
	return &Conn{
		id:     id,
		queue:  newQueue(capacity),
		topics: make(map[string]struct{}),
	}
}

func (c *Conn) ID() string {
	return c.id
}

// UserID returns the bound user, or false for an anonymous connection.
func (c *Conn) UserID() (uint, bool) {
	uid := c.userID.Load()
	return uint(uid), uid != 0
}

// Degraded reports whether the connection's queue has overflowed past the
// broker's threshold.
func (c *Conn) Degraded() bool {
	return c.degraded.Load()
}

// Next blocks until the next outbound message is available. It returns
// ErrConnectionClosed after the connection is removed from the broker.
func (c *Conn) Next(ctx context.Context) (Message, error) {
	return c.queue.pop(ctx)
}

// Send enqueues v as a reply on this connection only, behind any pending events.
func (c *Conn) Send(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, _, ok := c.queue.push(Message{Payload: b}); !ok {
		return ErrConnectionClosed
	}
	return nil
}

// Pending returns the number of queued messages.
func (c *Conn) Pending() int {
	return c.queue.len()
}
