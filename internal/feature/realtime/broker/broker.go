// Package broker はトピック単位の pub/sub ブローカーです。
//
// 価格イベント (price:<symbol>) とアラートイベント (alerts:<userId>) を、
// そのトピックを購読している接続にだけ配信します。配信は各接続の有界キューへの
// 追加で完了し、遅い接続が publisher や他の接続を待たせることはありません。
//
// A Broker is created with New and must be shut down with Close. Publishing to
// a topic with zero subscribers is valid and has no effect.
package broker

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"stock_alerts/internal/platform/metrics"
)

const (
	DefaultQueueCapacity    = 256
	DefaultDegradeThreshold = 64
)

type Config struct {
	// QueueCapacity is the size of each connection's outbound queue.
	QueueCapacity int
	// DegradeThreshold is the number of drops, counted since the queue was
	// last empty, after which a connection is marked degraded.
	DegradeThreshold int
	// DisconnectDegraded removes degraded connections from the broker.
	DisconnectDegraded bool
	Logger             *slog.Logger
}

type Broker struct {
	cfg    Config
	logger *slog.Logger

	mu     sync.RWMutex
	conns  map[string]*Conn
	topics map[string]map[string]*Conn // topic -> conn id -> conn
	closed bool
}

func New(cfg Config) *Broker {
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = DefaultQueueCapacity
	}
	if cfg.DegradeThreshold <= 0 {
		cfg.DegradeThreshold = DefaultDegradeThreshold
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{
		cfg:    cfg,
		logger: logger.With("component", "broker"),
		conns:  make(map[string]*Conn),
		topics: make(map[string]map[string]*Conn),
	}
}

// Register adds a new anonymous connection.
func (b *Broker) Register() (*Conn, error) {
	c := newConn(uuid.NewString(), b.cfg.QueueCapacity)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBrokerClosed
	}
	b.conns[c.id] = c
	metrics.BrokerConnections.Set(float64(len(b.conns)))
	b.logger.Debug("connection registered", "conn_id", c.id)
	return c, nil
}

// RemoveConnection drops the connection from every topic it joined and closes
// its queue. Removing an unknown connection is a no-op.
func (b *Broker) RemoveConnection(connID string) {
	b.mu.Lock()
	c, ok := b.removeLocked(connID)
	b.mu.Unlock()
	if ok {
		c.queue.close()
		b.logger.Debug("connection removed", "conn_id", connID)
	}
}

func (b *Broker) removeLocked(connID string) (*Conn, bool) {
	c, ok := b.conns[connID]
	if !ok {
		return nil, false
	}
	for topic := range c.topics {
		b.leaveLocked(c, topic)
	}
	delete(b.conns, connID)
	metrics.BrokerConnections.Set(float64(len(b.conns)))
	return c, true
}

// BindIdentity attaches an authenticated user to the connection. The caller
// has already verified the user; a connection can be bound only once.
func (b *Broker) BindIdentity(connID string, userID uint) error {
	if userID == 0 {
		return ErrInvalidIdentity
	}
	b.mu.RLock()
	c, ok := b.conns[connID]
	b.mu.RUnlock()
	if !ok {
		return ErrUnknownConnection
	}
	if !c.userID.CompareAndSwap(0, uint64(userID)) {
		if c.userID.Load() == uint64(userID) {
			return nil
		}
		return ErrIdentityAlreadyBound
	}
	return nil
}

// Subscribe joins the connection to topic. Subscribing twice has no further
// effect. alerts:<userId> requires the connection to be bound to that user.
func (b *Broker) Subscribe(connID, topic string) error {
	kind, owner, err := parseTopic(topic)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.conns[connID]
	if !ok {
		return ErrUnknownConnection
	}
	if kind == topicAlerts {
		if uid, bound := c.UserID(); !bound || uid != owner {
			return fmt.Errorf("%w: %s", ErrForbiddenTopic, topic)
		}
	}

	subs, ok := b.topics[topic]
	if !ok {
		subs = make(map[string]*Conn)
		b.topics[topic] = subs
		metrics.BrokerTopics.Set(float64(len(b.topics)))
	}
	subs[connID] = c
	c.topics[topic] = struct{}{}
	return nil
}

// Unsubscribe leaves topic. Leaving a topic the connection never joined is a no-op.
func (b *Broker) Unsubscribe(connID, topic string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.conns[connID]
	if !ok {
		return ErrUnknownConnection
	}
	b.leaveLocked(c, topic)
	return nil
}

// leaveLocked removes c from topic and forgets the topic once it has no subscribers.
func (b *Broker) leaveLocked(c *Conn, topic string) {
	delete(c.topics, topic)
	subs, ok := b.topics[topic]
	if !ok {
		return
	}
	delete(subs, c.id)
	if len(subs) == 0 {
		delete(b.topics, topic)
		metrics.BrokerTopics.Set(float64(len(b.topics)))
	}
}

// Publish serializes event once and enqueues it to every subscriber of topic.
// A price:<symbol> event is also delivered to subscribers of price:*; a
// connection subscribed to both receives it once.
//
// Publish never blocks on a subscriber. Zero subscribers is not an error.
func (b *Broker) Publish(topic string, event any) error {
	kind, _, err := parseTopic(topic)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event for %s: %w", topic, err)
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrBrokerClosed
	}
	targets := make([]*Conn, 0, len(b.topics[topic]))
	for _, c := range b.topics[topic] {
		targets = append(targets, c)
	}
	if kind == topicPrice {
		for id, c := range b.topics[PriceBroadcastTopic] {
			if _, dup := b.topics[topic][id]; !dup {
				targets = append(targets, c)
			}
		}
	}
	b.mu.RUnlock()

	msg := Message{Topic: topic, Payload: payload}
	var evict []*Conn
	for _, c := range targets {
		dropped, drops, ok := c.queue.push(msg)
		if !ok {
			continue
		}
		metrics.BrokerPublished.Inc()
		if !dropped {
			continue
		}
		metrics.BrokerDropped.Inc()
		if drops >= b.cfg.DegradeThreshold && c.degraded.CompareAndSwap(false, true) {
			b.logger.Warn("connection degraded", "conn_id", c.id, "drops", drops, "topic", topic)
			if b.cfg.DisconnectDegraded {
				evict = append(evict, c)
			}
		}
	}

	for _, c := range evict {
		b.RemoveConnection(c.id)
		metrics.BrokerForcedDisconnects.Inc()
		b.logger.Warn("degraded connection disconnected", "conn_id", c.id)
	}
	return nil
}

// Topics returns every live topic with its subscriber count.
func (b *Broker) Topics() map[string]int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]int, len(b.topics))
	for t, subs := range b.topics {
		out[t] = len(subs)
	}
	return out
}

// ConnectionCount returns the number of registered connections.
func (b *Broker) ConnectionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.conns)
}

// SubscribedTopics returns the topics connID has joined, or nil if unknown.
func (b *Broker) SubscribedTopics(connID string) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c, ok := b.conns[connID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(c.topics))
	for t := range c.topics {
		out = append(out, t)
	}
	return out
}

// Close removes every connection, which ends their drain loops. Register and
// Publish fail with ErrBrokerClosed afterwards. Close is idempotent.
func (b *Broker) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	conns := make([]*Conn, 0, len(b.conns))
	for id := range b.conns {
		c, _ := b.removeLocked(id)
		conns = append(conns, c)
	}
	b.mu.Unlock()

	for _, c := range conns {
		c.queue.close()
	}
	b.logger.Info("broker closed", "connections", len(conns))
}
