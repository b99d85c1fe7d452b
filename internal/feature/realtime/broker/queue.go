package broker

import (
	"context"
	"sync"
)

// queue は容量固定のリングバッファです。満杯のときは最も古い要素を捨てる。
// push は決してブロックしない。pop だけが待機する。
type queue struct {
	mu     sync.Mutex
	items  []Message
	head   int
	size   int
	drops  int // drops since the queue was last empty
	closed bool
	ready  chan struct{}
}

func newQueue(capacity int) *queue {
	return &queue{
		items: make([]Message, capacity),
		ready: make(chan struct{}, 1),
	}
}

// push enqueues m, discarding the oldest item when full. It reports whether
// an item was discarded and how many were discarded since the queue was last
// empty. ok is false once the queue is closed.
func (q *queue) push(m Message) (dropped bool, drops int, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false, 0, false
	}

	capacity := len(q.items)
	if q.size == capacity {
		q.items[q.head] = Message{}
		q.head = (q.head + 1) % capacity
		q.size--
		q.drops++
		dropped = true
	}
	q.items[(q.head+q.size)%capacity] = m
	q.size++

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return dropped, q.drops, true
}

// pop blocks until an item is available, the queue is closed or ctx is done.
func (q *queue) pop(ctx context.Context) (Message, error) {
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return Message{}, ErrConnectionClosed
		}
		if q.size > 0 {
			m := q.items[q.head]
			q.items[q.head] = Message{}
			q.head = (q.head + 1) % len(q.items)
			q.size--
			if q.size == 0 {
				q.drops = 0
			}
			q.mu.Unlock()
			return m, nil
		}
		q.mu.Unlock()

		select {
		case <-q.ready:
		case <-ctx.Done():
			return Message{}, ctx.Err()
		}
	}
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// close discards pending items and wakes any waiting pop.
func (q *queue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	clear(q.items)
	q.size = 0
	close(q.ready)
}
