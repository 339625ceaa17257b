package conn

import "sync"

// Outbox is a bounded FIFO of serialized messages for one connection. The
// registry is the only producer; the transport's writer is the only
// consumer and exits when C is closed.
type Outbox struct {
	mu     sync.Mutex
	ch     chan []byte
	closed bool
}

func NewOutbox(depth int) *Outbox {
	if depth < 1 {
		depth = 1
	}
	return &Outbox{ch: make(chan []byte, depth)}
}

// Offer enqueues p without blocking. It reports false when the queue is
// full or already closed; nothing queued earlier is ever replaced.
func (o *Outbox) Offer(p []byte) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return false
	}
	select {
	case o.ch <- p:
		return true
	default:
		return false
	}
}

func (o *Outbox) C() <-chan []byte { return o.ch }

// Close is idempotent. Messages already queued can still be drained.
func (o *Outbox) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.closed {
		o.closed = true
		close(o.ch)
	}
}

func (o *Outbox) Closed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}

func (o *Outbox) Len() int { return len(o.ch) }
