package session

import "sync"

// mailbox is an unbounded FIFO of work for the control goroutine.
type mailbox struct {
	mu     sync.Mutex
	queue  []func()
	closed bool
	wake   chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{wake: make(chan struct{}, 1)}
}

// put appends f and reports false once the mailbox is closed.
func (m *mailbox) put(f func()) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.queue = append(m.queue, f)
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
	return true
}

// take blocks until work is queued and returns the oldest entry.
func (m *mailbox) take() func() {
	for {
		m.mu.Lock()
		if len(m.queue) > 0 {
			f := m.queue[0]
			m.queue[0] = nil
			m.queue = m.queue[1:]
			m.mu.Unlock()
			return f
		}
		m.mu.Unlock()
		<-m.wake
	}
}

// len returns the number of entries waiting.
func (m *mailbox) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// close rejects further work and drops whatever is still queued.
func (m *mailbox) close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.queue = nil
}
