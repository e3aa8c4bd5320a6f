// Package worker runs network-bound work on a small bounded pool so it never
// executes on a caller's control goroutine.
package worker

import (
	"errors"
	"sync"

	"github.com/opentube/opentube/log"
	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"
)

// DefaultSize is the number of tasks that may run at once.
const DefaultSize = 2

// ErrClosed is returned by Submit after Wait has been called.
var ErrClosed = errors.New("worker pool is closed")

// Pool queues submitted tasks without blocking and runs at most size of them concurrently.
type Pool struct {
	mu     sync.Mutex
	tasks  []func()
	closed bool

	signal  chan struct{}
	done    chan struct{}
	workers *pool.Pool
}

// New starts a pool running at most size tasks at once.
func New(size int) *Pool {
	if size <= 0 {
		size = DefaultSize
	}

	p := &Pool{
		signal:  make(chan struct{}, 1),
		done:    make(chan struct{}),
		workers: pool.New().WithMaxGoroutines(size),
	}

	go p.dispatch()
	return p
}

// Submit enqueues task. It never blocks.
func (p *Pool) Submit(task func()) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.tasks = append(p.tasks, task)
	p.mu.Unlock()

	p.wake()
	return nil
}

// Wait stops accepting tasks and blocks until every queued task has finished.
// It is safe to call more than once.
func (p *Pool) Wait() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.wake()
	<-p.done
}

func (p *Pool) wake() {
	select {
	case p.signal <- struct{}{}:
	default:
	}
}

func (p *Pool) dispatch() {
	defer close(p.done)

	for range p.signal {
		p.mu.Lock()
		tasks, closed := p.tasks, p.closed
		p.tasks = nil
		p.mu.Unlock()

		for _, task := range tasks {
			p.workers.Go(guard(task))
		}

		if closed {
			p.mu.Lock()
			drained := len(p.tasks) == 0
			p.mu.Unlock()

			if drained {
				p.workers.Wait()
				return
			}
			p.wake()
		}
	}
}

func guard(task func()) func() {
	return func() {
		if recovered := panics.Try(task); recovered != nil {
			log.Errorf("worker task panicked: %s", recovered.String())
		}
	}
}
