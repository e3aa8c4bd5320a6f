package resolver

import (
	"context"
	"sync"

	"github.com/opentube/opentube/log"
	"github.com/opentube/opentube/schedule"
)

// Handle controls one resolution.
//
// The lifecycle is Extracting, then Succeeded, Failed or another Extracting
// after the retry delay. Once Cancel returns, no timer is pending and no
// callback will start. Cancel waits for a callback that is already running,
// so callbacks must not cancel their own handle.
type Handle struct {
	resolver  *Resolver
	source    string
	callbacks Callbacks
	ctx       context.Context
	cancel    context.CancelFunc

	// deliver is held from the done check through the callback
	deliver sync.Mutex

	mu      sync.Mutex
	attempt int
	timer   schedule.Timer
	done    bool
}

// Source returns the URL being resolved.
func (h *Handle) Source() string {
	return h.source
}

// Attempt returns the number of the current or last attempt, starting at 1.
func (h *Handle) Attempt() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.attempt
}

// Done reports whether the resolution finished or was cancelled.
func (h *Handle) Done() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.done
}

// Cancel abandons the resolution. Calling it again is a no-op.
func (h *Handle) Cancel() {
	h.deliver.Lock()
	defer h.deliver.Unlock()

	h.mu.Lock()
	if h.done {
		h.mu.Unlock()
		return
	}
	h.finishLocked()
	h.mu.Unlock()

	h.resolver.release(h)
	log.Debugf("resolution of %s cancelled", h.source)
}

func (h *Handle) finishLocked() {
	h.done = true
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
	h.cancel()
}

// submit queues the next attempt. A pool that refuses work ends the
// resolution with a failure.
func (h *Handle) submit() {
	err := h.resolver.pool.Submit(h.run)
	if err == nil {
		return
	}
	log.Warnf("cannot schedule extraction of %s: %s", h.source, err)

	h.deliver.Lock()
	defer h.deliver.Unlock()

	h.mu.Lock()
	if h.done {
		h.mu.Unlock()
		return
	}
	attempts := h.attempt
	h.finishLocked()
	h.mu.Unlock()
	h.resolver.release(h)

	h.fail(&ExtractionError{Source: h.source, Attempts: attempts, Err: err})
}

func (h *Handle) run() {
	h.mu.Lock()
	if h.done {
		h.mu.Unlock()
		return
	}
	h.timer = nil
	h.mu.Unlock()

	set, err := h.resolver.extractor.Extract(h.ctx, h.source)

	h.deliver.Lock()
	defer h.deliver.Unlock()

	h.mu.Lock()
	if h.done {
		h.mu.Unlock()
		return
	}

	if h.ctx.Err() != nil {
		h.finishLocked()
		h.mu.Unlock()
		h.resolver.release(h)
		log.Debugf("resolution of %s abandoned: %s", h.source, h.ctx.Err())
		return
	}

	if err == nil {
		h.finishLocked()
		h.mu.Unlock()
		h.resolver.release(h)

		if h.callbacks.OnSuccess != nil {
			h.callbacks.OnSuccess(h.source, set)
		}
		return
	}

	// attempt-1 retries have been spent so far
	if h.attempt-1 < h.resolver.maxRetries {
		h.attempt++
		attempt := h.attempt
		h.timer = h.resolver.scheduler.AfterFunc(h.resolver.retryDelay, h.submit)
		h.mu.Unlock()

		log.With(log.Fields{"source": h.source, "attempt": attempt}).Warnf("extraction failed, retrying: %s", err)
		if h.callbacks.OnRetry != nil {
			h.callbacks.OnRetry(h.source, attempt, err)
		}
		return
	}

	attempts := h.attempt
	h.finishLocked()
	h.mu.Unlock()
	h.resolver.release(h)

	h.fail(&ExtractionError{Source: h.source, Attempts: attempts, Err: err})
}

func (h *Handle) fail(failure *ExtractionError) {
	log.Errorf("%s", failure)
	if h.callbacks.OnFailure != nil {
		h.callbacks.OnFailure(h.source, failure)
	}
}
