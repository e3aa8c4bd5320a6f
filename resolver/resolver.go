// Package resolver runs stream extraction off the caller's goroutine with a
// bounded number of retries separated by a fixed delay.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/opentube/opentube/extractor"
	"github.com/opentube/opentube/log"
	"github.com/opentube/opentube/schedule"
	"github.com/opentube/opentube/stream"
	"github.com/opentube/opentube/util"
	"github.com/opentube/opentube/worker"
)

const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = 2 * time.Second
)

var (
	// ErrInvalidSource is returned for empty or non-http(s) sources.
	ErrInvalidSource = errors.New("invalid source")

	// ErrBusy is returned while another resolution is in flight.
	ErrBusy = errors.New("resolution already in flight")
)

// ExtractionError is the terminal failure of a resolution after every retry was spent.
type ExtractionError struct {
	Source   string
	Attempts int
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: giving up after %s: %s", e.Source, e.AttemptCount(), e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// AttemptCount renders the number of attempts for people, e.g. "4 attempts".
func (e *ExtractionError) AttemptCount() string {
	return util.Quantify(e.Attempts, "attempt", "attempts")
}

// Outcome is the typed result of resolving and selecting a stream pair.
type Outcome int

const (
	Succeeded Outcome = iota
	SelectionInvalid
	ExtractionFailed
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case SelectionInvalid:
		return "selection invalid"
	case ExtractionFailed:
		return "extraction failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Evaluate classifies a finished resolution. On a set it picks the pair
// for quality and stores it as the set's selection.
func Evaluate(set *stream.Set, err error, quality string) Outcome {
	if err != nil || set == nil {
		return ExtractionFailed
	}
	if !set.SelectQuality(quality).Valid {
		return SelectionInvalid
	}
	return Succeeded
}

// Callbacks receive the progress of one resolution. Every field is optional.
// OnLoading runs synchronously inside Resolve. The others run on a pool
// worker and must not block.
type Callbacks struct {
	OnLoading func(source string)
	OnRetry   func(source string, attempt int, err error)
	OnSuccess func(source string, set *stream.Set)
	OnFailure func(source string, err *ExtractionError)
}

// Pool runs extraction work.
type Pool interface {
	Submit(task func()) error
}

// Resolver runs at most one resolution at a time.
type Resolver struct {
	extractor  extractor.Extractor
	maxRetries int
	retryDelay time.Duration
	scheduler  schedule.Scheduler
	pool       Pool
	ownedPool  *worker.Pool

	mu      sync.Mutex
	current *Handle
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMaxRetries sets how many times a failed extraction is retried.
func WithMaxRetries(n int) Option {
	return func(r *Resolver) {
		if n >= 0 {
			r.maxRetries = n
		}
	}
}

// WithRetryDelay sets the pause between attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(r *Resolver) {
		if d >= 0 {
			r.retryDelay = d
		}
	}
}

// WithScheduler replaces the clock used for retry delays.
func WithScheduler(s schedule.Scheduler) Option {
	return func(r *Resolver) {
		if s != nil {
			r.scheduler = s
		}
	}
}

// WithPool runs extraction on p instead of a private pool.
func WithPool(p Pool) Option {
	return func(r *Resolver) {
		if p != nil {
			r.pool = p
		}
	}
}

// New returns a resolver calling ex.
func New(ex extractor.Extractor, options ...Option) *Resolver {
	r := &Resolver{
		extractor:  ex,
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		scheduler:  schedule.Real(),
	}

	for _, option := range options {
		option(r)
	}

	if r.pool == nil {
		r.ownedPool = worker.New(worker.DefaultSize)
		r.pool = r.ownedPool
	}

	return r
}

// MaxRetries returns the configured retry bound.
func (r *Resolver) MaxRetries() int {
	return r.maxRetries
}

// Resolve starts extracting source. It returns ErrInvalidSource for a
// malformed source and ErrBusy while another resolution is outstanding.
// Cancelling ctx abandons the resolution like Handle.Cancel.
func (r *Resolver) Resolve(ctx context.Context, source string, callbacks Callbacks) (*Handle, error) {
	if err := validate(source); err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.current != nil {
		busy := r.current.source
		r.mu.Unlock()
		log.Debugf("resolve %s ignored, %s is still in flight", source, busy)
		return nil, ErrBusy
	}

	hctx, cancel := context.WithCancel(ctx)
	h := &Handle{
		resolver:  r,
		source:    source,
		callbacks: callbacks,
		ctx:       hctx,
		cancel:    cancel,
		attempt:   1,
	}
	r.current = h
	r.mu.Unlock()

	log.With(log.Fields{"source": source}).Infof("resolving")

	if callbacks.OnLoading != nil {
		callbacks.OnLoading(source)
	}

	h.submit()
	return h, nil
}

// Busy reports whether a resolution is in flight.
func (r *Resolver) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current != nil
}

// Cancel abandons the in-flight resolution, if any.
func (r *Resolver) Cancel() {
	r.mu.Lock()
	h := r.current
	r.mu.Unlock()

	if h != nil {
		h.Cancel()
	}
}

// Close cancels the in-flight resolution and stops the private pool, if one was created.
func (r *Resolver) Close() {
	r.Cancel()
	if r.ownedPool != nil {
		r.ownedPool.Wait()
	}
}

func (r *Resolver) release(h *Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == h {
		r.current = nil
	}
}

func validate(source string) error {
	source = strings.TrimSpace(source)
	if source == "" {
		return fmt.Errorf("%w: empty", ErrInvalidSource)
	}

	parsed, err := url.Parse(source)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSource, err)
	}

	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
	default:
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidSource, parsed.Scheme)
	}

	if parsed.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidSource)
	}
	return nil
}
