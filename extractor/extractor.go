// Package extractor turns source URLs into resolved stream sets and queue items.
package extractor

import (
	"context"
	"errors"

	"github.com/opentube/opentube/queue"
	"github.com/opentube/opentube/stream"
)

var (
	// ErrRestricted marks content that needs a login, is private, or cannot be embedded.
	ErrRestricted = errors.New("restricted content")

	// ErrUnsupportedSource marks URLs the extractor does not understand.
	ErrUnsupportedSource = errors.New("unsupported source")
)

// Extractor resolves a source URL into its renditions.
// Implementations must be safe to call from a background worker and
// may block on network I/O until ctx is done.
type Extractor interface {
	Extract(ctx context.Context, source string) (*stream.Set, error)
}

// Lister expands a URL into queue items. A playlist yields many, a single video yields one.
type Lister interface {
	Items(ctx context.Context, source string) ([]queue.Item, error)
}

// Func adapts a plain function to Extractor.
type Func func(ctx context.Context, source string) (*stream.Set, error)

func (f Func) Extract(ctx context.Context, source string) (*stream.Set, error) {
	return f(ctx, source)
}
