package engine

import (
	"context"
	"io"
)

// Sink receives finished archives, e.g. to publish them to remote storage.
type Sink interface {
	Named
	Closer
	Write(ctx context.Context, path string, data io.Reader) error
}
