package engine

import (
	"context"
	"io"
	"io/fs"
	"time"
)

// Entry describes one file stored in an archive.
type Entry struct {
	// Path is relative to the archived directory and always uses forward slashes.
	Path    string
	ModTime time.Time
	Mode    fs.FileMode
}

// Archiver writes files into an archive container.
type Archiver interface {
	// AddFile adds a file to the archive, copying data unchanged.
	AddFile(ctx context.Context, entry Entry, data io.Reader) error

	// Close finalizes the archive. It must be called exactly once.
	Close() error
}

// ArchiverFactory creates an Archiver streaming into w.
type ArchiverFactory func(w io.Writer) (Archiver, error)
