package archivers

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/infracollect/epubfold/internal/engine"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
)

const (
	// DefaultLevel lets the deflate compressor pick its default trade-off.
	DefaultLevel = flate.DefaultCompression
	// BestLevel favours size over speed.
	BestLevel = flate.BestCompression
)

// ZipArchiver writes a zip container whose entries are all deflate compressed.
type ZipArchiver struct {
	zipWriter *zip.Writer
	closed    bool
}

// NewZipArchiver creates a zip archiver streaming into w.
// Level ranges from -1 (default) through 0 (no compression) to 9 (best).
func NewZipArchiver(w io.Writer, level int) (*ZipArchiver, error) {
	if err := ValidateLevel(level); err != nil {
		return nil, err
	}

	zipWriter := zip.NewWriter(w)
	zipWriter.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		fw, err := flate.NewWriter(out, level)
		if err != nil {
			return nil, fmt.Errorf("failed to create deflate writer: %w", err)
		}
		return fw, nil
	})

	return &ZipArchiver{zipWriter: zipWriter}, nil
}

// NewZipFactory returns an engine.ArchiverFactory producing zip archivers at the given level.
func NewZipFactory(level int) (engine.ArchiverFactory, error) {
	if err := ValidateLevel(level); err != nil {
		return nil, err
	}
	return func(w io.Writer) (engine.Archiver, error) {
		archiver, err := NewZipArchiver(w, level)
		if err != nil {
			return nil, err
		}
		return archiver, nil
	}, nil
}

func ValidateLevel(level int) error {
	if level < DefaultLevel || level > BestLevel {
		return fmt.Errorf("unsupported compression level %d: must be between %d and %d", level, DefaultLevel, BestLevel)
	}
	return nil
}

// AddFile adds a file to the zip archive.
func (a *ZipArchiver) AddFile(ctx context.Context, entry engine.Entry, data io.Reader) error {
	if a.closed {
		return fmt.Errorf("archiver is closed")
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}

	if err := validateEntryName(entry.Path); err != nil {
		return err
	}

	header := &zip.FileHeader{
		Name:     entry.Path,
		Method:   zip.Deflate,
		Modified: entry.ModTime,
	}
	if entry.Mode != 0 {
		header.SetMode(entry.Mode)
	}

	w, err := a.zipWriter.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to write zip header: %w", err)
	}

	if _, err := io.Copy(w, data); err != nil {
		return fmt.Errorf("failed to write zip content: %w", err)
	}

	return nil
}

// Close writes the central directory. The underlying writer is left open.
func (a *ZipArchiver) Close() error {
	if a.closed {
		return fmt.Errorf("archiver already closed")
	}
	a.closed = true

	if err := a.zipWriter.Close(); err != nil {
		return fmt.Errorf("failed to close zip writer: %w", err)
	}
	return nil
}

func validateEntryName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("empty entry name")
	case path.IsAbs(name):
		return fmt.Errorf("entry name %q must be relative", name)
	case strings.HasSuffix(name, "/"):
		return fmt.Errorf("entry name %q names a directory", name)
	}

	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return fmt.Errorf("entry name %q escapes the archive root", name)
		}
	}
	return nil
}
