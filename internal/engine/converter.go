package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Converter packs directories into archive files.
//
// A Converter holds no mutable state, so one instance may run conversions of
// distinct source directories into distinct destinations concurrently.
type Converter struct {
	fs          afero.Fs
	logger      *zap.Logger
	newArchiver ArchiverFactory
}

func NewConverter(logger *zap.Logger, fs afero.Fs, newArchiver ArchiverFactory) *Converter {
	return &Converter{
		fs:          fs,
		logger:      logger,
		newArchiver: newArchiver,
	}
}

// Convert packs every regular file under sourceDir into a new archive at
// destination, named by its slash-separated path relative to sourceDir.
// sourceDir itself and links to files are followed; links to directories
// below it are not.
//
// An existing file at destination is truncated. If packing fails the
// destination is removed, so either a complete archive exists afterwards or
// nothing does. sourceDir is only ever read.
func (c *Converter) Convert(ctx context.Context, sourceDir, destination string) Result {
	result := Result{Source: sourceDir, Destination: destination}
	logger := c.logger.With(zap.String("source", sourceDir), zap.String("destination", destination))

	info, err := c.fs.Stat(sourceDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			result.Err = fmt.Errorf("%w: %s", ErrSourceNotFound, sourceDir)
		} else {
			result.Err = &WriteFailureError{Cause: fmt.Errorf("failed to stat source: %w", err)}
		}
		return result
	}
	if !info.IsDir() {
		result.Err = fmt.Errorf("%w: %s", ErrNotADirectory, sourceDir)
		return result
	}

	entries, err := c.pack(ctx, logger, sourceDir, destination)
	if err != nil {
		result.Err = c.discard(logger, destination, &WriteFailureError{Cause: err})
		return result
	}

	result.Entries = entries
	logger.Debug("archive written", zap.Int("entries", entries))
	return result
}

func (c *Converter) pack(ctx context.Context, logger *zap.Logger, sourceDir, destination string) (count int, err error) {
	f, err := c.fs.Create(destination)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", destination, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close %s: %w", destination, closeErr))
		}
	}()

	isDestination, err := c.destinationMatcher(f, destination)
	if err != nil {
		return 0, err
	}

	archiver, err := c.newArchiver(f)
	if err != nil {
		return 0, fmt.Errorf("failed to create archiver: %w", err)
	}

	walkErr := afero.Walk(c.fs, walkRoot(sourceDir), func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode()&os.ModeSymlink != 0 {
			target, err := c.fs.Stat(path)
			if err != nil {
				return fmt.Errorf("failed to follow link %s: %w", path, err)
			}
			if target.IsDir() {
				logger.Debug("skipping linked directory", zap.String("path", path))
				return nil
			}
			info = target
		}
		if info.IsDir() {
			return nil
		}
		if isDestination(path, info) {
			return nil
		}
		if !info.Mode().IsRegular() {
			logger.Debug("skipping non-regular file", zap.String("path", path), zap.Stringer("mode", info.Mode()))
			return nil
		}

		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context cancelled: %w", err)
		}

		rel, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return fmt.Errorf("failed to compute relative path of %s: %w", path, err)
		}

		entry := Entry{
			Path:    filepath.ToSlash(rel),
			ModTime: info.ModTime(),
			Mode:    info.Mode(),
		}
		if err := c.addFile(ctx, archiver, entry, path); err != nil {
			return err
		}

		count++
		return nil
	})

	// The archive is closed exactly once, whatever happened during the walk.
	if closeErr := archiver.Close(); closeErr != nil {
		walkErr = errors.Join(walkErr, fmt.Errorf("failed to finalize archive: %w", closeErr))
	}

	return count, walkErr
}

// walkRoot makes the walk descend into sourceDir even when it is a link to a
// directory, since the walk does not follow a linked root.
func walkRoot(sourceDir string) string {
	if strings.HasSuffix(sourceDir, string(filepath.Separator)) {
		return sourceDir
	}
	return sourceDir + string(filepath.Separator)
}

// destinationMatcher reports whether a walked file is the archive being
// written, whatever spelling or link the walk reached it through.
func (c *Converter) destinationMatcher(f afero.File, destination string) (func(string, os.FileInfo) bool, error) {
	destAbs, err := filepath.Abs(destination)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", destination, err)
	}
	destInfo, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", destination, err)
	}

	return func(path string, info os.FileInfo) bool {
		if abs, err := filepath.Abs(path); err == nil && abs == destAbs {
			return true
		}
		return os.SameFile(info, destInfo)
	}, nil
}

func (c *Converter) addFile(ctx context.Context, archiver Archiver, entry Entry, path string) (err error) {
	src, err := c.fs.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		err = errors.Join(err, src.Close())
	}()

	if err := archiver.AddFile(ctx, entry, src); err != nil {
		return fmt.Errorf("failed to add %s: %w", entry.Path, err)
	}
	return nil
}

// discard removes a partially written destination. A removal failure is
// reported alongside the primary error, never instead of it.
func (c *Converter) discard(logger *zap.Logger, destination string, primary error) error {
	logger.Warn("conversion failed, removing partial archive", zap.Error(primary))

	if err := c.fs.Remove(destination); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Error("failed to remove partial archive", zap.Error(err))
		return &CleanupFailureError{Path: destination, Cause: err, Primary: primary}
	}
	return primary
}
