package runner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/afero"
)

// DefaultSuffix marks folders to convert.
const DefaultSuffix = ".epub"

// Discover returns the direct children of dir that are directories named
// <something><suffix>, sorted by name. Links to directories count as
// directories; dangling links are ignored. Paths listed in exclude are skipped.
func Discover(fs afero.Fs, dir, suffix string, exclude ...string) ([]string, error) {
	if suffix == "" {
		suffix = DefaultSuffix
	}

	infos, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	excluded := lo.SliceToMap(exclude, func(p string) (string, struct{}) {
		return filepath.Clean(p), struct{}{}
	})

	candidates := lo.FilterMap(infos, func(info os.FileInfo, _ int) (string, bool) {
		name := info.Name()
		if len(name) <= len(suffix) || !strings.HasSuffix(name, suffix) {
			return "", false
		}
		path := filepath.Join(dir, name)
		if _, skip := excluded[path]; skip {
			return "", false
		}
		if info.Mode()&os.ModeSymlink != 0 {
			target, err := fs.Stat(path)
			if err != nil {
				return "", false
			}
			info = target
		}
		return path, info.IsDir()
	})

	return candidates, nil
}
