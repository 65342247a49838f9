// Package wallpaper maps workspace indexes to files in the wallpaper
// directory.
package wallpaper

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

var (
	// ErrDirectoryMissing is returned when the wallpaper directory does not exist
	ErrDirectoryMissing = errors.New("wallpaper directory does not exist")
	// ErrDirectoryEmpty is returned when the wallpaper directory has no entries
	ErrDirectoryEmpty = errors.New("wallpaper directory is empty")
)

// List returns the full paths of every entry in dir, sorted byte-wise by
// name. The directory is read on each call; callers must not cache the
// result across events since files may be added or removed at any time.
func List(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDirectoryMissing, dir)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrDirectoryMissing, dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrDirectoryEmpty, dir)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(dir, name)
	}
	return paths, nil
}

// Resolve returns the wallpaper for a 1-based workspace index. Indexes past
// the end clamp to the last entry and 0 maps to the first.
func Resolve(dir string, index uint32) (string, error) {
	paths, err := List(dir)
	if err != nil {
		return "", err
	}
	return paths[Position(index, len(paths))], nil
}

// Position converts a 1-based index into a 0-based slot among count entries
// using the clamping policy. count must be positive.
func Position(index uint32, count int) int {
	if index == 0 {
		return 0
	}
	if uint64(index) > uint64(count) {
		return count - 1
	}
	return int(index) - 1
}
