package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"
)

type match struct {
	path    string
	modTime time.Time
}

// findMatches walks root and returns every regular file whose base name matches pattern.
func findMatches(root, pattern string) ([]match, error) {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
	}
	var matches []match
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return skipUnreadable(root, path, d, err)
		}
		if d.IsDir() {
			return nil
		}
		if ok, _ := filepath.Match(pattern, d.Name()); !ok {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		matches = append(matches, match{path: path, modTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// skipUnreadable prunes a subdirectory the walk may not enter. Any other
// error, or an unreadable root, still ends the walk.
func skipUnreadable(root, path string, d fs.DirEntry, err error) error {
	if d != nil && d.IsDir() && path != root && errors.Is(err, fs.ErrPermission) {
		return fs.SkipDir
	}
	return err
}

// LatestModified returns the most recently modified file below root matching pattern.
func LatestModified(root, pattern string) (string, error) {
	matches, err := findMatches(root, pattern)
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no file matching %s below %s", pattern, root)
	}
	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].modTime.Equal(matches[j].modTime) {
			return matches[i].modTime.After(matches[j].modTime)
		}
		return matches[i].path > matches[j].path
	})
	return matches[0].path, nil
}

// LatestByName returns the lexicographically greatest path below root matching pattern.
// Vendit exports embed their date in the name, so this is the newest export.
func LatestByName(root, pattern string) (string, error) {
	matches, err := findMatches(root, pattern)
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no file matching %s below %s", pattern, root)
	}
	latest := matches[0].path
	for _, m := range matches[1:] {
		if m.path > latest {
			latest = m.path
		}
	}
	return latest, nil
}

// SupplierDirs lists the supplier codes found as immediate subdirectories of root.
// Codes are exactly three characters; the reserved "tmp" directory is skipped.
func SupplierDirs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var codes []string
	for _, e := range entries {
		name := e.Name()
		if len(name) != 3 || name == reservedDir || name[0] == '.' {
			continue
		}
		isDir := e.IsDir()
		if e.Type()&fs.ModeSymlink != 0 {
			if info, err := os.Stat(filepath.Join(root, name)); err == nil {
				isDir = info.IsDir()
			}
		}
		if isDir {
			codes = append(codes, name)
		}
	}
	return codes, nil
}
