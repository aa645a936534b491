// Package dumpdir implements ports.PageSource over a directory of exported
// wiki pages, one "<Title>.wiki" file per page. Spaces in titles are stored
// as underscores; "/" and "%" are percent-encoded.
package dumpdir

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/corey/dropcache/internal/ports"
)

// Ext is the file extension of page dumps.
const Ext = ".wiki"

var fileNameReplacer = strings.NewReplacer("%", "%25", "/", "%2F", " ", "_")

// FileName returns the dump file name for title.
func FileName(title string) string {
	return fileNameReplacer.Replace(strings.TrimSpace(title)) + Ext
}

// TitleFromPath recovers the page title from a dump file path.
// Returns "" for paths that are not page dumps.
func TitleFromPath(path string) string {
	base := filepath.Base(path)
	if !IsPageFile(base) {
		return ""
	}
	name := strings.ReplaceAll(strings.TrimSuffix(base, Ext), "_", " ")
	if title, err := url.PathUnescape(name); err == nil {
		name = title
	}
	return strings.TrimSpace(name)
}

// IsPageFile reports whether name looks like a page dump. Hidden files and
// editor leftovers are excluded.
func IsPageFile(name string) bool {
	base := filepath.Base(name)
	return strings.HasSuffix(base, Ext) && len(base) > len(Ext) && !strings.HasPrefix(base, ".")
}

// Source reads pages from a dump directory tree.
type Source struct {
	dir string

	mu    sync.Mutex
	paths map[string]string // title -> file, filled by Titles
}

var _ ports.PageSource = (*Source)(nil)

// New returns a source rooted at dir. The directory must exist.
func New(dir string) (*Source, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("dump dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("dump dir %s: not a directory", abs)
	}
	return &Source{dir: abs, paths: make(map[string]string)}, nil
}

// Dir returns the absolute dump directory.
func (s *Source) Dir() string { return s.dir }

// Titles walks the directory tree and returns every page title, sorted.
// When two files map to the same title the first one walked wins.
func (s *Source) Titles(ctx context.Context) ([]string, error) {
	paths := make(map[string]string)
	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != s.dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		title := TitleFromPath(path)
		if title == "" {
			return nil
		}
		if _, dup := paths[title]; !dup {
			paths[title] = path
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", s.dir, err)
	}

	s.mu.Lock()
	s.paths = paths
	s.mu.Unlock()

	titles := make([]string, 0, len(paths))
	for t := range paths {
		titles = append(titles, t)
	}
	sort.Strings(titles)
	return titles, nil
}

// Fetch returns the markup for title.
func (s *Source) Fetch(ctx context.Context, title string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.ReadFile(s.pathFor(title))
}

// ReadFile reads one dump file. A missing file is ErrPageNotFound.
func (s *Source) ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%s: %w", filepath.Base(path), ports.ErrPageNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

func (s *Source) pathFor(title string) string {
	title = strings.TrimSpace(title)
	s.mu.Lock()
	p, ok := s.paths[title]
	s.mu.Unlock()
	if ok {
		return p
	}
	return filepath.Join(s.dir, FileName(title))
}
