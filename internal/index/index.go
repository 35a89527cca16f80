// Package index maps spoken names to files found under a set of roots, used
// for installed applications and local music.
package index

import (
	"bufio"
	"errors"
	"io/fs"
	log "log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"terminator/internal/nlu"
)

var ErrNoMatch = errors.New("no matching entry")

type Entry struct {
	Name string
	Path string
}

// Index is immutable once built. Entries keep walk order, which breaks ties
// during lookup.
type Index struct {
	entries []Entry
	byName  map[string]int
}

// Build walks roots in order and indexes every regular file (or symlink)
// whose extension is in exts. A name seen twice keeps its first path.
// Unreadable roots and directories are skipped.
func Build(roots []string, exts []string) *Index {
	allowed := make(map[string]bool, len(exts))
	for _, e := range exts {
		allowed[strings.ToLower(e)] = true
	}

	idx := &Index{byName: map[string]int{}}
	for _, root := range roots {
		if root == "" {
			continue
		}
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if d != nil && d.IsDir() && path != root {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			if !d.Type().IsRegular() && d.Type()&os.ModeSymlink == 0 {
				return nil
			}
			ext := strings.ToLower(filepath.Ext(path))
			if len(allowed) > 0 && !allowed[ext] {
				return nil
			}
			idx.add(displayName(path, ext), path)
			return nil
		})
		if err != nil {
			log.Warn("index walk failed", "root", root, "err", err)
		}
	}
	return idx
}

// FromEntries builds an index from explicit name/path pairs.
func FromEntries(entries ...Entry) *Index {
	idx := &Index{byName: map[string]int{}}
	for _, e := range entries {
		idx.add(e.Name, e.Path)
	}
	return idx
}

func displayName(path, ext string) string {
	if ext == ".desktop" {
		if name := desktopName(path); name != "" {
			return name
		}
	}
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// desktopName reads the Name key of a freedesktop entry's main group.
func desktopName(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "[") && line != "[Desktop Entry]" {
			return ""
		}
		if name, ok := strings.CutPrefix(line, "Name="); ok {
			return name
		}
	}
	return ""
}

func (idx *Index) add(name, path string) {
	key := nlu.NormalizeName(name)
	if key == "" {
		return
	}
	if _, ok := idx.byName[key]; ok {
		return
	}
	idx.byName[key] = len(idx.entries)
	idx.entries = append(idx.entries, Entry{Name: key, Path: path})
}

func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.entries)
}

// Entries returns a copy in walk order.
func (idx *Index) Entries() []Entry {
	if idx == nil {
		return nil
	}
	return append([]Entry(nil), idx.entries...)
}

// Shorter names and queries only match exactly.
const minSubstring = 2

// Match resolves query to an entry. An exact name wins, then the first entry
// whose name contains the query or is contained in it, then the entry sharing
// the most words with the query. Ties go to the earlier entry.
func (idx *Index) Match(query string) (Entry, error) {
	q := nlu.NormalizeName(query)
	if idx == nil || q == "" {
		return Entry{}, ErrNoMatch
	}

	if i, ok := idx.byName[q]; ok {
		return idx.entries[i], nil
	}
	for _, e := range idx.entries {
		if len(q) >= minSubstring && strings.Contains(e.Name, q) ||
			len(e.Name) >= minSubstring && strings.Contains(q, e.Name) {
			return e, nil
		}
	}

	qTokens := map[string]bool{}
	for _, t := range strings.Fields(q) {
		qTokens[t] = true
	}
	best, bestScore := -1, 0
	for i, e := range idx.entries {
		score := 0
		seen := map[string]bool{}
		for _, t := range strings.Fields(e.Name) {
			if qTokens[t] && !seen[t] {
				seen[t] = true
				score++
			}
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return Entry{}, ErrNoMatch
	}
	return idx.entries[best], nil
}

func (idx *Index) Lookup(query string) (string, bool) {
	e, err := idx.Match(query)
	if err != nil {
		return "", false
	}
	return e.Path, true
}

// Ref holds the current index. Rebuilding swaps the whole value.
type Ref struct {
	p atomic.Pointer[Index]
}

func NewRef(idx *Index) *Ref {
	r := &Ref{}
	r.Store(idx)
	return r
}

func (r *Ref) Load() *Index {
	return r.p.Load()
}

func (r *Ref) Store(idx *Index) {
	if idx == nil {
		idx = FromEntries()
	}
	r.p.Store(idx)
}

func (r *Ref) Lookup(query string) (string, bool) {
	return r.Load().Lookup(query)
}

func (r *Ref) Len() int {
	return r.Load().Len()
}
