// Package dupes models the duplicate groups found by one scan.
package dupes

import (
	"time"

	"github.com/luinbytes/dupesort/digest"
)

// FileRecord is a file's metadata as of the moment it was last stat'ed.
type FileRecord struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Group is a set of two or more paths with identical content, in the order
// their digests completed.
type Group struct {
	Fingerprint digest.Fingerprint
	Paths       []string
}

// Set holds every group from one scan. It is never modified after Build.
type Set struct {
	groups []Group
	index  map[digest.Fingerprint]int
}

// Len returns the number of groups.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.groups)
}

// Groups returns the groups in first-discovery order. The returned slices are
// copies.
func (s *Set) Groups() []Group {
	if s == nil {
		return nil
	}
	out := make([]Group, len(s.groups))
	for i, g := range s.groups {
		out[i] = g.clone()
	}
	return out
}

// Group looks up the group for fp.
func (s *Set) Group(fp digest.Fingerprint) (Group, bool) {
	if s == nil {
		return Group{}, false
	}
	i, ok := s.index[fp]
	if !ok {
		return Group{}, false
	}
	return s.groups[i].clone(), true
}

// FileCount is the number of paths across all groups.
func (s *Set) FileCount() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, g := range s.groups {
		n += len(g.Paths)
	}
	return n
}

// Redundant is the number of files that could go while keeping one per group.
func (s *Set) Redundant() int {
	return s.FileCount() - s.Len()
}

func (g Group) clone() Group {
	return Group{Fingerprint: g.Fingerprint, Paths: append([]string(nil), g.Paths...)}
}

// Builder accumulates (fingerprint, path) pairs. It is not safe for
// concurrent use; the scanner feeds it from a single collector.
type Builder struct {
	order []digest.Fingerprint
	paths map[digest.Fingerprint][]string
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{paths: make(map[digest.Fingerprint][]string)}
}

// Add files path under fp.
func (b *Builder) Add(fp digest.Fingerprint, path string) {
	if _, seen := b.paths[fp]; !seen {
		b.order = append(b.order, fp)
	}
	b.paths[fp] = append(b.paths[fp], path)
}

// Build freezes the builder into a Set, dropping fingerprints seen only once.
func (b *Builder) Build() *Set {
	s := &Set{index: make(map[digest.Fingerprint]int)}
	for _, fp := range b.order {
		paths := b.paths[fp]
		if len(paths) < 2 {
			continue
		}
		s.index[fp] = len(s.groups)
		s.groups = append(s.groups, Group{
			Fingerprint: fp,
			Paths:       append([]string(nil), paths...),
		})
	}
	return s
}
