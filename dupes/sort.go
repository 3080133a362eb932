package dupes

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/luinbytes/dupesort/batch"
	"github.com/luinbytes/dupesort/storage"
)

// Criterion orders the files of a group for display or for picking a keeper.
type Criterion int

const (
	MtimeAsc Criterion = iota
	MtimeDesc
	SizeAsc
	SizeDesc
	NameAsc
	NameDesc
)

var criterionNames = [...]string{
	MtimeAsc:  "mtime-asc",
	MtimeDesc: "mtime-desc",
	SizeAsc:   "size-asc",
	SizeDesc:  "size-desc",
	NameAsc:   "name-asc",
	NameDesc:  "name-desc",
}

var criterionLabels = [...]string{
	MtimeAsc:  "oldest first",
	MtimeDesc: "newest first",
	SizeAsc:   "smallest first",
	SizeDesc:  "largest first",
	NameAsc:   "name A-Z",
	NameDesc:  "name Z-A",
}

func (c Criterion) String() string {
	if c < 0 || int(c) >= len(criterionNames) {
		return fmt.Sprintf("Criterion(%d)", int(c))
	}
	return criterionNames[c]
}

// Label is a human description for status lines.
func (c Criterion) Label() string {
	if c < 0 || int(c) >= len(criterionLabels) {
		return c.String()
	}
	return criterionLabels[c]
}

// Next cycles through all criteria.
func (c Criterion) Next() Criterion {
	return (c + 1) % Criterion(len(criterionNames))
}

// ParseCriterion accepts the canonical names and the keep-strategy aliases
// oldest, newest, largest, smallest and name.
func ParseCriterion(s string) (Criterion, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mtime-asc", "oldest", "":
		return MtimeAsc, nil
	case "mtime-desc", "newest":
		return MtimeDesc, nil
	case "size-asc", "smallest":
		return SizeAsc, nil
	case "size-desc", "largest":
		return SizeDesc, nil
	case "name-asc", "name":
		return NameAsc, nil
	case "name-desc":
		return NameDesc, nil
	default:
		return 0, fmt.Errorf("unknown sort criterion %q", s)
	}
}

// Stater is the part of the file API needed to refresh metadata.
type Stater interface {
	Stat(ctx context.Context, id string) (storage.FileInfo, error)
}

// SortedView stats every path of g and returns the records ordered by c.
// Paths that no longer stat as regular files come back in missing. Ties are
// broken by path so the order is total.
func SortedView(ctx context.Context, st Stater, g Group, c Criterion) (records []FileRecord, missing []string) {
	records = make([]FileRecord, 0, len(g.Paths))
	for _, p := range g.Paths {
		info, err := st.Stat(ctx, p)
		if err != nil {
			missing = append(missing, p)
			continue
		}
		records = append(records, FileRecord{
			Path:    p,
			Name:    info.Name,
			Size:    info.Size,
			ModTime: info.ModTime,
		})
	}

	sort.Slice(records, func(i, j int) bool {
		return less(records[i], records[j], c)
	})
	return records, missing
}

func less(a, b FileRecord, c Criterion) bool {
	var cmp int
	switch c {
	case MtimeAsc, MtimeDesc:
		cmp = a.ModTime.Compare(b.ModTime)
	case SizeAsc, SizeDesc:
		switch {
		case a.Size < b.Size:
			cmp = -1
		case a.Size > b.Size:
			cmp = 1
		}
	case NameAsc, NameDesc:
		cmp = strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	}
	if c == MtimeDesc || c == SizeDesc || c == NameDesc {
		cmp = -cmp
	}
	if cmp != 0 {
		return cmp < 0
	}
	return a.Path < b.Path
}

// Select keeps the paths that still exist as regular files. The rest are
// returned as failures carrying the stat error.
func Select(ctx context.Context, st Stater, paths []string) (present []string, missing []batch.Failure) {
	for _, p := range paths {
		if _, err := st.Stat(ctx, p); err != nil {
			missing = append(missing, batch.Failure{Path: p, Err: err})
			continue
		}
		present = append(present, p)
	}
	return present, missing
}
