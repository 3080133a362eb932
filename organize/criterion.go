package organize

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Criterion decides which subfolder a file is moved into.
type Criterion int

const (
	ByDate Criterion = iota // YYYY-MM of the modification time
	ByType                  // uppercased extension
	ByName                  // uppercased first letter
)

const (
	// DefaultNoExtensionBucket holds files without an extension when sorting
	// by type.
	DefaultNoExtensionBucket = "NO_EXTENSION"

	// NonLetterBucket holds files whose name does not start with a letter when
	// sorting by name.
	NonLetterBucket = "#"
)

func (c Criterion) String() string {
	switch c {
	case ByDate:
		return "date"
	case ByType:
		return "type"
	case ByName:
		return "name"
	default:
		return fmt.Sprintf("Criterion(%d)", int(c))
	}
}

// ParseCriterion resolves date, type or name (case-insensitive).
func ParseCriterion(s string) (Criterion, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "date", "month":
		return ByDate, nil
	case "type", "ext", "extension":
		return ByType, nil
	case "name", "initial":
		return ByName, nil
	default:
		return 0, fmt.Errorf("unknown organize criterion %q (want date, type or name)", s)
	}
}

// Extension returns the extension of name without the dot. Names with a single
// leading dot, like .bashrc, and names ending in a dot have none.
func Extension(name string) string {
	trimmed := strings.TrimLeft(name, ".")
	ext := filepath.Ext(trimmed)
	if len(ext) <= 1 {
		return ""
	}
	return ext[1:]
}

// BucketFor returns the subfolder name for a file. when is the time used for
// date buckets; it is converted to local time.
func BucketFor(c Criterion, name string, when time.Time, noExtBucket string) string {
	switch c {
	case ByDate:
		return when.Local().Format("2006-01")
	case ByType:
		ext := Extension(name)
		if ext == "" {
			if noExtBucket == "" {
				return DefaultNoExtensionBucket
			}
			return noExtBucket
		}
		return strings.ToUpper(ext)
	case ByName:
		r, _ := utf8.DecodeRuneInString(name)
		if r == utf8.RuneError || !unicode.IsLetter(r) {
			return NonLetterBucket
		}
		return string(unicode.ToUpper(r))
	default:
		return ""
	}
}
