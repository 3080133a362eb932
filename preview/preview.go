// Package preview describes a file's content for display next to a duplicate
// group: image dimensions for pictures, the opening text for text files.
package preview

import (
	"context"
	"fmt"
	"image"
	"io"
	"strings"
	"unicode/utf8"

	// Registered image formats.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/luinbytes/dupesort/storage"
)

// MaxTextBytes caps how much of a text file is read.
const MaxTextBytes = 10 * 1024

// NoPreview is shown for files of unknown type.
const NoPreview = "No preview available."

// Kind classifies a preview.
type Kind int

const (
	None Kind = iota
	Image
	Text
)

var (
	imageExts = map[string]bool{
		".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
		".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
	}
	textExts = map[string]bool{
		".txt": true, ".md": true, ".log": true, ".csv": true, ".py": true,
		".go": true, ".json": true, ".yaml": true, ".yml": true, ".ini": true,
		".xml": true, ".html": true, ".sh": true,
	}
)

// Preview is the description of one file.
type Preview struct {
	Kind   Kind
	Format string // decoded image format
	Width  int
	Height int
	Text   string
	Cut    bool // Text holds only the first MaxTextBytes
}

func (p Preview) String() string {
	switch p.Kind {
	case Image:
		return fmt.Sprintf("%s image, %dx%d", strings.ToUpper(p.Format), p.Width, p.Height)
	case Text:
		if p.Cut {
			return p.Text + "\n…"
		}
		return p.Text
	default:
		return NoPreview
	}
}

// Describe opens f through src and builds its preview. Files of unknown type
// are not opened.
func Describe(ctx context.Context, src storage.Provider, f storage.FileInfo) (Preview, error) {
	ext := strings.ToLower(extOf(f.Name))
	if !imageExts[ext] && !textExts[ext] {
		return Preview{Kind: None}, nil
	}

	rc, err := src.OpenFile(ctx, f.ID)
	if err != nil {
		return Preview{}, fmt.Errorf("error previewing %s: %w", f.Name, err)
	}
	defer rc.Close()

	if imageExts[ext] {
		cfg, format, err := image.DecodeConfig(rc)
		if err != nil {
			return Preview{}, fmt.Errorf("error previewing %s: %w", f.Name, err)
		}
		return Preview{Kind: Image, Format: format, Width: cfg.Width, Height: cfg.Height}, nil
	}

	buf, err := io.ReadAll(io.LimitReader(rc, MaxTextBytes+1))
	if err != nil {
		return Preview{}, fmt.Errorf("error previewing %s: %w", f.Name, err)
	}
	p := Preview{Kind: Text}
	if len(buf) > MaxTextBytes {
		buf = buf[:MaxTextBytes]
		p.Cut = true
	}
	p.Text = string(buf)
	if !utf8.ValidString(p.Text) {
		p.Text = strings.ToValidUTF8(p.Text, "")
	}
	return p, nil
}

func extOf(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 {
		return ""
	}
	return name[i:]
}
