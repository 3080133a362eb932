package preview

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"golang.org/x/image/bmp"

	"github.com/luinbytes/dupesort/storage"
)

func TestDescribe(t *testing.T) {
	fs := afero.NewMemMapFs()
	img := image.NewRGBA(image.Rect(0, 0, 32, 16))

	var pngBuf, bmpBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		t.Fatal(err)
	}
	if err := bmp.Encode(&bmpBuf, img); err != nil {
		t.Fatal(err)
	}

	long := strings.Repeat("x", MaxTextBytes+50)
	files := map[string][]byte{
		"/p/pic.png":   pngBuf.Bytes(),
		"/p/pic.BMP":   bmpBuf.Bytes(),
		"/p/notes.txt": []byte("first line\nsecond"),
		"/p/big.log":   []byte(long),
		"/p/data.bin":  {0, 1, 2},
		"/p/fake.jpg":  []byte("not a jpeg"),
	}
	if err := fs.MkdirAll("/p", 0o755); err != nil {
		t.Fatal(err)
	}
	for name, data := range files {
		if err := afero.WriteFile(fs, name, data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	p := storage.NewLocalProvider(storage.WithFs(fs))
	ctx := context.Background()

	describe := func(name string) (Preview, error) {
		info, err := p.Stat(ctx, name)
		if err != nil {
			t.Fatal(err)
		}
		return Describe(ctx, p, info)
	}

	tests := []struct {
		path string
		want string
	}{
		{"/p/pic.png", "PNG image, 32x16"},
		{"/p/pic.BMP", "BMP image, 32x16"},
		{"/p/notes.txt", "first line\nsecond"},
		{"/p/data.bin", NoPreview},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := describe(tt.path)
			if err != nil {
				t.Fatalf("Describe() error = %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("Describe() = %q, want %q", got.String(), tt.want)
			}
		})
	}

	big, err := describe("/p/big.log")
	if err != nil {
		t.Fatal(err)
	}
	if !big.Cut || len(big.Text) != MaxTextBytes {
		t.Errorf("big.log: cut %v, %d bytes", big.Cut, len(big.Text))
	}

	if _, err := describe("/p/fake.jpg"); err == nil {
		t.Error("Describe() of a corrupt image succeeded")
	}
}
