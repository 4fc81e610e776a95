package debug

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"
)

// Screenshot writes framebuffer captures of the rig view as PNG files.
type Screenshot struct {
	dir    string
	prefix string
}

// NewScreenshot creates a capture writer. An empty prefix becomes "rig".
func NewScreenshot(dir, prefix string) *Screenshot {
	if prefix == "" {
		prefix = "rig"
	}
	return &Screenshot{dir: dir, prefix: prefix}
}

// Filename returns the path a capture taken at t is written to.
func (s *Screenshot) Filename(t time.Time) string {
	name := fmt.Sprintf("%s_%s.png", s.prefix, t.Format("2006-01-02_15-04-05.000"))
	return filepath.Join(s.dir, name)
}

// Capture saves RGBA pixels read back from the framebuffer.
// Rows are flipped since OpenGL has its origin at bottom-left.
func (s *Screenshot) Capture(pixels []byte, width, height int, t time.Time) (string, error) {
	if width <= 0 || height <= 0 || len(pixels) != width*height*4 {
		return "", fmt.Errorf("pixel data size mismatch: expected %d, got %d", width*height*4, len(pixels))
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	rowSize := width * 4
	for y := 0; y < height; y++ {
		src := (height - 1 - y) * rowSize
		copy(img.Pix[y*img.Stride:y*img.Stride+rowSize], pixels[src:src+rowSize])
	}

	if s.dir != "" {
		if err := os.MkdirAll(s.dir, 0o755); err != nil {
			return "", fmt.Errorf("creating output dir: %w", err)
		}
	}
	filename := s.Filename(t)
	file, err := os.Create(filename)
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return "", fmt.Errorf("encoding PNG: %w", err)
	}
	return filename, nil
}
