package debug

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScreenshotCapture(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shots")
	s := NewScreenshot(dir, "arm")
	at := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)

	// 1x2 image: bottom row red, top row blue (OpenGL order)
	pixels := []byte{
		255, 0, 0, 255,
		0, 0, 255, 255,
	}
	name, err := s.Capture(pixels, 1, 2, at)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "arm_2026-03-01_12-30-00.000.png"), name)

	f, err := os.Open(name)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)

	r, _, b, _ := img.At(0, 0).RGBA()
	assert.Zero(t, r)
	assert.NotZero(t, b)
	r, _, _, _ = img.At(0, 1).RGBA()
	assert.NotZero(t, r)
}

func TestScreenshotSizeMismatch(t *testing.T) {
	s := NewScreenshot(t.TempDir(), "")
	_, err := s.Capture([]byte{1, 2, 3}, 1, 1, time.Now())
	assert.Error(t, err)
	assert.Contains(t, s.Filename(time.Now()), "rig_")
}
