package imageprocessing

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/jo-hoe/imagecompressor/internal/backend/storage"
)

func newTestStorage(t *testing.T) *storage.FileSystemStorage {
	t.Helper()
	s, _ := newTestStorageAt(t)
	return s
}

// newTestStorageAt also returns the root directory of the storage
func newTestStorageAt(t *testing.T) (*storage.FileSystemStorage, string) {
	t.Helper()
	root := t.TempDir()
	s, err := storage.NewFileSystemStorage(root)
	if err != nil {
		t.Fatalf("NewFileSystemStorage error: %v", err)
	}
	return s, root
}

// createTestPNG creates a PNG with a diagonal color gradient
func createTestPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 255 / width), uint8(y * 255 / height), 128, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test png: %v", err)
	}
	return buf.Bytes()
}

func createTestJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8((x + y) % 256), uint8(x % 256), uint8(y % 256), 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("failed to encode test jpeg: %v", err)
	}
	return buf.Bytes()
}
