package detection

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/ironsheep/image-features-mcp/internal/feature"
)

// filledImage creates an image filled with a single color
func filledImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// fillRect paints [x1,x2) x [y1,y2) onto img
func fillRect(img *image.RGBA, x1, y1, x2, y2 int, c color.Color) {
	for y := y1; y < y2; y++ {
		for x := x1; x < x2; x++ {
			img.Set(x, y, c)
		}
	}
}

// blocksImage creates a white image with a few black squares of different sizes
func blocksImage(width, height int) *image.RGBA {
	img := filledImage(width, height, color.White)
	fillRect(img, 24, 24, 52, 52, color.Black)
	fillRect(img, 70, 30, 90, 60, color.Black)
	fillRect(img, 36, 76, 80, 100, color.Black)
	return img
}

func TestNewPointDetector_Default(t *testing.T) {
	d, err := NewPointDetector(PointOptions{})
	if err != nil {
		t.Fatalf("NewPointDetector failed: %v", err)
	}
	if _, ok := d.(*ORBDetector); !ok {
		t.Errorf("Expected *ORBDetector, got %T", d)
	}
	if d.Kind() != feature.KindPoint {
		t.Errorf("Expected point kind, got %v", d.Kind())
	}
}

func TestNewPointDetector_UnknownBackend(t *testing.T) {
	_, err := NewPointDetector(PointOptions{Backend: "sift"})
	if !errors.Is(err, feature.ErrUnknownBackend) {
		t.Errorf("Expected ErrUnknownBackend, got %v", err)
	}
}

func TestPointBackends(t *testing.T) {
	names := PointBackends()
	found := false
	for _, n := range names {
		if n == BackendNative {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected %q in %v", BackendNative, names)
	}
}

func TestNewLineDetector(t *testing.T) {
	d := NewLineDetector(LineOptions{})
	if d.Kind() != feature.KindLine {
		t.Errorf("Expected line kind, got %v", d.Kind())
	}
}

func TestPackBits(t *testing.T) {
	bits := make([]bool, 16)
	bits[0] = true
	bits[3] = true
	bits[15] = true

	got := packBits(bits)
	if len(got) != 2 {
		t.Fatalf("Expected 2 bytes, got %d", len(got))
	}
	if got[0] != 9 {
		t.Errorf("Expected first byte 9, got %v", got[0])
	}
	if got[1] != 128 {
		t.Errorf("Expected second byte 128, got %v", got[1])
	}
}

func TestDetectors_InvalidImage(t *testing.T) {
	detectors := []Detector{
		NewORBDetector(DefaultPointOptions()),
		NewKeylineDetector(DefaultLineOptions()),
	}
	for _, d := range detectors {
		if _, err := d.DetectAndCompute(nil); !errors.Is(err, feature.ErrInvalidImage) {
			t.Errorf("%v: expected ErrInvalidImage for nil image, got %v", d.Kind(), err)
		}
		empty := image.NewRGBA(image.Rect(0, 0, 0, 0))
		if _, err := d.DetectAndCompute(empty); !errors.Is(err, feature.ErrInvalidImage) {
			t.Errorf("%v: expected ErrInvalidImage for empty image, got %v", d.Kind(), err)
		}
	}
}

func TestDetectors_DegenerateImages(t *testing.T) {
	detectors := []Detector{
		NewORBDetector(DefaultPointOptions()),
		NewKeylineDetector(DefaultLineOptions()),
	}
	images := map[string]image.Image{
		"1x1":     filledImage(1, 1, color.White),
		"2x2":     filledImage(2, 2, color.Black),
		"uniform": filledImage(80, 80, color.RGBA{100, 150, 200, 255}),
	}

	for _, d := range detectors {
		for name, img := range images {
			records, err := d.DetectAndCompute(img)
			if err != nil {
				t.Errorf("%v/%s: unexpected error %v", d.Kind(), name, err)
				continue
			}
			if records == nil {
				t.Errorf("%v/%s: expected empty non-nil slice", d.Kind(), name)
			}
			if len(records) != 0 {
				t.Errorf("%v/%s: expected no features, got %d", d.Kind(), name, len(records))
			}
		}
	}
}
