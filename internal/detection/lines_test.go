package detection

import (
	"image"
	"image/color"
	"math"
	"reflect"
	"testing"

	"github.com/ironsheep/image-features-mcp/internal/feature"
)

// horizontalBandImage creates a white image with a black horizontal band
func horizontalBandImage(width, height, y, thickness int) *image.RGBA {
	img := filledImage(width, height, color.White)
	fillRect(img, 10, y, width-10, y+thickness, color.Black)
	return img
}

// verticalBandImage creates a white image with a black vertical band
func verticalBandImage(width, height, x, thickness int) *image.RGBA {
	img := filledImage(width, height, color.White)
	fillRect(img, x, 10, x+thickness, height-10, color.Black)
	return img
}

func TestKeylineDetector_Horizontal(t *testing.T) {
	img := horizontalBandImage(100, 100, 48, 4)
	records, err := NewKeylineDetector(DefaultLineOptions()).DetectAndCompute(img)
	if err != nil {
		t.Fatalf("DetectAndCompute failed: %v", err)
	}
	if len(records) == 0 {
		t.Fatal("Expected at least one keyline")
	}

	found := false
	for _, r := range records {
		kl := r.Keyline
		if math.Abs(kl.Start.Y-kl.End.Y) < 2 && kl.Length >= 60 {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected a long horizontal keyline, got %+v", records)
	}
}

func TestKeylineDetector_Vertical(t *testing.T) {
	img := verticalBandImage(100, 100, 48, 4)
	records, err := NewKeylineDetector(DefaultLineOptions()).DetectAndCompute(img)
	if err != nil {
		t.Fatalf("DetectAndCompute failed: %v", err)
	}

	found := false
	for _, r := range records {
		kl := r.Keyline
		if math.Abs(kl.Start.X-kl.End.X) < 2 && kl.Length >= 60 {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected a long vertical keyline, got %d keylines", len(records))
	}
}

func TestKeylineDetector_RecordFields(t *testing.T) {
	img := horizontalBandImage(100, 100, 48, 4)
	records, err := NewKeylineDetector(DefaultLineOptions()).DetectAndCompute(img)
	if err != nil {
		t.Fatalf("DetectAndCompute failed: %v", err)
	}

	for i, r := range records {
		kl := r.Keyline
		if r.Kind != feature.KindLine {
			t.Errorf("record %d: expected line kind", i)
		}
		if len(r.Descriptor) != 32 {
			t.Errorf("record %d: expected 32 descriptor bytes, got %d", i, len(r.Descriptor))
		}
		if kl.Start == kl.End {
			t.Errorf("record %d: start equals end", i)
		}
		if kl.Length < float64(DefaultLineOptions().MinLength) {
			t.Errorf("record %d: length %v below minimum", i, kl.Length)
		}
		if kl.Response <= 0 || kl.Response > 1.5 {
			t.Errorf("record %d: unexpected response %v", i, kl.Response)
		}
		if kl.ClassID != i {
			t.Errorf("record %d: expected class id %d, got %d", i, i, kl.ClassID)
		}
		if kl.Octave != 0 {
			t.Errorf("record %d: expected octave 0, got %d", i, kl.Octave)
		}
	}

	set := feature.NewSet(feature.KindLine, records)
	if err := set.Validate(); err != nil {
		t.Errorf("Detected set does not validate: %v", err)
	}
}

func TestKeylineDetector_MinLength(t *testing.T) {
	img := horizontalBandImage(100, 100, 48, 4)
	opts := DefaultLineOptions()
	opts.MinLength = 200

	records, err := NewKeylineDetector(opts).DetectAndCompute(img)
	if err != nil {
		t.Fatalf("DetectAndCompute failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Expected no keylines longer than the image, got %d", len(records))
	}
}

func TestKeylineDetector_MaxLines(t *testing.T) {
	img := filledImage(120, 120, color.White)
	for y := 15; y < 110; y += 15 {
		fillRect(img, 10, y, 110, y+4, color.Black)
	}
	opts := DefaultLineOptions()
	opts.MaxLines = 2

	records, err := NewKeylineDetector(opts).DetectAndCompute(img)
	if err != nil {
		t.Fatalf("DetectAndCompute failed: %v", err)
	}
	if len(records) > 2 {
		t.Errorf("Expected at most 2 keylines, got %d", len(records))
	}
}

func TestKeylineDetector_Deterministic(t *testing.T) {
	img := filledImage(100, 100, color.White)
	fillRect(img, 20, 20, 80, 80, color.Black)

	first, err := NewKeylineDetector(DefaultLineOptions()).DetectAndCompute(img)
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	second, err := NewKeylineDetector(DefaultLineOptions()).DetectAndCompute(img)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("Expected identical output on repeated detection")
	}
}

func TestMakeBandPattern(t *testing.T) {
	pattern := makeBandPattern(3, 32, bandHalfWidth)
	for i, p := range pattern {
		if p.x1 < -0.5 || p.x1 > 0.5 || p.x2 < -0.5 || p.x2 > 0.5 {
			t.Errorf("pair %d: along-line offset outside segment: %+v", i, p)
		}
		if math.Abs(p.y1) > bandHalfWidth || math.Abs(p.y2) > bandHalfWidth {
			t.Errorf("pair %d: cross-line offset outside band: %+v", i, p)
		}
	}
}
