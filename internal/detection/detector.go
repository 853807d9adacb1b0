package detection

import (
	"fmt"
	"image"
	"sort"

	"github.com/ironsheep/image-features-mcp/internal/feature"
)

// Detector detects features in an image and computes their descriptors.
//
// Implementations must be deterministic: the same image and configuration
// always produce the same records in the same order. Degenerate images
// (uniform color, too small for the detector's support region) produce an
// empty, non-nil slice; only nil or zero-sized images fail, with an error
// wrapping feature.ErrInvalidImage.
type Detector interface {
	// Kind is the feature kind this detector produces.
	Kind() feature.Kind

	// DetectAndCompute runs detection and description on img.
	DetectAndCompute(img image.Image) ([]feature.Record, error)
}

// PointFactory builds a point detector from options.
type PointFactory func(opts PointOptions) (Detector, error)

// Point detector backends, keyed by name. "native" is always registered; other
// backends register themselves from build-tagged files.
var pointBackends = map[string]PointFactory{
	BackendNative: func(opts PointOptions) (Detector, error) {
		return NewORBDetector(opts), nil
	},
}

// BackendNative is the pure Go ORB-style point detector.
const BackendNative = "native"

// NewPointDetector returns the point detector selected by opts.Backend
// (BackendNative when empty).
func NewPointDetector(opts PointOptions) (Detector, error) {
	name := opts.Backend
	if name == "" {
		name = BackendNative
	}
	factory, ok := pointBackends[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", feature.ErrUnknownBackend, name, PointBackends())
	}
	return factory(opts)
}

// PointBackends lists the registered point detector backends in sorted order.
func PointBackends() []string {
	names := make([]string, 0, len(pointBackends))
	for name := range pointBackends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewLineDetector returns the keyline detector.
func NewLineDetector(opts LineOptions) Detector {
	return NewKeylineDetector(opts)
}

func emptyRecords() []feature.Record {
	return make([]feature.Record, 0)
}

// packBits packs comparison results into bytes, least significant bit first,
// and widens them to descriptor values.
func packBits(bits []bool) []float64 {
	out := make([]float64, (len(bits)+7)/8)
	for i, b := range bits {
		if b {
			out[i/8] += float64(uint8(1) << uint(i%8))
		}
	}
	return out
}
