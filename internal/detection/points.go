package detection

import (
	"image"
	"math"
	"math/rand"
	"sort"

	"github.com/ironsheep/image-features-mcp/internal/feature"
	"github.com/ironsheep/image-features-mcp/internal/imaging"
)

// PointOptions configures the point feature pipeline.
type PointOptions struct {
	// Backend selects the detector implementation ("native" or a build-tagged one).
	Backend string `json:"backend"`

	// MaxFeatures caps the number of keypoints kept, strongest first.
	MaxFeatures int `json:"max_features"`

	// FastThreshold is the FAST intensity difference threshold (0-255).
	FastThreshold int `json:"fast_threshold"`

	// Levels is the number of pyramid levels, including the full-size image.
	Levels int `json:"levels"`

	// ScaleFactor is the size ratio between consecutive pyramid levels (> 1).
	ScaleFactor float64 `json:"scale_factor"`

	// BlurRadius is the Gaussian radius applied before descriptor sampling.
	BlurRadius float64 `json:"blur_radius"`
}

// DefaultPointOptions returns the options used when nothing is configured.
func DefaultPointOptions() PointOptions {
	return PointOptions{
		Backend:       BackendNative,
		MaxFeatures:   500,
		FastThreshold: 20,
		Levels:        4,
		ScaleFactor:   1.2,
		BlurRadius:    2,
	}
}

const (
	// pointBorder keeps the FAST circle, the Harris window and the rotated
	// descriptor pattern inside the image.
	pointBorder = 16

	// patternRadius bounds the descriptor sample offsets. Rotation keeps every
	// sample within this radius of the keypoint.
	patternRadius = 13

	// centroidRadius is the radius of the orientation patch.
	centroidRadius = 15

	// patchSize is the reported keypoint diameter at level 0.
	patchSize = 31

	harrisK        = 0.04
	harrisHalfSize = 3

	descriptorBits = 256
	briefSeed      = 0x0b51f
)

// fastCircle is the 16-pixel Bresenham circle of radius 3, clockwise from the top.
var fastCircle = [16][2]int{
	{0, -3}, {1, -3}, {2, -2}, {3, -1}, {3, 0}, {3, 1}, {2, 2}, {1, 3},
	{0, 3}, {-1, 3}, {-2, 2}, {-3, 1}, {-3, 0}, {-3, -1}, {-2, -2}, {-1, -3},
}

// samplePair is one intensity comparison of a binary descriptor.
type samplePair struct {
	x1, y1, x2, y2 float64
}

var briefPattern = makeDiskPattern(briefSeed, descriptorBits, patternRadius)

// makeDiskPattern draws n point pairs uniformly from a disk of the given radius.
// The seeded source makes the pattern identical across runs and platforms.
func makeDiskPattern(seed int64, n int, radius float64) []samplePair {
	rng := rand.New(rand.NewSource(seed))
	point := func() (float64, float64) {
		for {
			x := (rng.Float64()*2 - 1) * radius
			y := (rng.Float64()*2 - 1) * radius
			if x*x+y*y <= radius*radius {
				return math.Round(x), math.Round(y)
			}
		}
	}

	pairs := make([]samplePair, n)
	for i := range pairs {
		x1, y1 := point()
		x2, y2 := point()
		for x1 == x2 && y1 == y2 {
			x2, y2 = point()
		}
		pairs[i] = samplePair{x1: x1, y1: y1, x2: x2, y2: y2}
	}
	return pairs
}

// ORBDetector is a pure Go oriented FAST / rotated BRIEF point detector.
//
// Pipeline per pyramid level:
//
//  1. FAST-9 segment test on a 16-pixel circle, with 3x3 non-maximum suppression
//  2. Harris corner response over a 7x7 window, used to rank keypoints
//  3. Orientation from the intensity centroid of a radius-15 disk
//  4. 256-bit rotated BRIEF descriptor sampled on a blurred copy of the level
//
// Keypoints from all levels are ranked by response and the strongest
// MaxFeatures are kept. Descriptors are 32 bytes (feature.DescriptorBinary).
type ORBDetector struct {
	opts PointOptions
}

// NewORBDetector creates a native point detector. Zero-valued options fall back
// to DefaultPointOptions.
func NewORBDetector(opts PointOptions) *ORBDetector {
	def := DefaultPointOptions()
	if opts.MaxFeatures <= 0 {
		opts.MaxFeatures = def.MaxFeatures
	}
	if opts.FastThreshold <= 0 {
		opts.FastThreshold = def.FastThreshold
	}
	if opts.Levels <= 0 {
		opts.Levels = def.Levels
	}
	if opts.ScaleFactor <= 1 {
		opts.ScaleFactor = def.ScaleFactor
	}
	if opts.BlurRadius < 0 {
		opts.BlurRadius = def.BlurRadius
	}
	return &ORBDetector{opts: opts}
}

// Kind implements Detector.
func (d *ORBDetector) Kind() feature.Kind { return feature.KindPoint }

type pyramidLevel struct {
	plane  *imaging.Plane
	smooth *imaging.Plane
	scale  float64
}

type pointCandidate struct {
	level    int
	x, y     int
	response float64
}

// DetectAndCompute implements Detector.
func (d *ORBDetector) DetectAndCompute(img image.Image) ([]feature.Record, error) {
	if err := imaging.Validate(img); err != nil {
		return nil, err
	}

	base := imaging.GrayPlane(img)
	minSide := 2*pointBorder + 1
	if base.Width < minSide || base.Height < minSide || base.Uniform() {
		return emptyRecords(), nil
	}

	var levels []pyramidLevel
	var candidates []pointCandidate
	for level := 0; level < d.opts.Levels; level++ {
		scale := math.Pow(d.opts.ScaleFactor, float64(level))
		w := int(math.Round(float64(base.Width) / scale))
		h := int(math.Round(float64(base.Height) / scale))
		if w < minSide || h < minSide {
			break
		}

		plane := base
		if level > 0 {
			plane = imaging.ResizePlane(base, w, h)
		}
		levels = append(levels, pyramidLevel{plane: plane, scale: scale})

		for _, c := range fastCorners(plane, float64(d.opts.FastThreshold)) {
			candidates = append(candidates, pointCandidate{
				level:    level,
				x:        c.X,
				y:        c.Y,
				response: harrisResponse(plane, c.X, c.Y),
			})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.response != b.response {
			return a.response > b.response
		}
		if a.level != b.level {
			return a.level < b.level
		}
		if a.y != b.y {
			return a.y < b.y
		}
		return a.x < b.x
	})
	if len(candidates) > d.opts.MaxFeatures {
		candidates = candidates[:d.opts.MaxFeatures]
	}

	records := make([]feature.Record, 0, len(candidates))
	for _, c := range candidates {
		lv := &levels[c.level]
		if lv.smooth == nil {
			lv.smooth = imaging.SmoothPlane(lv.plane.Image(), d.opts.BlurRadius)
		}

		angle := centroidAngle(lv.plane, c.x, c.y)
		records = append(records, feature.Record{
			Kind: feature.KindPoint,
			Keypoint: feature.Keypoint{
				Position: feature.Point2{X: float64(c.x) * lv.scale, Y: float64(c.y) * lv.scale},
				Size:     patchSize * lv.scale,
				Angle:    angle,
				Response: c.response,
				Octave:   c.level,
				ClassID:  -1,
			},
			DescriptorType: feature.DescriptorBinary,
			Descriptor:     briefDescriptor(lv.smooth, c.x, c.y, angle),
		})
	}
	return records, nil
}

// fastCorners returns FAST-9 corners that survive 3x3 non-maximum suppression,
// in raster order.
func fastCorners(p *imaging.Plane, threshold float64) []image.Point {
	scores := make([]float64, p.Width*p.Height)
	for y := pointBorder; y < p.Height-pointBorder; y++ {
		for x := pointBorder; x < p.Width-pointBorder; x++ {
			scores[y*p.Width+x] = fastScore(p, x, y, threshold)
		}
	}

	var corners []image.Point
	for y := pointBorder; y < p.Height-pointBorder; y++ {
		for x := pointBorder; x < p.Width-pointBorder; x++ {
			s := scores[y*p.Width+x]
			if s == 0 {
				continue
			}
			isMax := true
			for dy := -1; dy <= 1 && isMax; dy++ {
				for dx := -1; dx <= 1 && isMax; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					n := scores[(y+dy)*p.Width+x+dx]
					// Equal neighbors earlier in raster order win the plateau.
					if n > s || (n == s && (dy < 0 || (dy == 0 && dx < 0))) {
						isMax = false
					}
				}
			}
			if isMax {
				corners = append(corners, image.Point{X: x, Y: y})
			}
		}
	}
	return corners
}

// fastScore returns 0 when (x, y) is not a FAST-9 corner, otherwise the sum of
// the absolute circle differences exceeding the threshold.
func fastScore(p *imaging.Plane, x, y int, threshold float64) float64 {
	center := p.At(x, y)
	var states [16]int
	var score float64
	for i, o := range fastCircle {
		v := p.At(x+o[0], y+o[1])
		switch {
		case v > center+threshold:
			states[i] = 1
			score += v - center - threshold
		case v < center-threshold:
			states[i] = -1
			score += center - v - threshold
		}
	}

	run, prev := 0, 0
	for i := 0; i < 16+8; i++ {
		s := states[i%16]
		if s != 0 && s == prev {
			run++
		} else if s != 0 {
			run = 1
		} else {
			run = 0
		}
		prev = s
		if run >= 9 {
			return score
		}
	}
	return 0
}

// harrisResponse computes det(M) - k*trace(M)^2 of the structure tensor over a
// 7x7 window, with intensities normalized to [0, 1].
func harrisResponse(p *imaging.Plane, x, y int) float64 {
	var sxx, syy, sxy float64
	for dy := -harrisHalfSize; dy <= harrisHalfSize; dy++ {
		for dx := -harrisHalfSize; dx <= harrisHalfSize; dx++ {
			px, py := x+dx, y+dy
			ix := (p.At(px+1, py) - p.At(px-1, py)) / (2 * 255)
			iy := (p.At(px, py+1) - p.At(px, py-1)) / (2 * 255)
			sxx += ix * ix
			syy += iy * iy
			sxy += ix * iy
		}
	}
	trace := sxx + syy
	return sxx*syy - sxy*sxy - harrisK*trace*trace
}

// centroidAngle returns the orientation in degrees [0, 360) of the vector from
// (x, y) to the intensity centroid of the surrounding disk.
func centroidAngle(p *imaging.Plane, x, y int) float64 {
	var m10, m01 float64
	r := centroidRadius
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy > r*r {
				continue
			}
			v := p.AtClamped(x+dx, y+dy)
			m10 += float64(dx) * v
			m01 += float64(dy) * v
		}
	}
	if m10 == 0 && m01 == 0 {
		return 0
	}
	angle := math.Atan2(m01, m10) * 180 / math.Pi
	if angle < 0 {
		angle += 360
	}
	return angle
}

// briefDescriptor samples the rotated BRIEF pattern around (x, y).
func briefDescriptor(p *imaging.Plane, x, y int, angleDeg float64) []float64 {
	rad := angleDeg * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	cx, cy := float64(x), float64(y)

	bits := make([]bool, len(briefPattern))
	for i, s := range briefPattern {
		a := p.Sample(cx+cos*s.x1-sin*s.y1, cy+sin*s.x1+cos*s.y1)
		b := p.Sample(cx+cos*s.x2-sin*s.y2, cy+sin*s.x2+cos*s.y2)
		bits[i] = a < b
	}
	return packBits(bits)
}
