package detection

import (
	"image"
	"math"
	"math/rand"
	"sort"

	"github.com/ironsheep/image-features-mcp/internal/feature"
	"github.com/ironsheep/image-features-mcp/internal/imaging"
)

// LineOptions configures the keyline pipeline.
type LineOptions struct {
	// MinLength is the shortest segment reported, in pixels.
	MinLength int `json:"min_length"`

	// MaxGap is the largest run of missing edge pixels bridged inside one segment.
	MaxGap int `json:"max_gap"`

	// MaxLines caps the number of keylines returned.
	MaxLines int `json:"max_lines"`

	// CannyLow and CannyHigh are the hysteresis thresholds (0-255).
	CannyLow  int `json:"canny_low"`
	CannyHigh int `json:"canny_high"`

	// BlurRadius is the Gaussian radius applied before edge detection.
	BlurRadius float64 `json:"blur_radius"`
}

// DefaultLineOptions returns the options used when nothing is configured.
func DefaultLineOptions() LineOptions {
	return LineOptions{
		MinLength:  20,
		MaxGap:     5,
		MaxLines:   100,
		CannyLow:   50,
		CannyHigh:  150,
		BlurRadius: 1,
	}
}

const (
	houghAngles      = 180
	lineTolerance    = 1.5
	bandHalfWidth    = 3.5
	lineSeed         = 0x11ae
	peakNeighborhood = 2
)

var bandPattern = makeBandPattern(lineSeed, descriptorBits, bandHalfWidth)

// makeBandPattern draws n point pairs in a segment's local frame: x is a
// fraction of the length in [-0.5, 0.5], y a pixel offset across the band.
func makeBandPattern(seed int64, n int, halfWidth float64) []samplePair {
	rng := rand.New(rand.NewSource(seed))
	point := func() (float64, float64) {
		return rng.Float64() - 0.5, (rng.Float64()*2 - 1) * halfWidth
	}

	pairs := make([]samplePair, n)
	for i := range pairs {
		x1, y1 := point()
		x2, y2 := point()
		pairs[i] = samplePair{x1: x1, y1: y1, x2: x2, y2: y2}
	}
	return pairs
}

// KeylineDetector finds straight segments with a Hough transform over Canny
// edges and describes each with a binary band descriptor.
type KeylineDetector struct {
	opts LineOptions
}

// NewKeylineDetector creates a keyline detector. Non-positive options fall back
// to DefaultLineOptions.
func NewKeylineDetector(opts LineOptions) *KeylineDetector {
	def := DefaultLineOptions()
	if opts.MinLength <= 0 {
		opts.MinLength = def.MinLength
	}
	if opts.MaxGap < 0 {
		opts.MaxGap = def.MaxGap
	}
	if opts.MaxLines <= 0 {
		opts.MaxLines = def.MaxLines
	}
	if opts.CannyLow <= 0 {
		opts.CannyLow = def.CannyLow
	}
	if opts.CannyHigh <= 0 {
		opts.CannyHigh = def.CannyHigh
	}
	if opts.BlurRadius < 0 {
		opts.BlurRadius = def.BlurRadius
	}
	return &KeylineDetector{opts: opts}
}

// Kind implements Detector.
func (d *KeylineDetector) Kind() feature.Kind { return feature.KindLine }

// segment is a keyline candidate in plane coordinates.
type segment struct {
	start, end feature.Point2
}

// DetectAndCompute implements Detector.
func (d *KeylineDetector) DetectAndCompute(img image.Image) ([]feature.Record, error) {
	if err := imaging.Validate(img); err != nil {
		return nil, err
	}

	b := img.Bounds()
	if b.Dx() < 3 || b.Dy() < 3 {
		return emptyRecords(), nil
	}

	smooth := imaging.SmoothPlane(img, d.opts.BlurRadius)
	if smooth.Uniform() {
		return emptyRecords(), nil
	}

	edges := imaging.Canny(smooth, d.opts.CannyLow, d.opts.CannyHigh)
	if edges.Count() == 0 {
		return emptyRecords(), nil
	}

	segments := d.houghSegments(edges)
	maxSide := math.Max(float64(smooth.Width), float64(smooth.Height))

	records := make([]feature.Record, 0, len(segments))
	for i, s := range segments {
		length := imaging.Distance(s.start, s.end)
		records = append(records, feature.Record{
			Kind: feature.KindLine,
			Keyline: feature.Keyline{
				Start:    s.start,
				End:      s.end,
				Length:   length,
				Angle:    imaging.AngleDegrees(s.start, s.end),
				Response: length / maxSide,
				Octave:   0,
				ClassID:  i,
			},
			DescriptorType: feature.DescriptorBinary,
			Descriptor:     bandDescriptor(smooth, s),
		})
	}
	return records, nil
}

// houghSegments votes edge pixels into (rho, theta) space and turns the peaks
// into gap-split segments. Pixels claimed by one segment are not reused.
func (d *KeylineDetector) houghSegments(edges *imaging.EdgeMap) []segment {
	width, height := edges.Width, edges.Height

	cosT := make([]float64, houghAngles)
	sinT := make([]float64, houghAngles)
	for t := 0; t < houghAngles; t++ {
		angle := float64(t) * math.Pi / 180.0
		cosT[t] = math.Cos(angle)
		sinT[t] = math.Sin(angle)
	}

	var pixels []image.Point
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if edges.IsEdge(x, y) {
				pixels = append(pixels, image.Point{X: x, Y: y})
			}
		}
	}

	// Vote in Hough space
	maxDist := int(math.Ceil(math.Hypot(float64(width), float64(height))))
	rhoBins := 2*maxDist + 1
	accumulator := make([]int, rhoBins*houghAngles)
	for _, p := range pixels {
		for t := 0; t < houghAngles; t++ {
			rho := float64(p.X)*cosT[t] + float64(p.Y)*sinT[t]
			accumulator[(int(math.Round(rho))+maxDist)*houghAngles+t]++
		}
	}

	type peak struct {
		rho   int
		theta int
		votes int
	}
	threshold := d.opts.MinLength / 2
	if threshold < 1 {
		threshold = 1
	}

	var peaks []peak
	for r := 0; r < rhoBins; r++ {
		for t := 0; t < houghAngles; t++ {
			votes := accumulator[r*houghAngles+t]
			if votes < threshold {
				continue
			}
			isMax := true
			for dr := -peakNeighborhood; dr <= peakNeighborhood && isMax; dr++ {
				for dt := -peakNeighborhood; dt <= peakNeighborhood && isMax; dt++ {
					if dr == 0 && dt == 0 {
						continue
					}
					nr := r + dr
					nt := (t + dt + houghAngles) % houghAngles
					if nr >= 0 && nr < rhoBins && accumulator[nr*houghAngles+nt] > votes {
						isMax = false
					}
				}
			}
			if isMax {
				peaks = append(peaks, peak{rho: r - maxDist, theta: t, votes: votes})
			}
		}
	}

	sort.Slice(peaks, func(i, j int) bool {
		if peaks[i].votes != peaks[j].votes {
			return peaks[i].votes > peaks[j].votes
		}
		if peaks[i].rho != peaks[j].rho {
			return peaks[i].rho < peaks[j].rho
		}
		return peaks[i].theta < peaks[j].theta
	})

	consumed := make([]bool, width*height)
	segments := make([]segment, 0)
	for _, pk := range peaks {
		if len(segments) >= d.opts.MaxLines {
			break
		}
		cosA, sinA := cosT[pk.theta], sinT[pk.theta]

		type onLine struct {
			idx    int
			t      float64
			offset float64
		}
		var members []onLine
		for _, p := range pixels {
			idx := p.Y*width + p.X
			if consumed[idx] {
				continue
			}
			offset := float64(p.X)*cosA + float64(p.Y)*sinA
			if math.Abs(offset-float64(pk.rho)) > lineTolerance {
				continue
			}
			members = append(members, onLine{
				idx:    idx,
				t:      -float64(p.X)*sinA + float64(p.Y)*cosA,
				offset: offset,
			})
		}
		if len(members) < 2 {
			continue
		}
		sort.SliceStable(members, func(i, j int) bool {
			return members[i].t < members[j].t
		})

		// Split into runs at gaps wider than MaxGap
		runStart := 0
		for i := 1; i <= len(members); i++ {
			if i < len(members) && members[i].t-members[i-1].t <= float64(d.opts.MaxGap)+1 {
				continue
			}
			run := members[runStart:i]
			runStart = i

			t0, t1 := run[0].t, run[len(run)-1].t
			if t1-t0 < float64(d.opts.MinLength) {
				continue
			}

			var rho float64
			for _, m := range run {
				rho += m.offset
				consumed[m.idx] = true
			}
			rho /= float64(len(run))

			segments = append(segments, segment{
				start: feature.Point2{X: rho*cosA - t0*sinA, Y: rho*sinA + t0*cosA},
				end:   feature.Point2{X: rho*cosA - t1*sinA, Y: rho*sinA + t1*cosA},
			})
			if len(segments) >= d.opts.MaxLines {
				break
			}
		}
	}
	return segments
}

// bandDescriptor compares intensity pairs in a band centred on the segment.
func bandDescriptor(p *imaging.Plane, s segment) []float64 {
	length := imaging.Distance(s.start, s.end)
	ux := (s.end.X - s.start.X) / length
	uy := (s.end.Y - s.start.Y) / length
	nx, ny := -uy, ux
	mx := (s.start.X + s.end.X) / 2
	my := (s.start.Y + s.end.Y) / 2

	at := func(u, v float64) float64 {
		along := u * length
		return p.Sample(mx+along*ux+v*nx, my+along*uy+v*ny)
	}

	bits := make([]bool, len(bandPattern))
	for i, s := range bandPattern {
		bits[i] = at(s.x1, s.y1) < at(s.x2, s.y2)
	}
	return packBits(bits)
}
