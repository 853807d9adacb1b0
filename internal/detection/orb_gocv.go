//go:build gocv

package detection

import (
	"fmt"
	"image"
	"sort"

	"gocv.io/x/gocv"

	"github.com/ironsheep/image-features-mcp/internal/feature"
	"github.com/ironsheep/image-features-mcp/internal/imaging"
)

// BackendGoCV is the OpenCV ORB detector, available when built with -tags gocv.
const BackendGoCV = "gocv"

func init() {
	pointBackends[BackendGoCV] = func(opts PointOptions) (Detector, error) {
		return newGoCVDetector(opts), nil
	}
}

// gocvDetector wraps OpenCV's ORB. A fresh ORB instance is created per call
// because the underlying C object is not safe for concurrent use.
type gocvDetector struct {
	opts PointOptions
}

func newGoCVDetector(opts PointOptions) *gocvDetector {
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
	return &gocvDetector{opts: opts}
}

func (d *gocvDetector) Kind() feature.Kind { return feature.KindPoint }

func (d *gocvDetector) DetectAndCompute(img image.Image) ([]feature.Record, error) {
	if err := imaging.Validate(img); err != nil {
		return nil, err
	}
	b := img.Bounds()
	if b.Dx() < 2*pointBorder+1 || b.Dy() < 2*pointBorder+1 {
		return emptyRecords(), nil
	}

	rgb, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", feature.ErrInvalidImage, err)
	}
	defer rgb.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(rgb, &gray, gocv.ColorRGBToGray)

	orb := gocv.NewORBWithParams(d.opts.MaxFeatures, float32(d.opts.ScaleFactor), d.opts.Levels,
		pointBorder, 0, 2, gocv.ORBScoreTypeHarris, patchSize, d.opts.FastThreshold)
	defer orb.Close()

	mask := gocv.NewMat()
	defer mask.Close()

	kps, desc := orb.DetectAndCompute(gray, mask)
	defer desc.Close()

	if len(kps) == 0 || desc.Empty() {
		return emptyRecords(), nil
	}

	records := make([]feature.Record, 0, len(kps))
	for row, kp := range kps {
		values := make([]float64, desc.Cols())
		for col := range values {
			values[col] = float64(desc.GetUCharAt(row, col))
		}
		records = append(records, feature.Record{
			Kind: feature.KindPoint,
			Keypoint: feature.Keypoint{
				Position: feature.Point2{X: kp.X, Y: kp.Y},
				Size:     kp.Size,
				Angle:    kp.Angle,
				Response: kp.Response,
				Octave:   kp.Octave,
				ClassID:  kp.ClassID,
			},
			DescriptorType: feature.DescriptorBinary,
			Descriptor:     values,
		})
	}

	// OpenCV's output order depends on its internal retain step.
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i].Keypoint, records[j].Keypoint
		if a.Response != b.Response {
			return a.Response > b.Response
		}
		if a.Octave != b.Octave {
			return a.Octave < b.Octave
		}
		if a.Position.Y != b.Position.Y {
			return a.Position.Y < b.Position.Y
		}
		return a.Position.X < b.Position.X
	})
	return records, nil
}
