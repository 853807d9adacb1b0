package match

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/image-features-mcp/internal/feature"
	"github.com/ironsheep/image-features-mcp/internal/imaging"
)

// ErrDegenerate is returned when point pairs cannot determine a homography.
var ErrDegenerate = errors.New("degenerate point configuration")

// Homography is a 3x3 projective transform in row-major order, scaled so the
// bottom-right entry is 1.
type Homography [9]float64

// Project maps p through the homography. It returns false when p maps to
// infinity.
func (h Homography) Project(p feature.Point2) (feature.Point2, bool) {
	w := h[6]*p.X + h[7]*p.Y + h[8]
	if math.Abs(w) < 1e-12 {
		return feature.Point2{}, false
	}
	return feature.Point2{
		X: (h[0]*p.X + h[1]*p.Y + h[2]) / w,
		Y: (h[3]*p.X + h[4]*p.Y + h[5]) / w,
	}, true
}

// EstimateHomography fits the homography mapping src onto dst with the
// normalized direct linear transform. At least four pairs are required.
func EstimateHomography(src, dst []feature.Point2) (Homography, error) {
	if len(src) != len(dst) {
		return Homography{}, fmt.Errorf("point count mismatch: %d source, %d destination", len(src), len(dst))
	}
	if len(src) < 4 {
		return Homography{}, fmt.Errorf("%w: need 4 point pairs, got %d", ErrDegenerate, len(src))
	}

	t1, ok1 := normalization(src)
	t2, ok2 := normalization(dst)
	if !ok1 || !ok2 {
		return Homography{}, fmt.Errorf("%w: points coincide", ErrDegenerate)
	}

	// Two equations per pair; pad to at least 9 rows so the SVD is square or tall.
	rows := 2 * len(src)
	if rows < 9 {
		rows = 9
	}
	a := mat.NewDense(rows, 9, nil)
	for i := range src {
		x, y := t1.apply(src[i])
		u, v := t2.apply(dst[i])
		a.SetRow(2*i, []float64{-x, -y, -1, 0, 0, 0, u * x, u * y, u})
		a.SetRow(2*i+1, []float64{0, 0, 0, -x, -y, -1, v * x, v * y, v})
	}

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDFullV) {
		return Homography{}, fmt.Errorf("%w: SVD did not converge", ErrDegenerate)
	}
	values := svd.Values(nil)
	// A second vanishing singular value leaves a family of solutions.
	if values[0] == 0 || values[7]/values[0] < 1e-9 {
		return Homography{}, fmt.Errorf("%w: points are collinear", ErrDegenerate)
	}

	var v mat.Dense
	svd.VTo(&v)
	hn := mat.NewDense(3, 3, nil)
	for i := 0; i < 9; i++ {
		hn.Set(i/3, i%3, v.At(i, 8))
	}

	// Undo the normalizations: H = T2^-1 * Hn * T1.
	var h mat.Dense
	h.Product(t2.inverse(), hn, t1.matrix())
	if math.Abs(h.At(2, 2)) < 1e-12 {
		return Homography{}, fmt.Errorf("%w: homography maps the origin to infinity", ErrDegenerate)
	}
	h.Scale(1/h.At(2, 2), &h)

	var out Homography
	for i := 0; i < 9; i++ {
		out[i] = h.At(i/3, i%3)
	}
	return out, nil
}

// similarity moves the centroid to the origin and scales the mean distance
// from it to sqrt(2).
type similarity struct {
	cx, cy, s float64
}

func normalization(points []feature.Point2) (similarity, bool) {
	var cx, cy float64
	for _, p := range points {
		cx += p.X
		cy += p.Y
	}
	n := float64(len(points))
	cx /= n
	cy /= n

	var mean float64
	for _, p := range points {
		mean += math.Hypot(p.X-cx, p.Y-cy)
	}
	mean /= n
	if mean < 1e-12 {
		return similarity{}, false
	}
	return similarity{cx: cx, cy: cy, s: math.Sqrt2 / mean}, true
}

func (t similarity) apply(p feature.Point2) (float64, float64) {
	return (p.X - t.cx) * t.s, (p.Y - t.cy) * t.s
}

func (t similarity) matrix() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		t.s, 0, -t.s * t.cx,
		0, t.s, -t.s * t.cy,
		0, 0, 1,
	})
}

func (t similarity) inverse() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		1 / t.s, 0, t.cx,
		0, 1 / t.s, t.cy,
		0, 0, 1,
	})
}

// Area estimates the size of the matched region in the train image, in square
// pixels.
//
// With four or more correspondences the bounding box of the matched query
// anchors is projected into the train image through the fitted homography and
// its area is returned. With fewer pairs, or when the fit is degenerate, the
// bounding-box area of the matched train anchors is used instead.
func Area(query, train feature.Set, matches []Correspondence) int {
	if len(matches) == 0 {
		return 0
	}

	src := make([]feature.Point2, 0, len(matches))
	dst := make([]feature.Point2, 0, len(matches))
	for _, m := range matches {
		if m.QueryIdx < 0 || m.QueryIdx >= query.Len() || m.TrainIdx < 0 || m.TrainIdx >= train.Len() {
			continue
		}
		src = append(src, query.Records[m.QueryIdx].Anchor())
		dst = append(dst, train.Records[m.TrainIdx].Anchor())
	}
	if len(dst) == 0 {
		return 0
	}

	if len(src) >= 4 {
		if h, err := EstimateHomography(src, dst); err == nil {
			if area, ok := projectedArea(h, imaging.BoundingBox(src)); ok {
				return int(math.Round(area))
			}
		}
	}
	return int(math.Round(imaging.BoundingBox(dst).Area()))
}

func projectedArea(h Homography, box imaging.Rect) (float64, bool) {
	corners := box.Corners()
	projected := make([]feature.Point2, len(corners))
	for i, c := range corners {
		p, ok := h.Project(c)
		if !ok {
			return 0, false
		}
		projected[i] = p
	}
	area := imaging.PolygonArea(projected)
	if math.IsNaN(area) || math.IsInf(area, 0) {
		return 0, false
	}
	return area, true
}
