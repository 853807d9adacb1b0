package imaging

import (
	"math"
)

// EdgeMap is the result of Canny edge detection on a plane.
//
// Edge marks the pixels that survived hysteresis. Magnitude and Direction hold
// the Sobel gradient of the (already smoothed) input for every pixel, with
// Direction in radians as returned by math.Atan2(gy, gx).
type EdgeMap struct {
	Width     int
	Height    int
	Edge      []bool
	Magnitude []float64
	Direction []float64
}

// IsEdge reports whether (x, y) is an edge pixel. Out-of-range coordinates are
// never edges.
func (e *EdgeMap) IsEdge(x, y int) bool {
	if x < 0 || y < 0 || x >= e.Width || y >= e.Height {
		return false
	}
	return e.Edge[y*e.Width+x]
}

// Count returns the number of edge pixels.
func (e *EdgeMap) Count() int {
	n := 0
	for _, v := range e.Edge {
		if v {
			n++
		}
	}
	return n
}

// Canny performs Canny-style edge detection on a smoothed intensity plane.
//
// Parameters:
//   - p: Source plane, intensities 0-255. Smoothing is the caller's job
//     (see SmoothPlane).
//   - thresholdLow: Low hysteresis threshold (0-255). Typical value: 50.
//   - thresholdHigh: High hysteresis threshold (0-255). Typical value: 150.
//
// # Algorithm
//
//  1. Gradient computation: Sobel operators for X and Y gradients
//     magnitude = sqrt(Gx² + Gy²), direction = atan2(Gy, Gx)
//
//  2. Non-maximum suppression: Thin edges to 1-pixel width by keeping only
//     local maxima in the gradient direction
//
//  3. Hysteresis thresholding:
//     - Pixels above thresholdHigh are strong edges (always kept)
//     - Pixels between thresholdLow and thresholdHigh are weak edges
//     (kept only if 8-connected to a strong edge)
//     - Pixels below thresholdLow are discarded
//
// Magnitudes are normalized by the maximum Sobel response of a 0-255 step edge
// (4*255), so thresholds are expressed on the same 0-255 scale as intensities.
// A uniform plane produces an empty edge map.
func Canny(p *Plane, thresholdLow, thresholdHigh int) *EdgeMap {
	width, height := p.Width, p.Height
	n := width * height
	em := &EdgeMap{
		Width:     width,
		Height:    height,
		Edge:      make([]bool, n),
		Magnitude: make([]float64, n),
		Direction: make([]float64, n),
	}

	sobelX := [3][3]float64{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}
	sobelY := [3][3]float64{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var gx, gy float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					v := p.AtClamped(x+kx, y+ky)
					gx += v * sobelX[ky+1][kx+1]
					gy += v * sobelY[ky+1][kx+1]
				}
			}
			i := y*width + x
			em.Magnitude[i] = math.Sqrt(gx*gx+gy*gy) / 4
			em.Direction[i] = math.Atan2(gy, gx)
		}
	}

	if width < 3 || height < 3 {
		return em
	}

	// Non-maximum suppression
	suppressed := make([]float64, n)
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			i := y*width + x
			angle := em.Direction[i]
			mag := em.Magnitude[i]
			if mag == 0 {
				continue
			}

			var n1, n2 float64
			if (angle >= -math.Pi/8 && angle < math.Pi/8) || (angle >= 7*math.Pi/8 || angle < -7*math.Pi/8) {
				n1 = em.Magnitude[i-1]
				n2 = em.Magnitude[i+1]
			} else if (angle >= math.Pi/8 && angle < 3*math.Pi/8) || (angle >= -7*math.Pi/8 && angle < -5*math.Pi/8) {
				n1 = em.Magnitude[i-width-1]
				n2 = em.Magnitude[i+width+1]
			} else if (angle >= 3*math.Pi/8 && angle < 5*math.Pi/8) || (angle >= -5*math.Pi/8 && angle < -3*math.Pi/8) {
				n1 = em.Magnitude[i-width]
				n2 = em.Magnitude[i+width]
			} else {
				n1 = em.Magnitude[i-width+1]
				n2 = em.Magnitude[i+width-1]
			}

			if mag >= n1 && mag >= n2 {
				suppressed[i] = mag
			}
		}
	}

	// Double threshold and edge tracking by hysteresis
	low := float64(thresholdLow)
	high := float64(thresholdHigh)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			val := suppressed[i]
			if val >= high {
				em.Edge[i] = true
			} else if val >= low {
				hasStrongNeighbor := false
				for ky := -1; ky <= 1 && !hasStrongNeighbor; ky++ {
					for kx := -1; kx <= 1 && !hasStrongNeighbor; kx++ {
						py := clamp(y+ky, 0, height-1)
						px := clamp(x+kx, 0, width-1)
						if suppressed[py*width+px] >= high {
							hasStrongNeighbor = true
						}
					}
				}
				em.Edge[i] = hasStrongNeighbor
			}
		}
	}

	return em
}
