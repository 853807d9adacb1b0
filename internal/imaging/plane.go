package imaging

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"
)

// Plane is a single-channel intensity image with 0-based coordinates.
//
// Intensities are stored as float64 in the 0-255 range, row-major. Detection
// algorithms work on planes so they never have to care about the bounds offset
// or color model of the source image.
type Plane struct {
	Width  int
	Height int
	Pix    []float64
}

// NewPlane allocates a zero plane of the given size.
func NewPlane(width, height int) *Plane {
	return &Plane{Width: width, Height: height, Pix: make([]float64, width*height)}
}

// GrayPlane converts any image to a luminance plane using bild's grayscale
// conversion (0.3R + 0.6G + 0.1B).
func GrayPlane(img image.Image) *Plane {
	return planeFromRGBA(effect.Grayscale(img))
}

// SmoothPlane converts img to grayscale and applies a Gaussian blur of the given
// radius. A radius <= 0 skips the blur.
func SmoothPlane(img image.Image, radius float64) *Plane {
	if radius <= 0 {
		return GrayPlane(img)
	}
	return GrayPlane(blur.Gaussian(img, radius))
}

// ResizePlane resamples a plane to the given size with linear interpolation.
func ResizePlane(p *Plane, width, height int) *Plane {
	resized := imaging.Resize(p.Image(), width, height, imaging.Linear)
	return GrayPlane(resized)
}

// planeFromRGBA reads the red channel of a grayscale RGBA image, where all
// three color channels carry the same luminance.
func planeFromRGBA(g *image.RGBA) *Plane {
	b := g.Bounds()
	p := NewPlane(b.Dx(), b.Dy())
	for y := 0; y < p.Height; y++ {
		row := g.Pix[y*g.Stride : y*g.Stride+p.Width*4]
		for x := 0; x < p.Width; x++ {
			p.Pix[y*p.Width+x] = float64(row[x*4])
		}
	}
	return p
}

// Image converts the plane back to an 8-bit grayscale image.
func (p *Plane) Image() *image.Gray {
	g := image.NewGray(image.Rect(0, 0, p.Width, p.Height))
	for i, v := range p.Pix {
		g.Pix[i] = uint8(math.Round(math.Max(0, math.Min(255, v))))
	}
	return g
}

// At returns the intensity at (x, y). Coordinates must be inside the plane.
func (p *Plane) At(x, y int) float64 {
	return p.Pix[y*p.Width+x]
}

// AtClamped returns the intensity at (x, y) with coordinates clamped to the plane.
func (p *Plane) AtClamped(x, y int) float64 {
	return p.Pix[clamp(y, 0, p.Height-1)*p.Width+clamp(x, 0, p.Width-1)]
}

// Sample returns the bilinearly interpolated intensity at a sub-pixel position,
// clamping to the plane borders.
func (p *Plane) Sample(x, y float64) float64 {
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	fx := x - float64(x0)
	fy := y - float64(y0)

	top := p.AtClamped(x0, y0)*(1-fx) + p.AtClamped(x0+1, y0)*fx
	bottom := p.AtClamped(x0, y0+1)*(1-fx) + p.AtClamped(x0+1, y0+1)*fx
	return top*(1-fy) + bottom*fy
}

// Uniform reports whether every pixel has the same intensity.
func (p *Plane) Uniform() bool {
	for _, v := range p.Pix {
		if v != p.Pix[0] {
			return false
		}
	}
	return true
}

// clamp constrains an integer value to the range [min, max].
// Used for boundary handling in convolution operations.
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
