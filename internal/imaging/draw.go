package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Canvas is an RGBA drawing surface used by the visualizer.
//
// All drawing operations clip to the canvas bounds, so callers can pass
// coordinates that fall partly or fully outside the image.
type Canvas struct {
	img *image.NRGBA
}

// NewCanvas copies src onto a fresh canvas with 0-based bounds.
func NewCanvas(src image.Image) *Canvas {
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return &Canvas{img: dst}
}

// WrapCanvas draws directly onto an existing image.
func WrapCanvas(img *image.NRGBA) *Canvas {
	return &Canvas{img: img}
}

// Image returns the underlying image.
func (c *Canvas) Image() *image.NRGBA {
	return c.img
}

// SideBySide places left and right next to each other, top-aligned, on a black
// background. It returns the composite and the x offset of the right image.
func SideBySide(left, right image.Image) (*image.NRGBA, int) {
	lb, rb := left.Bounds(), right.Bounds()
	height := lb.Dy()
	if rb.Dy() > height {
		height = rb.Dy()
	}
	dst := imaging.New(lb.Dx()+rb.Dx(), height, color.Black)
	dst = imaging.Paste(dst, left, image.Pt(0, 0))
	dst = imaging.Paste(dst, right, image.Pt(lb.Dx(), 0))
	return dst, lb.Dx()
}

// Set paints a single pixel, blending by the color's alpha.
func (c *Canvas) Set(x, y int, col color.Color) {
	if !(image.Point{X: x, Y: y}).In(c.img.Bounds()) {
		return
	}
	r, g, b, a := col.RGBA()
	if a == 0xffff {
		c.img.Set(x, y, col)
		return
	}
	dr, dg, db, _ := c.img.At(x, y).RGBA()
	mix := func(s, d uint32) uint8 {
		return uint8((s + d*(0xffff-a)/0xffff) >> 8)
	}
	c.img.SetNRGBA(x, y, color.NRGBA{R: mix(r, dr), G: mix(g, dg), B: mix(b, db), A: 255})
}

// Line draws a straight segment between two points using Bresenham's algorithm.
// Thickness greater than 1 stamps a square brush at every step. The segment is
// clipped to the canvas first, so only visible pixels are walked.
func (c *Canvas) Line(x0, y0, x1, y1 float64, col color.Color, thickness int) {
	if !finite(x0, y0, x1, y1) {
		return
	}
	half := (thickness - 1) / 2
	b := c.img.Bounds()
	margin := float64(half + 1)
	x0, y0, x1, y1, ok := clipSegment(x0, y0, x1, y1,
		float64(b.Min.X)-margin, float64(b.Min.Y)-margin,
		float64(b.Max.X-1)+margin, float64(b.Max.Y-1)+margin)
	if !ok {
		return
	}

	ax, ay := int(math.Round(x0)), int(math.Round(y0))
	bx, by := int(math.Round(x1)), int(math.Round(y1))

	dx := abs(bx - ax)
	dy := -abs(by - ay)
	sx, sy := 1, 1
	if ax > bx {
		sx = -1
	}
	if ay > by {
		sy = -1
	}
	errTerm := dx + dy

	for {
		c.brush(ax, ay, half, col)
		if ax == bx && ay == by {
			return
		}
		e2 := 2 * errTerm
		if e2 >= dy {
			errTerm += dy
			ax += sx
		}
		if e2 <= dx {
			errTerm += dx
			ay += sy
		}
	}
}

// clipSegment clips a segment to the rectangle [xmin,xmax]x[ymin,ymax]
// (Liang-Barsky). ok is false when no part of the segment is inside.
func clipSegment(x0, y0, x1, y1, xmin, ymin, xmax, ymax float64) (cx0, cy0, cx1, cy1 float64, ok bool) {
	dx, dy := x1-x0, y1-y0
	t0, t1 := 0.0, 1.0
	for _, e := range [4][2]float64{
		{-dx, x0 - xmin},
		{dx, xmax - x0},
		{-dy, y0 - ymin},
		{dy, ymax - y0},
	} {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return 0, 0, 0, 0, false
			}
			continue
		}
		t := q / p
		if p < 0 {
			if t > t1 {
				return 0, 0, 0, 0, false
			}
			t0 = math.Max(t0, t)
		} else {
			if t < t0 {
				return 0, 0, 0, 0, false
			}
			t1 = math.Min(t1, t)
		}
	}
	return x0 + t0*dx, y0 + t0*dy, x0 + t1*dx, y0 + t1*dy, true
}

func (c *Canvas) brush(x, y, half int, col color.Color) {
	for oy := -half; oy <= half; oy++ {
		for ox := -half; ox <= half; ox++ {
			c.Set(x+ox, y+oy, col)
		}
	}
}

// Circle draws the outline of a circle (midpoint algorithm). Circles whose
// outline misses the canvas are skipped; radii larger than the canvas are
// drawn by testing canvas pixels against the ring instead.
func (c *Canvas) Circle(cx, cy, radius float64, col color.Color) {
	if !finite(cx, cy, radius) {
		return
	}
	b := c.img.Bounds()
	near, far := c.distanceRange(cx, cy)
	if near > radius+1 || far < radius-1 {
		return
	}
	if radius > float64(b.Dx()+b.Dy()) {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				if math.Abs(math.Hypot(float64(x)-cx, float64(y)-cy)-radius) <= 0.5 {
					c.Set(x, y, col)
				}
			}
		}
		return
	}

	x0, y0 := int(math.Round(cx)), int(math.Round(cy))
	r := int(math.Round(radius))
	if r <= 0 {
		c.Set(x0, y0, col)
		return
	}

	x, y := r, 0
	d := 1 - r
	for x >= y {
		for _, p := range [8][2]int{{x, y}, {y, x}, {-y, x}, {-x, y}, {-x, -y}, {-y, -x}, {y, -x}, {x, -y}} {
			c.Set(x0+p[0], y0+p[1], col)
		}
		y++
		if d < 0 {
			d += 2*y + 1
		} else {
			x--
			d += 2*(y-x) + 1
		}
	}
}

// distanceRange returns the distance from (x, y) to the nearest and to the
// farthest pixel of the canvas.
func (c *Canvas) distanceRange(x, y float64) (near, far float64) {
	b := c.img.Bounds()
	minX, minY := float64(b.Min.X), float64(b.Min.Y)
	maxX, maxY := float64(b.Max.X-1), float64(b.Max.Y-1)
	near = math.Hypot(x-math.Max(minX, math.Min(x, maxX)), y-math.Max(minY, math.Min(y, maxY)))
	far = math.Hypot(math.Max(math.Abs(x-minX), math.Abs(x-maxX)), math.Max(math.Abs(y-minY), math.Abs(y-maxY)))
	return near, far
}

// Dot fills a small disk, used for keypoint centers and keyline endpoints.
func (c *Canvas) Dot(cx, cy, radius float64, col color.Color) {
	if !finite(cx, cy, radius) {
		return
	}
	if near, _ := c.distanceRange(cx, cy); near > radius+1 {
		return
	}
	x0, y0 := math.Round(cx), math.Round(cy)
	b := c.img.Bounds()
	minX := int(math.Max(float64(b.Min.X), math.Floor(x0-radius)))
	maxX := int(math.Min(float64(b.Max.X-1), math.Ceil(x0+radius)))
	minY := int(math.Max(float64(b.Min.Y), math.Floor(y0-radius)))
	maxY := int(math.Min(float64(b.Max.Y-1), math.Ceil(y0+radius)))
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			dx, dy := float64(x)-x0, float64(y)-y0
			if dx*dx+dy*dy <= radius*radius {
				c.Set(x, y, col)
			}
		}
	}
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Label draws text with a background box whose top-left corner is at (x, y).
func (c *Canvas) Label(x, y int, text string, fg, bg color.Color) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()
	height := face.Metrics().Height.Ceil()

	for dy := -1; dy <= height; dy++ {
		for dx := -2; dx <= width+1; dx++ {
			c.Set(x+dx, y+dy, bg)
		}
	}

	d := &font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(fg),
		Face: face,
		Dot:  fixed.P(x, y+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(text)
}

// Palette returns n visually distinct, fully opaque colors spread evenly
// around the HSV hue circle. The sequence depends only on n.
func Palette(n int) []color.Color {
	out := make([]color.Color, n)
	for i := 0; i < n; i++ {
		hue := math.Mod(float64(i)*137.508, 360) // golden angle
		out[i] = toNRGBA(colorful.Hsv(hue, 0.85, 0.95))
	}
	return out
}

// ParseHexColor parses "#RRGGBB" or "#RRGGBBAA".
func ParseHexColor(hex string) (color.NRGBA, error) {
	if len(hex) == 0 {
		return color.NRGBA{}, fmt.Errorf("empty color string")
	}
	if hex[0] != '#' {
		hex = "#" + hex
	}

	switch len(hex) {
	case 7:
		c, err := colorful.Hex(hex)
		if err != nil {
			return color.NRGBA{}, err
		}
		return toNRGBA(c), nil
	case 9:
		c, err := colorful.Hex(hex[:7])
		if err != nil {
			return color.NRGBA{}, err
		}
		var a uint8
		if _, err := fmt.Sscanf(hex[7:], "%02x", &a); err != nil {
			return color.NRGBA{}, fmt.Errorf("invalid alpha in %q: %w", hex, err)
		}
		out := toNRGBA(c)
		out.A = a
		return out, nil
	default:
		return color.NRGBA{}, fmt.Errorf("invalid hex color length")
	}
}

func toNRGBA(c colorful.Color) color.NRGBA {
	r, g, b := c.Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
