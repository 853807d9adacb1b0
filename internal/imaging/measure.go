package imaging

import (
	"math"

	"github.com/ironsheep/image-features-mcp/internal/feature"
)

// Distance returns the Euclidean distance between two points in pixels.
func Distance(a, b feature.Point2) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// AngleDegrees returns the direction from a to b in degrees
// (0 = horizontal right, 90 = down), in the range (-180, 180].
func AngleDegrees(a, b feature.Point2) float64 {
	return math.Atan2(b.Y-a.Y, b.X-a.X) * 180 / math.Pi
}

// Rect is an axis-aligned bounding box with floating point corners.
type Rect struct {
	Min feature.Point2
	Max feature.Point2
}

// Area returns the rectangle's area in square pixels.
func (r Rect) Area() float64 {
	return (r.Max.X - r.Min.X) * (r.Max.Y - r.Min.Y)
}

// Corners returns the four corners clockwise from the top-left.
func (r Rect) Corners() []feature.Point2 {
	return []feature.Point2{
		r.Min,
		{X: r.Max.X, Y: r.Min.Y},
		r.Max,
		{X: r.Min.X, Y: r.Max.Y},
	}
}

// BoundingBox returns the smallest rectangle containing every point.
// An empty input yields the zero Rect.
func BoundingBox(points []feature.Point2) Rect {
	if len(points) == 0 {
		return Rect{}
	}
	r := Rect{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		r.Min.X = math.Min(r.Min.X, p.X)
		r.Min.Y = math.Min(r.Min.Y, p.Y)
		r.Max.X = math.Max(r.Max.X, p.X)
		r.Max.Y = math.Max(r.Max.Y, p.Y)
	}
	return r
}

// PolygonArea returns the unsigned area of a simple polygon (shoelace formula).
func PolygonArea(points []feature.Point2) float64 {
	if len(points) < 3 {
		return 0
	}
	var sum float64
	for i, p := range points {
		q := points[(i+1)%len(points)]
		sum += p.X*q.Y - q.X*p.Y
	}
	return math.Abs(sum) / 2
}
