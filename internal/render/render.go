package render

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"

	"github.com/ironsheep/image-features-mcp/internal/feature"
	"github.com/ironsheep/image-features-mcp/internal/imaging"
	"github.com/ironsheep/image-features-mcp/internal/match"
)

// Style controls the look of rendered annotations.
type Style struct {
	// FeatureColor is the hex color ("#RRGGBB" or "#RRGGBBAA") used for
	// features in match renderings. Single-image renderings use the palette.
	FeatureColor string `json:"feature_color"`

	// LineThickness is the stroke width of keylines and match connectors.
	LineThickness int `json:"line_thickness"`
}

// DefaultStyle returns the default rendering style.
func DefaultStyle() Style {
	return Style{
		FeatureColor:  "#C8C8C8B4",
		LineThickness: 1,
	}
}

var (
	captionFG = color.NRGBA{255, 255, 255, 255}
	captionBG = color.NRGBA{0, 0, 0, 180}
)

// Renderer draws features and correspondences onto images.
type Renderer struct {
	featureColor color.NRGBA
	thickness    int
}

// NewRenderer parses the style. An empty FeatureColor or a non-positive
// thickness falls back to DefaultStyle.
func NewRenderer(style Style) (*Renderer, error) {
	def := DefaultStyle()
	if style.FeatureColor == "" {
		style.FeatureColor = def.FeatureColor
	}
	if style.LineThickness <= 0 {
		style.LineThickness = def.LineThickness
	}
	c, err := imaging.ParseHexColor(style.FeatureColor)
	if err != nil {
		return nil, fmt.Errorf("invalid feature color %q: %w", style.FeatureColor, err)
	}
	return &Renderer{featureColor: c, thickness: style.LineThickness}, nil
}

var defaultRenderer, _ = NewRenderer(DefaultStyle())

// Features draws records onto a copy of img with the default style.
func Features(img image.Image, records []feature.Record) (*image.NRGBA, error) {
	return defaultRenderer.Features(img, records)
}

// Matches draws a side-by-side match composite with the default style.
func Matches(query, train image.Image, queryRecords, trainRecords []feature.Record, matches []match.Correspondence) (*image.NRGBA, error) {
	return defaultRenderer.Matches(query, train, queryRecords, trainRecords, matches)
}

// Features draws every record onto a copy of img, each in its own palette
// color. Keypoints are circles of radius Size/2 with an orientation tick,
// keylines are segments with dotted endpoints.
func (r *Renderer) Features(img image.Image, records []feature.Record) (*image.NRGBA, error) {
	if err := imaging.Validate(img); err != nil {
		return nil, err
	}

	canvas := imaging.NewCanvas(img)
	palette := imaging.Palette(len(records))
	for i, rec := range records {
		r.drawRecord(canvas, rec, 0, palette[i])
	}
	return canvas.Image(), nil
}

// Matches places query and train side by side, draws both feature sets and
// connects each correspondence, coloring connectors by rank. A caption in the
// top-left corner reports the number of matches.
//
// Every correspondence is checked before drawing starts; an index outside its
// record set fails with feature.ErrRender.
func (r *Renderer) Matches(query, train image.Image, queryRecords, trainRecords []feature.Record, matches []match.Correspondence) (*image.NRGBA, error) {
	if err := imaging.Validate(query); err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	if err := imaging.Validate(train); err != nil {
		return nil, fmt.Errorf("train: %w", err)
	}
	for i, m := range matches {
		if m.QueryIdx < 0 || m.QueryIdx >= len(queryRecords) {
			return nil, fmt.Errorf("%w: correspondence %d: query index %d out of range [0,%d)",
				feature.ErrRender, i, m.QueryIdx, len(queryRecords))
		}
		if m.TrainIdx < 0 || m.TrainIdx >= len(trainRecords) {
			return nil, fmt.Errorf("%w: correspondence %d: train index %d out of range [0,%d)",
				feature.ErrRender, i, m.TrainIdx, len(trainRecords))
		}
	}

	composite, offset := imaging.SideBySide(query, train)
	canvas := imaging.WrapCanvas(composite)

	for _, rec := range queryRecords {
		r.drawRecord(canvas, rec, 0, r.featureColor)
	}
	for _, rec := range trainRecords {
		r.drawRecord(canvas, rec, float64(offset), r.featureColor)
	}

	palette := imaging.Palette(len(matches))
	for i, m := range matches {
		a := queryRecords[m.QueryIdx].Anchor()
		b := trainRecords[m.TrainIdx].Anchor()
		canvas.Line(a.X, a.Y, b.X+float64(offset), b.Y, palette[i], r.thickness)
		canvas.Dot(a.X, a.Y, 2, palette[i])
		canvas.Dot(b.X+float64(offset), b.Y, 2, palette[i])
	}

	canvas.Label(4, 4, fmt.Sprintf("matches: %d", len(matches)), captionFG, captionBG)
	return canvas.Image(), nil
}

func (r *Renderer) drawRecord(c *imaging.Canvas, rec feature.Record, dx float64, col color.Color) {
	switch rec.Kind {
	case feature.KindPoint:
		kp := rec.Keypoint
		x, y := kp.Position.X+dx, kp.Position.Y
		radius := math.Max(kp.Size/2, 2)
		c.Circle(x, y, radius, col)
		if kp.Angle >= 0 {
			rad := kp.Angle * math.Pi / 180
			c.Line(x, y, x+radius*math.Cos(rad), y+radius*math.Sin(rad), col, 1)
		}
	case feature.KindLine:
		kl := rec.Keyline
		c.Line(kl.Start.X+dx, kl.Start.Y, kl.End.X+dx, kl.End.Y, col, r.thickness)
		c.Dot(kl.Start.X+dx, kl.Start.Y, 2.5, col)
		c.Dot(kl.End.X+dx, kl.End.Y, 2.5, col)
	}
}

// Encoded is a PNG image ready to cross the tool boundary.
type Encoded struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// EncodePNG encodes img as base64 PNG.
func EncodePNG(img image.Image) (*Encoded, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("%w: failed to encode image: %v", feature.ErrRender, err)
	}
	b := img.Bounds()
	return &Encoded{
		Width:       b.Dx(),
		Height:      b.Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}
