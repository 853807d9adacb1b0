// Package imaging provides the image plumbing shared by the feature pipelines and
// the visualizer.
//
// This package covers decoding and caching input images, converting them to
// single-channel intensity planes, Canny edge detection, simple geometry helpers,
// and the drawing primitives used to annotate images. All operations work with
// standard Go image.Image types and use a coordinate system where (0,0) is at the
// top-left corner, X increases rightward, and Y increases downward.
//
// # Coordinate System
//
// Plane and EdgeMap coordinates are always 0-based, whatever the bounds of the
// source image. Feature coordinates are sub-pixel (float64) values in the same
// space.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Planes, edge maps and canvases
// are plain values owned by the caller; share them across goroutines only with
// external synchronization.
//
// # Error Handling
//
// Decode and Validate report undecodable or empty images with errors wrapping
// feature.ErrInvalidImage. Other functions in this package do not fail: degenerate
// inputs (1x1 or uniform images) simply produce empty edge maps.
//
// # Libraries
//
//   - github.com/anthonynsimon/bild: grayscale conversion and Gaussian blur
//   - github.com/disintegration/imaging: resampling (pyramids, downscale-to-fit)
//   - github.com/lucasb-eyer/go-colorful: palettes and hex color parsing
//   - golang.org/x/image: extra decoders (BMP, TIFF, WebP) and the caption font
package imaging
