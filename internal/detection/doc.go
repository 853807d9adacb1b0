// Package detection provides the point and line feature pipelines.
//
// Both pipelines implement the Detector interface: they take a decoded image
// and return feature records with descriptors ready for matching. Output is
// deterministic for a given image and configuration, which is what makes
// serialized records comparable across calls and processes.
//
// # Point Pipeline
//
// The native point detector is an ORB-style pipeline written in pure Go:
//
//  1. Grayscale conversion and a scale pyramid (Levels, ScaleFactor)
//  2. FAST-9 corner test with 3x3 non-maximum suppression
//  3. Harris response for ranking, keeping the strongest MaxFeatures
//  4. Orientation from the intensity centroid
//  5. 256-bit rotated BRIEF descriptor (32 bytes)
//
// An OpenCV ORB backend is registered under the name "gocv" when the binary is
// built with -tags gocv. Backends are selected by name through NewPointDetector.
//
// # Line Pipeline
//
// The keyline detector runs Canny on a smoothed plane, votes edge pixels into a
// Hough accumulator (1 degree by 1 pixel bins), and splits the pixels supporting
// each peak into segments wherever the gap exceeds MaxGap. Each segment gets a
// 32-byte binary descriptor sampled in a narrow band around it.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//
// Coordinates are relative to the image bounds, so an image whose bounds do not
// start at (0, 0) still reports features from (0, 0).
//
// # Degenerate Input
//
// Nil and zero-sized images fail with feature.ErrInvalidImage. Uniform images
// and images smaller than the detector's support region return an empty slice.
//
// # Performance Considerations
//
// The Hough vote is O(edge pixels x 180). Images are normally downscaled to the
// configured maximum dimension before they reach this package.
package detection
