// Package feature defines the feature records exchanged between the detection
// pipelines, the record codec, the matcher and the session.
//
// Two kinds of visual primitives are supported:
//
//   - Keypoints: localized point features with position, scale and orientation
//   - Keylines: line-segment features with start and end points, length and angle
//
// Both carry a fixed-length descriptor vector. A Record is a tagged value: its Kind
// selects which of the Keypoint or Keyline fields is meaningful.
//
// # Roles and Kinds
//
// A comparison always involves two images. The probe image plays the Query role
// and the reference image plays the Train role. Sessions keep one Set per
// (Role, Kind) pair, so four slots in total.
//
// # Descriptors
//
// Descriptors are stored as []float64 regardless of family:
//   - DescriptorBinary: each value is one byte (an integer in 0..255), compared
//     with the Hamming distance
//   - DescriptorFloat: arbitrary floating point values, compared with the L2 distance
//
// # Errors
//
// Every failure produced by this module wraps one of the sentinel errors declared
// in errors.go, so callers can classify failures with errors.Is.
package feature
