// Package render draws detected features and match correspondences for
// inspection.
//
// Renderings are debug output: they never change session state and are
// returned as base64 PNG at the tool boundary (see EncodePNG).
package render
