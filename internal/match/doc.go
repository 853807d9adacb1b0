// Package match pairs query features with train features by descriptor
// distance and estimates the area of the matched region.
//
// Binary descriptors are compared with Hamming distance and float descriptors
// with Euclidean distance unless Options.Metric says otherwise. Candidates are
// filtered by Lowe's ratio test, an optional absolute distance bound and an
// optional cross-check. Output is deterministic: ties go to the lower index and
// the result is sorted by distance, then query index.
//
// Area fits a homography (normalized DLT, solved with gonum's SVD) to the
// matched anchors and projects the query region into the train image.
package match
