package feature

import (
	"fmt"
	"math"
	"strings"
)

// Kind selects the feature variant of a record.
type Kind int

const (
	KindPoint Kind = iota
	KindLine
)

func (k Kind) String() string {
	switch k {
	case KindPoint:
		return "point"
	case KindLine:
		return "line"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind accepts "point", "points", "keypoint(s)", "line", "lines" and "keyline(s)".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "point", "points", "keypoint", "keypoints":
		return KindPoint, nil
	case "line", "lines", "keyline", "keylines":
		return KindLine, nil
	}
	return 0, fmt.Errorf("unknown feature kind %q", s)
}

// Role identifies which of the two compared images a feature set belongs to.
type Role int

const (
	RoleQuery Role = iota
	RoleTrain
)

func (r Role) String() string {
	switch r {
	case RoleQuery:
		return "query"
	case RoleTrain:
		return "train"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// ParseRole accepts "query" and "train".
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "query":
		return RoleQuery, nil
	case "train":
		return RoleTrain, nil
	}
	return 0, fmt.Errorf("unknown feature role %q", s)
}

// DescriptorType is the descriptor family, which fixes the distance metric.
type DescriptorType int

const (
	DescriptorBinary DescriptorType = iota
	DescriptorFloat
)

func (d DescriptorType) String() string {
	switch d {
	case DescriptorBinary:
		return "binary"
	case DescriptorFloat:
		return "float"
	default:
		return fmt.Sprintf("descriptor(%d)", int(d))
	}
}

// ParseDescriptorType accepts "binary" and "float".
func ParseDescriptorType(s string) (DescriptorType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "binary":
		return DescriptorBinary, nil
	case "float":
		return DescriptorFloat, nil
	}
	return 0, fmt.Errorf("unknown descriptor type %q", s)
}

// Point2 is a sub-pixel image coordinate.
type Point2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Keypoint is a localized point feature.
type Keypoint struct {
	Position Point2
	// Size is the diameter of the meaningful neighborhood.
	Size float64
	// Angle is the orientation in degrees, -1 when undefined.
	Angle    float64
	Response float64
	Octave   int
	ClassID  int
}

// Keyline is a line-segment feature.
type Keyline struct {
	Start    Point2
	End      Point2
	Length   float64
	Angle    float64
	Response float64
	Octave   int
	ClassID  int
}

// Record is a detected feature together with its descriptor.
type Record struct {
	Kind           Kind
	Keypoint       Keypoint
	Keyline        Keyline
	DescriptorType DescriptorType
	Descriptor     []float64
}

// Anchor returns the point used to draw and relate the feature: the keypoint
// position or the keyline midpoint.
func (r Record) Anchor() Point2 {
	if r.Kind == KindLine {
		return Point2{
			X: (r.Keyline.Start.X + r.Keyline.End.X) / 2,
			Y: (r.Keyline.Start.Y + r.Keyline.End.Y) / 2,
		}
	}
	return r.Keypoint.Position
}

// Set is the content of one session slot.
type Set struct {
	Kind           Kind
	DescriptorType DescriptorType
	Records        []Record
}

// NewSet wraps records of the given kind. The descriptor type is taken from the
// first record, or defaults to binary for an empty set.
func NewSet(kind Kind, records []Record) Set {
	s := Set{Kind: kind, Records: records}
	if len(records) > 0 {
		s.DescriptorType = records[0].DescriptorType
	}
	return s
}

// Len returns the number of records.
func (s Set) Len() int { return len(s.Records) }

// Empty reports whether the set has no records.
func (s Set) Empty() bool { return len(s.Records) == 0 }

// DescriptorLength returns the common descriptor length, 0 for an empty set.
func (s Set) DescriptorLength() int {
	if len(s.Records) == 0 {
		return 0
	}
	return len(s.Records[0].Descriptor)
}

// Descriptors returns the descriptor of every record, in record order.
// The inner slices are shared with the records.
func (s Set) Descriptors() [][]float64 {
	out := make([][]float64, len(s.Records))
	for i, r := range s.Records {
		out[i] = r.Descriptor
	}
	return out
}

// Validate checks the set invariants: every record has the set's kind and
// descriptor type and finite geometry, descriptors are non-empty with a
// constant length, binary descriptor values are bytes, and keylines have
// distinct endpoints.
func (s Set) Validate() error {
	length := s.DescriptorLength()
	for i, r := range s.Records {
		if r.Kind != s.Kind {
			return fmt.Errorf("record %d: kind %s in a %s set", i, r.Kind, s.Kind)
		}
		if r.DescriptorType != s.DescriptorType {
			return fmt.Errorf("record %d: descriptor type %s in a %s set", i, r.DescriptorType, s.DescriptorType)
		}
		if !r.finiteGeometry() {
			return fmt.Errorf("record %d: %s geometry is not finite", i, r.Kind)
		}
		if len(r.Descriptor) == 0 {
			return fmt.Errorf("record %d: empty descriptor", i)
		}
		if len(r.Descriptor) != length {
			return fmt.Errorf("record %d: descriptor length %d, expected %d", i, len(r.Descriptor), length)
		}
		if r.DescriptorType == DescriptorBinary {
			for j, v := range r.Descriptor {
				if v < 0 || v > 255 || v != math.Trunc(v) {
					return fmt.Errorf("record %d: binary descriptor value %d is %v, not a byte", i, j, v)
				}
			}
		} else {
			for j, v := range r.Descriptor {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					return fmt.Errorf("record %d: descriptor value %d is not finite", i, j)
				}
			}
		}
		if r.Kind == KindLine && r.Keyline.Start == r.Keyline.End {
			return fmt.Errorf("record %d: keyline start and end coincide", i)
		}
	}
	return nil
}

func (r Record) finiteGeometry() bool {
	var vs []float64
	if r.Kind == KindLine {
		kl := r.Keyline
		vs = []float64{kl.Start.X, kl.Start.Y, kl.End.X, kl.End.Y, kl.Length, kl.Angle, kl.Response}
	} else {
		kp := r.Keypoint
		vs = []float64{kp.Position.X, kp.Position.Y, kp.Size, kp.Angle, kp.Response}
	}
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
