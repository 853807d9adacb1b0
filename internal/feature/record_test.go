package feature

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func binaryPoint(x, y float64, desc ...float64) Record {
	return Record{
		Kind:           KindPoint,
		Keypoint:       Keypoint{Position: Point2{X: x, Y: y}, Size: 31, Angle: -1},
		DescriptorType: DescriptorBinary,
		Descriptor:     desc,
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"point", KindPoint, false},
		{"Keypoints", KindPoint, false},
		{" lines ", KindLine, false},
		{"keyline", KindLine, false},
		{"blob", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKind(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseKind(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseKind(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseRole(t *testing.T) {
	if r, err := ParseRole("QUERY"); err != nil || r != RoleQuery {
		t.Errorf("ParseRole(QUERY) = %v, %v", r, err)
	}
	if r, err := ParseRole("train"); err != nil || r != RoleTrain {
		t.Errorf("ParseRole(train) = %v, %v", r, err)
	}
	if _, err := ParseRole("probe"); err == nil {
		t.Error("ParseRole(probe) should fail")
	}
}

func TestRecordAnchor(t *testing.T) {
	line := Record{
		Kind:    KindLine,
		Keyline: Keyline{Start: Point2{X: 0, Y: 0}, End: Point2{X: 10, Y: 4}},
	}
	if got := line.Anchor(); got != (Point2{X: 5, Y: 2}) {
		t.Errorf("line anchor = %+v, want midpoint (5,2)", got)
	}

	point := binaryPoint(3, 7, 1)
	if got := point.Anchor(); got != (Point2{X: 3, Y: 7}) {
		t.Errorf("point anchor = %+v, want (3,7)", got)
	}
}

func TestSetValidate(t *testing.T) {
	tests := []struct {
		name    string
		set     Set
		wantErr string
	}{
		{
			name: "valid",
			set:  NewSet(KindPoint, []Record{binaryPoint(1, 1, 0, 255), binaryPoint(2, 2, 17, 4)}),
		},
		{
			name: "empty set is valid",
			set:  NewSet(KindLine, nil),
		},
		{
			name:    "empty descriptor",
			set:     NewSet(KindPoint, []Record{binaryPoint(1, 1)}),
			wantErr: "empty descriptor",
		},
		{
			name:    "inconsistent length",
			set:     NewSet(KindPoint, []Record{binaryPoint(1, 1, 1, 2), binaryPoint(2, 2, 1)}),
			wantErr: "descriptor length",
		},
		{
			name:    "binary value out of range",
			set:     NewSet(KindPoint, []Record{binaryPoint(1, 1, 256)}),
			wantErr: "not a byte",
		},
		{
			name:    "binary value fractional",
			set:     NewSet(KindPoint, []Record{binaryPoint(1, 1, 1.5)}),
			wantErr: "not a byte",
		},
		{
			name:    "wrong kind",
			set:     Set{Kind: KindLine, Records: []Record{binaryPoint(1, 1, 1)}},
			wantErr: "kind point in a line set",
		},
		{
			name: "non-finite keypoint position",
			set: NewSet(KindPoint, []Record{{
				Kind:           KindPoint,
				Keypoint:       Keypoint{Position: Point2{X: math.NaN(), Y: 1}, Size: 3},
				DescriptorType: DescriptorBinary,
				Descriptor:     []float64{1},
			}}),
			wantErr: "point geometry is not finite",
		},
		{
			name: "infinite keypoint size",
			set: NewSet(KindPoint, []Record{{
				Kind:           KindPoint,
				Keypoint:       Keypoint{Position: Point2{X: 1, Y: 1}, Size: math.Inf(1)},
				DescriptorType: DescriptorBinary,
				Descriptor:     []float64{1},
			}}),
			wantErr: "point geometry is not finite",
		},
		{
			name: "infinite keyline length",
			set: NewSet(KindLine, []Record{{
				Kind:           KindLine,
				Keyline:        Keyline{Start: Point2{X: 0, Y: 0}, End: Point2{X: 4, Y: 4}, Length: math.Inf(-1)},
				DescriptorType: DescriptorBinary,
				Descriptor:     []float64{1},
			}}),
			wantErr: "line geometry is not finite",
		},
		{
			name: "large finite coordinates are valid",
			set: NewSet(KindPoint, []Record{{
				Kind:           KindPoint,
				Keypoint:       Keypoint{Position: Point2{X: 1e10, Y: -1e10}, Size: 1e9},
				DescriptorType: DescriptorBinary,
				Descriptor:     []float64{1},
			}}),
		},
		{
			name: "degenerate keyline",
			set: NewSet(KindLine, []Record{{
				Kind:           KindLine,
				Keyline:        Keyline{Start: Point2{X: 4, Y: 4}, End: Point2{X: 4, Y: 4}},
				DescriptorType: DescriptorBinary,
				Descriptor:     []float64{1},
			}}),
			wantErr: "coincide",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.set.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestSetDescriptors(t *testing.T) {
	s := NewSet(KindPoint, []Record{binaryPoint(1, 1, 9, 8), binaryPoint(2, 2, 7, 6)})
	d := s.Descriptors()
	if len(d) != 2 || d[1][0] != 7 {
		t.Fatalf("Descriptors() = %v", d)
	}
	if s.DescriptorLength() != 2 {
		t.Errorf("DescriptorLength() = %d, want 2", s.DescriptorLength())
	}
	if s.Empty() || s.Len() != 2 {
		t.Errorf("Len() = %d, Empty() = %v", s.Len(), s.Empty())
	}
}

func TestErrorsAreDistinct(t *testing.T) {
	all := []error{ErrInvalidImage, ErrSerialization, ErrDeserialization, ErrEmptySession, ErrRender, ErrDescriptorMismatch, ErrUnknownBackend}
	for i, a := range all {
		for j, b := range all {
			if i != j && errors.Is(a, b) {
				t.Errorf("%v should not match %v", a, b)
			}
		}
	}
}
