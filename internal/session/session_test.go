package session

import (
	"testing"

	"github.com/ironsheep/image-features-mcp/internal/feature"
)

func pointRecords(n int) []feature.Record {
	records := make([]feature.Record, n)
	for i := range records {
		records[i] = feature.Record{
			Kind:           feature.KindPoint,
			Keypoint:       feature.Keypoint{Position: feature.Point2{X: float64(i), Y: float64(2 * i)}, ClassID: -1},
			DescriptorType: feature.DescriptorBinary,
			Descriptor:     []float64{float64(i), 255 - float64(i)},
		}
	}
	return records
}

func TestSession_Empty(t *testing.T) {
	s := New()
	for _, role := range []feature.Role{feature.RoleQuery, feature.RoleTrain} {
		for _, kind := range []feature.Kind{feature.KindPoint, feature.KindLine} {
			if !s.Get(role, kind).Empty() {
				t.Errorf("Expected empty %s %s slot", role, kind)
			}
		}
	}
	if s.Area() != 0 || s.Error() != "" {
		t.Errorf("Expected zero area and no error, got %d %q", s.Area(), s.Error())
	}
	if s.Ready(feature.KindPoint) || s.Ready(feature.KindLine) {
		t.Error("Empty session reports ready")
	}
}

func TestSession_SetGet(t *testing.T) {
	s := New()
	s.Set(feature.RoleQuery, feature.KindPoint, feature.NewSet(feature.KindPoint, pointRecords(3)))

	if got := s.Len(feature.RoleQuery, feature.KindPoint); got != 3 {
		t.Errorf("Expected 3 query points, got %d", got)
	}
	if got := s.Len(feature.RoleTrain, feature.KindPoint); got != 0 {
		t.Errorf("Expected train slot untouched, got %d", got)
	}
	if got := s.Len(feature.RoleQuery, feature.KindLine); got != 0 {
		t.Errorf("Expected line slot untouched, got %d", got)
	}
	if s.Ready(feature.KindPoint) {
		t.Error("Expected not ready with only the query slot populated")
	}

	s.Set(feature.RoleTrain, feature.KindPoint, feature.NewSet(feature.KindPoint, pointRecords(2)))
	if !s.Ready(feature.KindPoint) {
		t.Error("Expected ready with both point slots populated")
	}

	// Overwrite replaces the slot.
	s.Set(feature.RoleQuery, feature.KindPoint, feature.NewSet(feature.KindPoint, pointRecords(1)))
	if got := s.Len(feature.RoleQuery, feature.KindPoint); got != 1 {
		t.Errorf("Expected overwritten slot to hold 1 record, got %d", got)
	}
}

func TestSession_Reset(t *testing.T) {
	s := New()
	for _, role := range []feature.Role{feature.RoleQuery, feature.RoleTrain} {
		s.Set(role, feature.KindPoint, feature.NewSet(feature.KindPoint, pointRecords(2)))
	}
	s.area = 42
	s.err = "previous failure"

	s.Reset()

	for _, role := range []feature.Role{feature.RoleQuery, feature.RoleTrain} {
		for _, kind := range []feature.Kind{feature.KindPoint, feature.KindLine} {
			if s.Len(role, kind) != 0 {
				t.Errorf("Expected empty %s %s slot after reset", role, kind)
			}
		}
	}
	if s.Area() != 0 || s.Error() != "" {
		t.Errorf("Expected cleared area and error, got %d %q", s.Area(), s.Error())
	}
}

func TestSession_Independent(t *testing.T) {
	a, b := New(), New()
	a.Set(feature.RoleQuery, feature.KindPoint, feature.NewSet(feature.KindPoint, pointRecords(2)))
	if b.Len(feature.RoleQuery, feature.KindPoint) != 0 {
		t.Error("Sessions share state")
	}
}
