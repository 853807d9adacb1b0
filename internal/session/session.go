// Package session holds the query and train feature sets of one comparison
// and runs the detect, load, match and render operations against them.
package session

import (
	"github.com/ironsheep/image-features-mcp/internal/feature"
)

// Session is the state of one comparison: four feature sets indexed by
// role and kind, plus the area and error published by the last operation.
//
// A Session has no internal locking. Callers that share one across goroutines
// must serialize access; independent sessions need no coordination.
type Session struct {
	slots [2][2]feature.Set
	area  int
	err   string
}

// New returns an empty session.
func New() *Session {
	return &Session{}
}

// Set stores set in the (role, kind) slot, replacing what was there.
func (s *Session) Set(role feature.Role, kind feature.Kind, set feature.Set) {
	set.Kind = kind
	s.slots[role][kind] = set
}

// Get returns the set in the (role, kind) slot. An unpopulated slot returns an
// empty set.
func (s *Session) Get(role feature.Role, kind feature.Kind) feature.Set {
	return s.slots[role][kind]
}

// Len returns the number of records in the (role, kind) slot.
func (s *Session) Len(role feature.Role, kind feature.Kind) int {
	return s.slots[role][kind].Len()
}

// Reset empties all four slots and clears the published area and error.
func (s *Session) Reset() {
	s.slots = [2][2]feature.Set{}
	s.area = 0
	s.err = ""
}

// Area returns the matched-region area computed by the last successful match.
func (s *Session) Area() int {
	return s.area
}

// Error returns the message of the last failed operation, or "" when the last
// operation succeeded.
func (s *Session) Error() string {
	return s.err
}

// Ready reports whether both slots of kind are populated.
func (s *Session) Ready(kind feature.Kind) bool {
	return !s.slots[feature.RoleQuery][kind].Empty() && !s.slots[feature.RoleTrain][kind].Empty()
}
