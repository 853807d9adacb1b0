// Package codec converts feature records to and from the mapping-based wire shape
// used at the tool boundary.
//
// Each record becomes one map[string]any with the keys listed below. Values are
// plain numbers, strings, {"x","y"} maps and numeric slices, so the result can be
// passed through encoding/json (or any host's native map/array types) unchanged.
//
//	schema           int     wire schema version, currently 1
//	kind             string  "point" or "line"
//	position         {x, y}  point records
//	start, end       {x, y}  line records
//	size             float   point records
//	length           float   line records
//	angle            float
//	response         float
//	octave           int
//	class_id         int
//	descriptor_type  string  "binary" or "float"
//	descriptor       []float64
//
// Deserialization validates every record against this schema and fails the whole
// batch on the first problem; a partially decoded batch is never returned.
package codec

import (
	"fmt"

	"github.com/ironsheep/image-features-mcp/internal/feature"
)

// SchemaVersion is the wire schema version written by Serialize and required by
// Deserialize.
const SchemaVersion = 1

// Wire record keys.
const (
	KeySchema         = "schema"
	KeyKind           = "kind"
	KeyPosition       = "position"
	KeyStart          = "start"
	KeyEnd            = "end"
	KeySize           = "size"
	KeyLength         = "length"
	KeyAngle          = "angle"
	KeyResponse       = "response"
	KeyOctave         = "octave"
	KeyClassID        = "class_id"
	KeyDescriptorType = "descriptor_type"
	KeyDescriptor     = "descriptor"
)

// Serialize converts a record set into wire records, one map per record.
//
// The set is validated first (see feature.Set.Validate); an invalid set fails
// with an error wrapping feature.ErrSerialization and no records are returned.
// Descriptor slices are copied, so later changes to the records do not leak into
// the returned maps.
func Serialize(set feature.Set) ([]map[string]any, error) {
	if err := set.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", feature.ErrSerialization, err)
	}

	out := make([]map[string]any, 0, len(set.Records))
	for _, r := range set.Records {
		m := map[string]any{
			KeySchema:         SchemaVersion,
			KeyKind:           r.Kind.String(),
			KeyDescriptorType: r.DescriptorType.String(),
			KeyDescriptor:     append([]float64(nil), r.Descriptor...),
		}
		switch r.Kind {
		case feature.KindPoint:
			kp := r.Keypoint
			m[KeyPosition] = pointMap(kp.Position)
			m[KeySize] = kp.Size
			m[KeyAngle] = kp.Angle
			m[KeyResponse] = kp.Response
			m[KeyOctave] = kp.Octave
			m[KeyClassID] = kp.ClassID
		case feature.KindLine:
			kl := r.Keyline
			m[KeyStart] = pointMap(kl.Start)
			m[KeyEnd] = pointMap(kl.End)
			m[KeyLength] = kl.Length
			m[KeyAngle] = kl.Angle
			m[KeyResponse] = kl.Response
			m[KeyOctave] = kl.Octave
			m[KeyClassID] = kl.ClassID
		}
		out = append(out, m)
	}
	return out, nil
}

// SerializeRecords is Serialize for a plain record slice of the given kind.
func SerializeRecords(kind feature.Kind, records []feature.Record) ([]map[string]any, error) {
	return Serialize(feature.NewSet(kind, records))
}

// Deserialize reconstructs a record set of the expected kind from wire records.
//
// Every required key must be present with the right type; numeric values may be
// any Go numeric type or json.Number, and integer fields accept floats only when
// they are integral. The reconstructed set must also pass feature.Set.Validate.
// Any failure wraps feature.ErrDeserialization and names the offending record.
//
// The descriptor type is taken from the records, so an empty batch always
// yields a binary set. Use DeserializeAs when the type must survive an empty
// round trip.
func Deserialize(kind feature.Kind, wire []map[string]any) (feature.Set, error) {
	records := make([]feature.Record, 0, len(wire))
	for i, m := range wire {
		r, err := decodeRecord(kind, m)
		if err != nil {
			return feature.Set{}, fmt.Errorf("%w: record %d: %v", feature.ErrDeserialization, i, err)
		}
		records = append(records, r)
	}

	set := feature.NewSet(kind, records)
	if err := set.Validate(); err != nil {
		return feature.Set{}, fmt.Errorf("%w: %v", feature.ErrDeserialization, err)
	}
	return set, nil
}

// DeserializeAs is Deserialize with a known descriptor type. An empty batch
// yields an empty set of that type, and records of any other type fail.
func DeserializeAs(kind feature.Kind, dt feature.DescriptorType, wire []map[string]any) (feature.Set, error) {
	set, err := Deserialize(kind, wire)
	if err != nil {
		return feature.Set{}, err
	}
	if set.Empty() {
		set.DescriptorType = dt
		return set, nil
	}
	if set.DescriptorType != dt {
		return feature.Set{}, fmt.Errorf("%w: descriptor type %s, expected %s",
			feature.ErrDeserialization, set.DescriptorType, dt)
	}
	return set, nil
}

func decodeRecord(kind feature.Kind, m map[string]any) (feature.Record, error) {
	var r feature.Record
	if m == nil {
		return r, fmt.Errorf("record is nil")
	}

	version, err := requireInt(m, KeySchema)
	if err != nil {
		return r, err
	}
	if version != SchemaVersion {
		return r, fmt.Errorf("unsupported schema version %d (want %d)", version, SchemaVersion)
	}

	tag, err := requireString(m, KeyKind)
	if err != nil {
		return r, err
	}
	got, err := feature.ParseKind(tag)
	if err != nil {
		return r, err
	}
	if got != kind {
		return r, fmt.Errorf("kind %s where %s was expected", got, kind)
	}
	r.Kind = kind

	dt, err := requireString(m, KeyDescriptorType)
	if err != nil {
		return r, err
	}
	if r.DescriptorType, err = feature.ParseDescriptorType(dt); err != nil {
		return r, err
	}
	if r.Descriptor, err = requireFloats(m, KeyDescriptor); err != nil {
		return r, err
	}

	switch kind {
	case feature.KindPoint:
		kp := &r.Keypoint
		if kp.Position, err = requirePoint(m, KeyPosition); err != nil {
			return r, err
		}
		if kp.Size, err = requireFloat(m, KeySize); err != nil {
			return r, err
		}
		if kp.Angle, err = requireFloat(m, KeyAngle); err != nil {
			return r, err
		}
		if kp.Response, err = requireFloat(m, KeyResponse); err != nil {
			return r, err
		}
		if kp.Octave, err = requireInt(m, KeyOctave); err != nil {
			return r, err
		}
		if kp.ClassID, err = requireInt(m, KeyClassID); err != nil {
			return r, err
		}
	case feature.KindLine:
		kl := &r.Keyline
		if kl.Start, err = requirePoint(m, KeyStart); err != nil {
			return r, err
		}
		if kl.End, err = requirePoint(m, KeyEnd); err != nil {
			return r, err
		}
		if kl.Length, err = requireFloat(m, KeyLength); err != nil {
			return r, err
		}
		if kl.Angle, err = requireFloat(m, KeyAngle); err != nil {
			return r, err
		}
		if kl.Response, err = requireFloat(m, KeyResponse); err != nil {
			return r, err
		}
		if kl.Octave, err = requireInt(m, KeyOctave); err != nil {
			return r, err
		}
		if kl.ClassID, err = requireInt(m, KeyClassID); err != nil {
			return r, err
		}
	}
	return r, nil
}

func pointMap(p feature.Point2) map[string]any {
	return map[string]any{"x": p.X, "y": p.Y}
}
