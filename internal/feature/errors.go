package feature

import "errors"

var (
	// ErrInvalidImage: input image is nil, has zero dimensions or cannot be decoded.
	ErrInvalidImage = errors.New("invalid image")
	// ErrSerialization: a record set could not be turned into wire records.
	ErrSerialization = errors.New("serialization error")
	// ErrDeserialization: a wire record is missing a field or has a mistyped value.
	ErrDeserialization = errors.New("deserialization error")
	// ErrEmptySession: match or render requested before both slots are populated.
	ErrEmptySession = errors.New("empty session")
	// ErrRender: a correspondence references a feature index out of range.
	ErrRender = errors.New("render error")
	// ErrDescriptorMismatch: query and train descriptors are not comparable.
	ErrDescriptorMismatch = errors.New("descriptor mismatch")
	// ErrUnknownBackend: no detector backend registered under the requested name.
	ErrUnknownBackend = errors.New("unknown detector backend")
)
