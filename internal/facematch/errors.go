package facematch

import "errors"

var (
	// ErrDecode is returned when stored face data cannot be decoded.
	ErrDecode = errors.New("face data decode failed")
	// ErrInputFormat is returned when caller supplied face data is malformed.
	ErrInputFormat = errors.New("invalid face data format")
	// ErrShapeMismatch marks a comparison between descriptors of different length.
	ErrShapeMismatch = errors.New("descriptor length mismatch")
	// ErrEmptyTemplate marks a comparison involving an empty descriptor.
	ErrEmptyTemplate = errors.New("empty descriptor")
	// ErrNonFinite marks a comparison that produced NaN or Inf.
	ErrNonFinite = errors.New("non-finite distance")
)
