package mesh

import "errors"

var (
	ErrMalformedFrame = errors.New("mesh: malformed frame header")
	ErrPayloadSyntax  = errors.New("mesh: payload is not structured text")
	ErrMissingType    = errors.New("mesh: payload has no type discriminator")
	ErrFrameTooLarge  = errors.New("mesh: frame exceeds link limit")
	ErrMissingField   = errors.New("mesh: payload field missing")
)
