package adsb

import "errors"

// Error kinds returned by the decoder. Every error is wrapped with context
// using fmt.Errorf("%w: ..."), so callers should test with errors.Is.
var (
	// ErrInputFormat reports a wrong buffer length, a non-hex string or a bit
	// range that does not fit its buffer.
	ErrInputFormat = errors.New("input format error")

	// ErrValueRange reports a value outside its field's domain, such as an
	// address above 0xffffff.
	ErrValueRange = errors.New("value out of range")

	// ErrUnsupportedEncoding reports a field encoding the decoder does not
	// implement (Gillham/Gray-coded altitude).
	ErrUnsupportedEncoding = errors.New("unsupported encoding")

	// ErrUnknownTypeCode marks an ME type code with no defined decoding. It is
	// carried by UnknownMessage and never returned by DecodeMessage itself.
	ErrUnknownTypeCode = errors.New("unknown type code")
)
