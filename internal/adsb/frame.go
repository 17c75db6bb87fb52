package adsb

import (
	"encoding/hex"
	"fmt"
)

// FrameMode tells short (56 bit) and extended (112 bit) frames apart.
type FrameMode string

// Frame modes
const (
	ModeShort    FrameMode = "short"
	ModeExtended FrameMode = "extended"
)

// PayloadKind discriminates the decoded payload of a frame.
type PayloadKind string

// Payload kinds
const (
	PayloadPassthrough      PayloadKind = "passthrough"
	PayloadExtendedSquitter PayloadKind = "extended_squitter"
)

// Payload is the downlink-format specific part of a decoded frame.
type Payload interface {
	PayloadKind() PayloadKind
}

// Passthrough carries the data field of a downlink format that is not
// decoded.
type Passthrough struct {
	DFName string   `json:"df_name,omitempty"`
	Data   HexBytes `json:"raw_data"`
}

// ExtendedSquitter is a DF 17 frame with its decoded ME field.
type ExtendedSquitter struct {
	DFName  string  `json:"df_name"`
	Message Message `json:"message"`
}

func (p *Passthrough) PayloadKind() PayloadKind      { return PayloadPassthrough }
func (p *ExtendedSquitter) PayloadKind() PayloadKind { return PayloadExtendedSquitter }

type payloadHeader struct {
	Kind PayloadKind `json:"kind"`
}

func (p *Passthrough) MarshalJSON() ([]byte, error) {
	type plain Passthrough
	return mergeJSON(payloadHeader{Kind: p.PayloadKind()}, (*plain)(p))
}

func (p *ExtendedSquitter) MarshalJSON() ([]byte, error) {
	type plain ExtendedSquitter
	return mergeJSON(payloadHeader{Kind: p.PayloadKind()}, (*plain)(p))
}

// DecodeSquitter interprets the data field of a frame. Only DF 17 extended
// squitters are decoded; every other combination is passed through raw.
func DecodeSquitter(mode FrameMode, df uint8, data []byte) (Payload, error) {
	if mode == ModeExtended && df == DFExtendedSquitter {
		msg, err := DecodeMessage(data)
		if err != nil {
			return nil, err
		}
		return &ExtendedSquitter{DFName: DFName(df), Message: msg}, nil
	}

	return &Passthrough{DFName: DFName(df), Data: append(HexBytes(nil), data...)}, nil
}

// Frame is a decoded Mode S frame.
type Frame struct {
	Bytes    int       `json:"frame_bytes"`
	Mode     FrameMode `json:"frame_mode"`
	DF       uint8     `json:"df"`
	CA       uint8     `json:"ca"`
	Address  Address   `json:"address"`
	CRCMatch bool      `json:"crc_match"`
	CRCHex   string    `json:"crc_hex"`
	CRC      uint32    `json:"-"`
	Payload  Payload   `json:"payload"`
}

// Message returns the ME field of a DF 17 frame, or nil.
func (f *Frame) Message() Message {
	if es, ok := f.Payload.(*ExtendedSquitter); ok {
		return es.Message
	}
	return nil
}

// frameFields holds the fixed header of either frame layout.
type frameFields struct {
	df      uint8
	ca      uint8
	address Address
	data    []byte
}

var (
	frameDF = field[frameFields]{Range{1, 5}, func(b []byte, f *frameFields) error { f.df = b[0]; return nil }}
	frameCA = field[frameFields]{Range{6, 8}, func(b []byte, f *frameFields) error { f.ca = b[0]; return nil }}
	frameAA = field[frameFields]{Range{9, 32}, func(b []byte, f *frameFields) error {
		a, err := AddressFromBytes(b)
		f.address = a
		return err
	}}
	frameData = func(b []byte, f *frameFields) error { f.data = b; return nil }
)

// shortFrameLayout: DF, CA, address, 24-bit data/parity.
var shortFrameLayout = layout[frameFields]{
	frameDF,
	frameCA,
	frameAA,
	{Range{33, 56}, frameData},
}

// extendedFrameLayout: DF, CA, ICAO address, 56-bit ME, 24-bit parity.
var extendedFrameLayout = layout[frameFields]{
	frameDF,
	frameCA,
	frameAA,
	{Range{33, 88}, frameData},
	{Range{89, 112}, nil},
}

// DecodeFrame decodes a 7 or 14 byte Mode S frame.
func DecodeFrame(buf []byte) (*Frame, error) {
	var (
		mode FrameMode
		fl   layout[frameFields]
	)
	switch len(buf) {
	case ShortFrameBytes:
		mode, fl = ModeShort, shortFrameLayout
	case LongFrameBytes:
		mode, fl = ModeExtended, extendedFrameLayout
	default:
		return nil, fmt.Errorf("%w: frames must be %d or %d bytes, got %d",
			ErrInputFormat, ShortFrameBytes, LongFrameBytes, len(buf))
	}

	crc, err := CheckCRC(buf)
	if err != nil {
		return nil, err
	}

	var fields frameFields
	if err := fl.decode(buf, &fields); err != nil {
		return nil, err
	}

	payload, err := DecodeSquitter(mode, fields.df, fields.data)
	if err != nil {
		return nil, fmt.Errorf("df %d: %w", fields.df, err)
	}

	return &Frame{
		Bytes:    len(buf),
		Mode:     mode,
		DF:       fields.df,
		CA:       fields.ca,
		Address:  fields.address,
		CRCMatch: crc.Match,
		CRCHex:   crc.Hex,
		CRC:      crc.Value,
		Payload:  payload,
	}, nil
}

// DecodeHex decodes a frame given as a hex string without separators.
func DecodeHex(s string) (*Frame, error) {
	buf, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a hex string: %v", ErrInputFormat, s, err)
	}
	return DecodeFrame(buf)
}
