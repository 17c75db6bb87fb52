package adsb

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// MessageKind discriminates the decoded variants of an ME field.
type MessageKind string

// ME field variants
const (
	KindIdentification   MessageKind = "identification"
	KindAirbornePosition MessageKind = "airborne_position"
	KindAirborneVelocity MessageKind = "airborne_velocity"
	KindNamed            MessageKind = "named"
	KindUnknown          MessageKind = "unknown"
)

// Message is a decoded 56-bit ME field of an extended squitter.
type Message interface {
	TypeCode() uint8
	Kind() MessageKind
	Name() string
}

// AltitudeType tells how the altitude of a position message is encoded.
type AltitudeType string

// Altitude types
const (
	AltitudeBarometric AltitudeType = "barometric"
	AltitudeGNSS       AltitudeType = "gnss"
)

// HexBytes is a byte slice that marshals as lowercase hex.
type HexBytes []byte

func (h HexBytes) String() string {
	return hex.EncodeToString(h)
}

// MarshalText implements encoding.TextMarshaler.
func (h HexBytes) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// Identification is an aircraft identification and category message (TC 1-4).
type Identification struct {
	TC           uint8  `json:"me_type"`
	Category     uint8  `json:"aircraft_category"`
	Callsign     string `json:"ident"`
	CategoryName string `json:"aircraft_category_name,omitempty"`
}

// AirbornePosition is an airborne position message, barometric (TC 9-18) or
// GNSS height (TC 20-22). The CPR coordinates are left encoded.
type AirbornePosition struct {
	TC            uint8              `json:"me_type"`
	Status        SurveillanceStatus `json:"surveillance_status"`
	SingleAntenna bool               `json:"single_antenna_flag"`
	AltitudeCode  uint16             `json:"altitude_code"`
	AltitudeType  AltitudeType       `json:"altitude_type"`
	AltitudeUnit  string             `json:"altitude_unit"`
	Altitude      int                `json:"altitude"`
	Time          bool               `json:"time"`
	CPRFormat     uint8              `json:"cpr_format"`
	LatCPR        uint32             `json:"lat_cpr"`
	LonCPR        uint32             `json:"lon_cpr"`
}

// AirborneVelocity is an airborne velocity message (TC 19). The 22-bit
// velocity sub-field depends on the subtype and is kept raw.
type AirborneVelocity struct {
	TC                 uint8    `json:"me_type"`
	Subtype            uint8    `json:"sub_type"`
	IntentChange       bool     `json:"intent_change"`
	IFRCapability      bool     `json:"ifr_capability"`
	NUC                uint8    `json:"velocity_uncertainty_category"`
	SubField           HexBytes `json:"sub_field"`
	VerticalRateSource uint8    `json:"source_bit"`
	VerticalRateSign   uint8    `json:"vert_rate_sign"`
	VerticalRateRaw    uint16   `json:"vert_rate_raw"`
	Reserved           uint8    `json:"reserved"`
	AltDiffSign        uint8    `json:"gnss_baro_alt_diff_sign"`
	AltDiffRaw         uint8    `json:"gnss_baro_alt_diff"`
}

// NamedMessage is a message type that is recognised but not decoded
// (TC 23-29 and 31).
type NamedMessage struct {
	TC uint8 `json:"me_type"`
}

// UnknownMessage carries an ME field whose type code has no decoding
// (TC 0, 5-8 and 30).
type UnknownMessage struct {
	TC   uint8    `json:"me_type"`
	Data HexBytes `json:"me_data"`
}

func (m *Identification) TypeCode() uint8   { return m.TC }
func (m *AirbornePosition) TypeCode() uint8 { return m.TC }
func (m *AirborneVelocity) TypeCode() uint8 { return m.TC }
func (m *NamedMessage) TypeCode() uint8     { return m.TC }
func (m *UnknownMessage) TypeCode() uint8   { return m.TC }

func (m *Identification) Kind() MessageKind   { return KindIdentification }
func (m *AirbornePosition) Kind() MessageKind { return KindAirbornePosition }
func (m *AirborneVelocity) Kind() MessageKind { return KindAirborneVelocity }
func (m *NamedMessage) Kind() MessageKind     { return KindNamed }
func (m *UnknownMessage) Kind() MessageKind   { return KindUnknown }

func (m *Identification) Name() string   { return TypeCodeName(m.TC) }
func (m *AirbornePosition) Name() string { return TypeCodeName(m.TC) }
func (m *AirborneVelocity) Name() string { return TypeCodeName(m.TC) }
func (m *NamedMessage) Name() string     { return TypeCodeName(m.TC) }
func (m *UnknownMessage) Name() string   { return TypeCodeName(m.TC) }

// Err reports the unknown type code as an error wrapping ErrUnknownTypeCode.
func (m *UnknownMessage) Err() error {
	return fmt.Errorf("%w: %d", ErrUnknownTypeCode, m.TC)
}

// VerticalRate returns the vertical rate in ft/min. ok is false when the
// rate is not available (raw value 0).
func (m *AirborneVelocity) VerticalRate() (rate int, ok bool) {
	if m.VerticalRateRaw == 0 {
		return 0, false
	}
	rate = (int(m.VerticalRateRaw) - 1) * 64
	if m.VerticalRateSign != 0 {
		rate = -rate
	}
	return rate, true
}

// AltitudeDifference returns the GNSS minus barometric altitude in feet. ok is
// false when the difference is not available (raw value 0).
func (m *AirborneVelocity) AltitudeDifference() (diff int, ok bool) {
	if m.AltDiffRaw == 0 {
		return 0, false
	}
	diff = (int(m.AltDiffRaw) - 1) * 25
	if m.AltDiffSign != 0 {
		diff = -diff
	}
	return diff, true
}

// messageHeader is written ahead of every message's own fields.
type messageHeader struct {
	Kind MessageKind `json:"kind"`
	Name string      `json:"me_type_name"`
}

func marshalMessage(m Message, body interface{}) ([]byte, error) {
	return mergeJSON(messageHeader{Kind: m.Kind(), Name: m.Name()}, body)
}

// mergeJSON concatenates the members of two JSON objects.
func mergeJSON(head, body interface{}) ([]byte, error) {
	h, err := json.Marshal(head)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	if len(b) <= 2 {
		return h, nil
	}
	out := make([]byte, 0, len(h)+len(b))
	out = append(out, h[:len(h)-1]...)
	out = append(out, ',')
	return append(out, b[1:]...), nil
}

func (m *Identification) MarshalJSON() ([]byte, error) {
	type plain Identification
	return marshalMessage(m, (*plain)(m))
}

func (m *AirbornePosition) MarshalJSON() ([]byte, error) {
	type plain AirbornePosition
	return marshalMessage(m, (*plain)(m))
}

func (m *AirborneVelocity) MarshalJSON() ([]byte, error) {
	type plain AirborneVelocity
	out := struct {
		plain
		VerticalRateFPM *int `json:"vertical_rate_fpm,omitempty"`
		AltDiffFt       *int `json:"alt_diff_ft,omitempty"`
	}{plain: plain(*m)}

	if rate, ok := m.VerticalRate(); ok {
		out.VerticalRateFPM = &rate
	}
	if diff, ok := m.AltitudeDifference(); ok {
		out.AltDiffFt = &diff
	}
	return marshalMessage(m, out)
}

func (m *NamedMessage) MarshalJSON() ([]byte, error) {
	type plain NamedMessage
	return marshalMessage(m, (*plain)(m))
}

func (m *UnknownMessage) MarshalJSON() ([]byte, error) {
	type plain UnknownMessage
	return marshalMessage(m, (*plain)(m))
}
