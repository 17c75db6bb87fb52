package adsb

import "fmt"

// typeCodeNames labels every type code that has a defined meaning.
var typeCodeNames = func() [32]string {
	var names [32]string
	for tc := 1; tc <= 4; tc++ {
		names[tc] = "aircraft identification"
	}
	for tc := 9; tc <= 18; tc++ {
		names[tc] = "airborne position (baro alt)"
	}
	names[19] = "airborne velocity"
	for tc := 20; tc <= 22; tc++ {
		names[tc] = "airborne position (gnss height)"
	}
	for tc := 23; tc <= 27; tc++ {
		names[tc] = "reserved"
	}
	names[28] = "aircraft status"
	names[29] = "target state and status information"
	names[31] = "aircraft operation status"
	return names
}()

// TypeCodeName returns the name of an ME type code, "unknown" if it has none.
func TypeCodeName(tc uint8) string {
	if int(tc) < len(typeCodeNames) && typeCodeNames[tc] != "" {
		return typeCodeNames[tc]
	}
	return "unknown"
}

type messageDecoder func(me []byte) (Message, error)

// messageDecoders dispatches on the 5-bit type code. Codes without an entry
// decode to UnknownMessage.
var messageDecoders = func() [32]messageDecoder {
	var decoders [32]messageDecoder
	for tc := 1; tc <= 4; tc++ {
		decoders[tc] = decodeIdentification
	}
	for tc := 9; tc <= 18; tc++ {
		decoders[tc] = decodeAirbornePosition
	}
	decoders[19] = decodeAirborneVelocity
	for tc := 20; tc <= 22; tc++ {
		decoders[tc] = decodeAirbornePosition
	}
	for tc := 23; tc <= 29; tc++ {
		decoders[tc] = decodeNamed
	}
	decoders[31] = decodeNamed
	return decoders
}()

var typeCodeRange = Range{1, 5}

// DecodeMessage decodes a 56-bit ME field by its type code. Type codes with
// no decoding yield an UnknownMessage rather than an error.
func DecodeMessage(me []byte) (Message, error) {
	if len(me) != MEBytes {
		return nil, fmt.Errorf("%w: ME field must be %d bytes, got %d", ErrInputFormat, MEBytes, len(me))
	}

	raw, err := Slice(me, typeCodeRange)
	if err != nil {
		return nil, err
	}
	tc := raw[0][0]

	decode := messageDecoders[tc]
	if decode == nil {
		return &UnknownMessage{TC: tc, Data: append(HexBytes(nil), me...)}, nil
	}

	msg, err := decode(me)
	if err != nil {
		return nil, fmt.Errorf("type code %d: %w", tc, err)
	}
	return msg, nil
}

var identificationLayout = layout[Identification]{
	{Range{1, 5}, func(b []byte, m *Identification) error { m.TC = b[0]; return nil }},
	{Range{6, 8}, func(b []byte, m *Identification) error { m.Category = b[0]; return nil }},
	{Range{9, 56}, func(b []byte, m *Identification) error { m.Callsign = DecodeText(b); return nil }},
}

func decodeIdentification(me []byte) (Message, error) {
	m := &Identification{}
	if err := identificationLayout.decode(me, m); err != nil {
		return nil, err
	}
	m.CategoryName, _ = WakeVortexCategory(m.TC, m.Category)
	return m, nil
}

var positionLayout = layout[AirbornePosition]{
	{Range{1, 5}, func(b []byte, m *AirbornePosition) error { m.TC = b[0]; return nil }},
	{Range{6, 7}, func(b []byte, m *AirbornePosition) error {
		status, err := ParseSurveillanceStatus(uintField(b))
		m.Status = status
		return err
	}},
	{Range{8, 8}, func(b []byte, m *AirbornePosition) error { m.SingleAntenna = b[0] == 1; return nil }},
	{Range{9, 20}, func(b []byte, m *AirbornePosition) error { m.AltitudeCode = uint16(uintField(b)); return nil }},
	{Range{21, 21}, func(b []byte, m *AirbornePosition) error { m.Time = b[0] == 1; return nil }},
	{Range{22, 22}, func(b []byte, m *AirbornePosition) error { m.CPRFormat = b[0]; return nil }},
	{Range{23, 39}, func(b []byte, m *AirbornePosition) error { m.LatCPR = uint32(uintField(b)); return nil }},
	{Range{40, 56}, func(b []byte, m *AirbornePosition) error { m.LonCPR = uint32(uintField(b)); return nil }},
}

func decodeAirbornePosition(me []byte) (Message, error) {
	m := &AirbornePosition{}
	if err := positionLayout.decode(me, m); err != nil {
		return nil, err
	}

	code := []byte{byte(m.AltitudeCode >> 8), byte(m.AltitudeCode)}
	if m.TC >= 20 {
		m.AltitudeType = AltitudeGNSS
		m.AltitudeUnit = "m"
		m.Altitude = int(m.AltitudeCode)
		return m, nil
	}

	alt, err := DecodeBaroAltitude(code)
	if err != nil {
		return nil, err
	}
	m.AltitudeType = AltitudeBarometric
	m.AltitudeUnit = "ft"
	m.Altitude = alt
	return m, nil
}

var velocityLayout = layout[AirborneVelocity]{
	{Range{1, 5}, func(b []byte, m *AirborneVelocity) error { m.TC = b[0]; return nil }},
	{Range{6, 8}, func(b []byte, m *AirborneVelocity) error { m.Subtype = b[0]; return nil }},
	{Range{9, 9}, func(b []byte, m *AirborneVelocity) error { m.IntentChange = b[0] == 1; return nil }},
	{Range{10, 10}, func(b []byte, m *AirborneVelocity) error { m.IFRCapability = b[0] == 1; return nil }},
	{Range{11, 13}, func(b []byte, m *AirborneVelocity) error { m.NUC = b[0]; return nil }},
	{Range{14, 35}, func(b []byte, m *AirborneVelocity) error { m.SubField = HexBytes(b); return nil }},
	{Range{36, 36}, func(b []byte, m *AirborneVelocity) error { m.VerticalRateSource = b[0]; return nil }},
	{Range{37, 37}, func(b []byte, m *AirborneVelocity) error { m.VerticalRateSign = b[0]; return nil }},
	{Range{38, 46}, func(b []byte, m *AirborneVelocity) error { m.VerticalRateRaw = uint16(uintField(b)); return nil }},
	{Range{47, 48}, func(b []byte, m *AirborneVelocity) error { m.Reserved = b[0]; return nil }},
	{Range{49, 49}, func(b []byte, m *AirborneVelocity) error { m.AltDiffSign = b[0]; return nil }},
	{Range{50, 56}, func(b []byte, m *AirborneVelocity) error { m.AltDiffRaw = b[0]; return nil }},
}

func decodeAirborneVelocity(me []byte) (Message, error) {
	m := &AirborneVelocity{}
	if err := velocityLayout.decode(me, m); err != nil {
		return nil, err
	}
	return m, nil
}

func decodeNamed(me []byte) (Message, error) {
	return &NamedMessage{TC: me[0] >> 3}, nil
}
