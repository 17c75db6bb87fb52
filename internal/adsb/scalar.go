package adsb

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// Uint interprets b as a big-endian unsigned integer. Leading zero bytes are
// ignored; more than 64 significant bits is a range error.
func Uint(b []byte) (uint64, error) {
	for len(b) > 8 && b[0] == 0 {
		b = b[1:]
	}
	if len(b) > 8 {
		return 0, fmt.Errorf("%w: %d byte value does not fit 64 bits", ErrValueRange, len(b))
	}

	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v, nil
}

// BigUint interprets b as a big-endian unsigned integer of any width.
func BigUint(b []byte) *big.Int {
	return new(big.Int).SetBytes(b)
}

// uintField converts a sliced field of at most 64 bits.
func uintField(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

// Address is a 24-bit Mode S / ICAO aircraft address.
type Address uint32

// NewAddress validates v as a 24-bit address.
func NewAddress(v int64) (Address, error) {
	if v < 0 || v > MaxAddress {
		return 0, fmt.Errorf("%w: address %#x must be between 0x0 and 0xffffff", ErrValueRange, v)
	}
	return Address(v), nil
}

// AddressFromBytes reads a big-endian address from b.
func AddressFromBytes(b []byte) (Address, error) {
	v, err := Uint(b)
	if err != nil {
		return 0, err
	}
	if v > MaxAddress {
		return 0, fmt.Errorf("%w: address %#x must be between 0x0 and 0xffffff", ErrValueRange, v)
	}
	return Address(v), nil
}

// ParseAddress parses a hex address with an optional 0x prefix.
func ParseAddress(s string) (Address, error) {
	digits := s
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		digits = s[2:]
	}
	if digits == "" {
		return 0, fmt.Errorf("%w: empty address %q", ErrInputFormat, s)
	}

	v, err := strconv.ParseUint(digits, 16, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, fmt.Errorf("%w: address %q must be between 0x0 and 0xffffff", ErrValueRange, s)
		}
		return 0, fmt.Errorf("%w: address %q is not a hex string", ErrInputFormat, s)
	}
	if v > MaxAddress {
		return 0, fmt.Errorf("%w: address %q must be between 0x0 and 0xffffff", ErrValueRange, s)
	}
	return Address(v), nil
}

// Uint32 returns the numeric address.
func (a Address) Uint32() uint32 {
	return uint32(a)
}

// String renders the address as six lowercase hex digits.
func (a Address) String() string {
	return fmt.Sprintf("%06x", uint32(a))
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	v, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// DecodeText decodes packed 6-bit characters. The buffer is read as one
// integer and floor(bits/6) codes are taken from the low end, each prepended
// to the result, which leaves the characters in transmission order.
func DecodeText(b []byte) string {
	n := BigUint(b)
	count := len(b) * 8 / 6
	mask := big.NewInt(0x3f)
	code := new(big.Int)

	out := make([]byte, count)
	for i := count - 1; i >= 0; i-- {
		code.And(n, mask)
		out[i] = ADSBCharset[code.Uint64()]
		n.Rsh(n, 6)
	}
	return string(out)
}

// altitudeLayout splits the 12-bit altitude field, right-justified in two
// bytes, into its high bits, Q bit and low bits.
var altitudeLayout = layout[altitudeCode]{
	{Range{1, 4}, nil},
	{Range{5, 11}, func(b []byte, a *altitudeCode) error { a.high = uintField(b); return nil }},
	{Range{12, 12}, func(b []byte, a *altitudeCode) error { a.q = b[0] == 1; return nil }},
	{Range{13, 16}, func(b []byte, a *altitudeCode) error { a.low = uintField(b); return nil }},
}

type altitudeCode struct {
	high uint64
	q    bool
	low  uint64
}

// DecodeBaroAltitude decodes a 12-bit barometric altitude field, given
// right-justified in two bytes, to feet.
func DecodeBaroAltitude(b []byte) (int, error) {
	if len(b) != 2 {
		return 0, fmt.Errorf("%w: altitude field must be 2 bytes, got %d", ErrInputFormat, len(b))
	}

	var code altitudeCode
	if err := altitudeLayout.decode(b, &code); err != nil {
		return 0, err
	}
	return BaroAltitude(code.high, code.q, code.low)
}

// BaroAltitude converts the split altitude field to feet. Only the 25 ft
// increment encoding (Q set) is supported.
func BaroAltitude(high uint64, q bool, low uint64) (int, error) {
	if !q {
		return 0, fmt.Errorf("%w: altitude is gray coded (Q bit clear)", ErrUnsupportedEncoding)
	}
	combined := int(high*4 + low)
	return combined*25 - 1000, nil
}

// SurveillanceStatus is the 2-bit status of an airborne position message.
type SurveillanceStatus uint8

// Surveillance status values
const (
	StatusNoCondition SurveillanceStatus = iota
	StatusPermanentAlert
	StatusTemporaryAlert
	StatusSPI
)

var surveillanceStatusNames = [...]string{
	"no condition",
	"permanent alert",
	"temporary alert",
	"spi",
}

// ParseSurveillanceStatus validates a surveillance status code.
func ParseSurveillanceStatus(v uint64) (SurveillanceStatus, error) {
	if v >= uint64(len(surveillanceStatusNames)) {
		return 0, fmt.Errorf("%w: surveillance status %d must be between 0x0 and 0x3", ErrValueRange, v)
	}
	return SurveillanceStatus(v), nil
}

func (s SurveillanceStatus) String() string {
	if int(s) >= len(surveillanceStatusNames) {
		return fmt.Sprintf("invalid(%d)", uint8(s))
	}
	return surveillanceStatusNames[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s SurveillanceStatus) MarshalText() ([]byte, error) {
	if int(s) >= len(surveillanceStatusNames) {
		return nil, fmt.Errorf("%w: surveillance status %d", ErrValueRange, uint8(s))
	}
	return []byte(s.String()), nil
}
