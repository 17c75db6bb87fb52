package adsb

import "fmt"

// Range is an inclusive, 1-indexed bit range over a buffer.
type Range struct {
	Start int
	End   int
}

// Len returns the number of bits covered by the range.
func (r Range) Len() int {
	return r.End - r.Start + 1
}

// Bytes returns the number of bytes needed to hold the range's value.
func (r Range) Bytes() int {
	return (r.Len() + 7) / 8
}

func (r Range) String() string {
	return fmt.Sprintf("[%d,%d]", r.Start, r.End)
}

// Slice extracts each range from buf as a big-endian value right-justified
// in ceil(len/8) bytes. A range reaching past the end of buf is an error.
func Slice(buf []byte, ranges ...Range) ([][]byte, error) {
	totalBits := len(buf) * 8
	slices := make([][]byte, len(ranges))

	for i, r := range ranges {
		if r.Start < 1 || r.End < r.Start {
			return nil, fmt.Errorf("%w: invalid bit range %s", ErrInputFormat, r)
		}
		if r.End > totalBits {
			return nil, fmt.Errorf("%w: bit range %s exceeds %d bit buffer", ErrInputFormat, r, totalBits)
		}

		n := r.Len()
		out := make([]byte, r.Bytes())
		last := len(out) - 1

		for k := 0; k < n; k++ {
			// k-th bit of the range, 0-based from the buffer's MSB
			pos := r.Start - 1 + k
			bit := (buf[pos/8] >> (7 - uint(pos%8))) & 1
			if bit == 0 {
				continue
			}
			// significance of this bit within the extracted value
			sig := n - 1 - k
			out[last-sig/8] |= 1 << uint(sig%8)
		}

		slices[i] = out
	}

	return slices, nil
}

// field pairs a bit range with the decoder that stores its value into T.
type field[T any] struct {
	Range  Range
	decode func(raw []byte, dst *T) error
}

// layout is a fixed field table for one buffer shape. The ranges of a layout
// tile its buffer.
type layout[T any] []field[T]

func (l layout[T]) ranges() []Range {
	ranges := make([]Range, len(l))
	for i, f := range l {
		ranges[i] = f.Range
	}
	return ranges
}

func (l layout[T]) bits() int {
	total := 0
	for _, f := range l {
		total += f.Range.Len()
	}
	return total
}

func (l layout[T]) decode(buf []byte, dst *T) error {
	raw, err := Slice(buf, l.ranges()...)
	if err != nil {
		return err
	}
	for i, f := range l {
		if f.decode == nil {
			continue
		}
		if err := f.decode(raw[i], dst); err != nil {
			return fmt.Errorf("field %s: %w", f.Range, err)
		}
	}
	return nil
}
