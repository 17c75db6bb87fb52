package adsb

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

// bitsOf is a value of a given bit width, used to assemble test buffers.
type bitsOf struct {
	n int
	v uint64
}

// packBits concatenates fields MSB first into a byte buffer.
func packBits(t testing.TB, fields ...bitsOf) []byte {
	t.Helper()

	acc := new(big.Int)
	total := 0
	for _, f := range fields {
		require.Less(t, f.v, uint64(1)<<uint(f.n), "value %d does not fit %d bits", f.v, f.n)
		acc.Lsh(acc, uint(f.n))
		acc.Or(acc, new(big.Int).SetUint64(f.v))
		total += f.n
	}
	require.Zero(t, total%8, "fields must fill whole bytes")

	out := make([]byte, total/8)
	acc.FillBytes(out)
	return out
}

// extendedFrame wraps an ME field in a 14 byte frame with a valid parity.
func extendedFrame(df, ca uint8, addr uint32, me []byte) []byte {
	buf := make([]byte, 0, LongFrameBytes)
	buf = append(buf, df<<3|ca, byte(addr>>16), byte(addr>>8), byte(addr))
	buf = append(buf, me...)
	crc := Checksum(buf)
	return append(buf, byte(crc>>16), byte(crc>>8), byte(crc))
}

// rejoin concatenates sliced values back into one integer.
func rejoin(ranges []Range, slices [][]byte) *big.Int {
	acc := new(big.Int)
	for i, r := range ranges {
		acc.Lsh(acc, uint(r.Len()))
		acc.Or(acc, BigUint(slices[i]))
	}
	return acc
}
