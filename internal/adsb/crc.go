package adsb

import (
	"fmt"
	"strconv"
	"sync"
)

// Pre-computed CRC table, built on first use and read-only afterwards
var (
	crcTable     [256]uint32
	crcTableOnce sync.Once
)

// buildCRCTable computes the byte-wise CRC-24 table for ModesGeneratorPoly.
func buildCRCTable() [256]uint32 {
	var table [256]uint32
	for i := 0; i < 256; i++ {
		c := uint32(i) << 16
		for j := 0; j < 8; j++ {
			if c&0x800000 != 0 {
				c = ((c << 1) ^ ModesGeneratorPoly) & 0xffffff
			} else {
				c = (c << 1) & 0xffffff
			}
		}
		table[i] = c
	}
	return table
}

func initCRCTable() {
	crcTableOnce.Do(func() {
		crcTable = buildCRCTable()
	})
}

// Table returns a copy of the CRC-24 lookup table.
func Table() [256]uint32 {
	initCRCTable()
	return crcTable
}

// Checksum computes the Mode S CRC-24 of data. Empty data yields 0.
func Checksum(data []byte) uint32 {
	initCRCTable()

	var crc uint32
	for _, b := range data {
		crc = crcTable[((crc>>16)^uint32(b))&0xff] ^ (crc << 8)
	}

	return crc & 0xffffff
}

// CRC is the result of checking a frame's parity field.
type CRC struct {
	Match bool
	Value uint32
	Hex   string
}

// CheckCRC computes the CRC over all but the last three bytes of frame and
// compares it with the big-endian parity in those three bytes.
func CheckCRC(frame []byte) (CRC, error) {
	if len(frame) < ParityBytes {
		return CRC{}, fmt.Errorf("%w: %d byte frame has no parity field", ErrInputFormat, len(frame))
	}

	split := len(frame) - ParityBytes
	parity := uint32(frame[split])<<16 | uint32(frame[split+1])<<8 | uint32(frame[split+2])
	crc := Checksum(frame[:split])

	return CRC{
		Match: crc == parity,
		Value: crc,
		Hex:   strconv.FormatUint(uint64(crc), 16),
	}, nil
}
