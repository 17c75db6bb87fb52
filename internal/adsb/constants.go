package adsb

// ADS-B 6-bit character set, indexed by the 6-bit code.
const ADSBCharset = "@ABCDEFGHIJKLMNOPQRSTUVWXYZ[/]^_ !\"#$%&\\()*+,-./0123456789:;<=>?"

// ADS-B CRC-24 polynomial constant (Mode S standard)
const ModesGeneratorPoly = 0xfff409

// Frame sizes
const (
	ShortFrameBytes = 7  // 56 bits
	LongFrameBytes  = 14 // 112 bits
	MEBytes         = 7  // 56 bit ME field
	ParityBytes     = 3  // trailing 24 bit parity
	MaxAddress      = 0xffffff
)

// Downlink formats
const (
	DFShortACAS        = 0
	DFAltitudeReply    = 4
	DFIdentityReply    = 5
	DFAllCallReply     = 11
	DFLongACAS         = 16
	DFExtendedSquitter = 17
	DFNonTransponder   = 18
	DFMilitary         = 19
	DFCommBAltitude    = 20
	DFCommBIdentity    = 21
	DFCommD            = 24
)

// dfNames labels downlink formats. Only DF 17 is decoded further.
var dfNames = map[uint8]string{
	DFShortACAS:        "acas short reply",
	DFAltitudeReply:    "altitude reply",
	DFIdentityReply:    "identity reply",
	DFAllCallReply:     "all call reply",
	DFLongACAS:         "acas long reply",
	DFExtendedSquitter: "extended squitter",
	DFNonTransponder:   "extended squitter (non-transponder)",
	DFMilitary:         "military extended squitter",
	DFCommBAltitude:    "comm-b altitude reply",
	DFCommBIdentity:    "comm-b identity reply",
	DFCommD:            "comm-d extended length message",
}

// DFName returns the name of a downlink format, or "" if it has none.
func DFName(df uint8) string {
	return dfNames[df]
}
