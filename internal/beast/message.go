package beast

import (
	"time"
)

// Beast mode message types
const (
	SyncByte   = 0x1A // Beast mode sync byte
	ModeAC     = 0x31 // Mode A/C
	ModeS      = 0x32 // Mode S Short (56 bits)
	ModeSLong  = 0x33 // Mode S Long (112 bits)
	ModeStatus = 0x34 // Status
)

// headerLen is the timestamp and signal level that precede the payload.
const headerLen = 6 + 1

// payloadLength returns the unescaped payload size of a message type, or 0
// for a type that is not part of the protocol.
func payloadLength(messageType byte) int {
	switch messageType {
	case ModeAC, ModeStatus:
		return 2
	case ModeS:
		return 7
	case ModeSLong:
		return 14
	default:
		return 0
	}
}

// Message represents a decoded Beast mode message
type Message struct {
	MessageType byte
	// Timestamp is the receiver's 48-bit 12 MHz counter.
	Timestamp uint64
	Received  time.Time
	Signal    byte
	Data      []byte
}

// IsModeS reports whether the message carries a Mode S frame.
func (msg *Message) IsModeS() bool {
	return msg.MessageType == ModeS || msg.MessageType == ModeSLong
}

// Elapsed converts the receiver counter to a duration since the counter
// started.
func (msg *Message) Elapsed() time.Duration {
	return time.Duration(msg.Timestamp*250/3) * time.Nanosecond
}

// SignalLevel returns the signal level normalised to [0, 1].
func (msg *Message) SignalLevel() float64 {
	level := float64(msg.Signal) / 255
	return level * level
}
