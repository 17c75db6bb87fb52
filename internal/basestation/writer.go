package basestation

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"adsbframe/internal/adsb"
)

// BaseStation message types
const (
	BaseStationMSG = "MSG" // Transmission
)

// BaseStation transmission types
const (
	TransmissionESIdentification = 1 // Extended Squitter Aircraft ID and Category
	TransmissionESSurface        = 2 // Extended Squitter Surface Position
	TransmissionESAirborne       = 3 // Extended Squitter Airborne Position
	TransmissionESVelocity       = 4 // Extended Squitter Airborne Velocity
	TransmissionSurveillance     = 5 // Surveillance Alt, Squawk change
	TransmissionSurveillanceID   = 6 // Surveillance ID change
	TransmissionAirToAir         = 7 // Air-to-Air Message
	TransmissionAllCall          = 8 // All Call Reply
)

// Message is one BaseStation CSV record.
type Message struct {
	MessageType      string
	TransmissionType int
	SessionID        int
	AircraftID       int
	HexIdent         string
	FlightID         int
	Generated        time.Time
	Logged           time.Time
	Callsign         string
	Altitude         string
	GroundSpeed      string
	Track            string
	Latitude         string
	Longitude        string
	VerticalRate     string
	Squawk           string
	Alert            string
	Emergency        string
	SPI              string
	IsOnGround       string
}

// Writer renders decoded frames as BaseStation lines.
type Writer struct {
	out        io.Writer
	logger     *logrus.Logger
	sessionID  int
	aircraftID int
	now        func() time.Time
	mu         sync.Mutex
}

// NewWriter creates a new BaseStation writer
func NewWriter(out io.Writer, logger *logrus.Logger) *Writer {
	return &Writer{
		out:        out,
		logger:     logger,
		sessionID:  1,
		aircraftID: 1,
		now:        time.Now,
	}
}

// WriteFrame writes one line for frames that have a BaseStation equivalent.
// received is when the frame was captured; the zero time means now. Frames
// without an equivalent are skipped without error.
func (w *Writer) WriteFrame(frame *adsb.Frame, received time.Time) error {
	if frame == nil {
		return fmt.Errorf("frame cannot be nil")
	}

	msg := w.convertFrame(frame, received)
	if msg == nil {
		w.logger.WithFields(logrus.Fields{
			"df":      frame.DF,
			"address": frame.Address,
		}).Debug("No BaseStation equivalent, skipping")
		return nil
	}

	line := FormatCSV(msg) + "\n"

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := io.WriteString(w.out, line); err != nil {
		return fmt.Errorf("failed to write BaseStation line: %w", err)
	}
	return nil
}

// convertFrame maps a decoded frame onto a BaseStation record, or nil.
func (w *Writer) convertFrame(frame *adsb.Frame, received time.Time) *Message {
	now := w.now()
	if received.IsZero() {
		received = now
	}

	msg := &Message{
		MessageType: BaseStationMSG,
		SessionID:   w.sessionID,
		AircraftID:  w.aircraftID,
		HexIdent:    strings.ToUpper(frame.Address.String()),
		FlightID:    w.aircraftID,
		Generated:   received,
		Logged:      now,
	}

	if frame.DF == adsb.DFAllCallReply {
		msg.TransmissionType = TransmissionAllCall
		return msg
	}

	switch m := frame.Message().(type) {
	case *adsb.Identification:
		msg.TransmissionType = TransmissionESIdentification
		msg.Callsign = strings.TrimSpace(m.Callsign)

	case *adsb.AirbornePosition:
		msg.TransmissionType = TransmissionESAirborne
		// The BaseStation altitude column is barometric.
		if m.AltitudeType == adsb.AltitudeBarometric {
			msg.Altitude = strconv.Itoa(m.Altitude)
		}
		msg.Alert = flag(m.Status == adsb.StatusPermanentAlert || m.Status == adsb.StatusTemporaryAlert)
		msg.SPI = flag(m.Status == adsb.StatusSPI)
		msg.IsOnGround = flag(false)

	case *adsb.AirborneVelocity:
		msg.TransmissionType = TransmissionESVelocity
		if rate, ok := m.VerticalRate(); ok {
			msg.VerticalRate = strconv.Itoa(rate)
		}
		msg.IsOnGround = flag(false)

	default:
		return nil
	}

	return msg
}

// flag renders a BaseStation boolean: -1 for set, 0 for clear.
func flag(set bool) string {
	if set {
		return "-1"
	}
	return "0"
}

// FormatCSV formats a BaseStation message as CSV
func FormatCSV(msg *Message) string {
	fields := []string{
		msg.MessageType,
		strconv.Itoa(msg.TransmissionType),
		strconv.Itoa(msg.SessionID),
		strconv.Itoa(msg.AircraftID),
		msg.HexIdent,
		strconv.Itoa(msg.FlightID),
		msg.Generated.Format("2006/01/02"),
		msg.Generated.Format("15:04:05.000"),
		msg.Logged.Format("2006/01/02"),
		msg.Logged.Format("15:04:05.000"),
		msg.Callsign,
		msg.Altitude,
		msg.GroundSpeed,
		msg.Track,
		msg.Latitude,
		msg.Longitude,
		msg.VerticalRate,
		msg.Squawk,
		msg.Alert,
		msg.Emergency,
		msg.SPI,
		msg.IsOnGround,
	}

	return strings.Join(fields, ",")
}
