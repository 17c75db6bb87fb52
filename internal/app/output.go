package app

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"adsbframe/internal/adsb"
	"adsbframe/internal/basestation"
	"adsbframe/internal/beast"
	"adsbframe/internal/storage"
)

// decodedFrame is a frame that made it through the decode stage.
type decodedFrame struct {
	raw      []byte
	frame    *adsb.Frame
	received time.Time
	beast    *beast.Message
}

// sink consumes decoded frames.
type sink interface {
	write(f decodedFrame) error
}

// jsonSink writes one JSON document per frame.
type jsonSink struct {
	enc *json.Encoder
}

func newJSONSink(w io.Writer) *jsonSink {
	return &jsonSink{enc: json.NewEncoder(w)}
}

func (s *jsonSink) write(f decodedFrame) error {
	return s.enc.Encode(f.frame)
}

// textSink writes a one-line human readable summary per frame.
type textSink struct {
	w io.Writer
}

func (s *textSink) write(f decodedFrame) error {
	line := FormatText(f.raw, f.frame)
	if f.beast != nil {
		line += formatReceiver(f.beast)
	}
	_, err := fmt.Fprintln(s.w, line)
	return err
}

// formatReceiver renders the Beast receiver timestamp and signal level.
func formatReceiver(msg *beast.Message) string {
	return fmt.Sprintf(" rx=%s sig=%.3f", msg.Elapsed(), msg.SignalLevel())
}

// FormatText renders a frame as a single summary line.
func FormatText(raw []byte, frame *adsb.Frame) string {
	var b strings.Builder

	crc := "ok"
	if !frame.CRCMatch {
		crc = "bad"
	}
	fmt.Fprintf(&b, "%X df=%d ca=%d addr=%s crc=%s/%s", raw, frame.DF, frame.CA, frame.Address, crc, frame.CRCHex)

	switch p := frame.Payload.(type) {
	case *adsb.Passthrough:
		if p.DFName != "" {
			fmt.Fprintf(&b, " %q", p.DFName)
		}
		fmt.Fprintf(&b, " data=%s", p.Data)
	case *adsb.ExtendedSquitter:
		fmt.Fprintf(&b, " tc=%d %q", p.Message.TypeCode(), p.Message.Name())
		writeMessageText(&b, p.Message)
	}
	return b.String()
}

func writeMessageText(b *strings.Builder, msg adsb.Message) {
	switch m := msg.(type) {
	case *adsb.Identification:
		fmt.Fprintf(b, " ident=%q category=%d", m.Callsign, m.Category)
		if m.CategoryName != "" {
			fmt.Fprintf(b, " (%s)", m.CategoryName)
		}
	case *adsb.AirbornePosition:
		fmt.Fprintf(b, " alt=%d%s (%s) status=%q cpr=%d lat=%d lon=%d",
			m.Altitude, m.AltitudeUnit, m.AltitudeType, m.Status, m.CPRFormat, m.LatCPR, m.LonCPR)
	case *adsb.AirborneVelocity:
		fmt.Fprintf(b, " subtype=%d", m.Subtype)
		if rate, ok := m.VerticalRate(); ok {
			fmt.Fprintf(b, " vrate=%dfpm", rate)
		}
		if diff, ok := m.AltitudeDifference(); ok {
			fmt.Fprintf(b, " gnss_baro_diff=%dft", diff)
		}
	case *adsb.UnknownMessage:
		fmt.Fprintf(b, " me=%s", m.Data)
	}
}

// sbsSink writes BaseStation lines.
type sbsSink struct {
	w *basestation.Writer
}

func (s *sbsSink) write(f decodedFrame) error {
	return s.w.WriteFrame(f.frame, f.received)
}

// storeSink queues frames for the SQLite store.
type storeSink struct {
	batch *storage.BatchWriter
}

func (s *storeSink) write(f decodedFrame) error {
	rec, err := storage.NewRecord(f.frame, f.raw, f.received)
	if err != nil {
		return err
	}
	if f.beast != nil {
		rec.SetReceiver(f.beast.Timestamp, f.beast.SignalLevel())
	}
	return s.batch.Add(rec)
}
