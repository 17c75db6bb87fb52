package beast

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	errIncomplete  = errors.New("incomplete message")
	errLoneSync    = errors.New("unescaped sync byte inside message")
	maxMessageSize = 2 + 2*(headerLen+14)
)

// Stats counts what the decoder has seen so far.
type Stats struct {
	Messages  int
	Resyncs   int
	Discarded int
}

// Decoder decodes Beast mode messages
type Decoder struct {
	logger *logrus.Logger
	buffer []byte
	stats  Stats
	now    func() time.Time
}

// NewDecoder creates a new Beast decoder
func NewDecoder(logger *logrus.Logger) *Decoder {
	return &Decoder{
		logger: logger,
		buffer: make([]byte, 0, 4096),
		now:    time.Now,
	}
}

// Stats returns the decoder counters.
func (d *Decoder) Stats() Stats {
	return d.stats
}

// Decode appends data to the internal buffer and returns every complete
// message it holds. A partial message at the end of data is kept for the
// next call.
func (d *Decoder) Decode(data []byte) ([]*Message, error) {
	d.buffer = append(d.buffer, data...)

	var messages []*Message
	for {
		syncIndex := bytes.IndexByte(d.buffer, SyncByte)
		if syncIndex == -1 {
			d.discard(len(d.buffer))
			break
		}
		if syncIndex > 0 {
			d.discard(syncIndex)
		}

		if len(d.buffer) < 2 {
			break
		}

		messageType := d.buffer[1]
		n := payloadLength(messageType)
		if n == 0 {
			// Either noise or the second half of an escaped 0x1A.
			d.logger.WithFields(logrus.Fields{
				"message_type": fmt.Sprintf("0x%02x", messageType),
			}).Debug("Unknown message type, skipping")
			d.stats.Resyncs++
			d.discard(1)
			continue
		}

		payload, consumed, err := unescape(d.buffer[2:], headerLen+n)
		if errors.Is(err, errIncomplete) {
			break
		}
		if err != nil {
			d.logger.WithFields(logrus.Fields{
				"message_type": fmt.Sprintf("0x%02x", messageType),
				"consumed":     consumed,
			}).WithError(err).Debug("Dropping truncated Beast message")
			d.stats.Resyncs++
			d.discard(2 + consumed)
			continue
		}

		msg := d.parse(messageType, payload)
		d.logger.WithFields(logrus.Fields{
			"message_type": fmt.Sprintf("0x%02x", msg.MessageType),
			"signal":       msg.Signal,
			"data_length":  len(msg.Data),
		}).Debug("Decoded Beast message")

		messages = append(messages, msg)
		d.stats.Messages++
		d.buffer = d.buffer[2+consumed:]
	}

	// Reclaim the consumed prefix once the backing array is mostly dead.
	if cap(d.buffer) > 4*maxMessageSize && len(d.buffer) < maxMessageSize {
		d.buffer = append(make([]byte, 0, 4096), d.buffer...)
	}

	return messages, nil
}

func (d *Decoder) discard(n int) {
	d.stats.Discarded += n
	d.buffer = d.buffer[n:]
}

func (d *Decoder) parse(messageType byte, payload []byte) *Message {
	var timestamp uint64
	for _, b := range payload[:6] {
		timestamp = timestamp<<8 | uint64(b)
	}

	return &Message{
		MessageType: messageType,
		Timestamp:   timestamp,
		Received:    d.now(),
		Signal:      payload[6],
		Data:        payload[headerLen:],
	}
}

// unescape reads want bytes from src, collapsing every 0x1A 0x1A pair to a
// single 0x1A. consumed is the number of src bytes read.
func unescape(src []byte, want int) (out []byte, consumed int, err error) {
	out = make([]byte, 0, want)
	i := 0
	for len(out) < want {
		if i >= len(src) {
			return nil, i, errIncomplete
		}
		b := src[i]
		if b == SyncByte {
			if i+1 >= len(src) {
				return nil, i, errIncomplete
			}
			if src[i+1] != SyncByte {
				return nil, i, errLoneSync
			}
			i++
		}
		out = append(out, b)
		i++
	}
	return out, i, nil
}

// Scan reads the Beast stream from r until EOF or ctx is done and calls fn
// for every decoded message. An error from fn stops the scan.
func (d *Decoder) Scan(ctx context.Context, r io.Reader, fn func(*Message) error) error {
	buf := make([]byte, 4096)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, readErr := r.Read(buf)
		if n > 0 {
			messages, err := d.Decode(buf[:n])
			if err != nil {
				return err
			}
			for _, msg := range messages {
				if err := fn(msg); err != nil {
					return err
				}
			}
		}

		if readErr == io.EOF {
			if len(d.buffer) > 0 {
				d.logger.WithField("bytes", len(d.buffer)).Debug("Discarding partial Beast message at end of stream")
				d.discard(len(d.buffer))
			}
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("read beast stream: %w", readErr)
		}
	}
}
