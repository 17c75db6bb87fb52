package app

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"adsbframe/internal/adsb"
	"adsbframe/internal/beast"
)

// rawFrame is one frame as read from the input.
type rawFrame struct {
	data     []byte
	text     string // the input line, hex input only
	received time.Time
	err      error // set when the line could not be read as a frame
	// beast is the receiver message the frame came in, Beast input only.
	beast *beast.Message
}

// source feeds raw frames into out until the input ends or ctx is done.
type source interface {
	run(ctx context.Context, out chan<- rawFrame) error
}

func send(ctx context.Context, out chan<- rawFrame, f rawFrame) error {
	select {
	case out <- f:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// parseHexLine extracts the frame from a line of hex input: bare hex, AVR
// "*<hex>;", or AVR with timestamp "@<12 hex digits><hex>;". ok is false for
// blank lines and # comments.
func parseHexLine(line string) (data []byte, ok bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil, false, nil
	}

	switch line[0] {
	case '*':
		line = strings.TrimSuffix(line[1:], ";")
	case '@':
		line = strings.TrimSuffix(line[1:], ";")
		if len(line) < 12 {
			return nil, true, fmt.Errorf("%w: AVR timestamp too short", adsb.ErrInputFormat)
		}
		line = line[12:]
	}

	data, err = hex.DecodeString(line)
	if err != nil {
		return nil, true, fmt.Errorf("%w: %v", adsb.ErrInputFormat, err)
	}
	return data, true, nil
}

// hexSource reads one frame per line.
type hexSource struct {
	r   io.Reader
	now func() time.Time
}

func (s *hexSource) run(ctx context.Context, out chan<- rawFrame) error {
	scanner := bufio.NewScanner(s.r)
	for scanner.Scan() {
		line := scanner.Text()
		data, ok, err := parseHexLine(line)
		if !ok {
			continue
		}
		f := rawFrame{data: data, text: strings.TrimSpace(line), received: s.now(), err: err}
		if err := send(ctx, out, f); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read hex input: %w", err)
	}
	return nil
}

// argsSource decodes frames given on the command line.
type argsSource struct {
	args []string
	now  func() time.Time
}

func (s *argsSource) run(ctx context.Context, out chan<- rawFrame) error {
	return (&hexSource{r: strings.NewReader(strings.Join(s.args, "\n")), now: s.now}).run(ctx, out)
}

// beastSource reads a Beast binary stream and forwards the Mode S frames.
type beastSource struct {
	r       io.Reader
	decoder *beast.Decoder
	logger  *logrus.Logger
	skipped int
}

func (s *beastSource) run(ctx context.Context, out chan<- rawFrame) error {
	err := s.decoder.Scan(ctx, s.r, func(msg *beast.Message) error {
		if !msg.IsModeS() {
			s.skipped++
			return nil
		}
		return send(ctx, out, rawFrame{data: msg.Data, received: msg.Received, beast: msg})
	})

	stats := s.decoder.Stats()
	s.logger.WithFields(logrus.Fields{
		"messages":   stats.Messages,
		"resyncs":    stats.Resyncs,
		"discarded":  stats.Discarded,
		"non_mode_s": s.skipped,
	}).Debug("Beast input finished")
	return err
}

// streamSource reconnects to a TCP feed, such as dump1090's raw or Beast
// output port, until ctx is done.
type streamSource struct {
	addr         string
	open         func(r io.Reader) source
	logger       *logrus.Logger
	retryBackoff time.Duration
	maxBackoff   time.Duration
}

func (s *streamSource) run(ctx context.Context, out chan<- rawFrame) error {
	backoff := s.retryBackoff
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		dialer := net.Dialer{Timeout: 5 * time.Second}
		conn, err := dialer.DialContext(ctx, "tcp", s.addr)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.WithError(err).WithFields(logrus.Fields{
				"addr":    s.addr,
				"backoff": backoff,
			}).Warn("Failed to connect to feed")

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff *= 2
			if backoff > s.maxBackoff {
				backoff = s.maxBackoff
			}
			continue
		}

		backoff = s.retryBackoff
		s.logger.WithField("addr", s.addr).Info("Connected to feed")

		// Unblock the reader when ctx ends.
		stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
		err = s.open(conn).run(ctx, out)
		stop()
		_ = conn.Close()

		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.WithError(err).WithField("addr", s.addr).Warn("Feed disconnected, reconnecting")

		select {
		case <-time.After(s.retryBackoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// openSource builds the source for the configured input. The returned closer
// releases the input file, if any.
func (app *Application) openSource(args []string) (source, io.Closer, error) {
	if len(args) > 0 {
		return &argsSource{args: args, now: app.now}, nil, nil
	}

	newSource := func(r io.Reader) source {
		if app.config.Input.Format == InputBeast {
			d := beast.NewDecoder(app.logger)
			return &beastSource{r: r, decoder: d, logger: app.logger}
		}
		return &hexSource{r: r, now: app.now}
	}

	path := app.config.Input.Path
	switch {
	case path == "-":
		return newSource(app.stdin), nil, nil

	case strings.HasPrefix(path, "tcp://"):
		return &streamSource{
			addr:         strings.TrimPrefix(path, "tcp://"),
			open:         newSource,
			logger:       app.logger,
			retryBackoff: time.Second,
			maxBackoff:   30 * time.Second,
		}, nil, nil

	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open input: %w", err)
		}
		return newSource(f), f, nil
	}
}
