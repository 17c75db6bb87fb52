package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"adsbframe/internal/adsb"
	"adsbframe/internal/basestation"
	"adsbframe/internal/logging"
	"adsbframe/internal/storage"
)

// DefaultStatsInterval is how often statistics are logged while running.
const DefaultStatsInterval = 30 * time.Second

// Application represents the main application
type Application struct {
	config Config
	logger *logrus.Logger
	stdin  io.Reader
	stdout io.Writer
	now    func() time.Time

	statsInterval time.Duration
	stats         *Statistics

	rotator *logging.Rotator
	db      *storage.DB
	batch   *storage.BatchWriter
	sinks   []sink
	wg      sync.WaitGroup
}

// NewApplication creates a new application instance
func NewApplication(config Config, logger *logrus.Logger) *Application {
	return &Application{
		config:        config,
		logger:        logger,
		stdin:         os.Stdin,
		stdout:        os.Stdout,
		now:           time.Now,
		statsInterval: DefaultStatsInterval,
		stats:         newStatistics(),
	}
}

// SetIO replaces stdin and stdout.
func (app *Application) SetIO(stdin io.Reader, stdout io.Writer) {
	app.stdin = stdin
	app.stdout = stdout
}

// Stats returns a snapshot of the processing counters.
func (app *Application) Stats() StatsSnapshot {
	return app.stats.Snapshot()
}

// Run decodes the frames given in args, or the configured input when args
// is empty, until the input ends or ctx is done.
func (app *Application) Run(ctx context.Context, args []string) error {
	app.logger.WithFields(logrus.Fields{
		"version":    Version,
		"build_time": BuildTime,
		"git_commit": GitCommit,
	}).Debug("Starting adsbframe")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := app.initializeComponents(ctx); err != nil {
		cancel()
		app.shutdown()
		return fmt.Errorf("failed to initialize components: %w", err)
	}

	src, closer, err := app.openSource(args)
	if err != nil {
		cancel()
		app.shutdown()
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		app.reportStatistics(ctx)
	}()

	frames := make(chan rawFrame, 256)
	srcErr := make(chan error, 1)
	go func() {
		defer close(frames)
		srcErr <- src.run(ctx, frames)
	}()

	// A source blocked in a read, such as an idle stdin, may never see ctx,
	// so stop waiting for it once ctx is done.
loop:
	for {
		select {
		case f, ok := <-frames:
			if !ok {
				break loop
			}
			app.process(f)
		case <-ctx.Done():
			break loop
		}
	}

	select {
	case err = <-srcErr:
	default:
		err = ctx.Err()
	}
	cancel()
	app.shutdown()
	app.logStatistics("Final statistics")

	// Being stopped is a normal end of a stream.
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// initializeComponents opens the output and store sinks.
func (app *Application) initializeComponents(ctx context.Context) error {
	out := app.stdout

	if app.config.Output.Dir != "" {
		rotator, err := logging.NewRotator(logging.RotatorConfig{
			Dir:        app.config.Output.Dir,
			Prefix:     "adsb",
			Ext:        outputExt(app.config.Output.Format),
			UTC:        app.config.Output.UTC,
			MaxAgeDays: app.config.Output.MaxAgeDays,
		}, app.logger)
		if err != nil {
			return fmt.Errorf("failed to initialize output rotator: %w", err)
		}
		app.rotator = rotator
		out = rotator

		app.wg.Add(1)
		go func() {
			defer app.wg.Done()
			app.rotator.Start(ctx)
		}()
	}

	switch app.config.Output.Format {
	case OutputText:
		app.sinks = append(app.sinks, &textSink{w: out})
	case OutputSBS:
		app.sinks = append(app.sinks, &sbsSink{w: basestation.NewWriter(out, app.logger)})
	default:
		app.sinks = append(app.sinks, newJSONSink(out))
	}

	if app.config.Store.Path != "" {
		db, err := storage.Open(app.config.Store.Path)
		if err != nil {
			return fmt.Errorf("failed to open frame store: %w", err)
		}
		app.db = db
		app.batch = storage.NewBatchWriter(db, app.config.Store.BatchSize, app.logger)
		app.sinks = append(app.sinks, &storeSink{batch: app.batch})

		app.wg.Add(1)
		go func() {
			defer app.wg.Done()
			app.batch.Run(ctx, app.config.Store.FlushInterval)
		}()
	}

	return nil
}

func outputExt(format string) string {
	switch format {
	case OutputJSON:
		return "jsonl"
	case OutputSBS:
		return "sbs"
	default:
		return "log"
	}
}

// process decodes one frame and hands it to every sink. Failures are
// logged and counted; they never stop the stream.
func (app *Application) process(f rawFrame) {
	app.stats.read()

	if f.err != nil {
		app.stats.failed()
		app.logger.WithError(f.err).WithField("input", f.text).Debug("Skipping unreadable input")
		return
	}

	frame, err := adsb.DecodeFrame(f.data)
	if err != nil {
		app.stats.failed()
		app.logger.WithError(err).WithField("frame", fmt.Sprintf("%X", f.data)).Debug("Failed to decode frame")
		return
	}

	if !frame.CRCMatch {
		app.stats.crcMismatch()
		// Only extended squitters carry a bare CRC; other formats overlay the
		// address on the parity.
		if app.config.Decode.DropBadCRC && (frame.DF == adsb.DFExtendedSquitter || frame.DF == adsb.DFNonTransponder) {
			app.stats.dropped()
			app.logger.WithFields(logrus.Fields{
				"frame":   fmt.Sprintf("%X", f.data),
				"crc_hex": frame.CRCHex,
			}).Debug("Dropping frame with bad CRC")
			return
		}
	}

	if msg := frame.Message(); msg != nil {
		if unknown, ok := msg.(*adsb.UnknownMessage); ok {
			app.logger.WithError(unknown.Err()).WithField("address", frame.Address).Debug("Unknown type code")
		}
		app.stats.decoded(string(msg.Kind()))
	} else {
		app.stats.decoded(fmt.Sprintf("df%d", frame.DF))
	}

	received := f.received
	if received.IsZero() {
		received = app.now()
	}

	decoded := decodedFrame{raw: f.data, frame: frame, received: received, beast: f.beast}
	for _, s := range app.sinks {
		if err := s.write(decoded); err != nil {
			app.stats.writeFailed()
			app.logger.WithError(err).Warn("Failed to write decoded frame")
		}
	}
}

// reportStatistics reports processing statistics periodically
func (app *Application) reportStatistics(ctx context.Context) {
	if app.statsInterval <= 0 {
		return
	}

	ticker := time.NewTicker(app.statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			app.logStatistics("Decoding statistics")
		}
	}
}

func (app *Application) logStatistics(msg string) {
	s := app.stats.Snapshot()

	fields := logrus.Fields{
		"frames_read":    s.Read,
		"frames_decoded": s.Decoded,
		"decode_failed":  s.Failed,
		"crc_mismatches": s.CRCMismatches,
		"dropped":        s.Dropped,
		"write_failed":   s.WriteFailed,
	}
	kinds := make([]string, 0, len(s.ByKind))
	for kind := range s.ByKind {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		fields["kind_"+kind] = s.ByKind[kind]
	}
	if app.batch != nil {
		fields["stored"] = app.batch.Written()
	}

	app.logger.WithFields(fields).Info(msg)
}

// shutdown flushes and closes the sinks once the background goroutines are
// gone.
func (app *Application) shutdown() {
	app.logger.Debug("Shutting down application")

	done := make(chan struct{})
	go func() {
		app.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		app.logger.Warn("Shutdown timeout, forcing exit")
	}

	if app.batch != nil {
		if err := app.batch.Flush(); err != nil {
			app.logger.WithError(err).Error("Failed to flush frame store")
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.WithError(err).Error("Failed to close frame store")
		}
		app.db = nil
	}
	if app.rotator != nil {
		if err := app.rotator.Close(); err != nil {
			app.logger.WithError(err).Error("Failed to close output rotator")
		}
		app.rotator = nil
	}
}
