package logging

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const dateLayout = "2006-01-02"

// ErrClosed is returned by writes after Close.
var ErrClosed = errors.New("rotator is closed")

// RotatorConfig describes where rotated output files go.
type RotatorConfig struct {
	Dir    string
	Prefix string // default "adsb"
	Ext    string // default "log"
	UTC    bool
	// MaxAgeDays removes older files after every rotation when positive.
	MaxAgeDays int
}

// Rotator writes decoded output to one file per day, gzips the previous
// day's file on rotation and prunes old files.
type Rotator struct {
	cfg         RotatorConfig
	logger      *logrus.Logger
	now         func() time.Time
	currentFile *os.File
	currentDate string
	mutex       sync.RWMutex
	compressing sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewRotator creates the output directory and opens today's file.
func NewRotator(cfg RotatorConfig, logger *logrus.Logger) (*Rotator, error) {
	return newRotator(cfg, logger, time.Now)
}

func newRotator(cfg RotatorConfig, logger *logrus.Logger, now func() time.Time) (*Rotator, error) {
	if cfg.Dir == "" {
		return nil, errors.New("output directory is required")
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "adsb"
	}
	if cfg.Ext == "" {
		cfg.Ext = "log"
	}

	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Rotator{
		cfg:    cfg,
		logger: logger,
		now:    now,
		ctx:    ctx,
		cancel: cancel,
	}

	r.mutex.Lock()
	err := r.openFile(r.today())
	r.mutex.Unlock()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize output file: %w", err)
	}

	return r, nil
}

func (r *Rotator) today() string {
	now := r.now()
	if r.cfg.UTC {
		now = now.UTC()
	}
	return now.Format(dateLayout)
}

func (r *Rotator) fileName(date string) string {
	return filepath.Join(r.cfg.Dir, fmt.Sprintf("%s_%s.%s", r.cfg.Prefix, date, r.cfg.Ext))
}

// Start checks once a minute whether the date has changed.
func (r *Rotator) Start(ctx context.Context) {
	r.logger.Info("Starting output rotator")

	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Output rotator stopping")
			return
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.checkRotation()
		}
	}
}

// checkRotation rotates when the date has moved on.
func (r *Rotator) checkRotation() {
	date := r.today()

	r.mutex.Lock()
	if r.ctx.Err() != nil || (r.currentFile != nil && r.currentDate == date) {
		r.mutex.Unlock()
		return
	}

	r.logger.WithFields(logrus.Fields{
		"old_date": r.currentDate,
		"new_date": date,
	}).Info("Rotating output file")

	var oldDate string
	if r.currentFile != nil {
		oldDate = r.currentDate
		if err := r.currentFile.Close(); err != nil {
			r.logger.WithError(err).Error("Failed to close old output file")
		}
		r.currentFile = nil
	}
	if err := r.openFile(date); err != nil {
		r.logger.WithError(err).Error("Failed to rotate output file")
	}
	if oldDate == "" || oldDate == date {
		r.mutex.Unlock()
		return
	}
	// Added under the lock so Close cannot miss it.
	r.compressing.Add(1)
	r.mutex.Unlock()

	go func() {
		defer r.compressing.Done()
		r.compressFile(oldDate)
		if r.cfg.MaxAgeDays > 0 {
			if err := r.CleanupOldFiles(r.cfg.MaxAgeDays); err != nil {
				r.logger.WithError(err).Warn("Failed to clean up old output files")
			}
		}
	}()
}

// openFile must be called with the mutex held.
func (r *Rotator) openFile(date string) error {
	path := r.fileName(date)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create output file %s: %w", path, err)
	}

	r.currentFile = file
	r.currentDate = date
	r.logger.WithField("file", path).Info("Opened output file")
	return nil
}

// compressFile gzips the file of the given date and removes the original.
func (r *Rotator) compressFile(date string) {
	src := r.fileName(date)
	dst := src + ".gz"

	logger := r.logger.WithFields(logrus.Fields{
		"source": src,
		"target": dst,
	})

	if err := gzipFile(src, dst); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Debug("Output file doesn't exist, skipping compression")
			return
		}
		logger.WithError(err).Error("Failed to compress output file")
		return
	}

	if err := os.Remove(src); err != nil {
		logger.WithError(err).Error("Failed to remove original output file")
		return
	}

	logger.Info("Output file compressed")
}

func gzipFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	gz.Name = filepath.Base(src)
	gz.ModTime = time.Now()

	if _, err := io.Copy(gz, in); err != nil {
		return err
	}
	if err := gz.Close(); err != nil {
		return err
	}
	return out.Close()
}

// Write appends p to the current file.
func (r *Rotator) Write(p []byte) (int, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if r.currentFile == nil {
		return 0, ErrClosed
	}
	return r.currentFile.Write(p)
}

// Close stops the rotator, waits for pending compression and closes the
// current file.
func (r *Rotator) Close() error {
	r.logger.Info("Closing output rotator")
	r.cancel()

	r.mutex.Lock()
	var err error
	if r.currentFile != nil {
		err = r.currentFile.Close()
		r.currentFile = nil
	}
	r.mutex.Unlock()

	r.compressing.Wait()

	if err != nil {
		r.logger.WithError(err).Error("Failed to close current output file")
	}
	return err
}

// CurrentFile returns the path of the file being written.
func (r *Rotator) CurrentFile() string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if r.currentDate == "" {
		return ""
	}
	return r.fileName(r.currentDate)
}

// Files lists every output file of this prefix, compressed ones included.
func (r *Rotator) Files() ([]string, error) {
	pattern := filepath.Join(r.cfg.Dir, fmt.Sprintf("%s_*.%s*", r.cfg.Prefix, r.cfg.Ext))
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to list output files: %w", err)
	}
	return files, nil
}

// CleanupOldFiles removes output files last modified more than maxDays ago.
func (r *Rotator) CleanupOldFiles(maxDays int) error {
	if maxDays <= 0 {
		return fmt.Errorf("maxDays must be positive")
	}

	files, err := r.Files()
	if err != nil {
		return err
	}

	cutoff := r.now().AddDate(0, 0, -maxDays)
	current := r.CurrentFile()

	removed := 0
	for _, file := range files {
		if file == current {
			continue
		}

		info, err := os.Stat(file)
		if err != nil {
			r.logger.WithError(err).WithField("file", file).Warn("Failed to stat output file")
			continue
		}

		if info.ModTime().Before(cutoff) {
			if err := os.Remove(file); err != nil {
				r.logger.WithError(err).WithField("file", file).Error("Failed to remove old output file")
				continue
			}
			r.logger.WithField("file", file).Info("Removed old output file")
			removed++
		}
	}

	r.logger.WithField("count", removed).Info("Cleaned up old output files")
	return nil
}
