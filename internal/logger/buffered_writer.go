package logger

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

const (
	// DefaultBufferSize is the write buffer for the log file
	DefaultBufferSize = 32 * 1024

	// DefaultFlushInterval is how often buffered lines are pushed to the file
	DefaultFlushInterval = 5 * time.Second

	// LogFilePermissions restricts log files to the owner
	LogFilePermissions = 0o600
)

// BufferedFileWriter wraps a file with buffered I/O and periodic auto-flush.
// It is safe for concurrent use.
type BufferedFileWriter struct {
	mu        sync.Mutex
	file      *os.File
	writer    *bufio.Writer
	filePath  string
	interval  time.Duration
	stopFlush chan struct{}
	flushDone chan struct{}
	closed    bool
}

// BufferedWriterOption configures a BufferedFileWriter
type BufferedWriterOption func(*BufferedFileWriter)

// WithFlushInterval sets the auto-flush interval. Pass 0 to disable auto-flush.
func WithFlushInterval(interval time.Duration) BufferedWriterOption {
	return func(w *BufferedFileWriter) {
		w.interval = interval
	}
}

// NewBufferedFileWriter opens filePath in append mode.
func NewBufferedFileWriter(filePath string, opts ...BufferedWriterOption) (*BufferedFileWriter, error) {
	w := &BufferedFileWriter{
		filePath:  filePath,
		interval:  DefaultFlushInterval,
		stopFlush: make(chan struct{}),
		flushDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, LogFilePermissions) //nolint:gosec // path comes from config
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", filePath, err)
	}
	w.file = file
	w.writer = bufio.NewWriterSize(file, DefaultBufferSize)

	if w.interval > 0 {
		go w.autoFlushLoop()
	} else {
		close(w.flushDone)
	}

	return w, nil
}

func (w *BufferedFileWriter) autoFlushLoop() {
	defer close(w.flushDone)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopFlush:
			return
		case <-ticker.C:
			// errors surface on the next Write
			_ = w.Flush()
		}
	}
}

// Write writes data to the buffer.
func (w *BufferedFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.writer == nil {
		return 0, fmt.Errorf("writer is closed")
	}
	return w.writer.Write(p)
}

// Flush pushes the buffer to the OS without fsync.
func (w *BufferedFileWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.writer == nil {
		return nil
	}
	if err := w.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush buffer: %w", err)
	}
	return nil
}

// Close flushes, syncs and closes the file. Calling it twice is safe.
func (w *BufferedFileWriter) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	if w.interval > 0 {
		close(w.stopFlush)
	}
	<-w.flushDone

	w.mu.Lock()
	defer w.mu.Unlock()

	var errs []error
	if err := w.writer.Flush(); err != nil {
		errs = append(errs, fmt.Errorf("failed to flush buffer: %w", err))
	}
	if err := w.file.Sync(); err != nil {
		errs = append(errs, fmt.Errorf("failed to sync file: %w", err))
	}
	if err := w.file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close file: %w", err))
	}
	w.writer = nil
	w.file = nil

	return errors.Join(errs...)
}

// FilePath returns the path of the underlying file
func (w *BufferedFileWriter) FilePath() string {
	return w.filePath
}

var _ io.WriteCloser = (*BufferedFileWriter)(nil)
