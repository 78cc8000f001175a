package usagelog

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/qnagen/internal/metrics"
)

var (
	// ErrQueueClosed is returned by Enqueue after Close.
	ErrQueueClosed = errors.New("usage log queue closed")
	// ErrQueueFull is returned by Enqueue when the buffer has no room.
	ErrQueueFull = errors.New("usage log queue full")
)

// Recorder persists a single entry.
type Recorder interface {
	Write(ctx context.Context, e Entry) error
}

// DefaultWriteTimeout bounds each background write.
const DefaultWriteTimeout = 5 * time.Second

// Writer is a detached usage-log sink: entries go to a buffered queue that
// a background worker drains into the Recorder. Write failures are logged,
// counted and published on Errors; they never reach the submitter.
type Writer struct {
	rec     Recorder
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	ch     chan Entry
	errs   chan error
	done   chan struct{}

	dropped atomic.Int64
}

// NewWriter starts a Writer with the given queue capacity.
func NewWriter(rec Recorder, queueSize int, timeout time.Duration) *Writer {
	if queueSize <= 0 {
		queueSize = 64
	}
	if timeout <= 0 {
		timeout = DefaultWriteTimeout
	}
	w := &Writer{
		rec:     rec,
		timeout: timeout,
		ch:      make(chan Entry, queueSize),
		errs:    make(chan error, queueSize),
		done:    make(chan struct{}),
	}
	go w.drain()
	return w
}

// Enqueue queues e for writing without blocking.
func (w *Writer) Enqueue(e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return ErrQueueClosed
	}
	select {
	case w.ch <- e:
		return nil
	default:
		w.dropped.Add(1)
		metrics.UsageLogWriteTotal.WithLabelValues("dropped").Inc()
		return ErrQueueFull
	}
}

// Submit queues e and reports whether it was accepted.
func (w *Writer) Submit(e Entry) bool {
	return w.Enqueue(e) == nil
}

// Errors returns write failures. The channel is buffered; failures that
// find it full are only logged. It is closed after Close returns.
func (w *Writer) Errors() <-chan error {
	return w.errs
}

// Dropped returns how many entries were rejected because the queue was full.
func (w *Writer) Dropped() int64 {
	return w.dropped.Load()
}

// Close stops accepting entries and waits for queued ones to be written.
func (w *Writer) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		<-w.done
		return
	}
	w.closed = true
	close(w.ch)
	w.mu.Unlock()
	<-w.done
}

func (w *Writer) drain() {
	defer close(w.done)
	defer close(w.errs)
	for e := range w.ch {
		w.write(e)
	}
}

func (w *Writer) write(e Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	if err := w.rec.Write(ctx, e); err != nil {
		metrics.UsageLogWriteTotal.WithLabelValues("error").Inc()
		slog.Error("usage log write failed", "run_id", e.RunID, "error", err)
		select {
		case w.errs <- err:
		default:
		}
		return
	}
	metrics.UsageLogWriteTotal.WithLabelValues("ok").Inc()
}
