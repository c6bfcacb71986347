package journal

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

const maxBatch = 256

// Writer buffers events and appends them from a single goroutine.
// Record never blocks; events that do not fit in the buffer are dropped.
type Writer struct {
	store   Store
	ch      chan Event
	dropped atomic.Int64
	written atomic.Int64
}

// NewWriter creates a writer with a buffer of size events.
func NewWriter(store Store, size int) *Writer {
	return &Writer{
		store: store,
		ch:    make(chan Event, max(1, size)),
	}
}

// Record enqueues an event. Reports false if it was dropped.
func (w *Writer) Record(e Event) bool {
	select {
	case w.ch <- e:
		return true
	default:
		w.dropped.Add(1)
		return false
	}
}

// Dropped returns how many events were discarded because the buffer was full.
func (w *Writer) Dropped() int64 {
	return w.dropped.Load()
}

// Written returns how many events reached the store.
func (w *Writer) Written() int64 {
	return w.written.Load()
}

// Run drains the buffer until ctx is cancelled, then flushes what is left.
func (w *Writer) Run(ctx context.Context) error {
	batch := make([]Event, 0, maxBatch)

	for {
		select {
		case <-ctx.Done():
			w.drain(batch[:0])
			return nil
		case e := <-w.ch:
			batch = append(batch[:0], e)
			batch = w.fill(batch)
			w.flush(ctx, batch)
		}
	}
}

// fill takes whatever is already buffered, up to maxBatch.
func (w *Writer) fill(batch []Event) []Event {
	for len(batch) < maxBatch {
		select {
		case e := <-w.ch:
			batch = append(batch, e)
		default:
			return batch
		}
	}
	return batch
}

func (w *Writer) drain(batch []Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for {
		batch = w.fill(batch[:0])
		if len(batch) == 0 {
			return
		}
		w.flush(ctx, batch)
	}
}

func (w *Writer) flush(ctx context.Context, batch []Event) {
	if err := w.store.Append(ctx, batch...); err != nil {
		slog.Warn("journal append failed", "events", len(batch), "error", err)
		return
	}
	w.written.Add(int64(len(batch)))
}
