package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// Export writes every event as zstd-compressed JSON lines, oldest first.
// Returns the number of events written.
func Export(ctx context.Context, store Store, w io.Writer) (int, error) {
	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return 0, fmt.Errorf("creating zstd writer: %w", err)
	}

	enc := json.NewEncoder(zw)
	n := 0
	err = store.Each(ctx, func(e Event) error {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("encoding event %s: %w", e.ID, err)
		}
		n++
		return nil
	})
	if err != nil {
		_ = zw.Close()
		return n, err
	}

	if err := zw.Close(); err != nil {
		return n, fmt.Errorf("closing zstd writer: %w", err)
	}
	return n, nil
}

// ReadExport decodes an Export stream.
func ReadExport(r io.Reader, fn func(Event) error) error {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return fmt.Errorf("creating zstd reader: %w", err)
	}
	defer zr.Close()

	dec := json.NewDecoder(zr)
	for {
		var e Event
		if err := dec.Decode(&e); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("decoding event: %w", err)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
}
