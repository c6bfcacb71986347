package config

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

//go:embed defaults/blocks.json
var defaultBlocks []byte

// DefaultBlocks returns the bundled blocks.json.
func DefaultBlocks() []byte {
	out := make([]byte, len(defaultBlocks))
	copy(out, defaultBlocks)
	return out
}

// Bootstrap seeds path with the bundled blocks.json on first run.
// An existing file is never overwritten. Reports whether a file was written.
func Bootstrap(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("checking %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("creating config dir for %s: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return false, nil
		}
		return false, fmt.Errorf("creating %s: %w", path, err)
	}

	if _, err := f.Write(defaultBlocks); err != nil {
		_ = f.Close()
		return false, fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return false, fmt.Errorf("closing %s: %w", path, err)
	}

	slog.Info("seeded default block regen config", "path", path)
	return true, nil
}
