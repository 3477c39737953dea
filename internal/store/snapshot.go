package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/web3-frozen/yield-monitor/internal/monitor"
)

// JSONSnapshotter overwrites a single JSON file with the latest selection.
// The file is written to <path>.tmp and renamed into place.
type JSONSnapshotter struct {
	path string
}

func NewJSONSnapshotter(path string) *JSONSnapshotter {
	return &JSONSnapshotter{path: path}
}

// Path returns the snapshot file location.
func (s *JSONSnapshotter) Path() string { return s.path }

// Provision creates the export directory.
func (s *JSONSnapshotter) Provision() error {
	return ensureDir(s.path)
}

// WriteAll replaces the snapshot with the pool_id → record mapping.
func (s *JSONSnapshotter) WriteAll(_ context.Context, sel monitor.Selection) error {
	if sel == nil {
		sel = monitor.Selection{}
	}
	return s.write(sel)
}

// WriteOne replaces the snapshot with a single pool record.
func (s *JSONSnapshotter) WriteOne(_ context.Context, p monitor.Pool) error {
	return s.write(p)
}

func (s *JSONSnapshotter) write(v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	data = append(data, '\n')

	if err := ensureDir(s.path); err != nil {
		return err
	}
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot tmp: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}
