package store

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/web3-frozen/yield-monitor/internal/monitor"
)

// CSVHeader is the column order of the history log.
var CSVHeader = []string{"timestamp", "pool_id", "chain", "asset_symbol", "apy", "project", "tvl_usd"}

const lockRetryDelay = 50 * time.Millisecond

// CSVRecorder appends history rows to a CSV file, writing the header only
// when the file is first created. Appends take an advisory lock on
// <path>.lock so processes on the same host do not interleave rows.
type CSVRecorder struct {
	path string
	mu   sync.Mutex
}

func NewCSVRecorder(path string) *CSVRecorder {
	return &CSVRecorder{path: path}
}

func (r *CSVRecorder) Name() string { return "csv" }

// Path returns the log file location.
func (r *CSVRecorder) Path() string { return r.path }

// Provision creates the log directory.
func (r *CSVRecorder) Provision() error {
	return ensureDir(r.path)
}

// Append writes entries after any existing rows. An empty batch is a no-op
// and does not create the file.
func (r *CSVRecorder) Append(ctx context.Context, entries []monitor.LogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := ensureDir(r.path); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	fl := flock.New(r.path + ".lock")
	if _, err := fl.TryLockContext(ctx, lockRetryDelay); err != nil {
		return fmt.Errorf("lock log file: %w", err)
	}
	defer fl.Unlock() //nolint:errcheck

	file, err := os.OpenFile(r.path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	st, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat log file: %w", err)
	}
	writeHeader := st.Size() == 0
	if !writeHeader {
		if err := terminateLastRow(file, st.Size()); err != nil {
			return err
		}
	}

	w := csv.NewWriter(file)
	if writeHeader {
		if err := w.Write(CSVHeader); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	for _, e := range entries {
		if err := w.Write(csvRow(e)); err != nil {
			return fmt.Errorf("write log row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush log file: %w", err)
	}
	return file.Sync()
}

// terminateLastRow adds the newline missing after a row cut short by a crash,
// so the next row starts on its own line.
func terminateLastRow(f *os.File, size int64) error {
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, size-1); err != nil {
		return fmt.Errorf("read log tail: %w", err)
	}
	if last[0] == '\n' {
		return nil
	}
	if _, err := f.Write([]byte{'\n'}); err != nil {
		return fmt.Errorf("terminate partial row: %w", err)
	}
	return nil
}

func csvRow(e monitor.LogEntry) []string {
	return []string{
		e.Timestamp.Format(monitor.TimestampLayout),
		e.PoolID,
		e.Chain,
		e.Symbol,
		strconv.FormatFloat(e.APY, 'f', -1, 64),
		e.Project,
		strconv.FormatFloat(e.TVLUSD, 'f', -1, 64),
	}
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}
	return nil
}
