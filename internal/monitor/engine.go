package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/web3-frozen/yield-monitor/internal/metrics"
)

// State is a step of a single pipeline run.
type State string

const (
	StateInit         State = "INIT"
	StateFetching     State = "FETCHING"
	StateSelecting    State = "SELECTING"
	StateRecording    State = "RECORDING"
	StateSnapshotting State = "SNAPSHOTTING"
	StateEvaluating   State = "EVALUATING"
	StateDone         State = "DONE"
	StateAborted      State = "ABORTED"
)

// Abort reasons reported in Result.Reason.
const (
	ReasonNoData      = "no_pool_data"
	ReasonNoSelection = "no_pools_selected"
	ReasonStorage     = "storage_error"
	ReasonLocked      = "lock_unavailable"
)

// Fetcher returns the full upstream pool list, or an empty list on failure.
type Fetcher interface {
	FetchAllPools(ctx context.Context) []Pool
}

// Recorder appends history rows to a durable log.
type Recorder interface {
	Name() string
	Append(ctx context.Context, entries []LogEntry) error
}

// Snapshotter replaces the latest-state resource.
type Snapshotter interface {
	WriteAll(ctx context.Context, sel Selection) error
	WriteOne(ctx context.Context, p Pool) error
}

// RunLock serializes runs that share the same storage targets.
type RunLock interface {
	Acquire(ctx context.Context) (release func(), err error)
}

// Deps are the collaborators of an Engine. Lock and Notifier are optional.
// Mirrors receive the same rows as Recorders once alerts are out; a mirror
// failure is logged and does not change the run outcome.
type Deps struct {
	Fetcher     Fetcher
	Selector    Selector
	Recorders   []Recorder
	Mirrors     []Recorder
	Snapshotter Snapshotter
	Notifier    Notifier
	Lock        RunLock
}

// Result describes how one run ended.
type Result struct {
	RunID      string    `json:"run_id"`
	State      State     `json:"state"`
	Reason     string    `json:"reason,omitempty"`
	Fetched    int       `json:"fetched"`
	Selected   Selection `json:"selected"`
	Alerts     []Alert   `json:"alerts"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Aborted reports whether the run stopped before DONE.
func (r *Result) Aborted() bool { return r.State == StateAborted }

// Engine runs the fetch → select → record/snapshot/evaluate pipeline.
type Engine struct {
	deps      Deps
	threshold float64
	logger    *slog.Logger
	now       func() time.Time

	runMu sync.Mutex // one run at a time

	mu   sync.RWMutex
	last *Result
}

func NewEngine(deps Deps, threshold float64, logger *slog.Logger) *Engine {
	if deps.Notifier == nil {
		deps.Notifier = MultiNotifier{}
	}
	return &Engine{
		deps:      deps,
		threshold: threshold,
		logger:    logger,
		now:       time.Now,
	}
}

// Threshold returns the configured alert bound in percent.
func (e *Engine) Threshold() float64 { return e.threshold }

// LastResult returns the outcome of the most recent run, or nil.
func (e *Engine) LastResult() *Result {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.last
}

// Run executes the pipeline immediately and then on every interval tick
// until ctx is cancelled.
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	e.runLogged(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.runLogged(ctx)
		}
	}
}

func (e *Engine) runLogged(ctx context.Context) {
	if _, err := e.RunOnce(ctx); err != nil {
		e.logger.Error("run failed", "error", err)
	}
}

// RunOnce performs a single pass. Empty fetches and empty selections end in
// StateAborted with a nil error; storage and lock failures return an error.
func (e *Engine) RunOnce(ctx context.Context) (*Result, error) {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	res := &Result{
		RunID:     uuid.NewString(),
		State:     StateInit,
		Selected:  Selection{},
		StartedAt: e.now(),
	}
	log := e.logger.With("run_id", res.RunID)

	err := e.run(ctx, res, log)

	res.FinishedAt = e.now()
	metrics.RunsTotal.WithLabelValues(string(res.State), res.Reason).Inc()
	if res.State == StateDone {
		metrics.RunLastSuccess.SetToCurrentTime()
	}
	log.Info("run finished",
		"state", res.State,
		"reason", res.Reason,
		"selected", len(res.Selected),
		"alerts", len(res.Alerts),
		"duration", res.FinishedAt.Sub(res.StartedAt).String())

	e.mu.Lock()
	e.last = res
	e.mu.Unlock()

	return res, err
}

func (e *Engine) run(ctx context.Context, res *Result, log *slog.Logger) error {
	if err := e.provision(); err != nil {
		e.abort(res, ReasonStorage, "provision")
		return err
	}

	if e.deps.Lock != nil {
		release, err := e.deps.Lock.Acquire(ctx)
		if err != nil {
			e.abort(res, ReasonLocked, "")
			return fmt.Errorf("acquire run lock: %w", err)
		}
		defer release()
	}

	e.enter(res, StateFetching, log)
	pools := e.deps.Fetcher.FetchAllPools(ctx)
	res.Fetched = len(pools)
	metrics.PoolsFetched.Set(float64(len(pools)))
	if len(pools) == 0 {
		log.Warn("failed to get pool data, skipping run")
		e.abort(res, ReasonNoData, "")
		return nil
	}

	e.enter(res, StateSelecting, log)
	sel := e.deps.Selector.Select(pools)
	metrics.PoolsSelected.Set(float64(len(sel)))
	if len(sel) == 0 {
		log.Warn("no target pools found, check the selection config", "fetched", len(pools))
		e.abort(res, ReasonNoSelection, "")
		return nil
	}
	res.Selected = sel
	ids := sel.IDs()
	sort.Strings(ids)

	e.enter(res, StateRecording, log)
	ts := e.now()
	entries := make([]LogEntry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, NewLogEntry(sel[id], ts))
	}
	for _, r := range e.deps.Recorders {
		if err := r.Append(ctx, entries); err != nil {
			e.abort(res, ReasonStorage, "record")
			return fmt.Errorf("%s recorder: %w", r.Name(), err)
		}
		metrics.LogRowsWritten.WithLabelValues(r.Name()).Add(float64(len(entries)))
		log.Info("logged pool entries", "recorder", r.Name(), "count", len(entries))
	}

	e.enter(res, StateSnapshotting, log)
	if err := e.writeSnapshot(ctx, sel, ids); err != nil {
		e.abort(res, ReasonStorage, "snapshot")
		return fmt.Errorf("write snapshot: %w", err)
	}
	log.Info("exported latest pool data", "count", len(sel))

	e.enter(res, StateEvaluating, log)
	for _, id := range ids {
		e.evaluate(ctx, res, sel[id], ts, log)
	}

	e.mirror(ctx, entries, log)

	e.enter(res, StateDone, log)
	return nil
}

func (e *Engine) mirror(ctx context.Context, entries []LogEntry, log *slog.Logger) {
	for _, m := range e.deps.Mirrors {
		if err := m.Append(ctx, entries); err != nil {
			metrics.StorageErrorsTotal.WithLabelValues("mirror").Inc()
			log.Error("mirror append failed", "mirror", m.Name(), "error", err)
			continue
		}
		metrics.LogRowsWritten.WithLabelValues(m.Name()).Add(float64(len(entries)))
	}
}

func (e *Engine) writeSnapshot(ctx context.Context, sel Selection, ids []string) error {
	if e.deps.Snapshotter == nil {
		return nil
	}
	type singlePool interface {
		SinglePool() bool
	}
	if s, ok := e.deps.Selector.(singlePool); ok && s.SinglePool() && len(ids) == 1 {
		return e.deps.Snapshotter.WriteOne(ctx, sel[ids[0]])
	}
	return e.deps.Snapshotter.WriteAll(ctx, sel)
}

func (e *Engine) evaluate(ctx context.Context, res *Result, p Pool, ts time.Time, log *slog.Logger) {
	metrics.PoolAPY.WithLabelValues(p.ID, p.Chain, p.Project).Set(p.APY)
	metrics.PoolTVL.WithLabelValues(p.ID, p.Chain, p.Project).Set(p.TVLUSD)

	if Evaluate(p.APY, e.threshold) != VerdictAlert {
		log.Info("pool below threshold", "pool_id", p.ID, "apy", p.APY, "threshold", e.threshold)
		return
	}

	a := Alert{
		PoolID:    p.ID,
		Chain:     p.Chain,
		Project:   p.Project,
		Symbol:    p.Symbol,
		APY:       p.APY,
		TVLUSD:    p.TVLUSD,
		Threshold: e.threshold,
		At:        ts,
	}
	res.Alerts = append(res.Alerts, a)
	log.Warn("high yield detected", "pool_id", p.ID, "apy", p.APY, "threshold", e.threshold)

	if err := e.deps.Notifier.Notify(ctx, a); err != nil {
		metrics.AlertsFailedTotal.WithLabelValues(p.ID).Inc()
		log.Error("send alert failed", "pool_id", p.ID, "error", err)
		return
	}
	metrics.AlertsSentTotal.WithLabelValues(p.ID).Inc()
}

func (e *Engine) provision() error {
	type provisioner interface {
		Provision() error
	}
	targets := make([]any, 0, len(e.deps.Recorders)+len(e.deps.Mirrors)+1)
	for _, r := range e.deps.Recorders {
		targets = append(targets, r)
	}
	for _, m := range e.deps.Mirrors {
		targets = append(targets, m)
	}
	targets = append(targets, e.deps.Snapshotter)
	for _, t := range targets {
		if p, ok := t.(provisioner); ok {
			if err := p.Provision(); err != nil {
				return fmt.Errorf("provision storage: %w", err)
			}
		}
	}
	return nil
}

func (e *Engine) enter(res *Result, s State, log *slog.Logger) {
	log.Debug("state transition", "from", res.State, "to", s)
	res.State = s
}

func (e *Engine) abort(res *Result, reason, stage string) {
	res.State = StateAborted
	res.Reason = reason
	if stage != "" {
		metrics.StorageErrorsTotal.WithLabelValues(stage).Inc()
	}
}
