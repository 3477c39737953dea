package monitor

import (
	"log/slog"
	"strings"
)

// Selector narrows the full upstream pool list down to the pools being tracked.
type Selector interface {
	Select(pools []Pool) Selection
}

// AllowList selects pools by explicit id. Ids missing from the fetch are
// logged and skipped.
type AllowList struct {
	IDs    []string
	Logger *slog.Logger
}

func (a *AllowList) Select(pools []Pool) Selection {
	lookup := make(map[string]Pool, len(pools))
	for _, p := range pools {
		lookup[p.ID] = p
	}

	out := make(Selection, len(a.IDs))
	for _, id := range a.IDs {
		p, ok := lookup[id]
		if !ok {
			logger(a.Logger).Warn("target pool not found", "pool_id", id)
			continue
		}
		out[id] = p
	}
	return out
}

// SingleMatch selects the first pool whose chain and id both equal the target.
type SingleMatch struct {
	Chain  string
	PoolID string
	Logger *slog.Logger
}

func (s *SingleMatch) Select(pools []Pool) Selection {
	for _, p := range pools {
		if p.Chain == s.Chain && p.ID == s.PoolID {
			return Selection{p.ID: p}
		}
	}
	logger(s.Logger).Warn("target pool not found", "pool_id", s.PoolID, "chain", s.Chain)
	return Selection{}
}

// SinglePool reports that the snapshot holds one record rather than a map.
func (s *SingleMatch) SinglePool() bool { return true }

// Predicate selects every pool whose project contains Project and whose
// symbol contains at least one of Assets. Matching is case-insensitive and
// an empty asset list matches nothing.
type Predicate struct {
	Project string
	Assets  []string
}

func (f *Predicate) Select(pools []Pool) Selection {
	out := make(Selection)
	if len(f.Assets) == 0 {
		return out
	}
	project := strings.ToLower(f.Project)
	assets := make([]string, len(f.Assets))
	for i, a := range f.Assets {
		assets[i] = strings.ToLower(a)
	}

	for _, p := range pools {
		if !strings.Contains(strings.ToLower(p.Project), project) {
			continue
		}
		if containsAny(strings.ToLower(p.Symbol), assets) {
			out[p.ID] = p
		}
	}
	return out
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
