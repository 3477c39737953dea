package monitor

import (
	"encoding/json"
	"time"
)

// TimestampLayout is the ISO-8601 layout used for log entry timestamps.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// Pool is one yield pool as reported by the upstream aggregator.
type Pool struct {
	ID      string  `json:"pool"`
	Project string  `json:"project"`
	Chain   string  `json:"chain"`
	Symbol  string  `json:"symbol"`
	APY     float64 `json:"apy"`
	TVLUSD  float64 `json:"tvlUsd"`

	// raw is the upstream object exactly as received, unknown fields included.
	raw json.RawMessage
}

// UnmarshalJSON decodes the known fields and keeps the raw object so the
// snapshot can reproduce the upstream record. Null or missing apy/tvlUsd
// decode to 0.
func (p *Pool) UnmarshalJSON(data []byte) error {
	type plain Pool
	var v struct {
		plain
		APY    *float64 `json:"apy"`
		TVLUSD *float64 `json:"tvlUsd"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = Pool(v.plain)
	if v.APY != nil {
		p.APY = *v.APY
	}
	if v.TVLUSD != nil {
		p.TVLUSD = *v.TVLUSD
	}
	p.raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON writes the upstream object when one was decoded, otherwise
// the known fields.
func (p Pool) MarshalJSON() ([]byte, error) {
	if len(p.raw) > 0 {
		return p.raw, nil
	}
	type plain Pool
	return json.Marshal(plain(p))
}

// Selection maps pool id to the selected pool.
type Selection map[string]Pool

// IDs returns the pool ids of the selection in no particular order.
func (s Selection) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	return ids
}

// LogEntry is one row of the APY history log.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	PoolID    string    `json:"pool_id"`
	Chain     string    `json:"chain"`
	Symbol    string    `json:"symbol"`
	APY       float64   `json:"apy"`
	Project   string    `json:"project"`
	TVLUSD    float64   `json:"tvl_usd"`
}

// NewLogEntry builds the history row for p observed at ts.
func NewLogEntry(p Pool, ts time.Time) LogEntry {
	return LogEntry{
		Timestamp: ts,
		PoolID:    p.ID,
		Chain:     p.Chain,
		Symbol:    p.Symbol,
		APY:       p.APY,
		Project:   p.Project,
		TVLUSD:    p.TVLUSD,
	}
}

// Alert describes a pool whose APY reached the configured threshold.
type Alert struct {
	PoolID    string    `json:"pool_id"`
	Chain     string    `json:"chain"`
	Project   string    `json:"project"`
	Symbol    string    `json:"symbol"`
	APY       float64   `json:"apy"`
	TVLUSD    float64   `json:"tvl_usd"`
	Threshold float64   `json:"threshold"`
	At        time.Time `json:"at"`
}
