package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/web3-frozen/yield-monitor/internal/metrics"
	"github.com/web3-frozen/yield-monitor/internal/monitor"
)

// DefiLlamaAPI is the public yields endpoint.
const DefiLlamaAPI = "https://yields.llama.fi/pools"

const defaultFetchTimeout = 15 * time.Second

// DefiLlama fetches the full pool list from the DefiLlama yields API.
type DefiLlama struct {
	client  *http.Client
	baseURL string
	logger  *slog.Logger
}

// NewDefiLlama creates a fetcher for baseURL. The timeout bounds the whole
// request, body included.
func NewDefiLlama(baseURL string, timeout time.Duration, logger *slog.Logger) *DefiLlama {
	if baseURL == "" {
		baseURL = DefiLlamaAPI
	}
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &DefiLlama{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		logger:  logger,
	}
}

func (d *DefiLlama) Name() string { return "defillama" }

type poolsResponse struct {
	Data *[]monitor.Pool `json:"data"`
}

// FetchAllPools returns every pool reported upstream. Any failure is logged
// and collapsed into an empty result.
func (d *DefiLlama) FetchAllPools(ctx context.Context) []monitor.Pool {
	start := time.Now()
	d.logger.Info("fetching pool data", "url", d.baseURL)

	pools, err := d.fetch(ctx)
	metrics.FetchDuration.WithLabelValues(d.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.FetchTotal.WithLabelValues(d.Name(), "error").Inc()
		d.logger.Warn("error fetching pool data", "error", err)
		return nil
	}
	metrics.FetchTotal.WithLabelValues(d.Name(), "ok").Inc()
	d.logger.Info("fetched pool data", "pools", len(pools))
	return pools
}

func (d *DefiLlama) fetch(ctx context.Context) ([]monitor.Pool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("defillama API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("defillama API status: %d", resp.StatusCode)
	}

	var body poolsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode defillama: %w", err)
	}
	if body.Data == nil {
		return nil, errors.New("defillama response has no data field")
	}

	out := make([]monitor.Pool, 0, len(*body.Data))
	for _, p := range *body.Data {
		if p.ID == "" {
			d.logger.Debug("skipping pool without id", "project", p.Project, "chain", p.Chain)
			continue
		}
		out = append(out, p)
	}
	return out, nil
}
