package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
)

// Notifier delivers an alert to some channel.
type Notifier interface {
	Notify(ctx context.Context, a Alert) error
}

// NotifierFunc adapts a plain function to Notifier.
type NotifierFunc func(ctx context.Context, a Alert) error

func (f NotifierFunc) Notify(ctx context.Context, a Alert) error { return f(ctx, a) }

// ConsoleNotifier writes a one-line notice per alert.
type ConsoleNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsoleNotifier(w io.Writer) *ConsoleNotifier {
	return &ConsoleNotifier{w: w}
}

func (c *ConsoleNotifier) Notify(_ context.Context, a Alert) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.w, "ALERT: High Yield Detected! Pool: %s | APY: %.2f%% >= Threshold: %.2f%%\n",
		a.PoolID, a.APY, a.Threshold)
	return err
}

// MultiNotifier fans an alert out to every notifier and joins their errors.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, a Alert) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FormatAlert renders an alert as a chat message.
func FormatAlert(a Alert) string {
	return fmt.Sprintf("🚨 HIGH YIELD ALERT\n\n"+
		"Pool:      %s\n"+
		"Project:   %s\n"+
		"Chain:     %s\n"+
		"Asset:     %s\n"+
		"APY:       %.2f%% (threshold %.2f%%)\n"+
		"TVL:       $%s\n\n"+
		"🔗 https://defillama.com/yields/pool/%s",
		a.PoolID,
		a.Project,
		a.Chain,
		a.Symbol,
		a.APY,
		a.Threshold,
		formatNum(a.TVLUSD),
		a.PoolID)
}

func formatNum(v float64) string {
	if v >= 1_000_000 {
		return fmt.Sprintf("%.2fM", v/1_000_000)
	}
	if v >= 1_000 {
		return addCommas(fmt.Sprintf("%.2f", math.Round(v*100)/100))
	}
	return fmt.Sprintf("%.4f", v)
}

func addCommas(s string) string {
	parts := strings.SplitN(s, ".", 2)
	intPart := parts[0]
	n := len(intPart)
	if n <= 3 {
		if len(parts) == 2 {
			return intPart + "." + parts[1]
		}
		return intPart
	}
	var result []byte
	for i, c := range intPart {
		if i > 0 && (n-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, byte(c))
	}
	if len(parts) == 2 {
		return string(result) + "." + parts[1]
	}
	return string(result)
}
