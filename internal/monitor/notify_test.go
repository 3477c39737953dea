package monitor

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestFormatNum(t *testing.T) {
	tests := []struct {
		input float64
		want  string
	}{
		{0.00123, "0.0012"},
		{0.5, "0.5000"},
		{999.99, "999.9900"},
		{1000, "1,000.00"},
		{1234.56, "1,234.56"},
		{12345.67, "12,345.67"},
		{123456.78, "123,456.78"},
		{999999.99, "999,999.99"},
		{1000000, "1.00M"},
		{1500000, "1.50M"},
		{123456789, "123.46M"},
	}
	for _, tt := range tests {
		got := formatNum(tt.input)
		if got != tt.want {
			t.Errorf("formatNum(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestAddCommas(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"0", "0"},
		{"100", "100"},
		{"1000", "1,000"},
		{"1234567", "1,234,567"},
		{"1000.50", "1,000.50"},
		{"12345678.99", "12,345,678.99"},
	}
	for _, tt := range tests {
		got := addCommas(tt.input)
		if got != tt.want {
			t.Errorf("addCommas(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestConsoleNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewConsoleNotifier(&buf)
	if err := n.Notify(context.Background(), Alert{PoolID: "p1", APY: 6.1, Threshold: 5}); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	want := "ALERT: High Yield Detected! Pool: p1 | APY: 6.10% >= Threshold: 5.00%\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestMultiNotifier(t *testing.T) {
	var calls []string
	ok := NotifierFunc(func(_ context.Context, a Alert) error {
		calls = append(calls, "ok:"+a.PoolID)
		return nil
	})
	fail := NotifierFunc(func(_ context.Context, a Alert) error {
		calls = append(calls, "fail:"+a.PoolID)
		return errors.New("boom")
	})

	err := MultiNotifier{fail, ok}.Notify(context.Background(), Alert{PoolID: "p"})
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("err = %v, want boom", err)
	}
	if len(calls) != 2 {
		t.Errorf("calls = %v, want both notifiers called", calls)
	}
}

func TestFormatAlert(t *testing.T) {
	msg := FormatAlert(Alert{PoolID: "p1", Project: "aave-v3", Chain: "Ethereum", Symbol: "USDC", APY: 6.1, Threshold: 5, TVLUSD: 1e9})
	for _, want := range []string{"p1", "aave-v3", "Ethereum", "USDC", "6.10%", "5.00%", "$1000.00M"} {
		if !strings.Contains(msg, want) {
			t.Errorf("FormatAlert missing %q in %q", want, msg)
		}
	}
}
