package monitor

// Verdict is the outcome of comparing a pool's APY against the threshold.
type Verdict int

const (
	VerdictOK Verdict = iota
	VerdictAlert
)

func (v Verdict) String() string {
	if v == VerdictAlert {
		return "ALERT"
	}
	return "OK"
}

// Evaluate returns VerdictAlert when apy is at or above threshold.
func Evaluate(apy, threshold float64) Verdict {
	if apy >= threshold {
		return VerdictAlert
	}
	return VerdictOK
}
