package backtest

import "fmt"

// DrawdownBreaker halts a replay once the drawdown from the running peak
// reaches a configured limit. A nil limit never trips.
type DrawdownBreaker struct {
	limitPct *float64
	tripped  bool
	reason   string
}

// NewDrawdownBreaker creates a breaker for limitPct, expressed in percent
func NewDrawdownBreaker(limitPct *float64) *DrawdownBreaker {
	return &DrawdownBreaker{limitPct: limitPct}
}

// Check trips the breaker when drawdownPct has reached the limit and
// reports whether trading must stop. Once tripped it stays open.
func (b *DrawdownBreaker) Check(drawdownPct float64) bool {
	if b.tripped {
		return true
	}
	if b.limitPct == nil || *b.limitPct <= 0 {
		return false
	}
	if drawdownPct >= *b.limitPct {
		b.tripped = true
		b.reason = fmt.Sprintf("drawdown %.2f%% reached limit %.2f%%", drawdownPct, *b.limitPct)
	}
	return b.tripped
}

// IsOpen reports whether the breaker has tripped
func (b *DrawdownBreaker) IsOpen() bool {
	return b.tripped
}

// Reason describes why the breaker tripped
func (b *DrawdownBreaker) Reason() string {
	return b.reason
}

// Limit returns the configured limit, or 0 when disabled
func (b *DrawdownBreaker) Limit() float64 {
	if b.limitPct == nil {
		return 0
	}
	return *b.limitPct
}
