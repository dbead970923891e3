package worker

import "time"

// calculateRetryDelay computes the deterministic backoff of spec.md §4.6:
// delay_n = base_delay_seconds * multiplier^(n-1), n = the new retry count.
//
// REDESIGNED from the teacher's calculateRetryDelay, which draws a
// crypto/rand full-jitter sample on top of the same exponential shape —
// dropped here because spec.md §8's boundary tests require scheduled_at to
// advance as a pure function of retry_count (see DESIGN.md).
func calculateRetryDelay(n int, baseDelay time.Duration, multiplier float64) time.Duration {
	if n < 1 {
		n = 1
	}
	factor := 1.0
	for i := 1; i < n; i++ {
		factor *= multiplier
	}
	return time.Duration(float64(baseDelay) * factor)
}
