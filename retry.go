package sessionguard

import (
	"context"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// retryableMarkers are matched against the case-folded error message.
var retryableMarkers = [...]string{"network", "timeout", "fetch", "connection"}

// IsRetryable reports whether err looks like a transient transport failure.
//
// Classification is by message only: the case-folded text of err must
// contain one of "network", "timeout", "fetch" or "connection". A nil error
// is not retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := cases.Fold().String(err.Error())
	for _, marker := range retryableMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// retryDelay is the wait before the retry numbered attempt (1-based).
// The schedule grows linearly: base, 2×base, 3×base.
func retryDelay(attempt int, base time.Duration) time.Duration {
	if attempt <= 0 || base <= 0 {
		return 0
	}
	return time.Duration(attempt) * base
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
