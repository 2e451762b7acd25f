package sessionguard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/sessionguard/internal/logging"
	"golang.org/x/sync/singleflight"
)

// checkKey is the single singleflight slot; there is only one session to check.
const checkKey = "session"

// Guard coalesces and retries remote session checks and turns auth state
// transitions into redirect and identity-display side effects.
//
// Guard instances are built with [Builder.Build] and are safe for concurrent use.
type Guard struct {
	config    Config
	provider  Provider
	navigator Navigator
	presenter Presenter
	logger    *slog.Logger
	metrics   *Metrics
	audit     *auditDispatcher

	group      singleflight.Group
	inProgress atomic.Bool
	retryCount atomic.Int32

	subscription Subscription
	closeOnce    sync.Once
	closed       atomic.Bool

	sleep func(ctx context.Context, d time.Duration) error
}

// CheckSession returns the current session, or (nil, nil) when anonymous.
//
// At most one remote check runs at a time. A caller arriving while a check is
// in flight waits for that check and receives its result instead of issuing
// another remote call. The shared check is not cancelled when a caller's ctx
// ends; that caller returns ctx.Err() and the check completes for the rest.
func (g *Guard) CheckSession(ctx context.Context) (*Session, error) {
	if g == nil || g.provider == nil || g.closed.Load() {
		return nil, ErrGuardNotReady
	}
	if ctx == nil {
		ctx = context.Background()
	}
	g.metricInc(MetricCheckRequested)

	shared := context.WithoutCancel(ctx)
	ch := g.group.DoChan(checkKey, func() (interface{}, error) {
		return g.resolve(shared)
	})

	select {
	case res := <-ch:
		sess, _ := res.Val.(*Session)
		if res.Err != nil {
			return nil, res.Err
		}
		return sess, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// resolve runs one logical check: the first attempt plus up to MaxRetries
// retries of retryable failures.
func (g *Guard) resolve(ctx context.Context) (*Session, error) {
	g.inProgress.Store(true)
	g.metricInc(MetricCheckStarted)
	start := time.Now()
	defer func() {
		g.retryCount.Store(0)
		g.inProgress.Store(false)
		g.metrics.Observe(MetricCheckLatency, time.Since(start))
	}()

	maxRetries := g.config.Retry.MaxRetries
	for {
		sess, err := g.getSession(ctx)
		if err == nil {
			if sess != nil {
				g.metricInc(MetricCheckAuthenticated)
			} else {
				g.metricInc(MetricCheckAnonymous)
			}
			return sess, nil
		}

		retries := int(g.retryCount.Load())
		g.logger.Error("session check failed",
			logging.Error(err),
			slog.Int("retry", retries),
			slog.Int("max_retries", maxRetries),
		)

		if !IsRetryable(err) {
			g.metricInc(MetricCheckTerminalError)
			g.metricInc(MetricCheckFailure)
			g.emitAudit(ctx, auditEventCheckFailed, false, "", "", err, map[string]string{"reason": "terminal"})
			return nil, err
		}
		if retries >= maxRetries {
			g.metricInc(MetricCheckRetryExhausted)
			g.metricInc(MetricCheckFailure)
			g.emitAudit(ctx, auditEventCheckFailed, false, "", "", err, map[string]string{"reason": "retries_exhausted"})
			return nil, err
		}

		retries = int(g.retryCount.Add(1))
		delay := retryDelay(retries, g.config.Retry.BaseDelay)
		g.metricInc(MetricCheckRetry)
		g.logger.Info("retrying session check",
			slog.Int("retry", retries),
			slog.Int("max_retries", maxRetries),
			slog.Duration("delay", delay),
		)
		if err := g.sleep(ctx, delay); err != nil {
			g.metricInc(MetricCheckFailure)
			return nil, err
		}
	}
}

// getSession calls the provider, converting a provider panic into an error.
func (g *Guard) getSession(ctx context.Context) (sess *Session, err error) {
	defer func() {
		if r := recover(); r != nil {
			sess = nil
			err = fmt.Errorf("session provider panic: %v", r)
		}
	}()
	return g.provider.GetSession(ctx)
}

// IsAuthenticated reports whether CheckSession yields a session. Errors
// report false.
func (g *Guard) IsAuthenticated(ctx context.Context) bool {
	sess, err := g.CheckSession(ctx)
	return err == nil && sess != nil
}

// CurrentUser returns the session's user, or nil when anonymous or on error.
func (g *Guard) CurrentUser(ctx context.Context) *User {
	sess, err := g.CheckSession(ctx)
	if err != nil || sess == nil {
		return nil
	}
	return sess.User
}

// CheckState returns a snapshot of the in-flight flag and retry counter.
func (g *Guard) CheckState() CheckState {
	if g == nil {
		return CheckState{}
	}
	return CheckState{
		InProgress: g.inProgress.Load(),
		RetryCount: int(g.retryCount.Load()),
		MaxRetries: g.config.Retry.MaxRetries,
	}
}

// Config returns a copy of the guard's configuration.
func (g *Guard) Config() Config {
	if g == nil {
		return Config{}
	}
	return g.config
}

// MetricsSnapshot returns the current guard metrics.
func (g *Guard) MetricsSnapshot() MetricsSnapshot {
	if g == nil || g.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return g.metrics.Snapshot()
}

// AuditDropped returns the number of audit events that never reached the
// sink. It stays 0 when metrics are disabled.
func (g *Guard) AuditDropped() uint64 {
	if g == nil {
		return 0
	}
	return g.metrics.Value(MetricAuditDropped)
}

// Close releases the auth state subscription and flushes pending audit
// events for at most Config.Audit.FlushTimeout. Close is idempotent; a
// closed guard rejects further checks.
func (g *Guard) Close() {
	if g == nil {
		return
	}
	g.closeOnce.Do(func() {
		g.closed.Store(true)
		if g.subscription != nil {
			g.subscription.Unsubscribe()
		}
		if g.audit != nil {
			ctx, cancel := context.WithTimeout(context.Background(), g.config.Audit.FlushTimeout)
			defer cancel()
			if err := g.audit.Close(ctx); err != nil {
				g.logger.Warn("audit events lost on close",
					slog.Uint64("dropped_total", g.AuditDropped()),
					logging.Error(err),
				)
			}
		}
	})
}

func (g *Guard) metricInc(id MetricID) {
	if g == nil || g.metrics == nil {
		return
	}
	g.metrics.Inc(id)
}
