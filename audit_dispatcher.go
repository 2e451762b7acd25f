package sessionguard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/MrEthical07/sessionguard/internal/logging"
)

// auditDispatcher moves guard audit events off the check and redirect paths
// into a single sink worker. Drops and sink failures are counted in the
// guard's Metrics.
type auditDispatcher struct {
	cfg     AuditConfig
	sink    AuditSink
	metrics *Metrics
	logger  *slog.Logger

	queue chan AuditEvent
	// sinkCtx is handed to every sink call and cancelled when a flush is
	// abandoned, which unblocks sinks that honor it.
	sinkCtx    context.Context
	cancelSink context.CancelFunc
	closing    chan struct{}
	stopped    chan struct{}

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink, metrics *Metrics, logger *slog.Logger) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	sinkCtx, cancel := context.WithCancel(context.Background())
	d := &auditDispatcher{
		cfg:        cfg,
		sink:       sink,
		metrics:    metrics,
		logger:     logging.DefaultIfNil(logger),
		queue:      make(chan AuditEvent, cfg.BufferSize),
		sinkCtx:    sinkCtx,
		cancelSink: cancel,
		closing:    make(chan struct{}),
		stopped:    make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *auditDispatcher) run() {
	defer close(d.stopped)

	for {
		select {
		case event := <-d.queue:
			d.deliver(event)
		case <-d.closing:
			d.flush()
			return
		}
	}
}

// flush delivers what is still queued.
func (d *auditDispatcher) flush() {
	for {
		select {
		case event := <-d.queue:
			d.deliver(event)
		default:
			return
		}
	}
}

// deliver hands event to the sink. Once a flush is abandoned, events still
// queued are counted as dropped instead.
func (d *auditDispatcher) deliver(event AuditEvent) {
	if d.sinkCtx.Err() != nil {
		d.drop(event, "flush abandoned")
		return
	}
	if err := d.sink.Emit(d.sinkCtx, event); err != nil {
		d.metrics.Inc(MetricAuditSinkError)
		d.logger.Warn("audit sink failed",
			slog.String("event_id", event.ID),
			slog.String("event_type", event.EventType),
			logging.Error(err),
		)
	}
}

func (d *auditDispatcher) drop(event AuditEvent, reason string) {
	d.metrics.Inc(MetricAuditDropped)
	d.logger.Debug("audit event dropped",
		slog.String("event_type", event.EventType),
		slog.String("reason", reason),
	)
}

// Emit enqueues event. With DropIfFull a full buffer drops the event;
// otherwise Emit waits for room until ctx ends or the dispatcher closes,
// and an event that never got in is dropped.
func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.cfg.DropIfFull {
		select {
		case d.queue <- event:
		case <-d.closing:
		default:
			d.drop(event, "buffer full")
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.drop(event, "caller cancelled")
	case <-d.closing:
	}
}

// Close stops intake and flushes the queue into the sink. If ctx ends first
// the sink context is cancelled, the remaining events are dropped and Close
// returns without waiting for the worker. Later calls return the first
// result.
func (d *auditDispatcher) Close(ctx context.Context) error {
	if d == nil {
		return nil
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.closing)
		select {
		case <-d.stopped:
		case <-ctx.Done():
			d.closeErr = fmt.Errorf("audit flush: %w", ctx.Err())
		}
		d.cancelSink()
	})
	return d.closeErr
}
