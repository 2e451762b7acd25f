package sessionguard

import (
	"fmt"
	"log/slog"

	"github.com/MrEthical07/sessionguard/internal/logging"
)

// Builder assembles a [Guard]. A Builder can be used for one Build call.
type Builder struct {
	config    Config
	provider  Provider
	navigator Navigator
	presenter Presenter
	logger    *slog.Logger
	auditSink AuditSink

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithProvider sets the remote session provider. Required.
func (b *Builder) WithProvider(p Provider) *Builder {
	b.provider = p
	return b
}

// WithNavigator sets the location reader/changer used for redirects. Required.
func (b *Builder) WithNavigator(n Navigator) *Builder {
	b.navigator = n
	return b
}

// WithPresenter sets the UI surface. Defaults to [NoopPresenter].
func (b *Builder) WithPresenter(p Presenter) *Builder {
	b.presenter = p
	return b
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// WithAuditSink enables audit dispatch into sink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	if sink != nil {
		b.config.Audit.Enabled = true
	}
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	if !enabled {
		b.config.Metrics.EnableLatencyHistograms = false
	}
	return b
}

// WithLatencyHistograms toggles the check latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, constructs the guard and registers its
// auth state listener with the provider. The returned Guard must be closed
// with [Guard.Close] to release that subscription.
func (b *Builder) Build() (*Guard, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}
	if b.provider == nil {
		return nil, ErrProviderRequired
	}
	if b.navigator == nil {
		return nil, ErrNavigatorRequired
	}
	if err := b.config.Validate(); err != nil {
		return nil, err
	}

	presenter := b.presenter
	if presenter == nil {
		presenter = NoopPresenter{}
	}

	logger := logging.Child(b.logger, "sessionguard")
	metrics := NewMetrics(b.config.Metrics)
	g := &Guard{
		config:    b.config,
		provider:  b.provider,
		navigator: b.navigator,
		presenter: presenter,
		logger:    logger,
		metrics:   metrics,
		audit:     newAuditDispatcher(b.config.Audit, b.auditSink, metrics, logger.With(slog.String("subsystem", "audit"))),
		sleep:     sleepContext,
	}

	sub, err := b.provider.OnAuthStateChange(g.handleAuthStateChange)
	if err != nil {
		g.Close()
		return nil, fmt.Errorf("%w: %w", ErrSubscriptionFailed, err)
	}
	g.subscription = sub

	b.built = true
	return g, nil
}
