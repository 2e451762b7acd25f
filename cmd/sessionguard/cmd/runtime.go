package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/MrEthical07/sessionguard"
	"github.com/MrEthical07/sessionguard/internal/logging"
	"github.com/MrEthical07/sessionguard/provider/gotrue"
	"github.com/MrEthical07/sessionguard/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// runtime is everything one command invocation needs.
type runtime struct {
	logger    *slog.Logger
	store     session.Store
	client    *gotrue.Client
	guard     *sessionguard.Guard
	navigator *terminalNavigator
	presenter *terminalPresenter

	closers []func() error
}

func openRuntime(opts *globalOptions, out, errOut io.Writer) (*runtime, error) {
	logger, err := newLogger(errOut, opts.logLevel)
	if err != nil {
		return nil, err
	}
	rt := &runtime{logger: logger}

	store, closeStore, err := openStore(opts, logger)
	if err != nil {
		return nil, err
	}
	rt.store = store
	rt.closers = append(rt.closers, closeStore)

	cfg := gotrue.DefaultConfig()
	cfg.URL = opts.url
	cfg.APIKey = opts.apiKey
	client, err := gotrue.NewClient(cfg, store, gotrue.WithLogger(logger))
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("%w (set --url/--key or SUPABASE_URL/SUPABASE_KEY)", err)
	}
	rt.client = client

	guardCfg := sessionguard.DefaultConfig()
	guardCfg.Retry.MaxRetries = opts.maxRetries
	rt.navigator = newTerminalNavigator(out, opts.location)
	rt.presenter = newTerminalPresenter(out)

	g, err := sessionguard.New().
		WithConfig(guardCfg).
		WithProvider(client).
		WithNavigator(rt.navigator).
		WithPresenter(rt.presenter).
		WithLogger(logger).
		Build()
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	rt.guard = g
	rt.closers = append(rt.closers, func() error {
		g.Close()
		return nil
	})
	return rt, nil
}

// Close releases resources in reverse order of acquisition.
func (rt *runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

func openStore(opts *globalOptions, logger *slog.Logger) (session.Store, func() error, error) {
	switch opts.store {
	case "memory":
		return session.NewMemoryStore(), func() error { return nil }, nil

	case "bolt":
		if err := os.MkdirAll(opts.dataDir, 0o700); err != nil {
			return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		s, err := session.OpenBoltStore(filepath.Join(opts.dataDir, "session.db"), nil)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil

	case "redis":
		var (
			mr   *miniredis.Miniredis
			addr = opts.redisAddr
		)
		if addr == "" {
			var err error
			mr, err = miniredis.Run()
			if err != nil {
				return nil, nil, fmt.Errorf("failed to start embedded redis: %w", err)
			}
			addr = mr.Addr()
			logger.Warn("no redis address configured, using embedded redis; the session is lost on exit",
				slog.String("addr", addr))
		}
		rdb := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		closeFn := func() error {
			err := rdb.Close()
			if mr != nil {
				mr.Close()
			}
			return err
		}
		return session.NewRedisStore(rdb, "sessionguard", 0), closeFn, nil

	default:
		return nil, nil, fmt.Errorf("unknown --store %q (want bolt, redis or memory)", opts.store)
	}
}

func logClose(logger *slog.Logger, rt *runtime) {
	if err := rt.Close(); err != nil {
		logger.Warn("close runtime", logging.Error(err))
	}
}
