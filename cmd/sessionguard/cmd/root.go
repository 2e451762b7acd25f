package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

type globalOptions struct {
	url        string
	apiKey     string
	appURL     string
	store      string
	dataDir    string
	redisAddr  string
	location   string
	logLevel   string
	maxRetries int
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "sessionguard",
		Short: "Inspect and drive a Supabase Auth session from the terminal",
		Long: `sessionguard signs in against a Supabase Auth (GoTrue) backend, keeps the
session in a local store and runs the same coalesced, retried session
checks and redirect guards a browser client would.`,
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.SetErr(errOut)

	f := root.PersistentFlags()
	f.StringVar(&opts.url, "url", os.Getenv("SUPABASE_URL"), "Supabase project URL (env SUPABASE_URL)")
	f.StringVar(&opts.apiKey, "key", os.Getenv("SUPABASE_KEY"), "Supabase anon key (env SUPABASE_KEY)")
	f.StringVar(&opts.appURL, "app-url", os.Getenv("SESSIONGUARD_APP_URL"), "phrase app server URL (env SESSIONGUARD_APP_URL)")
	f.StringVar(&opts.store, "store", envOr("SESSIONGUARD_STORE", "bolt"), "session store: bolt, redis or memory")
	f.StringVar(&opts.dataDir, "data-dir", envOr("SESSIONGUARD_DATA_DIR", defaultDataDir()), "directory for the bolt session file")
	f.StringVar(&opts.redisAddr, "redis-addr", os.Getenv("REDIS_ADDR"), "redis address; empty starts an embedded redis (env REDIS_ADDR)")
	f.StringVar(&opts.location, "location", "/", "location the guard starts at")
	f.StringVar(&opts.logLevel, "log-level", envOr("SESSIONGUARD_LOG_LEVEL", "warn"), "log level: debug, info, warn or error")
	f.IntVar(&opts.maxRetries, "max-retries", 3, "retries for network failures during a session check")

	root.AddCommand(
		newLoginCmd(opts),
		newLogoutCmd(opts),
		newStatusCmd(opts),
		newWatchCmd(opts),
		newFavoriteCmd(opts),
		newDeleteCmd(opts),
		newShareCmd(opts),
		newCountCmd(),
	)
	return root
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir + string(os.PathSeparator) + "sessionguard"
	}
	return "./data"
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q", level)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}
