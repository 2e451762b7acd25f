package cmd

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/MrEthical07/sessionguard/phrases"
	"github.com/spf13/cobra"
)

// osc52Clipboard copies through the terminal's OSC 52 escape sequence.
type osc52Clipboard struct {
	mu  sync.Mutex
	out io.Writer
}

func (c *osc52Clipboard) WriteText(_ context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.out, "\x1b]52;c;%s\a", base64.StdEncoding.EncodeToString([]byte(text)))
	return err
}

// withPhrases opens the runtime and a phrases client for the app server.
func withPhrases(cmd *cobra.Command, opts *globalOptions, fn func(ctx context.Context, rt *runtime, pc *phrases.Client) error) error {
	if strings.TrimSpace(opts.appURL) == "" {
		return errors.New("--app-url is required (env SESSIONGUARD_APP_URL)")
	}
	rt, err := openRuntime(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer logClose(rt.logger, rt)

	pc, err := phrases.NewClient(opts.appURL, nil, rt.guard, rt.presenter, rt.logger)
	if err != nil {
		return err
	}
	return fn(cmd.Context(), rt, pc)
}

func newFavoriteCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "favorite <phrase-id>",
		Short: "Toggle a phrase in your favourites",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPhrases(cmd, opts, func(ctx context.Context, rt *runtime, pc *phrases.Client) error {
				_, err := pc.ToggleFavorite(ctx, args[0])
				return err
			})
		},
	}
}

func newDeleteCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <phrase-id>",
		Short: "Delete a phrase from your collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPhrases(cmd, opts, func(ctx context.Context, rt *runtime, pc *phrases.Client) error {
				return pc.Delete(ctx, args[0])
			})
		},
	}
}

func newShareCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "share <phrase-id>",
		Short: "Copy a phrase to the terminal clipboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPhrases(cmd, opts, func(ctx context.Context, rt *runtime, pc *phrases.Client) error {
				p, err := pc.Get(ctx, args[0])
				if err != nil {
					return fmt.Errorf("get phrase: %w", err)
				}
				// A terminal has no share target, so Share falls back to the clipboard.
				s := phrases.NewSharing(&osc52Clipboard{out: cmd.OutOrStdout()}, nil, rt.presenter, rt.logger)
				s.URL = opts.appURL
				return s.Share(ctx, p.GeneratedPhrase)
			})
		},
	}
}

func newCountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count <text>",
		Short: "Check the length of an emotion description",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if err := phrases.ValidateEmotion(text); err != nil {
				return err
			}
			n := phrases.CountChars(text)
			fmt.Fprintf(cmd.OutOrStdout(), "%d characters (%s)\n", n, phrases.CounterLevel(n))
			return nil
		},
	}
}
