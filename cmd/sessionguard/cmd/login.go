package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/MrEthical07/sessionguard/loader"
	"github.com/spf13/cobra"
)

func newLoginCmd(opts *globalOptions) *cobra.Command {
	var (
		email    string
		password string
	)

	c := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			rt, err := openRuntime(opts, out, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer logClose(rt.logger, rt)

			ctx := cmd.Context()
			if rt.guard.IsAuthenticated(ctx) {
				fmt.Fprintf(out, "already signed in as %s\n", displayName(rt.guard.CurrentUser(ctx)))
				return nil
			}

			if email == "" {
				return errors.New("--email is required")
			}
			if password == "" {
				password, err = readSecret(cmd.InOrStdin(), out)
				if err != nil {
					return err
				}
			}

			display := &loaderDisplay{out: out}
			defer display.detach()
			ctrl, err := loader.New(loader.DefaultConfig(), display)
			if err != nil {
				return err
			}
			ctrl.Show()
			sess, err := rt.client.SignInWithPassword(ctx, email, password)
			if err != nil {
				ctrl.ShowError(err.Error())
				return fmt.Errorf("sign in: %w", err)
			}
			ctrl.Hide()

			fmt.Fprintf(out, "signed in as %s\n", displayName(sess.User))
			return nil
		},
	}

	c.Flags().StringVar(&email, "email", os.Getenv("SESSIONGUARD_EMAIL"), "account email (env SESSIONGUARD_EMAIL)")
	c.Flags().StringVar(&password, "password", os.Getenv("SESSIONGUARD_PASSWORD"), "account password; read from stdin when empty (env SESSIONGUARD_PASSWORD)")
	return c
}

func readSecret(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "password: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("empty password")
	}
	return line, nil
}
