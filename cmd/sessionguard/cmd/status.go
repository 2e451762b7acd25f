package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/MrEthical07/sessionguard"
	"github.com/spf13/cobra"
)

type statusReport struct {
	Authenticated bool      `json:"authenticated"`
	UserID        string    `json:"user_id,omitempty"`
	Email         string    `json:"email,omitempty"`
	DisplayName   string    `json:"display_name"`
	ExpiresAt     time.Time `json:"expires_at,omitzero"`
	Error         string    `json:"error,omitempty"`
}

func newStatusCmd(opts *globalOptions) *cobra.Command {
	var asJSON bool

	c := &cobra.Command{
		Use:   "status",
		Short: "Check the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			rt, err := openRuntime(opts, out, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer logClose(rt.logger, rt)

			sess, checkErr := rt.guard.CheckSession(cmd.Context())
			report := buildStatus(sess, checkErr)

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				printStatus(cmd, report)
			}
			return checkErr
		},
	}
	c.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return c
}

func buildStatus(sess *sessionguard.Session, err error) statusReport {
	r := statusReport{DisplayName: displayName(nil)}
	if err != nil {
		r.Error = err.Error()
		return r
	}
	if sess == nil {
		return r
	}
	r.Authenticated = true
	r.ExpiresAt = sess.ExpiresAt
	r.DisplayName = displayName(sess.User)
	if sess.User != nil {
		r.UserID = sess.User.ID
		r.Email = sess.User.Email
	}
	return r
}

func printStatus(cmd *cobra.Command, r statusReport) {
	out := cmd.OutOrStdout()
	switch {
	case r.Error != "":
		fmt.Fprintf(out, "session check failed: %s\n", r.Error)
	case !r.Authenticated:
		fmt.Fprintln(out, "anonymous")
	default:
		fmt.Fprintf(out, "authenticated as %s", r.DisplayName)
		if r.Email != "" {
			fmt.Fprintf(out, " <%s>", r.Email)
		}
		if !r.ExpiresAt.IsZero() {
			fmt.Fprintf(out, ", token expires in %s", time.Until(r.ExpiresAt).Round(time.Second))
		}
		fmt.Fprintln(out)
	}
}

func displayName(u *sessionguard.User) string {
	if name := u.DisplayName(); name != "" {
		return name
	}
	return sessionguard.DefaultConfig().UI.AnonymousLabel
}
