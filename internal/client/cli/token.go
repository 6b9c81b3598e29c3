package cli

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/omnidesk/internal/auth"
	"github.com/dmitrijs2005/omnidesk/internal/common"
	"github.com/spf13/cobra"
)

func newTokenCommand(r *runner) *cobra.Command {
	var (
		subject string
		email   string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token --subject <user-id>",
		Short: "Issue a bearer token signed with the configured secret",
		Args:  cobra.NoArgs,
		// Only the config is needed; no backend is opened.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return r.loadConfig(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			tok, err := auth.GenerateToken(subject, email, []byte(r.cfg.SecretKey), ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(r.out, tok)
			return err
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "user id, which is also the tenant")
	cmd.Flags().StringVar(&email, "email", "", "user email")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

func newWhoamiCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the user of the current token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, ok, err := r.app.session.CurrentUser(cmd.Context())
			if err != nil {
				return err
			}
			if !ok {
				return common.ErrUnauthenticated
			}
			return r.app.print(id)
		},
	}
}
