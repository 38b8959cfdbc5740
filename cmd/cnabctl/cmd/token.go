package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/boddenberg/pj-cobranca-go/internal/auth"

	"github.com/spf13/cobra"
)

func newTokenCmd(_ *options) *cobra.Command {
	var subject, cnpj string
	var ttl time.Duration

	c := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token for the HTTP API",
		Long:  `Signs an HS256 access token with $JWT_SECRET, for local testing.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := os.Getenv("JWT_SECRET")
			if secret == "" {
				return errors.New("JWT_SECRET is not set")
			}
			token, err := auth.NewVerifier(secret).Issue(subject, cnpj, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	c.Flags().StringVar(&subject, "sub", "cnabctl", "token subject")
	c.Flags().StringVar(&cnpj, "cnpj", "", "company document claim")
	c.Flags().DurationVar(&ttl, "ttl", tokenTTL, "token lifetime")
	return c
}
