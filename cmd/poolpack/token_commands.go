package main

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"poolpack/internal/archive"
	"poolpack/internal/tokens"
)

func newTokenCommand(ctx *commandContext) *cobra.Command {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Issue and inspect retrieval tokens",
	}

	var filename string
	issueCmd := &cobra.Command{
		Use:   "issue <locator>",
		Short: "Sign a retrieval token for an artifact locator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			signer, err := ctx.signer()
			if err != nil {
				return err
			}
			token, err := signer.Issue(strings.TrimSpace(args[0]), filename)
			if err != nil {
				return fmt.Errorf("issue token: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, token)
			fmt.Fprintf(out, "%s?token=%s\n", archive.DefaultRetrievePath, url.QueryEscape(token))
			return nil
		},
	}
	issueCmd.Flags().StringVar(&filename, "filename", "", "Download filename bound into the token")

	var asJSON bool
	verifyCmd := &cobra.Command{
		Use:   "verify <token>",
		Short: "Check a token's signature and print its claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			signer, err := ctx.signer()
			if err != nil {
				return err
			}
			claims, err := signer.Verify(args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, claims)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Token valid")
			fmt.Fprintf(out, "Locator:   %s\n", claims.Locator)
			fmt.Fprintf(out, "Filename:  %s\n", claims.Filename)
			fmt.Fprintf(out, "Issued at: %s\n", claims.IssuedAt.UTC().Format("2006-01-02 15:04:05 MST"))
			return nil
		},
	}
	verifyCmd.Flags().BoolVar(&asJSON, "json", false, "Print claims as JSON")

	tokenCmd.AddCommand(issueCmd, verifyCmd)
	return tokenCmd
}

func (c *commandContext) signer() (*tokens.Signer, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	signer, err := tokens.NewSigner(cfg.Signing.Secret)
	if err != nil {
		return nil, fmt.Errorf("token signer: %w", err)
	}
	return signer, nil
}
