// Command leasectl is a polling worker's view of the fulfillment service.
// It claims, renews and breaks instance leases and prints instance state.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"campaign-fulfillment/internal/core/domain"
)

var (
	server   string
	provider string
	accessID string
	timeout  time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "leasectl",
	Short: "Claim and manage fulfillment instance leases",
	Long: `leasectl talks to a running fulfillment service on behalf of a polling
worker identified by --provider and --access-id.

Available subcommands:
  next   - Claim the first unleased running instance
  renew  - Extend (or take) the lease on an instance
  break  - Release the lease on an instance
  status - Print the status and state of an instance`,
	SilenceUsage: true,
}

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Claim the first unleased running instance",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()
		body, err := apiClient().Next(ctx, claimant())
		if errors.Is(err, errNothingToClaim) {
			fmt.Fprintln(cmd.ErrOrStderr(), "nothing to claim")
			return nil
		}
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), body)
	},
}

var renewCmd = &cobra.Command{
	Use:   "renew <instance-id>",
	Short: "Extend the lease on an instance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()
		body, err := apiClient().Renew(ctx, args[0], claimant())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), body)
	},
}

var breakCmd = &cobra.Command{
	Use:   "break <instance-id>",
	Short: "Release the lease on an instance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()
		body, err := apiClient().Break(ctx, args[0], claimant())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), body)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <instance-id>",
	Short: "Print the status and state of an instance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()
		body, err := apiClient().Status(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), body)
	},
}

func init() {
	defaultServer := os.Getenv("LEASECTL_SERVER")
	if defaultServer == "" {
		defaultServer = "http://localhost:8080"
	}
	rootCmd.PersistentFlags().StringVar(&server, "server", defaultServer, "fulfillment service base URL")
	rootCmd.PersistentFlags().StringVar(&provider, "provider", "", "lease provider name")
	rootCmd.PersistentFlags().StringVar(&accessID, "access-id", "", "lease access id")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "request timeout")

	for _, cmd := range []*cobra.Command{nextCmd, renewCmd, breakCmd} {
		cmd.PreRunE = requireClaimant
	}
	rootCmd.AddCommand(nextCmd, renewCmd, breakCmd, statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func requireClaimant(*cobra.Command, []string) error {
	if provider == "" || accessID == "" {
		return errors.New("--provider and --access-id are required")
	}
	return nil
}

func claimant() domain.Claimant {
	return domain.Claimant{Provider: provider, AccessID: accessID}
}

func apiClient() *client {
	return newClient(server, &http.Client{Timeout: timeout})
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, timeout)
}

func printJSON(w io.Writer, body []byte) error {
	var out bytes.Buffer
	if err := json.Indent(&out, body, "", "  "); err != nil {
		return fmt.Errorf("format response: %w", err)
	}
	out.WriteByte('\n')
	_, err := out.WriteTo(w)
	return err
}
