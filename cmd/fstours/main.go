// Command fstours manages tours and legs on a running fstours-api server.
package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"fstours/internal/client"
	"fstours/internal/logging"
)

func main() {
	logging.Init(logging.Config{Level: "warn", Format: "console"})

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "fstours",
		Short:        "Flight simulator tour planner client",
		Long:         "Connect to an fstours-api server and manage tours, their legs, SimBrief imports and KML exports.",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("addr", envOr("FSTOURS_ADDR", "http://localhost:8080"), "server address (or FSTOURS_ADDR env)")
	cmd.PersistentFlags().String("token", "", "API token (or FSTOURS_TOKEN env)")
	cmd.PersistentFlags().StringP("output", "o", "table", "output format: table or json")
	cmd.PersistentFlags().Duration("timeout", 30*time.Second, "request timeout")

	cmd.AddCommand(
		newToursCmd(),
		newLegsCmd(),
		newLoginCmd(),
		newSimBriefCmd(),
		newExportCmd(),
	)
	return cmd
}

// clientFromCmd builds an API client from the persistent flags on cmd.
func clientFromCmd(cmd *cobra.Command) *client.Client {
	addr, _ := cmd.Flags().GetString("addr")
	token, _ := cmd.Flags().GetString("token")
	if token == "" {
		token = os.Getenv("FSTOURS_TOKEN")
	}
	timeout, _ := cmd.Flags().GetDuration("timeout")

	opts := []client.Option{client.WithHTTPClient(&http.Client{Timeout: timeout})}
	if token != "" {
		opts = append(opts, client.WithToken(token))
	}
	return client.New(addr, opts...)
}

// outputFormat returns "json" or "table" from the --output flag.
func outputFormat(cmd *cobra.Command) string {
	f, _ := cmd.Flags().GetString("output")
	return f
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func printf(cmd *cobra.Command, format string, args ...any) {
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
