// foxctl is the operator CLI for a running jumpingfox API.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	apiURL string
	apiKey string
	asJSON bool
)

var rootCmd = &cobra.Command{
	Use:   "foxctl",
	Short: "Email verification from the command line",
	Long: `foxctl talks to a running jumpingfox API: verify addresses, inspect
quotas and domain reputation, and check service health.

The dns command resolves locally and needs no server.`,
	Version:      "1.0.0",
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", envOr("JUMPINGFOX_API", "http://127.0.0.1:8080"), "base URL of the jumpingfox API")
	rootCmd.PersistentFlags().StringVar(&apiKey, "key", os.Getenv("API_SECRET_KEY"), "API key (defaults to $API_SECRET_KEY)")
	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "print raw JSON responses")

	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(quotaCmd)
	rootCmd.AddCommand(reputationCmd)
	rootCmd.AddCommand(ipHealthCmd)
	rootCmd.AddCommand(dnsCmd)
	rootCmd.AddCommand(healthCmd)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
