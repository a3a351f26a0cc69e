package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ranawaqas-khan/jumpingfox/internal/guard"
)

var quotaCmd = &cobra.Command{
	Use:   "quota <customer_id> <domain>",
	Short: "Show rolling-hour quota usage for a customer and domain",
	Args:  cobra.ExactArgs(2),
	RunE:  runQuota,
}

func runQuota(cmd *cobra.Command, args []string) error {
	raw, err := apiGet(cmd.Context(), "/quota/"+args[0]+"/"+args[1])
	if err != nil {
		return err
	}
	if asJSON {
		fmt.Println(string(raw))
		return nil
	}

	var usage guard.QuotaUsage
	if err := json.Unmarshal(raw, &usage); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	fmt.Printf("Customer %s on %s\n", args[0], args[1])
	fmt.Printf("  customer window: %d of %d used, resets in %s\n",
		usage.CustomerUsed, usage.CustomerLimit, resetText(usage.CustomerResetIn))
	fmt.Printf("  global window:   %d of %d used, resets in %s\n",
		usage.GlobalUsed, usage.GlobalLimit, resetText(usage.GlobalResetIn))
	return nil
}

func resetText(seconds int) string {
	if seconds < 0 {
		return "unknown"
	}
	return fmt.Sprintf("%ds", seconds)
}
