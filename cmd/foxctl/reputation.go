package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ranawaqas-khan/jumpingfox/internal/guard"
)

var reputationCmd = &cobra.Command{
	Use:   "reputation <domain>",
	Short: "Show bounce and false-positive reputation for a domain",
	Args:  cobra.ExactArgs(1),
	RunE:  runReputation,
}

func runReputation(cmd *cobra.Command, args []string) error {
	raw, err := apiGet(cmd.Context(), "/reputation/"+args[0])
	if err != nil {
		return err
	}
	if asJSON {
		fmt.Println(string(raw))
		return nil
	}

	var snap guard.ReputationSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	state := "✅ healthy"
	if snap.Degraded {
		state = "⚠️  degraded"
	}
	fmt.Printf("Domain:          %s\n", snap.Domain)
	fmt.Printf("State:           %s\n", state)
	fmt.Printf("Bounces (1h):    %d\n", snap.Bounces)
	fmt.Printf("False pos (7d):  %d\n", snap.FalsePositives)
	fmt.Printf("Confidence cap:  %d\n", snap.ConfidenceCap)
	return nil
}
