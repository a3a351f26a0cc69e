package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ranawaqas-khan/jumpingfox/internal/guard"
)

var ipHealthCmd = &cobra.Command{
	Use:   "ip-health <ip> <domain>",
	Short: "Show how a probe source IP is being received by a domain",
	Args:  cobra.ExactArgs(2),
	RunE:  runIPHealth,
}

func runIPHealth(cmd *cobra.Command, args []string) error {
	raw, err := apiGet(cmd.Context(), "/iphealth/"+args[0]+"/"+args[1])
	if err != nil {
		return err
	}
	if asJSON {
		fmt.Println(string(raw))
		return nil
	}

	var snap guard.IPHealthSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	state := "✅ clear"
	if snap.Blocked {
		state = "🚫 blocked"
	}
	fmt.Printf("IP:            %s → %s\n", snap.IP, snap.Domain)
	fmt.Printf("State:         %s\n", state)
	fmt.Printf("Bounces (1h):  %d\n", snap.Bounces)
	fmt.Printf("Health score:  %d/100\n", snap.HealthScore)
	return nil
}
