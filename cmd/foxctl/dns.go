package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ranawaqas-khan/jumpingfox/internal/lookup"
)

var dnsCmd = &cobra.Command{
	Use:   "dns <domain>",
	Short: "Inspect MX, SPF and DMARC for a domain (local lookup, no server)",
	Args:  cobra.ExactArgs(1),
	RunE:  runDNS,
}

func runDNS(cmd *cobra.Command, args []string) error {
	analyzer := lookup.NewAnalyzer(lookup.NewResolver(3*time.Second), lookup.Options{}, zap.NewNop())
	snap := analyzer.Analyze(cmd.Context(), args[0])

	if asJSON {
		raw, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(raw))
		return nil
	}

	fmt.Printf("Domain:     %s\n", snap.Domain)
	if snap.Provider != "" {
		fmt.Printf("Provider:   %s\n", snap.Provider)
	}
	fmt.Printf("Reputation: %d/100\n\n", snap.ReputationScore)

	if snap.MX.Present {
		fmt.Printf("MX (%d):\n", snap.MX.Count)
		for _, host := range snap.MX.Hosts {
			fmt.Printf("  %3d  %s\n", host.Priority, host.Host)
		}
	} else {
		fmt.Println("MX:   none (domain cannot receive mail)")
	}

	if snap.SPF.Present {
		strict := ""
		if snap.SPF.Strict {
			strict = " (strict -all)"
		}
		fmt.Printf("SPF:  %s%s\n", snap.SPF.Text, strict)
	} else {
		fmt.Println("SPF:  none")
	}

	if snap.DMARC.Present {
		fmt.Printf("DMARC: %s\n", snap.DMARC.Text)
	} else {
		fmt.Println("DMARC: none")
	}
	return nil
}
