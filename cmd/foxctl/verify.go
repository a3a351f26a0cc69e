package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ranawaqas-khan/jumpingfox/internal/models"
)

var (
	verifyCustomer string
	verifyNoProbe  bool
)

var verifyCmd = &cobra.Command{
	Use:   "verify <email> [email...]",
	Short: "Verify one or more addresses",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runVerify,
}

func init() {
	verifyCmd.Flags().StringVar(&verifyCustomer, "customer", "foxctl", "customer id to charge the quota against")
	verifyCmd.Flags().BoolVar(&verifyNoProbe, "no-probe", false, "skip the SMTP probe for catch-all domains")
}

func runVerify(cmd *cobra.Command, args []string) error {
	req := models.VerifyRequest{Emails: args, CustomerID: verifyCustomer}
	if verifyNoProbe {
		noProbe := false
		req.UseProbe = &noProbe
	}

	raw, err := apiPost(cmd.Context(), "/verify", req)
	if err != nil {
		return err
	}
	if asJSON {
		fmt.Println(string(raw))
		return nil
	}

	var resp models.VerifyResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	for _, res := range resp.Results {
		line := fmt.Sprintf("%s %-40s %-8s confidence=%-3d source=%s",
			statusIcon(res.Status), res.Email, res.Status, res.Confidence, res.Source)
		if res.Reason != "" {
			line += "  (" + res.Reason + ")"
		}
		if res.CatchAll != nil && *res.CatchAll {
			line += "  [catch-all]"
		}
		fmt.Println(line)
	}
	fmt.Printf("\nProcessed %d address(es) in %.1f ms, %d error(s)\n",
		resp.TotalProcessed, resp.ProcessingTimeMs, resp.TotalErrors)
	return nil
}

func statusIcon(s models.VerificationStatus) string {
	switch s {
	case models.StatusValid:
		return "✅"
	case models.StatusInvalid:
		return "❌"
	case models.StatusRisky:
		return "⚠️ "
	default:
		return "❓"
	}
}
