package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the API is up",
	Args:  cobra.NoArgs,
	RunE:  runHealth,
}

func runHealth(cmd *cobra.Command, args []string) error {
	raw, err := apiGet(cmd.Context(), "/health")
	if err != nil {
		return err
	}
	if asJSON {
		fmt.Println(string(raw))
		return nil
	}

	var body struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	fmt.Printf("✅ %s (server v%s) at %s\n", body.Status, body.Version, apiURL)
	return nil
}
