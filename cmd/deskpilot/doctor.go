package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that the pipeline's collaborators are reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			healthy := true
			healthy = probeHTTP("OCR service", cfg.Perception.OCRBaseURL) && healthy
			healthy = probeHTTP("detector service", cfg.Perception.DetectorBaseURL) && healthy

			if cfg.LLM.APIKey == "" {
				fmt.Println("✗ LLM: no API key configured (set DESKPILOT_API_KEY or GEMINI_API_KEY)")
				healthy = false
			} else {
				fmt.Printf("✓ LLM: key configured, model %s\n", cfg.LLM.Model)
			}

			fmt.Printf("  logs:        %s\n", cfg.Logging.Dir)
			fmt.Printf("  screenshots: %s\n", cfg.Screenshot.Dir)
			fmt.Printf("  history:     %s\n", cfg.History.Path)

			if !healthy {
				return fmt.Errorf("some collaborators are unavailable")
			}
			return nil
		},
	}
}

// probeHTTP checks that the endpoint answers at all; perception endpoints
// may 404 the root path and still be healthy.
func probeHTTP(name, base string) bool {
	client := &http.Client{Timeout: 3 * time.Second}
	resp, err := client.Get(base + "/")
	if err != nil {
		fmt.Printf("✗ %s: %s unreachable (%v)\n", name, base, err)
		return false
	}
	resp.Body.Close()
	fmt.Printf("✓ %s: %s\n", name, base)
	return true
}
