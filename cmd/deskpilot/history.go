package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"deskpilot/internal/history"
)

func newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := history.NewStore(cfg.History.Path, history.Retention{
				MaxAgeDays: cfg.History.MaxAgeDays,
				MaxCount:   cfg.History.MaxCount,
			})
			entries, err := store.List(limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("no history yet")
				return nil
			}
			for _, e := range entries {
				status := "FAILED"
				if e.Success {
					status = "ok"
				}
				fmt.Printf("%s  [%s]  %s\n", e.Timestamp.Format("2006-01-02 15:04:05"), status, e.Command)
				if len(e.Steps) > 0 {
					fmt.Printf("    steps: %s\n", strings.Join(e.Steps, " | "))
				}
				if e.ScreenSummary != "" {
					fmt.Printf("    screen: %s\n", e.ScreenSummary)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum entries to show (0 for all)")
	return cmd
}
