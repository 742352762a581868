package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vigilops/claude-vigil/internal/config"
	"github.com/vigilops/claude-vigil/internal/snapshot"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print a summary of the last persisted snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		reader := snapshot.NewWriter(config.SnapshotPath())
		snap, err := reader.Read()
		if err != nil {
			return err
		}
		if snap == nil {
			fmt.Println("No snapshot found - is the daemon running?")
			return nil
		}

		fmt.Printf("Last update:        %s (%s ago)\n",
			snap.LastUpdate.Local().Format(time.RFC1123),
			time.Since(snap.LastUpdate).Round(time.Second))
		fmt.Printf("Billing period:     %s - %s\n",
			snap.BillingPeriodStart.Local().Format("2006-01-02"),
			snap.BillingPeriodEnd.Local().Format("2006-01-02"))
		fmt.Printf("Sessions (month):   %d\n", snap.TotalSessionsThisMonth)
		fmt.Printf("Cost (month):       $%.4f\n", snap.TotalCostThisMonth)
		fmt.Printf("Max tokens/session: %d\n", snap.MaxTokensPerSession)

		active := 0
		for _, s := range snap.CurrentSessions {
			if s.IsActive {
				active++
			}
		}
		fmt.Printf("Active usage:       %d of %d sessions\n", active, len(snap.CurrentSessions))

		fmt.Printf("Activity sessions:  %d\n", len(snap.ActivitySessions))
		for _, a := range snap.ActivitySessions {
			fmt.Printf("  %-24s %-16s started %s\n",
				a.ProjectName, a.Status, a.StartTime.Local().Format("15:04:05"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
