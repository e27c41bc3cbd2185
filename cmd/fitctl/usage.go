package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"fitcoach/backend/internal/ai"
)

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Inspect or reset the AI usage counter",
}

var usageShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print cumulative AI tokens and cost",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		gateway := ai.NewGateway(store.Usage, nil, cfg.AI, logger)
		report, err := gateway.Usage(cmd.Context())
		if err != nil {
			return err
		}

		faint := color.New(color.Faint)
		fmt.Printf("%s %d\n", faint.Sprint("tokens:   "), report.TotalTokens)
		fmt.Printf("%s $%.4f\n", faint.Sprint("spent:    "), report.TotalCostUSD)
		fmt.Printf("%s $%.2f\n", faint.Sprint("budget:   "), report.BudgetUSD)
		if report.RemainingUSD <= 0 {
			color.Red("budget exhausted, generation is refused until reset")
		} else {
			color.Green("remaining: $%.4f", report.RemainingUSD)
		}
		return nil
	},
}

var usageResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Zero the AI usage counter",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		gateway := ai.NewGateway(store.Usage, nil, cfg.AI, logger)
		if err := gateway.ResetUsage(cmd.Context()); err != nil {
			return fmt.Errorf("failed to reset usage: %w", err)
		}
		color.Yellow("AI usage counter reset")
		return nil
	},
}

func init() {
	usageCmd.AddCommand(usageShowCmd, usageResetCmd)
	rootCmd.AddCommand(usageCmd)
}
