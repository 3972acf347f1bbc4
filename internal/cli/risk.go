package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ZhuOS/ai-hedge-fund/internal/store"
	"github.com/ZhuOS/ai-hedge-fund/pkg/utils"
)

// addRiskCommands adds risk inspection commands.
func addRiskCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "risk",
		Short: "Risk limits and events",
		Long:  "Inspect configured risk limits and journaled risk events.",
	}
	cmd.AddCommand(newRiskStatusCmd(app))
	cmd.AddCommand(newRiskEventsCmd(app))
	rootCmd.AddCommand(cmd)
}

func newRiskStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show risk limits and today's trading activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			cfg := app.Config.Risk

			if output.IsJSON() {
				return output.JSON(cfg)
			}

			output.Bold("Risk Limits")
			output.Printf("  Max Position Size:   %s\n", utils.FormatMoney(cfg.MaxPositionSize))
			output.Printf("  Max Portfolio Value: %s\n", utils.FormatMoney(cfg.MaxPortfolioValue))
			output.Printf("  Max Daily Loss:      %s\n", utils.FormatMoney(cfg.MaxDailyLoss))
			output.Printf("  Max Concentration:   %.0f%%\n", cfg.MaxPositionConcentration*100)
			output.Printf("  Max Trades/Day:      %d\n", cfg.MaxTradesPerDay)
			output.Printf("  Min Cash Reserve:    %s\n", utils.FormatMoney(cfg.MinCashReserve))
			output.Printf("  Warning Threshold:   %.0f%%\n", cfg.WarningThreshold*100)
			output.Println()

			if app.Store == nil {
				output.Warning("Store not initialized. No activity data available.")
				return nil
			}

			now := time.Now()
			startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
			trades, err := app.Store.GetTrades(ctx, store.TradeFilter{
				StartDate: startOfDay,
				EndDate:   startOfDay.Add(24 * time.Hour),
				Limit:     1000,
			})
			if err != nil {
				output.Error("Failed to fetch trades: %v", err)
				return err
			}

			volume := 0.0
			for _, t := range trades {
				volume += float64(t.Quantity) * t.FillPrice
			}

			output.Bold("Today")
			output.Printf("  Journaled Trades: %d", len(trades))
			if cfg.MaxTradesPerDay > 0 {
				output.Printf(" of %d allowed", cfg.MaxTradesPerDay)
			}
			output.Println()
			output.Printf("  Traded Volume:    %s\n", utils.FormatMoney(volume))
			return nil
		},
	}
}

func newRiskEventsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show recent risk events",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if app.Store == nil {
				output.Warning("Store not initialized. No risk events available.")
				return nil
			}

			limit, _ := cmd.Flags().GetInt("limit")
			events, err := app.Store.GetRiskEvents(ctx, limit)
			if err != nil {
				output.Error("Failed to fetch risk events: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(events)
			}

			if len(events) == 0 {
				output.Info("No risk events recorded.")
				return nil
			}

			table := NewTable(output, "Time", "Symbol", "Side", "Qty", "Level", "Message")
			for _, e := range events {
				level := e.RiskLevel
				switch level {
				case "CRITICAL", "HIGH":
					level = output.Red(level)
				case "MEDIUM":
					level = output.Yellow(level)
				}
				table.AddRow(
					e.Timestamp.Format("01-02 15:04"),
					e.Symbol,
					string(e.Side),
					fmt.Sprintf("%d", e.Quantity),
					level,
					e.Message,
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().Int("limit", 20, "maximum events to show")

	return cmd
}
