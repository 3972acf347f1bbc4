package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ZhuOS/ai-hedge-fund/internal/store"
	"github.com/ZhuOS/ai-hedge-fund/pkg/utils"
)

// addHistoryCommands adds journal review commands.
func addHistoryCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Review journaled trades and decisions",
		Long:  "Browse the trade journal and the AI decision log.",
	}
	cmd.AddCommand(newHistoryTradesCmd(app))
	cmd.AddCommand(newHistoryDecisionsCmd(app))
	rootCmd.AddCommand(cmd)
}

func newHistoryTradesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trades",
		Short: "Show journaled trades",
		Example: `  hedgefund history trades --today
  hedgefund history trades --symbol AAPL --limit 50`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if app.Store == nil {
				output.Warning("Store not initialized. No trade history available.")
				return nil
			}

			symbol, _ := cmd.Flags().GetString("symbol")
			limit, _ := cmd.Flags().GetInt("limit")
			today, _ := cmd.Flags().GetBool("today")

			filter := store.TradeFilter{
				Symbol: strings.ToUpper(symbol),
				Limit:  limit,
			}
			if today {
				now := time.Now()
				filter.StartDate = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
				filter.EndDate = filter.StartDate.Add(24 * time.Hour)
			}

			trades, err := app.Store.GetTrades(ctx, filter)
			if err != nil {
				output.Error("Failed to fetch trades: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(trades)
			}

			if len(trades) == 0 {
				output.Info("No trades recorded.")
				output.Dim("Tip: trades are journaled when orders execute through the CLI.")
				return nil
			}

			volume := 0.0
			commission := 0.0
			table := NewTable(output, "Time", "Symbol", "Action", "Qty", "Fill", "Commission", "Mode")
			for _, t := range trades {
				volume += float64(t.Quantity) * t.FillPrice
				commission += t.Commission
				mode := "live"
				if t.DryRun {
					mode = "dry-run"
				}
				table.AddRow(
					t.Timestamp.Format("01-02 15:04"),
					t.Symbol,
					output.ActionTag(string(t.Action)),
					strconv.Itoa(t.Quantity),
					utils.FormatMoney(t.FillPrice),
					utils.FormatMoney(t.Commission),
					mode,
				)
			}
			table.Render()

			output.Println()
			output.Printf("  Trades:     %d\n", len(trades))
			output.Printf("  Volume:     %s\n", utils.FormatMoney(volume))
			output.Printf("  Commission: %s\n", utils.FormatMoney(commission))
			return nil
		},
	}

	cmd.Flags().String("symbol", "", "filter by symbol")
	cmd.Flags().Int("limit", 100, "maximum trades to show")
	cmd.Flags().Bool("today", false, "only today's trades")

	return cmd
}

func newHistoryDecisionsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decisions",
		Short: "Show journaled AI decisions",
		Example: `  hedgefund history decisions
  hedgefund history decisions --ticker AAPL`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if app.Store == nil {
				output.Warning("Store not initialized. No decision history available.")
				return nil
			}

			ticker, _ := cmd.Flags().GetString("ticker")
			limit, _ := cmd.Flags().GetInt("limit")

			records, err := app.Store.GetDecisions(ctx, store.DecisionFilter{
				Ticker: strings.ToUpper(ticker),
				Limit:  limit,
			})
			if err != nil {
				output.Error("Failed to fetch decisions: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(records)
			}

			if len(records) == 0 {
				output.Info("No decisions recorded.")
				return nil
			}

			table := NewTable(output, "Time", "Ticker", "Action", "Qty", "Executed", "Confidence", "Reasoning")
			for _, d := range records {
				table.AddRow(
					d.Timestamp.Format("01-02 15:04"),
					d.Ticker,
					output.ActionTag(d.Action),
					strconv.Itoa(d.Quantity),
					strconv.Itoa(d.ExecutedQty),
					fmt.Sprintf("%.0f%%", d.Confidence),
					truncate(d.Reasoning, 40),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().String("ticker", "", "filter by ticker")
	cmd.Flags().Int("limit", 50, "maximum decisions to show")

	return cmd
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
