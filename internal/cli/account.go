package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/ZhuOS/ai-hedge-fund/pkg/utils"
)

// addAccountCommands adds account inspection commands.
func addAccountCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newAccountCmd(app))
	rootCmd.AddCommand(newPositionsCmd(app))
}

func newAccountCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "account",
		Short: "Show account balance and buying power",
		Example: `  hedgefund account
  hedgefund account --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if app.Broker == nil {
				output.Error("Broker not configured. Check gateway settings.")
				return fmt.Errorf("broker not configured")
			}

			if err := app.Broker.Connect(ctx); err != nil {
				output.Error("Failed to connect: %v", err)
				return err
			}
			defer app.Broker.Disconnect(ctx)

			account, err := app.Broker.GetAccountInfo(ctx)
			if err != nil {
				output.Error("Failed to get account info: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(account)
			}

			output.Bold("Account %s", account.AccountID)
			output.Printf("  Total Assets:   %s\n", utils.FormatMoney(account.TotalAssets))
			output.Printf("  Cash:           %s\n", utils.FormatMoney(account.Cash))
			output.Printf("  Market Value:   %s\n", utils.FormatMoney(account.MarketValue))
			output.Printf("  Buying Power:   %s\n", utils.FormatMoney(account.BuyingPower))
			output.Printf("  Unrealized P&L: %s\n", output.FormatPnL(account.UnrealizedPnL))
			output.Printf("  Realized P&L:   %s\n", output.FormatPnL(account.RealizedPnL))
			return nil
		},
	}
}

func newPositionsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "positions",
		Short: "Show open positions with P&L",
		Example: `  hedgefund positions
  hedgefund positions --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if app.Broker == nil {
				output.Error("Broker not configured. Check gateway settings.")
				return fmt.Errorf("broker not configured")
			}

			if err := app.Broker.Connect(ctx); err != nil {
				output.Error("Failed to connect: %v", err)
				return err
			}
			defer app.Broker.Disconnect(ctx)

			positions, err := app.Broker.GetPositions(ctx)
			if err != nil {
				output.Error("Failed to get positions: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(positions)
			}

			if len(positions) == 0 {
				output.Info("No open positions.")
				return nil
			}

			table := NewTable(output, "Symbol", "Qty", "Avg Cost", "Price", "Value", "P&L")
			totalValue := 0.0
			totalPnL := 0.0
			for _, p := range positions {
				totalValue += p.MarketValue
				totalPnL += p.UnrealizedPnL
				table.AddRow(
					p.Symbol,
					strconv.Itoa(p.Quantity),
					utils.FormatMoney(p.AvgCost),
					utils.FormatMoney(p.MarketPrice),
					utils.FormatMoney(p.MarketValue),
					output.FormatPnL(p.UnrealizedPnL),
				)
			}
			table.Render()

			output.Println()
			output.Printf("  Positions:  %d\n", len(positions))
			output.Printf("  Total Value: %s\n", utils.FormatMoney(totalValue))
			output.Printf("  Total P&L:   %s\n", output.FormatPnL(totalPnL))
			return nil
		},
	}
}
