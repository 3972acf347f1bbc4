package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ZhuOS/ai-hedge-fund/internal/broker"
	"github.com/ZhuOS/ai-hedge-fund/internal/models"
	"github.com/ZhuOS/ai-hedge-fund/internal/risk"
	"github.com/ZhuOS/ai-hedge-fund/internal/trading"
	"github.com/ZhuOS/ai-hedge-fund/pkg/utils"
)

// addTradeCommands adds one-shot trade execution commands.
func addTradeCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newTradeCmd(app))
}

// buildRiskManager maps the risk configuration onto manager limits.
func buildRiskManager(app *App) *risk.Manager {
	limits := risk.Limits{
		MaxPositionSize:          app.Config.Risk.MaxPositionSize,
		MaxPortfolioValue:        app.Config.Risk.MaxPortfolioValue,
		MaxDailyLoss:             app.Config.Risk.MaxDailyLoss,
		MaxPositionConcentration: app.Config.Risk.MaxPositionConcentration,
		MaxTradesPerDay:          app.Config.Risk.MaxTradesPerDay,
		MinCashReserve:           app.Config.Risk.MinCashReserve,
		WarningThreshold:         app.Config.Risk.WarningThreshold,
	}
	return risk.NewManager(limits, app.Logger)
}

// buildExecutor wires a trade executor from the app dependencies.
func buildExecutor(app *App, rm *risk.Manager) *trading.Executor {
	return trading.NewExecutor(app.Broker, rm, app.Store, trading.ExecutorConfig{
		DryRun:             app.Config.Trading.DryRun,
		EnableShortSelling: app.Config.Trading.EnableShortSelling,
		MaxOrderValue:      app.Config.Trading.MaxOrderValue,
		CallTimeout:        time.Duration(app.Config.Session.TimeoutSeconds) * time.Second,
	}, app.Logger)
}

func newTradeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trade <buy|sell|short|cover> <ticker> <quantity>",
		Short: "Execute a single risk-checked trade",
		Long: `Execute one trade through the full pipeline: translation, risk
validation, broker submission and portfolio bookkeeping.

In dry-run mode fills are simulated at the given price with modeled
slippage and commission. In live mode the order goes to the OpenD
gateway.`,
		Example: `  hedgefund trade buy AAPL 10 --price 150
  hedgefund trade sell 00700 100
  hedgefund trade short TSLA 5 --price 250`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()

			action := models.Action(strings.ToLower(args[0]))
			if !action.Valid() || action == models.ActionHold {
				output.Error("Invalid action: %s (use buy, sell, short or cover)", args[0])
				return fmt.Errorf("invalid action %q", args[0])
			}

			ticker := strings.ToUpper(args[1])
			qty, err := strconv.Atoi(args[2])
			if err != nil || qty <= 0 {
				output.Error("Invalid quantity: %s", args[2])
				return fmt.Errorf("invalid quantity %q", args[2])
			}

			price, _ := cmd.Flags().GetFloat64("price")

			if app.Broker == nil {
				output.Error("Broker not configured. Check gateway settings.")
				return fmt.Errorf("broker not configured")
			}

			if err := app.Broker.Connect(ctx); err != nil {
				output.Error("Failed to connect: %v", err)
				return err
			}
			defer app.Broker.Disconnect(ctx)

			if sim, ok := app.Broker.(*broker.SimBroker); ok {
				if price <= 0 {
					output.Error("Dry-run mode needs --price to seed the simulated quote.")
					return fmt.Errorf("price required in dry-run mode")
				}
				sim.SetMarketPrice(ticker, price)
			} else if price <= 0 {
				price, err = app.Broker.GetMarketPrice(ctx, ticker)
				if err != nil {
					output.Error("Failed to get market price: %v", err)
					return err
				}
			}

			account, err := app.Broker.GetAccountInfo(ctx)
			if err != nil {
				app.Logger.Warn().Err(err).Msg("Account info unavailable, using demo account")
				account = broker.DemoAccount()
			}

			market := utils.DetectMarket(ticker)
			output.Bold("Trade Preview")
			output.Printf("  Ticker:   %s (%s)\n", ticker, market)
			output.Printf("  Action:   %s\n", output.ActionTag(string(action)))
			output.Printf("  Quantity: %d\n", qty)
			output.Printf("  Price:    %s\n", utils.FormatMoney(price))
			output.Printf("  Notional: %s\n", utils.FormatMoney(price*float64(qty)))
			output.Println()

			if app.Config.Trading.DryRun {
				output.Warning("DRY RUN MODE - simulated execution")
			}

			rm := buildRiskManager(app)
			executor := buildExecutor(app, rm)
			portfolio := trading.NewPortfolio(account.Cash, 0.5)

			executed := executor.Execute(ctx, ticker, action, qty, price, portfolio)

			report := executor.GetExecutionReport()
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"ticker":   ticker,
					"action":   action,
					"executed": executed,
					"report":   report,
				})
			}

			if executed <= 0 {
				reason := "trade not executed"
				if len(report.RecentFailures) > 0 {
					reason = report.RecentFailures[len(report.RecentFailures)-1].Error
				}
				output.Error("✗ Trade rejected: %s", reason)
				return fmt.Errorf("trade rejected")
			}

			output.Success("✓ Executed %d shares of %s", executed, ticker)
			output.Printf("  Total Value: %s\n", utils.FormatMoney(report.TotalExecutedValue))
			output.Printf("  Commission:  %s\n", utils.FormatMoney(report.TotalCommission))
			output.Printf("  Cash After:  %s\n", utils.FormatMoney(portfolio.Cash()))
			return nil
		},
	}

	cmd.Flags().Float64P("price", "p", 0, "Reference price (required in dry-run, fetched live otherwise)")

	return cmd
}
