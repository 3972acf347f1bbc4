package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/ZhuOS/ai-hedge-fund/internal/broker"
	"github.com/ZhuOS/ai-hedge-fund/internal/decisions"
	"github.com/ZhuOS/ai-hedge-fund/internal/models"
	"github.com/ZhuOS/ai-hedge-fund/internal/trading"
	"github.com/ZhuOS/ai-hedge-fund/pkg/utils"
)

// liveConfirmPhrase must be typed verbatim before real-money trading.
const liveConfirmPhrase = "CONFIRM LIVE TRADING"

// addSessionCommands adds the session batch commands.
func addSessionCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Decision batch sessions",
		Long:  "Run trading sessions that execute a full AI decision batch.",
	}
	cmd.AddCommand(newSessionRunCmd(app))
	rootCmd.AddCommand(cmd)
}

func newSessionRunCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one decision batch (or on a schedule)",
		Long: `Run a trading session: fetch market context for the configured
tickers, obtain decisions from the AI provider (or a decisions file),
execute each through the risk pipeline, and print the batch summary.

With --schedule, the session repeats on a cron schedule until
interrupted. Risk counters and the circuit breaker persist across
scheduled batches within the process.`,
		Example: `  hedgefund session run --tickers AAPL,MSFT --prices AAPL=150,MSFT=300
  hedgefund session run --decisions decisions.json --prices AAPL=150
  hedgefund session run --schedule "30 9 * * 1-5"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			tickersFlag, _ := cmd.Flags().GetString("tickers")
			pricesFlag, _ := cmd.Flags().GetString("prices")
			decisionsFile, _ := cmd.Flags().GetString("decisions")
			cash, _ := cmd.Flags().GetFloat64("cash")
			margin, _ := cmd.Flags().GetFloat64("margin")
			schedule, _ := cmd.Flags().GetString("schedule")

			if app.Broker == nil {
				output.Error("Broker not configured. Check gateway settings.")
				return fmt.Errorf("broker not configured")
			}

			tickers := app.Config.Session.Tickers
			if tickersFlag != "" {
				tickers = splitTickers(tickersFlag)
			}
			if len(tickers) == 0 {
				output.Error("No tickers configured. Use --tickers or set session.tickers.")
				return fmt.Errorf("no tickers configured")
			}

			provider, err := selectProvider(app, decisionsFile)
			if err != nil {
				output.Error("%v", err)
				return err
			}

			if schedule == "" {
				schedule = app.Config.Session.Schedule
			}

			if !app.Config.Trading.DryRun {
				if !confirmLiveTrading(cmd, output, app) {
					output.Warning("Live trading not confirmed, aborting.")
					return fmt.Errorf("live trading not confirmed")
				}
			} else {
				output.Warning("DRY RUN MODE - simulated execution")
			}

			ctx := context.Background()
			if err := app.Broker.Connect(ctx); err != nil {
				output.Error("Failed to connect: %v", err)
				return err
			}
			defer app.Broker.Disconnect(ctx)

			if sim, ok := app.Broker.(*broker.SimBroker); ok {
				seeded, err := seedSimPrices(sim, pricesFlag)
				if err != nil {
					output.Error("%v", err)
					return err
				}
				if seeded == 0 {
					output.Warning("No --prices given; simulated quotes are empty and trades will fail.")
				}
			}

			rm := buildRiskManager(app)
			executor := buildExecutor(app, rm)
			sess := trading.NewSession(app.Broker, executor, rm, provider, app.Store, trading.SessionConfig{
				Tickers:           tickers,
				InitialCash:       cash,
				MarginRequirement: margin,
				DryRun:            app.Config.Trading.DryRun,
			}, app.Logger)

			runBatch := func() error {
				if !app.Broker.IsConnected() {
					if err := app.Broker.Connect(ctx); err != nil {
						output.Error("Reconnect failed: %v", err)
						return err
					}
				}
				result, err := sess.Run(ctx)
				if err != nil {
					output.Error("Session failed: %v", err)
					return err
				}
				if output.IsJSON() {
					return output.JSON(result)
				}
				printSessionResult(output, result)
				return nil
			}

			if schedule == "" {
				return runBatch()
			}

			c := cron.New()
			if _, err := c.AddFunc(schedule, func() { runBatch() }); err != nil {
				output.Error("Invalid schedule %q: %v", schedule, err)
				return err
			}
			c.Start()
			defer c.Stop()

			output.Info("Scheduled sessions on %q, press Ctrl-C to stop.", schedule)
			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			<-sig
			output.Println()
			output.Info("Stopping scheduled sessions.")
			return nil
		},
	}

	cmd.Flags().String("tickers", "", "comma-separated tickers (default: session.tickers from config)")
	cmd.Flags().String("prices", "", "seed prices for dry-run, e.g. AAPL=150,MSFT=300")
	cmd.Flags().String("decisions", "", "JSON file with a fixed decision set")
	cmd.Flags().Float64("cash", 0, "portfolio starting cash (default: broker cash balance)")
	cmd.Flags().Float64("margin", 0.5, "margin requirement for short positions")
	cmd.Flags().String("schedule", "", "cron expression for repeated sessions")

	return cmd
}

// confirmLiveTrading shows the live-mode banner and requires the typed
// confirmation phrase before any real order can flow.
func confirmLiveTrading(cmd *cobra.Command, output *Output, app *App) bool {
	output.Println()
	output.Error("⚠ LIVE TRADING MODE - REAL MONEY AT RISK")
	output.Printf("  Gateway:         %s:%d\n", app.Config.Gateway.Host, app.Config.Gateway.Port)
	output.Printf("  Account:         %s\n", app.Config.Gateway.AccountID)
	output.Printf("  Max Position:    %s\n", utils.FormatMoney(app.Config.Risk.MaxPositionSize))
	output.Printf("  Max Order Value: %s\n", utils.FormatMoney(app.Config.Trading.MaxOrderValue))
	output.Println()
	output.Printf("Type '%s' to proceed with real money: ", liveConfirmPhrase)

	scanner := bufio.NewScanner(cmd.InOrStdin())
	if !scanner.Scan() {
		return false
	}
	return strings.TrimSpace(scanner.Text()) == liveConfirmPhrase
}

// selectProvider picks the decision source: an explicit decisions file
// wins, then the configured LLM provider.
func selectProvider(app *App, decisionsFile string) (decisions.Provider, error) {
	if decisionsFile != "" {
		set, err := loadDecisionSet(decisionsFile)
		if err != nil {
			return nil, err
		}
		return decisions.NewStaticProvider(set), nil
	}
	if app.Provider != nil {
		return app.Provider, nil
	}
	return nil, fmt.Errorf("no decision source: set an OpenAI API key or pass --decisions")
}

func loadDecisionSet(path string) (models.DecisionSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading decisions file: %w", err)
	}
	var set models.DecisionSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("parsing decisions file: %w", err)
	}
	return set, nil
}

func splitTickers(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.ToUpper(strings.TrimSpace(p)); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// seedSimPrices parses SYMBOL=PRICE pairs and seeds the simulator.
func seedSimPrices(sim *broker.SimBroker, pricesFlag string) (int, error) {
	if pricesFlag == "" {
		return 0, nil
	}
	seeded := 0
	for _, pair := range strings.Split(pricesFlag, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) != 2 {
			return seeded, fmt.Errorf("invalid price pair %q (expected SYMBOL=PRICE)", pair)
		}
		price, err := strconv.ParseFloat(parts[1], 64)
		if err != nil || price <= 0 {
			return seeded, fmt.Errorf("invalid price for %s: %q", parts[0], parts[1])
		}
		sim.SetMarketPrice(strings.ToUpper(parts[0]), price)
		seeded++
	}
	return seeded, nil
}

func printSessionResult(output *Output, result *trading.SessionResult) {
	output.Println()
	output.Bold("Decisions")
	tickers := make([]string, 0, len(result.Outcomes))
	for t := range result.Outcomes {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	decisionTable := NewTable(output, "Ticker", "Action", "Qty", "Confidence")
	for _, t := range tickers {
		d, ok := result.Decisions[t]
		if !ok {
			continue
		}
		decisionTable.AddRow(
			t,
			output.ActionTag(string(d.Action)),
			strconv.Itoa(d.Quantity),
			fmt.Sprintf("%.0f%%", d.Confidence),
		)
	}
	decisionTable.Render()

	output.Println()
	output.Bold("Execution")
	outcomeTable := NewTable(output, "Ticker", "Status", "Qty", "Price", "Value / Reason")
	for _, t := range tickers {
		o := result.Outcomes[t]
		last := o.Reason
		if o.Status == "executed" {
			last = utils.FormatMoney(o.Value)
		}
		status := o.Status
		switch o.Status {
		case "executed":
			status = output.Green(o.Status)
		case "failed":
			status = output.Red(o.Status)
		default:
			status = output.Yellow(o.Status)
		}
		outcomeTable.AddRow(t, status, strconv.Itoa(o.Quantity), utils.FormatMoney(o.Price), last)
	}
	outcomeTable.Render()

	output.Println()
	output.Bold("Batch Summary")
	output.Printf("  Decisions:    %d\n", result.TotalDecisions)
	output.Printf("  Executed:     %d\n", result.SuccessfulTrades)
	output.Printf("  Total Value:  %s\n", utils.FormatMoney(result.TotalValue))
	output.Printf("  Daily P&L:    %s\n", output.FormatPnL(result.RiskSummary.DailyPnL))
	output.Printf("  Daily Trades: %d\n", result.RiskSummary.DailyTrades)

	breaker := output.Green("🟢 INACTIVE")
	if result.RiskSummary.CircuitBreakerActive {
		breaker = output.Red("🔴 ACTIVE")
	}
	output.Printf("  Circuit Breaker: %s\n", breaker)

	if result.FinalAccount != nil {
		output.Println()
		output.Bold("Account")
		output.Printf("  Total Assets: %s\n", utils.FormatMoney(result.FinalAccount.TotalAssets))
		output.Printf("  Cash:         %s\n", utils.FormatMoney(result.FinalAccount.Cash))
		output.Printf("  Buying Power: %s\n", utils.FormatMoney(result.FinalAccount.BuyingPower))
	}
}
