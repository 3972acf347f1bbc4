package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ZhuOS/ai-hedge-fund/internal/broker"
	"github.com/ZhuOS/ai-hedge-fund/internal/store"
	"github.com/ZhuOS/ai-hedge-fund/internal/validate"
)

// addValidateCommands adds the system validation command.
func addValidateCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newValidateCmd(app))
}

func newValidateCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the trading system end to end",
		Long: `Run the validation suite: configuration, gateway connectivity,
API functionality, risk controls, order management, integration and
performance. Order submission tests only run in dry-run mode.`,
		Example: `  hedgefund validate
  hedgefund validate --quick
  hedgefund validate --output report.json
  hedgefund validate --last`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			quick, _ := cmd.Flags().GetBool("quick")
			outPath, _ := cmd.Flags().GetString("output")
			last, _ := cmd.Flags().GetBool("last")

			if last {
				return showLastValidation(ctx, output, app)
			}

			harness := validate.NewHarness(app.Config, validationBrokerFactory(app), app.Logger)

			if quick {
				ok := harness.RunQuick(ctx)
				if output.IsJSON() {
					return output.JSON(map[string]interface{}{
						"passed":  ok,
						"results": harness.Results(),
					})
				}
				printValidationResults(output, harness.Results())
				if !ok {
					output.Error("✗ Quick validation failed")
					return fmt.Errorf("validation failed")
				}
				output.Success("✓ Quick validation passed")
				return nil
			}

			report := harness.Run(ctx)
			saveValidationRun(ctx, app, report)

			if outPath != "" {
				if err := validate.SaveReport(report, outPath); err != nil {
					output.Error("Failed to save report: %v", err)
					return err
				}
				output.Info("Report saved to %s", outPath)
			}

			if output.IsJSON() {
				return output.JSON(report)
			}

			printValidationResults(output, report.Results)

			output.Println()
			output.Bold("Summary")
			output.Printf("  Tests:        %d\n", report.Summary.TotalTests)
			output.Printf("  Passed:       %d\n", report.Summary.Passed)
			output.Printf("  Failed:       %d\n", report.Summary.Failed)
			output.Printf("  Success Rate: %.0f%%\n", report.Summary.SuccessRate*100)
			output.Println()

			output.Bold("Recommendations")
			for _, rec := range report.Recommendations {
				output.Printf("  • %s\n", rec)
			}

			if !report.Passed() {
				return fmt.Errorf("validation failed: %d of %d tests", report.Summary.Failed, report.Summary.TotalTests)
			}
			return nil
		},
	}

	cmd.Flags().Bool("quick", false, "run only configuration and connection checks")
	cmd.Flags().String("output", "", "write the JSON report to a file")
	cmd.Flags().Bool("last", false, "show the last stored validation run")

	return cmd
}

// validationBrokerFactory builds fresh brokers for harness phases. The
// dry-run simulator is seeded with a quote for the probe symbol.
func validationBrokerFactory(app *App) validate.BrokerFactory {
	return func() broker.Broker {
		if app.Config.Trading.DryRun {
			sim := broker.NewSimBroker()
			sim.SetMarketPrice(validate.TestSymbol, 150.0)
			return sim
		}
		futu, err := broker.NewFutuBroker(broker.FutuConfig{
			Host:          app.Config.Gateway.Host,
			Port:          app.Config.Gateway.Port,
			AccountID:     app.Config.Gateway.AccountID,
			TradePassword: app.Config.Credentials.Futu.TradePassword,
			Logger:        app.Logger,
		})
		if err != nil {
			app.Logger.Warn().Err(err).Msg("Gateway broker unavailable, validating against simulator")
			return broker.NewSimBroker()
		}
		return futu
	}
}

func printValidationResults(output *Output, results []validate.Result) {
	table := NewTable(output, "Test", "Result", "Message")
	for _, r := range results {
		status := output.Green("PASS")
		if !r.Passed {
			status = output.Red("FAIL")
		}
		table.AddRow(r.TestName, status, r.Message)
	}
	table.Render()
}

// saveValidationRun journals the run so later invocations can compare.
func saveValidationRun(ctx context.Context, app *App, report *validate.Report) {
	if app.Store == nil {
		return
	}
	data, err := json.Marshal(report)
	if err != nil {
		return
	}
	run := &store.ValidationRun{
		Timestamp:   time.Now(),
		TotalTests:  report.Summary.TotalTests,
		Passed:      report.Summary.Passed,
		Failed:      report.Summary.Failed,
		SuccessRate: report.Summary.SuccessRate,
		Report:      string(data),
	}
	if err := app.Store.SaveValidationRun(ctx, run); err != nil {
		app.Logger.Warn().Err(err).Msg("Failed to journal validation run")
	}
}

func showLastValidation(ctx context.Context, output *Output, app *App) error {
	if app.Store == nil {
		output.Warning("Store not initialized. No validation history available.")
		return nil
	}
	run, err := app.Store.GetLatestValidationRun(ctx)
	if err != nil {
		output.Error("Failed to fetch validation run: %v", err)
		return err
	}
	if run == nil {
		output.Info("No validation runs recorded.")
		return nil
	}

	if output.IsJSON() {
		var report validate.Report
		if err := json.Unmarshal([]byte(run.Report), &report); err == nil {
			return output.JSON(report)
		}
		return output.JSON(run)
	}

	output.Bold("Last Validation - %s", run.Timestamp.Format("2006-01-02 15:04:05"))
	output.Printf("  Tests:        %d\n", run.TotalTests)
	output.Printf("  Passed:       %d\n", run.Passed)
	output.Printf("  Failed:       %d\n", run.Failed)
	output.Printf("  Success Rate: %.0f%%\n", run.SuccessRate*100)
	return nil
}
