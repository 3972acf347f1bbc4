// Package cli provides the command-line interface for the trading application.
package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ZhuOS/ai-hedge-fund/internal/broker"
	"github.com/ZhuOS/ai-hedge-fund/internal/config"
	"github.com/ZhuOS/ai-hedge-fund/internal/decisions"
	"github.com/ZhuOS/ai-hedge-fund/internal/logging"
	"github.com/ZhuOS/ai-hedge-fund/internal/security"
	"github.com/ZhuOS/ai-hedge-fund/internal/store"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2025-06-01"
)

// App holds the application dependencies.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Broker   broker.Broker
	Store    store.DataStore
	Provider decisions.Provider
}

// Execute is the process entry point: it loads .env and configuration,
// builds the logger and dependency graph, and runs the root command.
func Execute() int {
	_ = godotenv.Load()

	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return 1
	}

	logCfg := logging.DefaultLogConfig()
	logCfg.Level = cfg.Logging.Level
	logCfg.Console = cfg.Logging.Console
	logCfg.File = cfg.Logging.File
	logger := logging.NewLoggerWithConfig(logCfg)

	rootCmd := NewRootCmd(cfg, logger)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	// Broker selection follows the execution mode: simulated fills in
	// dry-run, the OpenD gateway otherwise.
	if cfg.Trading.DryRun {
		app.Broker = broker.NewSimBroker()
		logger.Debug().Msg("Simulated broker initialized")
	} else {
		futu, err := broker.NewFutuBroker(broker.FutuConfig{
			Host:          cfg.Gateway.Host,
			Port:          cfg.Gateway.Port,
			AccountID:     cfg.Gateway.AccountID,
			TradePassword: cfg.Credentials.Futu.TradePassword,
			Logger:        logger,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize gateway broker")
		} else {
			app.Broker = futu
			logger.Debug().Str("host", cfg.Gateway.Host).Int("port", cfg.Gateway.Port).Msg("Gateway broker initialized")
		}
	}

	dataStore, err := store.NewSQLiteStore(cfg.StorePath())
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize store, journaling disabled")
	} else {
		app.Store = dataStore
		logger.Debug().Str("path", cfg.StorePath()).Msg("SQLite store initialized")
	}

	if cfg.Credentials.OpenAI.APIKey != "" {
		app.Provider = decisions.NewLLMProvider(cfg.Credentials.OpenAI.APIKey, cfg.OpenAI.Model, logger)
		logger.Debug().Str("model", cfg.OpenAI.Model).Msg("OpenAI decision provider initialized")
	}

	rootCmd := &cobra.Command{
		Use:   "hedgefund",
		Short: "AI Hedge Fund - risk-gated live trading CLI",
		Long: `AI Hedge Fund executes AI trading decisions through a risk-gated
pipeline against the Futu OpenD gateway, or against a deterministic
simulator in dry-run mode.

Every order passes position-size, cash-reserve, daily-loss, frequency
and concentration checks before it reaches the broker.

Use 'hedgefund help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/ai-hedge-fund)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	addCoreCommands(rootCmd, app)
	addTradeCommands(rootCmd, app)
	addSessionCommands(rootCmd, app)
	addAccountCommands(rootCmd, app)
	addRiskCommands(rootCmd, app)
	addValidateCommands(rootCmd, app)
	addHistoryCommands(rootCmd, app)

	return rootCmd
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("AI Hedge Fund v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(redactedConfig(app.Config))
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("✓ Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	mode := "DRY RUN (simulated)"
	if !cfg.Trading.DryRun {
		mode = "LIVE"
	}

	output.Bold("Gateway")
	output.Printf("  Host:            %s\n", cfg.Gateway.Host)
	output.Printf("  Port:            %d\n", cfg.Gateway.Port)
	output.Printf("  Account ID:      %s\n", orUnset(cfg.Gateway.AccountID))
	output.Println()

	output.Bold("Trading")
	output.Printf("  Mode:            %s\n", mode)
	output.Printf("  Short Selling:   %v\n", cfg.Trading.EnableShortSelling)
	output.Printf("  Max Order Value: $%.2f\n", cfg.Trading.MaxOrderValue)
	output.Println()

	output.Bold("Risk Limits")
	output.Printf("  Max Position Size:  $%.2f\n", cfg.Risk.MaxPositionSize)
	output.Printf("  Max Daily Loss:     $%.2f\n", cfg.Risk.MaxDailyLoss)
	output.Printf("  Max Concentration:  %.0f%%\n", cfg.Risk.MaxPositionConcentration*100)
	output.Printf("  Max Trades/Day:     %d\n", cfg.Risk.MaxTradesPerDay)
	output.Printf("  Min Cash Reserve:   $%.2f\n", cfg.Risk.MinCashReserve)
	output.Println()

	output.Bold("Decisions")
	output.Printf("  Model:           %s\n", cfg.OpenAI.Model)
	output.Println()

	output.Bold("Credentials")
	output.Printf("  Trade Password:  %s\n", security.DescribeSecret(cfg.Credentials.Futu.TradePassword))
	output.Printf("  OpenAI API Key:  %s\n", security.DescribeSecret(cfg.Credentials.OpenAI.APIKey))
	output.Println()

	output.Bold("Session")
	output.Printf("  Tickers:         %v\n", cfg.Session.Tickers)
	output.Printf("  Schedule:        %s\n", orUnset(cfg.Session.Schedule))
}

func orUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

// redactedConfig returns a copy safe for serialization: secrets are
// masked so config output can be pasted into tickets or chat.
func redactedConfig(cfg *config.Config) config.Config {
	out := *cfg
	out.Credentials.Futu.TradePassword = security.MaskCredential(out.Credentials.Futu.TradePassword)
	out.Credentials.OpenAI.APIKey = security.MaskCredential(out.Credentials.OpenAI.APIKey)
	return out
}
