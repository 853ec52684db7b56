// Package cli provides the command-line interface for the spread trader.
package cli

import (
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"spread-trader/internal/broker"
	"spread-trader/internal/config"
	"spread-trader/internal/logging"
	"spread-trader/internal/resilience"
	"spread-trader/internal/resolver"
	"spread-trader/internal/spread"
	"spread-trader/internal/store"
	"spread-trader/internal/trading"
)

// Version information
const (
	Version = "0.1.0"
)

// App holds the application dependencies.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Broker   broker.Broker
	Zerodha  *broker.ZerodhaBroker
	Store    store.DataStore
	Resolver *resolver.Resolver
	Engine   *spread.Engine
	Executor *trading.PairExecutor
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if cfg.IsPaperMode() {
		app.Broker = broker.NewPaperBroker(broker.PaperBrokerConfig{})
		logger.Debug().Msg("paper broker initialized")
	} else if cfg.Credentials.Zerodha.APIKey != "" {
		app.Zerodha = broker.NewZerodhaBroker(broker.ZerodhaConfig{
			APIKey:    cfg.Credentials.Zerodha.APIKey,
			APISecret: cfg.Credentials.Zerodha.APISecret,
			UserID:    cfg.Credentials.Zerodha.UserID,
			Timeout:   cfg.Trading.GatewayTimeout,
		})
		app.Broker = resilience.NewResilientBroker(app.Zerodha, resilience.DefaultCircuitBreakerConfig(), logger)
		logger.Debug().Msg("Zerodha broker initialized with circuit breakers")
	}

	dbPath := cfg.Storage.DBPath
	if dbPath == "" {
		dbPath = filepath.Join(config.DefaultConfigDir(), "spread-trader.db")
	}
	dataStore, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to initialize store, history will be unavailable")
	} else {
		app.Store = dataStore
		logger.Debug().Str("path", dbPath).Msg("SQLite store initialized")
	}

	if app.Broker != nil {
		app.Resolver = resolver.New(app.Broker, logger, cfg.Scan.LotSizes)
		app.Engine = spread.NewEngine(app.Broker, logger)
		app.Executor = trading.NewPairExecutor(app.Broker, logger, cfg.Trading.OrderTag)
	}

	rootCmd := &cobra.Command{
		Use:   "spread-trader",
		Short: "NSE/BSE spread trader - opportunity scanning and pair execution",
		Long: `spread-trader scans the Indian cash and derivatives markets for two
kinds of spread opportunities and executes them as matched order pairs:

  arbitrage  NSE vs BSE pricing divergences on the same stock
  premium    cash vs near-month futures premium (theta capture)

It integrates with the Zerodha Kite Connect API. Run 'spread-trader login'
first, then 'spread-trader scan arbitrage' or 'spread-trader scan premium'.`,
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

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/spread-trader)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	addAuthCommands(rootCmd, app)
	addScanCommands(rootCmd, app)
	addTradeCommands(rootCmd, app)
	addOrderCommands(rootCmd, app)
	addHistoryCommands(rootCmd, app)
	addMarginCommand(rootCmd, app)
	addVersionCommand(rootCmd)

	return rootCmd
}

func addVersionCommand(rootCmd *cobra.Command) {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("spread-trader %s\n", Version)
		},
	})
}

// requireBroker returns the broker or a user-facing error when credentials
// are missing.
func requireBroker(app *App, output *Output) bool {
	if app.Broker == nil {
		output.Error("Broker not configured. Add credentials to credentials.toml or set ZERODHA_API_KEY.")
		return false
	}
	return true
}

// requireAuth checks that the broker session is live.
func requireAuth(app *App, output *Output) bool {
	if !requireBroker(app, output) {
		return false
	}
	if !app.Broker.IsAuthenticated() {
		output.Error("Not authenticated. Run 'spread-trader login' first.")
		return false
	}
	return true
}
