package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"spread-trader/internal/models"
	"spread-trader/pkg/utils"
)

// addScanCommands adds opportunity scanning commands.
func addScanCommands(rootCmd *cobra.Command, app *App) {
	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan for spread opportunities",
	}
	scanCmd.AddCommand(newScanArbitrageCmd(app))
	scanCmd.AddCommand(newScanPremiumCmd(app))
	rootCmd.AddCommand(scanCmd)
}

// warnMarketStatus tells the operator when snapshots will be stale or
// intraday positions are about to be squared off. Scans still run; closed
// markets return the last traded prices.
func warnMarketStatus(output *Output) {
	switch utils.GetMarketStatus() {
	case models.MarketClosed:
		output.Warning("Market is closed; quotes are last traded prices.")
	case models.MarketPreOpen:
		output.Warning("Pre-open session; prices are indicative until 9:15.")
	case models.MarketMISSquareOffWarn:
		output.Warning("MIS square-off window; intraday positions close at 15:15.")
	}
}

func newScanArbitrageCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "arbitrage",
		Short: "Scan NSE vs BSE pricing divergences",
		Long: `Scan the configured universe for NSE-BSE pricing divergences.

A row is flagged profitable when the gross difference exceeds 0.05%, the
level at which it covers brokerage and taxes. Every snapshot is appended
to the local history database.`,
		Example: `  spread-trader scan arbitrage
  spread-trader scan arbitrage --symbols RELIANCE,TCS --min-profit 0.1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if !requireAuth(app, output) {
				return fmt.Errorf("not authenticated")
			}
			warnMarketStatus(output)

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			symbols := scanSymbols(cmd, app)
			minProfit, _ := cmd.Flags().GetFloat64("min-profit")
			if !cmd.Flags().Changed("min-profit") {
				minProfit = app.Config.Scan.MinProfitPct
			}

			qualified := make([]string, 0, len(symbols)*2)
			for _, s := range symbols {
				qualified = append(qualified,
					fmt.Sprintf("%s:%s", models.NSE, s),
					fmt.Sprintf("%s:%s", models.BSE, s))
			}

			quotes, err := app.Engine.FetchQuotes(ctx, qualified)
			if err != nil {
				output.Error("Quote fetch failed: %v", err)
				return err
			}

			spreads := app.Engine.EvaluateCrossVenue(quotes, minProfit)

			if app.Store != nil {
				if err := app.Store.AppendCrossVenueSpreads(ctx, spreads); err != nil {
					app.Logger.Warn().Err(err).Msg("failed to persist scan snapshots")
				}
			}

			if output.IsJSON() {
				return output.JSON(spreads)
			}

			printCrossVenueTable(output, spreads, minProfit)
			return nil
		},
	}

	cmd.Flags().StringSlice("symbols", nil, "symbols to scan (default: configured universe)")
	cmd.Flags().Float64("min-profit", 0, "minimum gross price difference % to report")

	return cmd
}

func newScanPremiumCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "premium",
		Short: "Scan cash vs near-month futures premiums",
		Long: `Scan the configured universe for cash-futures premiums.

For each underlying with a live near-month futures contract, computes the
premium of the futures price over the cash price. Buy cash and sell
futures to capture the premium as it decays to zero at expiry. Contracts
at or past expiry are skipped, never rolled.`,
		Example: `  spread-trader scan premium
  spread-trader scan premium --symbols RELIANCE,INFY`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if !requireAuth(app, output) {
				return fmt.Errorf("not authenticated")
			}
			warnMarketStatus(output)

			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
			defer cancel()

			symbols := scanSymbols(cmd, app)

			contracts, err := app.Resolver.NearMonthFutures(ctx, symbols)
			if err != nil {
				output.Error("Contract resolution failed: %v", err)
				return err
			}
			if len(contracts) == 0 {
				output.Warning("No live near-month contracts found for the given symbols")
				return nil
			}

			cashQualified := make([]string, 0, len(contracts))
			futQualified := make([]string, 0, len(contracts))
			for underlying, contract := range contracts {
				cashQualified = append(cashQualified, fmt.Sprintf("%s:%s", models.NSE, underlying))
				futQualified = append(futQualified, fmt.Sprintf("%s:%s", contract.Exchange, contract.TradingSymbol))
			}

			cashQuotes, err := app.Engine.FetchQuotes(ctx, cashQualified)
			if err != nil {
				output.Error("Cash quote fetch failed: %v", err)
				return err
			}
			futQuotes, err := app.Engine.FetchQuotes(ctx, futQualified)
			if err != nil {
				output.Error("Futures quote fetch failed: %v", err)
				return err
			}

			premiums := app.Engine.EvaluateCashFutures(cashQuotes, futQuotes, contracts)

			if app.Store != nil {
				if err := app.Store.AppendCashFuturesPremiums(ctx, premiums); err != nil {
					app.Logger.Warn().Err(err).Msg("failed to persist scan snapshots")
				}
			}

			if output.IsJSON() {
				return output.JSON(premiums)
			}

			printPremiumTable(output, premiums)
			return nil
		},
	}

	cmd.Flags().StringSlice("symbols", nil, "symbols to scan (default: configured universe)")

	return cmd
}

// scanSymbols returns the symbol universe for a scan command: the
// --symbols flag when given, otherwise the configured universe.
func scanSymbols(cmd *cobra.Command, app *App) []string {
	if flagSymbols, _ := cmd.Flags().GetStringSlice("symbols"); len(flagSymbols) > 0 {
		return flagSymbols
	}
	return app.Config.Scan.Symbols
}

func printCrossVenueTable(output *Output, spreads []models.CrossVenueSpread, minProfit float64) {
	color.Cyan("📊 NSE-BSE Arbitrage Scan")
	if len(spreads) == 0 {
		output.Dim("No spreads at or above %.2f%%", minProfit)
		return
	}

	output.Printf("%-12s %10s %10s %8s %10s %10s %8s  %s\n",
		"SYMBOL", "NSE", "BSE", "DIFF%", "AVG VOL", "SCORE", "BUY@", "STATUS")
	for _, s := range spreads {
		status := output.DimText("below threshold")
		if s.IsProfitable {
			status = output.Green("PROFITABLE")
		}
		output.Printf("%-12s %10.2f %10.2f %7.3f%% %10s %10.4f %8s  %s\n",
			s.Symbol, s.NSEPrice, s.BSEPrice, s.PriceDiffPct,
			utils.FormatQuantity(int64(s.AvgVolume)), s.Score,
			string(s.LowerExchange), status)
	}
	output.Println()
	output.Dim("%d spreads; profitable above %.2f%% gross", len(spreads), models.ProfitabilityThresholdPct)
}

func printPremiumTable(output *Output, premiums []models.CashFuturesPremium) {
	color.Cyan("📈 Cash-Futures Premium Scan")
	if len(premiums) == 0 {
		output.Dim("No premiums found")
		return
	}

	output.Printf("%-12s %10s %10s %9s %9s %6s %6s %12s %10s\n",
		"SYMBOL", "CASH", "FUTURES", "PREM%", "ANNUAL%", "DAYS", "LOT", "PROFIT/LOT", "SCORE")
	for _, p := range premiums {
		output.Printf("%-12s %10.2f %10.2f %8.3f%% %8.2f%% %6d %6d %12s %10.4f\n",
			p.Symbol, p.CashPrice, p.FuturesPrice, p.PremiumPct,
			p.AnnualizedPremium, p.DaysToExpiry, p.LotSize,
			utils.FormatIndianCurrency(p.ProfitPerLot()), p.Score)
	}
	output.Println()
	output.Dim("%d contracts; premium decays to zero at expiry", len(premiums))
}
