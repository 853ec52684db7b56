package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"spread-trader/internal/models"
	"spread-trader/internal/store"
	"spread-trader/internal/trading"
	"spread-trader/pkg/utils"
)

// addTradeCommands adds pair execution commands.
func addTradeCommands(rootCmd *cobra.Command, app *App) {
	tradeCmd := &cobra.Command{
		Use:   "trade",
		Short: "Execute spread opportunities as matched order pairs",
	}
	tradeCmd.AddCommand(newTradePairCmd(app))
	tradeCmd.AddCommand(newTradePremiumCmd(app))
	rootCmd.AddCommand(tradeCmd)
}

func newTradePairCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pair <symbol>",
		Short: "Execute an NSE-BSE arbitrage pair",
		Long: `Execute an NSE-BSE arbitrage pair for a symbol: buy at the lower-priced
venue, sell at the higher-priced venue, both as intraday limit orders at
the scanned prices.

Legs are independent venue orders; there is no atomic pair primitive. If
one leg is rejected the other is NOT cancelled automatically. Mixed
outcomes are reported for manual reconciliation.`,
		Example: `  spread-trader trade pair RELIANCE --qty 10
  spread-trader trade pair TCS --qty 5 --yes`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if !requireAuth(app, output) {
				return fmt.Errorf("not authenticated")
			}
			warnMarketStatus(output)

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			symbol := strings.ToUpper(args[0])
			qty, _ := cmd.Flags().GetInt("qty")
			skipConfirm, _ := cmd.Flags().GetBool("yes")

			qualified := []string{
				fmt.Sprintf("%s:%s", models.NSE, symbol),
				fmt.Sprintf("%s:%s", models.BSE, symbol),
			}
			quotes, err := app.Engine.FetchQuotes(ctx, qualified)
			if err != nil {
				output.Error("Quote fetch failed: %v", err)
				return err
			}

			spreads := app.Engine.EvaluateCrossVenue(quotes, 0)
			var opp *models.CrossVenueSpread
			for i := range spreads {
				if spreads[i].Symbol == symbol {
					opp = &spreads[i]
					break
				}
			}
			if opp == nil {
				output.Error("No two-venue quote for %s; cannot form a pair", symbol)
				return fmt.Errorf("no spread for %s", symbol)
			}

			color.Cyan("⚖  Arbitrage Pair - %s", symbol)
			output.Printf("  Buy  %s @ %.2f  x %d (MIS LIMIT)\n", opp.LowerExchange, opp.LowerPrice, qty)
			output.Printf("  Sell %s @ %.2f  x %d (MIS LIMIT)\n", opp.HigherExchange, opp.HigherPrice, qty)
			output.Printf("  Gross spread: %.3f%%  expected profit: %s\n",
				opp.PriceDiffPct, utils.FormatIndianCurrency(opp.ProfitPerShare*float64(qty)))
			if !opp.IsProfitable {
				output.Warning("Spread is below the %.2f%% gross profitability threshold", models.ProfitabilityThresholdPct)
			}

			required := trading.EstimatePairMargin(*opp, qty)
			showAffordability(ctx, app, output, required)

			if !skipConfirm && !confirm(output) {
				output.Info("Aborted")
				return nil
			}

			batch, err := app.Executor.SubmitCrossVenuePair(ctx, *opp, qty)
			if err != nil {
				output.Error("Submission failed: %v", err)
				return err
			}

			persistBatch(ctx, app, batch, opp.ProfitPerShare*float64(qty))
			reportBatch(output, batch)
			if watch, _ := cmd.Flags().GetBool("watch"); watch {
				watchBatch(ctx, app, output, batch)
			}
			return nil
		},
	}

	cmd.Flags().Int("qty", 1, "quantity per leg")
	cmd.Flags().Bool("yes", false, "skip confirmation prompt")
	cmd.Flags().Bool("watch", false, "poll order status until both legs reach a terminal state")

	return cmd
}

func newTradePremiumCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "premium <symbol>",
		Short: "Execute a cash-futures premium pair",
		Long: `Execute a cash-futures premium pair for an underlying: buy the stock on
NSE for delivery and sell the near-month futures contract, both as market
orders. Hold to expiry to capture the premium.

Quantity is lots times the contract lot size on both legs. If one leg is
rejected the other is NOT cancelled automatically.`,
		Example: `  spread-trader trade premium RELIANCE --lots 1
  spread-trader trade premium INFY --lots 2 --yes`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if !requireAuth(app, output) {
				return fmt.Errorf("not authenticated")
			}
			warnMarketStatus(output)

			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
			defer cancel()

			symbol := strings.ToUpper(args[0])
			lots, _ := cmd.Flags().GetInt("lots")
			skipConfirm, _ := cmd.Flags().GetBool("yes")

			contracts, err := app.Resolver.NearMonthFutures(ctx, []string{symbol})
			if err != nil {
				output.Error("Contract resolution failed: %v", err)
				return err
			}
			contract, ok := contracts[symbol]
			if !ok {
				output.Error("No live near-month futures contract for %s", symbol)
				return fmt.Errorf("no contract for %s", symbol)
			}

			cashQuotes, err := app.Engine.FetchQuotes(ctx,
				[]string{fmt.Sprintf("%s:%s", models.NSE, symbol)})
			if err != nil {
				output.Error("Cash quote fetch failed: %v", err)
				return err
			}
			futQuotes, err := app.Engine.FetchQuotes(ctx,
				[]string{fmt.Sprintf("%s:%s", contract.Exchange, contract.TradingSymbol)})
			if err != nil {
				output.Error("Futures quote fetch failed: %v", err)
				return err
			}

			premiums := app.Engine.EvaluateCashFutures(cashQuotes, futQuotes,
				map[string]models.FutureContract{symbol: contract})
			if len(premiums) == 0 {
				output.Error("No premium computable for %s", symbol)
				return fmt.Errorf("no premium for %s", symbol)
			}
			opp := premiums[0]

			quantity := lots * opp.LotSize

			color.Cyan("📈 Premium Pair - %s", symbol)
			output.Printf("  Buy  NSE %s @ market x %d (CNC)\n", symbol, quantity)
			output.Printf("  Sell NFO %s @ market x %d (NRML)\n", opp.FuturesSymbol, quantity)
			output.Printf("  Premium: %.3f%% (%.2f%% annualized), %d days to expiry\n",
				opp.PremiumPct, opp.AnnualizedPremium, opp.DaysToExpiry)
			output.Printf("  Expected capture: %s\n",
				utils.FormatIndianCurrency(opp.ProfitPerLot()*float64(lots)))

			required := trading.EstimatePremiumPairMargin(opp, lots)
			showAffordability(ctx, app, output, required)

			if !skipConfirm && !confirm(output) {
				output.Info("Aborted")
				return nil
			}

			batch, err := app.Executor.SubmitCashFuturesPair(ctx, opp, lots)
			if err != nil {
				output.Error("Submission failed: %v", err)
				return err
			}

			persistBatch(ctx, app, batch, opp.ProfitPerLot()*float64(lots))
			reportBatch(output, batch)
			if watch, _ := cmd.Flags().GetBool("watch"); watch {
				watchBatch(ctx, app, output, batch)
			}
			return nil
		},
	}

	cmd.Flags().Int("lots", 1, "number of lots")
	cmd.Flags().Bool("yes", false, "skip confirmation prompt")
	cmd.Flags().Bool("watch", false, "poll order status until both legs reach a terminal state")

	return cmd
}

// showAffordability prints the margin estimate. A lookup failure degrades
// to an unknown balance; it never blocks the trade.
func showAffordability(ctx context.Context, app *App, output *Output, required float64) {
	afford := trading.CheckAffordability(ctx, app.Broker, app.Logger, required)
	output.Printf("  Estimated margin: %s", utils.FormatIndianCurrency(afford.Required))
	if !afford.Known {
		output.Printf("  (available balance unknown)\n")
		return
	}
	output.Printf("  available: %s\n", utils.FormatIndianCurrency(afford.Available))
	if !afford.Sufficient {
		output.Warning("Available margin may be insufficient for both legs")
	}
}

func confirm(output *Output) bool {
	output.Printf("Proceed? [y/N] ")
	reader := bufio.NewReader(os.Stdin)
	answer, _ := reader.ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

// persistBatch appends one record per leg to the history database.
func persistBatch(ctx context.Context, app *App, batch *models.OrderBatch, profitExpected float64) {
	if app.Store == nil {
		return
	}
	for _, leg := range batch.Legs {
		record := legToRecord(batch, leg)
		record.ProfitExpected = profitExpected
		if err := app.Store.AppendOrderRecord(ctx, record); err != nil {
			app.Logger.Warn().Err(err).Str("symbol", leg.Symbol).Msg("failed to persist order record")
		}
	}
}

func legToRecord(batch *models.OrderBatch, leg *models.OrderLeg) *store.OrderRecord {
	record := &store.OrderRecord{
		BatchID:    batch.ID,
		Kind:       string(batch.Kind),
		Symbol:     leg.Symbol,
		Exchange:   string(leg.Exchange),
		Side:       string(leg.Side),
		Market:     string(leg.Market),
		Quantity:   leg.Quantity,
		Product:    string(leg.Product),
		OrderType:  string(leg.OrderType),
		OrderID:    leg.OrderID,
		Accepted:   leg.Accepted,
		Status:     leg.Status,
		Message:    leg.Message,
		FilledQty:  leg.FilledQty,
		PendingQty: leg.PendingQty,
		Timestamp:  leg.SubmittedAt,
	}
	if leg.Price != nil {
		record.Price = *leg.Price
	}
	return record
}

// reportBatch prints per-leg outcomes and flags mixed batches.
func reportBatch(output *Output, batch *models.OrderBatch) {
	output.Println()
	for _, leg := range batch.Legs {
		label := fmt.Sprintf("%s %s:%s x%d", leg.Side, leg.Exchange, leg.Symbol, leg.Quantity)
		if leg.Accepted {
			output.Success("✓ %s  order %s", label, leg.OrderID)
		} else {
			output.Error("✗ %s  rejected: %s", label, leg.Message)
			if leg.RequiredMargin > 0 {
				output.Dim("  required margin %s, available %s",
					utils.FormatIndianCurrency(leg.RequiredMargin),
					utils.FormatIndianCurrency(leg.AvailableMargin))
			}
		}
	}

	switch {
	case batch.AllAccepted():
		output.Success("Both legs accepted. Track with 'spread-trader orders watch'.")
	case batch.Mixed():
		output.Warning("MIXED OUTCOME: one leg accepted, one rejected. The accepted leg was NOT cancelled; reconcile manually.")
	default:
		output.Error("All legs rejected")
	}
}

// watchBatch runs the background reconciler until the batch's legs reach
// terminal state or the command deadline passes. Completion is read back
// from the store so the polling goroutine owns the legs exclusively.
func watchBatch(ctx context.Context, app *App, output *Output, batch *models.OrderBatch) {
	open := batch.OpenLegs()
	if len(open) == 0 || app.Store == nil {
		return
	}
	ids := make(map[string]bool, len(open))
	for _, leg := range open {
		ids[leg.OrderID] = true
	}

	output.Info("Reconciling %d open leg(s)...", len(open))

	reconciler := newReconciler(app)
	watchCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		reconciler.Run(watchCtx, app.Config.Reconcile.PollInterval)
	}()
	reconciler.TrackBatch(batch)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
poll:
	for {
		select {
		case <-watchCtx.Done():
			break poll
		case <-ticker.C:
			openIDs, err := app.Store.GetOpenOrderIDs(watchCtx)
			if err != nil {
				continue
			}
			remaining := false
			for _, id := range openIDs {
				if ids[id] {
					remaining = true
					break
				}
			}
			if !remaining {
				break poll
			}
		}
	}
	cancel()
	<-done

	printLegStatuses(output, batch.Legs)
}
