package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"spread-trader/internal/models"
	"spread-trader/internal/reconcile"
)

// addOrderCommands adds order status commands.
func addOrderCommands(rootCmd *cobra.Command, app *App) {
	ordersCmd := &cobra.Command{
		Use:   "orders",
		Short: "Track submitted order pairs",
	}
	ordersCmd.AddCommand(newOrdersStatusCmd(app))
	ordersCmd.AddCommand(newOrdersWatchCmd(app))
	rootCmd.AddCommand(ordersCmd)
}

func newOrdersStatusCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Poll open orders once and show their status",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if !requireAuth(app, output) {
				return fmt.Errorf("not authenticated")
			}

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			days, _ := cmd.Flags().GetInt("days")
			legs, err := openLegs(ctx, app, days)
			if err != nil {
				output.Error("Failed to load open orders: %v", err)
				return err
			}
			if len(legs) == 0 {
				output.Info("No open orders")
				return nil
			}

			reconciler := newReconciler(app)
			for _, leg := range legs {
				if err := reconciler.Poll(ctx, leg); err != nil {
					app.Logger.Warn().Err(err).Str("order_id", leg.OrderID).Msg("status query failed")
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(app.Config.Reconcile.QueryDelay):
				}
			}

			if output.IsJSON() {
				return output.JSON(legs)
			}
			printLegStatuses(output, legs)
			return nil
		},
	}

	cmd.Flags().Int("days", 7, "look back this many days for open orders")
	return cmd
}

func newOrdersWatchCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll open orders continuously until all reach a terminal state",
		Long: `Poll open orders on a fixed interval, with a pause between consecutive
order queries, until every tracked leg is filled, cancelled or rejected.
Interrupt with Ctrl-C.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if !requireAuth(app, output) {
				return fmt.Errorf("not authenticated")
			}

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			days, _ := cmd.Flags().GetInt("days")
			legs, err := openLegs(ctx, app, days)
			if err != nil {
				output.Error("Failed to load open orders: %v", err)
				return err
			}
			if len(legs) == 0 {
				output.Info("No open orders")
				return nil
			}

			reconciler := newReconciler(app)
			output.Info("Watching %d open orders (Ctrl-C to stop)...", len(legs))

			ticker := time.NewTicker(app.Config.Reconcile.PollInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					for _, leg := range legs {
						if leg.Status.IsTerminal() {
							continue
						}
						if err := reconciler.Poll(ctx, leg); err != nil {
							app.Logger.Warn().Err(err).Str("order_id", leg.OrderID).Msg("status query failed, will retry")
						}
						select {
						case <-ctx.Done():
							return nil
						case <-time.After(app.Config.Reconcile.QueryDelay):
						}
					}
					printLegStatuses(output, legs)
					if allTerminal(legs) {
						output.Success("All orders reached a terminal state")
						return nil
					}
				}
			}
		},
	}

	cmd.Flags().Int("days", 7, "look back this many days for open orders")
	return cmd
}

// newReconciler builds a reconciler backed by the broker and, when
// available, the store so status updates survive restarts.
func newReconciler(app *App) *reconcile.Reconciler {
	var sink reconcile.StatusSink
	if app.Store != nil {
		sink = app.Store
	}
	return reconcile.New(app.Broker, sink, app.Logger, app.Config.Reconcile.QueryDelay)
}

// openLegs reconstructs in-memory legs for every non-terminal persisted
// order record.
func openLegs(ctx context.Context, app *App, days int) ([]*models.OrderLeg, error) {
	if app.Store == nil {
		return nil, fmt.Errorf("history database unavailable")
	}

	records, err := app.Store.GetOrderHistory(ctx, "", days)
	if err != nil {
		return nil, err
	}

	var legs []*models.OrderLeg
	seen := make(map[string]bool)
	for _, r := range records {
		if r.OrderID == "" || r.Status.IsTerminal() {
			continue
		}
		if seen[r.OrderID] {
			continue
		}
		seen[r.OrderID] = true
		legs = append(legs, &models.OrderLeg{
			Side:       models.OrderSide(r.Side),
			Market:     models.MarketSegment(r.Market),
			Symbol:     r.Symbol,
			Exchange:   models.Exchange(r.Exchange),
			Quantity:   r.Quantity,
			OrderID:    r.OrderID,
			Accepted:   r.Accepted,
			Status:     r.Status,
			FilledQty:  r.FilledQty,
			PendingQty: r.PendingQty,
			Message:    r.Message,
		})
	}
	return legs, nil
}

func printLegStatuses(output *Output, legs []*models.OrderLeg) {
	color.Cyan("📋 Order Status")
	output.Printf("%-14s %-12s %-5s %-5s %6s  %s\n",
		"ORDER ID", "SYMBOL", "EXCH", "SIDE", "QTY", "STATUS")
	for _, leg := range legs {
		status := leg.DisplayStatus()
		switch leg.Status {
		case models.LegFilled:
			status = output.Green(status)
		case models.LegRejected, models.LegCancelled:
			status = output.Red(status)
		default:
			status = output.Yellow(status)
		}
		output.Printf("%-14s %-12s %-5s %-5s %6d  %s\n",
			leg.OrderID, leg.Symbol, leg.Exchange, leg.Side, leg.Quantity, status)
	}
	output.Println()
}

func allTerminal(legs []*models.OrderLeg) bool {
	for _, leg := range legs {
		if !leg.Status.IsTerminal() {
			return false
		}
	}
	return true
}
