package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"spread-trader/internal/models"
	"spread-trader/internal/trading"
	"spread-trader/pkg/utils"
)

// addMarginCommand adds the margin inspection command.
func addMarginCommand(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "margin [symbol] [qty]",
		Short: "Show available margin, or estimate margin for an order",
		Long: `With no arguments, shows the available equity margin.

With a symbol and quantity, estimates the margin to place that order:
full notional for delivery and carry-forward products, 30% of notional
for intraday.`,
		Example: `  spread-trader margin
  spread-trader margin RELIANCE 10
  spread-trader margin RELIANCE 10 --product MIS`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if !requireAuth(app, output) {
				return fmt.Errorf("not authenticated")
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if len(args) < 2 {
				available, err := app.Broker.GetAvailableMargin(ctx)
				if err != nil {
					output.Warning("Margin lookup failed: %v", err)
					return err
				}
				color.Cyan("💰 Available Margin")
				output.Printf("  %s\n", utils.FormatIndianCurrency(available))
				return nil
			}

			symbol := strings.ToUpper(args[0])
			qty, err := strconv.Atoi(args[1])
			if err != nil || qty < 1 {
				output.Error("Quantity must be a positive integer")
				return fmt.Errorf("invalid quantity %q", args[1])
			}

			productFlag, _ := cmd.Flags().GetString("product")
			product := models.ProductType(strings.ToUpper(productFlag))

			quotes, err := app.Engine.FetchQuotes(ctx,
				[]string{fmt.Sprintf("%s:%s", models.NSE, symbol)})
			if err != nil {
				output.Error("Quote fetch failed: %v", err)
				return err
			}
			quote, ok := quotes[fmt.Sprintf("%s:%s", models.NSE, symbol)]
			if !ok || quote.LastPrice <= 0 {
				output.Error("No quote for %s", symbol)
				return fmt.Errorf("no quote for %s", symbol)
			}

			required := trading.EstimateMargin(quote.LastPrice, qty, product)

			color.Cyan("💰 Margin Estimate - %s", symbol)
			output.Printf("  Price:    %.2f\n", quote.LastPrice)
			output.Printf("  Quantity: %d (%s)\n", qty, product)
			output.Printf("  Required: %s\n", utils.FormatIndianCurrency(required))

			afford := trading.CheckAffordability(ctx, app.Broker, app.Logger, required)
			if afford.Known {
				output.Printf("  Available: %s\n", utils.FormatIndianCurrency(afford.Available))
				if afford.Sufficient {
					output.Success("✓ Sufficient margin available")
				} else {
					output.Warning("Insufficient margin")
				}
			} else {
				output.Dim("  Available balance unknown")
			}
			return nil
		},
	}

	cmd.Flags().String("product", "MIS", "product type (MIS, CNC, NRML)")
	rootCmd.AddCommand(cmd)
}
