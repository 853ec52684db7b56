package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"

	"spread-trader/internal/models"
	"spread-trader/internal/store"
)

// addHistoryCommands adds history and insight commands.
func addHistoryCommands(rootCmd *cobra.Command, app *App) {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Browse persisted scan and order history",
	}
	historyCmd.AddCommand(newHistorySpreadsCmd(app))
	historyCmd.AddCommand(newHistoryPremiumsCmd(app))
	historyCmd.AddCommand(newHistoryOrdersCmd(app))
	rootCmd.AddCommand(historyCmd)
}

func newHistorySpreadsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spreads",
		Short: "Show recorded NSE-BSE spread snapshots",
		Example: `  spread-trader history spreads --symbol RELIANCE --days 7
  spread-trader history spreads --csv spreads.csv
  spread-trader history spreads --insights`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				output.Error("History database unavailable")
				return fmt.Errorf("store unavailable")
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			symbol, _ := cmd.Flags().GetString("symbol")
			days, _ := cmd.Flags().GetInt("days")

			records, err := app.Store.GetCrossVenueHistory(ctx, symbol, days)
			if err != nil {
				output.Error("History query failed: %v", err)
				return err
			}

			if csvPath, _ := cmd.Flags().GetString("csv"); csvPath != "" {
				if err := exportCSV(csvPath, &records); err != nil {
					output.Error("CSV export failed: %v", err)
					return err
				}
				output.Success("✓ Exported %d rows to %s", len(records), csvPath)
				return nil
			}

			if output.IsJSON() {
				return output.JSON(records)
			}

			if insights, _ := cmd.Flags().GetBool("insights"); insights {
				printSpreadInsights(output, records, days)
				return nil
			}

			color.Cyan("🗂  Spread History (%d days)", days)
			if len(records) == 0 {
				output.Dim("No records")
				return nil
			}
			output.Printf("%-20s %-12s %10s %10s %8s %10s\n",
				"TIME", "SYMBOL", "NSE", "BSE", "DIFF%", "SCORE")
			for _, r := range records {
				output.Printf("%-20s %-12s %10.2f %10.2f %7.3f%% %10.4f\n",
					r.Timestamp.Format("2006-01-02 15:04:05"), r.Symbol,
					r.NSEPrice, r.BSEPrice, r.PriceDiffPct, r.Score)
			}
			return nil
		},
	}

	addHistoryFlags(cmd)
	return cmd
}

func newHistoryPremiumsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "premiums",
		Short: "Show recorded cash-futures premium snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				output.Error("History database unavailable")
				return fmt.Errorf("store unavailable")
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			symbol, _ := cmd.Flags().GetString("symbol")
			days, _ := cmd.Flags().GetInt("days")

			records, err := app.Store.GetCashFuturesHistory(ctx, symbol, days)
			if err != nil {
				output.Error("History query failed: %v", err)
				return err
			}

			if csvPath, _ := cmd.Flags().GetString("csv"); csvPath != "" {
				if err := exportCSV(csvPath, &records); err != nil {
					output.Error("CSV export failed: %v", err)
					return err
				}
				output.Success("✓ Exported %d rows to %s", len(records), csvPath)
				return nil
			}

			if output.IsJSON() {
				return output.JSON(records)
			}

			if insights, _ := cmd.Flags().GetBool("insights"); insights {
				printPremiumInsights(output, records, days)
				return nil
			}

			color.Cyan("🗂  Premium History (%d days)", days)
			if len(records) == 0 {
				output.Dim("No records")
				return nil
			}
			output.Printf("%-20s %-12s %10s %10s %8s %8s %6s\n",
				"TIME", "SYMBOL", "CASH", "FUTURES", "PREM%", "ANNUAL%", "DAYS")
			for _, r := range records {
				output.Printf("%-20s %-12s %10.2f %10.2f %7.3f%% %7.2f%% %6d\n",
					r.Timestamp.Format("2006-01-02 15:04:05"), r.Symbol,
					r.CashPrice, r.FuturesPrice, r.PremiumPct,
					r.AnnualizedPremium, r.DaysToExpiry)
			}
			return nil
		},
	}

	addHistoryFlags(cmd)
	return cmd
}

func newHistoryOrdersCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Show recorded order legs",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				output.Error("History database unavailable")
				return fmt.Errorf("store unavailable")
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			symbol, _ := cmd.Flags().GetString("symbol")
			days, _ := cmd.Flags().GetInt("days")

			records, err := app.Store.GetOrderHistory(ctx, symbol, days)
			if err != nil {
				output.Error("History query failed: %v", err)
				return err
			}

			if csvPath, _ := cmd.Flags().GetString("csv"); csvPath != "" {
				if err := exportCSV(csvPath, &records); err != nil {
					output.Error("CSV export failed: %v", err)
					return err
				}
				output.Success("✓ Exported %d rows to %s", len(records), csvPath)
				return nil
			}

			if output.IsJSON() {
				return output.JSON(records)
			}

			if insights, _ := cmd.Flags().GetBool("insights"); insights {
				printOrderInsights(output, records, days)
				return nil
			}

			color.Cyan("🗂  Order History (%d days)", days)
			if len(records) == 0 {
				output.Dim("No records")
				return nil
			}
			output.Printf("%-20s %-12s %-5s %-5s %6s %-14s %s\n",
				"TIME", "SYMBOL", "EXCH", "SIDE", "QTY", "ORDER ID", "STATUS")
			for _, r := range records {
				status := string(r.Status)
				switch r.Status {
				case models.LegFilled:
					status = output.Green(status)
				case models.LegRejected, models.LegCancelled:
					status = output.Red(status)
				}
				output.Printf("%-20s %-12s %-5s %-5s %6d %-14s %s\n",
					r.Timestamp.Format("2006-01-02 15:04:05"), r.Symbol,
					r.Exchange, r.Side, r.Quantity, r.OrderID, status)
			}
			return nil
		},
	}

	addHistoryFlags(cmd)
	return cmd
}

func addHistoryFlags(cmd *cobra.Command) {
	cmd.Flags().String("symbol", "", "filter by symbol")
	cmd.Flags().Int("days", 7, "look back this many days")
	cmd.Flags().String("csv", "", "export to a CSV file instead of printing")
	cmd.Flags().Bool("insights", false, "print aggregate insights instead of rows")
}

// exportCSV writes records to a CSV file. records must be a pointer to a
// slice of structs carrying csv tags.
func exportCSV(path string, records interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gocsv.MarshalFile(records, f)
}

// printSpreadInsights aggregates spread history into a per-symbol report
// of how often and how widely each stock diverged.
func printSpreadInsights(output *Output, records []store.CrossVenueRecord, days int) {
	color.Cyan("💡 Spread Insights (%d days)", days)
	if len(records) == 0 {
		output.Dim("No records")
		return
	}

	type stats struct {
		count      int
		profitable int
		sumPct     float64
		maxPct     float64
	}
	bySymbol := make(map[string]*stats)
	order := make([]string, 0)
	for _, r := range records {
		s := bySymbol[r.Symbol]
		if s == nil {
			s = &stats{}
			bySymbol[r.Symbol] = s
			order = append(order, r.Symbol)
		}
		s.count++
		if r.IsProfitable {
			s.profitable++
		}
		s.sumPct += r.PriceDiffPct
		if r.PriceDiffPct > s.maxPct {
			s.maxPct = r.PriceDiffPct
		}
	}
	sort.Slice(order, func(i, j int) bool {
		return bySymbol[order[i]].maxPct > bySymbol[order[j]].maxPct
	})

	output.Printf("%-12s %8s %12s %10s %10s\n",
		"SYMBOL", "SCANS", "PROFITABLE", "AVG DIFF%", "MAX DIFF%")
	for _, symbol := range order {
		s := bySymbol[symbol]
		output.Printf("%-12s %8d %12d %9.3f%% %9.3f%%\n",
			symbol, s.count, s.profitable, s.sumPct/float64(s.count), s.maxPct)
	}
	output.Println()
	output.Dim("%d snapshots across %d symbols", len(records), len(bySymbol))
}

// printPremiumInsights aggregates premium history into a per-symbol
// report of how rich each carry has run.
func printPremiumInsights(output *Output, records []store.CashFuturesRecord, days int) {
	color.Cyan("💡 Premium Insights (%d days)", days)
	if len(records) == 0 {
		output.Dim("No records")
		return
	}

	type stats struct {
		count     int
		sumPct    float64
		maxPct    float64
		maxAnnual float64
	}
	bySymbol := make(map[string]*stats)
	order := make([]string, 0)
	for _, r := range records {
		s := bySymbol[r.Symbol]
		if s == nil {
			s = &stats{}
			bySymbol[r.Symbol] = s
			order = append(order, r.Symbol)
		}
		s.count++
		s.sumPct += r.PremiumPct
		if r.PremiumPct > s.maxPct {
			s.maxPct = r.PremiumPct
		}
		if r.AnnualizedPremium > s.maxAnnual {
			s.maxAnnual = r.AnnualizedPremium
		}
	}
	sort.Slice(order, func(i, j int) bool {
		return bySymbol[order[i]].maxAnnual > bySymbol[order[j]].maxAnnual
	})

	output.Printf("%-12s %8s %10s %10s %12s\n",
		"SYMBOL", "SCANS", "AVG PREM%", "MAX PREM%", "MAX ANNUAL%")
	for _, symbol := range order {
		s := bySymbol[symbol]
		output.Printf("%-12s %8d %9.3f%% %9.3f%% %11.2f%%\n",
			symbol, s.count, s.sumPct/float64(s.count), s.maxPct, s.maxAnnual)
	}
	output.Println()
	output.Dim("%d snapshots across %d symbols", len(records), len(bySymbol))
}

// printOrderInsights aggregates order history into per-symbol submission
// outcomes.
func printOrderInsights(output *Output, records []store.OrderRecord, days int) {
	color.Cyan("💡 Order Insights (%d days)", days)
	if len(records) == 0 {
		output.Dim("No records")
		return
	}

	type stats struct {
		legs      int
		filled    int
		rejected  int
		open      int
		filledQty int
	}
	bySymbol := make(map[string]*stats)
	order := make([]string, 0)
	for _, r := range records {
		s := bySymbol[r.Symbol]
		if s == nil {
			s = &stats{}
			bySymbol[r.Symbol] = s
			order = append(order, r.Symbol)
		}
		s.legs++
		s.filledQty += r.FilledQty
		switch r.Status {
		case models.LegFilled:
			s.filled++
		case models.LegRejected, models.LegCancelled:
			s.rejected++
		default:
			s.open++
		}
	}
	sort.Slice(order, func(i, j int) bool {
		return bySymbol[order[i]].legs > bySymbol[order[j]].legs
	})

	output.Printf("%-12s %6s %8s %9s %6s %12s\n",
		"SYMBOL", "LEGS", "FILLED", "REJECTED", "OPEN", "FILLED QTY")
	for _, symbol := range order {
		s := bySymbol[symbol]
		output.Printf("%-12s %6d %8d %9d %6d %12d\n",
			symbol, s.legs, s.filled, s.rejected, s.open, s.filledQty)
	}
	output.Println()
	output.Dim("%d legs across %d symbols", len(records), len(bySymbol))
}
