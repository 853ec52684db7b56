package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"spread-trader/internal/broker"
)

// addAuthCommands adds authentication commands.
func addAuthCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newLoginCmd(app))
	rootCmd.AddCommand(newLogoutCmd(app))
	rootCmd.AddCommand(newAuthStatusCmd(app))
}

func newLoginCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Login to Zerodha Kite Connect",
		Long: `Login to Zerodha Kite Connect.

Prints the OAuth login URL; after completing the browser login, paste the
request_token from the redirect URL. The session is saved until the next
trading day.`,
		Example: `  spread-trader login
  spread-trader login --token=<request_token>`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			if !requireBroker(app, output) {
				return fmt.Errorf("broker not configured")
			}

			zb := app.Zerodha
			if zb == nil {
				output.Info("Paper trading mode, no login required.")
				return nil
			}

			if zb.IsAuthenticated() {
				output.Success("✓ Already logged in")
				return nil
			}

			token, _ := cmd.Flags().GetString("token")
			if token != "" {
				return completeLogin(ctx, zb, output, token)
			}

			output.Bold("Login URL:")
			output.Println(zb.LoginURL())
			output.Println()
			output.Info("After logging in, you'll be redirected to a URL like:")
			output.Dim("  https://your-redirect-url.com/?request_token=XXXXXX&status=success")
			output.Println()
			output.Bold("Paste the request_token value here:")

			reader := bufio.NewReader(os.Stdin)
			fmt.Print("> ")
			inputToken, _ := reader.ReadString('\n')
			inputToken = strings.TrimSpace(inputToken)

			if inputToken == "" {
				output.Error("No token provided")
				return fmt.Errorf("no token provided")
			}

			return completeLogin(ctx, zb, output, inputToken)
		},
	}

	cmd.Flags().String("token", "", "Request token from redirect URL")

	return cmd
}

func completeLogin(ctx context.Context, zb *broker.ZerodhaBroker, output *Output, token string) error {
	output.Info("Completing login with token...")
	if err := zb.CompleteLogin(ctx, token); err != nil {
		output.Error("Login failed: %v", err)
		return err
	}
	output.Success("✓ Login successful, session saved")
	return nil
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Logout and invalidate the saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			zb := app.Zerodha
			if zb == nil {
				output.Info("Nothing to log out of.")
				return nil
			}

			if err := zb.Logout(ctx); err != nil {
				output.Warning("Logout failed: %v", err)
				return err
			}
			output.Success("✓ Logged out")
			return nil
		},
	}
}

func newAuthStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show authentication status",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			if app.Broker == nil {
				output.Warning("Broker not configured")
				return nil
			}

			mode := "live"
			if app.Config.IsPaperMode() {
				mode = "paper"
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"mode":          mode,
					"authenticated": app.Broker.IsAuthenticated(),
				})
			}

			output.Printf("Mode: %s\n", mode)
			if app.Broker.IsAuthenticated() {
				output.Success("✓ Authenticated")
			} else {
				output.Warning("Not authenticated. Run 'spread-trader login'.")
			}
			return nil
		},
	}
}
