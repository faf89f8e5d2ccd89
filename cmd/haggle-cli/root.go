package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"haggle.local/haggle-gateway/internal/client"
	"haggle.local/haggle-gateway/internal/negotiate"
)

const defaultServerURL = "http://127.0.0.1:8080"

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "haggle",
		Short:         "Negotiate prices against a haggle gateway",
		Long:          "haggle drives negotiation sessions on a haggle gateway: start a session, exchange offers turn by turn, dump session state, or hold a live conversation over websocket.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().String("server", "", "gateway base URL (default from config or "+defaultServerURL+")")

	rootCmd.AddCommand(
		newStartCmd(),
		newStepCmd(),
		newDumpCmd(),
		newWatchCmd(),
	)
	return rootCmd
}

// serverURL resolves the gateway URL: flag, then HAGGLE_SERVER_URL, then the
// config file, then the default.
func serverURL(cmd *cobra.Command) string {
	if flagValue, err := cmd.Flags().GetString("server"); err == nil && strings.TrimSpace(flagValue) != "" {
		return strings.TrimSpace(flagValue)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configDir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(configDir, "haggle"))
	}
	v.SetEnvPrefix("HAGGLE")
	v.AutomaticEnv()
	v.SetDefault("server_url", defaultServerURL)
	_ = v.ReadInConfig()
	return v.GetString("server_url")
}

func newClient(cmd *cobra.Command) (*client.Client, error) {
	return client.New(serverURL(cmd))
}

func newStartCmd() *cobra.Command {
	var (
		sessionID string
		productID int64
		name      string
		listPrice float64
		minPrice  float64
		currency  string
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a negotiation session",
		Long:  "Start a session with explicit product bounds, or without any to let the gateway classify the job from the first message.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}

			req := client.StartSessionRequest{SessionID: sessionID}
			if name != "" || listPrice != 0 || minPrice != 0 {
				req.Product = &negotiate.ProductBounds{
					ProductID: productID,
					Name:      name,
					ListPrice: listPrice,
					MinPrice:  minPrice,
					Currency:  currency,
				}
			}

			resp, err := c.StartSession(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}

	cmd.Flags().StringVar(&sessionID, "session-id", "", "session id (generated when omitted)")
	cmd.Flags().Int64Var(&productID, "product-id", 0, "product id")
	cmd.Flags().StringVar(&name, "name", "", "product name")
	cmd.Flags().Float64Var(&listPrice, "list-price", 0, "list price")
	cmd.Flags().Float64Var(&minPrice, "min-price", 0, "minimum acceptable price")
	cmd.Flags().StringVar(&currency, "currency", "INR", "currency code")
	return cmd
}

func newStepCmd() *cobra.Command {
	var budget float64

	cmd := &cobra.Command{
		Use:   "step <session-id> <message>",
		Short: "Send one message to a session",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}

			var budgetHint *float64
			if cmd.Flags().Changed("budget") {
				budgetHint = &budget
			}

			message := strings.Join(args[1:], " ")
			resp, err := c.SendMessage(cmd.Context(), args[0], message, budgetHint)
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}

	cmd.Flags().Float64Var(&budget, "budget", 0, "budget hint used when the message has no parseable price")
	return cmd
}

func newDumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump <session-id>",
		Short: "Print the full session state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			rec, err := c.GetSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, rec)
		},
	}
}

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <session-id>",
		Short: "Negotiate interactively over websocket",
		Long:  "Reads messages from stdin, sends each as one turn, and prints the bot's reply until the negotiation reaches a terminal status.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			conv, err := c.OpenConversation(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer conv.Close()

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(cmd.OutOrStdout(), "> ")
				if !scanner.Scan() {
					return scanner.Err()
				}
				message := strings.TrimSpace(scanner.Text())
				if message == "" {
					continue
				}

				if err := conv.Send(message, nil); err != nil {
					return err
				}
				frame, err := conv.Recv()
				if err != nil {
					// The gateway closes the socket after a terminal turn.
					return nil
				}
				if frame.Error != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "error: %s\n", frame.Error)
					continue
				}

				fmt.Fprintf(cmd.OutOrStdout(), "%s\n", frame.Reply)
				if frame.Status != negotiate.StatusOngoing {
					fmt.Fprintf(cmd.OutOrStdout(), "negotiation %s", frame.Status)
					if frame.FinalPrice != nil {
						fmt.Fprintf(cmd.OutOrStdout(), " at %.2f", *frame.FinalPrice)
					}
					fmt.Fprintln(cmd.OutOrStdout())
					return nil
				}
			}
		},
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
	return nil
}
