package main

import (
	"fmt"
	"os"
	"os/signal"

	"ecotrack-backend/internal/notifications"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().String("url", "ws://localhost:8081/ws", "Realtime endpoint (use /ws/public without a token)")
	watchCmd.Flags().String("token", "", "Bearer token (default ECOTRACK_TOKEN)")
	watchCmd.Flags().Bool("raw", false, "Print every event instead of notifications only")
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream realtime events as notifications",
	RunE: func(cmd *cobra.Command, _ []string) error {
		url, _ := cmd.Flags().GetString("url")
		token, _ := cmd.Flags().GetString("token")
		raw, _ := cmd.Flags().GetBool("raw")
		if token == "" {
			token = os.Getenv("ECOTRACK_TOKEN")
		}
		out := cmd.OutOrStdout()
		agg := notifications.NewAggregator()
		l := &notifications.Listener{URL: url, Token: token, Aggregator: agg}
		l.OnEvent = func(ev notifications.Event) {
			if raw {
				fmt.Fprintf(out, "%s %s %v\n", ev.Timestamp.Format("15:04:05"), ev.Event, ev.Data)
				return
			}
			kind, msg, priority, ok := notifications.Classify(ev.Event, ev.Data)
			if !ok {
				return
			}
			mark := ""
			if priority {
				mark = " !"
			}
			fmt.Fprintf(out, "[%s%s] %s\n", kind, mark, msg)
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return l.Run(ctx)
	},
}
