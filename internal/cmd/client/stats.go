package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/s21platform/user-stream-service/internal/hub"
)

const statsTimeout = 5 * time.Second

// NewStatsCommand constructs the `stats` command.
func NewStatsCommand(baseURL BaseURLFunc) *cobra.Command {
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show broadcaster stats",
		RunE: func(cmd *cobra.Command, _ []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			asJSON, _ := cmd.Flags().GetBool("json")
			if addr == "" {
				addr = baseURL()
			}

			httpClient := &http.Client{Timeout: statsTimeout}
			resp, err := httpClient.Get(strings.TrimSuffix(addr, "/") + "/stats")
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("stats request failed: %s", resp.Status)
			}

			var s hub.Stats
			if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
				return fmt.Errorf("failed to decode stats: %w", err)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(s)
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "users streamed: %d\n", s.TotalUsersStreamed)
			_, _ = fmt.Fprintf(out, "active clients: %d\n", s.ActiveClients)
			_, _ = fmt.Fprintf(out, "users/min:      %.1f\n", s.UsersPerMinute)
			_, _ = fmt.Fprintf(out, "uptime:         %s\n", time.Duration(s.UptimeSeconds)*time.Second)
			_, _ = fmt.Fprintf(out, "stream rate:    %s\n", s.StreamRate)
			return nil
		},
	}
	statsCmd.Flags().String("addr", "", "Server base URL (default STREAM_HTTP)")
	statsCmd.Flags().Bool("json", false, "Print raw JSON")
	return statsCmd
}
