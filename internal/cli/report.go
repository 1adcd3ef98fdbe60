package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/tranvd/aegis/internal/core/config"
	"github.com/tranvd/aegis/internal/recovery"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the current error report from a running instance",
	Run:   runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	url := fmt.Sprintf("http://localhost:%d/api/report", cfg.Server.Port)

	resp, err := client.Get(url)
	if err != nil {
		slog.Error("Failed to fetch report", "url", url, "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var report recovery.Report
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		slog.Error("Failed to decode report", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Generated: %s\n", report.GeneratedAt.Format(time.RFC3339))
	fmt.Printf("Total faults: %d (last hour: %d)\n", report.Summary.TotalFaults, report.Summary.RecentFaults)
	fmt.Printf("Open breakers: %d\n\n", report.Summary.OpenBreakers)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "BREAKER\tOPEN\tFAILURES")
	for key, status := range report.Breakers {
		_, _ = fmt.Fprintf(w, "%s\t%v\t%d\n", key, status.Open, status.FailureCount)
	}
	_ = w.Flush()

	if len(report.Recommendations) > 0 {
		fmt.Println("\nRecommendations:")
		for _, rec := range report.Recommendations {
			fmt.Printf("  - %s\n", rec)
		}
	}
}
