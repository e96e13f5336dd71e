package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/wilheimcosta/adwrng2/internal/models"

	"github.com/spf13/cobra"
)

func newRegisterCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "register [icao]",
		Short: "Register the current warnings of an aerodrome",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := apiClient.RegisterWarnings(cmd.Context(), args[0])
			if result != nil {
				printRegisterResult(cmd.OutOrStdout(), result)
			}
			return err
		},
	}
}

func newSweepCommand() *cobra.Command {
	var icaos []string

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Expire active alerts outside their validity window",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := apiClient.Sweep(cmd.Context(), icaos)
			if err != nil {
				return err
			}
			scope := "all aerodromes"
			if len(result.ICAOs) > 0 {
				scope = strings.Join(result.ICAOs, ",")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Expired %d alert(s) for %s\n", result.Expired, scope)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&icaos, "icao", nil, "limit the sweep to these ICAO codes")
	return cmd
}

func newAlertsCommand() *cobra.Command {
	alertsCmd := &cobra.Command{
		Use:   "alerts",
		Short: "List alerts",
	}

	var limit int
	recentCmd := &cobra.Command{
		Use:   "recent",
		Short: "List the most recently created alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			alerts, err := apiClient.RecentAlerts(cmd.Context(), limit)
			if err != nil {
				return err
			}
			printAlerts(cmd.OutOrStdout(), alerts)
			return nil
		},
	}
	recentCmd.Flags().IntVar(&limit, "limit", 50, "maximum number of alerts")

	var (
		icaos   []string
		inForce bool
	)
	activeCmd := &cobra.Command{
		Use:   "active",
		Short: "List active alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			alerts, err := apiClient.ActiveAlerts(cmd.Context(), icaos, inForce)
			if err != nil {
				return err
			}
			printAlerts(cmd.OutOrStdout(), alerts)
			return nil
		},
	}
	activeCmd.Flags().StringSliceVar(&icaos, "icao", nil, "filter by ICAO code")
	activeCmd.Flags().BoolVar(&inForce, "in-force", false, "only alerts whose window contains now")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show active alert counts by severity",
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := apiClient.Stats(cmd.Context())
			if err != nil {
				return err
			}
			printStats(cmd.OutOrStdout(), stats)
			return nil
		},
	}

	getCmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Show one alert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			alert, err := apiClient.GetAlert(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(alert)
		},
	}

	alertsCmd.AddCommand(recentCmd, activeCmd, statsCmd, getCmd)
	return alertsCmd
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status [icao...]",
		Short: "Show the cached flight-rule status of aerodromes",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := apiClient.Statuses(cmd.Context(), args)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', tabwriter.TabIndent)
			fmt.Fprintln(w, "ICAO\tRULE\tFLAG\tUPDATED\t")
			for _, s := range statuses {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n", s.ICAO, s.FlightRule, s.Flag, s.UpdatedAt.UTC().Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
}

func newFavoritesCommand() *cobra.Command {
	favCmd := &cobra.Command{
		Use:   "favorites",
		Short: "Manage favorite aerodromes",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List favorite aerodromes",
		RunE: func(cmd *cobra.Command, args []string) error {
			favs, err := apiClient.ListFavorites(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', tabwriter.TabIndent)
			fmt.Fprintln(w, "ICAO\tLABEL\tADDED\t")
			for _, f := range favs {
				fmt.Fprintf(w, "%s\t%s\t%s\t\n", f.ICAO, f.Label, f.CreatedAt.UTC().Format(time.RFC3339))
			}
			return w.Flush()
		},
	}

	var label string
	addCmd := &cobra.Command{
		Use:   "add [icao]",
		Short: "Add a favorite aerodrome",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fav, err := apiClient.AddFavorite(cmd.Context(), args[0], label)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", fav.ICAO)
			return nil
		},
	}
	addCmd.Flags().StringVar(&label, "label", "", "display label")

	removeCmd := &cobra.Command{
		Use:   "remove [icao]",
		Short: "Remove a favorite aerodrome",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := apiClient.RemoveFavorite(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", strings.ToUpper(args[0]))
			return nil
		},
	}

	favCmd.AddCommand(listCmd, addCmd, removeCmd)
	return favCmd
}

func newExportCommand() *cobra.Command {
	var (
		format string
		limit  int
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download the recent alert history as csv or pdf",
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = fmt.Sprintf("adwrng-alerts.%s", format)
			}

			f, err := os.Create(output)
			if err != nil {
				return err
			}
			defer f.Close()

			n, err := apiClient.Export(cmd.Context(), f, format, limit)
			if err != nil {
				os.Remove(output)
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d record(s) to %s\n", n, output)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "csv", "csv or pdf")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of records (server default when 0)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file")
	return cmd
}

func printRegisterResult(w io.Writer, r *models.RegisterResult) {
	if !r.OK {
		fmt.Fprintf(w, "%s: failed: %s\n", r.ICAO, r.Error)
		return
	}
	fmt.Fprintf(w, "%s: %d inserted, %d already active\n", r.ICAO, r.Inserted, r.AlreadyActive)
	if r.SampleMessage != "" {
		fmt.Fprintf(w, "  %s\n", r.SampleMessage)
	}
}

func printAlerts(out io.Writer, alerts []models.AlertRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.TabIndent)
	fmt.Fprintln(w, "ICAO\tSEVERITY\tSTATUS\tFROM\tUNTIL\tCONTENT\t")
	for _, a := range alerts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t\n",
			a.ICAO, a.Severity, a.Status, bound(a.ValidFrom), bound(a.ValidUntil), shorten(a.Content, 60))
	}
	w.Flush()
}

func printStats(out io.Writer, stats *models.AlertStats) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.TabIndent)
	fmt.Fprintln(w, "SEVERITY\tACTIVE\t")
	for _, s := range []models.Severity{models.SeverityCritical, models.SeverityHigh, models.SeverityMedium, models.SeverityLow} {
		fmt.Fprintf(w, "%s\t%d\t\n", s, stats.BySeverity[string(s)])
	}
	fmt.Fprintf(w, "total\t%d\t\n", stats.Active)
	w.Flush()
}

func bound(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format("02/01 15:04Z")
}

func shorten(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
