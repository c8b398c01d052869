package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/ayusman/facewatch/internal/config"
	"github.com/ayusman/facewatch/internal/store"
	"github.com/spf13/cobra"
)

func newDetectionsCmd(cfg *config.Config) *cobra.Command {
	var (
		filter  store.DetectionFilter
		since   time.Duration
		summary bool
	)

	cmd := &cobra.Command{
		Use:   "detections",
		Short: "List recorded detections",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.New(cfg.DBPath())
			if err != nil {
				return err
			}
			defer st.Close()

			if summary {
				return printSummary(cmd.OutOrStdout(), st)
			}
			if since > 0 {
				filter.Since = time.Now().Add(-since)
			}
			return printDetections(cmd.OutOrStdout(), st, filter)
		},
	}

	f := cmd.Flags()
	f.StringVar(&filter.Identity, "identity", "", "only list this person")
	f.IntVar(&filter.Limit, "limit", 20, "maximum rows to list")
	f.DurationVar(&since, "since", 0, "only list detections newer than this (e.g. 24h)")
	f.BoolVar(&summary, "summary", false, "show per-person counts instead of rows")

	cmd.AddCommand(newPruneCmd(cfg))
	return cmd
}

func newPruneCmd(cfg *config.Config) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete detections older than a cutoff",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			st, err := store.New(cfg.DBPath())
			if err != nil {
				return err
			}
			defer st.Close()

			n, err := st.Detections().Prune(time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d detections\n", n)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "age cutoff")
	return cmd
}

func printDetections(out io.Writer, st *store.Store, filter store.DetectionFilter) error {
	dets, err := st.Detections().List(filter)
	if err != nil {
		return err
	}
	if len(dets) == 0 {
		fmt.Fprintln(out, "No detections recorded.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tIDENTITY\tALERTED\tSNAPSHOT")
	fmt.Fprintln(w, "--\t----\t--------\t-------\t--------")
	for _, d := range dets {
		fmt.Fprintf(w, "%d\t%s\t%s\t%t\t%s\n", d.ID, d.DetectedAt.Local().Format("2006-01-02 15:04:05"), d.Identity, d.Alerted, d.Snapshot)
	}
	return w.Flush()
}

func printSummary(out io.Writer, st *store.Store) error {
	counts, err := st.Detections().CountByIdentity()
	if err != nil {
		return err
	}
	if len(counts) == 0 {
		fmt.Fprintln(out, "No detections recorded.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "IDENTITY\tCOUNT\tLAST SEEN")
	fmt.Fprintln(w, "--------\t-----\t---------")
	for _, c := range counts {
		fmt.Fprintf(w, "%s\t%d\t%s\n", c.Identity, c.Count, c.LastSeen.Local().Format("2006-01-02 15:04"))
	}
	return w.Flush()
}
