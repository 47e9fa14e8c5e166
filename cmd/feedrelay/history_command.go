package main

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"feedrelay/internal/history"
)

const historyTimeLayout = "2006-01-02 15:04"

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent batches from the outcome ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				batches, err := store.Batches(cmd.Context(), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(batches) == 0 {
					fmt.Fprintln(out, "No batches recorded")
					return nil
				}
				rows := make([][]string, 0, len(batches))
				for _, b := range batches {
					rows = append(rows, []string{
						b.StartedAt.Local().Format(historyTimeLayout),
						"r/" + b.Source,
						listingLabel(b.Filter, b.TimeRange),
						strconv.Itoa(b.Requested),
						formatCounts(b.Counts),
						shortID(b.ID),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Started", "Source", "Listing", "Posts", "Outcomes", "Batch"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of batches to show")

	cmd.AddCommand(newHistoryPostsCommand(ctx))
	cmd.AddCommand(newHistoryPruneCommand(ctx))
	return cmd
}

func newHistoryPostsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "posts",
		Short: "Show the most recent per-post outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				records, err := store.Recent(cmd.Context(), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(records) == 0 {
					fmt.Fprintln(out, "No posts recorded")
					return nil
				}
				rows := make([][]string, 0, len(records))
				for _, r := range records {
					status := r.Status
					if r.Reason != "" {
						status += " (" + r.Reason + ")"
					}
					rows = append(rows, []string{
						r.RecordedAt.Local().Format(historyTimeLayout),
						strconv.Itoa(r.PostIndex),
						status,
						r.MediaKind,
						shortTitle(r.Title),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Recorded", "#", "Status", "Kind", "Title"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of posts to show")
	return cmd
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete batches older than the given age",
		RunE: func(cmd *cobra.Command, args []string) error {
			if days < 1 {
				return errors.New("--days must be at least 1")
			}
			return ctx.withHistory(func(store *history.Store) error {
				cutoff := time.Now().Add(-time.Duration(days) * 24 * time.Hour)
				removed, err := store.Prune(cmd.Context(), cutoff)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d batch(es) older than %d day(s)\n", removed, days)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 30, "Age threshold in days")
	return cmd
}

func listingLabel(filter, timeRange string) string {
	if timeRange == "" {
		return filter
	}
	return filter + "/" + timeRange
}

func formatCounts(counts map[string]int) string {
	if len(counts) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[k]))
	}
	return strings.Join(parts, " ")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
