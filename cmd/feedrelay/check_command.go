package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"feedrelay/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify directories, ffmpeg, delivery, and feed access",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			var checker preflight.SourceChecker
			var extra []preflight.Result
			if !offline {
				client, err := ctx.feedClient()
				if err != nil {
					extra = append(extra, preflight.Result{Name: "Feed access", Detail: err.Error()})
				} else {
					checker = client
				}
			}
			results := append(preflight.RunAll(cmd.Context(), cfg, checker), extra...)

			rows := make([][]string, 0, len(results))
			for _, r := range results {
				status := "OK"
				if !r.Passed {
					status = "FAIL"
				}
				rows = append(rows, []string{r.Name, status, r.Detail})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"Check", "Status", "Detail"}, rows, nil))

			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d check(s) failed", len(failed))
			}
			fmt.Fprintln(out, "All checks passed")
			return nil
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the feed API check")
	return cmd
}
