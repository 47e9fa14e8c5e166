package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

func newSourcesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List the numbered source catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			catalog, err := cfg.Catalog()
			if err != nil {
				return err
			}

			title := cases.Title(language.English)
			rows := make([][]string, 0, catalog.Len())
			for _, src := range catalog.Sources() {
				rows = append(rows, []string{
					strconv.Itoa(src.Number),
					"r/" + src.Name,
					title.String(src.Name),
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"#", "Source", "Label"}, rows, []columnAlignment{alignRight}))
			fmt.Fprintln(out, "Run `feedrelay run <number|name>` to relay a source.")
			return nil
		},
	}
}
