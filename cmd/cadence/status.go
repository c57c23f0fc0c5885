package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cadence/internal/pipeline"
	"cadence/internal/preflight"
)

func newStatusCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status [folder]",
		Short: "Show system health and, for one book, per-chapter pipeline state",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			ctx := cmd.Context()

			fmt.Fprintln(out, "System checks:")
			for _, r := range preflight.RunAll(cfg) {
				renderCheckLine(out, r.Name, r.Passed, r.Optional, r.Detail)
			}

			store, err := cmdCtx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			fmt.Fprintln(out, "Stage checks:")
			if mgr, err := pipeline.NewManager(cfg, store, nil); err != nil {
				renderCheckLine(out, "stages", false, false, err.Error())
			} else {
				for _, h := range mgr.Health(ctx) {
					renderCheckLine(out, h.Name, h.Ready, false, h.Detail)
				}
				mgr.Close()
			}
			if len(args) == 0 {
				return nil
			}

			book, err := store.FindBookByFolder(ctx, args[0])
			if err != nil {
				return err
			}
			if book == nil {
				return fmt.Errorf("no book in library folder %q", args[0])
			}

			progress, err := store.LoadProgress(ctx, book.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "\n%s (%s): %d/%d chapters aligned, %d with audio",
				book.Title, book.Folder, progress.AlignmentReady, progress.ChaptersTotal, progress.AudioReady)
			if progress.Cancelled {
				fmt.Fprint(out, " [last run cancelled]")
			}
			fmt.Fprintln(out)

			chapters, err := store.ListChapters(ctx, book.ID)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(chapters))
			for _, ch := range chapters {
				rows = append(rows, []string{
					fmt.Sprintf("%d", ch.Ordinal),
					ch.Title,
					string(ch.Status),
					ch.LastError,
				})
			}
			fmt.Fprintln(out, renderTable([]string{"#", "Title", "Status", "Last Error"}, rows, 0))
			return nil
		},
	}
}
