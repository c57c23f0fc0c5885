package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newListCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the books in the library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cmdCtx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			books, err := store.ListBooks(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(books) == 0 {
				fmt.Fprintln(out, "Library is empty. Add a book with 'cadence import'.")
				return nil
			}

			rows := make([][]string, 0, len(books))
			for _, book := range books {
				progress, err := store.LoadProgress(ctx, book.ID)
				if err != nil {
					return err
				}
				rows = append(rows, []string{
					book.Folder,
					book.Title,
					fmt.Sprintf("%d", book.ChaptersTotal),
					fmt.Sprintf("%d", progress.AlignmentReady),
					book.UpdatedAt.Format("2006-01-02 15:04"),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Folder", "Title", "Chapters", "Aligned", "Updated"}, rows, 2, 3))
			return nil
		},
	}
}
