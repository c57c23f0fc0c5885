package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"cadence/internal/pipeline"
	"cadence/internal/preflight"
	"cadence/internal/textutil"
)

func newImportCommand(cmdCtx *commandContext) *cobra.Command {
	var titleFlag string
	var voiceFlag string

	cmd := &cobra.Command{
		Use:   "import <book.epub>",
		Short: "Import a book: extract chapters, synthesize audio, align words",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := cmdCtx.ensureLogger()
			if err != nil {
				return err
			}

			sourcePath, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve source path: %w", err)
			}
			if _, err := os.Stat(sourcePath); err != nil {
				return fmt.Errorf("source book: %w", err)
			}

			if results := preflight.RunAll(cfg); !preflight.Passed(results) {
				return fmt.Errorf("preflight failed: %s", preflight.Summarize(results))
			}

			// One import per library at a time; the worker and the SQLite
			// store are not built for concurrent writers.
			lock := flock.New(filepath.Join(cfg.Paths.LibraryDir, "cadence.lock"))
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire import lock: %w", err)
			}
			if !locked {
				return errors.New("another cadence import is already running against this library")
			}
			defer lock.Unlock()

			store, err := cmdCtx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			folder := textutil.BookFolderName(sourcePath)
			book, err := store.FindBookByFolder(runCtx, folder)
			if err != nil {
				return err
			}
			if book == nil {
				title := strings.TrimSpace(titleFlag)
				if title == "" {
					title = strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
				}
				format := strings.TrimPrefix(strings.ToLower(filepath.Ext(sourcePath)), ".")
				book, err = store.NewBook(runCtx, title, sourcePath, folder, format)
				if err != nil {
					return err
				}
			}
			if book.SourcePath == "" {
				book.SourcePath = sourcePath
			}
			if voice := strings.TrimSpace(voiceFlag); voice != "" && voice != book.Voice {
				book.Voice = voice
				if err := store.UpdateBook(runCtx, book); err != nil {
					return err
				}
			}

			manager, err := pipeline.NewManager(cfg, store, logger)
			if err != nil {
				return err
			}
			defer manager.Close()

			progress, runErr := manager.RunImport(runCtx, book)
			out := cmd.OutOrStdout()
			if errors.Is(runErr, context.Canceled) {
				fmt.Fprintf(out, "Import of %q cancelled: %d/%d chapters aligned. Re-run to resume.\n",
					book.Title, progress.AlignmentReady, progress.ChaptersTotal)
				return runErr
			}
			if runErr != nil {
				return runErr
			}

			fmt.Fprintf(out, "Imported %q: %d/%d chapters aligned (%d with audio).\n",
				book.Title, progress.AlignmentReady, progress.ChaptersTotal, progress.AudioReady)
			if progress.AlignmentReady < progress.ChaptersTotal {
				fmt.Fprintf(out, "Inspect failures with: cadence status %s\n", book.Folder)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&titleFlag, "title", "", "Book title (defaults to the source filename)")
	cmd.Flags().StringVar(&voiceFlag, "voice", "", "Voice style for synthesis (see 'cadence voices')")
	return cmd
}
