package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"cadence/internal/config"
	"cadence/internal/fileutil"
	"cadence/internal/library"
	"cadence/internal/logging"
	"cadence/internal/services"
)

// CommandRunner executes an external command. Tests substitute this to avoid
// requiring a Calibre installation.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// Extractor converts a book's source file into chapter text artifacts.
type Extractor struct {
	cfg    *config.Config
	store  *library.Store
	logger *slog.Logger
	runner CommandRunner
}

// New builds an extractor using the configured converter binary.
func New(cfg *config.Config, store *library.Store, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Extractor{
		cfg:    cfg,
		store:  store,
		logger: logging.NewComponentLogger(logger, "extract"),
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (e *Extractor) WithCommandRunner(runner CommandRunner) {
	e.runner = runner
}

func (e *Extractor) run(ctx context.Context, name string, args ...string) error {
	if e.runner != nil {
		return e.runner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Run unpacks the source ebook, converts every spine document to a chapter
// text artifact, and records the chapter rows. It returns the number of
// chapters produced. Zero readable chapters is fatal for the book.
func (e *Extractor) Run(ctx context.Context, book *library.Book, sourcePath string) (int, error) {
	log := logging.WithContext(ctx, e.logger)
	converter := e.cfg.Extraction.ConverterBinary

	unpackDir, err := os.MkdirTemp(e.cfg.Paths.WorkDir, "extract-*")
	if err != nil {
		return 0, services.Wrap(services.ErrExtraction, "extract", "workdir", "", err)
	}
	defer os.RemoveAll(unpackDir)

	log.Info("unpacking book", logging.String("source", sourcePath))
	if err := e.run(ctx, converter, sourcePath, unpackDir); err != nil {
		return 0, services.Wrap(services.ErrExtraction, "extract", "unpack", sourcePath, err)
	}

	docs, err := ReadingOrder(unpackDir)
	if err != nil {
		return 0, services.Wrap(services.ErrExtraction, "extract", "reading order", "", err)
	}

	// Undersized documents are dropped before numbering, so chapter
	// ordinals stay consecutive.
	type job struct {
		ordinal int
		doc     string
	}
	var jobs []job
	ordinal := 0
	for _, doc := range docs {
		info, statErr := os.Stat(doc)
		if statErr != nil || info.Size() < e.cfg.Extraction.MinDocumentBytes {
			continue
		}
		ordinal++
		jobs = append(jobs, job{ordinal: ordinal, doc: doc})
	}
	if len(jobs) == 0 {
		return 0, services.Wrap(services.ErrExtraction, "extract", "reading order",
			"no documents above the size floor", nil)
	}
	log.Info("converting documents",
		logging.Int("documents", len(jobs)),
		logging.Int("skipped", len(docs)-len(jobs)))

	workers := e.cfg.Extraction.Workers
	if workers < 1 {
		workers = 1
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures []error
		produced int
	)
	jobCh := make(chan job)
	lib := e.store.LibraryDir()

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobCh {
				err := e.convertDocument(ctx, j.doc, book.TextPath(lib, j.ordinal))
				mu.Lock()
				if err != nil {
					failures = append(failures, fmt.Errorf("chapter %d: %w", j.ordinal, err))
				} else {
					produced++
				}
				mu.Unlock()
			}
		}()
	}
	for _, j := range jobs {
		select {
		case jobCh <- j:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}
	close(jobCh)
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return produced, err
	}

	for _, failure := range failures {
		log.Warn("document conversion failed", logging.Error(failure))
	}
	if produced == 0 {
		return 0, services.Wrap(services.ErrExtraction, "extract", "convert",
			"every document conversion failed", failures[0])
	}

	for _, j := range jobs {
		state := e.store.LoadState(ctx, book, j.ordinal)
		title := strings.TrimSuffix(filepath.Base(j.doc), filepath.Ext(j.doc))
		if upErr := e.store.UpsertChapter(ctx, book.ID, j.ordinal, title, state.Status()); upErr != nil {
			return produced, fmt.Errorf("record chapter %d: %w", j.ordinal, upErr)
		}
	}
	book.ChaptersTotal = len(jobs)
	if err := e.store.UpdateBook(ctx, book); err != nil {
		return produced, fmt.Errorf("record chapter count: %w", err)
	}

	// The library keeps a verified copy of the source so a book survives
	// the original file being moved or deleted.
	archive := filepath.Join(book.Dir(lib), "source"+filepath.Ext(sourcePath))
	if !sameFile(sourcePath, archive) {
		if err := fileutil.CopyFileVerified(sourcePath, archive); err != nil {
			log.Warn("source archive copy failed", logging.Error(err))
		}
	}
	return produced, nil
}

func sameFile(a, b string) bool {
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}

// convertDocument runs one document through the converter into a temp file,
// then renames it into place so partial conversions never read as text.
func (e *Extractor) convertDocument(ctx context.Context, doc, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	tmp := dest + ".part.txt"
	defer os.Remove(tmp)

	err := e.run(ctx, e.cfg.Extraction.ConverterBinary, doc, tmp,
		"--txt-output-format=plain", "--smarten-punctuation")
	if err != nil {
		return services.Wrap(services.ErrExtraction, "extract", "convert", filepath.Base(doc), err)
	}
	info, err := os.Stat(tmp)
	if err != nil || info.Size() == 0 {
		return services.Wrap(services.ErrExtraction, "extract", "convert",
			fmt.Sprintf("%s produced no text", filepath.Base(doc)), err)
	}
	return os.Rename(tmp, dest)
}
