package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// stdinArg reads a document from standard input.
const stdinArg = "-"

// Source tags attached to documents submitted from the command line.
const (
	sourceFile  = "file"
	sourceStdin = "stdin"
)

// indexableExtensions lists the file types read from directories.
var indexableExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
}

var indexCmd = &cobra.Command{
	Use:   "index <path>...",
	Short: "Index files, directories or standard input",
	Long: `Chunk, embed and store documents. Directories are walked for text and
markdown files. A path of "-" reads one document from standard input.
Documents are identified by their absolute path; unchanged files are skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	docs, err := collectDocuments(args, cmd.InOrStdin())
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		cmd.Println("No documents found.")
		return nil
	}

	report, err := indexService.IndexBatch(cmd.Context(), docs)
	printBatchReport(cmd, report)
	if err != nil {
		return err
	}
	if len(report.Failed) > 0 {
		return fmt.Errorf("%d of %d documents failed", len(report.Failed), len(docs))
	}
	return nil
}

func printBatchReport(cmd *cobra.Command, report domain.BatchReport) {
	for _, id := range report.Committed {
		cmd.Printf("  indexed    %s\n", id)
	}
	for _, id := range report.Unchanged {
		cmd.Printf("  unchanged  %s\n", id)
	}

	failed := make([]string, 0, len(report.Failed))
	for id := range report.Failed {
		failed = append(failed, id)
	}
	sort.Strings(failed)
	for _, id := range failed {
		cmd.Printf("  failed     %s: %v\n", id, report.Failed[id])
	}

	cmd.Printf("\nIndexed %d, unchanged %d, failed %d", len(report.Committed), len(report.Unchanged), len(failed))
	if report.Cancelled {
		cmd.Print(" (cancelled)")
	}
	cmd.Println()
}

// collectDocuments expands the arguments into documents in a stable order.
func collectDocuments(args []string, stdin io.Reader) ([]domain.Document, error) {
	var docs []domain.Document
	seen := make(map[string]bool)

	for _, arg := range args {
		if arg == stdinArg {
			content, err := io.ReadAll(stdin)
			if err != nil {
				return nil, fmt.Errorf("reading stdin: %w", err)
			}
			docs = append(docs, domain.Document{
				ID:      uuid.NewString(),
				Content: string(content),
				Source:  sourceStdin,
			})
			continue
		}

		paths, err := expandPath(arg)
		if err != nil {
			return nil, err
		}
		for _, path := range paths {
			if seen[path] {
				continue
			}
			seen[path] = true

			doc, err := readDocument(path)
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// expandPath returns the absolute paths of the indexable files under path.
// A file named explicitly is returned whatever its extension.
func expandPath(path string) ([]string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{abs}, nil
	}

	var paths []string
	err = filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != abs && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if isIndexable(p) {
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

func isIndexable(path string) bool {
	return indexableExtensions[strings.ToLower(filepath.Ext(path))]
}

// readDocument loads a file as a document keyed by its absolute path.
func readDocument(path string) (domain.Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return domain.Document{}, err
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return domain.Document{}, err
	}
	return domain.Document{
		ID:      abs,
		Content: string(content),
		Source:  sourceFile,
	}, nil
}
