package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// defaultWidth is used when the output is not a terminal.
const defaultWidth = 80

var (
	searchLimit     int
	searchThreshold float64
	searchJSON      bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Retrieve the chunks most similar to a query",
	Long: `Embed the query with the active model and rank stored chunks by
cosine similarity. Results below the threshold are dropped before the
limit is applied.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum number of results (default from config)")
	searchCmd.Flags().Float64VarP(&searchThreshold, "threshold", "t", 0, "minimum similarity score in [-1, 1]")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if searchService == nil {
		return errors.New("search service not configured")
	}

	threshold := searchThreshold
	if !cmd.Flags().Changed("threshold") {
		threshold = settings.Search.DefaultThreshold
	}

	query := strings.Join(args, " ")
	results, err := searchService.Retrieve(cmd.Context(), query, domain.SearchOptions{
		Limit:     searchLimit,
		Threshold: threshold,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}
	return outputSearchTable(cmd, results)
}

// searchResult is the JSON shape of one hit.
type searchResult struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Index      int     `json:"index"`
	Score      float64 `json:"score"`
	Text       string  `json:"text"`
}

func outputSearchJSON(cmd *cobra.Command, results []domain.ScoredChunk) error {
	out := make([]searchResult, len(results))
	for i, r := range results {
		out[i] = searchResult{
			ChunkID:    r.ID,
			DocumentID: r.DocumentID,
			Index:      r.Index,
			Score:      r.Score,
			Text:       r.Text,
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.ScoredChunk) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	width := terminalWidth(cmd.OutOrStdout())
	cmd.Printf("Results: %d\n\n", len(results))
	for i, r := range results {
		cmd.Printf("%d. %s (score: %.4f)\n", i+1, r.ID, r.Score)
		cmd.Printf("   %s\n\n", snippet(r.Text, width-3))
	}
	return nil
}

// terminalWidth returns the column count of w when it is a terminal.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return defaultWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return defaultWidth
	}
	return width
}

// snippet collapses whitespace and truncates text to width runes.
func snippet(text string, width int) string {
	text = strings.Join(strings.Fields(text), " ")
	if width < 4 {
		width = 4
	}
	runes := []rune(text)
	if len(runes) <= width {
		return text
	}
	return string(runes[:width-3]) + "..."
}
