// Package chunker provides a token-budget text chunking processor.
package chunker

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// DefaultMaxTokens is the default token budget per chunk.
const DefaultMaxTokens = 256

// charsPerToken approximates how many runes make up one model token.
const charsPerToken = 4

// Processor splits document content into chunks bounded by a token budget.
// Cuts prefer the latest sentence or paragraph boundary inside the budget
// and fall back to a hard cut between words.
// It implements the PostProcessor interface.
type Processor struct {
	maxTokens int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithMaxTokens sets the token budget per chunk.
func WithMaxTokens(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.maxTokens = n
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		maxTokens: DefaultMaxTokens,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// MaxTokens returns the configured token budget.
func (p *Processor) MaxTokens() int {
	return p.maxTokens
}

// word is a whitespace-delimited run of the content.
type word struct {
	start, end int
	tokens     int
	// boundary is set when a sentence or paragraph ends after this word.
	boundary bool
}

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from document content.
func (p *Processor) Process(_ context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: document is nil", domain.ErrIngestion)
	}
	if !utf8.ValidString(doc.Content) {
		return nil, fmt.Errorf("%w: document %s is not valid UTF-8", domain.ErrIngestion, doc.ID)
	}

	words := scanWords(doc.Content)
	if len(words) == 0 {
		// Empty content produces no chunks
		return nil, nil
	}

	var chunks []domain.Chunk
	emit := func(ws []word) {
		tokens := 0
		for _, w := range ws {
			tokens += w.tokens
		}
		index := len(chunks)
		chunks = append(chunks, domain.Chunk{
			ID:         domain.ChunkID(doc.ID, index),
			DocumentID: doc.ID,
			Index:      index,
			Text:       doc.Content[ws[0].start:ws[len(ws)-1].end],
			TokenCount: tokens,
		})
	}

	var current []word
	tokens := 0
	for _, w := range words {
		if len(current) > 0 && tokens+w.tokens > p.maxTokens {
			cut := len(current)
			for i := len(current) - 1; i >= 0; i-- {
				if current[i].boundary {
					cut = i + 1
					break
				}
			}
			emit(current[:cut])
			current = append([]word(nil), current[cut:]...)
			tokens = 0
			for _, c := range current {
				tokens += c.tokens
			}
			// The carried tail plus w may still overflow; hard cut it.
			if len(current) > 0 && tokens+w.tokens > p.maxTokens {
				emit(current)
				current = nil
				tokens = 0
			}
		}
		current = append(current, w)
		tokens += w.tokens
	}
	if len(current) > 0 {
		emit(current)
	}

	return chunks, nil
}

// scanWords finds every word with its token estimate and boundary flag.
func scanWords(content string) []word {
	var words []word
	start := -1
	for i, r := range content {
		if unicode.IsSpace(r) {
			if start >= 0 {
				words = append(words, newWord(content, start, i))
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		words = append(words, newWord(content, start, len(content)))
	}

	for i := range words {
		if words[i].boundary {
			continue
		}
		if i+1 < len(words) && strings.Count(content[words[i].end:words[i+1].start], "\n") >= 2 {
			words[i].boundary = true
		}
	}
	return words
}

func newWord(content string, start, end int) word {
	text := content[start:end]
	tokens := (utf8.RuneCountInString(text) + charsPerToken - 1) / charsPerToken
	if tokens < 1 {
		tokens = 1
	}
	return word{
		start:    start,
		end:      end,
		tokens:   tokens,
		boundary: endsSentence(text),
	}
}

// endsSentence reports whether text ends with terminal punctuation,
// optionally followed by closing quotes or brackets.
func endsSentence(text string) bool {
	trimmed := strings.TrimRight(text, `"')]}»”’`)
	if trimmed == "" {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(trimmed)
	switch r {
	case '.', '!', '?', '…', '。', '！', '？':
		return true
	default:
		return false
	}
}

// EstimateTokens returns the token estimate the chunker uses for text.
func EstimateTokens(text string) int {
	total := 0
	for _, w := range scanWords(text) {
		total += w.tokens
	}
	return total
}
