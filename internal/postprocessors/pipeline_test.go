package postprocessors

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// mockProcessor is a test processor that returns predefined chunks.
type mockProcessor struct {
	name   string
	chunks []domain.Chunk
	err    error
	drop   int
}

func (m *mockProcessor) Name() string {
	return m.name
}

func (m *mockProcessor) Process(_ context.Context, _ *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.chunks != nil {
		return m.chunks, nil
	}
	if m.drop > 0 && m.drop <= len(chunks) {
		out := append([]domain.Chunk(nil), chunks[:m.drop-1]...)
		return append(out, chunks[m.drop:]...), nil
	}
	return chunks, nil
}

func TestNewPipeline(t *testing.T) {
	p := NewPipeline()
	require.NotNil(t, p)
	assert.Equal(t, 0, p.Len())
}

func TestPipeline_Add(t *testing.T) {
	p := NewPipeline()
	p.Add(&mockProcessor{name: "test"})

	assert.Equal(t, 1, p.Len())
	assert.Equal(t, []string{"test"}, p.Names())
}

func TestPipeline_Process_NilDocument(t *testing.T) {
	_, err := NewPipeline().Process(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrIngestion)
}

func TestPipeline_Process_EmptyPipeline(t *testing.T) {
	doc := &domain.Document{ID: "test-doc", Content: "test content"}

	chunks, err := NewPipeline().Process(context.Background(), doc)
	require.NoError(t, err)
	assert.Nil(t, chunks)
}

func TestPipeline_Process_AssignsIDsAndIndexes(t *testing.T) {
	p := NewPipeline(&mockProcessor{
		name: "creator",
		chunks: []domain.Chunk{
			{Text: "first"},
			{Text: "second"},
		},
	})
	doc := &domain.Document{ID: "doc-1"}

	chunks, err := p.Process(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "doc-1#0", chunks[0].ID)
	assert.Equal(t, "doc-1#1", chunks[1].ID)
	assert.Equal(t, 1, chunks[1].Index)
	assert.Equal(t, "doc-1", chunks[1].DocumentID)
}

func TestPipeline_Process_RenumbersAfterDrop(t *testing.T) {
	p := NewPipeline(
		&mockProcessor{name: "creator", chunks: []domain.Chunk{{Text: "a"}, {Text: "b"}, {Text: "c"}}},
		&mockProcessor{name: "filter", drop: 2},
	)

	chunks, err := p.Process(context.Background(), &domain.Document{ID: "d"})
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "a", chunks[0].Text)
	assert.Equal(t, "c", chunks[1].Text)
	assert.Equal(t, 1, chunks[1].Index)
	assert.Equal(t, "d#1", chunks[1].ID)
}

func TestPipeline_Process_ProcessorError(t *testing.T) {
	expectedErr := errors.New("processor failed")
	p := NewPipeline(&mockProcessor{name: "failing", err: expectedErr})

	_, err := p.Process(context.Background(), &domain.Document{ID: "d"})
	require.Error(t, err)
	assert.ErrorIs(t, err, expectedErr)
	assert.Contains(t, err.Error(), "processor failing")
}

func TestDefaultPipeline(t *testing.T) {
	p, err := DefaultPipeline(domain.ChunkerSettings{MaxTokens: 8})
	require.NoError(t, err)
	assert.Equal(t, []string{"chunker"}, p.Names())

	doc := &domain.Document{ID: "D1", Content: "The cat sat on the mat. The dog barked loudly."}
	chunks, err := p.Process(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "D1#0", chunks[0].ID)
	assert.Equal(t, "The dog barked loudly.", chunks[1].Text)
}
