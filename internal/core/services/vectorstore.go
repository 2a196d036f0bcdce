package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
	"github.com/custodia-labs/sercha-rag/internal/telemetry"
)

// Ensure VectorStore implements the interface.
var _ driving.IndexService = (*VectorStore)(nil)

// DefaultConcurrency bounds parallel document indexing in batch jobs.
const DefaultConcurrency = 4

// indexOversample widens the candidate set requested from a VectorIndex
// before exact re-scoring and threshold filtering.
const indexOversample = 4

// Operation labels for metrics.
const (
	opIndex    = "index"
	opUpdate   = "update"
	opDelete   = "delete"
	opReembed  = "reembed"
	opOptimize = "optimize"
)

// docEntry is the committed, immutable state of one document.
type docEntry struct {
	doc    domain.Document
	chunks []domain.EmbeddedChunk
	bytes  int64
}

func newDocEntry(doc domain.Document, chunks []domain.EmbeddedChunk) *docEntry {
	e := &docEntry{doc: doc, chunks: chunks}
	for i := range chunks {
		e.bytes += int64(len(chunks[i].Text)) + int64(4*len(chunks[i].Embedding))
	}
	return e
}

// snapshot is an immutable view of every committed document. Readers load
// it once per query; writers publish a modified copy.
type snapshot struct {
	docs   map[string]*docEntry
	chunks int
	bytes  int64
}

func emptySnapshot() *snapshot {
	return &snapshot{docs: make(map[string]*docEntry)}
}

// with returns a copy of s with id set to e, or removed when e is nil.
func (s *snapshot) with(id string, e *docEntry) *snapshot {
	next := &snapshot{
		docs:   make(map[string]*docEntry, len(s.docs)+1),
		chunks: s.chunks,
		bytes:  s.bytes,
	}
	for k, v := range s.docs {
		next.docs[k] = v
	}
	if old, ok := next.docs[id]; ok {
		next.chunks -= len(old.chunks)
		next.bytes -= old.bytes
		delete(next.docs, id)
	}
	if e != nil {
		next.docs[id] = e
		next.chunks += len(e.chunks)
		next.bytes += e.bytes
	}
	return next
}

// chunk resolves a chunk id against the snapshot.
func (s *snapshot) chunk(id string) (domain.EmbeddedChunk, bool) {
	sep := strings.LastIndex(id, domain.ChunkIDSeparator)
	if sep < 0 {
		return domain.EmbeddedChunk{}, false
	}
	e, ok := s.docs[id[:sep]]
	if !ok {
		return domain.EmbeddedChunk{}, false
	}
	for i := range e.chunks {
		if e.chunks[i].ID == id {
			return e.chunks[i], true
		}
	}
	return domain.EmbeddedChunk{}, false
}

// VectorStore owns the indexed documents, their chunks and embeddings.
//
// Mutations of one document id are serialised by a per-document lock;
// distinct ids proceed concurrently. Every mutation commits to the
// ChunkStore in a single transaction and then publishes a new snapshot,
// so searches observe either the complete old chunk set of a document or
// the complete new one.
type VectorStore struct {
	store    driven.ChunkStore
	pipeline driven.PostProcessorPipeline
	embedder *EmbeddingClient
	engine   *SimilarityEngine
	index    driven.VectorIndex

	policy      domain.ReembedPolicy
	concurrency int
	metrics     *telemetry.Metrics
	now         func() time.Time

	locks *keyedMutex
	// maintenance is held shared by mutations and exclusively by
	// operations that rebuild the snapshot from storage.
	maintenance sync.RWMutex
	publishMu   sync.Mutex
	snap        atomic.Pointer[snapshot]

	stateMu sync.Mutex
	states  map[string]domain.IndexState

	closed atomic.Bool
}

// VectorStoreOption configures the vector store.
type VectorStoreOption func(*VectorStore)

// WithVectorIndex serves search candidates from an approximate index.
// Results are re-scored exactly but may miss chunks the index does not return.
func WithVectorIndex(index driven.VectorIndex) VectorStoreOption {
	return func(v *VectorStore) {
		v.index = index
	}
}

// WithReembedPolicy sets how chunks from an older model version are refreshed.
func WithReembedPolicy(p domain.ReembedPolicy) VectorStoreOption {
	return func(v *VectorStore) {
		if p.IsValid() {
			v.policy = p
		}
	}
}

// WithConcurrency bounds parallel document indexing in batch jobs.
func WithConcurrency(n int) VectorStoreOption {
	return func(v *VectorStore) {
		if n > 0 {
			v.concurrency = n
		}
	}
}

// WithDefaultLimit sets the result limit used when a query passes limit <= 0.
func WithDefaultLimit(n int) VectorStoreOption {
	return func(v *VectorStore) {
		v.engine = NewSimilarityEngine(n, v.metrics)
	}
}

// WithMetrics records store and search metrics.
func WithMetrics(m *telemetry.Metrics) VectorStoreOption {
	return func(v *VectorStore) {
		v.metrics = m
		v.engine = NewSimilarityEngine(v.engine.DefaultLimit(), m)
	}
}

// NewVectorStore creates a vector store. Call Open before use.
func NewVectorStore(
	store driven.ChunkStore,
	pipeline driven.PostProcessorPipeline,
	embedder *EmbeddingClient,
	opts ...VectorStoreOption,
) (*VectorStore, error) {
	switch {
	case store == nil:
		return nil, fmt.Errorf("%w: chunk store is nil", domain.ErrInvalidInput)
	case pipeline == nil:
		return nil, fmt.Errorf("%w: pipeline is nil", domain.ErrInvalidInput)
	case embedder == nil:
		return nil, fmt.Errorf("%w: embedding client is nil", domain.ErrInvalidInput)
	}

	v := &VectorStore{
		store:       store,
		pipeline:    pipeline,
		embedder:    embedder,
		engine:      NewSimilarityEngine(DefaultSearchLimit, nil),
		policy:      domain.ReembedLazy,
		concurrency: DefaultConcurrency,
		now:         func() time.Time { return time.Now().UTC() },
		locks:       newKeyedMutex(),
		states:      make(map[string]domain.IndexState),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.snap.Store(emptySnapshot())

	return v, nil
}

// Open flags chunks embedded by another model version as stale, loads
// the committed state and, under the eager policy, re-embeds stale chunks.
func (v *VectorStore) Open(ctx context.Context) error {
	if v.closed.Load() {
		return domain.ErrStoreClosed
	}

	version := v.embedder.ModelVersion()
	kind := domain.IndexExact
	if v.index != nil {
		kind = "approximate"
	}
	logger.Info("Opening vector store: model %s, %s search", version, kind)

	v.maintenance.Lock()
	stale, err := v.store.MarkStale(ctx, version)
	if err != nil {
		v.maintenance.Unlock()
		return storageErr("marking stale chunks", err)
	}
	if stale > 0 {
		logger.Warn("%d chunks were embedded by a model other than %s and are excluded until re-embedded", stale, version)
	}
	err = v.reload(ctx)
	v.maintenance.Unlock()
	if err != nil {
		return err
	}

	if stale > 0 && v.policy == domain.ReembedEager {
		n, err := v.ReembedStale(ctx)
		if err != nil {
			return fmt.Errorf("re-embedding stale chunks: %w", err)
		}
		logger.Info("Re-embedded %d stale chunks", n)
	}
	return nil
}

// reload rebuilds the snapshot from storage. The caller holds maintenance.
func (v *VectorStore) reload(ctx context.Context) error {
	docs, err := v.store.ListDocuments(ctx)
	if err != nil {
		return storageErr("listing documents", err)
	}
	chunks, err := v.store.ListChunks(ctx)
	if err != nil {
		return storageErr("listing chunks", err)
	}

	byDoc := make(map[string][]domain.EmbeddedChunk, len(docs))
	for _, c := range chunks {
		byDoc[c.DocumentID] = append(byDoc[c.DocumentID], c)
	}

	next := emptySnapshot()
	for _, doc := range docs {
		e := newDocEntry(doc, byDoc[doc.ID])
		next.docs[doc.ID] = e
		next.chunks += len(e.chunks)
		next.bytes += e.bytes
	}

	v.publishMu.Lock()
	v.snap.Store(next)
	v.publishMu.Unlock()
	v.metrics.SetSize(len(next.docs), next.chunks)

	if v.index != nil {
		for _, e := range next.docs {
			v.addToIndex(ctx, e)
		}
	}

	logger.Debug("Loaded %d documents with %d chunks", len(next.docs), next.chunks)
	return nil
}

// Close stops the store from accepting mutations and releases the vector index.
// It waits for in-flight mutations. The ChunkStore is owned by the caller.
func (v *VectorStore) Close() error {
	if v.closed.Swap(true) {
		return nil
	}
	v.maintenance.Lock()
	defer v.maintenance.Unlock()
	if v.index != nil {
		return v.index.Close()
	}
	return nil
}

// ModelVersion returns the active embedding model version.
func (v *VectorStore) ModelVersion() string {
	return v.embedder.ModelVersion()
}

// IndexDocument chunks, embeds and stores a document atomically.
// Resubmitting unchanged content is a no-op; changed content replaces
// the chunk set; stale embeddings are refreshed.
func (v *VectorStore) IndexDocument(ctx context.Context, doc domain.Document) error {
	_, err := v.indexDocument(ctx, doc, false)
	return err
}

// UpdateDocument replaces the chunk set of a known document.
// Returns domain.ErrNotFound if the document was never indexed.
func (v *VectorStore) UpdateDocument(ctx context.Context, doc domain.Document) error {
	_, err := v.indexDocument(ctx, doc, true)
	return err
}

// indexDocument reports whether a new chunk set was committed.
//
//nolint:gocyclo // Sequential pipeline with a failure exit per stage
func (v *VectorStore) indexDocument(ctx context.Context, doc domain.Document, mustExist bool) (changed bool, err error) {
	op := opIndex
	if mustExist {
		op = opUpdate
	}
	start := time.Now()
	defer func() { v.metrics.ObserveOperation(op, time.Since(start), err) }()

	if v.closed.Load() {
		return false, domain.ErrStoreClosed
	}
	if strings.TrimSpace(doc.ID) == "" {
		return false, fmt.Errorf("%w: document id is empty", domain.ErrIngestion)
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	v.maintenance.RLock()
	defer v.maintenance.RUnlock()
	unlock := v.locks.Lock(doc.ID)
	defer unlock()

	existing := v.snap.Load().docs[doc.ID]
	if mustExist && existing == nil {
		return false, fmt.Errorf("update %s: %w", doc.ID, domain.ErrNotFound)
	}

	hash := domain.ContentHash(doc.Content)
	if existing != nil && existing.doc.ContentHash == hash && !v.needsReembed(existing) {
		if existing.doc.Source == doc.Source {
			logger.Debug("Document %s unchanged, skipping", doc.ID)
			return false, nil
		}
		// Same content from a new source: keep the chunk set, record the tag.
		record := existing.doc
		record.Source = doc.Source
		if err := v.commit(ctx, record, existing.chunks); err != nil {
			return false, err
		}
		logger.Debug("Document %s unchanged, source now %q", doc.ID, doc.Source)
		return false, nil
	}

	prior := v.State(doc.ID)
	if existing != nil {
		v.setState(doc.ID, domain.StateReindexing)
	} else {
		v.setState(doc.ID, domain.StateIndexing)
	}
	defer func() {
		if err != nil {
			v.restoreState(doc.ID, prior)
		}
	}()

	chunks, err := v.pipeline.Process(ctx, &doc)
	if err != nil {
		if !errors.Is(err, domain.ErrIngestion) {
			err = fmt.Errorf("%w: %w", domain.ErrIngestion, err)
		}
		return false, err
	}

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Text
	}
	embedded, err := v.embed(ctx, doc.ID, chunks, texts)
	if err != nil {
		return false, err
	}

	now := v.now()
	record := domain.Document{
		ID:          doc.ID,
		Source:      doc.Source,
		ContentHash: hash,
		TotalChunks: len(embedded),
		CreatedAt:   now,
		UpdatedAt:   now,
		Indexed:     true,
	}
	switch {
	case existing != nil:
		record.CreatedAt = existing.doc.CreatedAt
	case !doc.CreatedAt.IsZero():
		record.CreatedAt = doc.CreatedAt.UTC()
	}

	if err := v.commit(ctx, record, embedded); err != nil {
		return false, err
	}

	v.clearState(doc.ID)
	logger.Info("Indexed %s: %d chunks", doc.ID, len(embedded))
	return true, nil
}

// embed tags chunks with their vectors. Cancellation is honoured between
// oracle batches and once more after the last one.
func (v *VectorStore) embed(
	ctx context.Context, docID string, chunks []domain.Chunk, texts []string,
) ([]domain.EmbeddedChunk, error) {
	embeddings, err := v.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding %s: %w", docID, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := v.now()
	embedded := make([]domain.EmbeddedChunk, len(chunks))
	for i := range chunks {
		embedded[i] = domain.EmbeddedChunk{
			Chunk:        chunks[i],
			Embedding:    embeddings[i].Vector,
			ModelVersion: embeddings[i].ModelVersion,
			CreatedAt:    now,
		}
	}
	return embedded, nil
}

// commit writes a complete chunk set and publishes it. The write is not
// interrupted by cancellation so it either fully commits or rolls back.
func (v *VectorStore) commit(ctx context.Context, record domain.Document, chunks []domain.EmbeddedChunk) error {
	if err := v.store.ReplaceDocument(context.WithoutCancel(ctx), record, chunks); err != nil {
		return storageErr("replacing chunks of "+record.ID, err)
	}
	v.publish(ctx, record.ID, newDocEntry(record, chunks))
	return nil
}

// publish swaps in a snapshot where id maps to e (removed when e is nil).
func (v *VectorStore) publish(ctx context.Context, id string, e *docEntry) {
	v.publishMu.Lock()
	cur := v.snap.Load()
	old := cur.docs[id]
	next := cur.with(id, e)
	v.snap.Store(next)
	v.publishMu.Unlock()

	v.metrics.SetSize(len(next.docs), next.chunks)

	if v.index == nil {
		return
	}
	keep := make(map[string]bool)
	if e != nil {
		for i := range e.chunks {
			keep[e.chunks[i].ID] = true
		}
	}
	if old != nil {
		for i := range old.chunks {
			if keep[old.chunks[i].ID] {
				continue
			}
			if err := v.index.Delete(context.WithoutCancel(ctx), old.chunks[i].ID); err != nil {
				logger.Warn("Vector index delete of %s failed: %v", old.chunks[i].ID, err)
			}
		}
	}
	if e != nil {
		v.addToIndex(ctx, e)
	}
}

func (v *VectorStore) addToIndex(ctx context.Context, e *docEntry) {
	for i := range e.chunks {
		c := &e.chunks[i]
		if c.Stale || c.Corrupt {
			continue
		}
		if err := v.index.Add(context.WithoutCancel(ctx), c.ID, c.Embedding); err != nil {
			logger.Warn("Vector index add of %s failed: %v", c.ID, err)
		}
	}
}

// DeleteIndex removes a document and all its chunks.
// Returns domain.ErrNotFound if the id is unknown.
func (v *VectorStore) DeleteIndex(ctx context.Context, documentID string) (err error) {
	start := time.Now()
	defer func() { v.metrics.ObserveOperation(opDelete, time.Since(start), err) }()

	if v.closed.Load() {
		return domain.ErrStoreClosed
	}

	v.maintenance.RLock()
	defer v.maintenance.RUnlock()
	unlock := v.locks.Lock(documentID)
	defer unlock()

	if _, ok := v.snap.Load().docs[documentID]; !ok {
		return fmt.Errorf("delete %s: %w", documentID, domain.ErrNotFound)
	}

	if err := v.store.DeleteDocument(context.WithoutCancel(ctx), documentID); err != nil {
		return storageErr("deleting "+documentID, err)
	}
	v.publish(ctx, documentID, nil)
	v.setState(documentID, domain.StateDeleted)

	logger.Info("Deleted %s", documentID)
	return nil
}

// IndexBatch indexes documents with bounded parallelism. Cancellation is
// checked between documents; a cancelled batch leaves only fully
// committed documents behind and returns the context error with the report.
func (v *VectorStore) IndexBatch(ctx context.Context, docs []domain.Document) (domain.BatchReport, error) {
	report := domain.BatchReport{
		JobID:  uuid.NewString(),
		Failed: make(map[string]error),
	}
	logger.Info("Batch %s: indexing %d documents", report.JobID, len(docs))

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(v.concurrency)

	for _, doc := range docs {
		if ctx.Err() != nil {
			report.Cancelled = true
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				mu.Lock()
				report.Cancelled = true
				mu.Unlock()
				return nil
			}

			changed, err := v.indexDocument(ctx, doc, false)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil && isContextErr(err):
				report.Cancelled = true
			case err != nil:
				report.Failed[doc.ID] = err
				logger.Warn("Batch %s: %s failed: %v", report.JobID, doc.ID, err)
			case changed:
				report.Committed = append(report.Committed, doc.ID)
			default:
				report.Unchanged = append(report.Unchanged, doc.ID)
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(report.Committed)
	sort.Strings(report.Unchanged)

	logger.Info("Batch %s: %d committed, %d unchanged, %d failed",
		report.JobID, len(report.Committed), len(report.Unchanged), len(report.Failed))

	if report.Cancelled {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		return report, context.Canceled
	}
	return report, nil
}

// needsReembed reports whether any chunk of e is unusable for the active model.
func (v *VectorStore) needsReembed(e *docEntry) bool {
	version := v.embedder.ModelVersion()
	for i := range e.chunks {
		c := &e.chunks[i]
		if c.Stale || c.Corrupt || c.ModelVersion != version {
			return true
		}
	}
	return false
}

// ReembedStale re-embeds the stored chunk texts of every document holding
// stale or unreadable embeddings, one document per transaction.
// Returns the number of chunks re-embedded.
func (v *VectorStore) ReembedStale(ctx context.Context) (total int, err error) {
	start := time.Now()
	defer func() { v.metrics.ObserveOperation(opReembed, time.Since(start), err) }()

	if v.closed.Load() {
		return 0, domain.ErrStoreClosed
	}

	snap := v.snap.Load()
	var ids []string
	for id, e := range snap.docs {
		if v.needsReembed(e) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if len(ids) == 0 {
		return 0, nil
	}
	if err := v.embedder.Ping(ctx); err != nil {
		return 0, err
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := v.reembedDocument(ctx, id)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (v *VectorStore) reembedDocument(ctx context.Context, id string) (n int, err error) {
	v.maintenance.RLock()
	defer v.maintenance.RUnlock()
	unlock := v.locks.Lock(id)
	defer unlock()

	e := v.snap.Load().docs[id]
	if e == nil || !v.needsReembed(e) {
		return 0, nil
	}

	v.setState(id, domain.StateReindexing)
	defer func() {
		if err != nil {
			v.restoreState(id, domain.StateIndexed)
		}
	}()

	chunks := make([]domain.Chunk, len(e.chunks))
	texts := make([]string, len(e.chunks))
	for i := range e.chunks {
		chunks[i] = e.chunks[i].Chunk
		texts[i] = e.chunks[i].Text
	}
	embedded, err := v.embed(ctx, id, chunks, texts)
	if err != nil {
		return 0, err
	}

	record := e.doc
	record.UpdatedAt = v.now()
	if err := v.commit(ctx, record, embedded); err != nil {
		return 0, err
	}

	v.clearState(id)
	logger.Debug("Re-embedded %d chunks of %s", len(embedded), id)
	return len(embedded), nil
}

// Search ranks committed chunks against a query embedding.
// Chunks from another model version are never compared.
func (v *VectorStore) Search(
	ctx context.Context, query []float32, opts domain.SearchOptions,
) ([]domain.ScoredChunk, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap := v.snap.Load()
	candidates, err := v.candidates(ctx, snap, query, opts)
	if err != nil {
		return nil, err
	}

	results, err := v.engine.Rank(query, candidates, opts)
	if err != nil {
		return nil, err
	}

	v.metrics.ObserveSearch(time.Since(start), len(results))
	logger.Debug("Search over %d candidates returned %d chunks", len(candidates), len(results))
	return results, nil
}

// candidates collects the chunks to score. Without a vector index every
// committed chunk is a candidate.
func (v *VectorStore) candidates(
	ctx context.Context, snap *snapshot, query []float32, opts domain.SearchOptions,
) ([]domain.EmbeddedChunk, error) {
	version := v.embedder.ModelVersion()
	mark := func(c domain.EmbeddedChunk) domain.EmbeddedChunk {
		if c.ModelVersion != version {
			c.Stale = true
		}
		return c
	}

	all := func() []domain.EmbeddedChunk {
		out := make([]domain.EmbeddedChunk, 0, snap.chunks)
		for _, e := range snap.docs {
			for i := range e.chunks {
				out = append(out, mark(e.chunks[i]))
			}
		}
		return out
	}

	if v.index == nil {
		return all(), nil
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = v.engine.DefaultLimit()
	}
	hits, err := v.index.Search(ctx, query, limit*indexOversample)
	if err != nil {
		return nil, fmt.Errorf("vector index search: %w", err)
	}
	if len(hits) == 0 {
		// The index skips vectors it cannot compare. Score every chunk so
		// a dimension mismatch is reported the same way as without it.
		return all(), nil
	}
	out := make([]domain.EmbeddedChunk, 0, len(hits))
	for _, hit := range hits {
		if c, ok := snap.chunk(hit.ChunkID); ok {
			out = append(out, mark(c))
		}
	}
	return out, nil
}

// GetIndexStats returns document, chunk and byte counts of committed state.
func (v *VectorStore) GetIndexStats(_ context.Context) (domain.IndexStats, error) {
	snap := v.snap.Load()
	version := v.embedder.ModelVersion()

	stats := domain.IndexStats{
		DocumentCount: len(snap.docs),
		ChunkCount:    snap.chunks,
		BytesUsed:     snap.bytes,
		ModelVersion:  version,
	}
	for _, e := range snap.docs {
		for i := range e.chunks {
			if e.chunks[i].Stale || e.chunks[i].ModelVersion != version {
				stats.StaleChunkCount++
			}
		}
	}
	return stats, nil
}

// OptimizeIndex compacts storage and rebuilds the in-memory snapshot.
// Mutations wait until it finishes; searches continue on the old snapshot.
func (v *VectorStore) OptimizeIndex(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { v.metrics.ObserveOperation(opOptimize, time.Since(start), err) }()

	if v.closed.Load() {
		return domain.ErrStoreClosed
	}

	v.maintenance.Lock()
	defer v.maintenance.Unlock()

	before, err := v.store.Stats(ctx)
	if err != nil {
		return storageErr("reading stats", err)
	}
	if err := v.store.Optimize(ctx); err != nil {
		return storageErr("optimizing", err)
	}
	after, err := v.store.Stats(ctx)
	if err != nil {
		return storageErr("reading stats", err)
	}
	if after.DocumentCount != before.DocumentCount || after.ChunkCount != before.ChunkCount {
		return storageErr("optimizing", fmt.Errorf("stored content changed: %d/%d documents, %d/%d chunks",
			before.DocumentCount, after.DocumentCount, before.ChunkCount, after.ChunkCount))
	}
	logger.Debug("Optimized storage: %d bytes before, %d after", before.BytesUsed, after.BytesUsed)
	return v.reload(ctx)
}

// State returns the lifecycle state of a document.
func (v *VectorStore) State(documentID string) domain.IndexState {
	v.stateMu.Lock()
	s, ok := v.states[documentID]
	v.stateMu.Unlock()
	if ok {
		return s
	}
	if _, ok := v.snap.Load().docs[documentID]; ok {
		return domain.StateIndexed
	}
	return domain.StateUnindexed
}

func (v *VectorStore) setState(id string, s domain.IndexState) {
	v.stateMu.Lock()
	defer v.stateMu.Unlock()
	v.states[id] = s
}

// clearState drops the explicit state so it derives from the snapshot.
func (v *VectorStore) clearState(id string) {
	v.stateMu.Lock()
	defer v.stateMu.Unlock()
	delete(v.states, id)
}

func (v *VectorStore) restoreState(id string, prior domain.IndexState) {
	if prior == domain.StateIndexed || prior == domain.StateUnindexed {
		v.clearState(id)
		return
	}
	v.setState(id, prior)
}

// Documents lists committed documents ordered by id.
func (v *VectorStore) Documents() []domain.Document {
	snap := v.snap.Load()
	docs := make([]domain.Document, 0, len(snap.docs))
	for _, e := range snap.docs {
		docs = append(docs, e.doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs
}

// Chunks returns the committed chunks of a document in order.
func (v *VectorStore) Chunks(documentID string) ([]domain.EmbeddedChunk, error) {
	e, ok := v.snap.Load().docs[documentID]
	if !ok {
		return nil, fmt.Errorf("chunks of %s: %w", documentID, domain.ErrNotFound)
	}
	return append([]domain.EmbeddedChunk(nil), e.chunks...), nil
}

// storageErr classifies a ChunkStore failure.
func storageErr(op string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrStorage, op, err)
}
