package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
	"github.com/custodia-labs/sercha-rag/internal/telemetry"
)

// Default embedding client configuration.
const (
	DefaultEmbeddingBatchSize = 16
	DefaultEmbeddingCacheSize = 4096
)

// Embedding is a vector tagged with the model version that produced it.
type Embedding struct {
	Vector       []float32
	ModelVersion string
}

// EmbeddingClient batches and caches calls to an EmbeddingOracle.
// Vectors are cached by model version and content hash, so re-indexing
// unchanged chunks does not reach the oracle.
type EmbeddingClient struct {
	oracle    driven.EmbeddingOracle
	cache     *lru.Cache[string, []float32]
	cacheSize int
	group     singleflight.Group
	claimMu   sync.Mutex
	limiter   *rate.Limiter
	batchSize int
	metrics   *telemetry.Metrics

	hits   atomic.Int64
	misses atomic.Int64
}

// EmbeddingOption configures the embedding client.
type EmbeddingOption func(*EmbeddingClient)

// WithBatchSize sets the number of texts per oracle call.
func WithBatchSize(n int) EmbeddingOption {
	return func(c *EmbeddingClient) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithCacheSize sets the number of cached vectors. Zero disables caching.
func WithCacheSize(n int) EmbeddingOption {
	return func(c *EmbeddingClient) {
		if n >= 0 {
			c.cacheSize = n
		}
	}
}

// WithRateLimit throttles oracle calls to rps requests per second.
// Zero or negative means unlimited.
func WithRateLimit(rps float64, burst int) EmbeddingOption {
	return func(c *EmbeddingClient) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithEmbeddingMetrics records cache and oracle metrics.
func WithEmbeddingMetrics(m *telemetry.Metrics) EmbeddingOption {
	return func(c *EmbeddingClient) {
		c.metrics = m
	}
}

// NewEmbeddingClient wraps an oracle with batching and caching.
func NewEmbeddingClient(oracle driven.EmbeddingOracle, opts ...EmbeddingOption) (*EmbeddingClient, error) {
	if oracle == nil {
		return nil, fmt.Errorf("%w: embedding oracle is nil", domain.ErrInvalidInput)
	}

	c := &EmbeddingClient{
		oracle:    oracle,
		batchSize: DefaultEmbeddingBatchSize,
		cacheSize: DefaultEmbeddingCacheSize,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.cacheSize > 0 {
		cache, err := lru.New[string, []float32](c.cacheSize)
		if err != nil {
			return nil, fmt.Errorf("creating embedding cache: %w", err)
		}
		c.cache = cache
	}

	return c, nil
}

// ModelVersion returns the oracle's current model version.
func (c *EmbeddingClient) ModelVersion() string {
	return c.oracle.ModelVersion()
}

// Dimensions returns the oracle's declared vector size.
func (c *EmbeddingClient) Dimensions() int {
	return c.oracle.Dimensions()
}

// Ping reports whether the oracle can serve requests.
func (c *EmbeddingClient) Ping(ctx context.Context) error {
	if err := c.oracle.Ping(ctx); err != nil {
		return unavailable(err)
	}
	return nil
}

// Stats returns cache hits and misses since creation.
func (c *EmbeddingClient) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Purge empties the cache.
func (c *EmbeddingClient) Purge() {
	if c.cache != nil {
		c.cache.Purge()
	}
}

// Embed returns the embedding of a single text.
// Concurrent calls for the same text share one oracle request.
func (c *EmbeddingClient) Embed(ctx context.Context, text string) (Embedding, error) {
	version := c.oracle.ModelVersion()
	key := cacheKey(version, text)

	if vec, ok := c.lookup(key); ok {
		return Embedding{Vector: vec, ModelVersion: version}, nil
	}

	v, err, shared := c.group.Do(key, func() (any, error) {
		vectors, err := c.call(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		c.store(key, vectors[0])
		return vectors[0], nil
	})
	if err != nil && shared && isContextErr(err) && ctx.Err() == nil {
		// Another caller led the request and was cancelled.
		return c.Embed(ctx, text)
	}
	if err != nil {
		return Embedding{}, err
	}

	return Embedding{Vector: v.([]float32), ModelVersion: version}, nil
}

// EmbedBatch returns embeddings for texts, in order. Cached texts are not
// sent to the oracle; duplicate texts are sent once, and texts another
// caller is already embedding are shared with that caller. Cancellation is
// checked between oracle calls, never during one.
func (c *EmbeddingClient) EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error) {
	version := c.oracle.ModelVersion()
	out := make([]Embedding, len(texts))

	// pending maps a cache key to the output positions waiting on it.
	pending := make(map[string][]int)
	var missKeys []string
	var missTexts []string

	for i, text := range texts {
		key := cacheKey(version, text)
		if vec, ok := c.lookup(key); ok {
			out[i] = Embedding{Vector: vec, ModelVersion: version}
			continue
		}
		if _, seen := pending[key]; !seen {
			missKeys = append(missKeys, key)
			missTexts = append(missTexts, text)
		}
		pending[key] = append(pending[key], i)
	}

	if len(missKeys) == 0 {
		return out, nil
	}

	vectors, err := c.embedMisses(ctx, missKeys, missTexts)
	if err != nil {
		return nil, err
	}
	for key, positions := range pending {
		for _, pos := range positions {
			out[pos] = Embedding{Vector: vectors[key], ModelVersion: version}
		}
	}
	return out, nil
}

// flight is a cache miss led by one EmbedBatch call. Callers embedding the
// same key concurrently wait on it through the singleflight group.
type flight struct {
	key  string
	text string
	done chan struct{}
	vec  []float32
	err  error
}

func (f *flight) finish(vec []float32, err error) {
	f.vec, f.err = vec, err
	close(f.done)
}

// follower is a cache miss led by another caller.
type follower struct {
	key    string
	text   string
	ch     <-chan singleflight.Result
	result *singleflight.Result
}

// embedMisses embeds keys not found in the cache and returns their vectors
// by key.
func (c *EmbeddingClient) embedMisses(ctx context.Context, keys, texts []string) (map[string][]float32, error) {
	owned, followed, err := c.claim(ctx, keys, texts)
	if err != nil {
		return nil, err
	}

	// Owned flights are sent before waiting on anyone else, so two callers
	// following each other's keys both make progress.
	if err := c.flush(ctx, owned); err != nil {
		return nil, err
	}

	vectors := make(map[string][]float32, len(keys))
	for _, f := range owned {
		vectors[f.key] = f.vec
	}

	var retryKeys, retryTexts []string
	for _, fo := range followed {
		if fo.result == nil {
			select {
			case r := <-fo.ch:
				fo.result = &r
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		if err := fo.result.Err; err != nil {
			// The leader was cancelled; this caller was not.
			if isContextErr(err) && ctx.Err() == nil {
				retryKeys = append(retryKeys, fo.key)
				retryTexts = append(retryTexts, fo.text)
				continue
			}
			return nil, err
		}
		vectors[fo.key] = fo.result.Val.([]float32)
	}

	if len(retryKeys) > 0 {
		retried, err := c.embedMisses(ctx, retryKeys, retryTexts)
		if err != nil {
			return nil, err
		}
		for key, vec := range retried {
			vectors[key] = vec
		}
	}
	return vectors, nil
}

// claim registers every key with the singleflight group and reports which
// ones this caller leads. Claims are serialized: a caller waiting here on a
// key led by another has already let that leader finish claiming, and the
// leader sends its batch without taking claimMu.
func (c *EmbeddingClient) claim(ctx context.Context, keys, texts []string) ([]*flight, []*follower, error) {
	c.claimMu.Lock()
	defer c.claimMu.Unlock()

	flights := make([]*flight, len(keys))
	started := make([]chan struct{}, len(keys))
	results := make([]<-chan singleflight.Result, len(keys))
	for i, key := range keys {
		f := &flight{key: key, text: texts[i], done: make(chan struct{})}
		s := make(chan struct{})
		flights[i], started[i] = f, s
		results[i] = c.group.DoChan(key, func() (any, error) {
			close(s)
			<-f.done
			return f.vec, f.err
		})
	}

	var owned []*flight
	var followed []*follower
	for i := range keys {
		select {
		case <-started[i]:
			owned = append(owned, flights[i])
		case r := <-results[i]:
			followed = append(followed, &follower{key: keys[i], text: texts[i], result: &r})
		case <-ctx.Done():
			// Release every flight this call may lead; the rest are never
			// waited on.
			for _, f := range flights {
				f.finish(nil, ctx.Err())
			}
			return nil, nil, ctx.Err()
		}
	}
	return owned, followed, nil
}

// flush sends owned flights to the oracle in batches and finishes every
// one of them, with a vector or with the error that stopped the flush.
func (c *EmbeddingClient) flush(ctx context.Context, owned []*flight) error {
	// A flight that finished while this caller waited to claim has
	// already filled the cache.
	if c.cache != nil {
		unsent := owned[:0:0]
		for _, f := range owned {
			if vec, ok := c.cache.Peek(f.key); ok {
				f.finish(vec, nil)
				continue
			}
			unsent = append(unsent, f)
		}
		owned = unsent
	}

	var failed error
	dims := -1
	for start := 0; start < len(owned); start += c.batchSize {
		end := min(start+c.batchSize, len(owned))
		batch := owned[start:end]

		if failed == nil {
			failed = ctx.Err()
		}
		if failed != nil {
			for _, f := range batch {
				f.finish(nil, failed)
			}
			continue
		}

		texts := make([]string, len(batch))
		for j, f := range batch {
			texts[j] = f.text
		}
		vectors, err := c.call(ctx, texts)
		if err == nil {
			for _, vec := range vectors {
				if dims < 0 {
					dims = len(vec)
				} else if len(vec) != dims {
					err = unavailable(fmt.Errorf("oracle returned %d and %d dimensional vectors in one batch", dims, len(vec)))
					break
				}
			}
		}
		if err != nil {
			failed = err
			for _, f := range batch {
				f.finish(nil, err)
			}
			continue
		}

		for j, f := range batch {
			c.store(f.key, vectors[j])
			f.finish(vectors[j], nil)
		}
	}
	return failed
}

// call sends one batch to the oracle. The oracle runs detached from ctx
// cancellation so a call is never aborted midway.
func (c *EmbeddingClient) call(ctx context.Context, texts []string) ([][]float32, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	vectors, err := c.oracle.EmbedBatch(context.WithoutCancel(ctx), texts)
	c.metrics.ObserveOracle(time.Since(start), err)
	if err != nil {
		logger.Debug("Embedding oracle failed for %d texts: %v", len(texts), err)
		return nil, unavailable(err)
	}

	if len(vectors) != len(texts) {
		return nil, unavailable(fmt.Errorf("oracle returned %d vectors for %d texts", len(vectors), len(texts)))
	}
	for i, vec := range vectors {
		if len(vec) == 0 {
			return nil, unavailable(fmt.Errorf("oracle returned an empty vector for text %d", i))
		}
	}

	logger.Debug("Embedded %d texts in %s", len(texts), time.Since(start))
	return vectors, nil
}

func (c *EmbeddingClient) lookup(key string) ([]float32, bool) {
	if c.cache == nil {
		c.misses.Add(1)
		c.metrics.CacheLookup(false)
		return nil, false
	}
	vec, ok := c.cache.Get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	c.metrics.CacheLookup(ok)
	return vec, ok
}

func (c *EmbeddingClient) store(key string, vec []float32) {
	if c.cache != nil {
		c.cache.Add(key, vec)
	}
}

func cacheKey(version, text string) string {
	return version + "\x00" + domain.ContentHash(text)
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// unavailable marks err as an oracle failure unless it already is one
// or is a context error.
func unavailable(err error) error {
	if errors.Is(err, domain.ErrEmbeddingUnavailable) || isContextErr(err) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
}
