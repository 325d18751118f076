package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/goleak"

	"github.com/custodia-labs/pdfchat/internal/core/domain"
	"github.com/custodia-labs/pdfchat/internal/core/ports/driving"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// recordSpans installs a recording tracer provider for the test.
func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func spanNamed(spans []sdktrace.ReadOnlySpan, name string) sdktrace.ReadOnlySpan {
	for _, s := range spans {
		if s.Name() == name {
			return s
		}
	}
	return nil
}

func TestEnsureIndexed_IngestsOnce(t *testing.T) {
	p := newPipeline(t, withChunkSize(40))
	p.addDocument(t, "doc-1", sampleText)
	ctx := context.Background()

	ns, err := p.indexing.EnsureIndexed(ctx, "doc-1")
	require.NoError(t, err)

	assert.Equal(t, "doc-1", ns.ID)
	assert.Equal(t, testUser, ns.OwnerID)
	assert.Equal(t, 4, ns.ChunkCount)
	assert.Equal(t, 4, ns.Dimensions)
	assert.Equal(t, "mock-embed", ns.EmbeddingModel)
	assert.Equal(t, 4, p.namespaces.Count("doc-1"))

	again, err := p.indexing.EnsureIndexed(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, ns.ChunkCount, again.ChunkCount)
	assert.Equal(t, 1, p.fetcher.callCount())

	state, err := p.indexing.Status(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.IndexStatusComplete, state.Status)
	assert.Equal(t, 4, state.ChunkCount)
	assert.False(t, state.CompletedAt.IsZero())
}

func TestEnsureIndexed_MarkerSurvivesNewService(t *testing.T) {
	p := newPipeline(t)
	p.addDocument(t, "doc-1", sampleText)

	_, err := p.indexing.EnsureIndexed(context.Background(), "doc-1")
	require.NoError(t, err)

	// A fresh coordinator has an empty cache but finds the marker.
	fresh := NewIndexingService(p.docStore, p.states, p.namespaces, p.fetcher, nil, nil, p.embedder, p.identity, IndexingOptions{})
	ns, err := fresh.EnsureIndexed(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 1, ns.ChunkCount)
	assert.Equal(t, 1, p.fetcher.callCount())
}

func TestEnsureIndexed_Unauthenticated(t *testing.T) {
	p := newPipeline(t, withIdentity(""))

	_, err := p.indexing.EnsureIndexed(context.Background(), "doc-1")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestEnsureIndexed_OtherOwnersDocument(t *testing.T) {
	p := newPipeline(t)
	require.NoError(t, p.docStore.SaveDocument(context.Background(), &domain.Document{
		ID: "theirs", OwnerID: "someone-else", SourceURL: "https://x/y.txt",
	}))

	_, err := p.indexing.EnsureIndexed(context.Background(), "theirs")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 0, p.fetcher.callCount())
}

func TestEnsureIndexed_FetchFailureLeavesNoNamespace(t *testing.T) {
	p := newPipeline(t)
	p.addDocument(t, "doc-1", sampleText)
	p.fetcher.err = errBoom

	_, err := p.indexing.EnsureIndexed(context.Background(), "doc-1")
	require.ErrorIs(t, err, domain.ErrSourceUnavailable)
	assert.ErrorIs(t, err, errBoom)

	exists, err := p.namespaces.NamespaceExists(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.False(t, exists)

	state, err := p.indexing.Status(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.IndexStatusFailed, state.Status)
	assert.Contains(t, state.Error, "boom")
}

func TestEnsureIndexed_RetriesAfterFailure(t *testing.T) {
	p := newPipeline(t)
	p.addDocument(t, "doc-1", sampleText)
	p.fetcher.err = errBoom

	_, err := p.indexing.EnsureIndexed(context.Background(), "doc-1")
	require.Error(t, err)

	p.fetcher.err = nil
	ns, err := p.indexing.EnsureIndexed(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 1, ns.ChunkCount)
}

func TestEnsureIndexed_UnsupportedContent(t *testing.T) {
	p := newPipeline(t)
	p.addDocument(t, "doc-1", sampleText)
	p.fetcher.mimeType = "image/png"

	_, err := p.indexing.EnsureIndexed(context.Background(), "doc-1")
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestEnsureIndexed_NoText(t *testing.T) {
	p := newPipeline(t)
	p.addDocument(t, "doc-1", "   \n\n  ")

	_, err := p.indexing.EnsureIndexed(context.Background(), "doc-1")
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
}

func TestEnsureIndexed_EmbedsInBatches(t *testing.T) {
	p := newPipeline(t, withChunkSize(40), withBatchSize(3))
	p.addDocument(t, "doc-1", sampleText)

	ns, err := p.indexing.EnsureIndexed(context.Background(), "doc-1")
	require.NoError(t, err)

	assert.Equal(t, []int{3, 1}, p.embedder.batchSizes)
	assert.Equal(t, 4, ns.ChunkCount)
}

func TestEnsureIndexed_EmbeddingFailureWritesNothing(t *testing.T) {
	p := newPipeline(t, withChunkSize(40), withBatchSize(2))
	p.addDocument(t, "doc-1", sampleText)
	p.embedder.failOnCall = 2

	_, err := p.indexing.EnsureIndexed(context.Background(), "doc-1")
	require.ErrorIs(t, err, domain.ErrEmbeddingService)

	assert.Equal(t, 0, p.namespaces.Count("doc-1"))
	state, err := p.indexing.Status(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.IndexStatusFailed, state.Status)
}

func TestEnsureIndexed_UpsertFailure(t *testing.T) {
	p := newPipeline(t)
	p.addDocument(t, "doc-1", sampleText)
	p.nsWrapper.upsertErr = errBoom

	_, err := p.indexing.EnsureIndexed(context.Background(), "doc-1")
	assert.ErrorIs(t, err, domain.ErrVectorStore)
}

func TestEnsureIndexed_AdoptsNamespaceWithoutMarker(t *testing.T) {
	p := newPipeline(t)
	p.addDocument(t, "doc-1", sampleText)
	require.NoError(t, p.namespaces.Upsert(context.Background(), "doc-1", []domain.VectorRecord{
		{ID: "legacy", Vector: keywordVector("alpha"), Text: "legacy text"},
	}))

	ns, err := p.indexing.EnsureIndexed(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", ns.ID)
	assert.Equal(t, 0, p.fetcher.callCount())

	state, err := p.indexing.Status(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.IndexStatusComplete, state.Status)
}

func TestEnsureIndexed_ConcurrentCallsIngestOnce(t *testing.T) {
	p := newPipeline(t)
	p.addDocument(t, "doc-1", sampleText)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = p.indexing.EnsureIndexed(context.Background(), "doc-1")
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, p.fetcher.callCount())
	assert.Equal(t, 1, p.namespaces.Count("doc-1"))
}

func TestEnsureIndexed_WithoutLockerConverges(t *testing.T) {
	p := newPipeline(t, withLocker(nil), withChunkSize(40))
	p.addDocument(t, "doc-1", sampleText)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.indexing.EnsureIndexed(context.Background(), "doc-1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Deterministic chunk IDs make duplicate ingestion overwrite.
	assert.Equal(t, 4, p.namespaces.Count("doc-1"))
}

func TestEnsureIndexed_Span(t *testing.T) {
	sr := recordSpans(t)
	p := newPipeline(t)
	p.addDocument(t, "doc-1", sampleText)

	_, err := p.indexing.EnsureIndexed(context.Background(), "doc-1")
	require.NoError(t, err)

	span := spanNamed(sr.Ended(), "indexing.EnsureIndexed")
	require.NotNil(t, span)
	assert.Contains(t, span.Attributes(), attribute.String("index.path", "ingested"))
	assert.Contains(t, span.Attributes(), attribute.String("document.id", "doc-1"))

	p.fetcher.err = errBoom
	_, err = p.indexing.EnsureIndexed(context.Background(), "missing")
	require.Error(t, err)

	var failed sdktrace.ReadOnlySpan
	for _, s := range sr.Ended() {
		if s.Status().Code == codes.Error {
			failed = s
		}
	}
	require.NotNil(t, failed)
	assert.Equal(t, "indexing.EnsureIndexed", failed.Name())
}

func TestIndexingStatus_NotIndexed(t *testing.T) {
	p := newPipeline(t)
	p.addDocument(t, "doc-1", sampleText)

	_, err := p.indexing.Status(context.Background(), "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEnsureIndexed_AdoptsExtractedTitle(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	p.fetcher.mu.Lock()
	p.fetcher.content["https://files.example.com/my_notes.txt"] = sampleText
	p.fetcher.content["https://files.example.com/named.txt"] = sampleText
	p.fetcher.mu.Unlock()

	derived, err := p.documents.Register(ctx, driving.RegisterDocumentRequest{
		ID: "derived", SourceURL: "https://files.example.com/my_notes.txt",
	})
	require.NoError(t, err)
	require.Equal(t, "my_notes", derived.Title)

	named, err := p.documents.Register(ctx, driving.RegisterDocumentRequest{
		ID: "named", SourceURL: "https://files.example.com/named.txt", Title: "Lecture 3",
	})
	require.NoError(t, err)

	for _, id := range []string{"derived", "named"} {
		_, err := p.indexing.EnsureIndexed(ctx, id)
		require.NoError(t, err)
	}

	got, err := p.documents.Get(ctx, "derived")
	require.NoError(t, err)
	assert.Equal(t, "my notes", got.Title)

	got, err = p.documents.Get(ctx, named.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lecture 3", got.Title)
}
