package memory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/doc-rag/internal/core/document"
	"github.com/jinford/doc-rag/internal/core/index"
)

func entry(chunkID string, docID uuid.UUID, modality document.Modality, vector []float32) index.Entry {
	return index.Entry{
		ChunkID: chunkID,
		Vector:  vector,
		Metadata: index.Metadata{
			DocumentID: docID,
			Modality:   modality,
			Content:    "content of " + chunkID,
		},
	}
}

func TestVectorStore_QueryOrdersByDistance(t *testing.T) {
	ctx := context.Background()
	store := NewVectorStore()
	docID := uuid.New()

	require.NoError(t, store.Upsert(ctx, []index.Entry{
		entry("far", docID, document.ModalityText, []float32{-1, 0}),
		entry("near", docID, document.ModalityText, []float32{1, 0}),
		entry("mid", docID, document.ModalityText, []float32{1, 1}),
	}))

	matches, err := store.Query(ctx, []float32{1, 0}, 10, index.Filter{})

	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, "near", matches[0].ChunkID)
	assert.InDelta(t, 0, matches[0].Distance, 1e-6)
	assert.Equal(t, "mid", matches[1].ChunkID)
	assert.Equal(t, "far", matches[2].ChunkID)
	assert.InDelta(t, 2, matches[2].Distance, 1e-6)
}

func TestVectorStore_QueryTopK(t *testing.T) {
	ctx := context.Background()
	store := NewVectorStore()
	docID := uuid.New()

	require.NoError(t, store.Upsert(ctx, []index.Entry{
		entry("a", docID, document.ModalityText, []float32{1, 0}),
		entry("b", docID, document.ModalityText, []float32{0, 1}),
	}))

	matches, err := store.Query(ctx, []float32{1, 0}, 1, index.Filter{})

	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "a", matches[0].ChunkID)
}

func TestVectorStore_QueryFilters(t *testing.T) {
	ctx := context.Background()
	store := NewVectorStore()
	docA := uuid.New()
	docB := uuid.New()

	require.NoError(t, store.Upsert(ctx, []index.Entry{
		entry("a-text", docA, document.ModalityText, []float32{1, 0}),
		entry("a-image", docA, document.ModalityImage, []float32{1, 0}),
		entry("b-text", docB, document.ModalityText, []float32{1, 0}),
	}))

	matches, err := store.Query(ctx, []float32{1, 0}, 10, index.Filter{ExcludeImages: true})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	for _, m := range matches {
		assert.NotEqual(t, document.ModalityImage, m.Metadata.Modality)
	}

	matches, err = store.Query(ctx, []float32{1, 0}, 10, index.Filter{DocumentIDs: []uuid.UUID{docB}})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "b-text", matches[0].ChunkID)
}

func TestVectorStore_UpsertReplaces(t *testing.T) {
	ctx := context.Background()
	store := NewVectorStore()
	docID := uuid.New()

	require.NoError(t, store.Upsert(ctx, []index.Entry{
		entry("a", docID, document.ModalityText, []float32{1, 0}),
	}))
	require.NoError(t, store.Upsert(ctx, []index.Entry{
		entry("a", docID, document.ModalityText, []float32{0, 1}),
	}))

	ids, err := store.ListIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids)

	matches, err := store.Query(ctx, []float32{0, 1}, 1, index.Filter{})
	require.NoError(t, err)
	assert.InDelta(t, 0, matches[0].Distance, 1e-6)
}

func TestVectorStore_DeleteDocument(t *testing.T) {
	ctx := context.Background()
	store := NewVectorStore()
	docA := uuid.New()
	docB := uuid.New()

	require.NoError(t, store.Upsert(ctx, []index.Entry{
		entry("a", docA, document.ModalityText, []float32{1, 0}),
		entry("b", docB, document.ModalityText, []float32{1, 0}),
	}))

	require.NoError(t, store.DeleteDocument(ctx, docA))

	ids, err := store.ListIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids)
}

func TestVectorStore_GetMetadata(t *testing.T) {
	ctx := context.Background()
	store := NewVectorStore()
	docID := uuid.New()

	require.NoError(t, store.Upsert(ctx, []index.Entry{
		entry("a", docID, document.ModalityText, []float32{1, 0}),
	}))

	opt, err := store.GetMetadata(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "content of a", opt.MustGet().Content)

	missing, err := store.GetMetadata(ctx, "zzz")
	require.NoError(t, err)
	assert.True(t, missing.IsAbsent())
}

func TestVectorStore_ZeroVectorIsFarthest(t *testing.T) {
	ctx := context.Background()
	store := NewVectorStore()
	docID := uuid.New()

	require.NoError(t, store.Upsert(ctx, []index.Entry{
		entry("zero", docID, document.ModalityText, []float32{0, 0}),
		entry("real", docID, document.ModalityText, []float32{1, 0}),
	}))

	matches, err := store.Query(ctx, []float32{1, 0}, 10, index.Filter{})

	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "real", matches[0].ChunkID)
	assert.InDelta(t, 1, matches[1].Distance, 1e-6)
}
