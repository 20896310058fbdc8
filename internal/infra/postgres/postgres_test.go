package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/doc-rag/internal/core/document"
	"github.com/jinford/doc-rag/internal/core/index"
)

// startPostgres spins up a throwaway pgvector container.
// The test is skipped when Docker is not reachable.
func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dockerPool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("skipping: docker not available: %v", err)
	}
	if err := dockerPool.Client.Ping(); err != nil {
		t.Skipf("skipping: docker not reachable: %v", err)
	}

	resource, err := dockerPool.RunWithOptions(&dockertest.RunOptions{
		Repository: "pgvector/pgvector",
		Tag:        "pg16",
		Env: []string{
			"POSTGRES_USER=test",
			"POSTGRES_PASSWORD=test",
			"POSTGRES_DB=docrag_test",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = dockerPool.Purge(resource)
	})
	_ = resource.Expire(300)

	connString := fmt.Sprintf(
		"host=localhost port=%s user=test password=test dbname=docrag_test sslmode=disable",
		resource.GetPort("5432/tcp"),
	)

	var pool *pgxpool.Pool
	dockerPool.MaxWait = 60 * time.Second
	err = dockerPool.Retry(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		p, err := pgxpool.New(ctx, connString)
		if err != nil {
			return err
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return err
		}
		pool = p
		return nil
	})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, Migrate(context.Background(), pool))

	return pool
}

func testVector(dim int, seed float32) []float32 {
	v := make([]float32, dim)
	v[0] = seed
	v[1] = 1
	return v
}

func TestRepositoryAndVectorStore(t *testing.T) {
	pool := startPostgres(t)
	ctx := context.Background()

	repo := NewRepository(pool)
	store := NewVectorStore(pool)

	doc := document.Document{
		ID:        uuid.New(),
		Filename:  "guide.md",
		Type:      document.TypeMarkdown,
		Metadata:  map[string]string{"source": "upload"},
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.CreateDocument(ctx, doc))

	t.Run("get document", func(t *testing.T) {
		opt, err := repo.GetDocument(ctx, doc.ID)
		require.NoError(t, err)
		got, ok := opt.Get()
		require.True(t, ok)
		assert.Equal(t, "guide.md", got.Filename)
		assert.Equal(t, document.TypeMarkdown, got.Type)
		assert.Equal(t, map[string]string{"source": "upload"}, got.Metadata)
		assert.Nil(t, got.ProcessedAt)
	})

	t.Run("get missing document returns none", func(t *testing.T) {
		opt, err := repo.GetDocument(ctx, uuid.New())
		require.NoError(t, err)
		assert.True(t, opt.IsAbsent())
	})

	page := 1
	lang := "python"
	chunks := []document.Chunk{
		{
			ID:         document.ChunkID(doc.ID, document.ModalityText, 0),
			DocumentID: doc.ID,
			Modality:   document.ModalityText,
			Content:    "Python is a great language",
			PageNumber: &page,
		},
		{
			ID:         document.ChunkID(doc.ID, document.ModalityCode, 0),
			DocumentID: doc.ID,
			Modality:   document.ModalityCode,
			Content:    "def add(a, b):\n  return a + b",
			Language:   &lang,
			Functions:  []string{"add"},
		},
	}

	t.Run("batch create and list chunks", func(t *testing.T) {
		require.NoError(t, repo.BatchCreateChunks(ctx, chunks))
		// Re-running the batch replaces instead of failing.
		require.NoError(t, repo.BatchCreateChunks(ctx, chunks))

		got, err := repo.ListChunksByDocument(ctx, doc.ID)
		require.NoError(t, err)
		require.Len(t, got, 2)
	})

	t.Run("mark processed", func(t *testing.T) {
		require.NoError(t, repo.MarkDocumentProcessed(ctx, doc.ID, 1, 0, 1))

		opt, err := repo.GetDocument(ctx, doc.ID)
		require.NoError(t, err)
		got := opt.MustGet()
		assert.Equal(t, 1, got.TextChunks)
		assert.Equal(t, 1, got.CodeChunks)
		assert.NotNil(t, got.ProcessedAt)
		assert.Nil(t, got.Error)
	})

	t.Run("vector store upsert and query", func(t *testing.T) {
		entries := []index.Entry{
			{
				ChunkID: chunks[0].ID,
				Vector:  testVector(1536, 1),
				Metadata: index.Metadata{
					DocumentID: doc.ID,
					Modality:   document.ModalityText,
					Content:    chunks[0].Content,
					PageNumber: &page,
				},
			},
			{
				ChunkID: chunks[1].ID,
				Vector:  testVector(1536, -1),
				Metadata: index.Metadata{
					DocumentID: doc.ID,
					Modality:   document.ModalityCode,
					Content:    chunks[1].Content,
					Language:   &lang,
				},
			},
		}
		require.NoError(t, store.Upsert(ctx, entries))
		// Upsert is idempotent per chunk ID.
		require.NoError(t, store.Upsert(ctx, entries))

		ids, err := store.ListIDs(ctx)
		require.NoError(t, err)
		assert.Len(t, ids, 2)

		matches, err := store.Query(ctx, testVector(1536, 1), 10, index.Filter{})
		require.NoError(t, err)
		require.Len(t, matches, 2)
		// The identical vector comes first with distance ~0.
		assert.Equal(t, chunks[0].ID, matches[0].ChunkID)
		assert.InDelta(t, 0.0, matches[0].Distance, 1e-6)
		assert.Greater(t, matches[1].Distance, matches[0].Distance)
	})

	t.Run("query filters by document ids", func(t *testing.T) {
		matches, err := store.Query(ctx, testVector(1536, 1), 10, index.Filter{
			DocumentIDs: []uuid.UUID{uuid.New()},
		})
		require.NoError(t, err)
		assert.Empty(t, matches)

		matches, err = store.Query(ctx, testVector(1536, 1), 10, index.Filter{
			DocumentIDs: []uuid.UUID{doc.ID},
		})
		require.NoError(t, err)
		assert.Len(t, matches, 2)
	})

	t.Run("get metadata", func(t *testing.T) {
		opt, err := store.GetMetadata(ctx, chunks[1].ID)
		require.NoError(t, err)
		metadata := opt.MustGet()
		assert.Equal(t, document.ModalityCode, metadata.Modality)
		require.NotNil(t, metadata.Language)
		assert.Equal(t, "python", *metadata.Language)

		missing, err := store.GetMetadata(ctx, "nope")
		require.NoError(t, err)
		assert.True(t, missing.IsAbsent())
	})

	t.Run("mark failed", func(t *testing.T) {
		failedDoc := document.Document{
			ID:        uuid.New(),
			Filename:  "broken.pdf",
			Type:      document.TypePDF,
			CreatedAt: time.Now().UTC(),
		}
		require.NoError(t, repo.CreateDocument(ctx, failedDoc))
		require.NoError(t, repo.MarkDocumentFailed(ctx, failedDoc.ID, "corrupt file"))

		opt, err := repo.GetDocument(ctx, failedDoc.ID)
		require.NoError(t, err)
		got := opt.MustGet()
		require.NotNil(t, got.Error)
		assert.Equal(t, "corrupt file", *got.Error)
	})

	t.Run("delete cascades", func(t *testing.T) {
		require.NoError(t, store.DeleteDocument(ctx, doc.ID))
		require.NoError(t, repo.DeleteDocument(ctx, doc.ID))

		remaining, err := repo.ListChunksByDocument(ctx, doc.ID)
		require.NoError(t, err)
		assert.Empty(t, remaining)

		ids, err := store.ListIDs(ctx)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})
}
