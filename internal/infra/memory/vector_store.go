package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/mo"

	"github.com/jinford/doc-rag/internal/core/document"
	"github.com/jinford/doc-rag/internal/core/index"
)

// VectorStore は index.Store の線形走査によるインメモリ実装
// 距離はコサイン距離（1 - コサイン類似度）で、pgvector の <=> と揃えている
type VectorStore struct {
	mu      sync.RWMutex
	entries map[string]index.Entry
}

// NewVectorStore は空の VectorStore を生成する
func NewVectorStore() *VectorStore {
	return &VectorStore{
		entries: make(map[string]index.Entry),
	}
}

// コンパイル時の型チェック
var _ index.Store = (*VectorStore)(nil)

func (s *VectorStore) Upsert(_ context.Context, entries []index.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range entries {
		s.entries[entry.ChunkID] = entry
	}
	return nil
}

func (s *VectorStore) Query(_ context.Context, vector []float32, topK int, filter index.Filter) ([]index.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []index.Match
	for _, entry := range s.entries {
		if !matchesFilter(entry, filter) {
			continue
		}
		matches = append(matches, index.Match{
			ChunkID:  entry.ChunkID,
			Metadata: entry.Metadata,
			Distance: cosineDistance(vector, entry.Vector),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].ChunkID < matches[j].ChunkID
	})

	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (s *VectorStore) GetMetadata(_ context.Context, chunkID string) (mo.Option[index.Metadata], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[chunkID]
	if !ok {
		return mo.None[index.Metadata](), nil
	}
	return mo.Some(entry.Metadata), nil
}

func (s *VectorStore) ListIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *VectorStore) DeleteDocument(_ context.Context, documentID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for chunkID, entry := range s.entries {
		if entry.Metadata.DocumentID == documentID {
			delete(s.entries, chunkID)
		}
	}
	return nil
}

func matchesFilter(entry index.Entry, filter index.Filter) bool {
	if filter.ExcludeImages && entry.Metadata.Modality == document.ModalityImage {
		return false
	}
	if len(filter.DocumentIDs) == 0 {
		return true
	}
	for _, id := range filter.DocumentIDs {
		if entry.Metadata.DocumentID == id {
			return true
		}
	}
	return false
}

// cosineDistance は 1 - コサイン類似度を返す
// ゼロベクトル同士は比較できないため最大距離の 1 とする
func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) {
		return 1
	}

	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}
