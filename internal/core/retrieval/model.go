package retrieval

import (
	"github.com/google/uuid"

	"github.com/jinford/doc-rag/internal/core/document"
)

const (
	// DefaultMaxResults は検索結果数のデフォルト値
	DefaultMaxResults = 5
	// MaxResultsLimit は検索結果数の上限
	MaxResultsLimit = 20
)

// Params は検索リクエストのパラメータを表す
type Params struct {
	Query string
	// DocumentIDs が非空の場合、検索対象を限定する
	DocumentIDs []uuid.UUID
	// IncludeImages が false の場合、画像チャンクを結果から除外する
	IncludeImages bool
	// MaxResults は返却する結果数（1〜20 に丸められ、0 はデフォルト扱い）
	MaxResults int
}

// Result は検索結果の1件を表す
// Confidence はハイブリッドランキング適用後の値
type Result struct {
	ChunkID      string            `json:"chunkID"`
	DocumentID   uuid.UUID         `json:"documentID"`
	DocumentName string            `json:"documentName"`
	Modality     document.Modality `json:"modality"`
	Content      string            `json:"content"`
	PageNumber   *int              `json:"pageNumber,omitempty"`
	Confidence   float64           `json:"confidence"`

	// モダリティ固有の付加情報
	ImagePath *string `json:"imagePath,omitempty"`
	Language  *string `json:"language,omitempty"`
}

// clampMaxResults は結果数を有効範囲に丸める
func clampMaxResults(n int) int {
	if n <= 0 {
		return DefaultMaxResults
	}
	if n > MaxResultsLimit {
		return MaxResultsLimit
	}
	return n
}
