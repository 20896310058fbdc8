package index

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/samber/mo"

	"github.com/jinford/doc-rag/internal/core/document"
)

// ErrUnavailable はインデックスストアに到達できない場合のエラー
// 呼び出し側はこのエラー種別を区別して「コンテキストなし」へ縮退できる
var ErrUnavailable = errors.New("index store unavailable")

// Metadata はベクトルに紐づくチャンクメタデータを表す
type Metadata struct {
	DocumentID uuid.UUID
	Modality   document.Modality
	Content    string
	PageNumber *int
	Language   *string
	ImagePath  *string
}

// Entry はインデックスへの書き込み単位を表す
type Entry struct {
	ChunkID  string
	Vector   []float32
	Metadata Metadata
}

// Match は近傍検索の1件の結果を表す
// Distance から確信度への変換はストアではなく検索側の責務
type Match struct {
	ChunkID  string
	Metadata Metadata
	Distance float64
}

// Filter は近傍検索の絞り込み条件を表す
type Filter struct {
	// DocumentIDs が非空の場合、対象ドキュメントを限定する
	DocumentIDs []uuid.UUID
	// ExcludeImages が true の場合、画像モダリティを除外する
	ExcludeImages bool
}

// Store はベクトルインデックスの永続化と近傍検索のインターフェース
// チャンクID単位の last-writer-wins で十分であり、横断的なトランザクション保証は要求しない
type Store interface {
	// Upsert はベクトルとメタデータを保存する（同一IDは上書き）
	Upsert(ctx context.Context, entries []Entry) error

	// Query はクエリベクトルに近い順に最大 topK 件を返す
	Query(ctx context.Context, vector []float32, topK int, filter Filter) ([]Match, error)

	// GetMetadata はチャンクIDからメタデータを取得する
	GetMetadata(ctx context.Context, chunkID string) (mo.Option[Metadata], error)

	// ListIDs は登録済みの全チャンクIDを返す
	ListIDs(ctx context.Context) ([]string, error)

	// DeleteDocument はドキュメント配下の全エントリを削除する
	DeleteDocument(ctx context.Context, documentID uuid.UUID) error
}
