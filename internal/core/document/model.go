package document

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Type はドキュメントの宣言型を表す
type Type string

const (
	TypePDF      Type = "pdf"
	TypeImage    Type = "image"
	TypeMarkdown Type = "markdown"
	TypeHTML     Type = "html"
	TypeText     Type = "text"
)

// Modality はチャンクのコンテンツ種別を表す
// Embedding戦略とコンテキスト整形の分岐はこの閉じた集合に基づく
type Modality string

const (
	ModalityText  Modality = "text"
	ModalityImage Modality = "image"
	ModalityCode  Modality = "code"
)

// Document は取り込まれた1ドキュメントを表す
// チャンク数とエラーは処理完了後にのみ書き込まれる
type Document struct {
	ID        uuid.UUID         `json:"documentID"`
	Filename  string            `json:"filename"`
	Type      Type              `json:"documentType"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`

	// 処理完了後に確定する派生情報
	TextChunks  int        `json:"numTextChunks"`
	ImageChunks int        `json:"numImages"`
	CodeChunks  int        `json:"numCodeSnippets"`
	Error       *string    `json:"error,omitempty"`
	ProcessedAt *time.Time `json:"processedAt,omitempty"`
}

// Chunk は検索可能な最小単位を表す
// ID はドキュメント内で安定・一意であり、再処理時は編集ではなく置換される
type Chunk struct {
	ID         string    `json:"chunkID"`
	DocumentID uuid.UUID `json:"documentID"`
	Modality   Modality  `json:"modality"`
	Content    string    `json:"content"`
	PageNumber *int      `json:"pageNumber,omitempty"`

	// コード専用
	Language  *string  `json:"language,omitempty"`
	Functions []string `json:"functions,omitempty"`

	// 画像専用
	ImagePath *string `json:"imagePath,omitempty"`
	IsDiagram bool    `json:"isDiagram,omitempty"`
}

// ChunkID はチャンクの安定IDを生成する
// 形式: {document_id}_{modality}_{sequence_index}
func ChunkID(documentID uuid.UUID, modality Modality, seq int) string {
	return fmt.Sprintf("%s_%s_%d", documentID, modality, seq)
}

// imageExtensions は画像として扱う拡張子のセット
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
}

// TypeFromFilename はファイル名の拡張子からドキュメント型を判定する
// サポート外の拡張子の場合は ok=false を返す
func TypeFromFilename(filename string) (Type, bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch {
	case ext == ".pdf":
		return TypePDF, true
	case imageExtensions[ext]:
		return TypeImage, true
	case ext == ".md" || ext == ".markdown":
		return TypeMarkdown, true
	case ext == ".html" || ext == ".htm":
		return TypeHTML, true
	case ext == ".txt":
		return TypeText, true
	default:
		return "", false
	}
}
