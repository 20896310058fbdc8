package answer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/jinford/doc-rag/internal/core/document"
	"github.com/jinford/doc-rag/internal/core/retrieval"
)

// noContextSentinel は検索結果が空の場合のコンテキスト文字列
const noContextSentinel = "No relevant information found."

// TokenCounter はトークン数の計測と切り詰めを行うインターフェース
type TokenCounter interface {
	CountTokens(text string) int
	// Trim は maxTokens を超える部分を末尾から切り詰める
	Trim(text string, maxTokens int) string
}

// BuildContext は検索結果からLLM用のコンテキスト文字列を組み立てる
// ドキュメント単位にグループ化し（出現順）、グループ内はページ番号と
// チャンクIDで安定的に並べる。同一入力からは常に同一の文字列が得られる
func BuildContext(results []retrieval.Result, query string) string {
	if len(results) == 0 {
		return noContextSentinel
	}

	var order []uuid.UUID
	grouped := make(map[uuid.UUID][]retrieval.Result)
	for _, result := range results {
		if _, seen := grouped[result.DocumentID]; !seen {
			order = append(order, result.DocumentID)
		}
		grouped[result.DocumentID] = append(grouped[result.DocumentID], result)
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("Query: %s\n\n", query))

	for _, documentID := range order {
		docResults := grouped[documentID]
		parts = append(parts, fmt.Sprintf("Document: %s\n", docResults[0].DocumentName))

		sort.SliceStable(docResults, func(i, j int) bool {
			pi, pj := pageOrMax(docResults[i]), pageOrMax(docResults[j])
			if pi != pj {
				return pi < pj
			}
			return docResults[i].ChunkID < docResults[j].ChunkID
		})

		for _, result := range docResults {
			parts = append(parts, renderResult(result))
		}

		parts = append(parts, "\n")
	}

	return strings.Join(parts, "\n")
}

// renderResult は1件の検索結果をモダリティに応じた形式で整形する
func renderResult(result retrieval.Result) string {
	pageInfo := ""
	if result.PageNumber != nil {
		pageInfo = fmt.Sprintf(" (Page %d)", *result.PageNumber)
	}

	switch result.Modality {
	case document.ModalityImage:
		if result.Content != "" {
			return fmt.Sprintf("Image%s text:\n%s\n", pageInfo, result.Content)
		}
		imagePath := ""
		if result.ImagePath != nil {
			imagePath = *result.ImagePath
		}
		return fmt.Sprintf("Image%s: [Image at %s]\n", pageInfo, imagePath)

	case document.ModalityCode:
		language := "unknown"
		if result.Language != nil && *result.Language != "" {
			language = *result.Language
		}
		return fmt.Sprintf("Code (%s):\n%s\n", language, result.Content)

	default:
		return fmt.Sprintf("Text%s:\n%s\n", pageInfo, result.Content)
	}
}

func pageOrMax(result retrieval.Result) int {
	if result.PageNumber == nil {
		return 9999
	}
	return *result.PageNumber
}
