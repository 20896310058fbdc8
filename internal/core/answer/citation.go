package answer

import (
	"regexp"
	"strconv"

	"github.com/google/uuid"

	"github.com/jinford/doc-rag/internal/core/document"
	"github.com/jinford/doc-rag/internal/core/retrieval"
)

// Citation は回答の根拠となった検索結果への参照を表す
type Citation struct {
	DocumentID   uuid.UUID `json:"documentID"`
	DocumentName string    `json:"documentName"`
	Text         string    `json:"text,omitempty"`
	ImageURL     *string   `json:"imageURL,omitempty"`
	PageNumber   *int      `json:"pageNumber,omitempty"`
	Confidence   float64   `json:"confidence"`
}

// citationPattern は回答中の引用マーカー [DOC_X] にマッチする
var citationPattern = regexp.MustCompile(`\[DOC_(\d+)\]`)

// ExtractCitations は回答中の引用マーカーを検索結果に対応づける
// マーカーは1始まりで results を指し、範囲外のものは黙って読み飛ばす
// 重複は (ドキュメントID, テキスト) の組で初出のみ残す
// マーカーがひとつもなく結果が空でない場合は先頭の結果から1件合成する
func ExtractCitations(response string, results []retrieval.Result) []Citation {
	var citations []Citation

	seen := make(map[citationKey]struct{})
	for _, match := range citationPattern.FindAllStringSubmatch(response, -1) {
		idx, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		idx--
		if idx < 0 || idx >= len(results) {
			continue
		}

		citation := citationFromResult(results[idx])
		key := citationKey{documentID: citation.DocumentID, text: citation.Text}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		citations = append(citations, citation)
	}

	if len(citations) == 0 && len(results) > 0 {
		citations = append(citations, citationFromResult(results[0]))
	}

	return citations
}

type citationKey struct {
	documentID uuid.UUID
	text       string
}

func citationFromResult(result retrieval.Result) Citation {
	citation := Citation{
		DocumentID:   result.DocumentID,
		DocumentName: result.DocumentName,
		Text:         result.Content,
		PageNumber:   result.PageNumber,
		Confidence:   result.Confidence,
	}
	if result.Modality == document.ModalityImage {
		citation.ImageURL = result.ImagePath
	}
	return citation
}
