package answer

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/jinford/doc-rag/internal/core/document"
	"github.com/jinford/doc-rag/internal/core/retrieval"
)

func intPtr(n int) *int { return &n }

func strPtr(s string) *string { return &s }

func TestBuildContext_EmptyResults(t *testing.T) {
	assert.Equal(t, "No relevant information found.", BuildContext(nil, "anything"))
}

func TestBuildContext_TextRendering(t *testing.T) {
	docID := uuid.New()
	results := []retrieval.Result{
		{
			ChunkID:      document.ChunkID(docID, document.ModalityText, 0),
			DocumentID:   docID,
			DocumentName: "manual.pdf",
			Modality:     document.ModalityText,
			Content:      "Restart the service after upgrading.",
			PageNumber:   intPtr(2),
		},
	}

	got := BuildContext(results, "how to upgrade")

	assert.Contains(t, got, "Query: how to upgrade")
	assert.Contains(t, got, "Document: manual.pdf")
	assert.Contains(t, got, "Text (Page 2):\nRestart the service after upgrading.")
}

func TestBuildContext_PageOrderWithinDocument(t *testing.T) {
	docID := uuid.New()
	results := []retrieval.Result{
		{
			ChunkID:      document.ChunkID(docID, document.ModalityText, 4),
			DocumentID:   docID,
			DocumentName: "manual.pdf",
			Modality:     document.ModalityText,
			Content:      "later page",
			PageNumber:   intPtr(3),
		},
		{
			ChunkID:      document.ChunkID(docID, document.ModalityText, 0),
			DocumentID:   docID,
			DocumentName: "manual.pdf",
			Modality:     document.ModalityText,
			Content:      "earlier page",
			PageNumber:   intPtr(1),
		},
	}

	got := BuildContext(results, "q")

	// Within one document the page order wins over the ranked order.
	assert.Less(t, strings.Index(got, "earlier page"), strings.Index(got, "later page"))
}

func TestBuildContext_GroupsFollowRankedOrder(t *testing.T) {
	first := uuid.New()
	second := uuid.New()
	results := []retrieval.Result{
		{DocumentID: first, DocumentName: "alpha.md", Modality: document.ModalityText, Content: "from alpha"},
		{DocumentID: second, DocumentName: "beta.md", Modality: document.ModalityText, Content: "from beta"},
		{DocumentID: first, DocumentName: "alpha.md", Modality: document.ModalityText, Content: "more alpha"},
	}

	got := BuildContext(results, "q")

	assert.Less(t, strings.Index(got, "Document: alpha.md"), strings.Index(got, "Document: beta.md"))
	// The second alpha chunk stays inside the alpha group.
	assert.Less(t, strings.Index(got, "more alpha"), strings.Index(got, "Document: beta.md"))
}

func TestBuildContext_ImageAndCodeRendering(t *testing.T) {
	docID := uuid.New()
	results := []retrieval.Result{
		{
			DocumentID:   docID,
			DocumentName: "mixed.pdf",
			Modality:     document.ModalityImage,
			Content:      "",
			ImagePath:    strPtr("/data/img.png"),
			PageNumber:   intPtr(4),
		},
		{
			DocumentID:   docID,
			DocumentName: "mixed.pdf",
			Modality:     document.ModalityImage,
			Content:      "ocr text here",
			ImagePath:    strPtr("/data/img2.png"),
		},
		{
			DocumentID:   docID,
			DocumentName: "mixed.pdf",
			Modality:     document.ModalityCode,
			Content:      "print('hi')",
			Language:     strPtr("python"),
		},
	}

	got := BuildContext(results, "q")

	assert.Contains(t, got, "Image (Page 4): [Image at /data/img.png]")
	assert.Contains(t, got, "Image text:\nocr text here")
	assert.Contains(t, got, "Code (python):\nprint('hi')")
}

func TestBuildContext_Deterministic(t *testing.T) {
	docID := uuid.New()
	results := []retrieval.Result{
		{DocumentID: docID, DocumentName: "a.md", Modality: document.ModalityText, Content: "one", PageNumber: intPtr(1)},
		{DocumentID: docID, DocumentName: "a.md", Modality: document.ModalityText, Content: "two", PageNumber: intPtr(1)},
	}

	assert.Equal(t, BuildContext(results, "q"), BuildContext(results, "q"))
}
