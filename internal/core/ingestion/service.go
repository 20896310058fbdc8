package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/jinford/doc-rag/internal/core/document"
	"github.com/jinford/doc-rag/internal/core/extract"
	"github.com/jinford/doc-rag/internal/core/index"
)

// Embedder はチャンクのベクトル化を行うインターフェース
// 失敗時はゼロベクトルを返す実装が前提であり、エラーは返さない
type Embedder interface {
	Embed(ctx context.Context, chunk document.Chunk) []float32
}

// Service はドキュメント取り込みのユースケースを提供する
type Service struct {
	repository     Repository
	store          index.Store
	embedder       Embedder
	segmenter      *Segmenter
	imageExtractor extract.ImageExtractor // オプショナル
	processedDir   string
	logger         *slog.Logger
}

type serviceOptions struct {
	segmenter      *Segmenter
	imageExtractor extract.ImageExtractor
	logger         *slog.Logger
}

// ServiceOption は Service のオプション設定
type ServiceOption func(*serviceOptions)

// WithSegmenter はテキスト分割の設定を差し替える
func WithSegmenter(segmenter *Segmenter) ServiceOption {
	return func(o *serviceOptions) {
		o.segmenter = segmenter
	}
}

// WithImageExtractor は画像抽出・OCRの実装を設定する
func WithImageExtractor(extractor extract.ImageExtractor) ServiceOption {
	return func(o *serviceOptions) {
		o.imageExtractor = extractor
	}
}

// WithIngestLogger は Service にロガーを設定する
func WithIngestLogger(logger *slog.Logger) ServiceOption {
	return func(o *serviceOptions) {
		o.logger = logger
	}
}

// NewService は Service を生成する
// processedDir は抽出画像などの派生物を保存するディレクトリ
func NewService(repository Repository, store index.Store, embedder Embedder, processedDir string, opts ...ServiceOption) *Service {
	options := &serviceOptions{
		segmenter: NewSegmenter(DefaultChunkSize, DefaultChunkOverlap),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Service{
		repository:     repository,
		store:          store,
		embedder:       embedder,
		segmenter:      options.segmenter,
		imageExtractor: options.imageExtractor,
		processedDir:   processedDir,
		logger:         options.logger,
	}
}

// Register はファイルを新規ドキュメントとして登録する
// 拡張子からドキュメント型を判定し、サポート外の場合はエラーを返す
// 取り込み処理自体はキュー経由で非同期に行われる
func (s *Service) Register(ctx context.Context, filePath string, metadata map[string]string) (document.Document, error) {
	filename := filepath.Base(filePath)

	docType, ok := document.TypeFromFilename(filename)
	if !ok {
		return document.Document{}, fmt.Errorf("サポート外のファイル形式です: %s", filename)
	}

	doc := document.Document{
		ID:        uuid.New(),
		Filename:  filename,
		Type:      docType,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}

	if err := s.repository.CreateDocument(ctx, doc); err != nil {
		return document.Document{}, fmt.Errorf("ドキュメントの登録に失敗: %w", err)
	}

	return doc, nil
}

// extracted は抽出ステージの出力
type extracted struct {
	textChunks []string
	images     []extract.ImageInfo
	snippets   []extract.CodeSnippet
}

// Process はドキュメントの内容を抽出・ベクトル化してインデックスに登録する
// 抽出の失敗はドキュメントにエラーとして記録し、それまでに得られた
// 部分的なチャンクは破棄せず保存する
func (s *Service) Process(ctx context.Context, doc document.Document, filePath string) error {
	s.logger.Info("ドキュメントの処理を開始します",
		slog.String("document_id", doc.ID.String()),
		slog.String("type", string(doc.Type)),
	)

	processedDir := filepath.Join(s.processedDir, doc.ID.String())
	if err := os.MkdirAll(processedDir, 0o755); err != nil {
		return s.fail(ctx, doc.ID, fmt.Errorf("作業ディレクトリの作成に失敗: %w", err))
	}

	content, extractErr := s.extractContent(ctx, doc.Type, filePath, processedDir)

	chunks := s.buildChunks(doc.ID, content)

	if len(chunks) > 0 {
		if err := s.repository.BatchCreateChunks(ctx, chunks); err != nil {
			return s.fail(ctx, doc.ID, fmt.Errorf("チャンクの保存に失敗: %w", err))
		}
		if err := s.indexChunks(ctx, chunks); err != nil {
			return s.fail(ctx, doc.ID, err)
		}
	}

	if extractErr != nil {
		// 部分的なチャンクは保存済みのまま、失敗として記録する
		return s.fail(ctx, doc.ID, fmt.Errorf("コンテンツの抽出に失敗: %w", extractErr))
	}

	if err := s.repository.MarkDocumentProcessed(ctx, doc.ID,
		len(content.textChunks), len(content.images), len(content.snippets)); err != nil {
		return fmt.Errorf("処理完了の記録に失敗: %w", err)
	}

	s.logger.Info("ドキュメントの処理が完了しました",
		slog.String("document_id", doc.ID.String()),
		slog.Int("text_chunks", len(content.textChunks)),
		slog.Int("images", len(content.images)),
		slog.Int("code_snippets", len(content.snippets)),
	)

	return nil
}

// Delete はドキュメントをメタデータとインデックスの両方から削除する
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("インデックスからの削除に失敗: %w", err)
	}
	if err := s.repository.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("ドキュメントの削除に失敗: %w", err)
	}
	return nil
}

// extractContent はドキュメント型に応じた抽出を行う
// 部分的に成功した結果とエラーの両方を返しうる
func (s *Service) extractContent(ctx context.Context, docType document.Type, filePath, processedDir string) (extracted, error) {
	var result extracted

	switch docType {
	case document.TypePDF:
		text, err := extract.PDFText(filePath)
		if err != nil {
			return result, err
		}
		result.textChunks = s.segmenter.Segment(text)

		if s.imageExtractor != nil {
			images, err := s.imageExtractor.ExtractFromPDF(ctx, filePath, processedDir)
			if err != nil {
				// 画像抽出の失敗はテキストチャンクを道連れにしない
				s.logger.Error("PDFからの画像抽出に失敗しました", slog.String("error", err.Error()))
			} else {
				result.images = images
			}
		}

	case document.TypeImage:
		if s.imageExtractor == nil {
			return result, fmt.Errorf("画像抽出が構成されていません")
		}
		info, err := s.imageExtractor.ProcessImage(ctx, filePath, processedDir)
		if err != nil {
			return result, err
		}
		result.images = []extract.ImageInfo{info}

	case document.TypeMarkdown:
		raw, err := os.ReadFile(filePath)
		if err != nil {
			return result, err
		}
		result.textChunks = s.segmenter.Segment(extract.MarkdownText(string(raw)))
		result.snippets = extract.CodeSnippets(string(raw))

	case document.TypeHTML:
		raw, err := os.ReadFile(filePath)
		if err != nil {
			return result, err
		}
		result.textChunks = s.segmenter.Segment(extract.HTMLText(string(raw)))
		result.snippets = extract.CodeSnippets(string(raw))

	case document.TypeText:
		raw, err := os.ReadFile(filePath)
		if err != nil {
			return result, err
		}
		result.textChunks = s.segmenter.Segment(string(raw))
		result.snippets = extract.CodeSnippets(string(raw))

	default:
		return result, fmt.Errorf("サポート外のドキュメント型です: %s", docType)
	}

	return result, nil
}

// buildChunks は抽出結果をモダリティごとの連番付きチャンクへ変換する
func (s *Service) buildChunks(documentID uuid.UUID, content extracted) []document.Chunk {
	var chunks []document.Chunk

	for i, text := range content.textChunks {
		// ページ番号は2チャンクで1ページ進む近似
		page := i/2 + 1
		chunks = append(chunks, document.Chunk{
			ID:         document.ChunkID(documentID, document.ModalityText, i),
			DocumentID: documentID,
			Modality:   document.ModalityText,
			Content:    text,
			PageNumber: &page,
		})
	}

	for i, image := range content.images {
		path := image.Path
		chunks = append(chunks, document.Chunk{
			ID:         document.ChunkID(documentID, document.ModalityImage, i),
			DocumentID: documentID,
			Modality:   document.ModalityImage,
			Content:    image.Text,
			PageNumber: image.PageNumber,
			ImagePath:  &path,
			IsDiagram:  image.IsDiagram,
		})
	}

	for i, snippet := range content.snippets {
		language := snippet.Language
		chunks = append(chunks, document.Chunk{
			ID:         document.ChunkID(documentID, document.ModalityCode, i),
			DocumentID: documentID,
			Modality:   document.ModalityCode,
			Content:    snippet.Content,
			Language:   &language,
			Functions:  snippet.Functions,
		})
	}

	return chunks
}

// indexChunks はチャンクをベクトル化してインデックスへ保存する
func (s *Service) indexChunks(ctx context.Context, chunks []document.Chunk) error {
	entries := make([]index.Entry, 0, len(chunks))
	for _, chunk := range chunks {
		vector := s.embedder.Embed(ctx, chunk)
		entries = append(entries, index.Entry{
			ChunkID: chunk.ID,
			Vector:  vector,
			Metadata: index.Metadata{
				DocumentID: chunk.DocumentID,
				Modality:   chunk.Modality,
				Content:    chunk.Content,
				PageNumber: chunk.PageNumber,
				Language:   chunk.Language,
				ImagePath:  chunk.ImagePath,
			},
		})
	}

	if err := s.store.Upsert(ctx, entries); err != nil {
		return fmt.Errorf("インデックスへの保存に失敗: %w", err)
	}
	return nil
}

// fail はドキュメントに失敗理由を記録して元のエラーを返す
func (s *Service) fail(ctx context.Context, id uuid.UUID, cause error) error {
	if err := s.repository.MarkDocumentFailed(ctx, id, cause.Error()); err != nil {
		s.logger.Error("失敗状態の記録に失敗しました",
			slog.String("document_id", id.String()),
			slog.String("error", err.Error()),
		)
	}
	return cause
}
