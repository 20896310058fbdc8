package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/jinford/doc-rag/internal/core/document"
)

// TextEmbedder はテキストをベクトルに変換するインターフェース
type TextEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// Dimension は生成されるベクトルの次元数を返す
	Dimension() int
}

// ImageEmbedder は画像を直接ベクトルに変換するインターフェース
// 実装が構成されていない場合、ディスパッチャはOCRテキスト経由にフォールバックする
type ImageEmbedder interface {
	EmbedImage(ctx context.Context, imagePath string) ([]float32, error)
	Dimension() int
}

// OCRClient は画像からテキストを読み取るインターフェース
type OCRClient interface {
	ExtractText(ctx context.Context, imagePath string) (string, error)
}

// Dispatcher はチャンクのモダリティに応じてEmbedding戦略を振り分ける
// Embedding失敗はパイプラインを止めず、ゼロベクトルに縮退してログに残す
type Dispatcher struct {
	text   TextEmbedder
	image  ImageEmbedder
	ocr    OCRClient
	logger *slog.Logger
}

// DispatcherOption は Dispatcher の生成オプション
type DispatcherOption func(*Dispatcher)

// WithImageEmbedder は画像専用のEmbedderを設定する
func WithImageEmbedder(image ImageEmbedder) DispatcherOption {
	return func(d *Dispatcher) {
		d.image = image
	}
}

// WithOCRClient は画像フォールバック用のOCRクライアントを設定する
func WithOCRClient(ocr OCRClient) DispatcherOption {
	return func(d *Dispatcher) {
		d.ocr = ocr
	}
}

// WithDispatcherLogger はロガーを設定する
func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// NewDispatcher は Dispatcher を生成する
func NewDispatcher(text TextEmbedder, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		text:   text,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Embed はチャンクのモダリティに応じたベクトルを生成する
// いかなる失敗でもエラーは返さず、ゼロベクトルを返して処理を継続させる
func (d *Dispatcher) Embed(ctx context.Context, chunk document.Chunk) []float32 {
	switch chunk.Modality {
	case document.ModalityText:
		return d.embedText(ctx, chunk.Content)
	case document.ModalityImage:
		return d.embedImage(ctx, chunk)
	case document.ModalityCode:
		return d.embedText(ctx, composeCode(chunk))
	default:
		d.logger.Warn("未知のモダリティのためゼロベクトルを返します", slog.String("modality", string(chunk.Modality)))
		return d.zeroVector()
	}
}

// EmbedQuery は検索クエリのベクトルを生成する
func (d *Dispatcher) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vector, err := d.text.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("クエリのEmbedding生成に失敗: %w", err)
	}
	return vector, nil
}

func (d *Dispatcher) embedText(ctx context.Context, text string) []float32 {
	if text == "" {
		return d.zeroVector()
	}

	vector, err := d.text.Embed(ctx, text)
	if err != nil {
		d.logger.Error("テキストのEmbedding生成に失敗しました", slog.String("error", err.Error()))
		return d.zeroVector()
	}
	return vector
}

func (d *Dispatcher) embedImage(ctx context.Context, chunk document.Chunk) []float32 {
	path := ""
	if chunk.ImagePath != nil {
		path = *chunk.ImagePath
	}
	if path == "" {
		return d.zeroVector()
	}
	if _, err := os.Stat(path); err != nil {
		d.logger.Error("画像ファイルが見つかりません", slog.String("path", path))
		return d.zeroVector()
	}

	if d.image != nil {
		vector, err := d.image.EmbedImage(ctx, path)
		if err != nil {
			d.logger.Error("画像のEmbedding生成に失敗しました",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
			return d.zeroVector()
		}
		return vector
	}

	// 画像Embedderがない場合はOCRテキスト経由でテキストEmbeddingにフォールバックする
	text := chunk.Content
	if text == "" && d.ocr != nil {
		extracted, err := d.ocr.ExtractText(ctx, path)
		if err != nil {
			d.logger.Error("画像のOCRに失敗しました",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
			return d.zeroVector()
		}
		text = extracted
	}

	return d.embedText(ctx, text)
}

// composeCode はコードチャンクをEmbedding用の合成テキストに変換する
func composeCode(chunk document.Chunk) string {
	if chunk.Content == "" {
		return ""
	}

	language := "unknown"
	if chunk.Language != nil && *chunk.Language != "" {
		language = *chunk.Language
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Language: %s\n", language))
	if len(chunk.Functions) > 0 {
		sb.WriteString(fmt.Sprintf("Functions: %s\n\n", strings.Join(chunk.Functions, ", ")))
	}
	sb.WriteString(chunk.Content)

	return sb.String()
}

func (d *Dispatcher) zeroVector() []float32 {
	return make([]float32, d.text.Dimension())
}
