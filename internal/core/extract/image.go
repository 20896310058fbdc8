package extract

import "context"

// ImageInfo は抽出された1画像の情報を表す
// Text はOCRで得られたテキストであり、取得できない場合は空文字列
type ImageInfo struct {
	Path       string
	PageNumber *int
	Text       string
	IsDiagram  bool
}

// ImageExtractor は画像の取り出しとOCRを行うインターフェース
// OCRや図判定の具体的な実装はインフラ層が提供する
type ImageExtractor interface {
	// ExtractFromPDF はPDF内の画像を outputDir に保存して情報を返す
	ExtractFromPDF(ctx context.Context, pdfPath string, outputDir string) ([]ImageInfo, error)

	// ProcessImage は単一の画像ファイルを処理する
	ProcessImage(ctx context.Context, imagePath string, outputDir string) (ImageInfo, error)
}
