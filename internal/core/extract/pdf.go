package extract

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFText はPDFファイルから全ページのテキストを抽出する
// ページ境界は空行で区切られ、後段のセグメンタがそのまま段落境界として扱える
func PDFText(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// 壊れたページは読み飛ばし、残りのページから抽出を続ける
			continue
		}

		sb.WriteString(text)
		sb.WriteString("\n\n")
	}

	return sb.String(), nil
}
