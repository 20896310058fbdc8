package extract

import (
	"regexp"
	"strings"
)

var (
	fencedCodeBlock = regexp.MustCompile("(?s)```[^`]*```")
	inlineCode      = regexp.MustCompile("`[^`]+`")
	mdImage         = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	mdLink          = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	mdHeading       = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	mdEmphasis      = regexp.MustCompile(`(\*{1,3}|_{1,3})([^*_]+)(\*{1,3}|_{1,3})`)
	mdBlockquote    = regexp.MustCompile(`(?m)^>\s*`)
	mdHorizontal    = regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`)
	mdListMarker    = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	mdNumberedList  = regexp.MustCompile(`(?m)^\s*\d+\.\s+`)
)

// MarkdownText はMarkdown文書から装飾記法を除去して本文テキストを抽出する
// コードブロックは本文から除かれ、コード抽出は元の内容に対して別途行う
func MarkdownText(content string) string {
	content = fencedCodeBlock.ReplaceAllString(content, "")
	content = inlineCode.ReplaceAllString(content, "")
	content = mdImage.ReplaceAllString(content, "")
	content = mdLink.ReplaceAllString(content, "$1")
	content = mdHeading.ReplaceAllString(content, "")
	content = mdEmphasis.ReplaceAllString(content, "$2")
	content = mdBlockquote.ReplaceAllString(content, "")
	content = mdHorizontal.ReplaceAllString(content, "")
	content = mdListMarker.ReplaceAllString(content, "")
	content = mdNumberedList.ReplaceAllString(content, "")

	content = multiNewlines.ReplaceAllString(content, "\n\n")

	return strings.TrimSpace(content)
}
