package extract

import (
	"html"
	"regexp"
	"strings"
)

var (
	scriptTag     = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTag      = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	noscriptTag   = regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`)
	headTag       = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
	htmlComments  = regexp.MustCompile(`(?s)<!--.*?-->`)
	openBlockTag  = regexp.MustCompile(`(?i)<(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)[^>]*>`)
	closeBlockTag = regexp.MustCompile(`(?i)</(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)>`)
	brTag         = regexp.MustCompile(`(?i)<(br|hr)\s*/?>`)
	anyTag        = regexp.MustCompile(`<[^>]+>`)
	multiSpaces   = regexp.MustCompile(`[ \t]+`)
	multiNewlines = regexp.MustCompile(`\n{3,}`)
)

// HTMLText はHTML文書からタグを除去して本文テキストを抽出する
// ブロック要素の境界は空行に変換され、段落構造が維持される
func HTMLText(content string) string {
	content = scriptTag.ReplaceAllString(content, "")
	content = styleTag.ReplaceAllString(content, "")
	content = noscriptTag.ReplaceAllString(content, "")
	content = headTag.ReplaceAllString(content, "")
	content = htmlComments.ReplaceAllString(content, "")

	// ブロック要素の開閉を改行に置き換えてから残りのタグを落とす
	content = openBlockTag.ReplaceAllString(content, "\n\n")
	content = closeBlockTag.ReplaceAllString(content, "\n\n")
	content = brTag.ReplaceAllString(content, "\n")
	content = anyTag.ReplaceAllString(content, "")

	content = html.UnescapeString(content)
	content = multiSpaces.ReplaceAllString(content, " ")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	content = strings.Join(lines, "\n")
	content = multiNewlines.ReplaceAllString(content, "\n\n")

	return strings.TrimSpace(content)
}
