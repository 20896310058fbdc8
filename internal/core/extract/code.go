package extract

import (
	"regexp"
	"strings"

	"github.com/go-enry/go-enry/v2"
)

// CodeSnippet は抽出・解析済みのコード片を表す
type CodeSnippet struct {
	Content   string
	Language  string
	Functions []string
}

var (
	markdownCodePattern = regexp.MustCompile("(?s)```(?:\\w+)?\n(.*?)```")
	indentedCodePattern = regexp.MustCompile(`(?:^|\n)( {4,}[^\n]+(?:\n {4,}[^\n]+)*)`)
	htmlCodePattern     = regexp.MustCompile(`(?s)<(?:code|pre)>(.*?)</(?:code|pre)>`)
)

// CodeSnippets はテキストからコード片を抽出し、言語判定と関数名抽出を行う
// Markdownのフェンス、4スペース以上のインデントブロック、HTMLの code/pre タグを対象とし、
// 短すぎるものやコードらしくないものは除外する
func CodeSnippets(text string) []CodeSnippet {
	var raw []string
	for _, m := range markdownCodePattern.FindAllStringSubmatch(text, -1) {
		raw = append(raw, m[1])
	}
	for _, m := range indentedCodePattern.FindAllStringSubmatch(text, -1) {
		raw = append(raw, m[1])
	}
	for _, m := range htmlCodePattern.FindAllStringSubmatch(text, -1) {
		raw = append(raw, m[1])
	}

	var snippets []CodeSnippet
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if len(s) <= 10 || !looksLikeCode(s) {
			continue
		}

		lang := DetectLanguage(s)
		snippets = append(snippets, CodeSnippet{
			Content:   s,
			Language:  lang,
			Functions: extractFunctions(s, lang),
		})
	}

	return snippets
}

var codeIndicators = []string{
	"=", "==", "===", "!=", "<", ">", "<=", ">=",
	"if", "else", "for", "while", "def", "function", "class",
	"{", "}", "(", ")", "[", "]",
	";", "import", "from", "return", "const", "var", "let",
}

// looksLikeCode はテキストがコードらしいかを判定する
// 指標トークンが3つ以上含まれるか、過半数の行がインデントされていればコードとみなす
func looksLikeCode(text string) bool {
	count := 0
	for _, indicator := range codeIndicators {
		if strings.Contains(text, indicator) {
			count++
		}
	}
	if count >= 3 {
		return true
	}

	lines := strings.Split(text, "\n")
	if len(lines) <= 3 {
		return false
	}
	indented := 0
	for _, line := range lines {
		if strings.HasPrefix(line, "  ") || strings.HasPrefix(line, "\t") {
			indented++
		}
	}
	return float64(indented)/float64(len(lines)) > 0.5
}

// classifierCandidates は分類器に渡す言語の候補
// 検索対象ドキュメントに現れやすい言語に限定して誤判定を抑える
var classifierCandidates = []string{
	"Go", "Python", "JavaScript", "TypeScript", "Java",
	"C", "C++", "C#", "Ruby", "PHP", "Rust", "Shell", "SQL", "HTML",
}

// DetectLanguage はコード片のプログラミング言語を判定する
// 分類器で確信が得られない場合はキーワードベースの推定にフォールバックし、
// それでも判定できなければ "unknown" を返す
func DetectLanguage(code string) string {
	if lang, safe := enry.GetLanguageByClassifier([]byte(code), classifierCandidates); safe {
		return strings.ToLower(lang)
	}

	switch {
	case strings.Contains(code, "def ") && strings.Contains(code, ":") &&
		(strings.Contains(code, "self") || strings.Contains(code, "import ")):
		return "python"
	case strings.Contains(code, "function ") && strings.Contains(code, "{") && strings.Contains(code, "}"):
		return "javascript"
	case strings.Contains(code, "func ") && strings.Contains(code, "{") && strings.Contains(code, "}"):
		return "go"
	case strings.Contains(code, "public class ") || strings.Contains(code, "private void "):
		return "java"
	case strings.Contains(code, "#include <") && strings.Contains(code, "int main"):
		return "c++"
	case strings.Contains(code, "<html") && strings.Contains(code, "</html>"):
		return "html"
	default:
		return "unknown"
	}
}

var (
	pythonFuncPattern = regexp.MustCompile(`def\s+([a-zA-Z_][a-zA-Z0-9_]*)\s*\(`)
	goFuncPattern     = regexp.MustCompile(`func\s+(?:\([^)]+\)\s+)?([a-zA-Z_][a-zA-Z0-9_]*)\s*\(`)
	jsFuncPattern     = regexp.MustCompile(`function\s+([a-zA-Z_][a-zA-Z0-9_]*)\s*\(`)
	jsArrowPattern    = regexp.MustCompile(`(?:const|let|var)?\s*([a-zA-Z_][a-zA-Z0-9_]*)\s*=\s*\([^)]*\)\s*=>`)
	cFamilyPattern    = regexp.MustCompile(`(?:public|private|protected|static|\s)+[\w<>\[\]]+\s+([a-zA-Z_][a-zA-Z0-9_]*)\s*\([^)]*\)\s*(?:\{|throws)`)
)

// extractFunctions は言語ごとのパターンで関数・メソッド名を抽出する
func extractFunctions(code, language string) []string {
	var functions []string

	appendMatches := func(pattern *regexp.Regexp) {
		for _, m := range pattern.FindAllStringSubmatch(code, -1) {
			functions = append(functions, m[1])
		}
	}

	switch language {
	case "python":
		appendMatches(pythonFuncPattern)
	case "go":
		appendMatches(goFuncPattern)
	case "javascript", "typescript":
		appendMatches(jsFuncPattern)
		appendMatches(jsArrowPattern)
	case "java", "c++", "c#":
		appendMatches(cFamilyPattern)
	}

	return functions
}
