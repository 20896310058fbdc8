package retrieval

import (
	"sort"
	"strings"
)

const (
	// minKeywordLength はキーワードとして扱う最小文字数
	minKeywordLength = 4
	// keywordBoostStep はキーワード1語あたりの確信度ブースト
	keywordBoostStep = 0.05
	// maxKeywordBoost はキーワードブーストの上限
	maxKeywordBoost = 0.2
	// maxConfidence はブースト後の確信度の上限
	maxConfidence = 0.99
)

// Rerank はベクトル検索の結果をキーワード一致でブーストして並べ直す
// クエリからキーワードが得られない場合は元の順序をそのまま返す
// 同点の結果の相対順序は保たれる
func Rerank(query string, results []Result) []Result {
	keywords := extractKeywords(query)
	if len(keywords) == 0 {
		return results
	}

	for i := range results {
		content := strings.ToLower(results[i].Content)

		matches := 0
		for _, keyword := range keywords {
			if strings.Contains(content, keyword) {
				matches++
			}
		}

		if matches > 0 {
			boost := keywordBoostStep * float64(matches)
			if boost > maxKeywordBoost {
				boost = maxKeywordBoost
			}
			confidence := results[i].Confidence + boost
			if confidence > maxConfidence {
				confidence = maxConfidence
			}
			results[i].Confidence = confidence
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Confidence > results[j].Confidence
	})

	return results
}

// extractKeywords はクエリから照合用キーワードを抽出する
// 小文字化した空白区切りトークンから前後の記号を取り除き、4文字以上のものを残す
func extractKeywords(query string) []string {
	var keywords []string
	for _, token := range strings.Fields(strings.ToLower(query)) {
		token = strings.Trim(token, ".,!?:;\"'()[]{}")
		if len(token) >= minKeywordLength {
			keywords = append(keywords, token)
		}
	}
	return keywords
}
