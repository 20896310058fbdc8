package answer

import (
	"fmt"
	"strings"
)

// BuildSystemPrompt は質問応答用のシステムプロンプトを構築する
// 引用マーカー [DOC_X] の出力を指示し、回答後の引用抽出と対応させる
func BuildSystemPrompt(hasImages bool) string {
	var sb strings.Builder

	sb.WriteString("あなたは提供されたコンテキストに基づいて質問に回答するアシスタントです。\n")
	sb.WriteString("以下のルールに従ってください。\n")
	sb.WriteString("1. 提供されたコンテキストに含まれる情報のみを使用して回答すること\n")
	sb.WriteString("2. コンテキストに関連情報がない場合は \"I don't have enough information to answer this question.\" と回答すること\n")
	sb.WriteString("3. 回答には [DOC_X] 形式で引用を含めること（X はコンテキスト内の文書番号）\n")
	sb.WriteString("4. 簡潔かつ正確に回答すること\n")
	sb.WriteString("5. コンテキストにコードが含まれる場合は適切に整形して回答に含めること\n")
	if hasImages {
		sb.WriteString("6. 添付された画像を注意深く分析し、得られた知見を回答に含めること\n")
	} else {
		sb.WriteString("6. コンテキストに画像由来の情報が含まれる場合は、関連する範囲で回答に含めること\n")
	}

	return sb.String()
}

// BuildUserPrompt はコンテキストと質問からユーザープロンプトを構築する
func BuildUserPrompt(contextStr, query string) string {
	return fmt.Sprintf("Context:\n%s\n\nQuestion: %s\n\nPlease provide a helpful answer with citations.", contextStr, query)
}
