package answer

import "context"

// ImageAttachment は生成リクエストに添付する画像を表す
type ImageAttachment struct {
	// Path は画像ファイルのローカルパス
	Path string
	// Label は画像の出所を示す説明（例: ドキュメント名とページ）
	Label string
}

// CompletionRequest はLLMへの1回の生成リクエストを表す
// Images が空でない場合、実装はビジョン対応モデルへの切り替えを試みる
type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	Images       []ImageAttachment
}

// Generator はLLM通信インターフェース
type Generator interface {
	GenerateCompletion(ctx context.Context, req CompletionRequest) (string, error)
}
