package ingestion

import "strings"

const (
	// DefaultChunkSize はテキストチャンクの最大文字数のデフォルト値
	DefaultChunkSize = 1000
	// DefaultChunkOverlap はチャンク間の重複量（文字数換算の目安）のデフォルト値
	DefaultChunkOverlap = 200
)

// Segmenter はテキストを段落境界を尊重したチャンク列に分割する
// 純粋関数であり、同一入力からは常に同一のチャンク列が得られる
type Segmenter struct {
	maxSize int
	overlap int
}

// NewSegmenter は Segmenter を生成する
// 不正な値はデフォルトに丸める
func NewSegmenter(maxSize, overlap int) *Segmenter {
	if maxSize <= 0 {
		maxSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultChunkOverlap
	}
	return &Segmenter{maxSize: maxSize, overlap: overlap}
}

// Segment はテキストを段落単位で貪欲に詰めたチャンク列へ分割する
// 上限を超える場合は現在のチャンクを確定し、直前チャンク末尾の単語列を
// 次チャンクの先頭に種として持ち越す（overlap/10 単語の近似）
// 単一の巨大な段落は分割せずそのまま1チャンクになる
func (s *Segmenter) Segment(text string) []string {
	if text == "" {
		return nil
	}

	var paragraphs []string
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(p)
		if p != "" {
			paragraphs = append(paragraphs, p)
		}
	}

	var chunks []string
	current := ""

	for _, paragraph := range paragraphs {
		if len(current)+len(paragraph) > s.maxSize && current != "" {
			chunks = append(chunks, strings.TrimSpace(current))

			words := strings.Fields(current)
			seed := s.overlap / 10
			if seed > len(words) {
				seed = len(words)
			}
			overlapWords := words[len(words)-seed:]
			current = strings.Join(overlapWords, " ") + "\n\n" + paragraph
			continue
		}

		if current != "" {
			current += "\n\n" + paragraph
		} else {
			current = paragraph
		}
	}

	if current != "" {
		chunks = append(chunks, strings.TrimSpace(current))
	}

	return chunks
}
