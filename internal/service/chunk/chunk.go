// Package chunk 把长文本切分成适合向量化的分块
package chunk

import (
	"strings"
	"unicode/utf8"

	"github.com/ashwinyue/next-assistants/internal/service/token"
)

const (
	// MaxEmbeddingTokens 不超过该估算值的文本整体作为一个分块
	MaxEmbeddingTokens = 500
	// MaxChunkChars 单个分块的字符上限（按词累加，含分隔空格）
	MaxChunkChars = 250
)

// Split 切分文本。
// 短文本原样返回；长文本按空白切词后贪心装箱，每个词恰好出现一次且保持顺序。
// 单个超长词会独占一个分块。
func Split(text string) []string {
	if token.EstimateEmbedding(text) <= MaxEmbeddingTokens {
		return []string{text}
	}

	var (
		chunks  []string
		current strings.Builder
		size    int
	)
	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			chunks = append(chunks, s)
		}
		current.Reset()
		size = 0
	}

	for _, word := range strings.Fields(text) {
		n := utf8.RuneCountInString(word)
		if size > 0 && size+n > MaxChunkChars {
			flush()
		}
		current.WriteString(word)
		current.WriteByte(' ')
		size += n + 1
	}
	flush()

	return chunks
}
