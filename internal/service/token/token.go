// Package token 提供轻量的 token 数估算，不依赖具体分词器
package token

import (
	"strings"
	"unicode/utf8"
)

// Estimate 按每 4 个字符约 1 个 token 估算，向上取整
func Estimate(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}

// EstimateEmbedding 向量化模型的估算：每个词约 2 个 token
func EstimateEmbedding(text string) int {
	return len(strings.Fields(text)) * 2
}
