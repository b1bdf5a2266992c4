package model

import (
	"strings"

	"github.com/google/uuid"
)

// ID 前缀，与 assistants 协议保持一致
const (
	ThreadIDPrefix    = "thread_"
	MessageIDPrefix   = "msg_"
	AssistantIDPrefix = "asst_"
	RunIDPrefix       = "run_"
)

// NewID 生成带前缀的 ID。
// ID 中不包含 "-"，向量索引以 "-" 作为 sourceId 与分块序号的分隔符。
func NewID(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}
