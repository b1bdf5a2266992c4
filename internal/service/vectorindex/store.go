package vectorindex

import (
	"context"
	"fmt"
	"strings"
)

// Entry 一个待写入的向量条目
type Entry struct {
	Key     Key
	Content string
	Vector  []float64
}

// Match 近邻查询结果，ID 为编码后的 Key
type Match struct {
	ID    string
	Score float64
}

// Store 向量存储
type Store interface {
	Upsert(ctx context.Context, entries []Entry) error
	Query(ctx context.Context, vector []float64, topK int) ([]Match, error)
	Delete(ctx context.Context, ids []string) error
}

// Ledger 记录每个来源写入了多少个分块，删除时据此枚举 ID
type Ledger interface {
	Get(ctx context.Context, sourceID string) (int, error)
	Set(ctx context.Context, sourceID string, chunks int) error
	Delete(ctx context.Context, sourceIDs ...string) error
}

// PartialUpsertError 批量写入中部分条目失败
type PartialUpsertError struct {
	Failed []string
}

func (e *PartialUpsertError) Error() string {
	return fmt.Sprintf("upsert failed for %d vectors: %s", len(e.Failed), strings.Join(e.Failed, ", "))
}
