// Package limits 保存各模型的 token 限额，启动时构建，之后只读
package limits

import (
	"sort"
	"strings"

	"github.com/ashwinyue/next-assistants/internal/config"
)

// Limits 单个模型的限额
type Limits struct {
	Tokens       int // 非流式最大生成长度
	StreamTokens int // 流式调用时上下文可用的预算
	Context      int // 模型上下文窗口
}

// Table 模型限额表，只读
type Table struct {
	models map[string]Limits
}

// NewTable 由配置构建限额表，模型 ID 不区分大小写
func NewTable(models []config.ModelLimits) *Table {
	t := &Table{models: make(map[string]Limits, len(models))}
	for _, m := range models {
		if m.ID == "" {
			continue
		}
		t.models[strings.ToLower(m.ID)] = Limits{
			Tokens:       m.Tokens,
			StreamTokens: m.StreamTokens,
			Context:      m.Context,
		}
	}
	return t
}

// Lookup 查询模型限额
func (t *Table) Lookup(model string) (Limits, bool) {
	if t == nil {
		return Limits{}, false
	}
	l, ok := t.models[strings.ToLower(model)]
	return l, ok
}

// StreamBudget 返回流式调用的上下文预算；未配置的模型返回 (0, false)
func (t *Table) StreamBudget(model string) (int, bool) {
	l, ok := t.Lookup(model)
	if !ok || l.StreamTokens <= 0 {
		return 0, false
	}
	return l.StreamTokens, true
}

// Entry 带模型 ID 的限额
type Entry struct {
	ID string
	Limits
}

// Entries 按模型 ID 排序返回全部限额
func (t *Table) Entries() []Entry {
	if t == nil {
		return nil
	}
	out := make([]Entry, 0, len(t.models))
	for id, l := range t.models {
		out = append(out, Entry{ID: id, Limits: l})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
