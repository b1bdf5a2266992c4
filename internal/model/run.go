package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
	"gorm.io/datatypes"
)

// MaxRunFileIDs 一个运行最多关联的文件数
const MaxRunFileIDs = 10

// ErrInvalidTransition 非法的状态迁移
var ErrInvalidTransition = errors.New("invalid run status transition")

// Run 一次助手运行。
// 状态只前进：queued -> in_progress -> completed | failed。
// cancelled / expired 等由外部设置的状态不会被覆盖。
type Run struct {
	ID           string                      `gorm:"primaryKey;size:64" json:"id"`
	ThreadID     string                      `gorm:"index;size:64;not null" json:"thread_id"`
	AssistantID  string                      `gorm:"size:64;not null" json:"assistant_id"`
	Model        string                      `gorm:"size:128" json:"model"`
	Instructions string                      `gorm:"type:text" json:"instructions"`
	Status       openai.RunStatus            `gorm:"size:32;index;not null" json:"status"`
	Metadata     datatypes.JSONMap           `json:"metadata"`
	FileIDs      datatypes.JSONSlice[string] `json:"file_ids"`
	CreatedAt    time.Time                   `gorm:"autoCreateTime" json:"created_at"`
	StartedAt    *time.Time                  `json:"started_at"`
	CompletedAt  *time.Time                  `json:"completed_at"`
	FailedAt     *time.Time                  `json:"failed_at"`
	CancelledAt  *time.Time                  `json:"cancelled_at"`
	ExpiresAt    *time.Time                  `json:"expires_at"`
}

// TableName 指定表名
func (Run) TableName() string {
	return "runs"
}

// CanTransition 判断 from -> to 是否为合法迁移
func CanTransition(from, to openai.RunStatus) bool {
	switch from {
	case openai.RunStatusQueued:
		return to == openai.RunStatusInProgress
	case openai.RunStatusInProgress:
		return to == openai.RunStatusCompleted || to == openai.RunStatusFailed
	}
	return false
}

// Transition 一次状态迁移：期望的当前状态、目标状态，以及记录迁移时间的列
type Transition struct {
	From     openai.RunStatus
	To       openai.RunStatus
	AtColumn string
}

// 处理器使用的三种迁移
var (
	StartRun    = Transition{From: openai.RunStatusQueued, To: openai.RunStatusInProgress, AtColumn: "started_at"}
	CompleteRun = Transition{From: openai.RunStatusInProgress, To: openai.RunStatusCompleted, AtColumn: "completed_at"}
	FailRun     = Transition{From: openai.RunStatusInProgress, To: openai.RunStatusFailed, AtColumn: "failed_at"}
)

// Validate 拒绝状态机之外的迁移
func (t Transition) Validate() error {
	if !CanTransition(t.From, t.To) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.From, t.To)
	}
	return nil
}

// Updates 迁移要写入的列
func (t Transition) Updates(now time.Time) map[string]any {
	updates := map[string]any{"status": t.To}
	if t.AtColumn != "" {
		updates[t.AtColumn] = now
	}
	return updates
}

// CollectFileIDs 按"越新越优先"合并文件 ID：去重并保留最近的 MaxRunFileIDs 个。
// sources 需按从新到旧排列。
func CollectFileIDs(sources ...[]string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, MaxRunFileIDs)
	for _, ids := range sources {
		for _, id := range ids {
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
			if len(out) == MaxRunFileIDs {
				return out
			}
		}
	}
	return out
}
