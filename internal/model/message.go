package model

import (
	"time"

	"gorm.io/datatypes"
)

// 消息角色
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message 线程中的一条消息。创建后只有 Metadata 可修改。
type Message struct {
	ID          string                      `gorm:"primaryKey;size:64" json:"id"`
	Seq         int64                       `gorm:"autoIncrement;uniqueIndex;not null" json:"-"`
	ThreadID    string                      `gorm:"index:idx_messages_thread_created;size:64;not null" json:"thread_id"`
	Role        string                      `gorm:"size:20;not null" json:"role"`
	Content     string                      `gorm:"type:text" json:"content"`
	AssistantID string                      `gorm:"size:64" json:"assistant_id,omitempty"`
	RunID       string                      `gorm:"size:64;index" json:"run_id,omitempty"`
	Metadata    datatypes.JSONMap           `json:"metadata"`
	FileIDs     datatypes.JSONSlice[string] `json:"file_ids"`
	CreatedAt   time.Time                   `gorm:"autoCreateTime;index:idx_messages_thread_created" json:"created_at"`
}

// TableName 指定表名
func (Message) TableName() string {
	return "messages"
}

// ValidRole 检查角色是否合法
func ValidRole(role string) bool {
	switch role {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}
