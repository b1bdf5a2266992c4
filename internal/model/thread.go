package model

import (
	"time"

	"gorm.io/datatypes"
)

// Thread 会话线程
type Thread struct {
	ID        string                      `gorm:"primaryKey;size:64" json:"id"`
	Metadata  datatypes.JSONMap           `json:"metadata"`
	FileIDs   datatypes.JSONSlice[string] `json:"file_ids"`
	CreatedAt time.Time                   `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 指定表名
func (Thread) TableName() string {
	return "threads"
}
