package model

import (
	"time"

	"gorm.io/datatypes"
)

// Assistant 助手配置，运行时提供默认模型与指令
type Assistant struct {
	ID           string                      `gorm:"primaryKey;size:64" json:"id"`
	Name         string                      `gorm:"size:256" json:"name"`
	Description  string                      `gorm:"type:text" json:"description"`
	Model        string                      `gorm:"size:128;not null" json:"model"`
	Instructions string                      `gorm:"type:text" json:"instructions"`
	Metadata     datatypes.JSONMap           `json:"metadata"`
	FileIDs      datatypes.JSONSlice[string] `json:"file_ids"`
	CreatedAt    time.Time                   `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 指定表名
func (Assistant) TableName() string {
	return "assistants"
}
