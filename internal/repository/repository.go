package repository

import (
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("record not found")

// Repositories 仓库集合，用于统一管理所有仓库
type Repositories struct {
	DB        *gorm.DB // 直接访问数据库
	Thread    *ThreadRepository
	Message   *MessageRepository
	Assistant *AssistantRepository
	Run       *RunRepository
}

// NewRepositories 创建所有仓库
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		DB:        db,
		Thread:    NewThreadRepository(db),
		Message:   NewMessageRepository(db),
		Assistant: NewAssistantRepository(db),
		Run:       NewRunRepository(db),
	}
}

// ListOptions 列表分页参数，与 assistants 协议一致
type ListOptions struct {
	Limit  int
	Order  string // asc | desc
	After  string
	Before string
}

func (o ListOptions) normalize() ListOptions {
	if o.Limit <= 0 || o.Limit > 100 {
		o.Limit = 20
	}
	if o.Order != "asc" {
		o.Order = "desc"
	}
	return o
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
