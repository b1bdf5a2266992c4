package repository

import (
	"context"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ashwinyue/next-assistants/internal/model"
)

// MessageRepository 消息数据访问
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository 创建消息仓库
func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create 创建消息
func (r *MessageRepository) Create(ctx context.Context, msg *model.Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// GetByID 获取线程内的单条消息
func (r *MessageRepository) GetByID(ctx context.Context, threadID, id string) (*model.Message, error) {
	var msg model.Message
	err := r.db.WithContext(ctx).
		Where("id = ? AND thread_id = ?", id, threadID).
		First(&msg).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &msg, nil
}

// ListHistory 获取线程全部消息，从新到旧。
// 创建时间相同时按自增序号区分先后。
func (r *MessageRepository) ListHistory(ctx context.Context, threadID string) ([]*model.Message, error) {
	var messages []*model.Message
	err := r.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("created_at DESC").
		Order("seq DESC").
		Find(&messages).Error
	return messages, err
}

// List 分页列出线程消息，After/Before 为消息 ID 游标
func (r *MessageRepository) List(ctx context.Context, threadID string, opts ListOptions) ([]*model.Message, error) {
	opts = opts.normalize()
	db := r.db.WithContext(ctx)
	query := db.Where("thread_id = ?", threadID)

	if opts.After != "" {
		cmp := "<"
		if opts.Order == "asc" {
			cmp = ">"
		}
		query = query.Where("seq "+cmp+" (?)", db.Model(&model.Message{}).Select("seq").Where("id = ?", opts.After))
	}
	if opts.Before != "" {
		cmp := ">"
		if opts.Order == "asc" {
			cmp = "<"
		}
		query = query.Where("seq "+cmp+" (?)", db.Model(&model.Message{}).Select("seq").Where("id = ?", opts.Before))
	}

	var messages []*model.Message
	err := query.Order("seq " + opts.Order).Limit(opts.Limit).Find(&messages).Error
	return messages, err
}

// ListFileIDs 按从新到旧返回线程内各消息的文件 ID
func (r *MessageRepository) ListFileIDs(ctx context.Context, threadID string) ([][]string, error) {
	var messages []*model.Message
	err := r.db.WithContext(ctx).
		Select("file_ids").
		Where("thread_id = ?", threadID).
		Order("created_at DESC").
		Order("seq DESC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	out := make([][]string, 0, len(messages))
	for _, m := range messages {
		out = append(out, m.FileIDs)
	}
	return out, nil
}

// UpdateMetadata 更新元数据，消息其余字段不可修改
func (r *MessageRepository) UpdateMetadata(ctx context.Context, threadID, id string, metadata map[string]any) error {
	tx := r.db.WithContext(ctx).Model(&model.Message{}).
		Where("id = ? AND thread_id = ?", id, threadID).
		Update("metadata", datatypes.JSONMap(metadata))
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
