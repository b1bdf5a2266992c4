package repository

import (
	"context"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ashwinyue/next-assistants/internal/model"
)

// ThreadRepository 线程数据访问
type ThreadRepository struct {
	db *gorm.DB
}

// NewThreadRepository 创建线程仓库
func NewThreadRepository(db *gorm.DB) *ThreadRepository {
	return &ThreadRepository{db: db}
}

// Create 创建线程，并在同一事务中写入初始消息
func (r *ThreadRepository) Create(ctx context.Context, thread *model.Thread, messages ...*model.Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(thread).Error; err != nil {
			return err
		}
		for _, msg := range messages {
			if err := tx.Create(msg).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// GetByID 获取线程
func (r *ThreadRepository) GetByID(ctx context.Context, id string) (*model.Thread, error) {
	var thread model.Thread
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&thread).Error; err != nil {
		return nil, notFound(err)
	}
	return &thread, nil
}

// UpdateMetadata 更新元数据
func (r *ThreadRepository) UpdateMetadata(ctx context.Context, id string, metadata map[string]any) error {
	tx := r.db.WithContext(ctx).Model(&model.Thread{}).
		Where("id = ?", id).
		Update("metadata", datatypes.JSONMap(metadata))
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete 删除线程及其消息，返回被删除的消息 ID
func (r *ThreadRepository) Delete(ctx context.Context, id string) ([]string, error) {
	var messageIDs []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Message{}).Where("thread_id = ?", id).Pluck("id", &messageIDs).Error; err != nil {
			return err
		}
		if err := tx.Delete(&model.Message{}, "thread_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Thread{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return messageIDs, nil
}
