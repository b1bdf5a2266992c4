package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ashwinyue/next-assistants/internal/model"
)

// AssistantRepository 助手数据访问
type AssistantRepository struct {
	db *gorm.DB
}

// NewAssistantRepository 创建助手仓库
func NewAssistantRepository(db *gorm.DB) *AssistantRepository {
	return &AssistantRepository{db: db}
}

// Create 创建助手
func (r *AssistantRepository) Create(ctx context.Context, assistant *model.Assistant) error {
	return r.db.WithContext(ctx).Create(assistant).Error
}

// GetByID 获取助手
func (r *AssistantRepository) GetByID(ctx context.Context, id string) (*model.Assistant, error) {
	var assistant model.Assistant
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&assistant).Error; err != nil {
		return nil, notFound(err)
	}
	return &assistant, nil
}

// List 列出助手
func (r *AssistantRepository) List(ctx context.Context, opts ListOptions) ([]*model.Assistant, error) {
	opts = opts.normalize()
	var assistants []*model.Assistant
	err := r.db.WithContext(ctx).
		Order("created_at " + opts.Order).
		Limit(opts.Limit).
		Find(&assistants).Error
	return assistants, err
}

// Update 保存可修改的字段
func (r *AssistantRepository) Update(ctx context.Context, assistant *model.Assistant) error {
	tx := r.db.WithContext(ctx).Model(&model.Assistant{}).
		Where("id = ?", assistant.ID).
		Select("name", "description", "model", "instructions", "file_ids", "metadata").
		Updates(assistant)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete 删除助手，已有的运行不受影响
func (r *AssistantRepository) Delete(ctx context.Context, id string) error {
	tx := r.db.WithContext(ctx).Delete(&model.Assistant{}, "id = ?", id)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
