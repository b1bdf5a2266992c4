package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ashwinyue/next-assistants/internal/model"
)

// errLostRace 条件更新未命中，用于回滚事务
var errLostRace = errors.New("run status changed concurrently")

// RunRepository 运行数据访问。
// 状态迁移都是带期望状态的条件更新，返回 false 表示运行已被其他消费者推进或已取消。
type RunRepository struct {
	db *gorm.DB
}

// NewRunRepository 创建运行仓库
func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create 创建运行
func (r *RunRepository) Create(ctx context.Context, run *model.Run) error {
	return r.db.WithContext(ctx).Create(run).Error
}

// GetByID 获取运行
func (r *RunRepository) GetByID(ctx context.Context, id string) (*model.Run, error) {
	var run model.Run
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&run).Error; err != nil {
		return nil, notFound(err)
	}
	return &run, nil
}

// GetInThread 获取线程内的运行
func (r *RunRepository) GetInThread(ctx context.Context, threadID, id string) (*model.Run, error) {
	var run model.Run
	err := r.db.WithContext(ctx).
		Where("id = ? AND thread_id = ?", id, threadID).
		First(&run).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &run, nil
}

// List 列出线程内的运行
func (r *RunRepository) List(ctx context.Context, threadID string, opts ListOptions) ([]*model.Run, error) {
	opts = opts.normalize()
	var runs []*model.Run
	err := r.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("created_at " + opts.Order).
		Limit(opts.Limit).
		Find(&runs).Error
	return runs, err
}

// UpdateMetadata 更新元数据
func (r *RunRepository) UpdateMetadata(ctx context.Context, threadID, id string, metadata map[string]any) error {
	tx := r.db.WithContext(ctx).Model(&model.Run{}).
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

// MarkInProgress queued -> in_progress
func (r *RunRepository) MarkInProgress(ctx context.Context, id string, now time.Time) (bool, error) {
	return r.transition(r.db.WithContext(ctx), id, model.StartRun, now)
}

// MarkFailed in_progress -> failed
func (r *RunRepository) MarkFailed(ctx context.Context, id string, now time.Time) (bool, error) {
	return r.transition(r.db.WithContext(ctx), id, model.FailRun, now)
}

// Complete 在同一事务中写入助手回复并把运行从 in_progress 推进到 completed。
// 运行状态已变化时整个事务回滚，不会留下重复的回复消息。
func (r *RunRepository) Complete(ctx context.Context, id string, reply *model.Message, now time.Time) (bool, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(reply).Error; err != nil {
			return err
		}
		ok, err := r.transition(tx, id, model.CompleteRun, now)
		if err != nil {
			return err
		}
		if !ok {
			return errLostRace
		}
		return nil
	})
	if errors.Is(err, errLostRace) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// transition 以 t.From 为条件更新，未命中返回 false
func (r *RunRepository) transition(db *gorm.DB, id string, t model.Transition, now time.Time) (bool, error) {
	if err := t.Validate(); err != nil {
		return false, err
	}
	tx := db.Model(&model.Run{}).
		Where("id = ?", id).
		Where("status = ?", t.From).
		Updates(t.Updates(now))
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}
