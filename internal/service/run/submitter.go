package run

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/ashwinyue/next-assistants/internal/model"
	"github.com/ashwinyue/next-assistants/internal/queue"
	"github.com/ashwinyue/next-assistants/internal/repository"
)

var (
	// ErrAssistantNotFound 助手不存在
	ErrAssistantNotFound = errors.New("assistant not found")
	// ErrThreadNotFound 线程不存在
	ErrThreadNotFound = errors.New("thread not found")
)

// RunCreator 运行持久化
type RunCreator interface {
	Create(ctx context.Context, run *model.Run) error
}

// FileSource 按从新到旧返回线程消息上的文件 ID
type FileSource interface {
	ListFileIDs(ctx context.Context, threadID string) ([][]string, error)
}

// SubmitRequest 创建运行请求，Model / Instructions 为空时使用助手的配置
type SubmitRequest struct {
	ThreadID     string
	AssistantID  string
	Model        string
	Instructions string
	Metadata     map[string]any
}

// Submitter 创建运行并投递到队列
type Submitter struct {
	runs       RunCreator
	assistants AssistantStore
	threads    ThreadStore
	files      FileSource
	producer   queue.Producer
	logger     *zap.Logger
}

// NewSubmitter 创建 Submitter
func NewSubmitter(runs RunCreator, assistants AssistantStore, threads ThreadStore, files FileSource, producer queue.Producer, logger *zap.Logger) *Submitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Submitter{
		runs:       runs,
		assistants: assistants,
		threads:    threads,
		files:      files,
		producer:   producer,
		logger:     logger,
	}
}

// Submit 创建 queued 状态的运行并入队。
// 文件 ID 取自线程消息（从新到旧）与线程本身，去重后保留最近 10 个。
func (s *Submitter) Submit(ctx context.Context, req *SubmitRequest) (*model.Run, error) {
	assistant, err := s.assistants.GetByID(ctx, req.AssistantID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrAssistantNotFound
	}
	if err != nil {
		return nil, err
	}
	thread, err := s.threads.GetByID(ctx, req.ThreadID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrThreadNotFound
	}
	if err != nil {
		return nil, err
	}

	messageFiles, err := s.files.ListFileIDs(ctx, thread.ID)
	if err != nil {
		return nil, fmt.Errorf("collect file ids: %w", err)
	}
	fileIDs := model.CollectFileIDs(append(messageFiles, thread.FileIDs)...)

	run := &model.Run{
		ID:           model.NewID(model.RunIDPrefix),
		ThreadID:     thread.ID,
		AssistantID:  assistant.ID,
		Model:        firstNonEmpty(req.Model, assistant.Model),
		Instructions: firstNonEmpty(req.Instructions, assistant.Instructions),
		Status:       openai.RunStatusQueued,
		Metadata:     req.Metadata,
		FileIDs:      fileIDs,
	}
	if run.Metadata == nil {
		run.Metadata = map[string]any{}
	}

	if err := s.runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	if err := s.producer.Enqueue(ctx, run.ID); err != nil {
		return nil, fmt.Errorf("enqueue run %s: %w", run.ID, err)
	}

	s.logger.Info("run queued", zap.String("run_id", run.ID), zap.String("thread_id", thread.ID))
	return run, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
