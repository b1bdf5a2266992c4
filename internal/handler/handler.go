// Package handler 提供 assistants 协议的 HTTP 处理器
package handler

import (
	"context"

	"go.uber.org/zap"

	"github.com/ashwinyue/next-assistants/internal/model"
	"github.com/ashwinyue/next-assistants/internal/repository"
	"github.com/ashwinyue/next-assistants/internal/service"
	"github.com/ashwinyue/next-assistants/internal/service/run"
)

// AssistantStore 助手存储
type AssistantStore interface {
	Create(ctx context.Context, assistant *model.Assistant) error
	GetByID(ctx context.Context, id string) (*model.Assistant, error)
	List(ctx context.Context, opts repository.ListOptions) ([]*model.Assistant, error)
	Update(ctx context.Context, assistant *model.Assistant) error
	Delete(ctx context.Context, id string) error
}

// ThreadStore 线程存储
type ThreadStore interface {
	Create(ctx context.Context, thread *model.Thread, messages ...*model.Message) error
	GetByID(ctx context.Context, id string) (*model.Thread, error)
	UpdateMetadata(ctx context.Context, id string, metadata map[string]any) error
	Delete(ctx context.Context, id string) ([]string, error)
}

// MessageStore 消息存储
type MessageStore interface {
	Create(ctx context.Context, msg *model.Message) error
	GetByID(ctx context.Context, threadID, id string) (*model.Message, error)
	List(ctx context.Context, threadID string, opts repository.ListOptions) ([]*model.Message, error)
	UpdateMetadata(ctx context.Context, threadID, id string, metadata map[string]any) error
}

// RunStore 运行存储
type RunStore interface {
	GetInThread(ctx context.Context, threadID, id string) (*model.Run, error)
	List(ctx context.Context, threadID string, opts repository.ListOptions) ([]*model.Run, error)
	UpdateMetadata(ctx context.Context, threadID, id string, metadata map[string]any) error
}

// RunSubmitter 创建并入队运行
type RunSubmitter interface {
	Submit(ctx context.Context, req *run.SubmitRequest) (*model.Run, error)
}

// SemanticIndex 消息内容的语义索引
type SemanticIndex interface {
	Index(ctx context.Context, sourceID, text string) error
	DeleteBySource(ctx context.Context, sourceIDs []string) error
	Query(ctx context.Context, text string, topK int) ([]string, error)
}

// Handlers 处理器集合
type Handlers struct {
	Assistant *AssistantHandler
	Thread    *ThreadHandler
	Message   *MessageHandler
	Run       *RunHandler
	Model     *ModelHandler
	Chat      *ChatHandler
	Embedding *EmbeddingHandler
}

// NewHandlers 创建所有处理器
func NewHandlers(svc *service.Services, logger *zap.Logger) *Handlers {
	var index SemanticIndex
	if svc.Index != nil {
		index = svc.Index
	}
	repos := svc.Repos
	return &Handlers{
		Assistant: NewAssistantHandler(repos.Assistant),
		Thread:    NewThreadHandler(repos.Thread, index, logger),
		Message:   NewMessageHandler(repos.Thread, repos.Message, index, logger),
		Run:       NewRunHandler(repos.Run, svc.Submitter),
		Model:     NewModelHandler(svc.Limits, svc.Config.AI.Provider),
		Chat:      NewChatHandler(svc.Invoker, svc.Config.AI.ChatModel(), logger.Named("chat")),
		Embedding: NewEmbeddingHandler(svc.Embedder, svc.Config.AI.Embedding.ModelName()),
	}
}
