// Package run 处理排队中的运行：构建上下文、调用模型、聚合流式输出并推进运行状态
package run

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/ashwinyue/next-assistants/internal/metrics"
	"github.com/ashwinyue/next-assistants/internal/model"
	"github.com/ashwinyue/next-assistants/internal/queue"
	"github.com/ashwinyue/next-assistants/internal/repository"
	"github.com/ashwinyue/next-assistants/internal/service/limits"
	"github.com/ashwinyue/next-assistants/internal/service/llm"
	"github.com/ashwinyue/next-assistants/internal/service/stream"
	"github.com/ashwinyue/next-assistants/internal/service/window"
)

// RunStore 运行的读取与条件状态迁移
type RunStore interface {
	GetByID(ctx context.Context, id string) (*model.Run, error)
	MarkInProgress(ctx context.Context, id string, now time.Time) (bool, error)
	Complete(ctx context.Context, id string, reply *model.Message, now time.Time) (bool, error)
	MarkFailed(ctx context.Context, id string, now time.Time) (bool, error)
}

// AssistantStore 助手读取
type AssistantStore interface {
	GetByID(ctx context.Context, id string) (*model.Assistant, error)
}

// ThreadStore 线程读取
type ThreadStore interface {
	GetByID(ctx context.Context, id string) (*model.Thread, error)
}

// HistoryStore 线程历史读取，从新到旧
type HistoryStore interface {
	ListHistory(ctx context.Context, threadID string) ([]*model.Message, error)
}

// Indexer 语义索引写入
type Indexer interface {
	Index(ctx context.Context, sourceID, text string) error
}

// Outcome 一次投递的处理结果
type Outcome string

const (
	OutcomeCompleted Outcome = metrics.StatusCompleted
	OutcomeSkipped   Outcome = metrics.StatusSkipped
	OutcomeFailed    Outcome = metrics.StatusFailed
)

// ProcessorConfig 处理器依赖
type ProcessorConfig struct {
	Runs       RunStore
	Assistants AssistantStore
	Threads    ThreadStore
	Messages   HistoryStore
	Invoker    llm.Invoker
	Limits     *limits.Table
	// Index 可选，完成后把助手回复写入语义索引
	Index  Indexer
	Logger *zap.Logger
	// MarkFailedOnError 为 true 时，进入 in_progress 之后的错误会把运行标记为 failed；
	// 为 false 时运行停留在出错时的状态。
	MarkFailedOnError bool
}

// Processor 运行处理器，无跨运行的共享可变状态，可被多个消费者并发使用
type Processor struct {
	runs       RunStore
	assistants AssistantStore
	threads    ThreadStore
	messages   HistoryStore
	invoker    llm.Invoker
	limits     *limits.Table
	index      Indexer
	aggregator *stream.Aggregator
	logger     *zap.Logger
	markFailed bool
	now        func() time.Time
}

// NewProcessor 创建运行处理器
func NewProcessor(cfg ProcessorConfig) *Processor {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		runs:       cfg.Runs,
		assistants: cfg.Assistants,
		threads:    cfg.Threads,
		messages:   cfg.Messages,
		invoker:    cfg.Invoker,
		limits:     cfg.Limits,
		index:      cfg.Index,
		aggregator: stream.NewAggregator(logger.Named("stream")),
		logger:     logger,
		markFailed: cfg.MarkFailedOnError,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// HandleBatch 依次处理一批投递。无论成功与否每条投递都会被确认：
// 已离开 queued 的运行重新投递时也不会再被处理。
func (p *Processor) HandleBatch(ctx context.Context, deliveries []*queue.Delivery) {
	for _, d := range deliveries {
		p.handle(ctx, d)
	}
}

func (p *Processor) handle(ctx context.Context, d *queue.Delivery) {
	start := time.Now()
	outcome := OutcomeFailed

	runID, err := queue.DecodeRunID(d.Body)
	if err != nil {
		p.logger.Error("drop undecodable delivery", zap.String("delivery_id", d.ID), zap.Error(err))
	} else {
		outcome, err = p.Process(ctx, runID)
		if err != nil {
			p.logger.Error("run processing failed",
				zap.String("run_id", runID),
				zap.Bool("input_error", IsInputError(err)),
				zap.Error(err))
		}
	}

	if err := d.Ack(ctx); err != nil {
		p.logger.Error("failed to ack delivery", zap.String("delivery_id", d.ID), zap.Error(err))
	}

	metrics.RunsTotal.WithLabelValues(string(outcome)).Inc()
	metrics.RunDuration.WithLabelValues(string(outcome)).Observe(time.Since(start).Seconds())
}

// Process 处理单个运行：
// load -> queued 检查 -> in_progress -> 构建上下文 -> 流式调用 -> 聚合 -> 写回复并 completed。
func (p *Processor) Process(ctx context.Context, runID string) (Outcome, error) {
	run, err := p.runs.GetByID(ctx, runID)
	if errors.Is(err, repository.ErrNotFound) {
		return OutcomeFailed, &InputError{RunID: runID, Reason: "load run", Err: ErrRunNotFound}
	}
	if err != nil {
		return OutcomeFailed, fmt.Errorf("load run %s: %w", runID, err)
	}

	// 重复投递或已被取消
	if run.Status != openai.RunStatusQueued {
		p.logger.Info("skip run not in queued state",
			zap.String("run_id", runID), zap.String("status", string(run.Status)))
		return OutcomeSkipped, nil
	}

	assistant, err := p.assistants.GetByID(ctx, run.AssistantID)
	if err != nil {
		return OutcomeFailed, p.loadError(runID, "load assistant", err)
	}
	thread, err := p.threads.GetByID(ctx, run.ThreadID)
	if err != nil {
		return OutcomeFailed, p.loadError(runID, "load thread", err)
	}

	ok, err := p.runs.MarkInProgress(ctx, runID, p.now())
	if err != nil {
		return OutcomeFailed, fmt.Errorf("start run %s: %w", runID, err)
	}
	if !ok {
		p.logger.Info("run claimed by another consumer", zap.String("run_id", runID))
		return OutcomeSkipped, nil
	}

	reply, err := p.execute(ctx, run, assistant, thread)
	if err != nil {
		p.fail(ctx, runID)
		return OutcomeFailed, err
	}

	completed, err := p.runs.Complete(ctx, runID, reply, p.now())
	if err != nil {
		p.fail(ctx, runID)
		return OutcomeFailed, fmt.Errorf("complete run %s: %w", runID, err)
	}
	if !completed {
		p.logger.Warn("run left in_progress before completion, reply discarded", zap.String("run_id", runID))
		return OutcomeSkipped, nil
	}

	if p.index != nil {
		if err := p.index.Index(ctx, reply.ID, reply.Content); err != nil {
			p.logger.Warn("failed to index reply", zap.String("message_id", reply.ID), zap.Error(err))
		}
	}

	p.logger.Info("run completed", zap.String("run_id", runID), zap.String("message_id", reply.ID))
	return OutcomeCompleted, nil
}

func (p *Processor) execute(ctx context.Context, run *model.Run, assistant *model.Assistant, thread *model.Thread) (*model.Message, error) {
	history, err := p.messages.ListHistory(ctx, thread.ID)
	if err != nil {
		return nil, fmt.Errorf("load history of %s: %w", thread.ID, err)
	}

	modelName := run.Model
	if modelName == "" {
		modelName = assistant.Model
	}
	instructions := run.Instructions
	if instructions == "" {
		instructions = assistant.Instructions
	}

	budget, ok := p.limits.StreamBudget(modelName)
	if !ok {
		budget = window.Unbounded
	}
	w := window.Build(history, instructions, budget)
	p.logger.Debug("context window built",
		zap.String("run_id", run.ID),
		zap.Int("history", len(history)),
		zap.Int("selected", w.Budget.Selected),
		zap.Int("used_tokens", w.Budget.UsedTokens))

	sr, err := p.invoker.Stream(ctx, &llm.Request{Model: modelName, Messages: w.Messages})
	if err != nil {
		return nil, fmt.Errorf("invoke %s: %w", modelName, err)
	}
	text, err := p.aggregator.Aggregate(sr)
	if err != nil {
		return nil, fmt.Errorf("read stream of %s: %w", modelName, err)
	}

	return &model.Message{
		ID:          model.NewID(model.MessageIDPrefix),
		ThreadID:    thread.ID,
		Role:        model.RoleAssistant,
		Content:     text,
		AssistantID: assistant.ID,
		RunID:       run.ID,
	}, nil
}

func (p *Processor) fail(ctx context.Context, runID string) {
	if !p.markFailed {
		return
	}
	ok, err := p.runs.MarkFailed(ctx, runID, p.now())
	if err != nil {
		p.logger.Error("failed to mark run failed", zap.String("run_id", runID), zap.Error(err))
		return
	}
	if ok {
		p.logger.Info("run marked failed", zap.String("run_id", runID))
	}
}

func (p *Processor) loadError(runID, step string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return &InputError{RunID: runID, Reason: step, Err: err}
	}
	return fmt.Errorf("%s for run %s: %w", step, runID, err)
}
