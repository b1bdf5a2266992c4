// Package service 组装运行处理器所需的组件
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino-ext/components/embedding/dashscope"
	ollamaemb "github.com/cloudwego/eino-ext/components/embedding/ollama"
	openaiemb "github.com/cloudwego/eino-ext/components/embedding/openai"
	"github.com/cloudwego/eino/components/embedding"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ashwinyue/next-assistants/internal/config"
	"github.com/ashwinyue/next-assistants/internal/queue"
	"github.com/ashwinyue/next-assistants/internal/repository"
	"github.com/ashwinyue/next-assistants/internal/service/callback"
	"github.com/ashwinyue/next-assistants/internal/service/limits"
	"github.com/ashwinyue/next-assistants/internal/service/llm"
	"github.com/ashwinyue/next-assistants/internal/service/run"
	"github.com/ashwinyue/next-assistants/internal/service/vectorindex"
)

// Services 服务集合
type Services struct {
	Config *config.Config
	Repos  *repository.Repositories

	// Invoker 生成模型调用器，运行处理器与对话接口共用
	Invoker llm.Invoker
	// Embedder 未配置 embedding 时为 nil
	Embedder embedding.Embedder
	// Index 语义索引，未配置 embedding 或 ES 时为 nil
	Index     *vectorindex.Index
	Limits    *limits.Table
	Processor *run.Processor
	Submitter *run.Submitter

	Producer  queue.Producer
	Consumers []queue.Consumer

	closers []func()
}

// NewServices 创建所有服务
func NewServices(ctx context.Context, repo *repository.Repositories, cfg *config.Config, redisClient *redis.Client, logger *zap.Logger) (*Services, error) {
	callback.SetupGlobalCallbacks(logger.Named("eino"), cfg.App.Debug)

	s := &Services{
		Config: cfg,
		Repos:  repo,
		Limits: limits.NewTable(cfg.Models),
	}

	invoker, err := llm.NewInvoker(ctx, &cfg.AI)
	if err != nil {
		return nil, fmt.Errorf("create invoker: %w", err)
	}
	s.Invoker = invoker

	embedder, err := newEmbedder(ctx, &cfg.AI.Embedding)
	if err != nil {
		logger.Warn("embeddings disabled", zap.Error(err))
	} else {
		s.Embedder = embedder
	}

	index, err := newIndex(ctx, cfg, s.Embedder, redisClient, logger.Named("vectorindex"))
	if err != nil {
		logger.Warn("semantic index disabled", zap.Error(err))
	}
	s.Index = index

	if err := s.initQueue(ctx, cfg, redisClient, logger.Named("queue")); err != nil {
		s.Close()
		return nil, err
	}

	pcfg := run.ProcessorConfig{
		Runs:              repo.Run,
		Assistants:        repo.Assistant,
		Threads:           repo.Thread,
		Messages:          repo.Message,
		Invoker:           invoker,
		Limits:            s.Limits,
		Logger:            logger.Named("run_processor"),
		MarkFailedOnError: cfg.Worker.MarkFailedOnError,
	}
	if index != nil {
		pcfg.Index = index
	}
	s.Processor = run.NewProcessor(pcfg)
	s.Submitter = run.NewSubmitter(repo.Run, repo.Assistant, repo.Thread, repo.Message, s.Producer, logger.Named("run_submitter"))

	return s, nil
}

// Close 释放队列连接
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

func (s *Services) initQueue(ctx context.Context, cfg *config.Config, redisClient *redis.Client, logger *zap.Logger) error {
	qc := cfg.Queue
	concurrency := cfg.Worker.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	switch qc.Driver {
	case "redis", "":
		if redisClient == nil {
			return errors.New("queue driver redis requires a redis client")
		}
		base := queue.NewRedisStream(redisClient, queue.RedisStreamConfig{
			Stream:   qc.Stream,
			Group:    qc.Group,
			Consumer: qc.Consumer,
			Block:    qc.Block(),
			MinIdle:  qc.MinIdle(),
		}, logger)
		if err := base.EnsureGroup(ctx); err != nil {
			return err
		}
		s.Producer = base
		for i := 0; i < concurrency; i++ {
			s.Consumers = append(s.Consumers, base.WithConsumer(fmt.Sprintf("%s-%d", qc.Consumer, i)))
		}

	case "nats":
		nc, err := nats.Connect(qc.NATSURL, nats.Name(cfg.App.Name))
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		s.closers = append(s.closers, func() { _ = nc.Drain() })

		js, err := jetstream.New(nc)
		if err != nil {
			return fmt.Errorf("create jetstream: %w", err)
		}
		q, err := queue.NewJetStream(ctx, js, queue.JetStreamConfig{
			Stream:  qc.Stream,
			Durable: qc.Group,
			MaxWait: qc.Block(),
			AckWait: qc.MinIdle(),
		}, logger)
		if err != nil {
			return err
		}
		s.Producer = q
		for i := 0; i < concurrency; i++ {
			s.Consumers = append(s.Consumers, q)
		}

	default:
		return fmt.Errorf("unsupported queue driver: %s", qc.Driver)
	}
	return nil
}

// newIndex 创建语义索引：embedding + ES 向量存储 + Redis 分块账本
func newIndex(ctx context.Context, cfg *config.Config, embedder embedding.Embedder, redisClient *redis.Client, logger *zap.Logger) (*vectorindex.Index, error) {
	if cfg.Elastic.Host == "" {
		return nil, errors.New("elasticsearch host not configured")
	}
	if redisClient == nil {
		return nil, errors.New("redis not configured")
	}
	if embedder == nil {
		return nil, errors.New("embedding not configured")
	}

	esClient, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.Elastic.Host},
		Username:  cfg.Elastic.Username,
		Password:  cfg.Elastic.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("create es client: %w", err)
	}

	store := vectorindex.NewESStore(esClient, cfg.Elastic.IndexPrefix+"_vectors", cfg.AI.Embedding.Dimensions, logger)
	if err := store.EnsureIndex(ctx); err != nil {
		return nil, err
	}

	ledger := vectorindex.NewRedisLedger(redisClient, cfg.Elastic.IndexPrefix)
	return vectorindex.New(embedder, store, ledger, logger), nil
}

// newEmbedder 按配置创建 Embedding 器
func newEmbedder(ctx context.Context, cfg *config.EmbeddingConfig) (embedding.Embedder, error) {
	var timeout time.Duration
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}

	switch cfg.Provider {
	case "dashscope", "":
		if cfg.APIKey == "" {
			return nil, errors.New("embedding api_key is empty")
		}
		embCfg := &dashscope.EmbeddingConfig{
			APIKey:  cfg.APIKey,
			Model:   cfg.ModelName(),
			Timeout: timeout,
		}
		if cfg.Dimensions > 0 {
			embCfg.Dimensions = &cfg.Dimensions
		}
		return dashscope.NewEmbedder(ctx, embCfg)

	case "openai":
		if cfg.APIKey == "" {
			return nil, errors.New("embedding api_key is empty")
		}
		embCfg := &openaiemb.EmbeddingConfig{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
			Timeout: timeout,
		}
		if cfg.Dimensions > 0 {
			embCfg.Dimensions = &cfg.Dimensions
		}
		return openaiemb.NewEmbedder(ctx, embCfg)

	case "ollama":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return ollamaemb.NewEmbedder(ctx, &ollamaemb.EmbeddingConfig{
			BaseURL: baseURL,
			Model:   cfg.Model,
			Timeout: timeout,
		})

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}
