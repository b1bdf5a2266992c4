// Package worker 运行处理器的消费循环
package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ashwinyue/next-assistants/internal/queue"
)

// BatchHandler 处理一批投递，负责确认
type BatchHandler interface {
	HandleBatch(ctx context.Context, deliveries []*queue.Delivery)
}

// Options 消费参数
type Options struct {
	BatchSize int
	// MetricsAddr 非空时在该地址暴露 /metrics
	MetricsAddr string
	// RetryDelay 拉取失败后的等待时间
	RetryDelay time.Duration
}

// Worker 并发地从队列拉取并处理运行
type Worker struct {
	consumers []queue.Consumer
	handler   BatchHandler
	opts      Options
	logger    *zap.Logger
}

// New 创建 Worker。consumers 的数量即并发度，每个消费者独占一个循环。
func New(consumers []queue.Consumer, handler BatchHandler, opts Options, logger *zap.Logger) (*Worker, error) {
	if len(consumers) == 0 {
		return nil, errors.New("worker: at least one consumer required")
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{consumers: consumers, handler: handler, opts: opts, logger: logger}, nil
}

// Run 阻塞直到 ctx 结束。当前批次会在退出前处理完。
func (w *Worker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if w.opts.MetricsAddr != "" {
		srv := &http.Server{Addr: w.opts.MetricsAddr, Handler: metricsMux()}
		g.Go(func() error {
			w.logger.Info("metrics server listening", zap.String("addr", w.opts.MetricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	for i, c := range w.consumers {
		logger := w.logger.With(zap.Int("consumer", i))
		g.Go(func() error {
			w.loop(ctx, c, logger)
			return nil
		})
	}

	w.logger.Info("worker started",
		zap.Int("concurrency", len(w.consumers)),
		zap.Int("batch_size", w.opts.BatchSize))
	return g.Wait()
}

func (w *Worker) loop(ctx context.Context, c queue.Consumer, logger *zap.Logger) {
	for {
		if ctx.Err() != nil {
			return
		}

		batch, err := c.Fetch(ctx, w.opts.BatchSize)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, queue.ErrClosed) {
				return
			}
			logger.Error("failed to fetch deliveries", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.opts.RetryDelay):
			}
			continue
		}
		if len(batch) == 0 {
			continue
		}

		// 已拉取的批次不随 ctx 取消而中断，避免运行停在 in_progress
		w.handler.HandleBatch(context.WithoutCancel(ctx), batch)
	}
}

func metricsMux() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}
