// Package vectorindex 维护消息内容的语义索引：分块、向量化、写入与按来源删除
package vectorindex

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/embedding"
	"go.uber.org/zap"

	"github.com/ashwinyue/next-assistants/internal/metrics"
	"github.com/ashwinyue/next-assistants/internal/service/chunk"
)

// Index 语义索引
type Index struct {
	embedder embedding.Embedder
	store    Store
	ledger   Ledger
	logger   *zap.Logger
}

// New 创建语义索引
func New(embedder embedding.Embedder, store Store, ledger Ledger, logger *zap.Logger) *Index {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Index{
		embedder: embedder,
		store:    store,
		ledger:   ledger,
		logger:   logger,
	}
}

// Index 把 text 分块、向量化后以 "{sourceID}-{i}" 写入。
// 重新索引同一来源时，多出来的旧分块会被删除。
func (x *Index) Index(ctx context.Context, sourceID, text string) error {
	if err := validateSourceID(sourceID); err != nil {
		return err
	}

	var chunks []string
	if strings.TrimSpace(text) != "" {
		chunks = chunk.Split(text)
	}

	prev, err := x.ledger.Get(ctx, sourceID)
	if err != nil {
		return fmt.Errorf("read chunk count: %w", err)
	}

	if len(chunks) > 0 {
		vectors, err := x.embedder.EmbedStrings(ctx, chunks)
		if err != nil {
			return fmt.Errorf("embed %s: %w", sourceID, err)
		}
		if len(vectors) != len(chunks) {
			return fmt.Errorf("embed %s: got %d vectors for %d chunks", sourceID, len(vectors), len(chunks))
		}

		// 先记录较大的分块数，写入中途失败时删除仍能覆盖所有条目
		if len(chunks) > prev {
			if err := x.ledger.Set(ctx, sourceID, len(chunks)); err != nil {
				return fmt.Errorf("record chunk count: %w", err)
			}
		}

		entries := make([]Entry, len(chunks))
		for i, c := range chunks {
			entries[i] = Entry{
				Key:     Key{SourceID: sourceID, ChunkIndex: i},
				Content: c,
				Vector:  vectors[i],
			}
		}
		if err := x.store.Upsert(ctx, entries); err != nil {
			return fmt.Errorf("upsert %s: %w", sourceID, err)
		}
		metrics.VectorChunksIndexed.Add(float64(len(entries)))
	}

	if prev > len(chunks) {
		stale := keys(sourceID, len(chunks), prev)
		if err := x.store.Delete(ctx, stale); err != nil {
			return fmt.Errorf("delete stale chunks of %s: %w", sourceID, err)
		}
	}
	if prev != len(chunks) {
		if len(chunks) == 0 {
			err = x.ledger.Delete(ctx, sourceID)
		} else {
			err = x.ledger.Set(ctx, sourceID, len(chunks))
		}
		if err != nil {
			return fmt.Errorf("record chunk count: %w", err)
		}
	}

	x.logger.Debug("indexed source", zap.String("source_id", sourceID), zap.Int("chunks", len(chunks)))
	return nil
}

// Query 返回与 text 最相近的来源 ID，按相关度排序并去重
func (x *Index) Query(ctx context.Context, text string, topK int) ([]string, error) {
	if topK <= 0 {
		return nil, nil
	}
	vectors, err := x.embedder.EmbedStrings(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors", len(vectors))
	}

	matches, err := x.store.Query(ctx, vectors[0], topK)
	if err != nil {
		return nil, fmt.Errorf("query vectors: %w", err)
	}

	seen := make(map[string]struct{}, len(matches))
	sources := make([]string, 0, len(matches))
	for _, m := range matches {
		key, err := ParseKey(m.ID)
		if err != nil {
			x.logger.Warn("skip unknown vector id", zap.String("id", m.ID))
			continue
		}
		if _, ok := seen[key.SourceID]; ok {
			continue
		}
		seen[key.SourceID] = struct{}{}
		sources = append(sources, key.SourceID)
	}
	return sources, nil
}

// DeleteBySource 删除各来源的全部分块 "{id}-0" ... "{id}-{n-1}"
func (x *Index) DeleteBySource(ctx context.Context, sourceIDs []string) error {
	var ids []string
	var known []string
	for _, sourceID := range sourceIDs {
		if err := validateSourceID(sourceID); err != nil {
			return err
		}
		n, err := x.ledger.Get(ctx, sourceID)
		if err != nil {
			return fmt.Errorf("read chunk count: %w", err)
		}
		if n == 0 {
			continue
		}
		ids = append(ids, keys(sourceID, 0, n)...)
		known = append(known, sourceID)
	}
	if len(ids) == 0 {
		return nil
	}

	if err := x.store.Delete(ctx, ids); err != nil {
		return fmt.Errorf("delete vectors: %w", err)
	}
	if err := x.ledger.Delete(ctx, known...); err != nil {
		return fmt.Errorf("forget chunk count: %w", err)
	}
	return nil
}

func keys(sourceID string, from, to int) []string {
	out := make([]string, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, Key{SourceID: sourceID, ChunkIndex: i}.String())
	}
	return out
}
