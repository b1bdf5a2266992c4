package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"
)

const vectorField = "content_vector"

// ESStore 基于 Elasticsearch dense_vector 的向量存储，文档 _id 即向量 ID
type ESStore struct {
	client     *elasticsearch.Client
	index      string
	dimensions int
	logger     *zap.Logger
}

// NewESStore 创建 ES 向量存储
func NewESStore(client *elasticsearch.Client, index string, dimensions int, logger *zap.Logger) *ESStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dimensions <= 0 {
		dimensions = 1024
	}
	return &ESStore{client: client, index: index, dimensions: dimensions, logger: logger}
}

// EnsureIndex 确保索引存在（如不存在则创建）
func (s *ESStore) EnsureIndex(ctx context.Context) error {
	res, err := esapi.IndicesExistsRequest{Index: []string{s.index}}.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("failed to check index existence: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	mapping := map[string]any{
		"mappings": map[string]any{
			"properties": map[string]any{
				"source_id":   map[string]any{"type": "keyword"},
				"chunk_index": map[string]any{"type": "integer"},
				"content":     map[string]any{"type": "text", "index": false},
				vectorField: map[string]any{
					"type":       "dense_vector",
					"dims":       s.dimensions,
					"index":      true,
					"similarity": "cosine",
				},
			},
		},
		"settings": map[string]any{
			"number_of_shards":   1,
			"number_of_replicas": 0,
		},
	}
	body, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}

	res, err = esapi.IndicesCreateRequest{Index: s.index, Body: bytes.NewReader(body)}.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("failed to create index: %s", res.String())
	}

	s.logger.Info("vector index created", zap.String("index", s.index), zap.Int("dimensions", s.dimensions))
	return nil
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string          `json:"_id"`
		Status int             `json:"status"`
		Error  json.RawMessage `json:"error"`
	} `json:"items"`
}

// Upsert 批量写入，部分失败时返回 *PartialUpsertError
func (s *ESStore) Upsert(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, e := range entries {
		if err := enc.Encode(map[string]any{"index": map[string]any{"_index": s.index, "_id": e.Key.String()}}); err != nil {
			return err
		}
		if err := enc.Encode(map[string]any{
			"source_id":   e.Key.SourceID,
			"chunk_index": e.Key.ChunkIndex,
			"content":     e.Content,
			vectorField:   e.Vector,
		}); err != nil {
			return err
		}
	}

	failed, err := s.bulk(ctx, &buf, func(status int) bool { return status < 300 })
	if err != nil {
		return err
	}
	if len(failed) > 0 {
		return &PartialUpsertError{Failed: failed}
	}
	return nil
}

// Delete 批量删除，不存在的 ID 视为已删除
func (s *ESStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, id := range ids {
		if err := enc.Encode(map[string]any{"delete": map[string]any{"_index": s.index, "_id": id}}); err != nil {
			return err
		}
	}

	failed, err := s.bulk(ctx, &buf, func(status int) bool {
		return status < 300 || status == http.StatusNotFound
	})
	if err != nil {
		return err
	}
	if len(failed) > 0 {
		return fmt.Errorf("delete failed for %d vectors: %v", len(failed), failed)
	}
	return nil
}

func (s *ESStore) bulk(ctx context.Context, body *bytes.Buffer, ok func(status int) bool) ([]string, error) {
	res, err := esapi.BulkRequest{
		Index:   s.index,
		Body:    body,
		Refresh: "wait_for",
	}.Do(ctx, s.client)
	if err != nil {
		return nil, fmt.Errorf("bulk request: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("bulk request: %s", res.String())
	}

	var br bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&br); err != nil {
		return nil, fmt.Errorf("decode bulk response: %w", err)
	}

	var failed []string
	for _, item := range br.Items {
		for _, result := range item {
			if !ok(result.Status) {
				s.logger.Warn("bulk item failed",
					zap.String("id", result.ID),
					zap.Int("status", result.Status),
					zap.ByteString("error", result.Error))
				failed = append(failed, result.ID)
			}
		}
	}
	return failed, nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID    string  `json:"_id"`
			Score float64 `json:"_score"`
		} `json:"hits"`
	} `json:"hits"`
}

// Query kNN 近邻查询
func (s *ESStore) Query(ctx context.Context, vector []float64, topK int) ([]Match, error) {
	query := map[string]any{
		"knn": map[string]any{
			"field":          vectorField,
			"query_vector":   vector,
			"k":              topK,
			"num_candidates": max(topK*10, 100),
		},
		"_source": false,
		"size":    topK,
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  bytes.NewReader(body),
	}.Do(ctx, s.client)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search request: %s", res.String())
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	matches := make([]Match, 0, len(sr.Hits.Hits))
	for _, h := range sr.Hits.Hits {
		matches = append(matches, Match{ID: h.ID, Score: h.Score})
	}
	return matches, nil
}
