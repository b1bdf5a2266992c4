package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
)

// SSEInvoker Workers AI 风格的推理接口：
// POST {baseURL}/{accountID}/ai/run/{model}，响应为 text/event-stream，
// 每行 `data: {"response": "..."}`，以 `data: [DONE]` 结束。
type SSEInvoker struct {
	httpClient *http.Client
	baseURL    string
	accountID  string
	token      string
	model      string
}

// NewSSEInvoker 创建 SSE 调用器
func NewSSEInvoker(baseURL, accountID, token, model string, timeout time.Duration) *SSEInvoker {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &SSEInvoker{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		accountID:  accountID,
		token:      token,
		model:      model,
	}
}

type sseMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Stream 响应的每一行原样作为分片输出
func (s *SSEInvoker) Stream(ctx context.Context, req *Request) (*schema.StreamReader[string], error) {
	modelName := s.model
	if req.Model != "" {
		modelName = req.Model
	}

	messages := make([]sseMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, sseMessage{Role: string(m.Role), Content: m.Content})
	}
	body, err := json.Marshal(map[string]any{"messages": messages, "stream": true})
	if err != nil {
		return nil, err
	}

	endpoint := s.baseURL + "/ai/run/" + modelName
	if s.accountID != "" {
		endpoint = s.baseURL + "/" + s.accountID + "/ai/run/" + modelName
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if s.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("inference request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("inference request: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	sr, sw := schema.Pipe[string](16)
	go func() {
		defer sw.Close()
		defer resp.Body.Close()

		sc := bufio.NewScanner(resp.Body)
		sc.Buffer(make([]byte, 64*1024), 1024*1024)
		for sc.Scan() {
			if closed := sw.Send(sc.Text(), nil); closed {
				return
			}
		}
		if err := sc.Err(); err != nil {
			sw.Send("", err)
		}
	}()

	return sr, nil
}
