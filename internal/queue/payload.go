package queue

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

var (
	// ErrEmptyPayload 投递内容为空
	ErrEmptyPayload = errors.New("empty payload")
	// ErrMalformedPayload 投递内容无法解析出运行 ID
	ErrMalformedPayload = errors.New("malformed payload")
)

type envelope struct {
	RunID json.RawMessage `json:"run_id"`
}

// EncodeRunID 编码为 {"run_id": "..."}
func EncodeRunID(runID string) []byte {
	b, _ := json.Marshal(map[string]string{"run_id": runID})
	return b
}

// DecodeRunID 解析投递内容。支持 {"run_id": ...}、JSON 字符串与裸 ID；
// 残缺的 JSON 先尝试修复。
func DecodeRunID(body []byte) (string, error) {
	s := strings.TrimSpace(string(body))
	if s == "" {
		return "", ErrEmptyPayload
	}
	if s[0] != '{' && s[0] != '"' {
		return s, nil
	}

	if !json.Valid([]byte(s)) {
		repaired, err := jsonrepair.JSONRepair(s)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		s = repaired
	}

	if s[0] == '"' {
		var id string
		if err := json.Unmarshal([]byte(s), &id); err != nil {
			return "", fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		return nonEmpty(id)
	}

	var env envelope
	if err := json.Unmarshal([]byte(s), &env); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	raw := bytes.TrimSpace(env.RunID)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", fmt.Errorf("%w: missing run_id", ErrMalformedPayload)
	}
	if raw[0] == '"' {
		var id string
		if err := json.Unmarshal(raw, &id); err != nil {
			return "", fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		return nonEmpty(id)
	}
	// 数字等原始值按字面量处理
	return nonEmpty(string(raw))
}

func nonEmpty(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrEmptyPayload
	}
	return id, nil
}
