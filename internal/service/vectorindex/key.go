package vectorindex

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const keySeparator = "-"

// ErrInvalidSourceID 来源 ID 为空或包含分隔符
var ErrInvalidSourceID = errors.New("invalid source id")

// Key 向量条目的结构化标识：来源 ID 与分块序号
type Key struct {
	SourceID   string
	ChunkIndex int
}

// String 编码为存储层使用的 "{sourceId}-{i}"
func (k Key) String() string {
	return k.SourceID + keySeparator + strconv.Itoa(k.ChunkIndex)
}

// ParseKey 从存储层 ID 解码，在第一个 "-" 处切分
func ParseKey(id string) (Key, error) {
	source, index, ok := strings.Cut(id, keySeparator)
	if !ok || source == "" {
		return Key{}, fmt.Errorf("malformed vector id %q", id)
	}
	i, err := strconv.Atoi(index)
	if err != nil || i < 0 {
		return Key{}, fmt.Errorf("malformed vector id %q", id)
	}
	return Key{SourceID: source, ChunkIndex: i}, nil
}

func validateSourceID(id string) error {
	if id == "" || strings.Contains(id, keySeparator) {
		return fmt.Errorf("%w: %q", ErrInvalidSourceID, id)
	}
	return nil
}
