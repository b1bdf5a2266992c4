package run

import (
	"errors"
	"fmt"
)

// ErrRunNotFound 运行不存在
var ErrRunNotFound = errors.New("run not found")

// InputError 运行引用的数据缺失或不合法，重试无法恢复
type InputError struct {
	RunID  string
	Reason string
	Err    error
}

func (e *InputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("run %s: %s: %v", e.RunID, e.Reason, e.Err)
	}
	return fmt.Sprintf("run %s: %s", e.RunID, e.Reason)
}

func (e *InputError) Unwrap() error { return e.Err }

// IsInputError 判断是否为输入错误
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}
