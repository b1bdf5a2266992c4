// Package callback 把 Eino 组件的执行事件写入 zap 日志
package callback

import (
	"context"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
)

// Logger 日志回调处理器，实现 callbacks.Handler
type Logger struct {
	logger      *zap.Logger
	enableDebug bool
}

// NewLogger 创建日志回调处理器
func NewLogger(logger *zap.Logger, enableDebug bool) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{logger: logger, enableDebug: enableDebug}
}

func runInfoFields(info *callbacks.RunInfo) []zap.Field {
	if info == nil {
		return nil
	}
	return []zap.Field{
		zap.String("name", info.Name),
		zap.String("type", info.Type),
		zap.String("component", string(info.Component)),
	}
}

// OnStart 组件执行开始
func (l *Logger) OnStart(ctx context.Context, info *callbacks.RunInfo, input callbacks.CallbackInput) context.Context {
	if l.enableDebug {
		l.logger.Debug("eino start", runInfoFields(info)...)
	}
	return ctx
}

// OnEnd 组件执行结束
func (l *Logger) OnEnd(ctx context.Context, info *callbacks.RunInfo, output callbacks.CallbackOutput) context.Context {
	if l.enableDebug {
		l.logger.Debug("eino end", runInfoFields(info)...)
	}
	return ctx
}

// OnError 组件执行出错
func (l *Logger) OnError(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
	l.logger.Warn("eino error", append(runInfoFields(info), zap.Error(err))...)
	return ctx
}

// OnStartWithStreamInput 流式输入开始
func (l *Logger) OnStartWithStreamInput(ctx context.Context, info *callbacks.RunInfo, input *schema.StreamReader[callbacks.CallbackInput]) context.Context {
	input.Close()
	if l.enableDebug {
		l.logger.Debug("eino stream input", runInfoFields(info)...)
	}
	return ctx
}

// OnEndWithStreamOutput 流式输出开始返回，副本流必须关闭
func (l *Logger) OnEndWithStreamOutput(ctx context.Context, info *callbacks.RunInfo, output *schema.StreamReader[callbacks.CallbackOutput]) context.Context {
	output.Close()
	if l.enableDebug {
		l.logger.Debug("eino stream output", runInfoFields(info)...)
	}
	return ctx
}

// SetupGlobalCallbacks 注册全局回调
func SetupGlobalCallbacks(logger *zap.Logger, enableDebug bool) {
	callbacks.AppendGlobalHandlers(NewLogger(logger, enableDebug))
	logger.Info("eino global callbacks registered", zap.Bool("debug", enableDebug))
}
