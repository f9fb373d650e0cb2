package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogDispatcher 将通知写入日志的派发器（开发环境默认实现）
type LogDispatcher struct {
	logger *zap.Logger
}

// NewLogDispatcher 创建日志派发器
func NewLogDispatcher(logger *zap.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

// Send 输出通知日志
func (d *LogDispatcher) Send(ctx context.Context, msg *Message) error {
	d.logger.Info("notification dispatched",
		zap.Int64("user_id", msg.UserID),
		zap.String("kind", msg.Kind),
		zap.String("title", msg.Title),
		zap.Any("payload", msg.Payload),
	)
	return nil
}
