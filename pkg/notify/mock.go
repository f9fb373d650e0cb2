package notify

import (
	"context"
	"sync"
)

// MockDispatcher 记录所有消息的派发器（测试使用）
type MockDispatcher struct {
	mu       sync.Mutex
	Messages []*Message
	FailNext bool
}

// NewMockDispatcher 创建测试派发器
func NewMockDispatcher() *MockDispatcher {
	return &MockDispatcher{}
}

// Send 记录消息
func (d *MockDispatcher) Send(ctx context.Context, msg *Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.FailNext {
		d.FailNext = false
		return context.Canceled
	}
	d.Messages = append(d.Messages, msg)
	return nil
}

// CountByKind 统计某类型消息数量
func (d *MockDispatcher) CountByKind(kind string) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := 0
	for _, m := range d.Messages {
		if m.Kind == kind {
			n++
		}
	}
	return n
}
