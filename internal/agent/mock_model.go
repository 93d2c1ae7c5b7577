package agent

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// MockChatClient 是一个用于测试的模拟聊天模型
// 如果 SequentialResponses 非空，每次Generate依次返回其中的一条；
// 否则始终返回 ResponseContent。
type MockChatClient struct {
	ResponseContent     string
	Err                 error
	GenerateCalled      bool
	ReceivedMessages    []*schema.Message
	SequentialResponses []string
	ResponseIndex       int
}

// Generate 模拟生成回复
func (m *MockChatClient) Generate(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.Message, error) {
	m.GenerateCalled = true
	m.ReceivedMessages = messages

	if m.Err != nil {
		return nil, m.Err
	}

	content := m.ResponseContent
	if len(m.SequentialResponses) > 0 {
		if m.ResponseIndex >= len(m.SequentialResponses) {
			return nil, fmt.Errorf("MockChatClient: 预设回复已耗尽 (index %d)", m.ResponseIndex)
		}
		content = m.SequentialResponses[m.ResponseIndex]
		m.ResponseIndex++
	}

	return &schema.Message{
		Role:    schema.Assistant,
		Content: content,
	}, nil
}

// Stream 模拟流式回复 (未实现)
func (m *MockChatClient) Stream(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("MockChatClient 的 Stream 方法未实现")
}

// BindTools 模拟绑定工具
func (m *MockChatClient) BindTools(tools []*schema.ToolInfo) error {
	return nil
}

// WithTools 满足 model.ToolCallingChatModel 接口
func (m *MockChatClient) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

var _ model.ToolCallingChatModel = (*MockChatClient)(nil)
