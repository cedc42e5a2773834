package llm

import "context"

// MockProvider is a test double for Provider.
type MockProvider struct {
	ProviderName        string
	CreateChatFunc      func(opts ChatOptions) Chat
	ListModelsFunc      func(ctx context.Context) ([]ModelInfo, error)
	GenerateContentFunc func(ctx context.Context, params GenerateParams) (*GenerateResult, error)
}

func (m *MockProvider) Name() string { return m.ProviderName }

func (m *MockProvider) CreateChat(opts ChatOptions) Chat {
	if m.CreateChatFunc != nil {
		return m.CreateChatFunc(opts)
	}
	return &MockChat{}
}

func (m *MockProvider) ListModels(ctx context.Context) ([]ModelInfo, error) {
	if m.ListModelsFunc != nil {
		return m.ListModelsFunc(ctx)
	}
	return []ModelInfo{{Name: "mock-model", DisplayName: "Mock Model"}}, nil
}

func (m *MockProvider) GenerateContent(ctx context.Context, params GenerateParams) (*GenerateResult, error) {
	if m.GenerateContentFunc != nil {
		return m.GenerateContentFunc(ctx, params)
	}
	return &GenerateResult{Text: "mock generation"}, nil
}

// MockChat is a test double for Chat.
type MockChat struct {
	SendMessageFunc func(ctx context.Context, params MessageParams) (*ChatResponse, error)

	// Sent records every params value passed to SendMessage.
	Sent []MessageParams
}

func (m *MockChat) SendMessage(ctx context.Context, params MessageParams) (*ChatResponse, error) {
	m.Sent = append(m.Sent, params)
	if m.SendMessageFunc != nil {
		return m.SendMessageFunc(ctx, params)
	}
	return &ChatResponse{Text: "mock response"}, nil
}
