package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNew_SelectsProvider(t *testing.T) {
	t.Run("openai", func(t *testing.T) {
		gen, err := New(ProviderConfig{Provider: ProviderOpenAI, APIKey: "sk-test"})
		require.NoError(t, err)
		assert.IsType(t, &OpenAIGenerator{}, gen)
	})

	t.Run("openai without key", func(t *testing.T) {
		_, err := New(ProviderConfig{Provider: ProviderOpenAI})
		assert.Error(t, err)
	})

	t.Run("ollama", func(t *testing.T) {
		gen, err := New(ProviderConfig{Provider: ProviderOllama})
		require.NoError(t, err)
		assert.IsType(t, &OllamaGenerator{}, gen)
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := New(ProviderConfig{Provider: "gguf"})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported llm provider")
	})
}

// MockChatCompletionAPI mocks the OpenAI chat completion API
type MockChatCompletionAPI struct {
	mock.Mock
}

func (m *MockChatCompletionAPI) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(openai.ChatCompletionResponse), args.Error(1)
}

func TestOpenAIGenerator_Generate(t *testing.T) {
	mockAPI := new(MockChatCompletionAPI)
	gen := &OpenAIGenerator{api: mockAPI, model: "gpt-4o-mini"}

	ctx := context.Background()
	resp := openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: "  General response.  "}},
		},
	}

	mockAPI.On("CreateChatCompletion", ctx, mock.MatchedBy(func(req openai.ChatCompletionRequest) bool {
		return req.Model == "gpt-4o-mini" &&
			req.MaxTokens == 256 &&
			len(req.Messages) == 1 &&
			req.Messages[0].Content == "user: hi\nbot:"
	})).Return(resp, nil)

	out, err := gen.Generate(ctx, "user: hi\nbot:", Options{MaxTokens: 256})

	require.NoError(t, err)
	assert.Equal(t, "General response.", out)
	mockAPI.AssertExpectations(t)
}

func TestOpenAIGenerator_Generate_NoChoices(t *testing.T) {
	mockAPI := new(MockChatCompletionAPI)
	gen := &OpenAIGenerator{api: mockAPI, model: "gpt-4o-mini"}

	mockAPI.On("CreateChatCompletion", mock.Anything, mock.Anything).
		Return(openai.ChatCompletionResponse{}, nil)

	_, err := gen.Generate(context.Background(), "prompt", Options{})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no completion choices")
}

func TestOllamaGenerator_Generate(t *testing.T) {
	var gotReq ollamaGenerateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(ollamaGenerateResponse{Response: "9 to 5\n", Done: true})
	}))
	defer server.Close()

	gen := NewOllamaGenerator(server.URL, "llama3.2")
	out, err := gen.Generate(context.Background(), "what are your store hours?", Options{
		MaxTokens: 512,
		Stop:      []string{"</s>"},
	})

	require.NoError(t, err)
	assert.Equal(t, "9 to 5", out)
	assert.Equal(t, "llama3.2", gotReq.Model)
	assert.False(t, gotReq.Stream)
	assert.EqualValues(t, 512, gotReq.Options["num_predict"])
}

func TestOllamaGenerator_Generate_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	gen := NewOllamaGenerator(server.URL, "")
	_, err := gen.Generate(context.Background(), "prompt", Options{})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}
