package services

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = "gpt-4o-mini"

// ToolCall is one function invocation requested by the model. Arguments is
// the raw JSON string exactly as the model produced it.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// ToolResult carries the human-readable outcome of one executed tool call
// back into the follow-up model turn.
type ToolResult struct {
	CallID  string
	Content string
}

// ChatParams describes one chat-completion call.
type ChatParams struct {
	System      string
	UserMessage string
	MaxTokens   int
	Temperature float32
	Tools       []ToolDefinition
	// ForcedTool names the function the model must call; empty leaves the
	// choice to the model.
	ForcedTool string
}

// ChatResult is the model's answer: assistant text, tool calls, or both.
type ChatResult struct {
	Content   string
	ToolCalls []ToolCall
}

// AIProvider abstracts the language-model backend so the pipeline runs the
// same against OpenAI or Gemini.
type AIProvider interface {
	// ChatCompletion runs a system+user turn, optionally offering tools.
	ChatCompletion(ctx context.Context, params ChatParams) (*ChatResult, error)
	// ChatFollowUp replays the assistant's tool-call turn plus each tool's
	// string result and returns the synthesized reply. Tools are not
	// offered again.
	ChatFollowUp(ctx context.Context, params ChatParams, calls []ToolCall, results []ToolResult) (*ChatResult, error)
}

// OpenAIProvider implements AIProvider over the OpenAI chat-completions API.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates a provider for the given API key and model.
// An empty model selects gpt-4o-mini.
func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIProvider{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

func (p *OpenAIProvider) ChatCompletion(ctx context.Context, params ChatParams) (*ChatResult, error) {
	req := p.buildRequest(params)

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}
	return fromOpenAIMessage(resp.Choices[0].Message), nil
}

func (p *OpenAIProvider) ChatFollowUp(ctx context.Context, params ChatParams, calls []ToolCall, results []ToolResult) (*ChatResult, error) {
	assistantCalls := make([]openai.ToolCall, 0, len(calls))
	for _, c := range calls {
		assistantCalls = append(assistantCalls, openai.ToolCall{
			ID:   c.ID,
			Type: openai.ToolTypeFunction,
			Function: openai.FunctionCall{
				Name:      c.Name,
				Arguments: c.Arguments,
			},
		})
	}

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: params.System},
		{Role: openai.ChatMessageRoleUser, Content: params.UserMessage},
		{Role: openai.ChatMessageRoleAssistant, ToolCalls: assistantCalls},
	}
	for _, r := range results {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:       openai.ChatMessageRoleTool,
			Content:    r.Content,
			ToolCallID: r.CallID,
		})
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    messages,
		MaxTokens:   params.MaxTokens,
		Temperature: params.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create follow-up completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("follow-up completion returned no choices")
	}
	return fromOpenAIMessage(resp.Choices[0].Message), nil
}

func (p *OpenAIProvider) buildRequest(params ChatParams) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: params.System},
			{Role: openai.ChatMessageRoleUser, Content: params.UserMessage},
		},
		MaxTokens:   params.MaxTokens,
		Temperature: params.Temperature,
	}

	if len(params.Tools) > 0 {
		tools := make([]openai.Tool, 0, len(params.Tools))
		for _, t := range params.Tools {
			def := t
			tools = append(tools, openai.Tool{
				Type: openai.ToolTypeFunction,
				Function: &openai.FunctionDefinition{
					Name:        def.Name,
					Description: def.Description,
					Parameters:  def.Parameters,
				},
			})
		}
		req.Tools = tools
		if params.ForcedTool != "" {
			req.ToolChoice = openai.ToolChoice{
				Type:     openai.ToolTypeFunction,
				Function: openai.ToolFunction{Name: params.ForcedTool},
			}
		} else {
			req.ToolChoice = "auto"
		}
	}
	return req
}

func fromOpenAIMessage(msg openai.ChatCompletionMessage) *ChatResult {
	result := &ChatResult{Content: msg.Content}
	for _, tc := range msg.ToolCalls {
		result.ToolCalls = append(result.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return result
}
