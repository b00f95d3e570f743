package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-1.5-flash"

// GeminiProvider implements AIProvider over the Gemini API. Tool schemas
// declared for OpenAI are converted to genai schemas on the fly.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider creates a provider for the given API key and model.
// An empty model selects gemini-1.5-flash.
func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiProvider{client: client, model: model}, nil
}

// Close releases the underlying client connection.
func (p *GeminiProvider) Close() error {
	return p.client.Close()
}

func (p *GeminiProvider) ChatCompletion(ctx context.Context, params ChatParams) (*ChatResult, error) {
	model := p.generativeModel(params, true)

	resp, err := model.GenerateContent(ctx, genai.Text(params.UserMessage))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}
	return fromGeminiResponse(resp)
}

func (p *GeminiProvider) ChatFollowUp(ctx context.Context, params ChatParams, calls []ToolCall, results []ToolResult) (*ChatResult, error) {
	model := p.generativeModel(params, false)

	modelParts := make([]genai.Part, 0, len(calls))
	for _, c := range calls {
		var args map[string]any
		if err := json.Unmarshal([]byte(c.Arguments), &args); err != nil {
			args = map[string]any{}
		}
		modelParts = append(modelParts, genai.FunctionCall{Name: c.Name, Args: args})
	}

	session := model.StartChat()
	session.History = []*genai.Content{
		{Role: "user", Parts: []genai.Part{genai.Text(params.UserMessage)}},
		{Role: "model", Parts: modelParts},
	}

	contentByID := make(map[string]string, len(results))
	for _, r := range results {
		contentByID[r.CallID] = r.Content
	}
	responseParts := make([]genai.Part, 0, len(calls))
	for _, c := range calls {
		responseParts = append(responseParts, genai.FunctionResponse{
			Name:     c.Name,
			Response: map[string]any{"result": contentByID[c.ID]},
		})
	}

	resp, err := session.SendMessage(ctx, responseParts...)
	if err != nil {
		return nil, fmt.Errorf("failed to send tool results: %w", err)
	}
	return fromGeminiResponse(resp)
}

// generativeModel configures a model for one call. withTools controls
// whether the tool declarations are attached; follow-up turns omit them.
func (p *GeminiProvider) generativeModel(params ChatParams, withTools bool) *genai.GenerativeModel {
	model := p.client.GenerativeModel(p.model)
	model.SetTemperature(params.Temperature)
	if params.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(params.MaxTokens))
	}
	if params.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(params.System)}}
	}

	if withTools && len(params.Tools) > 0 {
		declarations := make([]*genai.FunctionDeclaration, 0, len(params.Tools))
		for _, t := range params.Tools {
			declarations = append(declarations, &genai.FunctionDeclaration{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  toGenaiSchema(t.Parameters),
			})
		}
		model.Tools = []*genai.Tool{{FunctionDeclarations: declarations}}
		if params.ForcedTool != "" {
			model.ToolConfig = &genai.ToolConfig{
				FunctionCallingConfig: &genai.FunctionCallingConfig{
					Mode:                 genai.FunctionCallingAny,
					AllowedFunctionNames: []string{params.ForcedTool},
				},
			}
		}
	}
	return model
}

func fromGeminiResponse(resp *genai.GenerateContentResponse) (*ChatResult, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("model returned no candidates")
	}

	result := &ChatResult{}
	for _, part := range resp.Candidates[0].Content.Parts {
		switch v := part.(type) {
		case genai.Text:
			result.Content += string(v)
		case genai.FunctionCall:
			args, err := json.Marshal(v.Args)
			if err != nil {
				args = []byte("{}")
			}
			// Gemini does not assign call ids; synthesize stable ones so
			// results can be matched back on the follow-up turn.
			result.ToolCalls = append(result.ToolCalls, ToolCall{
				ID:        fmt.Sprintf("call_%d", len(result.ToolCalls)),
				Name:      v.Name,
				Arguments: string(args),
			})
		}
	}
	return result, nil
}

func toGenaiSchema(def jsonschema.Definition) *genai.Schema {
	schema := &genai.Schema{
		Description: def.Description,
		Enum:        def.Enum,
	}
	switch def.Type {
	case jsonschema.Object:
		schema.Type = genai.TypeObject
		schema.Required = def.Required
		if len(def.Properties) > 0 {
			schema.Properties = make(map[string]*genai.Schema, len(def.Properties))
			for name, prop := range def.Properties {
				schema.Properties[name] = toGenaiSchema(prop)
			}
		}
	case jsonschema.Array:
		schema.Type = genai.TypeArray
		if def.Items != nil {
			schema.Items = toGenaiSchema(*def.Items)
		}
	case jsonschema.Number:
		schema.Type = genai.TypeNumber
	case jsonschema.Integer:
		schema.Type = genai.TypeInteger
	case jsonschema.Boolean:
		schema.Type = genai.TypeBoolean
	default:
		schema.Type = genai.TypeString
	}
	return schema
}
