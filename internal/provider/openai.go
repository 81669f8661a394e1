// Package provider – OpenAI
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

const defaultSystemPrompt = "You are a precise translation engine for website content. You answer with a single JSON object only."

// OpenAI is a Provider backed by the official chat completions API (or any
// endpoint speaking it, when BaseURL is set).
type OpenAI struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// OpenAIOptions configures NewOpenAI.
type OpenAIOptions struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	HTTPTimeout time.Duration
}

// NewOpenAI builds an OpenAI provider.
func NewOpenAI(o OpenAIOptions) *OpenAI {
	cfg := openai.DefaultConfig(o.APIKey)
	if o.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(o.BaseURL, "/")
	}
	if o.HTTPTimeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: o.HTTPTimeout}
	}
	model := o.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAI{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		maxTokens:   o.MaxTokens,
		temperature: o.Temperature,
	}
}

func (c *OpenAI) Name() string  { return "openai" }
func (c *OpenAI) Model() string { return c.model }

// jsonSchema adapts a schema map to the json.Marshaler go-openai expects.
type jsonSchema map[string]any

func (s jsonSchema) MarshalJSON() ([]byte, error) { return json.Marshal(map[string]any(s)) }

// Complete requests a JSON reply. When a schema is given it first asks for
// json_schema output and falls back to json_object if the endpoint rejects
// that with 400.
func (c *OpenAI) Complete(ctx context.Context, req Request) (Completion, error) {
	chat := openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: defaultSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}
	if len(req.Schema) > 0 {
		name := req.SchemaName
		if name == "" {
			name = "translation"
		}
		chat.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   name,
				Schema: jsonSchema(req.Schema),
			},
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, chat)
	if err != nil && chat.ResponseFormat.Type == openai.ChatCompletionResponseFormatTypeJSONSchema && statusOf(err) == http.StatusBadRequest {
		chat.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
		resp, err = c.client.CreateChatCompletion(ctx, chat)
	}
	if err != nil {
		return Completion{}, c.classify(err)
	}
	if len(resp.Choices) == 0 {
		return Completion{}, errors.New("openai: no response choices returned")
	}
	return Completion{
		Content: resp.Choices[0].Message.Content,
		Model:   resp.Model,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// statusOf extracts the HTTP status carried by go-openai errors (0 if none).
func statusOf(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

func (c *OpenAI) classify(err error) error {
	if code := statusOf(err); code > 0 {
		return &StatusError{Provider: c.Name(), Code: code, Body: truncate(err.Error(), 300)}
	}
	return err
}
