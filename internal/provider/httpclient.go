// Package provider – self-hosted endpoints
//
// HTTPClient speaks Ollama's /api/chat and the OpenAI-compatible
// /chat/completions API over resty.
package provider

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Kinds of HTTP-backed providers.
const (
	KindOllama     = "ollama"
	KindCompatible = "openai_compatible"
)

// HTTPClient is a Provider for self-hosted endpoints: Ollama's /api/chat or
// any OpenAI-compatible /chat/completions server (vLLM, LM Studio, OpenRouter).
type HTTPClient struct {
	kind        string
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	http        *resty.Client
}

// HTTPOptions configures NewHTTPClient.
type HTTPOptions struct {
	Kind        string
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// NewHTTPClient builds an Ollama or OpenAI-compatible provider.
func NewHTTPClient(o HTTPOptions) *HTTPClient {
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	base := strings.TrimRight(o.BaseURL, "/")
	if base == "" && o.Kind == KindOllama {
		base = "http://localhost:11434"
	}
	return &HTTPClient{
		kind:        o.Kind,
		baseURL:     base,
		apiKey:      o.APIKey,
		model:       o.Model,
		temperature: o.Temperature,
		maxTokens:   o.MaxTokens,
		http:        resty.New().SetTimeout(timeout),
	}
}

func (c *HTTPClient) Name() string  { return c.kind }
func (c *HTTPClient) Model() string { return c.model }

func (c *HTTPClient) Complete(ctx context.Context, req Request) (Completion, error) {
	if c.kind == KindOllama {
		return c.completeOllama(ctx, req)
	}
	return c.completeCompatible(ctx, req)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (c *HTTPClient) messages(prompt string) []chatMessage {
	return []chatMessage{
		{Role: "system", Content: defaultSystemPrompt},
		{Role: "user", Content: prompt},
	}
}

func (c *HTTPClient) completeOllama(ctx context.Context, req Request) (Completion, error) {
	// Ollama accepts either "json" or a JSON schema object as format.
	var format any = "json"
	if len(req.Schema) > 0 {
		format = req.Schema
	}
	body := map[string]any{
		"model":    c.model,
		"messages": c.messages(req.Prompt),
		"stream":   false,
		"format":   format,
		"options":  map[string]any{"temperature": c.temperature},
	}
	var resp struct {
		Model           string      `json:"model"`
		Message         chatMessage `json:"message"`
		PromptEvalCount int         `json:"prompt_eval_count"`
		EvalCount       int         `json:"eval_count"`
	}
	rr, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&resp).
		Post(c.baseURL + "/api/chat")
	if err != nil {
		return Completion{}, err
	}
	if rr.IsError() {
		return Completion{}, c.statusErr(rr)
	}
	return Completion{
		Content: resp.Message.Content,
		Model:   resp.Model,
		Usage: Usage{
			PromptTokens:     resp.PromptEvalCount,
			CompletionTokens: resp.EvalCount,
			TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
		},
	}, nil
}

func (c *HTTPClient) completeCompatible(ctx context.Context, req Request) (Completion, error) {
	body := map[string]any{
		"model":           c.model,
		"messages":        c.messages(req.Prompt),
		"temperature":     c.temperature,
		"response_format": map[string]any{"type": "json_object"},
	}
	if c.maxTokens > 0 {
		body["max_tokens"] = c.maxTokens
	}
	if len(req.Schema) > 0 {
		name := req.SchemaName
		if name == "" {
			name = "translation"
		}
		body["response_format"] = map[string]any{
			"type":        "json_schema",
			"json_schema": map[string]any{"name": name, "schema": req.Schema},
		}
	}

	var resp struct {
		Model   string `json:"model"`
		Choices []struct {
			Message chatMessage `json:"message"`
		} `json:"choices"`
		Usage Usage `json:"usage"`
	}
	post := func() (*resty.Response, error) {
		r := c.http.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetBody(body).
			SetResult(&resp)
		if c.apiKey != "" {
			r.SetAuthToken(c.apiKey)
		}
		return r.Post(c.baseURL + "/chat/completions")
	}

	rr, err := post()
	if err != nil {
		return Completion{}, err
	}
	if rr.StatusCode() == http.StatusBadRequest && len(req.Schema) > 0 {
		// Structured outputs unsupported; retry once with plain JSON mode.
		body["response_format"] = map[string]any{"type": "json_object"}
		if rr, err = post(); err != nil {
			return Completion{}, err
		}
	}
	if rr.IsError() {
		return Completion{}, c.statusErr(rr)
	}
	if len(resp.Choices) == 0 {
		return Completion{}, errors.New(c.kind + ": no choices returned")
	}
	return Completion{Content: resp.Choices[0].Message.Content, Model: resp.Model, Usage: resp.Usage}, nil
}

func (c *HTTPClient) statusErr(rr *resty.Response) error {
	return &StatusError{Provider: c.kind, Code: rr.StatusCode(), Body: truncate(rr.String(), 300)}
}
