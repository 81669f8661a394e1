// Package provider – construction from configuration
package provider

import (
	"fmt"

	"github.com/tbourn/go-translate-backend/internal/config"
)

// FromConfig builds the Provider selected by cfg.Kind.
func FromConfig(cfg config.ProviderConfig) (Provider, error) {
	switch cfg.Kind {
	case "openai":
		return NewOpenAI(OpenAIOptions{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: float32(cfg.Temperature),
			HTTPTimeout: cfg.Timeout,
		}), nil
	case KindOllama, KindCompatible:
		return NewHTTPClient(HTTPOptions{
			Kind:        cfg.Kind,
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Timeout:     cfg.Timeout,
		}), nil
	case "scripted":
		s := NewScripted()
		s.ModelID = cfg.Model
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported provider %q", cfg.Kind)
	}
}

// GatewayFromConfig wires a Gateway around p using cfg's retry policy,
// timeout and throttle.
func GatewayFromConfig(p Provider, cfg config.ProviderConfig) *Gateway {
	return NewGateway(p, RetryPolicy{
		MaxAttempts: cfg.MaxAttempts,
		Delay:       cfg.RetryDelay,
		Multiplier:  cfg.Backoff,
		MaxDelay:    cfg.MaxDelay,
	}, cfg.Timeout, cfg.RPS)
}
