// internal/llmclient/anthropic_client.go
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webpilot/api/schemas"
	"github.com/xkilldash9x/webpilot/internal/config"
)

const (
	providerAnthropic       = "anthropic"
	defaultAnthropicURL     = "https://api.anthropic.com/v1/messages"
	defaultAnthropicVersion = "2023-06-01"
	emptyResultText         = "(empty result)"
	maxErrorBodyBytes       = 4096
)

var wire = jsoniter.ConfigCompatibleWithStandardLibrary

// AnthropicClient talks to the Messages API over plain HTTP.
type AnthropicClient struct {
	apiKey     string
	endpoint   string
	version    string
	httpClient *http.Client
	logger     *zap.Logger
	config     config.LLMModelConfig
}

var _ schemas.ModelClient = (*AnthropicClient)(nil)

// -- Messages API wire structures (internal to this file) --

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float32            `json:"temperature"`
	Messages    []anthropicMessage `json:"messages"`
	Tools       []anthropicTool    `json:"tools,omitempty"`
}

type anthropicMessage struct {
	Role    string           `json:"role"`
	Content []anthropicBlock `json:"content"`
}

type anthropicBlock struct {
	Type      string           `json:"type"`
	Text      string           `json:"text,omitempty"`
	ID        string           `json:"id,omitempty"`
	Name      string           `json:"name,omitempty"`
	Input     json.RawMessage  `json:"input,omitempty"`
	ToolUseID string           `json:"tool_use_id,omitempty"`
	Content   []anthropicBlock `json:"content,omitempty"`
	IsError   bool             `json:"is_error,omitempty"`
	Source    *anthropicSource `json:"source,omitempty"`
}

type anthropicSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type anthropicTool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

type anthropicResponse struct {
	ID         string           `json:"id"`
	Content    []anthropicBlock `json:"content"`
	StopReason string           `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type anthropicErrorEnvelope struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewAnthropicClient initializes the client.
func NewAnthropicClient(cfg config.LLMModelConfig, logger *zap.Logger) (*AnthropicClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: %w", ErrMissingAPIKey)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultAnthropicURL
	}
	version := cfg.APIVersion
	if version == "" {
		version = defaultAnthropicVersion
	}

	return &AnthropicClient{
		apiKey:   cfg.APIKey,
		endpoint: endpoint,
		version:  version,
		config:   cfg,
		httpClient: &http.Client{
			Timeout: cfg.APITimeout,
		},
		logger: logger.Named("llm_client.anthropic"),
	}, nil
}

// Complete sends one Messages API request. Every failure is returned as a
// *TransportError.
func (c *AnthropicClient) Complete(ctx context.Context, req schemas.ModelRequest) (*schemas.ModelResponse, error) {
	body, err := wire.Marshal(c.buildRequestPayload(req))
	if err != nil {
		return nil, transportErr(providerAnthropic, 0, err, "failed to marshal request payload: %v", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, transportErr(providerAnthropic, 0, err, "failed to create HTTP request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", c.version)

	startTime := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	duration := time.Since(startTime)
	if err != nil {
		return nil, transportErr(providerAnthropic, 0, err, "failed to execute HTTP request: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportErr(providerAnthropic, resp.StatusCode, err, "failed to read response body: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.handleAPIError(resp.StatusCode, respBody)
	}

	var payload anthropicResponse
	if err := wire.Unmarshal(respBody, &payload); err != nil {
		return nil, transportErr(providerAnthropic, resp.StatusCode, err, "failed to decode response payload: %v", err)
	}

	c.logger.Debug("Model turn complete (Anthropic)",
		zap.String("message_id", payload.ID),
		zap.Duration("duration", duration),
		zap.String("stop_reason", payload.StopReason),
		zap.Int("input_tokens", payload.Usage.InputTokens),
		zap.Int("output_tokens", payload.Usage.OutputTokens),
	)
	return c.parseResponse(payload), nil
}

func (c *AnthropicClient) buildRequestPayload(req schemas.ModelRequest) anthropicRequest {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.config.MaxTokens
	}

	payload := anthropicRequest{
		Model:       c.config.Model,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
		Messages:    make([]anthropicMessage, 0, len(req.Messages)),
	}
	for _, msg := range req.Messages {
		payload.Messages = append(payload.Messages, anthropicMessage{
			Role:    string(msg.Role),
			Content: encodeBlocks(msg.Content),
		})
	}
	for _, spec := range req.Tools {
		payload.Tools = append(payload.Tools, anthropicTool{
			Name:        spec.Name,
			Description: spec.Description,
			InputSchema: spec.InputSchema(),
		})
	}
	return payload
}

func encodeBlocks(blocks []schemas.ContentBlock) []anthropicBlock {
	out := make([]anthropicBlock, 0, len(blocks))
	for _, b := range blocks {
		switch b.Type {
		case schemas.BlockText:
			// The API rejects empty text blocks.
			if strings.TrimSpace(b.Text) == "" {
				continue
			}
			out = append(out, anthropicBlock{Type: "text", Text: b.Text})
		case schemas.BlockToolUse:
			if b.ToolUse == nil {
				continue
			}
			input := b.ToolUse.Input
			if len(bytes.TrimSpace(input)) == 0 {
				input = json.RawMessage("{}")
			}
			out = append(out, anthropicBlock{Type: "tool_use", ID: b.ToolUse.ID, Name: b.ToolUse.Name, Input: input})
		case schemas.BlockToolResult:
			if b.ToolResult == nil {
				continue
			}
			out = append(out, encodeToolResult(*b.ToolResult))
		}
	}
	return out
}

func encodeToolResult(r schemas.ToolResult) anthropicBlock {
	block := anthropicBlock{Type: "tool_result", ToolUseID: r.ToolUseID, IsError: r.IsError}
	for _, p := range r.Parts {
		if p.Image != nil {
			block.Content = append(block.Content, anthropicBlock{
				Type:   "image",
				Source: &anthropicSource{Type: "base64", MediaType: p.Image.MediaType, Data: p.Image.Data},
			})
			continue
		}
		text := p.Text
		if text == "" {
			text = emptyResultText
		}
		block.Content = append(block.Content, anthropicBlock{Type: "text", Text: text})
	}
	if len(block.Content) == 0 {
		block.Content = []anthropicBlock{{Type: "text", Text: emptyResultText}}
	}
	return block
}

func (c *AnthropicClient) parseResponse(payload anthropicResponse) *schemas.ModelResponse {
	out := &schemas.ModelResponse{
		StopReason: parseStopReason(payload.StopReason),
		Usage: schemas.TokenUsage{
			InputTokens:  payload.Usage.InputTokens,
			OutputTokens: payload.Usage.OutputTokens,
		},
	}
	for _, b := range payload.Content {
		switch b.Type {
		case "text":
			out.Content = append(out.Content, schemas.TextBlock(b.Text))
		case "tool_use":
			out.Content = append(out.Content, schemas.ToolUseBlock(b.ID, b.Name, b.Input))
		default:
			c.logger.Debug("Ignoring unsupported content block.", zap.String("type", b.Type))
		}
	}
	return out
}

func parseStopReason(reason string) schemas.StopReason {
	switch reason {
	case "end_turn", "stop_sequence":
		return schemas.StopEndTurn
	case "tool_use":
		return schemas.StopToolUse
	case "max_tokens":
		return schemas.StopMaxTokens
	default:
		return schemas.StopOther
	}
}

func (c *AnthropicClient) handleAPIError(statusCode int, body []byte) error {
	if len(body) > maxErrorBodyBytes {
		body = body[:maxErrorBodyBytes]
	}
	c.logger.Error("Anthropic API returned error status", zap.Int("status", statusCode), zap.ByteString("response", body))

	var envelope anthropicErrorEnvelope
	if err := wire.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return transportErr(providerAnthropic, statusCode, errors.New(envelope.Error.Type), "%s: %s", envelope.Error.Type, envelope.Error.Message)
	}
	return transportErr(providerAnthropic, statusCode, nil, "%s", strings.TrimSpace(string(body)))
}
