// internal/llmclient/gemini_client.go
package llmclient

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/xkilldash9x/webpilot/api/schemas"
	"github.com/xkilldash9x/webpilot/internal/config"
)

const providerGemini = "gemini"

// GeminiClient maps the conversation onto Gemini function calling through
// the genai SDK.
type GeminiClient struct {
	client *genai.Client
	logger *zap.Logger
	config config.LLMModelConfig
}

var _ schemas.ModelClient = (*GeminiClient)(nil)

// NewGeminiClient initializes the client.
func NewGeminiClient(ctx context.Context, cfg config.LLMModelConfig, logger *zap.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: %w", ErrMissingAPIKey)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: cfg.APITimeout},
	}
	if cfg.Endpoint != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.Endpoint}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GeminiClient{
		client: client,
		config: cfg,
		logger: logger.Named("llm_client.gemini"),
	}, nil
}

// Complete sends one generateContent request. Every failure is returned as a
// *TransportError.
func (c *GeminiClient) Complete(ctx context.Context, req schemas.ModelRequest) (*schemas.ModelResponse, error) {
	contents, err := buildGeminiContents(req.Messages)
	if err != nil {
		return nil, transportErr(providerGemini, 0, err, "failed to encode conversation: %v", err)
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.config.MaxTokens
	}
	genCfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(req.Temperature),
		MaxOutputTokens: int32(maxTokens),
	}
	if decls := buildFunctionDeclarations(req.Tools); len(decls) > 0 {
		genCfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	startTime := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, c.config.Model, contents, genCfg)
	duration := time.Since(startTime)
	if err != nil {
		c.logger.Error("Gemini request failed", zap.Error(err), zap.Duration("duration", duration))
		return nil, transportErr(providerGemini, 0, err, "%v", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, transportErr(providerGemini, http.StatusOK, nil, "response contained no candidates")
	}

	out := parseGeminiCandidate(resp.Candidates[0])
	if resp.UsageMetadata != nil {
		out.Usage = schemas.TokenUsage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}

	c.logger.Debug("Model turn complete (Gemini)",
		zap.Duration("duration", duration),
		zap.String("finish_reason", string(resp.Candidates[0].FinishReason)),
		zap.Int("prompt_tokens", out.Usage.InputTokens),
		zap.Int("completion_tokens", out.Usage.OutputTokens),
	)
	return out, nil
}

// buildGeminiContents converts the conversation. Function responses need the
// function name, which Anthropic-style results do not carry, so names are
// looked up from the calls seen so far.
func buildGeminiContents(messages []schemas.Message) ([]*genai.Content, error) {
	names := make(map[string]string)
	contents := make([]*genai.Content, 0, len(messages))

	for _, msg := range messages {
		content := &genai.Content{Role: string(genai.RoleUser)}
		if msg.Role == schemas.RoleAssistant {
			content.Role = string(genai.RoleModel)
		}
		var images []*genai.Part

		for _, b := range msg.Content {
			switch b.Type {
			case schemas.BlockText:
				if strings.TrimSpace(b.Text) != "" {
					content.Parts = append(content.Parts, &genai.Part{Text: b.Text})
				}
			case schemas.BlockToolUse:
				if b.ToolUse == nil {
					continue
				}
				args := map[string]any{}
				if len(b.ToolUse.Input) > 0 {
					if err := wire.Unmarshal(b.ToolUse.Input, &args); err != nil {
						return nil, fmt.Errorf("tool_use %s input: %w", b.ToolUse.ID, err)
					}
				}
				names[b.ToolUse.ID] = b.ToolUse.Name
				content.Parts = append(content.Parts, &genai.Part{FunctionCall: &genai.FunctionCall{
					ID: b.ToolUse.ID, Name: b.ToolUse.Name, Args: args,
				}})
			case schemas.BlockToolResult:
				if b.ToolResult == nil {
					continue
				}
				r := b.ToolResult
				key := "output"
				if r.IsError {
					key = "error"
				}
				content.Parts = append(content.Parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
					ID:       r.ToolUseID,
					Name:     names[r.ToolUseID],
					Response: map[string]any{key: r.Text()},
				}})
				for _, p := range r.Parts {
					if p.Image == nil {
						continue
					}
					data, err := base64.StdEncoding.DecodeString(p.Image.Data)
					if err != nil {
						return nil, fmt.Errorf("tool_result %s image: %w", r.ToolUseID, err)
					}
					images = append(images, &genai.Part{InlineData: &genai.Blob{MIMEType: p.Image.MediaType, Data: data}})
				}
			}
		}

		// Screenshots ride along after the function responses of the turn.
		content.Parts = append(content.Parts, images...)
		if len(content.Parts) > 0 {
			contents = append(contents, content)
		}
	}
	return contents, nil
}

func buildFunctionDeclarations(specs []schemas.ToolSpec) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(specs))
	for _, spec := range specs {
		params := &genai.Schema{
			Type:       genai.TypeObject,
			Properties: make(map[string]*genai.Schema, len(spec.Parameters)),
		}
		for _, p := range spec.Parameters {
			desc := p.Description
			if p.Default != nil {
				desc = fmt.Sprintf("%s (default: %v)", desc, p.Default)
			}
			params.Properties[p.Name] = &genai.Schema{
				Type:        geminiType(p.Type),
				Description: desc,
				Enum:        p.Enum,
			}
			if p.Required {
				params.Required = append(params.Required, p.Name)
			}
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        spec.Name,
			Description: spec.Description,
			Parameters:  params,
		})
	}
	return decls
}

func geminiType(t schemas.ParamType) genai.Type {
	switch t {
	case schemas.ParamBoolean:
		return genai.TypeBoolean
	case schemas.ParamInteger:
		return genai.TypeInteger
	default:
		return genai.TypeString
	}
}

func parseGeminiCandidate(cand *genai.Candidate) *schemas.ModelResponse {
	out := &schemas.ModelResponse{StopReason: schemas.StopOther}
	switch cand.FinishReason {
	case genai.FinishReasonStop:
		out.StopReason = schemas.StopEndTurn
	case genai.FinishReasonMaxTokens:
		out.StopReason = schemas.StopMaxTokens
	}

	for _, part := range cand.Content.Parts {
		switch {
		case part == nil || part.Thought:
			continue
		case part.FunctionCall != nil:
			id := part.FunctionCall.ID
			if id == "" {
				id = "call_" + uuid.NewString()
			}
			input, err := wire.Marshal(part.FunctionCall.Args)
			if err != nil || part.FunctionCall.Args == nil {
				input = []byte("{}")
			}
			out.Content = append(out.Content, schemas.ToolUseBlock(id, part.FunctionCall.Name, input))
			out.StopReason = schemas.StopToolUse
		case part.Text != "":
			out.Content = append(out.Content, schemas.TextBlock(part.Text))
		}
	}
	return out
}
