// Package translator implements the translation orchestration pipeline:
// three-tier resolution (translation memory, glossary, LLM API) with
// size-bounded sequential chunking and deterministic reconciliation.
package translator

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"polyglot/internal/logger"
	"polyglot/internal/types"
)

// ChunkRequest carries the per-call parameters of one chunk translation.
type ChunkRequest struct {
	TargetLang         string
	SourceLang         string
	Tone               string
	Context            string
	PreserveFormatting bool
	// HasGlossary tells the provider the chunk may contain glossary
	// placeholder tokens that must be kept verbatim.
	HasGlossary bool
}

// Provider is the external translation capability: one structured call
// per chunk, returning a mapping keyed by input string plus token usage.
type Provider interface {
	Name() string
	TranslateChunk(ctx context.Context, texts []string, req ChunkRequest) (map[string]string, types.TokenUsage, error)
}

// chatModel is the slice of the eino chat model the provider needs;
// narrowed for testability.
type chatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// OpenAIProvider translates chunks through an OpenAI-compatible chat
// completions API via the eino chat model.
type OpenAIProvider struct {
	model     chatModel
	modelName string
}

// NewOpenAIProvider builds a provider against the given OpenAI-compatible
// endpoint. The API key must be non-empty; that is validated by the
// engine before any network activity.
func NewOpenAIProvider(ctx context.Context, apiKey, baseURL, modelName string) (*OpenAIProvider, error) {
	cfg := &openai.ChatModelConfig{
		Model:  modelName,
		APIKey: apiKey,
	}
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	cm, err := openai.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, types.NewAppError(types.ErrConfig, "failed to create chat model", err)
	}

	return &OpenAIProvider{model: cm, modelName: modelName}, nil
}

// Name returns the provider's model name.
func (p *OpenAIProvider) Name() string {
	return p.modelName
}

// TranslateChunk sends one chunk as a JSON object and parses the JSON
// object response into a string-to-string mapping.
func (p *OpenAIProvider) TranslateChunk(ctx context.Context, texts []string, req ChunkRequest) (map[string]string, types.TokenUsage, error) {
	var usage types.TokenUsage

	payload, err := json.Marshal(map[string][]string{"strings": texts})
	if err != nil {
		return nil, usage, types.NewAppError(types.ErrInternal, "failed to marshal chunk payload", err)
	}

	messages := []*schema.Message{
		schema.SystemMessage(buildSystemPrompt(req)),
		schema.UserMessage(string(payload)),
	}

	resp, err := p.model.Generate(ctx, messages)
	if err != nil {
		return nil, usage, types.NewAppError(types.ErrAPICall, "chunk translation request failed", err)
	}

	if resp.ResponseMeta != nil && resp.ResponseMeta.Usage != nil {
		usage = types.TokenUsage{
			PromptTokens:     resp.ResponseMeta.Usage.PromptTokens,
			CompletionTokens: resp.ResponseMeta.Usage.CompletionTokens,
			TotalTokens:      resp.ResponseMeta.Usage.TotalTokens,
		}
	}

	translations, err := parseChunkResponse(resp.Content)
	if err != nil {
		logger.Error("malformed chunk response", err, logger.Int("contentLength", len(resp.Content)))
		return nil, usage, err
	}

	return translations, usage, nil
}

// parseChunkResponse extracts the JSON object from the model output,
// tolerating markdown code fences around it.
func parseChunkResponse(content string) (map[string]string, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
		content = strings.TrimSpace(content)
	}

	var translations map[string]string
	if err := json.Unmarshal([]byte(content), &translations); err != nil {
		return nil, types.NewAppError(types.ErrAPICall, "failed to parse chunk response as JSON object", err)
	}
	return translations, nil
}

// buildSystemPrompt composes the chunk system instruction: target
// language, formatting and glossary token preservation, optional tone and
// free-text context, and the structured response requirement.
func buildSystemPrompt(req ChunkRequest) string {
	var sb strings.Builder

	sb.WriteString("You are a professional UI translator. Translate each string in the provided JSON array from ")
	sb.WriteString(LanguageName(req.SourceLang))
	sb.WriteString(" to ")
	sb.WriteString(LanguageName(req.TargetLang))
	sb.WriteString(".\n\nThe strings are user-visible labels, messages and attribute values from a web interface. Keep translations natural and concise.\n")

	if req.PreserveFormatting {
		sb.WriteString("\nPreserve all formatting placeholders EXACTLY as they appear: {name}, {{variable}}, %s, %d and similar markers must remain unchanged and in place.\n")
	}
	if req.HasGlossary {
		sb.WriteString("\nTokens of the form __GLOSSARY_N__ are protected terms. Keep every such token verbatim, character for character, at the equivalent position in the translation. Never translate, reword or drop them.\n")
	}
	if req.Tone != "" {
		sb.WriteString("\nTone: " + req.Tone + ".\n")
	}
	if req.Context != "" {
		sb.WriteString("\nContext: " + req.Context + "\n")
	}

	sb.WriteString("\nRespond with ONLY a JSON object mapping each input string, exactly as given, to its translation. No commentary, no markdown.")
	return sb.String()
}
