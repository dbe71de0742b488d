package translator

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polyglot/internal/types"
)

type fakeChatModel struct {
	resp *schema.Message
	err  error
	got  []*schema.Message
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.got = input
	return f.resp, f.err
}

func TestParseChunkResponse(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    map[string]string
		wantErr bool
	}{
		{
			name:    "plain object",
			content: `{"Hello": "Hola"}`,
			want:    map[string]string{"Hello": "Hola"},
		},
		{
			name:    "json fenced",
			content: "```json\n{\"Hello\": \"Hola\"}\n```",
			want:    map[string]string{"Hello": "Hola"},
		},
		{
			name:    "bare fenced",
			content: "```\n{\"Hello\": \"Hola\"}\n```",
			want:    map[string]string{"Hello": "Hola"},
		},
		{
			name:    "surrounding whitespace",
			content: "  \n{\"Hello\": \"Hola\"}\n  ",
			want:    map[string]string{"Hello": "Hola"},
		},
		{
			name:    "not json",
			content: "Sure! Here are your translations:",
			wantErr: true,
		},
		{
			name:    "json array instead of object",
			content: `["Hola"]`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseChunkResponse(tt.content)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildSystemPrompt(t *testing.T) {
	base := ChunkRequest{SourceLang: "en", TargetLang: "es"}

	prompt := buildSystemPrompt(base)
	assert.Contains(t, prompt, "English")
	assert.Contains(t, prompt, "Spanish")
	assert.Contains(t, prompt, "JSON object")
	assert.NotContains(t, prompt, "__GLOSSARY_N__")
	assert.NotContains(t, prompt, "Tone:")

	full := base
	full.PreserveFormatting = true
	full.HasGlossary = true
	full.Tone = "formal"
	full.Context = "e-commerce checkout flow"

	prompt = buildSystemPrompt(full)
	assert.Contains(t, prompt, "{name}")
	assert.Contains(t, prompt, "__GLOSSARY_N__")
	assert.Contains(t, prompt, "Tone: formal")
	assert.Contains(t, prompt, "e-commerce checkout flow")
}

func TestTranslateChunkSendsStringsPayload(t *testing.T) {
	cm := &fakeChatModel{
		resp: &schema.Message{Content: `{"Hello": "Hola", "Bye": "Adiós"}`},
	}
	p := &OpenAIProvider{model: cm, modelName: "gpt-4o-mini"}

	got, usage, err := p.TranslateChunk(context.Background(),
		[]string{"Hello", "Bye"}, ChunkRequest{SourceLang: "en", TargetLang: "es"})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"Hello": "Hola", "Bye": "Adiós"}, got)
	assert.Zero(t, usage.TotalTokens, "no usage metadata in response")

	require.Len(t, cm.got, 2)
	assert.Equal(t, schema.System, cm.got[0].Role)
	assert.Equal(t, schema.User, cm.got[1].Role)

	var payload map[string][]string
	require.NoError(t, json.Unmarshal([]byte(cm.got[1].Content), &payload))
	assert.Equal(t, []string{"Hello", "Bye"}, payload["strings"])
}

func TestTranslateChunkExtractsUsage(t *testing.T) {
	cm := &fakeChatModel{
		resp: &schema.Message{
			Content: `{"Hello": "Hola"}`,
			ResponseMeta: &schema.ResponseMeta{
				Usage: &schema.TokenUsage{PromptTokens: 120, CompletionTokens: 30, TotalTokens: 150},
			},
		},
	}
	p := &OpenAIProvider{model: cm, modelName: "gpt-4o-mini"}

	_, usage, err := p.TranslateChunk(context.Background(), []string{"Hello"}, ChunkRequest{TargetLang: "es"})
	require.NoError(t, err)
	assert.Equal(t, types.TokenUsage{PromptTokens: 120, CompletionTokens: 30, TotalTokens: 150}, usage)
}

func TestTranslateChunkErrors(t *testing.T) {
	cm := &fakeChatModel{err: errors.New("connection refused")}
	p := &OpenAIProvider{model: cm, modelName: "gpt-4o-mini"}

	_, _, err := p.TranslateChunk(context.Background(), []string{"Hello"}, ChunkRequest{TargetLang: "es"})
	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrAPICall, appErr.Code)

	cm = &fakeChatModel{resp: &schema.Message{Content: "not json at all"}}
	p = &OpenAIProvider{model: cm, modelName: "gpt-4o-mini"}
	_, _, err = p.TranslateChunk(context.Background(), []string{"Hello"}, ChunkRequest{TargetLang: "es"})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrAPICall, appErr.Code)
}

func TestLanguageNames(t *testing.T) {
	assert.True(t, IsSupported("es"))
	assert.True(t, IsSupported("zh"))
	assert.False(t, IsSupported("xx"))
	assert.False(t, IsSupported(""))

	assert.Equal(t, "German", LanguageName("de"))
	assert.Equal(t, "Japanese", LanguageName("ja"))

	codes := SupportedLanguages()
	assert.Len(t, codes, 25)
	assert.True(t, strings.Contains(strings.Join(codes, ","), "en"))
	for i := 1; i < len(codes); i++ {
		assert.Less(t, codes[i-1], codes[i], "codes must be sorted")
	}
}
