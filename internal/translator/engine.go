package translator

import (
	"context"
	"strings"
	"time"

	"polyglot/internal/glossary"
	"polyglot/internal/logger"
	"polyglot/internal/memory"
	"polyglot/internal/types"
)

const (
	// DefaultMaxChunkSize is the default number of strings per API call.
	DefaultMaxChunkSize = 50
	// DefaultChunkDelay is the fixed courtesy pause between chunk
	// requests. Not a rate limiter, just an upper bound on request rate.
	DefaultChunkDelay = 500 * time.Millisecond
)

// Options tunes one translation run.
type Options struct {
	SourceLang         string
	Tone               string
	Context            string
	MaxChunkSize       int
	ChunkDelay         time.Duration
	PreserveFormatting bool
}

// Engine resolves each input string through exactly one tier: translation
// memory, glossary, or the provider API. Resolution is deterministic and
// total: every input string ends up in the result mapping, worst case as
// an identity entry.
type Engine struct {
	provider Provider
	memory   *memory.Store
	glossary *glossary.Manager
}

// NewEngine creates an Engine. Memory and glossary are optional tiers;
// pass nil to disable one.
func NewEngine(provider Provider, mem *memory.Store, gloss *glossary.Manager) *Engine {
	return &Engine{provider: provider, memory: mem, glossary: gloss}
}

// dedupe drops empty and whitespace-only strings and removes duplicates,
// preserving first-seen order.
func dedupe(strs []string) []string {
	seen := make(map[string]bool, len(strs))
	out := make([]string, 0, len(strs))
	for _, s := range strs {
		if strings.TrimSpace(s) == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// Translate runs the three-tier pipeline for one target language.
//
// Single string resolution:
//
//	Pending -> MemoryHit | GlossaryWholeSkip | GlossaryPlaceholderThenAPI | DirectAPI -> Resolved
//
// Chunks are issued sequentially with a fixed inter-chunk delay. A failed
// chunk degrades to identity entries for its strings; validation and
// persistence errors abort the run.
func (e *Engine) Translate(ctx context.Context, strs []string, targetLang string, opts Options) (*types.TranslationResult, error) {
	// 1. Fail-fast validation.
	if len(strs) == 0 {
		return nil, types.NewAppError(types.ErrInvalidInput, "no strings to translate", nil)
	}
	if !IsSupported(targetLang) {
		return nil, types.NewAppErrorWithDetails(types.ErrUnsupportedLang,
			"unsupported target language "+targetLang,
			"valid codes: "+strings.Join(SupportedLanguages(), ", "), nil)
	}
	if e.provider == nil {
		return nil, types.NewAppError(types.ErrMissingCred, "no API key configured", nil)
	}

	if opts.SourceLang == "" {
		opts.SourceLang = "en"
	}
	if opts.MaxChunkSize <= 0 {
		opts.MaxChunkSize = DefaultMaxChunkSize
	}

	result := &types.TranslationResult{
		Translations: make(map[string]string),
		TargetLang:   targetLang,
		Model:        e.provider.Name(),
	}

	// 2. De-duplicate and drop empty strings.
	work := dedupe(strs)
	if len(work) == 0 {
		return nil, types.NewAppError(types.ErrInvalidInput, "no non-empty strings to translate", nil)
	}
	logger.Info("translation run started",
		logger.String("targetLang", targetLang), logger.Int("strings", len(work)))

	// 3. Memory tier.
	if e.memory != nil {
		batch := e.memory.BatchLookup(work, opts.SourceLang, targetLang)
		for text, translation := range batch.Found {
			result.Translations[text] = translation
		}
		result.Provenance.FromMemory = len(batch.Found)
		work = batch.Missing
	}

	// 4. Glossary tier.
	var prepared []glossary.PreparedString
	var placeholders map[string]glossary.PlaceholderInfo
	if e.glossary != nil {
		prep := e.glossary.PrepareForTranslation(work, targetLang)
		for text, translation := range prep.Skip {
			result.Translations[text] = translation
		}
		result.Provenance.FromGlossary = len(prep.Skip)
		prepared = prep.ForAPI
		placeholders = prep.Placeholders
	} else {
		prepared = make([]glossary.PreparedString, 0, len(work))
		for _, s := range work {
			prepared = append(prepared, glossary.PreparedString{Original: s, Processed: s})
		}
	}

	// 5. Everything resolved locally: zero-cost return.
	if len(prepared) == 0 {
		logger.Info("all strings resolved locally, skipping API",
			logger.Int("fromMemory", result.Provenance.FromMemory),
			logger.Int("fromGlossary", result.Provenance.FromGlossary))
		return result, nil
	}

	// 6. Sequential chunked API calls.
	apiTranslations := make(map[string]string) // processed -> translated
	failed := make(map[string]bool)            // originals from failed chunks

	req := ChunkRequest{
		TargetLang:         targetLang,
		SourceLang:         opts.SourceLang,
		Tone:               opts.Tone,
		Context:            opts.Context,
		PreserveFormatting: opts.PreserveFormatting,
		HasGlossary:        len(placeholders) > 0,
	}

	chunks := chunkPrepared(prepared, opts.MaxChunkSize)
	for i, chunk := range chunks {
		if i > 0 && opts.ChunkDelay > 0 {
			time.Sleep(opts.ChunkDelay)
		}

		texts := make([]string, len(chunk))
		for j, p := range chunk {
			texts[j] = p.Processed
		}

		translations, usage, err := e.provider.TranslateChunk(ctx, texts, req)
		if err != nil {
			// Recovered locally: the chunk's strings fall back to
			// themselves so the run stays total.
			logger.Error("chunk translation failed, falling back to identity", err,
				logger.Int("chunk", i+1), logger.Int("chunks", len(chunks)), logger.Int("strings", len(chunk)))
			for _, p := range chunk {
				failed[p.Original] = true
			}
			continue
		}

		result.TokensUsed.Add(usage)
		for text, translation := range translations {
			apiTranslations[text] = translation
		}
		logger.Debug("chunk translated",
			logger.Int("chunk", i+1), logger.Int("chunks", len(chunks)), logger.Int("tokens", usage.TotalTokens))
	}

	// 7. Restore glossary placeholder tokens in the API subset only;
	// skip-resolved entries were never substituted.
	if len(placeholders) > 0 {
		apiTranslations = glossary.PostprocessTranslations(apiTranslations, placeholders)
	}

	// 8-9. Merge, store back, report provenance.
	for _, p := range prepared {
		if failed[p.Original] {
			result.Translations[p.Original] = p.Original
			result.Provenance.FromAPI++
			continue
		}

		translation, ok := apiTranslations[p.Processed]
		if !ok || strings.TrimSpace(translation) == "" {
			// The model dropped this key; keep the run total.
			logger.Warn("translation missing from API response, using identity",
				logger.String("targetLang", targetLang))
			result.Translations[p.Original] = p.Original
			result.Provenance.FromAPI++
			continue
		}

		result.Translations[p.Original] = translation
		result.Provenance.FromAPI++

		if e.memory != nil {
			err := e.memory.Store(p.Original, translation, opts.SourceLang, targetLang, memory.EntryMetadata{
				Model:   e.provider.Name(),
				Context: opts.Context,
				Tone:    opts.Tone,
			})
			if err != nil {
				return nil, err
			}
		}
	}

	logger.Info("translation run finished",
		logger.String("targetLang", targetLang),
		logger.Int("fromMemory", result.Provenance.FromMemory),
		logger.Int("fromGlossary", result.Provenance.FromGlossary),
		logger.Int("fromAPI", result.Provenance.FromAPI),
		logger.Int("totalTokens", result.TokensUsed.TotalTokens))
	return result, nil
}

// chunkPrepared splits the work set into fixed-size chunks.
func chunkPrepared(prepared []glossary.PreparedString, size int) [][]glossary.PreparedString {
	var chunks [][]glossary.PreparedString
	for start := 0; start < len(prepared); start += size {
		end := start + size
		if end > len(prepared) {
			end = len(prepared)
		}
		chunks = append(chunks, prepared[start:end])
	}
	return chunks
}
