// Package workflow sequences a localization run: scan the project for UI
// source files, extract the deduplicated string set, resolve translations
// through the orchestration engine one language at a time, and persist
// flat locale JSON files.
package workflow

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"polyglot/internal/config"
	"polyglot/internal/logger"
	"polyglot/internal/memory"
	"polyglot/internal/parser"
	"polyglot/internal/translator"
	"polyglot/internal/types"
)

// sourceExtensions are the recognized UI-markup file extensions.
var sourceExtensions = map[string]bool{
	".jsx":  true,
	".tsx":  true,
	".js":   true,
	".ts":   true,
	".html": true,
	".htm":  true,
	".vue":  true,
}

// skipDirs are dependency-manager and build directories never scanned.
// Hidden directories are skipped as well.
var skipDirs = map[string]bool{
	"node_modules":     true,
	"bower_components": true,
	"vendor":           true,
	"dist":             true,
	"build":            true,
	"out":              true,
}

// Driver wires the parser, orchestration engine and stores into one run.
type Driver struct {
	cfg    *config.Config
	engine *translator.Engine
	mem    *memory.Store
	rules  []parser.Rule
}

// NewDriver creates a Driver. mem may be nil when the memory tier is
// disabled; it is only used for the final flush.
func NewDriver(cfg *config.Config, engine *translator.Engine, mem *memory.Store) *Driver {
	return &Driver{
		cfg:    cfg,
		engine: engine,
		mem:    mem,
		rules:  parser.ParseRules(cfg.ExcludeRules),
	}
}

// ScanFiles walks root and returns every file with a recognized UI-markup
// extension, skipping hidden and dependency directories.
func (d *Driver) ScanFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := entry.Name()
		if entry.IsDir() {
			if path != root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if sourceExtensions[strings.ToLower(filepath.Ext(name))] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, types.NewAppError(types.ErrPersistence, "failed to scan source files", err)
	}

	sort.Strings(files)
	logger.Info("source scan complete", logger.String("root", root), logger.Int("files", len(files)))
	return files, nil
}

// ExtractStrings parses every file and merges the results into one
// deduplicated set, first-seen order.
func (d *Driver) ExtractStrings(files []string) ([]string, error) {
	var all []string
	seen := make(map[string]bool)

	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return nil, types.NewAppErrorWithDetails(types.ErrPersistence, "failed to read source file", file, err)
		}

		extracted := parser.Extract(string(content), d.cfg.VisibleAttributes, d.rules)
		for _, s := range extracted {
			if !seen[s] {
				seen[s] = true
				all = append(all, s)
			}
		}
		logger.Debug("file parsed", logger.String("file", file), logger.Int("strings", len(extracted)))
	}
	return all, nil
}

// Run executes the full pipeline for every configured target language,
// one language fully processed before the next starts. The source
// language gets an identity mapping.
func (d *Driver) Run(ctx context.Context, root string) error {
	files, err := d.ScanFiles(root)
	if err != nil {
		return err
	}
	strs, err := d.ExtractStrings(files)
	if err != nil {
		return err
	}
	if len(strs) == 0 {
		logger.Warn("no translatable strings found", logger.String("root", root))
		return nil
	}
	logger.Info("extraction complete", logger.Int("strings", len(strs)))

	outputDir := d.cfg.OutputDir
	if !filepath.IsAbs(outputDir) {
		outputDir = filepath.Join(root, outputDir)
	}

	identity := make(map[string]string, len(strs))
	for _, s := range strs {
		identity[s] = s
	}
	if err := WriteLocaleFile(outputDir, d.cfg.SourceLang, identity); err != nil {
		return err
	}

	for _, lang := range d.cfg.TargetLangs {
		if lang == d.cfg.SourceLang {
			continue
		}

		result, err := d.engine.Translate(ctx, strs, lang, translator.Options{
			SourceLang:         d.cfg.SourceLang,
			Tone:               d.cfg.Tone,
			Context:            d.cfg.Context,
			MaxChunkSize:       d.cfg.MaxChunkSize,
			ChunkDelay:         time.Duration(d.cfg.ChunkDelayMS) * time.Millisecond,
			PreserveFormatting: true,
		})
		if err != nil {
			return err
		}

		if err := WriteLocaleFile(outputDir, lang, result.Translations); err != nil {
			return err
		}
		logger.Info("locale written",
			logger.String("lang", lang),
			logger.Int("strings", len(result.Translations)),
			logger.Int("fromMemory", result.Provenance.FromMemory),
			logger.Int("fromGlossary", result.Provenance.FromGlossary),
			logger.Int("fromAPI", result.Provenance.FromAPI),
			logger.Int("tokens", result.TokensUsed.TotalTokens))
	}

	if d.mem != nil {
		if err := d.mem.Save(); err != nil {
			return err
		}
	}
	return nil
}

// WriteLocaleFile writes one flat locale JSON file (original string to
// translated string) via a temp file and rename. Keys are sorted by the
// JSON encoder.
func WriteLocaleFile(dir, lang string, translations map[string]string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return types.NewAppError(types.ErrPersistence, "failed to create output directory", err)
	}

	data, err := json.MarshalIndent(translations, "", "  ")
	if err != nil {
		return types.NewAppError(types.ErrPersistence, "failed to marshal locale file", err)
	}

	path := filepath.Join(dir, lang+".json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0644); err != nil {
		return types.NewAppErrorWithDetails(types.ErrPersistence, "failed to write locale file", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return types.NewAppErrorWithDetails(types.ErrPersistence, "failed to replace locale file", path, err)
	}
	return nil
}

// StatePaths returns the per-project memory and glossary file paths.
func StatePaths(root string) (memoryPath, glossaryPath string) {
	stateDir := filepath.Join(root, config.StateDirName)
	return filepath.Join(stateDir, "memory.json"), filepath.Join(stateDir, "glossary.json")
}
