// polyglot.yaml configuration file support.
//
// When a polyglot.yaml file exists in the project root, its extraction and
// language settings override the user-level configuration for that
// project.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"polyglot/internal/logger"
	"polyglot/internal/types"
)

// ProjectFileName is the per-project configuration file name.
const ProjectFileName = "polyglot.yaml"

// ProjectFile is the top-level polyglot.yaml structure.
type ProjectFile struct {
	// SourceLang is the source language code (default "en").
	SourceLang string `yaml:"source_lang,omitempty"`
	// Languages is the list of target language codes.
	Languages []string `yaml:"languages,omitempty"`
	// OutputDir is the locale output directory relative to the project root.
	OutputDir string `yaml:"output_dir,omitempty"`
	// VisibleAttributes are attribute names whose values are extracted.
	// Supports a trailing-* wildcard, e.g. "aria-*".
	VisibleAttributes []string `yaml:"visible_attributes,omitempty"`
	// ExcludeRules are selectors (tag, tag.class, tag#id) whose subtrees
	// are never extracted.
	ExcludeRules []string `yaml:"exclude,omitempty"`
	// Model overrides the translation model for this project.
	Model string `yaml:"model,omitempty"`
	// Tone is an optional tone directive passed to the translator.
	Tone string `yaml:"tone,omitempty"`
	// Context is optional free-text context passed to the translator.
	Context string `yaml:"context,omitempty"`
}

// LoadProjectFile reads polyglot.yaml from dir. Returns (nil, nil) when
// the file does not exist.
func LoadProjectFile(dir string) (*ProjectFile, error) {
	path := filepath.Join(dir, ProjectFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, types.NewAppError(types.ErrConfig, "failed to read project file", err)
	}

	pf := &ProjectFile{}
	if err := yaml.Unmarshal(data, pf); err != nil {
		return nil, types.NewAppErrorWithDetails(types.ErrConfig, "invalid project file", path, err)
	}

	logger.Info("project file loaded", logger.String("path", path))
	return pf, nil
}

// Apply merges the project file settings over cfg. Unset fields keep the
// existing value.
func (pf *ProjectFile) Apply(cfg *Config) {
	if pf == nil {
		return
	}
	if pf.SourceLang != "" {
		cfg.SourceLang = pf.SourceLang
	}
	if len(pf.Languages) > 0 {
		cfg.TargetLangs = append([]string(nil), pf.Languages...)
	}
	if pf.OutputDir != "" {
		cfg.OutputDir = pf.OutputDir
	}
	if len(pf.VisibleAttributes) > 0 {
		cfg.VisibleAttributes = append([]string(nil), pf.VisibleAttributes...)
	}
	if len(pf.ExcludeRules) > 0 {
		cfg.ExcludeRules = append([]string(nil), pf.ExcludeRules...)
	}
	if pf.Model != "" {
		cfg.Model = pf.Model
	}
	if pf.Tone != "" {
		cfg.Tone = pf.Tone
	}
	if pf.Context != "" {
		cfg.Context = pf.Context
	}
}
