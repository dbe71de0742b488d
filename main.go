// polyglot — extracts user-visible strings from UI sources (JSX/TSX/HTML)
// and translates them into locale JSON files, with a translation memory
// and glossary cutting down on LLM API calls.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"polyglot/internal/config"
	"polyglot/internal/glossary"
	"polyglot/internal/logger"
	"polyglot/internal/memory"
	"polyglot/internal/translator"
	"polyglot/internal/types"
	"polyglot/internal/workflow"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
)

var (
	flagDir     string
	flagVerbose bool
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "polyglot",
		Short: "UI string extraction and LLM translation with local caching",
		Long: `polyglot — extracts user-visible strings from JSX/TSX/HTML sources and
translates them into flat locale JSON files.

Translations resolve through three tiers: a persistent translation memory,
a glossary of fixed or do-not-translate terms, and batched LLM API calls.
Per-project state lives under .polyglot/ in the project root.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := logger.DefaultConfig()
			cfg.EnableConsole = true
			if flagVerbose {
				cfg.Level = logger.LevelDebug
			}
			return logger.Init(cfg)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Close()
		},
	}

	root.PersistentFlags().StringVarP(&flagDir, "dir", "d", ".", "project root directory")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newTranslateCmd())
	root.AddCommand(newExtractCmd())
	root.AddCommand(newGlossaryCmd())
	root.AddCommand(newMemoryCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// loadConfig merges the user config, environment, project file and flags.
func loadConfig() (*config.Config, error) {
	manager, err := config.NewManager("")
	if err != nil {
		return nil, err
	}
	if err := manager.Load(); err != nil {
		return nil, err
	}
	cfg := manager.Get()

	projectFile, err := config.LoadProjectFile(flagDir)
	if err != nil {
		return nil, err
	}
	projectFile.Apply(cfg)
	return cfg, nil
}

// ---------------------------------------------------------------------------
// translate
// ---------------------------------------------------------------------------

func newTranslateCmd() *cobra.Command {
	var (
		langs   string
		source  string
		output  string
		model   string
		tone    string
		ctxText string
	)

	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Scan, extract and translate into the configured languages",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if langs != "" {
				cfg.TargetLangs = splitLangs(langs)
			}
			if source != "" {
				cfg.SourceLang = source
			}
			if output != "" {
				cfg.OutputDir = output
			}
			if model != "" {
				cfg.Model = model
			}
			if tone != "" {
				cfg.Tone = tone
			}
			if ctxText != "" {
				cfg.Context = ctxText
			}

			if len(cfg.TargetLangs) == 0 {
				return types.NewAppError(types.ErrInvalidInput,
					"no target languages: use --lang or set languages in polyglot.yaml", nil)
			}
			for _, lang := range cfg.TargetLangs {
				if !translator.IsSupported(lang) {
					return types.NewAppErrorWithDetails(types.ErrUnsupportedLang,
						"unsupported target language "+lang,
						"valid codes: "+strings.Join(translator.SupportedLanguages(), ", "), nil)
				}
			}
			if cfg.APIKey == "" {
				return types.NewAppError(types.ErrMissingCred,
					"no API key: set "+config.EnvAPIKey+" or "+config.EnvOpenAIAPIKey, nil)
			}

			ctx := context.Background()
			provider, err := translator.NewOpenAIProvider(ctx, cfg.APIKey, cfg.BaseURL, cfg.Model)
			if err != nil {
				return err
			}

			memPath, glossPath := workflow.StatePaths(flagDir)
			mem, err := memory.NewStore(memPath)
			if err != nil {
				return err
			}
			gloss, err := glossary.NewManager(glossPath)
			if err != nil {
				return err
			}

			engine := translator.NewEngine(provider, mem, gloss)
			driver := workflow.NewDriver(cfg, engine, mem)
			if err := driver.Run(ctx, flagDir); err != nil {
				return err
			}

			fmt.Printf("Done. Locale files written to %s\n", cfg.OutputDir)
			return nil
		},
	}

	cmd.Flags().StringVarP(&langs, "lang", "l", "", "comma-separated target language codes (e.g. es,fr,de)")
	cmd.Flags().StringVarP(&source, "source", "s", "", "source language code")
	cmd.Flags().StringVarP(&output, "output", "o", "", "locale output directory")
	cmd.Flags().StringVarP(&model, "model", "m", "", "translation model")
	cmd.Flags().StringVar(&tone, "tone", "", "tone directive (formal, casual, ...)")
	cmd.Flags().StringVar(&ctxText, "context", "", "free-text context passed to the translator")
	return cmd
}

func splitLangs(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// extract
// ---------------------------------------------------------------------------

func newExtractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract",
		Short: "Scan and print the extracted string set without translating",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			driver := workflow.NewDriver(cfg, nil, nil)
			files, err := driver.ScanFiles(flagDir)
			if err != nil {
				return err
			}
			strs, err := driver.ExtractStrings(files)
			if err != nil {
				return err
			}

			for _, s := range strs {
				fmt.Println(s)
			}
			fmt.Fprintf(os.Stderr, "%d strings from %d files\n", len(strs), len(files))
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// glossary
// ---------------------------------------------------------------------------

func newGlossaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "glossary",
		Short: "Manage glossary terms",
	}
	cmd.AddCommand(newGlossaryAddCmd())
	cmd.AddCommand(newGlossaryListCmd())
	cmd.AddCommand(newGlossaryRemoveCmd())
	return cmd
}

func openGlossary() (*glossary.Manager, error) {
	_, glossPath := workflow.StatePaths(flagDir)
	return glossary.NewManager(glossPath)
}

func newGlossaryAddCmd() *cobra.Command {
	var (
		translations  []string
		dnt           bool
		caseSensitive bool
		category      string
		description   string
	)

	cmd := &cobra.Command{
		Use:   "add <term>",
		Short: "Add a glossary term",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gloss, err := openGlossary()
			if err != nil {
				return err
			}

			parsed := make(map[string]string, len(translations))
			for _, t := range translations {
				lang, value, ok := strings.Cut(t, "=")
				if !ok {
					return types.NewAppErrorWithDetails(types.ErrInvalidInput,
						"translation must be lang=value", t, nil)
				}
				parsed[strings.TrimSpace(lang)] = strings.TrimSpace(value)
			}

			err = gloss.Add(args[0], parsed, glossary.EntryOptions{
				Category:       category,
				Description:    description,
				CaseSensitive:  caseSensitive,
				DoNotTranslate: dnt,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Added %q (%d terms total)\n", args[0], gloss.Size())
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&translations, "translation", "t", nil, "fixed translation, lang=value (repeatable)")
	cmd.Flags().BoolVar(&dnt, "dnt", false, "mark the term do-not-translate")
	cmd.Flags().BoolVar(&caseSensitive, "case-sensitive", false, "match the term case-sensitively")
	cmd.Flags().StringVar(&category, "category", "", "term category")
	cmd.Flags().StringVar(&description, "description", "", "term description")
	return cmd
}

func newGlossaryListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List glossary terms",
		RunE: func(cmd *cobra.Command, args []string) error {
			gloss, err := openGlossary()
			if err != nil {
				return err
			}

			entries := gloss.List()
			if len(entries) == 0 {
				fmt.Println("glossary is empty")
				return nil
			}
			for _, e := range entries {
				policy := "translations"
				if e.DoNotTranslate {
					policy = "do-not-translate"
				}
				fmt.Printf("%-30s %-16s", e.Term, policy)
				if len(e.Translations) > 0 {
					pairs := make([]string, 0, len(e.Translations))
					for lang, t := range e.Translations {
						pairs = append(pairs, lang+"="+t)
					}
					fmt.Print(strings.Join(pairs, " "))
				}
				fmt.Println()
			}
			return nil
		},
	}
}

func newGlossaryRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <term>",
		Short: "Remove a glossary term",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gloss, err := openGlossary()
			if err != nil {
				return err
			}
			if err := gloss.Delete(args[0]); err != nil {
				return err
			}
			fmt.Printf("Removed %q\n", args[0])
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// memory
// ---------------------------------------------------------------------------

func newMemoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Inspect or clear the translation memory",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show translation memory statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			memPath, _ := workflow.StatePaths(flagDir)
			mem, err := memory.NewStore(memPath)
			if err != nil {
				return err
			}
			stats := mem.GetStats()
			fmt.Printf("entries:   %d\n", mem.Size())
			fmt.Printf("hits:      %d\n", stats.Hits)
			fmt.Printf("misses:    %d\n", stats.Misses)
			fmt.Printf("additions: %d\n", stats.Additions)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete all translation memory entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			memPath, _ := workflow.StatePaths(flagDir)
			mem, err := memory.NewStore(memPath)
			if err != nil {
				return err
			}
			size := mem.Size()
			if err := mem.Clear(); err != nil {
				return err
			}
			fmt.Printf("Cleared %d entries\n", size)
			return nil
		},
	})

	return cmd
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("polyglot %s (%s)\n", version, commit)
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
