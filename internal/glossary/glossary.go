// Package glossary manages fixed-term translations: brand or technical
// terms that must never be paraphrased by the model. Terms are either
// marked do-not-translate or carry an officially fixed translation per
// language.
//
// Before an API call, glossary terms inside a string are replaced by
// synthetic placeholder tokens the model is instructed to keep verbatim;
// after the call the tokens are substituted with the final term
// translations. Substitution-by-placeholder survives the model rewording
// the surrounding text, which a find-and-replace on the output would not.
//
// The backing JSON file is loaded wholesale at startup and rewritten
// wholesale on every mutation. Concurrent processes sharing one glossary
// file are unsupported.
package glossary

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"polyglot/internal/logger"
	"polyglot/internal/types"
)

// placeholderFormat is the token pattern substituted for protected terms.
const placeholderFormat = "__GLOSSARY_%d__"

// Entry is one glossary term with its translation policy.
type Entry struct {
	Term           string            `json:"term"`
	Translations   map[string]string `json:"translations,omitempty"`
	Category       string            `json:"category,omitempty"`
	Description    string            `json:"description,omitempty"`
	CaseSensitive  bool              `json:"caseSensitive"`
	DoNotTranslate bool              `json:"doNotTranslate"`
	Context        string            `json:"context,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

// EntryOptions carries the optional fields of a new or updated entry.
type EntryOptions struct {
	Category       string
	Description    string
	CaseSensitive  bool
	DoNotTranslate bool
	Context        string
}

// Match is one occurrence of a glossary term inside a text.
type Match struct {
	Term        string
	Position    int
	MatchedText string
	entry       *Entry
}

// PlaceholderInfo maps a placeholder token back to the term it protects
// and the translation that replaces it after the API call.
type PlaceholderInfo struct {
	Original    string `json:"original"`
	Term        string `json:"term"`
	Translation string `json:"translation"`
	Position    int    `json:"position"`
}

// PreparedString pairs an input string with its placeholder-substituted
// form sent to the API.
type PreparedString struct {
	Original  string
	Processed string
}

// PrepareResult is the outcome of PrepareForTranslation.
type PrepareResult struct {
	// ForAPI holds the strings that still need an API call, with
	// glossary terms replaced by placeholder tokens.
	ForAPI []PreparedString
	// Placeholders maps each token to its restoration info.
	Placeholders map[string]PlaceholderInfo
	// Skip maps whole-string glossary hits directly to their final
	// translation; these strings never reach the API.
	Skip map[string]string
}

type fileMetadata struct {
	Version      string    `json:"version"`
	Created      time.Time `json:"created"`
	LastModified time.Time `json:"lastModified"`
}

type glossaryFile struct {
	Metadata fileMetadata `json:"metadata"`
	Terms    []Entry      `json:"terms"`
}

// Manager owns the glossary entries and their backing file.
type Manager struct {
	path    string
	entries map[string]*Entry // normalized term -> entry
	created time.Time
	mu      sync.RWMutex
}

// NewManager creates a Manager backed by the given file path and loads
// any existing terms.
func NewManager(path string) (*Manager, error) {
	m := &Manager{
		path:    path,
		entries: make(map[string]*Entry),
		created: time.Now(),
	}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

// normalizeKey lowercases the term for case-insensitive entries; the key
// is the exact term otherwise.
func normalizeKey(term string, caseSensitive bool) string {
	term = strings.TrimSpace(term)
	if caseSensitive {
		return term
	}
	return strings.ToLower(term)
}

// Add creates a new entry. Adding a term that already exists (under its
// normalized key) is an error.
func (m *Manager) Add(term string, translations map[string]string, opts EntryOptions) error {
	term = strings.TrimSpace(term)
	if term == "" {
		return types.NewAppError(types.ErrInvalidInput, "empty glossary term", nil)
	}

	m.mu.Lock()
	key := normalizeKey(term, opts.CaseSensitive)
	if _, exists := m.entries[key]; exists {
		m.mu.Unlock()
		return types.NewAppErrorWithDetails(types.ErrInvalidInput, "glossary term already exists", term, nil)
	}

	now := time.Now()
	m.entries[key] = &Entry{
		Term:           term,
		Translations:   translations,
		Category:       opts.Category,
		Description:    opts.Description,
		CaseSensitive:  opts.CaseSensitive,
		DoNotTranslate: opts.DoNotTranslate,
		Context:        opts.Context,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	m.mu.Unlock()

	return m.Save()
}

// Update replaces the translations and options of an existing entry. A
// changed case sensitivity re-keys the entry; the change is rejected when
// the new key already belongs to another term.
func (m *Manager) Update(term string, translations map[string]string, opts EntryOptions) error {
	m.mu.Lock()
	entry := m.findLocked(term)
	if entry == nil {
		m.mu.Unlock()
		return types.NewAppErrorWithDetails(types.ErrInvalidInput, "glossary term not found", term, nil)
	}

	if entry.CaseSensitive != opts.CaseSensitive {
		newKey := normalizeKey(entry.Term, opts.CaseSensitive)
		if other, exists := m.entries[newKey]; exists && other != entry {
			m.mu.Unlock()
			return types.NewAppErrorWithDetails(types.ErrInvalidInput,
				"case sensitivity change collides with existing term", entry.Term, nil)
		}
		delete(m.entries, normalizeKey(entry.Term, entry.CaseSensitive))
		entry.CaseSensitive = opts.CaseSensitive
		m.entries[newKey] = entry
	}

	if translations != nil {
		entry.Translations = translations
	}
	entry.Category = opts.Category
	entry.Description = opts.Description
	entry.DoNotTranslate = opts.DoNotTranslate
	entry.Context = opts.Context
	entry.UpdatedAt = time.Now()
	m.mu.Unlock()

	return m.Save()
}

// Delete removes an entry. Returns an error when the term is unknown.
func (m *Manager) Delete(term string) error {
	m.mu.Lock()
	entry := m.findLocked(term)
	if entry == nil {
		m.mu.Unlock()
		return types.NewAppErrorWithDetails(types.ErrInvalidInput, "glossary term not found", term, nil)
	}
	delete(m.entries, normalizeKey(entry.Term, entry.CaseSensitive))
	m.mu.Unlock()

	return m.Save()
}

// Get looks up a term with the given case sensitivity. Returns nil when
// absent.
func (m *Manager) Get(term string, caseSensitive bool) *Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry := m.entries[normalizeKey(term, caseSensitive)]
	if entry == nil || entry.CaseSensitive != caseSensitive {
		return nil
	}
	return entry
}

// findLocked resolves a term against both key forms.
func (m *Manager) findLocked(term string) *Entry {
	if entry, ok := m.entries[normalizeKey(term, true)]; ok {
		return entry
	}
	if entry, ok := m.entries[normalizeKey(term, false)]; ok {
		return entry
	}
	return nil
}

// List returns all entries sorted by term.
func (m *Manager) List() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Entry, 0, len(m.entries))
	for _, entry := range m.entries {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Term < out[j].Term })
	return out
}

// Size returns the number of glossary entries.
func (m *Manager) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// termPattern builds the word-boundary pattern matching one entry.
func termPattern(entry *Entry) *regexp.Regexp {
	p := `\b` + regexp.QuoteMeta(entry.Term) + `\b`
	if !entry.CaseSensitive {
		p = "(?i)" + p
	}
	return regexp.MustCompile(p)
}

// FindInText scans all glossary entries against text and returns the
// matches sorted by position ascending, longest match first on ties.
func (m *Manager) FindInText(text string) []Match {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.findInTextLocked(text)
}

// finalTranslation resolves what a term becomes in the output language:
// the term itself for do-not-translate entries, the fixed translation
// when one exists, nothing otherwise.
func finalTranslation(entry *Entry, targetLang string) (string, bool) {
	if entry.DoNotTranslate {
		return entry.Term, true
	}
	if t, ok := entry.Translations[targetLang]; ok && t != "" {
		return t, true
	}
	return "", false
}

// wholeStringEntry returns the entry whose term equals the whole trimmed
// string, honoring per-entry case sensitivity.
func (m *Manager) wholeStringEntry(trimmed string) *Entry {
	if entry, ok := m.entries[trimmed]; ok && entry.CaseSensitive && entry.Term == trimmed {
		return entry
	}
	if entry, ok := m.entries[strings.ToLower(trimmed)]; ok && !entry.CaseSensitive {
		return entry
	}
	return nil
}

// PrepareForTranslation runs the two-phase filter over the input strings.
//
// Phase A resolves strings that are exactly a glossary term. Phase B
// replaces every contained protectable term with a unique placeholder
// token; overlapping matches resolve leftmost-longest, so "Acme Corp"
// wins over "Acme" at the same offset. Placeholder numbering is monotonic
// within one call, which guarantees tokens never collide with each other
// or with pre-existing substrings.
func (m *Manager) PrepareForTranslation(strs []string, targetLang string) PrepareResult {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := PrepareResult{
		Placeholders: make(map[string]PlaceholderInfo),
		Skip:         make(map[string]string),
	}
	counter := 0

	for _, s := range strs {
		trimmed := strings.TrimSpace(s)

		// Phase A: whole-string skip.
		if entry := m.wholeStringEntry(trimmed); entry != nil {
			if translation, ok := finalTranslation(entry, targetLang); ok {
				result.Skip[s] = translation
				continue
			}
			// Known term without a translation for this language still
			// needs the API.
		}

		// Phase B: in-text substitution. Overlapping matches resolve
		// leftmost-longest; the survivors are replaced right-to-left so
		// earlier offsets stay valid after each splice.
		type resolved struct {
			match       Match
			translation string
		}
		var selected []resolved
		lastEnd := 0
		for _, match := range m.findInTextLocked(s) {
			if match.Position < lastEnd {
				continue
			}
			translation, ok := finalTranslation(match.entry, targetLang)
			if !ok {
				continue
			}
			selected = append(selected, resolved{match, translation})
			lastEnd = match.Position + len(match.MatchedText)
		}

		processed := s
		for i := len(selected) - 1; i >= 0; i-- {
			match := selected[i].match
			token := fmt.Sprintf(placeholderFormat, counter)
			counter++
			result.Placeholders[token] = PlaceholderInfo{
				Original:    match.MatchedText,
				Term:        match.Term,
				Translation: selected[i].translation,
				Position:    match.Position,
			}
			processed = processed[:match.Position] + token + processed[match.Position+len(match.MatchedText):]
		}

		result.ForAPI = append(result.ForAPI, PreparedString{Original: s, Processed: processed})
	}

	return result
}

func (m *Manager) findInTextLocked(text string) []Match {
	var matches []Match
	for _, entry := range m.entries {
		for _, loc := range termPattern(entry).FindAllStringIndex(text, -1) {
			matches = append(matches, Match{
				Term:        entry.Term,
				Position:    loc[0],
				MatchedText: text[loc[0]:loc[1]],
				entry:       entry,
			})
		}
	}
	// Position ascending; on equal positions the longest match first, then
	// term. Entries come from map iteration, so the sort must not leave any
	// ties to insertion order.
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Position != matches[j].Position {
			return matches[i].Position < matches[j].Position
		}
		if len(matches[i].MatchedText) != len(matches[j].MatchedText) {
			return len(matches[i].MatchedText) > len(matches[j].MatchedText)
		}
		return matches[i].Term < matches[j].Term
	})
	return matches
}

// PostprocessTranslations restores every placeholder token still present
// in the returned translations to its final term translation. Each token
// is replaced globally, not just at its first occurrence.
func PostprocessTranslations(apiTranslations map[string]string, placeholders map[string]PlaceholderInfo) map[string]string {
	out := make(map[string]string, len(apiTranslations))
	for key, translated := range apiTranslations {
		for token, info := range placeholders {
			translated = strings.ReplaceAll(translated, token, info.Translation)
		}
		out[key] = translated
	}
	return out
}

// load reads the whole glossary file. A missing file starts empty.
func (m *Manager) load() error {
	if m.path == "" {
		return nil
	}

	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return types.NewAppError(types.ErrPersistence, "failed to read glossary file", err)
	}

	var file glossaryFile
	if err := json.Unmarshal(data, &file); err != nil {
		return types.NewAppErrorWithDetails(types.ErrPersistence, "failed to parse glossary file", m.path, err)
	}

	m.entries = make(map[string]*Entry, len(file.Terms))
	for i := range file.Terms {
		entry := file.Terms[i]
		m.entries[normalizeKey(entry.Term, entry.CaseSensitive)] = &entry
	}
	if !file.Metadata.Created.IsZero() {
		m.created = file.Metadata.Created
	}

	logger.Debug("glossary loaded",
		logger.String("path", m.path), logger.Int("terms", len(m.entries)))
	return nil
}

// Save rewrites the whole glossary file via a temp file and rename.
func (m *Manager) Save() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.path == "" {
		return nil
	}

	file := glossaryFile{
		Metadata: fileMetadata{
			Version:      "1.0",
			Created:      m.created,
			LastModified: time.Now(),
		},
		Terms: make([]Entry, 0, len(m.entries)),
	}
	for _, entry := range m.entries {
		file.Terms = append(file.Terms, *entry)
	}
	sort.Slice(file.Terms, func(i, j int) bool { return file.Terms[i].Term < file.Terms[j].Term })

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return types.NewAppError(types.ErrPersistence, "failed to marshal glossary file", err)
	}

	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return types.NewAppError(types.ErrPersistence, "failed to create glossary directory", err)
	}

	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return types.NewAppError(types.ErrPersistence, "failed to write glossary file", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		return types.NewAppError(types.ErrPersistence, "failed to replace glossary file", err)
	}
	return nil
}
