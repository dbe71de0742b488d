// Package memory implements the translation memory: a content-addressed,
// JSON-backed cache of previously computed translations keyed by source
// text and language pair.
//
// The store is single-writer-in-practice: one process run owns the file.
// Concurrent runs against the same path are unsupported. Writes are
// whole-file rewrites through a temp file and rename, so a crash can lose
// the latest batch of additions but never corrupts on-disk state.
package memory

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"polyglot/internal/logger"
	"polyglot/internal/types"
)

// DefaultBatchThreshold is the number of additions after which the store
// flushes to disk automatically.
const DefaultBatchThreshold = 50

// EntryMetadata carries provenance details for one memory entry.
type EntryMetadata struct {
	Model   string `json:"model,omitempty"`
	Context string `json:"context,omitempty"`
	Tone    string `json:"tone,omitempty"`
}

// Entry is one cached translation.
type Entry struct {
	Key         string        `json:"key"`
	SourceText  string        `json:"sourceText"`
	Translation string        `json:"translation"`
	SourceLang  string        `json:"sourceLang"`
	TargetLang  string        `json:"targetLang"`
	CreatedAt   time.Time     `json:"createdAt"`
	LastUsed    time.Time     `json:"lastUsed"`
	UseCount    int           `json:"useCount"`
	Verified    bool          `json:"verified"`
	Metadata    EntryMetadata `json:"metadata"`
}

// Stats counts lookups and additions for observability.
type Stats struct {
	Hits      int `json:"hits"`
	Misses    int `json:"misses"`
	Additions int `json:"additions"`
}

type fileMetadata struct {
	Version      string    `json:"version"`
	Created      time.Time `json:"created"`
	LastModified time.Time `json:"lastModified"`
}

type memoryFile struct {
	Metadata fileMetadata `json:"metadata"`
	Stats    Stats        `json:"stats"`
	Entries  []Entry      `json:"entries"`
}

// BatchResult is the outcome of a batch lookup.
type BatchResult struct {
	Found   map[string]string
	Missing []string
}

// Store is the in-memory view of the translation memory file.
type Store struct {
	path           string
	entries        map[string]*Entry
	stats          Stats
	created        time.Time
	pending        int
	batchThreshold int
	mu             sync.RWMutex
}

// NewStore creates a Store backed by the given file path and loads any
// existing entries.
func NewStore(path string) (*Store, error) {
	s := &Store{
		path:           path,
		entries:        make(map[string]*Entry),
		created:        time.Now(),
		batchThreshold: DefaultBatchThreshold,
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// SetBatchThreshold overrides the automatic flush threshold. Values < 1
// flush on every addition.
func (s *Store) SetBatchThreshold(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n < 1 {
		n = 1
	}
	s.batchThreshold = n
}

// computeKey derives the entry key: SHA-256 over the language pair and
// the trimmed source text.
func computeKey(text, sourceLang, targetLang string) string {
	h := sha256.New()
	h.Write([]byte(sourceLang))
	h.Write([]byte{0})
	h.Write([]byte(targetLang))
	h.Write([]byte{0})
	h.Write([]byte(strings.TrimSpace(text)))
	return hex.EncodeToString(h.Sum(nil))
}

// Lookup returns the cached translation for (text, sourceLang, targetLang)
// or "" and false on a miss. A key collision with unequal stored source
// text counts as a miss. Hits update useCount and lastUsed.
func (s *Store) Lookup(text, sourceLang, targetLang string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookupLocked(text, sourceLang, targetLang)
}

func (s *Store) lookupLocked(text, sourceLang, targetLang string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	entry, ok := s.entries[computeKey(trimmed, sourceLang, targetLang)]
	if !ok || entry.SourceText != trimmed {
		s.stats.Misses++
		return "", false
	}

	entry.UseCount++
	entry.LastUsed = time.Now()
	s.stats.Hits++
	return entry.Translation, true
}

// BatchLookup partitions texts into found (text -> translation) and
// missing, preserving input order for the missing list.
func (s *Store) BatchLookup(texts []string, sourceLang, targetLang string) BatchResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := BatchResult{Found: make(map[string]string)}
	for _, text := range texts {
		if translation, ok := s.lookupLocked(text, sourceLang, targetLang); ok {
			result.Found[text] = translation
		} else {
			result.Missing = append(result.Missing, text)
		}
	}
	return result
}

// Store adds or replaces a translation. Every batchThreshold additions the
// store flushes to disk; call Save for an explicit flush.
func (s *Store) Store(text, translation, sourceLang, targetLang string, metadata EntryMetadata) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return types.NewAppError(types.ErrInvalidInput, "empty source text", nil)
	}

	s.mu.Lock()
	key := computeKey(trimmed, sourceLang, targetLang)
	now := time.Now()
	s.entries[key] = &Entry{
		Key:         key,
		SourceText:  trimmed,
		Translation: translation,
		SourceLang:  sourceLang,
		TargetLang:  targetLang,
		CreatedAt:   now,
		LastUsed:    now,
		Metadata:    metadata,
	}
	s.stats.Additions++
	s.pending++
	flush := s.pending >= s.batchThreshold
	s.mu.Unlock()

	if flush {
		return s.Save()
	}
	return nil
}

// Delete removes a single entry. Returns true when an entry was removed.
func (s *Store) Delete(text, sourceLang, targetLang string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := computeKey(text, sourceLang, targetLang)
	if _, ok := s.entries[key]; !ok {
		return false
	}
	delete(s.entries, key)
	return true
}

// Clear drops all entries and resets stats. The file is rewritten.
func (s *Store) Clear() error {
	s.mu.Lock()
	s.entries = make(map[string]*Entry)
	s.stats = Stats{}
	s.pending = 0
	s.mu.Unlock()
	return s.Save()
}

// Size returns the number of cached entries.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// GetStats returns a copy of the lookup/addition counters.
func (s *Store) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// load reads the whole memory file into memory. A missing file starts an
// empty store; an unreadable or malformed file is a persistence error.
func (s *Store) load() error {
	if s.path == "" {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return types.NewAppError(types.ErrPersistence, "failed to read memory file", err)
	}

	var file memoryFile
	if err := json.Unmarshal(data, &file); err != nil {
		return types.NewAppErrorWithDetails(types.ErrPersistence, "failed to parse memory file", s.path, err)
	}

	s.entries = make(map[string]*Entry, len(file.Entries))
	for i := range file.Entries {
		entry := file.Entries[i]
		s.entries[entry.Key] = &entry
	}
	s.stats = file.Stats
	if !file.Metadata.Created.IsZero() {
		s.created = file.Metadata.Created
	}

	logger.Debug("translation memory loaded",
		logger.String("path", s.path), logger.Int("entries", len(s.entries)))
	return nil
}

// Save synchronously writes the whole store to disk via a temp file and
// rename.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return nil
	}

	file := memoryFile{
		Metadata: fileMetadata{
			Version:      "1.0",
			Created:      s.created,
			LastModified: time.Now(),
		},
		Stats:   s.stats,
		Entries: make([]Entry, 0, len(s.entries)),
	}
	for _, entry := range s.entries {
		file.Entries = append(file.Entries, *entry)
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return types.NewAppError(types.ErrPersistence, "failed to marshal memory file", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return types.NewAppError(types.ErrPersistence, "failed to create memory directory", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return types.NewAppError(types.ErrPersistence, "failed to write memory file", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return types.NewAppError(types.ErrPersistence, "failed to replace memory file", err)
	}

	s.pending = 0
	return nil
}
