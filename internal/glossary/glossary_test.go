package glossary

import (
	"path/filepath"
	"strings"
	"testing"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(filepath.Join(t.TempDir(), "glossary.json"))
	if err != nil {
		t.Fatalf("NewManager() error: %v", err)
	}
	return m
}

func TestAddGetDelete(t *testing.T) {
	m := newTestManager(t)

	if err := m.Add("Acme", nil, EntryOptions{DoNotTranslate: true, Category: "brand"}); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	if err := m.Add("Acme", nil, EntryOptions{DoNotTranslate: true}); err == nil {
		t.Error("Add() of duplicate term should fail")
	}

	entry := m.Get("Acme", false)
	if entry == nil || !entry.DoNotTranslate || entry.Category != "brand" {
		t.Fatalf("Get() = %+v", entry)
	}
	// Case-insensitive entries resolve under any casing.
	if m.Get("ACME", false) == nil {
		t.Error("Get() should be case-insensitive for this entry")
	}

	if err := m.Delete("Acme"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if err := m.Delete("Acme"); err == nil {
		t.Error("Delete() of absent term should fail")
	}
	if m.Size() != 0 {
		t.Errorf("Size() = %d, want 0", m.Size())
	}
}

func TestCaseSensitiveEntriesAreDistinct(t *testing.T) {
	m := newTestManager(t)

	if err := m.Add("iOS", nil, EntryOptions{CaseSensitive: true, DoNotTranslate: true}); err != nil {
		t.Fatalf("Add() error: %v", err)
	}

	if m.Get("iOS", true) == nil {
		t.Error("Get() with exact casing should hit")
	}
	if m.Get("ios", true) != nil {
		t.Error("Get() with wrong casing should miss a case-sensitive entry")
	}

	matches := m.FindInText("Available on ios and iOS devices")
	if len(matches) != 1 || matches[0].MatchedText != "iOS" {
		t.Errorf("FindInText() = %+v, want one exact-case match", matches)
	}
}

func TestFindInTextOrderingAndBoundaries(t *testing.T) {
	m := newTestManager(t)
	m.Add("Cloud", map[string]string{"es": "Nube"}, EntryOptions{})
	m.Add("Acme", nil, EntryOptions{DoNotTranslate: true})

	matches := m.FindInText("Acme Cloud is not CloudAcme")
	if len(matches) != 2 {
		t.Fatalf("FindInText() returned %d matches, want 2: %+v", len(matches), matches)
	}
	if matches[0].Term != "Acme" || matches[1].Term != "Cloud" {
		t.Errorf("FindInText() order = [%s %s], want position ascending", matches[0].Term, matches[1].Term)
	}
	if matches[0].Position >= matches[1].Position {
		t.Error("FindInText() matches not sorted by position")
	}
}

func TestPrepareWholeStringSkip(t *testing.T) {
	m := newTestManager(t)
	m.Add("Acme", nil, EntryOptions{DoNotTranslate: true})
	m.Add("Dashboard", map[string]string{"es": "Panel"}, EntryOptions{})

	result := m.PrepareForTranslation([]string{"Acme", "Dashboard"}, "es")
	if len(result.ForAPI) != 0 {
		t.Errorf("ForAPI = %+v, want empty", result.ForAPI)
	}
	if result.Skip["Acme"] != "Acme" {
		t.Errorf("Skip[Acme] = %q, want the term itself", result.Skip["Acme"])
	}
	if result.Skip["Dashboard"] != "Panel" {
		t.Errorf("Skip[Dashboard] = %q, want %q", result.Skip["Dashboard"], "Panel")
	}
}

func TestPrepareWholeStringWithoutTargetTranslationGoesToAPI(t *testing.T) {
	m := newTestManager(t)
	m.Add("Dashboard", map[string]string{"es": "Panel"}, EntryOptions{})

	result := m.PrepareForTranslation([]string{"Dashboard"}, "fr")
	if len(result.Skip) != 0 {
		t.Errorf("Skip = %v, want empty for a language without a fixed translation", result.Skip)
	}
	if len(result.ForAPI) != 1 {
		t.Fatalf("ForAPI = %+v, want one string", result.ForAPI)
	}
}

func TestPrepareInTextPlaceholders(t *testing.T) {
	m := newTestManager(t)
	m.Add("Acme", nil, EntryOptions{DoNotTranslate: true})

	result := m.PrepareForTranslation([]string{"Welcome to Acme today"}, "es")
	if len(result.ForAPI) != 1 {
		t.Fatalf("ForAPI = %+v, want one string", result.ForAPI)
	}

	prepared := result.ForAPI[0]
	if prepared.Original != "Welcome to Acme today" {
		t.Errorf("Original = %q", prepared.Original)
	}
	if strings.Contains(prepared.Processed, "Acme") {
		t.Errorf("Processed = %q still contains the protected term", prepared.Processed)
	}
	if strings.Count(prepared.Processed, "__GLOSSARY_0__") != 1 {
		t.Errorf("Processed = %q, want exactly one __GLOSSARY_0__ token", prepared.Processed)
	}

	info, ok := result.Placeholders["__GLOSSARY_0__"]
	if !ok || info.Term != "Acme" || info.Translation != "Acme" {
		t.Errorf("Placeholders = %+v", result.Placeholders)
	}
}

// Overlapping terms must resolve the same way on every call, preferring
// the longest match so multi-word terms are never split.
func TestPrepareOverlappingTermsResolveDeterministically(t *testing.T) {
	m := newTestManager(t)
	m.Add("Acme", nil, EntryOptions{DoNotTranslate: true})
	m.Add("Acme Corp", nil, EntryOptions{DoNotTranslate: true})

	matches := m.FindInText("Visit Acme Corp now")
	if len(matches) != 2 || matches[0].Term != "Acme Corp" {
		t.Fatalf("FindInText() = %+v, want the longest match first on position ties", matches)
	}

	for i := 0; i < 50; i++ {
		result := m.PrepareForTranslation([]string{"Visit Acme Corp now"}, "es")
		if len(result.ForAPI) != 1 {
			t.Fatalf("ForAPI = %+v, want one string", result.ForAPI)
		}
		if got := result.ForAPI[0].Processed; got != "Visit __GLOSSARY_0__ now" {
			t.Fatalf("Processed = %q, want the full multi-word term protected", got)
		}
		info := result.Placeholders["__GLOSSARY_0__"]
		if info.Term != "Acme Corp" || info.Translation != "Acme Corp" {
			t.Fatalf("Placeholders = %+v, want Acme Corp protected whole", result.Placeholders)
		}
	}
}

func TestUpdateChangesCaseSensitivity(t *testing.T) {
	m := newTestManager(t)
	m.Add("iOS", nil, EntryOptions{DoNotTranslate: true})

	if err := m.Update("iOS", nil, EntryOptions{DoNotTranslate: true, CaseSensitive: true}); err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if m.Get("iOS", true) == nil {
		t.Error("entry should resolve case-sensitively after the update")
	}
	if m.Get("ios", false) != nil {
		t.Error("old case-insensitive key must be gone after re-keying")
	}
}

func TestUpdateCaseSensitivityCollisionRejected(t *testing.T) {
	m := newTestManager(t)
	m.Add("Acme", nil, EntryOptions{DoNotTranslate: true, CaseSensitive: true})
	m.Add("acme", nil, EntryOptions{DoNotTranslate: true, CaseSensitive: true})

	err := m.Update("Acme", nil, EntryOptions{DoNotTranslate: true})
	if err == nil {
		t.Fatal("Update() flipping to case-insensitive must fail when the key is taken")
	}
	// Both entries survive unchanged.
	if m.Get("Acme", true) == nil || m.Get("acme", true) == nil {
		t.Error("a rejected update must not modify the glossary")
	}
}

func TestPreparePlaceholderNumberingIsMonotonic(t *testing.T) {
	m := newTestManager(t)
	m.Add("Acme", nil, EntryOptions{DoNotTranslate: true})
	m.Add("Cloud", map[string]string{"es": "Nube"}, EntryOptions{})

	result := m.PrepareForTranslation([]string{
		"Acme Cloud sync",
		"Back up to Cloud",
	}, "es")

	if len(result.Placeholders) != 3 {
		t.Fatalf("Placeholders = %+v, want 3 tokens", result.Placeholders)
	}
	for _, token := range []string{"__GLOSSARY_0__", "__GLOSSARY_1__", "__GLOSSARY_2__"} {
		if _, ok := result.Placeholders[token]; !ok {
			t.Errorf("missing token %s in %+v", token, result.Placeholders)
		}
	}
}

func TestPostprocessRestoresPlaceholders(t *testing.T) {
	m := newTestManager(t)
	m.Add("Acme", nil, EntryOptions{DoNotTranslate: true})

	result := m.PrepareForTranslation([]string{"Welcome to Acme today"}, "es")
	processed := result.ForAPI[0].Processed

	// Simulate the model translating the surrounding text but keeping the
	// token verbatim.
	api := map[string]string{
		processed: strings.Replace(processed, "Welcome to", "Bienvenido a", 1),
	}
	restored := PostprocessTranslations(api, result.Placeholders)

	got := restored[processed]
	if strings.Contains(got, "__GLOSSARY_") {
		t.Errorf("restored = %q still contains a placeholder token", got)
	}
	if !strings.Contains(got, "Acme") {
		t.Errorf("restored = %q lost the protected term", got)
	}
}

func TestPrepareNoGlossaryPassThrough(t *testing.T) {
	m := newTestManager(t)

	result := m.PrepareForTranslation([]string{"Hello world"}, "es")
	if len(result.ForAPI) != 1 || result.ForAPI[0].Processed != "Hello world" {
		t.Errorf("ForAPI = %+v, want untouched pass-through", result.ForAPI)
	}
	if len(result.Placeholders) != 0 || len(result.Skip) != 0 {
		t.Errorf("unexpected placeholders or skips: %+v", result)
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glossary.json")
	m, err := NewManager(path)
	if err != nil {
		t.Fatal(err)
	}
	m.Add("Acme", nil, EntryOptions{DoNotTranslate: true})
	m.Add("Dashboard", map[string]string{"es": "Panel", "fr": "Tableau"}, EntryOptions{Category: "ui"})

	reloaded, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager() reload error: %v", err)
	}
	if reloaded.Size() != 2 {
		t.Fatalf("reloaded Size() = %d, want 2", reloaded.Size())
	}

	entry := reloaded.Get("Dashboard", false)
	if entry == nil || entry.Translations["es"] != "Panel" || entry.Category != "ui" {
		t.Errorf("reloaded Get() = %+v", entry)
	}

	terms := reloaded.List()
	if terms[0].Term != "Acme" || terms[1].Term != "Dashboard" {
		t.Errorf("List() = %+v, want sorted by term", terms)
	}
}
