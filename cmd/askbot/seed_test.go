package main

import (
	"strings"
	"testing"

	"github.com/kalambet/askbot/internal/lang"
	"github.com/kalambet/askbot/internal/storage"
)

func openTestStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSeedSample_Idempotent(t *testing.T) {
	store := openTestStore(t)
	doc, err := parseSeed(sampleContent)
	if err != nil {
		t.Fatalf("parseSeed: %v", err)
	}

	first, err := seedContent(ctx, store, doc)
	if err != nil {
		t.Fatalf("first seed: %v", err)
	}
	if first.Categories != 7 || first.Responses != 5 || first.Skipped != 0 {
		t.Errorf("first seed counts = %+v, want 7 categories, 5 responses", first)
	}

	second, err := seedContent(ctx, store, doc)
	if err != nil {
		t.Fatalf("second seed: %v", err)
	}
	if second.Responses != 0 || second.Skipped != 5 {
		t.Errorf("second seed counts = %+v, want everything skipped", second)
	}

	roots, err := store.ListChildCategories(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(roots) != 2 {
		t.Fatalf("got %d top-level categories, want 2", len(roots))
	}
	for _, r := range roots {
		if r.ChildCount == 0 {
			t.Errorf("category %q has no children", r.Names.FR)
		}
	}

	text, err := store.ListTextResponses(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(text) != 2 {
		t.Errorf("got %d text responses, want 2", len(text))
	}
}

func TestSeed_HiddenCategory(t *testing.T) {
	store := openTestStore(t)
	doc, err := parseSeed([]byte(`
categories:
  - names: {fr: Santé, en: Health}
    source_lang: en
    visible: false
    responses:
      - type: text
        answers: {fr: Appelez le 141., en: Call 141.}
`))
	if err != nil {
		t.Fatalf("parseSeed: %v", err)
	}
	if _, err := seedContent(ctx, store, doc); err != nil {
		t.Fatalf("seedContent: %v", err)
	}

	cat, err := store.GetCategory(ctx, 1)
	if err != nil {
		t.Fatalf("GetCategory: %v", err)
	}
	if cat.Visible {
		t.Error("category should be hidden")
	}
	if cat.SourceLang != lang.EN {
		t.Errorf("source lang = %q, want en", cat.SourceLang)
	}
	if cat.Label(lang.AR) != "Santé" {
		t.Errorf("arabic label = %q, want French fallback", cat.Label(lang.AR))
	}

	roots, err := store.ListChildCategories(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(roots) != 0 {
		t.Errorf("hidden category browsable: %+v", roots)
	}

	visible, err := store.ListVisibleCategories(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(visible) != 0 {
		t.Errorf("hidden category listed as visible: %+v", visible)
	}
}

func TestSeed_Errors(t *testing.T) {
	store := openTestStore(t)

	if _, err := parseSeed([]byte("categories: [")); err == nil {
		t.Error("expected parse error for malformed yaml")
	}
	if _, err := parseSeed([]byte("categories: []")); err == nil {
		t.Error("expected error for empty document")
	}

	doc, err := parseSeed([]byte(`
categories:
  - names: {fr: Transport}
    responses:
      - type: fax
        answers: {fr: Envoyez un fax.}
`))
	if err != nil {
		t.Fatalf("parseSeed: %v", err)
	}
	_, err = seedContent(ctx, store, doc)
	if err == nil || !strings.Contains(err.Error(), "invalid response type") {
		t.Errorf("err = %v, want invalid response type", err)
	}

	doc, err = parseSeed([]byte(`
categories:
  - names: {en: Unnamed}
`))
	if err != nil {
		t.Fatalf("parseSeed: %v", err)
	}
	if _, err := seedContent(ctx, store, doc); err == nil {
		t.Error("expected error for category without a French name")
	}
}
