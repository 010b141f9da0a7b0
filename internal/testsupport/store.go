package testsupport

import (
	"context"
	"testing"

	"storyboard/internal/catalog"
	"storyboard/internal/config"
)

// MustOpenStore opens a catalog.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewScript creates a script for tests using the provided store.
func NewScript(t testing.TB, store *catalog.Store, name string) *catalog.Script {
	t.Helper()

	script, err := store.CreateScript(context.Background(), name)
	if err != nil {
		t.Fatalf("store.CreateScript: %v", err)
	}
	return script
}

// NewSentence creates a sentence for tests using the provided store.
func NewSentence(t testing.TB, store *catalog.Store, scriptID, text string) *catalog.Sentence {
	t.Helper()

	sentence, err := store.CreateSentence(context.Background(), scriptID, text)
	if err != nil {
		t.Fatalf("store.CreateSentence: %v", err)
	}
	return sentence
}
