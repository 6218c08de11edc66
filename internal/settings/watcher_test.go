package settings

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcher_FiresOnAtomicReplace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "puter-settings.json")
	store := NewFileStore(path)
	if err := store.Save(context.Background(), &Settings{}); err != nil {
		t.Fatalf("initial save failed: %v", err)
	}

	fired := make(chan struct{}, 4)
	watcher, err := NewWatcher(path, func() { fired <- struct{}{} })
	if err != nil {
		t.Fatalf("NewWatcher returned error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err = watcher.Start(ctx); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	if err = store.Save(context.Background(), &Settings{ProviderEnabled: true}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not fire after an atomic replace")
	}
}

func TestWatcher_IgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "puter-settings.json")

	fired := make(chan struct{}, 4)
	watcher, err := NewWatcher(path, func() { fired <- struct{}{} })
	if err != nil {
		t.Fatalf("NewWatcher returned error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err = watcher.Start(ctx); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	sibling := NewFileStore(filepath.Join(dir, "other.json"))
	if err = sibling.Save(context.Background(), &Settings{}); err != nil {
		t.Fatalf("sibling save failed: %v", err)
	}

	select {
	case <-fired:
		t.Fatal("watcher fired for an unrelated file")
	case <-time.After(500 * time.Millisecond):
	}
}
