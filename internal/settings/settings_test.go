package settings

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestSettings_LegacyStringArrayUpgrade(t *testing.T) {
	raw := []byte(`{"providerEnabled":true,"customModels":["alpha","beta"]}`)
	var decoded Settings
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("failed to decode legacy fragment: %v", err)
	}
	if !decoded.ProviderEnabled {
		t.Fatal("providerEnabled lost in upgrade")
	}
	if len(decoded.CustomModels) != 2 {
		t.Fatalf("expected 2 custom models, got %d", len(decoded.CustomModels))
	}
	for i, want := range []string{"alpha", "beta"} {
		entry := decoded.CustomModels[i]
		if entry.ID != want {
			t.Fatalf("entry %d: expected id %q, got %q", i, want, entry.ID)
		}
		if entry.Endpoint != nil {
			t.Fatalf("entry %d: legacy entry must have no endpoint", i)
		}
	}
}

func TestSettings_MixedLegacyAndObjectEntries(t *testing.T) {
	raw := []byte(`{"customModels":["plain",{"id":"rich","endpoint":"https://alt.example.test"}]}`)
	var decoded Settings
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("failed to decode mixed fragment: %v", err)
	}
	if decoded.CustomModels[0].ID != "plain" || decoded.CustomModels[0].Endpoint != nil {
		t.Fatalf("unexpected legacy entry: %+v", decoded.CustomModels[0])
	}
	if decoded.CustomModels[1].ID != "rich" {
		t.Fatalf("unexpected object entry: %+v", decoded.CustomModels[1])
	}
	if decoded.CustomModels[1].Endpoint == nil || *decoded.CustomModels[1].Endpoint != "https://alt.example.test" {
		t.Fatal("endpoint override lost")
	}
}

func TestSettings_CloneIsDeep(t *testing.T) {
	endpoint := "https://alt.example.test"
	original := &Settings{
		ProviderEnabled: true,
		CustomModels:    []CustomModel{{ID: "alpha", Endpoint: &endpoint}},
	}
	cloned := original.Clone()
	*cloned.CustomModels[0].Endpoint = "https://mutated.example.test"
	cloned.CustomModels[0].ID = "mutated"
	if *original.CustomModels[0].Endpoint != "https://alt.example.test" {
		t.Fatal("clone shares endpoint pointer with original")
	}
	if original.CustomModels[0].ID != "alpha" {
		t.Fatal("clone shares slice with original")
	}
}

func TestFileStore_MissingFileYieldsDefaults(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "puter-settings.json"))
	loaded, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if loaded.ProviderEnabled || len(loaded.CustomModels) != 0 {
		t.Fatalf("expected defaults, got %+v", loaded)
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "puter-settings.json")
	store := NewFileStore(path)
	endpoint := "https://alt.example.test"
	saved := &Settings{
		ProviderEnabled: true,
		CustomModels: []CustomModel{
			{ID: "openrouter:meta-llama/llama-3.1-8b-instruct"},
			{ID: "custom-model", Endpoint: &endpoint},
		},
	}
	if err := store.Save(context.Background(), saved); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatal("temporary file left behind")
	}

	loaded, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !loaded.ProviderEnabled {
		t.Fatal("providerEnabled not persisted")
	}
	if len(loaded.CustomModels) != 2 {
		t.Fatalf("expected 2 custom models, got %d", len(loaded.CustomModels))
	}
	if loaded.CustomModels[0].Endpoint != nil {
		t.Fatal("nil endpoint became non-nil across a round trip")
	}
	if loaded.CustomModels[1].Endpoint == nil || *loaded.CustomModels[1].Endpoint != endpoint {
		t.Fatal("endpoint override not persisted")
	}
}

func TestFileStore_LegacyFileUpgradesOnLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "puter-settings.json")
	legacy := []byte(`{"providerEnabled":false,"customModels":["gamma"]}`)
	if err := os.WriteFile(path, legacy, 0o600); err != nil {
		t.Fatalf("failed to seed legacy file: %v", err)
	}
	store := NewFileStore(path)
	loaded, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(loaded.CustomModels) != 1 || loaded.CustomModels[0].ID != "gamma" {
		t.Fatalf("legacy entries not upgraded: %+v", loaded.CustomModels)
	}
}
