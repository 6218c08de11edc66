package puter

import (
	"testing"

	"github.com/openchat-dev/puterbridge/internal/settings"
)

func TestAddCustomModel_GrowsByOneAndMerges(t *testing.T) {
	list, entry, err := AddCustomModel(nil, "  openrouter:meta-llama/llama-3.1-8b-instruct  ", "")
	if err != nil {
		t.Fatalf("AddCustomModel returned error: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(list))
	}
	if entry.ID != "openrouter:meta-llama/llama-3.1-8b-instruct" {
		t.Fatalf("id not trimmed: %q", entry.ID)
	}
	if entry.Endpoint != nil {
		t.Fatalf("expected absent endpoint, got %q", *entry.Endpoint)
	}

	found := false
	for _, model := range MergedModels(list) {
		if model.ID == entry.ID {
			found = true
		}
	}
	if !found {
		t.Fatal("added model missing from merged list")
	}
}

func TestAddCustomModel_RejectsEmptyAndDuplicates(t *testing.T) {
	list := []settings.CustomModel{{ID: "foo"}}

	cases := []struct {
		name string
		id   string
	}{
		{"empty", "   "},
		{"duplicate", "foo"},
		{"curated collision", CuratedModels()[0].ID},
		{"curated collision with spaces", " " + CuratedModels()[0].ID + " "},
	}
	for _, tc := range cases {
		out, _, err := AddCustomModel(list, tc.id, "")
		if err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
		if !IsValidationError(err) {
			t.Fatalf("%s: expected validation error code, got %v", tc.name, err)
		}
		if len(out) != len(list) {
			t.Fatalf("%s: list changed on rejected input", tc.name)
		}
	}
}

func TestRemoveCustomModel_AbsentIsNoop(t *testing.T) {
	list := []settings.CustomModel{{ID: "a"}, {ID: "b"}}
	out := RemoveCustomModel(list, "missing")
	if len(out) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(out))
	}
	out = RemoveCustomModel(out, "a")
	if len(out) != 1 || out[0].ID != "b" {
		t.Fatalf("unexpected list after removal: %+v", out)
	}
}

func TestSetCustomEndpoint_EmptyNormalisesToAbsent(t *testing.T) {
	endpoint := "https://example.test/v1"
	list := []settings.CustomModel{{ID: "a", Endpoint: &endpoint}}

	out := SetCustomEndpoint(list, "a", "  ")
	if out[0].Endpoint != nil {
		t.Fatalf("expected endpoint cleared, got %q", *out[0].Endpoint)
	}

	out = SetCustomEndpoint(out, "a", " https://other.test ")
	if out[0].Endpoint == nil || *out[0].Endpoint != "https://other.test" {
		t.Fatalf("endpoint not set and trimmed: %+v", out[0])
	}

	// Unknown ids are ignored.
	out = SetCustomEndpoint(out, "missing", "x")
	if len(out) != 1 {
		t.Fatalf("unexpected list growth: %+v", out)
	}
}
