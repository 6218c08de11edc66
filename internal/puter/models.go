package puter

import (
	"strings"

	"github.com/openchat-dev/puterbridge/internal/registry"
	"github.com/openchat-dev/puterbridge/internal/settings"
)

// Model is one entry of the provider's merged candidate list: the curated
// catalog plus the user's custom additions.
type Model struct {
	// ID is the identifier sent to the gateway, without the global prefix.
	ID string `json:"id"`
	// Name is the display name; custom entries display their raw id.
	Name string `json:"name"`
	// Provider is the owning provider tag.
	Provider string `json:"provider"`
	// Endpoint optionally overrides the completion endpoint (custom only).
	Endpoint *string `json:"endpoint,omitempty"`
	// Custom marks user supplied entries.
	Custom bool `json:"custom,omitempty"`
}

// MergedModels concatenates the curated catalog with the custom entries whose
// trimmed id does not shadow a curated id. The provider tag of a custom entry
// is derived from the part before the first ':' in its id when present,
// otherwise "custom" (e.g. "openrouter:meta-llama/llama-3.1-8b-instruct" is
// tagged "openrouter").
func MergedModels(custom []settings.CustomModel) []Model {
	curated := CuratedModels()
	out := make([]Model, 0, len(curated)+len(custom))
	for _, model := range curated {
		out = append(out, Model{ID: model.ID, Name: model.Name, Provider: model.Provider})
	}
	for _, entry := range custom {
		id := strings.TrimSpace(entry.ID)
		if id == "" || IsCuratedModel(id) {
			continue
		}
		out = append(out, Model{
			ID:       id,
			Name:     id,
			Provider: customProviderTag(id),
			Endpoint: entry.Endpoint,
			Custom:   true,
		})
	}
	return out
}

func customProviderTag(id string) string {
	if idx := strings.Index(id, ":"); idx > 0 {
		return id[:idx]
	}
	return "custom"
}

// GlobalModelInfos transforms the merged candidate list into global registry
// entries: ids gain the "puter/" prefix, names gain the human label, and the
// external and puter flags are set.
func GlobalModelInfos(custom []settings.CustomModel) []*registry.ModelInfo {
	merged := MergedModels(custom)
	out := make([]*registry.ModelInfo, 0, len(merged))
	for _, model := range merged {
		out = append(out, &registry.ModelInfo{
			ID:       ProviderTag + "/" + model.ID,
			Object:   "model",
			OwnedBy:  model.Provider,
			Name:     DisplayPrefix + model.Name,
			External: true,
			Puter:    true,
		})
	}
	return out
}

// RebuildGlobal combines baseModels (contributed by all other providers) with
// this provider's merged catalog. The base list always comes first and is
// returned unchanged when the integration is disabled. No deduplication is
// performed against baseModels; the "puter/" prefix keeps the id spaces
// disjoint by construction.
func RebuildGlobal(baseModels []*registry.ModelInfo, providerEnabled bool, custom []settings.CustomModel) []*registry.ModelInfo {
	out := make([]*registry.ModelInfo, 0, len(baseModels))
	out = append(out, baseModels...)
	if !providerEnabled {
		return out
	}
	return append(out, GlobalModelInfos(custom)...)
}
