// Package puter integrates the Puter hosted AI gateway into the chat
// application: it wraps the browser-injected SDK behind an availability
// checked adapter, maintains the curated and user defined model lists, and
// keeps the persisted settings fragment and the global model registry in sync.
package puter

// ProviderTag prefixes model identifiers contributed by this integration so
// they never collide with other providers' identifiers.
const ProviderTag = "puter"

// DisplayPrefix is prepended to model display names in the global list.
const DisplayPrefix = "Puter: "

// CuratedModel describes one provider endorsed model identifier. The curated
// table is defined at build time and never persisted.
type CuratedModel struct {
	// ID is the identifier understood by the Puter gateway.
	ID string `json:"id"`
	// Name is the human readable display name.
	Name string `json:"name"`
	// Provider is the organisation that owns the underlying model.
	Provider string `json:"provider"`
}

// curatedModels is the static catalog of models the Puter gateway exposes to
// every account. Order is the display order.
var curatedModels = []CuratedModel{
	{ID: "gpt-4o-mini", Name: "GPT-4o mini", Provider: "openai"},
	{ID: "gpt-4o", Name: "GPT-4o", Provider: "openai"},
	{ID: "gpt-4.1", Name: "GPT-4.1", Provider: "openai"},
	{ID: "gpt-4.1-mini", Name: "GPT-4.1 mini", Provider: "openai"},
	{ID: "o1-mini", Name: "o1 mini", Provider: "openai"},
	{ID: "o3-mini", Name: "o3 mini", Provider: "openai"},
	{ID: "claude-3-5-sonnet", Name: "Claude 3.5 Sonnet", Provider: "anthropic"},
	{ID: "claude-3-7-sonnet", Name: "Claude 3.7 Sonnet", Provider: "anthropic"},
	{ID: "deepseek-chat", Name: "DeepSeek Chat", Provider: "deepseek"},
	{ID: "deepseek-reasoner", Name: "DeepSeek Reasoner", Provider: "deepseek"},
	{ID: "gemini-2.0-flash", Name: "Gemini 2.0 Flash", Provider: "google"},
	{ID: "gemini-1.5-flash", Name: "Gemini 1.5 Flash", Provider: "google"},
	{ID: "mistral-large-latest", Name: "Mistral Large", Provider: "mistral"},
	{ID: "pixtral-large-latest", Name: "Pixtral Large", Provider: "mistral"},
	{ID: "codestral-latest", Name: "Codestral", Provider: "mistral"},
	{ID: "grok-beta", Name: "Grok Beta", Provider: "xai"},
}

// CuratedModels returns the build time model catalog in display order. The
// returned slice is a copy; callers may reorder it freely.
func CuratedModels() []CuratedModel {
	out := make([]CuratedModel, len(curatedModels))
	copy(out, curatedModels)
	return out
}

// IsCuratedModel reports whether id matches a curated model identifier.
func IsCuratedModel(id string) bool {
	for i := range curatedModels {
		if curatedModels[i].ID == id {
			return true
		}
	}
	return false
}
