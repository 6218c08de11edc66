package puter

import (
	"context"
	"strings"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Message is one chat turn sent to the gateway.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatOptions tunes a single chat invocation.
type ChatOptions struct {
	// Model is the gateway model identifier, without the "puter/" prefix.
	Model string
	// Endpoint optionally overrides the completion endpoint (custom models).
	Endpoint *string
	// Temperature is forwarded when non-nil.
	Temperature *float64
}

// ChatCallbacks receives streaming delivery. OnToken fires once per token,
// OnComplete once with the concatenation, OnError once on failure. After the
// handle is cancelled none of them fire again.
type ChatCallbacks struct {
	OnToken    func(token string)
	OnComplete func(text string)
	OnError    func(err error)
}

// Usage reports token accounting when the gateway includes it.
type Usage struct {
	InputTokens  int `json:"input_tokens,omitempty"`
	OutputTokens int `json:"output_tokens,omitempty"`
}

// ChatResult is the outcome of a non-streaming chat call.
type ChatResult struct {
	Text  string `json:"text"`
	Usage *Usage `json:"usage,omitempty"`
}

// ChatHandle allows cancelling an in-flight streaming chat. Cancellation is
// cooperative: delivery stops before the next token, but the underlying
// stream keeps draining because the browser side offers no abort guarantee.
type ChatHandle struct {
	cancelled atomic.Bool
	done      chan struct{}
}

// Cancel stops further callback delivery.
func (h *ChatHandle) Cancel() {
	if h == nil {
		return
	}
	h.cancelled.Store(true)
}

// Done is closed once the underlying stream has drained.
func (h *ChatHandle) Done() <-chan struct{} {
	if h == nil {
		return nil
	}
	return h.done
}

// Adapter exposes the injected SDK behind a capability checked surface: every
// call tests availability first and fails with a typed error instead of an
// undefined call when no browser page is connected.
type Adapter struct {
	// sdk overrides the global slot when non-nil; used by tests and by
	// callers that manage their own SDK lifecycle.
	sdk SDK
}

// NewAdapter creates an adapter bound to the global SDK slot.
func NewAdapter() *Adapter { return &Adapter{} }

// NewAdapterWithSDK creates an adapter bound to a fixed SDK instance.
func NewAdapterWithSDK(sdk SDK) *Adapter { return &Adapter{sdk: sdk} }

func (a *Adapter) current() SDK {
	if a != nil && a.sdk != nil {
		return a.sdk
	}
	return CurrentSDK()
}

// IsAvailable reports whether the SDK is present. It must be checked before
// any other adapter call.
func (a *Adapter) IsAvailable() bool {
	return a.current() != nil
}

// SignIn runs the provider sign-in flow. Failures reported by the SDK are
// translated into an auth error.
func (a *Adapter) SignIn(ctx context.Context) error {
	sdk := a.current()
	if sdk == nil {
		return ErrAdapterUnavailable
	}
	raw, err := sdk.SignIn(ctx)
	if err != nil {
		return NewAuthError(err.Error())
	}
	if msg, failed := errorPayloadMessage(raw); failed {
		return NewAuthError(msg)
	}
	return nil
}

// SignOut terminates the provider session.
func (a *Adapter) SignOut(ctx context.Context) error {
	sdk := a.current()
	if sdk == nil {
		return ErrAdapterUnavailable
	}
	if err := sdk.SignOut(ctx); err != nil {
		return NewAuthError(err.Error())
	}
	return nil
}

// IsSignedIn reports the session state. It degrades to false when the SDK is
// absent instead of erroring.
func (a *Adapter) IsSignedIn() bool {
	sdk := a.current()
	if sdk == nil {
		return false
	}
	return sdk.IsSignedIn()
}

// CurrentUser returns the signed in account, or nil when signed out. SDK
// errors are logged and reported as nil rather than surfaced.
func (a *Adapter) CurrentUser(ctx context.Context) *User {
	sdk := a.current()
	if sdk == nil {
		return nil
	}
	raw, err := sdk.GetUser(ctx)
	if err != nil {
		log.Warnf("puter: failed to fetch current user: %v", err)
		return nil
	}
	if len(raw) == 0 || gjson.GetBytes(raw, "username").String() == "" {
		return nil
	}
	return &User{
		Username: gjson.GetBytes(raw, "username").String(),
		Email:    gjson.GetBytes(raw, "email").String(),
	}
}

// Chat submits a streaming chat request and delivers the outcome through the
// callbacks. Three raw outcomes are distinguished: an explicit error payload
// (OnError), a chunk sequence (OnToken per chunk, OnComplete with the
// concatenation), and a single complete payload (one OnToken + OnComplete).
func (a *Adapter) Chat(ctx context.Context, messages []Message, opts ChatOptions, callbacks ChatCallbacks) (*ChatHandle, error) {
	sdk := a.current()
	if sdk == nil {
		return nil, ErrAdapterUnavailable
	}
	payload, err := buildChatPayload(messages, opts, true)
	if err != nil {
		return nil, err
	}
	resp, err := sdk.Chat(ctx, payload, true)
	if err != nil {
		return nil, NewStreamError(err.Error())
	}

	handle := &ChatHandle{done: make(chan struct{})}
	go deliverChat(resp, callbacks, handle)
	return handle, nil
}

// deliverChat drains the response and invokes callbacks. Cancellation is
// checked before every delivery; the drain itself always runs to completion.
func deliverChat(resp *ChatResponse, callbacks ChatCallbacks, handle *ChatHandle) {
	defer close(handle.done)

	emitToken := func(token string) {
		if token == "" || handle.cancelled.Load() || callbacks.OnToken == nil {
			return
		}
		callbacks.OnToken(token)
	}
	emitComplete := func(text string) {
		if handle.cancelled.Load() || callbacks.OnComplete == nil {
			return
		}
		callbacks.OnComplete(text)
	}
	emitError := func(err error) {
		if handle.cancelled.Load() || callbacks.OnError == nil {
			return
		}
		callbacks.OnError(err)
	}

	if resp == nil {
		emitError(NewStreamError("empty response from provider"))
		return
	}

	if resp.Stream == nil {
		if msg, failed := errorPayloadMessage(resp.Raw); failed {
			emitError(NewStreamError(msg))
			return
		}
		// A complete response delivers exactly one token, even when the
		// extracted text is empty; the empty-token skip applies to stream
		// chunks only.
		text := extractText(resp.Raw)
		if !handle.cancelled.Load() && callbacks.OnToken != nil {
			callbacks.OnToken(text)
		}
		emitComplete(text)
		return
	}

	var full strings.Builder
	errored := false
	for chunk := range resp.Stream {
		if errored {
			continue // keep draining, no further delivery
		}
		if msg, failed := errorPayloadMessage(chunk); failed {
			errored = true
			emitError(NewStreamError(msg))
			continue
		}
		token := extractText(chunk)
		if token == "" {
			continue
		}
		full.WriteString(token)
		emitToken(token)
	}
	if !errored {
		emitComplete(full.String())
	}
}

// ChatSync submits a non-streaming chat request. Unlike the streaming path,
// provider errors propagate to the caller.
func (a *Adapter) ChatSync(ctx context.Context, messages []Message, opts ChatOptions) (*ChatResult, error) {
	sdk := a.current()
	if sdk == nil {
		return nil, ErrAdapterUnavailable
	}
	payload, err := buildChatPayload(messages, opts, false)
	if err != nil {
		return nil, err
	}
	resp, err := sdk.Chat(ctx, payload, false)
	if err != nil {
		return nil, NewStreamError(err.Error())
	}
	if resp == nil {
		return nil, NewStreamError("empty response from provider")
	}
	raw := resp.Raw
	if resp.Stream != nil {
		// A sequence answered a non-streaming request; concatenate it.
		var full strings.Builder
		for chunk := range resp.Stream {
			if msg, failed := errorPayloadMessage(chunk); failed {
				return nil, NewStreamError(msg)
			}
			full.WriteString(extractText(chunk))
		}
		return &ChatResult{Text: full.String()}, nil
	}
	if msg, failed := errorPayloadMessage(raw); failed {
		return nil, NewStreamError(msg)
	}
	result := &ChatResult{Text: extractText(raw)}
	if usage := gjson.GetBytes(raw, "usage"); usage.Exists() {
		result.Usage = &Usage{
			InputTokens:  int(usage.Get("input_tokens").Int()),
			OutputTokens: int(usage.Get("output_tokens").Int()),
		}
	}
	return result, nil
}

// ListModels returns the model identifiers the gateway reports for the
// current account. Entries may be plain strings or objects carrying an id.
func (a *Adapter) ListModels(ctx context.Context) ([]string, error) {
	sdk := a.current()
	if sdk == nil {
		return nil, ErrAdapterUnavailable
	}
	raw, err := sdk.ListModels(ctx)
	if err != nil {
		return nil, NewStreamError(err.Error())
	}
	if msg, failed := errorPayloadMessage(raw); failed {
		return nil, NewStreamError(msg)
	}
	list := gjson.GetBytes(raw, "models")
	if !list.Exists() {
		list = gjson.ParseBytes(raw)
	}
	ids := make([]string, 0)
	list.ForEach(func(_, value gjson.Result) bool {
		switch {
		case value.Type == gjson.String:
			ids = append(ids, value.String())
		case value.Get("id").Exists():
			ids = append(ids, value.Get("id").String())
		}
		return true
	})
	return ids, nil
}

// buildChatPayload assembles the raw JSON request for the SDK.
func buildChatPayload(messages []Message, opts ChatOptions, stream bool) ([]byte, error) {
	payload := []byte(`{}`)
	var err error
	if payload, err = sjson.SetBytes(payload, "model", opts.Model); err != nil {
		return nil, NewStreamError(err.Error())
	}
	if payload, err = sjson.SetBytes(payload, "messages", messages); err != nil {
		return nil, NewStreamError(err.Error())
	}
	if payload, err = sjson.SetBytes(payload, "stream", stream); err != nil {
		return nil, NewStreamError(err.Error())
	}
	if opts.Endpoint != nil {
		if payload, err = sjson.SetBytes(payload, "endpoint", *opts.Endpoint); err != nil {
			return nil, NewStreamError(err.Error())
		}
	}
	if opts.Temperature != nil {
		if payload, err = sjson.SetBytes(payload, "temperature", *opts.Temperature); err != nil {
			return nil, NewStreamError(err.Error())
		}
	}
	return payload, nil
}

// errorPayloadMessage recognises the gateway's explicit error shapes:
// {"success": false, "error": {...}} and a bare {"error": ...}.
func errorPayloadMessage(raw []byte) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	if success := gjson.GetBytes(raw, "success"); success.Exists() && !success.Bool() {
		return errorMessageFrom(raw), true
	}
	if errField := gjson.GetBytes(raw, "error"); errField.Exists() {
		return errorMessageFrom(raw), true
	}
	return "", false
}

func errorMessageFrom(raw []byte) string {
	for _, path := range []string{"error.message", "error", "message"} {
		if value := gjson.GetBytes(raw, path); value.Exists() && value.Type == gjson.String && value.String() != "" {
			return value.String()
		}
	}
	return "provider reported an error"
}

// extractText pulls the completion text out of the known payload shapes:
// streaming chunks carry a top level "text", complete responses carry a
// message whose content is either a string or an array of text parts.
func extractText(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	if text := gjson.GetBytes(raw, "text"); text.Type == gjson.String {
		return text.String()
	}
	content := gjson.GetBytes(raw, "message.content")
	if !content.Exists() {
		content = gjson.GetBytes(raw, "result.message.content")
	}
	switch {
	case content.Type == gjson.String:
		return content.String()
	case content.IsArray():
		var full strings.Builder
		content.ForEach(func(_, part gjson.Result) bool {
			full.WriteString(part.Get("text").String())
			return true
		})
		return full.String()
	}
	return ""
}
