package puter

import (
	"context"
	"sync"
)

// User identifies the account signed in on the browser side.
type User struct {
	// Username is the Puter account name.
	Username string `json:"username"`
	// Email is optional; not every account exposes one.
	Email string `json:"email,omitempty"`
}

// ChatResponse carries the raw outcome of an SDK chat invocation. Exactly one
// of Raw and Stream is set: Raw holds a complete payload, Stream yields raw
// chunks until the provider closes it.
type ChatResponse struct {
	Raw    []byte
	Stream <-chan []byte
}

// SDK mirrors the object the Puter page script injects into the browser:
// auth.{signIn, signOut, isSignedIn, getUser} and ai.{chat, listModels}.
// Payloads cross this boundary as untyped JSON; the adapter is responsible
// for interpreting them. All provider network I/O happens behind this
// interface.
type SDK interface {
	// SignIn runs the provider's sign-in flow and returns the raw result.
	SignIn(ctx context.Context) ([]byte, error)
	// SignOut terminates the provider session.
	SignOut(ctx context.Context) error
	// IsSignedIn reports the current session state without blocking.
	IsSignedIn() bool
	// GetUser returns the raw payload describing the signed in account.
	GetUser(ctx context.Context) ([]byte, error)
	// Chat submits a completion request. When stream is true the response
	// is delivered chunk by chunk.
	Chat(ctx context.Context, payload []byte, stream bool) (*ChatResponse, error)
	// ListModels returns the raw model list the gateway reports.
	ListModels(ctx context.Context) ([]byte, error)
}

var (
	sdkMu      sync.RWMutex
	currentSDK SDK
)

// RegisterSDK installs the SDK implementation, typically when a browser page
// connects to the bridge. Passing nil withdraws it. Presence is detected by a
// runtime existence check; there is no version handshake.
func RegisterSDK(sdk SDK) {
	sdkMu.Lock()
	currentSDK = sdk
	sdkMu.Unlock()
}

// CurrentSDK returns the installed SDK implementation, or nil.
func CurrentSDK() SDK {
	sdkMu.RLock()
	defer sdkMu.RUnlock()
	return currentSDK
}
