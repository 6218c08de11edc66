// Package bridge exposes the websocket endpoint the chat page connects to.
// The page script holds the real Puter SDK object; the bridge forwards SDK
// calls to it as JSON envelopes and relays results and stream chunks back,
// implementing the puter.SDK interface on the server side.
package bridge

import "encoding/json"

// Envelope is the JSON payload exchanged with the connected page.
type Envelope struct {
	// ID correlates a call with its responses.
	ID string `json:"id"`
	// Type is one of the Type* constants below.
	Type string `json:"type"`
	// Method names the SDK call for Type "call" envelopes.
	Method string `json:"method,omitempty"`
	// Payload carries the raw JSON arguments or result.
	Payload json.RawMessage `json:"payload,omitempty"`
}

const (
	// TypeCall asks the page to invoke an SDK method.
	TypeCall = "call"
	// TypeResult carries a complete (non-streaming) call result.
	TypeResult = "result"
	// TypeStreamChunk carries one chunk of a streaming result.
	TypeStreamChunk = "stream_chunk"
	// TypeStreamEnd marks the completion of a streaming result.
	TypeStreamEnd = "stream_end"
	// TypeError carries a call failure.
	TypeError = "error"
	// TypeAuthState is pushed unsolicited by the page when the sign-in
	// state changes outside a bridge initiated call.
	TypeAuthState = "auth_state"
	// TypePing represents ping messages from the page.
	TypePing = "ping"
	// TypePong represents pong responses back to the page.
	TypePong = "pong"
)

// SDK method names understood by the page script. They mirror the members of
// the injected global object.
const (
	MethodAuthSignIn  = "auth.signIn"
	MethodAuthSignOut = "auth.signOut"
	MethodAuthGetUser = "auth.getUser"
	MethodAIChat      = "ai.chat"
	MethodAIList      = "ai.listModels"
)
