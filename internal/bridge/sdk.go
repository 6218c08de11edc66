package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/openchat-dev/puterbridge/internal/puter"
)

// SDKClient implements puter.SDK by forwarding each call to the connected
// page over the session and translating the envelope protocol back into raw
// payloads. The sign-in state is cached locally so IsSignedIn stays
// synchronous; the cache follows successful auth calls and unsolicited
// auth_state pushes from the page.
type SDKClient struct {
	sess     *session
	signedIn atomic.Bool
}

// NewSDKClient wraps a session in the SDK surface.
func NewSDKClient(sess *session) *SDKClient {
	return &SDKClient{sess: sess}
}

func (c *SDKClient) setSignedIn(signedIn bool) {
	c.signedIn.Store(signedIn)
}

func (c *SDKClient) call(ctx context.Context, method string, payload []byte) (*pendingRequest, error) {
	env := Envelope{ID: uuid.NewString(), Type: TypeCall, Method: method, Payload: payload}
	return c.sess.request(ctx, env)
}

// awaitResult waits for the single terminal envelope of a non-streaming call.
// After the request finishes, the buffered envelopes are still drained so a
// result that raced the finish signal is not lost.
func awaitResult(ctx context.Context, req *pendingRequest) ([]byte, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case env := <-req.ch:
			if raw, terminal, err := resolveEnvelope(env); terminal {
				return raw, err
			}
		case <-req.done:
			for {
				select {
				case env := <-req.ch:
					if raw, terminal, err := resolveEnvelope(env); terminal {
						return raw, err
					}
				default:
					return nil, errClosed
				}
			}
		}
	}
}

// resolveEnvelope inspects one envelope of a non-streaming call. Chunks
// answering a non-streaming call are skipped; callers that expect sequences
// use Chat with stream=true.
func resolveEnvelope(env Envelope) (raw []byte, terminal bool, err error) {
	switch env.Type {
	case TypeResult:
		return env.Payload, true, nil
	case TypeError:
		return nil, true, decodeError(env.Payload)
	default:
		return nil, false, nil
	}
}

// SignIn implements puter.SDK.
func (c *SDKClient) SignIn(ctx context.Context) ([]byte, error) {
	req, err := c.call(ctx, MethodAuthSignIn, nil)
	if err != nil {
		return nil, err
	}
	raw, err := awaitResult(ctx, req)
	if err != nil {
		return nil, err
	}
	if !gjson.GetBytes(raw, "error").Exists() {
		c.setSignedIn(true)
	}
	return raw, nil
}

// SignOut implements puter.SDK.
func (c *SDKClient) SignOut(ctx context.Context) error {
	req, err := c.call(ctx, MethodAuthSignOut, nil)
	if err != nil {
		return err
	}
	if _, err = awaitResult(ctx, req); err != nil {
		return err
	}
	c.setSignedIn(false)
	return nil
}

// IsSignedIn implements puter.SDK without blocking.
func (c *SDKClient) IsSignedIn() bool {
	return c.signedIn.Load()
}

// GetUser implements puter.SDK.
func (c *SDKClient) GetUser(ctx context.Context) ([]byte, error) {
	req, err := c.call(ctx, MethodAuthGetUser, nil)
	if err != nil {
		return nil, err
	}
	return awaitResult(ctx, req)
}

// Chat implements puter.SDK. Streaming responses surface as a chunk channel;
// error envelopes become explicit error payload chunks so the adapter's
// classification applies uniformly. A request that finishes without a
// terminal envelope (page death, abandoned call) also yields an error chunk:
// a truncated stream is never mistaken for a completion.
func (c *SDKClient) Chat(ctx context.Context, payload []byte, stream bool) (*puter.ChatResponse, error) {
	req, err := c.call(ctx, MethodAIChat, payload)
	if err != nil {
		return nil, err
	}
	if !stream {
		raw, errAwait := awaitResult(ctx, req)
		if errAwait != nil {
			return nil, errAwait
		}
		return &puter.ChatResponse{Raw: raw}, nil
	}

	out := make(chan []byte, 8)
	go func() {
		defer close(out)
		for {
			select {
			case env := <-req.ch:
				if !forwardChatEnvelope(out, env) {
					return
				}
			case <-req.done:
				for {
					select {
					case env := <-req.ch:
						if !forwardChatEnvelope(out, env) {
							return
						}
					default:
						out <- errorChunk(errorPayload(errClosed))
						return
					}
				}
			}
		}
	}()
	return &puter.ChatResponse{Stream: out}, nil
}

// forwardChatEnvelope translates one envelope into the chunk channel; false
// means the stream is finished.
func forwardChatEnvelope(out chan<- []byte, env Envelope) bool {
	switch env.Type {
	case TypeStreamChunk:
		if len(env.Payload) > 0 {
			out <- env.Payload
		}
	case TypeResult:
		// The page answered with one complete payload.
		if len(env.Payload) > 0 {
			out <- env.Payload
		}
		return false
	case TypeError:
		out <- errorChunk(env.Payload)
		return false
	case TypeStreamEnd:
		return false
	}
	return true
}

// ListModels implements puter.SDK.
func (c *SDKClient) ListModels(ctx context.Context) ([]byte, error) {
	req, err := c.call(ctx, MethodAIList, nil)
	if err != nil {
		return nil, err
	}
	return awaitResult(ctx, req)
}

// decodeAuthState extracts the signedIn flag from an auth_state push.
func decodeAuthState(payload json.RawMessage) bool {
	return gjson.GetBytes(payload, "signedIn").Bool()
}

// decodeError turns an error envelope payload into a Go error.
func decodeError(payload json.RawMessage) error {
	for _, path := range []string{"error.message", "error", "message"} {
		if value := gjson.GetBytes(payload, path); value.Type == gjson.String && value.String() != "" {
			return errors.New(value.String())
		}
	}
	return errors.New("bridge: call failed")
}

// errorPayload encodes an internal error in the gateway's explicit error
// payload shape.
func errorPayload(err error) json.RawMessage {
	message := "unknown error"
	if err != nil {
		message = err.Error()
	}
	raw, _ := sjson.SetBytes([]byte(`{"success":false}`), "error.message", message)
	return raw
}

// errorChunk converts an error envelope payload into an explicit error
// payload chunk. Payloads already in that shape pass through unchanged.
func errorChunk(payload json.RawMessage) []byte {
	if gjson.GetBytes(payload, "error").Exists() {
		return payload
	}
	return errorPayload(decodeError(payload))
}
