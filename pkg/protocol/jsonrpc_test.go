package protocol

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chanTransport is an in-memory transport driven by the test.
type chanTransport struct {
	in   chan []byte
	out  chan []byte
	done chan struct{}
	once sync.Once
}

func newChanTransport() *chanTransport {
	return &chanTransport{
		in:   make(chan []byte, 16),
		out:  make(chan []byte, 16),
		done: make(chan struct{}),
	}
}

func (t *chanTransport) Send(ctx context.Context, data []byte) error {
	select {
	case t.out <- data:
		return nil
	case <-t.done:
		return ErrTransportClosed
	}
}

func (t *chanTransport) Receive(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.done:
		return nil, ErrTransportClosed
	case data := <-t.in:
		return data, nil
	}
}

func (t *chanTransport) Close() error {
	t.once.Do(func() { close(t.done) })
	return nil
}

func (t *chanTransport) push(data string) {
	t.in <- []byte(data)
}

func (t *chanTransport) next(tb testing.TB) *JSONRPCMessage {
	tb.Helper()
	select {
	case data := <-t.out:
		var msg JSONRPCMessage
		require.NoError(tb, json.Unmarshal(data, &msg))
		return &msg
	case <-time.After(time.Second):
		tb.Fatal("no message sent within deadline")
		return nil
	}
}

// handlerFunc adapts a function to RPCHandler.
type handlerFunc func(ctx context.Context, method string, params json.RawMessage) (any, error)

func (f handlerFunc) HandleRequest(ctx context.Context, method string, params json.RawMessage) (any, error) {
	return f(ctx, method, params)
}

func TestJSONRPCMessage_Classification(t *testing.T) {
	request := &JSONRPCMessage{Method: "tools/call", ID: json.RawMessage(`1`)}
	assert.True(t, request.IsRequest())
	assert.False(t, request.IsNotification())

	notification := &JSONRPCMessage{Method: "notifications/initialized"}
	assert.False(t, notification.IsRequest())
	assert.True(t, notification.IsNotification())

	response := &JSONRPCMessage{ID: json.RawMessage(`1`), Result: json.RawMessage(`{}`)}
	assert.False(t, response.IsRequest())
	assert.False(t, response.IsNotification())
}

func TestDispatcher_RespondsToRequest(t *testing.T) {
	transport := newChanTransport()
	dispatcher := NewDispatcher(transport, handlerFunc(func(ctx context.Context, method string, params json.RawMessage) (any, error) {
		assert.Equal(t, "ping", method)
		return map[string]string{"pong": "yes"}, nil
	}), nil)
	dispatcher.Start()
	defer dispatcher.Stop()
	defer transport.Close()

	transport.push(`{"jsonrpc":"2.0","id":1,"method":"ping"}`)

	response := transport.next(t)
	assert.Equal(t, JSONRPCVersion, response.JSONRPC)
	assert.Equal(t, json.RawMessage(`1`), response.ID)
	assert.Nil(t, response.Error)
	assert.JSONEq(t, `{"pong":"yes"}`, string(response.Result))
}

func TestDispatcher_RequestsRunInArrivalOrder(t *testing.T) {
	var mu sync.Mutex
	var order []string

	transport := newChanTransport()
	dispatcher := NewDispatcher(transport, handlerFunc(func(ctx context.Context, method string, params json.RawMessage) (any, error) {
		if method == "slow" {
			time.Sleep(50 * time.Millisecond)
		}
		mu.Lock()
		order = append(order, method)
		mu.Unlock()
		return nil, nil
	}), nil)
	dispatcher.Start()
	defer dispatcher.Stop()
	defer transport.Close()

	transport.push(`{"jsonrpc":"2.0","id":1,"method":"slow"}`)
	transport.push(`{"jsonrpc":"2.0","id":2,"method":"fast"}`)

	first := transport.next(t)
	second := transport.next(t)
	assert.Equal(t, json.RawMessage(`1`), first.ID)
	assert.Equal(t, json.RawMessage(`2`), second.ID)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"slow", "fast"}, order)
}

func TestDispatcher_NotificationsDoNotBlockRequests(t *testing.T) {
	notificationStarted := make(chan struct{})
	release := make(chan struct{})

	transport := newChanTransport()
	dispatcher := NewDispatcher(transport, handlerFunc(func(ctx context.Context, method string, params json.RawMessage) (any, error) {
		if method == "notifications/slow" {
			close(notificationStarted)
			<-release
			return nil, nil
		}
		return "ok", nil
	}), nil)
	dispatcher.Start()
	defer dispatcher.Stop()
	defer transport.Close()
	defer close(release)

	transport.push(`{"jsonrpc":"2.0","method":"notifications/slow"}`)
	<-notificationStarted

	// The request completes while the notification handler is still blocked.
	transport.push(`{"jsonrpc":"2.0","id":7,"method":"ping"}`)
	response := transport.next(t)
	assert.Equal(t, json.RawMessage(`7`), response.ID)
}

func TestDispatcher_NotificationsDeliveredDuringInFlightRequest(t *testing.T) {
	unblock := make(chan struct{})

	transport := newChanTransport()
	dispatcher := NewDispatcher(transport, handlerFunc(func(ctx context.Context, method string, params json.RawMessage) (any, error) {
		switch method {
		case "slow":
			// Only the cancellation notification can release this request;
			// it has to be read off the wire while the request is running.
			select {
			case <-unblock:
				return "released", nil
			case <-time.After(2 * time.Second):
				return nil, fmt.Errorf("notification never delivered")
			}
		case "notifications/cancelled":
			close(unblock)
		}
		return nil, nil
	}), nil)
	dispatcher.Start()
	defer dispatcher.Stop()
	defer transport.Close()

	transport.push(`{"jsonrpc":"2.0","id":1,"method":"slow"}`)
	transport.push(`{"jsonrpc":"2.0","method":"notifications/cancelled","params":{"requestId":1}}`)

	response := transport.next(t)
	assert.Equal(t, json.RawMessage(`1`), response.ID)
	assert.Nil(t, response.Error)
	assert.JSONEq(t, `"released"`, string(response.Result))
}

func TestDispatcher_SuppressesResponseOnCallContextError(t *testing.T) {
	transport := newChanTransport()
	dispatcher := NewDispatcher(transport, handlerFunc(func(ctx context.Context, method string, params json.RawMessage) (any, error) {
		if method == "slow" {
			callCtx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
			defer cancel()
			<-callCtx.Done()
			return nil, callCtx.Err()
		}
		return "pong", nil
	}), nil)
	dispatcher.Start()
	defer dispatcher.Stop()
	defer transport.Close()

	transport.push(`{"jsonrpc":"2.0","id":9,"method":"slow"}`)
	transport.push(`{"jsonrpc":"2.0","id":10,"method":"ping"}`)

	// The timed-out call emits nothing; the first wire message is the ping
	// response.
	response := transport.next(t)
	assert.Equal(t, json.RawMessage(`10`), response.ID)
	assert.JSONEq(t, `"pong"`, string(response.Result))
}

func TestDispatcher_ErrorResponse(t *testing.T) {
	transport := newChanTransport()
	dispatcher := NewDispatcher(transport, handlerFunc(func(ctx context.Context, method string, params json.RawMessage) (any, error) {
		return nil, &JSONRPCError{Code: ErrorCodeMethodNotFound, Message: "Method not found: nope"}
	}), nil)
	dispatcher.Start()
	defer dispatcher.Stop()
	defer transport.Close()

	transport.push(`{"jsonrpc":"2.0","id":3,"method":"nope"}`)

	response := transport.next(t)
	require.NotNil(t, response.Error)
	assert.Equal(t, ErrorCodeMethodNotFound, response.Error.Code)
	assert.Contains(t, response.Error.Message, "nope")
}

func TestDispatcher_ParseError(t *testing.T) {
	transport := newChanTransport()
	dispatcher := NewDispatcher(transport, handlerFunc(func(ctx context.Context, method string, params json.RawMessage) (any, error) {
		return nil, nil
	}), nil)
	dispatcher.Start()
	defer dispatcher.Stop()
	defer transport.Close()

	transport.push(`{not json`)

	response := transport.next(t)
	require.NotNil(t, response.Error)
	assert.Equal(t, ErrorCodeParseError, response.Error.Code)
}

func TestDispatcher_Call(t *testing.T) {
	transport := newChanTransport()
	dispatcher := NewDispatcher(transport, nil, nil)
	dispatcher.Start()
	defer dispatcher.Stop()
	defer transport.Close()

	type callResult struct {
		result json.RawMessage
		err    error
	}
	resultCh := make(chan callResult, 1)
	go func() {
		result, err := dispatcher.Call(context.Background(), "sampling/createMessage", map[string]string{"hint": "x"})
		resultCh <- callResult{result, err}
	}()

	// The outgoing request carries a generated ID; answer it.
	outgoing := transport.next(t)
	require.Equal(t, "sampling/createMessage", outgoing.Method)
	require.NotNil(t, outgoing.ID)

	transport.push(fmt.Sprintf(`{"jsonrpc":"2.0","id":%s,"result":{"answer":42}}`, outgoing.ID))

	select {
	case res := <-resultCh:
		require.NoError(t, res.err)
		assert.JSONEq(t, `{"answer":42}`, string(res.result))
	case <-time.After(time.Second):
		t.Fatal("Call never returned")
	}
}

func TestDispatcher_CallCancelled(t *testing.T) {
	transport := newChanTransport()
	dispatcher := NewDispatcher(transport, nil, nil)
	dispatcher.Start()
	defer dispatcher.Stop()
	defer transport.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		transport.next(t) // consume the outgoing request, never answer
		cancel()
	}()

	_, err := dispatcher.Call(ctx, "slow/thing", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDispatcher_Notify(t *testing.T) {
	transport := newChanTransport()
	dispatcher := NewDispatcher(transport, nil, nil)

	err := dispatcher.Notify(context.Background(), "notifications/progress", &ProgressParams{
		ProgressToken: json.RawMessage(`"t1"`),
		Progress:      10,
	})
	require.NoError(t, err)

	notification := transport.next(t)
	assert.Equal(t, "notifications/progress", notification.Method)
	assert.Nil(t, notification.ID)
}
