package stdio

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gps-prasad/aws-okta-mcp-server/pkg/protocol"
)

func TestTransport_ReceiveFramedMessages(t *testing.T) {
	input := strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}` + "\n" +
		"\n" + // blank lines between frames are skipped
		`{"jsonrpc":"2.0","method":"notifications/initialized"}` + "\n")
	transport := New(WithIO(input, io.Discard))
	transport.Start()
	defer transport.Close()

	first, err := transport.Receive(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":1,"method":"ping"}`, string(first))

	second, err := transport.Receive(context.Background())
	require.NoError(t, err)
	assert.Contains(t, string(second), "notifications/initialized")

	// Stream exhausted: EOF surfaces as a closed transport.
	_, err = transport.Receive(context.Background())
	assert.ErrorIs(t, err, protocol.ErrTransportClosed)
}

func TestTransport_SendAppendsNewline(t *testing.T) {
	var output bytes.Buffer
	transport := New(WithIO(strings.NewReader(""), &output))

	require.NoError(t, transport.Send(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"result":null}`)))
	require.NoError(t, transport.Send(context.Background(), []byte(`{"jsonrpc":"2.0","method":"notifications/progress"}`)))

	lines := strings.Split(strings.TrimRight(output.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":1,"result":null}`, lines[0])
}

func TestTransport_ReceiveHonorsContext(t *testing.T) {
	blocked, cancelRead := io.Pipe()
	defer cancelRead.Close()

	transport := New(WithIO(blocked, io.Discard))
	transport.Start()
	defer transport.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := transport.Receive(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTransport_SendAfterClose(t *testing.T) {
	transport := New(WithIO(strings.NewReader(""), io.Discard))
	require.NoError(t, transport.Close())

	err := transport.Send(context.Background(), []byte(`{}`))
	assert.ErrorIs(t, err, protocol.ErrTransportClosed)
}

func TestCreatorRegistration(t *testing.T) {
	registry := protocol.NewTransportRegistry()
	Register(registry)

	assert.True(t, registry.HasTransport(protocol.TransportTypeStdio))

	created, err := registry.Create(context.Background(), protocol.TransportTypeStdio, nil)
	require.NoError(t, err)
	require.NotNil(t, created)
	_ = created.Close()
}
