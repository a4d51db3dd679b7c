package ipc

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	sockPath := filepath.Join(t.TempDir(), "devtrack.sock")
	s := NewServer(sockPath, nil)
	require.NoError(t, s.Start())
	t.Cleanup(func() { s.Stop() })
	return s, sockPath
}

func TestClientServerRoundTrip(t *testing.T) {
	server, sockPath := startTestServer(t)

	received := make(chan Message, 1)
	server.RegisterHandler(TypeTaskUpdate, func(clientID string, msg Message) error {
		received <- msg
		return nil
	})

	client := NewClient(sockPath, nil)
	require.NoError(t, client.Connect())
	defer client.Disconnect()

	msg, err := NewTaskUpdate(TaskUpdateData{Project: "Widgets", TicketID: "WID-1", Status: "complete"})
	require.NoError(t, err)
	require.NoError(t, client.SendMessage(msg))

	select {
	case got := <-received:
		var data TaskUpdateData
		require.NoError(t, Decode(got, &data))
		assert.Equal(t, "Widgets", data.Project)
		assert.Equal(t, "WID-1", data.TicketID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestServerBroadcastsToConnectedClients(t *testing.T) {
	server, sockPath := startTestServer(t)

	client := NewClient(sockPath, nil)
	require.NoError(t, client.Connect())
	defer client.Disconnect()

	// Give the server a moment to register the accepted connection.
	time.Sleep(50 * time.Millisecond)

	msg, err := NewTimerTrigger(TimerTriggerData{IntervalMins: 180, TriggerCount: 1})
	require.NoError(t, err)
	require.NoError(t, server.SendMessage(msg))

	got, err := client.ReceiveMessage()
	require.NoError(t, err)
	assert.Equal(t, TypeTimerTrigger, got.Type)

	var data TimerTriggerData
	require.NoError(t, Decode(*got, &data))
	assert.Equal(t, 1, data.TriggerCount)
}

func TestSendMessageWithNoClientsIsNotAnError(t *testing.T) {
	server, _ := startTestServer(t)

	msg, err := NewStatusQuery()
	require.NoError(t, err)
	assert.NoError(t, server.SendMessage(msg))
}

func TestClientOperationsFailWhenDisconnected(t *testing.T) {
	client := NewClient(filepath.Join(t.TempDir(), "devtrack.sock"), nil)

	msg, err := NewStatusQuery()
	require.NoError(t, err)

	assert.ErrorIs(t, client.SendMessage(msg), ErrPeerDisconnected)

	_, err = client.ReceiveMessage()
	assert.ErrorIs(t, err, ErrPeerDisconnected)
}

func TestNewMessageIDsAreUnique(t *testing.T) {
	a, err := NewStatusQuery()
	require.NoError(t, err)
	b, err := NewStatusQuery()
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}
