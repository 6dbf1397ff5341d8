package server

import (
	"testing"

	"github.com/charlachat/charla/internal/stats"
	"github.com/charlachat/charla/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewClient(t *testing.T) {
	cs := newTestChatServer(t, &stats.MockStatsUpdater{})

	c := NewClient("ana", nil, cs, testutil.TestLogger(t))
	assert.NotEmpty(t, c.sessionId, "expected a session id to be assigned")
	assert.Equal(t, "ana", c.Username(), "expected username to be set")
	assert.NotNil(t, c.send, "expected send channel to be initialized")
	assert.Nil(t, c.getRoom(), "expected new client to have no room")
}

func TestNewClient_defaultUsername(t *testing.T) {
	cs := newTestChatServer(t, &stats.MockStatsUpdater{})

	c := NewClient("", nil, cs, testutil.TestLogger(t))
	assert.Equal(t, DefaultUsername, c.Username(), "expected default username when none supplied")
}

func Test_queueMessage(t *testing.T) {
	c := &Client{
		log:  testutil.TestLogger(t),
		send: make(chan *ServerMessage, 1),
	}

	assert.True(t, c.queueMessage(systemMessage("uno")), "expected queue to accept message")
	assert.False(t, c.queueMessage(systemMessage("dos")), "expected full buffer to drop message")
	assert.Len(t, c.send, 1, "expected only the first message queued")
}

func Test_stopClient_idempotent(t *testing.T) {
	c := &Client{
		log:  testutil.TestLogger(t),
		stop: make(chan struct{}),
	}

	c.stopClient()
	c.stopClient()

	select {
	case <-c.stop:
	default:
		t.Error("expected stop channel to be closed")
	}
}

func Test_cleanup(t *testing.T) {
	cs := newTestChatServer(t, &stats.MockStatsUpdater{})
	room := newTestRoom(t, "public", cs)

	c := newTestClient(t, "ana")
	c.chatServer = cs
	c.setRoom(room)

	c.cleanup()
	c.cleanup()

	// one leave and one deregistration despite repeated cleanup calls
	assert.Len(t, room.leaveChan, 1, "expected exactly one leave request")
	assert.Len(t, cs.deregisterChan, 1, "expected exactly one deregistration")

	select {
	case <-c.stop:
	default:
		t.Error("expected client to be stopped after cleanup")
	}
}

func Test_serializeMessage(t *testing.T) {
	bytes, err := serializeMessage(&ServerMessage{Type: TypeSystem, Message: "hola"})
	assert.NoError(t, err, "expected no serialization error")
	assert.JSONEq(t, `{"type":"system","message":"hola"}`, string(bytes), "expected compact wire record")
}
