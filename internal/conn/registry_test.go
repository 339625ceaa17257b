package conn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wsHandle(depth int) WebSocket { return WebSocket{Outbox: NewOutbox(depth), Remote: "127.0.0.1:1"} }

func sshHandle(depth int) SSH { return SSH{Outbox: NewOutbox(depth), User: "u", Remote: "127.0.0.1:2"} }

func drain(ob *Outbox) []string {
	var out []string
	for {
		select {
		case p, ok := <-ob.C():
			if !ok {
				return out
			}
			out = append(out, string(p))
		default:
			return out
		}
	}
}

func TestRegister_CapacityFailsClosed(t *testing.T) {
	mixes := []struct {
		name  string
		kinds []Kind
	}{
		{name: "all websocket", kinds: []Kind{KindWebSocket, KindWebSocket, KindWebSocket}},
		{name: "all ssh", kinds: []Kind{KindSSH, KindSSH, KindSSH}},
		{name: "mixed", kinds: []Kind{KindSSH, KindWebSocket, KindSSH}},
	}

	for _, tc := range mixes {
		t.Run(tc.name, func(t *testing.T) {
			r := NewRegistry(len(tc.kinds))
			for _, k := range tc.kinds {
				var h Handle = wsHandle(1)
				if k == KindSSH {
					h = sshHandle(1)
				}
				id, err := r.Register(h)
				require.NoError(t, err)
				assert.NotEqual(t, InvalidID, id)
			}

			id, err := r.Register(wsHandle(1))
			assert.Equal(t, InvalidID, id)
			assert.ErrorIs(t, err, ErrFull)

			id, err = r.Register(sshHandle(1))
			assert.Equal(t, InvalidID, id)
			assert.ErrorIs(t, err, ErrFull)
			assert.Equal(t, len(tc.kinds), r.Count())
		})
	}
}

func TestRegister_IDsNeverReused(t *testing.T) {
	r := NewRegistry(1)
	a, err := r.Register(wsHandle(1))
	require.NoError(t, err)
	require.True(t, r.Unregister(a))

	b, err := r.Register(sshHandle(1))
	require.NoError(t, err)
	assert.Greater(t, b, a)

	_, ok := r.Get(a)
	assert.False(t, ok)
	c, ok := r.Get(b)
	require.True(t, ok)
	assert.Equal(t, KindSSH, c.Kind())
	assert.Equal(t, -1, c.PlayerID)
	assert.Equal(t, int64(-1), c.SessionID)
}

func TestRegister_NilHandle(t *testing.T) {
	r := NewRegistry(2)
	_, err := r.Register(nil)
	assert.ErrorIs(t, err, ErrNilHandle)
	_, err = r.Register(WebSocket{})
	assert.ErrorIs(t, err, ErrNilHandle)
	assert.Zero(t, r.Count())
}

func TestUnregister_ClosesOutbox(t *testing.T) {
	r := NewRegistry(2)
	h := wsHandle(2)
	id, err := r.Register(h)
	require.NoError(t, err)

	assert.True(t, r.Unregister(id))
	assert.True(t, h.Outbox.Closed())
	assert.False(t, r.Unregister(id))
	assert.False(t, r.Send(id, []byte("x")))
}

func TestFindByHandle(t *testing.T) {
	r := NewRegistry(2)
	h := sshHandle(1)
	id, err := r.Register(h)
	require.NoError(t, err)

	c, ok := r.FindByHandle(h)
	require.True(t, ok)
	assert.Equal(t, id, c.ID)

	_, ok = r.FindByHandle(sshHandle(1))
	assert.False(t, ok)
}

func TestAssignPlayer_RejectsDuplicateUntilCleared(t *testing.T) {
	r := NewRegistry(3)
	a, _ := r.Register(wsHandle(1))
	b, _ := r.Register(sshHandle(1))

	require.NoError(t, r.AssignPlayer(a, 7, 1))
	assert.ErrorIs(t, r.AssignPlayer(b, 7, 1), ErrPlayerAssigned)

	c, ok := r.FindByPlayer(7)
	require.True(t, ok)
	assert.Equal(t, a, c.ID)

	require.NoError(t, r.ClearPlayer(a))
	require.NoError(t, r.AssignPlayer(b, 7, 1))
	c, ok = r.FindByPlayer(7)
	require.True(t, ok)
	assert.Equal(t, b, c.ID)

	// Spectators never conflict.
	require.NoError(t, r.AssignPlayer(a, -1, 1))
	require.NoError(t, r.AssignPlayer(a, -1, 1))

	assert.ErrorIs(t, r.AssignPlayer(99, 1, 1), ErrNotFound)
	assert.ErrorIs(t, r.ClearPlayer(99), ErrNotFound)
}

func TestAssignPlayer_UnregisterReleasesPlayer(t *testing.T) {
	r := NewRegistry(2)
	a, _ := r.Register(wsHandle(1))
	b, _ := r.Register(wsHandle(1))
	require.NoError(t, r.AssignPlayer(a, 3, 1))
	r.Unregister(a)

	_, ok := r.FindByPlayer(3)
	assert.False(t, ok)
	assert.NoError(t, r.AssignPlayer(b, 3, 1))
}

func TestSend_QueuesInOrderAndDropsSlowConsumer(t *testing.T) {
	r := NewRegistry(1)
	h := wsHandle(2)
	id, _ := r.Register(h)

	assert.True(t, r.Send(id, []byte("1")))
	assert.True(t, r.Send(id, []byte("2")))
	assert.False(t, r.Send(id, []byte("3")), "full outbox must refuse, not overwrite")

	c, _ := r.Get(id)
	assert.False(t, c.Alive)
	assert.True(t, h.Outbox.Closed())
	assert.Equal(t, []string{"1", "2"}, drain(h.Outbox))

	assert.False(t, r.Send(id, []byte("4")))
}

func TestSend_UnknownID(t *testing.T) {
	r := NewRegistry(1)
	assert.False(t, r.Send(42, []byte("x")))
	assert.False(t, r.SendToPlayer(42, []byte("x")))
}

func TestBroadcastSession(t *testing.T) {
	r := NewRegistry(4)
	h1, h2, h3, h4 := wsHandle(4), sshHandle(4), wsHandle(4), sshHandle(4)
	a, _ := r.Register(h1)
	b, _ := r.Register(h2)
	c, _ := r.Register(h3)
	d, _ := r.Register(h4)
	require.NoError(t, r.AssignPlayer(a, 1, 10))
	require.NoError(t, r.AssignPlayer(b, 2, 10))
	require.NoError(t, r.AssignPlayer(c, -1, 10))
	require.NoError(t, r.AssignPlayer(d, 4, 11))

	assert.Equal(t, 3, r.BroadcastSession(10, []byte("all"), -1))
	assert.Equal(t, 2, r.BroadcastSession(10, []byte("not-1"), 1))
	assert.Equal(t, 3, r.CountBySession(10))
	assert.Equal(t, 1, r.CountBySession(11))

	assert.Equal(t, []string{"all"}, drain(h1.Outbox))
	assert.Equal(t, []string{"all", "not-1"}, drain(h2.Outbox))
	assert.Equal(t, []string{"all", "not-1"}, drain(h3.Outbox))
	assert.Empty(t, drain(h4.Outbox))

	assert.True(t, r.SendToPlayer(4, []byte("solo")))
	assert.Equal(t, []string{"solo"}, drain(h4.Outbox))

	assert.Equal(t, 4, r.BroadcastAll([]byte("hi")))
	assert.Equal(t, 2, r.CountByKind(KindWebSocket))
	assert.Equal(t, 2, r.CountByKind(KindSSH))
}

func TestCloseAll(t *testing.T) {
	r := NewRegistry(3)
	h1, h2, slow := wsHandle(1), sshHandle(1), wsHandle(1)
	r.Register(h1)
	r.Register(h2)
	id, err := r.Register(slow)
	require.NoError(t, err)
	assert.True(t, r.Send(id, []byte("a")))
	assert.False(t, r.Send(id, []byte("b")), "overflow drops the slow consumer")
	require.True(t, slow.Outbox.Closed())

	assert.Equal(t, 2, r.CloseAll(), "already dropped outbox is not counted")
	assert.True(t, h1.Outbox.Closed())
	assert.True(t, h2.Outbox.Closed())
	assert.Zero(t, r.BroadcastAll([]byte("late")))
	assert.Zero(t, r.CloseAll())
}

func TestOutbox_CloseIsIdempotent(t *testing.T) {
	ob := NewOutbox(0)
	assert.True(t, ob.Offer([]byte("a")))
	assert.Equal(t, 1, ob.Len())
	ob.Close()
	ob.Close()
	assert.False(t, ob.Offer([]byte("b")))
	assert.Equal(t, []string{"a"}, drain(ob))
}
