// Package conn tracks live client connections regardless of transport and
// delivers serialized messages to them. A Registry is not safe for
// concurrent use; it is owned by the hub goroutine.
package conn

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrFull = errors.New("connection registry full")
var ErrNotFound = errors.New("connection not found")
var ErrNilHandle = errors.New("nil transport handle")
var ErrPlayerAssigned = errors.New("player already assigned to another connection")

type ID int64

const InvalidID ID = -1

type Kind string

const (
	KindWebSocket Kind = "websocket"
	KindSSH       Kind = "ssh"
)

// Handle is the transport half of a connection. The set of variants is
// closed: WebSocket and SSH.
type Handle interface {
	Kind() Kind
	outbox() *Outbox
}

type WebSocket struct {
	Outbox *Outbox
	Remote string
}

type SSH struct {
	Outbox *Outbox
	User   string
	Remote string
}

func (WebSocket) Kind() Kind        { return KindWebSocket }
func (h WebSocket) outbox() *Outbox { return h.Outbox }
func (SSH) Kind() Kind              { return KindSSH }
func (h SSH) outbox() *Outbox       { return h.Outbox }

type Connection struct {
	ID       ID
	ClientID uuid.UUID
	Handle   Handle
	// PlayerID and SessionID are -1 while unassigned.
	PlayerID    int
	SessionID   int64
	Alive       bool
	ConnectedAt time.Time
}

func (c *Connection) Kind() Kind { return c.Handle.Kind() }

type Registry struct {
	slots    []*Connection
	free     []int
	index    map[ID]int
	byPlayer map[int]ID
	byOutbox map[*Outbox]ID
	nextID   ID
	now      func() time.Time
}

func NewRegistry(capacity int) *Registry {
	r := &Registry{
		slots:    make([]*Connection, capacity),
		free:     make([]int, 0, capacity),
		index:    make(map[ID]int, capacity),
		byPlayer: make(map[int]ID),
		byOutbox: make(map[*Outbox]ID, capacity),
		nextID:   1,
		now:      time.Now,
	}
	for i := capacity - 1; i >= 0; i-- {
		r.free = append(r.free, i)
	}
	return r
}

func (r *Registry) Capacity() int { return len(r.slots) }

// Register admits a new connection. A full registry returns InvalidID and
// ErrFull; ids are never reused.
func (r *Registry) Register(h Handle) (ID, error) {
	if h == nil || h.outbox() == nil {
		return InvalidID, ErrNilHandle
	}
	if len(r.free) == 0 {
		return InvalidID, ErrFull
	}
	slot := r.free[len(r.free)-1]
	r.free = r.free[:len(r.free)-1]

	id := r.nextID
	r.nextID++
	r.slots[slot] = &Connection{
		ID:          id,
		ClientID:    uuid.New(),
		Handle:      h,
		PlayerID:    -1,
		SessionID:   -1,
		Alive:       true,
		ConnectedAt: r.now(),
	}
	r.index[id] = slot
	r.byOutbox[h.outbox()] = id
	return id, nil
}

// Unregister closes the connection's outbox and frees its slot.
func (r *Registry) Unregister(id ID) bool {
	slot, ok := r.index[id]
	if !ok {
		return false
	}
	c := r.slots[slot]
	c.Alive = false
	c.Handle.outbox().Close()
	r.unindexPlayer(c)
	delete(r.byOutbox, c.Handle.outbox())
	delete(r.index, id)
	r.slots[slot] = nil
	r.free = append(r.free, slot)
	return true
}

func (r *Registry) Get(id ID) (*Connection, bool) {
	slot, ok := r.index[id]
	if !ok {
		return nil, false
	}
	return r.slots[slot], true
}

func (r *Registry) FindByPlayer(playerID int) (*Connection, bool) {
	if playerID < 0 {
		return nil, false
	}
	id, ok := r.byPlayer[playerID]
	if !ok {
		return nil, false
	}
	return r.Get(id)
}

func (r *Registry) FindByHandle(h Handle) (*Connection, bool) {
	if h == nil {
		return nil, false
	}
	id, ok := r.byOutbox[h.outbox()]
	if !ok {
		return nil, false
	}
	return r.Get(id)
}

// AssignPlayer binds a player and session to a connection. A player id
// held by another live connection is refused; the holder must be cleared
// first. Player id -1 (spectating) never conflicts.
func (r *Registry) AssignPlayer(id ID, playerID int, sessionID int64) error {
	c, ok := r.Get(id)
	if !ok {
		return ErrNotFound
	}
	if playerID >= 0 {
		if holder, ok := r.FindByPlayer(playerID); ok && holder.ID != id && holder.Alive {
			return ErrPlayerAssigned
		}
	}
	r.unindexPlayer(c)
	c.PlayerID = playerID
	c.SessionID = sessionID
	if playerID >= 0 {
		r.byPlayer[playerID] = id
	}
	return nil
}

func (r *Registry) ClearPlayer(id ID) error {
	c, ok := r.Get(id)
	if !ok {
		return ErrNotFound
	}
	r.unindexPlayer(c)
	c.PlayerID = -1
	c.SessionID = -1
	return nil
}

func (r *Registry) unindexPlayer(c *Connection) {
	if c.PlayerID >= 0 && r.byPlayer[c.PlayerID] == c.ID {
		delete(r.byPlayer, c.PlayerID)
	}
}

// deliver never blocks. A connection whose outbox is full is a slow
// consumer: it is marked dead and its outbox closed so the transport
// tears it down.
func (r *Registry) deliver(c *Connection, payload []byte) bool {
	if !c.Alive {
		return false
	}
	ob := c.Handle.outbox()
	if ob.Offer(payload) {
		return true
	}
	c.Alive = false
	ob.Close()
	return false
}

func (r *Registry) Send(id ID, payload []byte) bool {
	c, ok := r.Get(id)
	if !ok {
		return false
	}
	return r.deliver(c, payload)
}

func (r *Registry) SendToPlayer(playerID int, payload []byte) bool {
	c, ok := r.FindByPlayer(playerID)
	if !ok {
		return false
	}
	return r.deliver(c, payload)
}

// BroadcastSession sends to every live connection in the session except
// the one bound to excludePlayer (pass -1 to exclude nobody). It returns
// how many deliveries succeeded.
func (r *Registry) BroadcastSession(sessionID int64, payload []byte, excludePlayer int) int {
	sent := 0
	for _, c := range r.slots {
		if c == nil || c.SessionID != sessionID {
			continue
		}
		if excludePlayer >= 0 && c.PlayerID == excludePlayer {
			continue
		}
		if r.deliver(c, payload) {
			sent++
		}
	}
	return sent
}

func (r *Registry) BroadcastAll(payload []byte) int {
	sent := 0
	for _, c := range r.slots {
		if c != nil && r.deliver(c, payload) {
			sent++
		}
	}
	return sent
}

func (r *Registry) Count() int { return len(r.index) }

func (r *Registry) CountByKind(k Kind) int {
	n := 0
	for _, c := range r.slots {
		if c != nil && c.Kind() == k {
			n++
		}
	}
	return n
}

func (r *Registry) CountBySession(sessionID int64) int {
	n := 0
	for _, c := range r.slots {
		if c != nil && c.SessionID == sessionID {
			n++
		}
	}
	return n
}

// CloseAll closes every outbox and marks every connection dead, returning
// how many outboxes were still open. Slots stay occupied until each
// transport reports its disconnect.
func (r *Registry) CloseAll() int {
	n := 0
	for _, c := range r.slots {
		if c == nil {
			continue
		}
		c.Alive = false
		ob := c.Handle.outbox()
		if !ob.Closed() {
			n++
		}
		ob.Close()
	}
	return n
}
