// Package hub is the single writer. One goroutine owns the connection
// registry, the session registry and every Game; transports only submit
// messages to its inbox and drain their outboxes.
package hub

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/deckwars-server/internal/conn"
	"github.com/DoyleJ11/deckwars-server/internal/engine"
	"github.com/DoyleJ11/deckwars-server/internal/protocol"
	"github.com/DoyleJ11/deckwars-server/internal/session"
)

type Msg interface{ isHubMsg() }

// Connect registers a transport handle. Reply receives the new id, or
// conn.InvalidID with an error when the registry is full.
type Connect struct {
	Handle conn.Handle
	Reply  chan ConnectReply
}

type ConnectReply struct {
	ID       conn.ID
	ClientID uuid.UUID
	Err      error
}

// Disconnect is sent by a transport when its link is gone. It implies
// leaving whatever session the connection was in.
type Disconnect struct {
	ID conn.ID
}

// Inbound is one raw protocol message from a client.
type Inbound struct {
	ID   conn.ID
	Data []byte
	At   time.Time
}

type ListSessions struct {
	Reply chan Listing
}

type Listing struct {
	Joinable    []session.Summary `json:"joinable"`
	Spectatable []session.Summary `json:"spectatable"`
}

type GetStats struct {
	Reply chan Stats
}

type Stats struct {
	Connections int `json:"connections"`
	WebSocket   int `json:"websocket"`
	SSH         int `json:"ssh"`
	Capacity    int `json:"capacity"`
	Sessions    int `json:"sessions"`
	Playing     int `json:"playing"`
}

type ShutdownHub struct{}

func (Connect) isHubMsg()      {}
func (Disconnect) isHubMsg()   {}
func (Inbound) isHubMsg()      {}
func (ListSessions) isHubMsg() {}
func (GetStats) isHubMsg()     {}
func (ShutdownHub) isHubMsg()  {}

type Options struct {
	MaxConnections int
	MaxSessions    int
	MaxSpectators  int
}

type Hub struct {
	inbox      chan Msg
	conns      *conn.Registry
	sessions   *session.Registry
	rules      engine.Rules
	dispatch   *protocol.Dispatcher
	log        *zap.Logger
	nextPlayer int
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

func New(parent context.Context, opts Options, rules engine.Rules, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:      make(chan Msg, 256),
		conns:      conn.NewRegistry(opts.MaxConnections),
		sessions:   session.NewRegistry(opts.MaxSessions, opts.MaxSpectators, rules),
		rules:      rules,
		dispatch:   protocol.NewDispatcher(),
		log:        log,
		nextPlayer: 1,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- Msg { return h.inbox }

// Done is closed once the hub goroutine has exited.
func (h *Hub) Done() <-chan struct{} { return h.done }

// Submit delivers m unless ctx or the hub stops first.
func (h *Hub) Submit(ctx context.Context, m Msg) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.inbox <- m:
		return true
	case <-ctx.Done():
		return false
	case <-h.done:
		return false
	}
}

// Connect is the request/reply form of the Connect message.
func (h *Hub) Connect(ctx context.Context, handle conn.Handle) (ConnectReply, error) {
	reply := make(chan ConnectReply, 1)
	if !h.Submit(ctx, Connect{Handle: handle, Reply: reply}) {
		return ConnectReply{ID: conn.InvalidID}, context.Cause(ctx)
	}
	select {
	case r := <-reply:
		return r, r.Err
	case <-ctx.Done():
		return ConnectReply{ID: conn.InvalidID}, context.Cause(ctx)
	case <-h.done:
		return ConnectReply{ID: conn.InvalidID}, context.Canceled
	}
}

func (h *Hub) Sessions(ctx context.Context) (Listing, bool) {
	reply := make(chan Listing, 1)
	if !h.Submit(ctx, ListSessions{Reply: reply}) {
		return Listing{}, false
	}
	select {
	case l := <-reply:
		return l, true
	case <-ctx.Done():
		return Listing{}, false
	case <-h.done:
		return Listing{}, false
	}
}

func (h *Hub) Stats(ctx context.Context) (Stats, bool) {
	reply := make(chan Stats, 1)
	if !h.Submit(ctx, GetStats{Reply: reply}) {
		return Stats{}, false
	}
	select {
	case s := <-reply:
		return s, true
	case <-ctx.Done():
		return Stats{}, false
	case <-h.done:
		return Stats{}, false
	}
}

func (h *Hub) loop() {
	defer close(h.done)
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Connect:
				msg.Reply <- h.connect(msg.Handle)

			case Disconnect:
				h.disconnect(msg.ID)

			case Inbound:
				h.inbound(msg)

			case ListSessions:
				msg.Reply <- Listing{Joinable: h.sessions.Joinable(), Spectatable: h.sessions.Spectatable()}

			case GetStats:
				msg.Reply <- h.stats()

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) shutdown() {
	n := h.conns.CloseAll()
	h.log.Info("hub stopped", zap.Int("connections_closed", n), zap.Int("sessions", h.sessions.Count()))
	h.cancel()
}

func (h *Hub) connect(handle conn.Handle) ConnectReply {
	id, err := h.conns.Register(handle)
	if err != nil {
		h.log.Warn("connection refused", zap.String("transport", kindOf(handle)), zap.Error(err))
		return ConnectReply{ID: conn.InvalidID, Err: err}
	}
	c, _ := h.conns.Get(id)
	h.connLogger(c).Info("connected")
	return ConnectReply{ID: id, ClientID: c.ClientID}
}

func kindOf(handle conn.Handle) string {
	if handle == nil {
		return ""
	}
	return string(handle.Kind())
}

func (h *Hub) disconnect(id conn.ID) {
	c, ok := h.conns.Get(id)
	if !ok {
		return
	}
	h.leave(c, "disconnected")
	h.conns.Unregister(id)
	h.connLogger(c).Info("disconnected", zap.Duration("connected_for", time.Since(c.ConnectedAt)))
}

func (h *Hub) stats() Stats {
	playing := 0
	for _, s := range h.sessions.All() {
		if s.State == session.StatePlaying {
			playing++
		}
	}
	return Stats{
		Connections: h.conns.Count(),
		WebSocket:   h.conns.CountByKind(conn.KindWebSocket),
		SSH:         h.conns.CountByKind(conn.KindSSH),
		Capacity:    h.conns.Capacity(),
		Sessions:    h.sessions.Count(),
		Playing:     playing,
	}
}

func (h *Hub) connLogger(c *conn.Connection) *zap.Logger {
	return h.log.With(
		zap.Int64("conn_id", int64(c.ID)),
		zap.String("client_id", c.ClientID.String()),
		zap.String("transport", string(c.Kind())),
	)
}

// send serializes m and queues it for one connection.
func (h *Hub) send(id conn.ID, m *protocol.Message) {
	data, err := protocol.Serialize(m)
	if err != nil {
		h.log.Error("serialize", zap.Stringer("kind", m.Kind), zap.Error(err))
		return
	}
	if !h.conns.Send(id, data) {
		h.log.Debug("send dropped", zap.Int64("conn_id", int64(id)), zap.Stringer("kind", m.Kind))
	}
}

// broadcast sends m to every connection in the session.
func (h *Hub) broadcast(sid session.ID, m *protocol.Message, excludePlayer int) {
	data, err := protocol.Serialize(m)
	if err != nil {
		h.log.Error("serialize", zap.Stringer("kind", m.Kind), zap.Error(err))
		return
	}
	h.conns.BroadcastSession(int64(sid), data, excludePlayer)
}

func (h *Hub) newPlayerID() int {
	id := h.nextPlayer
	h.nextPlayer++
	return id
}
