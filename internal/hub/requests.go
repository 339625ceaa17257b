package hub

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/DoyleJ11/deckwars-server/internal/conn"
	"github.com/DoyleJ11/deckwars-server/internal/engine"
	"github.com/DoyleJ11/deckwars-server/internal/errcode"
	"github.com/DoyleJ11/deckwars-server/internal/protocol"
	"github.com/DoyleJ11/deckwars-server/internal/session"
	"github.com/DoyleJ11/deckwars-server/internal/validation"
)

func (h *Hub) inbound(in Inbound) {
	c, ok := h.conns.Get(in.ID)
	if !ok || !c.Alive {
		return
	}

	m, perr := protocol.Parse(in.Data)
	if perr != nil {
		h.reject(c, perr)
		return
	}
	m.PlayerID = c.PlayerID
	if !in.At.IsZero() {
		m.ReceivedAt = in.At
	}

	req, perr := h.dispatch.Dispatch(h.env(c), m)
	if perr != nil {
		h.reject(c, perr)
		return
	}

	switch r := req.(type) {
	case protocol.CreateSessionRequest:
		h.createSession(c, r)
	case protocol.JoinRequest:
		h.join(c, r)
	case protocol.SpectateRequest:
		h.spectate(c, r)
	case protocol.LeaveRequest:
		h.leave(c, "left")
	case protocol.ReadyRequest:
		h.ready(c, r)
	case protocol.StartRequest:
		h.start(c)
	case protocol.ChatRequest:
		h.chat(c, r)
	case protocol.ListSessionsRequest:
		h.send(c.ID, protocol.SessionList(h.sessions.Joinable(), h.sessions.Spectatable()))
	case protocol.PingRequest:
		h.send(c.ID, protocol.Pong())
	case protocol.GameRequest:
		h.play(c, r.Command)
	}
}

// reject answers only the offending connection.
func (h *Hub) reject(c *conn.Connection, perr *protocol.Error) {
	h.connLogger(c).Debug("rejected", zap.Stringer("code", perr.Code), zap.String("detail", perr.Detail))
	h.send(c.ID, protocol.ErrorFrom(perr))
}

func (h *Hub) env(c *conn.Connection) protocol.Env {
	env := protocol.Env{PlayerID: c.PlayerID, SessionID: -1, Seat: -1}
	s, ok := h.sessions.FindByConn(c.ID)
	if !ok {
		return env
	}
	env.SessionID = int64(s.ID)
	env.Game = s.Game
	env.Spectator = s.IsSpectator(c.ID)
	if sl, ok := s.Slot(c.ID); ok {
		env.Seat = sl.GameIndex
	}
	return env
}

// sessionError maps registry failures onto the wire taxonomy.
func sessionError(err error) *protocol.Error {
	code := errcode.InvalidAction
	switch {
	case errors.Is(err, session.ErrNotFound):
		code = errcode.InvalidValue
	case errors.Is(err, session.ErrNotWaiting):
		code = errcode.GameAlreadyStarted
	case errors.Is(err, session.ErrNotPlaying):
		code = errcode.GameNotStarted
	case errors.Is(err, session.ErrSessionFull), errors.Is(err, session.ErrFull):
		code = errcode.GameFull
	case errors.Is(err, session.ErrNotMember):
		code = errcode.NotInGame
	case errors.Is(err, session.ErrInvalidPlayerCount):
		code = errcode.InvalidValue
	}
	return &protocol.Error{Code: code, Detail: err.Error()}
}

func (h *Hub) createSession(c *conn.Connection, r protocol.CreateSessionRequest) {
	pid := h.newPlayerID()
	sid, err := h.sessions.Create(
		session.Member{ConnID: c.ID, PlayerID: pid, Name: r.Name},
		session.Options{RequiredPlayers: r.Players, AllowSpectators: r.AllowSpectators, AutoStart: r.AutoStart},
	)
	if err != nil {
		h.reject(c, sessionError(err))
		return
	}
	if err := h.conns.AssignPlayer(c.ID, pid, int64(sid)); err != nil {
		h.sessions.Destroy(sid)
		h.reject(c, &protocol.Error{Code: errcode.InvalidAction, Detail: err.Error()})
		return
	}
	h.connLogger(c).Info("session created", zap.Int64("session_id", int64(sid)), zap.Int("players", r.Players))
	h.send(c.ID, protocol.SessionJoined(int64(sid), pid, 0, false))
}

func (h *Hub) join(c *conn.Connection, r protocol.JoinRequest) {
	sid := session.ID(r.SessionID)
	if sid == 0 {
		open := h.sessions.Joinable()
		if len(open) == 0 {
			h.reject(c, &protocol.Error{Code: errcode.GameFull, Detail: "no joinable session"})
			return
		}
		sid = open[0].ID
	}

	pid := h.newPlayerID()
	if err := h.sessions.Join(sid, session.Member{ConnID: c.ID, PlayerID: pid, Name: r.Name}); err != nil {
		h.reject(c, sessionError(err))
		return
	}
	if err := h.conns.AssignPlayer(c.ID, pid, int64(sid)); err != nil {
		h.sessions.Leave(sid, c.ID)
		h.reject(c, &protocol.Error{Code: errcode.InvalidAction, Detail: err.Error()})
		return
	}

	s, _ := h.sessions.Get(sid)
	h.connLogger(c).Info("joined session", zap.Int64("session_id", int64(sid)))
	h.send(c.ID, protocol.SessionJoined(int64(sid), pid, len(s.Players)-1, false))
	for _, sl := range s.Players {
		if sl.PlayerID != pid {
			h.send(c.ID, protocol.PlayerJoined(sl.PlayerID, sl.Name))
		}
	}
	h.broadcast(sid, protocol.PlayerJoined(pid, r.Name), pid)
}

func (h *Hub) spectate(c *conn.Connection, r protocol.SpectateRequest) {
	sid := session.ID(r.SessionID)
	if err := h.sessions.AddSpectator(sid, c.ID); err != nil {
		h.reject(c, sessionError(err))
		return
	}
	h.conns.AssignPlayer(c.ID, -1, int64(sid))

	s, _ := h.sessions.Get(sid)
	h.send(c.ID, protocol.SessionJoined(int64(sid), -1, -1, true))
	for _, sl := range s.Players {
		h.send(c.ID, protocol.PlayerJoined(sl.PlayerID, sl.Name))
	}
	if s.Game != nil {
		h.send(c.ID, protocol.SpectatorState(s.Game))
	}
}

// leave handles both an explicit leave and a dropped connection.
func (h *Hub) leave(c *conn.Connection, reason string) {
	s, ok := h.sessions.FindByConn(c.ID)
	if !ok {
		return
	}
	sid := s.ID
	slot, wasPlayer := s.Slot(c.ID)
	wasHost := wasPlayer && s.Players[s.Host].ConnID == c.ID
	wasPlaying := s.State == session.StatePlaying

	members := make([]conn.ID, 0, len(s.Players)+len(s.Spectators))
	for _, sl := range s.Players {
		members = append(members, sl.ConnID)
	}
	members = append(members, s.Spectators...)

	destroyed, err := h.sessions.Leave(sid, c.ID)
	if err != nil {
		h.connLogger(c).Warn("leave", zap.Error(err))
		return
	}
	h.conns.ClearPlayer(c.ID)
	log := h.connLogger(c).With(zap.Int64("session_id", int64(sid)))
	log.Info("left session", zap.String("reason", reason), zap.Bool("destroyed", destroyed))

	if destroyed {
		for _, id := range members {
			if id == c.ID {
				continue
			}
			h.conns.ClearPlayer(id)
			if wasPlayer {
				h.send(id, protocol.PlayerLeft(slot.PlayerID))
			}
			if wasHost {
				h.send(id, protocol.Narrative("host left, session closed"))
			}
		}
		return
	}
	if !wasPlayer {
		return
	}

	h.broadcast(sid, protocol.PlayerLeft(slot.PlayerID), -1)
	if wasPlaying {
		h.forfeit(s, slot, reason)
	}
}

// forfeit ends a running game when a seated player goes away. The last
// remaining player wins; with more than one left nobody does.
func (h *Hub) forfeit(s *session.Session, gone session.Slot, reason string) {
	winner, winnerID := -1, -1
	if len(s.Players) == 1 {
		winner, winnerID = s.Players[0].GameIndex, s.Players[0].PlayerID
	}
	if err := h.sessions.End(s.ID, winner); err != nil {
		return
	}
	h.broadcast(s.ID, protocol.GameOver(winnerID, fmt.Sprintf("%s %s", gone.Name, reason)), -1)
}

func (h *Hub) ready(c *conn.Connection, r protocol.ReadyRequest) {
	s, ok := h.sessions.FindByConn(c.ID)
	if !ok {
		h.reject(c, &protocol.Error{Code: errcode.NotInGame, Detail: "not in a session"})
		return
	}
	slot, _ := s.Slot(c.ID)

	started, err := h.sessions.SetReady(s.ID, c.ID, r.Ready)
	if err != nil && !errors.Is(err, session.ErrStartFailed) {
		h.reject(c, sessionError(err))
		return
	}

	word := "is ready"
	if !r.Ready {
		word = "is not ready"
	}
	h.broadcast(s.ID, protocol.Narrative(slot.Name+" "+word), -1)

	if err != nil {
		h.startFailed(s, err)
		return
	}
	if started {
		h.started(s)
	}
}

// start is the host beginning a session by hand. Every seat must be
// filled and ready, the same condition auto start waits for.
func (h *Hub) start(c *conn.Connection) {
	s, ok := h.sessions.FindByConn(c.ID)
	if !ok {
		h.reject(c, &protocol.Error{Code: errcode.NotInGame, Detail: "not in a session"})
		return
	}
	if s.State != session.StateWaiting {
		h.reject(c, &protocol.Error{Code: errcode.GameAlreadyStarted, Detail: "game already started"})
		return
	}
	if s.Players[s.Host].ConnID != c.ID {
		h.reject(c, &protocol.Error{Code: errcode.InvalidAction, Detail: "only the host can start the game"})
		return
	}
	if !h.sessions.CanStart(s.ID) {
		h.reject(c, &protocol.Error{Code: errcode.InvalidAction,
			Detail: fmt.Sprintf("need %d ready players", s.RequiredPlayers)})
		return
	}
	if err := h.sessions.Start(s.ID); err != nil {
		if errors.Is(err, session.ErrStartFailed) {
			h.startFailed(s, err)
			return
		}
		h.reject(c, sessionError(err))
		return
	}
	h.started(s)
}

func (h *Hub) started(s *session.Session) {
	h.log.Info("game started", zap.Int64("session_id", int64(s.ID)), zap.Int("players", len(s.Players)))
	h.broadcast(s.ID, protocol.Narrative("game started"), -1)
	h.publish(s)
}

func (h *Hub) startFailed(s *session.Session, err error) {
	h.log.Error("start failed", zap.Int64("session_id", int64(s.ID)), zap.Error(err))
	h.broadcast(s.ID, protocol.Narrative("game failed to start"), -1)
}

func (h *Hub) chat(c *conn.Connection, r protocol.ChatRequest) {
	s, ok := h.sessions.FindByConn(c.ID)
	if !ok {
		return
	}
	name := "spectator"
	if sl, ok := s.Slot(c.ID); ok {
		name = sl.Name
	}
	h.broadcast(s.ID, protocol.Chat(c.PlayerID, name, r.Text), -1)
}

// play applies a prepared command. Nothing else in the server mutates a
// Game.
func (h *Hub) play(c *conn.Connection, cmd validation.Command) {
	s, ok := h.sessions.FindByConn(c.ID)
	if !ok || s.Game == nil {
		h.reject(c, &protocol.Error{Code: errcode.GameNotStarted, Detail: "game has not started"})
		return
	}
	g := s.Game
	line := narrate(g, cmd.Player(), cmd.Action())

	if err := cmd.Apply(h.rules); err != nil {
		detail := err.Error()
		if errors.Is(err, validation.ErrStaleCommand) {
			detail = "game changed, resend"
		}
		h.connLogger(c).Warn("apply failed", zap.String("action", string(cmd.Action().Type)), zap.Error(err))
		h.reject(c, &protocol.Error{Code: errcode.InvalidAction, Detail: detail})
		return
	}

	if line != "" {
		h.broadcast(s.ID, protocol.Narrative(line), -1)
	}
	h.publish(s)

	if g.Over {
		winnerID := -1
		reason := "no winner"
		if sl, ok := s.SlotByIndex(g.Winner); ok {
			winnerID = sl.PlayerID
			reason = sl.Name + " wins"
		}
		h.sessions.End(s.ID, g.Winner)
		h.log.Info("game over", zap.Int64("session_id", int64(s.ID)), zap.Int("winner_id", winnerID))
		h.broadcast(s.ID, protocol.GameOver(winnerID, reason), -1)
	}
}

// publish sends every seat its own view, spectators the public view, and
// the follow-up prompts the engine is waiting on.
func (h *Hub) publish(s *session.Session) {
	g := s.Game
	if g == nil {
		return
	}
	for _, sl := range s.Players {
		h.send(sl.ConnID, protocol.Gamestate(g, sl.GameIndex))
	}
	if len(s.Spectators) > 0 {
		data, err := protocol.Serialize(protocol.SpectatorState(g))
		if err == nil {
			for _, id := range s.Spectators {
				h.conns.Send(id, data)
			}
		}
	}
	if g.Over {
		return
	}

	if g.Phase == engine.PhaseDrawOrder {
		if sl, ok := s.SlotByIndex(g.ActivePlayer); ok {
			h.send(sl.ConnID, protocol.DrawOrderRequest(g.Players[g.ActivePlayer].PendingDraw))
		}
	}
	for _, sl := range s.Players {
		if m, ok := protocol.ChoiceFor(g, sl.GameIndex); ok {
			h.send(sl.ConnID, m)
		}
	}
}
