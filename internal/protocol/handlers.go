package protocol

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/secure/precis"

	"github.com/DoyleJ11/deckwars-server/internal/engine"
	"github.com/DoyleJ11/deckwars-server/internal/errcode"
	"github.com/DoyleJ11/deckwars-server/internal/validation"
)

const (
	MaxNameLen = 32
	MaxChatLen = 512
)

// Env is what a handler may look at. It is a read-only snapshot assembled
// by the caller; handlers never mutate anything reachable from it.
type Env struct {
	PlayerID int
	// SessionID is -1 when the sender is in no session.
	SessionID int64
	Spectator bool
	// Seat is the sender's index inside Game, -1 when not seated.
	Seat int
	Game *engine.Game
}

// Request is the typed outcome of a successfully handled message.
type Request interface{ isRequest() }

type CreateSessionRequest struct {
	Name            string
	Players         int
	AllowSpectators bool
	AutoStart       bool
}

// JoinRequest with SessionID 0 asks for any joinable session.
type JoinRequest struct {
	Name      string
	SessionID int64
}

type SpectateRequest struct{ SessionID int64 }

type LeaveRequest struct{}

type ReadyRequest struct{ Ready bool }

// StartRequest is the host asking to begin a session that does not
// start on its own.
type StartRequest struct{}

type ChatRequest struct{ Text string }

type ListSessionsRequest struct{}

type PingRequest struct{}

// GameRequest carries a command that already passed validation against
// the sender's game.
type GameRequest struct{ Command validation.Command }

func (CreateSessionRequest) isRequest() {}
func (JoinRequest) isRequest()          {}
func (SpectateRequest) isRequest()      {}
func (LeaveRequest) isRequest()         {}
func (ReadyRequest) isRequest()         {}
func (StartRequest) isRequest()         {}
func (ChatRequest) isRequest()          {}
func (ListSessionsRequest) isRequest()  {}
func (PingRequest) isRequest()          {}
func (GameRequest) isRequest()          {}

type Handler func(Env, *Message) (Request, *Error)

type Dispatcher struct {
	handlers map[Kind]Handler
}

// NewDispatcher returns a dispatcher with a handler for every client kind.
func NewDispatcher() *Dispatcher {
	d := &Dispatcher{handlers: make(map[Kind]Handler)}
	d.Handle(KindCreateSession, handleCreateSession)
	d.Handle(KindJoin, handleJoin)
	d.Handle(KindSpectate, handleSpectate)
	d.Handle(KindLeave, handleLeave)
	d.Handle(KindReady, handleReady)
	d.Handle(KindStart, handleStart)
	d.Handle(KindChat, handleChat)
	d.Handle(KindListSessions, func(Env, *Message) (Request, *Error) { return ListSessionsRequest{}, nil })
	d.Handle(KindPing, func(Env, *Message) (Request, *Error) { return PingRequest{}, nil })
	d.Handle(KindAction, handleAction)
	d.Handle(KindDrawOrder, handleDrawOrder)
	d.Handle(KindEndTurn, handleEndTurn)
	return d
}

func (d *Dispatcher) Handle(k Kind, h Handler) { d.handlers[k] = h }

// Dispatch routes m to its handler. Server-only kinds are rejected.
func (d *Dispatcher) Dispatch(env Env, m *Message) (Request, *Error) {
	h, ok := d.handlers[m.Kind]
	if !ok {
		return nil, errorf(errcode.InvalidAction, "%q is not accepted from clients", m.Kind)
	}
	return h(env, m)
}

// NormalizeName applies the PRECIS nickname profile and a length bound.
func NormalizeName(raw string) (string, *Error) {
	name, err := precis.Nickname.String(raw)
	if err != nil || name == "" {
		return "", errorf(errcode.InvalidValue, "name is not a valid nickname")
	}
	if utf8.RuneCountInString(name) > MaxNameLen {
		return "", errorf(errcode.InvalidValue, "name longer than %d characters", MaxNameLen)
	}
	return name, nil
}

func requireName(p map[string]any) (string, *Error) {
	raw, perr := RequireString(p, "name")
	if perr != nil {
		return "", perr
	}
	return NormalizeName(raw)
}

func requireNoSession(env Env) *Error {
	if env.SessionID >= 0 {
		return errorf(errcode.InvalidAction, "already in session %d", env.SessionID)
	}
	return nil
}

func requireSession(env Env) *Error {
	if env.SessionID < 0 {
		return errorf(errcode.NotInGame, "not in a session")
	}
	return nil
}

func handleCreateSession(env Env, m *Message) (Request, *Error) {
	if perr := requireNoSession(env); perr != nil {
		return nil, perr
	}
	name, perr := requireName(m.Payload)
	if perr != nil {
		return nil, perr
	}
	players := engine.MinPlayers
	if _, ok := m.Payload["players"]; ok {
		f, perr := RequireNumberInRange(m.Payload, "players", engine.MinPlayers, engine.MaxPlayers)
		if perr != nil {
			return nil, perr
		}
		n, ok := integral(f)
		if !ok {
			return nil, errorf(errcode.InvalidValue, "\"players\" must be an integer")
		}
		players = n
	}
	spectators, perr := OptionalBool(m.Payload, "allow_spectators", true)
	if perr != nil {
		return nil, perr
	}
	autoStart, perr := OptionalBool(m.Payload, "auto_start", true)
	if perr != nil {
		return nil, perr
	}
	return CreateSessionRequest{Name: name, Players: players, AllowSpectators: spectators, AutoStart: autoStart}, nil
}

func optionalSessionID(p map[string]any) (int64, *Error) {
	id, perr := OptionalInt(p, "session_id", 0)
	if perr != nil {
		return 0, perr
	}
	if id < 0 {
		return 0, errorf(errcode.InvalidValue, "\"session_id\" must be positive")
	}
	return int64(id), nil
}

func handleJoin(env Env, m *Message) (Request, *Error) {
	if perr := requireNoSession(env); perr != nil {
		return nil, perr
	}
	name, perr := requireName(m.Payload)
	if perr != nil {
		return nil, perr
	}
	id, perr := optionalSessionID(m.Payload)
	if perr != nil {
		return nil, perr
	}
	return JoinRequest{Name: name, SessionID: id}, nil
}

func handleSpectate(env Env, m *Message) (Request, *Error) {
	if perr := requireNoSession(env); perr != nil {
		return nil, perr
	}
	id, perr := RequireInt(m.Payload, "session_id")
	if perr != nil {
		return nil, perr
	}
	if id <= 0 {
		return nil, errorf(errcode.InvalidValue, "\"session_id\" must be positive")
	}
	return SpectateRequest{SessionID: int64(id)}, nil
}

func handleLeave(env Env, _ *Message) (Request, *Error) {
	if perr := requireSession(env); perr != nil {
		return nil, perr
	}
	return LeaveRequest{}, nil
}

func handleReady(env Env, m *Message) (Request, *Error) {
	if perr := requireSession(env); perr != nil {
		return nil, perr
	}
	if env.Spectator {
		return nil, errorf(errcode.InvalidAction, "spectators cannot ready up")
	}
	if env.Game != nil {
		return nil, errorf(errcode.GameAlreadyStarted, "game already started")
	}
	ready, perr := OptionalBool(m.Payload, "ready", true)
	if perr != nil {
		return nil, perr
	}
	return ReadyRequest{Ready: ready}, nil
}

func handleStart(env Env, _ *Message) (Request, *Error) {
	if perr := requireSession(env); perr != nil {
		return nil, perr
	}
	if env.Spectator {
		return nil, errorf(errcode.InvalidAction, "spectators cannot start a game")
	}
	if env.Game != nil {
		return nil, errorf(errcode.GameAlreadyStarted, "game already started")
	}
	return StartRequest{}, nil
}

func handleChat(env Env, m *Message) (Request, *Error) {
	if perr := requireSession(env); perr != nil {
		return nil, perr
	}
	text, perr := RequireString(m.Payload, "text")
	if perr != nil {
		return nil, perr
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errorf(errcode.InvalidValue, "empty chat message")
	}
	if len(text) > MaxChatLen {
		return nil, errorf(errcode.InvalidValue, "chat longer than %d bytes", MaxChatLen)
	}
	return ChatRequest{Text: text}, nil
}

// prepare is the shared tail of every game handler.
func prepare(env Env, a engine.Action) (Request, *Error) {
	if env.Game == nil {
		return nil, errorf(errcode.GameNotStarted, "game has not started")
	}
	if env.Spectator || env.Seat < 0 {
		return nil, errorf(errcode.NotInGame, "not seated in this game")
	}
	cmd, r := validation.Prepare(env.Game, env.Seat, a)
	if !r.Valid {
		return nil, &Error{Code: r.Err, Detail: r.Message}
	}
	return GameRequest{Command: cmd}, nil
}

func handleDrawOrder(env Env, m *Message) (Request, *Error) {
	order, perr := RequireIntArray(m.Payload, "order")
	if perr != nil {
		return nil, perr
	}
	return prepare(env, engine.Action{Type: engine.ActDrawOrder, Order: order})
}

func handleEndTurn(env Env, _ *Message) (Request, *Error) {
	return prepare(env, engine.Action{Type: engine.ActEndTurn})
}

func handleAction(env Env, m *Message) (Request, *Error) {
	a, perr := ParseAction(m.Payload)
	if perr != nil {
		return nil, perr
	}
	return prepare(env, a)
}

// ParseAction reads the "action" sub-grammar into an engine action. It
// checks field presence and types only; game legality is validation's job.
func ParseAction(p map[string]any) (engine.Action, *Error) {
	tag, perr := RequireString(p, "action")
	if perr != nil {
		return engine.Action{}, perr
	}
	a := engine.Action{Type: engine.ActionType(tag)}

	switch a.Type {
	case engine.ActPlayCard, engine.ActScrapHand, engine.ActScrapDiscard:
		a.CardID, perr = RequireString(p, "card_id")
	case engine.ActBuyCard, engine.ActScrapTradeRow:
		a.Slot, perr = RequireInt(p, "slot")
	case engine.ActAttackPlayer:
		if a.Target, perr = RequireInt(p, "target"); perr == nil {
			a.Amount, perr = RequireInt(p, "amount")
		}
	case engine.ActAttackBase:
		if a.Target, perr = RequireInt(p, "target"); perr != nil {
			break
		}
		if a.BaseID, perr = RequireString(p, "base_id"); perr != nil {
			break
		}
		a.Amount, perr = RequireInt(p, "amount")
	case engine.ActDrawOrder:
		a.Order, perr = RequireIntArray(p, "order")
	case engine.ActPendingResponse:
		var kind string
		if kind, perr = RequireString(p, "kind"); perr != nil {
			break
		}
		a.Response = engine.PendingKind(kind)
		if !knownPending(a.Response) {
			return engine.Action{}, errorf(errcode.InvalidValue, "unknown pending kind %q", kind)
		}
		a.CardID, perr = RequireString(p, "card_id")
	case engine.ActBuyExplorer, engine.ActEndTurn, engine.ActPendingSkip:
	default:
		return engine.Action{}, errorf(errcode.InvalidAction, "unknown action %q", tag)
	}
	if perr != nil {
		return engine.Action{}, perr
	}
	return a, nil
}

func knownPending(k engine.PendingKind) bool {
	switch k {
	case engine.PendingDiscard, engine.PendingScrapHand, engine.PendingScrapDiscard,
		engine.PendingScrapHandDiscard, engine.PendingScrapTradeRow:
		return true
	}
	return false
}
