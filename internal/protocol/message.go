// Package protocol is the wire grammar spoken by every transport: a closed
// set of message kinds, JSON parse and serialize, field helpers, the
// dispatch table of validating handlers and the outbound factories.
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"time"

	"github.com/DoyleJ11/deckwars-server/internal/errcode"
)

type Kind uint8

const (
	KindInvalid Kind = iota

	// client -> server
	KindJoin
	KindLeave
	KindAction
	KindDrawOrder
	KindChat
	KindEndTurn
	KindCreateSession
	KindReady
	KindStart
	KindSpectate
	KindListSessions
	KindPing

	// server -> client
	KindGamestate
	KindNarrative
	KindError
	KindPlayerJoined
	KindPlayerLeft
	KindDrawOrderRequest
	KindChoiceRequest
	KindGameOver
	KindSessionJoined
	KindSessionList
	KindPong

	numKinds
)

var kindNames = [numKinds]string{
	KindInvalid:          "",
	KindJoin:             "join",
	KindLeave:            "leave",
	KindAction:           "action",
	KindDrawOrder:        "draw_order",
	KindChat:             "chat",
	KindEndTurn:          "end_turn",
	KindCreateSession:    "create_session",
	KindReady:            "ready",
	KindStart:            "start",
	KindSpectate:         "spectate",
	KindListSessions:     "list_sessions",
	KindPing:             "ping",
	KindGamestate:        "gamestate",
	KindNarrative:        "narrative",
	KindError:            "error",
	KindPlayerJoined:     "player_joined",
	KindPlayerLeft:       "player_left",
	KindDrawOrderRequest: "draw_order_request",
	KindChoiceRequest:    "choice_request",
	KindGameOver:         "game_over",
	KindSessionJoined:    "session_joined",
	KindSessionList:      "session_list",
	KindPong:             "pong",
}

var kindByName = func() map[string]Kind {
	m := make(map[string]Kind, numKinds)
	for k := KindJoin; k < numKinds; k++ {
		m[kindNames[k]] = k
	}
	return m
}()

func (k Kind) String() string {
	if k >= numKinds {
		return ""
	}
	return kindNames[k]
}

// ParseKind maps a wire name to its Kind.
func ParseKind(s string) (Kind, bool) {
	k, ok := kindByName[s]
	return k, ok
}

// FromClient reports whether clients may send this kind.
func (k Kind) FromClient() bool { return k >= KindJoin && k <= KindPing }

func (k Kind) FromServer() bool { return k >= KindGamestate && k < numKinds }

// Kinds lists every valid kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, numKinds-1)
	for k := KindJoin; k < numKinds; k++ {
		out = append(out, k)
	}
	return out
}

// Message is one protocol unit. Payload holds every field of the JSON
// object, including "type".
type Message struct {
	Kind       Kind
	PlayerID   int
	Payload    map[string]any
	ReceivedAt time.Time
}

// New builds an outbound message. The payload map is copied.
func New(kind Kind, fields map[string]any) *Message {
	p := make(map[string]any, len(fields)+1)
	maps.Copy(p, fields)
	p["type"] = kind.String()
	return &Message{Kind: kind, PlayerID: -1, Payload: p}
}

// Error is a taxonomy code plus optional detail for the offending client.
type Error struct {
	Code   errcode.Code
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Code.String()
	}
	return e.Code.String() + ": " + e.Detail
}

func (e *Error) Unwrap() error { return e.Code }

func errorf(code errcode.Code, format string, args ...any) *Error {
	return &Error{Code: code, Detail: fmt.Sprintf(format, args...)}
}

// Parse decodes one JSON object. Numbers are kept as json.Number so integer
// fields survive without float rounding.
func Parse(data []byte) (*Message, *Error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, errorf(errcode.MalformedJSON, "%v", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errorf(errcode.MalformedJSON, "trailing data after object")
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errorf(errcode.MalformedJSON, "message must be a JSON object")
	}

	raw, present := obj["type"]
	if !present {
		return nil, errorf(errcode.MissingType, "no \"type\" field")
	}
	name, ok := raw.(string)
	if !ok {
		return nil, errorf(errcode.MissingType, "\"type\" must be a string")
	}
	kind, ok := ParseKind(name)
	if !ok {
		return nil, errorf(errcode.UnknownType, "%q", name)
	}

	return &Message{Kind: kind, PlayerID: -1, Payload: obj, ReceivedAt: time.Now()}, nil
}

// Serialize encodes m with its "type" field always taken from m.Kind.
func Serialize(m *Message) ([]byte, error) {
	if m == nil || m.Kind == KindInvalid || m.Kind >= numKinds {
		return nil, fmt.Errorf("serialize: invalid message kind")
	}
	p := make(map[string]any, len(m.Payload)+1)
	maps.Copy(p, m.Payload)
	p["type"] = m.Kind.String()
	return json.Marshal(p)
}

// flatten turns a tagged struct into payload fields.
func flatten(v any) map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil || out == nil {
		return map[string]any{}
	}
	return out
}
