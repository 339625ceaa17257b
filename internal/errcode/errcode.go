// Package errcode defines the closed error taxonomy shared by the protocol
// parser, the action validators and the hub. Every code carries a stable
// machine string (sent on the wire) and a prose message for humans.
package errcode

type Code uint8

const (
	// OK is the sentinel for "no error". It is never sent to clients.
	OK Code = iota
	MalformedJSON
	MissingType
	UnknownType
	MissingField
	InvalidFieldType
	InvalidValue
	NotYourTurn
	InvalidPhase
	GameNotStarted
	GameAlreadyStarted
	GameFull
	NotInGame
	InvalidAction
	CardNotFound
	CardNotInHand
	InsufficientTrade
	InsufficientCombat
	InvalidTarget
	InvalidSlot
	InvalidDrawOrder

	numCodes
)

var machine = [numCodes]string{
	OK:                 "ok",
	MalformedJSON:      "malformed_json",
	MissingType:        "missing_type",
	UnknownType:        "unknown_type",
	MissingField:       "missing_field",
	InvalidFieldType:   "invalid_field_type",
	InvalidValue:       "invalid_value",
	NotYourTurn:        "not_your_turn",
	InvalidPhase:       "invalid_phase",
	GameNotStarted:     "game_not_started",
	GameAlreadyStarted: "game_already_started",
	GameFull:           "game_full",
	NotInGame:          "not_in_game",
	InvalidAction:      "invalid_action",
	CardNotFound:       "card_not_found",
	CardNotInHand:      "card_not_in_hand",
	InsufficientTrade:  "insufficient_trade",
	InsufficientCombat: "insufficient_combat",
	InvalidTarget:      "invalid_target",
	InvalidSlot:        "invalid_slot",
	InvalidDrawOrder:   "invalid_draw_order",
}

var prose = [numCodes]string{
	OK:                 "No error",
	MalformedJSON:      "Message is not a valid JSON object",
	MissingType:        "Message has no \"type\" field",
	UnknownType:        "Unknown message type",
	MissingField:       "Required field is missing",
	InvalidFieldType:   "Field has the wrong type",
	InvalidValue:       "Field value is out of range",
	NotYourTurn:        "It is not your turn",
	InvalidPhase:       "Action is not allowed in the current phase",
	GameNotStarted:     "Game has not started",
	GameAlreadyStarted: "Game has already started",
	GameFull:           "Game is full",
	NotInGame:          "You are not in a game",
	InvalidAction:      "Invalid action",
	CardNotFound:       "Card not found",
	CardNotInHand:      "Card is not in your hand",
	InsufficientTrade:  "Not enough trade",
	InsufficientCombat: "Not enough combat",
	InvalidTarget:      "Invalid target",
	InvalidSlot:        "Invalid trade row slot",
	InvalidDrawOrder:   "Invalid draw order",
}

// String returns the short machine code, e.g. "not_your_turn".
func (c Code) String() string {
	if c >= numCodes {
		return "unknown_error"
	}
	return machine[c]
}

// Message returns the human readable description of the code.
func (c Code) Message() string {
	if c >= numCodes {
		return "Unknown error"
	}
	return prose[c]
}

// Error lets a Code be returned and matched as a plain error.
func (c Code) Error() string { return c.String() }

// Parse maps a machine code back to its Code.
func Parse(s string) (Code, bool) {
	for i, m := range machine {
		if m == s {
			return Code(i), true
		}
	}
	return OK, false
}

// All returns every code, OK included, in declaration order.
func All() []Code {
	out := make([]Code, 0, numCodes)
	for c := OK; c < numCodes; c++ {
		out = append(out, c)
	}
	return out
}
