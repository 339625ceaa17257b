package protocol

import (
	"github.com/DoyleJ11/deckwars-server/internal/engine"
	"github.com/DoyleJ11/deckwars-server/internal/errcode"
	"github.com/DoyleJ11/deckwars-server/internal/session"
)

// Gamestate is the hidden-information view of g for one seat.
func Gamestate(g *engine.Game, seat int) *Message {
	return New(KindGamestate, flatten(engine.ViewForPlayer(g, seat)))
}

func SpectatorState(g *engine.Game) *Message {
	return New(KindGamestate, flatten(engine.ViewForSpectator(g)))
}

func ErrorMessage(code errcode.Code, details string) *Message {
	fields := map[string]any{
		"code":    code.String(),
		"message": code.Message(),
	}
	if details != "" {
		fields["details"] = details
	}
	return New(KindError, fields)
}

// ErrorFrom renders a handler or parse failure.
func ErrorFrom(e *Error) *Message { return ErrorMessage(e.Code, e.Detail) }

func PlayerJoined(playerID int, name string) *Message {
	return New(KindPlayerJoined, map[string]any{"player_id": playerID, "name": name})
}

func PlayerLeft(playerID int) *Message {
	return New(KindPlayerLeft, map[string]any{"player_id": playerID})
}

func DrawOrderRequest(count int) *Message {
	return New(KindDrawOrderRequest, map[string]any{"count": count})
}

func ChoiceRequest(kind engine.PendingKind, options []string, mandatory bool) *Message {
	if options == nil {
		options = []string{}
	}
	return New(KindChoiceRequest, map[string]any{
		"kind":      string(kind),
		"options":   options,
		"mandatory": mandatory,
	})
}

// ChoiceFor builds the choice_request for seat's outstanding pending
// action, listing the card ids that would be accepted as a response.
func ChoiceFor(g *engine.Game, seat int) (*Message, bool) {
	pa, ok := g.PendingFor(seat)
	if !ok {
		return nil, false
	}
	p := g.Players[seat]
	var options []string
	switch pa.Kind {
	case engine.PendingDiscard, engine.PendingScrapHand:
		options = cardIDs(p.Hand)
	case engine.PendingScrapDiscard:
		options = cardIDs(p.Discard)
	case engine.PendingScrapHandDiscard:
		options = append(cardIDs(p.Hand), cardIDs(p.Discard)...)
	case engine.PendingScrapTradeRow:
		for _, c := range g.TradeRow {
			if c != nil {
				options = append(options, c.ID)
			}
		}
	}
	return ChoiceRequest(pa.Kind, options, pa.Mandatory), true
}

func cardIDs(cards []*engine.Card) []string {
	out := make([]string, 0, len(cards))
	for _, c := range cards {
		out = append(out, c.ID)
	}
	return out
}

func GameOver(winnerID int, reason string) *Message {
	return New(KindGameOver, map[string]any{"winner_id": winnerID, "reason": reason})
}

func Narrative(text string) *Message {
	return New(KindNarrative, map[string]any{"text": text})
}

// Chat is a narrative line attributed to a player.
func Chat(playerID int, name, text string) *Message {
	return New(KindNarrative, map[string]any{"text": text, "player_id": playerID, "name": name, "chat": true})
}

func SessionJoined(sessionID int64, playerID, seat int, spectator bool) *Message {
	return New(KindSessionJoined, map[string]any{
		"session_id": sessionID,
		"player_id":  playerID,
		"seat":       seat,
		"spectator":  spectator,
	})
}

func SessionList(joinable, spectatable []session.Summary) *Message {
	if joinable == nil {
		joinable = []session.Summary{}
	}
	if spectatable == nil {
		spectatable = []session.Summary{}
	}
	return New(KindSessionList, map[string]any{"joinable": joinable, "spectatable": spectatable})
}

func Pong() *Message { return New(KindPong, nil) }
