// Package validation performs server-authoritative precondition checks for
// every player action against live game state. Validators never mutate the
// game; see Prepare for the only route from a validated action to the engine.
package validation

import (
	"fmt"
	"slices"

	"github.com/DoyleJ11/deckwars-server/internal/engine"
	"github.com/DoyleJ11/deckwars-server/internal/errcode"
)

const maxMessageLen = 256

// Result is the outcome of one precondition check. A valid result always
// carries errcode.OK and an empty message.
type Result struct {
	Valid   bool
	Err     errcode.Code
	Message string
}

func valid() Result { return Result{Valid: true, Err: errcode.OK} }

func invalid(code errcode.Code, format string, args ...any) Result {
	msg := fmt.Sprintf(format, args...)
	if len(msg) > maxMessageLen {
		msg = msg[:maxMessageLen]
	}
	return Result{Err: code, Message: msg}
}

// AsError returns nil for a valid result and the code otherwise.
func (r Result) AsError() error {
	if r.Valid {
		return nil
	}
	return r.Err
}

func inProgress(g *engine.Game, player int) (*engine.Player, Result) {
	if g == nil || !g.Started {
		return nil, invalid(errcode.GameNotStarted, "game has not started")
	}
	if g.Over {
		return nil, invalid(errcode.InvalidPhase, "game is over")
	}
	p, ok := g.Player(player)
	if !ok {
		return nil, invalid(errcode.NotInGame, "player %d is not seated", player)
	}
	return p, valid()
}

// turn is the prefix shared by every turn action: game in progress, actor
// holds the turn, game is in the required phase.
func turn(g *engine.Game, player int, phase engine.Phase) (*engine.Player, Result) {
	p, r := inProgress(g, player)
	if !r.Valid {
		return nil, r
	}
	if g.ActivePlayer != player {
		return nil, invalid(errcode.NotYourTurn, "player %d holds the turn", g.ActivePlayer)
	}
	if g.Phase != phase {
		return nil, invalid(errcode.InvalidPhase, "requires %s phase, game is in %s", phase, g.Phase)
	}
	return p, valid()
}

func ValidatePlayCard(g *engine.Game, player int, cardID string) Result {
	p, r := turn(g, player, engine.PhaseMain)
	if !r.Valid {
		return r
	}
	if _, c := p.FindInHand(cardID); c == nil {
		return invalid(errcode.CardNotInHand, "card %q is not in your hand", cardID)
	}
	return valid()
}

func ValidateBuyCard(g *engine.Game, player, slot int) Result {
	p, r := turn(g, player, engine.PhaseMain)
	if !r.Valid {
		return r
	}
	if slot < 0 || slot >= len(g.TradeRow) {
		return invalid(errcode.InvalidSlot, "slot %d outside trade row [0,%d)", slot, len(g.TradeRow))
	}
	c := g.TradeRow[slot]
	if c == nil {
		return invalid(errcode.InvalidSlot, "slot %d is empty", slot)
	}
	if p.Trade < c.Type.Cost {
		return invalid(errcode.InsufficientTrade, "%s costs %d, you have %d trade", c.Type.Name, c.Type.Cost, p.Trade)
	}
	return valid()
}

func ValidateBuyExplorer(g *engine.Game, player int) Result {
	p, r := turn(g, player, engine.PhaseMain)
	if !r.Valid {
		return r
	}
	if g.Explorer == nil {
		return invalid(errcode.InvalidAction, "no explorers in this game")
	}
	if p.Trade < engine.ExplorerCost {
		return invalid(errcode.InsufficientTrade, "explorer costs %d, you have %d trade", engine.ExplorerCost, p.Trade)
	}
	return valid()
}

func opponent(g *engine.Game, player, target int) (*engine.Player, Result) {
	t, ok := g.Player(target)
	if !ok || target == player {
		return nil, invalid(errcode.InvalidTarget, "player %d is not an opponent", target)
	}
	return t, valid()
}

func combat(p *engine.Player, amount int) Result {
	if amount <= 0 {
		return invalid(errcode.InvalidValue, "attack amount must be positive")
	}
	if amount > p.Combat {
		return invalid(errcode.InsufficientCombat, "attack of %d exceeds your %d combat", amount, p.Combat)
	}
	return valid()
}

func ValidateAttackPlayer(g *engine.Game, player, target, amount int) Result {
	p, r := turn(g, player, engine.PhaseMain)
	if !r.Valid {
		return r
	}
	t, r := opponent(g, player, target)
	if !r.Valid {
		return r
	}
	if r := combat(p, amount); !r.Valid {
		return r
	}
	if t.HasFrontierBase() {
		return invalid(errcode.InvalidTarget, "%s is protected by an outpost", t.Name)
	}
	return valid()
}

func ValidateAttackBase(g *engine.Game, player, target int, baseID string, amount int) Result {
	p, r := turn(g, player, engine.PhaseMain)
	if !r.Valid {
		return r
	}
	t, r := opponent(g, player, target)
	if !r.Valid {
		return r
	}
	if r := combat(p, amount); !r.Valid {
		return r
	}
	_, b := t.FindBase(baseID)
	if b == nil {
		return invalid(errcode.CardNotFound, "base %q not found", baseID)
	}
	if !b.Frontier() && t.HasFrontierBase() {
		return invalid(errcode.InvalidTarget, "must attack frontier base first")
	}
	return valid()
}

func ValidateScrapHand(g *engine.Game, player int, cardID string) Result {
	p, r := turn(g, player, engine.PhaseMain)
	if !r.Valid {
		return r
	}
	if _, c := p.FindInHand(cardID); c == nil {
		return invalid(errcode.CardNotInHand, "card %q is not in your hand", cardID)
	}
	return valid()
}

func ValidateScrapDiscard(g *engine.Game, player int, cardID string) Result {
	p, r := turn(g, player, engine.PhaseMain)
	if !r.Valid {
		return r
	}
	if _, c := p.FindInDiscard(cardID); c == nil {
		return invalid(errcode.CardNotFound, "card %q is not in your discard pile", cardID)
	}
	return valid()
}

func ValidateScrapTradeRow(g *engine.Game, player, slot int) Result {
	if _, r := turn(g, player, engine.PhaseMain); !r.Valid {
		return r
	}
	if slot < 0 || slot >= len(g.TradeRow) || g.TradeRow[slot] == nil {
		return invalid(errcode.InvalidSlot, "slot %d has no card", slot)
	}
	return valid()
}

func ValidateEndTurn(g *engine.Game, player int) Result {
	if _, r := turn(g, player, engine.PhaseMain); !r.Valid {
		return r
	}
	if g.HasPending() {
		return invalid(errcode.InvalidAction, "resolve the pending action first")
	}
	return valid()
}

// ValidateDrawOrder requires a permutation of [0, pending draw count).
func ValidateDrawOrder(g *engine.Game, player int, order []int) Result {
	p, r := turn(g, player, engine.PhaseDrawOrder)
	if !r.Valid {
		return r
	}
	if len(order) != p.PendingDraw {
		return invalid(errcode.InvalidDrawOrder, "expected %d indices, got %d", p.PendingDraw, len(order))
	}
	seen := make([]bool, p.PendingDraw)
	for _, idx := range order {
		if idx < 0 || idx >= p.PendingDraw {
			return invalid(errcode.InvalidDrawOrder, "index %d out of range [0,%d)", idx, p.PendingDraw)
		}
		if seen[idx] {
			return invalid(errcode.InvalidDrawOrder, "index %d drawn twice", idx)
		}
		seen[idx] = true
	}
	return valid()
}

func responseMatches(pending, response engine.PendingKind) bool {
	if pending == response {
		return true
	}
	return pending == engine.PendingScrapHandDiscard &&
		slices.Contains([]engine.PendingKind{engine.PendingScrapHand, engine.PendingScrapDiscard}, response)
}

// ValidatePendingResponse checks a reply to the pending action addressed to
// player. The pending holder need not be the turn holder.
func ValidatePendingResponse(g *engine.Game, player int, kind engine.PendingKind, cardID string) Result {
	p, r := inProgress(g, player)
	if !r.Valid {
		return r
	}
	pa, ok := g.PendingFor(player)
	if !ok {
		return invalid(errcode.InvalidAction, "no pending action for you")
	}
	if !responseMatches(pa.Kind, kind) {
		return invalid(errcode.InvalidAction, "pending action is %s, not %s", pa.Kind, kind)
	}

	switch kind {
	case engine.PendingDiscard, engine.PendingScrapHand:
		if _, c := p.FindInHand(cardID); c == nil {
			return invalid(errcode.CardNotInHand, "card %q is not in your hand", cardID)
		}
	case engine.PendingScrapDiscard:
		if _, c := p.FindInDiscard(cardID); c == nil {
			return invalid(errcode.CardNotFound, "card %q is not in your discard pile", cardID)
		}
	case engine.PendingScrapTradeRow:
		if g.FindInTradeRow(cardID) < 0 {
			return invalid(errcode.CardNotFound, "card %q is not in the trade row", cardID)
		}
	default:
		return invalid(errcode.InvalidAction, "unsupported response %q", kind)
	}
	return valid()
}

// ValidatePendingSkip refuses to skip a mandatory action unless nothing
// could answer it.
func ValidatePendingSkip(g *engine.Game, player int) Result {
	p, r := inProgress(g, player)
	if !r.Valid {
		return r
	}
	pa, ok := g.PendingFor(player)
	if !ok {
		return invalid(errcode.InvalidAction, "no pending action for you")
	}
	if pa.Mandatory && g.CanResolve(p, pa.Kind) {
		return invalid(errcode.InvalidAction, "%s is mandatory", pa.Kind)
	}
	return valid()
}

// ValidateAction is the single entry point; it dispatches on the action tag.
func ValidateAction(g *engine.Game, player int, a engine.Action) Result {
	switch a.Type {
	case engine.ActPlayCard:
		return ValidatePlayCard(g, player, a.CardID)
	case engine.ActBuyCard:
		return ValidateBuyCard(g, player, a.Slot)
	case engine.ActBuyExplorer:
		return ValidateBuyExplorer(g, player)
	case engine.ActAttackPlayer:
		return ValidateAttackPlayer(g, player, a.Target, a.Amount)
	case engine.ActAttackBase:
		return ValidateAttackBase(g, player, a.Target, a.BaseID, a.Amount)
	case engine.ActScrapHand:
		return ValidateScrapHand(g, player, a.CardID)
	case engine.ActScrapDiscard:
		return ValidateScrapDiscard(g, player, a.CardID)
	case engine.ActScrapTradeRow:
		return ValidateScrapTradeRow(g, player, a.Slot)
	case engine.ActEndTurn:
		return ValidateEndTurn(g, player)
	case engine.ActDrawOrder:
		return ValidateDrawOrder(g, player, a.Order)
	case engine.ActPendingResponse:
		return ValidatePendingResponse(g, player, a.Response, a.CardID)
	case engine.ActPendingSkip:
		return ValidatePendingSkip(g, player)
	default:
		return invalid(errcode.InvalidAction, "unknown action %q", a.Type)
	}
}
