package hub

import (
	"fmt"

	"github.com/DoyleJ11/deckwars-server/internal/engine"
)

// narrate describes an action for the session log. It runs before the
// action is applied so the cards involved can still be found. Draw order
// is private and produces no line.
func narrate(g *engine.Game, seat int, a engine.Action) string {
	p, ok := g.Player(seat)
	if !ok {
		return ""
	}
	name := func(c *engine.Card) string {
		if c == nil {
			return "a card"
		}
		return c.Type.Name
	}

	switch a.Type {
	case engine.ActPlayCard:
		_, c := p.FindInHand(a.CardID)
		return fmt.Sprintf("%s plays %s", p.Name, name(c))
	case engine.ActBuyCard:
		var c *engine.Card
		if a.Slot >= 0 && a.Slot < len(g.TradeRow) {
			c = g.TradeRow[a.Slot]
		}
		return fmt.Sprintf("%s buys %s", p.Name, name(c))
	case engine.ActBuyExplorer:
		return fmt.Sprintf("%s buys an Explorer", p.Name)
	case engine.ActAttackPlayer:
		t, _ := g.Player(a.Target)
		if t == nil {
			return ""
		}
		return fmt.Sprintf("%s attacks %s for %d", p.Name, t.Name, a.Amount)
	case engine.ActAttackBase:
		t, _ := g.Player(a.Target)
		if t == nil {
			return ""
		}
		_, b := t.FindBase(a.BaseID)
		base := "a base"
		if b != nil {
			base = b.Card.Type.Name
		}
		return fmt.Sprintf("%s hits %s's %s for %d", p.Name, t.Name, base, a.Amount)
	case engine.ActScrapHand:
		_, c := p.FindInHand(a.CardID)
		return fmt.Sprintf("%s scraps %s", p.Name, name(c))
	case engine.ActScrapDiscard:
		_, c := p.FindInDiscard(a.CardID)
		return fmt.Sprintf("%s scraps %s", p.Name, name(c))
	case engine.ActScrapTradeRow:
		var c *engine.Card
		if a.Slot >= 0 && a.Slot < len(g.TradeRow) {
			c = g.TradeRow[a.Slot]
		}
		return fmt.Sprintf("%s scraps %s from the trade row", p.Name, name(c))
	case engine.ActEndTurn:
		return fmt.Sprintf("%s ends the turn", p.Name)
	case engine.ActPendingResponse:
		return fmt.Sprintf("%s resolves %s", p.Name, a.Response)
	case engine.ActPendingSkip:
		if pa, ok := g.PendingFor(seat); ok {
			return fmt.Sprintf("%s skips %s", p.Name, pa.Kind)
		}
	}
	return ""
}
