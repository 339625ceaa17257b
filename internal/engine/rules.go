package engine

import (
	"fmt"
	"math/rand/v2"
)

// Standard is the reference ruleset: starter decks, a five-slot trade row,
// explorers, bases with outposts and a draw-order phase at the start of
// every turn. Card abilities beyond flat trade/combat/authority and a single
// queued choice are out of its scope.
type Standard struct {
	// Seed makes shuffles reproducible. Zero picks a random seed per game.
	Seed uint64
}

var _ Rules = (*Standard)(nil)

func NewStandard(seed uint64) *Standard {
	return &Standard{Seed: seed}
}

func (s *Standard) NewGame() *Game {
	seed := s.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &Game{
		Phase:    PhaseSetup,
		Winner:   -1,
		Explorer: Explorer,
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

func (s *Standard) AddPlayer(g *Game, name string) error {
	if g.Started {
		return ErrAlreadyStarted
	}
	if len(g.Players) >= MaxPlayers {
		return ErrTooManyPlayers
	}
	g.Players = append(g.Players, &Player{
		Index:     len(g.Players),
		Name:      name,
		Authority: StartingAuthority,
	})
	return nil
}

func (s *Standard) Start(g *Game) error {
	if g.Started {
		return ErrAlreadyStarted
	}
	if len(g.Players) < MinPlayers {
		return ErrNotEnoughPlayers
	}

	for _, p := range g.Players {
		p.Deck = g.build(StarterDeck)
		g.shuffle(p.Deck)
	}
	g.TradeDeck = g.build(TradeDeck)
	g.shuffle(g.TradeDeck)
	for slot := range g.TradeRow {
		g.refillSlot(slot)
	}

	g.Started = true
	g.Turn = 1
	g.beginTurn(0, FirstHandSize)
	return nil
}

func (s *Standard) Apply(g *Game, player int, a Action) error {
	if !g.Started {
		return ErrNotStarted
	}
	if g.Over {
		return ErrGameOver
	}
	p, ok := g.Player(player)
	if !ok {
		return fmt.Errorf("player %d: %w", player, ErrIllegalAction)
	}

	var err error
	switch a.Type {
	case ActDrawOrder:
		err = g.applyDrawOrder(p, a.Order)
	case ActPlayCard:
		err = g.applyPlayCard(p, a.CardID)
	case ActBuyCard:
		err = g.applyBuyCard(p, a.Slot)
	case ActBuyExplorer:
		err = g.applyBuyExplorer(p)
	case ActAttackPlayer:
		err = g.applyAttackPlayer(p, a.Target, a.Amount)
	case ActAttackBase:
		err = g.applyAttackBase(p, a.Target, a.BaseID, a.Amount)
	case ActScrapHand:
		err = g.scrapFromHand(p, a.CardID)
	case ActScrapDiscard:
		err = g.scrapFromDiscard(p, a.CardID)
	case ActScrapTradeRow:
		err = g.scrapTradeRowSlot(a.Slot)
	case ActEndTurn:
		g.applyEndTurn(p)
	case ActPendingResponse:
		err = g.applyPendingResponse(p, a.Response, a.CardID)
	case ActPendingSkip:
		err = g.popPending(p)
	default:
		return ErrUnsupportedAction
	}
	if err != nil {
		return err
	}

	g.Version++
	return nil
}

func (g *Game) beginTurn(player, draw int) {
	p := g.Players[player]
	g.ActivePlayer = player
	p.PendingDraw = min(draw, p.Drawable())
	if p.PendingDraw == 0 {
		g.enterMain(p)
		return
	}
	g.Phase = PhaseDrawOrder
}

func (g *Game) enterMain(p *Player) {
	g.Phase = PhaseMain
	for _, b := range p.Bases {
		p.Trade += b.Card.Type.Trade
		p.Combat += b.Card.Type.Combat
		p.Authority += b.Card.Type.Authority
	}
}

func (g *Game) applyDrawOrder(p *Player, order []int) error {
	if len(order) != p.PendingDraw {
		return fmt.Errorf("draw order of %d for %d cards: %w", len(order), p.PendingDraw, ErrIllegalAction)
	}
	for _, idx := range order {
		if idx < 0 || idx >= p.PendingDraw {
			return fmt.Errorf("draw index %d: %w", idx, ErrIllegalAction)
		}
	}
	drawn := g.drawTop(p, p.PendingDraw)
	for _, idx := range order {
		p.Hand = append(p.Hand, drawn[idx])
	}
	p.PendingDraw = 0
	g.enterMain(p)
	return nil
}

func (g *Game) applyPlayCard(p *Player, cardID string) error {
	i, c := p.FindInHand(cardID)
	if c == nil {
		return fmt.Errorf("card %s: %w", cardID, ErrIllegalAction)
	}
	p.Hand = removeAt(p.Hand, i)

	t := c.Type
	if t.Kind == KindBase {
		p.Bases = append(p.Bases, &Base{Card: c})
	} else {
		p.InPlay = append(p.InPlay, c)
	}
	p.Trade += t.Trade
	p.Combat += t.Combat
	p.Authority += t.Authority
	if t.OnPlay != "" && g.CanResolve(p, t.OnPlay) {
		p.Pending = append(p.Pending, PendingAction{Kind: t.OnPlay, Mandatory: t.Mandatory, Source: c.ID})
	}
	return nil
}

func (g *Game) applyBuyCard(p *Player, slot int) error {
	if slot < 0 || slot >= RowWidth || g.TradeRow[slot] == nil {
		return fmt.Errorf("slot %d: %w", slot, ErrIllegalAction)
	}
	c := g.TradeRow[slot]
	p.Trade -= c.Type.Cost
	p.Discard = append(p.Discard, c)
	g.refillSlot(slot)
	return nil
}

func (g *Game) applyBuyExplorer(p *Player) error {
	if g.Explorer == nil {
		return fmt.Errorf("no explorer pile: %w", ErrIllegalAction)
	}
	p.Trade -= g.Explorer.Cost
	p.Discard = append(p.Discard, g.newCard(g.Explorer))
	return nil
}

func (g *Game) applyAttackPlayer(p *Player, target, amount int) error {
	t, ok := g.Player(target)
	if !ok {
		return fmt.Errorf("target %d: %w", target, ErrIllegalAction)
	}
	p.Combat -= amount
	t.Authority -= amount
	if t.Authority <= 0 {
		g.Over = true
		g.Winner = p.Index
		g.Phase = PhaseOver
	}
	return nil
}

func (g *Game) applyAttackBase(p *Player, target int, baseID string, amount int) error {
	t, ok := g.Player(target)
	if !ok {
		return fmt.Errorf("target %d: %w", target, ErrIllegalAction)
	}
	i, b := t.FindBase(baseID)
	if b == nil {
		return fmt.Errorf("base %s: %w", baseID, ErrIllegalAction)
	}
	p.Combat -= amount
	b.Damage += amount
	if b.Damage >= b.Card.Type.Defense {
		t.Bases = append(t.Bases[:i:i], t.Bases[i+1:]...)
		t.Discard = append(t.Discard, b.Card)
	}
	return nil
}

func (g *Game) scrapFromHand(p *Player, cardID string) error {
	i, c := p.FindInHand(cardID)
	if c == nil {
		return fmt.Errorf("card %s: %w", cardID, ErrIllegalAction)
	}
	p.Hand = removeAt(p.Hand, i)
	return nil
}

func (g *Game) scrapFromDiscard(p *Player, cardID string) error {
	i, c := p.FindInDiscard(cardID)
	if c == nil {
		return fmt.Errorf("card %s: %w", cardID, ErrIllegalAction)
	}
	p.Discard = removeAt(p.Discard, i)
	return nil
}

func (g *Game) scrapTradeRowSlot(slot int) error {
	if slot < 0 || slot >= RowWidth || g.TradeRow[slot] == nil {
		return fmt.Errorf("slot %d: %w", slot, ErrIllegalAction)
	}
	g.refillSlot(slot)
	return nil
}

func (g *Game) applyEndTurn(p *Player) {
	p.Discard = append(p.Discard, p.InPlay...)
	p.Discard = append(p.Discard, p.Hand...)
	p.InPlay = nil
	p.Hand = nil
	p.Trade = 0
	p.Combat = 0
	for _, other := range g.Players {
		for _, b := range other.Bases {
			b.Damage = 0
		}
	}

	g.Turn++
	g.beginTurn((p.Index+1)%len(g.Players), HandSize)
}

func (g *Game) applyPendingResponse(p *Player, kind PendingKind, cardID string) error {
	if len(p.Pending) == 0 {
		return fmt.Errorf("nothing pending: %w", ErrIllegalAction)
	}

	var err error
	switch kind {
	case PendingDiscard:
		i, c := p.FindInHand(cardID)
		if c == nil {
			return fmt.Errorf("card %s: %w", cardID, ErrIllegalAction)
		}
		p.Hand = removeAt(p.Hand, i)
		p.Discard = append(p.Discard, c)
	case PendingScrapHand:
		err = g.scrapFromHand(p, cardID)
	case PendingScrapDiscard:
		err = g.scrapFromDiscard(p, cardID)
	case PendingScrapTradeRow:
		err = g.scrapTradeRowSlot(g.FindInTradeRow(cardID))
	default:
		return fmt.Errorf("response %q: %w", kind, ErrUnsupportedAction)
	}
	if err != nil {
		return err
	}
	return g.popPending(p)
}

func (g *Game) popPending(p *Player) error {
	if len(p.Pending) == 0 {
		return fmt.Errorf("nothing pending: %w", ErrIllegalAction)
	}
	p.Pending = p.Pending[1:]
	return nil
}
