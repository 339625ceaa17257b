package engine

import (
	"math/rand/v2"
	"strconv"
)

func (g *Game) newCard(t *CardType) *Card {
	g.nextCard++
	return &Card{ID: "c" + strconv.Itoa(g.nextCard), Type: t}
}

func (g *Game) build(entries []CatalogEntry) []*Card {
	var cards []*Card
	for _, e := range entries {
		for range e.Copies {
			cards = append(cards, g.newCard(e.Type))
		}
	}
	return cards
}

func (g *Game) shuffle(cards []*Card) {
	swap := func(i, j int) { cards[i], cards[j] = cards[j], cards[i] }
	if g.rng == nil {
		rand.Shuffle(len(cards), swap)
		return
	}
	g.rng.Shuffle(len(cards), swap)
}

// drawTop removes up to n cards from the top of the player's deck,
// reshuffling the discard pile underneath when the deck runs short.
func (g *Game) drawTop(p *Player, n int) []*Card {
	if len(p.Deck) < n && len(p.Discard) > 0 {
		g.shuffle(p.Discard)
		p.Deck = append(p.Deck, p.Discard...)
		p.Discard = nil
	}
	n = min(n, len(p.Deck))
	drawn := append([]*Card(nil), p.Deck[:n]...)
	p.Deck = p.Deck[n:]
	return drawn
}

func (g *Game) refillSlot(slot int) {
	if len(g.TradeDeck) == 0 {
		g.TradeRow[slot] = nil
		return
	}
	g.TradeRow[slot] = g.TradeDeck[0]
	g.TradeDeck = g.TradeDeck[1:]
}

func removeAt(cards []*Card, i int) []*Card {
	return append(cards[:i:i], cards[i+1:]...)
}
