package engine

// CardView is the wire projection of a card.
type CardView struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Kind      CardKind `json:"kind"`
	Cost      int      `json:"cost"`
	Trade     int      `json:"trade,omitempty"`
	Combat    int      `json:"combat,omitempty"`
	Authority int      `json:"authority,omitempty"`
	Defense   int      `json:"defense,omitempty"`
	Outpost   bool     `json:"outpost,omitempty"`
}

type BaseView struct {
	CardView
	Damage   int  `json:"damage"`
	Frontier bool `json:"frontier"`
}

type PendingView struct {
	Kind      PendingKind `json:"kind"`
	Mandatory bool        `json:"mandatory"`
	Source    string      `json:"source,omitempty"`
}

// SeatView is one player as seen by a particular viewer. Hand is only
// populated for the viewer's own seat; everyone else gets HandCount.
type SeatView struct {
	Index        int          `json:"index"`
	Name         string       `json:"name"`
	Authority    int          `json:"authority"`
	Trade        int          `json:"trade"`
	Combat       int          `json:"combat"`
	HandCount    int          `json:"hand_count"`
	DeckCount    int          `json:"deck_count"`
	DiscardCount int          `json:"discard_count"`
	Hand         []CardView   `json:"hand,omitzero"`
	InPlay       []CardView   `json:"in_play"`
	Bases        []BaseView   `json:"bases"`
	PendingDraw  int          `json:"pending_draw,omitempty"`
	Pending      *PendingView `json:"pending,omitempty"`
}

type View struct {
	// Viewer is -1 for spectators.
	Viewer         int         `json:"viewer"`
	Phase          Phase       `json:"phase"`
	ActivePlayer   int         `json:"active_player"`
	Turn           int         `json:"turn"`
	Over           bool        `json:"game_over"`
	Winner         int         `json:"winner"`
	Players        []SeatView  `json:"players"`
	TradeRow       []*CardView `json:"trade_row"`
	TradeDeckCount int         `json:"trade_deck_count"`
	ExplorerCost   int         `json:"explorer_cost,omitempty"`
}

// ViewForPlayer is the hidden-information filter: the viewer's own hand in
// full, every other hand as a count.
func ViewForPlayer(g *Game, viewer int) View {
	v := View{
		Viewer:         viewer,
		Phase:          g.Phase,
		ActivePlayer:   g.ActivePlayer,
		Turn:           g.Turn,
		Over:           g.Over,
		Winner:         g.Winner,
		TradeRow:       make([]*CardView, RowWidth),
		TradeDeckCount: len(g.TradeDeck),
	}
	if g.Explorer != nil {
		v.ExplorerCost = g.Explorer.Cost
	}
	for i, c := range g.TradeRow {
		if c != nil {
			cv := cardView(c)
			v.TradeRow[i] = &cv
		}
	}
	for _, p := range g.Players {
		v.Players = append(v.Players, seatView(p, p.Index == viewer))
	}
	return v
}

func ViewForSpectator(g *Game) View {
	return ViewForPlayer(g, -1)
}

func seatView(p *Player, own bool) SeatView {
	s := SeatView{
		Index:        p.Index,
		Name:         p.Name,
		Authority:    p.Authority,
		Trade:        p.Trade,
		Combat:       p.Combat,
		HandCount:    len(p.Hand),
		DeckCount:    len(p.Deck),
		DiscardCount: len(p.Discard),
		InPlay:       cardViews(p.InPlay),
		Bases:        make([]BaseView, 0, len(p.Bases)),
		PendingDraw:  p.PendingDraw,
	}
	for _, b := range p.Bases {
		s.Bases = append(s.Bases, BaseView{CardView: cardView(b.Card), Damage: b.Damage, Frontier: b.Frontier()})
	}
	if own {
		s.Hand = cardViews(p.Hand)
		if len(p.Pending) > 0 {
			pa := p.Pending[0]
			s.Pending = &PendingView{Kind: pa.Kind, Mandatory: pa.Mandatory, Source: pa.Source}
		}
	}
	return s
}

func cardView(c *Card) CardView {
	t := c.Type
	return CardView{
		ID:        c.ID,
		Name:      t.Name,
		Kind:      t.Kind,
		Cost:      t.Cost,
		Trade:     t.Trade,
		Combat:    t.Combat,
		Authority: t.Authority,
		Defense:   t.Defense,
		Outpost:   t.Outpost,
	}
}

func cardViews(cards []*Card) []CardView {
	out := make([]CardView, 0, len(cards))
	for _, c := range cards {
		out = append(out, cardView(c))
	}
	return out
}
