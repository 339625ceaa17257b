package engine

import (
	"errors"
	"math/rand/v2"
	"slices"
)

var ErrNotStarted = errors.New("game not started")
var ErrAlreadyStarted = errors.New("game already started")
var ErrGameOver = errors.New("game already over")
var ErrNotEnoughPlayers = errors.New("not enough players")
var ErrTooManyPlayers = errors.New("too many players")
var ErrUnsupportedAction = errors.New("unsupported action")
var ErrIllegalAction = errors.New("illegal action")

const (
	MinPlayers        = 2
	MaxPlayers        = 4
	RowWidth          = 5
	HandSize          = 5
	FirstHandSize     = 3
	StartingAuthority = 50
	ExplorerCost      = 2
)

type Phase string

const (
	PhaseSetup     Phase = "setup"
	PhaseDrawOrder Phase = "draw_order"
	PhaseMain      Phase = "main"
	PhaseOver      Phase = "over"
)

type CardKind string

const (
	KindShip CardKind = "ship"
	KindBase CardKind = "base"
)

// CardType is the static definition shared by every copy of a card.
type CardType struct {
	Name      string
	Kind      CardKind
	Cost      int
	Trade     int
	Combat    int
	Authority int
	Defense   int
	// Outpost bases deploy to the frontier and must be destroyed before
	// their owner, or any of the owner's interior bases, can be attacked.
	Outpost bool
	// OnPlay, when set, queues a pending choice for the player who plays it.
	OnPlay    PendingKind
	Mandatory bool
}

// Card is one physical copy. IDs are unique within a game.
type Card struct {
	ID   string
	Type *CardType
}

type Base struct {
	Card   *Card
	Damage int
}

func (b *Base) Frontier() bool { return b.Card.Type.Outpost }

type PendingKind string

const (
	PendingDiscard          PendingKind = "discard"
	PendingScrapHand        PendingKind = "scrap_hand"
	PendingScrapDiscard     PendingKind = "scrap_discard"
	PendingScrapHandDiscard PendingKind = "scrap_hand_discard"
	PendingScrapTradeRow    PendingKind = "scrap_trade_row"
)

// PendingAction is a follow-up choice the engine requires from one player
// before their turn can proceed.
type PendingAction struct {
	Kind      PendingKind
	Mandatory bool
	Source    string
}

type Player struct {
	Index     int
	Name      string
	Authority int
	Trade     int
	Combat    int
	Deck      []*Card
	Hand      []*Card
	Discard   []*Card
	InPlay    []*Card
	Bases     []*Base
	// PendingDraw is the number of cards due in the draw-order phase.
	PendingDraw int
	// Pending is a FIFO; the head is the outstanding choice.
	Pending []PendingAction
}

type Game struct {
	Phase        Phase
	Started      bool
	Over         bool
	Winner       int
	ActivePlayer int
	Turn         int
	Players      []*Player
	// TradeRow slots are nil when empty.
	TradeRow  [RowWidth]*Card
	TradeDeck []*Card
	// Explorer is nil when the ruleset has no explorer pile.
	Explorer *CardType
	// Version increments on every applied action.
	Version uint64

	nextCard int
	rng      *rand.Rand
}

type ActionType string

const (
	ActPlayCard        ActionType = "play_card"
	ActBuyCard         ActionType = "buy_card"
	ActBuyExplorer     ActionType = "buy_explorer"
	ActAttackPlayer    ActionType = "attack_player"
	ActAttackBase      ActionType = "attack_base"
	ActScrapHand       ActionType = "scrap_hand"
	ActScrapDiscard    ActionType = "scrap_discard"
	ActScrapTradeRow   ActionType = "scrap_trade_row"
	ActEndTurn         ActionType = "end_turn"
	ActDrawOrder       ActionType = "draw_order"
	ActPendingResponse ActionType = "pending_response"
	ActPendingSkip     ActionType = "pending_skip"
)

// Action is a tagged union; which fields are meaningful depends on Type.
type Action struct {
	Type     ActionType
	CardID   string
	Slot     int
	Target   int
	BaseID   string
	Amount   int
	Order    []int
	Response PendingKind
}

// Rules is the boundary to the rules engine. The engine owns all mutation
// of a Game; callers validate first and then forward.
type Rules interface {
	NewGame() *Game
	AddPlayer(g *Game, name string) error
	Start(g *Game) error
	Apply(g *Game, player int, a Action) error
}

func (g *Game) PlayerCount() int { return len(g.Players) }

func (g *Game) Player(i int) (*Player, bool) {
	if i < 0 || i >= len(g.Players) {
		return nil, false
	}
	return g.Players[i], true
}

func (g *Game) InProgress() bool { return g.Started && !g.Over }

// PendingFor returns the outstanding pending action addressed to player.
func (g *Game) PendingFor(player int) (*PendingAction, bool) {
	p, ok := g.Player(player)
	if !ok || len(p.Pending) == 0 {
		return nil, false
	}
	return &p.Pending[0], true
}

// HasPending reports whether any player still owes the engine a choice.
func (g *Game) HasPending() bool {
	for _, p := range g.Players {
		if len(p.Pending) > 0 {
			return true
		}
	}
	return false
}

func (p *Player) FindInHand(id string) (int, *Card) { return findCard(p.Hand, id) }

func (p *Player) FindInDiscard(id string) (int, *Card) { return findCard(p.Discard, id) }

func (p *Player) FindBase(id string) (int, *Base) {
	i := slices.IndexFunc(p.Bases, func(b *Base) bool { return b.Card.ID == id })
	if i < 0 {
		return -1, nil
	}
	return i, p.Bases[i]
}

func (p *Player) HasFrontierBase() bool {
	return slices.ContainsFunc(p.Bases, (*Base).Frontier)
}

// Drawable is how many cards the player could draw right now.
func (p *Player) Drawable() int { return len(p.Deck) + len(p.Discard) }

func (g *Game) FindInTradeRow(id string) int {
	for i, c := range g.TradeRow {
		if c != nil && c.ID == id {
			return i
		}
	}
	return -1
}

// CanResolve reports whether p has any card a response to kind could name.
func (g *Game) CanResolve(p *Player, kind PendingKind) bool {
	switch kind {
	case PendingDiscard, PendingScrapHand:
		return len(p.Hand) > 0
	case PendingScrapDiscard:
		return len(p.Discard) > 0
	case PendingScrapHandDiscard:
		return len(p.Hand) > 0 || len(p.Discard) > 0
	case PendingScrapTradeRow:
		return slices.ContainsFunc(g.TradeRow[:], func(c *Card) bool { return c != nil })
	}
	return false
}

func findCard(cards []*Card, id string) (int, *Card) {
	i := slices.IndexFunc(cards, func(c *Card) bool { return c.ID == id })
	if i < 0 {
		return -1, nil
	}
	return i, cards[i]
}
