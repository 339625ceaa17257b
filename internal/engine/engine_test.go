package engine

import (
	"encoding/json"
	"errors"
	"testing"
)

func newStartedGame(t *testing.T, players int) (*Standard, *Game) {
	t.Helper()
	rules := NewStandard(42)
	g := rules.NewGame()
	for i := range players {
		if err := rules.AddPlayer(g, string(rune('a'+i))); err != nil {
			t.Fatalf("add player: %v", err)
		}
	}
	if err := rules.Start(g); err != nil {
		t.Fatalf("start: %v", err)
	}
	return rules, g
}

func identityOrder(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return order
}

func TestStart_RequiresPlayers(t *testing.T) {
	cases := []struct {
		name    string
		players int
		wantErr error
	}{
		{name: "one player", players: 1, wantErr: ErrNotEnoughPlayers},
		{name: "two players", players: 2, wantErr: nil},
		{name: "four players", players: 4, wantErr: nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rules := NewStandard(1)
			g := rules.NewGame()
			for range tc.players {
				if err := rules.AddPlayer(g, "p"); err != nil {
					t.Fatalf("add player: %v", err)
				}
			}
			err := rules.Start(g)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("want %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestAddPlayer_RejectsFifth(t *testing.T) {
	rules := NewStandard(1)
	g := rules.NewGame()
	for range MaxPlayers {
		if err := rules.AddPlayer(g, "p"); err != nil {
			t.Fatalf("unexpected err %v", err)
		}
	}
	if err := rules.AddPlayer(g, "late"); !errors.Is(err, ErrTooManyPlayers) {
		t.Fatalf("want ErrTooManyPlayers, got %v", err)
	}
}

func TestStart_DealsAndEntersDrawOrder(t *testing.T) {
	_, g := newStartedGame(t, 2)

	if g.Phase != PhaseDrawOrder {
		t.Fatalf("want phase %q, got %q", PhaseDrawOrder, g.Phase)
	}
	if g.ActivePlayer != 0 {
		t.Fatalf("want active player 0, got %d", g.ActivePlayer)
	}
	if got := g.Players[0].PendingDraw; got != FirstHandSize {
		t.Fatalf("want %d pending draws, got %d", FirstHandSize, got)
	}
	for slot, c := range g.TradeRow {
		if c == nil {
			t.Fatalf("trade row slot %d empty after start", slot)
		}
	}
	if err := NewStandard(1).AddPlayer(g, "late"); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("want ErrAlreadyStarted, got %v", err)
	}
}

func TestApply_DrawOrderFillsHandInChosenOrder(t *testing.T) {
	rules, g := newStartedGame(t, 2)
	p := g.Players[0]
	top := append([]*Card(nil), p.Deck[:3]...)

	err := rules.Apply(g, 0, Action{Type: ActDrawOrder, Order: []int{2, 0, 1}})
	if err != nil {
		t.Fatalf("unexpected err %v", err)
	}
	if g.Phase != PhaseMain {
		t.Fatalf("want main phase, got %q", g.Phase)
	}
	want := []*Card{top[2], top[0], top[1]}
	for i := range want {
		if p.Hand[i] != want[i] {
			t.Fatalf("hand[%d]: got %s, want %s", i, p.Hand[i].ID, want[i].ID)
		}
	}
	if g.Version != 1 {
		t.Fatalf("want version 1, got %d", g.Version)
	}
}

func TestApply_PlayBuyAndEndTurn(t *testing.T) {
	rules, g := newStartedGame(t, 2)
	if err := rules.Apply(g, 0, Action{Type: ActDrawOrder, Order: identityOrder(3)}); err != nil {
		t.Fatalf("draw: %v", err)
	}
	p := g.Players[0]
	for len(p.Hand) > 0 {
		if err := rules.Apply(g, 0, Action{Type: ActPlayCard, CardID: p.Hand[0].ID}); err != nil {
			t.Fatalf("play: %v", err)
		}
	}
	if p.Trade+p.Combat != 3 {
		t.Fatalf("three starter cards should yield 3 trade+combat, got %d", p.Trade+p.Combat)
	}

	before := len(g.TradeDeck)
	if p.Trade >= ExplorerCost {
		if err := rules.Apply(g, 0, Action{Type: ActBuyExplorer}); err != nil {
			t.Fatalf("explorer: %v", err)
		}
		if len(p.Discard) != 1 || p.Discard[0].Type != Explorer {
			t.Fatalf("explorer should land in discard")
		}
	}
	if len(g.TradeDeck) != before {
		t.Fatalf("buying an explorer must not touch the trade deck")
	}

	if err := rules.Apply(g, 0, Action{Type: ActEndTurn}); err != nil {
		t.Fatalf("end turn: %v", err)
	}
	if g.ActivePlayer != 1 || g.Turn != 2 {
		t.Fatalf("want player 1 on turn 2, got player %d turn %d", g.ActivePlayer, g.Turn)
	}
	if p.Trade != 0 || p.Combat != 0 || len(p.InPlay) != 0 {
		t.Fatalf("turn state not reset: %+v", p)
	}
	if g.Players[1].PendingDraw != HandSize {
		t.Fatalf("next player should owe %d draws, got %d", HandSize, g.Players[1].PendingDraw)
	}
}

func TestApply_AttackPlayerEndsGame(t *testing.T) {
	rules, g := newStartedGame(t, 2)
	g.Phase = PhaseMain
	g.Players[0].Combat = 60

	if err := rules.Apply(g, 0, Action{Type: ActAttackPlayer, Target: 1, Amount: StartingAuthority}); err != nil {
		t.Fatalf("unexpected err %v", err)
	}
	if !g.Over || g.Winner != 0 || g.Phase != PhaseOver {
		t.Fatalf("want game over with winner 0, got over=%v winner=%d phase=%q", g.Over, g.Winner, g.Phase)
	}
	if err := rules.Apply(g, 0, Action{Type: ActEndTurn}); !errors.Is(err, ErrGameOver) {
		t.Fatalf("want ErrGameOver, got %v", err)
	}
}

func TestApply_AttackBaseDestroysAtDefense(t *testing.T) {
	rules, g := newStartedGame(t, 2)
	g.Phase = PhaseMain
	base := &Base{Card: &Card{ID: "b1", Type: &CardType{Name: "Post", Kind: KindBase, Defense: 4, Outpost: true}}}
	g.Players[1].Bases = []*Base{base}
	g.Players[0].Combat = 5

	if err := rules.Apply(g, 0, Action{Type: ActAttackBase, Target: 1, BaseID: "b1", Amount: 3}); err != nil {
		t.Fatalf("unexpected err %v", err)
	}
	if len(g.Players[1].Bases) != 1 || base.Damage != 3 {
		t.Fatalf("base should survive with 3 damage")
	}
	if err := rules.Apply(g, 0, Action{Type: ActAttackBase, Target: 1, BaseID: "b1", Amount: 1}); err != nil {
		t.Fatalf("unexpected err %v", err)
	}
	if len(g.Players[1].Bases) != 0 {
		t.Fatalf("base should be destroyed")
	}
	if _, c := g.Players[1].FindInDiscard("b1"); c == nil {
		t.Fatalf("destroyed base goes to its owner's discard")
	}
}

func TestApply_PendingQueue(t *testing.T) {
	rules, g := newStartedGame(t, 2)
	g.Phase = PhaseMain
	p := g.Players[0]
	drone := &Card{ID: "d1", Type: &CardType{Name: "Drone", Kind: KindShip, OnPlay: PendingScrapHand}}
	victim := &Card{ID: "v1", Type: Scout}
	p.Hand = []*Card{drone, victim}

	if err := rules.Apply(g, 0, Action{Type: ActPlayCard, CardID: "d1"}); err != nil {
		t.Fatalf("play: %v", err)
	}
	if pa, ok := g.PendingFor(0); !ok || pa.Kind != PendingScrapHand {
		t.Fatalf("want pending scrap_hand, got %+v", pa)
	}
	if err := rules.Apply(g, 0, Action{Type: ActPendingResponse, Response: PendingScrapHand, CardID: "v1"}); err != nil {
		t.Fatalf("respond: %v", err)
	}
	if g.HasPending() || len(p.Hand) != 0 {
		t.Fatalf("pending should be resolved and the card scrapped")
	}
	if err := rules.Apply(g, 0, Action{Type: ActPendingSkip}); !errors.Is(err, ErrIllegalAction) {
		t.Fatalf("want ErrIllegalAction for skip with nothing pending, got %v", err)
	}
}

func TestApply_MandatoryDiscardWithEmptyHand(t *testing.T) {
	rules, g := newStartedGame(t, 2)
	g.Phase = PhaseMain
	p := g.Players[0]
	dredger := &Card{ID: "dx", Type: &CardType{Name: "Dredger", Kind: KindShip, Trade: 4, OnPlay: PendingDiscard, Mandatory: true}}
	p.Hand = []*Card{dredger}

	if err := rules.Apply(g, 0, Action{Type: ActPlayCard, CardID: "dx"}); err != nil {
		t.Fatalf("play: %v", err)
	}
	if len(p.Pending) != 0 {
		t.Fatalf("nothing to discard, nothing should be queued: %+v", p.Pending)
	}
	if p.Trade != 4 {
		t.Fatalf("trade still counts, got %d", p.Trade)
	}
	if g.HasPending() {
		t.Fatalf("turn must be free to end")
	}
}

func TestCanResolve(t *testing.T) {
	_, g := newStartedGame(t, 2)
	p := g.Players[0]
	p.Hand, p.Discard = nil, nil

	for _, k := range []PendingKind{PendingDiscard, PendingScrapHand, PendingScrapDiscard, PendingScrapHandDiscard} {
		if g.CanResolve(p, k) {
			t.Fatalf("%s resolvable with no cards", k)
		}
	}
	p.Discard = []*Card{{ID: "z", Type: Scout}}
	if !g.CanResolve(p, PendingScrapHandDiscard) || g.CanResolve(p, PendingDiscard) {
		t.Fatalf("discard pile only feeds discard-side responses")
	}
	if !g.CanResolve(p, PendingScrapTradeRow) {
		t.Fatalf("a fresh trade row has cards")
	}
	g.TradeRow = [RowWidth]*Card{}
	if g.CanResolve(p, PendingScrapTradeRow) {
		t.Fatalf("empty trade row has nothing to scrap")
	}
}

func TestApply_UnsupportedAction(t *testing.T) {
	rules, g := newStartedGame(t, 2)
	if err := rules.Apply(g, 0, Action{Type: "teleport"}); !errors.Is(err, ErrUnsupportedAction) {
		t.Fatalf("want ErrUnsupportedAction, got %v", err)
	}
	if g.Version != 0 {
		t.Fatalf("failed apply must not bump version")
	}
}

func TestViewForPlayer_OwnEmptyHandIsSent(t *testing.T) {
	_, g := newStartedGame(t, 2)
	g.Players[0].Hand = nil
	g.Players[1].Hand = []*Card{{ID: "secret", Type: Viper}}

	data, err := json.Marshal(ViewForPlayer(g, 0))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out struct {
		Players []map[string]json.RawMessage `json:"players"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := string(out.Players[0]["hand"]); got != "[]" {
		t.Fatalf("own empty hand should encode as [], got %q", got)
	}
	if _, ok := out.Players[1]["hand"]; ok {
		t.Fatalf("opponent hand key must be absent")
	}
}

func TestViewForPlayer_HidesOpponentHands(t *testing.T) {
	rules, g := newStartedGame(t, 2)
	if err := rules.Apply(g, 0, Action{Type: ActDrawOrder, Order: identityOrder(3)}); err != nil {
		t.Fatalf("draw: %v", err)
	}
	g.Players[1].Hand = []*Card{{ID: "secret", Type: Viper}}

	own := ViewForPlayer(g, 0)
	if len(own.Players[0].Hand) != 3 {
		t.Fatalf("viewer should see own hand, got %d cards", len(own.Players[0].Hand))
	}
	if own.Players[1].Hand != nil || own.Players[1].HandCount != 1 {
		t.Fatalf("opponent hand must be a count only: %+v", own.Players[1])
	}

	watcher := ViewForSpectator(g)
	for _, s := range watcher.Players {
		if s.Hand != nil {
			t.Fatalf("spectators see no hands, seat %d leaked", s.Index)
		}
	}
	if watcher.Viewer != -1 {
		t.Fatalf("spectator viewer should be -1")
	}
}
