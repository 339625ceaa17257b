package engine

var (
	Scout = &CardType{Name: "Scout", Kind: KindShip, Trade: 1}
	Viper = &CardType{Name: "Viper", Kind: KindShip, Combat: 1}

	Explorer = &CardType{Name: "Explorer", Kind: KindShip, Cost: ExplorerCost, Trade: 2}
)

type CatalogEntry struct {
	Type   *CardType
	Copies int
}

// StarterDeck is dealt to every player at game start.
var StarterDeck = []CatalogEntry{
	{Type: Scout, Copies: 8},
	{Type: Viper, Copies: 2},
}

// TradeDeck is shuffled at game start and feeds the trade row.
var TradeDeck = []CatalogEntry{
	// Ships
	{Type: &CardType{Name: "Courier", Kind: KindShip, Cost: 2, Trade: 2, Authority: 4}, Copies: 3},
	{Type: &CardType{Name: "Skirmisher", Kind: KindShip, Cost: 1, Combat: 3}, Copies: 3},
	{Type: &CardType{Name: "Freight Hauler", Kind: KindShip, Cost: 2, Trade: 3}, Copies: 3},
	{Type: &CardType{Name: "Salvage Drone", Kind: KindShip, Cost: 1, Trade: 1, OnPlay: PendingScrapHandDiscard}, Copies: 2},
	{Type: &CardType{Name: "Raider", Kind: KindShip, Cost: 2, Combat: 4, OnPlay: PendingScrapTradeRow}, Copies: 2},
	{Type: &CardType{Name: "Survey Ship", Kind: KindShip, Cost: 3, Trade: 1, Combat: 2, OnPlay: PendingScrapHand}, Copies: 2},
	{Type: &CardType{Name: "Dredger", Kind: KindShip, Cost: 3, Trade: 4, OnPlay: PendingDiscard, Mandatory: true}, Copies: 2},
	{Type: &CardType{Name: "Reclaimer", Kind: KindShip, Cost: 2, Combat: 2, OnPlay: PendingScrapDiscard}, Copies: 2},
	{Type: &CardType{Name: "Dreadnought", Kind: KindShip, Cost: 7, Combat: 7}, Copies: 1},

	// Bases
	{Type: &CardType{Name: "Trading Post", Kind: KindBase, Cost: 3, Defense: 4, Outpost: true, Authority: 1, Trade: 1}, Copies: 2},
	{Type: &CardType{Name: "Barter World", Kind: KindBase, Cost: 4, Defense: 4, Trade: 2}, Copies: 2},
	{Type: &CardType{Name: "Space Station", Kind: KindBase, Cost: 4, Defense: 4, Outpost: true, Combat: 2}, Copies: 2},
	{Type: &CardType{Name: "Defense Center", Kind: KindBase, Cost: 5, Defense: 5, Outpost: true, Authority: 3}, Copies: 1},
	{Type: &CardType{Name: "Spinning Wheel", Kind: KindBase, Cost: 3, Defense: 5, Combat: 1}, Copies: 2},
}
