package validation

import (
	"errors"
	"slices"

	"github.com/DoyleJ11/deckwars-server/internal/engine"
)

var ErrNotPrepared = errors.New("command was not prepared")
var ErrStaleCommand = errors.New("game changed since command was prepared")

// Command is an action that passed validation against a specific game
// version. Its fields are unexported so the only way to obtain one is
// Prepare, and the only way to mutate a game through it is Apply.
type Command struct {
	game    *engine.Game
	player  int
	action  engine.Action
	version uint64
}

// Prepare validates a against g and, on success, returns a Command bound to
// the game's current version.
func Prepare(g *engine.Game, player int, a engine.Action) (Command, Result) {
	r := ValidateAction(g, player, a)
	if !r.Valid {
		return Command{}, r
	}
	a.Order = slices.Clone(a.Order)
	return Command{game: g, player: player, action: a, version: g.Version}, r
}

func (c Command) Player() int { return c.player }

func (c Command) Action() engine.Action { return c.action }

// Apply hands the command to the rules engine. It refuses if the game moved
// on since Prepare, since the validation no longer holds.
func (c Command) Apply(rules engine.Rules) error {
	if c.game == nil {
		return ErrNotPrepared
	}
	if c.game.Version != c.version {
		return ErrStaleCommand
	}
	return rules.Apply(c.game, c.player, c.action)
}
