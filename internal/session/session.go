// Package session holds lobbies and matches: who is seated, who is
// watching, and the one Game a session owns once it starts.
package session

import (
	"slices"
	"time"

	"github.com/DoyleJ11/deckwars-server/internal/conn"
	"github.com/DoyleJ11/deckwars-server/internal/engine"
)

type ID int64

const InvalidID ID = -1

type State string

const (
	StateWaiting  State = "waiting"
	StatePlaying  State = "playing"
	StateFinished State = "finished"
)

// Member identifies a party joining a session.
type Member struct {
	ConnID   conn.ID
	PlayerID int
	Name     string
}

type Slot struct {
	ConnID   conn.ID
	PlayerID int
	Name     string
	Ready    bool
	// GameIndex is the seat inside Game, -1 until the session starts.
	GameIndex int
}

type Options struct {
	// Name defaults to the host's name.
	Name            string
	RequiredPlayers int
	AllowSpectators bool
	AutoStart       bool
}

type Session struct {
	ID              ID
	State           State
	Name            string
	RequiredPlayers int
	Players         []Slot
	Spectators      []conn.ID
	// Game is non-nil iff State is Playing or Finished.
	Game *engine.Game
	// Host is an index into Players.
	Host            int
	AllowSpectators bool
	AutoStart       bool
	// Winner is the in-game index reported at End, -1 otherwise.
	Winner    int
	CreatedAt time.Time
}

func (s *Session) Full() bool { return len(s.Players) >= s.RequiredPlayers }

func (s *Session) slotOf(id conn.ID) int {
	return slices.IndexFunc(s.Players, func(sl Slot) bool { return sl.ConnID == id })
}

// Slot returns the player slot bound to a connection.
func (s *Session) Slot(id conn.ID) (Slot, bool) {
	i := s.slotOf(id)
	if i < 0 {
		return Slot{}, false
	}
	return s.Players[i], true
}

// SlotByIndex returns the slot seated at in-game index idx.
func (s *Session) SlotByIndex(idx int) (Slot, bool) {
	for _, sl := range s.Players {
		if sl.GameIndex == idx {
			return sl, true
		}
	}
	return Slot{}, false
}

func (s *Session) IsSpectator(id conn.ID) bool { return slices.Contains(s.Spectators, id) }

// Summary is the lobby-listing snapshot of a session.
type Summary struct {
	ID              ID     `json:"id"`
	Name            string `json:"name"`
	State           State  `json:"state"`
	Host            string `json:"host"`
	Players         int    `json:"players"`
	RequiredPlayers int    `json:"required_players"`
	Spectators      int    `json:"spectators"`
	AllowSpectators bool   `json:"allow_spectators"`
}

func (s *Session) Summary() Summary {
	sum := Summary{
		ID:              s.ID,
		Name:            s.Name,
		State:           s.State,
		Players:         len(s.Players),
		RequiredPlayers: s.RequiredPlayers,
		Spectators:      len(s.Spectators),
		AllowSpectators: s.AllowSpectators,
	}
	if s.Host >= 0 && s.Host < len(s.Players) {
		sum.Host = s.Players[s.Host].Name
	}
	return sum
}
