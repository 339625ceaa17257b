package session

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/DoyleJ11/deckwars-server/internal/conn"
	"github.com/DoyleJ11/deckwars-server/internal/engine"
)

var ErrFull = errors.New("session registry full")
var ErrNotFound = errors.New("session not found")
var ErrNotWaiting = errors.New("session is not waiting for players")
var ErrNotPlaying = errors.New("session is not playing")
var ErrSessionFull = errors.New("session has no free seat")
var ErrNotMember = errors.New("connection is not in this session")
var ErrAlreadyMember = errors.New("connection already in a session")
var ErrSpectatorsDisabled = errors.New("session does not allow spectators")
var ErrSpectatorsFull = errors.New("spectator list full")
var ErrFinished = errors.New("session already finished")
var ErrInvalidPlayerCount = errors.New("invalid required player count")
var ErrStartFailed = errors.New("game failed to start")

// Registry is a capacity-bounded pool of sessions. It is not safe for
// concurrent use; the hub goroutine owns it.
type Registry struct {
	rules         engine.Rules
	slots         []*Session
	free          []int
	index         map[ID]int
	byConn        map[conn.ID]ID
	nextID        ID
	maxSpectators int
	now           func() time.Time
}

func NewRegistry(capacity, maxSpectators int, rules engine.Rules) *Registry {
	r := &Registry{
		rules:         rules,
		slots:         make([]*Session, capacity),
		free:          make([]int, 0, capacity),
		index:         make(map[ID]int, capacity),
		byConn:        make(map[conn.ID]ID),
		nextID:        1,
		maxSpectators: maxSpectators,
		now:           time.Now,
	}
	for i := capacity - 1; i >= 0; i-- {
		r.free = append(r.free, i)
	}
	return r
}

func (r *Registry) Capacity() int { return len(r.slots) }

func (r *Registry) Count() int { return len(r.index) }

// Create seats the host in slot 0, not ready.
func (r *Registry) Create(host Member, opts Options) (ID, error) {
	if opts.RequiredPlayers < engine.MinPlayers || opts.RequiredPlayers > engine.MaxPlayers {
		return InvalidID, ErrInvalidPlayerCount
	}
	if _, ok := r.byConn[host.ConnID]; ok {
		return InvalidID, ErrAlreadyMember
	}
	if len(r.free) == 0 {
		return InvalidID, ErrFull
	}
	slot := r.free[len(r.free)-1]
	r.free = r.free[:len(r.free)-1]

	name := opts.Name
	if name == "" {
		name = host.Name + "'s game"
	}
	id := r.nextID
	r.nextID++
	r.slots[slot] = &Session{
		ID:              id,
		State:           StateWaiting,
		Name:            name,
		RequiredPlayers: opts.RequiredPlayers,
		Players:         []Slot{{ConnID: host.ConnID, PlayerID: host.PlayerID, Name: host.Name, GameIndex: -1}},
		AllowSpectators: opts.AllowSpectators,
		AutoStart:       opts.AutoStart,
		Winner:          -1,
		CreatedAt:       r.now(),
	}
	r.index[id] = slot
	r.byConn[host.ConnID] = id
	return id, nil
}

func (r *Registry) Get(id ID) (*Session, bool) {
	slot, ok := r.index[id]
	if !ok {
		return nil, false
	}
	return r.slots[slot], true
}

// FindByConn finds the session a connection plays in or watches.
func (r *Registry) FindByConn(c conn.ID) (*Session, bool) {
	id, ok := r.byConn[c]
	if !ok {
		return nil, false
	}
	return r.Get(id)
}

func (r *Registry) Join(id ID, m Member) error {
	s, ok := r.Get(id)
	if !ok {
		return ErrNotFound
	}
	if _, ok := r.byConn[m.ConnID]; ok {
		return ErrAlreadyMember
	}
	if s.State != StateWaiting {
		return ErrNotWaiting
	}
	if s.Full() {
		return ErrSessionFull
	}
	s.Players = append(s.Players, Slot{ConnID: m.ConnID, PlayerID: m.PlayerID, Name: m.Name, GameIndex: -1})
	r.byConn[m.ConnID] = id
	return nil
}

// Leave removes a player or spectator. The session is destroyed when the
// host leaves while it is still Waiting, or when nobody is left.
func (r *Registry) Leave(id ID, c conn.ID) (destroyed bool, err error) {
	s, ok := r.Get(id)
	if !ok {
		return false, ErrNotFound
	}

	if i := slices.Index(s.Spectators, c); i >= 0 {
		s.Spectators = slices.Delete(s.Spectators, i, i+1)
		delete(r.byConn, c)
	} else {
		i := s.slotOf(c)
		if i < 0 {
			return false, ErrNotMember
		}
		wasHost := i == s.Host
		s.Players = slices.Delete(s.Players, i, i+1)
		delete(r.byConn, c)

		if wasHost && s.State == StateWaiting {
			r.destroy(id)
			return true, nil
		}
		switch {
		case wasHost:
			s.Host = 0
		case i < s.Host:
			s.Host--
		}
	}

	if len(s.Players) == 0 && len(s.Spectators) == 0 {
		r.destroy(id)
		return true, nil
	}
	return false, nil
}

// SetReady is only legal while Waiting. With AutoStart, the session starts
// as soon as CanStart holds; a start failure is reported wrapped in
// ErrStartFailed with the ready flag still recorded.
func (r *Registry) SetReady(id ID, c conn.ID, ready bool) (started bool, err error) {
	s, ok := r.Get(id)
	if !ok {
		return false, ErrNotFound
	}
	if s.State != StateWaiting {
		return false, ErrNotWaiting
	}
	i := s.slotOf(c)
	if i < 0 {
		return false, ErrNotMember
	}
	s.Players[i].Ready = ready

	if !s.AutoStart || !r.CanStart(id) {
		return false, nil
	}
	if err := r.Start(id); err != nil {
		return false, err
	}
	return true, nil
}

// CanStart reports whether every required seat is filled and ready.
func (r *Registry) CanStart(id ID) bool {
	s, ok := r.Get(id)
	if !ok || s.State != StateWaiting || len(s.Players) != s.RequiredPlayers {
		return false
	}
	for _, sl := range s.Players {
		if !sl.Ready {
			return false
		}
	}
	return true
}

// Start builds the session's Game, seats players in slot order and starts
// it. On engine failure the partial game is dropped and the session stays
// Waiting.
func (r *Registry) Start(id ID) error {
	s, ok := r.Get(id)
	if !ok {
		return ErrNotFound
	}
	if s.State != StateWaiting {
		return ErrNotWaiting
	}

	g := r.rules.NewGame()
	for _, sl := range s.Players {
		if err := r.rules.AddPlayer(g, sl.Name); err != nil {
			return fmt.Errorf("%w: add %s: %w", ErrStartFailed, sl.Name, err)
		}
	}
	if err := r.rules.Start(g); err != nil {
		return fmt.Errorf("%w: %w", ErrStartFailed, err)
	}

	for i := range s.Players {
		s.Players[i].GameIndex = i
	}
	s.Game = g
	s.State = StatePlaying
	return nil
}

// End marks the session Finished. The Game is kept for final reads.
func (r *Registry) End(id ID, winner int) error {
	s, ok := r.Get(id)
	if !ok {
		return ErrNotFound
	}
	if s.State != StatePlaying {
		return ErrNotPlaying
	}
	s.State = StateFinished
	s.Winner = winner
	return nil
}

func (r *Registry) AddSpectator(id ID, c conn.ID) error {
	s, ok := r.Get(id)
	if !ok {
		return ErrNotFound
	}
	if _, ok := r.byConn[c]; ok {
		return ErrAlreadyMember
	}
	if !s.AllowSpectators {
		return ErrSpectatorsDisabled
	}
	if s.State == StateFinished {
		return ErrFinished
	}
	if len(s.Spectators) >= r.maxSpectators {
		return ErrSpectatorsFull
	}
	s.Spectators = append(s.Spectators, c)
	r.byConn[c] = id
	return nil
}

func (r *Registry) RemoveSpectator(id ID, c conn.ID) error {
	s, ok := r.Get(id)
	if !ok {
		return ErrNotFound
	}
	i := slices.Index(s.Spectators, c)
	if i < 0 {
		return ErrNotMember
	}
	s.Spectators = slices.Delete(s.Spectators, i, i+1)
	delete(r.byConn, c)
	return nil
}

// Joinable lists Waiting sessions with a free seat, oldest first.
func (r *Registry) Joinable() []Summary {
	return r.collect(func(s *Session) bool { return s.State == StateWaiting && !s.Full() })
}

// Spectatable lists sessions that admit spectators and are not Finished.
func (r *Registry) Spectatable() []Summary {
	return r.collect(func(s *Session) bool { return s.AllowSpectators && s.State != StateFinished })
}

func (r *Registry) collect(keep func(*Session) bool) []Summary {
	out := make([]Summary, 0)
	for _, s := range r.slots {
		if s != nil && keep(s) {
			out = append(out, s.Summary())
		}
	}
	slices.SortFunc(out, func(a, b Summary) int { return int(a.ID - b.ID) })
	return out
}

// All returns the live sessions in id order.
func (r *Registry) All() []*Session {
	out := make([]*Session, 0, len(r.index))
	for _, s := range r.slots {
		if s != nil {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b *Session) int { return int(a.ID - b.ID) })
	return out
}

// Destroy removes the session and drops its Game.
func (r *Registry) Destroy(id ID) error {
	if !r.destroy(id) {
		return ErrNotFound
	}
	return nil
}

// Unlink removes the session but hands its Game to the caller instead of
// dropping it.
func (r *Registry) Unlink(id ID) (*engine.Game, error) {
	s, ok := r.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	g := s.Game
	s.Game = nil
	r.destroy(id)
	return g, nil
}

func (r *Registry) destroy(id ID) bool {
	slot, ok := r.index[id]
	if !ok {
		return false
	}
	s := r.slots[slot]
	for _, sl := range s.Players {
		delete(r.byConn, sl.ConnID)
	}
	for _, c := range s.Spectators {
		delete(r.byConn, c)
	}
	s.Game = nil
	delete(r.index, id)
	r.slots[slot] = nil
	r.free = append(r.free, slot)
	return true
}
