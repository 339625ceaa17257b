package sshd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/DoyleJ11/deckwars-server/internal/engine"
	"github.com/DoyleJ11/deckwars-server/internal/protocol"
	"github.com/DoyleJ11/deckwars-server/internal/session"
)

// Render turns one outbound protocol message into terminal lines. Anything
// it does not recognise is shown as the raw JSON.
func Render(payload []byte) []string {
	m, perr := protocol.Parse(payload)
	if perr != nil {
		return []string{string(payload)}
	}

	switch m.Kind {
	case protocol.KindGamestate:
		var v engine.View
		if err := json.Unmarshal(payload, &v); err != nil {
			break
		}
		return renderView(v)

	case protocol.KindNarrative:
		var n struct {
			Text string `json:"text"`
			Name string `json:"name"`
			Chat bool   `json:"chat"`
		}
		if err := json.Unmarshal(payload, &n); err != nil {
			break
		}
		if n.Chat {
			return []string{fmt.Sprintf("<%s> %s", n.Name, n.Text)}
		}
		return []string{"* " + n.Text}

	case protocol.KindError:
		var e struct {
			Code    string `json:"code"`
			Message string `json:"message"`
			Details string `json:"details"`
		}
		if err := json.Unmarshal(payload, &e); err != nil {
			break
		}
		line := fmt.Sprintf("error [%s]: %s", e.Code, e.Message)
		if e.Details != "" {
			line += " (" + e.Details + ")"
		}
		return []string{line}

	case protocol.KindPlayerJoined:
		var p struct {
			PlayerID int    `json:"player_id"`
			Name     string `json:"name"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			break
		}
		return []string{fmt.Sprintf("%s joined (player %d)", p.Name, p.PlayerID)}

	case protocol.KindPlayerLeft:
		var p struct {
			PlayerID int `json:"player_id"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			break
		}
		return []string{fmt.Sprintf("player %d left", p.PlayerID)}

	case protocol.KindDrawOrderRequest:
		var r struct {
			Count int `json:"count"`
		}
		if err := json.Unmarshal(payload, &r); err != nil {
			break
		}
		return []string{fmt.Sprintf("choose draw order for %d cards: order %s", r.Count, sequence(r.Count))}

	case protocol.KindChoiceRequest:
		var r struct {
			Kind      string   `json:"kind"`
			Options   []string `json:"options"`
			Mandatory bool     `json:"mandatory"`
		}
		if err := json.Unmarshal(payload, &r); err != nil {
			break
		}
		line := fmt.Sprintf("choice %s: respond %s <card> from %s", r.Kind, r.Kind, strings.Join(r.Options, ", "))
		if !r.Mandatory {
			line += " (or skip)"
		}
		return []string{line}

	case protocol.KindGameOver:
		var g struct {
			WinnerID int    `json:"winner_id"`
			Reason   string `json:"reason"`
		}
		if err := json.Unmarshal(payload, &g); err != nil {
			break
		}
		return []string{fmt.Sprintf("game over: %s", g.Reason)}

	case protocol.KindSessionJoined:
		var s struct {
			SessionID int64 `json:"session_id"`
			PlayerID  int   `json:"player_id"`
			Seat      int   `json:"seat"`
			Spectator bool  `json:"spectator"`
		}
		if err := json.Unmarshal(payload, &s); err != nil {
			break
		}
		if s.Spectator {
			return []string{fmt.Sprintf("watching session %d", s.SessionID)}
		}
		return []string{fmt.Sprintf("joined session %d as player %d, seat %d", s.SessionID, s.PlayerID, s.Seat)}

	case protocol.KindSessionList:
		var l struct {
			Joinable    []session.Summary `json:"joinable"`
			Spectatable []session.Summary `json:"spectatable"`
		}
		if err := json.Unmarshal(payload, &l); err != nil {
			break
		}
		return renderListing(l.Joinable, l.Spectatable)

	case protocol.KindPong:
		return []string{"pong"}
	}
	return []string{string(payload)}
}

func renderView(v engine.View) []string {
	lines := []string{fmt.Sprintf("-- turn %d, %s phase, seat %d to act --", v.Turn, v.Phase, v.ActivePlayer)}
	for _, p := range v.Players {
		mark := " "
		if p.Index == v.ActivePlayer {
			mark = ">"
		}
		lines = append(lines, fmt.Sprintf("%s %d %-12s authority %d  trade %d  combat %d  hand %d  deck %d  discard %d",
			mark, p.Index, p.Name, p.Authority, p.Trade, p.Combat, p.HandCount, p.DeckCount, p.DiscardCount))
		for _, b := range p.Bases {
			lines = append(lines, fmt.Sprintf("    base %s %s %d/%d%s", b.ID, b.Name, b.Defense-b.Damage, b.Defense, flag(b.Outpost, " outpost")))
		}
		if len(p.InPlay) > 0 {
			lines = append(lines, "    in play: "+cards(p.InPlay))
		}
		if p.Index == v.Viewer {
			lines = append(lines, "    hand: "+cards(p.Hand))
			if p.Pending != nil {
				lines = append(lines, fmt.Sprintf("    pending: %s%s", p.Pending.Kind, flag(p.Pending.Mandatory, " (mandatory)")))
			}
		}
	}

	row := make([]string, 0, len(v.TradeRow))
	for i, c := range v.TradeRow {
		if c == nil {
			row = append(row, fmt.Sprintf("[%d] -", i))
			continue
		}
		row = append(row, fmt.Sprintf("[%d] %s (%d)", i, c.Name, c.Cost))
	}
	lines = append(lines, "row: "+strings.Join(row, "  "))
	if v.ExplorerCost > 0 {
		lines = append(lines, fmt.Sprintf("explorer: %d, trade deck: %d", v.ExplorerCost, v.TradeDeckCount))
	}
	if v.Over {
		lines = append(lines, fmt.Sprintf("game over, winner seat %d", v.Winner))
	}
	return lines
}

func renderListing(joinable, spectatable []session.Summary) []string {
	if len(joinable) == 0 && len(spectatable) == 0 {
		return []string{"no sessions"}
	}
	var lines []string
	for _, s := range joinable {
		lines = append(lines, fmt.Sprintf("  %d  %-20s %d/%d waiting, host %s", s.ID, s.Name, s.Players, s.RequiredPlayers, s.Host))
	}
	for _, s := range spectatable {
		lines = append(lines, fmt.Sprintf("  %d  %-20s %s, %d watching", s.ID, s.Name, s.State, s.Spectators))
	}
	return lines
}

func cards(cs []engine.CardView) string {
	if len(cs) == 0 {
		return "(empty)"
	}
	parts := make([]string, 0, len(cs))
	for _, c := range cs {
		parts = append(parts, c.ID+" "+c.Name)
	}
	return strings.Join(parts, ", ")
}

func sequence(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprint(i)
	}
	return strings.Join(parts, " ")
}

func flag(on bool, s string) string {
	if on {
		return s
	}
	return ""
}
