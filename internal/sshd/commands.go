package sshd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Line is a translated terminal command. Help and Quit are handled by the
// terminal itself; everything else is protocol JSON for the hub.
type Line struct {
	JSON []byte
	Help bool
	Quit bool
}

// UsageError explains how to call a command that was typed wrong.
type UsageError struct {
	Usage string
}

func (e *UsageError) Error() string { return "usage: " + e.Usage }

type command struct {
	usage string
	build func(args []string) (map[string]any, bool)
}

var commands = map[string]command{
	"create": {"create <name> [players] [manual]", func(a []string) (map[string]any, bool) {
		if len(a) < 1 || len(a) > 3 {
			return nil, false
		}
		m := map[string]any{"type": "create_session", "name": a[0]}
		if len(a) >= 2 {
			n, ok := atoi(a[1])
			if !ok {
				return nil, false
			}
			m["players"] = n
		}
		if len(a) == 3 {
			if a[2] != "manual" {
				return nil, false
			}
			m["auto_start"] = false
		}
		return m, true
	}},
	"join": {"join <name> [session]", func(a []string) (map[string]any, bool) {
		if len(a) < 1 || len(a) > 2 {
			return nil, false
		}
		m := map[string]any{"type": "join", "name": a[0]}
		if len(a) == 2 {
			n, ok := atoi(a[1])
			if !ok {
				return nil, false
			}
			m["session_id"] = n
		}
		return m, true
	}},
	"spectate": {"spectate <session>", func(a []string) (map[string]any, bool) {
		n, ok := oneInt(a)
		return map[string]any{"type": "spectate", "session_id": n}, ok
	}},
	"ready":   {"ready", fixed(map[string]any{"type": "ready", "ready": true})},
	"unready": {"unready", fixed(map[string]any{"type": "ready", "ready": false})},
	"start":   {"start", fixed(map[string]any{"type": "start"})},
	"list":    {"list", fixed(map[string]any{"type": "list_sessions"})},
	"leave":   {"leave", fixed(map[string]any{"type": "leave"})},
	"ping":    {"ping", fixed(map[string]any{"type": "ping"})},
	"end":     {"end", fixed(map[string]any{"type": "end_turn"})},
	"explore": {"explore", fixed(action("buy_explorer"))},
	"skip":    {"skip", fixed(action("pending_skip"))},
	"say": {"say <text>", func(a []string) (map[string]any, bool) {
		if len(a) == 0 {
			return nil, false
		}
		return map[string]any{"type": "chat", "text": strings.Join(a, " ")}, true
	}},
	"play": {"play <card>", func(a []string) (map[string]any, bool) {
		if len(a) != 1 {
			return nil, false
		}
		return with(action("play_card"), "card_id", a[0]), true
	}},
	"buy": {"buy <slot>", func(a []string) (map[string]any, bool) {
		n, ok := oneInt(a)
		return with(action("buy_card"), "slot", n), ok
	}},
	"attack": {"attack <player> <amount>", func(a []string) (map[string]any, bool) {
		if len(a) != 2 {
			return nil, false
		}
		target, ok1 := atoi(a[0])
		amount, ok2 := atoi(a[1])
		m := action("attack_player")
		m["target"], m["amount"] = target, amount
		return m, ok1 && ok2
	}},
	"hit": {"hit <player> <base> <amount>", func(a []string) (map[string]any, bool) {
		if len(a) != 3 {
			return nil, false
		}
		target, ok1 := atoi(a[0])
		amount, ok2 := atoi(a[2])
		m := action("attack_base")
		m["target"], m["base_id"], m["amount"] = target, a[1], amount
		return m, ok1 && ok2
	}},
	"scrap": {"scrap hand|discard <card> | scrap row <slot>", func(a []string) (map[string]any, bool) {
		if len(a) != 2 {
			return nil, false
		}
		switch a[0] {
		case "hand":
			return with(action("scrap_hand"), "card_id", a[1]), true
		case "discard":
			return with(action("scrap_discard"), "card_id", a[1]), true
		case "row":
			n, ok := atoi(a[1])
			return with(action("scrap_trade_row"), "slot", n), ok
		}
		return nil, false
	}},
	"order": {"order <i> [j ...]", func(a []string) (map[string]any, bool) {
		if len(a) == 0 {
			return nil, false
		}
		order := make([]int, 0, len(a))
		for _, s := range a {
			n, ok := atoi(s)
			if !ok {
				return nil, false
			}
			order = append(order, n)
		}
		return map[string]any{"type": "draw_order", "order": order}, true
	}},
	"respond": {"respond <kind> <card>", func(a []string) (map[string]any, bool) {
		if len(a) != 2 {
			return nil, false
		}
		m := action("pending_response")
		m["kind"], m["card_id"] = a[0], a[1]
		return m, true
	}},
}

func action(name string) map[string]any { return map[string]any{"type": "action", "action": name} }

func with(m map[string]any, k string, v any) map[string]any {
	m[k] = v
	return m
}

func fixed(m map[string]any) func([]string) (map[string]any, bool) {
	return func(a []string) (map[string]any, bool) { return m, len(a) == 0 }
}

func atoi(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	return n, err == nil
}

func oneInt(a []string) (int, bool) {
	if len(a) != 1 {
		return 0, false
	}
	return atoi(a[0])
}

// Translate turns one typed line into a protocol message. Lines starting
// with '{' are passed through untouched as raw JSON.
func Translate(input string) (Line, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Line{}, nil
	}
	if strings.HasPrefix(input, "{") {
		return Line{JSON: []byte(input)}, nil
	}

	fields := strings.Fields(input)
	name, args := strings.ToLower(fields[0]), fields[1:]
	switch name {
	case "help", "?":
		return Line{Help: true}, nil
	case "quit", "exit":
		return Line{Quit: true}, nil
	}

	cmd, ok := commands[name]
	if !ok {
		return Line{}, fmt.Errorf("unknown command %q, type help", name)
	}
	m, ok := cmd.build(args)
	if !ok {
		return Line{}, &UsageError{Usage: cmd.usage}
	}
	data, err := json.Marshal(m)
	if err != nil {
		return Line{}, err
	}
	return Line{JSON: data}, nil
}

// HelpText lists every command with its usage.
func HelpText() []string {
	lines := []string{
		"commands:",
	}
	for _, name := range helpOrder {
		lines = append(lines, "  "+commands[name].usage)
	}
	return append(lines, "  help", "  quit", "  {raw json}")
}

var helpOrder = []string{
	"list", "create", "join", "spectate", "ready", "unready", "start", "leave", "say",
	"order", "play", "buy", "explore", "attack", "hit", "scrap", "respond", "skip", "end", "ping",
}
