package sshd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/deckwars-server/internal/engine"
	"github.com/DoyleJ11/deckwars-server/internal/protocol"
)

func TestTranslate_ProducesParseableMessages(t *testing.T) {
	cases := []struct {
		input string
		kind  protocol.Kind
	}{
		{"create alice", protocol.KindCreateSession},
		{"create alice 3", protocol.KindCreateSession},
		{"join bob", protocol.KindJoin},
		{"JOIN bob 2", protocol.KindJoin},
		{"spectate 1", protocol.KindSpectate},
		{"ready", protocol.KindReady},
		{"unready", protocol.KindReady},
		{"start", protocol.KindStart},
		{"list", protocol.KindListSessions},
		{"leave", protocol.KindLeave},
		{"ping", protocol.KindPing},
		{"end", protocol.KindEndTurn},
		{"say good luck all", protocol.KindChat},
		{"order 2 0 1", protocol.KindDrawOrder},
		{"play c12", protocol.KindAction},
		{"buy 3", protocol.KindAction},
		{"explore", protocol.KindAction},
		{"attack 1 5", protocol.KindAction},
		{"hit 1 c40 4", protocol.KindAction},
		{"scrap hand c3", protocol.KindAction},
		{"scrap discard c3", protocol.KindAction},
		{"scrap row 2", protocol.KindAction},
		{"respond discard c7", protocol.KindAction},
		{"skip", protocol.KindAction},
	}
	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			line, err := Translate(tc.input)
			require.NoError(t, err)
			m, perr := protocol.Parse(line.JSON)
			require.Nil(t, perr)
			assert.Equal(t, tc.kind, m.Kind)
			if m.Kind == protocol.KindAction {
				_, perr := protocol.ParseAction(m.Payload)
				assert.Nil(t, perr)
			}
		})
	}
}

func TestTranslate_Fields(t *testing.T) {
	line, err := Translate("hit 2 c40 4")
	require.NoError(t, err)
	m, perr := protocol.Parse(line.JSON)
	require.Nil(t, perr)
	a, perr := protocol.ParseAction(m.Payload)
	require.Nil(t, perr)
	assert.Equal(t, engine.Action{Type: engine.ActAttackBase, Target: 2, BaseID: "c40", Amount: 4}, a)

	line, err = Translate("order 2 0 1")
	require.NoError(t, err)
	m, _ = protocol.Parse(line.JSON)
	order, perr := protocol.RequireIntArray(m.Payload, "order")
	require.Nil(t, perr)
	assert.Equal(t, []int{2, 0, 1}, order)

	line, err = Translate("unready")
	require.NoError(t, err)
	m, _ = protocol.Parse(line.JSON)
	ready, perr := protocol.OptionalBool(m.Payload, "ready", true)
	require.Nil(t, perr)
	assert.False(t, ready)

	line, err = Translate("create alice 2 manual")
	require.NoError(t, err)
	m, _ = protocol.Parse(line.JSON)
	auto, perr := protocol.OptionalBool(m.Payload, "auto_start", true)
	require.Nil(t, perr)
	assert.False(t, auto)

	line, err = Translate("say  gl   hf ")
	require.NoError(t, err)
	m, _ = protocol.Parse(line.JSON)
	assert.Equal(t, "gl hf", m.Payload["text"])
}

func TestTranslate_LocalAndRaw(t *testing.T) {
	line, err := Translate("   ")
	require.NoError(t, err)
	assert.Equal(t, Line{}, line)

	line, err = Translate("help")
	require.NoError(t, err)
	assert.True(t, line.Help)

	line, err = Translate("?")
	require.NoError(t, err)
	assert.True(t, line.Help)

	line, err = Translate("quit")
	require.NoError(t, err)
	assert.True(t, line.Quit)

	line, err = Translate(` {"type":"ping"} `)
	require.NoError(t, err)
	assert.Equal(t, `{"type":"ping"}`, string(line.JSON))
}

func TestTranslate_Errors(t *testing.T) {
	_, err := Translate("teleport home")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "teleport")

	for _, input := range []string{"buy", "buy x", "attack 1", "scrap deck c1", "order 1 x", "ready now", "create", "create a 2 later", "start now", "spectate"} {
		_, err := Translate(input)
		var uerr *UsageError
		assert.ErrorAs(t, err, &uerr, input)
	}
}

func TestHelpText_CoversEveryCommand(t *testing.T) {
	assert.Len(t, helpOrder, len(commands))
	text := HelpText()
	for name, cmd := range commands {
		assert.Contains(t, text, "  "+cmd.usage, name)
	}
}
