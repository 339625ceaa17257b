package protocol

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/deckwars-server/internal/engine"
	"github.com/DoyleJ11/deckwars-server/internal/errcode"
)

var lobby = Env{PlayerID: -1, SessionID: -1, Seat: -1}

func dispatch(t *testing.T, env Env, raw string) (Request, *Error) {
	t.Helper()
	m, perr := Parse([]byte(raw))
	require.Nil(t, perr, raw)
	return NewDispatcher().Dispatch(env, m)
}

func startedGame(t *testing.T) *engine.Game {
	t.Helper()
	rules := engine.NewStandard(11)
	g := rules.NewGame()
	require.NoError(t, rules.AddPlayer(g, "alice"))
	require.NoError(t, rules.AddPlayer(g, "bob"))
	require.NoError(t, rules.Start(g))
	return g
}

func TestDispatch_Lobby(t *testing.T) {
	req, perr := dispatch(t, lobby, `{"type":"create_session","name":" alice ","players":3,"allow_spectators":false}`)
	require.Nil(t, perr)
	assert.Equal(t, CreateSessionRequest{Name: "alice", Players: 3, AllowSpectators: false, AutoStart: true}, req)

	req, perr = dispatch(t, lobby, `{"type":"create_session","name":"bob"}`)
	require.Nil(t, perr)
	assert.Equal(t, engine.MinPlayers, req.(CreateSessionRequest).Players)

	req, perr = dispatch(t, lobby, `{"type":"join","name":"carol"}`)
	require.Nil(t, perr)
	assert.Equal(t, JoinRequest{Name: "carol"}, req)

	req, perr = dispatch(t, lobby, `{"type":"join","name":"carol","session_id":4}`)
	require.Nil(t, perr)
	assert.Equal(t, JoinRequest{Name: "carol", SessionID: 4}, req)

	req, perr = dispatch(t, lobby, `{"type":"spectate","session_id":2}`)
	require.Nil(t, perr)
	assert.Equal(t, SpectateRequest{SessionID: 2}, req)

	req, perr = dispatch(t, lobby, `{"type":"list_sessions"}`)
	require.Nil(t, perr)
	assert.Equal(t, ListSessionsRequest{}, req)

	req, perr = dispatch(t, Env{PlayerID: 1, SessionID: 1, Seat: -1}, `{"type":"start"}`)
	require.Nil(t, perr)
	assert.Equal(t, StartRequest{}, req)

	req, perr = dispatch(t, lobby, `{"type":"ping"}`)
	require.Nil(t, perr)
	assert.Equal(t, PingRequest{}, req)
}

func TestDispatch_Rejections(t *testing.T) {
	seated := Env{PlayerID: 1, SessionID: 1, Seat: 0}
	spectator := Env{PlayerID: 2, SessionID: 1, Seat: -1, Spectator: true}
	long := strings.Repeat("x", MaxNameLen+1)

	cases := []struct {
		name string
		env  Env
		raw  string
		code errcode.Code
	}{
		{"create twice", seated, `{"type":"create_session","name":"a"}`, errcode.InvalidAction},
		{"join while seated", seated, `{"type":"join","name":"a"}`, errcode.InvalidAction},
		{"too many players", lobby, `{"type":"create_session","name":"a","players":5}`, errcode.InvalidValue},
		{"fractional players", lobby, `{"type":"create_session","name":"a","players":2.5}`, errcode.InvalidValue},
		{"players as string", lobby, `{"type":"create_session","name":"a","players":"2"}`, errcode.InvalidFieldType},
		{"name missing", lobby, `{"type":"join"}`, errcode.MissingField},
		{"name blank", lobby, `{"type":"join","name":"   "}`, errcode.InvalidValue},
		{"name too long", lobby, `{"type":"join","name":"` + long + `"}`, errcode.InvalidValue},
		{"negative session", lobby, `{"type":"join","name":"a","session_id":-1}`, errcode.InvalidValue},
		{"spectate zero", lobby, `{"type":"spectate","session_id":0}`, errcode.InvalidValue},
		{"leave in lobby", lobby, `{"type":"leave"}`, errcode.NotInGame},
		{"chat in lobby", lobby, `{"type":"chat","text":"hi"}`, errcode.NotInGame},
		{"empty chat", seated, `{"type":"chat","text":"   "}`, errcode.InvalidValue},
		{"spectator ready", spectator, `{"type":"ready"}`, errcode.InvalidAction},
		{"start in lobby", lobby, `{"type":"start"}`, errcode.NotInGame},
		{"spectator start", spectator, `{"type":"start"}`, errcode.InvalidAction},
		{"ready not bool", seated, `{"type":"ready","ready":"yes"}`, errcode.InvalidFieldType},
		{"server kind", lobby, `{"type":"gamestate"}`, errcode.InvalidAction},
		{"no game yet", seated, `{"type":"end_turn"}`, errcode.GameNotStarted},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req, perr := dispatch(t, tc.env, tc.raw)
			assert.Nil(t, req)
			require.NotNil(t, perr)
			assert.Equal(t, tc.code, perr.Code, perr.Error())
		})
	}
}

func TestDispatch_ChatBounds(t *testing.T) {
	env := Env{PlayerID: 1, SessionID: 1, Seat: 0}
	req, perr := dispatch(t, env, `{"type":"chat","text":"`+strings.Repeat("a", MaxChatLen)+`"}`)
	require.Nil(t, perr)
	assert.Len(t, req.(ChatRequest).Text, MaxChatLen)

	_, perr = dispatch(t, env, `{"type":"chat","text":"`+strings.Repeat("a", MaxChatLen+1)+`"}`)
	require.NotNil(t, perr)
	assert.Equal(t, errcode.InvalidValue, perr.Code)
}

func TestDispatch_GameCommands(t *testing.T) {
	g := startedGame(t)
	active := Env{PlayerID: 1, SessionID: 1, Seat: 0, Game: g}
	waiting := Env{PlayerID: 2, SessionID: 1, Seat: 1, Game: g}
	watching := Env{PlayerID: 3, SessionID: 1, Seat: -1, Spectator: true, Game: g}

	req, perr := dispatch(t, active, `{"type":"draw_order","order":[2,0,1]}`)
	require.Nil(t, perr)
	cmd := req.(GameRequest).Command
	assert.Equal(t, 0, cmd.Player())
	assert.Equal(t, []int{2, 0, 1}, cmd.Action().Order)

	_, perr = dispatch(t, waiting, `{"type":"draw_order","order":[0,1,2]}`)
	require.NotNil(t, perr)
	assert.Equal(t, errcode.NotYourTurn, perr.Code)

	_, perr = dispatch(t, watching, `{"type":"end_turn"}`)
	require.NotNil(t, perr)
	assert.Equal(t, errcode.NotInGame, perr.Code)

	_, perr = dispatch(t, active, `{"type":"ready"}`)
	require.NotNil(t, perr)
	assert.Equal(t, errcode.GameAlreadyStarted, perr.Code)

	_, perr = dispatch(t, active, `{"type":"start"}`)
	require.NotNil(t, perr)
	assert.Equal(t, errcode.GameAlreadyStarted, perr.Code)

	_, perr = dispatch(t, active, `{"type":"action","action":"buy_card"}`)
	require.NotNil(t, perr)
	assert.Equal(t, errcode.MissingField, perr.Code)
}

func TestParseAction(t *testing.T) {
	cases := []struct {
		raw  string
		want engine.Action
	}{
		{`{"action":"play_card","card_id":"c1"}`, engine.Action{Type: engine.ActPlayCard, CardID: "c1"}},
		{`{"action":"buy_card","slot":4}`, engine.Action{Type: engine.ActBuyCard, Slot: 4}},
		{`{"action":"buy_explorer"}`, engine.Action{Type: engine.ActBuyExplorer}},
		{`{"action":"attack_player","target":1,"amount":3}`, engine.Action{Type: engine.ActAttackPlayer, Target: 1, Amount: 3}},
		{`{"action":"attack_base","target":1,"base_id":"c9","amount":5}`, engine.Action{Type: engine.ActAttackBase, Target: 1, BaseID: "c9", Amount: 5}},
		{`{"action":"scrap_trade_row","slot":0}`, engine.Action{Type: engine.ActScrapTradeRow}},
		{`{"action":"draw_order","order":[1,0]}`, engine.Action{Type: engine.ActDrawOrder, Order: []int{1, 0}}},
		{`{"action":"pending_response","kind":"discard","card_id":"c2"}`, engine.Action{Type: engine.ActPendingResponse, Response: engine.PendingDiscard, CardID: "c2"}},
		{`{"action":"pending_skip"}`, engine.Action{Type: engine.ActPendingSkip}},
		{`{"action":"end_turn"}`, engine.Action{Type: engine.ActEndTurn}},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			m, perr := Parse([]byte(`{"type":"action",` + tc.raw[1:]))
			require.Nil(t, perr)
			a, perr := ParseAction(m.Payload)
			require.Nil(t, perr)
			assert.Equal(t, tc.want, a)
		})
	}

	bad := []struct {
		fields string
		code   errcode.Code
	}{
		{``, errcode.MissingField},
		{`"action":7`, errcode.InvalidFieldType},
		{`"action":"fly"`, errcode.InvalidAction},
		{`"action":"attack_player","target":1`, errcode.MissingField},
		{`"action":"pending_response","kind":"burn","card_id":"c1"`, errcode.InvalidValue},
	}
	for _, tc := range bad {
		raw := `{"type":"action"`
		if tc.fields != "" {
			raw += "," + tc.fields
		}
		m, perr := Parse([]byte(raw + "}"))
		require.Nil(t, perr, tc.fields)
		_, perr = ParseAction(m.Payload)
		require.NotNil(t, perr, tc.fields)
		assert.Equal(t, tc.code, perr.Code, tc.fields)
	}
}

func TestNormalizeName(t *testing.T) {
	name, perr := NormalizeName("  zoë  ")
	require.Nil(t, perr)
	assert.Equal(t, "zoë", name)

	_, perr = NormalizeName("")
	assert.NotNil(t, perr)
}
