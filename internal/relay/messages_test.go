package relay

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageWireFormat(t *testing.T) {
	tests := []struct {
		msg  Message
		want string
	}{
		{PlayerListMsg([]PlayerInfo{{ID: "h", Name: "Host", IsHost: true}}), `{"type":"playerList","players":[{"id":"h","name":"Host","isHost":true}]}`},
		{PlayerJoinMsg("p1", "alice"), `{"type":"playerJoin","playerId":"p1","playerName":"alice"}`},
		{PlayerLeaveMsg("p1"), `{"type":"playerLeave","playerId":"p1"}`},
		{GameStartMsg(42), `{"type":"gameStart","seed":42}`},
		{StateUpdateMsg("p1", []byte(`{"score":5}`)), `{"type":"stateUpdate","playerId":"p1","state":{"score":5}}`},
		{GarbageMsg(2), `{"type":"garbage","lines":2}`},
		{GarbageSendMsg("p2", 4), `{"type":"garbageSend","targetId":"p2","lines":4}`},
		{GameOverMsg("p1"), `{"type":"gameOver","playerId":"p1"}`},
		{RoomFullMsg(), `{"type":"roomFull"}`},
	}
	for _, tt := range tests {
		t.Run(string(tt.msg.Type), func(t *testing.T) {
			data, err := Encode(tt.msg)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))

			back, err := Decode(data)
			require.NoError(t, err)
			assert.Equal(t, tt.msg.Type, back.Type)
		})
	}
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		data string
		want error
	}{
		{`{`, ErrMalformedMessage},
		{`{}`, ErrMalformedMessage},
		{`{"type":"warp"}`, ErrUnknownMessage},
		{`{"type":"playerJoin"}`, ErrMalformedMessage},
		{`{"type":"stateUpdate","playerId":"p"}`, ErrMalformedMessage},
		{`{"type":"garbage","lines":0}`, ErrMalformedMessage},
		{`{"type":"garbageSend","lines":2}`, ErrMalformedMessage},
		{`{"type":"gameOver"}`, ErrMalformedMessage},
	}
	for _, tt := range tests {
		_, err := Decode([]byte(tt.data))
		assert.Truef(t, errors.Is(err, tt.want), "Decode(%s) = %v, want %v", tt.data, err, tt.want)
	}
}

func TestRoomCodes(t *testing.T) {
	for range 100 {
		code := GenerateRoomCode()
		norm, err := NormalizeRoomCode(code)
		require.NoError(t, err)
		assert.Equal(t, code, norm)
	}

	norm, err := NormalizeRoomCode(" abcd ")
	require.NoError(t, err)
	assert.Equal(t, "ABCD", norm)

	for _, bad := range []string{"", "ABC", "ABCDE", "ABC0", "ABCI", "AB-D"} {
		_, err := NormalizeRoomCode(bad)
		assert.ErrorIs(t, err, ErrInvalidRoomCode, bad)
	}
}

func TestDirectory(t *testing.T) {
	d := NewDirectory()
	d.Add(PlayerInfo{ID: "b", Name: "zed"})
	d.Add(PlayerInfo{ID: "h", Name: "host", IsHost: true})
	d.Add(PlayerInfo{ID: "a", Name: "amy"})

	assert.Equal(t, []PlayerInfo{
		{ID: "h", Name: "host", IsHost: true},
		{ID: "a", Name: "amy"},
		{ID: "b", Name: "zed"},
	}, d.List())

	p, ok := d.Remove("a")
	assert.True(t, ok)
	assert.Equal(t, "amy", p.Name)
	_, ok = d.Remove("a")
	assert.False(t, ok)

	d.Replace([]PlayerInfo{{ID: "x", Name: "x"}, {ID: "", Name: "bogus"}})
	assert.Equal(t, 1, d.Len())
	_, ok = d.Get("h")
	assert.False(t, ok)
}
