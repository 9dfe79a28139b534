/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package blanks

import (
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanUsername(t *testing.T) {
	assert.Equal(t, "alice", cleanUsername("  alice \t"))
	assert.Equal(t, "", cleanUsername("   "))

	// "e" followed by a combining acute accent composes to one rune.
	assert.Equal(t, "caf\u00e9", cleanUsername("cafe\u0301"))

	long := cleanUsername(strings.Repeat("ü", 40))
	assert.Equal(t, maxUsernameLength, utf8.RuneCountInString(long))
}

func TestValidIdentity(t *testing.T) {
	assert.True(t, validIdentity("7f0c9d2e-1b2a-4c7e-9a55-0d3e2c1b4a69"))
	assert.False(t, validIdentity(""))
	assert.False(t, validIdentity(" padded "))
	assert.False(t, validIdentity(strings.Repeat("x", maxIdentityLength+1)))
}

func TestAckWireForm(t *testing.T) {
	b, err := json.Marshal(Message{Type: EventAck, ID: 4, Payload: ackFail(CodeNotPresi)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"ack","id":4,"payload":{"ok":false,"error":"NOT_PRESI"}}`, string(b))

	b, err = json.Marshal(ackRoom("ABCDEF"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true,"roomId":"ABCDEF"}`, string(b))
}

func TestEnvelopeDecoding(t *testing.T) {
	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(`{"type":"start_game","id":9,"payload":{"roomId":"ABCDEF"}}`), &env))

	assert.Equal(t, EventStartGame, env.Type)
	assert.Equal(t, int64(9), env.ID)

	var p RoomPayload
	require.True(t, decode(env.Payload, &p))
	assert.Equal(t, "ABCDEF", p.RoomID)
}

func TestUpdateSettingsPayload(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		rounds  int
		points  *int
		invalid bool
	}{
		{"rounds only", `{"roundsToWin":7}`, 7, nil, false},
		{"both", `{"roundsToWin":7,"pointsToWin":3}`, 7, ptr(3), false},
		{"null points", `{"roundsToWin":7,"pointsToWin":null}`, 7, nil, false},
		{"whole float", `{"roundsToWin":7.0}`, 7, nil, false},
		{"huge", `{"roundsToWin":1e30}`, MaxLimit + 1, nil, false},
		{"missing rounds", `{}`, 0, nil, true},
		{"null rounds", `{"roundsToWin":null}`, 0, nil, true},
		{"string rounds", `{"roundsToWin":"ten"}`, 0, nil, true},
		{"fractional rounds", `{"roundsToWin":2.5}`, 0, nil, true},
		{"boolean points", `{"roundsToWin":7,"pointsToWin":true}`, 0, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p UpdateSettingsPayload
			require.True(t, decode(json.RawMessage(tt.raw), &p))

			settings, err := p.Settings()
			if tt.invalid {
				assert.ErrorIs(t, err, ErrInvalidSettings)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.rounds, settings.RoundsToWin)
			assert.Equal(t, tt.points, settings.PointsToWin)
		})
	}
}

func ptr[T any](v T) *T { return &v }
