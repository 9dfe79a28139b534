/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package blanks

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRoomID(t *testing.T) {
	seen := make(map[string]struct{})

	for range 500 {
		id, err := NewRoomID()
		require.NoError(t, err)

		assert.Len(t, id, roomIDLength)
		assert.True(t, ValidRoomID(id), "generated id %q does not validate", id)
		assert.NotContains(t, id, "0")
		assert.NotContains(t, id, "1")
		assert.NotContains(t, id, "O")
		assert.NotContains(t, id, "I")

		seen[id] = struct{}{}
	}

	// 32^6 possible codes; 500 draws colliding more than once is not plausible.
	assert.Greater(t, len(seen), 498)
}

func TestValidRoomID(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"ABCDEF", true},
		{"A2B3C4", true},
		{"ZZZZZ9", true},
		{"abcdef", false},
		{"ABCDE", false},
		{"ABCDEFG", false},
		{"ABCDE1", false},
		{"ABCDE0", false},
		{"ABC-EF", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidRoomID(tt.in))
		})
	}
}

func TestNormalizeRoomID(t *testing.T) {
	assert.Equal(t, "ABCDEF", NormalizeRoomID("  abcdef\n"))
	assert.Equal(t, "", NormalizeRoomID("   "))
	assert.True(t, ValidRoomID(NormalizeRoomID(" a2b3c4 ")))
	assert.Equal(t, strings.ToUpper("xyz234"), NormalizeRoomID("xyz234"))
}
