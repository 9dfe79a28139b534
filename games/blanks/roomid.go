/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package blanks

import (
	"crypto/rand"
	"regexp"
	"strings"
)

const (
	roomIDLength = 6

	// No 0/O or 1/I, so codes can be read aloud and typed on a phone.
	roomIDChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

var roomIDPattern = regexp.MustCompile(`^[A-Z2-9]{6}$`)

// NewRoomID returns a random 6-character room code.
func NewRoomID() (string, error) {
	buf := make([]byte, roomIDLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	out := make([]byte, roomIDLength)
	for i := range out {
		// 256 is a multiple of len(roomIDChars), so there is no modulo bias.
		out[i] = roomIDChars[int(buf[i])%len(roomIDChars)]
	}

	return string(out), nil
}

// NormalizeRoomID trims and uppercases a user-supplied room code.
func NormalizeRoomID(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// ValidRoomID reports whether s is a well-formed room code.
func ValidRoomID(s string) bool {
	return roomIDPattern.MatchString(s)
}
