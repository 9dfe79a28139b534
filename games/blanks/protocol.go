/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package blanks

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Client events.
const (
	EventCreateRoom     = "create_room"
	EventJoinRoom       = "join_room"
	EventUpdateSettings = "update_room_settings"
	EventStartGame      = "start_game"
	EventPlayAnswers    = "play_answers"
	EventPickWinner     = "pick_winner"
	EventLeaveRoom      = "leave_room"
)

// Server events.
const (
	EventAck              = "ack"
	EventRoomState        = "room_state"
	EventHandState        = "hand_state"
	EventRoundSubmissions = "round_submissions"
	EventError            = "error"
)

// Code is the machine-readable reason attached to a failed ack.
type Code string

const (
	CodeUnknown         Code = "UNKNOWN"
	CodeRoomIDInvalid   Code = "ROOM_ID_INVALID"
	CodeRoomNotFound    Code = "ROOM_NOT_FOUND"
	CodeNotHost         Code = "NOT_HOST"
	CodeNotPresi        Code = "NOT_PRESI"
	CodeNotInRoom       Code = "NOT_IN_ROOM"
	CodeInvalidSettings Code = "INVALID_SETTINGS"
	CodeInvalidPlay     Code = "INVALID_PLAY"
	CodeInvalidPick     Code = "INVALID_PICK"
)

const maxUsernameLength = 32

// Envelope is a frame received from a client. ID is echoed in the ack.
type Envelope struct {
	Type    string          `json:"type"`
	ID      int64           `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Message is a frame sent to a client.
type Message struct {
	Type    string `json:"type"`
	ID      int64  `json:"id,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// Ack answers exactly one client event.
type Ack struct {
	OK     bool   `json:"ok"`
	RoomID string `json:"roomId,omitempty"`
	Error  Code   `json:"error,omitempty"`
}

// Notice is the payload of an error event, sent outside any ack.
type Notice struct {
	Message string `json:"message"`
}

func ackOK() Ack            { return Ack{OK: true} }
func ackRoom(id string) Ack { return Ack{OK: true, RoomID: id} }
func ackFail(c Code) Ack    { return Ack{Error: c} }

type CreateRoomPayload struct {
	Username string `json:"username"`
	AvatarID *int   `json:"avatarId"`
}

type JoinRoomPayload struct {
	RoomID      string `json:"roomId"`
	PlayerID    string `json:"playerId"`
	PlayerToken string `json:"playerToken"`
	Username    string `json:"username"`
	AvatarID    *int   `json:"avatarId"`
}

// UpdateSettingsPayload keeps the limits raw so that a value of the wrong
// type is reported as invalid settings rather than a malformed event.
type UpdateSettingsPayload struct {
	RoomID      string          `json:"roomId"`
	RoundsToWin json.RawMessage `json:"roundsToWin"`
	PointsToWin json.RawMessage `json:"pointsToWin,omitempty"`
}

// Settings validates the limits in the payload. roundsToWin is required;
// a missing or null pointsToWin leaves the current value alone.
func (p UpdateSettingsPayload) Settings() (Settings, error) {
	rounds, ok, err := limitValue(p.RoundsToWin)
	if err != nil {
		return Settings{}, errorf(KindInvalidSettings, "roundsToWin: %v", err)
	}
	if !ok {
		return Settings{}, errorf(KindInvalidSettings, "roundsToWin is required")
	}

	settings := Settings{RoundsToWin: rounds}

	points, ok, err := limitValue(p.PointsToWin)
	if err != nil {
		return Settings{}, errorf(KindInvalidSettings, "pointsToWin: %v", err)
	}
	if ok {
		settings.PointsToWin = &points
	}

	return settings, nil
}

// limitValue decodes a whole-number limit. It reports false for an absent
// or null value. Out of range numbers are pinned just outside the limits
// so the store clamps them.
func limitValue(raw json.RawMessage) (int, bool, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false, nil
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false, err
	}

	f, isNumber := v.(float64)
	if !isNumber {
		return 0, false, fmt.Errorf("%s is not a number", raw)
	}
	if f != math.Trunc(f) {
		return 0, false, fmt.Errorf("%s is not a whole number", raw)
	}

	return int(max(-MaxLimit-1, min(MaxLimit+1, f))), true, nil
}

type RoomPayload struct {
	RoomID string `json:"roomId"`
}

type PlayAnswersPayload struct {
	RoomID  string   `json:"roomId"`
	CardIDs []string `json:"cardIds"`
}

type PickWinnerPayload struct {
	RoomID       string `json:"roomId"`
	SubmissionID string `json:"submissionId"`
}

// cleanUsername NFC-normalizes and trims a username, truncating it to
// maxUsernameLength runes. It returns "" for unusable names.
func cleanUsername(s string) string {
	s = strings.TrimSpace(norm.NFC.String(s))
	if !utf8.ValidString(s) {
		return ""
	}
	if utf8.RuneCountInString(s) > maxUsernameLength {
		s = strings.TrimSpace(string([]rune(s)[:maxUsernameLength]))
	}
	return s
}

const maxIdentityLength = 128

func validIdentity(s string) bool {
	return s != "" && len(s) <= maxIdentityLength && strings.TrimSpace(s) == s
}

// parseCards converts wire card ids, rejecting malformed ones.
func parseCards(ids []string) ([]CardID, bool) {
	cards := make([]CardID, 0, len(ids))
	for _, s := range ids {
		id, err := ParseCardID(s)
		if err != nil {
			return nil, false
		}
		cards = append(cards, id)
	}
	return cards, true
}
