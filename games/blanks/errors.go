/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package blanks

import (
	"errors"
	"fmt"
)

// Kind is the closed set of failures the store and engines report.
type Kind int

const (
	KindUnknown Kind = iota
	KindRoomNotFound
	KindPlayerNotFound
	KindTokenMismatch
	KindWrongStatus
	KindNotEnoughPlayers
	KindInvalidSettings
	KindInvalidCardCount
	KindCardNotInHand
	KindNotAllowedToPlay
	KindAlreadySubmitted
	KindInvalidPick
	KindInsufficientCards
	KindNoQuestionsLeft
)

var kindNames = map[Kind]string{
	KindUnknown:           "unknown",
	KindRoomNotFound:      "room not found",
	KindPlayerNotFound:    "player not found",
	KindTokenMismatch:     "token mismatch",
	KindWrongStatus:       "wrong room status",
	KindNotEnoughPlayers:  "not enough players",
	KindInvalidSettings:   "invalid settings",
	KindInvalidCardCount:  "invalid card count",
	KindCardNotInHand:     "card not in hand",
	KindNotAllowedToPlay:  "not allowed to play",
	KindAlreadySubmitted:  "already submitted",
	KindInvalidPick:       "invalid pick",
	KindInsufficientCards: "insufficient cards",
	KindNoQuestionsLeft:   "no questions left",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is returned by every Store operation that rejects a request.
// Callers match on Kind, never on Msg.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Msg
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Sentinels for errors.Is.
var (
	ErrRoomNotFound      = &Error{Kind: KindRoomNotFound}
	ErrPlayerNotFound    = &Error{Kind: KindPlayerNotFound}
	ErrTokenMismatch     = &Error{Kind: KindTokenMismatch}
	ErrWrongStatus       = &Error{Kind: KindWrongStatus}
	ErrNotEnoughPlayers  = &Error{Kind: KindNotEnoughPlayers}
	ErrInvalidSettings   = &Error{Kind: KindInvalidSettings}
	ErrInvalidCardCount  = &Error{Kind: KindInvalidCardCount}
	ErrCardNotInHand     = &Error{Kind: KindCardNotInHand}
	ErrNotAllowedToPlay  = &Error{Kind: KindNotAllowedToPlay}
	ErrAlreadySubmitted  = &Error{Kind: KindAlreadySubmitted}
	ErrInvalidPick       = &Error{Kind: KindInvalidPick}
	ErrInsufficientCards = &Error{Kind: KindInsufficientCards}
	ErrNoQuestionsLeft   = &Error{Kind: KindNoQuestionsLeft}
)

// KindOf extracts the Kind of err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
