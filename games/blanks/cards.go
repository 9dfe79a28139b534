/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package blanks

import (
	"fmt"
	"strconv"
	"strings"
)

type CardKind uint8

const (
	KindAnswer CardKind = iota + 1
	KindQuestion
	KindPlayerCard
)

// CardID identifies one card instance within a room. Answer and question
// cards carry an index into their corpus; player cards carry a player id.
type CardID struct {
	Kind     CardKind
	Index    int
	PlayerID string
}

func AnswerCard(i int) CardID     { return CardID{Kind: KindAnswer, Index: i} }
func QuestionCard(i int) CardID   { return CardID{Kind: KindQuestion, Index: i} }
func PlayerCard(id string) CardID { return CardID{Kind: KindPlayerCard, PlayerID: id} }

func (c CardID) IsZero() bool {
	return c.Kind == 0
}

// String returns the wire form: a-<n>, q-<n> or p-<playerId>.
func (c CardID) String() string {
	switch c.Kind {
	case KindAnswer:
		return "a-" + strconv.Itoa(c.Index)
	case KindQuestion:
		return "q-" + strconv.Itoa(c.Index)
	case KindPlayerCard:
		return "p-" + c.PlayerID
	default:
		return ""
	}
}

func (c CardID) MarshalText() ([]byte, error) {
	if c.IsZero() {
		return []byte{}, nil
	}
	return []byte(c.String()), nil
}

func (c *CardID) UnmarshalText(b []byte) error {
	id, err := ParseCardID(string(b))
	if err != nil {
		return err
	}
	*c = id
	return nil
}

// ParseCardID parses the wire form of a card id.
func ParseCardID(s string) (CardID, error) {
	prefix, rest, ok := strings.Cut(s, "-")
	if !ok || rest == "" {
		return CardID{}, fmt.Errorf("malformed card id %q", s)
	}

	switch prefix {
	case "a", "q":
		n, err := strconv.Atoi(rest)
		if err != nil || n < 0 || strconv.Itoa(n) != rest {
			return CardID{}, fmt.Errorf("malformed card index in %q", s)
		}
		if prefix == "a" {
			return AnswerCard(n), nil
		}
		return QuestionCard(n), nil
	case "p":
		return PlayerCard(rest), nil
	default:
		return CardID{}, fmt.Errorf("unknown card kind in %q", s)
	}
}
