/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package blanks

import (
	"math/rand"
	"regexp"
	"strings"
)

const (
	// Blank is what every card token in a question is rendered as.
	Blank = "_________"

	// Used when there are neither player names nor characters to pick from.
	placeholderCharacter = "Someone"

	maxRequiredAnswers = 3
)

var (
	characterToken = regexp.MustCompile(`(?i)\{\{\s*CHARACTER\s*\}\}`)
	cardToken      = regexp.MustCompile(`(?i)\{\{\s*CARD\s*\}\}`)
)

// Renderer resolves template tokens in card text.
type Renderer struct {
	decks *Decks
	rng   *rand.Rand
}

func NewRenderer(decks *Decks, rng *rand.Rand) *Renderer {
	return &Renderer{decks: decks, rng: rng}
}

// RequiredAnswers returns how many answer cards a question takes: the
// number of card tokens, clamped to [1,3].
func RequiredAnswers(base string) int {
	n := len(cardToken.FindAllStringIndex(base, -1))
	switch {
	case n <= 1:
		return 1
	case n >= maxRequiredAnswers:
		return maxRequiredAnswers
	default:
		return n
	}
}

// Render replaces every character token in base with one chosen name.
// names are the usernames of the players currently in the room.
func (r *Renderer) Render(base string, names []string) string {
	if !characterToken.MatchString(base) {
		return base
	}

	chosen := r.chooseCharacter(names)

	return characterToken.ReplaceAllLiteralString(base, chosen)
}

// RenderQuestion renders a question card and reports how many answers it
// requires. The count is taken from the base text before blanks are drawn.
func (r *Renderer) RenderQuestion(base string, names []string) (string, int) {
	required := RequiredAnswers(base)

	text := cardToken.ReplaceAllLiteralString(r.Render(base, names), Blank)

	return text, required
}

func (r *Renderer) chooseCharacter(names []string) string {
	usable := make([]string, 0, len(names))
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			usable = append(usable, name)
		}
	}

	characters := 0
	if r.decks != nil {
		characters = r.decks.Characters()
	}

	switch {
	case len(usable) > 0 && (characters == 0 || r.rng.Float64() < 0.5):
		return usable[r.rng.Intn(len(usable))]
	case characters > 0:
		return r.decks.Character(r.rng.Intn(characters))
	default:
		return placeholderCharacter
	}
}
