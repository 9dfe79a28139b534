/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package blanks

import (
	"math/rand"
	"slices"
)

// HandSize is the number of answer cards each player holds.
const HandSize = 10

// Engine implements the deck, hand and round rules on a Room. It holds no
// room state of its own; every method mutates only the room it is given,
// and validates before it mutates.
type Engine struct {
	decks    *Decks
	renderer *Renderer
	rng      *rand.Rand
}

func NewEngine(decks *Decks, rng *rand.Rand) *Engine {
	return &Engine{
		decks:    decks,
		renderer: NewRenderer(decks, rng),
		rng:      rng,
	}
}

// shuffle is an in-place Fisher-Yates shuffle.
func shuffle[T any](rng *rand.Rand, s []T) {
	for i := len(s) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}

// answerSpace is every answer card in play for the room's current
// players: the corpus plus one card per player.
func (e *Engine) answerSpace(r *Room) []CardID {
	ids := make([]CardID, 0, e.decks.Answers()+len(r.order))
	for i := range e.decks.Answers() {
		ids = append(ids, AnswerCard(i))
	}
	for _, id := range r.order {
		ids = append(ids, PlayerCard(id))
	}
	return ids
}

func (e *Engine) questionSpace() []CardID {
	ids := make([]CardID, 0, e.decks.Questions())
	for i := range e.decks.Questions() {
		ids = append(ids, QuestionCard(i))
	}
	return ids
}

// deal shuffles both decks and gives every player HandSize answers.
func (e *Engine) deal(r *Room) error {
	all := e.answerSpace(r)
	needed := len(r.order) * HandSize
	if len(all) < needed {
		return errorf(KindInsufficientCards, "need %d answers to deal, have %d", needed, len(all))
	}

	shuffle(e.rng, all)

	questions := e.questionSpace()
	shuffle(e.rng, questions)

	// Player cards show the name the player had when the game started.
	for _, id := range r.order {
		r.answerText[PlayerCard(id)] = r.players[id].Username
	}

	hands := make(map[string][]CardID, len(r.order))
	for _, id := range r.order {
		hands[id] = slices.Clone(all[:HandSize])
		all = all[HandSize:]
		for _, card := range hands[id] {
			e.ensureAnswerText(r, card)
		}
	}

	r.hands = hands
	r.answersDraw = all
	r.answersDiscard = nil
	r.questionsDraw = questions
	r.questionsDiscard = nil

	return nil
}

// spend moves cards from a player's hand to the discard pile and draws
// the same number of replacements straight away.
func (e *Engine) spend(r *Room, playerID string, cards []CardID) error {
	if len(cards) < 1 || len(cards) > maxRequiredAnswers {
		return errorf(KindInvalidCardCount, "must play between 1 and %d cards, got %d", maxRequiredAnswers, len(cards))
	}

	hand := r.hands[playerID]

	held := make(map[CardID]struct{}, len(hand))
	for _, id := range hand {
		held[id] = struct{}{}
	}

	spent := make(map[CardID]struct{}, len(cards))
	for _, id := range cards {
		if _, ok := held[id]; !ok {
			return errorf(KindCardNotInHand, "card %s is not in the hand of %s", id, playerID)
		}
		if _, dup := spent[id]; dup {
			return errorf(KindInvalidCardCount, "card %s played twice", id)
		}
		spent[id] = struct{}{}
	}

	if len(r.answersDraw) < len(cards) {
		return errorf(KindInsufficientCards, "need %d answers to refill, have %d", len(cards), len(r.answersDraw))
	}

	kept := make([]CardID, 0, len(hand))
	for _, id := range hand {
		if _, ok := spent[id]; !ok {
			kept = append(kept, id)
		}
	}

	r.answersDiscard = append(r.answersDiscard, cards...)

	drawn := r.answersDraw[:len(cards)]
	r.answersDraw = slices.Clone(r.answersDraw[len(cards):])
	for _, id := range drawn {
		e.ensureAnswerText(r, id)
	}

	r.hands[playerID] = append(kept, drawn...)

	return nil
}

// discardHand returns a departing player's cards to the discard pile.
func (e *Engine) discardHand(r *Room, playerID string) {
	if hand, ok := r.hands[playerID]; ok {
		r.answersDiscard = append(r.answersDiscard, hand...)
		delete(r.hands, playerID)
	}
}

// ensureAnswerText returns the rendered text of an answer or player card,
// rendering and caching it on first use.
func (e *Engine) ensureAnswerText(r *Room, id CardID) string {
	if text, ok := r.answerText[id]; ok {
		return text
	}

	var text string
	switch id.Kind {
	case KindAnswer:
		text = e.renderer.Render(e.decks.Answer(id.Index), r.usernames())
	case KindPlayerCard:
		if p := r.players[id.PlayerID]; p != nil {
			text = p.Username
		}
	}
	if text == "" {
		text = id.String()
	}

	r.answerText[id] = text

	return text
}

// ensureQuestionText returns the rendered text of a question card and the
// number of answers it requires.
func (e *Engine) ensureQuestionText(r *Room, id CardID) (string, int) {
	base := e.decks.Question(id.Index)
	required := RequiredAnswers(base)

	if text, ok := r.questionText[id]; ok {
		return text, required
	}

	text, _ := e.renderer.RenderQuestion(base, r.usernames())
	r.questionText[id] = text

	return text, required
}

// dealLate gives a player who joins a running game as full a hand as the
// draw pile allows.
func (e *Engine) dealLate(r *Room, playerID string) {
	if _, ok := r.hands[playerID]; ok {
		return
	}

	n := min(HandSize, len(r.answersDraw))
	drawn := slices.Clone(r.answersDraw[:n])
	r.answersDraw = slices.Clone(r.answersDraw[n:])
	for _, id := range drawn {
		e.ensureAnswerText(r, id)
	}

	r.hands[playerID] = drawn
}
