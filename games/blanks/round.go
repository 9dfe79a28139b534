/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package blanks

import (
	"slices"
	"strings"
)

const submissionSeparator = " / "

// PickResult describes how a round was resolved.
type PickResult struct {
	WinnerID string
	Finished bool
}

// startRound draws the next question and clears the previous round's
// submissions.
func (e *Engine) startRound(r *Room) error {
	if len(r.questionsDraw) == 0 {
		return errorf(KindNoQuestionsLeft, "question deck exhausted in room %s", r.ID)
	}

	id := r.questionsDraw[0]
	r.questionsDraw = slices.Clone(r.questionsDraw[1:])
	r.questionsDiscard = append(r.questionsDiscard, id)

	text, required := e.ensureQuestionText(r, id)

	r.CurrentQuestion = id
	r.CurrentQuestionText = text
	r.RequiredAnswers = required
	r.submissions = nil

	return nil
}

// submit plays cards for a player in the current round.
func (e *Engine) submit(r *Room, playerID string, cards []CardID, submissionID string) (*Submission, error) {
	if r.Status != StatusInGame {
		return nil, errorf(KindWrongStatus, "room %s is %s", r.ID, r.Status)
	}
	if r.players[playerID] == nil {
		return nil, errorf(KindPlayerNotFound, "player %s is not in room %s", playerID, r.ID)
	}
	if playerID == r.PresiID {
		return nil, errorf(KindNotAllowedToPlay, "the presi does not answer")
	}
	if slices.ContainsFunc(r.submissions, func(s Submission) bool { return s.PlayerID == playerID }) {
		return nil, errorf(KindAlreadySubmitted, "player %s already played this round", playerID)
	}
	if len(cards) != r.RequiredAnswers {
		return nil, errorf(KindInvalidCardCount, "question takes %d cards, got %d", r.RequiredAnswers, len(cards))
	}

	if err := e.spend(r, playerID, cards); err != nil {
		return nil, err
	}

	texts := make([]string, 0, len(cards))
	for _, id := range cards {
		texts = append(texts, e.ensureAnswerText(r, id))
	}

	sub := Submission{
		ID:       submissionID,
		PlayerID: playerID,
		Cards:    slices.Clone(cards),
		Text:     strings.Join(texts, submissionSeparator),
	}
	r.submissions = append(r.submissions, sub)

	return &sub, nil
}

// resolve credits the author of the picked submission and either ends
// the game or moves on to the next round with the next presi.
func (e *Engine) resolve(r *Room, submissionID string) (PickResult, error) {
	if r.Status != StatusInGame {
		return PickResult{}, errorf(KindWrongStatus, "room %s is %s", r.ID, r.Status)
	}

	i := slices.IndexFunc(r.submissions, func(s Submission) bool { return s.ID == submissionID })
	if i < 0 {
		return PickResult{}, errorf(KindInvalidPick, "no submission %s this round", submissionID)
	}

	winner := r.players[r.submissions[i].PlayerID]
	if winner == nil {
		return PickResult{}, errorf(KindInvalidPick, "author of %s has left", submissionID)
	}

	// Points first, then rounds: whichever limit is reached first ends it.
	finished := winner.Points+1 >= r.PointsToWin || r.Round >= r.RoundsToWin
	if !finished && len(r.questionsDraw) == 0 {
		return PickResult{}, errorf(KindNoQuestionsLeft, "question deck exhausted in room %s", r.ID)
	}

	winner.Points++
	r.submissions = nil

	if finished {
		r.Status = StatusFinished
		return PickResult{WinnerID: winner.ID, Finished: true}, nil
	}

	r.Round++
	r.PresiID = r.successor(r.PresiID)

	if err := e.startRound(r); err != nil {
		// Unreachable: the draw pile was checked above.
		return PickResult{}, err
	}

	return PickResult{WinnerID: winner.ID}, nil
}
