/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package blanks

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testDecks builds a corpus of n plain answers and the given questions.
func testDecks(t *testing.T, answers int, questions ...string) *Decks {
	t.Helper()

	if len(questions) == 0 {
		for i := range 20 {
			questions = append(questions, fmt.Sprintf("Question %d is about {{ CARD }}.", i))
		}
	}

	a := make([]string, 0, answers)
	for i := range answers {
		a = append(a, fmt.Sprintf("answer %d", i))
	}

	d, err := NewDecks(questions, a, []string{"Dracula", "Napoleon"})
	require.NoError(t, err)

	return d
}

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestStore(t *testing.T, decks *Decks, opts ...StoreOption) (*Store, *fakeClock) {
	t.Helper()

	clock := newFakeClock()

	ids := 0
	base := []StoreOption{
		WithRand(rand.New(rand.NewSource(42))),
		WithClock(clock.Now),
	}
	s := NewStore(decks, append(base, opts...)...)
	s.newID = func() string {
		ids++
		return fmt.Sprintf("sub-%d", ids)
	}

	return s, clock
}

// lobby creates a room holding one player per name. Player ids are the
// names, tokens are "token-" plus the name.
func lobby(t *testing.T, s *Store, names ...string) *Room {
	t.Helper()

	id, _, err := s.CreateRoom(RoomConfig{})
	require.NoError(t, err)

	for _, name := range names {
		_, _, err := s.UpsertPlayer(id, Join{
			PlayerID: name,
			Token:    "token-" + name,
			Username: name,
			SocketID: "conn-" + name,
		})
		require.NoError(t, err)
	}

	return s.GetRoom(id)
}

// assertPartition checks that every answer card in play sits in exactly
// one hand or pile, and likewise for question cards.
func assertPartition(t *testing.T, r *Room, answers, questions int) {
	t.Helper()

	seen := make(map[CardID]int)
	for _, hand := range r.hands {
		for _, id := range hand {
			seen[id]++
		}
	}
	for _, id := range r.answersDraw {
		seen[id]++
	}
	for _, id := range r.answersDiscard {
		seen[id]++
	}

	assert.Len(t, seen, answers, "answer cards in play")
	for id, n := range seen {
		assert.Equal(t, 1, n, "answer card %s held %d times", id, n)
	}

	qs := make(map[CardID]int)
	for _, id := range r.questionsDraw {
		qs[id]++
	}
	for _, id := range r.questionsDiscard {
		qs[id]++
	}

	assert.Len(t, qs, questions, "question cards in play")
	for id, n := range qs {
		assert.Equal(t, 1, n, "question card %s held %d times", id, n)
	}
}

type manualTask struct {
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTask) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// manualScheduler runs callbacks only when the test says so.
type manualScheduler struct {
	mu    sync.Mutex
	tasks []*manualTask
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &manualTask{d: d, f: f}
	s.tasks = append(s.tasks, t)
	return t
}

func (s *manualScheduler) pending() []*manualTask {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*manualTask
	for _, t := range s.tasks {
		if !t.stopped && !t.fired {
			out = append(out, t)
		}
	}
	return out
}

// fire runs every pending callback, as if the grace window had elapsed.
func (s *manualScheduler) fire() int {
	tasks := s.pending()
	for _, t := range tasks {
		t.fired = true
		t.f()
	}
	return len(tasks)
}
