/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package blanks

import (
	"slices"
	"time"
)

type Status string

const (
	StatusLobby    Status = "lobby"
	StatusInGame   Status = "in_game"
	StatusFinished Status = "finished"
)

// Player is keyed by the durable id the client generated, not by the
// connection it is currently using.
type Player struct {
	ID       string
	Token    string
	Username string
	AvatarID int
	Points   int

	SocketID       string
	Connected      bool
	DisconnectedAt time.Time

	// Non-nil only while the player is disconnected.
	purge *purgeTask
}

// PurgePending reports whether a removal is scheduled for this player.
func (p *Player) PurgePending() bool {
	return p.purge != nil
}

// PurgeDue returns when the pending removal will run, or the zero time.
func (p *Player) PurgeDue() time.Time {
	if p.purge == nil {
		return time.Time{}
	}
	return p.purge.due
}

type Submission struct {
	ID       string
	PlayerID string
	Cards    []CardID
	Text     string
}

type Room struct {
	ID      string
	Version int
	Status  Status

	HostID  string
	PresiID string

	PointsToWin int
	RoundsToWin int
	Round       int

	CreatedAt  time.Time
	LastActive time.Time

	players map[string]*Player
	order   []string

	hands          map[string][]CardID
	answersDraw    []CardID
	answersDiscard []CardID
	answerText     map[CardID]string

	questionsDraw    []CardID
	questionsDiscard []CardID
	questionText     map[CardID]string

	CurrentQuestion     CardID
	CurrentQuestionText string
	RequiredAnswers     int

	submissions []Submission
}

func newRoom(id string, cfg RoomConfig, now time.Time) *Room {
	return &Room{
		ID:           id,
		Version:      1,
		Status:       StatusLobby,
		PointsToWin:  cfg.PointsToWin,
		RoundsToWin:  cfg.RoundsToWin,
		CreatedAt:    now,
		LastActive:   now,
		players:      make(map[string]*Player),
		hands:        make(map[string][]CardID),
		answerText:   make(map[CardID]string),
		questionText: make(map[CardID]string),
	}
}

func (r *Room) bump(now time.Time) {
	r.Version++
	r.LastActive = now
}

// Player returns the player with the given id, or nil.
func (r *Room) Player(id string) *Player {
	return r.players[id]
}

// Players returns the players in stable (join) order.
func (r *Room) Players() []*Player {
	out := make([]*Player, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.players[id])
	}
	return out
}

func (r *Room) PlayerCount() int {
	return len(r.order)
}

// Hand returns a copy of the player's hand.
func (r *Room) Hand(playerID string) []CardID {
	return slices.Clone(r.hands[playerID])
}

// Submissions returns a copy of the current round's submissions.
func (r *Room) Submissions() []Submission {
	return slices.Clone(r.submissions)
}

func (r *Room) AnswersDrawPile() []CardID   { return slices.Clone(r.answersDraw) }
func (r *Room) AnswersDiscard() []CardID    { return slices.Clone(r.answersDiscard) }
func (r *Room) QuestionsDrawPile() []CardID { return slices.Clone(r.questionsDraw) }
func (r *Room) QuestionsDiscard() []CardID  { return slices.Clone(r.questionsDiscard) }

func (r *Room) usernames() []string {
	names := make([]string, 0, len(r.order))
	for _, id := range r.order {
		names = append(names, r.players[id].Username)
	}
	return names
}

// successor returns the player that follows id in join order, wrapping
// around. If id is not in the room the first player is returned.
func (r *Room) successor(id string) string {
	if len(r.order) == 0 {
		return ""
	}
	i := slices.Index(r.order, id)
	if i < 0 {
		return r.order[0]
	}
	return r.order[(i+1)%len(r.order)]
}

// PlayerState is the public view of a player.
type PlayerState struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	AvatarID int    `json:"avatarId"`
	Points   int    `json:"points"`
}

// RoomState is the snapshot broadcast to every connection in a room.
// Tokens, timers, piles, hands and render caches never appear here.
type RoomState struct {
	RoomID              string        `json:"roomId"`
	Version             int           `json:"version"`
	HostID              string        `json:"hostId"`
	PresiID             string        `json:"presiId"`
	Players             []PlayerState `json:"players"`
	Status              Status        `json:"status"`
	PointsToWin         int           `json:"pointsToWin"`
	RoundsToWin         int           `json:"roundsToWin"`
	Round               int           `json:"round"`
	CurrentQuestionText string        `json:"currentQuestionText"`
	RequiredAnswers     int           `json:"requiredAnswers"`
}

type HandCard struct {
	ID   CardID `json:"id"`
	Text string `json:"text"`
}

// HandState is sent only to the connection of the player who owns it.
type HandState struct {
	RoomID  string     `json:"roomId"`
	Version int        `json:"version"`
	Hand    []HandCard `json:"hand"`
}

type SubmissionView struct {
	SubmissionID string `json:"submissionId"`
	Text         string `json:"text"`
}

// SubmissionsState lists the current round's answers without their authors.
type SubmissionsState struct {
	RoomID      string           `json:"roomId"`
	Version     int              `json:"version"`
	Round       int              `json:"round"`
	Submissions []SubmissionView `json:"submissions"`
}

// State projects the room onto its public snapshot.
func (r *Room) State() RoomState {
	players := make([]PlayerState, 0, len(r.order))
	for _, p := range r.Players() {
		players = append(players, PlayerState{
			ID:       p.ID,
			Username: p.Username,
			AvatarID: p.AvatarID,
			Points:   p.Points,
		})
	}

	return RoomState{
		RoomID:              r.ID,
		Version:             r.Version,
		HostID:              r.HostID,
		PresiID:             r.PresiID,
		Players:             players,
		Status:              r.Status,
		PointsToWin:         r.PointsToWin,
		RoundsToWin:         r.RoundsToWin,
		Round:               r.Round,
		CurrentQuestionText: r.CurrentQuestionText,
		RequiredAnswers:     r.RequiredAnswers,
	}
}

// HandState projects one player's hand. Answer cards are rendered as they
// are drawn, so every card in a hand already has cached text.
func (r *Room) HandState(playerID string) HandState {
	hand := r.hands[playerID]
	cards := make([]HandCard, 0, len(hand))
	for _, id := range hand {
		cards = append(cards, HandCard{ID: id, Text: r.answerText[id]})
	}

	return HandState{
		RoomID:  r.ID,
		Version: r.Version,
		Hand:    cards,
	}
}

func (r *Room) SubmissionsState() SubmissionsState {
	views := make([]SubmissionView, 0, len(r.submissions))
	for _, s := range r.submissions {
		views = append(views, SubmissionView{SubmissionID: s.ID, Text: s.Text})
	}

	return SubmissionsState{
		RoomID:      r.ID,
		Version:     r.Version,
		Round:       r.Round,
		Submissions: views,
	}
}
