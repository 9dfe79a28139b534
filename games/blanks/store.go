/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package blanks

import (
	"math/rand"
	"slices"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultPointsToWin = 5
	DefaultRoundsToWin = 10
	DefaultMinPlayers  = 3

	MinLimit = 1
	MaxLimit = 50
)

// RoomConfig holds the scoring limits a room is created with.
type RoomConfig struct {
	PointsToWin int
	RoundsToWin int
}

// Settings is a host's update to a lobby. A nil PointsToWin leaves it as is.
type Settings struct {
	RoundsToWin int
	PointsToWin *int
}

// Join describes a player joining, or rejoining, a room.
type Join struct {
	PlayerID string
	Token    string
	Username string
	AvatarID int
	SocketID string
}

// Store is the registry of rooms. It is not safe for concurrent use; the
// Gateway serializes every call.
type Store struct {
	rooms map[string]*Room

	engine     *Engine
	defaults   RoomConfig
	minPlayers int

	now       func() time.Time
	newRoomID func() (string, error)
	newID     func() string
}

type StoreOption func(*Store)

// WithRand sets the random source used for shuffling and rendering.
func WithRand(rng *rand.Rand) StoreOption {
	return func(s *Store) {
		s.engine = NewEngine(s.engine.decks, rng)
	}
}

func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// WithDefaults sets the limits new rooms start with.
func WithDefaults(cfg RoomConfig) StoreOption {
	return func(s *Store) {
		s.defaults = cfg
	}
}

func WithMinPlayers(n int) StoreOption {
	return func(s *Store) {
		s.minPlayers = n
	}
}

func NewStore(decks *Decks, opts ...StoreOption) *Store {
	s := &Store{
		rooms:      make(map[string]*Room),
		engine:     NewEngine(decks, rand.New(rand.NewSource(time.Now().UnixNano()))),
		defaults:   RoomConfig{PointsToWin: DefaultPointsToWin, RoundsToWin: DefaultRoundsToWin},
		minPlayers: DefaultMinPlayers,
		now:        time.Now,
		newRoomID:  NewRoomID,
		newID:      uuid.NewString,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func clampLimit(n int) int {
	return max(MinLimit, min(MaxLimit, n))
}

// CreateRoom registers an empty lobby under a fresh room code. Zero
// fields in cfg fall back to the store defaults.
func (s *Store) CreateRoom(cfg RoomConfig) (string, *Room, error) {
	if cfg.PointsToWin == 0 {
		cfg.PointsToWin = s.defaults.PointsToWin
	}
	if cfg.RoundsToWin == 0 {
		cfg.RoundsToWin = s.defaults.RoundsToWin
	}
	cfg.PointsToWin = clampLimit(cfg.PointsToWin)
	cfg.RoundsToWin = clampLimit(cfg.RoundsToWin)

	var id string
	for {
		var err error
		id, err = s.newRoomID()
		if err != nil {
			return "", nil, err
		}
		if _, exists := s.rooms[id]; !exists {
			break
		}
	}

	room := newRoom(id, cfg, s.now())
	s.rooms[id] = room

	return id, room, nil
}

// GetRoom returns the room, or nil.
func (s *Store) GetRoom(id string) *Room {
	return s.rooms[id]
}

func (s *Store) RoomExists(id string) bool {
	_, ok := s.rooms[id]
	return ok
}

// Len returns the number of live rooms.
func (s *Store) Len() int {
	return len(s.rooms)
}

func (s *Store) room(id string) (*Room, error) {
	r := s.rooms[id]
	if r == nil {
		return nil, errorf(KindRoomNotFound, "room %s", id)
	}
	return r, nil
}

func (s *Store) player(r *Room, id string) (*Player, error) {
	p := r.players[id]
	if p == nil {
		return nil, errorf(KindPlayerNotFound, "player %s is not in room %s", id, r.ID)
	}
	return p, nil
}

// UpsertPlayer adds a player to a room, or reconnects one who is already
// there. Reconnection requires the token the player first joined with;
// score, hand and roles are kept, and any pending purge is cancelled.
func (s *Store) UpsertPlayer(roomID string, j Join) (*Room, *Player, error) {
	r, err := s.room(roomID)
	if err != nil {
		return nil, nil, err
	}

	p := r.players[j.PlayerID]
	if p != nil {
		if p.Token != j.Token {
			return nil, nil, errorf(KindTokenMismatch, "player %s", j.PlayerID)
		}
		p.cancelPurge()
	} else {
		p = &Player{ID: j.PlayerID, Token: j.Token}
		r.players[p.ID] = p
		r.order = append(r.order, p.ID)

		if r.Status == StatusInGame {
			s.engine.dealLate(r, p.ID)
		}
	}

	p.Username = j.Username
	p.AvatarID = j.AvatarID
	p.SocketID = j.SocketID
	p.Connected = true
	p.DisconnectedAt = time.Time{}

	if r.HostID == "" {
		r.HostID = p.ID
	}
	if r.PresiID == "" {
		r.PresiID = p.ID
	}

	r.bump(s.now())

	return r, p, nil
}

// Disconnect marks a player as gone if socketID is still their live
// connection. It reports false when the player has since moved to
// another connection, in which case nothing changes.
func (s *Store) Disconnect(roomID, playerID, socketID string) (bool, error) {
	r, err := s.room(roomID)
	if err != nil {
		return false, err
	}
	p, err := s.player(r, playerID)
	if err != nil {
		return false, err
	}
	if !p.Connected || p.SocketID != socketID {
		return false, nil
	}

	now := s.now()

	p.Connected = false
	p.DisconnectedAt = now
	p.SocketID = ""

	r.bump(now)

	return true, nil
}

// RemovePlayer deletes a player, hands their roles to the next player in
// join order, and deletes the room once it is empty. The returned room is
// nil when the room was deleted.
func (s *Store) RemovePlayer(roomID, playerID string) (*Room, error) {
	r, err := s.room(roomID)
	if err != nil {
		return nil, err
	}
	p, err := s.player(r, playerID)
	if err != nil {
		return nil, err
	}

	p.cancelPurge()
	s.engine.discardHand(r, playerID)

	next := r.successor(playerID)

	delete(r.players, playerID)
	r.order = slices.DeleteFunc(r.order, func(id string) bool { return id == playerID })

	if len(r.order) == 0 {
		delete(s.rooms, roomID)
		return nil, nil
	}

	if r.HostID == playerID {
		r.HostID = next
	}
	if r.PresiID == playerID {
		r.PresiID = next
	}

	r.bump(s.now())

	return r, nil
}

// UpdateSettings changes the limits of a room still in its lobby. Values
// are clamped to [MinLimit, MaxLimit].
func (s *Store) UpdateSettings(roomID string, settings Settings) error {
	r, err := s.room(roomID)
	if err != nil {
		return err
	}
	if r.Status != StatusLobby {
		return errorf(KindWrongStatus, "room %s is %s", r.ID, r.Status)
	}

	r.RoundsToWin = clampLimit(settings.RoundsToWin)
	if settings.PointsToWin != nil {
		r.PointsToWin = clampLimit(*settings.PointsToWin)
	}

	r.bump(s.now())

	return nil
}

// StartGame deals every player a hand and opens the first round.
func (s *Store) StartGame(roomID string) error {
	r, err := s.room(roomID)
	if err != nil {
		return err
	}
	if r.Status != StatusLobby {
		return errorf(KindWrongStatus, "room %s is %s", r.ID, r.Status)
	}
	if len(r.order) < s.minPlayers {
		return errorf(KindNotEnoughPlayers, "need %d players, have %d", s.minPlayers, len(r.order))
	}

	if err := s.engine.deal(r); err != nil {
		return err
	}

	r.Status = StatusInGame
	r.Round = 1

	// The decks are never empty, so the first question always exists.
	if err := s.engine.startRound(r); err != nil {
		return err
	}

	r.bump(s.now())

	return nil
}

// PlayAnswers records a player's answer for the current round.
func (s *Store) PlayAnswers(roomID, playerID string, cards []CardID) (*Submission, error) {
	r, err := s.room(roomID)
	if err != nil {
		return nil, err
	}

	sub, err := s.engine.submit(r, playerID, cards, s.newID())
	if err != nil {
		return nil, err
	}

	r.bump(s.now())

	return sub, nil
}

// PickWinner resolves the current round in favour of submissionID.
func (s *Store) PickWinner(roomID, submissionID string) (PickResult, error) {
	r, err := s.room(roomID)
	if err != nil {
		return PickResult{}, err
	}

	res, err := s.engine.resolve(r, submissionID)
	if err != nil {
		return PickResult{}, err
	}

	r.bump(s.now())

	return res, nil
}

// ReapEmpty deletes rooms that have no players and have not changed
// since cutoff, returning their ids.
func (s *Store) ReapEmpty(cutoff time.Time) []string {
	var reaped []string
	for id, r := range s.rooms {
		if len(r.order) == 0 && r.LastActive.Before(cutoff) {
			delete(s.rooms, id)
			reaped = append(reaped, id)
		}
	}
	slices.Sort(reaped)
	return reaped
}
