/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package blanks

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRoom(t *testing.T) {
	s, clock := newTestStore(t, testDecks(t, 60))

	id, r, err := s.CreateRoom(RoomConfig{})
	require.NoError(t, err)

	assert.True(t, ValidRoomID(id))
	assert.Same(t, r, s.GetRoom(id))
	assert.True(t, s.RoomExists(id))
	assert.Equal(t, 1, s.Len())

	assert.Equal(t, 1, r.Version)
	assert.Equal(t, StatusLobby, r.Status)
	assert.Equal(t, DefaultPointsToWin, r.PointsToWin)
	assert.Equal(t, DefaultRoundsToWin, r.RoundsToWin)
	assert.Zero(t, r.Round)
	assert.Empty(t, r.HostID)
	assert.Empty(t, r.PresiID)
	assert.Equal(t, clock.Now(), r.CreatedAt)
}

func TestCreateRoomClamps(t *testing.T) {
	s, _ := newTestStore(t, testDecks(t, 60))

	_, r, err := s.CreateRoom(RoomConfig{PointsToWin: 99, RoundsToWin: -3})
	require.NoError(t, err)

	assert.Equal(t, MaxLimit, r.PointsToWin)
	assert.Equal(t, MinLimit, r.RoundsToWin)
}

func TestCreateRoomRetriesCollisions(t *testing.T) {
	s, _ := newTestStore(t, testDecks(t, 60))

	codes := []string{"AAAAAA", "AAAAAA", "AAAAAA", "BBBBBB"}
	s.newRoomID = func() (string, error) {
		code := codes[0]
		codes = codes[1:]
		return code, nil
	}

	first, _, err := s.CreateRoom(RoomConfig{})
	require.NoError(t, err)
	second, _, err := s.CreateRoom(RoomConfig{})
	require.NoError(t, err)

	assert.Equal(t, "AAAAAA", first)
	assert.Equal(t, "BBBBBB", second)
	assert.Empty(t, codes)
}

func TestUpsertPlayer(t *testing.T) {
	s, _ := newTestStore(t, testDecks(t, 60))
	r := lobby(t, s)

	versions := []int{r.Version}
	for _, name := range []string{"alice", "bob"} {
		_, p, err := s.UpsertPlayer(r.ID, Join{PlayerID: name, Token: "t-" + name, Username: name, AvatarID: 3, SocketID: "c-" + name})
		require.NoError(t, err)
		assert.True(t, p.Connected)
		versions = append(versions, r.Version)
	}

	assert.Equal(t, []int{1, 2, 3}, versions)
	assert.Equal(t, "alice", r.HostID)
	assert.Equal(t, "alice", r.PresiID)
	assert.Equal(t, 2, r.PlayerCount())

	_, _, err := s.UpsertPlayer("NOROOM", Join{PlayerID: "x"})
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestUpsertPlayerReconnects(t *testing.T) {
	s, clock := newTestStore(t, testDecks(t, 60))
	r := startedRoom(t, s, "alice", "bob", "carol")

	r.Player("bob").Points = 2
	hand := r.Hand("bob")

	changed, err := s.Disconnect(r.ID, "bob", "conn-bob")
	require.NoError(t, err)
	require.True(t, changed)
	assert.False(t, r.Player("bob").Connected)
	assert.Equal(t, clock.Now(), r.Player("bob").DisconnectedAt)
	assert.Empty(t, r.Player("bob").SocketID)

	// Wrong token: rejected, nothing changes.
	version := r.Version
	_, _, err = s.UpsertPlayer(r.ID, Join{PlayerID: "bob", Token: "guess", Username: "mallory", SocketID: "conn-evil"})
	require.ErrorIs(t, err, ErrTokenMismatch)
	assert.Equal(t, version, r.Version)
	assert.Equal(t, "bob", r.Player("bob").Username)
	assert.False(t, r.Player("bob").Connected)

	clock.Advance(10 * time.Second)
	_, p, err := s.UpsertPlayer(r.ID, Join{PlayerID: "bob", Token: "token-bob", Username: "Bobby", AvatarID: 7, SocketID: "conn-bob-2"})
	require.NoError(t, err)

	assert.True(t, p.Connected)
	assert.True(t, p.DisconnectedAt.IsZero())
	assert.Equal(t, "conn-bob-2", p.SocketID)
	assert.Equal(t, "Bobby", p.Username)
	assert.Equal(t, 7, p.AvatarID)
	assert.Equal(t, 2, p.Points)
	assert.Equal(t, hand, r.Hand("bob"))
	assert.Equal(t, 3, r.PlayerCount())
}

func TestUpsertPlayerLateJoin(t *testing.T) {
	decks := testDecks(t, 60)
	s, _ := newTestStore(t, decks)
	r := startedRoom(t, s, "alice", "bob", "carol")

	_, _, err := s.UpsertPlayer(r.ID, Join{PlayerID: "dave", Token: "t", Username: "dave", SocketID: "conn-dave"})
	require.NoError(t, err)

	assert.Len(t, r.Hand("dave"), HandSize)
	assertPartition(t, r, 63, decks.Questions())

	_, err = s.PlayAnswers(r.ID, "dave", r.Hand("dave")[:1])
	assert.NoError(t, err)
}

func TestDisconnectStaleSocket(t *testing.T) {
	s, _ := newTestStore(t, testDecks(t, 60))
	r := lobby(t, s, "alice", "bob", "carol")
	version := r.Version

	changed, err := s.Disconnect(r.ID, "bob", "conn-old")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.True(t, r.Player("bob").Connected)
	assert.Equal(t, version, r.Version)

	changed, err = s.Disconnect(r.ID, "bob", "conn-bob")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, version+1, r.Version)

	changed, err = s.Disconnect(r.ID, "bob", "conn-bob")
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = s.Disconnect(r.ID, "mallory", "conn-bob")
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestRemovePlayerSuccession(t *testing.T) {
	tests := []struct {
		name      string
		remove    []string
		wantHost  string
		wantPresi string
		wantOrder []string
	}{
		{
			name:      "host and presi leave",
			remove:    []string{"alice"},
			wantHost:  "bob",
			wantPresi: "bob",
			wantOrder: []string{"bob", "carol"},
		},
		{
			name:      "bystander leaves",
			remove:    []string{"bob"},
			wantHost:  "alice",
			wantPresi: "alice",
			wantOrder: []string{"alice", "carol"},
		},
		{
			name:      "two leave in a row",
			remove:    []string{"alice", "bob"},
			wantHost:  "carol",
			wantPresi: "carol",
			wantOrder: []string{"carol"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestStore(t, testDecks(t, 60))
			r := lobby(t, s, "alice", "bob", "carol")

			for _, id := range tt.remove {
				got, err := s.RemovePlayer(r.ID, id)
				require.NoError(t, err)
				require.Same(t, r, got)
			}

			assert.Equal(t, tt.wantHost, r.HostID)
			assert.Equal(t, tt.wantPresi, r.PresiID)
			assert.Equal(t, tt.wantOrder, r.order)
		})
	}
}

func TestRemovePlayerWrapsToFirst(t *testing.T) {
	s, _ := newTestStore(t, testDecks(t, 60))
	r := lobby(t, s, "alice", "bob", "carol")
	r.HostID = "carol"
	r.PresiID = "carol"

	_, err := s.RemovePlayer(r.ID, "carol")
	require.NoError(t, err)

	assert.Equal(t, "alice", r.HostID)
	assert.Equal(t, "alice", r.PresiID)
}

func TestRemovePlayerMidGame(t *testing.T) {
	decks := testDecks(t, 60)
	s, _ := newTestStore(t, decks)
	r := startedRoom(t, s, "alice", "bob", "carol")
	hand := r.Hand("bob")

	_, err := s.RemovePlayer(r.ID, "bob")
	require.NoError(t, err)

	assert.Nil(t, r.Player("bob"))
	assert.Nil(t, r.Hand("bob"))
	assert.Subset(t, r.AnswersDiscard(), hand)
	assertPartition(t, r, 63, decks.Questions())
}

func TestRemoveLastPlayerDeletesRoom(t *testing.T) {
	s, _ := newTestStore(t, testDecks(t, 60))
	r := lobby(t, s, "alice")

	got, err := s.RemovePlayer(r.ID, "alice")
	require.NoError(t, err)

	assert.Nil(t, got)
	assert.False(t, s.RoomExists(r.ID))
	assert.Zero(t, s.Len())

	_, err = s.RemovePlayer(r.ID, "alice")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestUpdateSettings(t *testing.T) {
	s, _ := newTestStore(t, testDecks(t, 60))
	r := lobby(t, s, "alice", "bob", "carol")
	version := r.Version

	require.NoError(t, s.UpdateSettings(r.ID, Settings{RoundsToWin: 500}))
	assert.Equal(t, MaxLimit, r.RoundsToWin)
	assert.Equal(t, DefaultPointsToWin, r.PointsToWin)
	assert.Equal(t, version+1, r.Version)

	points := 0
	require.NoError(t, s.UpdateSettings(r.ID, Settings{RoundsToWin: 3, PointsToWin: &points}))
	assert.Equal(t, 3, r.RoundsToWin)
	assert.Equal(t, MinLimit, r.PointsToWin)

	require.NoError(t, s.StartGame(r.ID))
	err := s.UpdateSettings(r.ID, Settings{RoundsToWin: 4})
	assert.ErrorIs(t, err, ErrWrongStatus)
	assert.Equal(t, 3, r.RoundsToWin)
}

func TestReapEmpty(t *testing.T) {
	s, clock := newTestStore(t, testDecks(t, 60))

	_, empty, err := s.CreateRoom(RoomConfig{})
	require.NoError(t, err)
	busy := lobby(t, s, "alice")

	clock.Advance(time.Minute)
	_, fresh, err := s.CreateRoom(RoomConfig{})
	require.NoError(t, err)

	reaped := s.ReapEmpty(clock.Now().Add(-30 * time.Second))

	assert.Equal(t, []string{empty.ID}, reaped)
	assert.False(t, s.RoomExists(empty.ID))
	assert.True(t, s.RoomExists(busy.ID))
	assert.True(t, s.RoomExists(fresh.ID))
}

func TestRoomStateProjection(t *testing.T) {
	s, _ := newTestStore(t, testDecks(t, 60))
	r := startedRoom(t, s, "alice", "bob", "carol")

	first := r.State()
	second := r.State()
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("projection is not idempotent (-first +second):\n%s", diff)
	}

	want := RoomState{
		RoomID:  r.ID,
		Version: r.Version,
		HostID:  "alice",
		PresiID: "alice",
		Players: []PlayerState{
			{ID: "alice", Username: "alice"},
			{ID: "bob", Username: "bob"},
			{ID: "carol", Username: "carol"},
		},
		Status:              StatusInGame,
		PointsToWin:         DefaultPointsToWin,
		RoundsToWin:         DefaultRoundsToWin,
		Round:               1,
		CurrentQuestionText: r.CurrentQuestionText,
		RequiredAnswers:     1,
	}
	if diff := cmp.Diff(want, first); diff != "" {
		t.Errorf("unexpected room state (-want +got):\n%s", diff)
	}

	b, err := json.Marshal(first)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "token-")
	assert.NotContains(t, string(b), "conn-")
}

func TestHandStateIsPrivate(t *testing.T) {
	s, _ := newTestStore(t, testDecks(t, 60))
	r := startedRoom(t, s, "alice", "bob", "carol")

	hs := r.HandState("bob")
	assert.Equal(t, r.ID, hs.RoomID)
	assert.Equal(t, r.Version, hs.Version)
	require.Len(t, hs.Hand, HandSize)

	for i, card := range hs.Hand {
		assert.Equal(t, r.Hand("bob")[i], card.ID)
		assert.NotEmpty(t, card.Text)
	}

	assert.Empty(t, r.HandState("mallory").Hand)
}
