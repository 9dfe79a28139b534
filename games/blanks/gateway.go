/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package blanks

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Conn is one client connection as seen by the Gateway. Send must not
// block and must not call back into the Gateway.
type Conn interface {
	ID() string
	Send(Message) error
	Close()
}

// session is what a connection is bound to after a successful join.
type session struct {
	conn     Conn
	roomID   string
	playerID string
}

func (s *session) bound() bool {
	return s.roomID != ""
}

// Gateway turns client events into Store operations and broadcasts the
// results. A single mutex serializes every event and every purge, so
// each mutation runs to completion before the next one starts.
type Gateway struct {
	mu sync.Mutex

	store    *Store
	sessions map[string]*session

	sched Scheduler
	grace time.Duration

	log zerolog.Logger
}

type GatewayOption func(*Gateway)

func WithScheduler(s Scheduler) GatewayOption {
	return func(g *Gateway) {
		g.sched = s
	}
}

// WithGrace sets how long a disconnected player may take to come back.
func WithGrace(d time.Duration) GatewayOption {
	return func(g *Gateway) {
		g.grace = d
	}
}

func WithLogger(l zerolog.Logger) GatewayOption {
	return func(g *Gateway) {
		g.log = l
	}
}

func NewGateway(store *Store, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		store:    store,
		sessions: make(map[string]*session),
		sched:    timerScheduler{},
		grace:    DefaultReconnectGrace,
		log:      zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(g)
	}

	g.log = g.log.With().Str("module", "games.blanks").Logger()

	return g
}

// Connect registers a new, unbound connection.
func (g *Gateway) Connect(c Conn) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.sessions[c.ID()] = &session{conn: c}
}

// Disconnect forgets a connection. If it was a player's live connection
// the player is marked disconnected and their removal is scheduled.
func (g *Gateway) Disconnect(connID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	sess := g.sessions[connID]
	if sess == nil {
		return
	}
	delete(g.sessions, connID)

	if !sess.bound() {
		return
	}

	changed, err := g.store.Disconnect(sess.roomID, sess.playerID, connID)
	if err != nil || !changed {
		return
	}

	room := g.store.GetRoom(sess.roomID)
	g.schedulePurge(room, room.Player(sess.playerID))

	g.log.Info().Str("room", room.ID).Str("player", sess.playerID).Msg("GAMES: Player disconnected")

	g.broadcastRoom(room)
}

func (g *Gateway) schedulePurge(room *Room, p *Player) {
	roomID, playerID := room.ID, p.ID

	pt := &purgeTask{due: g.store.now().Add(g.grace)}
	pt.task = g.sched.AfterFunc(g.grace, func() {
		g.expire(roomID, playerID, pt)
	})

	p.armPurge(pt)
}

// expire runs when a purge timer fires. It acts only if the player still
// holds this exact task; a reconnection clears it, so a timer that fired
// while waiting for the lock does nothing.
func (g *Gateway) expire(roomID, playerID string, pt *purgeTask) {
	g.mu.Lock()
	defer g.mu.Unlock()

	room := g.store.GetRoom(roomID)
	if room == nil {
		return
	}
	p := room.Player(playerID)
	if p == nil || p.purge != pt {
		return
	}

	room, err := g.store.RemovePlayer(roomID, playerID)
	if err != nil {
		g.log.Error().Err(err).Str("room", roomID).Str("player", playerID).Msg("GAMES: Purge failed")
		return
	}

	if room == nil {
		g.log.Info().Str("room", roomID).Msg("GAMES: Room closed")
		return
	}

	g.log.Info().Str("room", roomID).Str("player", playerID).Msg("GAMES: Player purged")

	g.broadcastRoom(room)
}

// Handle applies one client event and returns the ack for its sender.
// Broadcasts caused by the event are queued before Handle returns. A
// panic in a handler acks UNKNOWN; handlers only panic before they
// mutate, since delivery failures after a mutation are absorbed by send.
func (g *Gateway) Handle(connID string, env Envelope) (ack Ack) {
	g.mu.Lock()
	defer g.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			g.log.Error().Interface("panic", r).Str("event", env.Type).Msg("GAMES: Handler panicked")
			ack = ackFail(CodeUnknown)
		}
	}()

	sess := g.sessions[connID]
	if sess == nil {
		return ackFail(CodeUnknown)
	}

	switch env.Type {
	case EventCreateRoom:
		return g.createRoom(env.Payload)
	case EventJoinRoom:
		return g.joinRoom(sess, env.Payload)
	case EventUpdateSettings:
		return g.updateSettings(sess, env.Payload)
	case EventStartGame:
		return g.startGame(sess, env.Payload)
	case EventPlayAnswers:
		return g.playAnswers(sess, env.Payload)
	case EventPickWinner:
		return g.pickWinner(sess, env.Payload)
	case EventLeaveRoom:
		return g.leaveRoom(sess, env.Payload)
	default:
		return ackFail(CodeUnknown)
	}
}

// Store error kinds each event reports with a specific code. Anything
// else is UNKNOWN.
var (
	settingsCodes = map[Kind]Code{
		KindRoomNotFound:    CodeRoomNotFound,
		KindWrongStatus:     CodeInvalidSettings,
		KindInvalidSettings: CodeInvalidSettings,
	}

	playCodes = map[Kind]Code{
		KindRoomNotFound:     CodeRoomNotFound,
		KindPlayerNotFound:   CodeNotInRoom,
		KindWrongStatus:      CodeInvalidPlay,
		KindInvalidCardCount: CodeInvalidPlay,
		KindCardNotInHand:    CodeInvalidPlay,
		KindNotAllowedToPlay: CodeInvalidPlay,
		KindAlreadySubmitted: CodeInvalidPlay,
	}

	pickCodes = map[Kind]Code{
		KindRoomNotFound: CodeRoomNotFound,
		KindWrongStatus:  CodeInvalidPick,
		KindInvalidPick:  CodeInvalidPick,
	}
)

func failure(err error, codes map[Kind]Code) Ack {
	if c, ok := codes[KindOf(err)]; ok {
		return ackFail(c)
	}
	return ackFail(CodeUnknown)
}

func decode(raw json.RawMessage, v any) bool {
	if len(raw) == 0 {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

func (g *Gateway) createRoom(raw json.RawMessage) Ack {
	var p CreateRoomPayload
	if !decode(raw, &p) || cleanUsername(p.Username) == "" || p.AvatarID == nil {
		return ackFail(CodeUnknown)
	}

	id, _, err := g.store.CreateRoom(RoomConfig{})
	if err != nil {
		g.log.Error().Err(err).Msg("GAMES: Room creation failed")
		return ackFail(CodeUnknown)
	}

	g.log.Info().Str("room", id).Str("by", cleanUsername(p.Username)).Msg("GAMES: Created room")

	return ackRoom(id)
}

func (g *Gateway) joinRoom(sess *session, raw json.RawMessage) Ack {
	var p JoinRoomPayload
	if !decode(raw, &p) {
		return ackFail(CodeUnknown)
	}

	roomID := NormalizeRoomID(p.RoomID)
	if !ValidRoomID(roomID) {
		return ackFail(CodeRoomIDInvalid)
	}

	username := cleanUsername(p.Username)
	if !validIdentity(p.PlayerID) || !validIdentity(p.PlayerToken) || username == "" || p.AvatarID == nil {
		return ackFail(CodeUnknown)
	}

	// A connection plays as one player in one room.
	if sess.bound() && (sess.roomID != roomID || sess.playerID != p.PlayerID) {
		return ackFail(CodeUnknown)
	}

	room := g.store.GetRoom(roomID)
	if room == nil {
		return ackFail(CodeRoomNotFound)
	}

	var previous string
	if existing := room.Player(p.PlayerID); existing != nil && existing.Token == p.PlayerToken {
		previous = existing.SocketID
	}

	room, player, err := g.store.UpsertPlayer(roomID, Join{
		PlayerID: p.PlayerID,
		Token:    p.PlayerToken,
		Username: username,
		AvatarID: *p.AvatarID,
		SocketID: sess.conn.ID(),
	})
	if err != nil {
		// Token mismatches stay generic so ids cannot be probed.
		return ackFail(CodeUnknown)
	}

	if previous != "" && previous != sess.conn.ID() {
		if old := g.sessions[previous]; old != nil {
			old.roomID, old.playerID = "", ""
			g.send(old, EventError, Notice{Message: "This player has connected from somewhere else."})
		}
	}

	sess.roomID = roomID
	sess.playerID = player.ID

	g.log.Info().Str("room", roomID).Str("player", player.ID).Str("username", player.Username).Msg("GAMES: Player joined")

	g.broadcastRoom(room)
	g.sendHand(room, player.ID)
	if room.Status == StatusInGame {
		g.send(sess, EventRoundSubmissions, room.SubmissionsState())
	}

	return ackRoom(roomID)
}

// target resolves the room an event is aimed at, checking that the
// connection is bound to it. It returns the code to fail with, if any.
func (g *Gateway) target(sess *session, roomID string, unbound Code) (*Room, Code) {
	roomID = NormalizeRoomID(roomID)
	if roomID == "" {
		return nil, CodeUnknown
	}
	if !sess.bound() || sess.roomID != roomID {
		return nil, unbound
	}

	room := g.store.GetRoom(roomID)
	if room == nil {
		return nil, CodeRoomNotFound
	}

	return room, ""
}

func (g *Gateway) updateSettings(sess *session, raw json.RawMessage) Ack {
	var p UpdateSettingsPayload
	if !decode(raw, &p) {
		return ackFail(CodeUnknown)
	}

	room, code := g.target(sess, p.RoomID, CodeUnknown)
	if code != "" {
		return ackFail(code)
	}
	if room.HostID != sess.playerID {
		return ackFail(CodeNotHost)
	}

	settings, err := p.Settings()
	if err != nil {
		return failure(err, settingsCodes)
	}

	if err := g.store.UpdateSettings(room.ID, settings); err != nil {
		return failure(err, settingsCodes)
	}

	g.broadcastRoom(room)

	return ackOK()
}

func (g *Gateway) startGame(sess *session, raw json.RawMessage) Ack {
	var p RoomPayload
	if !decode(raw, &p) {
		return ackFail(CodeUnknown)
	}

	room, code := g.target(sess, p.RoomID, CodeUnknown)
	if code != "" {
		return ackFail(code)
	}
	if room.HostID != sess.playerID {
		return ackFail(CodeNotHost)
	}

	if err := g.store.StartGame(room.ID); err != nil {
		// Exhausted decks are a content problem, not something the host can fix.
		g.log.Warn().Err(err).Str("room", room.ID).Msg("GAMES: Could not start game")
		return ackFail(CodeUnknown)
	}

	g.log.Info().Str("room", room.ID).Int("players", room.PlayerCount()).Msg("GAMES: Game started")

	g.broadcastRoom(room)
	for _, pl := range room.Players() {
		g.sendHand(room, pl.ID)
	}
	g.broadcastSubmissions(room)

	return ackOK()
}

func (g *Gateway) playAnswers(sess *session, raw json.RawMessage) Ack {
	var p PlayAnswersPayload
	if !decode(raw, &p) || p.CardIDs == nil {
		return ackFail(CodeUnknown)
	}

	room, code := g.target(sess, p.RoomID, CodeNotInRoom)
	if code != "" {
		return ackFail(code)
	}

	cards, valid := parseCards(p.CardIDs)
	if !valid || len(cards) < 1 || len(cards) > maxRequiredAnswers {
		return ackFail(CodeInvalidPlay)
	}

	if _, err := g.store.PlayAnswers(room.ID, sess.playerID, cards); err != nil {
		g.log.Debug().Err(err).Str("room", room.ID).Str("player", sess.playerID).Msg("GAMES: Rejected play")
		return failure(err, playCodes)
	}

	g.sendHand(room, sess.playerID)
	g.broadcastRoom(room)
	g.broadcastSubmissions(room)

	return ackOK()
}

func (g *Gateway) pickWinner(sess *session, raw json.RawMessage) Ack {
	var p PickWinnerPayload
	if !decode(raw, &p) || p.SubmissionID == "" {
		return ackFail(CodeUnknown)
	}

	room, code := g.target(sess, p.RoomID, CodeNotInRoom)
	if code != "" {
		return ackFail(code)
	}
	if room.PresiID != sess.playerID {
		return ackFail(CodeNotPresi)
	}

	res, err := g.store.PickWinner(room.ID, p.SubmissionID)
	if err != nil {
		g.log.Debug().Err(err).Str("room", room.ID).Msg("GAMES: Rejected pick")
		return failure(err, pickCodes)
	}

	ev := g.log.Info().Str("room", room.ID).Str("winner", res.WinnerID).Int("round", room.Round)
	if res.Finished {
		ev.Msg("GAMES: Game finished")
	} else {
		ev.Msg("GAMES: Round won")
	}

	g.broadcastRoom(room)
	g.broadcastSubmissions(room)

	return ackOK()
}

func (g *Gateway) leaveRoom(sess *session, raw json.RawMessage) Ack {
	var p RoomPayload
	if !decode(raw, &p) {
		return ackFail(CodeUnknown)
	}

	room, code := g.target(sess, p.RoomID, CodeNotInRoom)
	if code != "" {
		return ackFail(code)
	}

	playerID := sess.playerID

	room, err := g.store.RemovePlayer(room.ID, playerID)
	if err != nil {
		return ackFail(CodeNotInRoom)
	}

	roomID := sess.roomID
	sess.roomID, sess.playerID = "", ""

	g.log.Info().Str("room", roomID).Str("player", playerID).Msg("GAMES: Player left")

	if room != nil {
		g.broadcastRoom(room)
	}

	return ackOK()
}

// RoomExists reports whether a room is live.
func (g *Gateway) RoomExists(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.store.RoomExists(id)
}

// ReapRooms deletes rooms that have been empty for longer than timeout.
func (g *Gateway) ReapRooms(timeout time.Duration) []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	reaped := g.store.ReapEmpty(g.store.now().Add(-timeout))
	for _, id := range reaped {
		g.log.Info().Str("room", id).Msg("GAMES: Reaped empty room")
	}
	return reaped
}

// RunReaper calls ReapRooms every timeout/2 until ctx is done.
func (g *Gateway) RunReaper(ctx context.Context, timeout time.Duration) {
	if timeout <= 0 {
		return
	}

	ticker := time.NewTicker(timeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.ReapRooms(timeout)
		}
	}
}

// send queues a message for one session and drops the connection if it
// cannot take it. It runs after the event's mutation has been applied, so
// a misbehaving connection must not turn into a failed ack.
func (g *Gateway) send(sess *session, typ string, payload any) {
	if err := deliver(sess.conn, Message{Type: typ, Payload: payload}); err != nil {
		g.log.Warn().Err(err).Str("conn", sess.conn.ID()).Str("event", typ).Msg("GAMES: Dropping slow connection")
		sess.conn.Close()
	}
}

func deliver(c Conn, m Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("send panicked: %v", r)
		}
	}()

	return c.Send(m)
}

// forEachConnected calls fn for the live session of every connected
// player in the room, in join order.
func (g *Gateway) forEachConnected(room *Room, fn func(*session)) {
	for _, p := range room.Players() {
		if !p.Connected || p.SocketID == "" {
			continue
		}
		if sess := g.sessions[p.SocketID]; sess != nil && sess.roomID == room.ID {
			fn(sess)
		}
	}
}

func (g *Gateway) broadcastRoom(room *Room) {
	state := room.State()
	g.forEachConnected(room, func(s *session) {
		g.send(s, EventRoomState, state)
	})
}

func (g *Gateway) broadcastSubmissions(room *Room) {
	state := room.SubmissionsState()
	g.forEachConnected(room, func(s *session) {
		g.send(s, EventRoundSubmissions, state)
	})
}

func (g *Gateway) sendHand(room *Room, playerID string) {
	p := room.Player(playerID)
	if p == nil || !p.Connected {
		return
	}
	if sess := g.sessions[p.SocketID]; sess != nil {
		g.send(sess, EventHandState, room.HandState(playerID))
	}
}
