// internal/coordinator/coordinator.go
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/pileup/internal/game"
	"github.com/jason-s-yu/pileup/internal/models"
	"github.com/jason-s-yu/pileup/internal/room"
	"github.com/sirupsen/logrus"
)

// Coordinator binds connections to players in rooms and turns their messages
// into rules engine calls and broadcasts.
//
// Every handler runs under one mutex, so room and game state is only ever
// touched by one handler at a time and messages from a single connection are
// applied in the order they were read. The lock is never held across backend
// I/O: reads happen before it is taken and writes are queued by the store.
type Coordinator struct {
	mu     sync.Mutex
	store  *room.Store
	logger *logrus.Logger
	rng    *rand.Rand
	now    func() time.Time
}

// New returns a coordinator over store. rng drives every shuffle; pass
// game.NewRand() in production.
func New(store *room.Store, logger *logrus.Logger, rng *rand.Rand) *Coordinator {
	return &Coordinator{
		store:  store,
		logger: logger,
		rng:    rng,
		now:    time.Now,
	}
}

func (c *Coordinator) log(conn *room.Connection) *logrus.Entry {
	fields := logrus.Fields{"conn": conn.ID}
	if pid, rid, ok := conn.Binding(); ok {
		fields["player"] = pid
		fields["room"] = rid
	}
	return c.logger.WithFields(fields)
}

// Connect registers a newly accepted connection.
func (c *Coordinator) Connect(conn *room.Connection) {
	c.store.Register(conn)
}

// HandleMessage decodes raw and applies it on behalf of conn. Protocol
// errors and rule violations are reported to conn only.
func (c *Coordinator) HandleMessage(ctx context.Context, conn *room.Connection, raw []byte) {
	msg, err := DecodeInbound(raw)
	if err != nil {
		c.log(conn).WithError(err).Debug("rejected inbound message")
		c.send(conn, ErrorMessage{Type: TypeError, Message: err.Error()})
		return
	}
	if _, ok := msg.(PingMsg); ok {
		c.send(conn, Pong{Type: TypePong})
		return
	}

	// Backend reads happen here, before the lock.
	var (
		code string
		rec  *room.Record
	)
	switch m := msg.(type) {
	case CreateRoomMsg:
		code, err = c.store.NewRoomCode(ctx)
	case JoinRoomMsg:
		rec = c.fetch(ctx, m.RoomID)
	}
	if err != nil {
		c.reply(conn, err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch m := msg.(type) {
	case CreateRoomMsg:
		err = c.createRoom(conn, m, code)
	case JoinRoomMsg:
		err = c.joinRoom(conn, m, rec)
	case GameActionMsg:
		err = c.gameAction(conn, m)
	case ChatMsg:
		err = c.chat(conn, m)
	case LeaveRoomMsg:
		err = c.leaveRoom(conn)
	case SelectStartingPlayerMsg:
		err = c.selectStartingPlayer(conn, m)
	default:
		err = protocolErrorf("unhandled message type %T", msg)
	}
	if err != nil {
		c.reply(conn, err)
	}
}

// fetch reads the stored record for a room. A missing record or an
// unreachable store both yield nil.
func (c *Coordinator) fetch(ctx context.Context, id string) *room.Record {
	rec, err := c.store.Fetch(ctx, id)
	if err != nil {
		if !errors.Is(err, room.ErrRecordNotFound) {
			c.logger.WithField("room", id).WithError(err).Warn("room store unavailable, using memory only")
		}
		return nil
	}
	return rec
}

// send writes msg to conn, logging when an open connection's buffer is full.
func (c *Coordinator) send(conn *room.Connection, msg any) {
	if !conn.Write(msg) && conn.IsOpen() {
		c.log(conn).WithField("message", fmt.Sprintf("%T", msg)).Warn("outbound buffer full, message dropped")
	}
}

// reply sends err back to the originating connection only.
func (c *Coordinator) reply(conn *room.Connection, err error) {
	var pe *ProtocolError
	if errors.As(err, &pe) {
		c.send(conn, ErrorMessage{Type: TypeError, Message: pe.Message})
		return
	}
	code := ErrorCode(err)
	if code == CodeInternal {
		c.log(conn).WithError(err).Error("failed to handle message")
	}
	c.send(conn, GameError{Type: TypeGameError, Code: code, Message: err.Error()})
}

func (c *Coordinator) createRoom(conn *room.Connection, m CreateRoomMsg, code string) error {
	now := c.now()
	r := room.New(code, now)
	r.AddPlayer(models.PlayerInfo{ID: m.PlayerID, Name: m.PlayerName}, now)
	if !c.store.Add(r) {
		return room.ErrNoRoomCode
	}
	c.detach(conn)
	c.store.BindConnection(r, m.PlayerID, conn)
	c.store.Persist(r, room.SelectAll)

	c.log(conn).Info("room created")
	c.send(conn, RoomCreated{Type: TypeRoomCreated, RoomID: r.ID, PlayerID: m.PlayerID, Players: r.Roster()})
	return nil
}

func (c *Coordinator) joinRoom(conn *room.Connection, m JoinRoomMsg, rec *room.Record) error {
	r, err := c.store.Reconcile(m.RoomID, rec)
	if err != nil {
		return err
	}

	rejoin := r.HasPlayer(m.PlayerID) || (r.Game != nil && game.HasPlayer(r.Game, m.PlayerID))
	if !rejoin {
		if r.IsFull() {
			return room.ErrRoomFull
		}
		if r.InProgress() {
			return room.ErrGameInProgress
		}
	}

	if pid, rid, ok := conn.Binding(); ok && (pid != m.PlayerID || rid != r.ID) {
		c.detach(conn)
	}

	now := c.now()
	r.AddPlayer(models.PlayerInfo{ID: m.PlayerID, Name: m.PlayerName}, now)
	if old := c.store.BindConnection(r, m.PlayerID, conn); old != nil {
		c.logger.WithFields(logrus.Fields{"room": r.ID, "player": m.PlayerID, "conn": old.ID}).
			Info("replaced existing connection")
	}
	c.syncConnectivity(r)
	r.Touch(now)
	c.store.Persist(r, room.SelectMetadata|room.SelectPlayers|room.SelectGame)

	roster := r.Roster()
	c.send(conn, RoomJoined{
		Type:     TypeRoomJoined,
		RoomID:   r.ID,
		PlayerID: m.PlayerID,
		Players:  roster,
		Chat:     r.Chat,
		Rejoined: rejoin,
	})

	event := PlayerEvent{Type: TypePlayerJoined, PlayerID: m.PlayerID, PlayerName: m.PlayerName, Players: roster}
	if rejoin {
		event.Type = TypePlayerReconnected
	}
	c.broadcast(r, func(string) any { return event }, m.PlayerID)
	if r.Game != nil {
		c.broadcastState(r)
	}

	c.log(conn).WithField("rejoin", rejoin).Info("player joined room")
	return nil
}

func (c *Coordinator) gameAction(conn *room.Connection, m GameActionMsg) error {
	pid, r, err := c.bound(conn)
	if err != nil {
		return err
	}
	if r.Game == nil {
		return game.ErrGameNotInProgress
	}

	var next *models.GameState
	switch m.Action.Type {
	case models.ActionPlayCard:
		next, err = game.PlayCard(r.Game, pid, m.Action.CardID, m.Action.PileID)
	case models.ActionEndTurn:
		if err = c.checkTurn(r.Game, pid); err == nil {
			next, err = game.EndTurn(r.Game)
		}
	case models.ActionUndoMove:
		if err = c.checkTurn(r.Game, pid); err == nil {
			next, err = game.UndoLastMove(r.Game)
		}
	default:
		err = protocolErrorf("unknown action type: %q", m.Action.Type)
	}
	if err != nil {
		return err
	}

	r.Game = next
	c.syncConnectivity(r)
	r.Touch(c.now())
	c.store.Persist(r, room.SelectMetadata|room.SelectGame)
	c.broadcastState(r)

	if s := r.Game.Status; s == models.StatusWon || s == models.StatusLost {
		c.log(conn).WithField("status", s).Info("game finished")
	}
	return nil
}

func (c *Coordinator) checkTurn(s *models.GameState, playerID string) error {
	if s.Status != models.StatusPlaying {
		return game.ErrGameNotInProgress
	}
	if s.CurrentPlayerID != playerID {
		return game.ErrNotYourTurn
	}
	return nil
}

func (c *Coordinator) chat(conn *room.Connection, m ChatMsg) error {
	pid, r, err := c.bound(conn)
	if err != nil {
		return err
	}

	now := c.now()
	msg := models.ChatMessage{
		ID:         uuid.NewString(),
		PlayerID:   pid,
		PlayerName: r.Players[pid].Name,
		Message:    m.Message,
		Timestamp:  now,
		IsHint:     m.IsHint,
	}
	r.AppendChat(msg)
	r.Touch(now)
	c.store.Persist(r, room.SelectMetadata|room.SelectChat)

	out := ChatBroadcast{Type: TypeChatMessage, Message: msg}
	c.broadcast(r, func(string) any { return out }, "")
	return nil
}

func (c *Coordinator) leaveRoom(conn *room.Connection) error {
	if _, _, ok := conn.Binding(); !ok {
		return ErrNotInRoom
	}
	c.detach(conn)
	return nil
}

// detach removes the player bound to conn from their room, as an explicit
// leave does. It is a no-op for unbound connections.
func (c *Coordinator) detach(conn *room.Connection) {
	pid, rid := c.store.UnbindConnection(conn)
	if pid == "" {
		return
	}
	if r, ok := c.store.Resident(rid); ok {
		c.removePlayer(r, pid)
	}
}

func (c *Coordinator) removePlayer(r *room.Room, pid string) {
	r.RemovePlayer(pid)
	if r.Game != nil {
		r.Game = game.SetPlayerConnected(r.Game, pid, false)
	}
	r.Touch(c.now())

	c.logger.WithFields(logrus.Fields{"room": r.ID, "player": pid}).Info("player left room")
	if r.Disposable() {
		c.store.Persist(r, room.SelectAll)
		c.store.Evict(r.ID)
		return
	}
	c.store.Persist(r, room.SelectMetadata|room.SelectPlayers|room.SelectGame)

	event := PlayerEvent{Type: TypePlayerLeft, PlayerID: pid, Players: r.Roster()}
	c.broadcast(r, func(string) any { return event }, "")
	if r.Game != nil {
		c.broadcastState(r)
	}
}

func (c *Coordinator) selectStartingPlayer(conn *room.Connection, m SelectStartingPlayerMsg) error {
	_, r, err := c.bound(conn)
	if err != nil {
		return err
	}
	if r.Game == nil {
		return game.ErrNotAwaitingStart
	}
	next, err := game.SelectStartingPlayer(r.Game, m.PlayerID)
	if err != nil {
		return err
	}

	r.Game = next
	c.syncConnectivity(r)
	r.Touch(c.now())
	c.store.Persist(r, room.SelectMetadata|room.SelectGame)
	c.broadcastState(r)
	c.log(conn).WithField("starting", next.CurrentPlayerID).Info("game started")
	return nil
}

// Disconnect runs the lifecycle for a dropped socket. During a game the
// player keeps their seat and is marked disconnected; otherwise it is a leave.
// A connection that was already disconnected is ignored.
func (c *Coordinator) Disconnect(conn *room.Connection) {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn.Close()
	if _, ok := c.store.Connection(conn.ID); !ok {
		c.log(conn).Debug("connection already disconnected")
		return
	}
	c.store.Unregister(conn)

	pid, rid := c.store.UnbindConnection(conn)
	if pid == "" {
		return
	}
	r, ok := c.store.Resident(rid)
	if !ok {
		return
	}
	if !r.InProgress() {
		c.removePlayer(r, pid)
		return
	}

	r.Game = game.SetPlayerConnected(r.Game, pid, false)
	r.Touch(c.now())
	c.store.Persist(r, room.SelectMetadata|room.SelectGame)

	event := PlayerEvent{Type: TypePlayerDisconnected, PlayerID: pid}
	c.broadcast(r, func(string) any { return event }, "")
	c.broadcastState(r)
	c.logger.WithFields(logrus.Fields{"room": r.ID, "player": pid}).Info("player disconnected mid-game")
}

// bound resolves the player and room conn is bound to. A bound room is
// always resident; eviction unbinds its connections.
func (c *Coordinator) bound(conn *room.Connection) (string, *room.Room, error) {
	pid, rid, ok := conn.Binding()
	if !ok {
		return "", nil, ErrNotInRoom
	}
	r, ok := c.store.Resident(rid)
	if !ok || r.Connections[pid] != conn {
		return "", nil, ErrNotInRoom
	}
	return pid, r, nil
}

// syncConnectivity makes every seated player's connected flag match whether
// they hold an open connection.
func (c *Coordinator) syncConnectivity(r *room.Room) {
	if r.Game == nil {
		return
	}
	for _, p := range r.Game.Players {
		conn, ok := r.Connections[p.ID]
		r.Game = game.SetPlayerConnected(r.Game, p.ID, ok && conn.IsOpen())
	}
}

func (c *Coordinator) broadcast(r *room.Room, build func(playerID string) any, skip string) {
	pruned, dropped := r.Broadcast(build, skip)
	for _, conn := range pruned {
		c.logger.WithFields(logrus.Fields{"room": r.ID, "conn": conn.ID}).Debug("pruned closed connection")
	}
	for _, conn := range dropped {
		c.log(conn).Warn("outbound buffer full, broadcast dropped")
	}
}

// broadcastState sends every connected player their own masked view.
func (c *Coordinator) broadcastState(r *room.Room) {
	g, chat := r.Game, r.Chat
	c.broadcast(r, func(pid string) any {
		return GameStateUpdate{
			Type:      TypeGameStateUpdate,
			GameState: game.CreateClientGameState(g, pid),
			Chat:      chat,
		}
	}, "")
}
