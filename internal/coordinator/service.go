// internal/coordinator/service.go
package coordinator

import (
	"context"

	"github.com/jason-s-yu/pileup/internal/game"
	"github.com/jason-s-yu/pileup/internal/models"
	"github.com/jason-s-yu/pileup/internal/room"
	"github.com/sirupsen/logrus"
)

// RoomSummary is the public description of a room served over HTTP.
type RoomSummary struct {
	RoomID      string            `json:"roomId"`
	PlayerCount int               `json:"playerCount"`
	MaxPlayers  int               `json:"maxPlayers"`
	IsStarted   bool              `json:"isStarted"`
	Status      models.GameStatus `json:"status"`
}

// Health reports resident rooms, live connections and backend reachability.
type Health struct {
	Status      string `json:"status"`
	Rooms       int    `json:"rooms"`
	Connections int    `json:"connections"`
	Store       string `json:"store"`
}

// CreateRoom allocates an empty room and returns its code.
func (c *Coordinator) CreateRoom(ctx context.Context) (string, error) {
	code, err := c.store.NewRoomCode(ctx)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	r := room.New(code, c.now())
	if !c.store.Add(r) {
		return "", room.ErrNoRoomCode
	}
	c.store.Persist(r, room.SelectAll)
	c.logger.WithField("room", code).Info("room created via api")
	return code, nil
}

func (c *Coordinator) RoomSummary(ctx context.Context, id string) (*RoomSummary, error) {
	r, err := c.load(ctx, id)
	if err != nil {
		return nil, err
	}
	defer c.mu.Unlock()
	return summarize(r), nil
}

// load makes room id resident, reading the backend if needed, and returns it
// with c.mu held. The caller unlocks.
func (c *Coordinator) load(ctx context.Context, id string) (*room.Room, error) {
	id = normalizeRoomID(id)
	if _, err := c.store.Get(ctx, id); err != nil {
		return nil, err
	}
	c.mu.Lock()
	r, ok := c.store.Resident(id)
	if !ok {
		c.mu.Unlock()
		return nil, room.ErrRoomNotFound
	}
	return r, nil
}

func summarize(r *room.Room) *RoomSummary {
	status := models.StatusWaiting
	if r.Game != nil {
		status = r.Game.Status
	}
	return &RoomSummary{
		RoomID:      r.ID,
		PlayerCount: len(r.Players),
		MaxPlayers:  r.MaxPlayers,
		IsStarted:   r.Started,
		Status:      status,
	}
}

// DealCards deals a new game to the room's roster and sends each connected
// player their hand. The game waits in cards_dealt until a starting player is
// selected.
func (c *Coordinator) DealCards(ctx context.Context, id string) (*RoomSummary, error) {
	r, err := c.load(ctx, id)
	if err != nil {
		return nil, err
	}
	defer c.mu.Unlock()

	if r.InProgress() {
		return nil, room.ErrGameInProgress
	}

	g, err := game.DealCards(r.ID, r.Roster(), c.rng)
	if err != nil {
		return nil, err
	}
	r.Game = g
	r.Started = true
	c.syncConnectivity(r)
	r.Touch(c.now())
	c.store.Persist(r, room.SelectAll)
	c.broadcastState(r)
	c.logger.WithFields(logrus.Fields{"room": r.ID, "players": len(g.Players)}).Info("cards dealt")
	return summarize(r), nil
}

func (c *Coordinator) Health(ctx context.Context) Health {
	stats := c.store.Stats()
	h := Health{Status: "ok", Rooms: stats.Rooms, Connections: stats.Connections, Store: "connected"}
	if err := c.store.Ping(ctx); err != nil {
		h.Store = "disconnected"
	}
	return h
}

// Sweep evicts idle rooms. It is run periodically by the scheduler.
func (c *Coordinator) Sweep(context.Context) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := c.store.Sweep(c.now())
	if len(ids) > 0 {
		c.logger.WithField("rooms", ids).Info("evicted idle rooms")
	}
	return ids
}
