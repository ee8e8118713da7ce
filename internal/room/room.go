// internal/room/room.go
package room

import (
	"errors"
	"sort"
	"time"

	"github.com/jason-s-yu/pileup/internal/models"
)

// MaxPlayers is the seat limit of a room.
const MaxPlayers = 5

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrRoomFull       = errors.New("room is full")
	ErrGameInProgress = errors.New("game already in progress")
)

// PlayerEntry is a roster entry. JoinedAt fixes the seating order.
type PlayerEntry struct {
	models.PlayerInfo
	JoinedAt time.Time `json:"joinedAt"`
}

// Room groups up to MaxPlayers players around one game.
//
// A Room is not safe for concurrent use. The coordinator serializes every
// handler that touches a room, so fields are read and written without locks.
type Room struct {
	ID   string
	Game *models.GameState

	// Players survives disconnects; Connections only holds live sockets.
	Players     map[string]PlayerEntry
	Connections map[string]*Connection

	Chat         []models.ChatMessage
	MaxPlayers   int
	Started      bool
	CreatedAt    time.Time
	LastActivity time.Time
}

// New returns an empty room created at now.
func New(id string, now time.Time) *Room {
	return &Room{
		ID:           id,
		Players:      make(map[string]PlayerEntry),
		Connections:  make(map[string]*Connection),
		Chat:         []models.ChatMessage{},
		MaxPlayers:   MaxPlayers,
		CreatedAt:    now,
		LastActivity: now,
	}
}

// Touch refreshes the activity timestamp.
func (r *Room) Touch(now time.Time) {
	if now.After(r.LastActivity) {
		r.LastActivity = now
	}
}

// HasPlayer reports whether id is on the roster.
func (r *Room) HasPlayer(id string) bool {
	_, ok := r.Players[id]
	return ok
}

// IsFull reports whether every seat is taken.
func (r *Room) IsFull() bool {
	return len(r.Players) >= r.MaxPlayers
}

// AddPlayer puts a player on the roster. An existing entry keeps its seat but takes the new name.
func (r *Room) AddPlayer(info models.PlayerInfo, now time.Time) {
	if e, ok := r.Players[info.ID]; ok {
		e.Name = info.Name
		r.Players[info.ID] = e
		return
	}
	r.Players[info.ID] = PlayerEntry{PlayerInfo: info, JoinedAt: now}
}

// RemovePlayer drops a player from the roster and the connection map.
func (r *Room) RemovePlayer(id string) {
	delete(r.Players, id)
	delete(r.Connections, id)
}

// Roster returns the players in seating order.
func (r *Room) Roster() []models.PlayerInfo {
	entries := r.entries()
	out := make([]models.PlayerInfo, len(entries))
	for i, e := range entries {
		out[i] = e.PlayerInfo
	}
	return out
}

func (r *Room) entries() []PlayerEntry {
	entries := make([]PlayerEntry, 0, len(r.Players))
	for _, e := range r.Players {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].JoinedAt.Equal(entries[j].JoinedAt) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].JoinedAt.Before(entries[j].JoinedAt)
	})
	return entries
}

// AppendChat adds a message and keeps only the last MaxChatMessages.
func (r *Room) AppendChat(msg models.ChatMessage) {
	r.Chat = append(r.Chat, msg)
	if over := len(r.Chat) - models.MaxChatMessages; over > 0 {
		r.Chat = append([]models.ChatMessage(nil), r.Chat[over:]...)
	}
}

// InProgress reports whether the room has a dealt game that has not finished.
func (r *Room) InProgress() bool {
	if r.Game == nil || !r.Started {
		return false
	}
	switch r.Game.Status {
	case models.StatusCardsDealt, models.StatusPlaying:
		return true
	}
	return false
}

// Disposable reports whether the room can leave memory: nobody is connected
// and no game is in progress. A finished game is kept in the store only.
func (r *Room) Disposable() bool {
	return len(r.Connections) == 0 && !r.InProgress()
}

// Broadcast writes build(playerID) to every open connection except the one
// belonging to skip. Connections found closed are removed from the room and
// returned as pruned; open connections whose outbound buffer was full are
// returned as dropped.
func (r *Room) Broadcast(build func(playerID string) any, skip string) (pruned, dropped []*Connection) {
	ids := make([]string, 0, len(r.Connections))
	for id := range r.Connections {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		conn := r.Connections[id]
		if !conn.IsOpen() {
			delete(r.Connections, id)
			pruned = append(pruned, conn)
			continue
		}
		if id == skip {
			continue
		}
		if !conn.Write(build(id)) {
			dropped = append(dropped, conn)
		}
	}
	return pruned, dropped
}
