// internal/room/record.go
package room

import (
	"time"

	"github.com/jason-s-yu/pileup/internal/models"
)

// Selector picks which parts of a room a Persist call writes.
type Selector uint8

const (
	SelectMetadata Selector = 1 << iota
	SelectPlayers
	SelectGame
	SelectChat

	SelectAll = SelectMetadata | SelectPlayers | SelectGame | SelectChat
)

// Has reports whether every part in part is selected.
func (s Selector) Has(part Selector) bool { return s&part == part }

// Metadata is the persisted room header.
type Metadata struct {
	ID           string    `json:"id"`
	MaxPlayers   int       `json:"maxPlayers"`
	IsStarted    bool      `json:"isStarted"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
}

// Record is the persisted shape of a room. Connections are never part of it.
// Metadata is always set on records built by Room.Record since it keys the
// record; a nil Players, Game or Chat means the part was not selected or not found.
type Record struct {
	Metadata *Metadata
	Players  []PlayerEntry
	Game     *models.GameState
	Chat     []models.ChatMessage
}

// Record captures the selected parts of r.
func (r *Room) Record(sel Selector) *Record {
	rec := &Record{
		Metadata: &Metadata{
			ID:           r.ID,
			MaxPlayers:   r.MaxPlayers,
			IsStarted:    r.Started,
			CreatedAt:    r.CreatedAt,
			LastActivity: r.LastActivity,
		},
	}
	if sel.Has(SelectPlayers) {
		rec.Players = r.entries()
	}
	if sel.Has(SelectGame) {
		rec.Game = r.Game
	}
	if sel.Has(SelectChat) {
		rec.Chat = append([]models.ChatMessage{}, r.Chat...)
	}
	return rec
}

// fromRecord rebuilds a room with an empty connection map.
func fromRecord(rec *Record) *Room {
	m := rec.Metadata
	r := New(m.ID, m.CreatedAt)
	r.LastActivity = m.LastActivity
	r.Started = m.IsStarted
	if m.MaxPlayers > 0 {
		r.MaxPlayers = m.MaxPlayers
	}
	for _, e := range rec.Players {
		r.Players[e.ID] = e
	}
	r.Game = rec.Game
	if rec.Chat != nil {
		r.Chat = rec.Chat
	}
	return r
}

// hydrate merges a stored record into the resident room r.
//
// The stored roster replaces the in-memory one, except that players holding
// an open connection are always kept. The stored game wins only when it is
// newer. Connection entries for players no longer on the roster are unbound
// and dropped.
func (r *Room) hydrate(rec *Record) {
	if m := rec.Metadata; m != nil {
		if !m.CreatedAt.IsZero() && m.CreatedAt.Before(r.CreatedAt) {
			r.CreatedAt = m.CreatedAt
		}
		r.Touch(m.LastActivity)
		r.Started = r.Started || m.IsStarted
	}

	if rec.Players != nil {
		players := make(map[string]PlayerEntry, len(rec.Players))
		for _, e := range rec.Players {
			players[e.ID] = e
		}
		for id, e := range r.Players {
			if c, ok := r.Connections[id]; ok && c.IsOpen() {
				if _, stored := players[id]; !stored {
					players[id] = e
				}
			}
		}
		r.Players = players
	}

	if rec.Game != nil && (r.Game == nil || rec.Game.LastActivity.After(r.Game.LastActivity)) {
		r.Game = rec.Game
	}

	if len(r.Chat) == 0 && len(rec.Chat) > 0 {
		r.Chat = rec.Chat
	}

	for pid, c := range r.Connections {
		if _, ok := r.Players[pid]; !ok {
			c.unbind()
			delete(r.Connections, pid)
		}
	}
}
