// internal/room/store.go
package room

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 6
	codeAttempts = 20
)

// ErrNoRoomCode is returned when no unused room code could be drawn.
var ErrNoRoomCode = errors.New("could not allocate a unique room code")

// Store owns the in-memory rooms and connections and keeps them in step with
// the durable Backend. The backend is a best-effort replica: it is read on a
// cache miss and written in the background after state changes, and its
// failures never reach gameplay.
type Store struct {
	mu    sync.Mutex
	rooms map[string]*Room
	conns map[string]*Connection

	backend     Backend
	writes      *writer
	logger      *logrus.Logger
	timeout     time.Duration
	idleTimeout time.Duration
}

// NewStore returns an empty store and starts its background writer. timeout
// bounds each backend call and idleTimeout is the inactivity threshold used
// by Sweep. Call Close to stop the writer.
func NewStore(backend Backend, logger *logrus.Logger, timeout, idleTimeout time.Duration) *Store {
	return &Store{
		rooms:       make(map[string]*Room),
		conns:       make(map[string]*Connection),
		backend:     backend,
		writes:      newWriter(backend, logger, timeout),
		logger:      logger,
		timeout:     timeout,
		idleTimeout: idleTimeout,
	}
}

func (s *Store) log(roomID string) *logrus.Entry {
	return s.logger.WithField("room", roomID)
}

// Get returns the resident room, or rehydrates it from the backend with an
// empty connection map. A room that cannot be found or loaded yields
// ErrRoomNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Room, error) {
	if r, ok := s.Resident(id); ok {
		return r, nil
	}
	rec, err := s.Fetch(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrRecordNotFound) {
			s.log(id).WithError(err).Warn("room store unavailable, treating room as missing")
		}
		return nil, ErrRoomNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Another caller may have loaded or created the room while we were reading.
	if r, ok := s.rooms[id]; ok {
		return r, nil
	}
	return s.adoptLocked(rec), nil
}

// Fetch reads the record for id as the backend will hold it once queued
// writes land. It returns ErrRecordNotFound when there is none.
func (s *Store) Fetch(ctx context.Context, id string) (*Record, error) {
	op := s.writes.unwritten(id)

	var rec *Record
	if op == nil || !op.covers() {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		loaded, err := s.backend.Load(ctx, id)
		cancel()
		if err != nil && !errors.Is(err, ErrRecordNotFound) {
			return nil, err
		}
		rec = loaded
	}
	if op != nil {
		rec = op.applyTo(rec)
	}
	if rec == nil || rec.Metadata == nil {
		return nil, ErrRecordNotFound
	}
	return rec, nil
}

// Reconcile resolves room id against a record fetched for it, without
// touching the backend. A resident room is hydrated from rec unless it still
// has writes owed to the backend, in which case memory is the newer copy. A
// missing room is rebuilt from rec. rec may be nil when nothing was stored
// or the backend could not be read.
func (s *Store) Reconcile(id string, rec *Record) (*Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.rooms[id]; ok {
		if rec != nil && s.writes.unwritten(id) == nil {
			r.hydrate(rec)
		}
		return r, nil
	}
	if rec == nil {
		return nil, ErrRoomNotFound
	}
	return s.adoptLocked(rec), nil
}

func (s *Store) adoptLocked(rec *Record) *Room {
	r := fromRecord(rec)
	s.rooms[r.ID] = r
	s.log(r.ID).WithField("players", len(r.Players)).Info("room rehydrated from store")
	return r
}

// Resident returns a room only if it is already in memory.
func (s *Store) Resident(id string) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	return r, ok
}

// Add makes r resident. It reports false, keeping the existing room, when
// the id is already in use.
func (s *Store) Add(r *Room) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rooms[r.ID]; exists {
		s.log(r.ID).Warn("attempted to add room which already exists")
		return false
	}
	s.rooms[r.ID] = r
	return true
}

// Evict drops a room from memory, leaving the durable record in place.
// Any connections still attached to it are unbound and closed.
func (s *Store) Evict(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked(id)
}

func (s *Store) evictLocked(id string) bool {
	r, ok := s.rooms[id]
	if !ok {
		return false
	}
	for pid, c := range r.Connections {
		c.unbind()
		c.Close()
		delete(r.Connections, pid)
	}
	delete(s.rooms, id)
	s.log(id).Info("room evicted from memory")
	return true
}

// Persist snapshots the selected parts of r and queues them for the backend.
// It never blocks on the backend; failures are logged by the writer.
func (s *Store) Persist(r *Room, sel Selector) {
	s.writes.enqueue(r.ID, &writeOp{rec: r.Record(sel), sel: sel})
}

// Flush waits for queued writes to be attempted and returns the most recent
// write failure since the last Flush.
func (s *Store) Flush(ctx context.Context) error {
	return s.writes.flush(ctx)
}

// Close stops the background writer. Writes still queued are dropped, so
// call Flush first.
func (s *Store) Close() {
	s.writes.close()
}

// Sweep evicts every room idle for longer than the idle timeout and queues
// their removal from the backend. It returns the evicted ids.
func (s *Store) Sweep(now time.Time) []string {
	s.mu.Lock()
	var ids []string
	for id, r := range s.rooms {
		if now.Sub(r.LastActivity) > s.idleTimeout {
			ids = append(ids, id)
		}
	}
	for _, id := range ids {
		s.evictLocked(id)
	}
	s.mu.Unlock()

	sort.Strings(ids)
	for _, id := range ids {
		s.writes.enqueue(id, &writeOp{del: true})
	}
	return ids
}

// NewRoomCode draws a 6-character uppercase alphanumeric code that is not
// used by a resident room or a stored one. When the backend cannot be
// reached only memory is checked.
func (s *Store) NewRoomCode(ctx context.Context) (string, error) {
	for i := 0; i < codeAttempts; i++ {
		code, err := randomCode()
		if err != nil {
			return "", err
		}

		s.mu.Lock()
		_, taken := s.rooms[code]
		s.mu.Unlock()
		if taken {
			continue
		}

		ectx, cancel := context.WithTimeout(ctx, s.timeout)
		exists, err := s.backend.Exists(ectx, code)
		cancel()
		if err != nil {
			s.logger.WithError(err).Warn("room store unavailable, room code checked against memory only")
		}
		if !exists {
			return code, nil
		}
	}
	return "", ErrNoRoomCode
}

func randomCode() (string, error) {
	limit := big.NewInt(int64(len(codeAlphabet)))
	b := make([]byte, codeLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b[i] = codeAlphabet[n.Int64()]
	}
	return string(b), nil
}

// Register tracks a newly accepted connection.
func (s *Store) Register(c *Connection) {
	s.mu.Lock()
	s.conns[c.ID] = c
	s.mu.Unlock()
}

// Unregister forgets a connection entirely.
func (s *Store) Unregister(c *Connection) {
	s.mu.Lock()
	delete(s.conns, c.ID)
	s.mu.Unlock()
}

// Connection looks up a registered connection by id.
func (s *Store) Connection(id string) (*Connection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conns[id]
	return c, ok
}

// BindConnection attaches c to playerID in r. A previous connection for the
// same player is unbound and closed; it is returned so the caller can log it.
func (s *Store) BindConnection(r *Room, playerID string, c *Connection) *Connection {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.unbindLocked(c)
	old := r.Connections[playerID]
	if old == c {
		old = nil
	}
	if old != nil {
		old.unbind()
		old.Close()
	}
	r.Connections[playerID] = c
	c.bind(playerID, r.ID)
	s.conns[c.ID] = c
	return old
}

// UnbindConnection detaches c from whatever room it is bound to. The room's
// connection entry is only cleared if it still points at c.
func (s *Store) UnbindConnection(c *Connection) (playerID, roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unbindLocked(c)
}

func (s *Store) unbindLocked(c *Connection) (playerID, roomID string) {
	playerID, roomID, ok := c.Binding()
	if !ok {
		return "", ""
	}
	if r, ok := s.rooms[roomID]; ok && r.Connections[playerID] == c {
		delete(r.Connections, playerID)
	}
	c.unbind()
	return playerID, roomID
}

// Stats counts resident rooms and registered connections.
type Stats struct {
	Rooms       int `json:"rooms"`
	Connections int `json:"connections"`
}

func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{Rooms: len(s.rooms), Connections: len(s.conns)}
}

// Ping checks that the backend is reachable.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.backend.Ping(ctx)
}
