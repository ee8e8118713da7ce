// internal/room/connection.go
package room

import (
	"sync"

	"github.com/google/uuid"
)

// Connection is one live client socket. The transport drains OutChan; the
// coordinator only ever writes to it through Write.
type Connection struct {
	ID         string
	RemoteAddr string
	OutChan    chan any

	done      chan struct{}
	closeOnce sync.Once

	mu       sync.Mutex
	playerID string
	roomID   string
}

// NewConnection returns an unbound connection with an outbound buffer of size buf.
func NewConnection(remoteAddr string, buf int) *Connection {
	return &Connection{
		ID:         uuid.NewString(),
		RemoteAddr: remoteAddr,
		OutChan:    make(chan any, buf),
		done:       make(chan struct{}),
	}
}

// Write pushes msg onto OutChan without blocking. It returns false when the
// connection is closed or the buffer is full and the message was dropped.
func (c *Connection) Write(msg any) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.OutChan <- msg:
		return true
	default:
		return false
	}
}

// Close marks the connection closed. OutChan itself is never closed so a
// late Write cannot panic.
func (c *Connection) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Done is closed once the connection is closed.
func (c *Connection) Done() <-chan struct{} { return c.done }

func (c *Connection) IsOpen() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// Binding returns the player and room this connection is bound to, if any.
func (c *Connection) Binding() (playerID, roomID string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playerID, c.roomID, c.roomID != ""
}

func (c *Connection) bind(playerID, roomID string) {
	c.mu.Lock()
	c.playerID, c.roomID = playerID, roomID
	c.mu.Unlock()
}

func (c *Connection) unbind() {
	c.mu.Lock()
	c.playerID, c.roomID = "", ""
	c.mu.Unlock()
}
