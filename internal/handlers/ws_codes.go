// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes. These give clients a more specific reason for
// closure than the standard codes.
const (
	// SessionClosedCode: the server ended this socket's session, either because
	// the same player connected again elsewhere or because the room was evicted.
	SessionClosedCode = 3004
)
