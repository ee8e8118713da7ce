// internal/coordinator/messages.go
package coordinator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jason-s-yu/pileup/internal/models"
)

// Inbound is one decoded client message. The set of implementations is closed;
// HandleMessage switches over all of them.
type Inbound interface {
	inbound()
}

type CreateRoomMsg struct {
	PlayerID   string
	PlayerName string
}

type JoinRoomMsg struct {
	RoomID     string
	PlayerID   string
	PlayerName string
}

type GameActionMsg struct {
	Action models.GameAction
}

type ChatMsg struct {
	Message string
	IsHint  bool
}

type LeaveRoomMsg struct{}

// SelectStartingPlayerMsg with an empty PlayerID asks for automatic selection.
type SelectStartingPlayerMsg struct {
	PlayerID string
}

type PingMsg struct{}

func (CreateRoomMsg) inbound()           {}
func (JoinRoomMsg) inbound()             {}
func (GameActionMsg) inbound()           {}
func (ChatMsg) inbound()                 {}
func (LeaveRoomMsg) inbound()            {}
func (SelectStartingPlayerMsg) inbound() {}
func (PingMsg) inbound()                 {}

// ProtocolError reports a malformed or unknown envelope.
type ProtocolError struct {
	Message string
}

func (e *ProtocolError) Error() string { return e.Message }

func protocolErrorf(format string, args ...any) *ProtocolError {
	return &ProtocolError{Message: fmt.Sprintf(format, args...)}
}

type chatBody struct {
	Message string `json:"message"`
	IsHint  bool   `json:"isHint"`
}

type envelope struct {
	Type             string             `json:"type"`
	RoomID           string             `json:"roomId"`
	PlayerID         string             `json:"playerId"`
	PlayerName       string             `json:"playerName"`
	Action           *models.GameAction `json:"action"`
	Message          *chatBody          `json:"message"`
	StartingPlayerID string             `json:"startingPlayerId"`
}

// DecodeInbound parses and validates a raw client message. Every failure is a *ProtocolError.
func DecodeInbound(raw []byte) (Inbound, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, protocolErrorf("invalid JSON format")
	}

	playerID := strings.TrimSpace(env.PlayerID)
	playerName := strings.TrimSpace(env.PlayerName)

	switch env.Type {
	case "create_room":
		if playerID == "" || playerName == "" {
			return nil, protocolErrorf("create_room requires playerId and playerName")
		}
		return CreateRoomMsg{PlayerID: playerID, PlayerName: playerName}, nil

	case "join_room":
		roomID := normalizeRoomID(env.RoomID)
		if roomID == "" || playerID == "" || playerName == "" {
			return nil, protocolErrorf("join_room requires roomId, playerId and playerName")
		}
		return JoinRoomMsg{RoomID: roomID, PlayerID: playerID, PlayerName: playerName}, nil

	case "game_action":
		if env.Action == nil {
			return nil, protocolErrorf("game_action requires action")
		}
		switch env.Action.Type {
		case models.ActionPlayCard, models.ActionEndTurn, models.ActionUndoMove:
		default:
			return nil, protocolErrorf("unknown action type: %q", env.Action.Type)
		}
		return GameActionMsg{Action: *env.Action}, nil

	case "chat_message":
		if env.Message == nil || strings.TrimSpace(env.Message.Message) == "" {
			return nil, protocolErrorf("chat_message requires message.message")
		}
		return ChatMsg{Message: env.Message.Message, IsHint: env.Message.IsHint}, nil

	case "leave_room":
		return LeaveRoomMsg{}, nil

	case "select_starting_player":
		return SelectStartingPlayerMsg{PlayerID: strings.TrimSpace(env.StartingPlayerID)}, nil

	case "ping":
		return PingMsg{}, nil

	case "":
		return nil, protocolErrorf("message type is required")
	}
	return nil, protocolErrorf("unknown message type: %q", env.Type)
}

func normalizeRoomID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// Outbound message types.
const (
	TypeRoomCreated        = "room_created"
	TypeRoomJoined         = "room_joined"
	TypePlayerJoined       = "player_joined"
	TypePlayerLeft         = "player_left"
	TypePlayerDisconnected = "player_disconnected"
	TypePlayerReconnected  = "player_reconnected"
	TypeGameStateUpdate    = "game_state_update"
	TypeChatMessage        = "chat_message"
	TypeGameError          = "game_error"
	TypeError              = "error"
	TypePong               = "pong"
)

type RoomCreated struct {
	Type     string              `json:"type"`
	RoomID   string              `json:"roomId"`
	PlayerID string              `json:"playerId"`
	Players  []models.PlayerInfo `json:"players"`
}

type RoomJoined struct {
	Type     string               `json:"type"`
	RoomID   string               `json:"roomId"`
	PlayerID string               `json:"playerId"`
	Players  []models.PlayerInfo  `json:"players"`
	Chat     []models.ChatMessage `json:"chat"`
	Rejoined bool                 `json:"rejoined"`
}

// PlayerEvent covers player_joined, player_left, player_disconnected and player_reconnected.
type PlayerEvent struct {
	Type       string              `json:"type"`
	PlayerID   string              `json:"playerId"`
	PlayerName string              `json:"playerName,omitempty"`
	Players    []models.PlayerInfo `json:"players,omitempty"`
}

type GameStateUpdate struct {
	Type      string                  `json:"type"`
	GameState *models.ClientGameState `json:"gameState"`
	Chat      []models.ChatMessage    `json:"chat"`
}

type ChatBroadcast struct {
	Type    string             `json:"type"`
	Message models.ChatMessage `json:"message"`
}

type GameError struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type Pong struct {
	Type string `json:"type"`
}
