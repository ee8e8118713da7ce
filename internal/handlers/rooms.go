// internal/handlers/rooms.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jason-s-yu/pileup/internal/coordinator"
	"github.com/jason-s-yu/pileup/internal/game"
	"github.com/jason-s-yu/pileup/internal/room"
	"github.com/sirupsen/logrus"
)

type createRoomResponse struct {
	RoomID string `json:"roomId"`
}

// CreateRoomHandler allocates an empty room and returns its code.
func CreateRoomHandler(coord *coordinator.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code, err := coord.CreateRoom(r.Context())
		if err != nil {
			http.Error(w, "could not create room", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusCreated, createRoomResponse{RoomID: code})
	}
}

// RoomSummaryHandler serves GET /api/rooms/{id}.
func RoomSummaryHandler(coord *coordinator.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := coord.RoomSummary(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeRoomError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

// DealCardsHandler serves POST /api/rooms/{id}/deal. The room moves to
// cards_dealt and every connected player receives their hand.
func DealCardsHandler(coord *coordinator.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := coord.DealCards(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeRoomError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

// HealthHandler reports room and connection counts and store connectivity.
// A disconnected store still answers 200 since the server keeps serving from memory.
func HealthHandler(coord *coordinator.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, coord.Health(r.Context()))
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeRoomError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var re *game.RuleError
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		status = http.StatusNotFound
	case errors.Is(err, room.ErrGameInProgress):
		status = http.StatusConflict
	case errors.As(err, &re):
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, errorResponse{Code: coordinator.ErrorCode(err), Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Warnf("failed to encode response: %v", err)
	}
}
