// internal/handlers/ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/pileup/internal/coordinator"
	"github.com/jason-s-yu/pileup/internal/middleware"
	"github.com/jason-s-yu/pileup/internal/room"
	"github.com/sirupsen/logrus"
)

const (
	outboundBuffer = 32
	readLimit      = 64 << 10
	pingInterval   = 30 * time.Second
	writeTimeout   = 5 * time.Second
)

// WSHandler upgrades the request and runs one client session against coord
// until the socket closes.
func WSHandler(logger *logrus.Logger, coord *coordinator.Coordinator, originPatterns []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: originPatterns,
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")
		c.SetReadLimit(readLimit)

		conn := room.NewConnection(r.RemoteAddr, outboundBuffer)
		coord.Connect(conn)
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, conn.ID)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		go writePump(ctx, c, conn, logger)
		err = readPump(ctx, c, coord, conn, logger)

		coord.Disconnect(conn)
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, conn.ID, err)
	}
}

// readPump feeds text frames to the coordinator in arrival order. It returns
// the read error that ended the session, or nil on a normal close.
func readPump(ctx context.Context, c *websocket.Conn, coord *coordinator.Coordinator, conn *room.Connection, logger *logrus.Logger) error {
	for {
		typ, msg, err := c.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return nil
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		if typ != websocket.MessageText {
			logger.WithField("conn", conn.ID).Warnf("received non-text message type %d, ignoring", typ)
			continue
		}
		coord.HandleMessage(ctx, conn, msg)
	}
}

// writePump drains the connection's outbound queue onto the socket and keeps
// it alive with pings. It closes the socket when the connection is closed
// server-side so that readPump unblocks.
func writePump(ctx context.Context, c *websocket.Conn, conn *room.Connection, logger *logrus.Logger) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	log := logger.WithField("conn", conn.ID)

	for {
		select {
		case <-ctx.Done():
			return
		case <-conn.Done():
			_ = c.Close(SessionClosedCode, "session closed by server")
			return
		case msg := <-conn.OutChan:
			data, err := json.Marshal(msg)
			if err != nil {
				log.Warnf("failed to marshal outgoing msg: %v", err)
				continue
			}

			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				log.Warnf("failed to write to websocket: %v", err)
				conn.Close()
				_ = c.CloseNow()
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				log.Warnf("failed to send ping: %v. Assuming disconnect.", err)
				conn.Close()
				_ = c.Close(websocket.StatusGoingAway, "ping failed")
				return
			}
		}
	}
}
