package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/KurisuuChan/medcore/internal/domains/notification/service"
)

// ================================================
// REALTIME HANDLER (WEBSOCKET TRANSPORT)
// ================================================
// Grounded on websocket_service.go's upgrade/writePump/ping shape, adapted
// to subscribe a single connection to the Realtime Bus for one user instead
// of running its own channel-based hub.

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

type realtimeHandler struct {
	bus      service.RealtimeBus
	upgrader websocket.Upgrader
}

func NewRealtimeHandler(bus service.RealtimeBus) RealtimeHandler {
	return &realtimeHandler{
		bus: bus,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Subscribe upgrades the connection and streams this user's notification
// events until the client disconnects.
func (h *realtimeHandler) Subscribe(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("realtime handler: upgrade failed")
		return
	}
	defer conn.Close()

	send := make(chan service.Event, 32)
	unsubscribe := h.bus.Subscribe(userID, func(event service.Event) {
		select {
		case send <- event:
		default:
			log.Warn().Str("user_id", userID.String()).Msg("realtime handler: client too slow, dropping event")
		}
	})
	defer unsubscribe()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case event := <-send:
			payload, err := json.Marshal(event)
			if err != nil {
				log.Error().Err(err).Msg("realtime handler: marshal event failed")
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
