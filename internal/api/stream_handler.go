package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// StreamHandler pushes newly created articles to websocket clients
type StreamHandler struct {
	stream   Subscriber
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// NewStreamHandler creates a new StreamHandler
func NewStreamHandler(stream Subscriber, log zerolog.Logger) *StreamHandler {
	return &StreamHandler{
		stream: stream,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log.With().Str("handler", "stream").Logger(),
	}
}

// Serve handles GET /ws. Each connection owns one subscription, closed when
// the client goes away or a write fails.
func (h *StreamHandler) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		h.log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	sub := h.stream.Subscribe()
	defer sub.Close()

	log := h.log.With().Str("remote", c.ClientIP()).Logger()
	log.Info().Msg("Subscriber connected")

	// Clients never send data; reading only drives pong handling and close detection
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
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
		case article, ok := <-sub.C:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(article); err != nil {
				log.Warn().Err(err).Msg("Write to subscriber failed")
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-gone:
			log.Info().Int("dropped", sub.Dropped()).Msg("Subscriber disconnected")
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}
