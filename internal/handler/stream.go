package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Stream handles GET /location/ws. Each gate change is written as a JSON
// text message until the client disconnects.
func (h *LocationHandler) Stream(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Debug().Err(err).Msg("handler: websocket upgrade failed")
		return
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Inbound messages are ignored; reading detects the close.
	go func() {
		defer cancel()
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for st := range h.gate.Watch(ctx) {
		ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := ws.WriteJSON(st); err != nil {
			log.Debug().Err(err).Msg("handler: websocket write failed")
			return
		}
	}
}
