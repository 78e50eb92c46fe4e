package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/sangkips/tillpoint/internal/application/service"
	"github.com/sangkips/tillpoint/internal/presentation/ws"
)

// WSHandler upgrades tills to the invoice push channel
type WSHandler struct {
	hub      *ws.Hub
	billing  *service.BillingService
	upgrader websocket.Upgrader
}

// NewWSHandler creates a websocket handler. allowedOrigins empty allows any origin.
func NewWSHandler(hub *ws.Hub, billing *service.BillingService, allowedOrigins []string) *WSHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &WSHandler{
		hub:     hub,
		billing: billing,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(allowed) == 0 || allowed[origin]
			},
		},
	}
}

// Serve upgrades the connection and sends the current invoice list first
func (h *WSHandler) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	if err := conn.WriteJSON(ws.Message{Type: ws.MessageInvoicesSnapshot, Data: h.billing.Book()}); err != nil {
		conn.Close()
		return
	}
	h.hub.Attach(conn)
}
