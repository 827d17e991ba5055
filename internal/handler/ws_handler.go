package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/weiawesome/wes-io-chat/internal/config"
	"github.com/weiawesome/wes-io-chat/internal/hub"
	"github.com/weiawesome/wes-io-chat/internal/service"
	"github.com/weiawesome/wes-io-chat/pkg/log"
	"github.com/weiawesome/wes-io-chat/pkg/middleware"
	"github.com/weiawesome/wes-io-chat/pkg/response"
)

// WSHandler upgrades room watchers to WebSocket connections fed by the hub.
type WSHandler struct {
	hub         *hub.Hub
	roomService service.RoomService
	wsCfg       config.WebSocketConfig
	upgrader    websocket.Upgrader
}

func NewWSHandler(h *hub.Hub, roomService service.RoomService, wsCfg config.WebSocketConfig) *WSHandler {
	return &WSHandler{
		hub:         h,
		roomService: roomService,
		wsCfg:       wsCfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Mobile clients send no Origin; browser origins are governed by CORS.
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (h *WSHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/api/v1/rooms/:id/ws", middleware.RequireDevice(), h.HandleWebSocket)
}

// HandleWebSocket checks the room exists, then upgrades and attaches the
// connection to the hub.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	roomID := c.Param("id")
	deviceID := middleware.GetDeviceID(c)

	room, err := h.roomService.Get(ctx, roomID)
	if err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to get room for websocket")
		response.InternalError(c, "failed to get room")
		return
	}
	if room == nil {
		response.NotFound(c, "room not found")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		l.Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.New().String(), room.ID, deviceID, h.hub, conn, h.wsCfg)
	h.hub.Register(client)

	l.Debug().Str("client_id", client.ID).Str(log.FieldRoomID, room.ID).Msg("websocket connected")

	go client.WritePump()
	go client.ReadPump()
}
