package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/weiawesome/wes-io-chat/internal/domain"
	"github.com/weiawesome/wes-io-chat/internal/service"
	"github.com/weiawesome/wes-io-chat/pkg/log"
	"github.com/weiawesome/wes-io-chat/pkg/middleware"
	"github.com/weiawesome/wes-io-chat/pkg/response"
)

// Handler handles HTTP requests for rooms, messages and users.
type Handler struct {
	roomService    service.RoomService
	messageService service.MessageService
	userService    service.UserService
	deepLinkScheme string
	sendLimiter    *middleware.DeviceRateLimiter
}

// NewHandler creates a new HTTP handler. sendLimiter may be nil.
func NewHandler(
	roomService service.RoomService,
	messageService service.MessageService,
	userService service.UserService,
	deepLinkScheme string,
	sendLimiter *middleware.DeviceRateLimiter,
) *Handler {
	return &Handler{
		roomService:    roomService,
		messageService: messageService,
		userService:    userService,
		deepLinkScheme: deepLinkScheme,
		sendLimiter:    sendLimiter,
	}
}

// RegisterRoutes registers all routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	device := middleware.RequireDevice()

	sendChain := []gin.HandlerFunc{device}
	if h.sendLimiter != nil {
		sendChain = append(sendChain, h.sendLimiter.Handler())
	}
	sendChain = append(sendChain, h.SendMessage)

	api := r.Group("/api/v1")
	{
		users := api.Group("/users")
		{
			users.PUT("/me", device, h.UpsertMe)
			users.GET("/:device_id", h.GetUser)
		}

		rooms := api.Group("/rooms")
		{
			// Public routes
			rooms.GET("/public", h.ListPublicRooms)

			// Device session routes
			rooms.POST("", device, h.CreateRoom)
			rooms.GET("", device, h.ListMyRooms)
			rooms.POST("/join-link", device, h.JoinByLink)
			rooms.GET("/:id", device, h.GetRoom)
			rooms.GET("/:id/view", device, h.GetRoomView)
			rooms.POST("/:id/join", device, h.JoinRoom)
			rooms.GET("/:id/messages", device, h.ListMessages)
			rooms.POST("/:id/messages", sendChain...)
		}
	}
}

func sessionFrom(c *gin.Context) domain.Session {
	return domain.Session{
		DeviceID: middleware.GetDeviceID(c),
		UserName: middleware.GetUserName(c),
	}
}

// CreateRoom creates a room owned by the calling device.
func (h *Handler) CreateRoom(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	session := sessionFrom(c)

	var req domain.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("failed to bind create room request")
		response.BadRequest(c, err.Error())
		return
	}

	room, err := h.roomService.Create(ctx, req.Name, session.DeviceID)
	if err != nil {
		l.Error().Err(err).Msg("failed to create room")
		response.InternalError(c, "failed to create room")
		return
	}

	response.Created(c, room.ToResponse(h.deepLinkScheme))
}

// ListMyRooms lists the rooms the calling device has joined.
func (h *Handler) ListMyRooms(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	rooms, err := h.roomService.ListForUser(ctx, sessionFrom(c).DeviceID)
	if err != nil {
		l.Error().Err(err).Msg("failed to list rooms")
		response.InternalError(c, "failed to list rooms")
		return
	}

	response.Success(c, domain.RoomsToResponse(rooms, h.deepLinkScheme))
}

// ListPublicRooms lists the most recently active rooms.
func (h *Handler) ListPublicRooms(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	rooms, err := h.roomService.ListPublic(ctx)
	if err != nil {
		l.Error().Err(err).Msg("failed to list public rooms")
		response.InternalError(c, "failed to list rooms")
		return
	}

	response.Success(c, domain.RoomsToResponse(rooms, h.deepLinkScheme))
}

// GetRoom retrieves a room by ID.
func (h *Handler) GetRoom(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	roomID := c.Param("id")

	room, err := h.roomService.Get(ctx, roomID)
	if err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to get room")
		response.InternalError(c, "failed to get room")
		return
	}
	if room == nil {
		response.NotFound(c, "room not found")
		return
	}

	response.Success(c, room.ToResponse(h.deepLinkScheme))
}

// GetRoomView returns a room with its latest messages, fetched concurrently.
func (h *Handler) GetRoomView(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	roomID := c.Param("id")
	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	var (
		room     *domain.ChatRoom
		messages []domain.Message
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		room, err = h.roomService.Get(gctx, roomID)
		return err
	})
	g.Go(func() error {
		var err error
		messages, err = h.messageService.List(gctx, roomID, limit)
		return err
	})
	if err := g.Wait(); err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to load room view")
		response.InternalError(c, "failed to load room")
		return
	}
	if room == nil {
		response.NotFound(c, "room not found")
		return
	}

	response.Success(c, domain.RoomViewResponse{
		Room:     room.ToResponse(h.deepLinkScheme),
		Messages: domain.MessagesToResponse(messages),
	})
}

// JoinRoom adds the calling device to a room.
func (h *Handler) JoinRoom(c *gin.Context) {
	h.join(c, c.Param("id"))
}

// JoinByLink joins the room named by a scanned QR code or shared link.
func (h *Handler) JoinByLink(c *gin.Context) {
	l := log.Ctx(c.Request.Context())

	var req domain.JoinByLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("failed to bind join link request")
		response.BadRequest(c, err.Error())
		return
	}

	roomID, err := domain.ParseDeepLink(req.Link)
	if err != nil {
		response.BadRequest(c, "invalid room link")
		return
	}

	h.join(c, roomID)
}

func (h *Handler) join(c *gin.Context, roomID string) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	room, joined, err := h.roomService.Join(ctx, roomID, sessionFrom(c).DeviceID)
	if err != nil {
		if errors.Is(err, service.ErrRoomNotFound) {
			response.NotFound(c, "room not found")
			return
		}
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to join room")
		response.InternalError(c, "failed to join room")
		return
	}

	response.Success(c, domain.JoinRoomResponse{
		Room:   room.ToResponse(h.deepLinkScheme),
		Joined: joined,
	})
}

// ListMessages lists a room's newest messages.
func (h *Handler) ListMessages(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	roomID := c.Param("id")
	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	messages, err := h.messageService.List(ctx, roomID, limit)
	if err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to list messages")
		response.InternalError(c, "failed to list messages")
		return
	}

	response.Success(c, domain.MessagesToResponse(messages))
}

// SendMessage posts a message as the calling device.
func (h *Handler) SendMessage(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	session := sessionFrom(c)

	roomID := c.Param("id")

	var req domain.PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("failed to bind send message request")
		response.BadRequest(c, err.Error())
		return
	}

	msg, err := h.messageService.Send(ctx, domain.SendMessageRequest{
		Content:    req.Content,
		ChatRoomID: roomID,
		SenderID:   session.DeviceID,
		SenderName: session.DisplayName(),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRoomNotFound):
			response.NotFound(c, "room not found")
		case errors.Is(err, service.ErrMessageTooLong):
			response.BadRequest(c, "message too long")
		default:
			l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to send message")
			response.InternalError(c, "failed to send message")
		}
		return
	}

	response.Created(c, msg.ToResponse())
}

// UpsertMe registers or refreshes the calling device's user record.
func (h *Handler) UpsertMe(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	session := sessionFrom(c)

	var req domain.UpsertUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("failed to bind upsert user request")
		response.BadRequest(c, err.Error())
		return
	}

	name := req.Name
	if name == "" {
		name = session.DisplayName()
	}

	user, err := h.userService.Upsert(ctx, name, session.DeviceID, req.PushToken)
	if err != nil {
		l.Error().Err(err).Msg("failed to upsert user")
		response.InternalError(c, "failed to save user")
		return
	}

	response.Success(c, user)
}

// GetUser looks up a user by device id.
func (h *Handler) GetUser(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	deviceID := c.Param("device_id")

	user, err := h.userService.GetByDeviceID(ctx, deviceID)
	if err != nil {
		l.Error().Err(err).Str(log.FieldDeviceID, deviceID).Msg("failed to get user")
		response.InternalError(c, "failed to get user")
		return
	}
	if user == nil {
		response.NotFound(c, "user not found")
		return
	}

	response.Success(c, user)
}

// parseLimit binds the optional limit query parameter, writing a 400 and
// returning false when it is not a non-negative integer.
func parseLimit(c *gin.Context) (int, bool) {
	var q domain.ListMessagesRequest
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "limit must be a non-negative integer")
		return 0, false
	}
	return q.Limit, true
}
