package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/VK7Cuber/Room2room-Tour/internal/domain"
	"github.com/VK7Cuber/Room2room-Tour/internal/service/notify"
	"github.com/gin-gonic/gin"
)

type MessageHandler struct {
	service notify.MessageUseCase
}

func NewMessageHandler(service notify.MessageUseCase) *MessageHandler {
	return &MessageHandler{service: service}
}

func (h *MessageHandler) Register(router *gin.RouterGroup) {
	authed := router.Group("/me/messages", RequireActor())
	authed.GET("", h.list)
	authed.GET("/unread", h.unread)
	authed.POST("/:id/read", h.markRead)

	chat := router.Group("/messages", RequireActor())
	chat.GET("/:user_id", h.conversation)
	chat.POST("/:user_id", h.send)
}

type sendMessageRequest struct {
	Content string `json:"content" binding:"required"`
	TourID  *int64 `json:"tour_id"`
}

func (h *MessageHandler) list(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	list, err := h.service.ListInbox(c.Request.Context(), actorID(c), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *MessageHandler) unread(c *gin.Context) {
	n, err := h.service.UnreadCount(c.Request.Context(), actorID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": n})
}

func (h *MessageHandler) markRead(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		writeError(c, err)
		return
	}
	if err := h.service.MarkRead(c.Request.Context(), actorID(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *MessageHandler) conversation(c *gin.Context) {
	peerID, err := paramID(c, "user_id")
	if err != nil {
		writeError(c, err)
		return
	}
	conv, err := h.service.Conversation(c.Request.Context(), actorID(c), peerID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

func (h *MessageHandler) send(c *gin.Context) {
	peerID, err := paramID(c, "user_id")
	if err != nil {
		writeError(c, err)
		return
	}
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("%s: %w", err.Error(), domain.ErrInvalidInput))
		return
	}

	msg, err := h.service.Send(c.Request.Context(), notify.SendMessageInput{
		SenderID:   actorID(c),
		ReceiverID: peerID,
		TourID:     req.TourID,
		Content:    req.Content,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}
