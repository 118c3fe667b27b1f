package api

import (
	"fmt"
	"net/http"

	"github.com/VK7Cuber/Room2room-Tour/internal/domain"
	"github.com/VK7Cuber/Room2room-Tour/internal/service/booking"
	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type bookingRequest struct {
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
	Hours     int    `json:"hours"`
}

type bookingResponse struct {
	ID         int64  `json:"id"`
	UserID     int64  `json:"user_id"`
	TourID     *int64 `json:"tour_id,omitempty"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	Hours      int    `json:"hours"`
	Status     string `json:"status"`
	TotalPrice int64  `json:"total_price"`
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

// Register mounts the booking routes; every route requires a caller identity.
func (h *BookingHandler) Register(router *gin.RouterGroup) {
	authed := router.Group("", RequireActor())
	authed.POST("/tours/:id/bookings", h.create)
	authed.GET("/bookings/:id", h.get)
	authed.PUT("/bookings/:id", h.edit)
	authed.POST("/bookings/:id/cancel", h.cancel)
	authed.GET("/me/bookings", h.listMine)
	authed.GET("/me/tour-bookings", h.listGuided)
}

func bindBooking(c *gin.Context) (booking.BookingRequest, error) {
	var req bookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return booking.BookingRequest{}, fmt.Errorf("%s: %w", err.Error(), domain.ErrInvalidInput)
	}
	start, err := domain.ParseDate(req.StartDate)
	if err != nil {
		return booking.BookingRequest{}, fmt.Errorf("start_date %q: %w", req.StartDate, domain.ErrInvalidInput)
	}
	end, err := domain.ParseDate(req.EndDate)
	if err != nil {
		return booking.BookingRequest{}, fmt.Errorf("end_date %q: %w", req.EndDate, domain.ErrInvalidInput)
	}
	return booking.BookingRequest{StartDate: start, EndDate: end, Hours: req.Hours}, nil
}

func (h *BookingHandler) create(c *gin.Context) {
	tourID, err := pathID(c)
	if err != nil {
		writeError(c, err)
		return
	}
	req, err := bindBooking(c)
	if err != nil {
		writeError(c, err)
		return
	}

	created, err := h.service.CreateBooking(c.Request.Context(), booking.CreateBookingInput{
		ActorID:   actorID(c),
		TourID:    tourID,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Hours:     req.Hours,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toBookingResponse(created))
}

func (h *BookingHandler) get(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		writeError(c, err)
		return
	}
	b, err := h.service.GetBooking(c.Request.Context(), actorID(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b))
}

func (h *BookingHandler) edit(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		writeError(c, err)
		return
	}
	req, err := bindBooking(c)
	if err != nil {
		writeError(c, err)
		return
	}

	edited, err := h.service.EditBooking(c.Request.Context(), booking.EditBookingInput{
		ActorID:   actorID(c),
		BookingID: id,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Hours:     req.Hours,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(edited))
}

func (h *BookingHandler) cancel(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		writeError(c, err)
		return
	}
	if _, err := h.service.CancelBooking(c.Request.Context(), actorID(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *BookingHandler) listMine(c *gin.Context) {
	list, err := h.service.ListUserBookings(c.Request.Context(), actorID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponses(list))
}

func (h *BookingHandler) listGuided(c *gin.Context) {
	list, err := h.service.ListGuideBookings(c.Request.Context(), actorID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponses(list))
}

func toBookingResponse(b *domain.Booking) bookingResponse {
	return bookingResponse{
		ID:         b.ID,
		UserID:     b.UserID,
		TourID:     b.TourID,
		StartDate:  b.StartDate.Format(domain.DateLayout),
		EndDate:    b.EndDate.Format(domain.DateLayout),
		Hours:      b.Hours,
		Status:     string(b.Status),
		TotalPrice: b.TotalPrice,
	}
}

func toBookingResponses(list []domain.Booking) []bookingResponse {
	out := make([]bookingResponse, 0, len(list))
	for i := range list {
		out = append(out, toBookingResponse(&list[i]))
	}
	return out
}
