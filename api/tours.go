package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/VK7Cuber/Room2room-Tour/internal/domain"
	"github.com/VK7Cuber/Room2room-Tour/internal/service/tours"
	"github.com/gin-gonic/gin"
)

type TourHandler struct {
	service tours.TourUseCase
}

func NewTourHandler(service tours.TourUseCase) *TourHandler {
	return &TourHandler{service: service}
}

func (h *TourHandler) Register(router *gin.RouterGroup) {
	router.GET("/tours", h.list)
	router.GET("/tours/:id", h.get)
}

func (h *TourHandler) list(c *gin.Context) {
	list, err := h.service.List(c.Request.Context(), domain.TourFilter{
		Query: c.Query("q"),
		City:  c.Query("city"),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *TourHandler) get(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		writeError(c, err)
		return
	}
	tour, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tour)
}

func pathID(c *gin.Context) (int64, error) {
	return paramID(c, "id")
}

func paramID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q: %w", name, c.Param(name), domain.ErrInvalidInput)
	}
	return id, nil
}
