package api

import (
	"fmt"
	"net/http"

	"github.com/VK7Cuber/Room2room-Tour/internal/domain"
	"github.com/VK7Cuber/Room2room-Tour/internal/service/reviews"
	"github.com/gin-gonic/gin"
)

type ReviewHandler struct {
	service reviews.ReviewUseCase
}

type reviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func NewReviewHandler(service reviews.ReviewUseCase) *ReviewHandler {
	return &ReviewHandler{service: service}
}

func (h *ReviewHandler) Register(router *gin.RouterGroup) {
	router.GET("/users/:id/reviews", h.listForGuide)
	router.POST("/tours/:id/reviews", RequireActor(), h.create)
}

func (h *ReviewHandler) create(c *gin.Context) {
	tourID, err := pathID(c)
	if err != nil {
		writeError(c, err)
		return
	}
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("%s: %w", err.Error(), domain.ErrInvalidInput))
		return
	}

	review, err := h.service.CreateTourReview(c.Request.Context(), reviews.CreateTourReviewInput{
		ActorID: actorID(c),
		TourID:  tourID,
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, review)
}

func (h *ReviewHandler) listForGuide(c *gin.Context) {
	guideID, err := pathID(c)
	if err != nil {
		writeError(c, err)
		return
	}
	list, err := h.service.GuideReviews(c.Request.Context(), guideID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
