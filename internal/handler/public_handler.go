package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/training-enrollment-api/internal/models"
	"github.com/noah-isme/training-enrollment-api/pkg/response"
)

type catalogService interface {
	ListPublic(ctx context.Context, filter models.TrainingFilter) ([]models.Training, int, error)
	GetPublic(ctx context.Context, slug string) (*models.Training, error)
}

// PublicHandler serves the unauthenticated website endpoints.
type PublicHandler struct {
	enrollments enrollmentService
	catalog     catalogService
}

// NewPublicHandler constructs PublicHandler.
func NewPublicHandler(enrollments enrollmentService, catalog catalogService) *PublicHandler {
	return &PublicHandler{enrollments: enrollments, catalog: catalog}
}

// Submit godoc
// @Summary Submit enrollment
// @Description Public enrollment form. The training must be active and published and have a free seat.
// @Tags Public
// @Accept json
// @Produce json
// @Param payload body models.PublicEnrollmentRequest true "Enrollment form"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enrollments [post]
func (h *PublicHandler) Submit(c *gin.Context) {
	var req models.PublicEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	enrollment, err := h.enrollments.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// Trainings godoc
// @Summary List open trainings
// @Tags Public
// @Produce json
// @Param search query string false "Title search"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /trainings [get]
func (h *PublicHandler) Trainings(c *gin.Context) {
	filter := models.TrainingFilter{
		Search:   strings.TrimSpace(c.Query("search")),
		Page:     queryInt(c, "page"),
		PageSize: queryInt(c, "limit"),
	}
	items, total, err := h.catalog.ListPublic(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	page, limit := pageOrDefault(filter.Page, filter.PageSize)
	response.Paged(c, items, response.Page{Total: total, CurrentPage: page, Limit: limit}, nil)
}

// Training godoc
// @Summary Get open training
// @Tags Public
// @Produce json
// @Param slug path string true "Training slug"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /trainings/{slug} [get]
func (h *PublicHandler) Training(c *gin.Context) {
	training, err := h.catalog.GetPublic(c.Request.Context(), c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, training)
}
