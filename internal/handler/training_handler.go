package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/training-enrollment-api/internal/models"
	"github.com/noah-isme/training-enrollment-api/pkg/response"
)

type trainingService interface {
	List(ctx context.Context, filter models.TrainingFilter) ([]models.Training, int, error)
	Get(ctx context.Context, id string) (*models.Training, error)
	Create(ctx context.Context, req models.CreateTrainingRequest) (*models.Training, error)
	Update(ctx context.Context, id string, req models.UpdateTrainingRequest) (*models.Training, error)
	Delete(ctx context.Context, id string) error
}

// TrainingHandler exposes catalog management for admins.
type TrainingHandler struct {
	service trainingService
}

// NewTrainingHandler constructs TrainingHandler.
func NewTrainingHandler(svc trainingService) *TrainingHandler {
	return &TrainingHandler{service: svc}
}

// List godoc
// @Summary List trainings
// @Tags Trainings
// @Produce json
// @Param search query string false "Title search"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/trainings [get]
func (h *TrainingHandler) List(c *gin.Context) {
	page, limit := pageOrDefault(queryInt(c, "page"), queryInt(c, "limit"))
	items, total, err := h.service.List(c.Request.Context(), models.TrainingFilter{
		Search:   strings.TrimSpace(c.Query("search")),
		Page:     page,
		PageSize: limit,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paged(c, items, response.Page{Total: total, CurrentPage: page, Limit: limit}, nil)
}

// Get godoc
// @Summary Get training
// @Tags Trainings
// @Produce json
// @Param id path string true "Training ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/trainings/{id} [get]
func (h *TrainingHandler) Get(c *gin.Context) {
	training, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, training)
}

// Create godoc
// @Summary Create training
// @Tags Trainings
// @Accept json
// @Produce json
// @Param payload body models.CreateTrainingRequest true "Training payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/trainings [post]
func (h *TrainingHandler) Create(c *gin.Context) {
	var req models.CreateTrainingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	training, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, training)
}

// Update godoc
// @Summary Update training
// @Tags Trainings
// @Accept json
// @Produce json
// @Param id path string true "Training ID"
// @Param payload body models.UpdateTrainingRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/trainings/{id} [put]
func (h *TrainingHandler) Update(c *gin.Context) {
	var req models.UpdateTrainingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	training, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, training)
}

// Delete godoc
// @Summary Delete training
// @Tags Trainings
// @Produce json
// @Param id path string true "Training ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/trainings/{id} [delete]
func (h *TrainingHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"deleted": true})
}
