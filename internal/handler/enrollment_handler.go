package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/training-enrollment-api/internal/models"
	"github.com/noah-isme/training-enrollment-api/internal/service"
	"github.com/noah-isme/training-enrollment-api/pkg/response"
)

type enrollmentService interface {
	Submit(ctx context.Context, req models.PublicEnrollmentRequest) (*models.EnrollmentView, error)
	Create(ctx context.Context, req models.CreateEnrollmentRequest, actorID string) (*models.EnrollmentView, error)
	Get(ctx context.Context, id string) (*models.EnrollmentView, error)
	List(ctx context.Context, filter models.EnrollmentFilter) (*service.EnrollmentList, error)
	Update(ctx context.Context, id string, req models.UpdateEnrollmentRequest) (*models.EnrollmentView, error)
	Approve(ctx context.Context, id, actorID string, req models.TransitionRequest) (*models.EnrollmentView, error)
	Reject(ctx context.Context, id, actorID string, req models.TransitionRequest) (*models.EnrollmentView, error)
	Complete(ctx context.Context, id, actorID string, req models.TransitionRequest) (*models.EnrollmentView, error)
	Delete(ctx context.Context, id, actorID string) error
}

type studentService interface {
	List(ctx context.Context, filter models.StudentFilter) (*service.StudentList, error)
}

type exportService interface {
	Enrollments(ctx context.Context, filter models.EnrollmentFilter, format service.ExportFormat) (*service.ExportFile, error)
}

// EnrollmentHandler exposes the admin enrollment endpoints.
type EnrollmentHandler struct {
	enrollments enrollmentService
	students    studentService
	exports     exportService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments enrollmentService, students studentService, exports exportService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments, students: students, exports: exports}
}

// List godoc
// @Summary List enrollments
// @Tags Enrollments
// @Produce json
// @Param status query string false "pending, approved, rejected or completed"
// @Param trainingId query string false "Filter by training"
// @Param source query string false "Filter by source"
// @Param search query string false "Matches student name, email or phone"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	result, err := h.enrollments.List(c.Request.Context(), enrollmentFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paged(c, result.Items, response.Page{Total: result.Total, CurrentPage: result.Page, Limit: result.Limit}, result.Stats)
}

// Download godoc
// @Summary Export enrollments
// @Description Streams every enrollment matching the filters as CSV (default) or PDF.
// @Tags Enrollments
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf"
// @Param status query string false "Filter by status"
// @Param trainingId query string false "Filter by training"
// @Param source query string false "Filter by source"
// @Param search query string false "Search"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/enrollments/download [get]
func (h *EnrollmentHandler) Download(c *gin.Context) {
	format := service.ExportFormat(strings.ToLower(strings.TrimSpace(c.Query("format"))))
	file, err := h.exports.Enrollments(c.Request.Context(), enrollmentFilterFromQuery(c), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

// Students godoc
// @Summary List students
// @Description Groups enrollments by email into one entry per student.
// @Tags Enrollments
// @Produce json
// @Param search query string false "Matches student name, email or phone"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/enrollments/students [get]
func (h *EnrollmentHandler) Students(c *gin.Context) {
	result, err := h.students.List(c.Request.Context(), models.StudentFilter{
		Search:   strings.TrimSpace(c.Query("search")),
		Page:     queryInt(c, "page"),
		PageSize: queryInt(c, "limit"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paged(c, result.Items, response.Page{Total: result.Total, CurrentPage: result.Page, Limit: result.Limit}, nil)
}

// Get godoc
// @Summary Get enrollment
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/enrollments/{id} [get]
func (h *EnrollmentHandler) Get(c *gin.Context) {
	enrollment, err := h.enrollments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment)
}

// Create godoc
// @Summary Create enrollment
// @Description Records an enrollment on behalf of a student. Capacity is enforced.
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body models.CreateEnrollmentRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/enrollments [post]
func (h *EnrollmentHandler) Create(c *gin.Context) {
	var req models.CreateEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	enrollment, err := h.enrollments.Create(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// Update godoc
// @Summary Update enrollment
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body models.UpdateEnrollmentRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/enrollments/{id} [put]
func (h *EnrollmentHandler) Update(c *gin.Context) {
	var req models.UpdateEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	enrollment, err := h.enrollments.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment)
}

type transitionFunc func(ctx context.Context, id, actorID string, req models.TransitionRequest) (*models.EnrollmentView, error)

// Approve godoc
// @Summary Approve enrollment
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body models.TransitionRequest false "Optional admin notes"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/enrollments/{id}/approve [put]
func (h *EnrollmentHandler) Approve(c *gin.Context) {
	h.transition(c, h.enrollments.Approve)
}

// Reject godoc
// @Summary Reject enrollment
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body models.TransitionRequest false "Optional admin notes"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/enrollments/{id}/reject [put]
func (h *EnrollmentHandler) Reject(c *gin.Context) {
	h.transition(c, h.enrollments.Reject)
}

// Complete godoc
// @Summary Complete enrollment
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body models.TransitionRequest false "Optional admin notes"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/enrollments/{id}/complete [put]
func (h *EnrollmentHandler) Complete(c *gin.Context) {
	h.transition(c, h.enrollments.Complete)
}

func (h *EnrollmentHandler) transition(c *gin.Context, fn transitionFunc) {
	var req models.TransitionRequest
	// The body is optional.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, invalidPayload(err))
		return
	}
	enrollment, err := fn(c.Request.Context(), c.Param("id"), actorID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment)
}

// Delete godoc
// @Summary Delete enrollment
// @Description Removes the enrollment and releases its seat when it was approved.
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/enrollments/{id} [delete]
func (h *EnrollmentHandler) Delete(c *gin.Context) {
	if err := h.enrollments.Delete(c.Request.Context(), c.Param("id"), actorID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"deleted": true})
}

func enrollmentFilterFromQuery(c *gin.Context) models.EnrollmentFilter {
	return models.EnrollmentFilter{
		Status:     models.EnrollmentStatus(strings.ToLower(strings.TrimSpace(c.Query("status")))),
		TrainingID: strings.TrimSpace(c.Query("trainingId")),
		Source:     models.EnrollmentSource(strings.ToLower(strings.TrimSpace(c.Query("source")))),
		Search:     strings.TrimSpace(c.Query("search")),
		Page:       queryInt(c, "page"),
		PageSize:   queryInt(c, "limit"),
	}
}
