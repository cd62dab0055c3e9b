package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/training-enrollment-api/pkg/errors"
)

// Envelope represents the common response contract.
type Envelope struct {
	Success     bool             `json:"success"`
	Data        interface{}      `json:"data,omitempty"`
	Total       *int             `json:"total,omitempty"`
	TotalPages  *int             `json:"totalPages,omitempty"`
	CurrentPage *int             `json:"currentPage,omitempty"`
	Stats       interface{}      `json:"stats,omitempty"`
	Error       *appErrors.Error `json:"error,omitempty"`
}

// Page describes list paging metadata.
type Page struct {
	Total       int
	CurrentPage int
	Limit       int
}

// TotalPages derives the page count, never below zero.
func (p Page) TotalPages() int {
	if p.Limit <= 0 || p.Total <= 0 {
		return 0
	}
	return (p.Total + p.Limit - 1) / p.Limit
}

// JSON sends a success response.
func JSON(c *gin.Context, status int, data interface{}) {
	noStore(c)
	c.JSON(status, Envelope{Success: true, Data: data})
}

// Paged sends a success response carrying paging metadata and optional stats.
func Paged(c *gin.Context, data interface{}, page Page, stats interface{}) {
	noStore(c)
	total := page.Total
	totalPages := page.TotalPages()
	current := page.CurrentPage
	c.JSON(http.StatusOK, Envelope{
		Success:     true,
		Data:        data,
		Total:       &total,
		TotalPages:  &totalPages,
		CurrentPage: &current,
		Stats:       stats,
	})
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data)
}

// Error sends an error response converting the error to the common structure.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	noStore(c)
	c.JSON(appErr.Status, Envelope{Success: false, Error: appErr})
}

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}
