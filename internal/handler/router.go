package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/training-enrollment-api/internal/middleware"
	"github.com/noah-isme/training-enrollment-api/internal/models"
)

// Routes bundles everything RegisterRoutes mounts.
type Routes struct {
	Auth        *AuthHandler
	Enrollments *EnrollmentHandler
	Trainings   *TrainingHandler
	Public      *PublicHandler
	Metrics     *MetricsHandler
	Tokens      middleware.TokenValidator
}

// RegisterRoutes mounts the public and admin API under prefix along with the
// probe and metrics endpoints at the root.
func RegisterRoutes(r *gin.Engine, prefix string, routes Routes) {
	r.GET("/health", routes.Metrics.Health)
	r.GET("/ready", routes.Metrics.Ready)
	r.GET("/metrics", routes.Metrics.Prometheus)

	api := r.Group(prefix)
	api.POST("/auth/login", routes.Auth.Login)
	api.GET("/trainings", routes.Public.Trainings)
	api.GET("/trainings/:slug", routes.Public.Training)
	api.POST("/enrollments", routes.Public.Submit)

	admin := api.Group("")
	admin.Use(middleware.JWT(routes.Tokens), middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin))
	admin.GET("/auth/me", routes.Auth.Me)
	admin.GET("/admin/metrics", routes.Metrics.Snapshot)

	enrollments := admin.Group("/admin/enrollments")
	enrollments.GET("", routes.Enrollments.List)
	enrollments.GET("/download", routes.Enrollments.Download)
	enrollments.GET("/students", routes.Enrollments.Students)
	enrollments.GET("/:id", routes.Enrollments.Get)
	enrollments.POST("", routes.Enrollments.Create)
	enrollments.PUT("/:id", routes.Enrollments.Update)
	enrollments.PUT("/:id/approve", routes.Enrollments.Approve)
	enrollments.PUT("/:id/reject", routes.Enrollments.Reject)
	enrollments.PUT("/:id/complete", routes.Enrollments.Complete)
	enrollments.DELETE("/:id", routes.Enrollments.Delete)

	trainings := admin.Group("/admin/trainings")
	trainings.GET("", routes.Trainings.List)
	trainings.GET("/:id", routes.Trainings.Get)
	trainings.POST("", routes.Trainings.Create)
	trainings.PUT("/:id", routes.Trainings.Update)
	trainings.DELETE("/:id", routes.Trainings.Delete)
}
