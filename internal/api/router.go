package api

import (
	"context"
	"net/http"
	"time"

	"classroom/internal/metrics"
	"classroom/internal/middleware"

	"github.com/gin-gonic/gin"
)

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Handlers struct {
	Auth        *AuthHandler
	Classes     *ClassHandler
	Enrollments *EnrollmentHandler
	Users       *UserHandler
}

type RouterOptions struct {
	Authenticator  middleware.Authenticator
	LoginLimiter   *middleware.RateLimiter
	HTTPObserver   metrics.HTTPObserver
	AllowedOrigins []string
	HealthChecks   []HealthCheck
}

func RegisterRoutes(h Handlers, opts RouterOptions) *gin.Engine {
	r := gin.New()

	r.Use(
		middleware.CorsMiddleware(opts.AllowedOrigins),
		middleware.RequestID(),
		middleware.GinZapLogger(),
		middleware.GinZapRecovery(),
		middleware.HttpMiddleware(opts.HTTPObserver),
	)
	r.SetTrustedProxies(nil)

	// Public Routes
	r.GET("/health", healthHandler(opts.HealthChecks))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/media/avatars/:file", h.Auth.Avatar)

	auth := r.Group("/api/auth")
	{
		login := []gin.HandlerFunc{h.Auth.Login}
		if opts.LoginLimiter != nil {
			login = append([]gin.HandlerFunc{opts.LoginLimiter.Middleware()}, login...)
		}
		auth.POST("/login/", login...)
		auth.POST("/refresh/", h.Auth.Refresh)
	}

	protected := r.Group("/api")
	protected.Use(middleware.JWTMiddleware(opts.Authenticator))
	{
		protected.GET("/auth/me/", h.Auth.Me)
		protected.PATCH("/auth/me/", h.Auth.UpdateMe)
		protected.PUT("/auth/me/", h.Auth.UpdateMe)
		protected.POST("/auth/me/avatar/", h.Auth.UploadAvatar)
		protected.POST("/auth/change-password/", h.Auth.ChangePassword)

		protected.GET("/users/", h.Users.Students)
		protected.GET("/instructors/", h.Users.Instructors)

		protected.GET("/classes/", h.Classes.ListClasses)
		protected.GET("/classes/:id/", h.Classes.GetClass)

		protected.GET("/enrollments/", h.Enrollments.ListEnrollments)
		protected.POST("/enrollments/", h.Enrollments.CreateEnrollment)
		protected.DELETE("/enrollments/:id/", h.Enrollments.DeleteEnrollment)
		protected.DELETE("/enrollments/by-class/:classId/", h.Enrollments.DeleteByClass)
		protected.DELETE("/enrollments/by-class/:classId/student/:studentId/", h.Enrollments.DeleteByClassAndStudent)
	}

	staff := protected.Group("/classes")
	staff.Use(middleware.RequireStaff())
	{
		staff.POST("/", h.Classes.CreateClass)
		staff.PUT("/:id/", h.Classes.UpdateClass)
		staff.DELETE("/:id/", h.Classes.DeleteClass)
	}
	return r
}

func healthHandler(checks []HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		for _, check := range checks {
			if err := check(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
