package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/auth"
)

func SetupRoutes(router *gin.Engine, handler *Handler, signingKey, issuer string) {
	router.GET("/healthz", handler.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	v1.POST("/auth/refresh", handler.Refresh)

	authed := v1.Group("", auth.Authenticate(signingKey, issuer))
	staff := auth.RequireRole(auth.RoleLecturer, auth.RoleAdmin)
	{
		authed.GET("/sessions", handler.ListSessions)
		authed.GET("/sessions/:id", handler.GetSession)
		authed.GET("/sessions/:id/records", handler.SessionRecords)
		authed.POST("/sessions", staff, handler.CreateSession)
		authed.PATCH("/sessions/:id", staff, handler.UpdateSession)
		authed.DELETE("/sessions/:id", staff, handler.DeleteSession)
		authed.GET("/sessions/:id/qr", staff, handler.SessionQR)
		authed.GET("/sessions/:id/attendance.xlsx", staff, handler.ExportAttendance)

		authed.POST("/sessions/:id/attendance", auth.RequireRole(auth.RoleStudent), handler.MarkAttendance)

		authed.POST("/enrollments", auth.RequireRole(auth.RoleAdmin), handler.CreateEnrollment)
		authed.PATCH("/enrollments/:id", auth.RequireRole(auth.RoleAdmin), handler.UpdateEnrollment)

		authed.GET("/courses/:id/materials", handler.ListMaterials)
		authed.POST("/courses/:id/materials", staff, handler.UploadMaterial)

		authed.GET("/realtime", handler.Realtime)
	}
}
