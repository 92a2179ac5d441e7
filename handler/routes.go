package handler

import (
	"github.com/Mnrljan/report-backend/middleware"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the API on api. protect authenticates the bearer
// token; administrator routes additionally require the Admin role. Report
// reads and submissions stay public so the inspector link works without an
// account.
func RegisterRoutes(api *gin.RouterGroup, auth *AuthHandler, reports *ReportHandler, protect gin.HandlerFunc) {
	api.POST("/auth/register", auth.Register)
	api.POST("/auth/login", auth.Login)
	api.GET("/auth/me", protect, auth.Me)

	api.GET("/reports/:id", reports.Get)
	api.PATCH("/reports/:id", reports.Submit)

	admin := api.Group("", protect, middleware.AdminOnly())
	{
		admin.POST("/reports", reports.Create)
		admin.GET("/reports", reports.List)
		admin.GET("/reports/download/:id", reports.Download)
		admin.DELETE("/reports/all", reports.DeleteAll)
		admin.DELETE("/reports/:id", reports.Delete)
	}
}
