package api

import (
	"github.com/gin-contrib/cors"
	"github.com/wb-go/wbf/ginext"

	"picnichub/cmd/middleware"
	"picnichub/internal/auth"
	"picnichub/internal/service"
)

type Routers struct {
	Service  service.Service
	Sessions *auth.Sessions
	Mode     string
}

func NewRouters(r *Routers) *ginext.Engine {
	mode := r.Mode
	if mode == "" {
		mode = "release"
	}
	app := ginext.New(mode)

	app.Use(middleware.LoggingMiddleware())
	app.Use(cors.New(cors.Config{
		AllowAllOrigins:  false,
		AllowOriginFunc:  func(string) bool { return true },
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		AllowCredentials: true,
	}))
	apiGroup := app.Group("/v1")

	apiGroup.GET("/picnics", r.Service.ListPicnics)
	apiGroup.GET("/picnics/:id", r.Service.GetPicnic)
	apiGroup.POST("/picnics/:id/registrations", r.Service.Register)

	apiGroup.POST("/admin/login", r.Service.Login)
	apiGroup.POST("/admin/logout", r.Service.Logout)

	admin := apiGroup.Group("")
	admin.Use(middleware.AdminOnly(r.Sessions))
	admin.POST("/picnics", r.Service.CreatePicnic)
	admin.PUT("/picnics/:id", r.Service.UpdatePicnic)
	admin.DELETE("/picnics/:id", r.Service.DeletePicnic)
	admin.GET("/picnics/:id/registrations", r.Service.GetRegistrations)
	admin.POST("/registrations/:id/approve", r.Service.Approve)
	admin.POST("/registrations/:id/reject", r.Service.Reject)

	return app
}
