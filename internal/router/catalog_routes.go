package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/course-marketplace/internal/handler"
	"github.com/iliyamo/course-marketplace/internal/middleware"
	"github.com/iliyamo/course-marketplace/internal/model"
	"github.com/iliyamo/course-marketplace/internal/token"
)

// RegisterCatalog registers categories, levels and courses.  Reads are
// public and served through cache; writes require a verified account and
// drop the cache through invalidate once they succeed.
func RegisterCatalog(e *echo.Echo, h *handler.CatalogHandler, tm *token.Manager, cache, invalidate echo.MiddlewareFunc) {
	pub := e.Group("/v1", cache)
	pub.GET("/categories", h.ListCategories)
	pub.GET("/categories/:id", h.GetCategory)
	pub.GET("/levels", h.ListLevels)
	pub.GET("/levels/:id", h.GetLevel)
	pub.GET("/courses", h.ListCourses)
	pub.GET("/courses/:id", h.GetCourse)

	admin := e.Group("/v1",
		middleware.JWTAuth(tm),
		middleware.RequireVerified(),
		middleware.RequireRole(model.RoleAdmin),
		invalidate,
	)
	admin.POST("/categories", h.CreateCategory)
	admin.PATCH("/categories/:id", h.UpdateCategory)
	admin.DELETE("/categories/:id", h.DeleteCategory)
	admin.POST("/levels", h.CreateLevel)
	admin.PATCH("/levels/:id", h.UpdateLevel)
	admin.DELETE("/levels/:id", h.DeleteLevel)

	teach := e.Group("/v1/courses",
		middleware.JWTAuth(tm),
		middleware.RequireVerified(),
		middleware.RequireRole(model.RoleInstructor, model.RoleAdmin),
		invalidate,
	)
	teach.POST("", h.CreateCourse)
	teach.PATCH("/:id", h.UpdateCourse)
	teach.DELETE("/:id", h.DeleteCourse)
}
