package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/course-marketplace/internal/handler"
	"github.com/iliyamo/course-marketplace/internal/middleware"
	"github.com/iliyamo/course-marketplace/internal/model"
	"github.com/iliyamo/course-marketplace/internal/token"
)

// RegisterLessons registers lessons and videos.  Every route needs a
// verified account; writes need the Instructor or Admin role, and the
// service checks course ownership.
func RegisterLessons(e *echo.Echo, h *handler.LessonHandler, tm *token.Manager) {
	g := e.Group("/v1", middleware.JWTAuth(tm), middleware.RequireVerified())
	write := middleware.RequireRole(model.RoleInstructor, model.RoleAdmin)

	g.GET("/lessons/course/:courseId", h.ListLessons)
	g.GET("/lessons/:id", h.GetLesson)
	g.POST("/lessons", h.CreateLesson, write)
	g.PATCH("/lessons/:id", h.UpdateLesson, write)
	g.DELETE("/lessons/:id", h.DeleteLesson, write)

	g.GET("/videos/lesson/:lessonId", h.ListVideos)
	g.GET("/videos/:id", h.GetVideo)
	g.POST("/videos", h.CreateVideo, write)
	g.PATCH("/videos/:id", h.UpdateVideo, write)
	g.DELETE("/videos/:id", h.DeleteVideo, write)
}

// RegisterCart registers the cart of the authenticated user.
func RegisterCart(e *echo.Echo, h *handler.CartHandler, tm *token.Manager) {
	g := e.Group("/v1/cart", middleware.JWTAuth(tm))
	g.GET("", h.Get)
	g.POST("", h.Add)
	g.POST("/total", h.Total)
	g.DELETE("/:courseId", h.Remove)
	g.DELETE("", h.Clear)
}

// RegisterMedia registers uploads for verified accounts and serves the
// upload directory read-only under /static.
func RegisterMedia(e *echo.Echo, h *handler.MediaHandler, tm *token.Manager, uploadDir string) {
	e.Static("/static", uploadDir)

	g := e.Group("/v1/media", middleware.JWTAuth(tm), middleware.RequireVerified())
	g.POST("/upload-image", h.UploadImage)
	g.POST("/upload-video", h.UploadVideo)
	g.POST("/upload-video-hls", h.UploadVideoHLS)
	g.GET("/video-status/:id", h.VideoStatus)
}
