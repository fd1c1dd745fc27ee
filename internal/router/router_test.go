package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/course-marketplace/internal/handler"
	"github.com/iliyamo/course-marketplace/internal/logger"
	"github.com/iliyamo/course-marketplace/internal/model"
	"github.com/iliyamo/course-marketplace/internal/token"
)

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

func newAPI(t *testing.T) (*echo.Echo, *token.Manager) {
	t.Helper()
	tm := token.NewManager(token.Config{
		AccessSecret:  "access",
		AccessTTL:     time.Minute,
		RefreshSecret: "refresh",
		RefreshTTL:    time.Hour,
	})
	e := New(logger.Nop())
	RegisterRoutes(e, handler.Ready(map[string]handler.Pinger{}))
	RegisterAuth(e, handler.NewAuthHandler(nil, nil, "http://client.test", logger.Nop()), tm, passThrough)
	RegisterCatalog(e, handler.NewCatalogHandler(nil, nil, nil), tm, passThrough, passThrough)
	RegisterLessons(e, handler.NewLessonHandler(nil), tm)
	RegisterCart(e, handler.NewCartHandler(nil), tm)
	RegisterMedia(e, handler.NewMediaHandler(nil), tm, t.TempDir())
	return e, tm
}

func TestRoutesAreRegistered(t *testing.T) {
	e, _ := newAPI(t)
	have := map[string]bool{}
	for _, r := range e.Routes() {
		have[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"POST /v1/auth/register",
		"POST /v1/auth/login",
		"POST /v1/auth/refresh-token",
		"POST /v1/auth/logout-all",
		"GET /v1/auth/oauth/google",
		"PATCH /v1/auth/users/:id/status",
		"GET /v1/courses",
		"PATCH /v1/courses/:id",
		"DELETE /v1/levels/:id",
		"GET /v1/lessons/course/:courseId",
		"POST /v1/videos",
		"POST /v1/cart/total",
		"DELETE /v1/cart/:courseId",
		"POST /v1/media/upload-video-hls",
		"GET /v1/media/video-status/:id",
		"GET /metrics",
	} {
		assert.True(t, have[want], want)
	}
}

func TestGuardsRunBeforeHandlers(t *testing.T) {
	e, tm := newAPI(t)
	sign := func(role model.Role, verify int) string {
		s, err := tm.SignAccess(token.Payload{UserID: "u1", Role: role, Verify: verify})
		require.NoError(t, err)
		return "Bearer " + s.Token
	}
	call := func(method, target, auth string) int {
		req := httptest.NewRequest(method, target, nil)
		if auth != "" {
			req.Header.Set(echo.HeaderAuthorization, auth)
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, call(http.MethodGet, "/healthz", ""))
	assert.Equal(t, http.StatusOK, call(http.MethodGet, "/readyz", ""))
	assert.Equal(t, http.StatusUnauthorized, call(http.MethodGet, "/v1/auth/me", ""))
	assert.Equal(t, http.StatusUnauthorized, call(http.MethodGet, "/v1/cart", ""))

	user := sign(model.RoleUser, model.Verified)
	assert.Equal(t, http.StatusForbidden, call(http.MethodGet, "/v1/auth/users", user))
	assert.Equal(t, http.StatusForbidden, call(http.MethodPost, "/v1/categories", user))
	assert.Equal(t, http.StatusForbidden, call(http.MethodPost, "/v1/courses", user))
	assert.Equal(t, http.StatusForbidden, call(http.MethodDelete, "/v1/lessons/l1", user))

	unverified := sign(model.RoleInstructor, model.Unverified)
	assert.Equal(t, http.StatusForbidden, call(http.MethodPost, "/v1/courses", unverified))
	assert.Equal(t, http.StatusForbidden, call(http.MethodPost, "/v1/media/upload-image", unverified))
}
