package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/course-marketplace/internal/apperr"
	"github.com/iliyamo/course-marketplace/internal/handler"
	"github.com/iliyamo/course-marketplace/internal/logger"
	"github.com/iliyamo/course-marketplace/internal/media"
	"github.com/iliyamo/course-marketplace/internal/model"
	"github.com/iliyamo/course-marketplace/internal/service"
)

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.ErrorHandler(logger.Nop())
	return e
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type errBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func decodeErr(t *testing.T, rec *httptest.ResponseRecorder) errBody {
	t.Helper()
	var b errBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b))
	return b
}

// fakeAuth implements only the calls a test sets; anything else panics on
// the nil embedded interface.
type fakeAuth struct {
	handler.AuthAPI
	register func(service.RegisterInput) (*model.PublicUser, error)
	refresh  func(string) (*service.TokenPair, error)
	callback func(code, state string) (*service.OAuthResult, error)
}

func (f *fakeAuth) Register(_ context.Context, in service.RegisterInput) (*model.PublicUser, error) {
	return f.register(in)
}

func (f *fakeAuth) Refresh(_ context.Context, raw string) (*service.TokenPair, error) {
	return f.refresh(raw)
}

func (f *fakeAuth) GoogleCallback(_ context.Context, code, state string) (*service.OAuthResult, error) {
	return f.callback(code, state)
}

func authRoutes(a handler.AuthAPI) *echo.Echo {
	e := newEcho()
	h := handler.NewAuthHandler(a, nil, "http://client.test/", logger.Nop())
	e.POST("/register", h.Register)
	e.POST("/refresh-token", h.RefreshToken)
	e.GET("/oauth/google", h.GoogleCallback)
	return e
}

func TestRegisterBindsAndValidates(t *testing.T) {
	var got service.RegisterInput
	e := authRoutes(&fakeAuth{register: func(in service.RegisterInput) (*model.PublicUser, error) {
		got = in
		return &model.PublicUser{ID: "u1", Email: in.Email, Verify: model.Unverified}, nil
	}})

	rec := do(e, http.MethodPost, "/register",
		`{"name":"Ann","email":"a@x.com","password":"secret1","confirmPassword":"other1","role":"User"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	b := decodeErr(t, rec)
	assert.Equal(t, "validation_failed", b.Code)
	assert.Contains(t, b.Error, "confirmPassword must match password")

	rec = do(e, http.MethodPost, "/register", `{"email":"bad","password":"123"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	b = decodeErr(t, rec)
	assert.Contains(t, b.Error, "email must be a valid email")
	assert.Contains(t, b.Error, "password must be at least 6 characters")
	assert.NotContains(t, b.Error, "name")

	rec = do(e, http.MethodPost, "/register",
		`{"name":"Ann","email":"a@x.com","password":"secret1","confirmPassword":"secret1","role":"User","dateOfBirth":"1990-01-01"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "a@x.com", got.Email)
	require.NotNil(t, got.DateOfBirth)
	assert.Equal(t, 1990, got.DateOfBirth.Year())

	var out struct {
		Data model.PublicUser `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, 0, out.Data.Verify)
}

func TestRegisterWithoutName(t *testing.T) {
	var got service.RegisterInput
	e := authRoutes(&fakeAuth{register: func(in service.RegisterInput) (*model.PublicUser, error) {
		got = in
		return &model.PublicUser{ID: "u1", Email: in.Email, Verify: model.Unverified}, nil
	}})

	rec := do(e, http.MethodPost, "/register",
		`{"email":"a@x.com","password":"secret1","confirmPassword":"secret1","role":"User","dateOfBirth":"1990-01-01"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Empty(t, got.Name)
	assert.Equal(t, "User", got.Role)

	var out struct {
		Data model.PublicUser `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, model.Unverified, out.Data.Verify)
}

func TestTokenFailureCarriesReasonCode(t *testing.T) {
	e := authRoutes(&fakeAuth{refresh: func(raw string) (*service.TokenPair, error) {
		assert.Equal(t, "r1", raw)
		return nil, apperr.Token(apperr.CodeTokenRevoked, "refresh token has been revoked")
	}})

	rec := do(e, http.MethodPost, "/refresh-token", `{"refreshToken":"r1"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apperr.CodeTokenRevoked, decodeErr(t, rec).Code)

	rec = do(e, http.MethodPost, "/refresh-token", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInternalErrorsAreNotLeaked(t *testing.T) {
	e := authRoutes(&fakeAuth{refresh: func(string) (*service.TokenPair, error) {
		return nil, apperr.Internal("store session", errors.New("dial tcp 10.0.0.3:3306: refused"))
	}})

	rec := do(e, http.MethodPost, "/refresh-token", `{"refreshToken":"r1"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.3")
	assert.Equal(t, "internal server error", decodeErr(t, rec).Error)
}

func TestGoogleCallbackRedirects(t *testing.T) {
	e := authRoutes(&fakeAuth{callback: func(code, state string) (*service.OAuthResult, error) {
		if state != "good" {
			return nil, apperr.Unauthorized("invalid oauth state")
		}
		return &service.OAuthResult{
			TokenPair: service.TokenPair{AccessToken: "acc", RefreshToken: "ref"},
			NewUser:   true,
			Verify:    model.Verified,
		}, nil
	}})

	rec := do(e, http.MethodGet, "/oauth/google?code=c&state=good", "")
	require.Equal(t, http.StatusFound, rec.Code)
	loc, err := url.Parse(rec.Header().Get(echo.HeaderLocation))
	require.NoError(t, err)
	assert.Equal(t, "client.test", loc.Host)
	assert.Equal(t, "/oauth", loc.Path)
	assert.Equal(t, "acc", loc.Query().Get("access_token"))
	assert.Equal(t, "ref", loc.Query().Get("refresh_token"))
	assert.Equal(t, "1", loc.Query().Get("new_user"))
	assert.Equal(t, "1", loc.Query().Get("verify"))

	rec = do(e, http.MethodGet, "/oauth/google?code=c&state=forged", "")
	require.Equal(t, http.StatusFound, rec.Code)
	loc, err = url.Parse(rec.Header().Get(echo.HeaderLocation))
	require.NoError(t, err)
	assert.Equal(t, "invalid oauth state", loc.Query().Get("error"))
	assert.Empty(t, loc.Query().Get("access_token"))
}

type fakeCourses struct {
	handler.CourseAPI
	filter model.CourseFilter
	page   model.Page
}

func (f *fakeCourses) List(_ context.Context, fl model.CourseFilter, p model.Page) ([]model.Course, model.Pagination, error) {
	f.filter, f.page = fl, p
	return []model.Course{{ID: "c1"}}, model.NewPagination(1, model.Page{Page: 1, Limit: 10}), nil
}

func TestCourseListQuery(t *testing.T) {
	courses := &fakeCourses{}
	e := newEcho()
	h := handler.NewCatalogHandler(nil, nil, courses)
	e.GET("/courses", h.ListCourses)

	rec := do(e, http.MethodGet, "/courses?q=go&categoryId=cat&minPrice=5&maxRating=4.5&page=2&limit=20", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "go", courses.filter.Query)
	require.NotNil(t, courses.filter.CategoryID)
	assert.Equal(t, "cat", *courses.filter.CategoryID)
	require.NotNil(t, courses.filter.MinPrice)
	assert.Equal(t, 5.0, *courses.filter.MinPrice)
	assert.Nil(t, courses.filter.MaxPrice)
	assert.Nil(t, courses.filter.LevelID)
	assert.Equal(t, model.Page{Page: 2, Limit: 20}, courses.page)

	var out struct {
		Data       []model.Course   `json:"data"`
		Pagination model.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Len(t, out.Data, 1)
	assert.Equal(t, 1, out.Pagination.TotalPages)

	for _, q := range []string{"minPrice=abc", "maxRating=6", "limit=500", "page=-1"} {
		rec = do(e, http.MethodGet, "/courses?"+q, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

type fakeMedia struct {
	handler.MediaAPI
	got  media.Upload
	body string
}

func (f *fakeMedia) UploadImage(_ context.Context, up media.Upload) (*model.UploadedFile, error) {
	f.got = up
	b, _ := io.ReadAll(up.Body)
	f.body = string(b)
	return &model.UploadedFile{FileName: "x.png", URL: "http://s/static/images/x.png", MimeType: up.ContentType, Size: up.Size}, nil
}

func TestUploadImageMultipart(t *testing.T) {
	m := &fakeMedia{}
	e := newEcho()
	h := handler.NewMediaHandler(m)
	e.POST("/upload-image", h.UploadImage)

	rec := do(e, http.MethodPost, "/upload-image", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "no file uploaded", decodeErr(t, rec).Error)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="cat.png"`)
	hdr.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, _ = part.Write([]byte("PNGDATA"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload-image", &buf)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "cat.png", m.got.Name)
	assert.Equal(t, "image/png", m.got.ContentType)
	assert.Equal(t, int64(7), m.got.Size)
	assert.Equal(t, "PNGDATA", m.body)
}

func TestEchoErrorsUseTheSameBody(t *testing.T) {
	e := newEcho()
	rec := do(e, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeErr(t, rec).Code)
}

func TestReady(t *testing.T) {
	e := newEcho()
	down := errors.New("connection refused")
	e.GET("/readyz", handler.Ready(map[string]handler.Pinger{
		"mysql": handler.PingFunc(func(context.Context) error { return nil }),
		"redis": handler.PingFunc(func(context.Context) error { return down }),
	}))

	rec := do(e, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "ok", out["mysql"])
	assert.Equal(t, "connection refused", out["redis"])
}
