package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"multishop-server/common"
	"multishop-server/config"
	"multishop-server/database"
	"multishop-server/models"
	"multishop-server/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func newApp() *fiber.App {
	return fiber.New(fiber.Config{ErrorHandler: ErrorHandler(testLog())})
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

func do(t *testing.T, app *fiber.App, req *http.Request) (int, envelope) {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	var body envelope
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &body)
	return resp.StatusCode, body
}

type stubAuth struct {
	principals map[string]*services.Principal
}

func (s stubAuth) ParseToken(token string) (string, error) {
	switch token {
	case "expired":
		return "", common.TokenExpired()
	case "garbage":
		return "", common.Forbidden("无效的认证令牌")
	}
	return token, nil
}

func (s stubAuth) Principal(ctx context.Context, id string) (*services.Principal, error) {
	if id == "broken" {
		return nil, errors.New("redis down")
	}
	return s.principals[id], nil
}

func TestUserMiddlewareHandler(t *testing.T) {
	auth := stubAuth{principals: map[string]*services.Principal{
		"u1":  {ID: "u1", AccountName: "alice", Status: models.UserStatusNormal},
		"off": {ID: "off", AccountName: "bob", Status: models.UserStatusDisabled},
	}}
	app := newApp()
	app.Get("/me", NewMiddleware(auth, testLog()).UserMiddlewareHandler, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true, "message": CurrentUser(c).AccountName})
	})

	cases := []struct {
		header string
		status int
		code   string
	}{
		{"", http.StatusUnauthorized, string(common.CodeUnauthorized)},
		{"Basic abc", http.StatusUnauthorized, string(common.CodeUnauthorized)},
		{"Bearer expired", http.StatusUnauthorized, string(common.CodeTokenExpired)},
		{"Bearer garbage", http.StatusForbidden, string(common.CodeForbidden)},
		{"Bearer ghost", http.StatusForbidden, string(common.CodeForbidden)},
		{"Bearer off", http.StatusForbidden, string(common.CodeForbidden)},
		{"Bearer broken", http.StatusInternalServerError, string(common.CodeInternal)},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		status, body := do(t, app, req)
		assert.Equal(t, tc.status, status, tc.header)
		assert.Equal(t, tc.code, body.Code, tc.header)
		assert.False(t, body.Success)
	}

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer u1")
	status, body := do(t, app, req)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alice", body.Message)
}

type stubTenants struct {
	err error
}

func (s stubTenants) ShopModels(ctx context.Context, shopID string) (*models.ShopModels, error) {
	if s.err != nil {
		return nil, s.err
	}
	return models.NewShopModels(database.NewConnection("shop_"+shopID, nil), shopID), nil
}

func tenantApp(src TenantSource) *fiber.App {
	app := newApp()
	r := NewTenantResolver(src, testLog())
	echo := func(c *fiber.Ctx) error {
		ok := ShopModels(c) != nil && ShopModels(c).ShopID == ShopID(c)
		return c.JSON(fiber.Map{"success": ok, "message": ShopID(c)})
	}
	app.Get("/shops/:shopId/profile", r.Resolve, echo)
	app.All("/orders", r.Resolve, echo)
	return app
}

func TestTenantResolution(t *testing.T) {
	app := tenantApp(stubTenants{})

	status, body := do(t, app, httptest.NewRequest(http.MethodGet, "/shops/shop001/profile", nil))
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, body.Success)
	assert.Equal(t, "shop001", body.Message)

	status, body = do(t, app, httptest.NewRequest(http.MethodGet, "/orders?shopId=shop002", nil))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "shop002", body.Message)

	req := httptest.NewRequest(http.MethodPost, "/orders?shopId=shop002", strings.NewReader(`{"shop_id":"shop003"}`))
	req.Header.Set("Content-Type", "application/json")
	status, body = do(t, app, req)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "shop003", body.Message)

	status, body = do(t, app, httptest.NewRequest(http.MethodGet, "/orders", nil))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, string(common.CodeMissingTenant), body.Code)

	status, body = do(t, app, httptest.NewRequest(http.MethodGet, "/orders?shopId=a.b", nil))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, string(common.CodeValidation), body.Code)
}

func TestTenantResolutionFailure(t *testing.T) {
	app := tenantApp(stubTenants{err: errors.New("dial tcp: refused")})
	status, body := do(t, app, httptest.NewRequest(http.MethodGet, "/shops/shop001/profile", nil))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, string(common.CodeInternal), body.Code)
	assert.NotContains(t, body.Message, "refused")
}

func TestErrorHandlerRendersFiberErrors(t *testing.T) {
	app := newApp()
	status, body := do(t, app, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, string(common.CodeNotFound), body.Code)
	assert.False(t, body.Success)
}

func TestRateLimiter(t *testing.T) {
	app := newApp()
	sm := NewSecurityMiddleware(config.HTTP{RateLimitMax: 2, RateLimitWindow: time.Minute})
	app.Post("/login", sm.RateLimiter(), func(c *fiber.Ctx) error { return c.SendStatus(http.StatusNoContent) })

	for i := 0; i < 2; i++ {
		status, _ := do(t, app, httptest.NewRequest(http.MethodPost, "/login", nil))
		assert.Equal(t, http.StatusNoContent, status)
	}
	status, body := do(t, app, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.NotEmpty(t, body.Message)
}
