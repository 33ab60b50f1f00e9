package middleware

import (
	"context"
	"strings"

	"multishop-server/common"
	"multishop-server/models"
	"multishop-server/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const userKey = "user"

// Authenticator 由 services.UserService 实现
type Authenticator interface {
	ParseToken(token string) (string, error)
	Principal(ctx context.Context, id string) (*services.Principal, error)
}

type Middleware struct {
	auth Authenticator
	log  *logrus.Entry
}

func NewMiddleware(auth Authenticator, log *logrus.Entry) *Middleware {
	return &Middleware{auth: auth, log: log}
}

// UserMiddlewareHandler 校验 Bearer 令牌并把当前用户挂到 c.Locals("user")
func (m *Middleware) UserMiddlewareHandler(c *fiber.Ctx) error {
	authorization := c.Get(fiber.HeaderAuthorization)
	if !strings.HasPrefix(authorization, "Bearer ") {
		return common.Unauthorized("认证令牌未提供")
	}
	tokenString := strings.TrimSpace(strings.TrimPrefix(authorization, "Bearer "))
	if tokenString == "" {
		return common.Unauthorized("认证令牌未提供")
	}

	id, err := m.auth.ParseToken(tokenString)
	if err != nil {
		return err
	}
	principal, err := m.auth.Principal(c.UserContext(), id)
	if err != nil {
		return err
	}
	if principal == nil {
		m.log.WithFields(logrus.Fields{"user_id": id, "path": c.Path()}).Warn("令牌对应的用户不存在")
		return common.Forbidden("认证用户不存在")
	}
	if principal.Status == models.UserStatusDisabled {
		return common.Forbidden("用户已被禁用，请联系管理员")
	}
	c.Locals(userKey, principal)
	return c.Next()
}

// CurrentUser 只能在 UserMiddlewareHandler 之后调用
func CurrentUser(c *fiber.Ctx) *services.Principal {
	p, _ := c.Locals(userKey).(*services.Principal)
	return p
}
