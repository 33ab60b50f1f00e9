package controllers

import (
	"multishop-server/common"
	"multishop-server/middleware"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// respond 成功响应统一带 success:true
func respond(c *fiber.Ctx, status int, body fiber.Map) error {
	body["success"] = true
	return c.Status(status).JSON(body)
}

func parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return common.Validation("请求数据格式错误", nil)
	}
	return nil
}

// accountName 订单与收藏以 account_name 关联用户
func accountName(c *fiber.Ctx) (string, error) {
	p := middleware.CurrentUser(c)
	if p == nil || p.AccountName == "" {
		return "", common.Unauthorized("用户认证失败或用户信息不完整 (缺少 account_name)")
	}
	return p.AccountName, nil
}

func userOID(c *fiber.Ctx) (primitive.ObjectID, error) {
	p := middleware.CurrentUser(c)
	if p == nil {
		return primitive.NilObjectID, common.Unauthorized("用户未认证")
	}
	oid, err := primitive.ObjectIDFromHex(p.ID)
	if err != nil {
		return primitive.NilObjectID, common.Unauthorized("用户未认证")
	}
	return oid, nil
}
