package middleware

import (
	"context"
	"encoding/json"
	"strings"

	"multishop-server/common"
	"multishop-server/database"
	"multishop-server/models"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const (
	shopIDKey     = "shopId"
	shopModelsKey = "shopModels"
)

type TenantSource interface {
	ShopModels(ctx context.Context, shopID string) (*models.ShopModels, error)
}

// TenantResolver 从请求中解析店铺ID并绑定该店铺的模型
type TenantResolver struct {
	models TenantSource
	log    *logrus.Entry
}

func NewTenantResolver(src TenantSource, log *logrus.Entry) *TenantResolver {
	return &TenantResolver{models: src, log: log}
}

// Resolve 依次读取路径参数 shopId、请求体 shop_id、查询参数 shopId
func (r *TenantResolver) Resolve(c *fiber.Ctx) error {
	shopID := requestShopID(c)
	if shopID == "" {
		return common.MissingTenant()
	}
	if err := database.CheckShopID(shopID); err != nil {
		return err
	}

	ms, err := r.models.ShopModels(c.UserContext(), shopID)
	if e, ok := common.As(err); ok && e.StatusCode < fiber.StatusInternalServerError {
		return err
	}
	if err != nil {
		r.log.WithFields(logrus.Fields{"shop_id": shopID, "path": c.Path(), "error": err}).Error("获取店铺数据库连接失败")
		return common.Internal("无法连接店铺数据库", err)
	}
	c.Locals(shopIDKey, shopID)
	c.Locals(shopModelsKey, ms)
	return c.Next()
}

func requestShopID(c *fiber.Ctx) string {
	if id := c.Params("shopId"); id != "" {
		return strings.Clone(id)
	}
	if body := c.Body(); len(body) > 0 {
		var peek struct {
			ShopID string `json:"shop_id"`
		}
		if json.Unmarshal(body, &peek) == nil && peek.ShopID != "" {
			return peek.ShopID
		}
	}
	return strings.Clone(c.Query("shopId"))
}

// ShopID 当前请求解析出的店铺ID
func ShopID(c *fiber.Ctx) string {
	id, _ := c.Locals(shopIDKey).(string)
	return id
}

func ShopModels(c *fiber.Ctx) *models.ShopModels {
	ms, _ := c.Locals(shopModelsKey).(*models.ShopModels)
	return ms
}
