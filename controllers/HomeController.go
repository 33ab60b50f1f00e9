package controllers

import (
	"context"

	"multishop-server/models"

	"github.com/gofiber/fiber/v2"
)

type HomeService interface {
	Static(ctx context.Context, limitPerShop, totalLimit int) ([]models.Product, error)
	Dynamic(ctx context.Context, limit int) ([]models.Product, error)
}

// HomeController 首页跨店铺商品聚合
type HomeController struct {
	home HomeService
}

// NewHomeController 构造函数
func NewHomeController(home HomeService) *HomeController {
	return &HomeController{home: home}
}

func (hc *HomeController) AllProducts(c *fiber.Ctx) error {
	products, err := hc.home.Static(c.UserContext(), c.QueryInt("perShop", 0), c.QueryInt("limit", 0))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, fiber.Map{"data": products})
}

// AllProductsDynamic limit 缺省时不截断
func (hc *HomeController) AllProductsDynamic(c *fiber.Ctx) error {
	products, err := hc.home.Dynamic(c.UserContext(), c.QueryInt("limit", 0))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, fiber.Map{"data": products})
}
