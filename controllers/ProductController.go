package controllers

import (
	"context"

	"multishop-server/middleware"
	"multishop-server/models"
	"multishop-server/services"

	"github.com/gofiber/fiber/v2"
)

type ProductService interface {
	ListProducts(ctx context.Context, shopID string) ([]models.Product, error)
	GetProduct(ctx context.Context, shopID, productID string) (*models.Product, error)
	CreateProduct(ctx context.Context, shopID string, in services.ProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, shopID, productID string, in services.ProductInput) (*models.Product, error)
	DeleteProduct(ctx context.Context, shopID, productID string) error
	ListCategories(ctx context.Context, shopID string) ([]models.ProductCategory, error)
	CreateCategory(ctx context.Context, shopID string, in services.CategoryInput) (*models.ProductCategory, error)
}

// ProductController 店铺内商品与分类，店铺ID由 TenantResolver 解析
type ProductController struct {
	products ProductService
}

// NewProductController 构造函数
func NewProductController(products ProductService) *ProductController {
	return &ProductController{products: products}
}

func (pc *ProductController) AllProduct(c *fiber.Ctx) error {
	products, err := pc.products.ListProducts(c.UserContext(), middleware.ShopID(c))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, fiber.Map{"data": products})
}

func (pc *ProductController) FetchOne(c *fiber.Ctx) error {
	p, err := pc.products.GetProduct(c.UserContext(), middleware.ShopID(c), c.Params("productId"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, fiber.Map{"data": p})
}

func (pc *ProductController) AddProduct(c *fiber.Ctx) error {
	var in services.ProductInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	p, err := pc.products.CreateProduct(c.UserContext(), middleware.ShopID(c), in)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, fiber.Map{"message": "商品创建成功", "data": p})
}

func (pc *ProductController) UpdateProduct(c *fiber.Ctx) error {
	var in services.ProductInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	p, err := pc.products.UpdateProduct(c.UserContext(), middleware.ShopID(c), c.Params("productId"), in)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, fiber.Map{"message": "商品更新成功", "data": p})
}

func (pc *ProductController) DelProduct(c *fiber.Ctx) error {
	if err := pc.products.DeleteProduct(c.UserContext(), middleware.ShopID(c), c.Params("productId")); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, fiber.Map{"message": "商品删除成功"})
}

func (pc *ProductController) AllCategories(c *fiber.Ctx) error {
	cats, err := pc.products.ListCategories(c.UserContext(), middleware.ShopID(c))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, fiber.Map{"data": cats})
}

func (pc *ProductController) AddCategory(c *fiber.Ctx) error {
	var in services.CategoryInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	cat, err := pc.products.CreateCategory(c.UserContext(), middleware.ShopID(c), in)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, fiber.Map{"message": "分类创建成功", "data": cat})
}
