package controllers

import (
	"context"

	"multishop-server/models"
	"multishop-server/services"
	"multishop-server/utils"

	"github.com/gofiber/fiber/v2"
)

type FavoriteService interface {
	Add(ctx context.Context, accountName, productID, shopID string) (*models.ProductFavorite, error)
	Remove(ctx context.Context, accountName, productID string) error
	Status(ctx context.Context, accountName, productID string) (bool, error)
	List(ctx context.Context, accountName string, page, limit int) ([]services.ProductFavoriteView, utils.Pagination, error)
	AddShop(ctx context.Context, accountName, shopID string) (*models.ShopFavorite, error)
	RemoveShop(ctx context.Context, accountName, shopID string) error
	ShopStatus(ctx context.Context, accountName, shopID string) (bool, error)
	ListShops(ctx context.Context, accountName string, page, limit int) ([]services.ShopFavoriteView, utils.Pagination, error)
}

// FavoriteController 商品收藏与店铺收藏
type FavoriteController struct {
	favorites FavoriteService
}

// NewFavoriteController 构造函数
func NewFavoriteController(favorites FavoriteService) *FavoriteController {
	return &FavoriteController{favorites: favorites}
}

type favoriteRequest struct {
	ProductID string `json:"product_id"`
	ShopID    string `json:"shop_id"`
}

func (fc *FavoriteController) AddFavorite(c *fiber.Ctx) error {
	account, err := accountName(c)
	if err != nil {
		return err
	}
	var in favoriteRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}
	fav, err := fc.favorites.Add(c.UserContext(), account, in.ProductID, in.ShopID)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, fiber.Map{"message": "收藏成功", "data": fav})
}

func (fc *FavoriteController) GetFavorites(c *fiber.Ctx) error {
	account, err := accountName(c)
	if err != nil {
		return err
	}
	page, limit := utils.ParsePage(c.Query("page"), c.Query("limit"), services.DefaultFavoriteLimit)
	list, pagination, err := fc.favorites.List(c.UserContext(), account, page, limit)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, fiber.Map{"data": list, "pagination": pagination})
}

func (fc *FavoriteController) RemoveFavorite(c *fiber.Ctx) error {
	account, err := accountName(c)
	if err != nil {
		return err
	}
	if err := fc.favorites.Remove(c.UserContext(), account, c.Params("productId")); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, fiber.Map{"message": "已取消收藏"})
}

func (fc *FavoriteController) CheckFavorite(c *fiber.Ctx) error {
	account, err := accountName(c)
	if err != nil {
		return err
	}
	ok, err := fc.favorites.Status(c.UserContext(), account, c.Params("productId"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, fiber.Map{"isFavorited": ok})
}

func (fc *FavoriteController) AddShopFavorite(c *fiber.Ctx) error {
	account, err := accountName(c)
	if err != nil {
		return err
	}
	var in favoriteRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}
	fav, err := fc.favorites.AddShop(c.UserContext(), account, in.ShopID)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, fiber.Map{"message": "店铺收藏成功", "data": fav})
}

func (fc *FavoriteController) GetShopFavorites(c *fiber.Ctx) error {
	account, err := accountName(c)
	if err != nil {
		return err
	}
	page, limit := utils.ParsePage(c.Query("page"), c.Query("limit"), services.DefaultFavoriteLimit)
	list, pagination, err := fc.favorites.ListShops(c.UserContext(), account, page, limit)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, fiber.Map{"data": list, "pagination": pagination})
}

func (fc *FavoriteController) RemoveShopFavorite(c *fiber.Ctx) error {
	account, err := accountName(c)
	if err != nil {
		return err
	}
	if err := fc.favorites.RemoveShop(c.UserContext(), account, c.Params("shopId")); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, fiber.Map{"message": "已取消店铺收藏"})
}

func (fc *FavoriteController) CheckShopFavorite(c *fiber.Ctx) error {
	account, err := accountName(c)
	if err != nil {
		return err
	}
	ok, err := fc.favorites.ShopStatus(c.UserContext(), account, c.Params("shopId"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, fiber.Map{"isFavorited": ok})
}
