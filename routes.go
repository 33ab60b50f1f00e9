package main

import (
	"multishop-server/controllers"
	"multishop-server/middleware"

	"github.com/gofiber/fiber/v2"
)

type handlers struct {
	user     *controllers.UserController
	address  *controllers.AddressController
	product  *controllers.ProductController
	shop     *controllers.ShopController
	home     *controllers.HomeController
	order    *controllers.OrderController
	favorite *controllers.FavoriteController

	auth     *middleware.Middleware
	tenant   *middleware.TenantResolver
	security *middleware.SecurityMiddleware
}

func registerRoutes(app *fiber.App, h handlers) {
	authed := h.auth.UserMiddlewareHandler

	api := app.Group("/api")
	api.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true, "message": "multishop-server is running"})
	})

	user := api.Group("/user")
	user.Post("/register", h.user.Register)
	user.Post("/login", h.security.RateLimiter(), h.user.Login)
	user.Get("/check-username/:username", h.user.CheckUsername)

	// 地址路由需在 /:id 之前注册
	addr := user.Group("/addresses", authed)
	addr.Get("/", h.address.GetAddresses)
	addr.Post("/", h.address.AddAddress)
	addr.Get("/:id", h.address.GetAddress)
	addr.Put("/:id", h.address.UpdateAddress)
	addr.Delete("/:id", h.address.DelAddress)
	addr.Patch("/:id/default", h.address.SetDefault)

	user.Get("/", authed, h.user.List)
	user.Get("/:id", authed, h.user.Get)
	user.Put("/:id", authed, h.user.Update)
	user.Delete("/:id", authed, h.user.Delete)

	// 首页聚合路由需在 /:shopId 之前注册
	shops := api.Group("/shops")
	shops.Get("/home/all-products", h.home.AllProducts)
	shops.Get("/home/all-products-dynamic", h.home.AllProductsDynamic)
	api.Get("/home/all-products", h.home.AllProducts)

	shop := shops.Group("/:shopId", h.tenant.Resolve)
	shop.Get("/profile", h.shop.GetProfile)
	shop.Put("/profile", authed, h.shop.UpdateProfile)
	shop.Get("/products", h.product.AllProduct)
	shop.Post("/products", authed, h.product.AddProduct)
	shop.Get("/products/:productId", h.product.FetchOne)
	shop.Put("/products/:productId", authed, h.product.UpdateProduct)
	shop.Delete("/products/:productId", authed, h.product.DelProduct)
	shop.Get("/categories", h.product.AllCategories)
	shop.Post("/categories", authed, h.product.AddCategory)
	shop.Get("/orders/export", authed, h.shop.ExportOrders)
	shop.Get("/orders", authed, h.shop.GetOrders)
	shop.Post("/orders", authed, h.shop.CreateOrder)
	shop.Delete("/orders/:orderNo", authed, h.shop.DeleteOrder)
	shop.Put("/orders/:orderNo/status", authed, h.shop.UpdateOrderStatus)
	shop.Put("/orders/:orderNo/cancel", authed, h.shop.CancelOrder)
	shop.Get("/dashboard-stats", authed, h.shop.DashboardStats)

	orders := api.Group("/orders", authed)
	orders.Get("/counts", h.order.GetOrderCounts)
	orders.Post("/", h.security.RateLimiter(), h.order.CreateOrder)
	orders.Get("/", h.order.GetOrders)
	orders.Get("/:id", h.order.GetOrder)
	orders.Put("/:id/status", h.order.UpdateOrderStatus)
	orders.Delete("/:id", h.order.DeleteOrder)

	fav := api.Group("/favorites", authed)
	fav.Post("/", h.favorite.AddFavorite)
	fav.Get("/", h.favorite.GetFavorites)
	fav.Get("/status/:productId", h.favorite.CheckFavorite)
	fav.Post("/shops", h.favorite.AddShopFavorite)
	fav.Get("/shops", h.favorite.GetShopFavorites)
	fav.Delete("/shops/:shopId", h.favorite.RemoveShopFavorite)
	fav.Get("/shops/:shopId/status", h.favorite.CheckShopFavorite)
	fav.Delete("/:productId", h.favorite.RemoveFavorite)
}
