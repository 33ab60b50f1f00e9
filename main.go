package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"multishop-server/cache"
	"multishop-server/config"
	"multishop-server/controllers"
	"multishop-server/database"
	"multishop-server/logger"
	"multishop-server/middleware"
	"multishop-server/models"
	"multishop-server/repository"
	"multishop-server/services"
	"multishop-server/tasks"
	"multishop-server/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

const shutdownTimeout = 15 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		return 1
	}
	if _, err := logger.Init(cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		return 1
	}
	log := logger.Component("main")

	ctx := context.Background()

	conns := database.NewRegistry(cfg.Mongo, logger.Component("database"))
	modelRegistry := models.NewRegistry(conns, logger.Component("models"), models.WithIndexes(cfg.Mongo.EnsureIndexes))
	if _, err := modelRegistry.UserModels(ctx); err != nil {
		log.WithError(err).Error("连接用户数据库失败")
		return 1
	}

	var kv cache.Cache = cache.Nop{}
	redisClient, err := cache.Connect(ctx, cfg.Redis)
	switch {
	case err != nil:
		log.WithError(err).Warn("redis 不可用，缓存已禁用")
	case redisClient == nil:
		log.Info("未配置 REDIS_ADDR，缓存已禁用")
	default:
		kv = cache.NewRedisCache(redisClient, "multishop:")
		defer redisClient.Close()
	}

	userRepo := repository.NewUserRepo(modelRegistry)
	addressRepo := repository.NewAddressRepo(modelRegistry)
	shopRepo := repository.NewShopRepo(modelRegistry)
	orderRepo := repository.NewOrderRepo(modelRegistry)
	favoriteRepo := repository.NewFavoriteRepo(modelRegistry)

	tokens := utils.NewTokenManager(cfg.JWT.Secret, cfg.JWT.ExpiresIn)
	userService := services.NewUserService(userRepo, tokens, kv, cfg.Redis.AuthCacheTTL, logger.Component("user"))
	addressService := services.NewAddressService(addressRepo, logger.Component("address"))
	orderService := services.NewOrderService(orderRepo, shopRepo, cfg.Order.StrictTransitions, logger.Component("order"))
	shopService := services.NewShopService(shopRepo, orderRepo, kv, cfg.Order.StrictTransitions, logger.Component("shop"))
	favoriteService := services.NewFavoriteService(favoriteRepo, shopRepo, logger.Component("favorite"))
	homeService := services.NewHomeService(shopRepo, conns, kv, cfg.Redis.HomeCacheTTL, cfg.Home, logger.Component("home"))

	h := handlers{
		user:     controllers.NewUserController(userService),
		address:  controllers.NewAddressController(addressService),
		product:  controllers.NewProductController(shopService),
		shop:     controllers.NewShopController(shopService, orderService, logger.Component("shop")),
		home:     controllers.NewHomeController(homeService),
		order:    controllers.NewOrderController(orderService),
		favorite: controllers.NewFavoriteController(favoriteService),
		auth:     middleware.NewMiddleware(userService, logger.Component("auth")),
		tenant:   middleware.NewTenantResolver(modelRegistry, logger.Component("tenant")),
		security: middleware.NewSecurityMiddleware(cfg.HTTP),
	}

	app := fiber.New(fiber.Config{
		AppName:      "multishop-server",
		ErrorHandler: middleware.ErrorHandler(logger.Component("http")),
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.HTTP.CORSAllowOrigins,
		AllowMethods: "GET,POST,PUT,PATCH,DELETE",
		AllowHeaders: "Content-Type,Authorization,Origin,Accept",
	}))
	registerRoutes(app, h)

	var sweep *tasks.OrderSweepTask
	if cfg.Order.SweepEnabled {
		sweep = tasks.NewOrderSweepTask(orderService, cfg.Order, logger.Component("sweep"))
		if err := sweep.Start(); err != nil {
			log.WithError(err).Error("启动订单清理任务失败")
			return 1
		}
	}

	listenErr := make(chan error, 1)
	go func() {
		listenErr <- app.Listen(":" + cfg.Port)
	}()
	log.WithField("port", cfg.Port).Info("服务已启动")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	code := 0
	select {
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("收到退出信号，开始关闭")
	case err := <-listenErr:
		log.WithError(err).Error("HTTP 服务异常退出")
		code = 1
	}

	if sweep != nil {
		sweep.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.WithError(err).Warn("关闭 HTTP 服务失败")
	}
	log.WithField("model_sets", modelRegistry.Cached()).Info("关闭数据库连接")
	if err := conns.CloseAll(shutdownCtx); err != nil {
		log.WithError(err).Warn("关闭数据库连接失败")
	}
	log.Info("服务已退出")
	return code
}
