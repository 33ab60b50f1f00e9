package controllers

import (
	"context"
	"fmt"
	"time"

	"multishop-server/common"
	"multishop-server/middleware"
	"multishop-server/models"
	"multishop-server/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

type ShopService interface {
	Profile(ctx context.Context, shopID string) (*models.ShopProfile, error)
	UpsertProfile(ctx context.Context, shopID string, in services.ProfileInput) (*models.ShopProfile, error)
	ShopOrders(ctx context.Context, shopID string, q services.ShopOrderQuery) ([]models.Order, error)
	ShopUpdateOrderStatus(ctx context.Context, shopID, orderNo, status string) (*models.Order, error)
	CancelShopOrder(ctx context.Context, shopID, orderNo, reason string) (*models.Order, error)
	DeleteShopOrder(ctx context.Context, shopID, orderNo string) error
	DashboardStats(ctx context.Context, shopID string) (*services.DashboardStats, error)
	ExportOrders(ctx context.Context, shopID, status string) (*excelize.File, error)
}

// OrderCreator 店铺端代客下单复用用户下单逻辑
type OrderCreator interface {
	Create(ctx context.Context, accountName string, in services.CreateOrderInput) (*models.Order, error)
}

// ShopController 店铺资料、店铺订单与后台统计
type ShopController struct {
	shops  ShopService
	orders OrderCreator
	log    *logrus.Entry
}

// NewShopController 构造函数
func NewShopController(shops ShopService, orders OrderCreator, log *logrus.Entry) *ShopController {
	return &ShopController{shops: shops, orders: orders, log: log}
}

type statusRequest struct {
	Status       string `json:"status"`
	CancelReason string `json:"cancel_reason"`
}

func (sc *ShopController) GetProfile(c *fiber.Ctx) error {
	p, err := sc.shops.Profile(c.UserContext(), middleware.ShopID(c))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, fiber.Map{"data": p})
}

func (sc *ShopController) UpdateProfile(c *fiber.Ctx) error {
	var in services.ProfileInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	p, err := sc.shops.UpsertProfile(c.UserContext(), middleware.ShopID(c), in)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, fiber.Map{"message": "店铺信息已更新", "data": p})
}

func (sc *ShopController) GetOrders(c *fiber.Ctx) error {
	q := services.ShopOrderQuery{
		Status: c.Query("status"),
		Sort:   c.Query("sort"),
		Order:  c.Query("order", "desc"),
		Limit:  int64(c.QueryInt("limit", 0)),
	}
	if q.Limit < 0 {
		return common.Validation("limit 不能为负数", nil)
	}
	orders, err := sc.shops.ShopOrders(c.UserContext(), middleware.ShopID(c), q)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, fiber.Map{"data": orders})
}

// CreateOrder 店铺ID以路径为准
func (sc *ShopController) CreateOrder(c *fiber.Ctx) error {
	account, err := accountName(c)
	if err != nil {
		return err
	}
	var in services.CreateOrderInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	in.ShopID = middleware.ShopID(c)
	o, err := sc.orders.Create(c.UserContext(), account, in)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, fiber.Map{"message": "订单创建成功", "data": o})
}

func (sc *ShopController) UpdateOrderStatus(c *fiber.Ctx) error {
	var in statusRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}
	o, err := sc.shops.ShopUpdateOrderStatus(c.UserContext(), middleware.ShopID(c), c.Params("orderNo"), in.Status)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, fiber.Map{"message": "订单状态更新成功", "data": o})
}

func (sc *ShopController) CancelOrder(c *fiber.Ctx) error {
	var in statusRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &in); err != nil {
			return err
		}
	}
	o, err := sc.shops.CancelShopOrder(c.UserContext(), middleware.ShopID(c), c.Params("orderNo"), in.CancelReason)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, fiber.Map{"message": "订单已取消", "data": o})
}

func (sc *ShopController) DeleteOrder(c *fiber.Ctx) error {
	if err := sc.shops.DeleteShopOrder(c.UserContext(), middleware.ShopID(c), c.Params("orderNo")); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, fiber.Map{"message": "订单删除成功"})
}

func (sc *ShopController) DashboardStats(c *fiber.Ctx) error {
	stats, err := sc.shops.DashboardStats(c.UserContext(), middleware.ShopID(c))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, fiber.Map{"data": stats})
}

// ExportOrders 导出订单到 excel，工作簿写入内存后直接作为附件返回
func (sc *ShopController) ExportOrders(c *fiber.Ctx) error {
	shopID := middleware.ShopID(c)
	f, err := sc.shops.ExportOrders(c.UserContext(), shopID, c.Query("status"))
	if err != nil {
		return err
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		sc.log.WithFields(logrus.Fields{"shop_id": shopID, "error": err}).Error("生成 Excel 文件失败")
		return common.Internal("生成 Excel 文件失败", err)
	}
	fileName := fmt.Sprintf("OrderExport_%s_%s.xlsx", shopID, time.Now().Format("20060102_150405"))
	c.Attachment(fileName)
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	return c.Send(buf.Bytes())
}
