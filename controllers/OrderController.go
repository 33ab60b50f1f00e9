package controllers

import (
	"context"

	"multishop-server/models"
	"multishop-server/services"
	"multishop-server/utils"

	"github.com/gofiber/fiber/v2"
)

const defaultOrderPageSize = 10

type OrderService interface {
	Create(ctx context.Context, accountName string, in services.CreateOrderInput) (*models.Order, error)
	List(ctx context.Context, accountName, status string, page, limit int) ([]models.Order, utils.OrderPagination, error)
	Counts(ctx context.Context, accountName string) (*services.OrderCounts, error)
	Get(ctx context.Context, accountName, id string) (*models.Order, error)
	UpdateStatus(ctx context.Context, accountName, id, status, cancelReason string) (*models.Order, error)
	Delete(ctx context.Context, accountName, id string) error
}

type OrderController struct {
	orders OrderService
}

// NewOrderController 构造函数
func NewOrderController(orders OrderService) *OrderController {
	return &OrderController{orders: orders}
}

// GetOrderCounts 各状态订单数量
func (oc *OrderController) GetOrderCounts(c *fiber.Ctx) error {
	account, err := accountName(c)
	if err != nil {
		return err
	}
	counts, err := oc.orders.Counts(c.UserContext(), account)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, fiber.Map{"data": counts})
}

// CreateOrder 创建订单
func (oc *OrderController) CreateOrder(c *fiber.Ctx) error {
	account, err := accountName(c)
	if err != nil {
		return err
	}
	var in services.CreateOrderInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	o, err := oc.orders.Create(c.UserContext(), account, in)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, fiber.Map{"message": "订单创建成功", "data": o})
}

// GetOrders 分页获取当前用户订单，可按 status 过滤
func (oc *OrderController) GetOrders(c *fiber.Ctx) error {
	account, err := accountName(c)
	if err != nil {
		return err
	}
	page, limit := utils.ParsePage(c.Query("page"), c.Query("limit"), defaultOrderPageSize)
	orders, pagination, err := oc.orders.List(c.UserContext(), account, c.Query("status"), page, limit)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, fiber.Map{"data": orders, "pagination": pagination})
}

func (oc *OrderController) GetOrder(c *fiber.Ctx) error {
	account, err := accountName(c)
	if err != nil {
		return err
	}
	o, err := oc.orders.Get(c.UserContext(), account, c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, fiber.Map{"data": o})
}

func (oc *OrderController) UpdateOrderStatus(c *fiber.Ctx) error {
	account, err := accountName(c)
	if err != nil {
		return err
	}
	var in statusRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}
	o, err := oc.orders.UpdateStatus(c.UserContext(), account, c.Params("id"), in.Status, in.CancelReason)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, fiber.Map{"message": "订单状态更新成功", "data": o})
}

func (oc *OrderController) DeleteOrder(c *fiber.Ctx) error {
	account, err := accountName(c)
	if err != nil {
		return err
	}
	if err := oc.orders.Delete(c.UserContext(), account, c.Params("id")); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, fiber.Map{"message": "订单删除成功"})
}
