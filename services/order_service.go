package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"multishop-server/common"
	"multishop-server/database"
	"multishop-server/models"
	"multishop-server/utils"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/sync/errgroup"
)

// SweepCancelReason 超时未支付订单的取消原因
const SweepCancelReason = "支付超时自动取消"

const productLookupConcurrency = 8

type CreateOrderInput struct {
	ShopID          string           `json:"shop_id"`
	Items           []OrderItemInput `json:"items"`
	TotalAmount     *float64         `json:"total_amount"`
	HandlingFee     float64          `json:"handling_fee"`
	ShippingFee     float64          `json:"shipping_fee"`
	AddressSnapshot bson.M           `json:"address_snapshot"`
	Remark          string           `json:"remark"`
	Status          string           `json:"status"`
	OrderNo         string           `json:"order_no"`
}

type OrderItemInput struct {
	ProductID         string      `json:"product_id"`
	ProductShopID     string      `json:"product_shop_id"`
	Count             int         `json:"count"`
	Spec              interface{} `json:"spec"`
	SpecDescription   string      `json:"spec_description"`
	CustomizationData interface{} `json:"customization_data"`
}

type OrderCounts struct {
	ToPay     int64 `json:"to_pay"`
	ToShip    int64 `json:"to_ship"`
	ToReceive int64 `json:"to_receive"`
	Completed int64 `json:"completed"`
	Cancelled int64 `json:"cancelled"`
	Refund    int64 `json:"refund"`
}

type SweepResult struct {
	Cancelled   int64
	TotalAmount float64
}

type OrderService struct {
	orders  OrderStore
	shops   ShopStore
	updater *statusUpdater
	log     *logrus.Entry
	now     func() time.Time
}

func NewOrderService(orders OrderStore, shops ShopStore, strictTransitions bool, log *logrus.Entry) *OrderService {
	s := &OrderService{orders: orders, shops: shops, log: log, now: time.Now}
	s.updater = &statusUpdater{orders: orders, strict: strictTransitions, now: func() time.Time { return s.now() }}
	return s
}

// Create 以店铺库中的价格为准重新计算金额，客户端提交的总额只做必填校验
func (s *OrderService) Create(ctx context.Context, accountName string, in CreateOrderInput) (*models.Order, error) {
	if accountName == "" {
		return nil, common.Unauthorized("用户认证失败或用户信息不完整 (缺少 account_name)")
	}
	if in.ShopID == "" || len(in.Items) == 0 || in.TotalAmount == nil || len(in.AddressSnapshot) == 0 {
		return nil, common.Validation("缺少必要的订单信息 (店铺ID, 商品, 总金额, 地址信息)", nil)
	}
	if in.HandlingFee < 0 || in.ShippingFee < 0 {
		return nil, common.Validation("手续费和运费不能为负数", nil)
	}
	if err := database.CheckShopID(in.ShopID); err != nil {
		return nil, err
	}
	for i, item := range in.Items {
		if item.ProductShopID != "" {
			if err := database.CheckShopID(item.ProductShopID); err != nil {
				return nil, err
			}
		}
		if item.ProductID == "" {
			return nil, common.Validation(fmt.Sprintf("第 %d 个商品缺少商品ID", i+1), nil)
		}
		if item.Count < 1 {
			return nil, common.Validation(fmt.Sprintf("商品 %s 的数量必须大于 0", item.ProductID), nil)
		}
	}

	now := s.now()
	items, err := s.buildItems(ctx, in, now)
	if err != nil {
		return nil, internalErr(s.log, "createOrder", logrus.Fields{"shop_id": in.ShopID, "user_id": accountName}, err)
	}

	var subtotal float64
	for i := range items {
		subtotal += items[i].Subtotal()
	}

	order := &models.Order{
		OrderNo:         in.OrderNo,
		UserID:          accountName,
		ShopID:          in.ShopID,
		ShopName:        lookupShopName(ctx, s.shops, in.ShopID),
		TotalAmount:     subtotal + in.HandlingFee + in.ShippingFee,
		HandlingFee:     in.HandlingFee,
		ShippingFee:     in.ShippingFee,
		Status:          models.InitialStatus(in.Status),
		AddressSnapshot: in.AddressSnapshot,
		Remark:          in.Remark,
		OrderItems:      items,
		CreateTime:      now,
		UpdateTime:      now,
	}
	if order.OrderNo == "" {
		order.OrderNo = utils.GenerateOrderNo(now)
	}
	if len(items) == 1 {
		first := items[0]
		price, count := first.Price, first.Count
		order.GoodsName = first.ProductSnapshot.Name
		order.GoodsImage = first.ProductSnapshot.ImageURL
		order.Spec = specText(first)
		order.Price = &price
		order.Count = &count
	}

	if err := s.orders.Insert(ctx, order); err != nil {
		if common.IsDuplicate(err) {
			return nil, common.Conflict("订单号冲突，请重试", map[string]string{"order_no": order.OrderNo})
		}
		return nil, internalErr(s.log, "createOrder", logrus.Fields{"shop_id": in.ShopID, "order_no": order.OrderNo}, err)
	}
	s.log.WithFields(logrus.Fields{"order_no": order.OrderNo, "shop_id": order.ShopID, "user_id": accountName}).Info("订单创建成功")
	return order, nil
}

// buildItems 并发从各自店铺库读取商品，任一商品缺失则整单失败
func (s *OrderService) buildItems(ctx context.Context, in CreateOrderInput, now time.Time) ([]models.OrderItem, error) {
	items := make([]models.OrderItem, len(in.Items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(productLookupConcurrency)
	for i, req := range in.Items {
		i, req := i, req
		g.Go(func() error {
			shopID := req.ProductShopID
			if shopID == "" {
				shopID = in.ShopID
			}
			p, err := s.shops.FindProduct(gctx, shopID, req.ProductID)
			if err != nil {
				return fmt.Errorf("读取商品 %s/%s: %w", shopID, req.ProductID, err)
			}
			if p == nil {
				return common.Validation(fmt.Sprintf("商品信息获取失败: 店铺 %s 中的商品 %s 未找到或无法访问。", shopID, req.ProductID), nil)
			}
			if p.Price == nil {
				return common.Validation(fmt.Sprintf("商品价格信息缺失: 店铺 %s 中的商品 %s。", shopID, req.ProductID), nil)
			}
			items[i] = models.OrderItem{
				ProductID:             req.ProductID,
				ProductIDOriginal:     req.ProductID,
				ProductShopIDOriginal: shopID,
				ProductSnapshot:       models.NewProductSnapshot(p),
				Count:                 req.Count,
				Price:                 *p.Price,
				Spec:                  req.Spec,
				SpecDescription:       req.SpecDescription,
				CustomizationData:     req.CustomizationData,
				CreateTime:            now,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

// specText 单商品订单顶层展示用的规格文本
func specText(item models.OrderItem) string {
	switch v := item.Spec.(type) {
	case nil:
		return item.SpecDescription
	case string:
		return v
	case map[string]interface{}:
		if text, ok := v["text"].(string); ok && item.SpecDescription == "" {
			return text
		}
	}
	if item.SpecDescription != "" {
		return item.SpecDescription
	}
	raw, err := json.Marshal(item.Spec)
	if err != nil {
		return "规格信息不可用"
	}
	return string(raw)
}

func (s *OrderService) List(ctx context.Context, accountName, status string, page, limit int) ([]models.Order, utils.OrderPagination, error) {
	q := OrderQuery{UserID: accountName, SortField: "create_time", SortDesc: true, Skip: utils.Skip(page, limit), Limit: int64(limit)}
	if status != "" {
		q.Statuses = []string{status}
	}
	orders, err := s.orders.List(ctx, q)
	if err != nil {
		return nil, utils.OrderPagination{}, internalErr(s.log, "listOrders", logrus.Fields{"user_id": accountName}, err)
	}
	total, err := s.orders.Count(ctx, q)
	if err != nil {
		return nil, utils.OrderPagination{}, internalErr(s.log, "countOrders", logrus.Fields{"user_id": accountName}, err)
	}
	return orders, utils.NewOrderPagination(page, limit, total), nil
}

func (s *OrderService) Counts(ctx context.Context, accountName string) (*OrderCounts, error) {
	byStatus, err := s.orders.CountByStatus(ctx, accountName)
	if err != nil {
		return nil, internalErr(s.log, "orderCounts", logrus.Fields{"user_id": accountName}, err)
	}
	counts := &OrderCounts{
		ToPay:     byStatus[models.StatusToPay],
		ToShip:    byStatus[models.StatusToShip],
		ToReceive: byStatus[models.StatusToReceive],
		Completed: byStatus[models.StatusCompleted],
		Cancelled: byStatus[models.StatusCancelled],
	}
	for _, st := range models.RefundStatuses {
		counts.Refund += byStatus[st]
	}
	return counts, nil
}

func (s *OrderService) Get(ctx context.Context, accountName, id string) (*models.Order, error) {
	oid, err := parseID(id, "无效的订单ID格式")
	if err != nil {
		return nil, err
	}
	o, err := s.orders.FindByID(ctx, oid)
	if err != nil {
		return nil, internalErr(s.log, "getOrder", logrus.Fields{"order_id": id}, err)
	}
	if o == nil || o.UserID != accountName {
		return nil, common.NotFound("订单不存在或用户无权限查看")
	}
	return o, nil
}

// owned 读取订单并校验归属：不存在 404，非本人 403
func (s *OrderService) owned(ctx context.Context, accountName, id, op string) (*models.Order, error) {
	oid, err := parseID(id, "无效的订单ID格式")
	if err != nil {
		return nil, err
	}
	o, err := s.orders.FindByID(ctx, oid)
	if err != nil {
		return nil, internalErr(s.log, op, logrus.Fields{"order_id": id}, err)
	}
	if o == nil {
		return nil, common.NotFound("订单未找到")
	}
	if o.UserID != accountName {
		s.log.WithFields(logrus.Fields{"order_id": id, "user_id": accountName, "owner": o.UserID, "op": op}).Warn("非订单所有者的操作被拒绝")
		return nil, common.Forbidden("无权操作此订单")
	}
	return o, nil
}

func (s *OrderService) UpdateStatus(ctx context.Context, accountName, id, status, cancelReason string) (*models.Order, error) {
	if _, err := parseID(id, "无效的订单ID格式"); err != nil {
		return nil, err
	}
	status = strings.TrimSpace(status)
	if status == "" {
		return nil, common.Validation("缺少新的订单状态", nil)
	}
	if _, ok := models.NormalizeRequestedStatus(status); !ok {
		return nil, common.Validation("无效的订单状态: "+status, nil)
	}
	o, err := s.owned(ctx, accountName, id, "updateOrderStatus")
	if err != nil {
		return nil, err
	}
	updated, err := s.updater.apply(ctx, o, status, cancelReason)
	if err != nil {
		return nil, internalErr(s.log, "updateOrderStatus", logrus.Fields{"order_no": o.OrderNo}, err)
	}
	return updated, nil
}

func (s *OrderService) Delete(ctx context.Context, accountName, id string) error {
	o, err := s.owned(ctx, accountName, id, "deleteOrder")
	if err != nil {
		return err
	}
	deleted, err := s.orders.DeleteByID(ctx, o.ID)
	if err != nil {
		return internalErr(s.log, "deleteOrder", logrus.Fields{"order_no": o.OrderNo}, err)
	}
	if !deleted {
		return common.NotFound("删除订单时未找到该订单")
	}
	return nil
}

// SweepStale 取消超时未支付的订单；并发支付成功的订单因状态已变化会被跳过
func (s *OrderService) SweepStale(ctx context.Context, payTimeout time.Duration) (SweepResult, error) {
	now := s.now()
	stale, err := s.orders.List(ctx, OrderQuery{
		Statuses:      []string{models.StatusToPay},
		CreatedBefore: now.Add(-payTimeout),
		SortField:     "create_time",
	})
	if err != nil {
		return SweepResult{}, fmt.Errorf("查询超时订单失败: %w", err)
	}

	var res SweepResult
	for i := range stale {
		o := &stale[i]
		set := transitionSet(o, models.StatusCancelled, SweepCancelReason, now)
		updated, err := s.orders.Apply(ctx, o.ID, models.StatusToPay, set)
		if err != nil {
			s.log.WithFields(logrus.Fields{"order_no": o.OrderNo, "error": err}).Error("自动取消订单失败")
			continue
		}
		if updated == nil {
			continue
		}
		res.Cancelled++
		res.TotalAmount += o.TotalAmount
	}

	if res.Cancelled > 0 {
		stats := &models.OrderSweepStatistics{SweepTime: now, CancelledCount: res.Cancelled, TotalAmount: res.TotalAmount}
		if err := s.orders.RecordSweep(ctx, stats); err != nil {
			s.log.WithError(err).Error("保存订单清理统计失败")
		}
	}
	return res, nil
}

// lookupShopName 店铺资料缺失或查询失败时退回店铺ID
func lookupShopName(ctx context.Context, shops ShopStore, shopID string) string {
	p, err := shops.FindProfile(ctx, shopID)
	if err != nil || p == nil || p.Name == "" {
		return shopID
	}
	return p.Name
}
