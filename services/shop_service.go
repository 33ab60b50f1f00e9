package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"multishop-server/cache"
	"multishop-server/common"
	"multishop-server/models"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
)

const recentOrderCount = 5

// ProfileInput 店铺资料更新，nil 字段不写入
type ProfileInput struct {
	Name         *string `json:"name"`
	Description  *string `json:"description"`
	LogoURL      *string `json:"logo_url"`
	ContactEmail *string `json:"contact_email"`
	ContactPhone *string `json:"contact_phone"`
	Address      *string `json:"address"`
	Status       *string `json:"status"`
}

// ProductInput 商品创建/更新请求，nil 字段在更新时保持原值
type ProductInput struct {
	ProductID      *string              `json:"product_id"`
	CategoryID     *string              `json:"category_id"`
	Name           *string              `json:"name"`
	Description    *string              `json:"description"`
	Price          *float64             `json:"price"`
	OriginalPrice  *float64             `json:"original_price"`
	Images         []string             `json:"images"`
	DetailImages   []string             `json:"detail_images"`
	Sold           *int                 `json:"sold"`
	Stock          *int                 `json:"stock"`
	Location       *string              `json:"location"`
	Status         *int                 `json:"status"`
	IsCustomizable *bool                `json:"is_customizable"`
	Specs          []models.ProductSpec `json:"specs"`
}

type CategoryInput struct {
	CategoryIDNum *int   `json:"category_id_num"`
	Name          string `json:"name"`
	Icon          string `json:"icon"`
}

// ShopOrderQuery 店铺订单列表参数
type ShopOrderQuery struct {
	Status string
	Sort   string
	Order  string
	Limit  int64
}

type DashboardStats struct {
	TotalProducts int64          `json:"totalProducts"`
	TotalOrders   int64          `json:"totalOrders"`
	PendingOrders int64          `json:"pendingOrders"`
	TotalSales    float64        `json:"totalSales"`
	RecentOrders  []models.Order `json:"recentOrders"`
}

type ShopService struct {
	shops   ShopStore
	orders  OrderStore
	cache   cache.Cache
	updater *statusUpdater
	log     *logrus.Entry
	now     func() time.Time
}

// NewShopService c 为首页聚合缓存，店铺资料或商品变化时清除
func NewShopService(shops ShopStore, orders OrderStore, c cache.Cache, strictTransitions bool, log *logrus.Entry) *ShopService {
	if c == nil {
		c = cache.Nop{}
	}
	s := &ShopService{shops: shops, orders: orders, cache: c, log: log, now: time.Now}
	s.updater = &statusUpdater{orders: orders, strict: strictTransitions, now: func() time.Time { return s.now() }}
	return s
}

func (s *ShopService) Profile(ctx context.Context, shopID string) (*models.ShopProfile, error) {
	p, err := s.shops.FindProfile(ctx, shopID)
	if err != nil {
		return nil, internalErr(s.log, "shopProfile", logrus.Fields{"shop_id": shopID}, err)
	}
	if p == nil {
		return nil, common.NotFound("店铺信息未找到")
	}
	return p, nil
}

func (s *ShopService) UpsertProfile(ctx context.Context, shopID string, in ProfileInput) (*models.ShopProfile, error) {
	fields := logrus.Fields{"shop_id": shopID}
	existing, err := s.shops.FindProfile(ctx, shopID)
	if err != nil {
		return nil, internalErr(s.log, "upsertShopProfile", fields, err)
	}
	if existing == nil && (in.Name == nil || strings.TrimSpace(*in.Name) == "") {
		return nil, common.Validation("创建店铺信息时店铺名称不能为空", nil)
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return nil, common.Validation("店铺名称不能为空", nil)
	}
	if in.Status != nil && !models.IsShopStatus(*in.Status) {
		return nil, common.Validation("无效的店铺状态: "+*in.Status, nil)
	}

	now := s.now()
	set := bson.M{"updated_at": now}
	for key, v := range map[string]*string{
		"name":          in.Name,
		"description":   in.Description,
		"logo_url":      in.LogoURL,
		"contact_email": in.ContactEmail,
		"contact_phone": in.ContactPhone,
		"address":       in.Address,
		"status":        in.Status,
	} {
		if v != nil {
			set[key] = strings.TrimSpace(*v)
		}
	}
	setOnInsert := bson.M{"shop_id": shopID, "created_at": now}
	if in.Status == nil {
		setOnInsert["status"] = models.ShopStatusActive
	}

	p, err := s.shops.UpsertProfile(ctx, shopID, set, setOnInsert)
	if err != nil {
		return nil, internalErr(s.log, "upsertShopProfile", fields, err)
	}
	s.log.WithFields(fields).Info("店铺信息已更新")
	s.invalidateHome(ctx, fields)
	return p, nil
}

func (s *ShopService) invalidateHome(ctx context.Context, fields logrus.Fields) {
	if err := s.cache.Delete(ctx, dynamicCacheKey); err != nil {
		s.log.WithFields(fields).WithError(err).Warn("清除首页缓存失败")
	}
}

func (s *ShopService) ShopName(ctx context.Context, shopID string) string {
	return lookupShopName(ctx, s.shops, shopID)
}

func (s *ShopService) ListProducts(ctx context.Context, shopID string) ([]models.Product, error) {
	products, err := s.shops.ListProducts(ctx, shopID, ProductFilter{})
	if err != nil {
		return nil, internalErr(s.log, "listProducts", logrus.Fields{"shop_id": shopID}, err)
	}
	return products, nil
}

func (s *ShopService) GetProduct(ctx context.Context, shopID, productID string) (*models.Product, error) {
	p, err := s.shops.FindProduct(ctx, shopID, productID)
	if err != nil {
		return nil, internalErr(s.log, "getProduct", logrus.Fields{"shop_id": shopID, "product_id": productID}, err)
	}
	if p == nil {
		return nil, common.NotFound("商品未找到")
	}
	p.ShopName = s.ShopName(ctx, shopID)
	return p, nil
}

func (s *ShopService) CreateProduct(ctx context.Context, shopID string, in ProductInput) (*models.Product, error) {
	if in.ProductID == nil || strings.TrimSpace(*in.ProductID) == "" {
		return nil, common.Validation("商品ID不能为空", nil)
	}
	now := s.now()
	p := &models.Product{
		ProductID: strings.TrimSpace(*in.ProductID),
		Status:    models.ProductOnShelf,
		CreatedAt: now,
	}
	if err := applyProduct(p, in); err != nil {
		return nil, err
	}
	p.ShopID = shopID
	p.UpdatedAt = now

	if err := s.shops.InsertProduct(ctx, shopID, p); err != nil {
		if common.IsDuplicate(err) {
			return nil, common.Conflict(fmt.Sprintf("商品ID %s 在店铺中已存在", p.ProductID), nil)
		}
		return nil, internalErr(s.log, "createProduct", logrus.Fields{"shop_id": shopID, "product_id": p.ProductID}, err)
	}
	s.invalidateHome(ctx, logrus.Fields{"shop_id": shopID, "product_id": p.ProductID})
	return p, nil
}

func (s *ShopService) UpdateProduct(ctx context.Context, shopID, productID string, in ProductInput) (*models.Product, error) {
	fields := logrus.Fields{"shop_id": shopID, "product_id": productID}
	p, err := s.shops.FindProduct(ctx, shopID, productID)
	if err != nil {
		return nil, internalErr(s.log, "updateProduct", fields, err)
	}
	if p == nil {
		return nil, common.NotFound("要更新的商品未找到")
	}
	in.ProductID = nil
	if err := applyProduct(p, in); err != nil {
		return nil, err
	}
	p.ShopID = shopID
	p.UpdatedAt = s.now()
	if err := s.shops.ReplaceProduct(ctx, shopID, p); err != nil {
		return nil, internalErr(s.log, "updateProduct", fields, err)
	}
	s.invalidateHome(ctx, fields)
	return p, nil
}

func (s *ShopService) DeleteProduct(ctx context.Context, shopID, productID string) error {
	deleted, err := s.shops.DeleteProduct(ctx, shopID, productID)
	if err != nil {
		return internalErr(s.log, "deleteProduct", logrus.Fields{"shop_id": shopID, "product_id": productID}, err)
	}
	if !deleted {
		return common.NotFound("要删除的商品未找到")
	}
	s.invalidateHome(ctx, logrus.Fields{"shop_id": shopID, "product_id": productID})
	return nil
}

// applyProduct 把请求中提供的字段写入商品
func applyProduct(p *models.Product, in ProductInput) error {
	if in.CategoryID != nil {
		oid, err := parseID(*in.CategoryID, "无效的分类ID格式")
		if err != nil {
			return err
		}
		p.CategoryID = oid
	}
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Price != nil {
		price := *in.Price
		p.Price = &price
	}
	if in.OriginalPrice != nil {
		op := *in.OriginalPrice
		p.OriginalPrice = &op
	}
	if in.Images != nil {
		p.Images = in.Images
	}
	if in.DetailImages != nil {
		p.DetailImages = in.DetailImages
	}
	if in.Sold != nil {
		p.Sold = *in.Sold
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	if in.Location != nil {
		p.Location = *in.Location
	}
	if in.Status != nil {
		p.Status = *in.Status
	}
	if in.IsCustomizable != nil {
		p.IsCustomizable = *in.IsCustomizable
	}
	if in.Specs != nil {
		p.Specs = in.Specs
	}
	return nil
}

func (s *ShopService) ListCategories(ctx context.Context, shopID string) ([]models.ProductCategory, error) {
	cats, err := s.shops.ListCategories(ctx, shopID)
	if err != nil {
		return nil, internalErr(s.log, "listCategories", logrus.Fields{"shop_id": shopID}, err)
	}
	return cats, nil
}

// CreateCategory 未指定编号时取当前最大编号加一
func (s *ShopService) CreateCategory(ctx context.Context, shopID string, in CategoryInput) (*models.ProductCategory, error) {
	fields := logrus.Fields{"shop_id": shopID}
	now := s.now()
	c := &models.ProductCategory{Name: strings.TrimSpace(in.Name), Icon: in.Icon, CreatedAt: now, UpdatedAt: now}
	if in.CategoryIDNum != nil {
		c.CategoryIDNum = *in.CategoryIDNum
	} else {
		existing, err := s.shops.ListCategories(ctx, shopID)
		if err != nil {
			return nil, internalErr(s.log, "createCategory", fields, err)
		}
		for _, e := range existing {
			if e.CategoryIDNum >= c.CategoryIDNum {
				c.CategoryIDNum = e.CategoryIDNum + 1
			}
		}
	}
	if err := s.shops.InsertCategory(ctx, shopID, c); err != nil {
		if common.IsDuplicate(err) {
			return nil, common.Conflict(fmt.Sprintf("分类编号 %d 已存在", c.CategoryIDNum), nil)
		}
		return nil, internalErr(s.log, "createCategory", fields, err)
	}
	return c, nil
}

func (s *ShopService) ShopOrders(ctx context.Context, shopID string, q ShopOrderQuery) ([]models.Order, error) {
	query := OrderQuery{ShopID: shopID, SortField: "create_time", SortDesc: true, Limit: q.Limit}
	if q.Status != "" {
		query.Statuses = []string{q.Status}
	}
	if q.Sort != "" {
		if strings.HasPrefix(q.Sort, "$") {
			return nil, common.Validation("无效的排序字段", nil)
		}
		query.SortField = q.Sort
		query.SortDesc = q.Order != "asc"
	}
	orders, err := s.orders.List(ctx, query)
	if err != nil {
		return nil, internalErr(s.log, "shopOrders", logrus.Fields{"shop_id": shopID}, err)
	}
	return orders, nil
}

func (s *ShopService) shopOrder(ctx context.Context, shopID, orderNo, op string) (*models.Order, error) {
	o, err := s.orders.FindByNo(ctx, shopID, orderNo)
	if err != nil {
		return nil, internalErr(s.log, op, logrus.Fields{"shop_id": shopID, "order_no": orderNo}, err)
	}
	if o == nil {
		return nil, common.NotFound("订单未找到")
	}
	return o, nil
}

func (s *ShopService) ShopUpdateOrderStatus(ctx context.Context, shopID, orderNo, status string) (*models.Order, error) {
	if strings.TrimSpace(status) == "" {
		return nil, common.Validation("缺少新的订单状态", nil)
	}
	if _, ok := models.NormalizeRequestedStatus(status); !ok {
		return nil, common.Validation("无效的订单状态: "+status, nil)
	}
	o, err := s.shopOrder(ctx, shopID, orderNo, "shopUpdateOrderStatus")
	if err != nil {
		return nil, err
	}
	updated, err := s.updater.apply(ctx, o, status, "")
	if err != nil {
		return nil, internalErr(s.log, "shopUpdateOrderStatus", logrus.Fields{"shop_id": shopID, "order_no": orderNo}, err)
	}
	return updated, nil
}

func (s *ShopService) CancelShopOrder(ctx context.Context, shopID, orderNo, reason string) (*models.Order, error) {
	o, err := s.shopOrder(ctx, shopID, orderNo, "cancelShopOrder")
	if err != nil {
		return nil, err
	}
	if reason == "" {
		reason = "商家取消"
	}
	updated, err := s.updater.apply(ctx, o, models.StatusCancelled, reason)
	if err != nil {
		return nil, internalErr(s.log, "cancelShopOrder", logrus.Fields{"shop_id": shopID, "order_no": orderNo}, err)
	}
	return updated, nil
}

func (s *ShopService) DeleteShopOrder(ctx context.Context, shopID, orderNo string) error {
	deleted, err := s.orders.DeleteByNo(ctx, shopID, orderNo)
	if err != nil {
		return internalErr(s.log, "deleteShopOrder", logrus.Fields{"shop_id": shopID, "order_no": orderNo}, err)
	}
	if !deleted {
		return common.NotFound("订单未找到")
	}
	return nil
}

func (s *ShopService) DashboardStats(ctx context.Context, shopID string) (*DashboardStats, error) {
	fields := logrus.Fields{"shop_id": shopID}
	var (
		stats DashboardStats
		err   error
	)
	if stats.TotalProducts, err = s.shops.CountProducts(ctx, shopID); err != nil {
		return nil, internalErr(s.log, "dashboardStats", fields, err)
	}
	if stats.TotalOrders, err = s.orders.Count(ctx, OrderQuery{ShopID: shopID}); err != nil {
		return nil, internalErr(s.log, "dashboardStats", fields, err)
	}
	pending := OrderQuery{ShopID: shopID, Statuses: []string{models.StatusToPay, models.StatusToShip}}
	if stats.PendingOrders, err = s.orders.Count(ctx, pending); err != nil {
		return nil, internalErr(s.log, "dashboardStats", fields, err)
	}
	if stats.TotalSales, err = s.orders.SumTotal(ctx, shopID, models.StatusCompleted); err != nil {
		return nil, internalErr(s.log, "dashboardStats", fields, err)
	}
	recent := OrderQuery{ShopID: shopID, SortField: "create_time", SortDesc: true, Limit: recentOrderCount}
	if stats.RecentOrders, err = s.orders.List(ctx, recent); err != nil {
		return nil, internalErr(s.log, "dashboardStats", fields, err)
	}
	if stats.RecentOrders == nil {
		stats.RecentOrders = []models.Order{}
	}
	return &stats, nil
}
