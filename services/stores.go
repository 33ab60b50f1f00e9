package services

import (
	"context"
	"time"

	"multishop-server/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// 存储接口约定：查不到时返回 nil, nil；唯一索引冲突包装 common.ErrDuplicateKey

type UserStore interface {
	List(ctx context.Context) ([]models.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Insert(ctx context.Context, u *models.User) error
	Update(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.User, error)
	TouchLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error
	Delete(ctx context.Context, id primitive.ObjectID) (bool, error)
}

type AddressStore interface {
	List(ctx context.Context, userID primitive.ObjectID) ([]models.UserAddress, error)
	Find(ctx context.Context, userID, id primitive.ObjectID) (*models.UserAddress, error)
	Insert(ctx context.Context, a *models.UserAddress) error
	Replace(ctx context.Context, a *models.UserAddress) error
	// ClearDefault 取消该用户除 exceptID 以外的默认地址
	ClearDefault(ctx context.Context, userID, exceptID primitive.ObjectID) error
	Delete(ctx context.Context, userID, id primitive.ObjectID) (bool, error)
}

// ProductFilter 店铺商品列表条件
type ProductFilter struct {
	OnShelfOnly bool
	Limit       int64
}

// ShopStore 所有方法都作用于 shopID 对应的店铺库
type ShopStore interface {
	FindProfile(ctx context.Context, shopID string) (*models.ShopProfile, error)
	UpsertProfile(ctx context.Context, shopID string, set, setOnInsert bson.M) (*models.ShopProfile, error)
	ListProducts(ctx context.Context, shopID string, filter ProductFilter) ([]models.Product, error)
	FindProduct(ctx context.Context, shopID, productID string) (*models.Product, error)
	InsertProduct(ctx context.Context, shopID string, p *models.Product) error
	ReplaceProduct(ctx context.Context, shopID string, p *models.Product) error
	DeleteProduct(ctx context.Context, shopID, productID string) (bool, error)
	CountProducts(ctx context.Context, shopID string) (int64, error)
	ListCategories(ctx context.Context, shopID string) ([]models.ProductCategory, error)
	InsertCategory(ctx context.Context, shopID string, c *models.ProductCategory) error
}

// OrderQuery 订单查询条件，空字段不参与过滤
type OrderQuery struct {
	UserID        string
	ShopID        string
	Statuses      []string
	CreatedBefore time.Time
	SortField     string
	SortDesc      bool
	Skip          int64
	Limit         int64
}

type OrderStore interface {
	Insert(ctx context.Context, o *models.Order) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	FindByNo(ctx context.Context, shopID, orderNo string) (*models.Order, error)
	List(ctx context.Context, q OrderQuery) ([]models.Order, error)
	Count(ctx context.Context, q OrderQuery) (int64, error)
	CountByStatus(ctx context.Context, userID string) (map[string]int64, error)
	SumTotal(ctx context.Context, shopID, status string) (float64, error)
	// Apply 仅当订单仍处于 expectStatus 时写入，状态已变化返回 nil, nil
	Apply(ctx context.Context, id primitive.ObjectID, expectStatus string, set bson.M) (*models.Order, error)
	DeleteByID(ctx context.Context, id primitive.ObjectID) (bool, error)
	DeleteByNo(ctx context.Context, shopID, orderNo string) (bool, error)
	RecordSweep(ctx context.Context, stats *models.OrderSweepStatistics) error
}

type FavoriteStore interface {
	FindProduct(ctx context.Context, userID, productID string) (*models.ProductFavorite, error)
	InsertProduct(ctx context.Context, f *models.ProductFavorite) error
	DeleteProduct(ctx context.Context, userID, productID string) (bool, error)
	ListProducts(ctx context.Context, userID string, skip, limit int64) ([]models.ProductFavorite, error)
	CountProducts(ctx context.Context, userID string) (int64, error)

	FindShop(ctx context.Context, userID, shopID string) (*models.ShopFavorite, error)
	InsertShop(ctx context.Context, f *models.ShopFavorite) error
	DeleteShop(ctx context.Context, userID, shopID string) (bool, error)
	ListShops(ctx context.Context, userID string, skip, limit int64) ([]models.ShopFavorite, error)
	CountShops(ctx context.Context, userID string) (int64, error)
}

// ShopLister 枚举服务器上的店铺库，由 database.Registry 实现
type ShopLister interface {
	ListShopIDs(ctx context.Context) ([]string, error)
}
