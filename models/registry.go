package models

import (
	"context"
	"sync"
	"sync/atomic"

	"multishop-server/database"
	"multishop-server/registry"

	"github.com/sirupsen/logrus"
)

const (
	CollUsers           = "users"
	CollAddresses       = "useraddresses"
	CollProductFavorite = "productfavorites"
	CollShopFavorite    = "shopfavorites"
	CollShopProfiles    = "shopprofiles"
	CollProducts        = "products"
	CollCategories      = "productcategories"
	CollOrders          = "orders"
	CollSweepStatistics = "order_sweep_statistics"
)

// ConnectionSource 模型注册表依赖的连接来源，由 database.Registry 实现
type ConnectionSource interface {
	UserDB(ctx context.Context) (*database.Connection, error)
	OrdersDB(ctx context.Context) (*database.Connection, error)
	ShopDB(ctx context.Context, shopID string) (*database.Connection, error)
}

type boundSet interface {
	Conn() *database.Connection
}

type indexState struct {
	once    sync.Once
	ensured atomic.Bool
}

type UserModels struct {
	conn    *database.Connection
	indexes indexState

	User            *Model[User]
	Address         *Model[UserAddress]
	ProductFavorite *Model[ProductFavorite]
	ShopFavorite    *Model[ShopFavorite]
}

func (s *UserModels) Conn() *database.Connection { return s.conn }

type ShopModels struct {
	conn    *database.Connection
	indexes indexState

	ShopID   string
	Profile  *Model[ShopProfile]
	Product  *Model[Product]
	Category *Model[ProductCategory]
}

func (s *ShopModels) Conn() *database.Connection { return s.conn }

type OrderModels struct {
	conn    *database.Connection
	indexes indexState

	Order      *Model[Order]
	SweepStats *Model[OrderSweepStatistics]
}

func (s *OrderModels) Conn() *database.Connection { return s.conn }

func NewUserModels(conn *database.Connection) *UserModels {
	db := conn.Database()
	return &UserModels{
		conn:            conn,
		User:            NewModel[User](db, CollUsers),
		Address:         NewModel[UserAddress](db, CollAddresses),
		ProductFavorite: NewModel[ProductFavorite](db, CollProductFavorite),
		ShopFavorite:    NewModel[ShopFavorite](db, CollShopFavorite),
	}
}

func NewShopModels(conn *database.Connection, shopID string) *ShopModels {
	db := conn.Database()
	return &ShopModels{
		conn:     conn,
		ShopID:   shopID,
		Profile:  NewModel[ShopProfile](db, CollShopProfiles),
		Product:  NewModel[Product](db, CollProducts),
		Category: NewModel[ProductCategory](db, CollCategories),
	}
}

func NewOrderModels(conn *database.Connection) *OrderModels {
	db := conn.Database()
	return &OrderModels{
		conn:       conn,
		Order:      NewModel[Order](db, CollOrders),
		SweepStats: NewModel[OrderSweepStatistics](db, CollSweepStatistics),
	}
}

// Registry 按 (分组, 租户) 缓存模型集合，连接被替换后重新绑定
type Registry struct {
	conns         ConnectionSource
	log           *logrus.Entry
	ensureIndexes bool

	mu     sync.Mutex
	users  *registry.Registry[*UserModels]
	shops  *registry.Registry[*ShopModels]
	orders *registry.Registry[*OrderModels]
}

type RegistryOption func(*Registry)

// WithIndexes 控制是否创建索引：用户库与订单库在首次绑定时，店铺库在首次写入时
func WithIndexes(enabled bool) RegistryOption {
	return func(r *Registry) { r.ensureIndexes = enabled }
}

func NewRegistry(conns ConnectionSource, log *logrus.Entry, opts ...RegistryOption) *Registry {
	r := &Registry{
		conns:         conns,
		log:           log,
		ensureIndexes: true,
		users:         registry.New[*UserModels](),
		shops:         registry.New[*ShopModels](),
		orders:        registry.New[*OrderModels](),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

const (
	userKey   = "user"
	ordersKey = "orders"
)

func shopKey(shopID string) string { return "shop_" + shopID }

func (r *Registry) UserModels(ctx context.Context) (*UserModels, error) {
	conn, err := r.conns.UserDB(ctx)
	if err != nil {
		return nil, err
	}
	set := bind(&r.mu, r.users, userKey, conn, NewUserModels)
	r.ensure(ctx, &set.indexes, conn.Database(), userIndexes(), userKey)
	return set, nil
}

// ShopModels 只读路径，不创建索引，查询不存在的店铺不会在服务端留下空库
func (r *Registry) ShopModels(ctx context.Context, shopID string) (*ShopModels, error) {
	conn, err := r.conns.ShopDB(ctx, shopID)
	if err != nil {
		return nil, err
	}
	return bind(&r.mu, r.shops, shopKey(shopID), conn, func(c *database.Connection) *ShopModels {
		return NewShopModels(c, shopID)
	}), nil
}

// ShopModelsForWrite 写入前调用，首次写入时补建店铺库索引
func (r *Registry) ShopModelsForWrite(ctx context.Context, shopID string) (*ShopModels, error) {
	set, err := r.ShopModels(ctx, shopID)
	if err != nil {
		return nil, err
	}
	r.ensure(ctx, &set.indexes, set.conn.Database(), shopIndexes(), shopKey(shopID))
	return set, nil
}

func (r *Registry) OrderModels(ctx context.Context) (*OrderModels, error) {
	conn, err := r.conns.OrdersDB(ctx)
	if err != nil {
		return nil, err
	}
	set := bind(&r.mu, r.orders, ordersKey, conn, NewOrderModels)
	r.ensure(ctx, &set.indexes, conn.Database(), orderIndexes(), ordersKey)
	return set, nil
}

// Cached 当前缓存的集合键，用于诊断
func (r *Registry) Cached() []string {
	names := r.users.Names()
	names = append(names, r.orders.Names()...)
	return append(names, r.shops.Names()...)
}

// bind 缓存命中且绑定的是同一个连接时直接返回，否则在锁内重建
func bind[S boundSet](mu *sync.Mutex, cache *registry.Registry[S], key string, conn *database.Connection, build func(*database.Connection) S) S {
	if set, ok := cache.Get(key); ok && set.Conn() == conn {
		return set
	}
	mu.Lock()
	defer mu.Unlock()
	if set, ok := cache.Get(key); ok && set.Conn() == conn {
		return set
	}
	set := build(conn)
	_, _ = cache.Register(key, set)
	return set
}
