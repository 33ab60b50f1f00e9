package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"multishop-server/cache"
	"multishop-server/common"
	"multishop-server/config"
	"multishop-server/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	DefaultStaticPerShop = 5
	DefaultStaticTotal   = 15

	dynamicCacheKey = "home:dynamic"
)

// HomeService 首页跨店铺商品聚合
type HomeService struct {
	shops   ShopStore
	lister  ShopLister
	cache   cache.Cache
	ttl     time.Duration
	cfg     config.Home
	limiter *rate.Limiter
	log     *logrus.Entry
}

func NewHomeService(shops ShopStore, lister ShopLister, c cache.Cache, ttl time.Duration, cfg config.Home, log *logrus.Entry) *HomeService {
	if c == nil {
		c = cache.Nop{}
	}
	if cfg.Fanout < 1 {
		cfg.Fanout = 1
	}
	limit := rate.Inf
	if cfg.FanoutRPS > 0 {
		limit = rate.Limit(cfg.FanoutRPS)
	}
	return &HomeService{
		shops:   shops,
		lister:  lister,
		cache:   c,
		ttl:     ttl,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, cfg.Fanout),
		log:     log,
	}
}

// Static 按配置的店铺列表依次取商品，单个店铺失败时跳过
func (s *HomeService) Static(ctx context.Context, limitPerShop, totalLimit int) ([]models.Product, error) {
	if limitPerShop <= 0 {
		limitPerShop = DefaultStaticPerShop
	}
	if totalLimit <= 0 {
		totalLimit = DefaultStaticTotal
	}
	out := make([]models.Product, 0, totalLimit)
	for _, shopID := range s.cfg.StaticShops {
		if len(out) >= totalLimit {
			break
		}
		products, err := s.shops.ListProducts(ctx, shopID, ProductFilter{Limit: int64(limitPerShop)})
		if err != nil {
			s.log.WithFields(logrus.Fields{"shop_id": shopID, "error": err}).Warn("获取店铺商品失败，已跳过")
			continue
		}
		if len(products) == 0 {
			continue
		}
		name := lookupShopName(ctx, s.shops, shopID)
		for i := range products {
			products[i].ShopID = shopID
			products[i].ShopName = name
		}
		out = append(out, products...)
	}
	if len(out) > totalLimit {
		out = out[:totalLimit]
	}
	return out, nil
}

// Dynamic 遍历服务器上所有店铺库，只展示营业中店铺的上架商品
func (s *HomeService) Dynamic(ctx context.Context, limit int) ([]models.Product, error) {
	var products []models.Product
	err := s.cache.Get(ctx, dynamicCacheKey, &products)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			s.log.WithError(err).Warn("读取首页缓存失败")
		}
		if products, err = s.collect(ctx); err != nil {
			return nil, err
		}
		if s.ttl > 0 {
			if err := s.cache.Set(ctx, dynamicCacheKey, products, s.ttl); err != nil {
				s.log.WithError(err).Warn("写入首页缓存失败")
			}
		}
	}
	if limit > 0 && len(products) > limit {
		products = products[:limit]
	}
	if products == nil {
		products = []models.Product{}
	}
	return products, nil
}

func (s *HomeService) collect(ctx context.Context) ([]models.Product, error) {
	shopIDs, err := s.lister.ListShopIDs(ctx)
	if err != nil {
		s.log.WithError(err).Error("枚举店铺数据库失败")
		return nil, common.Unavailable("无法获取店铺列表", err)
	}

	perShop := make([][]models.Product, len(shopIDs))
	var (
		mu       sync.Mutex
		failures = make(map[string]error)
		g        errgroup.Group
	)
	g.SetLimit(s.cfg.Fanout)
	for i, shopID := range shopIDs {
		i, shopID := i, shopID
		g.Go(func() error {
			products, err := s.shopProducts(ctx, shopID)
			if err != nil {
				mu.Lock()
				failures[shopID] = err
				mu.Unlock()
				return nil
			}
			perShop[i] = products
			return nil
		})
	}
	_ = g.Wait()

	if len(failures) > 0 {
		s.log.WithFields(logrus.Fields{"failed": len(failures), "total": len(shopIDs)}).Warn("部分店铺商品获取失败")
		for shopID, err := range failures {
			s.log.WithFields(logrus.Fields{"shop_id": shopID, "error": err}).Debug("店铺聚合失败")
		}
	}

	var out []models.Product
	for _, products := range perShop {
		out = append(out, products...)
	}
	return out, nil
}

func (s *HomeService) shopProducts(ctx context.Context, shopID string) ([]models.Product, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	profile, err := s.shops.FindProfile(ctx, shopID)
	if err != nil {
		return nil, err
	}
	if profile == nil || profile.Status != models.ShopStatusActive {
		return nil, nil
	}
	products, err := s.shops.ListProducts(ctx, shopID, ProductFilter{OnShelfOnly: true})
	if err != nil {
		return nil, err
	}
	name := profile.Name
	if name == "" {
		name = shopID
	}
	for i := range products {
		products[i].ShopID = shopID
		products[i].ShopName = name
	}
	return products, nil
}
