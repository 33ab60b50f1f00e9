package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"multishop-server/cache"
	"multishop-server/common"
	"multishop-server/config"
	"multishop-server/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedHomeShops() *memShops {
	shops := newMemShops()
	shops.addProfile("shop001", "一号店", models.ShopStatusActive)
	shops.addProfile("shop002", "二号店", models.ShopStatusInactive)
	shops.addProfile("shop003", "", models.ShopStatusActive)
	for _, id := range []string{"a1", "a2", "a3"} {
		shops.addProduct("shop001", models.Product{ProductID: id, Price: price(1), Status: models.ProductOnShelf})
	}
	shops.addProduct("shop001", models.Product{ProductID: "a-off", Price: price(1), Status: models.ProductOffShelf})
	shops.addProduct("shop002", models.Product{ProductID: "b1", Price: price(1), Status: models.ProductOnShelf})
	shops.addProduct("shop003", models.Product{ProductID: "c1", Price: price(1), Status: models.ProductOnShelf})
	return shops
}

func productIDs(products []models.Product) []string {
	ids := make([]string, len(products))
	for i, p := range products {
		ids[i] = p.ProductID
	}
	return ids
}

func TestStaticHomeProducts(t *testing.T) {
	shops := seedHomeShops()
	shops.failing["shop004"] = true
	cfg := config.Home{StaticShops: []string{"shop004", "shop001", "shop002"}, Fanout: 2}
	svc := NewHomeService(shops, &stubLister{}, nil, 0, cfg, testLog())

	products, err := svc.Static(context.Background(), 2, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2", "b1"}, productIDs(products))
	assert.Equal(t, "一号店", products[0].ShopName)
	assert.Equal(t, "二号店", products[2].ShopName)
}

func TestDynamicHomeProducts(t *testing.T) {
	shops := seedHomeShops()
	shops.failing["shop000"] = true
	lister := &stubLister{ids: []string{"shop000", "shop001", "shop002", "shop003"}}
	cfg := config.Home{Fanout: 2, FanoutRPS: 1000}
	svc := NewHomeService(shops, lister, nil, 0, cfg, testLog())

	products, err := svc.Dynamic(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2", "a3", "c1"}, productIDs(products))
	assert.Equal(t, "shop003", products[3].ShopName)
	assert.Equal(t, "shop001", products[0].ShopID)

	products, err = svc.Dynamic(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, products, 2)
}

func TestDynamicHomeListFailure(t *testing.T) {
	svc := NewHomeService(newMemShops(), &stubLister{err: errors.New("boom")}, nil, 0, config.Home{Fanout: 1}, testLog())
	_, err := svc.Dynamic(context.Background(), 0)
	requireCode(t, err, http.StatusServiceUnavailable, common.CodeUnavailable)
}

func TestDynamicHomeUsesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	lister := &stubLister{ids: []string{"shop001"}}
	svc := NewHomeService(seedHomeShops(), lister, cache.NewRedisCache(client, "test:"), time.Minute, config.Home{Fanout: 1}, testLog())
	ctx := context.Background()

	first, err := svc.Dynamic(ctx, 0)
	require.NoError(t, err)
	second, err := svc.Dynamic(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, productIDs(first), productIDs(second))
	assert.Equal(t, 1, lister.calls)

	mr.FastForward(2 * time.Minute)
	_, err = svc.Dynamic(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, lister.calls)
}

func TestDynamicHomeDropsDeactivatedShop(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	kv := cache.NewRedisCache(client, "test:")

	shops := seedHomeShops()
	lister := &stubLister{ids: []string{"shop001", "shop003"}}
	home := NewHomeService(shops, lister, kv, time.Minute, config.Home{Fanout: 1}, testLog())
	shopSvc := NewShopService(shops, newMemOrders(), kv, true, testLog())
	ctx := context.Background()

	products, err := home.Dynamic(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2", "a3", "c1"}, productIDs(products))

	_, err = shopSvc.UpsertProfile(ctx, "shop001", ProfileInput{Status: str(models.ShopStatusInactive)})
	require.NoError(t, err)
	products, err = home.Dynamic(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, productIDs(products))

	_, err = shopSvc.CreateProduct(ctx, "shop003", ProductInput{ProductID: str("c2"), Name: str("新品"), Price: price(2)})
	require.NoError(t, err)
	products, err = home.Dynamic(ctx, 0)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"c1", "c2"}, productIDs(products))

	require.NoError(t, shopSvc.DeleteProduct(ctx, "shop003", "c1"))
	products, err = home.Dynamic(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"c2"}, productIDs(products))
	assert.Equal(t, 4, lister.calls)
}
