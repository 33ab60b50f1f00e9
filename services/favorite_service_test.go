package services

import (
	"context"
	"net/http"
	"testing"

	"multishop-server/common"
	"multishop-server/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFavoriteFixture(t *testing.T) (*FavoriteService, *memFavorites, *memShops) {
	t.Helper()
	favs, shops := &memFavorites{}, newMemShops()
	shops.addProfile("shop001", "一号店", models.ShopStatusActive)
	shops.addProduct("shop001", models.Product{ProductID: "p1", Name: "茶杯", Price: price(19.9), Images: []string{"cup.png"}, Status: 1})
	svc := NewFavoriteService(favs, shops, testLog())
	svc.now = fixedClock(orderNow)
	return svc, favs, shops
}

func TestAddFavoriteStoresSnapshot(t *testing.T) {
	svc, favs, _ := newFavoriteFixture(t)
	ctx := context.Background()

	fav, err := svc.Add(ctx, "alice", "p1", "shop001")
	require.NoError(t, err)
	require.NotNil(t, fav.ProductSnapshot)
	assert.Equal(t, "茶杯", fav.ProductSnapshot.Name)
	assert.Equal(t, "cup.png", fav.ProductSnapshot.ImageURL)

	_, err = svc.Add(ctx, "alice", "p1", "shop001")
	requireCode(t, err, http.StatusConflict, common.CodeConflict)
	n, err := favs.CountProducts(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = svc.Add(ctx, "alice", "", "shop001")
	requireCode(t, err, http.StatusBadRequest, common.CodeValidation)

	ok, err := svc.Status(ctx, "alice", "p1")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.Status(ctx, "bob", "p1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAddFavoriteConcurrentDuplicate(t *testing.T) {
	svc, favs, _ := newFavoriteFixture(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, "alice", "p1", "shop001")
	require.NoError(t, err)

	favs.staleFind = true
	_, err = svc.Add(ctx, "alice", "p1", "shop001")
	requireCode(t, err, http.StatusConflict, common.CodeConflict)
	n, err := favs.CountProducts(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestAddFavoriteRejectsMalformedShopID(t *testing.T) {
	svc, favs, shops := newFavoriteFixture(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, "alice", "p1", "../admin x")
	requireCode(t, err, http.StatusBadRequest, common.CodeValidation)
	_, err = svc.AddShop(ctx, "alice", "shop 001")
	requireCode(t, err, http.StatusBadRequest, common.CodeValidation)

	assert.Empty(t, favs.products)
	assert.Empty(t, favs.shops)
	assert.NotContains(t, shops.shops, "../admin x")
	assert.NotContains(t, shops.shops, "shop 001")
}

func TestAddFavoriteWithoutSnapshot(t *testing.T) {
	svc, _, shops := newFavoriteFixture(t)
	shops.failing["shop404"] = true
	fav, err := svc.Add(context.Background(), "alice", "gone", "shop404")
	require.NoError(t, err)
	assert.Nil(t, fav.ProductSnapshot)
}

func TestListFavoritesFallsBackToSnapshot(t *testing.T) {
	svc, _, shops := newFavoriteFixture(t)
	ctx := context.Background()
	_, err := svc.Add(ctx, "alice", "p1", "shop001")
	require.NoError(t, err)

	views, page, err := svc.List(ctx, "alice", 1, DefaultFavoriteLimit)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.False(t, views[0].ProductDetails.FromSnapshot)
	assert.Equal(t, "一号店", views[0].ShopDetails.Name)
	assert.Equal(t, int64(1), page.TotalItems)

	_, err = shops.DeleteProduct(ctx, "shop001", "p1")
	require.NoError(t, err)
	views, _, err = svc.List(ctx, "alice", 1, DefaultFavoriteLimit)
	require.NoError(t, err)
	require.NotNil(t, views[0].ProductDetails)
	assert.True(t, views[0].ProductDetails.FromSnapshot)
	assert.Equal(t, "茶杯", views[0].ProductDetails.Name)

	shops.failing["shop001"] = true
	views, _, err = svc.List(ctx, "alice", 1, DefaultFavoriteLimit)
	require.NoError(t, err)
	assert.True(t, views[0].ProductDetails.FromSnapshot)
	assert.Equal(t, "shop001", views[0].ShopDetails.Name)
}

func TestRemoveFavorite(t *testing.T) {
	svc, _, _ := newFavoriteFixture(t)
	ctx := context.Background()
	_, err := svc.Add(ctx, "alice", "p1", "shop001")
	require.NoError(t, err)
	require.NoError(t, svc.Remove(ctx, "alice", "p1"))
	requireCode(t, svc.Remove(ctx, "alice", "p1"), http.StatusNotFound, common.CodeNotFound)
}

func TestShopFavorites(t *testing.T) {
	svc, favs, _ := newFavoriteFixture(t)
	ctx := context.Background()

	fav, err := svc.AddShop(ctx, "alice", "shop001")
	require.NoError(t, err)
	assert.Equal(t, "一号店", fav.ShopSnapshot.Name)
	assert.Equal(t, "logo-shop001", fav.ShopSnapshot.LogoURL)

	_, err = svc.AddShop(ctx, "alice", "shop001")
	requireCode(t, err, http.StatusConflict, common.CodeConflict)

	// 快照没有店铺名时实时查询
	_, err = svc.AddShop(ctx, "alice", "shop002")
	require.NoError(t, err)
	favs.mu.Lock()
	favs.shops[0].ShopSnapshot.Name = "旧名"
	favs.mu.Unlock()

	views, page, err := svc.ListShops(ctx, "alice", 1, DefaultFavoriteLimit)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, int64(2), page.TotalItems)
	assert.Equal(t, "旧名", views[0].ShopDetails.Name)
	assert.True(t, views[0].ShopDetails.FromSnapshot)
	assert.Equal(t, "shop002", views[1].ShopDetails.Name)
	assert.False(t, views[1].ShopDetails.FromSnapshot)

	ok, err := svc.ShopStatus(ctx, "alice", "shop002")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, svc.RemoveShop(ctx, "alice", "shop002"))
	requireCode(t, svc.RemoveShop(ctx, "alice", "shop002"), http.StatusNotFound, common.CodeNotFound)
}
