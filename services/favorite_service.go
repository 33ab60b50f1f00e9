package services

import (
	"context"
	"strings"
	"time"

	"multishop-server/common"
	"multishop-server/database"
	"multishop-server/models"
	"multishop-server/utils"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DefaultFavoriteLimit 收藏列表默认每页数量
const DefaultFavoriteLimit = 20

const favoriteLookupConcurrency = 8

// ProductDetails 收藏列表中的商品信息，实时查询失败时来自快照
type ProductDetails struct {
	ProductID    string   `json:"product_id"`
	Name         string   `json:"name"`
	ImageURL     string   `json:"image_url"`
	Images       []string `json:"images,omitempty"`
	Price        *float64 `json:"price,omitempty"`
	Status       *int     `json:"status,omitempty"`
	ShopID       string   `json:"shop_id"`
	FromSnapshot bool     `json:"from_snapshot,omitempty"`
}

type ShopDetails struct {
	ShopID       string `json:"shop_id"`
	Name         string `json:"name"`
	LogoURL      string `json:"logo_url,omitempty"`
	Description  string `json:"description,omitempty"`
	FromSnapshot bool   `json:"from_snapshot,omitempty"`
}

type ProductFavoriteView struct {
	models.ProductFavorite
	ProductDetails *ProductDetails `json:"product_details,omitempty"`
	ShopDetails    *ShopDetails    `json:"shop_details,omitempty"`
}

type ShopFavoriteView struct {
	models.ShopFavorite
	ShopDetails *ShopDetails `json:"shop_details,omitempty"`
}

type FavoriteService struct {
	favs  FavoriteStore
	shops ShopStore
	log   *logrus.Entry
	now   func() time.Time
}

func NewFavoriteService(favs FavoriteStore, shops ShopStore, log *logrus.Entry) *FavoriteService {
	return &FavoriteService{favs: favs, shops: shops, log: log, now: time.Now}
}

func (s *FavoriteService) Add(ctx context.Context, accountName, productID, shopID string) (*models.ProductFavorite, error) {
	productID, shopID = strings.TrimSpace(productID), strings.TrimSpace(shopID)
	if productID == "" || shopID == "" {
		return nil, common.Validation("商品ID和店铺ID不能为空", nil)
	}
	if err := database.CheckShopID(shopID); err != nil {
		return nil, err
	}
	fields := logrus.Fields{"user_id": accountName, "product_id": productID, "shop_id": shopID}
	existing, err := s.favs.FindProduct(ctx, accountName, productID)
	if err != nil {
		return nil, internalErr(s.log, "addFavorite", fields, err)
	}
	if existing != nil {
		return nil, common.Conflict("该商品已在收藏夹中", nil)
	}

	fav := &models.ProductFavorite{
		UserID:            accountName,
		ProductIDOriginal: productID,
		ShopIDOriginal:    shopID,
		CreatedAt:         s.now(),
	}
	// 快照尽力而为，商品查询失败不影响收藏
	if p, err := s.shops.FindProduct(ctx, shopID, productID); err != nil {
		s.log.WithFields(fields).WithError(err).Warn("收藏时获取商品快照失败")
	} else {
		fav.ProductSnapshot = models.NewFavoriteProductSnapshot(p)
	}

	if err := s.favs.InsertProduct(ctx, fav); err != nil {
		if common.IsDuplicate(err) {
			return nil, common.Conflict("该商品已在收藏夹中", nil)
		}
		return nil, internalErr(s.log, "addFavorite", fields, err)
	}
	return fav, nil
}

func (s *FavoriteService) Remove(ctx context.Context, accountName, productID string) error {
	deleted, err := s.favs.DeleteProduct(ctx, accountName, productID)
	if err != nil {
		return internalErr(s.log, "removeFavorite", logrus.Fields{"user_id": accountName, "product_id": productID}, err)
	}
	if !deleted {
		return common.NotFound("未找到该收藏记录")
	}
	return nil
}

func (s *FavoriteService) Status(ctx context.Context, accountName, productID string) (bool, error) {
	fav, err := s.favs.FindProduct(ctx, accountName, productID)
	if err != nil {
		return false, internalErr(s.log, "favoriteStatus", logrus.Fields{"user_id": accountName, "product_id": productID}, err)
	}
	return fav != nil, nil
}

func (s *FavoriteService) List(ctx context.Context, accountName string, page, limit int) ([]ProductFavoriteView, utils.Pagination, error) {
	fields := logrus.Fields{"user_id": accountName}
	favs, err := s.favs.ListProducts(ctx, accountName, utils.Skip(page, limit), int64(limit))
	if err != nil {
		return nil, utils.Pagination{}, internalErr(s.log, "listFavorites", fields, err)
	}
	total, err := s.favs.CountProducts(ctx, accountName)
	if err != nil {
		return nil, utils.Pagination{}, internalErr(s.log, "listFavorites", fields, err)
	}

	views := make([]ProductFavoriteView, len(favs))
	var g errgroup.Group
	g.SetLimit(favoriteLookupConcurrency)
	for i := range favs {
		i := i
		g.Go(func() error {
			views[i] = s.enrichProduct(ctx, favs[i])
			return nil
		})
	}
	_ = g.Wait()
	return views, utils.NewPagination(page, limit, total), nil
}

func (s *FavoriteService) enrichProduct(ctx context.Context, fav models.ProductFavorite) ProductFavoriteView {
	view := ProductFavoriteView{ProductFavorite: fav}
	ref := fav.Target()
	entry := s.log.WithFields(logrus.Fields{"target": ref.String()})

	p, err := s.shops.FindProduct(ctx, ref.Tenant, ref.BusinessID)
	switch {
	case err != nil:
		entry.WithError(err).Warn("获取收藏商品详情失败，使用快照")
	case p != nil:
		status := p.Status
		view.ProductDetails = &ProductDetails{
			ProductID: p.ProductID,
			Name:      p.Name,
			ImageURL:  p.FirstImage(),
			Images:    p.Images,
			Price:     p.Price,
			Status:    &status,
			ShopID:    ref.Tenant,
		}
	}
	if view.ProductDetails == nil && fav.ProductSnapshot != nil {
		view.ProductDetails = &ProductDetails{
			ProductID:    ref.BusinessID,
			Name:         fav.ProductSnapshot.Name,
			ImageURL:     fav.ProductSnapshot.ImageURL,
			Price:        fav.ProductSnapshot.Price,
			ShopID:       ref.Tenant,
			FromSnapshot: true,
		}
	}

	profile, err := s.shops.FindProfile(ctx, ref.Tenant)
	if err != nil {
		entry.WithError(err).Warn("获取收藏商品所属店铺失败")
	}
	view.ShopDetails = &ShopDetails{ShopID: ref.Tenant, Name: ref.Tenant}
	if profile != nil {
		view.ShopDetails.Name = profile.Name
		view.ShopDetails.LogoURL = profile.LogoURL
		view.ShopDetails.Description = profile.Description
	}
	return view
}

func (s *FavoriteService) AddShop(ctx context.Context, accountName, shopID string) (*models.ShopFavorite, error) {
	shopID = strings.TrimSpace(shopID)
	if shopID == "" {
		return nil, common.Validation("店铺ID不能为空", nil)
	}
	if err := database.CheckShopID(shopID); err != nil {
		return nil, err
	}
	fields := logrus.Fields{"user_id": accountName, "shop_id": shopID}
	existing, err := s.favs.FindShop(ctx, accountName, shopID)
	if err != nil {
		return nil, internalErr(s.log, "addShopFavorite", fields, err)
	}
	if existing != nil {
		return nil, common.Conflict("该店铺已在收藏夹中", nil)
	}

	fav := &models.ShopFavorite{UserID: accountName, ShopIDOriginal: shopID, CreatedAt: s.now()}
	if p, err := s.shops.FindProfile(ctx, shopID); err != nil {
		s.log.WithFields(fields).WithError(err).Warn("收藏时获取店铺快照失败")
	} else {
		fav.ShopSnapshot = models.NewShopSnapshot(p)
	}

	if err := s.favs.InsertShop(ctx, fav); err != nil {
		if common.IsDuplicate(err) {
			return nil, common.Conflict("该店铺已在收藏夹中", nil)
		}
		return nil, internalErr(s.log, "addShopFavorite", fields, err)
	}
	return fav, nil
}

func (s *FavoriteService) RemoveShop(ctx context.Context, accountName, shopID string) error {
	deleted, err := s.favs.DeleteShop(ctx, accountName, shopID)
	if err != nil {
		return internalErr(s.log, "removeShopFavorite", logrus.Fields{"user_id": accountName, "shop_id": shopID}, err)
	}
	if !deleted {
		return common.NotFound("未找到该店铺收藏记录")
	}
	return nil
}

func (s *FavoriteService) ShopStatus(ctx context.Context, accountName, shopID string) (bool, error) {
	fav, err := s.favs.FindShop(ctx, accountName, shopID)
	if err != nil {
		return false, internalErr(s.log, "shopFavoriteStatus", logrus.Fields{"user_id": accountName, "shop_id": shopID}, err)
	}
	return fav != nil, nil
}

// ListShops 快照里有店铺名时直接使用，否则实时查询店铺资料
func (s *FavoriteService) ListShops(ctx context.Context, accountName string, page, limit int) ([]ShopFavoriteView, utils.Pagination, error) {
	fields := logrus.Fields{"user_id": accountName}
	favs, err := s.favs.ListShops(ctx, accountName, utils.Skip(page, limit), int64(limit))
	if err != nil {
		return nil, utils.Pagination{}, internalErr(s.log, "listShopFavorites", fields, err)
	}
	total, err := s.favs.CountShops(ctx, accountName)
	if err != nil {
		return nil, utils.Pagination{}, internalErr(s.log, "listShopFavorites", fields, err)
	}

	views := make([]ShopFavoriteView, len(favs))
	var g errgroup.Group
	g.SetLimit(favoriteLookupConcurrency)
	for i := range favs {
		i := i
		g.Go(func() error {
			fav := favs[i]
			view := ShopFavoriteView{ShopFavorite: fav}
			if fav.ShopSnapshot.Name != "" {
				view.ShopDetails = &ShopDetails{
					ShopID:       fav.ShopIDOriginal,
					Name:         fav.ShopSnapshot.Name,
					LogoURL:      fav.ShopSnapshot.LogoURL,
					FromSnapshot: true,
				}
			} else {
				ref := fav.Target()
				view.ShopDetails = &ShopDetails{ShopID: ref.Tenant, Name: ref.Tenant}
				p, err := s.shops.FindProfile(ctx, ref.Tenant)
				if err != nil {
					s.log.WithFields(logrus.Fields{"target": ref.String()}).WithError(err).Warn("获取收藏店铺详情失败")
				} else if p != nil {
					view.ShopDetails.Name = p.Name
					view.ShopDetails.LogoURL = p.LogoURL
					view.ShopDetails.Description = p.Description
				}
			}
			views[i] = view
			return nil
		})
	}
	_ = g.Wait()
	return views, utils.NewPagination(page, limit, total), nil
}
