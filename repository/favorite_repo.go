package repository

import (
	"context"

	"multishop-server/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// FavoriteRepo 收藏存在用户库，只保存跨库引用与快照
type FavoriteRepo struct {
	src ModelSource
}

func NewFavoriteRepo(src ModelSource) *FavoriteRepo {
	return &FavoriteRepo{src: src}
}

func pageOptions(skip, limit int64) *options.FindOptions {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if skip > 0 {
		opts.SetSkip(skip)
	}
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return opts
}

func (r *FavoriteRepo) FindProduct(ctx context.Context, userID, productID string) (*models.ProductFavorite, error) {
	set, err := r.src.UserModels(ctx)
	if err != nil {
		return nil, err
	}
	return set.ProductFavorite.FindOne(ctx, bson.M{"user_id": userID, "product_id_original": productID})
}

func (r *FavoriteRepo) InsertProduct(ctx context.Context, f *models.ProductFavorite) error {
	set, err := r.src.UserModels(ctx)
	if err != nil {
		return err
	}
	id, err := set.ProductFavorite.InsertOne(ctx, f)
	if err != nil {
		return err
	}
	f.ID, err = insertedID(id)
	return err
}

func (r *FavoriteRepo) DeleteProduct(ctx context.Context, userID, productID string) (bool, error) {
	set, err := r.src.UserModels(ctx)
	if err != nil {
		return false, err
	}
	n, err := set.ProductFavorite.DeleteOne(ctx, bson.M{"user_id": userID, "product_id_original": productID})
	return n > 0, err
}

func (r *FavoriteRepo) ListProducts(ctx context.Context, userID string, skip, limit int64) ([]models.ProductFavorite, error) {
	set, err := r.src.UserModels(ctx)
	if err != nil {
		return nil, err
	}
	return set.ProductFavorite.Find(ctx, bson.M{"user_id": userID}, pageOptions(skip, limit))
}

func (r *FavoriteRepo) CountProducts(ctx context.Context, userID string) (int64, error) {
	set, err := r.src.UserModels(ctx)
	if err != nil {
		return 0, err
	}
	return set.ProductFavorite.Count(ctx, bson.M{"user_id": userID})
}

func (r *FavoriteRepo) FindShop(ctx context.Context, userID, shopID string) (*models.ShopFavorite, error) {
	set, err := r.src.UserModels(ctx)
	if err != nil {
		return nil, err
	}
	return set.ShopFavorite.FindOne(ctx, bson.M{"user_id": userID, "shop_id_original": shopID})
}

func (r *FavoriteRepo) InsertShop(ctx context.Context, f *models.ShopFavorite) error {
	set, err := r.src.UserModels(ctx)
	if err != nil {
		return err
	}
	id, err := set.ShopFavorite.InsertOne(ctx, f)
	if err != nil {
		return err
	}
	f.ID, err = insertedID(id)
	return err
}

func (r *FavoriteRepo) DeleteShop(ctx context.Context, userID, shopID string) (bool, error) {
	set, err := r.src.UserModels(ctx)
	if err != nil {
		return false, err
	}
	n, err := set.ShopFavorite.DeleteOne(ctx, bson.M{"user_id": userID, "shop_id_original": shopID})
	return n > 0, err
}

func (r *FavoriteRepo) ListShops(ctx context.Context, userID string, skip, limit int64) ([]models.ShopFavorite, error) {
	set, err := r.src.UserModels(ctx)
	if err != nil {
		return nil, err
	}
	return set.ShopFavorite.Find(ctx, bson.M{"user_id": userID}, pageOptions(skip, limit))
}

func (r *FavoriteRepo) CountShops(ctx context.Context, userID string) (int64, error) {
	set, err := r.src.UserModels(ctx)
	if err != nil {
		return 0, err
	}
	return set.ShopFavorite.Count(ctx, bson.M{"user_id": userID})
}
