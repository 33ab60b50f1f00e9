package repository

import (
	"context"

	"multishop-server/models"
	"multishop-server/services"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ShopRepo 每次调用都按 shopID 取对应店铺库的模型
type ShopRepo struct {
	src ModelSource
}

func NewShopRepo(src ModelSource) *ShopRepo {
	return &ShopRepo{src: src}
}

func (r *ShopRepo) FindProfile(ctx context.Context, shopID string) (*models.ShopProfile, error) {
	set, err := r.src.ShopModels(ctx, shopID)
	if err != nil {
		return nil, err
	}
	return set.Profile.FindOne(ctx, bson.M{"shop_id": shopID})
}

func (r *ShopRepo) UpsertProfile(ctx context.Context, shopID string, set, setOnInsert bson.M) (*models.ShopProfile, error) {
	ms, err := r.src.ShopModelsForWrite(ctx, shopID)
	if err != nil {
		return nil, err
	}
	update := bson.M{"$set": set}
	if len(setOnInsert) > 0 {
		update["$setOnInsert"] = setOnInsert
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	return ms.Profile.FindOneAndUpdate(ctx, bson.M{"shop_id": shopID}, update, opts)
}

func (r *ShopRepo) ListProducts(ctx context.Context, shopID string, filter services.ProductFilter) ([]models.Product, error) {
	set, err := r.src.ShopModels(ctx, shopID)
	if err != nil {
		return nil, err
	}
	q := bson.M{}
	if filter.OnShelfOnly {
		q["status"] = models.ProductOnShelf
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(filter.Limit)
	}
	return set.Product.Find(ctx, q, opts)
}

func (r *ShopRepo) FindProduct(ctx context.Context, shopID, productID string) (*models.Product, error) {
	set, err := r.src.ShopModels(ctx, shopID)
	if err != nil {
		return nil, err
	}
	return set.Product.FindOne(ctx, bson.M{"product_id": productID})
}

func (r *ShopRepo) InsertProduct(ctx context.Context, shopID string, p *models.Product) error {
	set, err := r.src.ShopModelsForWrite(ctx, shopID)
	if err != nil {
		return err
	}
	id, err := set.Product.InsertOne(ctx, p)
	if err != nil {
		return err
	}
	p.ID, err = insertedID(id)
	return err
}

func (r *ShopRepo) ReplaceProduct(ctx context.Context, shopID string, p *models.Product) error {
	set, err := r.src.ShopModelsForWrite(ctx, shopID)
	if err != nil {
		return err
	}
	_, err = set.Product.ReplaceOne(ctx, bson.M{"_id": p.ID}, p)
	return err
}

func (r *ShopRepo) DeleteProduct(ctx context.Context, shopID, productID string) (bool, error) {
	set, err := r.src.ShopModels(ctx, shopID)
	if err != nil {
		return false, err
	}
	n, err := set.Product.DeleteOne(ctx, bson.M{"product_id": productID})
	return n > 0, err
}

func (r *ShopRepo) CountProducts(ctx context.Context, shopID string) (int64, error) {
	set, err := r.src.ShopModels(ctx, shopID)
	if err != nil {
		return 0, err
	}
	return set.Product.Count(ctx, bson.M{})
}

func (r *ShopRepo) ListCategories(ctx context.Context, shopID string) ([]models.ProductCategory, error) {
	set, err := r.src.ShopModels(ctx, shopID)
	if err != nil {
		return nil, err
	}
	return set.Category.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "category_id_num", Value: 1}}))
}

func (r *ShopRepo) InsertCategory(ctx context.Context, shopID string, c *models.ProductCategory) error {
	set, err := r.src.ShopModelsForWrite(ctx, shopID)
	if err != nil {
		return err
	}
	id, err := set.Category.InsertOne(ctx, c)
	if err != nil {
		return err
	}
	c.ID, err = insertedID(id)
	return err
}
