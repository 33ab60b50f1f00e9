package models

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const indexTimeout = 30 * time.Second

func userIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		CollUsers: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		CollAddresses: {
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
			// 每个用户最多一个默认地址
			{
				Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "is_default", Value: 1}},
				Options: options.Index().
					SetName("user_id_default_unique").
					SetUnique(true).
					SetPartialFilterExpression(bson.D{{Key: "is_default", Value: true}}),
			},
		},
		CollProductFavorite: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "product_id_original", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		CollShopFavorite: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "shop_id_original", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
}

func shopIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		CollProducts: {
			{Keys: bson.D{{Key: "product_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "shop_id", Value: 1}}},
			{Keys: bson.D{{Key: "category_id", Value: 1}}},
			{Keys: bson.D{{Key: "name", Value: "text"}, {Key: "description", Value: "text"}}},
		},
		CollCategories: {
			{Keys: bson.D{{Key: "category_id_num", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		CollShopProfiles: {
			{Keys: bson.D{{Key: "shop_id", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
	}
}

func orderIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		CollOrders: {
			{Keys: bson.D{{Key: "order_no", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "create_time", Value: -1}}},
			{Keys: bson.D{{Key: "shop_id", Value: 1}, {Key: "create_time", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "create_time", Value: 1}}},
		},
	}
}

// ensure 每个模型集合只建一次索引，失败只记录日志
func (r *Registry) ensure(ctx context.Context, state *indexState, db *mongo.Database, specs map[string][]mongo.IndexModel, key string) {
	if !r.ensureIndexes {
		return
	}
	state.once.Do(func() {
		state.ensured.Store(true)
		if db == nil {
			return
		}
		ictx, cancel := context.WithTimeout(context.WithoutCancel(ctx), indexTimeout)
		defer cancel()
		for coll, idx := range specs {
			if _, err := db.Collection(coll).Indexes().CreateMany(ictx, idx); err != nil {
				r.log.WithFields(logrus.Fields{"models": key, "collection": coll, "error": err}).Warn("创建索引失败")
			}
		}
	})
}
